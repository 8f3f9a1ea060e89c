package oracle

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"

	"echopost/config"
)

// CohereProvider implements ChatProvider using the Cohere Chat API.
// SDK: github.com/cohere-ai/cohere-go/v2
type CohereProvider struct {
	client *cohereclient.Client
	model  string
}

// NewCohereProvider creates a provider. The HTTP client forces HTTP/1.1 to
// avoid HTTP/2 protocol errors seen against the Cohere endpoint.
func NewCohereProvider(apiKey, model string) *CohereProvider {
	if model == "" {
		model = "command-r"
	}
	httpClient := &http.Client{
		Timeout: config.OracleTimeout,
		Transport: &http.Transport{
			TLSNextProto:      make(map[string]func(authority string, c *tls.Conn) http.RoundTripper),
			ForceAttemptHTTP2: false,
		},
	}
	client := cohereclient.NewClient(
		cohereclient.WithToken(apiKey),
		cohereclient.WithHTTPClient(httpClient),
	)
	return &CohereProvider{client: client, model: model}
}

func (p *CohereProvider) ModelName() string { return p.model }

// Complete sends one preamble+message exchange with deterministic settings.
func (p *CohereProvider) Complete(ctx context.Context, system, prompt string, maxTokens int) (string, error) {
	temperature := 0.0
	if maxTokens <= 0 {
		maxTokens = config.OracleMaxTokens
	}

	cctx, cancel := context.WithTimeout(ctx, config.OracleTimeout)
	defer cancel()

	resp, err := p.client.Chat(cctx, &cohere.ChatRequest{
		Message:     prompt,
		Preamble:    &system,
		Model:       &p.model,
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("cohere chat error: %w", err)
	}
	if resp == nil {
		return "", errors.New("cohere chat returned empty response")
	}
	return resp.Text, nil
}
