package pipeline

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"mime"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	readability "github.com/go-shiori/go-readability"
	openai "github.com/sashabaranov/go-openai"
	ffmpeg "github.com/u2takey/ffmpeg-go"

	"echopost/config"
)

var urlPattern = regexp.MustCompile(`https?://\S+`)

// ignoredLinkSubstrings filters out self-referential and referral links that
// carry no content worth aggregating.
var ignoredLinkSubstrings = []string{
	"t.me",
	"bybit.com/register",
	"okx.com/join",
	"t.co",
}

// ImageAnalyzer produces a text description of an image for the aggregated
// generation input.
type ImageAnalyzer interface {
	AnalyzeImage(ctx context.Context, path string) (string, error)
}

// LinkExtractor fetches a URL and returns its readable text.
type LinkExtractor func(url string) (string, error)

// VideoProber returns metadata for a video file.
type VideoProber func(path string) (string, error)

// Aggregator builds the full generation input for a group: original message,
// per-media analysis and linked-page extracts, persisted as full_input.txt.
type Aggregator struct {
	Images ImageAnalyzer // nil disables image analysis
	Links  LinkExtractor // nil uses the readability-based default
	Videos VideoProber   // nil uses the ffprobe-based default
}

// BuildFullInput writes the aggregated input file into dir and returns its
// content. Per-item failures are logged and noted inline; only the final write
// is fatal, so one broken link never loses the original message.
func (a *Aggregator) BuildFullInput(ctx context.Context, dir, text string, mediaPaths []string) (string, error) {
	var b strings.Builder

	b.WriteString("----- Original Message -----\n")
	b.WriteString(text)
	b.WriteString("\n----- End of Original Message -----\n\n")

	if len(mediaPaths) == 0 {
		b.WriteString("No media files attached.\n")
	}
	for _, path := range mediaPaths {
		analysis := a.analyzeMedia(ctx, path)
		fmt.Fprintf(&b, "\n----- Analysis for media file: %s -----\n", filepath.Base(path))
		b.WriteString(analysis)
		fmt.Fprintf(&b, "\n----- End of analysis for media file: %s -----\n", filepath.Base(path))
	}

	urls := extractURLs(text)
	if len(urls) == 0 {
		b.WriteString("\nNo URLs found in the original message.\n")
	}
	for _, url := range urls {
		extract, err := a.extractLink(url)
		if err != nil {
			log.Printf("Warning: failed to analyze URL %s: %v", url, err)
			continue
		}
		fmt.Fprintf(&b, "\n----- Analysis for link: %s -----\n", url)
		b.WriteString(extract)
		fmt.Fprintf(&b, "\n----- End of analysis for link: %s -----\n", url)
	}

	content := b.String()
	path := filepath.Join(dir, config.FullInputFile)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to save aggregated input: %w", err)
	}
	return content, nil
}

func (a *Aggregator) analyzeMedia(ctx context.Context, path string) string {
	name := filepath.Base(path)
	mimeType := mime.TypeByExtension(filepath.Ext(path))

	switch {
	case strings.HasPrefix(mimeType, "image/") && a.Images != nil:
		analysis, err := a.Images.AnalyzeImage(ctx, path)
		if err != nil {
			log.Printf("Warning: image analysis failed for %s: %v", name, err)
			return fmt.Sprintf("Error analyzing image %s: %v", name, err)
		}
		return analysis
	case strings.HasPrefix(mimeType, "video/"):
		probe := a.Videos
		if probe == nil {
			probe = probeVideo
		}
		meta, err := probe(path)
		if err != nil {
			log.Printf("Warning: video probe failed for %s: %v", name, err)
			return fmt.Sprintf("Video file %s is attached and will be reposted with the processed text.", name)
		}
		return fmt.Sprintf("Video file %s is attached. Stream metadata:\n%s", name, truncateText(meta, config.LinkTextLimit))
	case mimeType == "":
		return fmt.Sprintf("Media file %s (unknown type) is attached and will be reposted with the processed text.", name)
	default:
		return fmt.Sprintf("Media file %s of type %q is attached and will be reposted with the processed text.", name, mimeType)
	}
}

func (a *Aggregator) extractLink(url string) (string, error) {
	if a.Links != nil {
		return a.Links(url)
	}
	article, err := readability.FromURL(url, config.URLFetchTimeout)
	if err != nil {
		return "", fmt.Errorf("readability extraction failed: %w", err)
	}
	return truncateText(article.TextContent, config.LinkTextLimit), nil
}

func probeVideo(path string) (string, error) {
	return ffmpeg.Probe(path)
}

func extractURLs(text string) []string {
	var urls []string
	for _, url := range urlPattern.FindAllString(text, -1) {
		lower := strings.ToLower(url)
		skip := false
		for _, ignore := range ignoredLinkSubstrings {
			if strings.Contains(lower, ignore) {
				log.Printf("Ignoring URL: %s", url)
				skip = true
				break
			}
		}
		if !skip {
			urls = append(urls, url)
		}
	}
	return urls
}

func truncateText(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

const imagePromptText = "Analyze this image for information that can be used in a repost describing it. " +
	"If any Cyrillic characters are detected in the image, prefix the analysis with 'RUSSIAN:'."

// OpenAIImageAnalyzer implements ImageAnalyzer via the OpenAI vision API.
type OpenAIImageAnalyzer struct {
	client *openai.Client
	model  string
}

// NewOpenAIImageAnalyzer creates an analyzer; model defaults to gpt-4o-mini.
func NewOpenAIImageAnalyzer(apiKey, model string) *OpenAIImageAnalyzer {
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIImageAnalyzer{client: openai.NewClient(apiKey), model: model}
}

// AnalyzeImage sends the image inline as a base64 data URL. Descriptions of
// Cyrillic content get a marker prefix so the generation prompt can decide how
// to handle translation.
func (v *OpenAIImageAnalyzer) AnalyzeImage(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(data)

	resp, err := v.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: v.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: imagePromptText},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL: "data:image/jpeg;base64," + encoded,
						},
					},
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("vision completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response choices")
	}

	analysis := resp.Choices[0].Message.Content
	if containsCyrillic(analysis) && !strings.HasPrefix(analysis, "RUSSIAN:") {
		analysis = "RUSSIAN: " + analysis
	}
	return analysis, nil
}

func containsCyrillic(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Cyrillic, r) {
			return true
		}
	}
	return false
}
