// Package oracle wraps the semantic duplicate check: one AI call comparing a
// candidate message against a bounded window of history entries, with the
// decision persisted for audit. The oracle fails open, so an AI outage or
// provider error yields "not a duplicate" and never blocks the pipeline.
package oracle

import (
	"context"
	"fmt"
	"log"
	"strings"

	"echopost/config"
	"echopost/mediastore"
	"echopost/types"
)

const systemPrompt = "You are a duplicate content detector. If content is not duplicate, respond with 'No'. " +
	"If duplicate, respond with 'Yes, similar to message #X' where X is the message number."

// ChatProvider abstracts a deterministic text-completion call. Each caller
// passes its own token budget; the oracle's verdict stays short while the
// generation steps downstream need room for full post text.
type ChatProvider interface {
	Complete(ctx context.Context, system, prompt string, maxTokens int) (string, error)
	ModelName() string
}

// Oracle performs semantic duplicate checks through a ChatProvider.
type Oracle struct {
	provider ChatProvider
}

// New creates an oracle around the given provider.
func New(provider ChatProvider) *Oracle {
	return &Oracle{provider: provider}
}

// CheckDuplicate asks the provider whether candidate duplicates any history
// entry. The verdict and the raw model output are persisted to auditDir as a
// duplicate_checker decision artifact on every call, including failures.
func (o *Oracle) CheckDuplicate(ctx context.Context, candidate types.MessageRecord, history []types.MessageRecord, auditDir string) bool {
	prompt := buildPrompt(candidate, history)

	cctx, cancel := context.WithTimeout(ctx, config.OracleTimeout)
	defer cancel()

	answer, err := o.provider.Complete(cctx, systemPrompt, prompt, config.OracleMaxTokens)
	if err != nil {
		log.Printf("Warning: semantic duplicate check failed: %v", err)
		o.saveDecision(auditDir, candidate, history, fmt.Sprintf("ERROR: %v - false (default)", err))
		return false
	}

	answer = strings.ToLower(strings.TrimSpace(answer))
	verdict := strings.Contains(answer, "yes")
	o.saveDecision(auditDir, candidate, history, answer)

	if verdict {
		log.Printf("Semantic duplicate detected: %q", truncate(answer, 100))
	}
	return verdict
}

func buildPrompt(candidate types.MessageRecord, history []types.MessageRecord) string {
	var b strings.Builder
	b.WriteString("Compare the new message with past messages and determine if it's a duplicate.\n")
	b.WriteString("Consider both content similarity and meaning.\n")
	b.WriteString("NEW MESSAGE:\n-------------------\n")
	b.WriteString(candidate.Text)
	b.WriteString("\n-------------------\n")
	b.WriteString("Media: " + types.FormatMedia(candidate.Media) + "\n\n")
	b.WriteString("PAST MESSAGES:\n")
	for i, entry := range history {
		fmt.Fprintf(&b, "[%d] %s\n", i+1, truncate(entry.Text, config.OracleHistoryTextLimit))
		fmt.Fprintf(&b, "    Media: %s\n\n", types.FormatMedia(entry.Media))
	}
	return b.String()
}

func (o *Oracle) saveDecision(auditDir string, candidate types.MessageRecord, history []types.MessageRecord, output string) {
	if auditDir == "" {
		return
	}
	_, err := mediastore.SaveDecision(auditDir, "duplicate_checker",
		map[string]any{
			"current_message":      candidate.Text,
			"current_media_info":   candidate.Media,
			"recent_entries_count": len(history),
			"system_content":       systemPrompt,
		},
		o.provider.ModelName(),
		map[string]any{
			"temperature": 0.0,
			"max_tokens":  config.OracleMaxTokens,
		},
		output, output)
	if err != nil {
		log.Printf("Warning: failed to save duplicate_checker decision: %v", err)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
