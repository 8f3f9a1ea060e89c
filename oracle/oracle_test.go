package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"echopost/types"
)

type fakeProvider struct {
	answer string
	err    error
	calls  int
	prompt string
}

func (f *fakeProvider) Complete(_ context.Context, _, prompt string, _ int) (string, error) {
	f.calls++
	f.prompt = prompt
	return f.answer, f.err
}

func (f *fakeProvider) ModelName() string { return "fake-model" }

func candidate() types.MessageRecord {
	return types.MessageRecord{
		Text:  "Bitcoin breaks above $70k as ETF inflows accelerate",
		Media: []types.MediaDescriptor{{Extension: ".jpg", SizeBytes: 100000}},
	}
}

func someHistory() []types.MessageRecord {
	return []types.MessageRecord{
		{Text: "Ethereum gas fees drop to a yearly low", Source: "history/a"},
		{Text: strings.Repeat("long entry text ", 20), Source: "history/b"},
	}
}

func TestCheckDuplicateParsesYesLeniently(t *testing.T) {
	for _, answer := range []string{"Yes", "yes, similar to message #2", "  YES, similar to message #1  "} {
		p := &fakeProvider{answer: answer}
		o := New(p)
		if !o.CheckDuplicate(context.Background(), candidate(), someHistory(), t.TempDir()) {
			t.Fatalf("answer %q must parse as duplicate", answer)
		}
	}
}

func TestCheckDuplicateParsesNo(t *testing.T) {
	p := &fakeProvider{answer: "No"}
	o := New(p)
	if o.CheckDuplicate(context.Background(), candidate(), someHistory(), t.TempDir()) {
		t.Fatal("answer \"No\" must parse as not duplicate")
	}
}

func TestCheckDuplicateFailsOpenOnProviderError(t *testing.T) {
	p := &fakeProvider{err: errors.New("connection refused")}
	o := New(p)
	dir := t.TempDir()
	if o.CheckDuplicate(context.Background(), candidate(), someHistory(), dir) {
		t.Fatal("provider failure must fail open to not-duplicate")
	}

	// the failure must still be recorded for audit
	data, err := os.ReadFile(filepath.Join(dir, "duplicate_checker_details.json"))
	if err != nil {
		t.Fatalf("expected decision artifact on failure: %v", err)
	}
	var record struct {
		Output string `json:"output"`
	}
	if err := json.Unmarshal(data, &record); err != nil {
		t.Fatalf("decision artifact is not valid JSON: %v", err)
	}
	if !strings.Contains(record.Output, "ERROR") {
		t.Fatalf("decision output must record the failure, got %q", record.Output)
	}
}

func TestCheckDuplicateWritesAuditArtifact(t *testing.T) {
	p := &fakeProvider{answer: "No"}
	o := New(p)
	dir := t.TempDir()
	o.CheckDuplicate(context.Background(), candidate(), someHistory(), dir)

	data, err := os.ReadFile(filepath.Join(dir, "duplicate_checker_details.json"))
	if err != nil {
		t.Fatalf("expected decision artifact: %v", err)
	}
	var record struct {
		Step  string `json:"step"`
		Model string `json:"model"`
		Input struct {
			RecentEntriesCount int `json:"recent_entries_count"`
		} `json:"input"`
	}
	if err := json.Unmarshal(data, &record); err != nil {
		t.Fatalf("failed to decode decision artifact: %v", err)
	}
	if record.Step != "duplicate_checker" || record.Model != "fake-model" {
		t.Fatalf("unexpected decision metadata: %+v", record)
	}
	if record.Input.RecentEntriesCount != 2 {
		t.Fatalf("expected 2 history entries recorded, got %d", record.Input.RecentEntriesCount)
	}
}

func TestPromptEmbedsCandidateAndTruncatedHistory(t *testing.T) {
	p := &fakeProvider{answer: "No"}
	o := New(p)
	hist := someHistory()
	o.CheckDuplicate(context.Background(), candidate(), hist, t.TempDir())

	if !strings.Contains(p.prompt, "NEW MESSAGE:") || !strings.Contains(p.prompt, candidate().Text) {
		t.Fatal("prompt must embed the candidate text")
	}
	if !strings.Contains(p.prompt, "[1] "+hist[0].Text) {
		t.Fatal("prompt must number history entries")
	}
	if strings.Contains(p.prompt, hist[1].Text) {
		t.Fatal("long history entries must be truncated in the prompt")
	}
	if !strings.Contains(p.prompt, "...") {
		t.Fatal("truncated entries must carry an ellipsis")
	}
}
