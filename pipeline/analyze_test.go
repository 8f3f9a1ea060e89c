package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestBuildFullInputAggregatesAllSections(t *testing.T) {
	dir := t.TempDir()
	mediaPath := filepath.Join(dir, "120000_0.bin")
	if err := os.WriteFile(mediaPath, []byte("blob"), 0o644); err != nil {
		t.Fatalf("failed to write media fixture: %v", err)
	}

	agg := &Aggregator{
		Links: func(url string) (string, error) {
			return "extracted article text for " + url, nil
		},
	}

	text := "Read the analysis at https://example.com/report and join https://t.me/somechannel"
	content, err := agg.BuildFullInput(context.Background(), dir, text, []string{mediaPath})
	if err != nil {
		t.Fatalf("aggregation failed: %v", err)
	}

	if !strings.Contains(content, "----- Original Message -----\n"+text) {
		t.Fatal("aggregated input must embed the original message")
	}
	if !strings.Contains(content, "Analysis for media file: 120000_0.bin") {
		t.Fatal("aggregated input must note the attached media")
	}
	if !strings.Contains(content, "extracted article text for https://example.com/report") {
		t.Fatal("aggregated input must include the link extract")
	}
	if strings.Contains(content, "t.me/somechannel -----") {
		t.Fatal("self-referential links must not be analyzed")
	}

	saved, err := os.ReadFile(filepath.Join(dir, "full_input.txt"))
	if err != nil {
		t.Fatalf("aggregated input file missing: %v", err)
	}
	if string(saved) != content {
		t.Fatal("returned content must match the persisted file")
	}
}

func TestBuildFullInputWithoutMediaOrLinks(t *testing.T) {
	agg := &Aggregator{}
	content, err := agg.BuildFullInput(context.Background(), t.TempDir(), "plain text update", nil)
	if err != nil {
		t.Fatalf("aggregation failed: %v", err)
	}
	if !strings.Contains(content, "No media files attached.") {
		t.Fatal("missing media note")
	}
	if !strings.Contains(content, "No URLs found in the original message.") {
		t.Fatal("missing URL note")
	}
}

func TestBuildFullInputSurvivesLinkFailures(t *testing.T) {
	agg := &Aggregator{
		Links: func(url string) (string, error) {
			return "", fmt.Errorf("fetch failed for %s", url)
		},
	}
	content, err := agg.BuildFullInput(context.Background(), t.TempDir(), "see https://example.com/down", nil)
	if err != nil {
		t.Fatalf("a broken link must not fail aggregation: %v", err)
	}
	if strings.Contains(content, "Analysis for link") {
		t.Fatal("failed link extraction must not add an analysis section")
	}
	if !strings.Contains(content, "Original Message") {
		t.Fatal("original message must survive link failures")
	}
}

func TestExtractURLsFiltersIgnoredSubstrings(t *testing.T) {
	text := "https://example.com/a https://T.ME/chan https://www.bybit.com/register?ref=1 " +
		"https://okx.com/join/ABC https://t.co/xyz https://example.org/b"
	urls := extractURLs(text)
	if len(urls) != 2 {
		t.Fatalf("expected 2 URLs to survive filtering, got %v", urls)
	}
	if urls[0] != "https://example.com/a" || urls[1] != "https://example.org/b" {
		t.Fatalf("unexpected URLs: %v", urls)
	}
}

func TestContainsCyrillic(t *testing.T) {
	if !containsCyrillic("график за сегодня") {
		t.Fatal("cyrillic text must be detected")
	}
	if containsCyrillic("plain latin chart") {
		t.Fatal("latin text must not be flagged")
	}
}
