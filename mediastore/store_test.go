package mediastore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestGroupDirSingleKeyUsedVerbatim(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	key := "20250101_120000_single_42"
	dir, err := store.GroupDir(key)
	if err != nil {
		t.Fatalf("failed to create group dir: %v", err)
	}
	if filepath.Base(dir) != key {
		t.Fatalf("expected directory named %q, got %q", key, filepath.Base(dir))
	}
}

func TestGroupDirAlbumKeyGetsTimestampPrefix(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	dir, err := store.GroupDir("1337420")
	if err != nil {
		t.Fatalf("failed to create group dir: %v", err)
	}
	base := filepath.Base(dir)
	if !strings.HasSuffix(base, "_group_1337420") {
		t.Fatalf("expected album dir suffix _group_1337420, got %q", base)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Fatalf("group dir was not created: %v", err)
	}
}

func TestMediaFileName(t *testing.T) {
	date := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	if got := MediaFileName(date, 0, 2, ".JPG"); got != "092653_0_2.jpg" {
		t.Fatalf("unexpected media file name: %q", got)
	}
}

func TestMediaFileNameIsUniqueAcrossLargeAttachmentLists(t *testing.T) {
	date := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	// Attachment 10 of message 0 and attachment 0 of message 1 must not collide.
	a := MediaFileName(date, 0, 10, ".jpg")
	b := MediaFileName(date, 1, 0, ".jpg")
	if a == b {
		t.Fatalf("file names collide: %q", a)
	}
}

func TestDescribeFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "092653_0.jpg")
	if err := os.WriteFile(path, []byte("fake image bytes"), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	media := DescribeFiles([]string{path, filepath.Join(dir, "missing.mp4")})
	if len(media) != 2 {
		t.Fatalf("expected 2 descriptors, got %d", len(media))
	}
	if media[0].Extension != ".jpg" || media[0].SizeBytes != 16 {
		t.Fatalf("unexpected descriptor for existing file: %+v", media[0])
	}
	if media[1].Extension != ".mp4" || media[1].SizeBytes != 0 {
		t.Fatalf("missing file must be kept with size 0, got %+v", media[1])
	}
}

func TestIsArtifactFile(t *testing.T) {
	artifacts := []string{
		"original_message.txt",
		"post_text.txt",
		"full_input.txt",
		"posting_status.json",
		"duplicate_check_decision.json",
		"duplicate_checker_details.json",
		"filter_model_details.json",
	}
	for _, name := range artifacts {
		if !IsArtifactFile(name) {
			t.Fatalf("%q must be recognized as an artifact", name)
		}
	}
	for _, name := range []string{"092653_0.jpg", "video.mp4", "details.json.bak"} {
		if IsArtifactFile(name) {
			t.Fatalf("%q must not be treated as an artifact", name)
		}
	}
}

func TestSaveDecisionFormat(t *testing.T) {
	dir := t.TempDir()
	path, err := SaveDecision(dir, "duplicate_checker",
		map[string]any{"current_message": "hello"},
		"gpt-4o", map[string]any{"temperature": 0.0}, "no", "no")
	if err != nil {
		t.Fatalf("failed to save decision: %v", err)
	}
	if filepath.Base(path) != "duplicate_checker_details.json" {
		t.Fatalf("unexpected decision file name: %q", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read decision file: %v", err)
	}
	var record map[string]json.RawMessage
	if err := json.Unmarshal(data, &record); err != nil {
		t.Fatalf("decision file is not valid JSON: %v", err)
	}
	for _, field := range []string{"id", "created_at", "step", "input", "model", "parameters", "output", "explanation", "user_feedback"} {
		if _, ok := record[field]; !ok {
			t.Fatalf("decision record missing field %q", field)
		}
	}

	var feedback map[string]any
	if err := json.Unmarshal(record["user_feedback"], &feedback); err != nil {
		t.Fatalf("user_feedback is not an object: %v", err)
	}
	for _, field := range []string{"is_correct", "corrected_value", "comment", "corrected_at"} {
		v, ok := feedback[field]
		if !ok {
			t.Fatalf("user_feedback missing field %q", field)
		}
		if v != nil {
			t.Fatalf("user_feedback.%s must initialize to null, got %v", field, v)
		}
	}

	var created struct {
		CreatedAt string `json:"created_at"`
	}
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatalf("failed to decode created_at: %v", err)
	}
	if _, err := time.Parse("2006-01-02T15:04:05Z", created.CreatedAt); err != nil {
		t.Fatalf("created_at %q is not ISO-8601 UTC: %v", created.CreatedAt, err)
	}
}
