package history

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeEntry(t *testing.T, root, name, text string, mtime time.Time, media map[string]int) string {
	t.Helper()
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("failed to create entry dir: %v", err)
	}
	for file, size := range media {
		if err := os.WriteFile(filepath.Join(dir, file), make([]byte, size), 0o644); err != nil {
			t.Fatalf("failed to write media fixture: %v", err)
		}
	}
	textPath := filepath.Join(dir, "original_message.txt")
	if err := os.WriteFile(textPath, []byte(text), 0o644); err != nil {
		t.Fatalf("failed to write text fixture: %v", err)
	}
	if err := os.Chtimes(textPath, mtime, mtime); err != nil {
		t.Fatalf("failed to set mtime: %v", err)
	}
	return dir
}

func TestFetchMissingDirectory(t *testing.T) {
	records := Fetch(filepath.Join(t.TempDir(), "does-not-exist"), 10)
	if len(records) != 0 {
		t.Fatalf("missing directory must yield no records, got %d", len(records))
	}
}

func TestFetchSkipsDirectoriesWithoutTextArtifact(t *testing.T) {
	root := t.TempDir()
	incomplete := filepath.Join(root, "abandoned_group")
	if err := os.MkdirAll(incomplete, 0o755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(incomplete, "120000_0.jpg"), make([]byte, 10), 0o644); err != nil {
		t.Fatalf("failed to write media: %v", err)
	}
	writeEntry(t, root, "posted", "a real posted message entry", time.Now(), nil)

	records := Fetch(root, 10)
	if len(records) != 1 {
		t.Fatalf("expected only the complete entry, got %d records", len(records))
	}
}

func TestFetchOrdersByMtimeAndAppliesLimit(t *testing.T) {
	root := t.TempDir()
	base := time.Now().Add(-time.Hour)
	writeEntry(t, root, "oldest", "oldest entry text", base, nil)
	writeEntry(t, root, "middle", "middle entry text", base.Add(10*time.Minute), nil)
	writeEntry(t, root, "newest", "newest entry text", base.Add(20*time.Minute), nil)

	records := Fetch(root, 2)
	if len(records) != 2 {
		t.Fatalf("expected limit of 2 records, got %d", len(records))
	}
	if records[0].Text != "newest entry text" || records[1].Text != "middle entry text" {
		t.Fatalf("records out of order: %q, %q", records[0].Text, records[1].Text)
	}
}

func TestFetchBuildsNormalizedMedia(t *testing.T) {
	root := t.TempDir()
	dir := writeEntry(t, root, "entry", "text with media", time.Now(), map[string]int{
		"120000_1.MP4":                   2000,
		"120000_0.jpg":                   100,
		"duplicate_checker_details.json": 50,
		"posting_status.json":            20,
	})

	records := Fetch(root, 5)
	if len(records) != 1 {
		t.Fatalf("expected one record, got %d", len(records))
	}
	r := records[0]
	if r.Source != dir {
		t.Fatalf("expected source %q, got %q", dir, r.Source)
	}
	if len(r.Media) != 2 {
		t.Fatalf("audit artifacts must be excluded from media, got %d descriptors", len(r.Media))
	}
	// sorted by extension: .jpg before .mp4, extensions lower-cased
	if r.Media[0].Extension != ".jpg" || r.Media[0].SizeBytes != 100 {
		t.Fatalf("unexpected first descriptor: %+v", r.Media[0])
	}
	if r.Media[1].Extension != ".mp4" || r.Media[1].SizeBytes != 2000 {
		t.Fatalf("unexpected second descriptor: %+v", r.Media[1])
	}
}
