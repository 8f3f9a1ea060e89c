package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"echopost/types"
)

func TestDownloadFetchesAllAttachments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "missing.jpg") {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("media-bytes"))
	}))
	defer srv.Close()

	msg := &types.RawMessage{
		ID:   7,
		Date: time.Date(2025, 3, 1, 15, 4, 5, 0, time.UTC),
		Media: []types.MediaRef{
			{URL: srv.URL + "/a.jpg", Filename: "a.jpg"},
			{URL: srv.URL + "/missing.jpg", Filename: "missing.jpg"},
			{URL: srv.URL + "/clip.mp4", Filename: "clip.mp4"},
		},
	}

	d := NewHTTPDownloader()
	dir := t.TempDir()
	paths, err := d.Download(context.Background(), msg, dir, 0)
	if err != nil {
		t.Fatalf("download failed: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("expected 2 downloads to succeed, got %v", paths)
	}
	if !strings.HasSuffix(paths[0], "150405_0_0.jpg") || !strings.HasSuffix(paths[1], "150405_0_2.mp4") {
		t.Fatalf("unexpected file names: %v", paths)
	}
	data, err := os.ReadFile(paths[0])
	if err != nil || string(data) != "media-bytes" {
		t.Fatalf("unexpected file content: %q, %v", data, err)
	}
}

func TestDownloadFailsWhenNothingSucceeds(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	msg := &types.RawMessage{
		ID:    8,
		Date:  time.Now(),
		Media: []types.MediaRef{{URL: srv.URL + "/gone.jpg", Filename: "gone.jpg"}},
	}

	d := NewHTTPDownloader()
	if _, err := d.Download(context.Background(), msg, t.TempDir(), 0); err == nil {
		t.Fatal("expected an error when every download fails")
	}
}

func TestMediaExtensionFallbacks(t *testing.T) {
	cases := []struct {
		ref  types.MediaRef
		want string
	}{
		{types.MediaRef{Filename: "photo.JPG"}, ".JPG"},
		{types.MediaRef{URL: "https://cdn.example/v/clip.mp4?sig=abc"}, ".mp4"},
		{types.MediaRef{URL: "https://cdn.example/blob"}, ".bin"},
	}
	for _, tc := range cases {
		if got := mediaExtension(tc.ref); got != tc.want {
			t.Fatalf("mediaExtension(%+v) = %q, want %q", tc.ref, got, tc.want)
		}
	}
}
