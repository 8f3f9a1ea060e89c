package source

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"echopost/mediastore"
	"echopost/types"
)

const downloadTimeout = 120 * time.Second

// HTTPDownloader fetches a message's media URLs into the group directory. It
// implements grouping.Downloader.
type HTTPDownloader struct {
	client *http.Client
}

// NewHTTPDownloader creates a downloader with a bounded per-file timeout.
func NewHTTPDownloader() *HTTPDownloader {
	return &HTTPDownloader{client: &http.Client{Timeout: downloadTimeout}}
}

// Download fetches every attachment of msg. A failed file is logged and
// skipped so one broken CDN link does not lose the rest of the album.
func (d *HTTPDownloader) Download(ctx context.Context, msg *types.RawMessage, destDir string, idx int) ([]string, error) {
	var paths []string
	for i, ref := range msg.Media {
		ext := mediaExtension(ref)
		name := mediastore.MediaFileName(msg.Date, idx, i, ext)
		dest := filepath.Join(destDir, name)

		if err := d.fetch(ctx, ref.URL, dest); err != nil {
			log.Printf("Warning: failed to download %s: %v", ref.URL, err)
			continue
		}
		log.Printf("Media downloaded to: %s", dest)
		paths = append(paths, dest)
	}
	if len(paths) == 0 && len(msg.Media) > 0 {
		return nil, fmt.Errorf("all %d downloads failed for message %d", len(msg.Media), msg.ID)
	}
	return paths, nil
}

func (d *HTTPDownloader) fetch(ctx context.Context, rawURL, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("invalid media URL: %w", err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create media file: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, resp.Body); err != nil {
		os.Remove(dest)
		return fmt.Errorf("failed to write media file: %w", err)
	}
	return nil
}

// mediaExtension picks the attachment's extension from its filename, falling
// back to the URL path and then to a generic binary suffix.
func mediaExtension(ref types.MediaRef) string {
	if ext := filepath.Ext(ref.Filename); ext != "" {
		return ext
	}
	if u, err := url.Parse(ref.URL); err == nil {
		if ext := path.Ext(u.Path); ext != "" {
			return ext
		}
	}
	return ".bin"
}
