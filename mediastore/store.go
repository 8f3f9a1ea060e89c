// Package mediastore manages the per-group working directories: downloaded media,
// text artifacts and decision-audit files. The store root doubles as the history
// directory once a group has been posted.
package mediastore

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"echopost/config"
	"echopost/types"
)

// Store owns a directory tree of group working directories.
type Store struct {
	root string
}

// New creates the store root if needed.
func New(root string) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("media store root cannot be empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media store root: %w", err)
	}
	return &Store{root: root}, nil
}

// Root returns the store root, which is also the history directory scanned by
// the duplicate checker.
func (s *Store) Root() string { return s.root }

// GroupDir creates (if needed) and returns the working directory for a group.
// Synthetic single-message keys already carry a timestamp and are used verbatim;
// album keys are prefixed with a timestamp so directory names stay sortable.
func (s *Store) GroupDir(key string) (string, error) {
	name := key
	if !strings.Contains(key, "_single") {
		name = fmt.Sprintf("%s_group_%s", time.Now().UTC().Format("20060102_150405"), key)
	}
	dir := filepath.Join(s.root, sanitizeName(name))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create group directory: %w", err)
	}
	return dir, nil
}

// MediaFileName builds the deterministic name for a downloaded media file,
// {HHMMSS}_{msgIdx}_{fileIdx}{ext}. Keeping the two indices as separate
// segments makes the name unique within a group for any attachment count.
func MediaFileName(msgDate time.Time, msgIdx, fileIdx int, ext string) string {
	return fmt.Sprintf("%s_%d_%d%s", msgDate.UTC().Format("150405"), msgIdx, fileIdx, strings.ToLower(ext))
}

// SaveOriginalText persists the group's representative text. The file also marks
// the directory as a valid history entry for later duplicate checks.
func SaveOriginalText(dir, text string) (string, error) {
	path := filepath.Join(dir, config.OriginalMessageFile)
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("failed to save original message: %w", err)
	}
	return path, nil
}

// SavePostText persists the generated repost text.
func SavePostText(dir, text string) (string, error) {
	path := filepath.Join(dir, config.PostTextFile)
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("failed to save post text: %w", err)
	}
	return path, nil
}

// DescribeFiles builds media descriptors for downloaded files. Files that went
// missing after download are kept with size 0 so the count still reflects the
// original attachment list.
func DescribeFiles(paths []string) []types.MediaDescriptor {
	media := make([]types.MediaDescriptor, 0, len(paths))
	for _, p := range paths {
		d := types.MediaDescriptor{Extension: strings.ToLower(filepath.Ext(p))}
		if info, err := os.Stat(p); err == nil {
			d.SizeBytes = info.Size()
		} else {
			log.Printf("Warning: media file missing during describe: %s", p)
		}
		media = append(media, d)
	}
	return media
}

// IsArtifactFile reports whether a filename is one of the known per-group text
// or audit artifacts rather than a media file.
func IsArtifactFile(name string) bool {
	switch name {
	case config.OriginalMessageFile, config.PostTextFile, config.FullInputFile,
		config.PostingStatusFile, config.DuplicateDecisionFile:
		return true
	}
	return strings.HasSuffix(name, config.DecisionFileSuffix)
}

var nameReplacer = strings.NewReplacer("/", "_", "\\", "_", ":", "_", " ", "_")

func sanitizeName(name string) string {
	return nameReplacer.Replace(name)
}
