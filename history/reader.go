// Package history reconstructs past message records from the posted-message
// directory tree so the duplicate checker can compare against them.
package history

import (
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"echopost/mediastore"
	"echopost/types"
)

type entry struct {
	mtime  time.Time
	record types.MessageRecord
}

// Fetch scans the immediate subdirectories of dir and returns up to limit
// message records, most recently modified first. A subdirectory qualifies only
// when it contains the representative text file; its age is that file's mtime,
// not the directory's. A missing directory yields an empty result, and I/O
// errors on individual entries are logged and skipped so one corrupt entry
// cannot abort the scan.
func Fetch(dir string, limit int) []types.MessageRecord {
	if limit <= 0 {
		return nil
	}

	dirents, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Warning: failed to read history directory %s: %v", dir, err)
		}
		return nil
	}

	entries := make([]entry, 0, len(dirents))
	for _, d := range dirents {
		if !d.IsDir() {
			continue
		}
		e, ok := readEntry(filepath.Join(dir, d.Name()))
		if ok {
			entries = append(entries, e)
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].mtime.After(entries[j].mtime)
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}

	records := make([]types.MessageRecord, len(entries))
	for i, e := range entries {
		records[i] = e.record
	}
	return records
}

func readEntry(dir string) (entry, bool) {
	textPath := filepath.Join(dir, "original_message.txt")
	info, err := os.Stat(textPath)
	if err != nil {
		// No text artifact means the directory is not a finished history entry.
		return entry{}, false
	}

	raw, err := os.ReadFile(textPath)
	if err != nil {
		log.Printf("Warning: failed to read %s: %v", textPath, err)
		return entry{}, false
	}

	media := []types.MediaDescriptor{}
	files, err := os.ReadDir(dir)
	if err != nil {
		log.Printf("Warning: failed to list history entry %s: %v", dir, err)
		return entry{}, false
	}
	for _, f := range files {
		if f.IsDir() || mediastore.IsArtifactFile(f.Name()) {
			continue
		}
		fi, err := f.Info()
		if err != nil {
			log.Printf("Warning: failed to stat %s in %s: %v", f.Name(), dir, err)
			continue
		}
		media = append(media, types.MediaDescriptor{
			Extension: strings.ToLower(filepath.Ext(f.Name())),
			SizeBytes: fi.Size(),
		})
	}

	return entry{
		mtime: info.ModTime(),
		record: types.MessageRecord{
			Text:   strings.TrimSpace(string(raw)),
			Media:  types.NormalizeMedia(media),
			Source: dir,
		},
	}, true
}
