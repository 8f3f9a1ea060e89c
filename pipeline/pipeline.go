// Package pipeline runs a finalized message group through the posting flow:
// duplicate check, content aggregation, promotional filter, post generation
// and the posting backend, persisting every intermediate artifact into the
// group directory.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"echopost/config"
	"echopost/dedup"
	"echopost/grouping"
	"echopost/mediastore"
	"echopost/oracle"
	"echopost/types"
)

// Poster delivers the final post to a destination channel.
type Poster interface {
	Post(ctx context.Context, text string, mediaPaths []string) error
}

// LogPoster is the default backend: it only logs what would have been posted.
type LogPoster struct{}

func (LogPoster) Post(_ context.Context, text string, mediaPaths []string) error {
	log.Printf("📤 [dry-run] Would post %d media file(s) with text: %s", len(mediaPaths), truncateText(text, 200))
	return nil
}

// DuplicateChecker is the slice of dedup.Checker the pipeline needs.
type DuplicateChecker interface {
	Check(ctx context.Context, text string, media []types.MediaDescriptor, historyDir, auditDir string) dedup.Decision
	MarkPosted(text string, media []types.MediaDescriptor)
}

// Archiver mirrors a posted group's artifacts to long-term storage.
type Archiver interface {
	ArchiveGroup(ctx context.Context, dir string) error
}

// PostingStatus records the outcome of the posting step.
type PostingStatus struct {
	Posted    bool   `json:"posted"`
	Error     string `json:"error,omitempty"`
	Timestamp string `json:"timestamp"`
}

// Config wires the pipeline's collaborators. Checker, Poster and HistoryDir
// are required; the rest degrade gracefully when absent.
type Config struct {
	Checker    DuplicateChecker
	Provider   oracle.ChatProvider
	Aggregator *Aggregator
	Poster     Poster
	HistoryDir string
	Archive    Archiver
}

// Pipeline is the grouping.Handler for finalized groups.
type Pipeline struct {
	checker    DuplicateChecker
	provider   oracle.ChatProvider
	aggregator *Aggregator
	poster     Poster
	historyDir string
	archive    Archiver
}

// New creates a pipeline. A nil Aggregator falls back to a bare one and a nil
// Poster to the dry-run logger.
func New(cfg Config) *Pipeline {
	if cfg.Aggregator == nil {
		cfg.Aggregator = &Aggregator{}
	}
	if cfg.Poster == nil {
		cfg.Poster = LogPoster{}
	}
	return &Pipeline{
		checker:    cfg.Checker,
		provider:   cfg.Provider,
		aggregator: cfg.Aggregator,
		poster:     cfg.Poster,
		historyDir: cfg.HistoryDir,
		archive:    cfg.Archive,
	}
}

// Run processes one group end to end. A "skip" outcome (duplicate, filtered)
// is not an error; the group directory keeps the artifacts explaining it.
func (p *Pipeline) Run(ctx context.Context, work *grouping.GroupWork) error {
	media := mediastore.DescribeFiles(work.MediaPaths)

	decision := p.checker.Check(ctx, work.Text, media, p.historyDir, work.Dir)
	if decision.IsDuplicate {
		log.Printf("Group %s is a duplicate (%s), skipping", work.Key, decision.Method)
		return nil
	}

	aggregated, err := p.aggregator.BuildFullInput(ctx, work.Dir, work.Text, work.MediaPaths)
	if err != nil {
		log.Printf("Warning: aggregation failed for group %s, using original text: %v", work.Key, err)
		aggregated = work.Text
	}

	if Filter(ctx, p.provider, aggregated, work.Dir) {
		log.Printf("Group %s filtered out, skipping", work.Key)
		return nil
	}

	postText, err := Generate(ctx, p.provider, aggregated, work.Dir)
	if err != nil {
		return fmt.Errorf("failed to generate post for group %s: %w", work.Key, err)
	}

	postErr := p.poster.Post(ctx, postText, work.MediaPaths)
	p.savePostingStatus(work.Dir, postErr)
	if postErr != nil {
		return fmt.Errorf("failed to post group %s: %w", work.Key, postErr)
	}

	log.Printf("✅ Posted group %s", work.Key)
	p.checker.MarkPosted(work.Text, media)

	if p.archive != nil {
		if err := p.archive.ArchiveGroup(ctx, work.Dir); err != nil {
			log.Printf("Warning: failed to archive group %s: %v", work.Key, err)
		}
	}
	return nil
}

func (p *Pipeline) savePostingStatus(dir string, postErr error) {
	status := PostingStatus{
		Posted:    postErr == nil,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if postErr != nil {
		status.Error = postErr.Error()
	}

	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		log.Printf("Warning: failed to encode posting status: %v", err)
		return
	}
	path := filepath.Join(dir, config.PostingStatusFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.Printf("Warning: failed to save posting status: %v", err)
	}
}
