// Package dedup composes the history reader, structural comparator and the
// semantic oracle into the layered duplicate decision: cheap deterministic
// checks short-circuit before the expensive AI call.
package dedup

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"echopost/compare"
	"echopost/config"
	"echopost/history"
	"echopost/types"
)

// Comparison methods recorded in the per-group decision artifact.
const (
	MethodBloom      = "bloom"
	MethodMedia      = "media"
	MethodText       = "text"
	MethodEmptyMedia = "empty_media"
	MethodSemantic   = "semantic"
	MethodNone       = "none"
)

// SemanticChecker is the oracle contract consumed by the checker.
type SemanticChecker interface {
	CheckDuplicate(ctx context.Context, candidate types.MessageRecord, history []types.MessageRecord, auditDir string) bool
}

// Decision is the audit record of one duplicate check, written to the group
// directory regardless of verdict.
type Decision struct {
	Timestamp       string `json:"timestamp"`
	IsDuplicate     bool   `json:"is_duplicate"`
	Method          string `json:"method"`
	MatchedLocation string `json:"matched_location,omitempty"`
	MessagePreview  string `json:"current_message_preview"`
	MediaCount      int    `json:"media_count"`
}

// CheckerConfig holds per-workflow tuning. Zero values fall back to defaults,
// so workflow variations stay configuration instead of separate code paths.
type CheckerConfig struct {
	HistoryLimit   int
	MediaTolerance float64
	Oracle         SemanticChecker
	Bloom          *RedisBloom
}

// Checker performs layered duplicate checks against a history directory.
type Checker struct {
	historyLimit int
	tolerance    float64
	oracle       SemanticChecker
	bloom        *RedisBloom
}

// NewChecker creates a checker; Oracle and Bloom are optional.
func NewChecker(cfg CheckerConfig) *Checker {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = config.DefaultHistoryLimit
	}
	if cfg.MediaTolerance <= 0 {
		cfg.MediaTolerance = config.DefaultMediaTolerance
	}
	return &Checker{
		historyLimit: cfg.HistoryLimit,
		tolerance:    cfg.MediaTolerance,
		oracle:       cfg.Oracle,
		bloom:        cfg.Bloom,
	}
}

// IsDuplicate runs the layered check and reports only the verdict.
func (c *Checker) IsDuplicate(ctx context.Context, text string, media []types.MediaDescriptor, historyDir, auditDir string) bool {
	return c.Check(ctx, text, media, historyDir, auditDir).IsDuplicate
}

// Check runs the layered duplicate decision:
//
//  1. bloom fast path (exact fingerprint, when configured)
//  2. media fingerprint match against bounded history, recency order
//  3. text exact/near match
//  4. empty candidate text: media comparison against other empty-text entries
//  5. semantic oracle over the same history window
//
// The decision is persisted to auditDir on every call.
func (c *Checker) Check(ctx context.Context, text string, media []types.MediaDescriptor, historyDir, auditDir string) Decision {
	candidate := types.MessageRecord{
		Text:  text,
		Media: types.NormalizeMedia(media),
	}
	decision := c.decide(ctx, candidate, historyDir, auditDir)

	decision.Timestamp = time.Now().UTC().Format(time.RFC3339)
	decision.MessagePreview = preview(text)
	decision.MediaCount = len(media)
	c.saveDecision(auditDir, decision)

	if decision.IsDuplicate {
		log.Printf("DUPLICATE DETECTED (%s): matches %s", decision.Method, decision.MatchedLocation)
	} else {
		log.Printf("No duplicates found via %s - message appears to be unique", decision.Method)
	}
	return decision
}

func (c *Checker) decide(ctx context.Context, candidate types.MessageRecord, historyDir, auditDir string) Decision {
	if c.bloom != nil {
		hit, err := c.bloom.Exists(Fingerprint(candidate.Text, candidate.Media))
		if err != nil {
			log.Printf("Warning: bloom check failed: %v", err)
		} else if hit {
			return Decision{IsDuplicate: true, Method: MethodBloom}
		}
	}

	recent := c.fetchHistory(historyDir, auditDir)
	if len(recent) == 0 {
		log.Printf("No posted entries to compare against")
		return Decision{IsDuplicate: false, Method: MethodNone}
	}

	// Media fingerprint match is conclusive on its own.
	for _, entry := range recent {
		if len(candidate.Media) > 0 && compare.MediaListEqual(candidate.Media, entry.Media, c.tolerance) {
			return Decision{IsDuplicate: true, Method: MethodMedia, MatchedLocation: entry.Source}
		}
	}

	for _, entry := range recent {
		if compare.TextMatch(candidate.Text, entry.Text) {
			return Decision{IsDuplicate: true, Method: MethodText, MatchedLocation: entry.Source}
		}
	}

	// Media-only reposts: both texts empty, compare media with the same
	// tolerance. Kept separate from the general media pass so partial
	// downloads with drifted list lengths still get an explicit look.
	if strings.TrimSpace(candidate.Text) == "" {
		for _, entry := range recent {
			if strings.TrimSpace(entry.Text) != "" {
				continue
			}
			if compare.MediaListEqual(candidate.Media, entry.Media, c.tolerance) {
				return Decision{IsDuplicate: true, Method: MethodEmptyMedia, MatchedLocation: entry.Source}
			}
		}
	}

	if c.oracle != nil {
		if c.oracle.CheckDuplicate(ctx, candidate, recent, auditDir) {
			return Decision{IsDuplicate: true, Method: MethodSemantic}
		}
		return Decision{IsDuplicate: false, Method: MethodSemantic}
	}
	return Decision{IsDuplicate: false, Method: MethodNone}
}

// fetchHistory returns the comparison window. The candidate's own group
// directory lives under the history root and already holds its text and media
// artifacts by the time the check runs, so it must never count as history:
// without this filter every group would match itself. One extra entry is
// fetched so excluding the candidate keeps the window at full size.
func (c *Checker) fetchHistory(historyDir, auditDir string) []types.MessageRecord {
	recent := history.Fetch(historyDir, c.historyLimit+1)
	if auditDir == "" {
		if len(recent) > c.historyLimit {
			recent = recent[:c.historyLimit]
		}
		return recent
	}

	self := filepath.Clean(auditDir)
	filtered := recent[:0]
	for _, entry := range recent {
		if filepath.Clean(entry.Source) == self {
			continue
		}
		filtered = append(filtered, entry)
	}
	if len(filtered) > c.historyLimit {
		filtered = filtered[:c.historyLimit]
	}
	return filtered
}

// MarkPosted records a successfully posted message in the bloom fast path.
func (c *Checker) MarkPosted(text string, media []types.MediaDescriptor) {
	if c.bloom == nil {
		return
	}
	if err := c.bloom.Add(Fingerprint(text, media)); err != nil {
		log.Printf("Warning: failed to add posted message to bloom filter: %v", err)
	}
}

func (c *Checker) saveDecision(auditDir string, decision Decision) {
	if auditDir == "" {
		return
	}
	data, err := json.MarshalIndent(decision, "", "  ")
	if err != nil {
		log.Printf("Warning: failed to encode duplicate decision: %v", err)
		return
	}
	path := filepath.Join(auditDir, config.DuplicateDecisionFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.Printf("Warning: failed to save duplicate decision: %v", err)
	}
}

func preview(text string) string {
	r := []rune(text)
	if len(r) > 100 {
		return string(r[:100]) + "..."
	}
	return text
}
