package source

import (
	"context"
	"fmt"
	"hash/fnv"
	"log"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"

	"echopost/types"
)

// RSSConfig configures one polled feed.
type RSSConfig struct {
	FeedURL      string
	PollInterval time.Duration
	MaxPerPoll   int
}

// RSSSource polls an RSS/Atom feed and synthesizes standalone messages from
// new items. Items are tracked by GUID within the process lifetime; the
// duplicate checker downstream covers restarts.
type RSSSource struct {
	cfg    RSSConfig
	sink   MessageSink
	parser *gofeed.Parser

	mu   sync.Mutex
	seen map[string]struct{}
}

// NewRSSSource creates a poller; PollInterval defaults to 10 minutes and
// MaxPerPoll to 10.
func NewRSSSource(cfg RSSConfig, sink MessageSink) *RSSSource {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 10 * time.Minute
	}
	if cfg.MaxPerPoll <= 0 {
		cfg.MaxPerPoll = 10
	}
	return &RSSSource{
		cfg:    cfg,
		sink:   sink,
		parser: gofeed.NewParser(),
		seen:   make(map[string]struct{}),
	}
}

// Start launches the polling loop. The first poll only primes the seen set so
// a restart does not replay the whole feed.
func (s *RSSSource) Start(ctx context.Context) {
	go func() {
		s.poll(ctx, true)
		ticker := time.NewTicker(s.cfg.PollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.poll(ctx, false)
			}
		}
	}()
	log.Printf("✅ RSS source started (feed: %s, every %s)", s.cfg.FeedURL, s.cfg.PollInterval)
}

func (s *RSSSource) poll(ctx context.Context, primeOnly bool) {
	feed, err := s.parser.ParseURLWithContext(s.cfg.FeedURL, ctx)
	if err != nil {
		log.Printf("Warning: failed to fetch feed %s: %v", s.cfg.FeedURL, err)
		return
	}

	count := len(feed.Items)
	if count > s.cfg.MaxPerPoll {
		count = s.cfg.MaxPerPoll
	}
	for i := 0; i < count; i++ {
		item := feed.Items[i]
		id := item.GUID
		if id == "" {
			id = item.Link
		}
		if id == "" || !s.markSeen(id) {
			continue
		}
		if primeOnly {
			continue
		}
		s.sink(itemToMessage(feed, item, id))
	}
}

func (s *RSSSource) markSeen(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[id]; ok {
		return false
	}
	s.seen[id] = struct{}{}
	return true
}

func itemToMessage(feed *gofeed.Feed, item *gofeed.Item, id string) *types.RawMessage {
	date := time.Now()
	if item.PublishedParsed != nil {
		date = *item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		date = *item.UpdatedParsed
	}

	var parts []string
	if item.Title != "" {
		parts = append(parts, item.Title)
	}
	if item.Description != "" {
		parts = append(parts, item.Description)
	}
	if item.Link != "" {
		parts = append(parts, item.Link)
	}

	msg := &types.RawMessage{
		ID:      itemID(id),
		Channel: feed.Title,
		Date:    date,
		Text:    strings.Join(parts, "\n\n"),
	}
	if item.Image != nil && item.Image.URL != "" {
		msg.Media = append(msg.Media, types.MediaRef{
			URL:      item.Image.URL,
			Filename: path.Base(item.Image.URL),
		})
	}
	return msg
}

// itemID derives a stable numeric message id from the feed item's GUID.
func itemID(guid string) int64 {
	h := fnv.New64a()
	fmt.Fprint(h, guid)
	id := int64(h.Sum64() >> 1)
	if id == 0 {
		id = 1
	}
	return id
}
