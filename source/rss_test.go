package source

import (
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
)

func TestItemToMessageBuildsStandaloneMessage(t *testing.T) {
	published := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	feed := &gofeed.Feed{Title: "Market Wire"}
	item := &gofeed.Item{
		Title:           "ETF inflows accelerate",
		Description:     "Spot funds recorded their largest daily inflow this quarter.",
		Link:            "https://example.com/etf-inflows",
		PublishedParsed: &published,
		Image:           &gofeed.Image{URL: "https://example.com/chart.png"},
	}

	msg := itemToMessage(feed, item, "guid-1")
	if msg.ID == 0 {
		t.Fatal("message id must be derived from the guid")
	}
	if msg.GroupedID != "" {
		t.Fatal("feed items are standalone messages, not albums")
	}
	if msg.Channel != "Market Wire" || !msg.Date.Equal(published) {
		t.Fatalf("unexpected message metadata: %+v", msg)
	}
	if len(msg.Media) != 1 || msg.Media[0].Filename != "chart.png" {
		t.Fatalf("unexpected media: %+v", msg.Media)
	}
}

func TestItemIDIsStable(t *testing.T) {
	if itemID("guid-1") != itemID("guid-1") {
		t.Fatal("same guid must map to the same id")
	}
	if itemID("guid-1") == itemID("guid-2") {
		t.Fatal("different guids must map to different ids")
	}
	if itemID("guid-1") <= 0 {
		t.Fatal("ids must be positive")
	}
}

func TestMarkSeenDeduplicatesItems(t *testing.T) {
	s := NewRSSSource(RSSConfig{FeedURL: "https://example.com/feed"}, nil)
	if !s.markSeen("guid-1") {
		t.Fatal("first sighting must be new")
	}
	if s.markSeen("guid-1") {
		t.Fatal("second sighting must be deduplicated")
	}
	if !s.markSeen("guid-2") {
		t.Fatal("a different guid must be new")
	}
}
