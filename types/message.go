package types

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// MediaRef points at a media attachment of an inbound message. The bridge that
// publishes provider events uploads media to a fetchable location and passes the URL.
type MediaRef struct {
	URL      string `json:"url"`
	Filename string `json:"filename,omitempty"`
}

// RawMessage is one inbound provider message as delivered by a message source
// (Telegram bridge over Kafka, RSS poller, test harness).
type RawMessage struct {
	ID        int64      `json:"id"`
	Channel   string     `json:"channel,omitempty"`
	GroupedID string     `json:"grouped_id,omitempty"`
	Date      time.Time  `json:"date"`
	Text      string     `json:"text"`
	Media     []MediaRef `json:"media,omitempty"`
}

// GroupKey returns the correlation key for this message. Album messages share the
// provider-supplied grouped id; standalone messages get a synthetic key that never
// collides with album keys or with other standalone messages.
func (m *RawMessage) GroupKey(now time.Time) string {
	if m.GroupedID != "" {
		return m.GroupedID
	}
	return fmt.Sprintf("%s_single_%d", now.UTC().Format("20060102_150405"), m.ID)
}

// MediaDescriptor is the structural fingerprint of one media file.
// Extension is lower-cased and includes the leading dot.
type MediaDescriptor struct {
	Extension string `json:"file_extension"`
	SizeBytes int64  `json:"file_size"`
}

// MessageRecord is a normalized view of one historical or candidate message.
type MessageRecord struct {
	Text string `json:"text"`
	// Media is kept sorted by (extension, size) so comparisons are
	// order-independent regardless of download or attachment order.
	Media  []MediaDescriptor `json:"media_info"`
	Source string            `json:"directory,omitempty"`
}

// NormalizeMedia lower-cases extensions and sorts descriptors by (extension, size).
func NormalizeMedia(media []MediaDescriptor) []MediaDescriptor {
	out := make([]MediaDescriptor, len(media))
	for i, m := range media {
		out[i] = MediaDescriptor{Extension: strings.ToLower(m.Extension), SizeBytes: m.SizeBytes}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Extension != out[j].Extension {
			return out[i].Extension < out[j].Extension
		}
		return out[i].SizeBytes < out[j].SizeBytes
	})
	return out
}

// FormatMedia summarizes media descriptors for prompts and logs, e.g.
// "(Extension: .jpg, Size: 12345 bytes), (Extension: .mp4, Size: 456789 bytes)".
func FormatMedia(media []MediaDescriptor) string {
	if len(media) == 0 {
		return "No media files."
	}
	parts := make([]string, len(media))
	for i, m := range media {
		parts[i] = fmt.Sprintf("(Extension: %s, Size: %d bytes)", m.Extension, m.SizeBytes)
	}
	return strings.Join(parts, ", ")
}
