package main

// FeedPresets maps friendly names to RSS feed URLs
var FeedPresets = map[string]string{
	"cointelegraph": "https://cointelegraph.com/rss",
	"coindesk":      "https://www.coindesk.com/arc/outboundfeeds/rss/",
	"decrypt":       "https://decrypt.co/feed",
	"bitcoinmag":    "https://bitcoinmagazine.com/feed",
}

// ResolveFeedURL resolves a feed identifier to a URL
// If the input is a preset name, returns the corresponding URL
// Otherwise, returns the input as-is (assuming it's a direct URL)
func ResolveFeedURL(feedInput string) string {
	if url, exists := FeedPresets[feedInput]; exists {
		return url
	}
	return feedInput
}
