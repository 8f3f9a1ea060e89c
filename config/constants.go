package config

import "time"

// Group Processing Constants
const (
	// GroupProcessingTimeout is the hard wall-clock limit for one group
	GroupProcessingTimeout = 300 * time.Second

	// MaxConcurrentGroups limits the number of groups processed simultaneously
	MaxConcurrentGroups = 5

	// WatchdogInterval is how often the watchdog scans for stuck groups
	WatchdogInterval = 60 * time.Second

	// GroupSettleDelay is how long an album group waits for the rest of its
	// burst before processing starts
	GroupSettleDelay = 2 * time.Second
)

// Duplicate Check Constants
const (
	// DefaultHistoryLimit is the number of recent posted messages to compare against
	DefaultHistoryLimit = 25

	// DefaultMediaTolerance is the allowed relative size difference for a media match
	DefaultMediaTolerance = 0.01

	// TextMatchMinLength is the minimum text length for near-match comparison
	TextMatchMinLength = 20

	// TextMatchPrefixLength is how many leading characters must match case-insensitively
	TextMatchPrefixLength = 30

	// TextMatchLengthSlack is the maximum length difference for a near match
	TextMatchLengthSlack = 10
)

// Oracle Constants
const (
	// OracleTimeout bounds the semantic duplicate call
	OracleTimeout = 60 * time.Second

	// OracleMaxTokens keeps the yes/no verdict short
	OracleMaxTokens = 50

	// OracleHistoryTextLimit truncates each history entry in the prompt
	OracleHistoryTextLimit = 100
)

// Pipeline Constants
const (
	// FilterTimeout bounds the promotional-content filter call
	FilterTimeout = 30 * time.Second

	// FilterMaxTokens allows a short verdict plus explanation
	FilterMaxTokens = 150

	// GenerationTimeout bounds the post text generation call
	GenerationTimeout = 60 * time.Second

	// GenerationMaxTokens leaves room for a full post
	GenerationMaxTokens = 900

	// URLFetchTimeout bounds fetching a linked page for content extraction
	URLFetchTimeout = 30 * time.Second

	// LinkTextLimit truncates extracted page text in the aggregated input
	LinkTextLimit = 4000
)

// Group Directory Artifacts
const (
	// OriginalMessageFile holds the group's representative text
	OriginalMessageFile = "original_message.txt"

	// PostTextFile holds the generated repost text
	PostTextFile = "post_text.txt"

	// FullInputFile holds the aggregated input for the generation step
	FullInputFile = "full_input.txt"

	// PostingStatusFile records the outcome of the posting step
	PostingStatusFile = "posting_status.json"

	// DecisionFileSuffix names per-step audit artifacts, e.g. duplicate_checker_details.json
	DecisionFileSuffix = "_details.json"

	// DuplicateDecisionFile is the per-group duplicate verdict audit record
	DuplicateDecisionFile = "duplicate_check_decision.json"
)
