package compare

import "testing"

func TestTextMatchExact(t *testing.T) {
	a := "Bitcoin breaks through the resistance level at $70k"
	if !TextMatch(a, a) {
		t.Fatal("identical substantial texts must match")
	}
	if !TextMatch("  "+a+"\n", a) {
		t.Fatal("surrounding whitespace must be ignored")
	}
}

func TestTextMatchShortTextsNeverMatch(t *testing.T) {
	if TextMatch("gm", "gm") {
		t.Fatal("short texts must not match")
	}
	if TextMatch("", "") {
		t.Fatal("empty texts must not match; empty posts are compared by media")
	}
}

func TestTextMatchNearDuplicate(t *testing.T) {
	a := "Ethereum validators withdrew 1.2M ETH this week, on-chain data shows"
	b := "Ethereum validators withdrew 1.2M ETH this week, on-chain data показ"
	if !TextMatch(a, b) {
		t.Fatal("same 30-char prefix with small length difference must match")
	}
}

func TestTextMatchPrefixCaseInsensitive(t *testing.T) {
	a := "BREAKING: exchange outflows hit a six-month high today"
	b := "breaking: exchange outflows hit a six-month high today"
	if !TextMatch(a, b) {
		t.Fatal("prefix comparison must be case-insensitive")
	}
}

func TestTextMatchRejectsDifferentContent(t *testing.T) {
	a := "Bitcoin up 5% after the ETF announcement this morning"
	b := "Completely different news about something else entirely"
	if TextMatch(a, b) {
		t.Fatal("unrelated texts must not match")
	}
}

func TestTextMatchRejectsLargeLengthDrift(t *testing.T) {
	a := "Bitcoin up 5% after the ETF announcement"
	b := "Bitcoin up 5% after the ETF announcement and a long analysis of what this means for the market"
	if TextMatch(a, b) {
		t.Fatal("same prefix with large length difference must not match")
	}
}
