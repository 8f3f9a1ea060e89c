// Package compare implements the structural duplicate checks: fast, deterministic
// comparisons of media fingerprints and message text. No I/O, no AI.
package compare

import (
	"echopost/types"
)

// MediaEqual reports whether two media descriptors match within the given size
// tolerance. Extensions must match exactly; sizes match when the relative
// difference |s1-s2|/max(s1,s2) does not exceed tolerance. Two zero-size files
// of the same extension are equal.
func MediaEqual(a, b types.MediaDescriptor, tolerance float64) bool {
	if a.Extension != b.Extension {
		return false
	}
	if a.SizeBytes == 0 && b.SizeBytes == 0 {
		return true
	}
	max := a.SizeBytes
	if b.SizeBytes > max {
		max = b.SizeBytes
	}
	diff := a.SizeBytes - b.SizeBytes
	if diff < 0 {
		diff = -diff
	}
	return float64(diff)/float64(max) <= tolerance
}

// MediaListEqual compares two media lists pairwise after sorting copies of both,
// so the result does not depend on download or attachment order. Lists of
// different lengths never match.
func MediaListEqual(a, b []types.MediaDescriptor, tolerance float64) bool {
	if len(a) != len(b) {
		return false
	}
	sortedA := types.NormalizeMedia(a)
	sortedB := types.NormalizeMedia(b)
	for i := range sortedA {
		if !MediaEqual(sortedA[i], sortedB[i], tolerance) {
			return false
		}
	}
	return true
}
