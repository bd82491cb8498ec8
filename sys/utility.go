package sys

import (
	"fmt"
	"strings"
	"time"
)

// MessageLimit is Discord's cap on message content, counted in runes.
const MessageLimit = 2000

const truncatedMarker = " (...)"

// --- String Utils ---

func Truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

func TruncateCenter(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	k := (maxLen - 3) / 2
	return string(r[:k]) + "..." + string(r[len(r)-k:])
}

// TruncateWithPreserve truncates text while preserving a prefix and suffix.
func TruncateWithPreserve(text string, maxLen int, prefix, suffix string) string {
	rp, rs := []rune(prefix), []rune(suffix)
	fixedLen := len(rp) + len(rs)
	if fixedLen >= maxLen-10 {
		return TruncateCenter(prefix+text+suffix, maxLen)
	}
	return prefix + TruncateCenter(text, maxLen-fixedLen) + suffix
}

// CapMessage cuts s to 1994 runes plus " (...)" once it passes MessageLimit.
func CapMessage(s string) string {
	r := []rune(s)
	if len(r) <= MessageLimit {
		return s
	}
	keep := MessageLimit - len([]rune(truncatedMarker))
	return string(r[:keep]) + truncatedMarker
}

func ContainsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// --- Time Utils ---

// FormatTime renders a track length as H:MM:SS or MM:SS. Zero or negative is a live stream.
func FormatTime(d time.Duration) string {
	if d <= 0 {
		return "LIVE"
	}
	total := int64(d / time.Second)
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
