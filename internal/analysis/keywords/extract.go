// Package keywords derives conversation topics from user messages with a stopword filter.
package keywords

import (
	"strings"
	"unicode"
)

// MaxPerMessage caps the number of keywords taken from a single message.
const MaxPerMessage = 5

var stopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {},
	"is": {}, "are": {}, "was": {}, "were": {}, "i": {}, "my": {}, "me": {},
}

// Extract returns up to MaxPerMessage unique keywords in order of first appearance.
func Extract(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, MaxPerMessage)

	for _, field := range fields {
		word := strings.TrimFunc(field, func(r rune) bool {
			return unicode.IsPunct(r) || unicode.IsSymbol(r)
		})
		if len([]rune(word)) <= 3 {
			continue
		}
		if _, stop := stopwords[word]; stop {
			continue
		}
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}
		out = append(out, word)
		if len(out) == MaxPerMessage {
			break
		}
	}
	return out
}

// Merge appends fresh keywords to existing ones. A keyword seen again moves to the end, so the
// most recent topics survive when the list is trimmed to limit. limit <= 0 disables trimming.
func Merge(existing, fresh []string, limit int) []string {
	merged := make([]string, 0, len(existing)+len(fresh))
	incoming := make(map[string]struct{}, len(fresh))
	for _, kw := range fresh {
		incoming[kw] = struct{}{}
	}

	seen := make(map[string]struct{}, len(existing)+len(fresh))
	for _, kw := range existing {
		if _, moved := incoming[kw]; moved {
			continue
		}
		if _, dup := seen[kw]; dup || kw == "" {
			continue
		}
		seen[kw] = struct{}{}
		merged = append(merged, kw)
	}
	for _, kw := range fresh {
		if _, dup := seen[kw]; dup || kw == "" {
			continue
		}
		seen[kw] = struct{}{}
		merged = append(merged, kw)
	}

	if limit > 0 && len(merged) > limit {
		merged = merged[len(merged)-limit:]
	}
	return merged
}
