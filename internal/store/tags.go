package store

import "strings"

// DefaultMaxTags is the number of raw tag entries an update keeps.
const DefaultMaxTags = 10

// NormalizeTag reduces a raw tag to its canonical key: trimmed, lowercased and
// stripped of everything outside [a-z0-9]. The result may be empty.
func NormalizeTag(in string) string {
	lowered := strings.ToLower(strings.TrimSpace(in))
	var b strings.Builder
	b.Grow(len(lowered))
	for i := 0; i < len(lowered); i++ {
		c := lowered[i]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// NormalizeTags normalizes every entry, drops the ones that normalize to
// nothing and removes duplicates, keeping first-appearance order.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		n := NormalizeTag(t)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// CapTags keeps at most limit raw entries. A limit <= 0 disables the cap.
func CapTags(tags []string, limit int) []string {
	if limit <= 0 || len(tags) <= limit {
		return tags
	}
	return tags[:limit]
}
