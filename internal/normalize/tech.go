package normalize

import (
	"sort"
	"strings"
)

// TechList splits comma-joined technology names, trims them, drops empties and "unknown",
// removes case-insensitive duplicates and sorts the result. The returned slice is never nil.
func TechList(values ...string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, value := range values {
		for _, name := range strings.Split(value, ",") {
			name = strings.TrimSpace(name)
			key := strings.ToLower(name)
			if name == "" || key == "unknown" {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, name)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i]) < strings.ToLower(out[j])
	})
	return out
}

// JoinList joins names with ", ", or returns nil for an empty list.
func JoinList(names []string) *string {
	if len(names) == 0 {
		return nil
	}
	joined := strings.Join(names, ", ")
	return &joined
}
