package aggregate

import (
	"slices"
	"strings"
)

// Compare orders records by LastModified, then by Key. It is a total order
// over records with distinct keys.
func Compare(a, b ObjectRecord) int {
	if c := a.LastModified.Compare(b.LastModified); c != 0 {
		return c
	}
	return strings.Compare(a.Key, b.Key)
}

// Order sorts a copy of records ascending by (LastModified, Key) and returns
// their contents. The input slice is not modified.
func Order(records []ObjectRecord) []string {
	sorted := slices.Clone(records)
	slices.SortFunc(sorted, Compare)

	contents := make([]string, len(sorted))
	for i, r := range sorted {
		contents[i] = r.Content
	}
	return contents
}
