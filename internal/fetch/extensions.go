package fetch

import "strings"

const extensionSeparatorConstant = ","

// ExtensionFilter accepts paths ending with any of its entries. An empty filter accepts every path.
type ExtensionFilter []string

// ParseExtensions splits a comma-separated list, trimming entries and dropping empty ones.
func ParseExtensions(commaSeparated string) []string {
	extensions := make([]string, 0)
	for _, candidate := range strings.Split(commaSeparated, extensionSeparatorConstant) {
		trimmedCandidate := strings.TrimSpace(candidate)
		if len(trimmedCandidate) == 0 {
			continue
		}
		extensions = append(extensions, trimmedCandidate)
	}
	return extensions
}

// Matches reports whether path ends with one of the filter entries. Matching is case-sensitive.
func (filter ExtensionFilter) Matches(path string) bool {
	if len(filter) == 0 {
		return true
	}
	for _, extension := range filter {
		if strings.HasSuffix(path, extension) {
			return true
		}
	}
	return false
}

// Select returns the accepted paths in their original order.
func (filter ExtensionFilter) Select(paths []string) []string {
	selected := make([]string, 0, len(paths))
	for _, path := range paths {
		if filter.Matches(path) {
			selected = append(selected, path)
		}
	}
	return selected
}
