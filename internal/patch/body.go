package patch

import "strings"

const (
	bodyLineSeparatorConstant = "\n"
	additionMarkerConstant    = "+"
	removalMarkerConstant     = "-"
)

// StripHeader drops the first headerLineCount lines of patchText.
func StripHeader(patchText string, headerLineCount int) string {
	remaining := patchText
	for lineIndex := 0; lineIndex < headerLineCount; lineIndex++ {
		separatorIndex := strings.Index(remaining, bodyLineSeparatorConstant)
		if separatorIndex == -1 {
			return ""
		}
		remaining = remaining[separatorIndex+1:]
	}
	return remaining
}

// HasChanges reports whether any body line adds or removes content.
func HasChanges(body string) bool {
	for _, line := range strings.Split(body, bodyLineSeparatorConstant) {
		if strings.HasPrefix(line, additionMarkerConstant) || strings.HasPrefix(line, removalMarkerConstant) {
			return true
		}
	}
	return false
}
