package topic

import "strings"

// DefaultTitleLength is the number of characters kept when deriving a title.
const DefaultTitleLength = 70

// UntitledTitle is used when content has no text to derive a title from.
const UntitledTitle = "Untitled Topic"

// DeriveTitle builds a display title from the first non-blank line of content.
// Lines longer than maxLen characters are cut and suffixed with "...".
func DeriveTitle(content string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultTitleLength
	}

	line := ""
	for _, l := range strings.Split(content, "\n") {
		if strings.TrimSpace(l) != "" {
			line = strings.TrimRight(l, "\r")
			break
		}
	}
	if line == "" {
		return UntitledTitle
	}

	runes := []rune(line)
	if len(runes) > maxLen {
		return string(runes[:maxLen]) + "..."
	}
	return line
}
