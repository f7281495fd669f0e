package tui

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// VisualWidth returns the display width of text, accounting for multi-byte characters
func VisualWidth(s string) int {
	return runewidth.StringWidth(s)
}

// Truncate shortens s to maxLen display columns, ending in "..." when
// ellipsis is set and there is room for it.
func Truncate(s string, maxLen int, ellipsis bool) string {
	s = strings.TrimSpace(s)
	if maxLen <= 0 {
		return ""
	}
	if VisualWidth(s) <= maxLen {
		return s
	}
	if ellipsis && maxLen > 3 {
		return runewidth.Truncate(s, maxLen, "...")
	}
	return runewidth.Truncate(s, maxLen, "")
}

// PadRight truncates s and fills it to exactly width columns. Used for
// table cells.
func PadRight(s string, width int) string {
	s = Truncate(s, width, true)
	return runewidth.FillRight(s, width)
}

// PadLeft right-aligns s in width columns. Longer text is left as is.
func PadLeft(s string, width int) string {
	return runewidth.FillLeft(s, width)
}

// Wrap breaks text on word boundaries so no line exceeds width columns.
// Words wider than width are split.
func Wrap(text string, width int) string {
	words := strings.Fields(text)
	if width <= 0 || len(words) == 0 {
		return text
	}

	var lines []string
	var line string
	for _, word := range words {
		for VisualWidth(word) > width {
			if line != "" {
				lines = append(lines, line)
				line = ""
			}
			head := runewidth.Truncate(word, width, "")
			if head == "" {
				// a single rune wider than the line
				head = string([]rune(word)[:1])
			}
			lines = append(lines, head)
			word = word[len(head):]
		}
		switch {
		case word == "":
		case line == "":
			line = word
		case VisualWidth(line)+1+VisualWidth(word) <= width:
			line += " " + word
		default:
			lines = append(lines, line)
			line = word
		}
	}
	if line != "" {
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
