package main

import (
	"os"
	"strings"

	"golang.org/x/term"
)

const defaultWidth = 80

// termWidth is the width of stdout, capped for readability
func termWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return defaultWidth
	}
	return min(w, 100)
}

// wrap breaks text on spaces so no line exceeds width, prefixing each
// continuation line with indent. Words longer than width stay whole.
func wrap(text string, width int, indent string) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}

	var sb strings.Builder
	lineLen := 0
	for i, w := range words {
		n := len([]rune(w))
		if i > 0 {
			if lineLen+1+n > width {
				sb.WriteString("\n")
				sb.WriteString(indent)
				lineLen = len(indent)
			} else {
				sb.WriteString(" ")
				lineLen++
			}
		}
		sb.WriteString(w)
		lineLen += n
	}
	return sb.String()
}
