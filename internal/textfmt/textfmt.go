// Package textfmt is the offline text cleanup transform: it tidies a
// pasted selection without any network call.
package textfmt

import "strings"

// cjkPunctuation lists full-width punctuation that should not be followed
// by a space.
var cjkPunctuation = []string{"，", "。", "！", "？", "：", "；"}

// Format cleans up text: trims each line, drops blank lines, collapses
// runs of spaces, and removes the space after full-width CJK punctuation.
func Format(text string) string {
	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		kept = append(kept, line)
	}
	result := strings.Join(kept, "\n")

	for strings.Contains(result, "  ") {
		result = strings.ReplaceAll(result, "  ", " ")
	}

	for _, p := range cjkPunctuation {
		result = strings.ReplaceAll(result, p+" ", p)
	}
	return result
}
