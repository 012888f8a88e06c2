package answer

import (
	"regexp"
	"strings"
)

const relatedHeading = "## 関連する質問候補"

var numberedLine = regexp.MustCompile(`^\d+[.．、)]\s*`)

// ParseAnswer splits the related question section off a synthesized answer.
// It returns the answer without that section and the numbered questions
// listed in it. Text without the section is returned unchanged.
func ParseAnswer(text string) (string, []string) {
	i := strings.Index(text, relatedHeading)
	if i < 0 {
		return strings.TrimSpace(text), nil
	}

	main := strings.TrimSpace(text[:i])
	section := text[i+len(relatedHeading):]
	if next := strings.Index(section, "\n##"); next >= 0 {
		section = section[:next]
	}

	var related []string
	for _, line := range strings.Split(section, "\n") {
		line = strings.TrimSpace(line)
		if !numberedLine.MatchString(line) {
			continue
		}
		q := strings.TrimSpace(numberedLine.ReplaceAllString(line, ""))
		if q != "" {
			related = append(related, q)
		}
	}
	return main, related
}
