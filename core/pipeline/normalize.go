package pipeline

import (
	"strings"

	"golang.org/x/text/width"
)

var ideographicSpace = strings.NewReplacer("　", " ")

// NormalizeQuestion maps full-width ASCII such as ？！（） and the
// ideographic space to their ASCII form, half-width katakana to full
// width, collapses whitespace and trims the result.
func NormalizeQuestion(question string) string {
	folded := width.Fold.String(question)
	folded = ideographicSpace.Replace(folded)
	return strings.Join(strings.Fields(folded), " ")
}
