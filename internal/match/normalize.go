// package match scores free-text track descriptions against catalog
// candidates. Strings are normalized before comparison so punctuation,
// casing and Unicode presentation differences do not depress scores.
package match

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// apostrophes maps curly and modifier apostrophe variants onto the plain
// ASCII one so "don’t" and "don't" normalize identically.
var apostrophes = strings.NewReplacer(
	"’", "'",
	"‘", "'",
	"`", "'",
	"ʼ", "'",
)

var (
	separatorRunRe = regexp.MustCompile(`[/\-–—&:,;+]+`)
	strayPunctRe   = regexp.MustCompile(`[^\p{L}\p{N}_\s']+`)
	whitespaceRe   = regexp.MustCompile(`\s+`)
)

// Normalize canonicalizes a string for scoring: Unicode NFKC, apostrophe
// unification, case folding, separator punctuation to spaces, everything
// else non-word stripped, whitespace collapsed.
func Normalize(s string) string {
	s = norm.NFKC.String(s)
	s = apostrophes.Replace(s)
	s = cases.Fold().String(s)
	s = separatorRunRe.ReplaceAllString(s, " ")
	s = strayPunctRe.ReplaceAllString(s, " ")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
