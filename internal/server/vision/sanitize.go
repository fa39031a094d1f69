package vision

import (
	"regexp"
	"strings"
)

var (
	underscoreRuns = regexp.MustCompile(`_{2,}`)
	hashRuns       = regexp.MustCompile(`#{2,}`)
)

// Sanitize strips markdown markers the model emits despite being told not to.
// Bold markers go, lone asterisks become bullets, and no '#' survives.
func Sanitize(s string) string {
	s = strings.ReplaceAll(s, "**", "")
	s = strings.ReplaceAll(s, "*", "•")
	s = underscoreRuns.ReplaceAllString(s, "")
	s = hashRuns.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "#", "")
	return strings.TrimSpace(s)
}
