package pleadings

import (
	"regexp"
	"strings"

	"github.com/red-door-collective/eviction-tracker/internal/postal"
)

// The warrant form states the property address inside a fixed clause;
// two variants of the closing boilerplate circulate.
var warrantAddressRegexes = []*regexp.Regexp{
	regexp.MustCompile(`described as follows:\s*(.+?)\s*INCLUDING BUT NOT LIMITED TO ALL PARKING`),
	regexp.MustCompile(`described as follows:\s*(.+?)\s*AND WHEREAS`),
}

// acceptAddress runs the postal tagger and keeps only fully specified
// street addresses.
func acceptAddress(candidate string) bool {
	tokens, err := postal.Tag(candidate)
	if err != nil {
		return false
	}
	return postal.IsComplete(tokens)
}

// ExtractWarrantAddress finds the property address in classified
// detainer warrant text. The anchored clauses are tried against the
// collapsed text first; failing those, each original line is offered to
// the tagger in order.
func ExtractWarrantAddress(rawText string) (string, bool) {
	text := collapse(rawText)
	for _, re := range warrantAddressRegexes {
		if m := re.FindStringSubmatch(text); m != nil && acceptAddress(m[1]) {
			return m[1], true
		}
	}
	for _, line := range strings.Split(rawText, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && acceptAddress(line) {
			return line, true
		}
	}
	return "", false
}
