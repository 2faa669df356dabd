// Package pleadings turns fetched pleading PDFs into structured facts:
// each document is classified as a judgment order or a detainer
// warrant, then the matching extractor writes its fields back onto the
// case.
package pleadings

import (
	"regexp"
	"strings"

	"github.com/red-door-collective/eviction-tracker/internal/model"
)

// judgmentMarker appears on every general sessions judgment order form.
const judgmentMarker = "Other terms of this Order, if any, are as follows"

// Detainer warrant anchors. Any one identifies the standard warrant
// form; several are needed because scans drop or garble lines.
var detainerWarrantAnchors = []*regexp.Regexp{
	regexp.MustCompile(`DETAINER\s+WARRANT`),
	regexp.MustCompile(`(?i)TO ANY LAWFUL OFFICER`),
	regexp.MustCompile(`INCLUDING BUT NOT LIMITED TO ALL PARKING`),
	regexp.MustCompile(`(?i)unlawfully\s+detain`),
	regexp.MustCompile(`(?i)possession\s+of\s+the\s+(?:premises|property)\s+described`),
	regexp.MustCompile(`(?i)non-?payment\s+of\s+rent`),
}

// Classify applies the ordered rule set to extracted document text. The
// judgment form marker wins; otherwise any warrant anchor suffices. Nil
// means unrecognized.
func Classify(text string) *model.PleadingKind {
	if text == "" {
		return nil
	}
	if strings.Contains(text, judgmentMarker) {
		kind := model.PleadingJudgment
		return &kind
	}
	for _, anchor := range detainerWarrantAnchors {
		if anchor.MatchString(text) {
			kind := model.PleadingDetainerWarrant
			return &kind
		}
	}
	return nil
}
