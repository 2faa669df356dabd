package model

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var occupantsPattern = regexp.MustCompile(`(?i)\s*(?:AND\s+|OR\s+)?ALL\s+OTHER\s+OCCUPANTS|\s*OR\s+ALL\s+OCCUPANTS`)

// StripOccupants removes the boilerplate "OR ALL OCCUPANTS" suffix the
// court appends to the first named defendant.
func StripOccupants(name string) string {
	return strings.TrimSpace(occupantsPattern.ReplaceAllString(name, ""))
}

var nameSuffixes = map[string]bool{
	"JR": true, "SR": true, "II": true, "III": true, "IV": true,
	"JR.": true, "SR.": true,
}

// ParsedName is a human name split into its conventional parts.
type ParsedName struct {
	First  string
	Middle string
	Last   string
	Suffix string
}

// ParseName splits a defendant name into first, middle, last, and
// suffix. Comma form ("LAST, FIRST M") is recognized; otherwise the
// last token is the surname and anything between first and last is the
// middle name.
func ParseName(raw string) ParsedName {
	name := StripOccupants(raw)
	name = strings.TrimSpace(name)
	if name == "" {
		return ParsedName{}
	}

	if i := strings.Index(name, ","); i >= 0 {
		last := strings.TrimSpace(name[:i])
		rest := strings.Fields(name[i+1:])
		p := ParsedName{Last: last}
		if len(rest) > 0 {
			p.First = rest[0]
		}
		if len(rest) > 1 {
			p.Middle = strings.Join(rest[1:], " ")
		}
		return p
	}

	tokens := strings.Fields(name)
	p := ParsedName{}
	if len(tokens) > 1 && nameSuffixes[strings.ToUpper(tokens[len(tokens)-1])] {
		p.Suffix = tokens[len(tokens)-1]
		tokens = tokens[:len(tokens)-1]
	}
	switch len(tokens) {
	case 0:
	case 1:
		p.Last = tokens[0]
	case 2:
		p.First, p.Last = tokens[0], tokens[1]
	default:
		p.First = tokens[0]
		p.Last = tokens[len(tokens)-1]
		p.Middle = strings.Join(tokens[1:len(tokens)-1], " ")
	}
	return p
}

// NormalizeAttorney maps the portal's pro se marker onto the canonical
// attorney name.
func NormalizeAttorney(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == ", PRS" || trimmed == "PRS" {
		return RepresentingSelf
	}
	return strings.TrimSuffix(trimmed, ",")
}

var upperCaser = cases.Upper(language.AmericanEnglish)

// CanonicalParty folds a plaintiff or attorney name to the uppercase,
// single-spaced form CaseLink reports, so docket rows and search rows
// resolve to the same party record.
func CanonicalParty(name string) string {
	return upperCaser.String(strings.Join(strings.Fields(name), " "))
}
