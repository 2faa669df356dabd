// Package postal tags the tokens of a US street address with their
// postal roles. Extracted warrant addresses are accepted only when the
// tagger finds a house number, street, city, state, and zip.
package postal

import (
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
)

// Label names the postal role of a single address token.
type Label string

const (
	AddressNumber             Label = "AddressNumber"
	StreetNamePreDirectional  Label = "StreetNamePreDirectional"
	StreetName                Label = "StreetName"
	StreetNamePostType        Label = "StreetNamePostType"
	StreetNamePostDirectional Label = "StreetNamePostDirectional"
	OccupancyType             Label = "OccupancyType"
	OccupancyIdentifier       Label = "OccupancyIdentifier"
	PlaceName                 Label = "PlaceName"
	StateName                 Label = "StateName"
	ZipCode                   Label = "ZipCode"
)

// TaggedToken pairs one address token with its role.
type TaggedToken struct {
	Text  string
	Label Label
}

// abbrToState maps lowercase state abbreviations to lowercase full names.
var abbrToState = map[string]string{
	"al": "alabama", "ak": "alaska", "az": "arizona", "ar": "arkansas",
	"ca": "california", "co": "colorado", "ct": "connecticut", "de": "delaware",
	"fl": "florida", "ga": "georgia", "hi": "hawaii", "id": "idaho",
	"il": "illinois", "in": "indiana", "ia": "iowa", "ks": "kansas",
	"ky": "kentucky", "la": "louisiana", "me": "maine", "md": "maryland",
	"ma": "massachusetts", "mi": "michigan", "mn": "minnesota", "ms": "mississippi",
	"mo": "missouri", "mt": "montana", "ne": "nebraska", "nv": "nevada",
	"nh": "new hampshire", "nj": "new jersey", "nm": "new mexico", "ny": "new york",
	"nc": "north carolina", "nd": "north dakota", "oh": "ohio", "ok": "oklahoma",
	"or": "oregon", "pa": "pennsylvania", "ri": "rhode island", "sc": "south carolina",
	"sd": "south dakota", "tn": "tennessee", "tx": "texas", "ut": "utah",
	"vt": "vermont", "va": "virginia", "wa": "washington", "wv": "west virginia",
	"wi": "wisconsin", "wy": "wyoming", "dc": "district of columbia",
}

var streetSuffixes = map[string]bool{
	"alley": true, "aly": true, "ave": true, "avenue": true, "blvd": true,
	"boulevard": true, "cir": true, "circle": true, "court": true, "ct": true,
	"cove": true, "cv": true, "dr": true, "drive": true, "highway": true,
	"hwy": true, "lane": true, "ln": true, "loop": true, "parkway": true,
	"pass": true, "path": true, "pike": true, "pkwy": true, "pl": true,
	"place": true, "plaza": true, "pt": true, "rd": true, "road": true,
	"row": true, "sq": true, "square": true, "st": true, "street": true,
	"ter": true, "terrace": true, "trail": true, "trce": true, "trl": true,
	"way": true, "xing": true,
}

var directionals = map[string]bool{
	"n": true, "s": true, "e": true, "w": true,
	"ne": true, "nw": true, "se": true, "sw": true,
	"north": true, "south": true, "east": true, "west": true,
}

var occupancyTypes = map[string]bool{
	"apt": true, "apartment": true, "unit": true, "ste": true, "suite": true,
	"rm": true, "room": true, "fl": true, "floor": true, "bldg": true,
	"building": true, "lot": true, "#": true,
}

var zipPattern = regexp.MustCompile(`^\d{5}(?:-\d{4})?$`)
var numberPattern = regexp.MustCompile(`^\d+[A-Za-z]?$`)

// Tag labels every token of a one-line address. It returns an error when
// the text does not start with a house number or ends without a zip code,
// the two anchors the rest of the labeling keys off.
func Tag(address string) ([]TaggedToken, error) {
	cleaned := strings.ReplaceAll(address, ",", " ")
	tokens := strings.Fields(cleaned)
	if len(tokens) < 5 {
		return nil, eris.Errorf("postal: %q is too short to be a full address", address)
	}

	if !numberPattern.MatchString(tokens[0]) {
		return nil, eris.Errorf("postal: %q does not start with a house number", address)
	}

	last := len(tokens) - 1
	if !zipPattern.MatchString(tokens[last]) {
		return nil, eris.Errorf("postal: %q does not end with a zip code", address)
	}

	tagged := make([]TaggedToken, len(tokens))
	tagged[0] = TaggedToken{tokens[0], AddressNumber}
	tagged[last] = TaggedToken{tokens[last], ZipCode}

	// Consume the state immediately before the zip. Full names may take
	// two tokens ("new york").
	stateStart, stateEnd := findState(tokens, last)
	if stateStart < 0 {
		return nil, eris.Errorf("postal: %q has no state before the zip code", address)
	}
	for i := stateStart; i <= stateEnd; i++ {
		tagged[i] = TaggedToken{tokens[i], StateName}
	}

	// Street tokens run from the house number to the last street suffix
	// (or occupancy marker). Everything after that is the city.
	streetEnd, occStart := splitStreet(tokens, 1, stateStart)
	for i := 1; i <= streetEnd; i++ {
		lower := strings.ToLower(tokens[i])
		switch {
		case i == 1 && directionals[lower] && streetEnd > 1:
			tagged[i] = TaggedToken{tokens[i], StreetNamePreDirectional}
		case i == streetEnd && streetSuffixes[lower]:
			tagged[i] = TaggedToken{tokens[i], StreetNamePostType}
		case i == streetEnd && directionals[lower]:
			tagged[i] = TaggedToken{tokens[i], StreetNamePostDirectional}
		default:
			tagged[i] = TaggedToken{tokens[i], StreetName}
		}
	}

	cityStart := streetEnd + 1
	if occStart >= 0 {
		tagged[occStart] = TaggedToken{tokens[occStart], OccupancyType}
		for i := occStart + 1; i < stateStart && isOccupancyID(tokens[i]); i++ {
			tagged[i] = TaggedToken{tokens[i], OccupancyIdentifier}
			cityStart = i + 1
		}
		if cityStart <= occStart {
			cityStart = occStart + 1
		}
	}
	for i := cityStart; i < stateStart; i++ {
		tagged[i] = TaggedToken{tokens[i], PlaceName}
	}

	for _, tok := range tagged {
		if tok.Label == "" {
			return nil, eris.Errorf("postal: could not label every token of %q", address)
		}
	}
	return tagged, nil
}

// Labels collects the distinct roles present in a tagged address.
func Labels(tokens []TaggedToken) map[Label]bool {
	set := make(map[Label]bool, len(tokens))
	for _, tok := range tokens {
		set[tok.Label] = true
	}
	return set
}

// IsComplete reports whether the tag set covers a deliverable address:
// house number, street, city, state, and zip.
func IsComplete(tokens []TaggedToken) bool {
	set := Labels(tokens)
	return set[AddressNumber] && set[StreetName] && set[PlaceName] &&
		set[StateName] && set[ZipCode]
}

func findState(tokens []string, zipIdx int) (start, end int) {
	if zipIdx < 1 {
		return -1, -1
	}
	one := strings.ToLower(tokens[zipIdx-1])
	if _, ok := abbrToState[one]; ok {
		return zipIdx - 1, zipIdx - 1
	}
	for _, full := range abbrToState {
		if full == one {
			return zipIdx - 1, zipIdx - 1
		}
		parts := strings.Fields(full)
		if len(parts) == 2 && zipIdx >= 2 &&
			strings.ToLower(tokens[zipIdx-2]) == parts[0] && one == parts[1] {
			return zipIdx - 2, zipIdx - 1
		}
	}
	return -1, -1
}

// splitStreet finds the last street suffix before any occupancy marker
// and the index of that marker, if present.
func splitStreet(tokens []string, start, end int) (streetEnd, occStart int) {
	occStart = -1
	streetEnd = start
	for i := start; i < end; i++ {
		lower := strings.ToLower(tokens[i])
		if occupancyTypes[lower] || strings.HasPrefix(tokens[i], "#") {
			occStart = i
			break
		}
		if streetSuffixes[lower] || (i > start && directionals[lower] && streetSuffixes[strings.ToLower(tokens[i-1])]) {
			streetEnd = i
		}
	}
	if occStart >= 0 && occStart-1 > streetEnd {
		// No recognized suffix; everything before the marker is street.
		streetEnd = occStart - 1
	}
	return streetEnd, occStart
}

func isOccupancyID(token string) bool {
	return numberPattern.MatchString(token) || len(token) <= 3
}
