package pleadings

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/red-door-collective/eviction-tracker/internal/model"
)

// The judgment order form renders its checkboxes in a bitmap font with
// two distinctive glyphs.
const (
	checkedGlyph   = ""
	uncheckedGlyph = ""
)

// Anchored field regexes for the judgment order form. The single-line
// capture groups span the text between two anchors; a checkbox test is
// "does the span contain the checked glyph".
var (
	docketIDRegex  = regexp.MustCompile(`DOCKET\s+NO\.?\s*:\s*(\w+)`)
	plaintiffRegex = regexp.MustCompile(`COUNTY, TENNESSEE\s*(.+?)\s*Plaintiff`)
	judgeRegex     = regexp.MustCompile(`The foregoing is hereby.+Judge\s+(.+?),?\s+Division`)

	inFavorPlaintiffRegex = regexp.MustCompile(`Order\s*(.+)\s*Judgment is granted`)
	inFavorDefendantRegex = regexp.MustCompile(`per annum\s*(.+)\s*Case is dismissed`)

	awardsRegex = regexp.MustCompile(
		`Judgment\s+is\s+granted\s+to\s+Plaintiff\s+against\s+.+\s+(` +
			uncheckedGlyph + `|` + checkedGlyph + `)\s+(` +
			uncheckedGlyph + `|` + checkedGlyph + `)\s+for\s+possession\s+of\s+the\s+described\s+property`)
	awardsFeesRegex = regexp.MustCompile(`\$\s*([\d.,]+?)\s`)

	enteredByDefaultRegex   = regexp.MustCompile(`Judgment is entered by:\s*(.+)\s*Default`)
	enteredByAgreementRegex = regexp.MustCompile(`Default.\s*(.+)\s*Agreement of parties`)
	enteredByTrialRegex     = regexp.MustCompile(`parties.\s*(.+)\s*Trial in Court`)

	interestFollowsSiteRegex = regexp.MustCompile(`granted as follows:\s*(.+)\s*at the rate posted`)
	interestRateRegex        = regexp.MustCompile(`Courts.\s*(.+)\s*at\s+the\s+rate\s+of\s+%\s*([\d.]*)\s*per\s+annum`)

	dismissalFailureRegex = regexp.MustCompile(`Dismissal is based on:\s*(.+)\s*Failure to prosecute`)
	dismissalFavorRegex   = regexp.MustCompile(`prosecute\.\s*(.+)\s*Finding in favor of Defendant`)
	dismissalNonSuitRegex = regexp.MustCompile(`after trial.\s*(.+)\s*Non-suit by Plaintiff`)

	withPrejudiceRegex = regexp.MustCompile(`Dismissal\s+is:\s*(.+)\s*Without prejudice`)
	notesRegex         = regexp.MustCompile(`Other\s+terms\s+of\s+this\s+Order,\s+if\s+any,\s+are\s+as\s+follows:\s*(.+?)\s*EFILED`)
	efiledRegex        = regexp.MustCompile(`EFILED\s+(\d{1,2}/\d{1,2}/\d{2,4})`)
)

// JudgmentExtract is the raw field set read off a judgment order.
type JudgmentExtract struct {
	DocketID            string
	Plaintiff           string
	Judge               string
	InFavorOf           *model.JudgmentInFavorOf
	AwardsPossession    *bool
	AwardsFees          *decimal.Decimal
	EnteredBy           *model.EnteredBy
	Interest            *bool
	InterestRate        *decimal.Decimal
	InterestFollowsSite *bool
	DismissalBasis      *model.DismissalBasis
	WithPrejudice       *bool
	Notes               string
	FileDate            *time.Time
}

// checkedIn reports whether the span captured by re contains the
// checked glyph.
func checkedIn(re *regexp.Regexp, text string) bool {
	m := re.FindStringSubmatch(text)
	return m != nil && strings.Contains(m[1], checkedGlyph)
}

// collapse joins all whitespace runs, putting the form on one line so
// the anchored captures can span what the PDF renders as columns.
func collapse(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// ParseJudgment extracts the judgment fields from classified document
// text. Returns nil when the required docket id anchor is missing.
func ParseJudgment(rawText string) *JudgmentExtract {
	text := collapse(rawText)

	docketMatch := docketIDRegex.FindStringSubmatch(text)
	if docketMatch == nil {
		return nil
	}
	extract := &JudgmentExtract{DocketID: docketMatch[1]}

	if m := plaintiffRegex.FindStringSubmatch(text); m != nil {
		extract.Plaintiff = m[1]
	}
	if m := judgeRegex.FindStringSubmatch(text); m != nil {
		extract.Judge = m[1]
	}

	// Defendant wins ties between the two outcome boxes.
	plaintiffWon := checkedIn(inFavorPlaintiffRegex, text)
	defendantWon := checkedIn(inFavorDefendantRegex, text)
	switch {
	case defendantWon:
		side := model.InFavorDefendant
		extract.InFavorOf = &side
	case plaintiffWon:
		side := model.InFavorPlaintiff
		extract.InFavorOf = &side
	}

	if m := awardsRegex.FindStringSubmatch(text); m != nil {
		possession := m[1] == checkedGlyph || m[2] == checkedGlyph
		extract.AwardsPossession = &possession
	}
	if m := awardsFeesRegex.FindStringSubmatch(text); m != nil {
		if fees, ok := parseMoney(m[1]); ok {
			extract.AwardsFees = &fees
		}
	}

	extract.EnteredBy = parseEnteredBy(text)

	if interestFollowsSiteRegex.MatchString(text) {
		follows := checkedIn(interestFollowsSiteRegex, text)
		extract.InterestFollowsSite = &follows
	}
	if m := interestRateRegex.FindStringSubmatch(text); m != nil &&
		strings.Contains(m[1], checkedGlyph) && m[2] != "" {
		if rate, err := decimal.NewFromString(m[2]); err == nil {
			extract.InterestRate = &rate
		}
	}
	if (extract.InterestFollowsSite != nil && *extract.InterestFollowsSite) || extract.InterestRate != nil {
		interest := true
		extract.Interest = &interest
	}

	if extract.InFavorOf != nil && *extract.InFavorOf == model.InFavorDefendant {
		extract.DismissalBasis = parseDismissalBasis(text)
		if m := withPrejudiceRegex.FindStringSubmatch(text); m != nil {
			withPrejudice := !strings.Contains(m[1], checkedGlyph)
			extract.WithPrejudice = &withPrejudice
		}
	}

	if m := notesRegex.FindStringSubmatch(text); m != nil {
		extract.Notes = m[1]
	}
	if m := efiledRegex.FindStringSubmatch(text); m != nil {
		for _, layout := range []string{"1/2/06", "1/2/2006"} {
			if d, err := time.ParseInLocation(layout, m[1], model.Nashville); err == nil {
				extract.FileDate = &d
				break
			}
		}
	}
	return extract
}

func parseEnteredBy(text string) *model.EnteredBy {
	var entered model.EnteredBy
	switch {
	case checkedIn(enteredByDefaultRegex, text):
		entered = model.EnteredByDefault
	case checkedIn(enteredByAgreementRegex, text):
		entered = model.EnteredByAgreement
	case checkedIn(enteredByTrialRegex, text):
		entered = model.EnteredByTrial
	default:
		return nil
	}
	return &entered
}

func parseDismissalBasis(text string) *model.DismissalBasis {
	var basis model.DismissalBasis
	switch {
	case checkedIn(dismissalFailureRegex, text):
		basis = model.DismissalFailureToProsecute
	case checkedIn(dismissalFavorRegex, text):
		basis = model.DismissalInFavorOfDefendant
	case checkedIn(dismissalNonSuitRegex, text):
		basis = model.DismissalNonSuitByPlaintiff
	default:
		return nil
	}
	return &basis
}

// parseMoney normalizes a captured dollar amount: commas removed,
// trailing dot trimmed.
func parseMoney(raw string) (decimal.Decimal, bool) {
	cleaned := strings.TrimSuffix(strings.ReplaceAll(raw, ",", ""), ".")
	if cleaned == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}
