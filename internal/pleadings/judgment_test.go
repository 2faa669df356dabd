package pleadings

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/red-door-collective/eviction-tracker/internal/model"
)

const (
	checked   = ""
	unchecked = ""
)

// judgmentOrderText reproduces the text layer of a general sessions
// judgment order granting possession and fees to the plaintiff by
// agreement of the parties.
func judgmentOrderText() string {
	return `IN THE GENERAL SESSIONS COURT FOR DAVIDSON
COUNTY, TENNESSEE

REDACTED APARTMENTS
Plaintiff

vs                               DOCKET NO.: 21GT1234

JOHN DOE
Defendant

The Court enters the following Order:

` + checked + ` Judgment is granted to Plaintiff against JOHN DOE
` + checked + ` ` + unchecked + ` for possession of the described property and
$ 7,639.56 for rent through the date of this order.

Judgment is entered by: ` + unchecked + ` Default. ` + checked + ` Agreement of parties. ` + unchecked + ` Trial in Court.

Interest on the judgment is granted as follows: ` + checked + ` at the rate posted by the Clerk of Courts. ` + unchecked + ` at the rate of % per annum ` + unchecked + ` Case is dismissed.

The foregoing is hereby ordered, Judge Rachel Bell, Division VIII

Other terms of this Order, if any, are as follows: none

EFILED 09/02/21 General Sessions Court
`
}

func TestParseJudgment(t *testing.T) {
	extract := ParseJudgment(judgmentOrderText())
	require.NotNil(t, extract)

	assert.Equal(t, "21GT1234", extract.DocketID)
	assert.Equal(t, "REDACTED APARTMENTS", extract.Plaintiff)
	assert.Equal(t, "Rachel Bell", extract.Judge)

	require.NotNil(t, extract.InFavorOf)
	assert.Equal(t, model.InFavorPlaintiff, *extract.InFavorOf)
	require.NotNil(t, extract.AwardsPossession)
	assert.True(t, *extract.AwardsPossession)
	require.NotNil(t, extract.AwardsFees)
	assert.True(t, extract.AwardsFees.Equal(decimal.RequireFromString("7639.56")))
	require.NotNil(t, extract.EnteredBy)
	assert.Equal(t, model.EnteredByAgreement, *extract.EnteredBy)
	require.NotNil(t, extract.InterestFollowsSite)
	assert.True(t, *extract.InterestFollowsSite)
	require.NotNil(t, extract.Interest)
	assert.True(t, *extract.Interest)
	assert.Nil(t, extract.InterestRate)
	assert.Nil(t, extract.DismissalBasis)
	assert.Nil(t, extract.WithPrejudice)

	require.NotNil(t, extract.FileDate)
	assert.Equal(t, time.Date(2021, 9, 2, 0, 0, 0, 0, model.Nashville), *extract.FileDate)
}

func TestParseJudgment_Idempotent(t *testing.T) {
	first := ParseJudgment(judgmentOrderText())
	second := ParseJudgment(judgmentOrderText())
	assert.Equal(t, first, second)
}

func TestParseJudgment_NoDocketID(t *testing.T) {
	assert.Nil(t, ParseJudgment("an unrelated scanned page"))
}

func TestParseJudgment_DismissedWithPrejudice(t *testing.T) {
	text := `DOCKET NO.: 22GT555 ` +
		`Order ` + unchecked + ` Judgment is granted to nobody ` +
		`per annum ` + checked + ` Case is dismissed. ` +
		`Dismissal is based on: ` + unchecked + ` Failure to prosecute. ` +
		checked + ` Finding in favor of Defendant after trial. ` +
		unchecked + ` Non-suit by Plaintiff ` +
		`Dismissal is: ` + unchecked + ` Without prejudice`

	extract := ParseJudgment(text)
	require.NotNil(t, extract)
	require.NotNil(t, extract.InFavorOf)
	assert.Equal(t, model.InFavorDefendant, *extract.InFavorOf)
	require.NotNil(t, extract.DismissalBasis)
	assert.Equal(t, model.DismissalInFavorOfDefendant, *extract.DismissalBasis)
	require.NotNil(t, extract.WithPrejudice)
	assert.True(t, *extract.WithPrejudice)
}

func TestParseMoney(t *testing.T) {
	d, ok := parseMoney("7,639.56")
	require.True(t, ok)
	assert.True(t, d.Equal(decimal.RequireFromString("7639.56")))

	d, ok = parseMoney("123.")
	require.True(t, ok)
	assert.True(t, d.Equal(decimal.NewFromInt(123)))

	_, ok = parseMoney("")
	assert.False(t, ok)
}
