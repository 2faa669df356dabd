package docket

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/red-door-collective/eviction-tracker/internal/model"
)

// decemberDocketXML reproduces the layout of a published December
// docket: a courtroom banner, two date/time headers, and 51 rows.
func decemberDocketXML() []byte {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><pdf2xml>`)
	b.WriteString(`<page number="1" width="612" height="10000">`)
	b.WriteString(`<text top="20" left="200" width="200" height="12">General Sessions Court Room 1B</text>`)
	b.WriteString(`<text top="50" left="306" width="200" height="12">Court Date: 12/15/2021  Time: 8:00AM</text>`)

	writeRow := func(top int, docketID, plaintiff, attorney, defendant, address string) {
		fmt.Fprintf(&b, `<text top="%d" left="30" width="80" height="12">%s</text>`, top, docketID)
		fmt.Fprintf(&b, `<text top="%d" left="100" width="140" height="12">%s</text>`, top, plaintiff)
		fmt.Fprintf(&b, `<text top="%d" left="100" width="140" height="12">%s</text>`, top+12, attorney)
		fmt.Fprintf(&b, `<text top="%d" left="300" width="200" height="12">%s</text>`, top, defendant)
		fmt.Fprintf(&b, `<text top="%d" left="300" width="200" height="12">%s</text>`, top+12, address)
		fmt.Fprintf(&b, `<text top="%d" left="300" width="200" height="12">--------------------</text>`, top+24)
		fmt.Fprintf(&b, `<text top="%d" left="300" width="200" height="12">ALL OTHER OCCUPANTS</text>`, top+36)
	}

	writeRow(100, "21GC15108",
		"MANGRUM TRUCKING &amp; EXCAVATING, LLC", "Bethany M Vanhooser",
		"DOE, JOHN", "123 FAKE ST   NASHVILLE, TN 37214")

	b.WriteString(`<text top="160" left="306" width="200" height="12">Court Date: 12/15/2021  Time: 10:00AM</text>`)
	for i := 1; i < 51; i++ {
		writeRow(160+i*60, fmt.Sprintf("21GC%d", 15108+i),
			fmt.Sprintf("PLAINTIFF %d LLC", i), "Some Lawyer",
			fmt.Sprintf("TENANT, EXAMPLE %d", i), fmt.Sprintf("%d ELM ST  NASHVILLE, TN 37206", i))
	}
	b.WriteString(`</page></pdf2xml>`)
	return []byte(b.String())
}

func TestParseLayoutXML(t *testing.T) {
	listings, err := ParseLayoutXML(decemberDocketXML())
	require.NoError(t, err)
	require.Len(t, listings, 51)

	first := listings[0]
	assert.Equal(t, "21GC15108", first.DocketID)
	assert.Equal(t, time.Date(2021, 12, 15, 8, 0, 0, 0, model.Nashville), first.CourtDate)
	assert.Equal(t, "1B", first.Courtroom)
	assert.Equal(t, int64(0), first.CourtOrderNumber)
	assert.Equal(t, "MANGRUM TRUCKING & EXCAVATING, LLC", first.Plaintiff)
	assert.Equal(t, "Bethany M Vanhooser", first.PlaintiffAttorney)
	require.Len(t, first.Defendants, 2)
	assert.Equal(t, "DOE, JOHN", first.Defendants[0].Name)
	assert.Equal(t, "123 FAKE ST NASHVILLE, TN 37214", first.Defendants[0].Address)
	assert.Equal(t, "123 FAKE ST NASHVILLE, TN 37214", first.Address())

	second := listings[1]
	assert.Equal(t, int64(1), second.CourtOrderNumber)
	assert.Equal(t, time.Date(2021, 12, 15, 10, 0, 0, 0, model.Nashville), second.CourtDate)
}

func TestParseLayoutXML_Empty(t *testing.T) {
	listings, err := ParseLayoutXML([]byte(`<pdf2xml></pdf2xml>`))
	require.NoError(t, err)
	assert.Empty(t, listings)
}

func TestParseLayoutXML_NoHeaderAboveRow(t *testing.T) {
	xml := `<pdf2xml><page number="1" width="612" height="792">` +
		`<text top="100" left="30" width="80" height="12">21GC15108</text>` +
		`</page></pdf2xml>`
	_, err := ParseLayoutXML([]byte(xml))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no date header above row")
}

func TestSplitDefendantBlock(t *testing.T) {
	entries := splitDefendantBlock([]string{
		"DOE, JOHN",
		"123 FAKE ST",
		"NASHVILLE, TN 37214",
		"--------------------",
		"DOE, JANE",
	})
	require.Len(t, entries, 2)
	assert.Equal(t, "DOE, JOHN", entries[0].Name)
	assert.Equal(t, "123 FAKE ST NASHVILLE, TN 37214", entries[0].Address)
	assert.Equal(t, "DOE, JANE", entries[1].Name)
	assert.Empty(t, entries[1].Address)
}
