package caselink

import (
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/red-door-collective/eviction-tracker/internal/model"
)

func TestHeadersFromSearchResults(t *testing.T) {
	cells := ExtractSearchResults(fixture(t, "search-results.html"))
	require.Len(t, cells, 27)

	headers := HeadersFromCells(cells)
	require.Len(t, headers, 3)

	assert.Equal(t, "24GT4773", headers[0].DocketID)
	assert.Equal(t, "24GT4770", headers[1].DocketID)
	assert.Equal(t, "24GT4772", headers[2].DocketID)
	assert.Equal(t, model.RepresentingSelf, headers[0].PlaintiffAttorney)
	assert.Equal(t, "JENNIFER MCCOY", headers[1].PlaintiffAttorney)

	for _, h := range headers {
		assert.True(t, h.Admitted(), h.DocketID)
	}
}

func TestCaseHeaderAdmitted(t *testing.T) {
	assert.False(t, CaseHeader{DocketID: "24GC1000", Description: "CIVIL WARRANT"}.Admitted())
	assert.False(t, CaseHeader{DocketID: "24GC1000", Description: "DETAINER WARRANT"}.Admitted())
	assert.True(t, CaseHeader{DocketID: "24GT1000", Description: "DETAINER WARRANT"}.Admitted())
}

func TestFormDataFromCells(t *testing.T) {
	cells := ExtractSearchResults(fixture(t, "search-results.html"))
	wcVars, wcVals := FormDataFromCells(cells)

	// Empty ninth-column cells are elided before the echo.
	assert.NotContains(t, wcVars, "P_109_1")
	assert.Contains(t, wcVars, "P_102_1")
	assert.True(t, strings.HasSuffix(wcVars, fieldSep))
	assert.True(t, strings.HasSuffix(wcVals, fieldSep))
	assert.NotContains(t, wcVals, fieldSep+fieldSep)
	assert.Contains(t, wcVals, "24GT4770")
}

func TestExtractCSVURL(t *testing.T) {
	body := `parent.UserWinOpen("", "https://caselink.nashville.gov/gsapdfs/1714944347676.WEBSHELL.586.26968927.csv", "RS");`
	url, err := ExtractCSVURL(body)
	require.NoError(t, err)
	assert.Equal(t, "https://caselink.nashville.gov/gsapdfs/1714944347676.WEBSHELL.586.26968927.csv", url)

	_, err = ExtractCSVURL("<html></html>")
	assert.Error(t, err)
}

func TestParseResultsCSV(t *testing.T) {
	raw := strings.Join([]string{
		`Office,Docket #,Status,File Date,Description,Plaintiff,Defendant,Pltf. Attorney,Def. Attorney`,
		`1,24GT4773,PENDING,05/01/2024,DETAINER WARRANT,AVANA OVERLOOK,EXAMPLE TENANT OR ALL OCCUPANTS,", PRS",`,
		`1,24GC9999,PENDING,05/01/2024,CIVIL WARRANT,SOMEONE,SOMEBODY,JENNIFER MCCOY,`,
	}, "\n")

	headers, err := ParseResultsCSV(csv.NewReader(strings.NewReader(raw)))
	require.NoError(t, err)
	require.Len(t, headers, 2)

	assert.Equal(t, "24GT4773", headers[0].DocketID)
	assert.Equal(t, model.RepresentingSelf, headers[0].PlaintiffAttorney)
	assert.True(t, headers[0].Admitted())
	assert.False(t, headers[1].Admitted())
}

func TestWithinWorkingHours(t *testing.T) {
	morning := time.Date(2024, 5, 1, 9, 0, 0, 0, model.Nashville)
	night := time.Date(2024, 5, 1, 23, 0, 0, 0, model.Nashville)
	assert.True(t, withinWorkingHours(morning))
	assert.False(t, withinWorkingHours(night))
}
