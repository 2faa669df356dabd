package caselink

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/red-door-collective/eviction-tracker/internal/model"
	"github.com/red-door-collective/eviction-tracker/internal/store"
)

func TestExtractPleadingDocumentPaths(t *testing.T) {
	paths := ExtractPleadingDocumentPaths(fixture(t, "case-page.html"))

	assert.Equal(t, []string{
		`\Public\Sessions\24\24GT4890\3370253.pdf`,
		`\Public\Sessions\24/24GT4890\03370254.pdf`,
	}, paths)
}

func TestExtractPleadingDocumentPaths_None(t *testing.T) {
	assert.Empty(t, ExtractPleadingDocumentPaths(`<title>CaseLink Public Inquiry</title>`))
}

func TestExtractHearingRows(t *testing.T) {
	rows := ExtractHearingRows(fixture(t, "case-page.html"))
	require.Len(t, rows, 2)

	assert.Equal(t, time.Date(2024, 5, 14, 0, 0, 0, 0, model.Nashville), rows[0].CourtDate)
	assert.Equal(t, "unknown", rows[0].Address)
	assert.Nil(t, rows[0].ContinuanceOn)

	assert.Equal(t, time.Date(2024, 5, 14, 0, 0, 0, 0, model.Nashville), rows[1].CourtDate)
	require.NotNil(t, rows[1].ContinuanceOn)
	assert.Equal(t, time.Date(2024, 6, 11, 0, 0, 0, 0, model.Nashville), *rows[1].ContinuanceOn)
}

func TestParseDefendantDetails(t *testing.T) {
	body := `
		parent.PutFormVar("P_211", "DOE, JOHN H", 0);
		parent.PutFormVar("P_212", "123 FAKE ST", 0);
		parent.PutFormVar("P_213", "", 0);
		parent.PutFormVar("P_214", "NASHVILLE, TN 37214", 0);
		parent.PutFormVar("P_27", "615-555-0100", 0);
	`
	d := ParseDefendantDetails(body)
	assert.Equal(t, "DOE, JOHN H", d.Name)
	assert.Equal(t, "123 FAKE ST NASHVILLE, TN 37214", d.Address)
	assert.Equal(t, "615-555-0100", d.Phone)
}

func TestRecordDefendantDetails_StoresPhone(t *testing.T) {
	ctx := context.Background()
	scraper, st := newTestScraper(t)

	require.NoError(t, scraper.recordDefendantDetails(ctx, "24GT4890", DefendantDetails{
		Name:    "DOE, JOHN H",
		Address: "123 FAKE ST NASHVILLE, TN 37214",
		Phone:   "615-555-0100",
	}))

	// The phone is part of the defendant's identity: the same person
	// and phone resolve to the linked row instead of creating another.
	id, err := st.GetOrCreateDefendant(ctx, model.Defendant{
		FirstName: "JOHN", MiddleName: "H", LastName: "DOE",
		PotentialPhones: "615-555-0100",
	})
	require.NoError(t, err)
	other, err := st.GetOrCreateDefendant(ctx, model.Defendant{
		FirstName: "JOHN", MiddleName: "H", LastName: "DOE",
		PotentialPhones: "615-555-0199",
	})
	require.NoError(t, err)
	assert.NotEqual(t, id, other)

	addrs, err := st.DefendantAddressCandidates(ctx, "24GT4890")
	require.NoError(t, err)
	assert.Equal(t, []string{"123 FAKE ST NASHVILLE, TN 37214"}, addrs)
}

func newTestScraper(t *testing.T) (*CasePageScraper, store.Store) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(context.Background()))
	return NewCasePageScraper(nil, st), st
}

func TestParseMismatchedDocuments(t *testing.T) {
	ctx := context.Background()
	scraper, st := newTestScraper(t)

	staleHTML := `<title>CaseLink Public Inquiry</title>`
	require.NoError(t, st.RecordPleadingCheck(ctx, "24GT1111", false, staleHTML))
	require.NoError(t, st.RecordPleadingCheck(ctx, "24GT4890", false, fixture(t, "case-page.html")))

	require.NoError(t, scraper.ParseMismatchedDocuments(ctx))

	// The dead navigation shell is discarded without creating documents.
	staleWarrant, err := st.GetDetainerWarrant(ctx, "24GT1111")
	require.NoError(t, err)
	require.NotNil(t, staleWarrant)
	assert.Nil(t, staleWarrant.PleadingDocumentCheckMismatchedHTML)
	docs, err := st.ListPleadingDocuments(ctx, store.DocumentFilter{})
	require.NoError(t, err)
	for _, doc := range docs {
		assert.NotEqual(t, "24GT1111", doc.DocketID)
	}

	// The recoverable body yields its documents and a clean breadcrumb.
	recovered, err := st.GetDetainerWarrant(ctx, "24GT4890")
	require.NoError(t, err)
	require.NotNil(t, recovered)
	assert.Nil(t, recovered.PleadingDocumentCheckMismatchedHTML)
	require.NotNil(t, recovered.PleadingDocumentCheckWasSuccessful)
	assert.True(t, *recovered.PleadingDocumentCheckWasSuccessful)

	doc, err := st.GetPleadingDocument(ctx, `\Public\Sessions\24\24GT4890\3370253.pdf`)
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "24GT4890", doc.DocketID)
}

func TestPlannerImportRows(t *testing.T) {
	ctx := context.Background()
	_, st := newTestScraper(t)
	planner := NewPlanner(nil, st)

	headers := HeadersFromCells(ExtractSearchResults(fixture(t, "search-results.html")))
	headers = append(headers, CaseHeader{DocketID: "24GC9999", Description: "CIVIL WARRANT"})

	imported, err := planner.ImportRows(ctx, headers)
	require.NoError(t, err)
	assert.Equal(t, 3, imported)

	c, err := st.GetCase(ctx, "24GT4773")
	require.NoError(t, err)
	require.NotNil(t, c.Status)
	assert.Equal(t, model.StatusPending, *c.Status)
	require.NotNil(t, c.FileDate)
	assert.Equal(t, "2024-05-01", c.FileDate.Format("2006-01-02"))
	assert.NotNil(t, c.PlaintiffID)
	assert.NotNil(t, c.PlaintiffAttorney)

	w, err := st.GetDetainerWarrant(ctx, "24GT4773")
	require.NoError(t, err)
	require.NotNil(t, w)

	_, err = st.GetCase(ctx, "24GC9999")
	assert.Error(t, err)
}
