package pleadings

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

func newTestPipeline(t *testing.T) (*Pipeline, store.Store) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(context.Background()))
	return &Pipeline{store: st}, st
}

func judgmentDocument() *model.PleadingDocument {
	text := judgmentOrderText()
	kind := model.PleadingJudgment
	return &model.PleadingDocument{
		URL:      `\Public\Sessions\21\21GT1234\100.pdf`,
		Text:     &text,
		Kind:     &kind,
		DocketID: "21GT1234",
	}
}

func TestUpdateJudgmentFromDocument(t *testing.T) {
	ctx := context.Background()
	p, st := newTestPipeline(t)

	require.NoError(t, p.UpdateJudgmentFromDocument(ctx, judgmentDocument()))

	// A placeholder hearing is created at the file date when the docket
	// has none nearby.
	fileDate := time.Date(2021, 9, 2, 0, 0, 0, 0, model.Nashville)
	hearing, err := st.HearingNear(ctx, "21GT1234", fileDate, 3)
	require.NoError(t, err)
	require.NotNil(t, hearing)
	assert.Equal(t, "unknown", hearing.Address)

	warrant, err := st.GetDetainerWarrant(ctx, "21GT1234")
	require.NoError(t, err)
	require.NotNil(t, warrant)
	require.NotNil(t, warrant.AuditStatus)
	assert.Equal(t, model.AuditJudgmentConfirmed, *warrant.AuditStatus)
}

func TestUpdateJudgmentFromDocument_Idempotent(t *testing.T) {
	ctx := context.Background()
	p, st := newTestPipeline(t)

	require.NoError(t, p.UpdateJudgmentFromDocument(ctx, judgmentDocument()))
	require.NoError(t, p.UpdateJudgmentFromDocument(ctx, judgmentDocument()))

	fileDate := time.Date(2021, 9, 2, 0, 0, 0, 0, model.Nashville)
	hearing, err := st.HearingNear(ctx, "21GT1234", fileDate, 3)
	require.NoError(t, err)
	require.NotNil(t, hearing)
}

func TestUpdateJudgmentFromDocument_AttachesNearbyHearing(t *testing.T) {
	ctx := context.Background()
	p, st := newTestPipeline(t)

	_, _, err := st.GetOrCreateCase(ctx, "21GT1234")
	require.NoError(t, err)
	courtDate := time.Date(2021, 9, 1, 9, 0, 0, 0, model.Nashville)
	hearingID, err := st.UpsertHearing(ctx, &model.Hearing{
		CourtDate: courtDate,
		Address:   "123 FAKE ST",
		DocketID:  "21GT1234",
	})
	require.NoError(t, err)

	require.NoError(t, p.UpdateJudgmentFromDocument(ctx, judgmentDocument()))

	// No extra hearing appears; the judgment latched onto the existing one.
	near, err := st.HearingNear(ctx, "21GT1234", courtDate, 0)
	require.NoError(t, err)
	require.NotNil(t, near)
	assert.Equal(t, hearingID, near.ID)
	assert.Equal(t, "123 FAKE ST", near.Address)
}

func warrantDocument(docketID string) *model.PleadingDocument {
	text := detainerWarrantText()
	kind := model.PleadingDetainerWarrant
	return &model.PleadingDocument{
		URL:      `\Public\Sessions\21\` + docketID + `\200.pdf`,
		Text:     &text,
		Kind:     &kind,
		DocketID: docketID,
	}
}

func TestUpdateWarrantFromDocument_SetsAddress(t *testing.T) {
	ctx := context.Background()
	p, st := newTestPipeline(t)

	doc := warrantDocument("21GT1234")
	require.NoError(t, p.UpdateWarrantFromDocument(ctx, doc))

	warrant, err := st.GetDetainerWarrant(ctx, "21GT1234")
	require.NoError(t, err)
	require.NotNil(t, warrant)
	require.NotNil(t, warrant.Address)
	assert.Equal(t, "123 Fake Street, Nashville, TN 37214", *warrant.Address)
	require.NotNil(t, warrant.DocumentURL)
	assert.Equal(t, doc.URL, *warrant.DocumentURL)

	// The extracted address also joins the candidate set.
	candidates, err := st.PotentialAddresses(ctx, "21GT1234")
	require.NoError(t, err)
	assert.Equal(t, []string{"123 Fake Street, Nashville, TN 37214"}, candidates)
}

// secondWarrantDocument carries a different property address for the
// same docket, as happens when an amended warrant is filed.
func secondWarrantDocument(docketID string) *model.PleadingDocument {
	text := `DETAINER WARRANT

WHEREAS, JOHN DOE is in possession of the property described as
follows: 500 Oak Avenue, Nashville, TN 37206 AND WHEREAS the rent
is unpaid.
`
	kind := model.PleadingDetainerWarrant
	return &model.PleadingDocument{
		URL:      `\Public\Sessions\21\` + docketID + `\201.pdf`,
		Text:     &text,
		Kind:     &kind,
		DocketID: docketID,
	}
}

func TestUpdateWarrantFromDocument_SecondAddressJoinsCandidates(t *testing.T) {
	ctx := context.Background()
	p, st := newTestPipeline(t)

	first := warrantDocument("21GT1234")
	require.NoError(t, p.UpdateWarrantFromDocument(ctx, first))
	require.NoError(t, p.UpdateWarrantFromDocument(ctx, secondWarrantDocument("21GT1234")))

	// The settled address and source document stand.
	warrant, err := st.GetDetainerWarrant(ctx, "21GT1234")
	require.NoError(t, err)
	require.NotNil(t, warrant.Address)
	assert.Equal(t, "123 Fake Street, Nashville, TN 37214", *warrant.Address)
	require.NotNil(t, warrant.DocumentURL)
	assert.Equal(t, first.URL, *warrant.DocumentURL)

	// Both extracted addresses coexist as candidates.
	candidates, err := st.PotentialAddresses(ctx, "21GT1234")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"123 Fake Street, Nashville, TN 37214",
		"500 Oak Avenue, Nashville, TN 37206",
	}, candidates)
}

func TestUpdateWarrantFromDocument_NeverOverwritesSettledWarrant(t *testing.T) {
	ctx := context.Background()
	p, st := newTestPipeline(t)

	_, _, err := st.GetOrCreateCase(ctx, "21GT1234")
	require.NoError(t, err)
	address := "9 OAK AVE"
	docURL := `\Public\Sessions\21\21GT1234\1.pdf`
	require.NoError(t, st.UpsertDetainerWarrant(ctx, &model.DetainerWarrant{
		DocketID:    "21GT1234",
		Address:     &address,
		DocumentURL: &docURL,
	}))

	require.NoError(t, p.UpdateWarrantFromDocument(ctx, warrantDocument("21GT1234")))

	warrant, err := st.GetDetainerWarrant(ctx, "21GT1234")
	require.NoError(t, err)
	assert.Equal(t, "9 OAK AVE", *warrant.Address)
	assert.Equal(t, docURL, *warrant.DocumentURL)

	// The newly extracted address is still recorded as a candidate.
	candidates, err := st.PotentialAddresses(ctx, "21GT1234")
	require.NoError(t, err)
	assert.Equal(t, []string{"123 Fake Street, Nashville, TN 37214"}, candidates)
}

func TestUpdateWarrantFromDocument_KeepsCanonicalSourceWithoutAddress(t *testing.T) {
	ctx := context.Background()
	p, st := newTestPipeline(t)

	text := "DETAINER WARRANT\nno address on this scan"
	kind := model.PleadingDetainerWarrant
	doc := &model.PleadingDocument{
		URL:      `\Public\Sessions\21\21GT7777\1.pdf`,
		Text:     &text,
		Kind:     &kind,
		DocketID: "21GT7777",
	}
	require.NoError(t, p.UpdateWarrantFromDocument(ctx, doc))

	warrant, err := st.GetDetainerWarrant(ctx, "21GT7777")
	require.NoError(t, err)
	require.NotNil(t, warrant)
	assert.Nil(t, warrant.Address)
	require.NotNil(t, warrant.DocumentURL)
	assert.Equal(t, doc.URL, *warrant.DocumentURL)
}

func TestPickBestAddresses(t *testing.T) {
	ctx := context.Background()
	p, st := newTestPipeline(t)

	_, _, err := st.GetOrCreateCase(ctx, "24GT1000")
	require.NoError(t, err)
	require.NoError(t, st.UpsertDetainerWarrant(ctx, &model.DetainerWarrant{DocketID: "24GT1000"}))
	defendantID, err := st.GetOrCreateDefendant(ctx, model.Defendant{
		FirstName: "JOHN", LastName: "DOE", Address: "123 FAKE ST",
	})
	require.NoError(t, err)
	require.NoError(t, st.LinkWarrantDefendant(ctx, "24GT1000", defendantID))

	require.NoError(t, p.PickBestAddresses(ctx))

	warrant, err := st.GetDetainerWarrant(ctx, "24GT1000")
	require.NoError(t, err)
	require.NotNil(t, warrant.Address)
	assert.Equal(t, "123 FAKE ST", *warrant.Address)
	require.NotNil(t, warrant.AddressCertainty)
	assert.Equal(t, 1.0, *warrant.AddressCertainty)
}

func TestPickBestAddresses_PrefersWarrantCandidates(t *testing.T) {
	ctx := context.Background()
	p, st := newTestPipeline(t)

	require.NoError(t, st.UpsertDetainerWarrant(ctx, &model.DetainerWarrant{DocketID: "24GT1000"}))
	require.NoError(t, st.AddPotentialAddress(ctx, "24GT1000", "123 Fake Street, Nashville, TN 37214"))

	// A defendant mailing address exists too, but the document-extracted
	// candidate wins.
	defendantID, err := st.GetOrCreateDefendant(ctx, model.Defendant{
		FirstName: "JOHN", LastName: "DOE", Address: "PO BOX 9, NASHVILLE, TN 37202",
	})
	require.NoError(t, err)
	require.NoError(t, st.LinkWarrantDefendant(ctx, "24GT1000", defendantID))

	require.NoError(t, p.PickBestAddresses(ctx))

	warrant, err := st.GetDetainerWarrant(ctx, "24GT1000")
	require.NoError(t, err)
	require.NotNil(t, warrant.Address)
	assert.Equal(t, "123 Fake Street, Nashville, TN 37214", *warrant.Address)
	require.NotNil(t, warrant.AddressCertainty)
	assert.Equal(t, 1.0, *warrant.AddressCertainty)
}
