package docket

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

func newTestImporter(t *testing.T) (*Importer, store.Store) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(context.Background()))
	return NewImporter(nil, nil, st), st
}

func TestImportListings(t *testing.T) {
	ctx := context.Background()
	im, st := newTestImporter(t)

	orderNumber := int64(0)
	courtDate := time.Date(2021, 12, 15, 8, 0, 0, 0, model.Nashville)
	listing := Listing{
		DocketID:          "21GC15108",
		CourtDate:         courtDate,
		Courtroom:         "1B",
		CourtOrderNumber:  orderNumber,
		Plaintiff:         "MANGRUM TRUCKING & EXCAVATING, LLC",
		PlaintiffAttorney: "Bethany M Vanhooser",
		Defendants: []DefendantListing{
			{Name: "DOE, JOHN", Address: "123 FAKE ST NASHVILLE, TN 37214"},
			{Name: "AND ALL OTHER OCCUPANTS"},
			{Name: "DOE, JOHN"},
		},
	}

	require.NoError(t, im.ImportListings(ctx, []Listing{listing}))

	c, err := st.GetCase(ctx, "21GC15108")
	require.NoError(t, err)
	assert.Equal(t, model.CaseTypeCivilWarrant, c.Type)

	h, err := st.HearingNear(ctx, "21GC15108", courtDate, 1)
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.Equal(t, "123 FAKE ST NASHVILLE, TN 37214", h.Address)
	require.NotNil(t, h.CourtOrderNumber)
	assert.Equal(t, int64(0), *h.CourtOrderNumber)
	assert.NotNil(t, h.CourtroomID)
	assert.NotNil(t, h.PlaintiffID)
	assert.NotNil(t, h.PlaintiffAttorneyID)
}

func TestImportListings_RerunKeepsOneHearing(t *testing.T) {
	ctx := context.Background()
	im, st := newTestImporter(t)

	courtDate := time.Date(2021, 12, 15, 10, 0, 0, 0, model.Nashville)
	listing := Listing{
		DocketID:         "21GT9000",
		CourtDate:        courtDate,
		Courtroom:        "1A",
		CourtOrderNumber: 3,
		Defendants:       []DefendantListing{{Name: "SMITH, JANE", Address: "9 OAK AVE"}},
	}

	require.NoError(t, im.ImportListings(ctx, []Listing{listing}))
	require.NoError(t, im.ImportListings(ctx, []Listing{listing}))

	h, err := st.HearingNear(ctx, "21GT9000", courtDate, 1)
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.Equal(t, "9 OAK AVE", h.Address)
}
