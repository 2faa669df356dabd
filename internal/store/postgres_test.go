package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/red-door-collective/eviction-tracker/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func caseRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"docket_id", "order_number", "file_date", "status", "type",
		"plaintiff_id", "plaintiff_attorney_id", "created_at", "updated_at",
	})
}

func TestPostgresStore_GetCase_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT docket_id, order_number, file_date, status, type`).
		WithArgs("99GT9999").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetCase(context.Background(), "99GT9999")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get case")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetOrCreateCase_New(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now()

	mock.ExpectExec(`INSERT INTO cases \(docket_id, order_number, type\)`).
		WithArgs("24GT4773", int64(2024*10_000_000+4773), "detainer_warrant").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery(`SELECT docket_id, order_number, file_date, status, type`).
		WithArgs("24GT4773").
		WillReturnRows(caseRows().AddRow(
			"24GT4773", int64(2024*10_000_000+4773), (*time.Time)(nil), (*string)(nil),
			"detainer_warrant", (*int64)(nil), (*int64)(nil), now, now))

	c, created, err := s.GetOrCreateCase(context.Background(), "24GT4773")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "24GT4773", c.DocketID)
	assert.Equal(t, model.CaseTypeDetainerWarrant, c.Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetOrCreateCase_Existing(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now()

	mock.ExpectExec(`INSERT INTO cases \(docket_id, order_number, type\)`).
		WithArgs("24GC1100", int64(2024*10_000_000+1100), "civil_warrant").
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectQuery(`SELECT docket_id, order_number, file_date, status, type`).
		WithArgs("24GC1100").
		WillReturnRows(caseRows().AddRow(
			"24GC1100", int64(2024*10_000_000+1100), (*time.Time)(nil), (*string)(nil),
			"civil_warrant", (*int64)(nil), (*int64)(nil), now, now))

	_, created, err := s.GetOrCreateCase(context.Background(), "24GC1100")
	require.NoError(t, err)
	assert.False(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetDetainerWarrant_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT address, address_certainty, amount_claimed`).
		WithArgs("24GT0001").
		WillReturnError(pgx.ErrNoRows)

	w, err := s.GetDetainerWarrant(context.Background(), "24GT0001")
	require.NoError(t, err)
	assert.Nil(t, w)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetPleadingDocument_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT url, docket_id, text, kind, status`).
		WithArgs("https://caselinkpdf.civil.nashville.gov/unknown.pdf").
		WillReturnError(pgx.ErrNoRows)

	doc, err := s.GetPleadingDocument(context.Background(), "https://caselinkpdf.civil.nashville.gov/unknown.pdf")
	require.NoError(t, err)
	assert.Nil(t, doc)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LinkWarrantDefendant(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO detainer_warrant_defendants`).
		WithArgs("24GT4773", int64(7)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.LinkWarrantDefendant(context.Background(), "24GT4773", 7)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_AddPotentialAddress(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now()

	mock.ExpectExec(`INSERT INTO cases \(docket_id, order_number, type\)`).
		WithArgs("24GT4773", int64(2024*10_000_000+4773), "detainer_warrant").
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectQuery(`SELECT docket_id, order_number, file_date, status, type`).
		WithArgs("24GT4773").
		WillReturnRows(caseRows().AddRow(
			"24GT4773", int64(2024*10_000_000+4773), (*time.Time)(nil), (*string)(nil),
			"detainer_warrant", (*int64)(nil), (*int64)(nil), now, now))
	mock.ExpectExec(`INSERT INTO addresses`).
		WithArgs("123 Fake Street, Nashville, TN 37214").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO detainer_warrant_addresses`).
		WithArgs("24GT4773", "123 Fake Street, Nashville, TN 37214").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.AddPotentialAddress(context.Background(), "24GT4773", "123 Fake Street, Nashville, TN 37214")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_PotentialAddresses(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT a.text FROM detainer_warrant_addresses l`).
		WithArgs("24GT4773").
		WillReturnRows(pgxmock.NewRows([]string{"text"}).
			AddRow("123 Fake Street, Nashville, TN 37214").
			AddRow("500 Oak Avenue, Nashville, TN 37206"))

	addrs, err := s.PotentialAddresses(context.Background(), "24GT4773")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"123 Fake Street, Nashville, TN 37214",
		"500 Oak Avenue, Nashville, TN 37206",
	}, addrs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_PendingWarrants(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT c.docket_id FROM cases c`).
		WithArgs(false).
		WillReturnRows(pgxmock.NewRows([]string{"docket_id"}).
			AddRow("24GT4773").
			AddRow("24GT4770"))

	ids, err := s.PendingWarrants(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, []string{"24GT4773", "24GT4770"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_MismatchedPleadingHTML(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT docket_id, pleading_document_check_mismatched_html`).
		WillReturnRows(pgxmock.NewRows([]string{"docket_id", "pleading_document_check_mismatched_html"}).
			AddRow("24GT4890", "<html>unexpected</html>"))

	out, err := s.MismatchedPleadingHTML(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"24GT4890": "<html>unexpected</html>"}, out)
	assert.NoError(t, mock.ExpectationsWereMet())
}
