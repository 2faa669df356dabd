// Package store persists cases, hearings, judgments, and pleading
// documents behind a backend-neutral interface. Postgres is the
// production backend; SQLite serves local runs and tests.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/red-door-collective/eviction-tracker/internal/config"
	"github.com/red-door-collective/eviction-tracker/internal/model"
)

// DocumentFilter narrows pleading-document sweeps.
type DocumentFilter struct {
	Kind      *model.PleadingKind
	NeedsText bool
	Since     *time.Time
	Limit     int
}

// Store is the case store shared by every pipeline stage.
type Store interface {
	// Cases
	GetOrCreateCase(ctx context.Context, docketID string) (*model.Case, bool, error)
	UpdateCase(ctx context.Context, c *model.Case) error
	GetCase(ctx context.Context, docketID string) (*model.Case, error)

	// Reference entities, deduplicated by name.
	GetOrCreatePlaintiff(ctx context.Context, name string) (int64, error)
	GetOrCreateAttorney(ctx context.Context, name string) (int64, error)
	GetOrCreateJudge(ctx context.Context, name string) (int64, error)
	GetOrCreateCourtroom(ctx context.Context, name string) (int64, error)
	GetOrCreateDefendant(ctx context.Context, d model.Defendant) (int64, error)

	// Detainer warrants
	UpsertDetainerWarrant(ctx context.Context, w *model.DetainerWarrant) error
	GetDetainerWarrant(ctx context.Context, docketID string) (*model.DetainerWarrant, error)
	SetAuditStatus(ctx context.Context, docketID string, status model.AuditStatus) error
	SetWarrantAddress(ctx context.Context, docketID, address string, certainty float64) error
	RecordPleadingCheck(ctx context.Context, docketID string, ok bool, mismatchedHTML string) error
	// CasesFiledBetween lists detainer warrant dockets filed inside
	// [start, end], newest first. pendingOnly drops closed cases.
	CasesFiledBetween(ctx context.Context, start, end time.Time, pendingOnly bool) ([]string, error)
	// PendingWarrants lists open detainer warrants whose pleading
	// documents check is stale or missing, newest first. Warrants
	// filed more than a year ago are skipped unless olderThanOneYear
	// widens the sweep.
	PendingWarrants(ctx context.Context, olderThanOneYear bool) ([]string, error)
	WarrantsMissingAddress(ctx context.Context) ([]string, error)
	MismatchedPleadingHTML(ctx context.Context) (map[string]string, error)
	LinkWarrantDefendant(ctx context.Context, docketID string, defendantID int64) error
	DefendantAddressCandidates(ctx context.Context, docketID string) ([]string, error)
	// Potential addresses are candidate property addresses for a
	// warrant, keyed by their text. Candidates coexist until one is
	// chosen; re-adding a known candidate is a no-op.
	AddPotentialAddress(ctx context.Context, docketID, address string) error
	PotentialAddresses(ctx context.Context, docketID string) ([]string, error)

	// Hearings
	UpsertHearing(ctx context.Context, h *model.Hearing) (int64, error)
	HearingNear(ctx context.Context, docketID string, around time.Time, withinDays int) (*model.Hearing, error)
	LinkHearingDefendant(ctx context.Context, hearingID, defendantID int64) error

	// Judgments
	UpsertJudgment(ctx context.Context, j *model.Judgment) (int64, error)

	// Pleading documents
	UpsertPleadingDocument(ctx context.Context, doc *model.PleadingDocument) error
	BulkInsertPleadingDocuments(ctx context.Context, docs []model.PleadingDocument) (int64, error)
	GetPleadingDocument(ctx context.Context, url string) (*model.PleadingDocument, error)
	ListPleadingDocuments(ctx context.Context, filter DocumentFilter) ([]model.PleadingDocument, error)
	OCRCandidates(ctx context.Context, since time.Time) ([]model.PleadingDocument, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// New opens the backend selected by cfg.
func New(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "postgres", "":
		return NewPostgres(ctx, cfg.DatabaseURL, nil)
	case "sqlite":
		return NewSQLite(cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
