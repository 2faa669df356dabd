package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"

	"github.com/red-door-collective/eviction-tracker/internal/db"
	"github.com/red-door-collective/eviction-tracker/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"insert_case":      `INSERT INTO cases (docket_id, order_number, type) VALUES ($1, $2, $3) ON CONFLICT (docket_id) DO NOTHING`,
	"get_case":         `SELECT docket_id, order_number, file_date, status, type, plaintiff_id, plaintiff_attorney_id, created_at, updated_at FROM cases WHERE docket_id = $1`,
	"get_document":     `SELECT url, docket_id, text, kind, status, created_at, updated_at FROM pleading_documents WHERE url = $1`,
	"insert_plaintiff": `INSERT INTO plaintiffs (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`,
	"get_plaintiff":    `SELECT id FROM plaintiffs WHERE name = $1`,
	"insert_attorney":  `INSERT INTO attorneys (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`,
	"get_attorney":     `SELECT id FROM attorneys WHERE name = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresFromPool wraps an existing pool, used by tests with pgxmock.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Pool returns the underlying database pool for use by subsystems that
// need direct query access (e.g., bulk pleading-document imports).
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS plaintiffs (
	id      BIGSERIAL PRIMARY KEY,
	name    TEXT NOT NULL UNIQUE,
	aliases TEXT[] NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS attorneys (
	id      BIGSERIAL PRIMARY KEY,
	name    TEXT NOT NULL UNIQUE,
	aliases TEXT[] NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS judges (
	id      BIGSERIAL PRIMARY KEY,
	name    TEXT NOT NULL UNIQUE,
	aliases TEXT[] NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS courtrooms (
	id      BIGSERIAL PRIMARY KEY,
	name    TEXT NOT NULL UNIQUE,
	aliases TEXT[] NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS defendants (
	id               BIGSERIAL PRIMARY KEY,
	first_name       TEXT NOT NULL DEFAULT '',
	middle_name      TEXT NOT NULL DEFAULT '',
	last_name        TEXT NOT NULL DEFAULT '',
	suffix           TEXT NOT NULL DEFAULT '',
	potential_phones TEXT NOT NULL DEFAULT '',
	address          TEXT NOT NULL DEFAULT '',
	UNIQUE (first_name, middle_name, last_name, suffix, potential_phones)
);

CREATE TABLE IF NOT EXISTS cases (
	docket_id             TEXT PRIMARY KEY,
	order_number          BIGINT NOT NULL,
	file_date             DATE,
	status                TEXT,
	type                  TEXT NOT NULL,
	plaintiff_id          BIGINT REFERENCES plaintiffs(id),
	plaintiff_attorney_id BIGINT REFERENCES attorneys(id),
	created_at            TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at            TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS detainer_warrants (
	docket_id                               TEXT PRIMARY KEY REFERENCES cases(docket_id),
	address                                 TEXT,
	address_certainty                       DOUBLE PRECISION,
	amount_claimed                          NUMERIC(12,2),
	claims_possession                       BOOLEAN,
	is_cares                                BOOLEAN,
	is_legacy                               BOOLEAN,
	nonpayment                              BOOLEAN,
	document_url                            TEXT,
	audit_status                            TEXT,
	pleading_document_check_was_successful  BOOLEAN,
	pleading_document_check_mismatched_html TEXT,
	last_pleading_documents_check           TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS hearings (
	id                    BIGSERIAL PRIMARY KEY,
	court_date            TIMESTAMPTZ NOT NULL,
	docket_id             TEXT NOT NULL REFERENCES cases(docket_id),
	address               TEXT,
	court_order_number    INTEGER,
	continuance_on        DATE,
	courtroom_id          BIGINT REFERENCES courtrooms(id),
	plaintiff_id          BIGINT REFERENCES plaintiffs(id),
	plaintiff_attorney_id BIGINT REFERENCES attorneys(id),
	defendant_attorney_id BIGINT REFERENCES attorneys(id),
	UNIQUE (court_date, docket_id)
);

CREATE TABLE IF NOT EXISTS hearing_defendants (
	hearing_id   BIGINT NOT NULL REFERENCES hearings(id),
	defendant_id BIGINT NOT NULL REFERENCES defendants(id),
	PRIMARY KEY (hearing_id, defendant_id)
);

CREATE TABLE IF NOT EXISTS detainer_warrant_defendants (
	docket_id    TEXT NOT NULL REFERENCES cases(docket_id),
	defendant_id BIGINT NOT NULL REFERENCES defendants(id),
	PRIMARY KEY (docket_id, defendant_id)
);

CREATE TABLE IF NOT EXISTS addresses (
	text       TEXT PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS detainer_warrant_addresses (
	docket_id  TEXT NOT NULL REFERENCES cases(docket_id),
	address_id TEXT NOT NULL REFERENCES addresses(text),
	PRIMARY KEY (docket_id, address_id)
);

CREATE TABLE IF NOT EXISTS judgments (
	id                    BIGSERIAL PRIMARY KEY,
	hearing_id            BIGINT NOT NULL UNIQUE REFERENCES hearings(id),
	detainer_warrant_id   TEXT NOT NULL REFERENCES cases(docket_id),
	in_favor_of           TEXT,
	awards_possession     BOOLEAN,
	awards_fees           NUMERIC(12,2),
	entered_by            TEXT,
	interest              BOOLEAN,
	interest_rate         NUMERIC(6,3),
	interest_follows_site BOOLEAN,
	dismissal_basis       TEXT,
	with_prejudice        BOOLEAN,
	file_date             DATE,
	judge_id              BIGINT REFERENCES judges(id),
	plaintiff_id          BIGINT REFERENCES plaintiffs(id),
	courtroom_id          BIGINT REFERENCES courtrooms(id),
	document_url          TEXT
);

CREATE TABLE IF NOT EXISTS pleading_documents (
	url        TEXT PRIMARY KEY,
	docket_id  TEXT NOT NULL REFERENCES cases(docket_id),
	text       TEXT,
	kind       INTEGER,
	status     INTEGER,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_cases_order_number ON cases(order_number);
CREATE INDEX IF NOT EXISTS idx_cases_status ON cases(status);
CREATE INDEX IF NOT EXISTS idx_hearings_docket_id ON hearings(docket_id);
CREATE INDEX IF NOT EXISTS idx_judgments_warrant ON judgments(detainer_warrant_id);
CREATE INDEX IF NOT EXISTS idx_documents_docket_id ON pleading_documents(docket_id);
CREATE INDEX IF NOT EXISTS idx_documents_kind ON pleading_documents(kind);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) GetOrCreateCase(ctx context.Context, docketID string) (*model.Case, bool, error) {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO cases (docket_id, order_number, type) VALUES ($1, $2, $3) ON CONFLICT (docket_id) DO NOTHING`,
		docketID, model.OrderNumber(docketID), string(model.ClassifyDocket(docketID)),
	)
	if err != nil {
		return nil, false, eris.Wrapf(err, "postgres: insert case %s", docketID)
	}
	c, err := s.GetCase(ctx, docketID)
	if err != nil {
		return nil, false, err
	}
	return c, tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) GetCase(ctx context.Context, docketID string) (*model.Case, error) {
	var c model.Case
	var status *string
	var caseType string
	err := s.pool.QueryRow(ctx,
		`SELECT docket_id, order_number, file_date, status, type, plaintiff_id, plaintiff_attorney_id, created_at, updated_at
		 FROM cases WHERE docket_id = $1`,
		docketID,
	).Scan(&c.DocketID, &c.OrderNumber, &c.FileDate, &status, &caseType,
		&c.PlaintiffID, &c.PlaintiffAttorney, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get case %s", docketID)
	}
	if status != nil {
		cs := model.CaseStatus(*status)
		c.Status = &cs
	}
	c.Type = model.CaseType(caseType)
	return &c, nil
}

func (s *PostgresStore) UpdateCase(ctx context.Context, c *model.Case) error {
	var status *string
	if c.Status != nil {
		v := string(*c.Status)
		status = &v
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE cases SET
			file_date = COALESCE($2, file_date),
			status = COALESCE($3, status),
			plaintiff_id = COALESCE($4, plaintiff_id),
			plaintiff_attorney_id = COALESCE($5, plaintiff_attorney_id),
			updated_at = now()
		 WHERE docket_id = $1`,
		c.DocketID, c.FileDate, status, c.PlaintiffID, c.PlaintiffAttorney,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update case %s", c.DocketID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("case not found: %s", c.DocketID)
	}
	return nil
}

func (s *PostgresStore) GetOrCreatePlaintiff(ctx context.Context, name string) (int64, error) {
	return s.getOrCreateNamed(ctx, "plaintiffs", name)
}

func (s *PostgresStore) GetOrCreateAttorney(ctx context.Context, name string) (int64, error) {
	return s.getOrCreateNamed(ctx, "attorneys", name)
}

func (s *PostgresStore) GetOrCreateJudge(ctx context.Context, name string) (int64, error) {
	return s.getOrCreateNamed(ctx, "judges", name)
}

func (s *PostgresStore) GetOrCreateCourtroom(ctx context.Context, name string) (int64, error) {
	return s.getOrCreateNamed(ctx, "courtrooms", name)
}

func (s *PostgresStore) getOrCreateNamed(ctx context.Context, table, name string) (int64, error) {
	ident := pgx.Identifier{table}.Sanitize()
	_, err := s.pool.Exec(ctx,
		fmt.Sprintf(`INSERT INTO %s (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, ident),
		name,
	)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: insert into %s", table)
	}
	var id int64
	err = s.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT id FROM %s WHERE name = $1`, ident),
		name,
	).Scan(&id)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: select from %s", table)
	}
	return id, nil
}

func (s *PostgresStore) GetOrCreateDefendant(ctx context.Context, d model.Defendant) (int64, error) {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO defendants (first_name, middle_name, last_name, suffix, potential_phones, address)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (first_name, middle_name, last_name, suffix, potential_phones) DO UPDATE SET
			address = COALESCE(NULLIF(defendants.address, ''), EXCLUDED.address)`,
		d.FirstName, d.MiddleName, d.LastName, d.Suffix, d.PotentialPhones, d.Address,
	)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: insert defendant")
	}
	var id int64
	err = s.pool.QueryRow(ctx,
		`SELECT id FROM defendants
		 WHERE first_name = $1 AND middle_name = $2 AND last_name = $3 AND suffix = $4 AND potential_phones = $5`,
		d.FirstName, d.MiddleName, d.LastName, d.Suffix, d.PotentialPhones,
	).Scan(&id)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: select defendant")
	}
	return id, nil
}

func (s *PostgresStore) UpsertDetainerWarrant(ctx context.Context, w *model.DetainerWarrant) error {
	if _, _, err := s.GetOrCreateCase(ctx, w.DocketID); err != nil {
		return err
	}
	var audit *string
	if w.AuditStatus != nil {
		v := string(*w.AuditStatus)
		audit = &v
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO detainer_warrants
			(docket_id, address, address_certainty, amount_claimed, claims_possession,
			 is_cares, is_legacy, nonpayment, document_url, audit_status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (docket_id) DO UPDATE SET
			address           = COALESCE(EXCLUDED.address, detainer_warrants.address),
			address_certainty = COALESCE(EXCLUDED.address_certainty, detainer_warrants.address_certainty),
			amount_claimed    = COALESCE(EXCLUDED.amount_claimed, detainer_warrants.amount_claimed),
			claims_possession = COALESCE(EXCLUDED.claims_possession, detainer_warrants.claims_possession),
			is_cares          = COALESCE(EXCLUDED.is_cares, detainer_warrants.is_cares),
			is_legacy         = COALESCE(EXCLUDED.is_legacy, detainer_warrants.is_legacy),
			nonpayment        = COALESCE(EXCLUDED.nonpayment, detainer_warrants.nonpayment),
			document_url      = COALESCE(EXCLUDED.document_url, detainer_warrants.document_url),
			audit_status      = COALESCE(EXCLUDED.audit_status, detainer_warrants.audit_status)`,
		w.DocketID, w.Address, w.AddressCertainty, decimalArg(w.AmountClaimed),
		w.ClaimsPossession, w.IsCares, w.IsLegacy, w.Nonpayment, w.DocumentURL, audit,
	)
	return eris.Wrapf(err, "postgres: upsert warrant %s", w.DocketID)
}

func (s *PostgresStore) GetDetainerWarrant(ctx context.Context, docketID string) (*model.DetainerWarrant, error) {
	w := model.DetainerWarrant{DocketID: docketID}
	var audit *string
	var amount decimal.NullDecimal
	err := s.pool.QueryRow(ctx,
		`SELECT address, address_certainty, amount_claimed, claims_possession,
		        is_cares, is_legacy, nonpayment, document_url, audit_status,
		        pleading_document_check_was_successful,
		        pleading_document_check_mismatched_html,
		        last_pleading_documents_check
		 FROM detainer_warrants WHERE docket_id = $1`,
		docketID,
	).Scan(&w.Address, &w.AddressCertainty, &amount, &w.ClaimsPossession,
		&w.IsCares, &w.IsLegacy, &w.Nonpayment, &w.DocumentURL, &audit,
		&w.PleadingDocumentCheckWasSuccessful,
		&w.PleadingDocumentCheckMismatchedHTML,
		&w.LastPleadingDocumentsCheck)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get warrant %s", docketID)
	}
	if audit != nil {
		v := model.AuditStatus(*audit)
		w.AuditStatus = &v
	}
	if amount.Valid {
		w.AmountClaimed = &amount.Decimal
	}
	return &w, nil
}

// SetAuditStatus advances a warrant's audit state, folding the new
// confirmation into whatever was already confirmed.
func (s *PostgresStore) SetAuditStatus(ctx context.Context, docketID string, status model.AuditStatus) error {
	w, err := s.GetDetainerWarrant(ctx, docketID)
	if err != nil {
		return err
	}
	var current *model.AuditStatus
	if w != nil {
		current = w.AuditStatus
	}
	next := model.NextAuditStatus(current, status)
	return s.UpsertDetainerWarrant(ctx, &model.DetainerWarrant{
		DocketID:    docketID,
		AuditStatus: &next,
	})
}

func (s *PostgresStore) SetWarrantAddress(ctx context.Context, docketID, address string, certainty float64) error {
	return s.UpsertDetainerWarrant(ctx, &model.DetainerWarrant{
		DocketID:         docketID,
		Address:          &address,
		AddressCertainty: &certainty,
	})
}

func (s *PostgresStore) RecordPleadingCheck(ctx context.Context, docketID string, ok bool, mismatchedHTML string) error {
	if _, _, err := s.GetOrCreateCase(ctx, docketID); err != nil {
		return err
	}
	var html *string
	if mismatchedHTML != "" {
		html = &mismatchedHTML
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO detainer_warrants
			(docket_id, pleading_document_check_was_successful,
			 pleading_document_check_mismatched_html, last_pleading_documents_check)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (docket_id) DO UPDATE SET
			pleading_document_check_was_successful  = EXCLUDED.pleading_document_check_was_successful,
			pleading_document_check_mismatched_html = EXCLUDED.pleading_document_check_mismatched_html,
			last_pleading_documents_check           = now()`,
		docketID, ok, html,
	)
	return eris.Wrapf(err, "postgres: record pleading check %s", docketID)
}

func (s *PostgresStore) CasesFiledBetween(ctx context.Context, start, end time.Time, pendingOnly bool) ([]string, error) {
	return s.docketIDs(ctx,
		`SELECT docket_id FROM cases
		 WHERE type = 'detainer_warrant'
		   AND file_date >= $1 AND file_date <= $2
		   AND (NOT $3 OR status IS NULL OR status = 'PENDING')
		 ORDER BY order_number DESC`, start, end, pendingOnly)
}

func (s *PostgresStore) PendingWarrants(ctx context.Context, olderThanOneYear bool) ([]string, error) {
	return s.docketIDs(ctx,
		`SELECT c.docket_id FROM cases c
		 LEFT JOIN detainer_warrants dw ON dw.docket_id = c.docket_id
		 WHERE c.type = 'detainer_warrant'
		   AND (c.status IS NULL OR c.status = 'PENDING')
		   AND (dw.last_pleading_documents_check IS NULL
		        OR dw.last_pleading_documents_check < now() - interval '1 day')
		   AND ($1 OR c.file_date IS NULL OR c.file_date >= now() - interval '1 year')
		 ORDER BY c.order_number DESC`, olderThanOneYear)
}

func (s *PostgresStore) WarrantsMissingAddress(ctx context.Context) ([]string, error) {
	return s.docketIDs(ctx,
		`SELECT c.docket_id FROM cases c
		 LEFT JOIN detainer_warrants dw ON dw.docket_id = c.docket_id
		 WHERE c.type = 'detainer_warrant' AND dw.address IS NULL
		 ORDER BY c.order_number DESC`)
}

func (s *PostgresStore) docketIDs(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list docket ids")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "postgres: scan docket id")
		}
		ids = append(ids, id)
	}
	return ids, eris.Wrap(rows.Err(), "postgres: iterate docket ids")
}

func (s *PostgresStore) MismatchedPleadingHTML(ctx context.Context) (map[string]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT docket_id, pleading_document_check_mismatched_html
		 FROM detainer_warrants
		 WHERE pleading_document_check_mismatched_html IS NOT NULL`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list mismatched html")
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var id, html string
		if err := rows.Scan(&id, &html); err != nil {
			return nil, eris.Wrap(err, "postgres: scan mismatched html")
		}
		out[id] = html
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate mismatched html")
}

func (s *PostgresStore) LinkWarrantDefendant(ctx context.Context, docketID string, defendantID int64) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO detainer_warrant_defendants (docket_id, defendant_id)
		 VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		docketID, defendantID,
	)
	return eris.Wrapf(err, "postgres: link warrant defendant %s", docketID)
}

func (s *PostgresStore) DefendantAddressCandidates(ctx context.Context, docketID string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT d.address FROM detainer_warrant_defendants l
		 JOIN defendants d ON d.id = l.defendant_id
		 WHERE l.docket_id = $1 AND d.address <> ''
		 ORDER BY d.id`,
		docketID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: address candidates %s", docketID)
	}
	defer rows.Close()

	var addrs []string
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, eris.Wrap(err, "postgres: scan address candidate")
		}
		addrs = append(addrs, a)
	}
	return addrs, eris.Wrap(rows.Err(), "postgres: iterate address candidates")
}

func (s *PostgresStore) AddPotentialAddress(ctx context.Context, docketID, address string) error {
	if _, _, err := s.GetOrCreateCase(ctx, docketID); err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO addresses (text) VALUES ($1) ON CONFLICT (text) DO NOTHING`, address,
	); err != nil {
		return eris.Wrapf(err, "postgres: insert address %q", address)
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO detainer_warrant_addresses (docket_id, address_id)
		 VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		docketID, address,
	)
	return eris.Wrapf(err, "postgres: link address to %s", docketID)
}

func (s *PostgresStore) PotentialAddresses(ctx context.Context, docketID string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT a.text FROM detainer_warrant_addresses l
		 JOIN addresses a ON a.text = l.address_id
		 WHERE l.docket_id = $1
		 ORDER BY a.created_at, a.text`,
		docketID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: potential addresses %s", docketID)
	}
	defer rows.Close()

	var addrs []string
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, eris.Wrap(err, "postgres: scan potential address")
		}
		addrs = append(addrs, a)
	}
	return addrs, eris.Wrap(rows.Err(), "postgres: iterate potential addresses")
}

func (s *PostgresStore) UpsertHearing(ctx context.Context, h *model.Hearing) (int64, error) {
	if _, _, err := s.GetOrCreateCase(ctx, h.DocketID); err != nil {
		return 0, err
	}
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO hearings
			(court_date, docket_id, address, court_order_number, continuance_on,
			 courtroom_id, plaintiff_id, plaintiff_attorney_id, defendant_attorney_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (court_date, docket_id) DO UPDATE SET
			address               = COALESCE(NULLIF(EXCLUDED.address, ''), hearings.address),
			court_order_number    = COALESCE(EXCLUDED.court_order_number, hearings.court_order_number),
			continuance_on        = COALESCE(EXCLUDED.continuance_on, hearings.continuance_on),
			courtroom_id          = COALESCE(EXCLUDED.courtroom_id, hearings.courtroom_id),
			plaintiff_id          = COALESCE(EXCLUDED.plaintiff_id, hearings.plaintiff_id),
			plaintiff_attorney_id = COALESCE(EXCLUDED.plaintiff_attorney_id, hearings.plaintiff_attorney_id),
			defendant_attorney_id = COALESCE(EXCLUDED.defendant_attorney_id, hearings.defendant_attorney_id)
		 RETURNING id`,
		h.CourtDate, h.DocketID, h.Address, h.CourtOrderNumber, h.ContinuanceOn,
		h.CourtroomID, h.PlaintiffID, h.PlaintiffAttorneyID, h.DefendantAttorneyID,
	).Scan(&id)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: upsert hearing %s", h.DocketID)
	}
	h.ID = id
	return id, nil
}

func (s *PostgresStore) HearingNear(ctx context.Context, docketID string, around time.Time, withinDays int) (*model.Hearing, error) {
	from := around.AddDate(0, 0, -withinDays)
	to := around.AddDate(0, 0, withinDays+1)
	var h model.Hearing
	var address *string
	err := s.pool.QueryRow(ctx,
		`SELECT id, court_date, docket_id, address, court_order_number, continuance_on,
		        courtroom_id, plaintiff_id, plaintiff_attorney_id, defendant_attorney_id
		 FROM hearings
		 WHERE docket_id = $1 AND court_date >= $2 AND court_date < $3
		 ORDER BY ABS(EXTRACT(EPOCH FROM (court_date - $4::timestamptz)))
		 LIMIT 1`,
		docketID, from, to, around,
	).Scan(&h.ID, &h.CourtDate, &h.DocketID, &address, &h.CourtOrderNumber,
		&h.ContinuanceOn, &h.CourtroomID, &h.PlaintiffID, &h.PlaintiffAttorneyID,
		&h.DefendantAttorneyID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: hearing near %s", docketID)
	}
	if address != nil {
		h.Address = *address
	}
	return &h, nil
}

func (s *PostgresStore) LinkHearingDefendant(ctx context.Context, hearingID, defendantID int64) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO hearing_defendants (hearing_id, defendant_id)
		 VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		hearingID, defendantID,
	)
	return eris.Wrap(err, "postgres: link hearing defendant")
}

func (s *PostgresStore) UpsertJudgment(ctx context.Context, j *model.Judgment) (int64, error) {
	var inFavor, enteredBy, basis *string
	if j.InFavorOf != nil {
		v := string(*j.InFavorOf)
		inFavor = &v
	}
	if j.EnteredBy != nil {
		v := string(*j.EnteredBy)
		enteredBy = &v
	}
	if j.DismissalBasis != nil {
		v := string(*j.DismissalBasis)
		basis = &v
	}
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO judgments
			(hearing_id, detainer_warrant_id, in_favor_of, awards_possession, awards_fees,
			 entered_by, interest, interest_rate, interest_follows_site, dismissal_basis,
			 with_prejudice, file_date, judge_id, plaintiff_id, courtroom_id, document_url)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		 ON CONFLICT (hearing_id) DO UPDATE SET
			in_favor_of           = EXCLUDED.in_favor_of,
			awards_possession     = EXCLUDED.awards_possession,
			awards_fees           = EXCLUDED.awards_fees,
			entered_by            = EXCLUDED.entered_by,
			interest              = EXCLUDED.interest,
			interest_rate         = EXCLUDED.interest_rate,
			interest_follows_site = EXCLUDED.interest_follows_site,
			dismissal_basis       = EXCLUDED.dismissal_basis,
			with_prejudice        = EXCLUDED.with_prejudice,
			file_date             = EXCLUDED.file_date,
			judge_id              = COALESCE(EXCLUDED.judge_id, judgments.judge_id),
			plaintiff_id          = COALESCE(EXCLUDED.plaintiff_id, judgments.plaintiff_id),
			courtroom_id          = COALESCE(EXCLUDED.courtroom_id, judgments.courtroom_id),
			document_url          = COALESCE(EXCLUDED.document_url, judgments.document_url)
		 RETURNING id`,
		j.HearingID, j.DetainerWarrantID, inFavor, j.AwardsPossession, decimalArg(j.AwardsFees),
		enteredBy, j.Interest, decimalArg(j.InterestRate), j.InterestFollowsSite, basis,
		j.WithPrejudice, j.FileDate, j.JudgeID, j.PlaintiffID, j.CourtroomID, j.DocumentURL,
	).Scan(&id)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: upsert judgment for %s", j.DetainerWarrantID)
	}
	j.ID = id
	return id, nil
}

func (s *PostgresStore) UpsertPleadingDocument(ctx context.Context, doc *model.PleadingDocument) error {
	if _, _, err := s.GetOrCreateCase(ctx, doc.DocketID); err != nil {
		return err
	}
	var kind, status *int
	if doc.Kind != nil {
		v := int(*doc.Kind)
		kind = &v
	}
	if doc.Status != nil {
		v := int(*doc.Status)
		status = &v
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO pleading_documents (url, docket_id, text, kind, status)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (url) DO UPDATE SET
			text       = EXCLUDED.text,
			kind       = EXCLUDED.kind,
			status     = EXCLUDED.status,
			updated_at = now()`,
		doc.URL, doc.DocketID, doc.Text, kind, status,
	)
	return eris.Wrapf(err, "postgres: upsert document %s", doc.URL)
}

// BulkInsertPleadingDocuments inserts newly discovered document URLs via
// a temp-table upsert. Existing rows keep their text and classification.
func (s *PostgresStore) BulkInsertPleadingDocuments(ctx context.Context, docs []model.PleadingDocument) (int64, error) {
	pool, ok := s.pool.(*pgxpool.Pool)
	if !ok {
		// Mocked pool in tests: fall back to row-at-a-time inserts.
		var n int64
		for i := range docs {
			if err := s.insertDocumentShell(ctx, &docs[i]); err != nil {
				return n, err
			}
			n++
		}
		return n, nil
	}

	for i := range docs {
		if _, _, err := s.GetOrCreateCase(ctx, docs[i].DocketID); err != nil {
			return 0, err
		}
	}

	rows := make([][]any, len(docs))
	for i, d := range docs {
		rows[i] = []any{d.URL, d.DocketID}
	}
	return db.BulkUpsert(ctx, pool, db.UpsertConfig{
		Table:        "pleading_documents",
		Columns:      []string{"url", "docket_id"},
		ConflictKeys: []string{"url"},
		UpdateCols:   []string{"docket_id"},
	}, rows)
}

func (s *PostgresStore) insertDocumentShell(ctx context.Context, doc *model.PleadingDocument) error {
	if _, _, err := s.GetOrCreateCase(ctx, doc.DocketID); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO pleading_documents (url, docket_id) VALUES ($1, $2)
		 ON CONFLICT (url) DO UPDATE SET docket_id = EXCLUDED.docket_id`,
		doc.URL, doc.DocketID,
	)
	return eris.Wrapf(err, "postgres: insert document %s", doc.URL)
}

func (s *PostgresStore) GetPleadingDocument(ctx context.Context, url string) (*model.PleadingDocument, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT url, docket_id, text, kind, status, created_at, updated_at
		 FROM pleading_documents WHERE url = $1`,
		url,
	)
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get document %s", url)
	}
	return doc, nil
}

func (s *PostgresStore) ListPleadingDocuments(ctx context.Context, filter DocumentFilter) ([]model.PleadingDocument, error) {
	query := `SELECT url, docket_id, text, kind, status, created_at, updated_at
	          FROM pleading_documents WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Kind != nil {
		query += fmt.Sprintf(` AND kind = $%d`, argIdx)
		args = append(args, int(*filter.Kind))
		argIdx++
	}
	if filter.NeedsText {
		query += ` AND text IS NULL AND status IS NULL`
	}
	if filter.Since != nil {
		query += fmt.Sprintf(` AND created_at >= $%d`, argIdx)
		args = append(args, *filter.Since)
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 1000
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list documents")
	}
	defer rows.Close()

	var docs []model.PleadingDocument
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan document")
		}
		docs = append(docs, *doc)
	}
	return docs, eris.Wrap(rows.Err(), "postgres: iterate documents")
}

// OCRCandidates selects documents whose native extraction yielded text
// but no classification, keeping only the earliest document per docket.
func (s *PostgresStore) OCRCandidates(ctx context.Context, since time.Time) ([]model.PleadingDocument, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT url, docket_id, text, kind, status, created_at, updated_at FROM (
			SELECT *, ROW_NUMBER() OVER (PARTITION BY docket_id ORDER BY created_at ASC) AS rn
			FROM pleading_documents
			WHERE text IS NOT NULL AND kind IS NULL AND created_at >= $1
		 ) ranked WHERE rn = 1
		 ORDER BY created_at ASC`,
		since,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: ocr candidates")
	}
	defer rows.Close()

	var docs []model.PleadingDocument
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan ocr candidate")
		}
		docs = append(docs, *doc)
	}
	return docs, eris.Wrap(rows.Err(), "postgres: iterate ocr candidates")
}

type scannable interface {
	Scan(dest ...any) error
}

func scanDocument(row scannable) (*model.PleadingDocument, error) {
	var doc model.PleadingDocument
	var kind, status *int
	if err := row.Scan(&doc.URL, &doc.DocketID, &doc.Text, &kind, &status,
		&doc.CreatedAt, &doc.UpdatedAt); err != nil {
		return nil, err
	}
	if kind != nil {
		v := model.PleadingKind(*kind)
		doc.Kind = &v
	}
	if status != nil {
		v := model.PleadingStatus(*status)
		doc.Status = &v
	}
	return &doc, nil
}

func decimalArg(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}
