package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/red-door-collective/eviction-tracker/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS plaintiffs (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	name    TEXT NOT NULL UNIQUE,
	aliases TEXT NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS attorneys (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	name    TEXT NOT NULL UNIQUE,
	aliases TEXT NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS judges (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	name    TEXT NOT NULL UNIQUE,
	aliases TEXT NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS courtrooms (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	name    TEXT NOT NULL UNIQUE,
	aliases TEXT NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS defendants (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
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
	order_number          INTEGER NOT NULL,
	file_date             DATETIME,
	status                TEXT,
	type                  TEXT NOT NULL,
	plaintiff_id          INTEGER REFERENCES plaintiffs(id),
	plaintiff_attorney_id INTEGER REFERENCES attorneys(id),
	created_at            DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at            DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS detainer_warrants (
	docket_id                               TEXT PRIMARY KEY REFERENCES cases(docket_id),
	address                                 TEXT,
	address_certainty                       REAL,
	amount_claimed                          TEXT,
	claims_possession                       INTEGER,
	is_cares                                INTEGER,
	is_legacy                               INTEGER,
	nonpayment                              INTEGER,
	document_url                            TEXT,
	audit_status                            TEXT,
	pleading_document_check_was_successful  INTEGER,
	pleading_document_check_mismatched_html TEXT,
	last_pleading_documents_check           DATETIME
);

CREATE TABLE IF NOT EXISTS hearings (
	id                    INTEGER PRIMARY KEY AUTOINCREMENT,
	court_date            DATETIME NOT NULL,
	docket_id             TEXT NOT NULL REFERENCES cases(docket_id),
	address               TEXT,
	court_order_number    INTEGER,
	continuance_on        DATETIME,
	courtroom_id          INTEGER REFERENCES courtrooms(id),
	plaintiff_id          INTEGER REFERENCES plaintiffs(id),
	plaintiff_attorney_id INTEGER REFERENCES attorneys(id),
	defendant_attorney_id INTEGER REFERENCES attorneys(id),
	UNIQUE (court_date, docket_id)
);

CREATE TABLE IF NOT EXISTS hearing_defendants (
	hearing_id   INTEGER NOT NULL REFERENCES hearings(id),
	defendant_id INTEGER NOT NULL REFERENCES defendants(id),
	PRIMARY KEY (hearing_id, defendant_id)
);

CREATE TABLE IF NOT EXISTS detainer_warrant_defendants (
	docket_id    TEXT NOT NULL REFERENCES cases(docket_id),
	defendant_id INTEGER NOT NULL REFERENCES defendants(id),
	PRIMARY KEY (docket_id, defendant_id)
);

CREATE TABLE IF NOT EXISTS addresses (
	text       TEXT PRIMARY KEY,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS detainer_warrant_addresses (
	docket_id  TEXT NOT NULL REFERENCES cases(docket_id),
	address_id TEXT NOT NULL REFERENCES addresses(text),
	PRIMARY KEY (docket_id, address_id)
);

CREATE TABLE IF NOT EXISTS judgments (
	id                    INTEGER PRIMARY KEY AUTOINCREMENT,
	hearing_id            INTEGER NOT NULL UNIQUE REFERENCES hearings(id),
	detainer_warrant_id   TEXT NOT NULL REFERENCES cases(docket_id),
	in_favor_of           TEXT,
	awards_possession     INTEGER,
	awards_fees           TEXT,
	entered_by            TEXT,
	interest              INTEGER,
	interest_rate         TEXT,
	interest_follows_site INTEGER,
	dismissal_basis       TEXT,
	with_prejudice        INTEGER,
	file_date             DATETIME,
	judge_id              INTEGER REFERENCES judges(id),
	plaintiff_id          INTEGER REFERENCES plaintiffs(id),
	courtroom_id          INTEGER REFERENCES courtrooms(id),
	document_url          TEXT
);

CREATE TABLE IF NOT EXISTS pleading_documents (
	url        TEXT PRIMARY KEY,
	docket_id  TEXT NOT NULL REFERENCES cases(docket_id),
	text       TEXT,
	kind       INTEGER,
	status     INTEGER,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_cases_order_number ON cases(order_number);
CREATE INDEX IF NOT EXISTS idx_cases_status ON cases(status);
CREATE INDEX IF NOT EXISTS idx_hearings_docket_id ON hearings(docket_id);
CREATE INDEX IF NOT EXISTS idx_judgments_warrant ON judgments(detainer_warrant_id);
CREATE INDEX IF NOT EXISTS idx_documents_docket_id ON pleading_documents(docket_id);
CREATE INDEX IF NOT EXISTS idx_documents_kind ON pleading_documents(kind);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetOrCreateCase(ctx context.Context, docketID string) (*model.Case, bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO cases (docket_id, order_number, type) VALUES (?, ?, ?) ON CONFLICT (docket_id) DO NOTHING`,
		docketID, model.OrderNumber(docketID), string(model.ClassifyDocket(docketID)),
	)
	if err != nil {
		return nil, false, eris.Wrapf(err, "sqlite: insert case %s", docketID)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, false, eris.Wrap(err, "sqlite: rows affected")
	}
	c, err := s.GetCase(ctx, docketID)
	if err != nil {
		return nil, false, err
	}
	return c, affected > 0, nil
}

func (s *SQLiteStore) GetCase(ctx context.Context, docketID string) (*model.Case, error) {
	var c model.Case
	var fileDate sql.NullTime
	var status sql.NullString
	var caseType string
	var plaintiffID, attorneyID sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT docket_id, order_number, file_date, status, type, plaintiff_id, plaintiff_attorney_id, created_at, updated_at
		 FROM cases WHERE docket_id = ?`,
		docketID,
	).Scan(&c.DocketID, &c.OrderNumber, &fileDate, &status, &caseType,
		&plaintiffID, &attorneyID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get case %s", docketID)
	}
	if fileDate.Valid {
		c.FileDate = &fileDate.Time
	}
	if status.Valid {
		cs := model.CaseStatus(status.String)
		c.Status = &cs
	}
	c.Type = model.CaseType(caseType)
	if plaintiffID.Valid {
		c.PlaintiffID = &plaintiffID.Int64
	}
	if attorneyID.Valid {
		c.PlaintiffAttorney = &attorneyID.Int64
	}
	return &c, nil
}

func (s *SQLiteStore) UpdateCase(ctx context.Context, c *model.Case) error {
	var status *string
	if c.Status != nil {
		v := string(*c.Status)
		status = &v
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE cases SET
			file_date = COALESCE(?, file_date),
			status = COALESCE(?, status),
			plaintiff_id = COALESCE(?, plaintiff_id),
			plaintiff_attorney_id = COALESCE(?, plaintiff_attorney_id),
			updated_at = datetime('now')
		 WHERE docket_id = ?`,
		c.FileDate, status, c.PlaintiffID, c.PlaintiffAttorney, c.DocketID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update case %s", c.DocketID)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if affected == 0 {
		return eris.Errorf("case not found: %s", c.DocketID)
	}
	return nil
}

func (s *SQLiteStore) GetOrCreatePlaintiff(ctx context.Context, name string) (int64, error) {
	return s.getOrCreateNamed(ctx, "plaintiffs", name)
}

func (s *SQLiteStore) GetOrCreateAttorney(ctx context.Context, name string) (int64, error) {
	return s.getOrCreateNamed(ctx, "attorneys", name)
}

func (s *SQLiteStore) GetOrCreateJudge(ctx context.Context, name string) (int64, error) {
	return s.getOrCreateNamed(ctx, "judges", name)
}

func (s *SQLiteStore) GetOrCreateCourtroom(ctx context.Context, name string) (int64, error) {
	return s.getOrCreateNamed(ctx, "courtrooms", name)
}

func (s *SQLiteStore) getOrCreateNamed(ctx context.Context, table, name string) (int64, error) {
	_, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT OR IGNORE INTO %s (name) VALUES (?)`, table),
		name,
	)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: insert into %s", table)
	}
	var id int64
	err = s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT id FROM %s WHERE name = ?`, table),
		name,
	).Scan(&id)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: select from %s", table)
	}
	return id, nil
}

func (s *SQLiteStore) GetOrCreateDefendant(ctx context.Context, d model.Defendant) (int64, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO defendants (first_name, middle_name, last_name, suffix, potential_phones, address)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (first_name, middle_name, last_name, suffix, potential_phones) DO UPDATE SET
			address = COALESCE(NULLIF(address, ''), excluded.address)`,
		d.FirstName, d.MiddleName, d.LastName, d.Suffix, d.PotentialPhones, d.Address,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: insert defendant")
	}
	var id int64
	err = s.db.QueryRowContext(ctx,
		`SELECT id FROM defendants
		 WHERE first_name = ? AND middle_name = ? AND last_name = ? AND suffix = ? AND potential_phones = ?`,
		d.FirstName, d.MiddleName, d.LastName, d.Suffix, d.PotentialPhones,
	).Scan(&id)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: select defendant")
	}
	return id, nil
}

func (s *SQLiteStore) UpsertDetainerWarrant(ctx context.Context, w *model.DetainerWarrant) error {
	if _, _, err := s.GetOrCreateCase(ctx, w.DocketID); err != nil {
		return err
	}
	var audit *string
	if w.AuditStatus != nil {
		v := string(*w.AuditStatus)
		audit = &v
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO detainer_warrants
			(docket_id, address, address_certainty, amount_claimed, claims_possession,
			 is_cares, is_legacy, nonpayment, document_url, audit_status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (docket_id) DO UPDATE SET
			address           = COALESCE(excluded.address, address),
			address_certainty = COALESCE(excluded.address_certainty, address_certainty),
			amount_claimed    = COALESCE(excluded.amount_claimed, amount_claimed),
			claims_possession = COALESCE(excluded.claims_possession, claims_possession),
			is_cares          = COALESCE(excluded.is_cares, is_cares),
			is_legacy         = COALESCE(excluded.is_legacy, is_legacy),
			nonpayment        = COALESCE(excluded.nonpayment, nonpayment),
			document_url      = COALESCE(excluded.document_url, document_url),
			audit_status      = COALESCE(excluded.audit_status, audit_status)`,
		w.DocketID, w.Address, w.AddressCertainty, decimalText(w.AmountClaimed),
		boolArg(w.ClaimsPossession), boolArg(w.IsCares), boolArg(w.IsLegacy),
		boolArg(w.Nonpayment), w.DocumentURL, audit,
	)
	return eris.Wrapf(err, "sqlite: upsert warrant %s", w.DocketID)
}

func (s *SQLiteStore) GetDetainerWarrant(ctx context.Context, docketID string) (*model.DetainerWarrant, error) {
	w := model.DetainerWarrant{DocketID: docketID}
	var address, amount, docURL, audit, mismatched sql.NullString
	var certainty sql.NullFloat64
	var possession, cares, legacy, nonpayment, checkOK sql.NullBool
	var lastCheck sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT address, address_certainty, amount_claimed, claims_possession,
		        is_cares, is_legacy, nonpayment, document_url, audit_status,
		        pleading_document_check_was_successful,
		        pleading_document_check_mismatched_html,
		        last_pleading_documents_check
		 FROM detainer_warrants WHERE docket_id = ?`,
		docketID,
	).Scan(&address, &certainty, &amount, &possession, &cares, &legacy,
		&nonpayment, &docURL, &audit, &checkOK, &mismatched, &lastCheck)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: get warrant %s", docketID)
	}
	if address.Valid {
		w.Address = &address.String
	}
	if certainty.Valid {
		w.AddressCertainty = &certainty.Float64
	}
	if amount.Valid {
		d, err := decimal.NewFromString(amount.String)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: parse amount for %s", docketID)
		}
		w.AmountClaimed = &d
	}
	if possession.Valid {
		w.ClaimsPossession = &possession.Bool
	}
	if cares.Valid {
		w.IsCares = &cares.Bool
	}
	if legacy.Valid {
		w.IsLegacy = &legacy.Bool
	}
	if nonpayment.Valid {
		w.Nonpayment = &nonpayment.Bool
	}
	if docURL.Valid {
		w.DocumentURL = &docURL.String
	}
	if audit.Valid {
		v := model.AuditStatus(audit.String)
		w.AuditStatus = &v
	}
	if checkOK.Valid {
		w.PleadingDocumentCheckWasSuccessful = &checkOK.Bool
	}
	if mismatched.Valid {
		w.PleadingDocumentCheckMismatchedHTML = &mismatched.String
	}
	if lastCheck.Valid {
		w.LastPleadingDocumentsCheck = &lastCheck.Time
	}
	return &w, nil
}

func (s *SQLiteStore) SetAuditStatus(ctx context.Context, docketID string, status model.AuditStatus) error {
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

func (s *SQLiteStore) SetWarrantAddress(ctx context.Context, docketID, address string, certainty float64) error {
	return s.UpsertDetainerWarrant(ctx, &model.DetainerWarrant{
		DocketID:         docketID,
		Address:          &address,
		AddressCertainty: &certainty,
	})
}

func (s *SQLiteStore) RecordPleadingCheck(ctx context.Context, docketID string, ok bool, mismatchedHTML string) error {
	if _, _, err := s.GetOrCreateCase(ctx, docketID); err != nil {
		return err
	}
	var html *string
	if mismatchedHTML != "" {
		html = &mismatchedHTML
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO detainer_warrants
			(docket_id, pleading_document_check_was_successful,
			 pleading_document_check_mismatched_html, last_pleading_documents_check)
		 VALUES (?, ?, ?, datetime('now'))
		 ON CONFLICT (docket_id) DO UPDATE SET
			pleading_document_check_was_successful  = excluded.pleading_document_check_was_successful,
			pleading_document_check_mismatched_html = excluded.pleading_document_check_mismatched_html,
			last_pleading_documents_check           = datetime('now')`,
		docketID, ok, html,
	)
	return eris.Wrapf(err, "sqlite: record pleading check %s", docketID)
}

func (s *SQLiteStore) CasesFiledBetween(ctx context.Context, start, end time.Time, pendingOnly bool) ([]string, error) {
	return s.docketIDs(ctx,
		`SELECT docket_id FROM cases
		 WHERE type = 'detainer_warrant'
		   AND file_date >= ?1 AND file_date <= ?2
		   AND (?3 = 0 OR status IS NULL OR status = 'PENDING')
		 ORDER BY order_number DESC`, start, end, pendingOnly)
}

func (s *SQLiteStore) PendingWarrants(ctx context.Context, olderThanOneYear bool) ([]string, error) {
	return s.docketIDs(ctx,
		`SELECT c.docket_id FROM cases c
		 LEFT JOIN detainer_warrants dw ON dw.docket_id = c.docket_id
		 WHERE c.type = 'detainer_warrant'
		   AND (c.status IS NULL OR c.status = 'PENDING')
		   AND (dw.last_pleading_documents_check IS NULL
		        OR dw.last_pleading_documents_check < datetime('now', '-1 day'))
		   AND (?1 OR c.file_date IS NULL OR c.file_date >= date('now', '-1 year'))
		 ORDER BY c.order_number DESC`, olderThanOneYear)
}

func (s *SQLiteStore) WarrantsMissingAddress(ctx context.Context) ([]string, error) {
	return s.docketIDs(ctx,
		`SELECT c.docket_id FROM cases c
		 LEFT JOIN detainer_warrants dw ON dw.docket_id = c.docket_id
		 WHERE c.type = 'detainer_warrant' AND dw.address IS NULL
		 ORDER BY c.order_number DESC`)
}

func (s *SQLiteStore) docketIDs(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list docket ids")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan docket id")
		}
		ids = append(ids, id)
	}
	return ids, eris.Wrap(rows.Err(), "sqlite: iterate docket ids")
}

func (s *SQLiteStore) MismatchedPleadingHTML(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT docket_id, pleading_document_check_mismatched_html
		 FROM detainer_warrants
		 WHERE pleading_document_check_mismatched_html IS NOT NULL`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list mismatched html")
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var id, html string
		if err := rows.Scan(&id, &html); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan mismatched html")
		}
		out[id] = html
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate mismatched html")
}

func (s *SQLiteStore) LinkWarrantDefendant(ctx context.Context, docketID string, defendantID int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO detainer_warrant_defendants (docket_id, defendant_id) VALUES (?, ?)`,
		docketID, defendantID,
	)
	return eris.Wrapf(err, "sqlite: link warrant defendant %s", docketID)
}

func (s *SQLiteStore) DefendantAddressCandidates(ctx context.Context, docketID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT d.address FROM detainer_warrant_defendants l
		 JOIN defendants d ON d.id = l.defendant_id
		 WHERE l.docket_id = ? AND d.address <> ''
		 ORDER BY d.id`,
		docketID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: address candidates %s", docketID)
	}
	defer rows.Close()

	var addrs []string
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan address candidate")
		}
		addrs = append(addrs, a)
	}
	return addrs, eris.Wrap(rows.Err(), "sqlite: iterate address candidates")
}

func (s *SQLiteStore) AddPotentialAddress(ctx context.Context, docketID, address string) error {
	if _, _, err := s.GetOrCreateCase(ctx, docketID); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO addresses (text) VALUES (?)`, address,
	); err != nil {
		return eris.Wrapf(err, "sqlite: insert address %q", address)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO detainer_warrant_addresses (docket_id, address_id) VALUES (?, ?)`,
		docketID, address,
	)
	return eris.Wrapf(err, "sqlite: link address to %s", docketID)
}

func (s *SQLiteStore) PotentialAddresses(ctx context.Context, docketID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT a.text FROM detainer_warrant_addresses l
		 JOIN addresses a ON a.text = l.address_id
		 WHERE l.docket_id = ?
		 ORDER BY a.created_at, a.text`,
		docketID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: potential addresses %s", docketID)
	}
	defer rows.Close()

	var addrs []string
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan potential address")
		}
		addrs = append(addrs, a)
	}
	return addrs, eris.Wrap(rows.Err(), "sqlite: iterate potential addresses")
}

func (s *SQLiteStore) UpsertHearing(ctx context.Context, h *model.Hearing) (int64, error) {
	if _, _, err := s.GetOrCreateCase(ctx, h.DocketID); err != nil {
		return 0, err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO hearings
			(court_date, docket_id, address, court_order_number, continuance_on,
			 courtroom_id, plaintiff_id, plaintiff_attorney_id, defendant_attorney_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (court_date, docket_id) DO UPDATE SET
			address               = COALESCE(NULLIF(excluded.address, ''), address),
			court_order_number    = COALESCE(excluded.court_order_number, court_order_number),
			continuance_on        = COALESCE(excluded.continuance_on, continuance_on),
			courtroom_id          = COALESCE(excluded.courtroom_id, courtroom_id),
			plaintiff_id          = COALESCE(excluded.plaintiff_id, plaintiff_id),
			plaintiff_attorney_id = COALESCE(excluded.plaintiff_attorney_id, plaintiff_attorney_id),
			defendant_attorney_id = COALESCE(excluded.defendant_attorney_id, defendant_attorney_id)`,
		h.CourtDate, h.DocketID, h.Address, h.CourtOrderNumber, h.ContinuanceOn,
		h.CourtroomID, h.PlaintiffID, h.PlaintiffAttorneyID, h.DefendantAttorneyID,
	)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: upsert hearing %s", h.DocketID)
	}
	var id int64
	err = s.db.QueryRowContext(ctx,
		`SELECT id FROM hearings WHERE court_date = ? AND docket_id = ?`,
		h.CourtDate, h.DocketID,
	).Scan(&id)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: select hearing %s", h.DocketID)
	}
	h.ID = id
	return id, nil
}

func (s *SQLiteStore) HearingNear(ctx context.Context, docketID string, around time.Time, withinDays int) (*model.Hearing, error) {
	from := around.AddDate(0, 0, -withinDays)
	to := around.AddDate(0, 0, withinDays+1)
	var h model.Hearing
	var address sql.NullString
	var orderNum, courtroomID, plaintiffID, pAttyID, dAttyID sql.NullInt64
	var continuance sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT id, court_date, docket_id, address, court_order_number, continuance_on,
		        courtroom_id, plaintiff_id, plaintiff_attorney_id, defendant_attorney_id
		 FROM hearings
		 WHERE docket_id = ? AND court_date >= ? AND court_date < ?
		 ORDER BY ABS(strftime('%s', court_date) - strftime('%s', ?))
		 LIMIT 1`,
		docketID, from, to, around,
	).Scan(&h.ID, &h.CourtDate, &h.DocketID, &address, &orderNum, &continuance,
		&courtroomID, &plaintiffID, &pAttyID, &dAttyID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: hearing near %s", docketID)
	}
	if address.Valid {
		h.Address = address.String
	}
	if orderNum.Valid {
		h.CourtOrderNumber = &orderNum.Int64
	}
	if continuance.Valid {
		h.ContinuanceOn = &continuance.Time
	}
	if courtroomID.Valid {
		h.CourtroomID = &courtroomID.Int64
	}
	if plaintiffID.Valid {
		h.PlaintiffID = &plaintiffID.Int64
	}
	if pAttyID.Valid {
		h.PlaintiffAttorneyID = &pAttyID.Int64
	}
	if dAttyID.Valid {
		h.DefendantAttorneyID = &dAttyID.Int64
	}
	return &h, nil
}

func (s *SQLiteStore) LinkHearingDefendant(ctx context.Context, hearingID, defendantID int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO hearing_defendants (hearing_id, defendant_id) VALUES (?, ?)`,
		hearingID, defendantID,
	)
	return eris.Wrap(err, "sqlite: link hearing defendant")
}

func (s *SQLiteStore) UpsertJudgment(ctx context.Context, j *model.Judgment) (int64, error) {
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
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO judgments
			(hearing_id, detainer_warrant_id, in_favor_of, awards_possession, awards_fees,
			 entered_by, interest, interest_rate, interest_follows_site, dismissal_basis,
			 with_prejudice, file_date, judge_id, plaintiff_id, courtroom_id, document_url)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (hearing_id) DO UPDATE SET
			in_favor_of           = excluded.in_favor_of,
			awards_possession     = excluded.awards_possession,
			awards_fees           = excluded.awards_fees,
			entered_by            = excluded.entered_by,
			interest              = excluded.interest,
			interest_rate         = excluded.interest_rate,
			interest_follows_site = excluded.interest_follows_site,
			dismissal_basis       = excluded.dismissal_basis,
			with_prejudice        = excluded.with_prejudice,
			file_date             = excluded.file_date,
			judge_id              = COALESCE(excluded.judge_id, judge_id),
			plaintiff_id          = COALESCE(excluded.plaintiff_id, plaintiff_id),
			courtroom_id          = COALESCE(excluded.courtroom_id, courtroom_id),
			document_url          = COALESCE(excluded.document_url, document_url)`,
		j.HearingID, j.DetainerWarrantID, inFavor, boolArg(j.AwardsPossession),
		decimalText(j.AwardsFees), enteredBy, boolArg(j.Interest),
		decimalText(j.InterestRate), boolArg(j.InterestFollowsSite), basis,
		boolArg(j.WithPrejudice), j.FileDate, j.JudgeID, j.PlaintiffID,
		j.CourtroomID, j.DocumentURL,
	)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: upsert judgment for %s", j.DetainerWarrantID)
	}
	var id int64
	err = s.db.QueryRowContext(ctx,
		`SELECT id FROM judgments WHERE hearing_id = ?`, j.HearingID,
	).Scan(&id)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: select judgment")
	}
	j.ID = id
	return id, nil
}

func (s *SQLiteStore) UpsertPleadingDocument(ctx context.Context, doc *model.PleadingDocument) error {
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
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pleading_documents (url, docket_id, text, kind, status)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (url) DO UPDATE SET
			text       = excluded.text,
			kind       = excluded.kind,
			status     = excluded.status,
			updated_at = datetime('now')`,
		doc.URL, doc.DocketID, doc.Text, kind, status,
	)
	return eris.Wrapf(err, "sqlite: upsert document %s", doc.URL)
}

func (s *SQLiteStore) BulkInsertPleadingDocuments(ctx context.Context, docs []model.PleadingDocument) (int64, error) {
	for i := range docs {
		if _, _, err := s.GetOrCreateCase(ctx, docs[i].DocketID); err != nil {
			return 0, err
		}
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin bulk insert")
	}
	defer tx.Rollback()

	var n int64
	for _, d := range docs {
		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO pleading_documents (url, docket_id) VALUES (?, ?)`,
			d.URL, d.DocketID,
		)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: bulk insert document %s", d.URL)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return 0, eris.Wrap(err, "sqlite: rows affected")
		}
		n += affected
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit bulk insert")
	}
	return n, nil
}

func (s *SQLiteStore) GetPleadingDocument(ctx context.Context, url string) (*model.PleadingDocument, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT url, docket_id, text, kind, status, created_at, updated_at
		 FROM pleading_documents WHERE url = ?`,
		url,
	)
	doc, err := scanSQLiteDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: get document %s", url)
	}
	return doc, nil
}

func (s *SQLiteStore) ListPleadingDocuments(ctx context.Context, filter DocumentFilter) ([]model.PleadingDocument, error) {
	var conds []string
	var args []any
	if filter.Kind != nil {
		conds = append(conds, "kind = ?")
		args = append(args, int(*filter.Kind))
	}
	if filter.NeedsText {
		conds = append(conds, "text IS NULL AND status IS NULL")
	}
	if filter.Since != nil {
		conds = append(conds, "created_at >= ?")
		args = append(args, *filter.Since)
	}
	query := `SELECT url, docket_id, text, kind, status, created_at, updated_at FROM pleading_documents`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC LIMIT ?"
	limit := filter.Limit
	if limit <= 0 {
		limit = 1000
	}
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list documents")
	}
	defer rows.Close()

	var docs []model.PleadingDocument
	for rows.Next() {
		doc, err := scanSQLiteDocument(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan document")
		}
		docs = append(docs, *doc)
	}
	return docs, eris.Wrap(rows.Err(), "sqlite: iterate documents")
}

func (s *SQLiteStore) OCRCandidates(ctx context.Context, since time.Time) ([]model.PleadingDocument, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT url, docket_id, text, kind, status, created_at, updated_at FROM (
			SELECT *, ROW_NUMBER() OVER (PARTITION BY docket_id ORDER BY created_at ASC) AS rn
			FROM pleading_documents
			WHERE text IS NOT NULL AND kind IS NULL AND created_at >= ?
		 ) WHERE rn = 1
		 ORDER BY created_at ASC`,
		since,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: ocr candidates")
	}
	defer rows.Close()

	var docs []model.PleadingDocument
	for rows.Next() {
		doc, err := scanSQLiteDocument(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan ocr candidate")
		}
		docs = append(docs, *doc)
	}
	return docs, eris.Wrap(rows.Err(), "sqlite: iterate ocr candidates")
}

func scanSQLiteDocument(row scannable) (*model.PleadingDocument, error) {
	var doc model.PleadingDocument
	var text sql.NullString
	var kind, status sql.NullInt64
	if err := row.Scan(&doc.URL, &doc.DocketID, &text, &kind, &status,
		&doc.CreatedAt, &doc.UpdatedAt); err != nil {
		return nil, err
	}
	if text.Valid {
		doc.Text = &text.String
	}
	if kind.Valid {
		doc.Kind = new(model.PleadingKind)
		*doc.Kind = model.PleadingKind(kind.Int64)
	}
	if status.Valid {
		doc.Status = new(model.PleadingStatus)
		*doc.Status = model.PleadingStatus(status.Int64)
	}
	return &doc, nil
}

func decimalText(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func boolArg(b *bool) any {
	if b == nil {
		return nil
	}
	return *b
}
