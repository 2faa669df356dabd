// Package model holds the plain data records shared by the acquisition
// pipeline and the case store: cases, hearings, judgments, pleading
// documents, and the named reference entities.
package model

import (
	"strconv"
	"strings"
	"time"
)

// CaseType classifies a docket id by its embedded case-type marker.
type CaseType string

const (
	CaseTypeDetainerWarrant CaseType = "detainer_warrant"
	CaseTypeCivilWarrant    CaseType = "civil_warrant"
	CaseTypeUncategorized   CaseType = "uncategorized_case"
)

// CaseStatus is the court's disposition of a case.
type CaseStatus string

const (
	StatusPending CaseStatus = "PENDING"
	StatusClosed  CaseStatus = "CLOSED"
)

// AuditStatus tracks which of {address, judgment} a human has confirmed
// for a warrant. The lattice is monotonic: confirming one face while the
// other is already set produces Confirmed.
type AuditStatus string

const (
	AuditAddressConfirmed  AuditStatus = "ADDRESS_CONFIRMED"
	AuditJudgmentConfirmed AuditStatus = "JUDGMENT_CONFIRMED"
	AuditConfirmed         AuditStatus = "CONFIRMED"
)

// maxCasesPerYear spaces order numbers so that a full year of filings
// never collides with the next year's block.
const maxCasesPerYear = 10_000_000

// Case is the shell record every docket id maps to. Subtype columns for
// detainer warrants live on DetainerWarrant.
type Case struct {
	DocketID          string
	OrderNumber       int64
	FileDate          *time.Time
	Status            *CaseStatus
	Type              CaseType
	PlaintiffID       *int64
	PlaintiffAttorney *int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// OrderNumber derives a chronologically sortable number from a docket id.
// Two-digit years below 70 are 21st century, the rest 20th. Non-numeric
// docket ids sort to zero.
func OrderNumber(docketID string) int64 {
	num := strings.NewReplacer("GT", "", "GC", "").Replace(docketID)
	if len(num) < 3 {
		return 0
	}
	year, err := strconv.Atoi(num[:2])
	if err != nil {
		return 0
	}
	seq, err := strconv.Atoi(num[2:])
	if err != nil {
		return 0
	}
	fullYear := year + 1900
	if year < 70 {
		fullYear = year + 2000
	}
	return int64(fullYear)*maxCasesPerYear + int64(seq)
}

// ClassifyDocket maps a docket id onto its case type.
func ClassifyDocket(docketID string) CaseType {
	switch {
	case strings.Contains(docketID, "GT"):
		return CaseTypeDetainerWarrant
	case strings.Contains(docketID, "GC"):
		return CaseTypeCivilWarrant
	default:
		return CaseTypeUncategorized
	}
}

// NextAuditStatus advances the audit lattice: setting one face while the
// other is already confirmed yields Confirmed.
func NextAuditStatus(current *AuditStatus, confirming AuditStatus) AuditStatus {
	if confirming == AuditConfirmed {
		return AuditConfirmed
	}
	if current == nil {
		return confirming
	}
	switch *current {
	case AuditConfirmed:
		return AuditConfirmed
	case confirming:
		return confirming
	default:
		// The other face was already set.
		return AuditConfirmed
	}
}
