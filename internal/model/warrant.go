package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AmountClaimedCategory buckets what a detainer warrant asks for.
type AmountClaimedCategory string

const (
	ClaimPossession AmountClaimedCategory = "POSS"
	ClaimFees       AmountClaimedCategory = "FEES"
	ClaimBoth       AmountClaimedCategory = "BOTH"
	ClaimNotApplic  AmountClaimedCategory = "N/A"
)

// DetainerWarrant extends a Case with the columns specific to eviction
// filings. DocketID is both primary key and foreign key to cases.
type DetainerWarrant struct {
	DocketID              string
	AddressCertainty      *float64
	Address               *string
	AmountClaimed         *decimal.Decimal
	ClaimsPossession      *bool
	IsCares               *bool
	IsLegacy              *bool
	Nonpayment            *bool
	NotesID               *int64
	DocumentURL           *string
	AuditStatus           *AuditStatus
	LastEditedBy          *int64
	AmountClaimedCategory AmountClaimedCategory

	PleadingDocumentCheckWasSuccessful  *bool
	PleadingDocumentCheckMismatchedHTML *string
	LastPleadingDocumentsCheck          *time.Time
}

// JudgmentInFavorOf is which side a judgment order resolves for.
type JudgmentInFavorOf string

const (
	InFavorPlaintiff JudgmentInFavorOf = "PLAINTIFF"
	InFavorDefendant JudgmentInFavorOf = "DEFENDANT"
)

// EnteredBy distinguishes how the court arrived at the order.
type EnteredBy string

const (
	EnteredByDefault   EnteredBy = "DEFAULT"
	EnteredByAgreement EnteredBy = "AGREEMENT_OF_PARTIES"
	EnteredByTrial     EnteredBy = "TRIAL_IN_COURT"
)

// DismissalBasis records why a case was dismissed, present only for
// defendant judgments.
type DismissalBasis string

const (
	DismissalFailureToProsecute DismissalBasis = "FAILURE_TO_PROSECUTE"
	DismissalInFavorOfDefendant DismissalBasis = "FINDING_IN_FAVOR_OF_DEFENDANT"
	DismissalNonSuitByPlaintiff DismissalBasis = "NON_SUIT_BY_PLAINTIFF"
)

// Judgment is an order attached to a hearing, extracted from a judgment
// PDF or entered by hand.
type Judgment struct {
	ID                  int64
	InFavorOf           *JudgmentInFavorOf
	AwardsPossession    *bool
	AwardsFees          *decimal.Decimal
	EnteredBy           *EnteredBy
	Interest            *bool
	InterestRate        *decimal.Decimal
	InterestFollowsSite *bool
	DismissalBasis      *DismissalBasis
	WithPrejudice       *bool
	FileDate            *time.Time
	Mediation           *bool
	NotesID             *int64
	HearingID           *int64
	DetainerWarrantID   string
	JudgeID             *int64
	PlaintiffID         *int64
	CourtroomID         *int64
	DocumentURL         *string
	LastEditedBy        *int64
}

// Summary renders the short outcome label used in exports and audits.
func (j Judgment) Summary() string {
	if j.InFavorOf == nil {
		return ""
	}
	if *j.InFavorOf == InFavorDefendant {
		return "Dismissed"
	}
	if j.AwardsFees != nil && j.AwardsPossession != nil && *j.AwardsPossession {
		return "Fees and Possession"
	}
	if j.AwardsFees != nil {
		return "Fees only"
	}
	if j.AwardsPossession != nil && *j.AwardsPossession {
		return "Possession only"
	}
	return ""
}

// Hearing is a scheduled court appearance, unique per (court date, docket).
type Hearing struct {
	ID                  int64
	CourtDate           time.Time
	CourtOrderNumber    *int64
	ContinuanceOn       *time.Time
	Address             string
	DocketID            string
	CourtroomID         *int64
	PlaintiffID         *int64
	PlaintiffAttorneyID *int64
	DefendantAttorneyID *int64
	JudgmentID          *int64
}

// PleadingKind classifies a scraped pleading PDF.
type PleadingKind int

const (
	PleadingJudgment        PleadingKind = 0
	PleadingDetainerWarrant PleadingKind = 1
)

// PleadingStatus records why extraction of a document failed.
type PleadingStatus int

const (
	StatusFailedToExtractText           PleadingStatus = 0
	StatusFailedToUpdateDetainerWarrant PleadingStatus = 1
	StatusFailedToUpdateJudgment        PleadingStatus = 2
	StatusFailedToExtractTextOCR        PleadingStatus = 3
)

// PleadingDocument is a PDF fetched from the portal, keyed by its URL.
type PleadingDocument struct {
	URL       string
	Text      *string
	Kind      *PleadingKind
	DocketID  string
	Status    *PleadingStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Plaintiff is a landlord or property manager bringing cases. Aliases
// collects the name variants the portal has reported for the same party.
type Plaintiff struct {
	ID      int64
	Name    string
	Aliases []string
}

// Attorney represents counsel of record. "REPRESENTING SELF" is the
// sentinel for pro se parties.
type Attorney struct {
	ID      int64
	Name    string
	Aliases []string
}

// RepresentingSelf is the attorney name recorded for pro se plaintiffs.
const RepresentingSelf = "REPRESENTING SELF"

// Judge is a presiding judge referenced by judgments.
type Judge struct {
	ID      int64
	Name    string
	Aliases []string
}

// Courtroom is a physical courtroom referenced by hearings and dockets.
type Courtroom struct {
	ID      int64
	Name    string
	Aliases []string
}

// Defendant is a named tenant on a warrant, with parsed name parts.
// The same name with the same contact phones is a single row; the
// mailing address refines an existing row rather than splitting it.
type Defendant struct {
	ID              int64
	FirstName       string
	MiddleName      string
	LastName        string
	Suffix          string
	PotentialPhones string
	Address         string
}

// Name rejoins the parsed parts for display.
func (d Defendant) Name() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{d.FirstName, d.MiddleName, d.LastName, d.Suffix} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}
