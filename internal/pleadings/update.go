package pleadings

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/red-door-collective/eviction-tracker/internal/model"
	"github.com/red-door-collective/eviction-tracker/internal/store"
)

// hearingAttachDays bounds how far a judgment's file date may sit from
// the hearing it resolves.
const hearingAttachDays = 3

// UpdateJudgmentFromDocument parses one classified judgment document
// and writes the judgment onto its case. Re-running on unchanged text
// yields the same judgment.
func (p *Pipeline) UpdateJudgmentFromDocument(ctx context.Context, doc *model.PleadingDocument) error {
	if doc.Text == nil {
		return nil
	}
	extract := ParseJudgment(*doc.Text)
	if extract == nil {
		zap.L().Warn("judgment document without docket anchor", zap.String("url", doc.URL))
		return nil
	}

	if _, _, err := p.store.GetOrCreateCase(ctx, extract.DocketID); err != nil {
		return p.markFailed(ctx, doc, model.StatusFailedToUpdateJudgment, err)
	}

	judgment := model.Judgment{
		DetainerWarrantID:   extract.DocketID,
		InFavorOf:           extract.InFavorOf,
		AwardsPossession:    extract.AwardsPossession,
		AwardsFees:          extract.AwardsFees,
		EnteredBy:           extract.EnteredBy,
		Interest:            extract.Interest,
		InterestRate:        extract.InterestRate,
		InterestFollowsSite: extract.InterestFollowsSite,
		DismissalBasis:      extract.DismissalBasis,
		WithPrejudice:       extract.WithPrejudice,
		FileDate:            extract.FileDate,
		DocumentURL:         &doc.URL,
	}
	if extract.Plaintiff != "" {
		id, err := p.store.GetOrCreatePlaintiff(ctx, extract.Plaintiff)
		if err != nil {
			return p.markFailed(ctx, doc, model.StatusFailedToUpdateJudgment, err)
		}
		judgment.PlaintiffID = &id
	}
	if extract.Judge != "" {
		id, err := p.store.GetOrCreateJudge(ctx, extract.Judge)
		if err != nil {
			return p.markFailed(ctx, doc, model.StatusFailedToUpdateJudgment, err)
		}
		judgment.JudgeID = &id
	}

	hearingID, err := p.attachHearing(ctx, extract)
	if err != nil {
		return p.markFailed(ctx, doc, model.StatusFailedToUpdateJudgment, err)
	}
	judgment.HearingID = &hearingID

	if _, err := p.store.UpsertJudgment(ctx, &judgment); err != nil {
		return p.markFailed(ctx, doc, model.StatusFailedToUpdateJudgment, err)
	}
	if err := p.store.SetAuditStatus(ctx, extract.DocketID, model.AuditJudgmentConfirmed); err != nil {
		return eris.Wrapf(err, "pleadings: audit %s", extract.DocketID)
	}
	return nil
}

// attachHearing finds the hearing this judgment resolves, or creates a
// placeholder one at the file date when none is near.
func (p *Pipeline) attachHearing(ctx context.Context, extract *JudgmentExtract) (int64, error) {
	if extract.FileDate == nil {
		return 0, eris.Errorf("judgment for %s has no file date", extract.DocketID)
	}
	hearing, err := p.store.HearingNear(ctx, extract.DocketID, *extract.FileDate, hearingAttachDays)
	if err != nil {
		return 0, err
	}
	if hearing != nil {
		return hearing.ID, nil
	}
	return p.store.UpsertHearing(ctx, &model.Hearing{
		CourtDate: *extract.FileDate,
		Address:   "unknown",
		DocketID:  extract.DocketID,
	})
}

// UpdateJudgmentsFromDocuments sweeps every classified judgment document.
func (p *Pipeline) UpdateJudgmentsFromDocuments(ctx context.Context) error {
	kind := model.PleadingJudgment
	docs, err := p.store.ListPleadingDocuments(ctx, store.DocumentFilter{Kind: &kind})
	if err != nil {
		return err
	}
	zap.L().Info("updating judgments from documents", zap.Int("documents", len(docs)))
	for i := range docs {
		if err := p.UpdateJudgmentFromDocument(ctx, &docs[i]); err != nil {
			return err
		}
	}
	return nil
}

// UpdateWarrantFromDocument applies the address-selection rule to a
// classified detainer warrant document. Every extracted address joins
// the warrant's potential-addresses set; a warrant that already has
// both an address and a source document keeps them, so later documents
// can only add candidates.
func (p *Pipeline) UpdateWarrantFromDocument(ctx context.Context, doc *model.PleadingDocument) error {
	if doc.Text == nil || doc.DocketID == "" {
		return nil
	}
	warrant, err := p.store.GetDetainerWarrant(ctx, doc.DocketID)
	if err != nil {
		return err
	}
	hasAddress := warrant != nil && warrant.Address != nil
	hasDocument := warrant != nil && warrant.DocumentURL != nil

	address, found := ExtractWarrantAddress(*doc.Text)
	if found {
		if err := p.store.AddPotentialAddress(ctx, doc.DocketID, address); err != nil {
			return p.markFailed(ctx, doc, model.StatusFailedToUpdateDetainerWarrant, err)
		}
	}
	update := model.DetainerWarrant{DocketID: doc.DocketID}
	switch {
	case found && hasAddress && hasDocument:
		return nil
	case found:
		update.Address = &address
		update.DocumentURL = &doc.URL
	case !hasAddress && !hasDocument:
		// The document is still the canonical source even when its
		// address resisted extraction.
		update.DocumentURL = &doc.URL
	default:
		return nil
	}

	if _, _, err := p.store.GetOrCreateCase(ctx, doc.DocketID); err != nil {
		return p.markFailed(ctx, doc, model.StatusFailedToUpdateDetainerWarrant, err)
	}
	if err := p.store.UpsertDetainerWarrant(ctx, &update); err != nil {
		return p.markFailed(ctx, doc, model.StatusFailedToUpdateDetainerWarrant, err)
	}
	return nil
}

// UpdateWarrantsFromDocuments sweeps every classified warrant document.
func (p *Pipeline) UpdateWarrantsFromDocuments(ctx context.Context) error {
	kind := model.PleadingDetainerWarrant
	docs, err := p.store.ListPleadingDocuments(ctx, store.DocumentFilter{Kind: &kind})
	if err != nil {
		return err
	}
	zap.L().Info("updating warrants from documents", zap.Int("documents", len(docs)))
	for i := range docs {
		if err := p.UpdateWarrantFromDocument(ctx, &docs[i]); err != nil {
			return err
		}
	}
	return nil
}

// PickBestAddresses promotes a candidate address onto warrants that
// have none: a sole candidate is certain, the most common of several is
// probable. Candidates extracted from the warrant documents themselves
// come first; the defendants' mailing addresses fill in when no
// document yielded one.
func (p *Pipeline) PickBestAddresses(ctx context.Context) error {
	dockets, err := p.store.WarrantsMissingAddress(ctx)
	if err != nil {
		return err
	}
	picked := 0
	for _, docketID := range dockets {
		candidates, err := p.store.PotentialAddresses(ctx, docketID)
		if err != nil {
			return err
		}
		if len(candidates) == 0 {
			candidates, err = p.store.DefendantAddressCandidates(ctx, docketID)
			if err != nil {
				return err
			}
		}
		address, certainty := pickAddress(candidates)
		if address == "" {
			continue
		}
		if err := p.store.SetWarrantAddress(ctx, docketID, address, certainty); err != nil {
			return eris.Wrapf(err, "pleadings: set address for %s", docketID)
		}
		picked++
	}
	zap.L().Info("picked best addresses",
		zap.Int("missing", len(dockets)),
		zap.Int("picked", picked),
	)
	return nil
}

func pickAddress(candidates []string) (string, float64) {
	switch len(candidates) {
	case 0:
		return "", 0
	case 1:
		return candidates[0], 1.0
	}
	counts := make(map[string]int, len(candidates))
	best := candidates[0]
	for _, c := range candidates {
		counts[c]++
		if counts[c] > counts[best] {
			best = c
		}
	}
	return best, 0.8
}
