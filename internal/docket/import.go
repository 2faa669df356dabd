package docket

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/red-door-collective/eviction-tracker/internal/model"
	"github.com/red-door-collective/eviction-tracker/internal/pdftext"
	"github.com/red-door-collective/eviction-tracker/internal/store"
)

// Importer turns parsed docket listings into stored hearings.
type Importer struct {
	client    *Client
	converter *pdftext.PdfToHTML
	store     store.Store
}

func NewImporter(client *Client, converter *pdftext.PdfToHTML, st store.Store) *Importer {
	return &Importer{client: client, converter: converter, store: st}
}

// ImportListings upserts one hearing per listing, creating the shell
// case and reference entities as needed.
func (im *Importer) ImportListings(ctx context.Context, listings []Listing) error {
	for _, l := range listings {
		if err := im.importListing(ctx, l); err != nil {
			return eris.Wrapf(err, "docket: import %s", l.DocketID)
		}
	}
	return nil
}

func (im *Importer) importListing(ctx context.Context, l Listing) error {
	if _, _, err := im.store.GetOrCreateCase(ctx, l.DocketID); err != nil {
		return err
	}

	h := model.Hearing{
		CourtDate:        l.CourtDate,
		CourtOrderNumber: &l.CourtOrderNumber,
		Address:          l.Address(),
		DocketID:         l.DocketID,
	}
	if l.Courtroom != "" {
		id, err := im.store.GetOrCreateCourtroom(ctx, l.Courtroom)
		if err != nil {
			return err
		}
		h.CourtroomID = &id
	}
	if l.Plaintiff != "" {
		id, err := im.store.GetOrCreatePlaintiff(ctx, model.CanonicalParty(l.Plaintiff))
		if err != nil {
			return err
		}
		h.PlaintiffID = &id
	}
	if l.PlaintiffAttorney != "" {
		id, err := im.store.GetOrCreateAttorney(ctx, model.CanonicalParty(l.PlaintiffAttorney))
		if err != nil {
			return err
		}
		h.PlaintiffAttorneyID = &id
	}

	hearingID, err := im.store.UpsertHearing(ctx, &h)
	if err != nil {
		return err
	}
	return im.linkDefendants(ctx, hearingID, l)
}

func (im *Importer) linkDefendants(ctx context.Context, hearingID int64, l Listing) error {
	seen := make(map[string]bool, len(l.Defendants))
	for _, listing := range l.Defendants {
		if strings.Contains(listing.Name, "ALL OTHER OCCUPANTS") {
			continue
		}
		name := model.ParseName(listing.Name)
		if name.First == "" {
			continue
		}
		key := name.First + "|" + name.Last
		if seen[key] {
			continue
		}
		seen[key] = true

		defendantID, err := im.store.GetOrCreateDefendant(ctx, model.Defendant{
			FirstName:  name.First,
			MiddleName: name.Middle,
			LastName:   name.Last,
			Suffix:     name.Suffix,
			Address:    listing.Address,
		})
		if err != nil {
			return err
		}
		if err := im.store.LinkHearingDefendant(ctx, hearingID, defendantID); err != nil {
			return err
		}
	}
	return nil
}

// ImportDay fetches, converts, and imports one courtroom's docket.
// Unpublished dockets are skipped quietly.
func (im *Importer) ImportDay(ctx context.Context, courtroom string, day time.Time) error {
	pdf, err := im.client.FetchDay(ctx, courtroom, day)
	if errors.Is(err, ErrNotPublished) {
		zap.L().Info("no docket published",
			zap.String("courtroom", courtroom),
			zap.Time("day", day),
		)
		return nil
	}
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp("", "sessions-docket-*.pdf")
	if err != nil {
		return eris.Wrap(err, "docket: temp pdf")
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(pdf); err != nil {
		tmp.Close()
		return eris.Wrap(err, "docket: write temp pdf")
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "docket: close temp pdf")
	}

	layout, err := im.converter.ExtractXML(ctx, filepath.Clean(tmp.Name()))
	if err != nil {
		return err
	}
	listings, err := ParseLayoutXML(layout)
	if err != nil {
		return err
	}
	zap.L().Info("imported sessions docket",
		zap.String("courtroom", courtroom),
		zap.Time("day", day),
		zap.Int("hearings", len(listings)),
	)
	return im.ImportListings(ctx, listings)
}

// ImportWeek imports the coming week's dockets for every courtroom.
func (im *Importer) ImportWeek(ctx context.Context, from time.Time) error {
	for offset := 0; offset < 7; offset++ {
		day := from.AddDate(0, 0, offset)
		for _, courtroom := range Courtrooms() {
			if err := im.ImportDay(ctx, courtroom, day); err != nil {
				return err
			}
		}
	}
	return nil
}
