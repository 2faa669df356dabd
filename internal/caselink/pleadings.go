package caselink

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/red-door-collective/eviction-tracker/internal/model"
	"github.com/red-door-collective/eviction-tracker/internal/resilience"
	"github.com/red-door-collective/eviction-tracker/internal/store"
)

// mvalSep separates entries inside a PutMvals value.
const mvalSep = "ý"

var (
	pleadingPathsRegex = regexp.MustCompile(`parent\.PutMvals\(\s*"P_3"\s*,\s*"([` + mvalSep + `\\]*\w+\\+\w+\\+\w+\\+\w+\\+\d+\.pdf.+?)"`)

	defendantNameRegex     = regexp.MustCompile(`"P_211"\s*,\s*"(.*?)"`)
	defendantAddress1Regex = regexp.MustCompile(`"P_212"\s*,\s*"(.*?)"`)
	defendantAddress2Regex = regexp.MustCompile(`"P_213"\s*,\s*"(.*?)"`)
	defendantAddress3Regex = regexp.MustCompile(`"P_214"\s*,\s*"(.*?)"`)
	defendantPhoneRegex    = regexp.MustCompile(`"P_27"\s*,\s*"(.*?)"`)

	hearingTableRegex = regexp.MustCompile(`(?s)GRIDTBL_1A.*?</table>`)
	hearingRowRegex   = regexp.MustCompile(`(?s)<tr[^>]*>(.*?)</tr>`)
	inputValueRegex   = regexp.MustCompile(`<input[^>]*\bvalue="([^"]*)"`)

	continuanceRegex = regexp.MustCompile(`COURT DATE CONTINUANCE\s+(\d{1,2}\.\d{1,2}\.\d{2})`)
	courtDateRegex   = regexp.MustCompile(`COURT DATE\s+(\d{1,2}\.\d{1,2}\.\d{2})`)
)

// ExtractPleadingDocumentPaths pulls the portal image paths out of a
// pleading documents page. The portal packs them into one PutMvals call
// with JavaScript-escaped backslashes and a one-byte separator.
func ExtractPleadingDocumentPaths(html string) []string {
	m := pleadingPathsRegex.FindStringSubmatch(html)
	if m == nil {
		return nil
	}
	pieces := strings.Split(strings.Trim(m[1], mvalSep), ".pdf")
	paths := make([]string, 0, len(pieces))
	for _, piece := range pieces {
		piece = strings.Trim(piece, mvalSep)
		if piece == "" {
			continue
		}
		paths = append(paths, strings.ReplaceAll(piece, `\\\\`, `\`)+".pdf")
	}
	return paths
}

// DefendantDetails is the contact block scraped from the additional
// defendant info popup.
type DefendantDetails struct {
	Name    string
	Address string
	Phone   string
}

// ParseDefendantDetails reads the defendant popup body.
func ParseDefendantDetails(html string) DefendantDetails {
	var d DefendantDetails
	if m := defendantNameRegex.FindStringSubmatch(html); m != nil {
		d.Name = strings.TrimSpace(m[1])
	}
	var parts []string
	for _, re := range []*regexp.Regexp{defendantAddress1Regex, defendantAddress2Regex, defendantAddress3Regex} {
		if m := re.FindStringSubmatch(html); m != nil {
			if p := strings.TrimSpace(m[1]); p != "" {
				parts = append(parts, p)
			}
		}
	}
	d.Address = strings.Join(parts, " ")
	if m := defendantPhoneRegex.FindStringSubmatch(html); m != nil {
		d.Phone = strings.TrimSpace(m[1])
	}
	return d
}

// HearingRow is one schedule entry from the case page grid.
type HearingRow struct {
	CourtDate     time.Time
	ContinuanceOn *time.Time
	Address       string
}

// ExtractHearingRows reads the case page's hearing grid. A plain
// "COURT DATE m.d.yy" entry schedules a hearing on that date; a
// "COURT DATE CONTINUANCE m.d.yy" entry keeps the date column's hearing
// and records when it was continued.
func ExtractHearingRows(html string) []HearingRow {
	table := hearingTableRegex.FindString(html)
	if table == "" {
		return nil
	}
	var rows []HearingRow
	for _, tr := range hearingRowRegex.FindAllStringSubmatch(table, -1) {
		values := inputValueRegex.FindAllStringSubmatch(tr[1], -1)
		if len(values) < 4 {
			continue
		}
		dateCol := strings.TrimSpace(values[2][1])
		desc := strings.TrimSpace(values[3][1])

		if m := continuanceRegex.FindStringSubmatch(desc); m != nil {
			courtDate, err := parseGridDate(dateCol)
			if err != nil {
				continue
			}
			continuedOn, err := parseDottedDate(m[1])
			if err != nil {
				continue
			}
			rows = append(rows, HearingRow{CourtDate: courtDate, ContinuanceOn: &continuedOn})
			continue
		}
		if m := courtDateRegex.FindStringSubmatch(desc); m != nil {
			courtDate, err := parseDottedDate(m[1])
			if err != nil {
				continue
			}
			rows = append(rows, HearingRow{CourtDate: courtDate, Address: "unknown"})
		}
	}
	return rows
}

func parseGridDate(s string) (time.Time, error) {
	for _, layout := range []string{"01/02/2006", "01/02/06"} {
		if t, err := time.ParseInLocation(layout, s, model.Nashville); err == nil {
			return t, nil
		}
	}
	return time.Time{}, eris.Errorf("caselink: unparseable grid date %q", s)
}

func parseDottedDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation("1.2.06", s, model.Nashville)
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "caselink: parse court date %q", s)
	}
	return t, nil
}

// CasePageScraper walks an open case page for hearings, defendant
// details, and pleading document listings.
type CasePageScraper struct {
	client *Client
	store  store.Store
}

func NewCasePageScraper(client *Client, st store.Store) *CasePageScraper {
	return &CasePageScraper{client: client, store: st}
}

// FromSearchResults opens one result row in the primed search session
// and scrapes it.
func (s *CasePageScraper) FromSearchResults(ctx context.Context, codeItem, docketID string, pages *SearchPages, withPleadings bool) error {
	casePage, err := pages.SearchPage.OpenCase(ctx, codeItem, docketID)
	if err != nil {
		return err
	}
	return s.scrape(ctx, casePage, docketID, withPleadings)
}

// ScrapeCase logs in and opens a single case directly by docket id.
func (s *CasePageScraper) ScrapeCase(ctx context.Context, docketID string, withPleadings bool) error {
	searchPage, err := s.client.Login(ctx)
	if err != nil {
		return err
	}
	menuPage, err := searchPage.Menu(ctx)
	if err != nil {
		return err
	}
	if err := menuPage.ReadRec(ctx); err != nil {
		return err
	}
	casePage, err := menuPage.OpenCaseRedirect(ctx, docketID)
	if err != nil {
		return err
	}
	return s.scrape(ctx, casePage, docketID, withPleadings)
}

func (s *CasePageScraper) scrape(ctx context.Context, casePage *Page, docketID string, withPleadings bool) error {
	body, err := casePage.FollowURL(ctx)
	if err != nil {
		return err
	}
	if marker, stale := IsStaleHTML(body); stale {
		return &resilience.StaleSessionError{Marker: marker}
	}

	if err := s.importHearings(ctx, docketID, body); err != nil {
		return err
	}
	if err := s.importDefendantDetails(ctx, casePage, docketID); err != nil {
		zap.L().Warn("defendant details scrape failed",
			zap.String("docket_id", docketID),
			zap.Error(err),
		)
	}
	if !withPleadings {
		return nil
	}
	return s.importDocuments(ctx, casePage, docketID, body)
}

func (s *CasePageScraper) importHearings(ctx context.Context, docketID, body string) error {
	for _, row := range ExtractHearingRows(body) {
		h := model.Hearing{
			CourtDate:     row.CourtDate,
			ContinuanceOn: row.ContinuanceOn,
			Address:       row.Address,
			DocketID:      docketID,
		}
		if _, err := s.store.UpsertHearing(ctx, &h); err != nil {
			return eris.Wrapf(err, "caselink: record hearing for %s", docketID)
		}
	}
	return nil
}

func (s *CasePageScraper) importDefendantDetails(ctx context.Context, casePage *Page, docketID string) error {
	body, err := casePage.AdditionalDefendantInfo(ctx, docketID)
	if err != nil {
		return err
	}
	return s.recordDefendantDetails(ctx, docketID, ParseDefendantDetails(body))
}

func (s *CasePageScraper) recordDefendantDetails(ctx context.Context, docketID string, details DefendantDetails) error {
	name := model.ParseName(details.Name)
	if name.First == "" {
		return nil
	}
	defendantID, err := s.store.GetOrCreateDefendant(ctx, model.Defendant{
		FirstName:       name.First,
		MiddleName:      name.Middle,
		LastName:        name.Last,
		Suffix:          name.Suffix,
		PotentialPhones: details.Phone,
		Address:         details.Address,
	})
	if err != nil {
		return err
	}
	return s.store.LinkWarrantDefendant(ctx, docketID, defendantID)
}

// ImportDocuments follows an open case page and records its pleading
// document paths.
func (s *CasePageScraper) ImportDocuments(ctx context.Context, casePage *Page, docketID string) error {
	body, err := casePage.FollowURL(ctx)
	if err != nil {
		return err
	}
	return s.importDocuments(ctx, casePage, docketID, body)
}

// importDocuments records every document path listed on the case detail
// page, then stamps the warrant's check breadcrumb. The pleading frame
// request is still made so the portal registers the navigation, but the
// PutMvals payload lives in the detail page itself. Failure to find any
// paths stores the raw page body so ParseMismatchedDocuments can retry
// extraction offline.
func (s *CasePageScraper) importDocuments(ctx context.Context, casePage *Page, docketID, body string) error {
	if _, err := casePage.OpenPleadingDocuments(ctx, docketID); err != nil {
		return err
	}
	inserted, err := s.importDocumentPaths(ctx, docketID, body)
	if err != nil {
		if recordErr := s.store.RecordPleadingCheck(ctx, docketID, false, body); recordErr != nil {
			zap.L().Error("failed to record mismatched pleading page",
				zap.String("docket_id", docketID),
				zap.Error(recordErr),
			)
		}
		return err
	}
	zap.L().Info("imported pleading documents",
		zap.String("docket_id", docketID),
		zap.Int64("inserted", inserted),
	)
	return s.store.RecordPleadingCheck(ctx, docketID, true, "")
}

func (s *CasePageScraper) importDocumentPaths(ctx context.Context, docketID, body string) (int64, error) {
	paths := ExtractPleadingDocumentPaths(body)
	if len(paths) == 0 {
		return 0, eris.Errorf("caselink: no pleading document paths for %s", docketID)
	}
	docs := make([]model.PleadingDocument, 0, len(paths))
	for _, path := range paths {
		docs = append(docs, model.PleadingDocument{URL: path, DocketID: docketID})
	}
	inserted, err := s.store.BulkInsertPleadingDocuments(ctx, docs)
	if err != nil {
		return 0, eris.Wrapf(err, "caselink: store pleading documents for %s", docketID)
	}
	return inserted, nil
}

// ImportDocumentsInBulk walks every open warrant with a stale pleading
// documents check, scraping its documents in one logged-in session. A
// stale session restarts the login; other failures are recorded and
// skipped.
func (s *CasePageScraper) ImportDocumentsInBulk(ctx context.Context, olderThanOneYear bool) error {
	dockets, err := s.store.PendingWarrants(ctx, olderThanOneYear)
	if err != nil {
		return err
	}
	zap.L().Info("gathering pleading documents in bulk", zap.Int("warrants", len(dockets)))
	for _, docketID := range dockets {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := s.ScrapeCase(ctx, docketID, true)
		if err == nil {
			continue
		}
		var stale *resilience.StaleSessionError
		if errors.As(err, &stale) {
			zap.L().Warn("session went stale, re-establishing",
				zap.String("docket_id", docketID),
				zap.String("marker", stale.Marker),
			)
			continue
		}
		zap.L().Warn("pleading document scrape failed",
			zap.String("docket_id", docketID),
			zap.Error(err),
		)
	}
	return nil
}

// ParseMismatchedDocuments retries path extraction over the stored
// bodies of failed pleading checks, without touching the portal. Bodies
// that turn out to be stale session pages are discarded.
func (s *CasePageScraper) ParseMismatchedDocuments(ctx context.Context) error {
	pages, err := s.store.MismatchedPleadingHTML(ctx)
	if err != nil {
		return err
	}
	recovered, discarded := 0, 0
	for docketID, body := range pages {
		if _, stale := IsStaleHTML(body); stale {
			if err := s.store.RecordPleadingCheck(ctx, docketID, false, ""); err != nil {
				return err
			}
			discarded++
			continue
		}
		if _, err := s.importDocumentPaths(ctx, docketID, body); err != nil {
			continue
		}
		if err := s.store.RecordPleadingCheck(ctx, docketID, true, ""); err != nil {
			return err
		}
		recovered++
	}
	zap.L().Info("reparsed mismatched pleading pages",
		zap.Int("recovered", recovered),
		zap.Int("discarded", discarded),
		zap.Int("total", len(pages)),
	)
	return nil
}
