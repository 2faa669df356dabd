package caselink

import (
	"context"
	"encoding/csv"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/red-door-collective/eviction-tracker/internal/model"
	"github.com/red-door-collective/eviction-tracker/internal/store"
)

var (
	csvURLRegex = regexp.MustCompile(`parent\.UserWinOpen\(\s*""\s*,\s*"(https://.+?)"`)
	gridRegex   = regexp.MustCompile(`parent\.PutFormVar\(\s*"(P_\d+_\d+)"\s*,\s*"(\s*.*?)",`)
)

const plaintiffAttorneyColumn = "Pltf. Attorney"

// searchColumns is the fixed column order of the result grid and CSV.
var searchColumns = []string{
	"Office",
	"Docket #",
	"Status",
	"File Date",
	"Description",
	"Plaintiff",
	"Defendant",
	plaintiffAttorneyColumn,
	"Def. Attorney",
}

// CaseHeader is one row of the search result grid.
type CaseHeader struct {
	Office            string
	DocketID          string
	Status            string
	FileDate          string
	Description       string
	Plaintiff         string
	Defendant         string
	PlaintiffAttorney string
	DefendantAttorney string
}

// Admitted reports whether this row belongs in the case store: only
// detainer warrant filings under a GT docket are tracked.
func (h CaseHeader) Admitted() bool {
	return strings.Contains(h.Description, "DETAINER WARRANT") &&
		strings.Contains(h.DocketID, "GT")
}

type gridCell struct {
	Name  string
	Value string
}

// ExtractSearchResults pulls the flat (name, value) cell sequence out of
// a result page body.
func ExtractSearchResults(html string) []gridCell {
	matches := gridRegex.FindAllStringSubmatch(html, -1)
	cells := make([]gridCell, 0, len(matches))
	for _, m := range matches {
		cells = append(cells, gridCell{Name: m[1], Value: m[2]})
	}
	return cells
}

// HeadersFromCells folds the flat cell sequence into rows of nine
// columns. A plaintiff attorney of ", PRS" marks a pro se filing.
func HeadersFromCells(cells []gridCell) []CaseHeader {
	n := len(searchColumns)
	headers := make([]CaseHeader, 0, len(cells)/n)
	for i := 0; i+n <= len(cells); i += n {
		row := make(map[string]string, n)
		for j := 0; j < n; j++ {
			row[searchColumns[j]] = cells[i+j].Value
		}
		headers = append(headers, headerFromRow(row))
	}
	return headers
}

func headerFromRow(row map[string]string) CaseHeader {
	attorney := model.NormalizeAttorney(row[plaintiffAttorneyColumn])
	return CaseHeader{
		Office:            row["Office"],
		DocketID:          strings.TrimSpace(row["Docket #"]),
		Status:            row["Status"],
		FileDate:          row["File Date"],
		Description:       row["Description"],
		Plaintiff:         row["Plaintiff"],
		Defendant:         row["Defendant"],
		PlaintiffAttorney: attorney,
		DefendantAttorney: row["Def. Attorney"],
	}
}

// FormDataFromCells rebuilds the WCVARS/WCVALS side channel from the
// parsed grid, which the portal requires echoed back before any per-row
// button works. Empty column-9 cells are elided, as the browser does.
func FormDataFromCells(cells []gridCell) (wcVars, wcVals string) {
	names := make([]string, 0, len(cells))
	values := make([]string, 0, len(cells))
	for _, cell := range cells {
		if strings.Contains(cell.Name, "09") && cell.Value == "" {
			continue
		}
		names = append(names, cell.Name)
		values = append(values, cell.Value)
	}
	return joinWithSep(names) + fieldSep, joinWithSep(values) + fieldSep
}

func joinWithSep(values []string) string {
	joined := strings.Join(values, fieldSep)
	return strings.ReplaceAll(joined, fieldSep+fieldSep, fieldSep)
}

// ExtractCSVURL finds the exported CSV link in an export response body.
func ExtractCSVURL(html string) (string, error) {
	m := csvURLRegex.FindStringSubmatch(html)
	if m == nil {
		return "", eris.New("caselink: no csv link in export response")
	}
	return m[1], nil
}

// ParseResultsCSV reads an exported results CSV into case headers.
func ParseResultsCSV(r *csv.Reader) ([]CaseHeader, error) {
	records, err := r.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "caselink: parse results csv")
	}
	if len(records) < 2 {
		return nil, nil
	}
	colIdx := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		colIdx[strings.TrimSpace(name)] = i
	}
	headers := make([]CaseHeader, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(map[string]string, len(searchColumns))
		for _, col := range searchColumns {
			if i, ok := colIdx[col]; ok && i < len(rec) {
				row[col] = strings.TrimSpace(rec[i])
			}
		}
		headers = append(headers, headerFromRow(row))
	}
	return headers, nil
}

// Planner drives search sessions and writes admitted rows to the store.
type Planner struct {
	client *Client
	store  store.Store
}

// NewPlanner pairs a portal client with the case store.
func NewPlanner(client *Client, st store.Store) *Planner {
	return &Planner{client: client, store: st}
}

// SearchPages holds the live pages of one search session.
type SearchPages struct {
	MenuPage   *Page
	SearchPage *Page
	Cells      []gridCell
	WCVars     string
	WCVals     string
}

// SearchBetweenDates logs in and fills the search form for the window.
func (pl *Planner) SearchBetweenDates(ctx context.Context, start, end time.Time) (*SearchPages, error) {
	zap.L().Info("importing caselink warrants",
		zap.Time("start", start),
		zap.Time("end", end),
	)
	searchPage, err := pl.client.Login(ctx)
	if err != nil {
		return nil, err
	}
	menuPage, err := searchPage.Menu(ctx)
	if err != nil {
		return nil, err
	}
	if err := menuPage.ReadRec(ctx); err != nil {
		return nil, err
	}
	if err := menuPage.AddStartDate(ctx, start); err != nil {
		return nil, err
	}
	if err := menuPage.AddDetainerWarrantType(ctx, end); err != nil {
		return nil, err
	}
	return &SearchPages{MenuPage: menuPage, SearchPage: menuPage}, nil
}

// Run performs one search over the window and returns the admitted and
// raw header rows. Pages is left primed for per-case navigation.
func (pl *Planner) Run(ctx context.Context, start, end time.Time) (*SearchPages, []CaseHeader, error) {
	pages, err := pl.SearchBetweenDates(ctx, start, end)
	if err != nil {
		return nil, nil, err
	}
	body, err := pages.SearchPage.Search(ctx)
	if err != nil {
		return nil, nil, err
	}
	// The grid may arrive behind one more redirect.
	if strings.Contains(body, `self.location="/gsapdfs/`) {
		next, err := pl.client.pageFromBody(body)
		if err != nil {
			return nil, nil, err
		}
		pages.SearchPage = next
		body, err = next.FollowURL(ctx)
		if err != nil {
			return nil, nil, err
		}
	}

	cells := ExtractSearchResults(body)
	headers := HeadersFromCells(cells)
	pages.Cells = cells
	pages.WCVars, pages.WCVals = FormDataFromCells(cells)

	if err := pages.MenuPage.SearchUpdate(ctx, pages.WCVars, pages.WCVals); err != nil {
		return nil, nil, err
	}
	return pages, headers, nil
}

// ImportRows writes header rows through the store, skipping rows that
// are not detainer warrant filings. Returns the number imported.
func (pl *Planner) ImportRows(ctx context.Context, headers []CaseHeader) (int, error) {
	imported := 0
	for _, h := range headers {
		if !h.Admitted() {
			continue
		}
		if err := pl.importRow(ctx, h); err != nil {
			return imported, eris.Wrapf(err, "caselink: import row %s", h.DocketID)
		}
		imported++
	}
	return imported, nil
}

func (pl *Planner) importRow(ctx context.Context, h CaseHeader) error {
	c, _, err := pl.store.GetOrCreateCase(ctx, h.DocketID)
	if err != nil {
		return err
	}

	update := model.Case{DocketID: c.DocketID}
	if h.Status != "" {
		status := model.CaseStatus(strings.ToUpper(h.Status))
		update.Status = &status
	}
	if h.FileDate != "" {
		if fd, err := time.ParseInLocation("01/02/2006", h.FileDate, model.Nashville); err == nil {
			update.FileDate = &fd
		}
	}
	if h.Plaintiff != "" {
		id, err := pl.store.GetOrCreatePlaintiff(ctx, h.Plaintiff)
		if err != nil {
			return err
		}
		update.PlaintiffID = &id
	}
	if h.PlaintiffAttorney != "" {
		id, err := pl.store.GetOrCreateAttorney(ctx, h.PlaintiffAttorney)
		if err != nil {
			return err
		}
		update.PlaintiffAttorney = &id
	}
	if err := pl.store.UpdateCase(ctx, &update); err != nil {
		return err
	}

	if err := pl.store.UpsertDetainerWarrant(ctx, &model.DetainerWarrant{DocketID: h.DocketID}); err != nil {
		return err
	}
	return pl.linkDefendant(ctx, h.DocketID, h.Defendant)
}

func (pl *Planner) linkDefendant(ctx context.Context, docketID, rawName string) error {
	name := model.ParseName(model.StripOccupants(rawName))
	if name.First == "" {
		return nil
	}
	defendantID, err := pl.store.GetOrCreateDefendant(ctx, model.Defendant{
		FirstName:  name.First,
		MiddleName: name.Middle,
		LastName:   name.Last,
		Suffix:     name.Suffix,
	})
	if err != nil {
		return err
	}
	return pl.store.LinkWarrantDefendant(ctx, docketID, defendantID)
}

// ImportCSV exports the current result page to CSV, downloads it, and
// imports its rows.
func (pl *Planner) ImportCSV(ctx context.Context, pages *SearchPages) (int, error) {
	body, err := pages.SearchPage.ExportCSV(ctx)
	if err != nil {
		return 0, err
	}
	csvURL, err := ExtractCSVURL(body)
	if err != nil {
		return 0, err
	}
	zap.L().Info("gathered csv link", zap.String("url", csvURL))

	data, err := pl.client.GetBytes(ctx, csvURL)
	if err != nil {
		return 0, eris.Wrap(err, "caselink: download csv")
	}
	headers, err := ParseResultsCSV(csv.NewReader(strings.NewReader(string(data))))
	if err != nil {
		return 0, err
	}
	return pl.ImportRows(ctx, headers)
}

// ImportOptions tunes a full import run.
type ImportOptions struct {
	WithCaseDetails          bool
	WithPleadingDocuments    bool
	CancelDuringWorkingHours bool
	// CaseByCase skips the search grid and refreshes cases already in
	// the store for the window instead.
	CaseByCase  bool
	PendingOnly bool
}

// docketIDCodeItem names the grid cell that opens result row i.
func docketIDCodeItem(i int) string {
	return "P_102_" + strconv.Itoa(i)
}

// Import runs the full pipeline for one date window: search, import the
// grid rows, then optionally walk each case for details and pleadings.
func (pl *Planner) Import(ctx context.Context, start, end time.Time, opts ImportOptions) error {
	pages, headers, err := pl.Run(ctx, start, end)
	if err != nil {
		return err
	}
	if _, err := pl.ImportRows(ctx, headers); err != nil {
		return err
	}
	if !opts.WithCaseDetails {
		return nil
	}

	scraper := NewCasePageScraper(pl.client, pl.store)
	zap.L().Info("scraping cases",
		zap.Int("case_count", len(headers)),
		zap.Bool("with_pleading_documents", opts.WithPleadingDocuments),
	)
	for i, h := range headers {
		if !h.Admitted() {
			continue
		}
		if opts.CancelDuringWorkingHours && withinWorkingHours(time.Now().In(model.Nashville)) {
			zap.L().Info("pausing import during working hours",
				zap.String("next_docket_id", h.DocketID),
			)
			return nil
		}
		if err := scraper.FromSearchResults(ctx, docketIDCodeItem(i), h.DocketID, pages, opts.WithPleadingDocuments); err != nil {
			zap.L().Warn("case scrape failed, continuing",
				zap.String("docket_id", h.DocketID),
				zap.Error(err),
			)
		}
	}
	return nil
}

// ImportCaseByCase refreshes every stored detainer warrant filed in the
// window, one portal session per case, without touching the search
// grid. Scrape failures are logged and skipped.
func (pl *Planner) ImportCaseByCase(ctx context.Context, start, end time.Time, opts ImportOptions) error {
	dockets, err := pl.store.CasesFiledBetween(ctx, start, end, opts.PendingOnly)
	if err != nil {
		return err
	}
	scraper := NewCasePageScraper(pl.client, pl.store)
	zap.L().Info("refreshing cases one by one",
		zap.Int("case_count", len(dockets)),
		zap.Time("start", start),
		zap.Time("end", end),
	)
	for _, docketID := range dockets {
		if err := ctx.Err(); err != nil {
			return err
		}
		if opts.CancelDuringWorkingHours && withinWorkingHours(time.Now().In(model.Nashville)) {
			zap.L().Info("pausing import during working hours",
				zap.String("next_docket_id", docketID),
			)
			return nil
		}
		if err := scraper.ScrapeCase(ctx, docketID, opts.WithPleadingDocuments); err != nil {
			zap.L().Warn("case refresh failed, continuing",
				zap.String("docket_id", docketID),
				zap.Error(err),
			)
		}
	}
	return nil
}

// withinWorkingHours reports whether t falls in the 08:00-22:00 local
// window during which bulk imports yield to interactive portal users.
func withinWorkingHours(t time.Time) bool {
	return t.Hour() >= 8 && t.Hour() < 22
}

// ImportWeekly re-chunks a long window into ISO weeks and imports each.
func (pl *Planner) ImportWeekly(ctx context.Context, start, end time.Time, opts ImportOptions) error {
	_, startWeek := start.ISOWeek()
	_, endWeek := end.ISOWeek()
	// A window opening in the final ISO week of one year rolls over.
	if startWeek == 52 {
		startWeek = 1
	}

	weekStart := start
	for week := startWeek; week <= endWeek; week++ {
		weekEnd := weekStart.AddDate(0, 0, 6)
		if weekEnd.After(end) {
			weekEnd = end
		}
		var err error
		if opts.CaseByCase {
			err = pl.ImportCaseByCase(ctx, weekStart, weekEnd, opts)
		} else {
			err = pl.Import(ctx, weekStart, weekEnd, opts)
		}
		if err != nil {
			return eris.Wrapf(err, "caselink: import week %d", week)
		}
		weekStart = weekStart.AddDate(0, 0, 7)
		if weekStart.After(end) {
			break
		}
	}
	return nil
}
