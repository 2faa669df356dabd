// Package docket ingests the county's published sessions dockets. Each
// docket is a PDF listing one courtroom's hearings for a day; the PDF
// is converted to positioned XML and queried geometrically, since the
// layout carries the row structure that the raw text loses.
package docket

import (
	"encoding/xml"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/red-door-collective/eviction-tracker/internal/model"
)

var (
	courtroomRegex = regexp.MustCompile(`Court\s*Room\s+(\d\w)`)
	headerRegex    = regexp.MustCompile(`(\d{2}/\d{2}/\d{4})\s+Time:\s+(\d+:\d+\w{2})`)
	docketIDRegex  = regexp.MustCompile(`\d{2}\w{2}\d+`)
	dashLineRegex  = regexp.MustCompile(`^-{15,}$`)
	spaceRunRegex  = regexp.MustCompile(`\s{2,}`)
)

// Column offsets in the converted layout. Docket ids anchor each row at
// the far left; the date/time header floats near the page center.
const (
	anchorLeftA = 30
	anchorLeftB = 33

	headerLeftA = 306
	headerLeftB = 289

	plaintiffColMin = 50
	plaintiffColMax = 250
)

// DefendantListing is one name block under a hearing row.
type DefendantListing struct {
	Name    string
	Address string
}

// Listing is one hearing row read off a sessions docket.
type Listing struct {
	DocketID          string
	CourtDate         time.Time
	Courtroom         string
	CourtOrderNumber  int64
	Plaintiff         string
	PlaintiffAttorney string
	Defendants        []DefendantListing
}

// Address returns the row's service address, taken from the first
// defendant block.
func (l Listing) Address() string {
	if len(l.Defendants) == 0 {
		return ""
	}
	return l.Defendants[0].Address
}

type layoutPage struct {
	Height float64      `xml:"height,attr"`
	Texts  []layoutText `xml:"text"`
}

type layoutText struct {
	Top     float64 `xml:"top,attr"`
	Left    float64 `xml:"left,attr"`
	Content string  `xml:",chardata"`
	Bold    string  `xml:"b"`
}

type layoutDoc struct {
	Pages []layoutPage `xml:"page"`
}

// cell is a positioned line with its top offset projected onto a single
// global axis across pages.
type cell struct {
	top  float64
	left float64
	text string
}

func cellsFromXML(data []byte) ([]cell, error) {
	var doc layoutDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrap(err, "docket: parse layout xml")
	}
	var cells []cell
	offset := 0.0
	for _, page := range doc.Pages {
		for _, t := range page.Texts {
			text := t.Content
			if strings.TrimSpace(text) == "" {
				text = t.Bold
			}
			text = strings.TrimRight(text, "\r\n")
			if strings.TrimSpace(text) == "" {
				continue
			}
			cells = append(cells, cell{top: offset + t.Top, left: t.Left, text: text})
		}
		offset += page.Height
	}
	sort.SliceStable(cells, func(i, j int) bool {
		if cells[i].top != cells[j].top {
			return cells[i].top < cells[j].top
		}
		return cells[i].left < cells[j].left
	})
	return cells, nil
}

// ParseLayoutXML reads the positioned XML of a sessions docket into
// hearing listings, in page order. Row order becomes each listing's
// court order number.
func ParseLayoutXML(data []byte) ([]Listing, error) {
	cells, err := cellsFromXML(data)
	if err != nil {
		return nil, err
	}
	if len(cells) == 0 {
		return nil, nil
	}

	courtroom := findCourtroom(cells)
	headers := findHeaders(cells)
	anchors := findAnchors(cells)

	listings := make([]Listing, 0, len(anchors))
	for i, anchor := range anchors {
		bandEnd := cells[len(cells)-1].top + 1
		if i+1 < len(anchors) {
			bandEnd = anchors[i+1].top
		}
		courtDate, err := headerBefore(headers, anchor.top)
		if err != nil {
			return nil, eris.Wrapf(err, "docket: row %s", anchor.text)
		}
		l := Listing{
			DocketID:         docketIDRegex.FindString(anchor.text),
			CourtDate:        courtDate,
			Courtroom:        courtroom,
			CourtOrderNumber: int64(i),
		}
		fillRow(&l, cells, anchor.top, bandEnd)
		listings = append(listings, l)
	}
	return listings, nil
}

func findCourtroom(cells []cell) string {
	for _, c := range cells {
		if m := courtroomRegex.FindStringSubmatch(c.text); m != nil {
			return m[1]
		}
	}
	return ""
}

type header struct {
	top       float64
	courtDate time.Time
}

func findHeaders(cells []cell) []header {
	var headers []header
	for _, c := range cells {
		if c.left != headerLeftA && c.left != headerLeftB {
			continue
		}
		m := headerRegex.FindStringSubmatch(c.text)
		if m == nil {
			continue
		}
		ts, err := time.ParseInLocation("01/02/2006 3:04PM", m[1]+" "+m[2], model.Nashville)
		if err != nil {
			continue
		}
		headers = append(headers, header{top: c.top, courtDate: ts})
	}
	return headers
}

// headerBefore picks the nearest header above the row.
func headerBefore(headers []header, top float64) (time.Time, error) {
	best := -1
	for i, h := range headers {
		if h.top >= top {
			continue
		}
		if best < 0 || h.top > headers[best].top {
			best = i
		}
	}
	if best < 0 {
		return time.Time{}, eris.New("no date header above row")
	}
	return headers[best].courtDate, nil
}

func findAnchors(cells []cell) []cell {
	var anchors []cell
	for _, c := range cells {
		if c.left != anchorLeftA && c.left != anchorLeftB {
			continue
		}
		if docketIDRegex.MatchString(c.text) {
			anchors = append(anchors, c)
		}
	}
	return anchors
}

// fillRow reads the plaintiff column and the defendant block out of the
// row band [top, bandEnd).
func fillRow(l *Listing, cells []cell, top, bandEnd float64) {
	var plaintiffLines, defendantLines []string
	for _, c := range cells {
		if c.top < top || c.top >= bandEnd {
			continue
		}
		switch {
		case c.left >= plaintiffColMin && c.left < plaintiffColMax:
			plaintiffLines = append(plaintiffLines, strings.TrimSpace(c.text))
		case c.left >= plaintiffColMax && c.left != headerLeftA && c.left != headerLeftB:
			defendantLines = append(defendantLines, strings.TrimSpace(c.text))
		}
	}
	if len(plaintiffLines) > 0 {
		l.Plaintiff = plaintiffLines[0]
	}
	if len(plaintiffLines) > 1 {
		l.PlaintiffAttorney = model.NormalizeAttorney(plaintiffLines[1])
	}
	l.Defendants = splitDefendantBlock(defendantLines)
}

// splitDefendantBlock divides the defendant column into per-person
// entries on the dashed separator lines. Only the first entry keeps its
// trailing lines as the service address.
func splitDefendantBlock(lines []string) []DefendantListing {
	var entries [][]string
	current := []string{}
	for _, line := range lines {
		if dashLineRegex.MatchString(line) {
			if len(current) > 0 {
				entries = append(entries, current)
				current = []string{}
			}
			continue
		}
		current = append(current, line)
	}
	if len(current) > 0 {
		entries = append(entries, current)
	}

	listings := make([]DefendantListing, 0, len(entries))
	for i, entry := range entries {
		d := DefendantListing{Name: entry[0]}
		if i == 0 && len(entry) > 1 {
			d.Address = normalizeMultiline(strings.Join(entry[1:], " "))
		}
		listings = append(listings, d)
	}
	return listings
}

func normalizeMultiline(text string) string {
	return strings.TrimSpace(spaceRunRegex.ReplaceAllString(text, " "))
}
