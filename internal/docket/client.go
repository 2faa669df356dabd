package docket

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/red-door-collective/eviction-tracker/internal/config"
)

// noDocketMarker appears when a courtroom's docket for a day is not yet
// published, or never will be.
const noDocketMarker = "No GS-Civil docket for"

// The clerk's site keys dockets by numeric ids per courtroom.
var (
	courtroomIDs = map[string]int{"1A": 91, "1B": 73}
	locationIDs  = map[string]int{"1A": 72, "1B": 12}
)

// Courtrooms lists the general sessions courtrooms that hear detainer
// warrant cases.
func Courtrooms() []string {
	return []string{"1A", "1B"}
}

var pdfLinkRegex = regexp.MustCompile(`href="([^"]+\.pdf)"`)

// Client fetches published sessions dockets from the circuit clerk.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient builds a docket client from configuration.
func NewClient(cfg config.DocketConfig) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		baseURL:    cfg.BaseURL,
	}
}

// ErrNotPublished marks a courtroom/day with no docket available.
var ErrNotPublished = eris.New("docket: not published")

// FetchDay downloads the docket PDF for one courtroom and day. Returns
// ErrNotPublished when the clerk has nothing for that slot.
func (c *Client) FetchDay(ctx context.Context, courtroom string, day time.Time) ([]byte, error) {
	ddid, ok := courtroomIDs[courtroom]
	if !ok {
		return nil, eris.Errorf("docket: unknown courtroom %q", courtroom)
	}

	q := url.Values{}
	q.Set("ddid", strconv.Itoa(ddid))
	q.Set("date", day.Format("01/02/2006"))
	q.Set("time", "10:00")
	q.Set("loc", strconv.Itoa(locationIDs[courtroom]))
	q.Set("sn", "2")
	q.Set("sn2", "3")

	body, err := c.getText(ctx, c.baseURL+"/dockets/viewdocket_c.asp?"+q.Encode())
	if err != nil {
		return nil, err
	}
	if strings.Contains(body, noDocketMarker) {
		return nil, eris.Wrapf(ErrNotPublished, "courtroom %s on %s", courtroom, day.Format("01/02/2006"))
	}

	m := pdfLinkRegex.FindStringSubmatch(body)
	if m == nil {
		return nil, eris.Errorf("docket: no pdf link for courtroom %s on %s", courtroom, day.Format("01/02/2006"))
	}
	pdfURL := m[1]
	if u, err := url.Parse(pdfURL); err == nil && !u.IsAbs() {
		pdfURL = c.baseURL + "/" + u.String()
	}

	zap.L().Debug("downloading sessions docket",
		zap.String("courtroom", courtroom),
		zap.String("url", pdfURL),
	)
	return c.getBytes(ctx, pdfURL)
}

func (c *Client) getText(ctx context.Context, rawURL string) (string, error) {
	data, err := c.getBytes(ctx, rawURL)
	return string(data), err
}

func (c *Client) getBytes(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "docket: build request")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "docket: get %s", rawURL)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("docket: get %s returned %d", rawURL, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrapf(err, "docket: read %s", rawURL)
	}
	return data, nil
}
