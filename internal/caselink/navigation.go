// Package caselink drives the county court's legacy CaseLink portal.
// The portal multiplexes every interaction through one form-encoded
// endpoint and answers with HTML shells whose inline JavaScript carries
// both the redirect target and the page's data. A Page holds the two
// session tokens that must be threaded through every postback.
package caselink

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/red-door-collective/eviction-tracker/internal/config"
	"github.com/red-door-collective/eviction-tracker/internal/resilience"
)

const (
	webshellPath = "/cgi-bin/webshell.asp"
	formEncoded  = "application/x-www-form-urlencoded"
	userAgent    = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

	// fieldSep joins the WCVARS/WCVALS side-channel entries.
	fieldSep = "\x7f"
)

var postbackPathRegex = regexp.MustCompile(`self\.location\s*=\s*"(.+?\.html)"`)

// staleMarkers identify a response that is a cached navigation shell
// rather than the requested resource. Any of them means the session
// tokens are dead and the caller must log in again.
var staleMarkers = []string{
	"CaseLink Public Inquiry",
	"Search for Case(s)",
	"LVP.MAIN_POSTREAD",
	"TktAlert",
}

// Client owns the HTTP transport, credentials, and pacing for one
// logical portal session. It must not be shared across runs.
type Client struct {
	httpClient *http.Client
	baseURL    string
	username   string
	password   string
	loginWait  time.Duration
	searchWait time.Duration
	limiter    *rate.Limiter
	breaker    *resilience.CircuitBreaker
	recorder   *Recorder
}

// NewClient builds a portal client from configuration.
func NewClient(cfg config.CaseLinkConfig, breaker *resilience.CircuitBreaker) *Client {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 105 * time.Second
	}
	rps := cfg.RequestsPerSec
	if rps <= 0 {
		rps = 2
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		username:   cfg.Username,
		password:   cfg.Password,
		loginWait:  time.Duration(cfg.LoginWaitSecs * float64(time.Second)),
		searchWait: time.Duration(cfg.SearchWaitSecs * float64(time.Second)),
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		breaker:    breaker,
	}
}

// SetRecorder attaches a request trace recorder, used by record mode.
func (c *Client) SetRecorder(r *Recorder) {
	c.recorder = r
}

// Page is a handle on one portal shell under /gsapdfs/. The embedded
// web IO handle and parent token are the session capability; every
// postback echoes them back to the server.
type Page struct {
	client      *Client
	Path        string
	WebIOHandle string
	Parent      string
	submitCount int
}

// PageFromPath parses the session tokens out of a /gsapdfs/ shell path.
func (c *Client) PageFromPath(path string) (*Page, error) {
	parts := strings.Split(strings.TrimPrefix(path, "/gsapdfs/"), ".")
	if len(parts) < 3 {
		return nil, eris.Errorf("caselink: malformed postback path %q", path)
	}
	return &Page{
		client:      c,
		Path:        path,
		WebIOHandle: parts[0],
		Parent:      parts[1],
		submitCount: 4,
	}, nil
}

// pageFromBody extracts the JavaScript redirect from a response body and
// returns a Page for the shell it points at.
func (c *Client) pageFromBody(body string) (*Page, error) {
	m := postbackPathRegex.FindStringSubmatch(body)
	if m == nil {
		if marker := staleMarker(body); marker != "" {
			return nil, &resilience.StaleSessionError{Marker: marker}
		}
		return nil, eris.New("caselink: no postback redirect in response")
	}
	return c.PageFromPath(m[1])
}

func staleMarker(body string) string {
	for _, marker := range staleMarkers {
		if strings.Contains(body, marker) {
			return marker
		}
	}
	return ""
}

// IsStaleHTML reports whether stored portal HTML is a dead navigation
// shell, together with the marker that identified it.
func IsStaleHTML(html string) (string, bool) {
	m := staleMarker(html)
	return m, m != ""
}

// Login posts the credential form and returns the search page.
// The portal needs a beat after login before it will answer postbacks.
func (c *Client) Login(ctx context.Context) (*Page, error) {
	handle := strconv.FormatInt(time.Now().UnixMilli(), 10)
	form := url.Values{
		"GATEWAY":     {"GATEWAY"},
		"CGISCRIPT":   {"webshell.asp"},
		"FINDDEFKEY":  {""},
		"XEVENT":      {"VERIFY"},
		"WEBIOHANDLE": {handle},
		"BROWSER":     {"C*Chrome*124.0*Mac*NOBLOCKTEST"},
		"MYPARENT":    {"px"},
		"APPID":       {"davlvp"},
		"WEBWORDSKEY": {"SAMPLE"},
		"DEVPATH":     {"/INNOVISION/DEVELOPMENT/LVP.DEV"},
		"OPERCODE":    {c.username},
		"PASSWD":      {c.password},
	}

	var page *Page
	retryCfg := resilience.RetryConfig{
		MaxAttempts:    4,
		InitialBackoff: time.Second,
		MaxBackoff:     time.Second,
		Multiplier:     1,
		OnRetry:        resilience.RetryLogger("caselink", "login"),
	}
	err := resilience.Do(ctx, retryCfg, func(ctx context.Context) error {
		body, err := c.post(ctx, "login", form, map[string]string{
			"Referer":        c.baseURL + "///davlvplogin.html?123",
			"Sec-Fetch-Dest": "frame",
		})
		if err != nil {
			return resilience.NewTransientError(err, 0)
		}
		page, err = c.pageFromBody(body)
		if err != nil {
			return resilience.NewTransientError(err, 0)
		}
		return nil
	})
	if err != nil {
		return nil, eris.Wrap(err, "caselink: login")
	}

	zap.L().Debug("caselink login succeeded",
		zap.String("web_io_handle", page.WebIOHandle),
		zap.String("parent", page.Parent),
	)
	sleepCtx(ctx, c.loginWait)
	return page, nil
}

// post submits one form to the webshell endpoint and returns the body.
func (c *Client) post(ctx context.Context, name string, form url.Values, extraHeaders map[string]string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", eris.Wrap(err, "caselink: rate limit wait")
	}

	do := func(ctx context.Context) (string, error) {
		encoded := form.Encode()
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.baseURL+webshellPath, strings.NewReader(encoded))
		if err != nil {
			return "", eris.Wrap(err, "caselink: build request")
		}
		req.Header.Set("Content-Type", formEncoded)
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Origin", c.baseURL)
		req.Header.Set("Cache-Control", "max-age=0")
		for k, v := range extraHeaders {
			req.Header.Set(k, v)
		}
		req.AddCookie(&http.Cookie{Name: "tktupdate", Value: ""})

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return "", resilience.NewTransientError(eris.Wrap(err, "caselink: post"), 0)
		}
		defer resp.Body.Close()
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return "", resilience.NewTransientError(
				eris.Errorf("caselink: status %d", resp.StatusCode), resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return "", eris.Errorf("caselink: status %d", resp.StatusCode)
		}
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", resilience.NewTransientError(eris.Wrap(err, "caselink: read body"), 0)
		}
		c.record(name, form)
		return string(body), nil
	}

	if c.breaker != nil {
		return resilience.ExecuteVal(ctx, c.breaker, do)
	}
	return do(ctx)
}

// get fetches an absolute or portal-relative URL with session cookies.
func (c *Client) get(ctx context.Context, rawURL string, extraHeaders map[string]string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", eris.Wrap(err, "caselink: rate limit wait")
	}
	if strings.HasPrefix(rawURL, "/") {
		rawURL = c.baseURL + rawURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", eris.Wrap(err, "caselink: build request")
	}
	req.Header.Set("User-Agent", userAgent)
	for k, v := range extraHeaders {
		req.Header.Set(k, v)
	}
	req.AddCookie(&http.Cookie{Name: "tktupdate", Value: ""})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", resilience.NewTransientError(eris.Wrap(err, "caselink: get"), 0)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", eris.Errorf("caselink: status %d for %s", resp.StatusCode, rawURL)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", eris.Wrap(err, "caselink: read body")
	}
	return string(body), nil
}

// GetBytes fetches a binary resource (a pleading PDF) over the session.
func (c *Client) GetBytes(ctx context.Context, rawURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "caselink: rate limit wait")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "caselink: build request")
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "caselink: get"), 0)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("caselink: status %d for %s", resp.StatusCode, rawURL)
	}
	return io.ReadAll(resp.Body)
}

// postback submits a virtual-button form against the current page.
func (p *Page) postback(ctx context.Context, name, codeItem, currVal string, opts postbackOpts) (string, error) {
	p.submitCount++
	wcVars := opts.wcVars
	wcVals := opts.wcVals
	if wcVars == "" {
		wcVars = fieldSep
	}
	if wcVals == "" {
		wcVals = fieldSep
	}
	changed := opts.changed
	if changed == 0 {
		changed = 2
	}
	panel := opts.panel
	if panel == 0 {
		panel = 1
	}
	xevent := opts.xevent
	if xevent == "" {
		xevent = "POSTBACK"
	}

	form := url.Values{
		"APPID":        {"davlvp"},
		"CODEITEMNM":   {codeItem},
		"CURRPROCESS":  {"CASELINK.MAIN"},
		"CURRVAL":      {currVal},
		"DEVAPPID":     {""},
		"DEVPATH":      {"/INNOVISION/DEVELOPMENT/LVP.DEV"},
		"FINDDEFKEY":   {"CASELINK.MAIN"},
		"GATEWAY":      {"PB,NOLOCK,1,1"},
		"LINENBR":      {"0"},
		"NEEDRECORDS":  {"1"},
		"OPERCODE":     {p.client.username},
		"PARENT":       {p.Parent + "*update"},
		"PREVVAL":      {""},
		"STDID":        {"52832"},
		"STDURL":       {"/caselink_4_4.davlvp_blank.html"},
		"TARGET":       {"postback"},
		"WEBIOHANDLE":  {p.WebIOHandle},
		"WINDOWNAME":   {"update"},
		"XEVENT":       {xevent},
		"CHANGED":      {strconv.Itoa(changed)},
		"CURRPANEL":    {strconv.Itoa(panel)},
		"HUBFILE":      {"USER_SETTING"},
		"NPKEYS":       {"0"},
		"SUBMITCOUNT":  {strconv.Itoa(p.submitCount)},
		"WEBEVENTPATH": {"/GSASYS/TKT/TKT.ADMIN/WEB_EVENT"},
		"WCVARS":       {wcVars},
		"WCVALS":       {wcVals},
	}
	body, err := p.client.post(ctx, name, form, map[string]string{
		"Referer":        p.client.baseURL + p.Path,
		"Sec-Fetch-Dest": "iframe",
	})
	if err != nil {
		return "", err
	}
	if marker := staleMarker(body); marker != "" && !opts.allowStale {
		return "", &resilience.StaleSessionError{Marker: marker}
	}
	return body, nil
}

type postbackOpts struct {
	wcVars     string
	wcVals     string
	changed    int
	panel      int
	xevent     string
	allowStale bool
}

// Menu opens the standard hub after login.
func (p *Page) Menu(ctx context.Context) (*Page, error) {
	body, err := p.postback(ctx, "menu", "", "", postbackOpts{xevent: "STDHUB", allowStale: true})
	if err != nil {
		return nil, eris.Wrap(err, "caselink: menu")
	}
	next, err := p.client.pageFromBody(body)
	if err != nil {
		return nil, eris.Wrap(err, "caselink: menu")
	}
	return next, nil
}

// ReadRec primes the search form record set.
func (p *Page) ReadRec(ctx context.Context) error {
	_, err := p.postback(ctx, "read_rec", "", "", postbackOpts{xevent: "READREC", allowStale: true})
	return eris.Wrap(err, "caselink: read_rec")
}

// AddStartDate types the file-date range start into the search form.
func (p *Page) AddStartDate(ctx context.Context, d time.Time) error {
	ds := toDateStr(d)
	_, err := p.postback(ctx, "add_start_date", "P_26", ds, postbackOpts{
		changed: 2,
		wcVars:  "P_26" + fieldSep,
		wcVals:  ds + fieldSep,
	})
	return eris.Wrap(err, "caselink: add start date")
}

// AddDetainerWarrantType sets the file-date range end and restricts the
// case type to detainer warrants. The portal batches both fields into a
// single postback.
func (p *Page) AddDetainerWarrantType(ctx context.Context, end time.Time) error {
	ds := toDateStr(end)
	_, err := p.postback(ctx, "add_detainer_warrant_type", "P_31", "2", postbackOpts{
		changed: 4,
		wcVars:  "P_27" + fieldSep + "P_31" + fieldSep,
		wcVals:  ds + fieldSep + "2" + fieldSep,
	})
	return eris.Wrap(err, "caselink: add detainer warrant type")
}

// Search submits the case search and returns the raw response body. The
// body may carry either the result grid or a redirect to it.
func (p *Page) Search(ctx context.Context) (string, error) {
	body, err := p.postback(ctx, "search", "WTKCB_20", "   Search for Case(s)  ", postbackOpts{
		changed:    4,
		allowStale: true,
	})
	if err != nil {
		return "", eris.Wrap(err, "caselink: search")
	}
	sleepCtx(ctx, p.client.searchWait)
	return body, nil
}

// SearchUpdate echoes the parsed grid back to the server, which the
// portal requires before any per-row button becomes active.
func (p *Page) SearchUpdate(ctx context.Context, wcVars, wcVals string) error {
	_, err := p.postback(ctx, "search_update", "", "", postbackOpts{
		changed:    3505,
		panel:      2,
		wcVars:     wcVars,
		wcVals:     wcVals,
		allowStale: true,
	})
	return eris.Wrap(err, "caselink: search update")
}

// ExportCSV clicks the export button on a result page; the response
// carries the CSV link inside a UserWinOpen call.
func (p *Page) ExportCSV(ctx context.Context) (string, error) {
	body, err := p.postback(ctx, "export_csv", "WTKCB_8", "Export List", postbackOpts{
		changed:    3505,
		panel:      2,
		allowStale: true,
	})
	return body, eris.Wrap(err, "caselink: export csv")
}

// OpenCase presses a result-grid docket cell, yielding the case shell.
func (p *Page) OpenCase(ctx context.Context, codeItem, docketID string) (*Page, error) {
	body, err := p.postback(ctx, "open_case", codeItem, docketID, postbackOpts{
		changed: 2,
		panel:   2,
	})
	if err != nil {
		return nil, eris.Wrap(err, "caselink: open case")
	}
	next, err := p.client.pageFromBody(body)
	if err != nil {
		return nil, eris.Wrapf(err, "caselink: open case %s", docketID)
	}
	return next, nil
}

// OpenCaseRedirect re-opens a case by docket id from the result page,
// producing the full case detail shell.
func (p *Page) OpenCaseRedirect(ctx context.Context, docketID string) (*Page, error) {
	body, err := p.postback(ctx, "open_case_redirect", "P_21", docketID, postbackOpts{
		changed: 2,
		wcVars:  "P_21" + fieldSep,
		wcVals:  docketID + fieldSep,
	})
	if err != nil {
		return nil, eris.Wrap(err, "caselink: open case redirect")
	}
	next, err := p.client.pageFromBody(body)
	if err != nil {
		return nil, eris.Wrapf(err, "caselink: open case redirect %s", docketID)
	}
	return next, nil
}

// OpenPleadingDocuments opens the pleading-documents frame for a case.
// The returned body carries the image paths inside a PutMvals call.
func (p *Page) OpenPleadingDocuments(ctx context.Context, docketID string) (string, error) {
	body, err := p.postback(ctx, "pleading_doc", "WTKCB_22", docketID, postbackOpts{
		changed: 2,
		panel:   2,
	})
	return body, eris.Wrapf(err, "caselink: open pleading documents %s", docketID)
}

// AdditionalDefendantInfo opens the defendant detail panel for a case.
func (p *Page) AdditionalDefendantInfo(ctx context.Context, docketID string) (string, error) {
	body, err := p.postback(ctx, "defendant_info", "P_210", docketID, postbackOpts{
		changed: 2,
		panel:   2,
	})
	return body, eris.Wrapf(err, "caselink: defendant info %s", docketID)
}

// ViewPDF requests a pleading image by portal path and returns the
// raw PDF bytes.
func (p *Page) ViewPDF(ctx context.Context, imagePath string) ([]byte, error) {
	_, err := p.postback(ctx, "view_pdf", "P_3", imagePath, postbackOpts{
		changed: 2,
		wcVars:  "P_3" + fieldSep,
		wcVals:  imagePath + fieldSep,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "caselink: view pdf %s", imagePath)
	}
	return p.client.GetBytes(ctx, DocumentURL(imagePath))
}

// FollowURL fetches the page's own shell, which carries the grid data.
func (p *Page) FollowURL(ctx context.Context) (string, error) {
	body, err := p.client.get(ctx, p.Path, map[string]string{
		"Referer":        p.client.baseURL + webshellPath,
		"Sec-Fetch-Dest": "iframe",
	})
	return body, eris.Wrap(err, "caselink: follow url")
}

// Heartbeat verifies that the session tokens are still honored.
func (p *Page) Heartbeat(ctx context.Context) error {
	body, err := p.FollowURL(ctx)
	if err != nil {
		return err
	}
	if marker := staleMarker(body); marker != "" {
		return &resilience.StaleSessionError{Marker: marker}
	}
	return nil
}

func toDateStr(d time.Time) string {
	return d.Format("01/02/2006")
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (c *Client) record(name string, form url.Values) {
	if c.recorder == nil {
		return
	}
	if err := c.recorder.Save(name, form); err != nil {
		zap.L().Warn("caselink: failed to record request trace",
			zap.String("name", name),
			zap.Error(err),
		)
	}
}

// DocumentURL maps a portal image path like
// \Public\Sessions\24\24GT4890\3370253.pdf onto its fetchable URL.
func DocumentURL(imagePath string) string {
	p := strings.ReplaceAll(imagePath, "\\", "/")
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return "https://caselinkimages.nashville.gov" + p
}

// DocketIDFromImagePath recovers the docket id from a pleading path:
// the second-to-last backslash segment, minus the stray "yy/" prefix
// that mixed-separator paths carry.
func DocketIDFromImagePath(imagePath string) string {
	parts := strings.Split(imagePath, "\\")
	if len(parts) < 2 {
		return ""
	}
	secondLast := parts[len(parts)-2]
	return leadingDigitsSlash.ReplaceAllString(secondLast, "")
}

var leadingDigitsSlash = regexp.MustCompile(`^\d+/+`)

// String implements fmt.Stringer without leaking session tokens in full.
func (p *Page) String() string {
	return fmt.Sprintf("caselink page %s (parent %s)", p.Path, p.Parent)
}
