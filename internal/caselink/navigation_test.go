package caselink

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/red-door-collective/eviction-tracker/internal/config"
)

func newTestClient() *Client {
	return NewClient(config.CaseLinkConfig{
		BaseURL:  "https://caselink.nashville.gov",
		Username: "tester",
		Password: "hunter2",
	}, nil)
}

func fixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile("testdata/" + name)
	require.NoError(t, err)
	return string(data)
}

func TestPageFromBody_LoginRedirect(t *testing.T) {
	page, err := newTestClient().pageFromBody(fixture(t, "login-successful.html"))
	require.NoError(t, err)

	assert.Equal(t, "/gsapdfs/1714944347676.VERIFY.20580.77105150.html", page.Path)
	assert.Equal(t, "1714944347676", page.WebIOHandle)
	assert.Equal(t, "VERIFY", page.Parent)
}

func TestPageFromPath_Malformed(t *testing.T) {
	_, err := newTestClient().PageFromPath("/gsapdfs/whoops")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed postback path")
}

func TestPageFromBody_NoRedirect(t *testing.T) {
	_, err := newTestClient().pageFromBody("<html><body>nothing here</body></html>")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no postback redirect")
}

func TestStaleDetection(t *testing.T) {
	marker, stale := IsStaleHTML(`<title>CaseLink Public Inquiry</title>`)
	assert.True(t, stale)
	assert.Equal(t, "CaseLink Public Inquiry", marker)

	_, stale = IsStaleHTML(fixture(t, "case-page.html"))
	assert.False(t, stale)
}

func TestDocumentURL(t *testing.T) {
	assert.Equal(t,
		"https://caselinkimages.nashville.gov/Public/Sessions/24/24GT4890/3370253.pdf",
		DocumentURL(`\Public\Sessions\24\24GT4890\3370253.pdf`),
	)
}

func TestDocketIDFromImagePath(t *testing.T) {
	assert.Equal(t, "24GT4890", DocketIDFromImagePath(`\Public\Sessions\24\24GT4890\3370253.pdf`))
	// Some paths mix separators and fold the year into the docket segment.
	assert.Equal(t, "24GT4890", DocketIDFromImagePath(`\Public\Sessions\24/24GT4890\03370254.pdf`))
}
