package enrich

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/msg43/getreceipts-web/pkg/httpclient"
	"github.com/msg43/getreceipts-web/pkg/receipts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubResponse struct {
	status int
	body   []byte
}

func (r stubResponse) Body() []byte        { return r.body }
func (r stubResponse) StatusCode() int     { return r.status }
func (r stubResponse) Header() http.Header { return http.Header{} }

type stubClient struct {
	mu    sync.Mutex
	pages map[string]stubResponse
	calls []string
}

func (c *stubClient) Get(_ context.Context, url string, _ map[string]string) (httpclient.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, url)
	resp, ok := c.pages[url]
	if !ok {
		return nil, errors.New("connection refused")
	}
	return resp, nil
}

func (c *stubClient) Post(context.Context, string, map[string]string, any) (httpclient.Response, error) {
	return nil, errors.New("not implemented")
}

func page(body string) stubResponse {
	return stubResponse{status: http.StatusOK, body: []byte(body)}
}

func TestEnrichFillsMissingTitles(t *testing.T) {
	t.Parallel()

	client := &stubClient{pages: map[string]stubResponse{
		"https://a.example/robots.txt": {status: http.StatusNotFound},
		"https://a.example/og":         page(`<html><head><meta property="og:title" content=" OG Title "><title>Plain</title></head></html>`),
		"https://a.example/plain":      page(`<html><head><title>Plain Title</title></head></html>`),
	}}
	e := NewSourceEnricher(client, "test-agent")

	claim := receipts.Claim{
		ClaimText: "claim text here",
		Sources: []receipts.Source{
			{Type: receipts.SourceArticle, URL: "https://a.example/og"},
			{Type: receipts.SourceArticle, URL: "https://a.example/plain"},
			{Type: receipts.SourceReport, URL: "https://a.example/og", Title: "Kept"},
			{Type: receipts.SourceBook, Title: "No URL"},
		},
	}

	out := e.Enrich(context.Background(), claim)

	require.Len(t, out.Sources, 4)
	assert.Equal(t, "OG Title", out.Sources[0].Title)
	assert.Equal(t, "Plain Title", out.Sources[1].Title)
	assert.Equal(t, "Kept", out.Sources[2].Title)
	assert.Equal(t, "No URL", out.Sources[3].Title)
	assert.Empty(t, claim.Sources[0].Title, "input claim must not be mutated")
}

func TestEnrichRespectsRobots(t *testing.T) {
	t.Parallel()

	client := &stubClient{pages: map[string]stubResponse{
		"https://b.example/robots.txt": page("User-agent: *\nDisallow: /private\n"),
		"https://b.example/private/x":  page(`<title>Secret</title>`),
	}}
	e := NewSourceEnricher(client, "test-agent")

	out := e.Enrich(context.Background(), receipts.Claim{
		Sources: []receipts.Source{{Type: receipts.SourceArticle, URL: "https://b.example/private/x"}},
	})

	assert.Empty(t, out.Sources[0].Title)
	assert.NotContains(t, client.calls, "https://b.example/private/x")
}

func TestEnrichWaitsForCrawlDelay(t *testing.T) {
	t.Parallel()

	client := &stubClient{pages: map[string]stubResponse{
		"https://slow.example/robots.txt": page("User-agent: *\nCrawl-delay: 0.2\n"),
		"https://slow.example/a":          page(`<title>A</title>`),
		"https://slow.example/b":          page(`<title>B</title>`),
	}}
	e := NewSourceEnricher(client, "test-agent", WithDelay(10*time.Millisecond))

	start := time.Now()
	out := e.Enrich(context.Background(), receipts.Claim{
		Sources: []receipts.Source{
			{Type: receipts.SourceArticle, URL: "https://slow.example/a"},
			{Type: receipts.SourceArticle, URL: "https://slow.example/b"},
		},
	})

	assert.GreaterOrEqual(t, time.Since(start), 200*time.Millisecond)
	assert.Equal(t, "A", out.Sources[0].Title)
	assert.Equal(t, "B", out.Sources[1].Title)
}

func TestEnrichLeavesSourceOnFailure(t *testing.T) {
	t.Parallel()

	client := &stubClient{pages: map[string]stubResponse{
		"https://c.example/gone": {status: http.StatusGone},
	}}
	e := NewSourceEnricher(client, "test-agent", WithoutRobots())

	out := e.Enrich(context.Background(), receipts.Claim{
		Sources: []receipts.Source{
			{Type: receipts.SourceArticle, URL: "https://c.example/gone"},
			{Type: receipts.SourceArticle, URL: "https://c.example/missing"},
		},
	})

	assert.Empty(t, out.Sources[0].Title)
	assert.Empty(t, out.Sources[1].Title)
	assert.Len(t, client.calls, 2)
}

func TestEnrichStopsOnCancelledContext(t *testing.T) {
	t.Parallel()

	client := &stubClient{pages: map[string]stubResponse{}}
	e := NewSourceEnricher(client, "test-agent", WithoutRobots())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := e.Enrich(ctx, receipts.Claim{
		Sources: []receipts.Source{{Type: receipts.SourceArticle, URL: "https://d.example/"}},
	})
	assert.Empty(t, out.Sources[0].Title)
	assert.Empty(t, client.calls)
}

func TestRobotsCheckerRejectsUnsupportedScheme(t *testing.T) {
	t.Parallel()

	r := NewRobotsChecker(&stubClient{}, "test-agent")
	_, _, err := r.CanFetch(context.Background(), "ftp://files.example/x")
	require.Error(t, err)
}

func TestParseTitleFallsBackToTitleTag(t *testing.T) {
	t.Parallel()

	title, err := parseTitle([]byte(`<html><head><meta property="og:title" content="  "><title> Fallback </title></head></html>`))
	require.NoError(t, err)
	assert.Equal(t, "Fallback", title)
}
