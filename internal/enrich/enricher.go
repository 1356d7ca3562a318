package enrich

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/msg43/getreceipts-web/internal/logger"
	"github.com/msg43/getreceipts-web/pkg/httpclient"
	"github.com/msg43/getreceipts-web/pkg/receipts"
)

var errDisallowed = errors.New("disallowed by robots.txt")

const (
	// maxParsedHTMLBytes bounds how much of a fetched page goquery parses.
	maxParsedHTMLBytes = 1 << 20
	defaultTimeout     = 15 * time.Second
)

// SourceEnricher fills in missing source titles from the cited pages.
type SourceEnricher struct {
	client    httpclient.Client
	robots    *RobotsChecker
	delay     time.Duration
	userAgent string
	log       logger.Logger
}

// Option customises a SourceEnricher.
type Option func(*SourceEnricher)

// WithDelay sets the minimum pause between page fetches.
func WithDelay(d time.Duration) Option {
	return func(e *SourceEnricher) { e.delay = d }
}

// WithLogger sets the logger used for fetch failures.
func WithLogger(log logger.Logger) Option {
	return func(e *SourceEnricher) {
		if log != nil {
			e.log = log
		}
	}
}

// WithoutRobots disables robots.txt checks.
func WithoutRobots() Option {
	return func(e *SourceEnricher) { e.robots = nil }
}

// NewSourceEnricher constructs an enricher with the provided HTTP client (or default).
func NewSourceEnricher(client httpclient.Client, userAgent string, opts ...Option) *SourceEnricher {
	if client == nil {
		client = httpclient.NewRestyClient(defaultTimeout)
	}
	if strings.TrimSpace(userAgent) == "" {
		userAgent = receipts.DefaultUserAgent
	}
	e := &SourceEnricher{
		client:    client,
		robots:    NewRobotsChecker(client, userAgent),
		userAgent: userAgent,
		log:       logger.NopLogger{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enrich returns a copy of claim where every source with a URL and no title has
// been given the page's og:title or <title>. Failures leave the source as-is.
func (e *SourceEnricher) Enrich(ctx context.Context, claim receipts.Claim) receipts.Claim {
	if len(claim.Sources) == 0 {
		return claim
	}
	out := claim
	out.Sources = append([]receipts.Source(nil), claim.Sources...)

	fetched := 0
	for i, src := range out.Sources {
		if strings.TrimSpace(src.Title) != "" || strings.TrimSpace(src.URL) == "" {
			continue
		}

		select {
		case <-ctx.Done():
			return out
		default:
		}

		allowed, crawlDelay, err := e.checkRobots(ctx, src.URL)
		if err == nil && !allowed {
			err = errDisallowed
		}
		if err != nil {
			e.warn(src.URL, err)
			continue
		}

		delay := max(e.delay, crawlDelay)
		if fetched > 0 && delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return out
			case <-timer.C:
			}
		}
		fetched++

		title, err := e.fetchTitle(ctx, src.URL)
		if err != nil {
			e.warn(src.URL, err)
			continue
		}
		if title != "" {
			out.Sources[i].Title = title
		}
	}
	return out
}

func (e *SourceEnricher) warn(url string, err error) {
	e.log.WarnObj("source title lookup failed", "enrich_error", map[string]any{
		"url":   url,
		"error": err.Error(),
	})
}

// checkRobots returns the host's crawl delay along with the verdict.
func (e *SourceEnricher) checkRobots(ctx context.Context, rawURL string) (bool, time.Duration, error) {
	if e.robots == nil {
		return true, 0, nil
	}
	return e.robots.CanFetch(ctx, rawURL)
}

func (e *SourceEnricher) fetchTitle(ctx context.Context, rawURL string) (string, error) {
	resp, err := e.client.Get(ctx, rawURL, map[string]string{
		"User-Agent": e.userAgent,
		"Accept":     "text/html",
	})
	if err != nil {
		return "", fmt.Errorf("http fetch: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode())
	}

	body := resp.Body()
	if len(body) > maxParsedHTMLBytes {
		body = body[:maxParsedHTMLBytes]
	}
	return parseTitle(body)
}

func parseTitle(body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	og := ""
	if node := doc.Find(`meta[property="og:title"]`).First(); node.Length() > 0 {
		if val, ok := node.Attr("content"); ok {
			og = val
		}
	}
	return firstNonEmpty(og, doc.Find("title").First().Text()), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
