package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/msg43/getreceipts-web/internal/config"
	"github.com/msg43/getreceipts-web/internal/mockapi"
	"github.com/msg43/getreceipts-web/pkg/publishers"
	"github.com/msg43/getreceipts-web/pkg/receipts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	api       *mockapi.Server
	knowGETs  atomic.Int32
	mu        sync.Mutex
	events    []publishers.Event
	submitter *Submitter
}

func newHarness(t *testing.T, apiKey string) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	h := &harness{api: mockapi.New(mockapi.Options{Keys: map[string]string{"good-key": "ci-key"}})}

	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			h.knowGETs.Add(1)
		}
		h.api.Handler().ServeHTTP(w, r)
	}))
	t.Cleanup(apiSrv.Close)

	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var evt publishers.Event
		if err := json.NewDecoder(r.Body).Decode(&evt); err == nil {
			h.mu.Lock()
			h.events = append(h.events, evt)
			h.mu.Unlock()
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(hook.Close)

	dir := t.TempDir()
	pubFile := filepath.Join(dir, "publishers.yaml")
	require.NoError(t, os.WriteFile(pubFile, []byte("publishers:\n  - id: hook\n    type: http\n    http:\n      url: "+hook.URL+"\n"), 0o644))

	cfg := &config.Config{
		AppName:                "test",
		APIKey:                 apiKey,
		APIURL:                 apiSrv.URL + "/api",
		RequestTimeout:         5 * time.Second,
		UserAgent:              receipts.DefaultUserAgent,
		StorageType:            "bbolt",
		JournalPath:            filepath.Join(dir, "journal.db"),
		JournalTTL:             time.Hour,
		JournalCleanupInterval: time.Hour,
		PublishersFile:         pubFile,
		KnowledgeCacheTTL:      time.Minute,
	}

	s, err := NewSubmitter(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	h.submitter = s
	return h
}

func (h *harness) eventKinds() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.events))
	for _, e := range h.events {
		out = append(out, e.Kind)
	}
	return out
}

func TestSubmitterEndToEnd(t *testing.T) {
	h := newHarness(t, "good-key")
	ctx := context.Background()

	res, err := h.submitter.Submit(ctx, receipts.ExampleClaim(), SubmitOptions{SkipSeen: true})
	require.NoError(t, err)
	require.NotEmpty(t, res.ClaimID)
	assert.Equal(t, "ci-key", res.KeyName())
	assert.Equal(t, 3, res.KnowledgeArtifactsCount.Total)

	_, err = h.submitter.Submit(ctx, receipts.ExampleClaim(), SubmitOptions{SkipSeen: true})
	assert.ErrorIs(t, err, ErrAlreadySubmitted)
	assert.Equal(t, 1, h.api.ClaimCount())

	history, err := h.submitter.History()
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, res.ClaimID, history[0].ClaimID)

	set, err := h.submitter.FetchKnowledge(ctx, res.ClaimID)
	require.NoError(t, err)
	assert.Len(t, set.People, 1)
	_, err = h.submitter.FetchKnowledge(ctx, res.ClaimID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, h.knowGETs.Load(), "second fetch should be served from cache")

	added, err := h.submitter.AddKnowledge(ctx, res.ClaimID, receipts.KnowledgeArtifacts{
		receipts.CategoryPeople: {{"name": "Dr. Katharine Hayhoe"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, added.InsertedCount.Total)

	set, err = h.submitter.FetchKnowledge(ctx, res.ClaimID)
	require.NoError(t, err)
	assert.Len(t, set.People, 2)
	assert.EqualValues(t, 2, h.knowGETs.Load(), "add should invalidate the cached set")

	assert.Equal(t, []string{publishers.KindClaimSubmitted, publishers.KindKnowledgeAdded}, h.eventKinds())
}

func TestSubmitterMissingKeyFailsBeforeNetwork(t *testing.T) {
	h := newHarness(t, "")

	_, err := h.submitter.Submit(context.Background(), receipts.ExampleClaim(), SubmitOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, receipts.ErrMissingAPIKey)

	var cfgErr *receipts.ConfigError
	assert.True(t, errors.As(err, &cfgErr))
	assert.Zero(t, h.api.ClaimCount())
	assert.Empty(t, h.eventKinds())
}

func TestSubmitterSanitizesBeforeJournaling(t *testing.T) {
	h := newHarness(t, "good-key")

	claim := receipts.Claim{ClaimText: "<b>Sea levels</b> are rising"}
	_, err := h.submitter.Submit(context.Background(), claim, SubmitOptions{Sanitize: true})
	require.NoError(t, err)

	history, err := h.submitter.History()
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "Sea levels are rising", history[0].ClaimText)
}

func TestSubmitterSkipSeenChecksJournalBeforeEnriching(t *testing.T) {
	h := newHarness(t, "good-key")

	var pageHits atomic.Int32
	pages := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		n := pageHits.Add(1)
		_, _ = fmt.Fprintf(w, "<html><head><title>Edition %d</title></head></html>", n)
	}))
	t.Cleanup(pages.Close)

	claim := receipts.Claim{
		ClaimText: "Arctic sea ice is thinning",
		Sources:   []receipts.Source{{Type: receipts.SourceArticle, URL: pages.URL + "/ice"}},
	}
	opts := SubmitOptions{Enrich: true, SkipSeen: true}

	_, err := h.submitter.Submit(context.Background(), claim, opts)
	require.NoError(t, err)
	require.EqualValues(t, 1, pageHits.Load())

	_, err = h.submitter.Submit(context.Background(), claim, opts)
	assert.ErrorIs(t, err, ErrAlreadySubmitted)
	assert.EqualValues(t, 1, pageHits.Load(), "a skipped claim must not fetch its sources")
	assert.Equal(t, 1, h.api.ClaimCount())
}

func TestSubmitterSurfacesHTTPErrors(t *testing.T) {
	h := newHarness(t, "revoked-key")

	_, err := h.submitter.Submit(context.Background(), receipts.ExampleClaim(), SubmitOptions{})
	assert.ErrorIs(t, err, receipts.ErrUnauthorized)
	assert.Equal(t, http.StatusUnauthorized, receipts.StatusCode(err))

	history, err := h.submitter.History()
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.Empty(t, h.eventKinds())
}

func TestNewSubmitterRejectsNilConfig(t *testing.T) {
	_, err := NewSubmitter(context.Background(), nil, nil)
	assert.Error(t, err)
}
