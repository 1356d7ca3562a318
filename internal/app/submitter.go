package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/msg43/getreceipts-web/internal/cache"
	"github.com/msg43/getreceipts-web/internal/config"
	"github.com/msg43/getreceipts-web/internal/enrich"
	"github.com/msg43/getreceipts-web/internal/logger"
	"github.com/msg43/getreceipts-web/internal/storage"
	"github.com/msg43/getreceipts-web/pkg/httpclient"
	"github.com/msg43/getreceipts-web/pkg/publishers"
	"github.com/msg43/getreceipts-web/pkg/receipts"
)

// ErrAlreadySubmitted is returned by Submit with SkipSeen when the journal
// already holds the same claim.
var ErrAlreadySubmitted = errors.New("claim already submitted")

// SubmitOptions selects the optional steps run around a submission.
type SubmitOptions struct {
	Sanitize bool
	Enrich   bool
	SkipSeen bool
}

// Submitter wires the API client to the journal, knowledge cache, source
// enricher and event sinks.
type Submitter struct {
	cfg      *config.Config
	client   *receipts.Client
	store    storage.Store
	cache    cache.Cache
	cacheTTL time.Duration
	enricher *enrich.SourceEnricher
	fanout   *publishers.Fanout
	log      logger.Logger
}

// NewSubmitter builds a submitter runtime from config.
func NewSubmitter(ctx context.Context, cfg *config.Config, log logger.Logger) (*Submitter, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	client := receipts.NewClient(cfg.ClientConfig(), receipts.WithLogger(log))
	log.InfoObj("receipts client configured", "client_config", map[string]any{
		"base_url":            client.BaseURL(),
		"api_key_set":         client.HasCredential(),
		"timeout_seconds":     int(cfg.RequestTimeout.Seconds()),
		"requests_per_minute": cfg.RequestsPerMinute,
	})

	fanout, err := buildFanout(ctx, cfg.PublishersFile, log)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewStore(cfg.StorageType, cfg.JournalPath, storage.Options{
		TTL:             cfg.JournalTTL,
		CleanupInterval: cfg.JournalCleanupInterval,
	})
	if err != nil {
		fanout.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":                     cfg.StorageType,
		"path":                     cfg.JournalPath,
		"ttl_seconds":              int(cfg.JournalTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.JournalCleanupInterval.Seconds()),
	})

	var kc cache.Cache = cache.Noop{}
	if cfg.KnowledgeCacheTTL > 0 {
		kc = cache.NewMemoryCache(cfg.KnowledgeCacheTTL, 2*cfg.KnowledgeCacheTTL)
	}

	enricher := enrich.NewSourceEnricher(
		httpclient.NewRestyClient(cfg.RequestTimeout),
		cfg.UserAgent,
		enrich.WithDelay(cfg.EnrichDelay()),
		enrich.WithLogger(log),
	)

	return &Submitter{
		cfg:      cfg,
		client:   client,
		store:    store,
		cache:    kc,
		cacheTTL: cfg.KnowledgeCacheTTL,
		enricher: enricher,
		fanout:   fanout,
		log:      log,
	}, nil
}

// buildFanout returns an empty fanout when no publishers file is configured.
func buildFanout(ctx context.Context, path string, log logger.Logger) (*publishers.Fanout, error) {
	if strings.TrimSpace(path) == "" {
		return publishers.NewFanout(nil), nil
	}

	reg, err := publishers.LoadRegistry(path)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}
	enabled := reg.Enabled()
	pubs, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}

	summaries := make([]map[string]string, 0, len(enabled))
	for _, p := range enabled {
		summaries = append(summaries, map[string]string{"id": p.ID, "type": p.Type})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(summaries),
		"publishers": summaries,
	})
	return publishers.NewFanout(pubs), nil
}

// Client exposes the underlying API client.
func (s *Submitter) Client() *receipts.Client { return s.client }

// Submit posts the claim after the optional sanitize, dedupe and enrich steps.
// The journal key is taken from the claim before enrichment, so fetched titles
// never change it. The journal and sinks are only touched after the API
// accepted the claim; a sink failure is logged and never fails the submission.
func (s *Submitter) Submit(ctx context.Context, claim receipts.Claim, opts SubmitOptions) (*receipts.SubmitResult, error) {
	if err := s.client.CheckCredential(); err != nil {
		return nil, err
	}

	if opts.Sanitize {
		claim = receipts.Sanitize(claim)
	}

	key, err := receipts.ClaimKey(claim)
	if err != nil {
		return nil, fmt.Errorf("fingerprint claim: %w", err)
	}
	if opts.SkipSeen {
		seen, err := s.store.SeenReceipt(key)
		if err != nil {
			return nil, fmt.Errorf("check journal: %w", err)
		}
		if seen {
			s.log.InfoObj("claim already submitted; skipping", "journal_hit", map[string]any{"key": key})
			return nil, ErrAlreadySubmitted
		}
	}

	if opts.Enrich || s.cfg.EnrichSources {
		claim = s.enricher.Enrich(ctx, claim)
		if opts.Sanitize {
			claim = receipts.Sanitize(claim)
		}
	}

	res, err := s.client.SubmitClaim(ctx, claim)
	if err != nil {
		return nil, err
	}

	if err := s.store.MarkReceipt(storage.Entry{
		Key:         key,
		ClaimID:     res.ClaimID,
		URL:         res.URL,
		ClaimText:   claim.ClaimText,
		SubmittedAt: time.Now().UTC(),
	}); err != nil {
		s.log.ErrorObj("journal write failed", "journal_error", map[string]any{
			"claim_id": res.ClaimID,
			"error":    err.Error(),
		})
	}

	s.publish(ctx, publishers.NewClaimSubmittedEvent(claim, res))
	return res, nil
}

// AddKnowledge attaches artifacts to a claim and drops its cached knowledge.
func (s *Submitter) AddKnowledge(ctx context.Context, claimID string, artifacts receipts.KnowledgeArtifacts) (*receipts.KnowledgeResult, error) {
	res, err := s.client.AddKnowledgeArtifacts(ctx, claimID, artifacts)
	if err != nil {
		return nil, err
	}
	s.cache.Delete(cache.KnowledgeKey(claimID))
	s.publish(ctx, publishers.NewKnowledgeAddedEvent(claimID, res))
	return res, nil
}

// FetchKnowledge returns a claim's knowledge artifacts, served from cache when fresh.
func (s *Submitter) FetchKnowledge(ctx context.Context, claimID string) (*receipts.KnowledgeSet, error) {
	key := cache.KnowledgeKey(claimID)
	if v, ok := s.cache.Get(key); ok {
		if set, ok := v.(*receipts.KnowledgeSet); ok {
			s.log.DebugObj("knowledge cache hit", "knowledge_cache", map[string]any{"claim_id": claimID})
			return set, nil
		}
	}

	set, err := s.client.GetKnowledgeArtifacts(ctx, claimID)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, set, s.cacheTTL)
	return set, nil
}

// History lists journaled submissions, newest first.
func (s *Submitter) History() ([]storage.Entry, error) {
	entries, err := s.store.Entries()
	if err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}
	return entries, nil
}

// Close releases the journal and sink connections.
func (s *Submitter) Close() error {
	if s == nil {
		return nil
	}
	s.fanout.Close()
	if s.store == nil {
		return nil
	}
	if err := s.store.Close(); err != nil {
		s.log.ErrorObj("storage close failed", "error", err)
		return fmt.Errorf("close storage: %w", err)
	}
	return nil
}

func (s *Submitter) publish(ctx context.Context, evt publishers.Event) {
	if s.fanout.Size() == 0 {
		return
	}
	delivered, err := s.fanout.Publish(ctx, evt)
	if err != nil {
		s.log.WarnObj("event delivery failed", "publish_error", map[string]any{
			"kind":      evt.Kind,
			"claim_id":  evt.ClaimID,
			"delivered": delivered,
			"error":     err.Error(),
		})
		return
	}
	s.log.DebugObj("event delivered", "publish_meta", map[string]any{
		"kind":      evt.Kind,
		"claim_id":  evt.ClaimID,
		"delivered": delivered,
	})
}
