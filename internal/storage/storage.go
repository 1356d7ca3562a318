// Package storage keeps a local journal of submitted receipts.
package storage

import (
	"fmt"
	"strings"
	"time"
)

// Entry records one successful submission.
type Entry struct {
	Key         string    `json:"key"`
	ClaimID     string    `json:"claim_id,omitempty"`
	URL         string    `json:"url,omitempty"`
	ClaimText   string    `json:"claim_text"`
	SubmittedAt time.Time `json:"submitted_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Store tracks submitted claims by fingerprint.
type Store interface {
	Close() error
	SeenReceipt(key string) (bool, error)
	MarkReceipt(entry Entry) error
	Entries() ([]Entry, error)
}

// Options controls retention characteristics for concrete store implementations.
type Options struct {
	TTL             time.Duration
	CleanupInterval time.Duration
}

const (
	defaultTTL             = 30 * 24 * time.Hour
	defaultCleanupInterval = 12 * time.Hour
)

// NewStore creates the configured storage backend.
func NewStore(typ, path string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "none", "disabled":
		return noopStore{}, nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(path, opts)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.TTL <= 0 {
		opts.TTL = defaultTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

type noopStore struct{}

func (noopStore) Close() error                     { return nil }
func (noopStore) SeenReceipt(string) (bool, error) { return false, nil }
func (noopStore) MarkReceipt(Entry) error          { return nil }
func (noopStore) Entries() ([]Entry, error)        { return nil, nil }
