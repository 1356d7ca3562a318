package receipts

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/msg43/getreceipts-web/pkg/httpclient"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL   = "http://localhost:3000/api"
	DefaultTimeout   = 30 * time.Second
	DefaultUserAgent = "getreceipts-go/0.1"

	maxLoggedBody = 1024
)

// Config carries everything the client needs. It is passed in explicitly so callers
// and tests never depend on process environment.
type Config struct {
	APIKey    string
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
	// RequestsPerMinute throttles outgoing calls when positive.
	RequestsPerMinute int
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient swaps the transport, mostly for tests.
func WithHTTPClient(hc httpclient.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the structured logger used for request outcomes.
func WithLogger(log Logger) Option {
	return func(c *Client) {
		c.log = ensureLogger(log)
	}
}

// Client talks to the GetReceipts API. Each call is a single request/response
// exchange; the client keeps no per-call state and is safe for concurrent use.
type Client struct {
	cfg     Config
	http    httpclient.Client
	log     Logger
	limiter *rate.Limiter
}

// NewClient builds a client. A missing API key is not rejected here; every call
// reports it as a *ConfigError before touching the network.
func NewClient(cfg Config, opts ...Option) *Client {
	cfg = normalizeConfig(cfg)
	c := &Client{cfg: cfg, log: noopLogger{}}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = httpclient.NewRestyClient(cfg.Timeout)
	}
	if cfg.RequestsPerMinute > 0 {
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}
	return c
}

func normalizeConfig(cfg Config) Config {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if strings.TrimSpace(cfg.UserAgent) == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	return cfg
}

// BaseURL returns the normalised API root.
func (c *Client) BaseURL() string { return c.cfg.BaseURL }

// HasCredential reports whether an API key is configured.
func (c *Client) HasCredential() bool { return c.cfg.APIKey != "" }

// CheckCredential returns the configuration error every call reports when no
// API key is set.
func (c *Client) CheckCredential() error {
	if c.cfg.APIKey == "" {
		return &ConfigError{Field: "api_key", Err: ErrMissingAPIKey}
	}
	return nil
}

// SubmitClaim posts a claim to /receipts and returns the decoded response.
func (c *Client) SubmitClaim(ctx context.Context, claim Claim) (*SubmitResult, error) {
	const op = "submit claim"

	var res SubmitResult
	raw, err := c.do(ctx, op, http.MethodPost, c.endpoint("receipts"), claim, &res)
	if err != nil {
		return nil, err
	}
	res.Raw = raw

	c.log.InfoObj("claim created", "receipt", map[string]any{
		"claim_id":                  res.ClaimID,
		"created_by":                res.CreatedBy,
		"authentication_method":     res.AuthenticationMethod,
		"api_key_name":              res.KeyName(),
		"url":                       res.URL,
		"knowledge_artifacts_count": res.KnowledgeArtifactsCount.Total,
	})
	return &res, nil
}

// AddKnowledgeArtifacts appends artifacts to an existing claim.
func (c *Client) AddKnowledgeArtifacts(ctx context.Context, claimID string, artifacts KnowledgeArtifacts) (*KnowledgeResult, error) {
	const op = "add knowledge artifacts"

	path, err := knowledgePath(claimID)
	if err != nil {
		return nil, err
	}
	if artifacts == nil {
		artifacts = KnowledgeArtifacts{}
	}

	var res KnowledgeResult
	raw, err := c.do(ctx, op, http.MethodPost, c.endpoint(path), artifacts, &res)
	if err != nil {
		return nil, err
	}
	res.Raw = raw

	c.log.InfoObj("knowledge artifacts added", "knowledge", map[string]any{
		"claim_id":       strings.TrimSpace(claimID),
		"created_by":     res.CreatedBy,
		"inserted_count": res.InsertedCount.Total,
	})
	return &res, nil
}

// GetKnowledgeArtifacts fetches every artifact stored for a claim.
func (c *Client) GetKnowledgeArtifacts(ctx context.Context, claimID string) (*KnowledgeSet, error) {
	const op = "get knowledge artifacts"

	path, err := knowledgePath(claimID)
	if err != nil {
		return nil, err
	}

	var set KnowledgeSet
	if _, err := c.do(ctx, op, http.MethodGet, c.endpoint(path), nil, &set); err != nil {
		return nil, err
	}
	c.log.DebugObj("knowledge artifacts fetched", "knowledge", map[string]any{
		"claim_id": strings.TrimSpace(claimID),
		"total":    set.Total(),
	})
	return &set, nil
}

func knowledgePath(claimID string) (string, error) {
	claimID = strings.TrimSpace(claimID)
	if claimID == "" {
		return "", &ConfigError{Field: "claim_id", Err: ErrEmptyClaimID}
	}
	return "knowledge/" + url.PathEscape(claimID), nil
}

func (c *Client) endpoint(path string) string {
	return c.cfg.BaseURL + "/" + path
}

func (c *Client) headers() map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + c.cfg.APIKey,
		"Content-Type":  "application/json",
		"Accept":        "application/json",
		"User-Agent":    c.cfg.UserAgent,
	}
}

// do performs one request and decodes a 200 body into out. It returns the body
// as a generic JSON object as well. A 200 whose body is not an object, or whose
// result lacks required fields, is a decode failure.
func (c *Client) do(ctx context.Context, op, method, target string, body, out any) (map[string]any, error) {
	if err := c.CheckCredential(); err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &TransportError{Op: op, URL: target, Err: fmt.Errorf("rate limiter: %w", err)}
		}
	}

	var (
		resp httpclient.Response
		err  error
	)
	switch method {
	case http.MethodGet:
		resp, err = c.http.Get(ctx, target, c.headers())
	default:
		resp, err = c.http.Post(ctx, target, c.headers(), body)
	}
	if err != nil {
		c.log.ErrorObj("receipts network error", "receipts_transport_error", map[string]any{
			"op":    op,
			"url":   target,
			"error": err.Error(),
		})
		return nil, &TransportError{Op: op, URL: target, Err: err}
	}

	payload := resp.Body()
	if resp.StatusCode() != http.StatusOK {
		herr := &HTTPError{
			Op:         op,
			URL:        target,
			StatusCode: resp.StatusCode(),
			Body:       string(payload),
		}
		if herr.StatusCode == http.StatusTooManyRequests {
			herr.RetryAfter = parseRetryAfter(resp.Header().Get("Retry-After"), payload)
		}
		c.log.ErrorObj("receipts request failed", "receipts_http_error", map[string]any{
			"op":       op,
			"url":      target,
			"status":   herr.StatusCode,
			"response": bodySnippet(payload, maxLoggedBody),
		})
		return nil, herr
	}

	var raw map[string]any
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, c.decodeFailure(op, target, resp.StatusCode(), payload, err)
	}
	if raw == nil {
		return nil, c.decodeFailure(op, target, resp.StatusCode(), payload, errEmptyResult)
	}
	if out != nil {
		if err := json.Unmarshal(payload, out); err != nil {
			return nil, c.decodeFailure(op, target, resp.StatusCode(), payload, err)
		}
		if v, ok := out.(interface{ validate() error }); ok {
			if err := v.validate(); err != nil {
				return nil, c.decodeFailure(op, target, resp.StatusCode(), payload, err)
			}
		}
	}
	return raw, nil
}

func (c *Client) decodeFailure(op, target string, status int, payload []byte, err error) error {
	c.log.ErrorObj("receipts response decode failed", "receipts_decode_error", map[string]any{
		"op":       op,
		"url":      target,
		"status":   status,
		"error":    err.Error(),
		"response": bodySnippet(payload, maxLoggedBody),
	})
	return &HTTPError{
		Op:         op,
		URL:        target,
		StatusCode: status,
		Body:       string(payload),
		decodeErr:  err,
	}
}

// parseRetryAfter reads delta-seconds from the header, falling back to the
// retryAfter field the API puts in 429 bodies.
func parseRetryAfter(header string, body []byte) time.Duration {
	if secs, err := strconv.Atoi(strings.TrimSpace(header)); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(strings.TrimSpace(header)); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	var hint struct {
		RetryAfter int `json:"retryAfter"`
	}
	if json.Unmarshal(body, &hint) == nil && hint.RetryAfter > 0 {
		return time.Duration(hint.RetryAfter) * time.Second
	}
	return 0
}

func bodySnippet(body []byte, limit int) string {
	s := strings.TrimSpace(string(body))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
