// Package mockapi is an in-memory stand-in for the GetReceipts HTTP API, used
// for local smoke runs and end-to-end tests.
package mockapi

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/msg43/getreceipts-web/internal/logger"
	"github.com/msg43/getreceipts-web/pkg/receipts"
	"golang.org/x/time/rate"
)

const (
	minClaimText    = 8
	createdBy       = "mock-user@getreceipts.local"
	keyNameCtxKey   = "api_key_name"
	shutdownTimeout = 5 * time.Second
)

var sourceTypes = map[string]bool{
	receipts.SourcePaper:   true,
	receipts.SourceArticle: true,
	receipts.SourceVideo:   true,
	receipts.SourceOrg:     true,
	receipts.SourceBook:    true,
	receipts.SourceReport:  true,
}

// Options configures a Server.
type Options struct {
	// Keys maps accepted bearer tokens to the key name echoed as api_key_name.
	Keys map[string]string
	// RequestsPerMinute limits POST /receipts per key; zero disables the limit.
	RequestsPerMinute int
	Logger            logger.Logger
}

// Server holds each claim's knowledge artifacts in memory, keyed by claim id.
type Server struct {
	mu       sync.Mutex
	keys     map[string]string
	claims   map[string]receipts.KnowledgeArtifacts
	limiters map[string]*rate.Limiter
	rpm      int
	log      logger.Logger
	engine   *gin.Engine
}

// New builds a server and its gin routes.
func New(opts Options) *Server {
	s := &Server{
		keys:     make(map[string]string, len(opts.Keys)),
		claims:   make(map[string]receipts.KnowledgeArtifacts),
		limiters: make(map[string]*rate.Limiter),
		rpm:      opts.RequestsPerMinute,
		log:      opts.Logger,
	}
	if s.log == nil {
		s.log = logger.NopLogger{}
	}
	for k, name := range opts.Keys {
		if k = strings.TrimSpace(k); k != "" {
			s.keys[k] = name
		}
	}

	r := gin.New()
	r.Use(gin.Recovery(), s.requestLog())

	api := r.Group("/api")
	api.GET("/knowledge/:claimId", s.getKnowledge)

	authed := api.Group("", s.bearerAuth())
	authed.POST("/receipts", s.rateLimit(), s.createReceipt)
	authed.POST("/knowledge/:claimId", s.addKnowledge)

	s.engine = r
	return s
}

// Handler exposes the routes for httptest or a custom server.
func (s *Server) Handler() http.Handler { return s.engine }

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("mock api listen: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("mock api shutdown: %w", err)
		}
		return nil
	}
}

// ClaimCount reports how many claims have been stored.
func (s *Server) ClaimCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.claims)
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.DebugObj("mock api request", "mock_request", map[string]any{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		})
	}
}

func (s *Server) bearerAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
		name, ok := s.keys[strings.TrimSpace(header[len("Bearer "):])]
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key"})
			return
		}
		c.Set(keyNameCtxKey, name)
		c.Next()
	}
}

func (s *Server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.rpm <= 0 {
			c.Next()
			return
		}
		key := c.GetString(keyNameCtxKey)

		s.mu.Lock()
		lim, ok := s.limiters[key]
		if !ok {
			lim = rate.NewLimiter(rate.Every(time.Minute/time.Duration(s.rpm)), s.rpm)
			s.limiters[key] = lim
		}
		s.mu.Unlock()

		now := time.Now()
		res := lim.ReserveN(now, 1)
		if delay := res.DelayFrom(now); delay > 0 {
			res.CancelAt(now)
			retryAfter := int(math.Ceil(delay.Seconds()))
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.Header("X-RateLimit-Limit", strconv.Itoa(s.rpm))
			c.Header("X-RateLimit-Remaining", "0")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":      "Too many requests",
				"retryAfter": retryAfter,
			})
			return
		}
		c.Next()
	}
}

func (s *Server) createReceipt(c *gin.Context) {
	var claim receipts.Claim
	if err := c.ShouldBindJSON(&claim); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}
	if fieldErrs := validateClaim(claim); len(fieldErrs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"fieldErrors": fieldErrs}})
		return
	}

	id := uuid.NewString()
	slug := strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
	knowledge := receipts.KnowledgeArtifacts{}
	mergeArtifacts(knowledge, claim.KnowledgeArtifacts)

	s.mu.Lock()
	s.claims[id] = knowledge
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{
		"claim_id":                  id,
		"url":                       "/claim/" + slug,
		"badge_url":                 "/api/badge/" + slug + ".svg",
		"created_by":                createdBy,
		"authentication_method":     "api_key",
		"api_key_name":              c.GetString(keyNameCtxKey),
		"knowledge_artifacts_count": categoryCounts(claim.KnowledgeArtifacts),
	})
}

func (s *Server) addKnowledge(c *gin.Context) {
	claimID := c.Param("claimId")

	var artifacts receipts.KnowledgeArtifacts
	if err := c.ShouldBindJSON(&artifacts); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}

	s.mu.Lock()
	knowledge, ok := s.claims[claimID]
	if ok {
		mergeArtifacts(knowledge, artifacts)
	}
	s.mu.Unlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Claim not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":               "Knowledge artifacts added successfully",
		"claim_id":              claimID,
		"created_by":            createdBy,
		"authentication_method": "api_key",
		"api_key_name":          c.GetString(keyNameCtxKey),
		"inserted_count":        categoryCounts(artifacts),
	})
}

func (s *Server) getKnowledge(c *gin.Context) {
	claimID := c.Param("claimId")

	s.mu.Lock()
	k := s.claims[claimID]
	set := receipts.KnowledgeSet{
		People:        copyArtifacts(k[receipts.CategoryPeople]),
		Jargon:        copyArtifacts(k[receipts.CategoryJargon]),
		MentalModels:  copyArtifacts(k[receipts.CategoryMentalModels]),
		Relationships: copyArtifacts(k[receipts.CategoryClaimRelationships]),
	}
	s.mu.Unlock()

	c.JSON(http.StatusOK, set)
}

func validateClaim(claim receipts.Claim) map[string][]string {
	errs := make(map[string][]string)
	if utf8.RuneCountInString(strings.TrimSpace(claim.ClaimText)) < minClaimText {
		errs["claim_text"] = append(errs["claim_text"], fmt.Sprintf("must contain at least %d characters", minClaimText))
	}
	for i, src := range claim.Sources {
		if src.Type != "" && !sourceTypes[src.Type] {
			field := fmt.Sprintf("sources.%d.type", i)
			errs[field] = append(errs[field], "invalid enum value "+strconv.Quote(src.Type))
		}
	}
	return errs
}

func categoryCounts(a receipts.KnowledgeArtifacts) map[string]int {
	return map[string]int{
		receipts.CategoryPeople:       len(a[receipts.CategoryPeople]),
		receipts.CategoryJargon:       len(a[receipts.CategoryJargon]),
		receipts.CategoryMentalModels: len(a[receipts.CategoryMentalModels]),
	}
}

func mergeArtifacts(dst, src receipts.KnowledgeArtifacts) {
	for cat, items := range src {
		dst[cat] = append(dst[cat], items...)
	}
}

func copyArtifacts(in []receipts.Artifact) []receipts.Artifact {
	out := make([]receipts.Artifact, len(in))
	copy(out, in)
	return out
}
