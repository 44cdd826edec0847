package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/advelops/adcp-salesagent/internal/models"
	"github.com/advelops/adcp-salesagent/internal/observability"
	"go.uber.org/zap"
)

// MatchRequest asks the scorer how well a product fits a buyer's brief.
type MatchRequest struct {
	ProductID string `json:"product_id"`
	Brief     string `json:"brief"`
}

// MatchResponse carries an opaque relevance score in [0, 1] plus a
// confidence the scorer has in that score.
type MatchResponse struct {
	ProductID  string  `json:"product_id"`
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
}

type cachedMatch struct {
	response  MatchResponse
	timestamp time.Time
	ttl       time.Duration
}

func (c cachedMatch) expired() bool { return time.Since(c.timestamp) > c.ttl }

// ProductMatcher scores products against a buyer's brief via a remote
// opaque matching service, degrading to a neutral score when that service
// is unavailable rather than failing get_products outright.
type ProductMatcher struct {
	baseURL    string
	httpClient *http.Client
	cache      map[string]cachedMatch
	cacheMu    sync.RWMutex
	cacheTTL   time.Duration
	logger     *zap.Logger
	metrics    observability.MetricsRegistry
}

// NewProductMatcher builds a ProductMatcher against the given scoring
// service base URL.
func NewProductMatcher(baseURL string, timeout, cacheTTL time.Duration, logger *zap.Logger, metrics observability.MetricsRegistry) *ProductMatcher {
	return &ProductMatcher{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		cache:      make(map[string]cachedMatch),
		cacheTTL:   cacheTTL,
		logger:     logger,
		metrics:    metrics,
	}
}

func (m *ProductMatcher) cacheKey(productID, brief string) string {
	return fmt.Sprintf("%s:%s", productID, brief)
}

// Score returns a relevance score for product against brief. On scorer
// unavailability it returns a neutral score (0.5, confidence 0) rather than
// an error, so get_products degrades gracefully instead of failing.
func (m *ProductMatcher) Score(ctx context.Context, product models.Product, brief string) MatchResponse {
	if brief == "" {
		return MatchResponse{ProductID: product.ProductID, Score: 1.0, Confidence: 1.0}
	}

	key := m.cacheKey(product.ProductID, brief)
	m.cacheMu.RLock()
	cached, ok := m.cache[key]
	m.cacheMu.RUnlock()
	if ok && !cached.expired() {
		return cached.response
	}

	resp, err := m.call(ctx, MatchRequest{ProductID: product.ProductID, Brief: brief})
	if err != nil {
		if m.logger != nil {
			m.logger.Warn("product matcher unavailable, using neutral score", zap.Error(err), zap.String("product_id", product.ProductID))
		}
		return MatchResponse{ProductID: product.ProductID, Score: 0.5, Confidence: 0}
	}

	m.cacheMu.Lock()
	m.cache[key] = cachedMatch{response: resp, timestamp: time.Now(), ttl: m.cacheTTL}
	m.cacheMu.Unlock()

	return resp
}

func (m *ProductMatcher) call(ctx context.Context, req MatchRequest) (MatchResponse, error) {
	start := time.Now()
	outcome := "success"
	defer func() {
		if m.metrics != nil {
			m.metrics.RecordAdapterCallLatency("product_matcher", "score", time.Since(start))
			m.metrics.IncrementAdapterCall("product_matcher", "score", outcome)
		}
	}()

	body, err := json.Marshal(req)
	if err != nil {
		outcome = "failure"
		return MatchResponse{}, fmt.Errorf("marshal match request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/score", bytes.NewReader(body))
	if err != nil {
		outcome = "failure"
		return MatchResponse{}, fmt.Errorf("build match request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(httpReq)
	if err != nil {
		outcome = "failure"
		return MatchResponse{}, fmt.Errorf("match request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		outcome = "failure"
		respBody, _ := io.ReadAll(resp.Body)
		return MatchResponse{}, fmt.Errorf("match service http %d: %s", resp.StatusCode, string(respBody))
	}

	var match MatchResponse
	if err := json.NewDecoder(resp.Body).Decode(&match); err != nil {
		outcome = "failure"
		return MatchResponse{}, fmt.Errorf("decode match response: %w", err)
	}
	return match, nil
}
