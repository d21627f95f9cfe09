// internal/gateway/handlers.go
package gateway

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"research-crew/internal/common/database"
	apperrors "research-crew/internal/common/errors"
	"research-crew/internal/common/logger"
	"research-crew/internal/common/metrics"
	"research-crew/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// CacheKey returns the Redis key a finished report is cached under. It
// must match what the storage worker writes.
func CacheKey(requestID string) string {
	return "research:report:" + requestID
}

// ProcessStarter abstracts the broker client so handlers can be tested
// without a running Zeebe.
type ProcessStarter interface {
	StartResearch(ctx context.Context, processID string, variables interface{}) (int64, error)
	HealthCheck(ctx context.Context) error
}

// Config carries the handler-relevant settings.
type Config struct {
	ProcessID string
	ESIndex   string
}

type Handlers struct {
	cfg     Config
	starter ProcessStarter
	redis   *database.RedisClient
	db      *sql.DB
	es      *database.ElasticsearchClient
	logger  logger.Logger
}

func NewHandlers(cfg Config, starter ProcessStarter, redisClient *database.RedisClient, db *sql.DB, esClient *database.ElasticsearchClient, log logger.Logger) *Handlers {
	return &Handlers{
		cfg:     cfg,
		starter: starter,
		redis:   redisClient,
		db:      db,
		es:      esClient,
		logger:  log.WithFields(map[string]interface{}{"component": "gateway"}),
	}
}

// Index serves the submission form.
func (h *Handlers) Index(c *gin.Context) {
	c.Status(http.StatusOK)
	c.Header("Content-Type", "text/html; charset=utf-8")
	_ = indexPage.Execute(c.Writer, nil)
}

type submitRequest struct {
	CompanyName string `json:"companyName" form:"company_name"`
	Depth       string `json:"depth" form:"depth"`
}

// SubmitResearch validates the request, reuses a cached report when one
// exists, and otherwise starts a research process instance.
func (h *Handlers) SubmitResearch(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBind(&req); err != nil {
		metrics.GatewayRequests.WithLabelValues("submit", "400").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	companyName := strings.TrimSpace(req.CompanyName)
	if companyName == "" {
		metrics.GatewayRequests.WithLabelValues("submit", "400").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "company name is required"})
		return
	}

	depth := models.Depth(req.Depth)
	if depth == "" {
		depth = models.DepthBasic
	}
	if !models.ValidDepth(depth) {
		metrics.GatewayRequests.WithLabelValues("submit", "400").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("depth must be %q or %q", models.DepthBasic, models.DepthComprehensive)})
		return
	}

	requestID := models.RequestID(companyName)

	// Repeat submissions within the cache TTL reuse the finished report.
	if report, ok := h.cachedReport(c.Request.Context(), requestID); ok {
		metrics.GatewayRequests.WithLabelValues("submit", "200").Inc()
		c.JSON(http.StatusOK, gin.H{
			"requestId": requestID,
			"status":    models.StatusComplete,
			"cached":    true,
			"report":    report,
		})
		return
	}

	request := models.ResearchRequest{
		RequestID:   requestID,
		CompanyName: companyName,
		Depth:       depth,
		SubmittedAt: time.Now().UTC(),
	}

	key, err := h.starter.StartResearch(c.Request.Context(), h.cfg.ProcessID, request)
	if err != nil {
		status := http.StatusInternalServerError
		var stdErr *apperrors.StandardError
		if errors.As(err, &stdErr) && stdErr.Code == apperrors.ErrCodeBrokerUnavailable {
			status = http.StatusServiceUnavailable
		}

		h.logger.Error("failed to start research process", map[string]interface{}{
			"companyName": companyName,
			"error":       err.Error(),
		})
		metrics.GatewayRequests.WithLabelValues("submit", fmt.Sprint(status)).Inc()
		c.JSON(status, gin.H{"error": "could not start research, try again later"})
		return
	}

	metrics.GatewayRequests.WithLabelValues("submit", "202").Inc()
	metrics.ResearchStarted.WithLabelValues(string(depth)).Inc()

	h.logger.Info("research started", map[string]interface{}{
		"requestId":          requestID,
		"companyName":        companyName,
		"depth":              string(depth),
		"processInstanceKey": key,
	})

	c.JSON(http.StatusAccepted, gin.H{
		"requestId":          requestID,
		"status":             models.StatusPending,
		"cached":             false,
		"processInstanceKey": key,
	})
}

// GetResearch returns the report for a request id: cache first, then the
// database. An id with no stored report reads as still pending.
func (h *Handlers) GetResearch(c *gin.Context) {
	requestID := c.Param("id")

	if report, ok := h.cachedReport(c.Request.Context(), requestID); ok {
		metrics.GatewayRequests.WithLabelValues("get", "200").Inc()
		c.JSON(http.StatusOK, gin.H{
			"requestId": requestID,
			"status":    models.StatusComplete,
			"cached":    true,
			"report":    report,
		})
		return
	}

	report, err := h.loadReport(c.Request.Context(), requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Still running, or never submitted; the client keeps polling.
			metrics.GatewayRequests.WithLabelValues("get", "404").Inc()
			c.JSON(http.StatusNotFound, gin.H{
				"requestId": requestID,
				"status":    models.StatusPending,
			})
			return
		}

		h.logger.Error("report lookup failed", map[string]interface{}{
			"requestId": requestID,
			"error":     err.Error(),
		})
		metrics.GatewayRequests.WithLabelValues("get", "500").Inc()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "report lookup failed"})
		return
	}

	metrics.GatewayRequests.WithLabelValues("get", "200").Inc()
	c.JSON(http.StatusOK, gin.H{
		"requestId": requestID,
		"status":    models.StatusComplete,
		"cached":    false,
		"report":    report,
	})
}

// SearchReports runs a full-text query over stored reports.
func (h *Handlers) SearchReports(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		metrics.GatewayRequests.WithLabelValues("search", "400").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter q is required"})
		return
	}

	reports, err := h.searchReports(c.Request.Context(), query)
	if err != nil {
		h.logger.Error("report search failed", map[string]interface{}{
			"query": query,
			"error": err.Error(),
		})
		metrics.GatewayRequests.WithLabelValues("search", "500").Inc()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "report search failed"})
		return
	}

	metrics.GatewayRequests.WithLabelValues("search", "200").Inc()
	c.JSON(http.StatusOK, gin.H{"query": query, "results": reports})
}

// Health reports broker and store connectivity.
func (h *Handlers) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	checks := gin.H{}
	healthy := true

	if h.starter != nil {
		if err := h.starter.HealthCheck(ctx); err != nil {
			checks["broker"] = "down"
			healthy = false
		} else {
			checks["broker"] = "up"
		}
	}

	if h.db != nil {
		if err := h.db.PingContext(ctx); err != nil {
			checks["postgres"] = "down"
			healthy = false
		} else {
			checks["postgres"] = "up"
		}
	}

	if h.redis != nil {
		if err := h.redis.Ping(ctx); err != nil {
			checks["redis"] = "down"
			healthy = false
		} else {
			checks["redis"] = "up"
		}
	}

	status := http.StatusOK
	overall := "ok"
	if !healthy {
		status = http.StatusServiceUnavailable
		overall = "degraded"
	}
	c.JSON(status, gin.H{"status": overall, "checks": checks})
}

func (h *Handlers) cachedReport(ctx context.Context, requestID string) (*models.Report, bool) {
	if h.redis == nil {
		return nil, false
	}

	raw, err := h.redis.Get(ctx, CacheKey(requestID))
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			h.logger.Warn("cache read failed", map[string]interface{}{
				"requestId": requestID,
				"error":     err.Error(),
			})
		}
		return nil, false
	}

	var report models.Report
	if err := json.Unmarshal([]byte(raw), &report); err != nil {
		h.logger.Warn("cached report is malformed", map[string]interface{}{
			"requestId": requestID,
			"error":     err.Error(),
		})
		return nil, false
	}
	return &report, true
}

func (h *Handlers) loadReport(ctx context.Context, requestID string) (*models.Report, error) {
	if h.db == nil {
		return nil, sql.ErrNoRows
	}

	var (
		report       models.Report
		depth        string
		sectionsJSON []byte
		sourcesJSON  []byte
		createdAt    time.Time
	)

	err := h.db.QueryRowContext(ctx, `
		SELECT id, company_name, depth, sections, confidence, sources, created_at
		FROM reports WHERE request_id = $1`, requestID).
		Scan(&report.ID, &report.CompanyName, &depth, &sectionsJSON, &report.Confidence, &sourcesJSON, &createdAt)
	if err != nil {
		return nil, err
	}

	report.RequestID = requestID
	report.Depth = models.Depth(depth)
	report.CreatedAt = createdAt
	if err := json.Unmarshal(sectionsJSON, &report.Sections); err != nil {
		return nil, fmt.Errorf("decode sections: %w", err)
	}
	if len(sourcesJSON) > 0 {
		if err := json.Unmarshal(sourcesJSON, &report.Sources); err != nil {
			return nil, fmt.Errorf("decode sources: %w", err)
		}
	}
	return &report, nil
}

func (h *Handlers) searchReports(ctx context.Context, query string) ([]models.Report, error) {
	if h.es == nil {
		return []models.Report{}, nil
	}

	body := map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query,
				"fields": []string{"companyName^2", "sections.*"},
			},
		},
		"size": 10,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	res, err := h.es.Client.Search(
		h.es.Client.Search.WithContext(ctx),
		h.es.Client.Search.WithIndex(h.cfg.ESIndex),
		h.es.Client.Search.WithBody(bytes.NewReader(payload)),
	)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search response: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source models.Report `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	reports := make([]models.Report, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		reports = append(reports, hit.Source)
	}
	return reports, nil
}
