// internal/workers/research/store-report/handler.go
package storereport

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"research-crew/internal/common/database"
	"research-crew/internal/common/logger"
	"research-crew/internal/common/metrics"
	"research-crew/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const (
	TaskType = "store-report"
)

var (
	ErrReportStoreFailed = errors.New("REPORT_STORE_FAILED")
)

// CacheKey returns the Redis key a stored report is cached under.
func CacheKey(requestID string) string {
	return "research:report:" + requestID
}

type Handler struct {
	config *Config
	db     *sql.DB
	redis  *database.RedisClient
	es     *database.ElasticsearchClient
	logger logger.Logger
}

func NewHandler(config *Config, db *sql.DB, redisClient *database.RedisClient, esClient *database.ElasticsearchClient, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		db:     db,
		redis:  redisClient,
		es:     esClient,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, fmt.Errorf("parse input: %w", err), 0)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		retries := int32(0)
		if errors.Is(err, ErrReportStoreFailed) {
			retries = 3
		}
		h.failJob(client, job, err, retries)
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	draft := input.Report
	if draft.RequestID == "" || draft.CompanyName == "" {
		return nil, fmt.Errorf("report is missing requestId or companyName")
	}

	report := models.Report{
		ID:          uuid.New().String(),
		RequestID:   draft.RequestID,
		CompanyName: draft.CompanyName,
		Depth:       models.Depth(draft.Depth),
		Sections:    draft.Sections,
		Confidence:  draft.Confidence,
		Sources:     draft.Sources,
		CreatedAt:   time.Now().UTC(),
	}

	sectionsJSON, err := json.Marshal(report.Sections)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal sections: %v", ErrReportStoreFailed, err)
	}
	sourcesJSON, err := json.Marshal(report.Sources)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal sources: %v", ErrReportStoreFailed, err)
	}

	// Repeat submissions reuse the request id; keep only the latest report
	// per request.
	_, err = h.db.ExecContext(ctx, `
		INSERT INTO reports (
			id, request_id, company_name, depth, sections, confidence, sources, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (request_id) DO UPDATE SET
			id = EXCLUDED.id,
			company_name = EXCLUDED.company_name,
			depth = EXCLUDED.depth,
			sections = EXCLUDED.sections,
			confidence = EXCLUDED.confidence,
			sources = EXCLUDED.sources,
			created_at = EXCLUDED.created_at`,
		report.ID,
		report.RequestID,
		report.CompanyName,
		string(report.Depth),
		sectionsJSON,
		report.Confidence,
		sourcesJSON,
		report.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: insert failed: %v", ErrReportStoreFailed, err)
	}

	// Search index and cache are secondary copies; their failure must not
	// fail the run once the report is in Postgres.
	if err := h.indexReport(ctx, &report); err != nil {
		h.logger.Warn("elasticsearch index failed", map[string]interface{}{
			"reportId": report.ID,
			"error":    err.Error(),
		})
	}

	if err := h.cacheReport(ctx, &report); err != nil {
		h.logger.Warn("redis cache write failed", map[string]interface{}{
			"reportId": report.ID,
			"error":    err.Error(),
		})
	}

	h.logger.Info("report stored", map[string]interface{}{
		"reportId":    report.ID,
		"requestId":   report.RequestID,
		"companyName": report.CompanyName,
	})

	return &Output{
		ReportID:  report.ID,
		RequestID: report.RequestID,
		Status:    models.StatusComplete,
		StoredAt:  report.CreatedAt.Format(time.RFC3339),
	}, nil
}

func (h *Handler) indexReport(ctx context.Context, report *models.Report) error {
	if h.es == nil {
		return nil
	}

	body, err := json.Marshal(report)
	if err != nil {
		return err
	}

	res, err := h.es.Client.Index(
		h.config.ESIndex,
		bytes.NewReader(body),
		h.es.Client.Index.WithDocumentID(report.ID),
		h.es.Client.Index.WithContext(ctx),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index response: %s", res.Status())
	}
	return nil
}

func (h *Handler) cacheReport(ctx context.Context, report *models.Report) error {
	if h.redis == nil {
		return nil
	}

	body, err := json.Marshal(report)
	if err != nil {
		return err
	}
	return h.redis.Set(ctx, CacheKey(report.RequestID), string(body), h.config.CacheTTL)
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}

	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, err error, retries int32) {
	errorCode := "INVALID_INPUT"
	if errors.Is(err, ErrReportStoreFailed) {
		errorCode = "REPORT_STORE_FAILED"
	}

	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":    job.Key,
		"error":     err.Error(),
		"errorCode": errorCode,
		"retries":   retries,
	})

	metrics.WorkerJobsFailed.WithLabelValues(TaskType, errorCode).Inc()

	_, _ = client.NewFailJobCommand().
		JobKey(job.Key).
		Retries(retries).
		ErrorMessage(err.Error()).
		Send(context.Background())
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
