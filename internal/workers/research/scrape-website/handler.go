// internal/workers/research/scrape-website/handler.go
package scrapewebsite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"research-crew/internal/common/logger"
	"research-crew/internal/common/metrics"
	"research-crew/internal/common/scrape"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "scrape-website"
)

var (
	ErrScrapeTimeout = errors.New("SCRAPE_TIMEOUT")
)

type Handler struct {
	config  *Config
	scraper *scrape.Client
	logger  logger.Logger
}

func NewHandler(config *Config, scraper *scrape.Client, log logger.Logger) *Handler {
	return &Handler{
		config:  config,
		scraper: scraper,
		logger:  log.WithFields(map[string]interface{}{"taskType": TaskType}),
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
		if errors.Is(err, ErrScrapeTimeout) {
			h.failJob(client, job, err, 0)
		} else {
			// Extraction copes with empty content; a dead site must not
			// stall the research run.
			h.logger.Warn("scrape failed, continuing with empty content", map[string]interface{}{
				"website": input.Website,
				"error":   err.Error(),
			})
			output = &Output{SiteContent: SiteContent{URL: input.Website}}
			h.completeJob(client, job, output)
		}
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	website := strings.TrimSpace(input.Website)
	if website == "" {
		h.logger.Warn("no website resolved, skipping scrape", map[string]interface{}{
			"companyName": input.CompanyName,
		})
		return &Output{SiteContent: SiteContent{}}, nil
	}

	content, err := h.scraper.Scrape(ctx, website)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded || strings.Contains(err.Error(), "deadline") {
			return nil, ErrScrapeTimeout
		}
		return nil, err
	}

	content = scrape.CleanText(content)

	h.logger.Info("website scraped", map[string]interface{}{
		"website":       website,
		"contentLength": len(content),
	})

	return &Output{
		SiteContent: SiteContent{
			URL:     website,
			Content: content,
			Length:  len(content),
		},
	}, nil
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
	errorCode := "SCRAPE_FAILED"
	if errors.Is(err, ErrScrapeTimeout) {
		errorCode = "SCRAPE_TIMEOUT"
	}

	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":    job.Key,
		"error":     err.Error(),
		"errorCode": errorCode,
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
