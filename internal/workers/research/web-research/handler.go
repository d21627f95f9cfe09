// internal/workers/research/web-research/handler.go
package webresearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"research-crew/internal/common/logger"
	"research-crew/internal/common/metrics"
	"research-crew/internal/common/search"
	"research-crew/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "web-research"
)

var (
	ErrResearchTimeout = errors.New("SEARCH_TIMEOUT")
)

type Handler struct {
	config *Config
	search *search.Client
	logger logger.Logger
}

func NewHandler(config *Config, searchClient *search.Client, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		search: searchClient,
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
		if errors.Is(err, ErrResearchTimeout) {
			h.failJob(client, job, err, 0)
		} else {
			h.logger.Warn("web research failed, returning empty results", map[string]interface{}{
				"error": err.Error(),
			})
			output = &Output{ResearchData: ResearchData{Sources: []models.Source{}, Summary: ""}}
			h.completeJob(client, job, output)
		}
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	queries := buildQueries(input.CompanyName)

	var merged []search.Result
	var lastErr error
	for _, query := range queries {
		results, err := h.search.Search(ctx, search.Request{
			Q:   query,
			Num: h.config.MaxResults,
		})
		if err != nil {
			if ctx.Err() == context.DeadlineExceeded || strings.Contains(err.Error(), "deadline") {
				return nil, ErrResearchTimeout
			}
			h.logger.Warn("research query failed", map[string]interface{}{
				"query": query,
				"error": err.Error(),
			})
			lastErr = err
			continue
		}
		merged = append(merged, results...)
	}

	if len(merged) == 0 && lastErr != nil {
		return nil, lastErr
	}

	sources := h.processResults(input.CompanyName, merged)
	summary := generateSummary(sources)

	h.logger.Info("web research completed", map[string]interface{}{
		"queries":     len(queries),
		"resultCount": len(sources),
	})

	return &Output{
		ResearchData: ResearchData{
			Sources: sources,
			Summary: summary,
		},
	}, nil
}

// buildQueries returns the three research angles: background,
// products/services, and recent developments.
func buildQueries(companyName string) []string {
	name := strings.Join(strings.Fields(companyName), " ")
	return []string{
		name + " company background information",
		name + " products and services",
		name + " recent developments announcements",
	}
}

func (h *Handler) processResults(companyName string, results []search.Result) []models.Source {
	seen := make(map[string]bool)
	var sources []models.Source

	nameLower := strings.ToLower(companyName)

	for _, r := range results {
		if seen[r.Link] {
			continue
		}
		seen[r.Link] = true

		relevance := 1.0
		if strings.Contains(r.Link, ".gov") || strings.Contains(r.Link, ".edu") {
			relevance += 0.2
		}
		if strings.Contains(strings.ToLower(r.Title), nameLower) {
			relevance += 0.2
		}
		if strings.Contains(strings.ToLower(r.Title), "official") {
			relevance += 0.1
		}

		if relevance >= h.config.MinRelevance {
			sources = append(sources, models.Source{
				URL:       r.Link,
				Title:     r.Title,
				Snippet:   r.Snippet,
				Relevance: relevance,
			})
		}
	}

	sort.Slice(sources, func(i, j int) bool {
		return sources[i].Relevance > sources[j].Relevance
	})

	if len(sources) > h.config.MaxResults {
		sources = sources[:h.config.MaxResults]
	}

	return sources
}

// generateSummary joins the top snippets; the synthesis step turns these
// into prose later in the process.
func generateSummary(sources []models.Source) string {
	if len(sources) == 0 {
		return ""
	}

	var parts []string
	for i, s := range sources {
		if i >= 3 {
			break
		}
		if s.Snippet != "" {
			parts = append(parts, s.Snippet)
		}
	}
	return strings.Join(parts, " ")
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
	errorCode := "SEARCH_API_FAILED"
	if errors.Is(err, ErrResearchTimeout) {
		errorCode = "SEARCH_TIMEOUT"
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
