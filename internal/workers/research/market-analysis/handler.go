// internal/workers/research/market-analysis/handler.go
package marketanalysis

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"research-crew/internal/common/logger"
	"research-crew/internal/common/metrics"
	"research-crew/internal/common/search"
	"research-crew/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "market-analysis"
)

var (
	// Figures worth surfacing in the report: financials, growth,
	// headcount, and founding dates.
	metricPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:revenue|profit|valuation)[:\s]+\$?[\d,]+\.?\d*[BMK]?`),
		regexp.MustCompile(`(?i)\$[\d,]+\.?\d*[BMK]?(?:\s*(?:billion|million))?`),
		regexp.MustCompile(`(?i)(?:\d+%\s*(?:growth|increase|market share)|(?:grew|increased)\s+\d+%)`),
		regexp.MustCompile(`(?i)(?:\d[\d,]*\s*employees|team\s+of\s+\d+|workforce\s+of\s+\d+)`),
		regexp.MustCompile(`(?i)(?:founded\s+in|established|started\s+in|since)\s+\d{4}`),
	}

	trendKeywords = []string{"trend", "growth", "market", "industry", "competitor", "demand", "expansion"}
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
		h.failJob(client, job, fmt.Errorf("parse input: %w", err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.logger.Warn("market analysis failed, returning empty results", map[string]interface{}{
			"error": err.Error(),
		})
		output = &Output{MarketData: MarketData{Trends: []string{}, KeyMetrics: []string{}, Sources: []models.Source{}}}
	}

	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	results, err := h.search.Search(ctx, search.Request{
		Q:   input.CompanyName + " competitors market position industry trends",
		Num: h.config.MaxResults,
	})
	if err != nil {
		return nil, err
	}

	sources := make([]models.Source, 0, len(results))
	var snippets []string
	for _, r := range results {
		sources = append(sources, models.Source{
			URL:     r.Link,
			Title:   r.Title,
			Snippet: r.Snippet,
		})
		if r.Snippet != "" {
			snippets = append(snippets, r.Snippet)
		}
	}

	data := MarketData{
		Positioning: buildPositioning(input.CompanyName, snippets),
		Trends:      extractTrends(snippets, h.config.MaxTrends),
		KeyMetrics:  extractMetrics(snippets),
		Sources:     sources,
	}

	h.logger.Info("market analysis completed", map[string]interface{}{
		"companyName": input.CompanyName,
		"trendCount":  len(data.Trends),
		"metricCount": len(data.KeyMetrics),
	})

	return &Output{MarketData: data}, nil
}

// buildPositioning stitches the most relevant snippets into a short
// positioning statement for the synthesis step.
func buildPositioning(companyName string, snippets []string) string {
	nameLower := strings.ToLower(companyName)
	var parts []string
	for _, s := range snippets {
		if strings.Contains(strings.ToLower(s), nameLower) {
			parts = append(parts, s)
		}
		if len(parts) == 2 {
			break
		}
	}
	return strings.Join(parts, " ")
}

func extractTrends(snippets []string, max int) []string {
	seen := make(map[string]bool)
	trends := []string{}

	for _, snippet := range snippets {
		for _, sentence := range strings.Split(snippet, ".") {
			s := strings.TrimSpace(sentence)
			if s == "" || seen[s] {
				continue
			}
			lower := strings.ToLower(s)
			for _, kw := range trendKeywords {
				if strings.Contains(lower, kw) {
					seen[s] = true
					trends = append(trends, s)
					break
				}
			}
			if len(trends) >= max {
				return trends
			}
		}
	}
	return trends
}

func extractMetrics(snippets []string) []string {
	seen := make(map[string]bool)
	metricsFound := []string{}

	for _, snippet := range snippets {
		for _, pattern := range metricPatterns {
			for _, m := range pattern.FindAllString(snippet, -1) {
				m = strings.TrimSpace(m)
				if m == "" || seen[m] {
					continue
				}
				seen[m] = true
				metricsFound = append(metricsFound, m)
			}
		}
	}
	return metricsFound
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

func (h *Handler) failJob(client worker.JobClient, job entities.Job, err error) {
	h.logger.Error("job failed", map[string]interface{}{
		"jobKey": job.Key,
		"error":  err.Error(),
	})

	metrics.WorkerJobsFailed.WithLabelValues(TaskType, "INVALID_INPUT").Inc()

	_, _ = client.NewFailJobCommand().
		JobKey(job.Key).
		Retries(0).
		ErrorMessage(err.Error()).
		Send(context.Background())
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
