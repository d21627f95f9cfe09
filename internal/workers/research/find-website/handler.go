// internal/workers/research/find-website/handler.go
package findwebsite

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"research-crew/internal/common/logger"
	"research-crew/internal/common/metrics"
	"research-crew/internal/common/search"
	"research-crew/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "find-website"
)

// Domains that rank high for company queries but are never the official site.
var aggregatorDomains = []string{
	"wikipedia.org", "linkedin.com", "facebook.com", "twitter.com", "x.com",
	"instagram.com", "youtube.com", "crunchbase.com", "bloomberg.com",
	"glassdoor.com", "indeed.com", "yelp.com",
}

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
		// Downstream steps handle a missing website; an unresolved site must
		// not stall the whole research run.
		h.logger.Warn("website lookup failed, continuing without a site", map[string]interface{}{
			"companyName": input.CompanyName,
			"error":       err.Error(),
		})
		output = &Output{Website: "", WebsiteSources: []models.Source{}}
	}

	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if strings.TrimSpace(input.CompanyName) == "" {
		return nil, fmt.Errorf("companyName is empty")
	}

	results, err := h.search.Search(ctx, search.Request{
		Q:   input.CompanyName + " official website",
		Num: h.config.MaxResults,
	})
	if err != nil {
		return nil, err
	}

	sources := make([]models.Source, 0, len(results))
	for _, r := range results {
		sources = append(sources, models.Source{
			URL:       r.Link,
			Title:     r.Title,
			Snippet:   r.Snippet,
			Relevance: scoreResult(input.CompanyName, r),
		})
	}

	website := pickWebsite(sources)
	if website == "" {
		h.logger.Warn("no official website among results", map[string]interface{}{
			"companyName": input.CompanyName,
			"resultCount": len(results),
		})
	} else {
		h.logger.Info("website resolved", map[string]interface{}{
			"companyName": input.CompanyName,
			"website":     website,
		})
	}

	return &Output{Website: website, WebsiteSources: sources}, nil
}

// scoreResult ranks a search hit as a candidate official site.
func scoreResult(companyName string, r search.Result) float64 {
	relevance := 1.0

	host := hostOf(r.Link)
	if host == "" {
		return 0
	}

	for _, d := range aggregatorDomains {
		if strings.HasSuffix(host, d) {
			return 0.1
		}
	}

	slug := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(companyName)), " ", "")
	if slug != "" && strings.Contains(strings.ReplaceAll(host, "-", ""), slug) {
		relevance += 0.5
	}
	if strings.Contains(strings.ToLower(r.Title), "official") {
		relevance += 0.1
	}
	// Earlier positions carry the provider's own ranking signal.
	if r.Position > 0 {
		relevance += 0.3 / float64(r.Position)
	}

	return relevance
}

func pickWebsite(sources []models.Source) string {
	best := ""
	bestScore := 0.5
	for _, s := range sources {
		if s.Relevance > bestScore {
			best = s.URL
			bestScore = s.Relevance
		}
	}
	return best
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Host), "www.")
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
