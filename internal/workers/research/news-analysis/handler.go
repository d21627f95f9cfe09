// internal/workers/research/news-analysis/handler.go
package newsanalysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"research-crew/internal/common/logger"
	"research-crew/internal/common/metrics"
	"research-crew/internal/common/search"
	"research-crew/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "news-analysis"
)

// Small lexicon for headline-level sentiment. Good enough for a coarse
// label; the full prose assessment comes from the synthesis step.
var (
	positiveWords = []string{
		"growth", "record", "profit", "launch", "expansion", "partnership",
		"award", "acquisition", "innovative", "success", "milestone", "surge",
	}
	negativeWords = []string{
		"lawsuit", "layoff", "layoffs", "decline", "loss", "losses", "recall",
		"breach", "scandal", "bankruptcy", "investigation", "fine", "drop",
	}
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
		h.logger.Warn("news analysis failed, returning empty results", map[string]interface{}{
			"error": err.Error(),
		})
		output = &Output{NewsData: NewsData{
			Developments: []string{},
			Sentiment:    SentimentNeutral,
			Sources:      []models.Source{},
		}}
	}

	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	results, err := h.search.Search(ctx, search.Request{
		Q:   input.CompanyName + " news",
		Num: h.config.MaxResults,
		TBS: h.config.TimeFilter,
	})
	if err != nil {
		return nil, err
	}

	sources := make([]models.Source, 0, len(results))
	var developments []string
	var corpus []string

	for _, r := range results {
		sources = append(sources, models.Source{
			URL:     r.Link,
			Title:   r.Title,
			Snippet: r.Snippet,
		})
		if r.Title != "" && len(developments) < h.config.MaxDevelopments {
			developments = append(developments, r.Title)
		}
		corpus = append(corpus, r.Title, r.Snippet)
	}

	label, score := scoreSentiment(strings.Join(corpus, " "))

	h.logger.Info("news analysis completed", map[string]interface{}{
		"companyName":      input.CompanyName,
		"developmentCount": len(developments),
		"sentiment":        label,
	})

	return &Output{NewsData: NewsData{
		Developments:   developments,
		Sentiment:      label,
		SentimentScore: score,
		Sources:        sources,
	}}, nil
}

// scoreSentiment counts lexicon hits and maps the balance to a label.
// The score is in [-1, 1].
func scoreSentiment(text string) (string, float64) {
	lower := strings.ToLower(text)

	pos, neg := 0, 0
	for _, w := range positiveWords {
		pos += strings.Count(lower, w)
	}
	for _, w := range negativeWords {
		neg += strings.Count(lower, w)
	}

	total := pos + neg
	if total == 0 {
		return SentimentNeutral, 0
	}

	score := float64(pos-neg) / float64(total)
	switch {
	case score > 0.2:
		return SentimentPositive, score
	case score < -0.2:
		return SentimentNegative, score
	default:
		return SentimentNeutral, score
	}
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
