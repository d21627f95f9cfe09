// internal/workers/research/synthesize-report/handler.go
package synthesizereport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"research-crew/internal/common/genai"
	"research-crew/internal/common/logger"
	"research-crew/internal/common/metrics"
	"research-crew/internal/models"
	"research-crew/pkg/registry"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "synthesize-report"
)

var (
	ErrLLMTimeout         = errors.New("LLM_TIMEOUT")
	ErrLLMSynthesisFailed = errors.New("LLM_SYNTHESIS_FAILED")
)

// insufficientDataText replaces a blank completion so the stored report
// never has an empty body.
const insufficientDataText = "I don't have enough information to answer that question."

type Handler struct {
	config  *Config
	genai   *genai.Client
	profile *registry.AgentProfile
	logger  logger.Logger
}

func NewHandler(config *Config, genaiClient *genai.Client, reg *registry.AgentRegistry, log logger.Logger) (*Handler, error) {
	profile := reg.Get(config.AgentID)
	if profile == nil {
		return nil, fmt.Errorf("agent profile %q not found in registry", config.AgentID)
	}

	return &Handler{
		config:  config,
		genai:   genaiClient,
		profile: profile,
		logger:  log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}, nil
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
		if errors.Is(err, ErrLLMTimeout) || errors.Is(err, ErrLLMSynthesisFailed) {
			retries = 1
		}
		h.failJob(client, job, err, retries)
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	messages := []genai.ChatMessage{
		{Role: "system", Content: h.profile.SystemPrompt()},
		{Role: "user", Content: h.buildPrompt(input)},
	}

	text, err := h.completeWithRetry(ctx, messages)
	if err != nil {
		return nil, err
	}

	confidence := 0.5
	if strings.TrimSpace(text) == "" {
		text = insufficientDataText
		confidence = 0.1
	} else {
		confidence = scoreConfidence(input)
	}

	sections := splitSections(text)
	if sections.ExecutiveSummary == "" {
		// Model ignored the structure; keep the whole answer readable.
		sections.ExecutiveSummary = text
	}
	fillFromExtraction(&sections, input)

	report := ReportDraft{
		RequestID:   input.RequestID,
		CompanyName: input.CompanyName,
		Depth:       input.Depth,
		Sections:    sections,
		Confidence:  confidence,
		Sources:     collectSources(input),
	}

	h.logger.Info("report synthesized", map[string]interface{}{
		"companyName": input.CompanyName,
		"depth":       input.Depth,
		"confidence":  confidence,
		"provider":    string(h.genai.Provider()),
	})

	return &Output{Report: report}, nil
}

func (h *Handler) completeWithRetry(ctx context.Context, messages []genai.ChatMessage) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= h.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ErrLLMTimeout
			}
		}

		text, err := h.genai.Complete(ctx, messages)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return "", ErrLLMTimeout
		}
	}

	if ctx.Err() == context.DeadlineExceeded {
		return "", ErrLLMTimeout
	}
	return "", fmt.Errorf("%w: %v", ErrLLMSynthesisFailed, lastErr)
}

func (h *Handler) buildPrompt(input *Input) string {
	var parts []string

	parts = append(parts, h.profile.RenderTask(input.CompanyName, input.Depth))

	if input.ResearchData.Summary != "" {
		parts = append(parts, "\nWeb Research Summary:")
		parts = append(parts, input.ResearchData.Summary)
	}

	if len(input.ResearchData.Sources) > 0 {
		parts = append(parts, "\nSources:")
		for _, src := range input.ResearchData.Sources {
			parts = append(parts, fmt.Sprintf("- %s: %s", src.Title, src.URL))
		}
	}

	if input.ExtractedData.About != "" {
		parts = append(parts, "\nAbout the Company:")
		parts = append(parts, input.ExtractedData.About)
	}
	if input.ExtractedData.Products != "" {
		parts = append(parts, "\nProducts and Services:")
		parts = append(parts, input.ExtractedData.Products)
	}
	if input.ExtractedData.ContactInfo != "" {
		parts = append(parts, "\nContact Information:")
		parts = append(parts, input.ExtractedData.ContactInfo)
	}

	if input.MarketData.Positioning != "" || len(input.MarketData.Trends) > 0 {
		parts = append(parts, "\nMarket Analysis:")
		if input.MarketData.Positioning != "" {
			parts = append(parts, input.MarketData.Positioning)
		}
		for _, trend := range input.MarketData.Trends {
			parts = append(parts, "- "+trend)
		}
	}

	if len(input.NewsData.Developments) > 0 {
		parts = append(parts, fmt.Sprintf("\nRecent News (overall sentiment: %s):", input.NewsData.Sentiment))
		for _, d := range input.NewsData.Developments {
			parts = append(parts, "- "+d)
		}
	}

	parts = append(parts, "\nInstructions:")
	parts = append(parts, "- Use ONLY the provided data")
	parts = append(parts, "- Write each section under a heading, separated by blank lines")
	parts = append(parts, "- If data is insufficient for a section, say so clearly")
	parts = append(parts, "- Keep the report concise and professional")

	return strings.Join(parts, "\n")
}

// splitSections maps completion paragraphs to report sections by keyword,
// mirroring how the report page groups its display.
func splitSections(text string) models.ReportSections {
	var sections models.ReportSections

	for _, block := range strings.Split(text, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}

		head := strings.ToLower(firstLine(block))
		switch {
		case containsAny(head, "executive", "summary"):
			sections.ExecutiveSummary = pickLonger(sections.ExecutiveSummary, block)
		case containsAny(head, "overview", "background", "company"):
			sections.CompanyOverview = pickLonger(sections.CompanyOverview, block)
		case containsAny(head, "product", "service", "offering"):
			sections.ProductsServices = pickLonger(sections.ProductsServices, block)
		case containsAny(head, "market", "position", "competitor"):
			sections.MarketPosition = pickLonger(sections.MarketPosition, block)
		case containsAny(head, "news", "recent", "development"):
			sections.RecentDevelopments = pickLonger(sections.RecentDevelopments, block)
		case containsAny(head, "contact"):
			sections.ContactInfo = pickLonger(sections.ContactInfo, block)
		}
	}

	return sections
}

// fillFromExtraction backfills sections the model left empty from the
// structured extraction, so sparse completions still produce usable reports.
func fillFromExtraction(sections *models.ReportSections, input *Input) {
	if sections.ContactInfo == "" && input.ExtractedData.ContactInfo != "" {
		sections.ContactInfo = input.ExtractedData.ContactInfo
	}
	if sections.ProductsServices == "" && input.ExtractedData.Products != "" {
		sections.ProductsServices = input.ExtractedData.Products
	}
	if sections.CompanyOverview == "" && input.ExtractedData.About != "" {
		sections.CompanyOverview = input.ExtractedData.About
	}
}

// scoreConfidence grades how much source material backed the synthesis.
func scoreConfidence(input *Input) float64 {
	score := 0.2
	if len(input.ResearchData.Sources) > 0 {
		score += 0.2
	}
	if input.SiteContent.Content != "" {
		score += 0.2
	}
	if input.ExtractedData.About != "" || input.ExtractedData.Products != "" {
		score += 0.2
	}
	if input.MarketData.Positioning != "" || len(input.NewsData.Developments) > 0 {
		score += 0.2
	}

	if score < 0.0 || score > 1.0 {
		return 0.5
	}
	return score
}

func collectSources(input *Input) []models.Source {
	seen := make(map[string]bool)
	var all []models.Source

	for _, group := range [][]models.Source{
		input.ResearchData.Sources,
		input.MarketData.Sources,
		input.NewsData.Sources,
	} {
		for _, s := range group {
			if s.URL == "" || seen[s.URL] {
				continue
			}
			seen[s.URL] = true
			all = append(all, s)
		}
	}
	return all
}

func firstLine(block string) string {
	if i := strings.IndexByte(block, '\n'); i >= 0 {
		return block[:i]
	}
	return block
}

func containsAny(s string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func pickLonger(current, candidate string) string {
	if len(candidate) > len(current) {
		return candidate
	}
	return current
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
	errorCode := "UNKNOWN_ERROR"
	if errors.Is(err, ErrLLMTimeout) {
		errorCode = "LLM_TIMEOUT"
	} else if errors.Is(err, ErrLLMSynthesisFailed) {
		errorCode = "LLM_SYNTHESIS_FAILED"
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
