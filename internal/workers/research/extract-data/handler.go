// internal/workers/research/extract-data/handler.go
package extractdata

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"research-crew/internal/common/logger"
	"research-crew/internal/common/metrics"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "extract-data"
)

// Keyword groups per extraction type, with a sentence limit each.
var extractionRules = map[string]struct {
	keywords     []string
	maxSentences int
}{
	DataTypeContact:  {[]string{"contact", "email", "phone", "address", "support"}, 5},
	DataTypeProducts: {[]string{"product", "service", "solution", "offer"}, 10},
	DataTypeAbout:    {[]string{"about", "company", "mission", "vision", "founded", "history"}, 10},
}

type Handler struct {
	config *Config
	logger logger.Logger
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	return &Handler{
		config: config,
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
		h.failJob(client, job, "PARSE_ERROR", fmt.Sprintf("parse input: %v", err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.failJob(client, job, "EXTRACTION_INVALID_TYPE", err.Error())
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) execute(_ context.Context, input *Input) (*Output, error) {
	dataTypes := input.DataTypes
	if len(dataTypes) == 0 {
		dataTypes = []string{DataTypeContact, DataTypeProducts, DataTypeAbout}
	}

	for _, dt := range dataTypes {
		if _, ok := extractionRules[strings.ToLower(dt)]; !ok {
			return nil, fmt.Errorf("data type %q not supported (supported: contact, products, about)", dt)
		}
	}

	var out ExtractedData
	for _, dt := range dataTypes {
		extracted := extract(input.SiteContent.Content, strings.ToLower(dt))
		switch strings.ToLower(dt) {
		case DataTypeContact:
			out.ContactInfo = extracted
		case DataTypeProducts:
			out.Products = extracted
		case DataTypeAbout:
			out.About = extracted
		}
	}

	h.logger.Info("data extracted", map[string]interface{}{
		"companyName":   input.CompanyName,
		"dataTypes":     dataTypes,
		"contactLength": len(out.ContactInfo),
		"productLength": len(out.Products),
		"aboutLength":   len(out.About),
	})

	return &Output{ExtractedData: out}, nil
}

// extract pulls sentences containing the type's keywords, in keyword order,
// capped at the type's sentence limit.
func extract(content, dataType string) string {
	rule := extractionRules[dataType]

	contentLower := strings.ToLower(content)
	sentences := strings.Split(content, ".")

	seen := make(map[string]bool)
	var extracted []string

	for _, keyword := range rule.keywords {
		if !strings.Contains(contentLower, keyword) {
			continue
		}
		for _, sentence := range sentences {
			s := strings.TrimSpace(sentence)
			if s == "" || seen[s] {
				continue
			}
			if strings.Contains(strings.ToLower(s), keyword) {
				seen[s] = true
				extracted = append(extracted, s)
			}
		}
	}

	if len(extracted) > rule.maxSentences {
		extracted = extracted[:rule.maxSentences]
	}

	return strings.Join(extracted, "\n")
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

func (h *Handler) failJob(client worker.JobClient, job entities.Job, errorCode, errorMessage string) {
	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":       job.Key,
		"errorCode":    errorCode,
		"errorMessage": errorMessage,
	})

	metrics.WorkerJobsFailed.WithLabelValues(TaskType, errorCode).Inc()

	// Unsupported types are a modelling bug, not a transient fault; throw a
	// BPMN error so the process can route it rather than retry.
	_, _ = client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(errorCode).
		ErrorMessage(errorMessage).
		Send(context.Background())
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
