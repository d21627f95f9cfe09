// internal/workers/research/synthesize-report/handler_test.go
package synthesizereport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"research-crew/internal/common/genai"
	"research-crew/internal/common/logger"
	"research-crew/internal/models"
	"research-crew/pkg/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRegistry = `{
  "version": "1.0.0",
  "agents": [
    {
      "id": "report-editor",
      "role": "Research Report Editor",
      "goal": "Create well-structured reports",
      "backstory": "You are an experienced business analyst.",
      "taskTemplate": "Create a research report for {{company_name}} at {{depth}} depth.",
      "expectedOutput": "A concise research report",
      "taskTypes": ["synthesize-report"]
    }
  ]
}`

func loadTestRegistry(t *testing.T) *registry.AgentRegistry {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agents.json")
	require.NoError(t, os.WriteFile(path, []byte(testRegistry), 0o644))
	reg, err := registry.LoadRegistry(path)
	require.NoError(t, err)
	return reg
}

func newTestHandler(t *testing.T, serverURL string) *Handler {
	genaiClient := genai.NewClient(genai.Config{XAIAPIKey: "test-key"}, genai.WithBaseURL(serverURL))
	h, err := NewHandler(
		&Config{Timeout: 5 * time.Second, MaxRetries: 1, AgentID: "report-editor"},
		genaiClient,
		loadTestRegistry(t),
		logger.NewTestLogger(t),
	)
	require.NoError(t, err)
	return h
}

func completionServer(t *testing.T, content string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []genai.ChatMessage `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Contains(t, req.Messages[0].Content, "Research Report Editor")

		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": content}},
			},
		})
	}))
}

func sampleInput() *Input {
	return &Input{
		RequestID:   "req-1",
		CompanyName: "Acme Corp",
		Depth:       "comprehensive",
		ResearchData: ResearchData{
			Summary: "Acme Corp builds widgets.",
			Sources: []models.Source{{URL: "https://acmecorp.com", Title: "Acme Corp"}},
		},
		SiteContent: SiteContent{URL: "https://acmecorp.com", Content: "Acme site content"},
		ExtractedData: ExtractedData{
			ContactInfo: "hello@acmecorp.com",
			Products:    "Widgets and consulting",
			About:       "Founded in 1987",
		},
		MarketData: MarketData{
			Positioning: "Acme leads the widget market",
			Sources:     []models.Source{{URL: "https://analyst.example.com"}},
		},
		NewsData: NewsData{
			Developments: []string{"Acme opens new factory"},
			Sentiment:    "positive",
			Sources:      []models.Source{{URL: "https://news.example.com"}},
		},
	}
}

const structuredCompletion = `Executive Summary
Acme Corp is a leading widget maker with strong momentum.

Company Overview
Founded in 1987, Acme Corp designs and manufactures widgets.

Products and Services
Widgets, smart widgets, and consulting services.

Market Position
Acme leads the widget market with 12% share.

Recent Developments
Acme opened a new factory this quarter.

Contact Information
hello@acmecorp.com`

func TestExecute_StructuredCompletion(t *testing.T) {
	server := completionServer(t, structuredCompletion)
	defer server.Close()

	h := newTestHandler(t, server.URL)

	output, err := h.Execute(context.Background(), sampleInput())
	require.NoError(t, err)

	report := output.Report
	assert.Equal(t, "req-1", report.RequestID)
	assert.Equal(t, "Acme Corp", report.CompanyName)
	assert.Contains(t, report.Sections.ExecutiveSummary, "leading widget maker")
	assert.Contains(t, report.Sections.CompanyOverview, "Founded in 1987")
	assert.Contains(t, report.Sections.ProductsServices, "smart widgets")
	assert.Contains(t, report.Sections.MarketPosition, "12% share")
	assert.Contains(t, report.Sections.RecentDevelopments, "new factory")
	assert.Contains(t, report.Sections.ContactInfo, "hello@acmecorp.com")
	assert.InDelta(t, 1.0, report.Confidence, 0.001)
	assert.Len(t, report.Sources, 3)
}

func TestExecute_BlankCompletionFallsBack(t *testing.T) {
	server := completionServer(t, "   ")
	defer server.Close()

	h := newTestHandler(t, server.URL)

	output, err := h.Execute(context.Background(), sampleInput())
	require.NoError(t, err)

	assert.Contains(t, output.Report.Sections.ExecutiveSummary, "don't have enough information")
	assert.InDelta(t, 0.1, output.Report.Confidence, 0.001)
}

func TestExecute_UnstructuredCompletion(t *testing.T) {
	server := completionServer(t, "Plain answer about widgets with no headings whatsoever.")
	defer server.Close()

	h := newTestHandler(t, server.URL)

	input := sampleInput()
	output, err := h.Execute(context.Background(), input)
	require.NoError(t, err)

	// Whole answer lands in the summary when no headings match.
	assert.Contains(t, output.Report.Sections.ExecutiveSummary, "Plain answer")
	// Structured extraction backfills the blanks.
	assert.Equal(t, input.ExtractedData.ContactInfo, output.Report.Sections.ContactInfo)
	assert.Equal(t, input.ExtractedData.Products, output.Report.Sections.ProductsServices)
}

func TestExecute_ProviderFailureAfterRetries(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	h := newTestHandler(t, server.URL)

	_, err := h.Execute(context.Background(), sampleInput())
	assert.ErrorIs(t, err, ErrLLMSynthesisFailed)
	assert.Equal(t, 2, calls)
}

func TestExecute_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	h := newTestHandler(t, server.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := h.Execute(ctx, sampleInput())
	assert.ErrorIs(t, err, ErrLLMTimeout)
}

func TestNewHandler_UnknownAgent(t *testing.T) {
	_, err := NewHandler(
		&Config{AgentID: "nonexistent"},
		genai.NewClient(genai.Config{XAIAPIKey: "k"}),
		loadTestRegistry(t),
		logger.NewTestLogger(t),
	)
	assert.Error(t, err)
}

func TestScoreConfidence_ScalesWithInputs(t *testing.T) {
	full := scoreConfidence(sampleInput())
	empty := scoreConfidence(&Input{CompanyName: "Acme"})
	assert.Greater(t, full, empty)
	assert.InDelta(t, 0.2, empty, 0.001)
}
