// internal/workers/research/find-website/handler_test.go
package findwebsite

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"research-crew/internal/common/logger"
	"research-crew/internal/common/search"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestConfig() *Config {
	return &Config{
		Timeout:    3 * time.Second,
		MaxResults: 5,
	}
}

func newTestHandler(t *testing.T, serverURL string) *Handler {
	searchClient := search.NewClient("test-api-key", search.WithBaseURL(serverURL))
	return NewHandler(createTestConfig(), searchClient, logger.NewTestLogger(t))
}

func searchResponse(organic []map[string]interface{}) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"organic": organic})
	}
}

func TestExecute_ResolvesOfficialWebsite(t *testing.T) {
	server := httptest.NewServer(searchResponse([]map[string]interface{}{
		{"title": "Acme Corp - Wikipedia", "link": "https://en.wikipedia.org/wiki/Acme_Corp", "snippet": "Acme Corp is...", "position": 1},
		{"title": "Acme Corp | Official Site", "link": "https://www.acmecorp.com", "snippet": "Welcome to Acme", "position": 2},
		{"title": "Acme Corp on LinkedIn", "link": "https://www.linkedin.com/company/acme", "snippet": "Acme Corp", "position": 3},
	}))
	defer server.Close()

	h := newTestHandler(t, server.URL)

	output, err := h.Execute(context.Background(), &Input{RequestID: "req-1", CompanyName: "Acme Corp"})
	require.NoError(t, err)

	assert.Equal(t, "https://www.acmecorp.com", output.Website)
	assert.Len(t, output.WebsiteSources, 3)
}

func TestExecute_AggregatorsScoreLow(t *testing.T) {
	server := httptest.NewServer(searchResponse([]map[string]interface{}{
		{"title": "Acme Corp - Wikipedia", "link": "https://en.wikipedia.org/wiki/Acme_Corp", "snippet": "", "position": 1},
		{"title": "Acme Corp on LinkedIn", "link": "https://www.linkedin.com/company/acme", "snippet": "", "position": 2},
	}))
	defer server.Close()

	h := newTestHandler(t, server.URL)

	output, err := h.Execute(context.Background(), &Input{CompanyName: "Acme Corp"})
	require.NoError(t, err)

	// Only aggregators in the results: no site should be picked.
	assert.Empty(t, output.Website)
}

func TestExecute_EmptyCompanyName(t *testing.T) {
	h := newTestHandler(t, "http://localhost:0")

	_, err := h.Execute(context.Background(), &Input{CompanyName: "  "})
	assert.Error(t, err)
}

func TestExecute_SearchAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	h := newTestHandler(t, server.URL)

	_, err := h.Execute(context.Background(), &Input{CompanyName: "Acme Corp"})
	assert.ErrorIs(t, err, search.ErrUnauthorized)
}

func TestScoreResult_DomainMatchBeatsPosition(t *testing.T) {
	matched := scoreResult("Acme Corp", search.Result{
		Title:    "Acme",
		Link:     "https://acmecorp.com",
		Position: 4,
	})
	unmatched := scoreResult("Acme Corp", search.Result{
		Title:    "Some blog about Acme",
		Link:     "https://randomblog.net/acme",
		Position: 1,
	})
	assert.Greater(t, matched, unmatched)
}
