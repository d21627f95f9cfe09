// internal/workers/research/news-analysis/handler_test.go
package newsanalysis

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

func newTestHandler(t *testing.T, serverURL string) *Handler {
	return NewHandler(
		&Config{Timeout: 3 * time.Second, MaxResults: 8, MaxDevelopments: 3, TimeFilter: "qdr:m6"},
		search.NewClient("test-api-key", search.WithBaseURL(serverURL)),
		logger.NewTestLogger(t),
	)
}

func TestExecute_AnalyzesRecentNews(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "qdr:m6", req["tbs"])

		json.NewEncoder(w).Encode(map[string]interface{}{
			"organic": []map[string]interface{}{
				{"title": "Acme Corp reports record growth", "link": "https://news.example.com/1", "snippet": "Profit surge after product launch."},
				{"title": "Acme Corp announces new partnership", "link": "https://news.example.com/2", "snippet": "Expansion into new markets."},
				{"title": "Acme Corp opens new factory", "link": "https://news.example.com/3", "snippet": "A milestone for the company."},
				{"title": "Widget prices steady", "link": "https://news.example.com/4", "snippet": "No change expected."},
			},
		})
	}))
	defer server.Close()

	h := newTestHandler(t, server.URL)

	output, err := h.Execute(context.Background(), &Input{CompanyName: "Acme Corp", Depth: "comprehensive"})
	require.NoError(t, err)

	data := output.NewsData
	assert.Len(t, data.Developments, 3)
	assert.Equal(t, SentimentPositive, data.Sentiment)
	assert.Greater(t, data.SentimentScore, 0.2)
	assert.Len(t, data.Sources, 4)
}

func TestExecute_SearchFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	h := newTestHandler(t, server.URL)

	_, err := h.Execute(context.Background(), &Input{CompanyName: "Acme Corp"})
	assert.Error(t, err)
}

func TestScoreSentiment(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{"positive", "record growth and a successful product launch", SentimentPositive},
		{"negative", "lawsuit filed after layoffs and revenue decline", SentimentNegative},
		{"mixed", "growth despite decline", SentimentNeutral},
		{"no signal", "the company makes widgets", SentimentNeutral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			label, score := scoreSentiment(tt.text)
			assert.Equal(t, tt.expected, label)
			assert.GreaterOrEqual(t, score, -1.0)
			assert.LessOrEqual(t, score, 1.0)
		})
	}
}
