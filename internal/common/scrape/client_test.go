// internal/common/scrape/client_test.go
package scrape

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScrape_FirecrawlSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/scrape", r.URL.Path)
		assert.Equal(t, "Bearer fc-key", r.Header.Get("Authorization"))

		var req map[string]interface{}
		json.NewDecoder(r.Body).Decode(&req)
		assert.Equal(t, "https://example.com", req["url"])

		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data":    map[string]string{"markdown": "About Example Corp.\n\nWe make examples."},
		})
	}))
	defer server.Close()

	client := NewClient(WithFirecrawl(server.URL, "fc-key"))

	text, err := client.Scrape(context.Background(), "https://example.com")

	assert.NoError(t, err)
	assert.Contains(t, text, "About Example Corp")
	assert.Contains(t, text, "We make examples")
}

func TestScrape_FallsBackToJina(t *testing.T) {
	firecrawl := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer firecrawl.Close()

	jina := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer jina-key", r.Header.Get("Authorization"))
		w.Write([]byte("Example Corp homepage content"))
	}))
	defer jina.Close()

	client := NewClient(
		WithFirecrawl(firecrawl.URL, "fc-key"),
		WithJina(jina.URL, "jina-key"),
	)

	text, err := client.Scrape(context.Background(), "https://example.com")

	assert.NoError(t, err)
	assert.Equal(t, "Example Corp homepage content", text)
}

func TestScrape_NoProvider(t *testing.T) {
	client := NewClient()

	_, err := client.Scrape(context.Background(), "https://example.com")

	assert.ErrorIs(t, err, ErrNoProvider)
}

func TestCleanText_StripsMarkupAndTruncates(t *testing.T) {
	raw := "<html><head><script>var x = 1;</script><style>.a{}</style></head>" +
		"<body><h1>Acme   Inc</h1>\n\n<p>Products   and\tservices</p></body></html>"

	got := CleanText(raw)

	assert.NotContains(t, got, "<")
	assert.NotContains(t, got, "var x")
	assert.Contains(t, got, "Acme Inc")
	assert.Contains(t, got, "Products and services")

	long := strings.Repeat("a", MaxContentLength+100)
	truncated := CleanText(long)
	assert.Len(t, truncated, MaxContentLength+3) // "..." suffix
	assert.True(t, strings.HasSuffix(truncated, "..."))
}
