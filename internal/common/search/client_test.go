// internal/common/search/client_test.go
package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSearch_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-API-KEY"))

		var req Request
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Tesla official website", req.Q)
		assert.Equal(t, 5, req.Num)

		json.NewEncoder(w).Encode(Response{
			Organic: []Result{
				{Title: "Tesla", Link: "https://tesla.com", Snippet: "Electric vehicles", Position: 1},
				{Title: "Tesla - Wikipedia", Link: "https://en.wikipedia.org/wiki/Tesla", Snippet: "...", Position: 2},
			},
		})
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL))

	results, err := client.Search(context.Background(), Request{Q: "Tesla official website"})

	assert.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Equal(t, "https://tesla.com", results[0].Link)
}

func TestSearch_Unauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient("bad-key", WithBaseURL(server.URL))

	_, err := client.Search(context.Background(), Request{Q: "anything"})

	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestSearch_MaxResultsOption(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req Request
		json.NewDecoder(r.Body).Decode(&req)
		assert.Equal(t, 3, req.Num)
		json.NewEncoder(w).Encode(Response{})
	}))
	defer server.Close()

	client := NewClient("k", WithBaseURL(server.URL), WithMaxResults(3))

	results, err := client.Search(context.Background(), Request{Q: "q"})

	assert.NoError(t, err)
	assert.Empty(t, results)
}
