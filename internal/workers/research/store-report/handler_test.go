// internal/workers/research/store-report/handler_test.go
package storereport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"research-crew/internal/common/config"
	"research-crew/internal/common/database"
	"research-crew/internal/common/logger"
	"research-crew/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestConfig() *Config {
	return &Config{
		Timeout:  5 * time.Second,
		CacheTTL: time.Hour,
		ESIndex:  "research-reports",
	}
}

func sampleDraft() ReportDraft {
	return ReportDraft{
		RequestID:   "req-1",
		CompanyName: "Acme Corp",
		Depth:       "basic",
		Sections: models.ReportSections{
			ExecutiveSummary: "Acme Corp makes widgets.",
			CompanyOverview:  "Founded in 1987.",
		},
		Confidence: 0.8,
		Sources:    []models.Source{{URL: "https://acmecorp.com", Title: "Acme Corp"}},
	}
}

func newESClient(t *testing.T, url string) *database.ElasticsearchClient {
	t.Helper()
	es, err := database.NewElasticsearch(config.ElasticsearchConfig{URL: url})
	require.NoError(t, err)
	return es
}

func newRedisClient(t *testing.T, addr string) *database.RedisClient {
	t.Helper()
	rc, err := database.NewRedis(config.RedisConfig{Address: addr})
	require.NoError(t, err)
	return rc
}

func TestExecute_StoresReport(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO reports").
		WithArgs(
			sqlmock.AnyArg(), // id
			"req-1",
			"Acme Corp",
			"basic",
			sqlmock.AnyArg(), // sections json
			0.8,
			sqlmock.AnyArg(), // sources json
			sqlmock.AnyArg(), // created_at
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	esServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Contains(t, r.URL.Path, "/research-reports/_doc/")
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"result": "created"})
	}))
	defer esServer.Close()

	mr := miniredis.RunT(t)

	h := NewHandler(createTestConfig(), db, newRedisClient(t, mr.Addr()), newESClient(t, esServer.URL), logger.NewTestLogger(t))

	output, err := h.Execute(context.Background(), &Input{Report: sampleDraft()})
	require.NoError(t, err)

	assert.NotEmpty(t, output.ReportID)
	assert.Equal(t, "req-1", output.RequestID)
	assert.Equal(t, models.StatusComplete, output.Status)
	assert.NoError(t, mock.ExpectationsWereMet())

	// Report cached for repeat submissions.
	cached, err := mr.Get(CacheKey("req-1"))
	require.NoError(t, err)

	var report models.Report
	require.NoError(t, json.Unmarshal([]byte(cached), &report))
	assert.Equal(t, "Acme Corp", report.CompanyName)
	assert.Equal(t, output.ReportID, report.ID)
}

func TestExecute_PostgresFailureIsRetryable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO reports").
		WillReturnError(assert.AnError)

	mr := miniredis.RunT(t)

	h := NewHandler(createTestConfig(), db, newRedisClient(t, mr.Addr()), nil, logger.NewTestLogger(t))

	_, err = h.Execute(context.Background(), &Input{Report: sampleDraft()})
	assert.ErrorIs(t, err, ErrReportStoreFailed)
}

func TestExecute_SecondaryStoreFailuresDoNotFail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO reports").
		WillReturnResult(sqlmock.NewResult(0, 1))

	esServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer esServer.Close()

	// Redis is down: point at a closed miniredis.
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	h := NewHandler(createTestConfig(), db, newRedisClient(t, addr), newESClient(t, esServer.URL), logger.NewTestLogger(t))

	output, err := h.Execute(context.Background(), &Input{Report: sampleDraft()})
	require.NoError(t, err)
	assert.Equal(t, models.StatusComplete, output.Status)
}

func TestExecute_MissingIdentity(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	h := NewHandler(createTestConfig(), db, nil, nil, logger.NewTestLogger(t))

	_, err = h.Execute(context.Background(), &Input{Report: ReportDraft{CompanyName: "Acme"}})
	assert.Error(t, err)
}
