// internal/gateway/handlers_test.go
package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"research-crew/internal/common/config"
	"research-crew/internal/common/database"
	"research-crew/internal/common/logger"
	"research-crew/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeStarter struct {
	started   []models.ResearchRequest
	processID string
	err       error
	healthErr error
}

func (f *fakeStarter) StartResearch(ctx context.Context, processID string, variables interface{}) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.processID = processID
	if req, ok := variables.(models.ResearchRequest); ok {
		f.started = append(f.started, req)
	}
	return 42, nil
}

func (f *fakeStarter) HealthCheck(ctx context.Context) error {
	return f.healthErr
}

func newRedisForTest(t *testing.T) (*database.RedisClient, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rc, err := database.NewRedis(config.RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	return rc, mr
}

func newTestRouter(t *testing.T, starter *fakeStarter, rc *database.RedisClient) *gin.Engine {
	h := NewHandlers(Config{ProcessID: "company-research", ESIndex: "research-reports"}, starter, rc, nil, nil, logger.NewTestLogger(t))
	return NewRouter(h, NewRateLimiter(100, time.Minute))
}

func postForm(router *gin.Engine, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSubmitResearch_StartsProcess(t *testing.T) {
	starter := &fakeStarter{}
	rc, _ := newRedisForTest(t)
	router := newTestRouter(t, starter, rc)

	w := postForm(router, "/research", url.Values{
		"company_name": {"Acme Corp"},
		"depth":        {"comprehensive"},
	})

	assert.Equal(t, http.StatusAccepted, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, models.RequestID("Acme Corp"), resp["requestId"])
	assert.Equal(t, "pending", resp["status"])
	assert.Equal(t, false, resp["cached"])

	require.Len(t, starter.started, 1)
	assert.Equal(t, "company-research", starter.processID)
	assert.Equal(t, models.DepthComprehensive, starter.started[0].Depth)
}

func TestSubmitResearch_DefaultsToBasicDepth(t *testing.T) {
	starter := &fakeStarter{}
	rc, _ := newRedisForTest(t)
	router := newTestRouter(t, starter, rc)

	w := postForm(router, "/research", url.Values{"company_name": {"Acme Corp"}})

	assert.Equal(t, http.StatusAccepted, w.Code)
	require.Len(t, starter.started, 1)
	assert.Equal(t, models.DepthBasic, starter.started[0].Depth)
}

func TestSubmitResearch_ValidatesInput(t *testing.T) {
	starter := &fakeStarter{}
	rc, _ := newRedisForTest(t)
	router := newTestRouter(t, starter, rc)

	t.Run("missing company name", func(t *testing.T) {
		w := postForm(router, "/research", url.Values{"company_name": {"   "}})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown depth", func(t *testing.T) {
		w := postForm(router, "/research", url.Values{
			"company_name": {"Acme Corp"},
			"depth":        {"exhaustive"},
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	assert.Empty(t, starter.started)
}

func TestSubmitResearch_ReturnsCachedReport(t *testing.T) {
	starter := &fakeStarter{}
	rc, mr := newRedisForTest(t)
	router := newTestRouter(t, starter, rc)

	requestID := models.RequestID("Acme Corp")
	report := models.Report{
		ID:          "rep-1",
		RequestID:   requestID,
		CompanyName: "Acme Corp",
		Sections:    models.ReportSections{ExecutiveSummary: "Acme makes widgets."},
	}
	raw, err := json.Marshal(report)
	require.NoError(t, err)
	require.NoError(t, mr.Set(CacheKey(requestID), string(raw)))

	w := postForm(router, "/research", url.Values{"company_name": {"Acme Corp"}})

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["cached"])
	assert.Equal(t, "complete", resp["status"])
	// No new process instance for a cached request.
	assert.Empty(t, starter.started)
}

func TestSubmitResearch_BrokerDown(t *testing.T) {
	starter := &fakeStarter{err: assert.AnError}
	rc, _ := newRedisForTest(t)
	router := newTestRouter(t, starter, rc)

	w := postForm(router, "/research", url.Values{"company_name": {"Acme Corp"}})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestGetResearch_CacheHit(t *testing.T) {
	rc, mr := newRedisForTest(t)
	router := newTestRouter(t, &fakeStarter{}, rc)

	report := models.Report{ID: "rep-1", RequestID: "req-1", CompanyName: "Acme Corp"}
	raw, err := json.Marshal(report)
	require.NoError(t, err)
	require.NoError(t, mr.Set(CacheKey("req-1"), string(raw)))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/research/req-1", nil))

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "complete", resp["status"])
}

func TestGetResearch_FallsBackToDatabase(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	sections, _ := json.Marshal(models.ReportSections{ExecutiveSummary: "Stored summary."})
	sources, _ := json.Marshal([]models.Source{{URL: "https://acmecorp.com"}})

	mock.ExpectQuery("SELECT id, company_name, depth, sections, confidence, sources, created_at").
		WithArgs("req-1").
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "company_name", "depth", "sections", "confidence", "sources", "created_at"},
		).AddRow("rep-1", "Acme Corp", "basic", sections, 0.8, sources, time.Now()))

	rc, _ := newRedisForTest(t)
	h := NewHandlers(Config{ProcessID: "company-research"}, &fakeStarter{}, rc, db, nil, logger.NewTestLogger(t))
	router := NewRouter(h, NewRateLimiter(100, time.Minute))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/research/req-1", nil))

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Status string        `json:"status"`
		Report models.Report `json:"report"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "complete", resp.Status)
	assert.Equal(t, "Stored summary.", resp.Report.Sections.ExecutiveSummary)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetResearch_PendingWhenUnknown(t *testing.T) {
	rc, _ := newRedisForTest(t)
	router := newTestRouter(t, &fakeStarter{}, rc)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/research/no-such-id", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "pending", resp["status"])
}

func TestSearchReports(t *testing.T) {
	esServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"hits": map[string]interface{}{
				"hits": []map[string]interface{}{
					{"_source": models.Report{ID: "rep-1", CompanyName: "Acme Corp"}},
				},
			},
		})
	}))
	defer esServer.Close()

	es, err := database.NewElasticsearch(config.ElasticsearchConfig{URL: esServer.URL})
	require.NoError(t, err)

	rc, _ := newRedisForTest(t)
	h := NewHandlers(Config{ESIndex: "research-reports"}, &fakeStarter{}, rc, nil, es, logger.NewTestLogger(t))
	router := NewRouter(h, NewRateLimiter(100, time.Minute))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/reports/search?q=widgets", nil))

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Results []models.Report `json:"results"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "Acme Corp", resp.Results[0].CompanyName)
}

func TestSearchReports_RequiresQuery(t *testing.T) {
	rc, _ := newRedisForTest(t)
	router := newTestRouter(t, &fakeStarter{}, rc)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/reports/search", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealth(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		rc, _ := newRedisForTest(t)
		router := newTestRouter(t, &fakeStarter{}, rc)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("broker down", func(t *testing.T) {
		rc, _ := newRedisForTest(t)
		router := newTestRouter(t, &fakeStarter{healthErr: assert.AnError}, rc)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestIndex_ServesForm(t *testing.T) {
	rc, _ := newRedisForTest(t)
	router := newTestRouter(t, &fakeStarter{}, rc)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "company_name")
	assert.Contains(t, w.Body.String(), "comprehensive")
}
