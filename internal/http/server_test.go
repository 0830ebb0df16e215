package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/fyrsmithlabs/mcqrouter/internal/answer"
	"github.com/fyrsmithlabs/mcqrouter/internal/extract"
	"github.com/fyrsmithlabs/mcqrouter/internal/logging"
	"github.com/fyrsmithlabs/mcqrouter/internal/passage"
	"github.com/fyrsmithlabs/mcqrouter/internal/question"
	"github.com/fyrsmithlabs/mcqrouter/internal/router"
	"github.com/fyrsmithlabs/mcqrouter/internal/strategy"
)

type stubAnswerer struct {
	result answer.Result
	err    error
	got    []question.Question
	domain question.Domain
}

func (a *stubAnswerer) Single(_ context.Context, q question.Question, d question.Domain) (answer.Result, error) {
	a.got = append(a.got, q)
	a.domain = d
	return a.result, a.err
}

func fixedRouter(d question.Domain) *router.Router {
	classify := router.ClassifierFunc(func(context.Context, string, []string) (question.Domain, float64) {
		return d, 0.8
	})
	return router.New(classify, strategy.Default(), nil)
}

func setupTestServer(t *testing.T, a *stubAnswerer) *Server {
	t.Helper()
	s, err := NewServer(fixedRouter(question.DomainSTEM), a, logging.NewNop(), nil)
	require.NoError(t, err)
	return s
}

func postAnswer(s *Server, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/answer", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func TestNewServer(t *testing.T) {
	t.Run("defaults when config is nil", func(t *testing.T) {
		s := setupTestServer(t, &stubAnswerer{})
		assert.Equal(t, "127.0.0.1", s.config.Host)
		assert.Equal(t, 8080, s.config.Port)
	})

	t.Run("requires logger", func(t *testing.T) {
		_, err := NewServer(fixedRouter(question.DomainSTEM), &stubAnswerer{}, nil, nil)
		assert.ErrorContains(t, err, "logger is required")
	})

	t.Run("requires collaborators", func(t *testing.T) {
		_, err := NewServer(nil, &stubAnswerer{}, logging.NewNop(), nil)
		assert.Error(t, err)
		_, err = NewServer(fixedRouter(question.DomainSTEM), nil, logging.NewNop(), nil)
		assert.Error(t, err)
	})
}

func TestHandleHealth(t *testing.T) {
	s := setupTestServer(t, &stubAnswerer{})

	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}

func TestHandleAnswer(t *testing.T) {
	a := &stubAnswerer{result: answer.Result{Answer: "C", Source: passage.SourceRetrieved}}
	s := setupTestServer(t, a)

	rec := postAnswer(s, `{"qid":"q1","question":"2+2 bằng mấy?","choices":["3","5","4"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp AnswerResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, AnswerResponse{
		QID:        "q1",
		Answer:     "C",
		Domain:     "STEM",
		Confidence: 0.8,
		Context:    "retrieved",
	}, resp)

	require.Len(t, a.got, 1)
	assert.Equal(t, []string{"3", "5", "4"}, a.got[0].Choices)
	assert.Equal(t, question.DomainSTEM, a.domain)
}

func TestHandleAnswer_ModelErrorStillAnswers(t *testing.T) {
	a := &stubAnswerer{
		result: answer.Result{Answer: question.DefaultAnswer, Reason: extract.Reason("call_error"), Source: passage.SourceNone},
		err:    errors.New("upstream 503"),
	}
	s := setupTestServer(t, a)

	rec := postAnswer(s, `{"qid":"q2","question":"?","choices":["x","y"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp AnswerResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "A", resp.Answer)
	assert.Equal(t, "call_error", resp.Reason)
	assert.Contains(t, resp.Error, "upstream 503")
}

func TestHandleAnswer_Rejects(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"qid":`},
		{"missing qid", `{"question":"q","choices":["a"]}`},
		{"no choices", `{"qid":"q1","question":"q","choices":[]}`},
		{"too many choices", `{"qid":"q1","question":"q","choices":[` + strings.Repeat(`"c",`, 26) + `"c"]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &stubAnswerer{}
			rec := postAnswer(setupTestServer(t, a), tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, a.got)
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := setupTestServer(t, &stubAnswerer{result: answer.Result{Answer: "B"}})
	require.Equal(t, http.StatusOK, postAnswer(s, `{"qid":"q1","question":"q","choices":["a","b"]}`).Code)

	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `mcqrouter_router_questions_total{domain="STEM"}`)
}

func TestNormalizePath(t *testing.T) {
	assert.Equal(t, "/", normalizePath(""))
	assert.Equal(t, "/api/v1/answer", normalizePath("/api/v1/answer"))
}

func TestHTTPMetrics_RecordsRequestsAndAnswers(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	prev := otel.GetMeterProvider()
	otel.SetMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))
	t.Cleanup(func() { otel.SetMeterProvider(prev) })

	s := setupTestServer(t, &stubAnswerer{result: answer.Result{Answer: "B"}})
	require.Equal(t, http.StatusOK, postAnswer(s, `{"qid":"q1","question":"q","choices":["a","b"]}`).Code)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	names := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			names[m.Name] = true
		}
	}
	assert.True(t, names["mcqrouter.http.requests_total"])
	assert.True(t, names["mcqrouter.http.request_duration_seconds"])
	assert.True(t, names["mcqrouter.http.answers_total"])
}
