package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	dto "github.com/prometheus/client_model/go"

	"hbooker-proxy/internal/metrics"
)

// gathered returns the samples of the named metric family.
func gathered(t *testing.T, m *metrics.Metrics, name string) []*dto.Metric {
	t.Helper()
	families, err := m.Registry.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	for _, f := range families {
		if f.GetName() == name {
			return f.GetMetric()
		}
	}
	return nil
}

func labelsOf(metric *dto.Metric) map[string]string {
	labels := make(map[string]string)
	for _, lp := range metric.GetLabel() {
		labels[lp.GetName()] = lp.GetValue()
	}
	return labels
}

// findByPrefix returns the labels and metric for the first sample with the given path_prefix.
func findByPrefix(t *testing.T, m *metrics.Metrics, name, prefix string) (map[string]string, *dto.Metric) {
	t.Helper()
	for _, metric := range gathered(t, m, name) {
		if labels := labelsOf(metric); labels["path_prefix"] == prefix {
			return labels, metric
		}
	}
	t.Fatalf("no %s sample with path_prefix=%s", name, prefix)
	return nil, nil
}

func serve(e *echo.Echo, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(method, target, http.NoBody))
	return rec
}

func TestMetricsMiddleware_IncrementsCounter(t *testing.T) {
	m := metrics.New()
	e := echo.New()
	e.Use(MetricsMiddleware(m))
	e.GET("/api/*", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	if rec := serve(e, http.MethodGet, "/api/bookshelf/get_shelf_list"); rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	labels, metric := findByPrefix(t, m, "hbooker_proxy_http_requests_total", "/api")
	if v := metric.GetCounter().GetValue(); v != 1 {
		t.Errorf("counter value = %v, want 1", v)
	}
	if labels["status_code"] != "200" || labels["method"] != "GET" {
		t.Errorf("labels = %v, want method=GET status_code=200", labels)
	}
}

func TestMetricsMiddleware_RecordsDuration(t *testing.T) {
	m := metrics.New()
	e := echo.New()
	e.Use(MetricsMiddleware(m))
	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	serve(e, http.MethodGet, "/healthz")

	_, metric := findByPrefix(t, m, "hbooker_proxy_http_request_duration_seconds", "/healthz")
	if metric.GetHistogram().GetSampleCount() == 0 {
		t.Error("expected at least one duration sample")
	}
}

func TestMetricsMiddleware_HTTPErrorStatus(t *testing.T) {
	m := metrics.New()
	e := echo.New()
	e.Use(MetricsMiddleware(m))
	e.GET("/api/*", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "too large")
	})

	serve(e, http.MethodGet, "/api/x")

	labels, _ := findByPrefix(t, m, "hbooker_proxy_http_requests_total", "/api")
	if labels["status_code"] != "413" {
		t.Errorf("status_code = %q, want %q", labels["status_code"], "413")
	}
}

func TestMetricsMiddleware_UnknownMethodNormalized(t *testing.T) {
	m := metrics.New()
	e := echo.New()
	e.Use(MetricsMiddleware(m))
	e.Any("/api/*", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	serve(e, "XYZZY", "/api/x")

	labels, _ := findByPrefix(t, m, "hbooker_proxy_http_requests_total", "/api")
	if labels["method"] != "other" {
		t.Errorf("method = %q, want %q", labels["method"], "other")
	}
}

func TestMetricsMiddleware_StaticNotFound(t *testing.T) {
	m := metrics.New()
	e := echo.New()
	e.Use(MetricsMiddleware(m))

	if rec := serve(e, http.MethodGet, "/missing.js"); rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}

	labels, _ := findByPrefix(t, m, "hbooker_proxy_http_requests_total", "static")
	if labels["status_code"] != "404" {
		t.Errorf("status_code = %q, want %q", labels["status_code"], "404")
	}
}

func TestMetricsMiddleware_PlainErrorIs500(t *testing.T) {
	m := metrics.New()
	e := echo.New()
	e.Use(MetricsMiddleware(m))
	e.GET("/healthz", func(c echo.Context) error {
		return errors.New("boom")
	})

	if rec := serve(e, http.MethodGet, "/healthz"); rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}

	labels, _ := findByPrefix(t, m, "hbooker_proxy_http_requests_total", "/healthz")
	if labels["status_code"] != "500" {
		t.Errorf("status_code = %q, want %q", labels["status_code"], "500")
	}
}

func TestMetricsMiddleware_InFlightReturnsToZero(t *testing.T) {
	m := metrics.New()
	e := echo.New()
	e.Use(MetricsMiddleware(m))
	e.GET("/api/*", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	})

	serve(e, http.MethodGet, "/api/x")

	samples := gathered(t, m, "hbooker_proxy_http_requests_in_flight")
	if len(samples) != 1 || samples[0].GetGauge().GetValue() != 0 {
		t.Errorf("in-flight gauge = %v, want a single sample at 0", samples)
	}
}
