package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHandler_nilMetrics(t *testing.T) {
	var m *Metrics
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	// Observations on a nil registry are no-ops.
	m.ConversionFinished("axial", "ok")
	m.AnalysisFinished("vga_global", "ok", time.Second)
	m.ObserveJob("analyse_axial", "succeeded", time.Second)
	m.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
	if got := rr.Body.String(); !strings.Contains(got, "metrics unavailable") {
		t.Fatalf("expected body to mention metrics unavailable, got %q", got)
	}
}

func TestHandler_exposesRegisteredMetrics(t *testing.T) {
	m := New()
	m.ObserveHTTPRequest(http.MethodGet, "/readyz", http.StatusOK, 12*time.Millisecond)
	m.ConversionFinished("axial", "ok")
	m.ConversionFinished("axial", "cancelled")
	m.ConversionFinished("axial", "cancelled")
	m.AnalysisFinished("axial_integration", "ok", 3*time.Second)
	m.ObserveJob("convert_drawing_axial", "failed", time.Second)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	m.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	body := rr.Body.String()
	if !strings.Contains(body, "spatialdoc_http_requests_total{method=\"GET\",path=\"/readyz\",status=\"200\"} 1") {
		t.Fatalf("expected labeled request counter to be incremented; body=%s", body)
	}
	if !strings.Contains(body, "spatialdoc_conversions_total{kind=\"axial\",outcome=\"cancelled\"} 2") {
		t.Fatalf("expected cancelled conversions to be counted; body=%s", body)
	}
	if !strings.Contains(body, "spatialdoc_analysis_duration_seconds_count{kind=\"axial_integration\",outcome=\"ok\"} 1") {
		t.Fatalf("expected analysis histogram to have one observation; body=%s", body)
	}
	if !strings.Contains(body, "spatialdoc_jobs_total{kind=\"convert_drawing_axial\",status=\"failed\"} 1") {
		t.Fatalf("expected job counter to be incremented; body=%s", body)
	}
	if !strings.Contains(body, "spatialdoc_job_duration_seconds_count 1") {
		t.Fatalf("expected job duration histogram to have one observation; body=%s", body)
	}
}
