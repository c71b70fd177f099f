package health

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRegistryReportsHealthy(t *testing.T) {
	registry := NewRegistry("1.2.3")
	registry.Register("storage", func() error { return nil })
	registry.Register("broker", func() error { return nil })

	rec := httptest.NewRecorder()
	registry.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var report Report
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if !report.Healthy {
		t.Fatal("expected healthy report")
	}
	if report.Version != "1.2.3" {
		t.Fatalf("unexpected version %q", report.Version)
	}
	if len(report.Components) != 2 {
		t.Fatalf("expected 2 components, got %d", len(report.Components))
	}
	// Компоненты отсортированы по имени.
	if report.Components[0].Component != "broker" || report.Components[1].Component != "storage" {
		t.Fatalf("unexpected component order: %+v", report.Components)
	}
}

func TestRegistryReportsFailure(t *testing.T) {
	registry := NewRegistry("test")
	registry.Register("storage", func() error { return errors.New("connection refused") })
	registry.Register("broker", func() error { return nil })

	rec := httptest.NewRecorder()
	registry.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}

	var report Report
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Healthy {
		t.Fatal("expected unhealthy report")
	}
	var failed *ComponentStatus
	for i := range report.Components {
		if report.Components[i].Component == "storage" {
			failed = &report.Components[i]
		}
	}
	if failed == nil {
		t.Fatal("storage component missing from report")
	}
	if failed.Healthy || failed.Error != "connection refused" {
		t.Fatalf("unexpected storage status: %+v", failed)
	}
}

func TestRegistryIgnoresNilProbe(t *testing.T) {
	registry := NewRegistry("test")
	registry.Register("noop", nil)

	report := registry.run()
	if !report.Healthy || len(report.Components) != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestReadiness(t *testing.T) {
	registry := NewRegistry("test")
	registry.Register("storage", func() error { return nil })

	rec := httptest.NewRecorder()
	registry.Readiness(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "ready" {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
}

func TestReadinessNotReady(t *testing.T) {
	registry := NewRegistry("test")
	registry.Register("storage", func() error { return errors.New("down") })

	rec := httptest.NewRecorder()
	registry.Readiness(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if rec.Body.String() != "not ready" {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
}

func TestLiveness(t *testing.T) {
	rec := httptest.NewRecorder()
	Liveness(rec, httptest.NewRequest(http.MethodGet, "/livez", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "ok" {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
}
