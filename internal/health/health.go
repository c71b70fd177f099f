package health

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"
)

// Probe проверяет один компонент и возвращает ошибку, если он нездоров.
type Probe func() error

// ComponentStatus — результат одной проверки в отчёте /healthz.
type ComponentStatus struct {
	Component string `json:"component"`
	Healthy   bool   `json:"healthy"`
	Error     string `json:"error,omitempty"`
	ElapsedMs int64  `json:"elapsed_ms"`
}

// Report — полный ответ /healthz.
type Report struct {
	Healthy       bool              `json:"healthy"`
	Version       string            `json:"version,omitempty"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	CheckedAt     time.Time         `json:"checked_at"`
	Components    []ComponentStatus `json:"components,omitempty"`
}

// Registry хранит probes компонентов и отдаёт HTTP-обработчики
// для healthz/readyz. Регистрация возможна и после старта сервера.
type Registry struct {
	mu      sync.RWMutex
	probes  map[string]Probe
	version string
	started time.Time
}

// NewRegistry создаёт реестр проверок. version попадает в отчёт /healthz.
func NewRegistry(version string) *Registry {
	return &Registry{
		probes:  make(map[string]Probe),
		version: version,
		started: time.Now(),
	}
}

// Register добавляет или заменяет probe компонента.
func (r *Registry) Register(component string, probe Probe) {
	if probe == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.probes[component] = probe
}

// run выполняет все probes. Компоненты в отчёте отсортированы по имени,
// чтобы ответ был стабильным между запросами.
func (r *Registry) run() Report {
	r.mu.RLock()
	names := make([]string, 0, len(r.probes))
	probes := make(map[string]Probe, len(r.probes))
	for name, probe := range r.probes {
		names = append(names, name)
		probes[name] = probe
	}
	r.mu.RUnlock()
	sort.Strings(names)

	report := Report{
		Healthy:       true,
		Version:       r.version,
		UptimeSeconds: int64(time.Since(r.started).Seconds()),
		CheckedAt:     time.Now().UTC(),
	}

	for _, name := range names {
		start := time.Now()
		err := probes[name]()
		status := ComponentStatus{
			Component: name,
			Healthy:   err == nil,
			ElapsedMs: time.Since(start).Milliseconds(),
		}
		if err != nil {
			status.Error = err.Error()
			report.Healthy = false
		}
		report.Components = append(report.Components, status)
	}

	return report
}

// ServeHTTP отдаёт полный JSON-отчёт. 503, если хотя бы один probe упал.
func (r *Registry) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	report := r.run()

	code := http.StatusOK
	if !report.Healthy {
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(report)
}

// Readiness — компактный readiness probe без тела отчёта.
func (r *Registry) Readiness(w http.ResponseWriter, _ *http.Request) {
	if report := r.run(); !report.Healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// Liveness отвечает 200, пока процесс жив.
func Liveness(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
