// Package service provides the router, worker and health plumbing shared by
// HTTP services.
package service

import (
	"net/http"
	"time"

	"github.com/R3E-Network/greeno_layer/internal/httputil"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Version   string            `json:"version"`
	Checks    map[string]string `json:"checks,omitempty"`
	CheckedAt string            `json:"checked_at"`
	Uptime    string            `json:"uptime"`
}

// InfoResponse is the body of GET /info.
type InfoResponse struct {
	ID         string         `json:"id"`
	Service    string         `json:"service"`
	Version    string         `json:"version"`
	Workers    int            `json:"workers"`
	Uptime     string         `json:"uptime"`
	Statistics map[string]any `json:"statistics,omitempty"`
}

// RegisterStandardRoutes mounts /health and /info on the service router.
func (b *BaseService) RegisterStandardRoutes() {
	b.router.HandleFunc("/health", b.handleHealth).Methods(http.MethodGet)
	b.router.HandleFunc("/info", b.handleInfo).Methods(http.MethodGet)
}

// handleHealth probes now; a failing critical probe answers 503.
func (b *BaseService) handleHealth(w http.ResponseWriter, r *http.Request) {
	b.CheckHealth(r.Context())
	report := b.Report()

	code := http.StatusOK
	if report.Status == StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	httputil.WriteJSON(w, code, HealthResponse{
		Status:    report.Status,
		Service:   b.name,
		Version:   b.version,
		Checks:    report.Checks,
		CheckedAt: report.LastCheck.UTC().Format(time.RFC3339),
		Uptime:    report.Uptime.Truncate(time.Second).String(),
	})
}

func (b *BaseService) handleInfo(w http.ResponseWriter, r *http.Request) {
	resp := InfoResponse{
		ID:      b.id,
		Service: b.name,
		Version: b.version,
		Workers: b.WorkerCount(),
		Uptime:  b.Report().Uptime.Truncate(time.Second).String(),
	}
	if b.statsFn != nil {
		resp.Statistics = b.statsFn()
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}
