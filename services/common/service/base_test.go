package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/R3E-Network/greeno_layer/internal/logging"
)

func newTestBase(probes ...Probe) *BaseService {
	return NewBase(BaseConfig{
		ID:      "greeno",
		Name:    "Greeno",
		Version: "1.0.0",
		Logger:  logging.NewWithWriter("test", io.Discard),
		Probes:  probes,
	})
}

func TestHealthStatus(t *testing.T) {
	ok := func(context.Context) error { return nil }
	fail := func(context.Context) error { return errors.New("down") }

	tests := []struct {
		name   string
		probes []Probe
		want   string
	}{
		{"no probes", nil, StatusHealthy},
		{"all pass", []Probe{{Name: "db", Check: ok, Critical: true}}, StatusHealthy},
		{"optional fails", []Probe{{Name: "db", Check: ok, Critical: true}, {Name: "redis", Check: fail}}, StatusDegraded},
		{"critical fails", []Probe{{Name: "db", Check: fail, Critical: true}, {Name: "redis", Check: fail}}, StatusUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := newTestBase(tt.probes...).HealthStatus(context.Background()); got != tt.want {
				t.Errorf("HealthStatus() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStandardRoutes(t *testing.T) {
	b := newTestBase(Probe{Name: "db", Check: func(context.Context) error { return errors.New("down") }, Critical: true})
	b.WithStats(func() map[string]any { return map[string]any{"transfers": 3} })
	b.RegisterStandardRoutes()

	rr := httptest.NewRecorder()
	b.Router().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("/health status = %d, want 503", rr.Code)
	}
	var health HealthResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if health.Status != StatusUnhealthy || health.Service != "Greeno" {
		t.Errorf("unexpected health: %+v", health)
	}
	if health.Checks["db"] != "down" {
		t.Errorf("checks = %v", health.Checks)
	}

	rr = httptest.NewRecorder()
	b.Router().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/info", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("/info status = %d", rr.Code)
	}
	var info InfoResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &info); err != nil {
		t.Fatalf("decode info: %v", err)
	}
	if info.Statistics["transfers"] != float64(3) {
		t.Errorf("statistics = %v", info.Statistics)
	}
	if info.ID != "greeno" {
		t.Errorf("id = %q", info.ID)
	}
}

func TestReport(t *testing.T) {
	b := newTestBase(
		Probe{Name: "db", Check: func(context.Context) error { return nil }, Critical: true},
		Probe{Name: "redis", Check: func(context.Context) error { return errors.New("refused") }},
	)

	if r := b.Report(); !r.LastCheck.IsZero() || r.Checks["redis"] != "ok" {
		t.Errorf("report before any check = %+v", r)
	}

	b.CheckHealth(context.Background())
	r := b.Report()
	if r.Status != StatusDegraded {
		t.Errorf("status = %q, want degraded", r.Status)
	}
	if r.Checks["db"] != "ok" || r.Checks["redis"] != "refused" {
		t.Errorf("checks = %v", r.Checks)
	}
	if r.LastCheck.IsZero() {
		t.Error("last check not recorded")
	}
}

func TestWorkersStopOnStop(t *testing.T) {
	b := newTestBase()
	var ticks atomic.Int32
	exited := make(chan struct{})

	b.AddWorker(func(ctx context.Context) {
		<-ctx.Done()
		close(exited)
	})
	b.AddTickerWorker("tick", 5*time.Millisecond, func(context.Context) error {
		ticks.Add(1)
		return errors.New("ignored")
	})

	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := b.Start(context.Background()); err == nil {
		t.Error("second Start should fail")
	}

	deadline := time.Now().Add(time.Second)
	for ticks.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if ticks.Load() < 2 {
		t.Fatalf("ticker worker ran %d times", ticks.Load())
	}

	if err := b.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	select {
	case <-exited:
	default:
		t.Error("worker still running after Stop")
	}
	select {
	case <-b.StopChan():
	default:
		t.Error("stop channel not closed")
	}
	if err := b.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
	if b.WorkerCount() != 2 {
		t.Errorf("WorkerCount() = %d", b.WorkerCount())
	}
}
