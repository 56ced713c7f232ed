package prometheus

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stefvanhouten/loginauth"
	"github.com/stefvanhouten/loginauth/credstore/memory"
)

type fakeSource struct {
	snapshot loginauth.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() loginauth.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                       { return f.dropped }

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := New(fakeSource{
		snapshot: loginauth.MetricsSnapshot{
			Counters:   map[loginauth.MetricID]uint64{},
			Histograms: map[loginauth.MetricID][]uint64{},
		},
	})

	if got := exp.Render(); got != "" {
		t.Fatalf("expected empty output for disabled metrics, got:\n%s", got)
	}
}

func TestRenderIncludesCounterAndHistogram(t *testing.T) {
	exp := New(fakeSource{
		snapshot: loginauth.MetricsSnapshot{
			Counters: map[loginauth.MetricID]uint64{
				loginauth.MetricLoginSuccess: 7,
			},
			Histograms: map[loginauth.MetricID][]uint64{
				loginauth.MetricCurrentUserLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	out := exp.Render()
	for _, want := range []string{
		"loginauth_login_success_total 7",
		"loginauth_login_failure_total 0",
		"loginauth_current_user_latency_seconds_bucket{le=\"0.001\"} 1",
		"loginauth_current_user_latency_seconds_bucket{le=\"+Inf\"} 36",
		"loginauth_current_user_latency_seconds_count 36",
		"loginauth_audit_dropped_total 2",
		"# TYPE loginauth_current_user_latency_seconds histogram",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, out)
		}
	}
}

func TestRenderOmitsDisabledHistogram(t *testing.T) {
	exp := New(fakeSource{
		snapshot: loginauth.MetricsSnapshot{
			Counters:   map[loginauth.MetricID]uint64{loginauth.MetricLogout: 1},
			Histograms: map[loginauth.MetricID][]uint64{},
		},
	})

	if out := exp.Render(); strings.Contains(out, "latency") {
		t.Fatalf("histogram must be omitted when not recorded, got:\n%s", out)
	}
}

func TestHandlerServesEngineMetrics(t *testing.T) {
	engine, err := loginauth.New().
		WithCredentialStore(memory.New()).
		WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	if _, err := engine.Register(context.Background(), "alice", "pw1"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	New(engine).Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "text/plain") {
		t.Fatalf("expected prometheus content type, got %q", got)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "loginauth_register_success_total 1") {
		t.Fatalf("expected register counter, got:\n%s", rec.Body.String())
	}
}

func BenchmarkRender(b *testing.B) {
	exp := New(fakeSource{
		snapshot: loginauth.MetricsSnapshot{
			Counters: map[loginauth.MetricID]uint64{
				loginauth.MetricLoginSuccess:   1000,
				loginauth.MetricLoginFailure:   40,
				loginauth.MetricSessionCreated: 1000,
				loginauth.MetricLogout:         20,
			},
			Histograms: map[loginauth.MetricID][]uint64{
				loginauth.MetricCurrentUserLatency: {10, 20, 30, 40, 50, 60, 70, 80},
			},
		},
	})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = exp.Render()
	}
}
