package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCounterAndGauge(t *testing.T) {
	r := New()
	c := r.Counter("requests_total", "Total requests")
	c.Inc()
	c.Add(2)
	if c.Value() != 3 {
		t.Errorf("counter = %d, want 3", c.Value())
	}

	g := r.Gauge("inflight", "")
	g.Set(5)
	g.Inc()
	g.Dec()
	if g.Value() != 5 {
		t.Errorf("gauge = %d, want 5", g.Value())
	}

	// Same name returns the same metric.
	if r.Counter("requests_total", "") != c {
		t.Error("expected the registered counter back")
	}
}

func TestWithLabels(t *testing.T) {
	if got := WithLabels("reqs", "intent", "earnings", "status", "ok"); got != `reqs{intent="earnings",status="ok"}` {
		t.Errorf("WithLabels = %s", got)
	}
	if got := WithLabels("reqs"); got != "reqs" {
		t.Errorf("no labels = %s", got)
	}
	if got := WithLabels("reqs", "dangling"); got != "reqs" {
		t.Errorf("odd pairs = %s", got)
	}
}

func TestRenderLabelledSeries(t *testing.T) {
	r := New()
	r.Counter(WithLabels("reqs_total", "intent", "earnings"), "Requests").Inc()
	r.Counter(WithLabels("reqs_total", "intent", "vehicle"), "").Add(2)

	out := r.Render()
	for _, want := range []string{
		"# HELP reqs_total Requests",
		"# TYPE reqs_total counter",
		`reqs_total{intent="earnings"} 1`,
		`reqs_total{intent="vehicle"} 2`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("render missing %q in:\n%s", want, out)
		}
	}
}

func TestRenderHistogram(t *testing.T) {
	r := New()
	h := r.Histogram("latency_seconds", "Latency", []float64{0.1, 1, 10})
	h.Observe(0.05)
	h.Observe(0.5)
	h.Observe(5)

	out := r.Render()
	for _, want := range []string{
		`latency_seconds_bucket{le="0.1"} 1`,
		`latency_seconds_bucket{le="1"} 2`,
		`latency_seconds_bucket{le="10"} 3`,
		`latency_seconds_bucket{le="+Inf"} 3`,
		"latency_seconds_count 3",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("render missing %q in:\n%s", want, out)
		}
	}
}

func TestHandler(t *testing.T) {
	r := New()
	r.Counter("up", "").Inc()
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "up 1") {
		t.Errorf("body = %s", rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "text/plain") {
		t.Errorf("content type = %s", ct)
	}
}
