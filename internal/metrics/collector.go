// Package metrics is an in-process collector for dispatch counters and
// latencies, rendered in the Prometheus text exposition format.
package metrics

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Default is the process-wide collector.
var Default = NewCollector()

// Collector aggregates counters, gauges and histograms.
type Collector struct {
	counters   sync.Map // key -> *Counter
	gauges     sync.Map // key -> *Gauge
	histograms sync.Map // key -> *Histogram
	startTime  time.Time
}

// NewCollector returns an empty collector whose uptime starts now.
func NewCollector() *Collector {
	return &Collector{startTime: time.Now()}
}

// Uptime returns how long the collector has been running.
func (c *Collector) Uptime() time.Duration {
	return time.Since(c.startTime)
}

// Counter is a monotonically increasing counter.
type Counter struct {
	name   string
	help   string
	labels string
	value  atomic.Int64
}

// Inc adds one.
func (c *Counter) Inc() { c.value.Add(1) }

// Add adds n.
func (c *Counter) Add(n int64) { c.value.Add(n) }

// Value returns the current count.
func (c *Counter) Value() int64 { return c.value.Load() }

// Gauge is a value that can go up and down.
type Gauge struct {
	name   string
	help   string
	labels string
	value  atomic.Int64
}

// Set replaces the gauge value.
func (g *Gauge) Set(v int64) { g.value.Store(v) }

// Inc raises the gauge by one.
func (g *Gauge) Inc() { g.value.Add(1) }

// Dec lowers the gauge by one.
func (g *Gauge) Dec() { g.value.Add(-1) }

// Value returns the current gauge value.
func (g *Gauge) Value() int64 { return g.value.Load() }

// Histogram tracks the distribution of observed values.
type Histogram struct {
	name    string
	help    string
	labels  string
	mu      sync.Mutex
	count   int64
	sum     float64
	buckets []histBucket
}

type histBucket struct {
	le    float64
	count int64
}

// Observe records v in every bucket whose upper bound is at least v.
func (h *Histogram) Observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += v
	for i := range h.buckets {
		if v <= h.buckets[i].le {
			h.buckets[i].count++
		}
	}
}

// Count returns the number of observations.
func (h *Histogram) Count() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

// Labels renders label pairs as k="v",... in key order.
func Labels(kv ...string) string {
	if len(kv)%2 != 0 {
		kv = append(kv, "")
	}
	pairs := make([]string, 0, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		pairs = append(pairs, fmt.Sprintf("%s=%q", kv[i], kv[i+1]))
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ",")
}

// --- Registration helpers ---

// Counter returns or creates the counter for name and labels.
func (c *Collector) Counter(name, help, labels string) *Counter {
	key := name + "{" + labels + "}"
	if v, ok := c.counters.Load(key); ok {
		return v.(*Counter)
	}
	actual, _ := c.counters.LoadOrStore(key, &Counter{name: name, help: help, labels: labels})
	return actual.(*Counter)
}

// Gauge returns or creates the gauge for name and labels.
func (c *Collector) Gauge(name, help, labels string) *Gauge {
	key := name + "{" + labels + "}"
	if v, ok := c.gauges.Load(key); ok {
		return v.(*Gauge)
	}
	actual, _ := c.gauges.LoadOrStore(key, &Gauge{name: name, help: help, labels: labels})
	return actual.(*Gauge)
}

// Histogram returns or creates the histogram for name and labels.
func (c *Collector) Histogram(name, help, labels string, buckets []float64) *Histogram {
	key := name + "{" + labels + "}"
	if v, ok := c.histograms.Load(key); ok {
		return v.(*Histogram)
	}
	sorted := append([]float64(nil), buckets...)
	sort.Float64s(sorted)
	if len(sorted) == 0 || !math.IsInf(sorted[len(sorted)-1], 1) {
		sorted = append(sorted, math.Inf(1))
	}
	hb := make([]histBucket, len(sorted))
	for i, b := range sorted {
		hb[i] = histBucket{le: b}
	}
	actual, _ := c.histograms.LoadOrStore(key, &Histogram{name: name, help: help, labels: labels, buckets: hb})
	return actual.(*Histogram)
}

// --- Prometheus text rendering ---

// WriteText renders every metric in Prometheus text format, sorted by key.
func (c *Collector) WriteText(w io.Writer) error {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# HELP domainbot_uptime_seconds Time since start in seconds\n")
	fmt.Fprintf(&sb, "# TYPE domainbot_uptime_seconds gauge\n")
	fmt.Fprintf(&sb, "domainbot_uptime_seconds %d\n", int64(c.Uptime().Seconds()))

	helpWritten := make(map[string]bool)
	for _, v := range sortedValues(&c.counters) {
		ctr := v.(*Counter)
		writeHeader(&sb, helpWritten, ctr.name, ctr.help, "counter")
		writeSample(&sb, ctr.name, ctr.labels, fmt.Sprintf("%d", ctr.Value()))
	}

	for _, v := range sortedValues(&c.gauges) {
		g := v.(*Gauge)
		writeHeader(&sb, helpWritten, g.name, g.help, "gauge")
		writeSample(&sb, g.name, g.labels, fmt.Sprintf("%d", g.Value()))
	}

	for _, v := range sortedValues(&c.histograms) {
		h := v.(*Histogram)
		h.mu.Lock()
		writeHeader(&sb, helpWritten, h.name, h.help, "histogram")
		for _, b := range h.buckets {
			le := fmt.Sprintf("%g", b.le)
			if math.IsInf(b.le, 1) {
				le = "+Inf"
			}
			labels := `le="` + le + `"`
			if h.labels != "" {
				labels = h.labels + "," + labels
			}
			writeSample(&sb, h.name+"_bucket", labels, fmt.Sprintf("%d", b.count))
		}
		writeSample(&sb, h.name+"_count", h.labels, fmt.Sprintf("%d", h.count))
		writeSample(&sb, h.name+"_sum", h.labels, fmt.Sprintf("%f", h.sum))
		h.mu.Unlock()
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func writeHeader(sb *strings.Builder, written map[string]bool, name, help, kind string) {
	if written[name] {
		return
	}
	fmt.Fprintf(sb, "# HELP %s %s\n", name, help)
	fmt.Fprintf(sb, "# TYPE %s %s\n", name, kind)
	written[name] = true
}

func writeSample(sb *strings.Builder, name, labels, value string) {
	if labels != "" {
		fmt.Fprintf(sb, "%s{%s} %s\n", name, labels, value)
		return
	}
	fmt.Fprintf(sb, "%s %s\n", name, value)
}

func sortedValues(m *sync.Map) []any {
	var keys []string
	values := make(map[string]any)
	m.Range(func(k, v any) bool {
		keys = append(keys, k.(string))
		values[k.(string)] = v
		return true
	})
	sort.Strings(keys)
	out := make([]any, len(keys))
	for i, k := range keys {
		out[i] = values[k]
	}
	return out
}

// --- Dispatch metrics ---

var latencyBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}

// RequestRouted counts a request handled by domain.
func (c *Collector) RequestRouted(domain string) {
	c.Counter("domainbot_requests_total", "Requests handled per domain", Labels("domain", domain)).Inc()
}

// ValidationResult counts validation outcomes per domain.
func (c *Collector) ValidationResult(domain string, valid bool) {
	result := "invalid"
	if valid {
		result = "valid"
	}
	c.Counter("domainbot_validation_total", "Validation outcomes per domain",
		Labels("domain", domain, "result", result)).Inc()
}

// ProviderFailure counts a capability whose provider failed or was missing.
func (c *Collector) ProviderFailure(capability, reason string) {
	c.Counter("domainbot_provider_failures_total", "Capability providers that produced no payload",
		Labels("capability", capability, "reason", reason)).Inc()
}

// InFlight tracks dispatches currently running.
func (c *Collector) InFlight() *Gauge {
	return c.Gauge("domainbot_inflight_dispatches", "Dispatches currently running", "")
}

// DispatchLatency records the wall time of one dispatch.
func (c *Collector) DispatchLatency(d time.Duration) {
	c.Histogram("domainbot_dispatch_latency_seconds", "Dispatch latency in seconds", "", latencyBuckets).
		Observe(d.Seconds())
}
