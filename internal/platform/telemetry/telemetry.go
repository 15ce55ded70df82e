// Package telemetry provides request metrics for the clinic server using
// standard library constructs: counters and latency histograms keyed by
// method, route and status, plus a Prometheus text exposition endpoint.
package telemetry

import (
	"fmt"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
)

// Config holds configuration for the metrics provider.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
}

func (c *Config) applyDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = "clinic-server"
	}
	if c.ServiceVersion == "" {
		c.ServiceVersion = "0.0.0"
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
}

// defaultLatencyBoundaries are histogram bucket upper bounds in seconds.
var defaultLatencyBoundaries = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// histogram is a thread-safe histogram with configurable bucket boundaries.
// Bucket counts are non-cumulative in storage; cumulative counts are computed
// at export time.
type histogram struct {
	boundaries   []float64
	bucketCounts []int64
	count        int64
	sum          uint64 // stored as math.Float64bits for atomic add
	mu           sync.Mutex
}

func newHistogram(boundaries []float64) *histogram {
	return &histogram{
		boundaries:   boundaries,
		bucketCounts: make([]int64, len(boundaries)),
	}
}

// Observe records a single value.
func (h *histogram) Observe(v float64) {
	atomic.AddInt64(&h.count, 1)
	atomicAddFloat64(&h.sum, v)

	h.mu.Lock()
	for i, b := range h.boundaries {
		if v <= b {
			h.bucketCounts[i]++
			h.mu.Unlock()
			return
		}
	}
	// Value exceeds all boundaries, counted only in +Inf at export.
	h.mu.Unlock()
}

// Count returns the total number of observations.
func (h *histogram) Count() int64 {
	return atomic.LoadInt64(&h.count)
}

// Sum returns the total sum of all observations.
func (h *histogram) Sum() float64 {
	return math.Float64frombits(atomic.LoadUint64(&h.sum))
}

// cumulativeBuckets returns cumulative bucket counts for Prometheus export.
func (h *histogram) cumulativeBuckets() []int64 {
	h.mu.Lock()
	raw := make([]int64, len(h.bucketCounts))
	copy(raw, h.bucketCounts)
	h.mu.Unlock()

	cum := make([]int64, len(raw))
	var running int64
	for i, c := range raw {
		running += c
		cum[i] = running
	}
	return cum
}

// atomicAddFloat64 performs an atomic add on a uint64 that stores a float64
// using CAS.
func atomicAddFloat64(addr *uint64, delta float64) {
	for {
		old := atomic.LoadUint64(addr)
		newVal := math.Float64frombits(old) + delta
		if atomic.CompareAndSwapUint64(addr, old, math.Float64bits(newVal)) {
			return
		}
	}
}

// LabelsKey builds the map key for labeled request metrics. Exported so tests
// can construct the same key.
func LabelsKey(method, route, statusCode string) string {
	return method + "|" + route + "|" + statusCode
}

// Provider collects request counters and latency histograms.
type Provider struct {
	cfg Config

	mu         sync.RWMutex
	counters   map[string]*int64
	histograms map[string]*histogram
}

func NewProvider(cfg Config) *Provider {
	cfg.applyDefaults()
	return &Provider{
		cfg:        cfg,
		counters:   make(map[string]*int64),
		histograms: make(map[string]*histogram),
	}
}

func (p *Provider) incCounter(key string) {
	p.mu.RLock()
	ptr, ok := p.counters[key]
	p.mu.RUnlock()
	if ok {
		atomic.AddInt64(ptr, 1)
		return
	}
	p.mu.Lock()
	ptr, ok = p.counters[key]
	if !ok {
		ptr = new(int64)
		p.counters[key] = ptr
	}
	p.mu.Unlock()
	atomic.AddInt64(ptr, 1)
}

// CounterValue returns the current value of a request counter.
func (p *Provider) CounterValue(key string) int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if ptr, ok := p.counters[key]; ok {
		return atomic.LoadInt64(ptr)
	}
	return 0
}

func (p *Provider) getOrCreateHistogram(key string) *histogram {
	p.mu.RLock()
	h, ok := p.histograms[key]
	p.mu.RUnlock()
	if ok {
		return h
	}
	p.mu.Lock()
	h, ok = p.histograms[key]
	if !ok {
		h = newHistogram(defaultLatencyBoundaries)
		p.histograms[key] = h
	}
	p.mu.Unlock()
	return h
}

// ObservationCount returns how many latency observations a labeled histogram
// has recorded.
func (p *Provider) ObservationCount(key string) int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if h, ok := p.histograms[key]; ok {
		return h.Count()
	}
	return 0
}

// Middleware records a counter increment and a latency observation for every
// request, labeled by method, route pattern and status code.
func (p *Provider) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				if httpErr, ok := err.(*echo.HTTPError); ok {
					status = httpErr.Code
				} else {
					status = http.StatusInternalServerError
				}
			}

			route := c.Path()
			if route == "" {
				route = c.Request().URL.Path
			}
			key := LabelsKey(c.Request().Method, route, strconv.Itoa(status))
			p.incCounter(key)
			p.getOrCreateHistogram(key).Observe(time.Since(start).Seconds())

			return err
		}
	}
}

// Handler returns an endpoint serving the collected metrics in Prometheus
// text exposition format.
func (p *Provider) Handler() echo.HandlerFunc {
	return func(c echo.Context) error {
		var b strings.Builder

		b.WriteString("# HELP http_requests_total Total number of HTTP requests.\n")
		b.WriteString("# TYPE http_requests_total counter\n")

		p.mu.RLock()
		counterKeys := make([]string, 0, len(p.counters))
		for k := range p.counters {
			counterKeys = append(counterKeys, k)
		}
		histKeys := make([]string, 0, len(p.histograms))
		for k := range p.histograms {
			histKeys = append(histKeys, k)
		}
		p.mu.RUnlock()
		sort.Strings(counterKeys)
		sort.Strings(histKeys)

		for _, k := range counterKeys {
			method, route, status := splitKey(k)
			fmt.Fprintf(&b, "http_requests_total{method=%q,route=%q,status=%q} %d\n",
				method, route, status, p.CounterValue(k))
		}

		b.WriteString("# HELP http_request_duration_seconds HTTP request latency.\n")
		b.WriteString("# TYPE http_request_duration_seconds histogram\n")

		for _, k := range histKeys {
			p.mu.RLock()
			h := p.histograms[k]
			p.mu.RUnlock()

			method, route, status := splitKey(k)
			labels := fmt.Sprintf("method=%q,route=%q,status=%q", method, route, status)

			cum := h.cumulativeBuckets()
			for i, bound := range h.boundaries {
				fmt.Fprintf(&b, "http_request_duration_seconds_bucket{%s,le=\"%g\"} %d\n",
					labels, bound, cum[i])
			}
			fmt.Fprintf(&b, "http_request_duration_seconds_bucket{%s,le=\"+Inf\"} %d\n", labels, h.Count())
			fmt.Fprintf(&b, "http_request_duration_seconds_sum{%s} %g\n", labels, h.Sum())
			fmt.Fprintf(&b, "http_request_duration_seconds_count{%s} %d\n", labels, h.Count())
		}

		fmt.Fprintf(&b, "# HELP service_info Build and environment information.\n")
		fmt.Fprintf(&b, "# TYPE service_info gauge\n")
		fmt.Fprintf(&b, "service_info{service=%q,version=%q,environment=%q} 1\n",
			p.cfg.ServiceName, p.cfg.ServiceVersion, p.cfg.Environment)

		return c.Blob(http.StatusOK, "text/plain; version=0.0.4; charset=utf-8", []byte(b.String()))
	}
}

func splitKey(key string) (method, route, status string) {
	parts := strings.SplitN(key, "|", 3)
	if len(parts) != 3 {
		return key, "", ""
	}
	return parts[0], parts[1], parts[2]
}
