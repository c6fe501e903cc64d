// Package metrics exposes the Prometheus collectors used across the service.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metric collectors.
type Metrics struct {
	ProfileCacheRequests  *prometheus.CounterVec
	ProfileCacheEvictions *prometheus.CounterVec
	ProfileCacheSize      prometheus.Gauge
	BufferFlushes         *prometheus.CounterVec
	BufferFlushedMessages prometheus.Counter
	BufferPending         prometheus.Gauge
	HTTPRequests          *prometheus.CounterVec
	UpstreamRequests      *prometheus.CounterVec
	ToolCalls             *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates and registers all metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	reg.MustRegister(prometheus.NewGoCollector())
	reg.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	m := &Metrics{
		ProfileCacheRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chisa_profile_cache_requests_total",
				Help: "Profile cache lookups by result (hit/miss).",
			},
			[]string{"result"},
		),
		ProfileCacheEvictions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chisa_profile_cache_evictions_total",
				Help: "Profile cache evictions by reason (capacity/expired).",
			},
			[]string{"reason"},
		),
		ProfileCacheSize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "chisa_profile_cache_entries",
				Help: "Entries currently held by the profile cache.",
			},
		),
		BufferFlushes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chisa_chat_buffer_flushes_total",
				Help: "Chat buffer flushes by result (ok/error/empty).",
			},
			[]string{"result"},
		),
		BufferFlushedMessages: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "chisa_chat_buffer_flushed_messages_total",
				Help: "Messages handed to storage by the chat buffer.",
			},
		),
		BufferPending: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "chisa_chat_buffer_pending",
				Help: "Chat sessions with messages waiting to be flushed.",
			},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chisa_http_requests_total",
				Help: "HTTP requests by route and status code.",
			},
			[]string{"route", "status"},
		),
		UpstreamRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chisa_upstream_requests_total",
				Help: "Outbound upstream calls by service and result.",
			},
			[]string{"service", "result"},
		),
		ToolCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chisa_assistant_tool_calls_total",
				Help: "Assistant tool invocations by tool and result.",
			},
			[]string{"tool", "result"},
		),
		registry: reg,
	}

	reg.MustRegister(
		m.ProfileCacheRequests,
		m.ProfileCacheEvictions,
		m.ProfileCacheSize,
		m.BufferFlushes,
		m.BufferFlushedMessages,
		m.BufferPending,
		m.HTTPRequests,
		m.UpstreamRequests,
		m.ToolCalls,
	)

	return m
}

// Handler returns an HTTP handler serving the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordCacheLookup counts a profile cache hit or miss.
func (m *Metrics) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.ProfileCacheRequests.WithLabelValues("hit").Inc()
		return
	}
	m.ProfileCacheRequests.WithLabelValues("miss").Inc()
}

// RecordCacheEviction counts an entry leaving the profile cache.
func (m *Metrics) RecordCacheEviction(expired bool) {
	if m == nil {
		return
	}
	if expired {
		m.ProfileCacheEvictions.WithLabelValues("expired").Inc()
		return
	}
	m.ProfileCacheEvictions.WithLabelValues("capacity").Inc()
}

// SetCacheSize publishes the profile cache size.
func (m *Metrics) SetCacheSize(n int) {
	if m == nil {
		return
	}
	m.ProfileCacheSize.Set(float64(n))
}

// RecordFlush counts a buffer flush. result is ok, error or empty.
func (m *Metrics) RecordFlush(result string, messages int) {
	if m == nil {
		return
	}
	m.BufferFlushes.WithLabelValues(result).Inc()
	if messages > 0 {
		m.BufferFlushedMessages.Add(float64(messages))
	}
}

// SetPending publishes the number of pending buffer sessions.
func (m *Metrics) SetPending(n int) {
	if m == nil {
		return
	}
	m.BufferPending.Set(float64(n))
}

// RecordRequest counts an HTTP request.
func (m *Metrics) RecordRequest(route string, status int) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

// RecordUpstream counts an outbound call.
func (m *Metrics) RecordUpstream(service string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.UpstreamRequests.WithLabelValues(service, result).Inc()
}

// RecordToolCall counts an assistant tool invocation.
func (m *Metrics) RecordToolCall(tool string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.ToolCalls.WithLabelValues(tool, result).Inc()
}
