// Package metrics holds the Prometheus instruments of the catalog server.
package metrics

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// DefaultPrefix namespaces every metric name.
const DefaultPrefix = "ecoeat"

// Metrics is a set of instruments registered on its own registry.
type Metrics struct {
	reg *prometheus.Registry

	RequestsTotal     *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	ProductOperations *prometheus.CounterVec
}

// New registers the instruments under prefix, plus the Go and process collectors.
func New(prefix string) *Metrics {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		RequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_grpc_requests_total",
				Help: "Total number of gRPC requests",
			},
			[]string{"method", "code"},
		),
		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    prefix + "_grpc_request_duration_seconds",
				Help:    "Duration of gRPC requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		ProductOperations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_product_operations_total",
				Help: "Total number of successful product operations",
			},
			[]string{"operation"},
		),
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// RecordProductOperation increments the counter for one product operation.
func (m *Metrics) RecordProductOperation(operation string) {
	m.ProductOperations.WithLabelValues(operation).Inc()
}

// UnaryServerInterceptor counts and times every call. Successful catalog
// mutations are also recorded as product operations.
func (m *Metrics) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := next(ctx, req)
		method := methodName(info.FullMethod)
		code := status.Code(err)

		m.RequestsTotal.WithLabelValues(method, code.String()).Inc()
		m.RequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
		if err == nil {
			switch method {
			case "CreateProduct", "UpdateProduct", "DeleteProduct":
				m.RecordProductOperation(strings.TrimSuffix(strings.ToLower(method), "product"))
			}
		}
		return resp, err
	}
}

func methodName(full string) string {
	if i := strings.LastIndexByte(full, '/'); i >= 0 {
		return full[i+1:]
	}
	return full
}
