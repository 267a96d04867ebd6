// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package metrics exposes link and sensor counters to Prometheus.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// NewRegistry creates a registry with the Go and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler returns the HTTP handler for reg.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// LinkMetrics counts transport and decoder events. It implements
// transport.Observer.
type LinkMetrics struct {
	Connected    prometheus.Gauge
	Opens        prometheus.Counter
	BytesTx      prometheus.Counter
	BytesRx      prometheus.Counter
	ReadTimeouts prometheus.Counter
	Errors       *prometheus.CounterVec // labels: op
	Snapshots    *prometheus.CounterVec // labels: result=ok|error
}

// NewLinkMetrics registers and returns the link counters.
func NewLinkMetrics(reg prometheus.Registerer) *LinkMetrics {
	m := &LinkMetrics{
		Connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tether_link_connected",
			Help: "1 while a port is open.",
		}),
		Opens: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tether_link_opens_total",
			Help: "Total successful port opens.",
		}),
		BytesTx: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tether_link_tx_bytes_total",
			Help: "Total bytes written to the robot.",
		}),
		BytesRx: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tether_link_rx_bytes_total",
			Help: "Total bytes read from the robot.",
		}),
		ReadTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tether_link_read_timeouts_total",
			Help: "Reads that ended before the expected byte count.",
		}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tether_link_errors_total",
			Help: "Port errors by operation.",
		}, []string{"op"}),
		Snapshots: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tether_sensor_snapshots_total",
			Help: "Sensor snapshots by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(m.Connected, m.Opens, m.BytesTx, m.BytesRx, m.ReadTimeouts, m.Errors, m.Snapshots)
	return m
}

func (m *LinkMetrics) Opened(string) {
	m.Opens.Inc()
	m.Connected.Set(1)
}

func (m *LinkMetrics) Closed(string) {
	m.Connected.Set(0)
}

func (m *LinkMetrics) BytesWritten(n int) {
	m.BytesTx.Add(float64(n))
}

func (m *LinkMetrics) BytesRead(n int) {
	m.BytesRx.Add(float64(n))
}

func (m *LinkMetrics) ReadTimeout() {
	m.ReadTimeouts.Inc()
}

func (m *LinkMetrics) Error(op string) {
	m.Errors.WithLabelValues(op).Inc()
}

// ObserveSnapshot counts one query or stream result.
func (m *LinkMetrics) ObserveSnapshot(err error) {
	if err != nil {
		m.Snapshots.WithLabelValues("error").Inc()
		return
	}
	m.Snapshots.WithLabelValues("ok").Inc()
}

// Server serves the metrics endpoint until Shutdown.
type Server struct {
	srv    *http.Server
	logger *zap.Logger
}

// Serve starts listening on addr in the background.
func Serve(addr, path string, reg *prometheus.Registry, logger *zap.Logger) *Server {
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, Handler(reg))

	s := &Server{
		srv:    &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		logger: logger,
	}
	go func() {
		logger.Info("Metrics endpoint listening", zap.String("addr", addr), zap.String("path", path))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics endpoint failed", zap.Error(err))
		}
	}()
	return s
}

// Shutdown stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
