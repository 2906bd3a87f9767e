// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package metrics defines the Prometheus instruments for relay sessions
// and serves them over HTTP.
//
// Every method on *Metrics is safe on a nil receiver and does nothing,
// so relay components take an optional *Metrics without nil checks at
// each call site.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Byte-flow directions used as the "direction" label.
const (
	DirectionToRemote = "to_remote"
	DirectionToLocal  = "to_local"
)

// Metrics holds the relay instruments.
type Metrics struct {
	sessionsStarted *prometheus.CounterVec
	sessionsEnded   *prometheus.CounterVec
	sessionDuration prometheus.Histogram
	bytesRelayed    *prometheus.CounterVec
	connectFailures prometheus.Counter
	quitTokens      prometheus.Counter
	forcedKills     prometheus.Counter
}

// New creates the instruments and registers them with registerer. A nil
// registerer leaves them unregistered, which tests use to read values
// without a shared registry.
func New(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		sessionsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tether_sessions_started_total",
			Help: "Relay sessions started, by local endpoint mode.",
		}, []string{"mode"}),
		sessionsEnded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tether_sessions_ended_total",
			Help: "Relay sessions ended, by reason.",
		}, []string{"reason"}),
		sessionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tether_session_duration_seconds",
			Help:    "Relay session lifetime.",
			Buckets: prometheus.ExponentialBuckets(0.1, 4, 10),
		}),
		bytesRelayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tether_bytes_relayed_total",
			Help: "Payload bytes relayed, by direction.",
		}, []string{"direction"}),
		connectFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tether_connect_failures_total",
			Help: "Failed outbound connection attempts.",
		}),
		quitTokens: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tether_quit_tokens_total",
			Help: "Quit tokens received from the peer.",
		}),
		forcedKills: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tether_forced_kills_total",
			Help: "Shells killed after outliving the termination grace period.",
		}),
	}
	if registerer != nil {
		registerer.MustRegister(
			m.sessionsStarted,
			m.sessionsEnded,
			m.sessionDuration,
			m.bytesRelayed,
			m.connectFailures,
			m.quitTokens,
			m.forcedKills,
		)
	}
	return m
}

// SessionStarted counts a session starting in mode.
func (m *Metrics) SessionStarted(mode string) {
	if m == nil {
		return
	}
	m.sessionsStarted.WithLabelValues(mode).Inc()
}

// SessionEnded counts a session ending for reason after duration.
func (m *Metrics) SessionEnded(reason string, duration time.Duration) {
	if m == nil {
		return
	}
	m.sessionsEnded.WithLabelValues(reason).Inc()
	m.sessionDuration.Observe(duration.Seconds())
}

// BytesRelayed adds n bytes in direction.
func (m *Metrics) BytesRelayed(direction string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.bytesRelayed.WithLabelValues(direction).Add(float64(n))
}

// ConnectFailed counts one failed dial.
func (m *Metrics) ConnectFailed() {
	if m == nil {
		return
	}
	m.connectFailures.Inc()
}

// QuitTokenReceived counts one quit token seen on the input path.
func (m *Metrics) QuitTokenReceived() {
	if m == nil {
		return
	}
	m.quitTokens.Inc()
}

// ForcedKill counts one SIGKILL escalation.
func (m *Metrics) ForcedKill() {
	if m == nil {
		return
	}
	m.forcedKills.Inc()
}

// Server serves /metrics from a gatherer.
type Server struct {
	// Address is the TCP address to listen on.
	Address string

	// Gatherer supplies the metrics. Defaults to prometheus'
	// DefaultGatherer.
	Gatherer prometheus.Gatherer

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

func (s *Server) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// Listen binds Address and returns the listener for Serve. Binding
// separately lets a caller fail fast on a bad address before starting
// any session.
func (s *Server) Listen() (net.Listener, error) {
	listener, err := net.Listen("tcp", s.Address)
	if err != nil {
		return nil, fmt.Errorf("metrics: listen on %s: %w", s.Address, err)
	}
	return listener, nil
}

// Serve serves metrics on listener until ctx is cancelled. Returns nil
// on cancellation.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	gatherer := s.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		server.Close()
	}()

	s.logger().Info("metrics server started", "address", listener.Addr().String())
	err := server.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Start builds a fresh registry holding the relay instruments plus the
// Go runtime and process collectors, binds address, and serves it in
// the background until ctx is cancelled. An empty address disables the
// endpoint and returns nil Metrics.
func Start(ctx context.Context, address string, logger *slog.Logger) (*Metrics, error) {
	if address == "" {
		return nil, nil
	}
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	instruments := New(registry)

	server := &Server{Address: address, Gatherer: registry, Logger: logger}
	listener, err := server.Listen()
	if err != nil {
		return nil, err
	}
	go func() {
		if err := server.Serve(ctx, listener); err != nil {
			server.logger().Error("metrics server failed", "error", err)
		}
	}()
	return instruments, nil
}
