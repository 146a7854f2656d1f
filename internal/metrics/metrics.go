// Package metrics exposes Prometheus counters for month runs and declarations.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ovdeclare"

// Metrics owns its registry so several instances can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	monthsTotal       *prometheus.CounterVec
	eventsSelected    prometheus.Counter
	fareSelectedTotal prometheus.Counter
	declarations      *prometheus.CounterVec
	runDuration       prometheus.Summary
	lastRunTS         prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.monthsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "months_total",
		Help:      "Months processed by outcome",
	}, []string{"status"})
	m.eventsSelected = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_selected_total",
		Help:      "Travel events flagged for declaration",
	})
	m.fareSelectedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fare_selected_euros_total",
		Help:      "Sum of fares of the flagged events",
	})
	m.declarations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "declarations_total",
		Help:      "Declaration texts handled by outcome",
	}, []string{"status"})
	m.runDuration = prometheus.NewSummary(prometheus.SummaryOpts{
		Namespace: namespace,
		Name:      "run_duration_seconds",
		Help:      "Time spent on one driver run over a month range",
	})
	m.lastRunTS = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_run_timestamp_seconds",
		Help:      "Unix timestamp of the last finished driver run",
	})

	m.registry.MustRegister(
		m.monthsTotal, m.eventsSelected, m.fareSelectedTotal,
		m.declarations, m.runDuration, m.lastRunTS,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Nil receivers are no-ops so callers may run without metrics.

func (m *Metrics) MonthProcessed(status string) {
	if m == nil {
		return
	}
	m.monthsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) EventsSelected(n int, fareTotal float64) {
	if m == nil {
		return
	}
	m.eventsSelected.Add(float64(n))
	m.fareSelectedTotal.Add(fareTotal)
}

func (m *Metrics) DeclarationHandled(status string) {
	if m == nil {
		return
	}
	m.declarations.WithLabelValues(status).Inc()
}

func (m *Metrics) RunFinished(d time.Duration) {
	if m == nil {
		return
	}
	m.runDuration.Observe(d.Seconds())
	m.lastRunTS.Set(float64(time.Now().Unix()))
}

// Handler serves /metrics and /healthz.
func (m *Metrics) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// Serve listens on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      m.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
