// Package metrics exposes the bridge's Prometheus counters and
// histograms and the HTTP server that serves them.
package metrics

import (
	"cmp"
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// MessagesReceived counts every inbound MQTT message handed to the
	// rule engine, before any rule matching.
	MessagesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "iotbridge_messages_received_total",
			Help: "Total number of MQTT messages received",
		},
	)

	// RuleOutcomes is a counter of rule evaluations labelled by rule and
	// outcome: matched, skipped_topic (topic pattern didn't match),
	// skipped_schedule (cron gate didn't fire), skipped_coercion
	// (CoercionError), or skipped_expression (ExpressionError at eval
	// time). The rule engine does not increment it; it stays at zero
	// unless other code records outcomes.
	RuleOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iotbridge_rule_outcomes_total",
			Help: "Total number of rule evaluations by outcome",
		},
		[]string{"rule", "outcome"},
	)

	// EncodeErrors counts line-protocol encode failures (no field left
	// once NaN/Inf fields are skipped, or a field of a kind line protocol
	// cannot carry) by measurement.
	EncodeErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iotbridge_encode_errors_total",
			Help: "Total number of line-protocol encode errors",
		},
		[]string{"measurement"},
	)

	// BatchesFlushed counts batches handed to a writer, by bucket.
	BatchesFlushed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iotbridge_batches_flushed_total",
			Help: "Total number of line-protocol batches flushed",
		},
		[]string{"bucket"},
	)

	// OutputErrors counts non-2xx / transport errors from a write
	// destination, by sink name ("influxdb", "http", or a configured
	// sink name).
	OutputErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iotbridge_output_errors_total",
			Help: "Total number of output errors by sink",
		},
		[]string{"sink"},
	)

	// DispatchDuration measures wall time spent dispatching one inbound
	// message against the full rule set.
	DispatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "iotbridge_dispatch_duration_seconds",
			Help:    "Duration of one message's dispatch across the rule set",
			Buckets: prometheus.DefBuckets,
		},
	)
)

type PromServerOpts struct {
	Addr              string
	Path              string        // Path for metrics endpoint, defaults to "/metrics"
	ShutdownTimeout   time.Duration // Timeout for server shutdown, defaults to 5 seconds
	ReadHeaderTimeout time.Duration // Timeout for reading request headers, defaults to 3 seconds
}

func defaultPrometheusServerOptions() PromServerOpts {
	return PromServerOpts{
		Addr:              ":9100",
		Path:              "/metrics",
		ShutdownTimeout:   5 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

// StartPrometheusServer starts a Prometheus metrics server with the given options
// The server gracefully shutdown when the provided context is canceled
func StartPrometheusServer(ctx context.Context, wg *sync.WaitGroup, opts *PromServerOpts) {
	// merge with defaults
	effectiveOpts := defaultPrometheusServerOptions()
	if opts != nil {
		effectiveOpts.Addr = cmp.Or(opts.Addr, effectiveOpts.Addr)
		effectiveOpts.Path = cmp.Or(opts.Path, effectiveOpts.Path)
		effectiveOpts.ShutdownTimeout = cmp.Or(opts.ShutdownTimeout, effectiveOpts.ShutdownTimeout)
		effectiveOpts.ReadHeaderTimeout = cmp.Or(opts.ReadHeaderTimeout, effectiveOpts.ReadHeaderTimeout)
	}

	mux := http.NewServeMux()
	mux.Handle(effectiveOpts.Path, promhttp.Handler())
	server := &http.Server{
		Addr:              effectiveOpts.Addr,
		Handler:           mux,
		ReadHeaderTimeout: effectiveOpts.ReadHeaderTimeout,
	}

	serverClosed := make(chan struct{})

	// Increment wait group
	wg.Add(1)

	// Start server
	go func() {
		defer wg.Done()
		log.Printf("Starting Prometheus metrics server on %s", effectiveOpts.Addr)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("Metrics server error: %v", err)
		}
		close(serverClosed)
	}()

	// Monitor context cancellation in a separate goroutine
	go func() {
		<-ctx.Done()

		// Create a timeout context for shutdown
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), effectiveOpts.ShutdownTimeout)
		defer shutdownCancel()

		// Attempt graceful shutdown
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error shutting down metrics server: %v", err)
		}

		// Wait for server to close or timeout
		select {
		case <-serverClosed:
			log.Println("Metrics server shutdown complete")
		case <-shutdownCtx.Done():
			log.Println("Metrics server shutdown timed out")
		}
	}()
}
