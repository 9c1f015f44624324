package metrics

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestStartPrometheusServerShutsDownOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	StartPrometheusServer(ctx, &wg, &PromServerOpts{Addr: "127.0.0.1:0"})

	// StartPrometheusServer binds asynchronously; give it a moment.
	time.Sleep(20 * time.Millisecond)

	MessagesReceived.Inc()
	RuleOutcomes.WithLabelValues("temp-rule", "matched").Inc()

	cancel()
	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("server did not shut down in time")
	}
}

func TestDefaultPrometheusServerOptions(t *testing.T) {
	opts := defaultPrometheusServerOptions()
	if opts.Addr != ":9100" || opts.Path != "/metrics" {
		t.Fatalf("unexpected defaults: %+v", opts)
	}
}
