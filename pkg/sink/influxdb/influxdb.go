// Package influxdb writes batched line-protocol records to InfluxDB v3's
// HTTP write endpoint (spec.md §4.8). Unlike the other sinks in
// pkg/sink, a Writer is not registered against the sink.Connector
// registry: InfluxDB is the bridge's mandatory, always-on destination
// rather than an optional named sink, so its wiring lives directly in
// the CLI's pipeline construction instead of behind the pluggable
// registry the DOMAIN STACK sinks use.
package influxdb

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// Config configures the write endpoint and credentials.
type Config struct {
	Host          string
	Port          int
	Token         string
	Org           string
	WriteEndpoint string
	EnableGzip    bool
}

// Writer POSTs line-protocol batches to InfluxDB. A non-2xx response
// drops the batch (no in-memory queueing or inline retry); a 429 or 5xx
// response instead arms an exponential backoff that subsequent Write
// calls respect before attempting the network again.
type Writer struct {
	client *http.Client
	cfg    Config
	logger *zap.Logger

	backoff      *backoff.ExponentialBackOff
	nextAttempt  time.Time
	inBackoff    bool
	backoffSleep time.Duration
}

// NewWriter constructs a Writer bound to cfg.
func NewWriter(cfg Config, logger *zap.Logger) *Writer {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 0 // never stop producing growing intervals on its own
	return &Writer{
		client: &http.Client{Timeout: 10 * time.Second},
		cfg:    cfg,
		logger: logger,
		backoff: b,
	}
}

// Write sends an already-encoded (and optionally already-gzipped) batch
// body for bucket. It returns an error without attempting the network
// call while a prior 429/5xx has the writer in backoff.
func (w *Writer) Write(ctx context.Context, bucket string, body []byte, gzipped bool) error {
	if w.inBackoff && time.Now().Before(w.nextAttempt) {
		return fmt.Errorf("influxdb: writer in backoff, next attempt at %s", w.nextAttempt.Format(time.RFC3339))
	}

	endpoint := fmt.Sprintf("http://%s:%d%s?org=%s&db=%s&precision=ns",
		w.cfg.Host, w.cfg.Port, w.cfg.WriteEndpoint, url.QueryEscape(w.cfg.Org), url.QueryEscape(bucket))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("influxdb: building request: %w", err)
	}
	if w.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+w.cfg.Token)
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if gzipped {
		req.Header.Set("Content-Encoding", "gzip")
	}

	resp, err := w.client.Do(req)
	if err != nil {
		w.logger.Warn("influxdb: request failed, batch dropped", zap.Error(err))
		return fmt.Errorf("influxdb: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		w.backoff.Reset()
		w.inBackoff = false
		return nil
	}

	w.logger.Warn("influxdb: non-2xx response, batch dropped",
		zap.Int("status", resp.StatusCode), zap.String("bucket", bucket))

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		w.backoffSleep = w.backoff.NextBackOff()
		w.nextAttempt = time.Now().Add(w.backoffSleep)
		w.inBackoff = true
	}
	return fmt.Errorf("influxdb: write failed with status %d", resp.StatusCode)
}
