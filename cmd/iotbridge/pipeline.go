package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/edgeflare/iotbridge/pkg/config"
	"github.com/edgeflare/iotbridge/pkg/lineprotocol"
	"github.com/edgeflare/iotbridge/pkg/metrics"
	"github.com/edgeflare/iotbridge/pkg/mqttsession"
	"github.com/edgeflare/iotbridge/pkg/ruleengine"
	"github.com/edgeflare/iotbridge/pkg/sink"
	httpsink "github.com/edgeflare/iotbridge/pkg/sink/http"
	"github.com/edgeflare/iotbridge/pkg/sink/influxdb"
	"github.com/edgeflare/iotbridge/pkg/topicmatch"
	"go.uber.org/zap"

	// Register the pluggable sink backends. Each package's init() adds
	// itself to pkg/sink's registry (spec.md's DOMAIN STACK, C13); a
	// config with no `sinks` entries of a given type simply never
	// exercises that backend.
	_ "github.com/edgeflare/iotbridge/pkg/sink/clickhouse"
	_ "github.com/edgeflare/iotbridge/pkg/sink/kafka"
	_ "github.com/edgeflare/iotbridge/pkg/sink/nats"
)

// shutdownGrace bounds how long pipeline shutdown waits for in-flight
// work (the session disconnect, the flush loop and metrics server
// exiting) before giving up. The final batch flush runs after that wait
// and is not bounded by it.
const shutdownGrace = 5 * time.Second

// runBridge loads configuration, and either validates it and exits
// (--test) or wires the full pipeline and runs until shutdown.
func runBridge(cfgPath string, debug, testOnly, daemonMode, metricsOn bool, metricsAddr string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return configErrorf("%s", err)
	}

	logger, err := newLogger(debug)
	if err != nil {
		return configErrorf("building logger: %s", err)
	}
	defer logger.Sync()

	if testOnly {
		logger.Info("configuration is valid", zap.String("file", cfgPath), zap.Int("rules", len(cfg.Points)))
		return nil
	}

	p, err := newPipeline(cfg, logger)
	if err != nil {
		return configErrorf("%s", err)
	}
	defer p.closeSinks()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var wg sync.WaitGroup
	if metricsOn {
		go metrics.StartPrometheusServer(ctx, &wg, &metrics.PromServerOpts{Addr: metricsAddr})
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		p.runFlushLoop(ctx)
	}()

	sessionErr := make(chan error, 1)
	wg.Add(1)
	go func() {
		defer wg.Done()
		sessionErr <- p.session.Run(ctx, daemonMode)
	}()

	select {
	case <-sigChan:
		logger.Info("received termination signal, shutting down")
		cancel()
	case err := <-sessionErr:
		cancel()
		if err != nil {
			logger.Error("mqtt session terminated", zap.Error(err))
			p.flushAll()
			return err
		}
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(shutdownGrace):
		logger.Warn("shutdown timed out, flushing synchronously")
	}

	p.flushAll()
	return nil
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// pipeline owns every long-lived component wired from one Config: the
// rule engine, the line-protocol batches (one per bucket seen so far),
// the mandatory InfluxDB writer, the optional HTTP forwarder, the
// optional named sinks, and the MQTT session that feeds all of it.
type pipeline struct {
	cfg     *config.Config
	logger  *zap.Logger
	engine  *ruleengine.Engine
	influx  *influxdb.Writer
	http    *httpsink.Forwarder
	sinks   map[string]sink.Connector
	session *mqttsession.Session

	mu      sync.Mutex
	batches map[string]*lineprotocol.Batch
}

func newPipeline(cfg *config.Config, logger *zap.Logger) (*pipeline, error) {
	p := &pipeline{
		cfg:     cfg,
		logger:  logger,
		engine:  ruleengine.NewEngine(cfg.Points, cfg.Base64Decode, cfg.InfluxDB.Bucket, logger),
		influx:  influxdb.NewWriter(influxdb.Config{Host: cfg.InfluxDB.Host, Port: cfg.InfluxDB.Port, Token: cfg.InfluxDB.Token, Org: cfg.InfluxDB.Org, WriteEndpoint: cfg.InfluxDB.WriteEndpoint, EnableGzip: cfg.InfluxDB.EnableGzip}, logger),
		sinks:   make(map[string]sink.Connector),
		batches: make(map[string]*lineprotocol.Batch),
	}

	if cfg.HTTP != nil {
		p.http = httpsink.NewForwarder(cfg.HTTP, logger)
	}

	for _, sc := range cfg.Sinks {
		c, err := sink.New(sc.Type)
		if err != nil {
			return nil, err
		}
		if err := c.Connect(sc.Config); err != nil {
			return nil, err
		}
		p.sinks[sc.Name] = c
	}

	patterns := make([]*topicmatch.Pattern, 0, len(cfg.Points))
	for _, r := range cfg.Points {
		patterns = append(patterns, r.Topic)
	}
	topics := topicmatch.DistinctSubscriptions(patterns)

	p.session = mqttsession.NewSession(cfg.MQTT, topics, p.handleMessage, logger)

	return p, nil
}

// handleMessage is the MQTT on-message callback: dispatch against the
// rule engine, encode and batch every produced record, forward every
// produced HTTP payload (spec.md §4.6-§4.8). It runs on the session's
// callback goroutine, matching spec.md §5's single-threaded dispatch
// model.
func (p *pipeline) handleMessage(topic string, payload []byte) {
	metrics.MessagesReceived.Inc()
	start := time.Now()
	result := p.engine.Dispatch(topic, payload, start)
	metrics.DispatchDuration.Observe(time.Since(start).Seconds())

	for _, rec := range result.Records {
		line, err := lineprotocol.EncodeRecord(rec)
		if err != nil {
			metrics.EncodeErrors.WithLabelValues(rec.Measurement).Inc()
			p.logger.Warn("encode error", zap.String("measurement", rec.Measurement), zap.Error(err))
			continue
		}

		p.addLine(rec.Bucket, line)

		for name, c := range p.sinks {
			if err := c.Pub(rec); err != nil {
				metrics.OutputErrors.WithLabelValues(name).Inc()
				p.logger.Warn("sink publish error", zap.String("sink", name), zap.Error(err))
			}
		}
	}

	if p.http != nil {
		for _, hp := range result.HTTPPayloads {
			if err := p.http.Send(context.Background(), hp); err != nil {
				metrics.OutputErrors.WithLabelValues("http").Inc()
				p.logger.Warn("http forward error", zap.Error(err))
			}
		}
	}
}

func (p *pipeline) addLine(bucket, line string) {
	p.mu.Lock()
	b, ok := p.batches[bucket]
	if !ok {
		b = lineprotocol.NewBatch(bucket)
		p.batches[bucket] = b
	}
	b.Add(line)
	full := b.Full()
	p.mu.Unlock()

	if full {
		p.flushBucket(bucket)
	}
}

// runFlushLoop flushes every bucket's batch on the default interval
// until ctx is cancelled (spec.md §4.7/§5's frozen-buffer-swap flush
// model).
func (p *pipeline) runFlushLoop(ctx context.Context) {
	ticker := time.NewTicker(lineprotocol.DefaultFlushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.flushAll()
		}
	}
}

func (p *pipeline) flushAll() {
	p.mu.Lock()
	buckets := make([]string, 0, len(p.batches))
	for b := range p.batches {
		buckets = append(buckets, b)
	}
	p.mu.Unlock()
	for _, b := range buckets {
		p.flushBucket(b)
	}
}

func (p *pipeline) flushBucket(bucket string) {
	p.mu.Lock()
	b, ok := p.batches[bucket]
	if !ok || b.Len() == 0 {
		p.mu.Unlock()
		return
	}
	var body []byte
	var err error
	gzipped := p.cfg.InfluxDB.EnableGzip
	if gzipped {
		body, err = b.EncodeGzip()
	} else {
		body = b.Encode()
	}
	b.Reset()
	p.mu.Unlock()

	if err != nil {
		p.logger.Error("gzip encode error", zap.String("bucket", bucket), zap.Error(err))
		return
	}

	metrics.BatchesFlushed.WithLabelValues(bucket).Inc()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := p.influx.Write(ctx, bucket, body, gzipped); err != nil {
		metrics.OutputErrors.WithLabelValues("influxdb").Inc()
		p.logger.Warn("influxdb write error", zap.String("bucket", bucket), zap.Error(err))
	}
}

func (p *pipeline) closeSinks() {
	for name, c := range p.sinks {
		if err := c.Disconnect(); err != nil {
			p.logger.Warn("sink disconnect error", zap.String("sink", name), zap.Error(err))
		}
	}
}
