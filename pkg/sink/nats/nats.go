// Package nats forwards Records onto a NATS JetStream subject, adapted
// from the teacher's NATS peer (pkg/pipeline/peer/nats in the teacher
// repo), which is a full pub/sub peer with a pull-consumer Sub side.
// Only the JetStream publish half and its stream-provisioning helper
// survive here: this bridge never reads Records back out of NATS, so
// there is no consumer to build.
package nats

import (
	"cmp"
	"fmt"

	"github.com/edgeflare/iotbridge/pkg/ruleengine"
	"github.com/edgeflare/iotbridge/pkg/sink"
	"github.com/edgeflare/iotbridge/pkg/value"
	"github.com/mitchellh/mapstructure"
	"github.com/nats-io/nats.go"
)

// Config configures the JetStream connection and destination subject.
type Config struct {
	Servers       []string `mapstructure:"servers"`
	Stream        string   `mapstructure:"stream"`
	SubjectPrefix string   `mapstructure:"subjectPrefix"`
	Username      string   `mapstructure:"username"`
	Password      string   `mapstructure:"password"`
}

// Sink publishes Records onto a JetStream subject namespaced by bucket
// and measurement.
type Sink struct {
	nc     *nats.Conn
	js     nats.JetStreamContext
	config Config
}

// Connect opens the NATS connection and ensures the destination stream
// exists.
func (s *Sink) Connect(config map[string]any) error {
	var cfg Config
	if err := mapstructure.Decode(config, &cfg); err != nil {
		return fmt.Errorf("nats: decoding config: %w", err)
	}
	if len(cfg.Servers) == 0 {
		cfg.Servers = []string{nats.DefaultURL}
	}
	cfg.SubjectPrefix = cmp.Or(cfg.SubjectPrefix, "iotbridge")
	cfg.Stream = cmp.Or(cfg.Stream, fmt.Sprintf("%s-stream", cfg.SubjectPrefix))

	opts := []nats.Option{nats.RetryOnFailedConnect(true), nats.MaxReconnects(-1)}
	if cfg.Username != "" && cfg.Password != "" {
		opts = append(opts, nats.UserInfo(cfg.Username, cfg.Password))
	}

	var err error
	for _, server := range cfg.Servers {
		s.nc, err = nats.Connect(server, opts...)
		if err == nil {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("nats: connect: %w", err)
	}

	if s.js, err = s.nc.JetStream(); err != nil {
		s.nc.Close()
		return fmt.Errorf("nats: jetstream context: %w", err)
	}

	subjects := []string{fmt.Sprintf("%s.>", cfg.SubjectPrefix)}
	if _, err := s.js.StreamInfo(cfg.Stream); err == nats.ErrStreamNotFound {
		if _, err := s.js.AddStream(&nats.StreamConfig{
			Name:     cfg.Stream,
			Subjects: subjects,
			Storage:  nats.FileStorage,
		}); err != nil {
			s.nc.Close()
			return fmt.Errorf("nats: create stream: %w", err)
		}
	} else if err != nil {
		s.nc.Close()
		return fmt.Errorf("nats: stream info: %w", err)
	}

	s.config = cfg
	return nil
}

// Pub publishes rec under "<prefix>.<bucket>.<measurement>".
func (s *Sink) Pub(rec *ruleengine.Record) error {
	if s.js == nil {
		return fmt.Errorf("nats: connection not initialized")
	}
	subject := fmt.Sprintf("%s.%s.%s", s.config.SubjectPrefix, rec.Bucket, rec.Measurement)
	data := []byte(encodeRecord(rec))
	if _, err := s.js.Publish(subject, data); err != nil {
		return fmt.Errorf("nats: publish: %w", err)
	}
	return nil
}

func encodeRecord(rec *ruleengine.Record) string {
	obj := value.NewObject()
	obj.Set("bucket", value.Str(rec.Bucket))
	obj.Set("measurement", value.Str(rec.Measurement))

	tags := value.NewObject()
	for _, k := range rec.Tags.Keys() {
		v, _ := rec.Tags.Get(k)
		tags.Set(k, value.Str(v))
	}
	obj.Set("tags", value.Obj(tags))
	obj.Set("fields", value.Obj(rec.Fields))
	obj.Set("timestamp_ns", value.Int(rec.TimestampNS))
	return value.EncodeJSON(value.Obj(obj))
}

// Type reports this sink as pub-only.
func (s *Sink) Type() sink.ConnectorType {
	return sink.ConnectorTypePub
}

// Disconnect closes the connection.
func (s *Sink) Disconnect() error {
	if s.nc != nil {
		s.nc.Close()
	}
	return nil
}

func init() {
	sink.Register(sink.TypeNATS, func() sink.Connector { return &Sink{} })
}
