// Package clickhouse forwards Records into a ClickHouse table, completing
// the teacher's stubbed ClickHouse peer (pkg/pipeline/peer/clickhouse in
// the teacher repo ships the INSERT commented out behind a TODO).
package clickhouse

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/edgeflare/iotbridge/pkg/ruleengine"
	"github.com/edgeflare/iotbridge/pkg/sink"
	"github.com/edgeflare/iotbridge/pkg/value"
	"github.com/mitchellh/mapstructure"
)

// Config configures the ClickHouse connection and destination table.
type Config struct {
	Addr     []string `mapstructure:"addr"`
	Database string   `mapstructure:"database"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
	Table    string   `mapstructure:"table"`
}

// Sink writes Records into ClickHouse, one INSERT per Pub call.
type Sink struct {
	conn   driver.Conn
	table  string
	config Config
}

// Connect opens the ClickHouse connection described by config.
func (s *Sink) Connect(config map[string]any) error {
	var cfg Config
	if err := mapstructure.Decode(config, &cfg); err != nil {
		return fmt.Errorf("clickhouse: decoding config: %w", err)
	}
	if len(cfg.Addr) == 0 {
		cfg.Addr = []string{"localhost:9000"}
	}
	if cfg.Database == "" {
		cfg.Database = "default"
	}
	if cfg.Table == "" {
		cfg.Table = "iotbridge_records"
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: cfg.Addr,
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
	})
	if err != nil {
		return fmt.Errorf("clickhouse: connect: %w", err)
	}
	if err := conn.Ping(context.Background()); err != nil {
		return fmt.Errorf("clickhouse: ping: %w", err)
	}

	s.conn = conn
	s.table = cfg.Table
	s.config = cfg
	return nil
}

// Pub inserts one Record as a row: measurement, tags and fields as JSON
// objects, and the nanosecond timestamp the rule engine assigned it.
func (s *Sink) Pub(rec *ruleengine.Record) error {
	tagsJSON := encodeTags(rec)
	fieldsJSON := value.EncodeJSON(value.Obj(rec.Fields))

	sql := fmt.Sprintf(`
		INSERT INTO %s.%s (bucket, measurement, tags, fields, timestamp_ns)
		VALUES (?, ?, ?, ?, ?)
	`, s.config.Database, s.table)

	err := s.conn.Exec(context.Background(), sql,
		rec.Bucket, rec.Measurement, tagsJSON, fieldsJSON, rec.TimestampNS)
	if err != nil {
		return fmt.Errorf("clickhouse: insert: %w", err)
	}
	return nil
}

func encodeTags(rec *ruleengine.Record) string {
	obj := value.NewObject()
	for _, k := range rec.Tags.Keys() {
		v, _ := rec.Tags.Get(k)
		obj.Set(k, value.Str(v))
	}
	return value.EncodeJSON(value.Obj(obj))
}

// Type reports this sink as pub-only: nothing in this bridge reads
// Records back out of ClickHouse.
func (s *Sink) Type() sink.ConnectorType {
	return sink.ConnectorTypePub
}

// Disconnect closes the underlying connection.
func (s *Sink) Disconnect() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

func init() {
	sink.Register(sink.TypeClickHouse, func() sink.Connector { return &Sink{} })
}
