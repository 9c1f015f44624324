// Package sink defines the pluggable forwarding-backend interface
// additional sinks (ClickHouse, Kafka, NATS) implement, and the registry
// the configuration layer resolves a `sinks[].type` entry against
// (spec.md's DOMAIN STACK expansion, C13). It generalizes the teacher's
// pipeline.Connector, which forwards a pipeline-specific cdc.Event, to
// forward this bridge's own Record domain type instead.
package sink

import (
	"fmt"

	"github.com/edgeflare/iotbridge/pkg/ruleengine"
)

// ConnectorType mirrors the teacher's pipeline.ConnectorType, trimmed to
// the directions this bridge actually needs: every additional sink here
// is a pure consumer of Records, never a source.
type ConnectorType int

const (
	ConnectorTypeUnknown ConnectorType = iota
	ConnectorTypePub
)

// Predefined sink type names, matched against config.SinkConfig.Type.
const (
	TypeClickHouse = "clickhouse"
	TypeKafka      = "kafka"
	TypeNATS       = "nats"
)

// Connector is one additional forwarding backend. Connect receives the
// sink's own `config:` block verbatim (already merged from YAML via
// mapstructure upstream); implementations decode it themselves the same
// way the teacher's peers decode their json.RawMessage config.
type Connector interface {
	Connect(config map[string]any) error
	Pub(rec *ruleengine.Record) error
	Type() ConnectorType
	Disconnect() error
}

var factories = make(map[string]func() Connector)

// Register adds a sink type to the registry under name. Sink packages
// call this from their own init().
func Register(name string, factory func() Connector) {
	factories[name] = factory
}

// New constructs a fresh Connector instance for a registered sink type
// name. Each call returns a new instance since a config may declare
// multiple named sinks of the same type with independent connections.
func New(name string) (Connector, error) {
	factory, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("sink: unknown sink type %q", name)
	}
	return factory(), nil
}
