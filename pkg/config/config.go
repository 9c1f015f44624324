// Package config loads and validates the bridge's YAML configuration:
// the MQTT session, the InfluxDB and optional HTTP/sink destinations,
// and the `points` rule set the pipeline dispatches against.
package config

import (
	"bytes"
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Version is the bridge's release version, reported by `iotbridge -V`.
const Version = "0.1.0"

// TLSConfig configures an MQTT TLS connection.
type TLSConfig struct {
	CAFile             string `mapstructure:"cafile"`
	CertFile           string `mapstructure:"certfile"`
	KeyFile            string `mapstructure:"keyfile"`
	InsecureSkipVerify bool   `mapstructure:"insecureSkipVerify"`
}

// MQTTConfig configures the broker connection.
type MQTTConfig struct {
	Host     string     `mapstructure:"host"`
	Port     int        `mapstructure:"port"`
	ClientID string     `mapstructure:"clientID"`
	Username string     `mapstructure:"username"`
	Password string     `mapstructure:"password"`
	TLS      *TLSConfig `mapstructure:"tls"`
}

// InfluxDBConfig configures the line-protocol writer.
type InfluxDBConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	Token         string `mapstructure:"token"`
	Org           string `mapstructure:"org"`
	Bucket        string `mapstructure:"bucket"`
	EnableGzip    bool   `mapstructure:"enableGzip"`
	WriteEndpoint string `mapstructure:"writeEndpoint"`
}

// HTTPConfig configures the optional parallel HTTP forward.
type HTTPConfig struct {
	URL           string `mapstructure:"url"`
	Method        string `mapstructure:"method"`
	BasicAuthUser string `mapstructure:"basicAuthUser"`
	BasicAuthPass string `mapstructure:"basicAuthPass"`
}

// Base64DecodeConfig configures the optional global payload injection
// (spec.md §4.6 step 2): decode a base64 string at Source and inject the
// decoded Value under Target within the payload.
type Base64DecodeConfig struct {
	Source string `mapstructure:"source"`
	Target string `mapstructure:"target"`
}

// SinkConfig configures one additional forwarding backend beyond the
// mandatory InfluxDB writer (ClickHouse, Kafka, NATS; spec.md's DOMAIN
// STACK expansion, C13).
type SinkConfig struct {
	Name   string         `mapstructure:"name"`
	Type   string         `mapstructure:"type"`
	Config map[string]any `mapstructure:"config"`
}

// MetricsConfig holds the `metrics` section. ListenAddr is decoded but
// not read: the metrics server's address comes from the CLI's
// --metrics-addr flag.
type MetricsConfig struct {
	ListenAddr string `mapstructure:"listenAddr"`
}

// Config is the fully parsed, validated configuration.
type Config struct {
	MQTT         MQTTConfig          `mapstructure:"mqtt"`
	InfluxDB     InfluxDBConfig      `mapstructure:"influxdb"`
	HTTP         *HTTPConfig         `mapstructure:"http"`
	Base64Decode *Base64DecodeConfig `mapstructure:"base64decode"`
	Sinks        []SinkConfig        `mapstructure:"sinks"`
	Metrics      MetricsConfig       `mapstructure:"metrics"`
	Points       []*Rule
}

// Load reads, env-interpolates, and parses the config file at path. The
// raw bytes are interpolated before any YAML parsing occurs, so
// ${VAR}/${VAR:default} references may appear anywhere a string scalar
// is legal, including inside rule selectors.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	interpolated, err := InterpolateEnv(raw)
	if err != nil {
		return nil, err
	}

	var root yaml.Node
	if err := yaml.Unmarshal(interpolated, &root); err != nil {
		return nil, fmt.Errorf("config: parsing yaml: %w", err)
	}
	if len(root.Content) == 0 {
		return nil, fmt.Errorf("config: empty configuration file")
	}
	doc := root.Content[0]

	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(interpolated)); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	var cfg Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("config: decoding: %w", err)
	}

	pointsNode := findMappingValue(doc, "points")
	points, err := decodeRules(pointsNode)
	if err != nil {
		return nil, err
	}
	cfg.Points = points

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func findMappingValue(doc *yaml.Node, key string) *yaml.Node {
	if doc.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(doc.Content); i += 2 {
		if doc.Content[i].Value == key {
			return doc.Content[i+1]
		}
	}
	return nil
}
