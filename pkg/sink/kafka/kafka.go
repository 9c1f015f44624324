// Package kafka forwards Records onto a Kafka topic, adapted from the
// teacher's Kafka peer (pkg/pipeline/peer/kafka in the teacher repo),
// which ships a sync producer for a CDC-shaped event plus admin-client
// topic provisioning. Topic management (the teacher's ensureDefaultTopic)
// is dropped: this sink publishes onto an operator-provisioned topic
// named by config rather than creating one, since per-bucket telemetry
// topics don't need the same retention/partition bootstrapping a
// change-data-capture stream does.
package kafka

import (
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/edgeflare/iotbridge/pkg/ruleengine"
	"github.com/edgeflare/iotbridge/pkg/sink"
	"github.com/edgeflare/iotbridge/pkg/value"
	"github.com/mitchellh/mapstructure"
)

// SASLConfig configures SASL authentication against the broker.
type SASLConfig struct {
	Enable    bool   `mapstructure:"enable"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	Algorithm string `mapstructure:"algorithm"`
}

// Config configures the producer and destination topic.
type Config struct {
	Brokers []string    `mapstructure:"brokers"`
	Topic   string      `mapstructure:"topic"`
	Version string      `mapstructure:"version"`
	SASL    *SASLConfig `mapstructure:"sasl"`
}

// Sink is a Kafka producer forwarding one message per Record.
type Sink struct {
	producer sarama.SyncProducer
	topic    string
}

// Connect creates the underlying sync producer.
func (s *Sink) Connect(config map[string]any) error {
	var cfg Config
	if err := mapstructure.Decode(config, &cfg); err != nil {
		return fmt.Errorf("kafka: decoding config: %w", err)
	}
	if len(cfg.Brokers) == 0 {
		cfg.Brokers = []string{"localhost:9092"}
	}
	if cfg.Topic == "" {
		cfg.Topic = "iotbridge"
	}
	if cfg.Version == "" {
		cfg.Version = "2.1.1"
	}

	saramaConfig := sarama.NewConfig()
	version, err := sarama.ParseKafkaVersion(cfg.Version)
	if err != nil {
		return fmt.Errorf("kafka: invalid version: %w", err)
	}
	saramaConfig.Version = version
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Retry.Max = 5
	saramaConfig.Producer.Retry.Backoff = time.Second
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true

	if cfg.SASL != nil && cfg.SASL.Enable {
		saramaConfig.Net.SASL.Enable = true
		saramaConfig.Net.SASL.User = cfg.SASL.Username
		saramaConfig.Net.SASL.Password = cfg.SASL.Password
		switch cfg.SASL.Algorithm {
		case "sha256":
			saramaConfig.Net.SASL.Mechanism = sarama.SASLTypeSCRAMSHA256
		case "sha512":
			saramaConfig.Net.SASL.Mechanism = sarama.SASLTypeSCRAMSHA512
		default:
			saramaConfig.Net.SASL.Mechanism = sarama.SASLTypePlaintext
		}
	}

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaConfig)
	if err != nil {
		return fmt.Errorf("kafka: creating producer: %w", err)
	}

	s.producer = producer
	s.topic = cfg.Topic
	return nil
}

// Pub publishes rec, JSON-encoded, keyed by its measurement name so that
// records for the same measurement land on the same partition.
func (s *Sink) Pub(rec *ruleengine.Record) error {
	if s.producer == nil {
		return fmt.Errorf("kafka: producer not initialized")
	}

	msg := &sarama.ProducerMessage{
		Topic: s.topic,
		Key:   sarama.StringEncoder(rec.Measurement),
		Value: sarama.StringEncoder(encodeRecord(rec)),
	}
	if _, _, err := s.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("kafka: publish: %w", err)
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

// Disconnect closes the producer.
func (s *Sink) Disconnect() error {
	if s.producer != nil {
		return s.producer.Close()
	}
	return nil
}

func init() {
	sink.Register(sink.TypeKafka, func() sink.Connector { return &Sink{} })
}
