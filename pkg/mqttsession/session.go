// Package mqttsession owns the MQTT client's connect/subscribe/on-message
// lifecycle and its reconnect-with-backoff policy (spec.md §4.9).
package mqttsession

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/edgeflare/iotbridge/pkg/config"
	"go.uber.org/zap"
)

// Handler processes one inbound message. Session hands every message to
// it on the paho callback goroutine, unchanged (spec.md §5: message
// processing runs in the same execution context it arrives on).
type Handler func(topic string, payload []byte)

// Session owns a single paho client bound to one broker, subscribed to a
// fixed set of concrete topic filters computed once at startup.
type Session struct {
	cfg     config.MQTTConfig
	topics  []string
	handler Handler
	logger  *zap.Logger

	client mqtt.Client

	connLost chan struct{}
}

// NewSession builds a Session. topics is the distinct subscription set
// computed by the rule engine's topic patterns (spec.md §4.4); handler is
// invoked once per inbound message, on the paho callback goroutine.
func NewSession(cfg config.MQTTConfig, topics []string, handler Handler, logger *zap.Logger) *Session {
	return &Session{
		cfg:      cfg,
		topics:   topics,
		handler:  handler,
		logger:   logger,
		connLost: make(chan struct{}, 1),
	}
}

func (s *Session) onConnectionLost(_ mqtt.Client, err error) {
	s.logger.Warn("mqttsession: connection lost", zap.Error(err))
	select {
	case s.connLost <- struct{}{}:
	default:
	}
}

// connectAndSubscribe performs one connect attempt followed by one
// subscribe-all attempt. Either failing tears the client back down so the
// caller's backoff loop starts clean on the next attempt.
func (s *Session) connectAndSubscribe() error {
	opts, err := buildClientOptions(s.cfg, s.onConnectionLost)
	if err != nil {
		return fmt.Errorf("mqttsession: building client options: %w", err)
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqttsession: connect: %w", token.Error())
	}

	filters := make(map[string]byte, len(s.topics))
	for _, t := range s.topics {
		filters[t] = 0
	}

	if len(filters) > 0 {
		token := client.SubscribeMultiple(filters, s.onMessage)
		if token.Wait() && token.Error() != nil {
			client.Disconnect(0)
			return fmt.Errorf("mqttsession: subscribe: %w", token.Error())
		}
	}

	s.client = client
	s.logger.Info("mqttsession: connected and subscribed",
		zap.String("host", s.cfg.Host), zap.Int("topics", len(filters)))
	return nil
}

func (s *Session) onMessage(_ mqtt.Client, msg mqtt.Message) {
	s.handler(msg.Topic(), msg.Payload())
}

// Run drives the connect/subscribe/reconnect lifecycle until ctx is
// cancelled. In daemon mode a lost or failed connection is retried with
// exponential backoff (1s -> 60s cap), reset after every successful
// subscribe; in non-daemon mode the first failure or disconnect returns
// an error so the caller can exit non-zero (spec.md §4.9, §6).
func (s *Session) Run(ctx context.Context, daemon bool) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.MaxInterval = 60 * time.Second
	bo.MaxElapsedTime = 0
	bo.Multiplier = 2

	for {
		if err := s.connectAndSubscribe(); err != nil {
			if !daemon {
				return err
			}
			wait := bo.NextBackOff()
			s.logger.Warn("mqttsession: connect failed, retrying", zap.Error(err), zap.Duration("backoff", wait))
			select {
			case <-time.After(wait):
				continue
			case <-ctx.Done():
				return nil
			}
		}

		bo.Reset()

		select {
		case <-ctx.Done():
			s.Disconnect()
			return nil
		case <-s.connLost:
			if !daemon {
				return fmt.Errorf("mqttsession: connection lost")
			}
			continue
		}
	}
}

// Disconnect closes the underlying client, if connected.
func (s *Session) Disconnect() {
	if s.client != nil && s.client.IsConnected() {
		s.client.Disconnect(250)
	}
}
