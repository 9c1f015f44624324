package mqttsession

import (
	"context"
	"testing"
	"time"

	"github.com/edgeflare/iotbridge/pkg/config"
	"go.uber.org/zap"
)

func TestNewSessionDoesNotConnect(t *testing.T) {
	s := NewSession(config.MQTTConfig{Host: "127.0.0.1", Port: 1}, nil, func(string, []byte) {}, zap.NewNop())
	if s.client != nil {
		t.Fatal("NewSession must not dial the broker")
	}
}

func TestDisconnectOnUnconnectedSessionIsSafe(t *testing.T) {
	s := NewSession(config.MQTTConfig{Host: "127.0.0.1", Port: 1}, nil, func(string, []byte) {}, zap.NewNop())
	s.Disconnect()
}

// TestRunNonDaemonReturnsErrorOnUnreachableBroker exercises the
// non-daemon exit path: a broker that refuses the connection must make
// Run return an error rather than retry, per spec.md §4.9/§6.
func TestRunNonDaemonReturnsErrorOnUnreachableBroker(t *testing.T) {
	s := NewSession(config.MQTTConfig{Host: "127.0.0.1", Port: 1}, nil, func(string, []byte) {}, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := s.Run(ctx, false); err == nil {
		t.Fatal("expected an error connecting to an unreachable broker in non-daemon mode")
	}
}
