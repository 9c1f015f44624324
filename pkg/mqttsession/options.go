package mqttsession

import (
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/edgeflare/iotbridge/pkg/config"
	"github.com/google/uuid"
)

// buildClientOptions converts a config.MQTTConfig into paho's
// mqtt.ClientOptions. Reconnection is handled by Session's own backoff
// loop (spec.md §4.9), so paho's built-in auto-reconnect is disabled.
func buildClientOptions(cfg config.MQTTConfig, onConnectionLost mqtt.ConnectionLostHandler) (*mqtt.ClientOptions, error) {
	opts := mqtt.NewClientOptions()

	scheme := "tcp"
	if cfg.TLS != nil {
		scheme = "ssl"
	}
	opts.AddBroker(fmt.Sprintf("%s://%s:%d", scheme, cfg.Host, cfg.Port))

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = fmt.Sprintf("iotbridge-%s", uuid.NewString())
	}
	opts.SetClientID(clientID)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	if cfg.TLS != nil {
		tlsConfig, err := buildTLSConfig(cfg.TLS)
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsConfig)
	}

	opts.SetCleanSession(true)
	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetOrderMatters(true)
	opts.SetConnectionLostHandler(onConnectionLost)

	return opts, nil
}
