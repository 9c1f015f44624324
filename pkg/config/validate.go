package config

import "fmt"

func validate(cfg *Config) error {
	if cfg.MQTT.Host == "" {
		return fmt.Errorf("config: mqtt.host is required")
	}
	if cfg.InfluxDB.Host == "" {
		return fmt.Errorf("config: influxdb.host is required")
	}
	if cfg.InfluxDB.WriteEndpoint == "" {
		cfg.InfluxDB.WriteEndpoint = "/api/v3/write_lp"
	}
	if cfg.HTTP != nil {
		switch cfg.HTTP.Method {
		case "", "post":
			cfg.HTTP.Method = "post"
		case "put", "patch":
		default:
			return fmt.Errorf("config: http.method %q must be one of post, put, patch", cfg.HTTP.Method)
		}
		if cfg.HTTP.URL == "" {
			return fmt.Errorf("config: http.url is required when http is configured")
		}
	}
	if cfg.Base64Decode != nil {
		if cfg.Base64Decode.Source == "" || cfg.Base64Decode.Target == "" {
			return fmt.Errorf("config: base64decode requires both source and target")
		}
	}
	for _, s := range cfg.Sinks {
		if s.Name == "" {
			return fmt.Errorf("config: every sink requires a name")
		}
		switch s.Type {
		case "clickhouse", "kafka", "nats":
		default:
			return fmt.Errorf("config: sink %q: unknown type %q", s.Name, s.Type)
		}
	}
	if len(cfg.Points) == 0 {
		return fmt.Errorf("config: points must be non-empty")
	}
	return nil
}
