package config

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleConfig = `
mqtt:
  host: localhost
  port: 1883
influxdb:
  host: localhost
  port: 8181
  token: ${IOTBRIDGE_TEST_TOKEN:devtoken}
  org: myorg
  bucket: telemetry
points:
  - measurement: temperature
    topic: sensors/+/temperature
    fields:
      value: $.payload
    tags:
      sensor_id: $.topic[1]
  - measurement: mix
    topic: sensors/+/mix
    fields:
      celsius: $.payload
      fahrenheit: "= 32 + ($.payload * 9 / 5)"
      pm25:
        value: $.payload.pm
        type: int
    tags:
      a: $.topic[1]
      b: $.topic[2]
`

func TestLoadParsesRulesInOrder(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "iotbridge.yaml")
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Points) != 2 {
		t.Fatalf("got %d rules, want 2", len(cfg.Points))
	}
	if cfg.Points[0].Measurement != "temperature" {
		t.Fatalf("rule order not preserved: %q", cfg.Points[0].Measurement)
	}

	second := cfg.Points[1]
	if len(second.Fields) != 3 {
		t.Fatalf("got %d fields, want 3", len(second.Fields))
	}
	wantKeys := []string{"celsius", "fahrenheit", "pm25"}
	for i, k := range wantKeys {
		if second.Fields[i].Key != k {
			t.Fatalf("field order not preserved: got %v, want %v", fieldKeys(second.Fields), wantKeys)
		}
	}
	if second.Fields[1].Val.Kind != FieldExpr {
		t.Fatalf("fahrenheit should be an expression field")
	}
	if second.Fields[2].Val.Kind != FieldTyped || second.Fields[2].Val.Type != "int" {
		t.Fatalf("pm25 should be a typed int field")
	}

	if second.Tags[0].Key != "a" || second.Tags[1].Key != "b" {
		t.Fatalf("tag order not preserved: %v", second.Tags)
	}
}

func TestLoadRejectsMissingMQTTHost(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "iotbridge.yaml")
	bad := `
influxdb:
  host: localhost
points:
  - measurement: m
    topic: a/b
    fields:
      x: $.payload
`
	if err := os.WriteFile(path, []byte(bad), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for missing mqtt.host")
	}
}

func fieldKeys(fields []KV[FieldSpec]) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.Key
	}
	return out
}
