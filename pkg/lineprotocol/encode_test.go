package lineprotocol

import (
	"strings"
	"testing"

	"github.com/edgeflare/iotbridge/pkg/ruleengine"
	"github.com/edgeflare/iotbridge/pkg/value"
)

func newRecord(measurement string, tags map[string]string, fields map[string]value.Value, ts int64) *ruleengine.Record {
	ot := ruleengine.NewOrderedTags()
	for k, v := range tags {
		ot.Set(k, v)
	}
	fv := value.NewObject()
	for k, v := range fields {
		fv.Set(k, v)
	}
	return &ruleengine.Record{
		Measurement: measurement,
		Tags:        ot,
		Fields:      fv,
		TimestampNS: ts,
	}
}

func TestEncodeSimpleNumeric(t *testing.T) {
	rec := newRecord("temperature",
		map[string]string{"sensor_id": "room1"},
		map[string]value.Value{"value": value.Float(25.5)},
		1700000000000000000)
	got, err := EncodeRecord(rec)
	if err != nil {
		t.Fatal(err)
	}
	want := "temperature,sensor_id=room1 value=25.5 1700000000000000000"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestEncodeIntegerSuffix(t *testing.T) {
	rec := newRecord("pm", nil, map[string]value.Value{"pm25": value.Int(5)}, 1)
	got, err := EncodeRecord(rec)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "pm25=5i") {
		t.Fatalf("got %q, want an integer-suffixed field", got)
	}
}

func TestEncodeStringField(t *testing.T) {
	rec := newRecord("state", nil, map[string]value.Value{"state": value.Str("ON")}, 1)
	got, err := EncodeRecord(rec)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, `state="ON"`) {
		t.Fatalf("got %q, want a quoted string field", got)
	}
}

func TestEncodeBooleanField(t *testing.T) {
	rec := newRecord("alarm", nil, map[string]value.Value{"triggered": value.Bool(true)}, 1)
	got, err := EncodeRecord(rec)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "triggered=t") {
		t.Fatalf("got %q, want a boolean field", got)
	}
}

func TestEncodeEscapesSpecialCharacters(t *testing.T) {
	rec := newRecord("my measurement,x",
		map[string]string{"ta g": "val,ue=x"},
		map[string]value.Value{"fi,eld": value.Str(`a"b\c`)},
		1)
	got, err := EncodeRecord(rec)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(got, `my\ measurement\,x,`) {
		t.Fatalf("measurement not escaped: %q", got)
	}
	if !strings.Contains(got, `ta\ g=val\,ue\=x`) {
		t.Fatalf("tag not escaped: %q", got)
	}
	if !strings.Contains(got, `fi\,eld="a\"b\\c"`) {
		t.Fatalf("field key/value not escaped: %q", got)
	}
}

func TestEncodeSkipsNonFiniteFloatField(t *testing.T) {
	rec := newRecord("m", nil, map[string]value.Value{
		"bad": value.Float(0.0 / zero()),
		"ok":  value.Int(1),
	}, 1)
	got, err := EncodeRecord(rec)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(got, "bad=") {
		t.Fatalf("expected non-finite field to be skipped, got %q", got)
	}
	if !strings.Contains(got, "ok=1i") {
		t.Fatalf("expected the finite field to survive, got %q", got)
	}
}

func TestEncodeRejectsEmptyFieldSet(t *testing.T) {
	rec := newRecord("m", nil, nil, 1)
	if _, err := EncodeRecord(rec); err == nil {
		t.Fatal("expected an error for an empty field set")
	}
}

func zero() float64 { return 0 }
