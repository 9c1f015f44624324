// Package lineprotocol formats Records into InfluxDB v3 line protocol
// and batches the encoded lines for a writer (spec.md §4.7).
package lineprotocol

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/edgeflare/iotbridge/pkg/ruleengine"
	"github.com/edgeflare/iotbridge/pkg/value"
)

// EncodeRecord renders one Record as a single line-protocol line:
//
//	measurement[,tagkey=tagvalue]* fieldkey=fieldvalue[,...] timestamp_ns
//
// A Record with no encodable fields (all skipped as non-finite, or the
// field set was empty to begin with) is an error: line protocol forbids
// an empty field set.
func EncodeRecord(rec *ruleengine.Record) (string, error) {
	var sb strings.Builder
	sb.WriteString(escapeMeasurement(rec.Measurement))

	for _, k := range rec.Tags.Keys() {
		v, _ := rec.Tags.Get(k)
		if v == "" {
			continue
		}
		sb.WriteByte(',')
		sb.WriteString(escapeKeyOrTagValue(k))
		sb.WriteByte('=')
		sb.WriteString(escapeKeyOrTagValue(v))
	}

	sb.WriteByte(' ')
	wrote := 0
	for _, k := range rec.Fields.Keys() {
		fv, _ := rec.Fields.Get(k)
		encoded, skip, err := encodeFieldValue(fv)
		if err != nil {
			return "", fmt.Errorf("lineprotocol: field %q: %w", k, err)
		}
		if skip {
			continue
		}
		if wrote > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(escapeKeyOrTagValue(k))
		sb.WriteByte('=')
		sb.WriteString(encoded)
		wrote++
	}
	if wrote == 0 {
		return "", fmt.Errorf("lineprotocol: record %q has no encodable fields", rec.Measurement)
	}

	sb.WriteByte(' ')
	sb.WriteString(strconv.FormatInt(rec.TimestampNS, 10))
	return sb.String(), nil
}

// encodeFieldValue renders a single field value in its natural line
// protocol type. skip is true for NaN/Inf floats, which are left out of
// the line. EncodeRecord drops such fields silently: it logs no warning
// and reports them to the caller only when no field is left.
func encodeFieldValue(v value.Value) (encoded string, skip bool, err error) {
	switch v.Kind() {
	case value.KindInt:
		i, _ := v.AsInt()
		return strconv.FormatInt(i, 10) + "i", false, nil
	case value.KindFloat:
		f, _ := v.AsFloat()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return "", true, nil
		}
		return strconv.FormatFloat(f, 'g', -1, 64), false, nil
	case value.KindBool:
		b, _ := v.AsBool()
		if b {
			return "t", false, nil
		}
		return "f", false, nil
	case value.KindStr:
		s, _ := v.AsStr()
		return `"` + escapeStringFieldValue(s) + `"`, false, nil
	default:
		return "", false, fmt.Errorf("cannot encode %s as a line-protocol field", v.Kind())
	}
}

func escapeMeasurement(s string) string {
	r := strings.NewReplacer(",", `\,`, " ", `\ `)
	return r.Replace(s)
}

func escapeKeyOrTagValue(s string) string {
	r := strings.NewReplacer(",", `\,`, "=", `\=`, " ", `\ `)
	return r.Replace(s)
}

func escapeStringFieldValue(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return r.Replace(s)
}
