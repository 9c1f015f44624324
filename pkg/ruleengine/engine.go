package ruleengine

import (
	"encoding/base64"
	"strings"
	"time"

	"github.com/edgeflare/iotbridge/pkg/config"
	"github.com/edgeflare/iotbridge/pkg/crongate"
	"github.com/edgeflare/iotbridge/pkg/expr"
	"github.com/edgeflare/iotbridge/pkg/selector"
	"github.com/edgeflare/iotbridge/pkg/topicmatch"
	"github.com/edgeflare/iotbridge/pkg/value"
	"go.uber.org/zap"
)

// HTTPPayload is the parallel dictionary a rule's httpcontent selectors
// produce, queued for a single HTTP forward (spec.md §4.6 step 6).
type HTTPPayload struct {
	Rule *config.Rule
	Body *value.Object
}

// DispatchResult is everything one inbound message produced.
type DispatchResult struct {
	Records      []*Record
	HTTPPayloads []*HTTPPayload
}

// Engine owns the per-rule cron gate state and dispatches inbound
// messages against the configured rule set. It is not safe for
// concurrent use: the bridge's single-threaded pipeline model (spec.md
// §5) is exactly what lets CronState live here unlocked.
type Engine struct {
	rules         []*config.Rule
	base64        *config.Base64DecodeConfig
	defaultBucket string
	gates         map[*config.Rule]*crongate.Gate
	logger        *zap.Logger
}

// NewEngine builds an Engine for rules, creating one cron Gate per rule
// that carries a schedule.
func NewEngine(rules []*config.Rule, base64cfg *config.Base64DecodeConfig, defaultBucket string, logger *zap.Logger) *Engine {
	gates := make(map[*config.Rule]*crongate.Gate)
	for _, r := range rules {
		if r.Schedule != nil {
			gates[r] = crongate.NewGate(r.Schedule)
		}
	}
	return &Engine{
		rules:         rules,
		base64:        base64cfg,
		defaultBucket: defaultBucket,
		gates:         gates,
		logger:        logger,
	}
}

// Dispatch processes one inbound (topic, payload) message against every
// configured rule (spec.md §4.6).
func (e *Engine) Dispatch(topic string, payloadRaw []byte, now time.Time) DispatchResult {
	segments := topicmatch.SplitTopic(topic)
	topicItems := make([]value.Value, len(segments))
	for i, s := range segments {
		topicItems[i] = value.Str(s)
	}

	payload, err := value.ParseJSON(payloadRaw)
	if err != nil {
		payload = value.Str(lossyUTF8(payloadRaw))
	}

	if e.base64 != nil {
		payload = e.applyBase64Decode(payload)
	}

	ctx := selector.Context{Topic: value.Array(topicItems), Payload: payload}

	var result DispatchResult
	for _, rule := range e.rules {
		if !rule.Topic.Match(segments) {
			continue
		}
		if rule.Schedule != nil {
			if !e.gates[rule].ShouldFire(now) {
				continue
			}
		}

		rec, ok := e.buildRecord(rule, ctx, now)
		if !ok {
			continue
		}
		result.Records = append(result.Records, rec)

		if rule.HTTPContent != nil {
			result.HTTPPayloads = append(result.HTTPPayloads, e.buildHTTPPayload(rule, ctx))
		}
	}
	return result
}

func (e *Engine) applyBase64Decode(payload value.Value) value.Value {
	sel, err := selector.Parse(e.base64.Source)
	if err != nil {
		e.logger.Warn("base64decode: invalid source selector", zap.Error(err))
		return payload
	}
	v, ok := selector.Eval(sel, selector.Context{Payload: payload})
	if !ok {
		return payload
	}
	s, ok := v.AsStr()
	if !ok {
		return payload
	}
	decoded, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		e.logger.Warn("base64decode: invalid base64 payload", zap.Error(err))
		return payload
	}

	decodedValue, err := value.ParseJSON(decoded)
	if err != nil {
		decodedValue = value.Str(lossyUTF8(decoded))
	}

	obj, ok := payload.AsObject()
	if !ok {
		e.logger.Warn("base64decode: payload is not an object, skipping injection")
		return payload
	}
	injected := cloneObject(obj)
	injected.Set(e.base64.Target, decodedValue)
	return value.Obj(injected)
}

func (e *Engine) buildRecord(rule *config.Rule, ctx selector.Context, now time.Time) (*Record, bool) {
	tags := NewOrderedTags()
	for _, kv := range rule.Tags {
		v, ok := selector.Eval(kv.Val, ctx)
		if !ok || v.IsNull() {
			continue
		}
		s, err := value.Coerce(v, value.TypeStr)
		if err != nil {
			continue
		}
		str, _ := s.AsStr()
		tags.Set(kv.Key, str)
	}

	fields := value.NewObject()
	typeHints := make(map[string]value.TypeTag)
	for _, kv := range rule.Fields {
		v, ok := resolveFieldSpec(kv.Val, ctx)
		if !ok {
			e.logger.Warn("rule emission abandoned: field did not resolve",
				zap.String("measurement", rule.Measurement),
				zap.String("field", kv.Key))
			return nil, false
		}
		fields.Set(kv.Key, v)
		if kv.Val.Kind == config.FieldTyped {
			typeHints[kv.Key] = kv.Val.Type
		}
	}

	bucket := rule.Bucket
	if bucket == "" {
		bucket = e.defaultBucket
	}

	return &Record{
		Bucket:      bucket,
		Measurement: rule.Measurement,
		Tags:        tags,
		Fields:      fields,
		TypeHints:   typeHints,
		TimestampNS: now.UnixNano(),
	}, true
}

func (e *Engine) buildHTTPPayload(rule *config.Rule, ctx selector.Context) *HTTPPayload {
	body := value.NewObject()
	for _, kv := range rule.HTTPContent {
		v, ok := selector.Eval(kv.Val, ctx)
		if !ok || v.IsNull() {
			continue
		}
		body.Set(kv.Key, v)
	}
	return &HTTPPayload{Rule: rule, Body: body}
}

// resolveFieldSpec resolves a single field per its FieldSpec kind. The
// bool return is false whenever the field cannot be resolved at all
// (missing selector, non-numeric expression operand, failed coercion) —
// the caller abandons the whole rule's emission in that case.
func resolveFieldSpec(spec config.FieldSpec, ctx selector.Context) (value.Value, bool) {
	switch spec.Kind {
	case config.FieldPlain:
		v, ok := selector.Eval(spec.Selector, ctx)
		if !ok || v.IsNull() {
			return value.Null(), false
		}
		if v.Kind() == value.KindArray || v.Kind() == value.KindObject {
			return value.Null(), false
		}
		return v, true
	case config.FieldTyped:
		v, ok := selector.Eval(spec.Selector, ctx)
		if !ok || v.IsNull() {
			return value.Null(), false
		}
		coerced, err := value.Coerce(v, spec.Type)
		if err != nil {
			return value.Null(), false
		}
		return coerced, true
	case config.FieldExpr:
		f, err := expr.Eval(spec.Expr, ctx)
		if err != nil {
			return value.Null(), false
		}
		return value.Float(f), true
	default:
		return value.Null(), false
	}
}

func lossyUTF8(b []byte) string {
	return strings.ToValidUTF8(string(b), "�")
}

func cloneObject(o *value.Object) *value.Object {
	clone := value.NewObject()
	for _, k := range o.Keys() {
		v, _ := o.Get(k)
		clone.Set(k, v)
	}
	return clone
}
