// Package http forwards a rule's httpcontent payload as a JSON body to a
// single configured URL (spec.md §4.8 step 2, §7 HTTP forward). It is
// adapted from the teacher's HTTP peer (pkg/pipeline/peer/http), trimmed
// from that peer's multi-endpoint, multi-auth-scheme webhook matrix
// (API key / OAuth2 / GCP / AWS IAM / Cloudflare) down to the single
// POST/PUT/PATCH-with-optional-basic-auth surface spec.md actually
// defines; the retry/backoff plumbing is carried over unchanged via the
// shared pkg/httputil.Request helper.
package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/edgeflare/iotbridge/pkg/config"
	"github.com/edgeflare/iotbridge/pkg/httputil"
	"github.com/edgeflare/iotbridge/pkg/ruleengine"
	"github.com/edgeflare/iotbridge/pkg/value"
	"go.uber.org/zap"
)

// Forwarder sends one HTTPPayload at a time to the configured endpoint.
// Non-2xx responses and transport errors are logged and dropped; there
// is no batching or queueing, per spec.md §4.8.
type Forwarder struct {
	cfg    *config.HTTPConfig
	logger *zap.Logger
}

// NewForwarder builds a Forwarder from the loaded HTTP config section.
func NewForwarder(cfg *config.HTTPConfig, logger *zap.Logger) *Forwarder {
	return &Forwarder{cfg: cfg, logger: logger}
}

var methods = map[string]string{
	"post":  http.MethodPost,
	"put":   http.MethodPut,
	"patch": http.MethodPatch,
}

// Send POSTs (or PUTs/PATCHes) payload's body as JSON.
func (f *Forwarder) Send(ctx context.Context, payload *ruleengine.HTTPPayload) error {
	method, ok := methods[f.cfg.Method]
	if !ok {
		method = http.MethodPost
	}

	body := []byte(value.EncodeJSON(value.Obj(payload.Body)))

	reqConfig := httputil.DefaultRequestConfig(method, f.cfg.URL)
	if f.cfg.BasicAuthUser != "" {
		reqConfig.Headers = map[string][]string{
			"Authorization": {"Basic " + httputil.BasicAuthHeader(f.cfg.BasicAuthUser, f.cfg.BasicAuthPass)},
		}
	}

	resp, err := httputil.Request(ctx, reqConfig, body)
	if err != nil {
		f.logger.Warn("http forward failed, dropped",
			zap.String("url", f.cfg.URL), zap.Error(err))
		return err
	}
	if resp.StatusCode >= 400 {
		f.logger.Warn("http forward returned error status, dropped",
			zap.String("url", f.cfg.URL), zap.Int("status", resp.StatusCode))
		return fmt.Errorf("http: forward returned status %d", resp.StatusCode)
	}
	return nil
}
