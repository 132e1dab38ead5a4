package runtimeadapter

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/griffithind/dockertree/internal/dterrors"
)

// ProxyAdminPost PUTs a JSON configuration payload to the proxy's live-config
// admin endpoint, per spec §4.2's proxy_admin_post. No example repo wraps a
// Caddy-shaped admin API, so this is a thin net/http client — see
// DESIGN.md for the stdlib justification.
func (a *Adapter) ProxyAdminPost(ctx context.Context, adminURL string, jsonConfig []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, adminURL, bytes.NewReader(jsonConfig))
	if err != nil {
		return dterrors.Wrap(err, dterrors.CategoryProxy, dterrors.CodeConnectivityFailed,
			"failed to build proxy admin request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return dterrors.Wrap(err, dterrors.CategoryProxy, dterrors.CodeConnectivityFailed,
			"failed to reach proxy admin API at "+adminURL).
			WithHint("is the proxy container running? try `dockertree start-proxy`")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return dterrors.Newf(dterrors.CategoryProxy, dterrors.CodeConnectivityFailed,
			"proxy admin API returned %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
