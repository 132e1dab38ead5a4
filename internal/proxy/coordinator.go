package proxy

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/griffithind/dockertree/internal/dterrors"
	"github.com/griffithind/dockertree/internal/runtimeadapter"
)

// DefaultImage is the Caddy image the global proxy runs.
const DefaultImage = "caddy:2-alpine"

// DefaultAdminURL is the proxy's live-config admin endpoint, per Caddy's
// default admin listener.
const DefaultAdminURL = "http://localhost:2019/load"

// DefaultPortSpecs are the host ports the proxy container publishes: it is
// the only process mapping host ports, per spec §4.8.
var DefaultPortSpecs = []string{"80:80", "443:443", "2019:2019"}

// Coordinator manages the global proxy container and its routing
// configuration.
type Coordinator struct {
	rt          *runtimeadapter.Adapter
	network     string
	adminURL    string

	mu      sync.Mutex
	staging map[string]bool
}

// New creates a Coordinator bound to the external proxy network every
// web-class service attaches to (spec §4.5 rule 5).
func New(rt *runtimeadapter.Adapter, network string) *Coordinator {
	return &Coordinator{
		rt:       rt,
		network:  network,
		adminURL: DefaultAdminURL,
		staging:  make(map[string]bool),
	}
}

// Start brings up the global proxy container, per spec §4.8's "Global
// proxy container" element. Idempotent.
func (c *Coordinator) Start(ctx context.Context) error {
	if err := c.rt.EnsureNetwork(ctx, c.network); err != nil {
		return err
	}
	_, err := c.rt.EnsureDetachedContainer(ctx, runtimeadapter.DetachedContainerOptions{
		Name:        ContainerName,
		Image:       DefaultImage,
		PortSpecs:   DefaultPortSpecs,
		NetworkName: c.network,
		Labels:      map[string]string{"dockertree.component": "proxy"},
	})
	return err
}

// Stop tears down the global proxy container.
func (c *Coordinator) Stop(ctx context.Context) error {
	return c.rt.StopContainer(ctx, ContainerName)
}

// IsRunning reports whether the proxy container is currently up.
func (c *Coordinator) IsRunning(ctx context.Context) (bool, error) {
	return c.rt.ContainerIsRunning(ctx, ContainerName)
}

// Discover inspects containers on the local runtime and collects a
// RouteSource for every one carrying the `caddy.proxy` label, per spec
// §4.8's watcher behavior.
func (c *Coordinator) Discover(ctx context.Context) ([]RouteSource, error) {
	containers, err := c.rt.ListContainersByLabel(ctx, map[string]string{})
	if err != nil {
		return nil, err
	}

	var sources []RouteSource
	for _, ct := range containers {
		host, ok := ct.Labels[ProxyLabelHost]
		if !ok || host == "" {
			continue
		}
		upstream := ct.Labels[ProxyLabelUpstream]
		if upstream == "" {
			continue
		}
		sources = append(sources, RouteSource{
			Host:        host,
			Upstream:    upstream,
			HealthCheck: ct.Labels[ProxyLabelHealthCheck],
		})
	}
	return sources, nil
}

// Reconcile discovers the current label set, renders a routing config, and
// pushes it to the proxy's admin API. If the push fails with a rate-limit
// response, the affected domain hosts are switched to the staging issuer
// and the push is retried once, per spec §4.8's rate-limit fallback.
func (c *Coordinator) Reconcile(ctx context.Context) error {
	sources, err := c.Discover(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	staging := make(map[string]bool, len(c.staging))
	for h := range c.staging {
		staging[h] = true
	}
	c.mu.Unlock()

	cfg := BuildConfig(sources, staging)
	body, err := json.Marshal(cfg)
	if err != nil {
		return dterrors.Wrap(err, dterrors.CategoryProxy, dterrors.CodeExternalToolFailed,
			"failed to marshal proxy configuration")
	}

	err = c.rt.ProxyAdminPost(ctx, c.adminURL, body)
	if err == nil {
		return nil
	}
	if !isRateLimited(err) {
		return err
	}

	c.mu.Lock()
	for _, src := range sources {
		if IsDomainHost(src.Host) {
			c.staging[src.Host] = true
		}
	}
	staging = make(map[string]bool, len(c.staging))
	for h := range c.staging {
		staging[h] = true
	}
	c.mu.Unlock()

	retryCfg := BuildConfig(sources, staging)
	retryBody, merr := json.Marshal(retryCfg)
	if merr != nil {
		return dterrors.Wrap(merr, dterrors.CategoryProxy, dterrors.CodeExternalToolFailed,
			"failed to marshal proxy configuration")
	}
	return c.rt.ProxyAdminPost(ctx, c.adminURL, retryBody)
}

// isRateLimited reports whether err looks like a certificate-authority
// rate-limit response, per spec §4.8's "On rate-limit responses ...".
func isRateLimited(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "rate limit")
}
