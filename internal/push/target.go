// Package push implements the Push Pipeline (spec §4.10, C11): resolving a
// deployment target, optionally provisioning a droplet and a DNS record,
// optionally preparing the remote host, exporting and transferring a
// package, and driving its remote import.
package push

import (
	"context"
	"net"
	"strings"

	"github.com/griffithind/dockertree/internal/dterrors"
)

// Target is a canonical SCP-style deployment target: `User@Host:Path`.
type Target struct {
	User string
	Host string // resolved IP or hostname
	Path string
}

// String renders the canonical `user@host:path` form.
func (t Target) String() string {
	return t.User + "@" + t.Host + ":" + t.Path
}

// DropletLookup resolves a droplet id or name to its public IP.
type DropletLookup func(ctx context.Context, idOrName string) (string, error)

// HostResolver resolves a hostname to an IP address, overridable in tests.
type HostResolver func(ctx context.Context, host string) (string, error)

// DefaultHostResolver resolves host via the system resolver, returning the
// first IPv4 address found (falling back to the first address of any
// family).
func DefaultHostResolver(ctx context.Context, host string) (string, error) {
	ips, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return "", dterrors.Wrapf(err, dterrors.CategoryNetwork, dterrors.CodeConnectivityFailed,
			"failed to resolve host %q", host)
	}
	if len(ips) == 0 {
		return "", dterrors.Newf(dterrors.CategoryNetwork, dterrors.CodeConnectivityFailed,
			"no addresses found for host %q", host)
	}
	for _, ip := range ips {
		if v4 := ip.IP.To4(); v4 != nil {
			return v4.String(), nil
		}
	}
	return ips[0].IP.String(), nil
}

// ResolveTarget applies spec §4.10 step 1's progressive SCP target
// resolution: literal IP first, then DNS lookup, then droplet lookup.
func ResolveTarget(ctx context.Context, raw string, resolveHost HostResolver, lookupDroplet DropletLookup) (Target, error) {
	if raw == "" {
		return Target{}, dterrors.New(dterrors.CategoryValidation, "PUSH_TARGET_REQUIRED", "a deployment target is required")
	}

	user, hostPart, path := splitTarget(raw)

	if ip := net.ParseIP(hostPart); ip != nil {
		return Target{User: user, Host: hostPart, Path: path}, nil
	}

	if resolveHost != nil {
		if resolved, err := resolveHost(ctx, hostPart); err == nil {
			return Target{User: user, Host: resolved, Path: path}, nil
		}
	}

	if lookupDroplet != nil {
		if ip, err := lookupDroplet(ctx, hostPart); err == nil {
			return Target{User: "root", Host: ip, Path: "/root"}, nil
		}
	}

	return Target{}, dterrors.Newf(dterrors.CategoryNetwork, dterrors.CodeConnectivityFailed,
		"could not resolve push target %q to an IP, hostname, or droplet", raw)
}

// splitTarget pulls apart a raw target string into its user, host, and
// path components, filling in defaults per spec §4.10's resolution table:
// `user@host:/path`, `user@host` (-> /root), `host:/path` (-> root),
// `host` (-> root, /root).
func splitTarget(raw string) (user, host, path string) {
	user = "root"
	path = "/root"

	rest := raw
	if at := strings.Index(rest, "@"); at >= 0 {
		user = rest[:at]
		rest = rest[at+1:]
	}
	if colon := strings.Index(rest, ":"); colon >= 0 {
		host = rest[:colon]
		path = rest[colon+1:]
	} else {
		host = rest
	}
	return user, host, path
}
