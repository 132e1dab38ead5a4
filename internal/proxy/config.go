// Package proxy implements the Proxy Coordinator (spec §4.8, C9): managing
// the global `dockertree_caddy_proxy` container and rendering its routing
// configuration from the container labels the compose transformer (C5)
// attaches to web-class services.
//
// The routing config shape follows Caddy's JSON admin-API config
// structure (apps.http.servers.*.routes, apps.tls.automation.policies).
// No example repo in the pack wraps a Caddy-shaped admin client (see
// DESIGN.md), so this package constructs the JSON document directly with
// encoding/json and pushes it via the runtime adapter's stdlib-backed
// ProxyAdminPost.
package proxy

import "strings"

// ContainerName is the well-known name of the global proxy container.
const ContainerName = "dockertree_caddy_proxy"

// ProxyLabelHost is the label a web-class service carries to register a
// route, per spec §4.5 rule 3: `caddy.proxy=<hostname>`.
const ProxyLabelHost = "caddy.proxy"

// ProxyLabelUpstream is the label carrying the reverse-proxy upstream,
// `<container>:<port>`.
const ProxyLabelUpstream = "caddy.proxy.reverse_proxy"

// ProxyLabelHealthCheck is the optional health-check path label.
const ProxyLabelHealthCheck = "caddy.proxy.health_check"

// LetsEncryptStaging is the ACME staging directory URL, used as the
// fallback issuer for hosts whose production-issuer requests have been
// rate-limited, per spec §4.8.
const LetsEncryptStaging = "https://acme-staging-v02.api.letsencrypt.org/directory"

// Config is the subset of Caddy's JSON config this coordinator manages.
type Config struct {
	Apps Apps `json:"apps"`
}

// Apps holds the http and (optional) tls app configs.
type Apps struct {
	HTTP HTTPApp `json:"http"`
	TLS  *TLSApp `json:"tls,omitempty"`
}

// HTTPApp holds one or more named servers.
type HTTPApp struct {
	Servers map[string]Server `json:"servers"`
}

// Server is one listener with its ordered routes.
type Server struct {
	Listen []string `json:"listen"`
	Routes []Route  `json:"routes"`
}

// Route matches a set of hosts and reverse-proxies to an upstream.
type Route struct {
	Match  []Match   `json:"match"`
	Handle []Handler `json:"handle"`
}

// Match selects requests by Host header.
type Match struct {
	Host []string `json:"host"`
}

// Handler is a reverse_proxy handler with its upstream set and an
// optional health-check path.
type Handler struct {
	Handler     string       `json:"handler"`
	Upstreams   []Upstream   `json:"upstreams,omitempty"`
	HealthCheck *HealthCheck `json:"health_checks,omitempty"`
}

// Upstream is a single reverse-proxy dial target.
type Upstream struct {
	Dial string `json:"dial"`
}

// HealthCheck configures an active health check against the upstream.
type HealthCheck struct {
	Active ActiveHealthCheck `json:"active"`
}

// ActiveHealthCheck polls uri on the upstream.
type ActiveHealthCheck struct {
	URI string `json:"uri"`
}

// TLSApp holds per-subject automation policies.
type TLSApp struct {
	Automation *Automation `json:"automation,omitempty"`
}

// Automation lists TLS policies by subject.
type Automation struct {
	Policies []Policy `json:"policies"`
}

// Policy configures the ACME issuer for a set of subjects.
type Policy struct {
	Subjects []string `json:"subjects"`
	Issuers  []Issuer `json:"issuers,omitempty"`
}

// Issuer configures one ACME issuer module.
type Issuer struct {
	Module string `json:"module"`
	CA     string `json:"ca,omitempty"`
}

// RouteSource describes one web-class service's reverse-proxy registration,
// derived from its `caddy.proxy*` labels.
type RouteSource struct {
	Host        string
	Upstream    string
	HealthCheck string
}

// IsDomainHost reports whether host is a real domain name eligible for
// automatic TLS, as opposed to a raw IP literal or a `.localhost` name
// (which no certificate authority will issue for, per how Caddy's
// on-demand/automatic TLS behaves against non-routable test domains in
// practice).
func IsDomainHost(host string) bool {
	if !strings.Contains(host, ".") {
		return false
	}
	if strings.HasSuffix(host, ".localhost") || host == "localhost" {
		return false
	}
	return !isIPLiteral(host)
}

func isIPLiteral(host string) bool {
	for _, r := range host {
		if r != '.' && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

// BuildConfig renders a full Caddy config from the discovered route
// sources, per spec §4.8's watcher/config-generator behavior. staging is
// the set of hostnames currently rate-limited onto the ACME staging
// issuer (spec §4.8's rate-limit fallback).
func BuildConfig(sources []RouteSource, staging map[string]bool) *Config {
	server := Server{Listen: []string{":80", ":443"}}
	var domainHosts []string
	var stagingHosts []string

	for _, src := range sources {
		handler := Handler{
			Handler:   "reverse_proxy",
			Upstreams: []Upstream{{Dial: src.Upstream}},
		}
		if src.HealthCheck != "" {
			handler.HealthCheck = &HealthCheck{Active: ActiveHealthCheck{URI: src.HealthCheck}}
		}
		server.Routes = append(server.Routes, Route{
			Match:  []Match{{Host: []string{src.Host}}},
			Handle: []Handler{handler},
		})

		if IsDomainHost(src.Host) {
			if staging[src.Host] {
				stagingHosts = append(stagingHosts, src.Host)
			} else {
				domainHosts = append(domainHosts, src.Host)
			}
		}
	}

	cfg := &Config{
		Apps: Apps{
			HTTP: HTTPApp{Servers: map[string]Server{"dockertree": server}},
		},
	}

	var policies []Policy
	if len(domainHosts) > 0 {
		policies = append(policies, Policy{Subjects: domainHosts})
	}
	if len(stagingHosts) > 0 {
		policies = append(policies, Policy{
			Subjects: stagingHosts,
			Issuers:  []Issuer{{Module: "acme", CA: LetsEncryptStaging}},
		})
	}
	if len(policies) > 0 {
		cfg.Apps.TLS = &TLSApp{Automation: &Automation{Policies: policies}}
	}
	return cfg
}
