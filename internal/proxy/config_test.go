package proxy

import "testing"

func TestIsDomainHost(t *testing.T) {
	cases := map[string]bool{
		"app.example.com":      true,
		"myapp-feature.localhost": false,
		"localhost":            false,
		"203.0.113.10":         false,
		"myapp":                false,
	}
	for host, want := range cases {
		if got := IsDomainHost(host); got != want {
			t.Errorf("IsDomainHost(%q) = %v, want %v", host, got, want)
		}
	}
}

func TestBuildConfigRoutesAndTLSPolicy(t *testing.T) {
	sources := []RouteSource{
		{Host: "myapp-feature.localhost", Upstream: "myapp-feature-web:3000"},
		{Host: "app.example.com", Upstream: "myapp-feature-web:3000", HealthCheck: "/healthz"},
	}
	cfg := BuildConfig(sources, nil)

	server, ok := cfg.Apps.HTTP.Servers["dockertree"]
	if !ok {
		t.Fatal("expected a \"dockertree\" server")
	}
	if len(server.Routes) != 2 {
		t.Fatalf("expected 2 routes, got %d", len(server.Routes))
	}

	if cfg.Apps.TLS == nil || len(cfg.Apps.TLS.Automation.Policies) != 1 {
		t.Fatalf("expected exactly one TLS policy for the domain host, got %+v", cfg.Apps.TLS)
	}
	policy := cfg.Apps.TLS.Automation.Policies[0]
	if len(policy.Subjects) != 1 || policy.Subjects[0] != "app.example.com" {
		t.Errorf("TLS policy subjects = %v, want [app.example.com]", policy.Subjects)
	}
	if len(policy.Issuers) != 0 {
		t.Errorf("expected no explicit issuer for a non-rate-limited domain, got %v", policy.Issuers)
	}
}

func TestBuildConfigStagingIssuerForRateLimitedHost(t *testing.T) {
	sources := []RouteSource{
		{Host: "app.example.com", Upstream: "myapp-feature-web:3000"},
	}
	cfg := BuildConfig(sources, map[string]bool{"app.example.com": true})

	if cfg.Apps.TLS == nil || len(cfg.Apps.TLS.Automation.Policies) != 1 {
		t.Fatalf("expected one staging TLS policy, got %+v", cfg.Apps.TLS)
	}
	policy := cfg.Apps.TLS.Automation.Policies[0]
	if len(policy.Issuers) != 1 || policy.Issuers[0].CA != LetsEncryptStaging {
		t.Errorf("expected staging CA issuer, got %+v", policy.Issuers)
	}
}

func TestIsRateLimited(t *testing.T) {
	if !isRateLimited(errString("too many certificates already issued: rate limit exceeded")) {
		t.Error("expected rate-limit detection to match")
	}
	if isRateLimited(errString("connection refused")) {
		t.Error("expected rate-limit detection not to match an unrelated error")
	}
}

type errString string

func (e errString) Error() string { return string(e) }
