package push

import (
	"context"
	"testing"
)

func TestResolveTargetLiteralIP(t *testing.T) {
	target, err := ResolveTarget(context.Background(), "203.0.113.10", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if target.User != "root" || target.Host != "203.0.113.10" || target.Path != "/root" {
		t.Errorf("got %+v", target)
	}
}

func TestResolveTargetLiteralIPWithPath(t *testing.T) {
	target, err := ResolveTarget(context.Background(), "203.0.113.10:/srv/app", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if target.Host != "203.0.113.10" || target.Path != "/srv/app" {
		t.Errorf("got %+v", target)
	}
}

func TestResolveTargetUserAtHost(t *testing.T) {
	resolver := func(ctx context.Context, host string) (string, error) { return "198.51.100.1", nil }
	target, err := ResolveTarget(context.Background(), "deploy@example.com", resolver, nil)
	if err != nil {
		t.Fatal(err)
	}
	if target.User != "deploy" || target.Host != "198.51.100.1" || target.Path != "/root" {
		t.Errorf("got %+v", target)
	}
}

func TestResolveTargetFallsBackToDropletLookup(t *testing.T) {
	resolver := func(ctx context.Context, host string) (string, error) {
		return "", errNotResolvable
	}
	lookup := func(ctx context.Context, idOrName string) (string, error) {
		if idOrName == "my-droplet" {
			return "10.0.0.5", nil
		}
		return "", errNotResolvable
	}
	target, err := ResolveTarget(context.Background(), "my-droplet", resolver, lookup)
	if err != nil {
		t.Fatal(err)
	}
	if target.User != "root" || target.Host != "10.0.0.5" || target.Path != "/root" {
		t.Errorf("got %+v", target)
	}
}

func TestResolveTargetExhausted(t *testing.T) {
	resolver := func(ctx context.Context, host string) (string, error) { return "", errNotResolvable }
	_, err := ResolveTarget(context.Background(), "nope.invalid", resolver, nil)
	if err == nil {
		t.Error("expected an error when no resolution path succeeds")
	}
}

func TestTargetString(t *testing.T) {
	target := Target{User: "root", Host: "203.0.113.10", Path: "/root"}
	if got, want := target.String(), "root@203.0.113.10:/root"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

type errStub string

func (e errStub) Error() string { return string(e) }

var errNotResolvable = errStub("not resolvable")
