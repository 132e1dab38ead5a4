package envgen

import (
	"os"
	"path/filepath"
	"testing"
)

func TestAllocatePortsDistinctAndInRange(t *testing.T) {
	used := map[int]bool{55000: true, 55001: true}
	ports, err := AllocatePorts(used, 3)
	if err != nil {
		t.Fatalf("AllocatePorts: %v", err)
	}
	if len(ports) != 3 {
		t.Fatalf("expected 3 ports, got %v", ports)
	}
	seen := map[int]bool{}
	for _, p := range ports {
		if p < PortRangeLow || p >= PortRangeHigh {
			t.Errorf("port %d out of range", p)
		}
		if used[p] {
			t.Errorf("port %d was already in use", p)
		}
		if seen[p] {
			t.Errorf("duplicate port %d", p)
		}
		seen[p] = true
	}
}

func TestScanUsedPortsAcrossWorktrees(t *testing.T) {
	dir := t.TempDir()
	wt1 := filepath.Join(dir, "feature-a")
	wt2 := filepath.Join(dir, "feature-b")
	if err := os.MkdirAll(wt1, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(wt2, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(wt1, "env.dockertree"), []byte("DOCKERTREE_DB_HOST_PORT=55010\nOTHER=x\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(wt2, "env.dockertree"), []byte("DOCKERTREE_WEB_HOST_PORT=55011\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	used, err := ScanUsedPorts(dir, "env.dockertree")
	if err != nil {
		t.Fatalf("ScanUsedPorts: %v", err)
	}
	if !used[55010] || !used[55011] {
		t.Errorf("expected both ports used, got %v", used)
	}
}

func TestScanUsedPortsAcrossNestedWorktrees(t *testing.T) {
	dir := t.TempDir()
	wt := filepath.Join(dir, "feature", "auth", ".dockertree")
	if err := os.MkdirAll(wt, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(wt, "env.dockertree"), []byte("DOCKERTREE_DB_HOST_PORT=55020\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	used, err := ScanUsedPorts(dir, filepath.Join(".dockertree", "env.dockertree"))
	if err != nil {
		t.Fatalf("ScanUsedPorts: %v", err)
	}
	if !used[55020] {
		t.Errorf("expected port from nested branch checkout to be scanned, got %v", used)
	}
}

func TestGenerateDomainOverride(t *testing.T) {
	lines := Generate(Options{
		StackName: "myapp-feature",
		Domain:    "feature.example.com",
		HostPorts: map[string]int{"DOCKERTREE_WEB_HOST_PORT": 55123},
	})

	byKey := map[string]string{}
	for _, l := range lines {
		byKey[l.Key] = l.Value
	}

	if byKey["SITE_DOMAIN"] != "https://feature.example.com" {
		t.Errorf("SITE_DOMAIN = %q", byKey["SITE_DOMAIN"])
	}
	if byKey["DOCKERTREE_WEB_HOST_PORT"] != "55123" {
		t.Errorf("DOCKERTREE_WEB_HOST_PORT = %q", byKey["DOCKERTREE_WEB_HOST_PORT"])
	}
	if byKey["COMPOSE_PROJECT_NAME"] != "myapp-feature" {
		t.Errorf("COMPOSE_PROJECT_NAME = %q", byKey["COMPOSE_PROJECT_NAME"])
	}
}
