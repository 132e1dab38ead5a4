package dtconfig

import (
	"path/filepath"
	"testing"
)

func TestLoadAndSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")

	cfg := &Config{
		ProjectName:  "myapp",
		Volumes:      []string{"db_data", "media"},
		CaddyNetwork: "",
	}
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.ProjectName != "myapp" {
		t.Errorf("ProjectName = %q, want myapp", loaded.ProjectName)
	}
	if loaded.CaddyNetworkOrDefault() != DefaultCaddyNetwork {
		t.Errorf("CaddyNetworkOrDefault = %q, want default", loaded.CaddyNetworkOrDefault())
	}
	if len(loaded.Volumes) != 2 {
		t.Errorf("Volumes = %v, want 2 entries", loaded.Volumes)
	}
}

func TestValidateBranchName(t *testing.T) {
	protected := DefaultProtectedBranches

	cases := []struct {
		name    string
		wantErr bool
	}{
		{"feature-auth", false},
		{"feature/auth_v2", false},
		{"main", true},
		{"Feature-Auth", true}, // uppercase not allowed
		{"", true},
		{"a..b!", true},
	}

	for _, tc := range cases {
		err := ValidateBranchName(tc.name, protected)
		if (err != nil) != tc.wantErr {
			t.Errorf("ValidateBranchName(%q) error = %v, wantErr %v", tc.name, err, tc.wantErr)
		}
	}
}

func TestNewIdentityDerivesStackName(t *testing.T) {
	cfg := &Config{ProjectName: "myapp"}
	id, err := NewIdentity(cfg, "feature-auth")
	if err != nil {
		t.Fatalf("NewIdentity: %v", err)
	}
	if id.StackName != "myapp-feature-auth" {
		t.Errorf("StackName = %q, want myapp-feature-auth", id.StackName)
	}
}

func TestNewIdentityRejectsProtectedBranch(t *testing.T) {
	cfg := &Config{ProjectName: "myapp"}
	if _, err := NewIdentity(cfg, "main"); err == nil {
		t.Error("expected error for protected branch")
	}
}
