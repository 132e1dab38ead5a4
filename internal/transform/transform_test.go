package transform

import (
	"strings"
	"testing"

	"github.com/compose-spec/compose-go/v2/types"
)

func TestMatchesWebClass(t *testing.T) {
	cases := map[string]bool{
		"web":      true,
		"frontend": true,
		"backend":  false,
		"api":      true,
		"db":       false,
	}
	for name, want := range cases {
		if got := matchesWebClass(name, DefaultWebClassTokens); got != want {
			t.Errorf("matchesWebClass(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestTransformRefusesEmptyServices(t *testing.T) {
	project := &types.Project{Services: types.Services{}}
	_, err := Transform(project, nil, Options{})
	if err == nil {
		t.Fatal("expected error for empty services")
	}
	if !strings.Contains(err.Error(), "services") {
		t.Errorf("error = %v, want mention of services", err)
	}
}

func TestTransformAppliesRules(t *testing.T) {
	project := &types.Project{
		Services: types.Services{
			"web": types.ServiceConfig{
				Name:          "web",
				ContainerName: "myapp-web",
				Ports: []types.ServicePortConfig{
					{Target: 3000, Published: "3000"},
				},
				Volumes: []types.ServiceVolumeConfig{
					{Type: "volume", Source: "app_code", Target: "/app"},
				},
			},
			"db": types.ServiceConfig{
				Name: "db",
				Ports: []types.ServicePortConfig{
					{Target: 5432, Published: "5432"},
				},
				Volumes: []types.ServiceVolumeConfig{
					{Type: "volume", Source: "db_data", Target: "/var/lib/postgresql/data"},
				},
			},
			"worker": types.ServiceConfig{
				Name:  "worker",
				Build: &types.BuildConfig{Context: "."},
			},
		},
	}

	result, err := Transform(project, []string{"app_code", "db_data"}, Options{})
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}

	out := string(result.YAML)
	if !strings.Contains(out, "container_name: ${COMPOSE_PROJECT_NAME}-web") {
		t.Error("expected identity rewrite for web's container_name")
	}
	if !strings.Contains(out, "DOCKERTREE_WEB_HOST_PORT") {
		t.Error("expected host-port env var for well-known service web")
	}
	if !strings.Contains(out, "caddy.proxy") {
		t.Error("expected proxy labels on web-class service")
	}
	if !strings.Contains(out, "${COMPOSE_PROJECT_NAME}_app_code") {
		t.Error("expected volume rewrite for app_code")
	}
	if !strings.Contains(out, "dockertree_caddy_proxy") {
		t.Error("expected proxy network attachment")
	}
	if !strings.Contains(out, "${BUILD_MODE:-dev}") {
		t.Error("expected build-mode switch for worker's build target")
	}
	if len(result.Warnings) != 0 {
		t.Errorf("expected no warnings when all volumes declared, got %v", result.Warnings)
	}
}

func TestTransformWarnsOnUndeclaredVolume(t *testing.T) {
	project := &types.Project{
		Services: types.Services{
			"db": types.ServiceConfig{
				Name: "db",
				Volumes: []types.ServiceVolumeConfig{
					{Type: "volume", Source: "db_data", Target: "/var/lib/postgresql/data"},
				},
			},
		},
	}

	result, err := Transform(project, nil, Options{})
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if len(result.Warnings) != 1 {
		t.Fatalf("expected 1 warning, got %v", result.Warnings)
	}
}
