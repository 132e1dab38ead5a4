package push

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/griffithind/dockertree/internal/dtconfig"
)

func TestResolveTokenPriority(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	if err := os.WriteFile(envFile, []byte("DIGITALOCEAN_API_TOKEN=from-dotenv\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := &dtconfig.Config{DNS: dtconfig.DNSConfig{APIToken: "from-global"}}

	if got := ResolveToken("cli-token", []string{"DIGITALOCEAN_API_TOKEN"}, dir, cfg, ""); got != "cli-token" {
		t.Errorf("CLI flag should win, got %q", got)
	}

	t.Setenv("DIGITALOCEAN_API_TOKEN", "from-env")
	if got := ResolveToken("", []string{"DIGITALOCEAN_API_TOKEN"}, dir, cfg, ""); got != "from-env" {
		t.Errorf("env var should win over .env/global, got %q", got)
	}

	os.Unsetenv("DIGITALOCEAN_API_TOKEN")
	if got := ResolveToken("", []string{"DIGITALOCEAN_API_TOKEN"}, dir, cfg, ""); got != "from-dotenv" {
		t.Errorf(".env should win over config.yml's dns.api_token, got %q", got)
	}

	if got := ResolveToken("", []string{"DIGITALOCEAN_API_TOKEN"}, "", cfg, ""); got != "from-global" {
		t.Errorf("config.yml's dns.api_token should be used when no earlier source is set, got %q", got)
	}
}
