package push

import (
	"os"
	"path/filepath"

	"github.com/griffithind/dockertree/internal/dtconfig"
	"github.com/griffithind/dockertree/internal/envgen"
)

// ResolveToken applies spec §4.10's token resolution priority: CLI flag,
// then shell env vars (in order, e.g. DIGITALOCEAN_API_TOKEN falling back
// to DNS_API_TOKEN), then the project's `.env` file, then config.yml's
// `dns.api_token`, then globalFallback (the value the caller read from the
// global config file).
func ResolveToken(cliToken string, envNames []string, projectRoot string, cfg *dtconfig.Config, globalFallback string) string {
	if cliToken != "" {
		return cliToken
	}
	for _, name := range envNames {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	if projectRoot != "" {
		if lines, err := envgen.ReadLines(filepath.Join(projectRoot, ".env")); err == nil {
			for _, name := range envNames {
				if v, ok := lines[name]; ok && v != "" {
					return v
				}
			}
		}
	}
	if cfg != nil && cfg.DNS.APIToken != "" {
		return cfg.DNS.APIToken
	}
	return globalFallback
}
