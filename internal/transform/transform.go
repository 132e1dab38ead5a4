// Package transform implements the Compose Transformer (spec §4.5, C5): it
// reads the project's existing declarative stack file and derives the
// sibling `.dockertree/docker-compose.worktree.yml` overlay applied on top
// of it at stack_up time. The override-document shape (a services map of
// per-service overrides, marshaled with gopkg.in/yaml.v3) generalizes the
// teacher's internal/compose/override.go, whose job was the same kind of
// "derive an overlay compose file from parsed input" transformation, just
// for devcontainer semantics instead of worktree identity/proxy/volume
// semantics.
package transform

import (
	"fmt"
	"sort"
	"strings"

	"github.com/compose-spec/compose-go/v2/types"
	"gopkg.in/yaml.v3"

	"github.com/griffithind/dockertree/internal/dterrors"
)

// DefaultWebClassTokens is the default "web-class" service-name match set
// used by rule 3 (proxy labels) and rule 5 (network attachment), per spec
// §4.5.
var DefaultWebClassTokens = []string{"web", "app", "frontend", "api"}

// DefaultHostPortServices is the well-known service-name set that keeps a
// published host port (via an env-var override) instead of being reduced to
// `expose` only, per spec §4.5 rule 2. The map value is the env-var token
// used both here and by the environment generator (spec §4.6) — "cache" is
// conventionally a redis-backed service, so its host-port variable reads
// DOCKERTREE_REDIS_HOST_PORT rather than DOCKERTREE_CACHE_HOST_PORT.
var DefaultHostPortServices = map[string]string{
	"db":    "DB",
	"cache": "REDIS",
	"web":   "WEB",
}

// Options parameterizes the transform, all defaulted from config.yml.
type Options struct {
	ProxyNetwork     string
	WebClassTokens   []string
	HostPortServices map[string]string
}

func (o Options) withDefaults() Options {
	if o.ProxyNetwork == "" {
		o.ProxyNetwork = "dockertree_caddy_proxy"
	}
	if len(o.WebClassTokens) == 0 {
		o.WebClassTokens = DefaultWebClassTokens
	}
	if len(o.HostPortServices) == 0 {
		o.HostPortServices = DefaultHostPortServices
	}
	return o
}

// Result is the transform's output: the overlay YAML document and any
// non-fatal warnings (e.g. a compose-declared volume absent from
// config.yml's declared volume list).
type Result struct {
	YAML     []byte
	Warnings []string
}

// overrideDoc mirrors docker compose's override-file shape: a services map
// plus project-level network/volume declarations, marshaled with sorted map
// keys so repeated transforms of unchanged input produce byte-identical
// output.
type overrideDoc struct {
	Services map[string]serviceOverride `yaml:"services"`
	Networks map[string]networkDecl     `yaml:"networks,omitempty"`
	Volumes  map[string]volumeDecl      `yaml:"volumes,omitempty"`
}

type serviceOverride struct {
	ContainerName string            `yaml:"container_name,omitempty"`
	Expose        []string          `yaml:"expose,omitempty"`
	Ports         []string          `yaml:"ports,omitempty"`
	Labels        map[string]string `yaml:"labels,omitempty"`
	Volumes       []string          `yaml:"volumes,omitempty"`
	Networks      []string          `yaml:"networks,omitempty"`
	Build         *buildOverride    `yaml:"build,omitempty"`
	Environment   map[string]string `yaml:"environment,omitempty"`
}

type buildOverride struct {
	Target string `yaml:"target,omitempty"`
}

type networkDecl struct {
	External bool `yaml:"external,omitempty"`
}

type volumeDecl struct {
	Name string `yaml:"name,omitempty"`
}

// Transform derives the worktree compose overlay from project for the given
// stack identity. declaredVolumes is config.yml's declared volume list, used
// to warn (not fail) about compose volumes it doesn't mention, per the
// Open Question #1 resolution recorded in SPEC_FULL.md.
func Transform(project *types.Project, declaredVolumes []string, opts Options) (*Result, error) {
	opts = opts.withDefaults()

	if len(project.Services) == 0 {
		return nil, dterrors.New(dterrors.CategoryTransform, dterrors.CodeComposeMissingServices,
			"compose file has no services: root")
	}

	doc := overrideDoc{
		Services: make(map[string]serviceOverride, len(project.Services)),
	}

	declared := make(map[string]bool, len(declaredVolumes))
	for _, v := range declaredVolumes {
		declared[v] = true
	}

	var warnings []string
	usedVolumes := make(map[string]bool)

	serviceNames := make([]string, 0, len(project.Services))
	for name := range project.Services {
		serviceNames = append(serviceNames, name)
	}
	sort.Strings(serviceNames)

	for _, name := range serviceNames {
		svc := project.Services[name]
		ov := serviceOverride{
			Labels: map[string]string{},
		}

		// Rule 1: identity rewrite.
		if svc.ContainerName != "" {
			ov.ContainerName = fmt.Sprintf("${COMPOSE_PROJECT_NAME}-%s", name)
		}

		isWebClass := matchesWebClass(name, opts.WebClassTokens)
		hostPortToken, isHostPortService := opts.HostPortServices[name]

		// Rule 2: port neutralization.
		for _, p := range svc.Ports {
			containerPort := fmt.Sprintf("%d", p.Target)
			ov.Expose = append(ov.Expose, containerPort)
			if isHostPortService {
				envVar := fmt.Sprintf("DOCKERTREE_%s_HOST_PORT", hostPortToken)
				ov.Ports = append(ov.Ports, fmt.Sprintf("${%s:-0}:%s", envVar, containerPort))
			}
		}

		// Rule 3: proxy labels.
		if isWebClass {
			containerPort := "80"
			if len(svc.Ports) > 0 {
				containerPort = fmt.Sprintf("%d", svc.Ports[0].Target)
			} else if len(svc.Expose) > 0 {
				containerPort = svc.Expose[0]
			}
			ov.Labels["caddy.proxy"] = "${COMPOSE_PROJECT_NAME}.localhost"
			ov.Labels["caddy.proxy.reverse_proxy"] = fmt.Sprintf("${COMPOSE_PROJECT_NAME}-%s:%s", name, containerPort)
			if svc.HealthCheck != nil && len(svc.HealthCheck.Test) > 0 {
				ov.Labels["caddy.proxy.health_check"] = "/"
			}
		}

		// Rule 4: volume rewrite.
		for _, v := range svc.Volumes {
			if v.Type != "volume" || v.Source == "" {
				continue
			}
			usedVolumes[v.Source] = true
			ov.Volumes = append(ov.Volumes, fmt.Sprintf("${COMPOSE_PROJECT_NAME}_%s:%s", v.Source, v.Target))
		}

		// Rule 5: network attachment.
		if isWebClass {
			ov.Networks = append(ov.Networks, opts.ProxyNetwork)
		}

		// Rule 6: build-mode switch.
		if svc.Build != nil {
			ov.Build = &buildOverride{Target: "${BUILD_MODE:-dev}"}
		}

		// Rule 7: preservation — we never touch svc.Environment,
		// svc.DependsOn, svc.Command, or svc.Volumes bind/bind-mount
		// entries; only named-volume entries are rewritten above.

		doc.Services[name] = ov
	}

	if isWebClassAny(serviceNames, opts.WebClassTokens) {
		doc.Networks = map[string]networkDecl{
			opts.ProxyNetwork: {External: true},
		}
	}

	if len(usedVolumes) > 0 {
		doc.Volumes = make(map[string]volumeDecl, len(usedVolumes))
		volNames := make([]string, 0, len(usedVolumes))
		for v := range usedVolumes {
			volNames = append(volNames, v)
		}
		sort.Strings(volNames)
		for _, v := range volNames {
			doc.Volumes[v] = volumeDecl{Name: fmt.Sprintf("${COMPOSE_PROJECT_NAME}_%s", v)}
			if !declared[v] {
				warnings = append(warnings, fmt.Sprintf(
					"compose volume %q is not listed in config.yml's volumes: — it will not be cloned on create", v))
			}
		}
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return nil, dterrors.Wrap(err, dterrors.CategoryTransform, "TRANSFORM_MARSHAL", "failed to marshal overlay")
	}

	header := "# Generated by dockertree. Do not edit by hand; re-run `dockertree create`\n" +
		"# to regenerate.\n"
	return &Result{YAML: append([]byte(header), data...), Warnings: warnings}, nil
}

func matchesWebClass(name string, tokens []string) bool {
	lower := strings.ToLower(name)
	for _, t := range tokens {
		if strings.Contains(lower, t) {
			return true
		}
	}
	return false
}

func isWebClassAny(names []string, tokens []string) bool {
	for _, n := range names {
		if matchesWebClass(n, tokens) {
			return true
		}
	}
	return false
}
