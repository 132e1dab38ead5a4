// Package envgen implements the Environment Generator (spec §4.6, C6):
// producing and updating each worktree's env.dockertree file, including
// unique host-port allocation across every existing worktree.
package envgen

import (
	"bufio"
	"fmt"
	"io/fs"
	"math/rand"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/griffithind/dockertree/internal/dterrors"
)

// PortRangeLow and PortRangeHigh bound the host-port allocation range of
// spec §4.6: [55000, 59000).
const (
	PortRangeLow  = 55000
	PortRangeHigh = 59000
)

// HostPortVars is the ordered set of host-port env vars every worktree
// allocates, keyed to the transform package's DefaultHostPortServices
// tokens (db, cache→redis, web).
var HostPortVars = []string{
	"DOCKERTREE_DB_HOST_PORT",
	"DOCKERTREE_REDIS_HOST_PORT",
	"DOCKERTREE_WEB_HOST_PORT",
}

var hostPortLineRE = regexp.MustCompile(`^(DOCKERTREE_[A-Z]+_HOST_PORT)=(\d+)\s*$`)

// ScanUsedPorts reads every env.dockertree file found anywhere under
// worktreesDir whose path ends in envFileName (e.g.
// ".dockertree/env.dockertree") and collects every host port already
// allocated, so new allocations never collide. Branch names may contain
// "/" (spec §3), so worktree checkouts can be nested several directories
// deep (worktrees/feature/auth/.dockertree/env.dockertree); the scan walks
// the full tree rather than assuming one path segment per branch.
func ScanUsedPorts(worktreesDir, envFileName string) (map[int]bool, error) {
	used := make(map[int]bool)

	err := filepath.WalkDir(worktreesDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !strings.HasSuffix(path, envFileName) {
			return nil
		}
		ports, perr := parseHostPorts(path)
		if perr != nil {
			return nil
		}
		for _, p := range ports {
			used[p] = true
		}
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return used, nil
		}
		return nil, dterrors.Wrapf(err, dterrors.CategoryConfig, "ENV_SCAN", "failed to walk %s", worktreesDir)
	}
	return used, nil
}

// ReadLines parses an env.dockertree-shaped file into a KEY -> VALUE map,
// for callers (e.g. the package importer) that need to read back existing
// values before regenerating the file with an override applied.
func ReadLines(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, dterrors.Wrapf(err, dterrors.CategoryConfig, "ENV_READ", "failed to read %s", path)
	}
	defer f.Close()

	lines := make(map[string]string)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		idx := strings.Index(line, "=")
		if idx <= 0 {
			continue
		}
		lines[line[:idx]] = line[idx+1:]
	}
	return lines, scanner.Err()
}

// AtoiOrZero parses s as a decimal integer, returning 0 for anything that
// does not parse (a malformed or missing env value should not abort a
// regeneration, since the caller is about to overwrite it anyway).
func AtoiOrZero(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func parseHostPorts(path string) ([]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var ports []int
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		m := hostPortLineRE.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		if p, err := strconv.Atoi(m[2]); err == nil {
			ports = append(ports, p)
		}
	}
	return ports, scanner.Err()
}

// AllocatePorts picks n distinct ports in [PortRangeLow, PortRangeHigh) not
// present in used. Allocation is randomized within the range (rather than
// sequential) to avoid every newly created worktree racing for the same low
// end of the range when several `create`s run concurrently.
func AllocatePorts(used map[int]bool, n int) ([]int, error) {
	rangeSize := PortRangeHigh - PortRangeLow
	if n > rangeSize {
		return nil, dterrors.Newf(dterrors.CategoryPrecond, "PORT_RANGE_EXHAUSTED",
			"cannot allocate %d ports from a range of %d", n, rangeSize)
	}

	order := rand.Perm(rangeSize)
	var out []int
	for _, offset := range order {
		port := PortRangeLow + offset
		if used[port] {
			continue
		}
		out = append(out, port)
		if len(out) == n {
			sort.Ints(out)
			return out, nil
		}
	}
	return nil, dterrors.New(dterrors.CategoryPrecond, "PORT_RANGE_EXHAUSTED",
		"no free host ports remain in [55000, 59000)")
}

// Options parameterizes env.dockertree generation, per spec §4.6.
type Options struct {
	StackName   string
	Domain      string // override: served over https://<domain>
	IP          string // override: served over http://<ip>
	CentralPrivateIP string // VPC worker mode: DB_HOST/REDIS_HOST point here
	HostPorts   map[string]int // var name -> allocated port
}

// Generate produces the ordered key/value lines of env.dockertree, per spec
// §4.6. Order is deterministic so re-generation (e.g. after `push --domain`)
// produces a readable diff.
func Generate(opts Options) []EnvLine {
	var lines []EnvLine

	lines = append(lines, EnvLine{"COMPOSE_PROJECT_NAME", opts.StackName})

	siteDomain := fmt.Sprintf("http://%s.localhost", opts.StackName)
	allowedHosts := []string{"localhost", "127.0.0.1", opts.StackName + ".localhost", "*.localhost"}
	viteHosts := []string{opts.StackName + ".localhost", "*.localhost", "localhost", "127.0.0.1"}

	switch {
	case opts.Domain != "":
		siteDomain = "https://" + opts.Domain
		allowedHosts = append(allowedHosts, opts.Domain)
		viteHosts = append([]string{opts.Domain}, viteHosts...)
	case opts.IP != "":
		siteDomain = "http://" + opts.IP
		allowedHosts = append(allowedHosts, opts.IP)
		viteHosts = append([]string{opts.IP}, viteHosts...)
	}

	lines = append(lines,
		EnvLine{"SITE_DOMAIN", siteDomain},
		EnvLine{"ALLOWED_HOSTS", strings.Join(allowedHosts, ",")},
		EnvLine{"USE_X_FORWARDED_HOST", "True"},
		EnvLine{"VITE_ALLOWED_HOSTS", strings.Join(viteHosts, ",")},
	)

	portVarNames := make([]string, 0, len(opts.HostPorts))
	for name := range opts.HostPorts {
		portVarNames = append(portVarNames, name)
	}
	sort.Strings(portVarNames)
	for _, name := range portVarNames {
		lines = append(lines, EnvLine{name, strconv.Itoa(opts.HostPorts[name])})
	}

	if opts.CentralPrivateIP != "" {
		lines = append(lines,
			EnvLine{"DB_HOST", opts.CentralPrivateIP},
			EnvLine{"REDIS_HOST", opts.CentralPrivateIP},
		)
	}

	return lines
}

// EnvLine is one KEY=VALUE line of env.dockertree.
type EnvLine struct {
	Key   string
	Value string
}

// Render formats lines as a dotenv-style file body.
func Render(lines []EnvLine) []byte {
	var sb strings.Builder
	for _, l := range lines {
		sb.WriteString(l.Key)
		sb.WriteString("=")
		sb.WriteString(l.Value)
		sb.WriteString("\n")
	}
	return []byte(sb.String())
}

// Write renders lines and writes them to path.
func Write(path string, lines []EnvLine) error {
	if err := os.WriteFile(path, Render(lines), 0o644); err != nil {
		return dterrors.Wrapf(err, dterrors.CategoryConfig, "ENV_WRITE", "failed to write %s", path)
	}
	return nil
}
