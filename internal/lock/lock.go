// Package lock implements per-branch serialization (spec §5): an
// in-process mutex map for goroutines within one process, plus a
// filesystem advisory lock so two separate `dockertree` invocations
// against the same branch serialize too.
package lock

import (
	"os"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/griffithind/dockertree/internal/dterrors"
)

// Manager serializes operations per branch name, within and across
// processes. The zero value is not usable; use New.
type Manager struct {
	dir string // directory holding one .lock file per branch

	mu      sync.Mutex
	inProc  map[string]*sync.Mutex
}

// New builds a Manager whose file locks live under dir (typically the
// project's .dockertree/locks/ directory).
func New(dir string) *Manager {
	return &Manager{dir: dir, inProc: make(map[string]*sync.Mutex)}
}

// Unlock releases both the in-process and filesystem locks acquired by a
// matching Lock call.
type Unlock func()

// Lock acquires the serialization lock for branch, blocking until it is
// available. The in-process mutex is acquired first (cheap; it blocks other
// goroutines of the same process), then the filesystem advisory lock (syscall.Flock)
// on a dedicated lock file per branch.
func (m *Manager) Lock(branch string) (Unlock, error) {
	procMu := m.inProcMutex(branch)
	procMu.Lock()

	// branch may be a multi-segment path (e.g. "feature/auth"), so the lock
	// file's own parent directory needs creating too, not just m.dir.
	lockPath := filepath.Join(m.dir, branch+".lock")
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		procMu.Unlock()
		return nil, dterrors.Wrapf(err, dterrors.CategoryRuntime, "LOCK_DIR", "failed to create lock directory for branch %q", branch)
	}

	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		procMu.Unlock()
		return nil, dterrors.Wrapf(err, dterrors.CategoryRuntime, "LOCK_OPEN", "failed to open lock file for branch %q", branch)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		_ = f.Close()
		procMu.Unlock()
		return nil, dterrors.Wrapf(err, dterrors.CategoryRuntime, "LOCK_ACQUIRE", "failed to acquire lock for branch %q", branch)
	}

	return func() {
		_ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
		_ = f.Close()
		procMu.Unlock()
	}, nil
}

func (m *Manager) inProcMutex(branch string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	mu, ok := m.inProc[branch]
	if !ok {
		mu = &sync.Mutex{}
		m.inProc[branch] = mu
	}
	return mu
}
