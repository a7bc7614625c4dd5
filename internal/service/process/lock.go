package process

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mitchellh/go-ps"
)

// ErrAlreadyRunning is returned when another daemon holds the lock.
var ErrAlreadyRunning = errors.New("another alarm-clock daemon is already running")

// pidFilePermissions restricts the PID file to its owner.
const pidFilePermissions = 0o600

// Lock is a held PID file.
type Lock struct {
	path string
	pid  int
}

// finder looks a process up by id; ps.FindProcess returns nil for dead ones.
type finder func(pid int) (ps.Process, error)

// Acquire takes the PID file at path. A file left behind by a process that
// is gone, or that belongs to a different program, is taken over.
func Acquire(path string) (*Lock, error) {
	return acquire(path, os.Getpid(), executableName(), ps.FindProcess)
}

func acquire(path string, self int, name string, find finder) (*Lock, error) {
	if owner, ok := readPID(path); ok && owner != self {
		p, err := find(owner)
		if err != nil {
			return nil, fmt.Errorf("inspect process %d: %w", owner, err)
		}

		if p != nil && sameExecutable(p.Executable(), name) {
			return nil, fmt.Errorf("%w (pid %d, lock %s)", ErrAlreadyRunning, owner, path)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(strconv.Itoa(self)+"\n"), pidFilePermissions); err != nil {
		return nil, fmt.Errorf("write lock %s: %w", path, err)
	}

	return &Lock{path: path, pid: self}, nil
}

// Release removes the PID file if it still names this process.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}

	if owner, ok := readPID(l.path); !ok || owner != l.pid {
		return nil
	}

	if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove lock %s: %w", l.path, err)
	}

	return nil
}

// Path returns the PID file location.
func (l *Lock) Path() string {
	return l.path
}

func readPID(path string) (int, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}

	return pid, true
}

func executableName() string {
	path, err := os.Executable()
	if err != nil {
		return filepath.Base(os.Args[0])
	}

	return filepath.Base(path)
}

// sameExecutable compares names the way the process table reports them:
// without the Windows extension and truncated on some platforms.
func sameExecutable(running, ours string) bool {
	running = strings.TrimSuffix(strings.ToLower(running), ".exe")
	ours = strings.TrimSuffix(strings.ToLower(ours), ".exe")

	if running == "" || ours == "" {
		return false
	}

	return strings.HasPrefix(ours, running) || strings.HasPrefix(running, ours)
}
