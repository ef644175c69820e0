// Package guard implements the cross-process markers protecting the cache
// and the remote state: a PID file detecting crashed or duplicate runs, and
// a lock file flagging a mutation in progress. The lock file's presence at
// startup is sufficient to distrust the cache file.
package guard

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/afero"
)

// ErrBusy reports a PID file left behind by another or a crashed run.
var ErrBusy = errors.New("other job is running or previous job has crashed; " +
	"use --forcestart if you are sure no other job is running")

// Guard owns the two marker files for one run. Release is expected on every
// exit path; the caller decides when releasing is allowed (quarantine state)
// and what to flush afterwards.
type Guard struct {
	fs       afero.Fs
	lockPath string
	pidPath  string

	locked   bool
	pidOwned bool
}

func New(fs afero.Fs, lockPath, pidPath string) *Guard {
	return &Guard{fs: fs, lockPath: lockPath, pidPath: pidPath}
}

// AcquirePID fails when a PID file already exists unless force is set, then
// records the current process identifier. Only operations that mutate remote
// state call this.
func (g *Guard) AcquirePID(force bool) error {
	if !force && g.exists(g.pidPath) {
		return ErrBusy
	}
	pid := strconv.Itoa(os.Getpid())
	if err := afero.WriteFile(g.fs, g.pidPath, []byte(pid), 0o600); err != nil {
		return fmt.Errorf("couldn't create %q: %w", g.pidPath, err)
	}
	g.pidOwned = true
	return nil
}

// StaleLock reports whether a lock file from a previous run is present.
func (g *Guard) StaleLock() bool {
	return !g.locked && g.exists(g.lockPath)
}

// Lock creates the lock file. Idempotent; a no-op when already held by this
// instance.
func (g *Guard) Lock() error {
	if g.locked {
		return nil
	}
	if !g.exists(g.lockPath) {
		f, err := g.fs.OpenFile(g.lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err != nil {
			return fmt.Errorf("couldn't create %q: %w", g.lockPath, err)
		}
		f.Close()
	}
	g.locked = true
	return nil
}

// Locked reports whether this instance holds the lock.
func (g *Guard) Locked() bool { return g.locked }

// Release deletes the lock file. A failure to delete the marker is fatal to
// the run.
func (g *Guard) Release() error {
	if !g.locked {
		return nil
	}
	if err := g.fs.Remove(g.lockPath); err != nil {
		return fmt.Errorf("couldn't remove %q: %w", g.lockPath, err)
	}
	g.locked = false
	return nil
}

// Teardown removes the PID file if this instance created one. Called on
// normal and abnormal shutdown alike.
func (g *Guard) Teardown() error {
	if !g.pidOwned {
		return nil
	}
	g.pidOwned = false
	if err := g.fs.Remove(g.pidPath); err != nil {
		return fmt.Errorf("couldn't remove %q: %w", g.pidPath, err)
	}
	return nil
}

// exists checks for the marker without following symlinks where the backend
// supports it.
func (g *Guard) exists(path string) bool {
	if lstater, ok := g.fs.(afero.Lstater); ok {
		_, _, err := lstater.LstatIfPossible(path)
		return err == nil
	}
	_, err := g.fs.Stat(path)
	return err == nil
}
