// Package fsync is the reconciliation and tree-consistency engine. It keeps
// an in-memory tree of the remote mirror (loaded from the cache file or a
// live listing), quarantines structurally inconsistent remote items, diffs
// the local tree against it, and guarantees crash-safe single-writer access
// to the cache across process restarts.
package fsync

import (
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/AbazaSeif/cloudsync/internal/cache"
	"github.com/AbazaSeif/cloudsync/internal/connector"
	"github.com/AbazaSeif/cloudsync/internal/crypt"
	"github.com/AbazaSeif/cloudsync/internal/fsync/guard"
	"github.com/AbazaSeif/cloudsync/internal/model"
)

// Options configures a Handler. Local and Remote are required; Crypt may be
// nil for an unencrypted mirror and FS defaults to the OS filesystem.
type Options struct {
	Name   string
	Local  connector.Local
	Remote connector.Remote
	Crypt  *crypt.Crypt
	FS     afero.Fs

	Existing    model.Existing
	FollowLinks model.FollowLink
	Permissions model.Permission
	FileErrors  model.FileError
}

// Handler owns one synchronized tree and the markers protecting it. It is
// single-threaded: all tree walks, local scans and remote calls block the
// caller. Cross-process exclusivity comes from the guard's marker files.
type Handler struct {
	name   string
	local  connector.Local
	remote connector.Remote
	crypt  *crypt.Crypt

	existing    model.Existing
	followLinks model.FollowLink
	permissions model.Permission
	fileErrors  model.FileError

	root       *model.Item
	duplicates []*model.Item
	invalids   []*model.Item
	followed   map[string]bool

	fs        afero.Fs
	codec     *cache.Codec
	cachePath string
	guard     *guard.Guard

	log *logrus.Entry
}

func New(opts Options) *Handler {
	fs := opts.FS
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Handler{
		name:        opts.Name,
		local:       opts.Local,
		remote:      opts.Remote,
		crypt:       opts.Crypt,
		existing:    opts.Existing,
		followLinks: opts.FollowLinks,
		permissions: opts.Permissions,
		fileErrors:  opts.FileErrors,
		root:        model.NewRoot(),
		followed:    make(map[string]bool),
		fs:          fs,
		codec:       cache.New(fs),
		log: logrus.WithFields(logrus.Fields{
			"name": opts.Name,
			"run":  uuid.NewString()[:8],
		}),
	}
}

// Root returns the synthetic root of the in-memory remote tree.
func (h *Handler) Root() *model.Item { return h.root }

// Init acquires the marker files and populates the tree. A stale lock file
// from a previous run distrusts the cache regardless of noCache and forces
// a full remote reload.
func (h *Handler) Init(mode model.SyncMode, cachePath, lockPath, pidPath string, noCache, forceStart bool) error {
	subst := func(p string) string { return strings.ReplaceAll(p, "{name}", h.name) }
	h.cachePath = subst(cachePath)
	h.guard = guard.New(h.fs, subst(lockPath), subst(pidPath))

	if mode.NeedsPID() {
		if err := h.guard.AcquirePID(forceStart); err != nil {
			return err
		}
	}

	if h.guard.StaleLock() {
		h.log.Warn("found an inconsistent cache file state; possibly a previous job crashed " +
			"or duplicate files were detected; forcing a cache file rebuild")
		noCache = true
	}

	if !noCache && h.exists(h.cachePath) {
		h.log.Info("load structure from cache file")
		if err := h.codec.Read(h.cachePath, h.root); err != nil {
			return err
		}
	} else {
		h.log.Info("load structure from remote server")
		if err := h.guard.Lock(); err != nil {
			return err
		}
		if err := h.loadFromRemote(); err != nil {
			return err
		}
	}

	return h.releaseLock()
}

// Teardown removes the PID file if this run created one. Callers defer it
// so the marker disappears on every exit path.
func (h *Handler) Teardown() error {
	if h.guard == nil {
		return nil
	}
	return h.guard.Teardown()
}

// releaseLock deletes the lock file and flushes the tree to the cache file.
// A no-op while the lock is not held, and while unresolved duplicates or
// invalids exist: the cache must not be considered consistent until the
// quarantine is cleaned.
func (h *Handler) releaseLock() error {
	if h.guard == nil || !h.guard.Locked() {
		return nil
	}
	if len(h.duplicates) > 0 || len(h.invalids) > 0 {
		return nil
	}
	if err := h.guard.Release(); err != nil {
		return err
	}
	if h.root.ChildCount() > 0 {
		h.log.Info("write structure to cache file")
		if err := h.codec.Write(h.cachePath, h.root); err != nil {
			return fmt.Errorf("can't write cache file on %q: %w", h.cachePath, err)
		}
	}
	return nil
}

func (h *Handler) exists(path string) bool {
	ok, err := afero.Exists(h.fs, path)
	return err == nil && ok
}

// ProcessedBinary implements connector.Source: local content with the
// configured encryption applied.
func (h *Handler) ProcessedBinary(item *model.Item) (io.ReadCloser, int64, error) {
	rc, size, err := h.local.FileBinary(item)
	if err != nil {
		return nil, 0, err
	}
	return h.crypt.EncryptStream(rc, size)
}

// ProcessedMetadata implements connector.Source.
func (h *Handler) ProcessedMetadata(item *model.Item) (string, error) {
	return h.crypt.EncryptText(item.EncodeMetadata())
}

// ProcessedTitle implements connector.Source.
func (h *Handler) ProcessedTitle(item *model.Item) (string, error) {
	return h.crypt.EncryptText(item.Name)
}

// DecodedText implements connector.Source.
func (h *Handler) DecodedText(text string) (string, error) {
	return h.crypt.DecryptText(text)
}

// RemoteBinary implements connector.RemoteReader: remote content with the
// configured encryption removed. The remote stream is closed before a
// decryption failure propagates.
func (h *Handler) RemoteBinary(item *model.Item) (io.ReadCloser, error) {
	stream, err := h.remote.Get(item)
	if err != nil {
		return nil, err
	}
	plain, err := h.crypt.DecryptStream(stream)
	if err != nil {
		stream.Close()
		return nil, err
	}
	return plain, nil
}
