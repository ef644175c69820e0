// Package local implements the local filesystem collaborator on top of an
// afero filesystem, so the whole connector runs against an in-memory
// backend in tests.
package local

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/AbazaSeif/cloudsync/internal/connector"
	"github.com/AbazaSeif/cloudsync/internal/model"
)

// Connector maps tree positions below the handler's root onto a directory
// subtree of the local filesystem.
type Connector struct {
	fs   afero.Fs
	root string
}

func New(fs afero.Fs, root string) (*Connector, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve local root %q: %w", root, err)
	}
	return &Connector{fs: fs, root: abs}, nil
}

// Root returns the absolute local root directory.
func (c *Connector) Root() string { return c.root }

func (c *Connector) absPath(item *model.Item) string {
	rel := strings.TrimPrefix(item.Path(), model.Separator)
	return filepath.Join(c.root, filepath.FromSlash(rel))
}

// ReadFolder lists the local directory matching the item's tree position,
// returning absolute paths sorted by name.
func (c *Connector) ReadFolder(item *model.Item) ([]string, error) {
	dir := c.absPath(item)
	infos, err := afero.ReadDir(c.fs, dir)
	if err != nil {
		return nil, fmt.Errorf("read folder %q: %w", dir, err)
	}
	paths := make([]string, 0, len(infos))
	for _, info := range infos {
		paths = append(paths, filepath.Join(dir, info.Name()))
	}
	return paths, nil
}

// GetItem translates one local entry into remote-item shape. Symbolic links
// are resolved according to the follow policy; a target path followed once
// is recorded in visited and never followed again.
func (c *Connector) GetItem(path string, follow model.FollowLink, visited map[string]bool) (*model.Item, error) {
	info, isLink, err := c.lstat(path)
	if err != nil {
		return nil, &connector.FileError{Path: path, Err: err}
	}

	if isLink {
		target, resolved, err := c.readLink(path)
		if err != nil {
			return nil, &connector.FileError{Path: path, Err: err}
		}
		if c.shouldFollow(follow, resolved, visited) {
			visited[resolved] = true
			followed, err := c.fs.Stat(path)
			if err != nil {
				return nil, &connector.FileError{Path: path, Err: err}
			}
			return c.itemFromInfo(path, followed, ""), nil
		}
		return c.itemFromLink(path, info, target), nil
	}

	return c.itemFromInfo(path, info, ""), nil
}

func (c *Connector) shouldFollow(follow model.FollowLink, resolved string, visited map[string]bool) bool {
	switch follow {
	case model.FollowAll:
		return !visited[resolved]
	case model.FollowExternal:
		inside := resolved == c.root || strings.HasPrefix(resolved, c.root+string(filepath.Separator))
		return !inside && !visited[resolved]
	default:
		return false
	}
}

func (c *Connector) lstat(path string) (os.FileInfo, bool, error) {
	if lstater, ok := c.fs.(afero.Lstater); ok {
		info, lstatCalled, err := lstater.LstatIfPossible(path)
		if err != nil {
			return nil, false, err
		}
		return info, lstatCalled && info.Mode()&os.ModeSymlink != 0, nil
	}
	info, err := c.fs.Stat(path)
	return info, false, err
}

func (c *Connector) readLink(path string) (target, resolved string, err error) {
	reader, ok := c.fs.(afero.LinkReader)
	if !ok {
		return "", "", fmt.Errorf("filesystem does not support symlinks")
	}
	target, err = reader.ReadlinkIfPossible(path)
	if err != nil {
		return "", "", err
	}
	resolved = target
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(filepath.Dir(path), resolved)
	}
	return target, filepath.Clean(resolved), nil
}

func (c *Connector) itemFromInfo(path string, info os.FileInfo, linkTarget string) *model.Item {
	item := &model.Item{
		Name:        filepath.Base(path),
		Type:        model.TypeFile,
		ModTime:     info.ModTime(),
		CreateTime:  info.ModTime(),
		Mode:        info.Mode().Perm(),
		MetaVersion: model.MetadataVersion,
		LinkTarget:  linkTarget,
	}
	if info.IsDir() {
		item.Type = model.TypeFolder
	} else {
		item.Size = info.Size()
	}
	return item
}

func (c *Connector) itemFromLink(path string, info os.FileInfo, target string) *model.Item {
	return &model.Item{
		Name:        filepath.Base(path),
		Type:        model.TypeLink,
		ModTime:     info.ModTime(),
		CreateTime:  info.ModTime(),
		Mode:        info.Mode().Perm(),
		MetaVersion: model.MetadataVersion,
		LinkTarget:  target,
	}
}

// FileBinary opens the item's raw local content.
func (c *Connector) FileBinary(item *model.Item) (io.ReadCloser, int64, error) {
	path := c.absPath(item)
	info, err := c.fs.Stat(path)
	if err != nil {
		return nil, 0, &connector.FileError{Path: path, Err: err}
	}
	f, err := c.fs.Open(path)
	if err != nil {
		return nil, 0, &connector.FileError{Path: path, Err: err}
	}
	return f, info.Size(), nil
}

// PrepareParent ensures the item's local parent directory exists.
func (c *Connector) PrepareParent(item *model.Item) error {
	return c.fs.MkdirAll(filepath.Dir(c.absPath(item)), 0o755)
}

// PrepareUpload resolves a collision with an existing local entry. The
// rename policy moves the existing entry aside under a collision-free name
// instead of overwriting it.
func (c *Connector) PrepareUpload(item *model.Item, existing model.Existing) error {
	path := c.absPath(item)
	if ok, err := afero.Exists(c.fs, path); err != nil || !ok {
		return err
	}
	switch existing {
	case model.ExistingStop:
		return fmt.Errorf("%q already exists; set an existing-file policy to proceed", path)
	case model.ExistingRename:
		aside := fmt.Sprintf("%s.cloudsync.%s", path, uuid.NewString()[:8])
		logrus.Warnf("rename existing %q to %q", path, aside)
		return c.fs.Rename(path, aside)
	default:
		return nil
	}
}

// Upload materializes the item locally, pulling file content through the
// remote reader and applying the permission policy.
func (c *Connector) Upload(item *model.Item, existing model.Existing, perm model.Permission, remote connector.RemoteReader) error {
	path := c.absPath(item)
	if existing == model.ExistingSkip {
		if ok, _ := afero.Exists(c.fs, path); ok {
			return nil
		}
	}

	switch item.Type {
	case model.TypeFolder:
		if err := c.fs.MkdirAll(path, 0o755); err != nil {
			return err
		}
	case model.TypeLink:
		linker, ok := c.fs.(afero.Linker)
		if !ok {
			logrus.Warnf("skip link %q: filesystem does not support symlinks", path)
			return nil
		}
		if err := linker.SymlinkIfPossible(item.LinkTarget, path); err != nil {
			return err
		}
		return nil
	default:
		stream, err := remote.RemoteBinary(item)
		if err != nil {
			return err
		}
		defer stream.Close()
		f, err := c.fs.Create(path)
		if err != nil {
			return err
		}
		if _, err := io.Copy(f, stream); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	}

	return c.applyAttributes(path, item, perm)
}

func (c *Connector) applyAttributes(path string, item *model.Item, perm model.Permission) error {
	if err := c.fs.Chtimes(path, item.ModTime, item.ModTime); err != nil {
		return err
	}
	switch perm {
	case model.PermSet:
		return c.fs.Chmod(path, item.Mode.Perm())
	case model.PermTry:
		if err := c.fs.Chmod(path, item.Mode.Perm()); err != nil {
			logrus.Warnf("can't apply permissions on %q: %v", path, err)
		}
	}
	return nil
}
