package local

import (
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbazaSeif/cloudsync/internal/connector"
	"github.com/AbazaSeif/cloudsync/internal/model"
)

func newTestConnector(t *testing.T) (*Connector, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	c, err := New(fs, "/backup")
	require.NoError(t, err)
	return c, fs
}

func treeItem(names ...string) *model.Item {
	parent := model.NewRoot()
	var item *model.Item
	for _, name := range names {
		item = &model.Item{Name: name, Type: model.TypeFolder}
		parent.AddChild(item)
		parent = item
	}
	return item
}

func TestReadFolderSorted(t *testing.T) {
	c, fs := newTestConnector(t)
	require.NoError(t, fs.MkdirAll("/backup/data", 0o755))
	require.NoError(t, afero.WriteFile(fs, "/backup/data/zeta.txt", []byte("z"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/backup/data/alpha.txt", []byte("a"), 0o644))
	require.NoError(t, fs.MkdirAll("/backup/data/mid", 0o755))

	paths, err := c.ReadFolder(treeItem("data"))
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join("/backup/data", "alpha.txt"),
		filepath.Join("/backup/data", "mid"),
		filepath.Join("/backup/data", "zeta.txt"),
	}, paths)
}

func TestReadFolderMissingDirectory(t *testing.T) {
	c, _ := newTestConnector(t)
	_, err := c.ReadFolder(treeItem("ghost"))
	assert.Error(t, err)
}

func TestGetItem(t *testing.T) {
	c, fs := newTestConnector(t)
	require.NoError(t, afero.WriteFile(fs, "/backup/a.txt", []byte("hello"), 0o644))
	require.NoError(t, fs.MkdirAll("/backup/dir", 0o755))

	file, err := c.GetItem("/backup/a.txt", model.FollowNone, map[string]bool{})
	require.NoError(t, err)
	assert.Equal(t, "a.txt", file.Name)
	assert.Equal(t, model.TypeFile, file.Type)
	assert.Equal(t, int64(5), file.Size)
	assert.Equal(t, model.MetadataVersion, file.MetaVersion)

	dir, err := c.GetItem("/backup/dir", model.FollowNone, map[string]bool{})
	require.NoError(t, err)
	assert.Equal(t, model.TypeFolder, dir.Type)
	assert.Equal(t, int64(0), dir.Size)
}

func TestGetItemMissingIsFileError(t *testing.T) {
	c, _ := newTestConnector(t)
	_, err := c.GetItem("/backup/nope.txt", model.FollowNone, map[string]bool{})
	require.Error(t, err)
	assert.True(t, connector.IsFileError(err))
}

func TestShouldFollow(t *testing.T) {
	c, _ := newTestConnector(t)

	tests := []struct {
		name     string
		follow   model.FollowLink
		resolved string
		visited  map[string]bool
		want     bool
	}{
		{"none never follows", model.FollowNone, "/elsewhere/x", map[string]bool{}, false},
		{"all follows fresh target", model.FollowAll, "/elsewhere/x", map[string]bool{}, true},
		{"all skips visited target", model.FollowAll, "/elsewhere/x", map[string]bool{"/elsewhere/x": true}, false},
		{"external follows outside target", model.FollowExternal, "/elsewhere/x", map[string]bool{}, true},
		{"external skips inside target", model.FollowExternal, "/backup/sub/x", map[string]bool{}, false},
		{"external skips the root itself", model.FollowExternal, "/backup", map[string]bool{}, false},
		{"external skips visited target", model.FollowExternal, "/elsewhere/x", map[string]bool{"/elsewhere/x": true}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, c.shouldFollow(tc.follow, tc.resolved, tc.visited))
		})
	}
}

func TestFileBinary(t *testing.T) {
	c, fs := newTestConnector(t)
	require.NoError(t, afero.WriteFile(fs, "/backup/a.txt", []byte("hello"), 0o644))

	item := treeItem("a.txt")
	item.Type = model.TypeFile

	rc, size, err := c.FileBinary(item)
	require.NoError(t, err)
	defer rc.Close()
	assert.Equal(t, int64(5), size)

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestFileBinaryMissingIsFileError(t *testing.T) {
	c, _ := newTestConnector(t)
	item := treeItem("missing.txt")
	item.Type = model.TypeFile
	_, _, err := c.FileBinary(item)
	assert.True(t, connector.IsFileError(err))
}

func TestPrepareUploadPolicies(t *testing.T) {
	t.Run("no collision is a no-op", func(t *testing.T) {
		c, _ := newTestConnector(t)
		item := treeItem("fresh.txt")
		require.NoError(t, c.PrepareUpload(item, model.ExistingStop))
	})

	t.Run("stop fails on collision", func(t *testing.T) {
		c, fs := newTestConnector(t)
		require.NoError(t, afero.WriteFile(fs, "/backup/a.txt", []byte("old"), 0o644))
		item := treeItem("a.txt")
		assert.Error(t, c.PrepareUpload(item, model.ExistingStop))
	})

	t.Run("update keeps the entry in place", func(t *testing.T) {
		c, fs := newTestConnector(t)
		require.NoError(t, afero.WriteFile(fs, "/backup/a.txt", []byte("old"), 0o644))
		item := treeItem("a.txt")
		require.NoError(t, c.PrepareUpload(item, model.ExistingUpdate))
		ok, _ := afero.Exists(fs, "/backup/a.txt")
		assert.True(t, ok)
	})

	t.Run("rename moves the entry aside", func(t *testing.T) {
		c, fs := newTestConnector(t)
		require.NoError(t, afero.WriteFile(fs, "/backup/a.txt", []byte("old"), 0o644))
		item := treeItem("a.txt")
		require.NoError(t, c.PrepareUpload(item, model.ExistingRename))

		ok, _ := afero.Exists(fs, "/backup/a.txt")
		assert.False(t, ok)

		infos, err := afero.ReadDir(fs, "/backup")
		require.NoError(t, err)
		require.Len(t, infos, 1)
		assert.True(t, strings.HasPrefix(infos[0].Name(), "a.txt.cloudsync."))
	})
}

type fakeRemoteReader struct {
	content map[string]string
}

func (f *fakeRemoteReader) RemoteBinary(item *model.Item) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(f.content[item.Path()])), nil
}

func TestUploadFolder(t *testing.T) {
	c, fs := newTestConnector(t)
	item := treeItem("data", "nested")
	item.ModTime = time.Unix(5000, 0)

	require.NoError(t, c.Upload(item, model.ExistingStop, model.PermIgnore, &fakeRemoteReader{}))

	info, err := fs.Stat("/backup/data/nested")
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestUploadFile(t *testing.T) {
	c, fs := newTestConnector(t)
	item := treeItem("restored.txt")
	item.Type = model.TypeFile
	item.ModTime = time.Unix(5000, 0)
	item.Mode = 0o640

	reader := &fakeRemoteReader{content: map[string]string{"/restored.txt": "payload"}}
	require.NoError(t, c.Upload(item, model.ExistingStop, model.PermSet, reader))

	data, err := afero.ReadFile(fs, "/backup/restored.txt")
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	info, err := fs.Stat("/backup/restored.txt")
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(time.Unix(5000, 0)))
	assert.Equal(t, 0o640, int(info.Mode().Perm()))
}

func TestUploadSkipsExisting(t *testing.T) {
	c, fs := newTestConnector(t)
	require.NoError(t, afero.WriteFile(fs, "/backup/a.txt", []byte("original"), 0o644))

	item := treeItem("a.txt")
	item.Type = model.TypeFile
	item.ModTime = time.Unix(5000, 0)

	reader := &fakeRemoteReader{content: map[string]string{"/a.txt": "replacement"}}
	require.NoError(t, c.Upload(item, model.ExistingSkip, model.PermIgnore, reader))

	data, err := afero.ReadFile(fs, "/backup/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))
}

func TestPrepareParent(t *testing.T) {
	c, fs := newTestConnector(t)
	item := treeItem("deep", "nested", "file.txt")
	item.Type = model.TypeFile

	require.NoError(t, c.PrepareParent(item))
	info, err := fs.Stat("/backup/deep/nested")
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
