package fsync

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/AbazaSeif/cloudsync/internal/connector"
	"github.com/AbazaSeif/cloudsync/internal/model"
)

func toMode(m uint32) fs.FileMode { return fs.FileMode(m) }

// localEntry describes one entry of the fake local filesystem, keyed by its
// tree-absolute path.
type localEntry struct {
	typ     model.ItemType
	size    int64
	mod     int64
	mode    uint32
	content string
	fail    bool
}

func localFile(size, mod int64) *localEntry {
	return &localEntry{typ: model.TypeFile, size: size, mod: mod, mode: 0o644}
}

func localFolder(mod int64) *localEntry {
	return &localEntry{typ: model.TypeFolder, mod: mod, mode: 0o755}
}

type uploadRecord struct {
	path    string
	content string
}

type prepareRecord struct {
	path     string
	existing model.Existing
}

type fakeLocal struct {
	entries  map[string]*localEntry
	uploaded []uploadRecord
	prepared []prepareRecord
}

func newFakeLocal(entries map[string]*localEntry) *fakeLocal {
	if entries == nil {
		entries = make(map[string]*localEntry)
	}
	return &fakeLocal{entries: entries}
}

func (l *fakeLocal) ReadFolder(item *model.Item) ([]string, error) {
	dir := item.Path()
	var out []string
	for p := range l.entries {
		if path.Dir(p) == dir {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (l *fakeLocal) GetItem(p string, follow model.FollowLink, visited map[string]bool) (*model.Item, error) {
	e, ok := l.entries[p]
	if !ok {
		return nil, &connector.FileError{Path: p, Err: errors.New("no such entry")}
	}
	if e.fail {
		return nil, &connector.FileError{Path: p, Err: errors.New("unreadable")}
	}
	item := &model.Item{
		Name:        path.Base(p),
		Type:        e.typ,
		ModTime:     time.Unix(e.mod, 0),
		CreateTime:  time.Unix(e.mod, 0),
		Mode:        toMode(e.mode),
		MetaVersion: model.MetadataVersion,
	}
	if e.typ == model.TypeFile {
		item.Size = e.size
	}
	return item, nil
}

func (l *fakeLocal) FileBinary(item *model.Item) (io.ReadCloser, int64, error) {
	e, ok := l.entries[item.Path()]
	if !ok {
		return nil, 0, &connector.FileError{Path: item.Path(), Err: errors.New("no such entry")}
	}
	return io.NopCloser(strings.NewReader(e.content)), int64(len(e.content)), nil
}

func (l *fakeLocal) PrepareParent(item *model.Item) error { return nil }

func (l *fakeLocal) PrepareUpload(item *model.Item, existing model.Existing) error {
	l.prepared = append(l.prepared, prepareRecord{path: item.Path(), existing: existing})
	return nil
}

func (l *fakeLocal) Upload(item *model.Item, existing model.Existing, perm model.Permission, remote connector.RemoteReader) error {
	rec := uploadRecord{path: item.Path()}
	if item.IsType(model.TypeFile) {
		rc, err := remote.RemoteBinary(item)
		if err != nil {
			return err
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return err
		}
		rec.content = string(data)
	}
	l.uploaded = append(l.uploaded, rec)
	return nil
}

// fakeRemote serves a canned listing keyed by parent path and records every
// mutating call in order.
type fakeRemote struct {
	listing map[string][]*model.Item
	content map[string]string

	calls   []string
	reads   []string
	cleaned int
	nextID  int
}

func newFakeRemote(listing map[string][]*model.Item) *fakeRemote {
	if listing == nil {
		listing = make(map[string][]*model.Item)
	}
	return &fakeRemote{listing: listing, content: make(map[string]string)}
}

func (r *fakeRemote) ReadFolder(src connector.Source, parent *model.Item) ([]*model.Item, error) {
	r.reads = append(r.reads, parent.Path())
	var out []*model.Item
	for _, fixture := range r.listing[parent.Path()] {
		cp := *fixture
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeRemote) Upload(src connector.Source, item *model.Item) error {
	r.nextID++
	item.RemoteID = fmt.Sprintf("up-%d", r.nextID)
	r.calls = append(r.calls, "upload "+item.Path())
	return nil
}

func (r *fakeRemote) Update(src connector.Source, item *model.Item, withContent bool) error {
	op := "update"
	if withContent {
		op = "update+content"
	}
	r.calls = append(r.calls, op+" "+item.Path())
	return nil
}

func (r *fakeRemote) Remove(item *model.Item) error {
	r.calls = append(r.calls, "remove "+item.RemoteID)
	return nil
}

func (r *fakeRemote) Get(item *model.Item) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(r.content[item.RemoteID])), nil
}

func (r *fakeRemote) CleanHistory() error {
	r.cleaned++
	return nil
}

// remoteFile builds a listing fixture with a valid checksum.
func remoteFile(id, name string, size, mod, created int64) *model.Item {
	return &model.Item{
		RemoteID:    id,
		Name:        name,
		Type:        model.TypeFile,
		Size:        size,
		ModTime:     time.Unix(mod, 0),
		CreateTime:  time.Unix(created, 0),
		Mode:        toMode(0o644),
		MetaVersion: model.MetadataVersion,
		Checksum:    "sum-" + id,
	}
}

func remoteFolder(id, name string, mod, created int64) *model.Item {
	return &model.Item{
		RemoteID:    id,
		Name:        name,
		Type:        model.TypeFolder,
		ModTime:     time.Unix(mod, 0),
		CreateTime:  time.Unix(created, 0),
		Mode:        toMode(0o755),
		MetaVersion: model.MetadataVersion,
		Checksum:    "sum-" + id,
	}
}
