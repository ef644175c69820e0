package cache

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/afero"

	"github.com/AbazaSeif/cloudsync/internal/model"
)

// Codec reads and writes the cache file through a filesystem abstraction so
// tests can run against an in-memory backend.
type Codec struct {
	fs afero.Fs
}

func New(fs afero.Fs) *Codec {
	return &Codec{fs: fs}
}

// Write serializes the tree below root into the cache file via pre-order
// traversal. The file is replaced only after a full successful encode; a
// write error leaves no half-written cache behind.
func (c *Codec) Write(path string, root *model.Item) error {
	var sb strings.Builder
	w := csv.NewWriter(&sb)
	w.UseCRLF = true
	if err := writeSubtree(w, root); err != nil {
		return fmt.Errorf("encode cache: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("encode cache: %w", err)
	}
	if err := afero.WriteFile(c.fs, path, []byte(sb.String()), 0o600); err != nil {
		return fmt.Errorf("write cache file %s: %w", path, err)
	}
	return nil
}

func writeSubtree(w *csv.Writer, parent *model.Item) error {
	for _, child := range parent.Children() {
		if err := w.Write(record(child)); err != nil {
			return err
		}
		if child.IsType(model.TypeFolder) {
			if err := writeSubtree(w, child); err != nil {
				return err
			}
		}
	}
	return nil
}

// Read reconstructs the tree below root from the cache file. Parent edges
// are rebuilt by looking up each row's path prefix among the rows already
// read; a missing prefix means the file is out of order or truncated.
func (c *Codec) Read(path string, root *model.Item) error {
	f, err := c.fs.Open(path)
	if err != nil {
		return fmt.Errorf("open cache file %s: %w", path, err)
	}
	defer f.Close()

	mapping := map[string]*model.Item{"": root}

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	line := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return &CorruptError{Line: line + 1, Reason: err.Error()}
		}
		line++

		item, err := itemFromRecord(rec)
		if err != nil {
			return &CorruptError{Line: line, Path: rec[0], Reason: err.Error()}
		}

		childPath := strings.Trim(rec[0], model.Separator)
		parentPath, name := splitPath(childPath)
		item.Name = name

		parent, ok := mapping[parentPath]
		if !ok {
			return &CorruptError{Line: line, Path: rec[0], Reason: "parent row missing"}
		}
		if parent.ChildByName(name) != nil {
			return &CorruptError{Line: line, Path: rec[0], Reason: "duplicate sibling name"}
		}
		parent.AddChild(item)
		mapping[childPath] = item
	}
}
