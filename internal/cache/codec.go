// Package cache persists the remote tree as a flat CSV table, one row per
// item, rows in pre-order so every row's parent path has already appeared.
// The format is bit-exact across versions: comma separated, double-quote
// escaping, CRLF line terminators.
package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/AbazaSeif/cloudsync/internal/model"
)

// ErrCorrupt marks a cache file that cannot be trusted: malformed rows or
// broken parent linkage. The operator has to re-sync from remote.
var ErrCorrupt = errors.New("cache file corrupt")

// CorruptError describes where and why a cache file failed to load.
type CorruptError struct {
	Line   int
	Path   string
	Reason string
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("cache row %d (%s): %s", e.Line, e.Path, e.Reason)
}

func (e *CorruptError) Unwrap() error { return ErrCorrupt }

const recordFields = 9

// record encodes one item as a CSV row: path, remote identifier, type tag,
// size, modification time, creation time, permission bits, metadata format
// version, checksum. The column order is part of the on-disk contract.
func record(item *model.Item) []string {
	return []string{
		item.Path(),
		item.RemoteID,
		item.Type.Tag(),
		strconv.FormatInt(item.Size, 10),
		strconv.FormatInt(item.ModTime.Unix(), 10),
		strconv.FormatInt(item.CreateTime.Unix(), 10),
		strconv.FormatUint(uint64(item.Mode.Perm()), 8),
		strconv.Itoa(item.MetaVersion),
		item.Checksum,
	}
}

func itemFromRecord(rec []string) (*model.Item, error) {
	if len(rec) < recordFields {
		return nil, fmt.Errorf("expected %d columns, got %d", recordFields, len(rec))
	}
	typ, err := model.ParseItemType(rec[2])
	if err != nil {
		return nil, err
	}
	size, err := strconv.ParseInt(rec[3], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("malformed size %q", rec[3])
	}
	modTime, err := strconv.ParseInt(rec[4], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("malformed modification time %q", rec[4])
	}
	createTime, err := strconv.ParseInt(rec[5], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("malformed creation time %q", rec[5])
	}
	mode, err := strconv.ParseUint(rec[6], 8, 32)
	if err != nil {
		return nil, fmt.Errorf("malformed permission bits %q", rec[6])
	}
	version, err := strconv.Atoi(rec[7])
	if err != nil {
		return nil, fmt.Errorf("malformed metadata version %q", rec[7])
	}

	return &model.Item{
		RemoteID:    rec[1],
		Type:        typ,
		Size:        size,
		ModTime:     time.Unix(modTime, 0),
		CreateTime:  time.Unix(createTime, 0),
		Mode:        fs.FileMode(mode),
		MetaVersion: version,
		Checksum:    rec[8],
	}, nil
}

// splitPath separates a trimmed row path into parent prefix and own name.
// The empty prefix maps to the root.
func splitPath(trimmed string) (parent, name string) {
	idx := strings.LastIndex(trimmed, model.Separator)
	if idx < 0 {
		return "", trimmed
	}
	return trimmed[:idx], trimmed[idx+1:]
}
