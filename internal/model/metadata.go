package model

import (
	"encoding/base64"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"
)

// MetadataVersion is the current metadata encoding version. Items stamped
// with a different version are treated as metadata-changed independent of
// content.
const MetadataVersion = 1

// EncodeMetadata serializes the item's attributes into the blob stored on
// the remote side. The link target is base64 encoded so the field separator
// stays unambiguous.
func (i *Item) EncodeMetadata() string {
	fields := []string{
		strconv.Itoa(MetadataVersion),
		i.Type.Tag(),
		strconv.FormatUint(uint64(i.Mode.Perm()), 8),
		strconv.FormatInt(i.ModTime.Unix(), 10),
		strconv.FormatInt(i.CreateTime.Unix(), 10),
		strconv.FormatInt(i.Size, 10),
		base64.RawURLEncoding.EncodeToString([]byte(i.LinkTarget)),
	}
	return strings.Join(fields, ":")
}

// DecodeMetadata parses an encoded metadata blob into the item's attribute
// fields. The stamped version is preserved so callers can detect stale
// encodings.
func (i *Item) DecodeMetadata(blob string) error {
	fields := strings.Split(blob, ":")
	if len(fields) < 6 {
		return fmt.Errorf("malformed metadata %q", blob)
	}

	version, err := strconv.Atoi(fields[0])
	if err != nil {
		return fmt.Errorf("malformed metadata version %q", fields[0])
	}
	typ, err := ParseItemType(fields[1])
	if err != nil {
		return err
	}
	mode, err := strconv.ParseUint(fields[2], 8, 32)
	if err != nil {
		return fmt.Errorf("malformed permission bits %q", fields[2])
	}
	modTime, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		return fmt.Errorf("malformed modification time %q", fields[3])
	}
	createTime, err := strconv.ParseInt(fields[4], 10, 64)
	if err != nil {
		return fmt.Errorf("malformed creation time %q", fields[4])
	}
	size, err := strconv.ParseInt(fields[5], 10, 64)
	if err != nil {
		return fmt.Errorf("malformed size %q", fields[5])
	}

	i.MetaVersion = version
	i.Type = typ
	i.Mode = fs.FileMode(mode)
	i.ModTime = time.Unix(modTime, 0)
	i.CreateTime = time.Unix(createTime, 0)
	i.Size = size

	if len(fields) > 6 && fields[6] != "" {
		target, err := base64.RawURLEncoding.DecodeString(fields[6])
		if err != nil {
			return fmt.Errorf("malformed link target %q", fields[6])
		}
		i.LinkTarget = string(target)
	}
	return nil
}
