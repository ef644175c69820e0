// Package drive implements the remote storage collaborator against the
// Google Drive v3 API. Item metadata and the validity checksum travel in
// appProperties; titles and metadata blobs arrive pre-processed by the
// handler's crypto boundary.
package drive

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/api/drive/v3"

	"github.com/AbazaSeif/cloudsync/internal/connector"
	"github.com/AbazaSeif/cloudsync/internal/model"
)

const (
	folderMimeType = "application/vnd.google-apps.folder"

	propMetadata = "metadata"
	propChecksum = "checksum"

	listPageSize = 500
)

// Connector talks to one Drive folder subtree rooted at basePath.
type Connector struct {
	svc    *drive.Service
	rootID string

	// touched collects file ids whose content changed this run, for the
	// revision-history compaction after a mutating pass.
	touched []string
}

// New resolves basePath below My Drive, creating missing path folders.
func New(svc *drive.Service, basePath string) (*Connector, error) {
	parentID := "root"
	for _, segment := range strings.Split(strings.Trim(basePath, "/"), "/") {
		if segment == "" {
			continue
		}
		id, err := findOrCreateFolder(svc, parentID, segment)
		if err != nil {
			return nil, fmt.Errorf("resolve remote folder %q: %w", basePath, err)
		}
		parentID = id
	}
	return &Connector{svc: svc, rootID: parentID}, nil
}

func findOrCreateFolder(svc *drive.Service, parentID, name string) (string, error) {
	query := fmt.Sprintf("'%s' in parents and name = '%s' and mimeType = '%s' and trashed = false",
		parentID, escapeQuery(name), folderMimeType)
	list, err := svc.Files.List().Q(query).Fields("files(id)").PageSize(1).Do()
	if err != nil {
		return "", err
	}
	if len(list.Files) > 0 {
		return list.Files[0].Id, nil
	}
	created, err := svc.Files.Create(&drive.File{
		Name:     name,
		MimeType: folderMimeType,
		Parents:  []string{parentID},
	}).Fields("id").Do()
	if err != nil {
		return "", err
	}
	return created.Id, nil
}

func escapeQuery(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, `\`, `\\`), `'`, `\'`)
}

func (c *Connector) containerID(item *model.Item) string {
	if item.IsRoot() {
		return c.rootID
	}
	return item.RemoteID
}

// ReadFolder lists the children of a remote folder, ordered by name then
// creation time so a duplicate's "second seen" entry is deterministic.
// Entries lacking the stamped metadata keep an empty checksum and are
// triaged as invalid by the caller.
func (c *Connector) ReadFolder(src connector.Source, parent *model.Item) ([]*model.Item, error) {
	var items []*model.Item
	pageToken := ""
	for {
		call := c.svc.Files.List().
			Q(fmt.Sprintf("'%s' in parents and trashed = false", c.containerID(parent))).
			OrderBy("name,createdTime").
			PageSize(listPageSize).
			Fields("nextPageToken, files(id, name, mimeType, size, createdTime, appProperties)")
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		list, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("list remote folder %q: %w", parent.Path(), err)
		}

		for _, f := range list.Files {
			item, err := c.itemFromFile(src, f)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}

		pageToken = list.NextPageToken
		if pageToken == "" {
			return items, nil
		}
	}
}

func (c *Connector) itemFromFile(src connector.Source, f *drive.File) (*model.Item, error) {
	name, err := src.DecodedText(f.Name)
	if err != nil {
		return nil, fmt.Errorf("decode title of %s: %w", f.Id, err)
	}

	item := &model.Item{RemoteID: f.Id, Name: name, Type: model.TypeFile}
	if f.MimeType == folderMimeType {
		item.Type = model.TypeFolder
	}

	if blob, ok := f.AppProperties[propMetadata]; ok && blob != "" {
		plain, err := src.DecodedText(blob)
		if err != nil {
			return nil, fmt.Errorf("decode metadata of %s: %w", f.Id, err)
		}
		if err := item.DecodeMetadata(plain); err != nil {
			return nil, fmt.Errorf("metadata of %s: %w", f.Id, err)
		}
		item.Checksum = f.AppProperties[propChecksum]
	}

	if item.Size == 0 && f.Size > 0 {
		item.Size = f.Size
	}
	// The remote creation timestamp drives the duplicate tie-break.
	if created, err := time.Parse(time.RFC3339, f.CreatedTime); err == nil {
		item.CreateTime = created
	}
	return item, nil
}

// checksum stamps an item as completely written. Its presence, not its
// value, is what the loader's validity triage checks.
func checksum(item *model.Item) string {
	sum := sha256.Sum256([]byte(item.EncodeMetadata()))
	return hex.EncodeToString(sum[:])
}

// Upload creates the item remotely and assigns its remote identifier.
func (c *Connector) Upload(src connector.Source, item *model.Item) error {
	f, err := c.fileShell(src, item)
	if err != nil {
		return err
	}
	f.Parents = []string{c.containerID(item.Parent())}

	call := c.svc.Files.Create(f).Fields("id")
	if item.IsType(model.TypeFile) {
		stream, _, err := src.ProcessedBinary(item)
		if err != nil {
			return err
		}
		defer stream.Close()
		call = call.Media(stream)
	}

	created, err := call.Do()
	if err != nil {
		return fmt.Errorf("upload %q: %w", item.Path(), err)
	}
	item.RemoteID = created.Id
	item.Checksum = f.AppProperties[propChecksum]
	return nil
}

// Update rewrites the item's remote metadata, and its content when
// withContent is set.
func (c *Connector) Update(src connector.Source, item *model.Item, withContent bool) error {
	f, err := c.fileShell(src, item)
	if err != nil {
		return err
	}

	call := c.svc.Files.Update(item.RemoteID, f).Fields("id")
	if withContent && item.IsType(model.TypeFile) {
		stream, _, err := src.ProcessedBinary(item)
		if err != nil {
			return err
		}
		defer stream.Close()
		call = call.Media(stream)
		c.touched = append(c.touched, item.RemoteID)
	}

	if _, err := call.Do(); err != nil {
		return fmt.Errorf("update %q: %w", item.Path(), err)
	}
	item.Checksum = f.AppProperties[propChecksum]
	return nil
}

func (c *Connector) fileShell(src connector.Source, item *model.Item) (*drive.File, error) {
	title, err := src.ProcessedTitle(item)
	if err != nil {
		return nil, err
	}
	blob, err := src.ProcessedMetadata(item)
	if err != nil {
		return nil, err
	}
	f := &drive.File{
		Name: title,
		AppProperties: map[string]string{
			propMetadata: blob,
			propChecksum: checksum(item),
		},
	}
	if item.IsType(model.TypeFolder) {
		f.MimeType = folderMimeType
	}
	return f, nil
}

// Remove deletes the item remotely.
func (c *Connector) Remove(item *model.Item) error {
	if err := c.svc.Files.Delete(item.RemoteID).Do(); err != nil {
		return fmt.Errorf("remove %q: %w", item.Path(), err)
	}
	return nil
}

// Get opens the item's raw remote content.
func (c *Connector) Get(item *model.Item) (io.ReadCloser, error) {
	resp, err := c.svc.Files.Get(item.RemoteID).Download()
	if err != nil {
		return nil, fmt.Errorf("get %q: %w", item.Path(), err)
	}
	return resp.Body, nil
}

// CleanHistory prunes superseded revisions of every file whose content was
// rewritten this run, then empties the trash so removed items stop counting
// against the quota.
func (c *Connector) CleanHistory() error {
	for _, id := range c.touched {
		list, err := c.svc.Revisions.List(id).Fields("revisions(id)").Do()
		if err != nil {
			return fmt.Errorf("list revisions of %s: %w", id, err)
		}
		for n := 0; n < len(list.Revisions)-1; n++ {
			if err := c.svc.Revisions.Delete(id, list.Revisions[n].Id).Do(); err != nil {
				logrus.Warnf("can't prune revision %s of %s: %v", list.Revisions[n].Id, id, err)
			}
		}
	}
	c.touched = nil

	if err := c.svc.Files.EmptyTrash().Do(); err != nil {
		logrus.Warnf("can't empty remote trash: %v", err)
	}
	return nil
}
