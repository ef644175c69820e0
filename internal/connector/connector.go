// Package connector defines the narrow contracts the sync handler requires
// from its collaborators: the local filesystem side and the remote storage
// side. Concrete implementations live in the subpackages.
package connector

import (
	"errors"
	"fmt"
	"io"

	"github.com/AbazaSeif/cloudsync/internal/model"
)

// Source supplies upload payloads with any configured encryption already
// applied, and the inverse transform for strings read back from the remote
// listing. The sync handler implements it.
type Source interface {
	// ProcessedBinary returns the item's content ready for upload plus its
	// processed length. The caller closes the stream.
	ProcessedBinary(item *model.Item) (io.ReadCloser, int64, error)
	// ProcessedMetadata returns the item's encoded metadata blob ready for
	// upload.
	ProcessedMetadata(item *model.Item) (string, error)
	// ProcessedTitle returns the item's display name ready for upload.
	ProcessedTitle(item *model.Item) (string, error)
	// DecodedText inverse-transforms a title or metadata blob read from the
	// remote listing.
	DecodedText(text string) (string, error)
}

// RemoteReader hands a local upload its decrypted remote content. The sync
// handler implements it on top of Remote.Get and the crypto adapter.
type RemoteReader interface {
	RemoteBinary(item *model.Item) (io.ReadCloser, error)
}

// Local is the local filesystem collaborator.
type Local interface {
	// ReadFolder lists the local directory corresponding to the remote
	// item's tree position, returning absolute paths in a stable order.
	ReadFolder(item *model.Item) ([]string, error)
	// GetItem translates a local entry into remote-item shape, applying the
	// link-following policy. Paths already followed through a link are
	// recorded in visited and never followed again. Read failures surface
	// as *FileError.
	GetItem(path string, follow model.FollowLink, visited map[string]bool) (*model.Item, error)
	// FileBinary opens the item's raw local content.
	FileBinary(item *model.Item) (io.ReadCloser, int64, error)
	// PrepareParent ensures the item's local parent directory exists.
	PrepareParent(item *model.Item) error
	// PrepareUpload resolves a collision with an existing local entry
	// according to the policy, before Upload writes the item.
	PrepareUpload(item *model.Item, existing model.Existing) error
	// Upload materializes the item locally, pulling file content through
	// the remote reader and applying the permission policy.
	Upload(item *model.Item, existing model.Existing, perm model.Permission, remote RemoteReader) error
}

// Remote is the remote storage collaborator.
type Remote interface {
	// ReadFolder lists the children of a remote folder. Entries may lack a
	// checksum; such entries are invalid and never enter the tree.
	ReadFolder(src Source, parent *model.Item) ([]*model.Item, error)
	// Upload creates the item remotely and assigns its remote identifier.
	Upload(src Source, item *model.Item) error
	// Update rewrites the item's remote metadata, and its content when
	// withContent is set.
	Update(src Source, item *model.Item, withContent bool) error
	// Remove deletes the item remotely.
	Remove(item *model.Item) error
	// Get opens the item's raw remote content.
	Get(item *model.Item) (io.ReadCloser, error)
	// CleanHistory compacts the remote revision history after a run that
	// mutated remote state.
	CleanHistory() error
}

// FileError is the data-unavailable condition raised when a local entry
// cannot be read. The backup policy decides whether it is logged and
// skipped or aborts the run.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("can't read %q: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

// IsFileError reports whether err is a per-item local read failure.
func IsFileError(err error) bool {
	var fe *FileError
	return errors.As(err, &fe)
}
