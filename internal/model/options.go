package model

import "fmt"

// SyncMode selects the top-level operation. Modes that mutate remote state
// require the PID marker file.
type SyncMode int

const (
	ModeBackup SyncMode = iota
	ModeRestore
	ModeList
	ModeClean
)

// NeedsPID reports whether the mode mutates remote state and therefore
// requires the crash/duplicate-run detector.
func (m SyncMode) NeedsPID() bool {
	return m == ModeBackup || m == ModeClean
}

func (m SyncMode) String() string {
	switch m {
	case ModeBackup:
		return "backup"
	case ModeRestore:
		return "restore"
	case ModeList:
		return "list"
	case ModeClean:
		return "clean"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// FollowLink controls symbolic link handling during the local scan.
type FollowLink int

const (
	// FollowNone records links as LINK items without following them.
	FollowNone FollowLink = iota
	// FollowExternal follows only links whose target lies outside the
	// backed up tree.
	FollowExternal
	// FollowAll follows every link; a path already visited through a
	// followed link is never followed again.
	FollowAll
)

func ParseFollowLink(s string) (FollowLink, error) {
	switch s {
	case "none", "":
		return FollowNone, nil
	case "external":
		return FollowExternal, nil
	case "all":
		return FollowAll, nil
	default:
		return FollowNone, fmt.Errorf("unknown follow-links policy %q", s)
	}
}

// Permission controls how permission bits are applied on restore.
type Permission int

const (
	PermIgnore Permission = iota
	PermSet
	PermTry
)

func ParsePermission(s string) (Permission, error) {
	switch s {
	case "ignore", "":
		return PermIgnore, nil
	case "set":
		return PermSet, nil
	case "try":
		return PermTry, nil
	default:
		return PermIgnore, fmt.Errorf("unknown permission policy %q", s)
	}
}

// FileError selects the reaction to a per-file local read failure during
// backup: log and skip, or abort the whole run.
type FileError int

const (
	FileErrorMessage FileError = iota
	FileErrorAbort
)

func ParseFileError(s string) (FileError, error) {
	switch s {
	case "message", "":
		return FileErrorMessage, nil
	case "exception", "abort":
		return FileErrorAbort, nil
	default:
		return FileErrorMessage, fmt.Errorf("unknown file-error policy %q", s)
	}
}

// Existing controls collisions with existing local files on restore.
type Existing int

const (
	ExistingStop Existing = iota
	ExistingUpdate
	ExistingSkip
	ExistingRename
)

func ParseExisting(s string) (Existing, error) {
	switch s {
	case "stop", "":
		return ExistingStop, nil
	case "update":
		return ExistingUpdate, nil
	case "skip":
		return ExistingSkip, nil
	case "rename":
		return ExistingRename, nil
	default:
		return ExistingStop, fmt.Errorf("unknown existing-file policy %q", s)
	}
}
