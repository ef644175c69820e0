package cli

import (
	"errors"

	"github.com/AbazaSeif/cloudsync/internal/cache"
	"github.com/AbazaSeif/cloudsync/internal/connector"
	"github.com/AbazaSeif/cloudsync/internal/fsync"
	"github.com/AbazaSeif/cloudsync/internal/fsync/guard"
)

// Exit codes, stable for scripting.
const (
	ExitSuccess = 0
	// Setup errors (10-19)
	ExitBusy        = 10
	ExitSetupFailed = 11
	// State errors (20-29)
	ExitQuarantine   = 20
	ExitCacheCorrupt = 21
	// Per-item errors (30-39)
	ExitFileError = 30
	// Unknown
	ExitUnknown = 99
)

func exitCode(err error) int {
	var quarantine *fsync.QuarantineError
	var abort *fsync.AbortError
	switch {
	case errors.Is(err, guard.ErrBusy):
		return ExitBusy
	case errors.As(err, &quarantine):
		return ExitQuarantine
	case errors.Is(err, cache.ErrCorrupt):
		return ExitCacheCorrupt
	case errors.As(err, &abort), connector.IsFileError(err):
		return ExitFileError
	default:
		return ExitUnknown
	}
}
