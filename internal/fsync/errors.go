package fsync

import (
	"fmt"
	"strings"

	"github.com/AbazaSeif/cloudsync/internal/model"
)

// QuarantineError blocks mutating operations while duplicate or invalid
// items from the last remote load are unresolved. Recoverable only through
// the clean operation.
type QuarantineError struct {
	Duplicates []*model.Item
	Invalids   []*model.Item
}

func (e *QuarantineError) Error() string {
	var sb strings.Builder
	writeGroup(&sb, "duplicate", e.Duplicates)
	if len(e.Invalids) > 0 && sb.Len() > 0 {
		sb.WriteString("\n\n")
	}
	writeGroup(&sb, "invalid", e.Invalids)
	sb.WriteString("\n  try to run the 'clean' command")
	return sb.String()
}

func writeGroup(sb *strings.Builder, kind string, items []*model.Item) {
	if len(items) == 0 {
		return
	}
	plural := "s"
	if len(items) == 1 {
		plural = ""
	}
	fmt.Fprintf(sb, "found %d %s item%s:\n\n", len(items), kind, plural)
	for _, item := range items {
		for _, entry := range item.Flatten() {
			fmt.Fprintf(sb, "  %s - %s\n", entry.RemoteID, entry.Path())
		}
	}
}

// checkQuarantine is the precondition every mutating operation enforces at
// entry.
func (h *Handler) checkQuarantine() error {
	if len(h.duplicates) == 0 && len(h.invalids) == 0 {
		return nil
	}
	return &QuarantineError{Duplicates: h.duplicates, Invalids: h.invalids}
}

// AbortError escalates a per-item read failure to a fatal condition when
// the file-error policy is fail-fast. Mutations already applied to sibling
// items stay in place; the lock file left behind forces a remote reload on
// the next run.
type AbortError struct {
	Path string
	Err  error
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("skip %q: %v", e.Path, e.Err)
}

func (e *AbortError) Unwrap() error { return e.Err }
