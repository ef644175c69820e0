package fsync

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/AbazaSeif/cloudsync/internal/connector"
	"github.com/AbazaSeif/cloudsync/internal/fsync/filter"
	"github.com/AbazaSeif/cloudsync/internal/model"
)

// Status holds the counters of one backup pass. Reset per invocation, never
// persisted.
type Status struct {
	Created int
	Updated int
	Removed int
	Skipped int
}

// Total counts the local items seen by the pass.
func (s Status) Total() int { return s.Created + s.Updated + s.Skipped }

// Backup walks the local tree in lock-step with the in-memory remote tree
// and applies create/update/remove/skip decisions per item. When any
// mutation occurred the remote revision history is compacted afterwards.
func (h *Handler) Backup(dryRun bool, matcher *filter.Matcher) (Status, error) {
	if err := h.checkQuarantine(); err != nil {
		return Status{}, err
	}

	var status Status
	if err := h.backupFolder(dryRun, matcher, h.root, &status); err != nil {
		return status, err
	}

	changed := h.guard.Locked()
	if err := h.releaseLock(); err != nil {
		return status, err
	}
	if changed {
		if err := h.remote.CleanHistory(); err != nil {
			return status, err
		}
	}

	h.log.Infof("total items: %d", status.Total())
	h.log.Infof("created items: %d", status.Created)
	h.log.Infof("updated items: %d", status.Updated)
	h.log.Infof("removed items: %d", status.Removed)
	h.log.Infof("skipped items: %d", status.Skipped)
	return status, nil
}

func (h *Handler) backupFolder(dryRun bool, matcher *filter.Matcher, remoteParent *model.Item, status *Status) error {
	// Remote children not yet matched by a local entry; whatever remains
	// after the local pass is remote-only and gets removed.
	unmatched := make(map[string]*model.Item, remoteParent.ChildCount())
	for _, child := range remoteParent.Children() {
		unmatched[child.Name] = child
	}

	localPaths, err := h.local.ReadFolder(remoteParent)
	if err != nil {
		return err
	}

	for _, localPath := range localPaths {
		name := filepath.Base(localPath)
		probe := &model.Item{Name: name}
		probe.SetParent(remoteParent)

		// Excluded subtrees are never descended into, and their prior
		// remote state stays untouched rather than being treated as
		// remote-only leftovers.
		if !matcher.Match(probe.Path()) {
			delete(unmatched, name)
			continue
		}

		backupPath := probe.Path()
		var remoteChild *model.Item

		itemErr := func() error {
			localChild, err := h.local.GetItem(localPath, h.followLinks, h.followed)
			if err != nil {
				return err
			}
			localChild.SetParent(remoteParent)
			backupPath = localChild.Path()

			remoteChild = remoteParent.ChildByName(localChild.Name)
			switch {
			case remoteChild == nil:
				remoteChild = localChild
				h.log.Debugf("create %s %q", remoteChild.Type, backupPath)
				if !dryRun {
					if err := h.guard.Lock(); err != nil {
						return err
					}
					if err := h.remote.Upload(h, remoteChild); err != nil {
						return err
					}
				}
				remoteParent.AddChild(remoteChild)
				status.Created++

			case remoteChild.TypeChanged(localChild):
				h.log.Debugf("remove %s %q", remoteChild.Type, backupPath)
				if !dryRun {
					if err := h.guard.Lock(); err != nil {
						return err
					}
					if err := h.remote.Remove(remoteChild); err != nil {
						return err
					}
				}
				status.Removed++

				remoteChild = localChild
				h.log.Debugf("create %s %q", remoteChild.Type, backupPath)
				if !dryRun {
					if err := h.remote.Upload(h, remoteChild); err != nil {
						return err
					}
				}
				remoteParent.AddChild(remoteChild)
				status.Created++

			case remoteChild.MetadataChanged(localChild):
				filedataChanged := remoteChild.FiledataChanged(localChild)
				formatChanged := remoteChild.MetadataFormatChanged()
				remoteChild.Update(localChild)

				kinds := []string{"attributes"}
				if filedataChanged {
					kinds = []string{"data", "attributes"}
				}
				if formatChanged {
					kinds = append(kinds, "format")
				}
				h.log.Debugf("update %s %q [%s]", remoteChild.Type, backupPath, strings.Join(kinds, ","))
				if !dryRun {
					if err := h.guard.Lock(); err != nil {
						return err
					}
					if err := h.remote.Update(h, remoteChild, filedataChanged); err != nil {
						return err
					}
				}
				status.Updated++

			default:
				status.Skipped++
			}

			// Best-effort race detection: re-read the local entry and warn
			// when it changed under us. Not prevented, only reported.
			again, err := h.local.GetItem(localPath, h.followLinks, h.followed)
			switch {
			case err != nil && connector.IsFileError(err):
				h.log.Warnf("%s %q was removed during update", localChild.Type, backupPath)
			case err != nil:
				return err
			case again.MetadataChanged(localChild):
				h.log.Warnf("%s %q was changed during update", localChild.Type, backupPath)
			}

			delete(unmatched, remoteChild.Name)

			if remoteChild.IsType(model.TypeFolder) {
				return h.backupFolder(dryRun, matcher, remoteChild, status)
			}
			return nil
		}()

		if itemErr != nil {
			var abort *AbortError
			if errors.As(itemErr, &abort) {
				// Escalated further down; already counted there.
				return itemErr
			}
			if !connector.IsFileError(itemErr) {
				return itemErr
			}
			status.Skipped++
			if h.fileErrors == model.FileErrorAbort {
				return &AbortError{Path: backupPath, Err: itemErr}
			}
			h.log.WithError(itemErr).Errorf("skip %q", backupPath)
			if remoteChild != nil {
				delete(unmatched, remoteChild.Name)
			}
		}
	}

	for _, child := range remoteParent.Children() {
		if _, ok := unmatched[child.Name]; !ok {
			continue
		}
		h.log.Debugf("remove %s %q", child.Type, child.Path())
		remoteParent.RemoveChild(child)
		if !dryRun {
			if err := h.guard.Lock(); err != nil {
				return err
			}
			if err := h.remote.Remove(child); err != nil {
				return err
			}
		}
		status.Removed++
	}
	return nil
}
