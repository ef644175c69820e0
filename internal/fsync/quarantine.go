package fsync

import (
	"github.com/AbazaSeif/cloudsync/internal/model"
)

// Clean recovers the quarantined duplicate and invalid items and unblocks
// mutating operations. Recovery is two-phase per list to avoid data loss:
// every item is re-uploaded into local storage first (parents before
// children, under a non-colliding name policy), and only then removed from
// the remote side (children before parents). Afterwards the lists are
// cleared and the lock release, with its cache flush, resumes.
func (h *Handler) Clean() error {
	if len(h.duplicates) > 0 {
		if err := h.recover(h.duplicates); err != nil {
			return err
		}
		h.duplicates = nil
	}
	if len(h.invalids) > 0 {
		if err := h.recover(h.invalids); err != nil {
			return err
		}
		h.invalids = nil
	}
	return h.releaseLock()
}

func (h *Handler) recover(quarantined []*model.Item) error {
	var list []*model.Item
	for _, item := range quarantined {
		list = append(list, item.Flatten()...)
	}

	for _, item := range list {
		if err := h.local.PrepareUpload(item, model.ExistingRename); err != nil {
			return err
		}
		h.log.Debugf("restore %s %q", item.Type, item.Path())
		if err := h.local.PrepareParent(item); err != nil {
			return err
		}
		if err := h.local.Upload(item, model.ExistingRename, h.permissions, h); err != nil {
			return err
		}
	}

	for n := len(list) - 1; n >= 0; n-- {
		h.log.Debugf("clean %s %q", list[n].Type, list[n].Path())
		if err := h.remote.Remove(list[n]); err != nil {
			return err
		}
	}
	return nil
}
