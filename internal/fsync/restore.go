package fsync

import (
	"github.com/AbazaSeif/cloudsync/internal/fsync/filter"
	"github.com/AbazaSeif/cloudsync/internal/model"
)

// List returns the tree items whose paths pass the filter, in traversal
// order. Folders rejected by the filter are not descended into.
func (h *Handler) List(matcher *filter.Matcher) ([]*model.Item, error) {
	if err := h.checkQuarantine(); err != nil {
		return nil, err
	}
	var out []*model.Item
	h.listFolder(matcher, h.root, &out)
	return out, nil
}

func (h *Handler) listFolder(matcher *filter.Matcher, parent *model.Item, out *[]*model.Item) {
	for _, child := range parent.Children() {
		if !matcher.Match(child.Path()) {
			continue
		}
		*out = append(*out, child)
		if child.IsType(model.TypeFolder) {
			h.listFolder(matcher, child, out)
		}
	}
}

// Restore re-materializes matching remote items into local storage. Unlike
// list, folders rejected by the filter are still descended into so nested
// matches restore with their parent directories prepared on demand.
func (h *Handler) Restore(dryRun bool, matcher *filter.Matcher) error {
	if err := h.checkQuarantine(); err != nil {
		return err
	}
	return h.restoreFolder(dryRun, matcher, h.root)
}

func (h *Handler) restoreFolder(dryRun bool, matcher *filter.Matcher, parent *model.Item) error {
	for _, child := range parent.Children() {
		path := child.Path()
		if matcher.Match(path) {
			if err := h.local.PrepareUpload(child, h.existing); err != nil {
				return err
			}
			h.log.Debugf("restore %s %q", child.Type, path)
			if !dryRun {
				if err := h.local.Upload(child, h.existing, h.permissions, h); err != nil {
					return err
				}
			}
		}
		if child.IsType(model.TypeFolder) {
			if err := h.restoreFolder(dryRun, matcher, child); err != nil {
				return err
			}
		}
	}
	return nil
}
