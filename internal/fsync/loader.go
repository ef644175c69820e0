package fsync

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/AbazaSeif/cloudsync/internal/model"
)

// loadStats accumulates per-type counters during a remote load, for the
// final human readable summary.
type loadStats struct {
	files      int
	folders    int
	links      int
	duplicates int
}

func (s *loadStats) count(t model.ItemType) {
	switch t {
	case model.TypeFolder:
		s.folders++
	case model.TypeLink:
		s.links++
	default:
		s.files++
	}
}

func (s *loadStats) total() int {
	return s.files + s.folders + s.links + s.duplicates
}

// summary joins the non-zero counters with commas and a final "and":
// "found 2 files, 1 folder and 1 duplicate".
func (s *loadStats) summary() string {
	var parts []string
	add := func(count int, singular string) {
		if count == 0 {
			return
		}
		label := singular
		if count != 1 {
			label += "s"
		}
		parts = append(parts, fmt.Sprintf("%d %s", count, label))
	}
	add(s.files, "file")
	add(s.folders, "folder")
	add(s.links, "link")
	add(s.duplicates, "duplicate")

	last := parts[len(parts)-1]
	message := strings.Join(parts[:len(parts)-1], ", ")
	if message != "" {
		message += " and "
	}
	return "found " + message + last
}

// loadFromRemote populates the tree by walking the remote collaborator
// recursively, triaging invalid and duplicate entries as it goes.
func (h *Handler) loadFromRemote() error {
	var stats loadStats
	if err := h.readRemote(h.root, &stats); err != nil {
		return err
	}
	if stats.total() > 0 {
		h.log.Info(stats.summary())
	}
	return nil
}

func (h *Handler) readRemote(parent *model.Item, stats *loadStats) error {
	children, err := h.remote.ReadFolder(h, parent)
	if err != nil {
		return err
	}

	for _, child := range children {
		child.SetParent(parent)

		// An entry without a checksum never enters the tree and is never
		// recursed into.
		if child.Checksum == "" {
			fields := logrus.Fields{"created": child.CreateTime}
			if child.Size > 0 {
				fields["size"] = child.Size
			}
			h.log.WithFields(fields).Warnf("found invalid item %q", child.Path())
			h.invalids = append(h.invalids, child)
			continue
		}

		inserted := child
		if existing := parent.ChildByName(child.Name); existing != nil {
			h.log.WithFields(logrus.Fields{
				"size":             child.Size,
				"existing_size":    existing.Size,
				"created":          child.CreateTime,
				"existing_created": existing.CreateTime,
			}).Warnf("found duplicate %q", child.Path())

			// The later creation time wins the tree slot; on a tie the
			// second-seen item is quarantined.
			if existing.CreateTime.Before(child.CreateTime) {
				parent.AddChild(child)
				h.duplicates = append(h.duplicates, existing)
			} else {
				h.duplicates = append(h.duplicates, child)
				inserted = nil
			}
			stats.duplicates++
		} else {
			parent.AddChild(child)
		}

		stats.count(child.Type)

		if inserted != nil && inserted.IsType(model.TypeFolder) {
			if err := h.readRemote(inserted, stats); err != nil {
				return err
			}
		}
	}
	return nil
}
