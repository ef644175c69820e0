// Package model defines the synchronized tree: items with identity, metadata
// and parent/child ownership, plus the policy enums shared by the connectors
// and the sync handler.
package model

import (
	"io/fs"
	"strings"
	"time"
)

// Separator joins ancestor names into an item path.
const Separator = "/"

// Item is one node of the synchronized tree. Exactly one root exists per
// handler instance; the root is a synthetic folder with no name, no remote
// identifier and no parent. Children are kept in insertion order and names
// are unique among siblings.
type Item struct {
	// RemoteID is the opaque identifier assigned by the remote side.
	// Empty until the item has been uploaded, and always empty on the root.
	RemoteID string

	Name       string
	Type       ItemType
	Size       int64
	ModTime    time.Time
	CreateTime time.Time
	Mode       fs.FileMode
	LinkTarget string

	// MetaVersion is the format version stamped on the item's encoded
	// metadata. Items loaded with an older version count as changed even
	// when content and attributes are identical.
	MetaVersion int

	// Checksum is the content checksum reported by the remote listing.
	// Empty means the remote entry carries none and is invalid.
	Checksum string

	root     bool
	parent   *Item
	children map[string]*Item
	order    []string
}

// NewRoot returns the synthetic root of a tree. It is never a real entry:
// it has no name, no remote identifier and is the only node without parent.
func NewRoot() *Item {
	return &Item{Type: TypeFolder, root: true, MetaVersion: MetadataVersion}
}

// IsRoot reports whether the item is the synthetic tree root.
func (i *Item) IsRoot() bool { return i.root }

// IsType reports whether the item carries the given type tag.
func (i *Item) IsType(t ItemType) bool { return i.Type == t }

// Parent returns the owning item, or nil for the root.
func (i *Item) Parent() *Item { return i.parent }

// SetParent links the item to a parent without registering it as a child.
// Used to compute the item's prospective path before the duplicate policy
// decides whether it occupies the tree slot.
func (i *Item) SetParent(parent *Item) { i.parent = parent }

// AddChild registers the item as a child and sets the ownership edge both
// ways. An existing child of the same name is replaced in place, keeping its
// original position; callers resolve such collisions through the duplicate
// policy before calling.
func (i *Item) AddChild(child *Item) {
	if i.children == nil {
		i.children = make(map[string]*Item)
	}
	if _, ok := i.children[child.Name]; !ok {
		i.order = append(i.order, child.Name)
	}
	i.children[child.Name] = child
	child.parent = i
}

// RemoveChild drops the child from the ownership map. No-op when the item
// is not a current child.
func (i *Item) RemoveChild(child *Item) {
	current, ok := i.children[child.Name]
	if !ok || current != child {
		return
	}
	delete(i.children, child.Name)
	for n, name := range i.order {
		if name == child.Name {
			i.order = append(i.order[:n], i.order[n+1:]...)
			break
		}
	}
	child.parent = nil
}

// ChildByName returns the current child of that name, or nil.
func (i *Item) ChildByName(name string) *Item {
	return i.children[name]
}

// Children returns the children in insertion order.
func (i *Item) Children() []*Item {
	out := make([]*Item, 0, len(i.order))
	for _, name := range i.order {
		out = append(out, i.children[name])
	}
	return out
}

// ChildCount returns the number of children.
func (i *Item) ChildCount() int { return len(i.children) }

// Path returns the /-joined chain of ancestor names from the root,
// "/" for the root itself.
func (i *Item) Path() string {
	if i.root {
		return Separator
	}
	var names []string
	for cur := i; cur != nil && !cur.root; cur = cur.parent {
		names = append(names, cur.Name)
	}
	var sb strings.Builder
	for n := len(names) - 1; n >= 0; n-- {
		sb.WriteString(Separator)
		sb.WriteString(names[n])
	}
	return sb.String()
}

// TypeChanged reports whether the local counterpart carries a different
// type tag. A type change is handled as remove plus create.
func (i *Item) TypeChanged(local *Item) bool {
	return i.Type != local.Type
}

// MetadataChanged reports whether size, modification time, permission bits,
// link target or the metadata format version differ from the local
// counterpart.
func (i *Item) MetadataChanged(local *Item) bool {
	if i.Size != local.Size {
		return true
	}
	if !i.ModTime.Truncate(time.Second).Equal(local.ModTime.Truncate(time.Second)) {
		return true
	}
	if i.Mode.Perm() != local.Mode.Perm() {
		return true
	}
	if i.LinkTarget != local.LinkTarget {
		return true
	}
	return i.MetadataFormatChanged()
}

// FiledataChanged reports whether raw content changed, as opposed to an
// attribute-only change. Folders never change content.
func (i *Item) FiledataChanged(local *Item) bool {
	switch i.Type {
	case TypeFolder:
		return false
	case TypeLink:
		return i.LinkTarget != local.LinkTarget
	default:
		return i.Size != local.Size ||
			!i.ModTime.Truncate(time.Second).Equal(local.ModTime.Truncate(time.Second))
	}
}

// MetadataFormatChanged reports whether the item was loaded with a stale
// metadata encoding version.
func (i *Item) MetadataFormatChanged() bool {
	return i.MetaVersion != MetadataVersion
}

// Update copies the local counterpart's metadata onto the item in place,
// keeping the remote identifier and the tree edges.
func (i *Item) Update(local *Item) {
	i.Size = local.Size
	i.ModTime = local.ModTime
	i.CreateTime = local.CreateTime
	i.Mode = local.Mode
	i.LinkTarget = local.LinkTarget
	i.MetaVersion = MetadataVersion
}

// Flatten returns the item plus all descendants in pre-order.
func (i *Item) Flatten() []*Item {
	list := []*Item{i}
	if i.IsType(TypeFolder) {
		for _, child := range i.Children() {
			list = append(list, child.Flatten()...)
		}
	}
	return list
}
