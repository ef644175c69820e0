package model

import "fmt"

// ItemType tags a tree node as file, folder or link.
type ItemType int

const (
	TypeFile ItemType = iota
	TypeFolder
	TypeLink
)

func (t ItemType) String() string {
	switch t {
	case TypeFile:
		return "file"
	case TypeFolder:
		return "folder"
	case TypeLink:
		return "link"
	default:
		return fmt.Sprintf("type(%d)", int(t))
	}
}

// Label returns the human readable name, pluralized for the given count.
func (t ItemType) Label(count int) string {
	name := t.String()
	if count == 1 {
		return name
	}
	return name + "s"
}

// ParseItemType parses the single-letter tag used in the cache file and in
// encoded metadata.
func ParseItemType(s string) (ItemType, error) {
	switch s {
	case "F", "file":
		return TypeFile, nil
	case "D", "folder":
		return TypeFolder, nil
	case "L", "link":
		return TypeLink, nil
	default:
		return TypeFile, fmt.Errorf("unknown item type %q", s)
	}
}

// Tag returns the single-letter encoding of the type.
func (t ItemType) Tag() string {
	switch t {
	case TypeFolder:
		return "D"
	case TypeLink:
		return "L"
	default:
		return "F"
	}
}
