// Package epub reads the structure of an unpacked EPUB container: the OCF
// container descriptor, the OPF package document (metadata, manifest, spine)
// and the navigation documents (EPUB3 nav or NCX).
package epub

import (
	"path"
	"path/filepath"
	"strings"
)

// Item is a single manifest entry of the package document.
type Item struct {
	ID         string
	Href       string // relative to the package document directory
	MediaType  string
	Properties string
}

// IsContent reports whether the item is a content-bearing markup document.
// Classification is driven by the declared media type with a file name
// extension fallback, matching what reading systems accept in the wild.
func (i *Item) IsContent() bool {
	mt := strings.ToLower(i.MediaType)
	if strings.Contains(mt, "html") || strings.Contains(mt, "xhtml") {
		return true
	}
	switch strings.ToLower(path.Ext(i.Href)) {
	case ".html", ".xhtml", ".htm":
		return true
	}
	return false
}

// IsStylesheet reports whether the item carries CSS.
func (i *Item) IsStylesheet() bool {
	if strings.Contains(strings.ToLower(i.MediaType), "css") {
		return true
	}
	return strings.EqualFold(path.Ext(i.Href), ".css")
}

// HasProperty reports whether space separated OPF properties attribute
// contains the requested value.
func (i *Item) HasProperty(p string) bool {
	for _, f := range strings.Fields(i.Properties) {
		if f == p {
			return true
		}
	}
	return false
}

// Metadata carries the subset of package metadata the conversion needs.
type Metadata struct {
	Title      string
	Authors    []string
	Identifier string
	Language   string
}

// Book is the parsed structure of an unpacked EPUB container.
type Book struct {
	// RootDir is the directory the container was extracted to.
	RootDir string
	// OPFDir is the package document directory relative to the container
	// root, in slash form. Manifest hrefs are relative to it.
	OPFDir string

	Metadata Metadata
	Manifest []Item
	// Spine holds manifest item ids in reading order.
	Spine []string

	// NCXID and NavID identify navigation documents in the manifest when
	// present.
	NCXID string
	NavID string

	itemsByID map[string]*Item
}

// Item returns the manifest item with the given id.
func (b *Book) Item(id string) (*Item, bool) {
	it, ok := b.itemsByID[id]
	return it, ok
}

// SpineItems returns manifest items in reading order. Idrefs without a
// matching manifest entry are skipped.
func (b *Book) SpineItems() []*Item {
	items := make([]*Item, 0, len(b.Spine))
	for _, idref := range b.Spine {
		if it, ok := b.itemsByID[idref]; ok {
			items = append(items, it)
		}
	}
	return items
}

// ItemPath returns the item location relative to the container root in slash
// form. This is the stable fragment identifier used throughout conversion.
func (b *Book) ItemPath(it *Item) string {
	return path.Clean(path.Join(b.OPFDir, it.Href))
}

// AbsPath returns the item location on the file system.
func (b *Book) AbsPath(it *Item) string {
	return filepath.Join(b.RootDir, filepath.FromSlash(b.ItemPath(it)))
}
