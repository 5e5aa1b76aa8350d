// Package merge flattens the book's spine-ordered fragments into a single
// master document with globally unique element ids and rewritten internal
// links. It is a two-pass process: first the global id registry is built over
// all fragments, then every fragment is rewritten against it. The second pass
// cannot start before the first completes since links may point forward in
// the reading order.
package merge

import (
	"os"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	"epc/epub"
)

// Fragment is one spine content document with its parsed tree. The tree is
// mutated in place during the rewrite pass.
type Fragment struct {
	// Path locates the fragment inside the container (slash form, relative
	// to the container root). It is the stable fragment identifier.
	Path string
	// Prefix is the deterministic id prefix derived from Path.
	Prefix string
	Doc    *html.Node
}

// LoadFragments parses every content-bearing spine item in reading order.
// Items that are not markup are skipped silently, items that cannot be read
// or decoded are skipped with a warning - a partially loaded book is still
// convertible.
func LoadFragments(book *epub.Book, log *zap.Logger) []*Fragment {
	var frags []*Fragment
	for _, it := range book.SpineItems() {
		if !it.IsContent() {
			continue
		}
		fragPath := book.ItemPath(it)

		f, err := os.Open(book.AbsPath(it))
		if err != nil {
			log.Warn("Unable to open fragment, skipping", zap.String("fragment", fragPath), zap.Error(err))
			continue
		}

		// html charset detection handles legacy encodings declared in meta
		// tags or the media type
		r, err := charset.NewReader(f, it.MediaType)
		if err != nil {
			f.Close()
			log.Warn("Unable to decode fragment, skipping", zap.String("fragment", fragPath), zap.Error(err))
			continue
		}
		doc, err := html.Parse(r)
		f.Close()
		if err != nil {
			log.Warn("Unable to parse fragment, skipping", zap.String("fragment", fragPath), zap.Error(err))
			continue
		}

		frags = append(frags, &Fragment{
			Path:   fragPath,
			Prefix: MakePrefix(fragPath),
			Doc:    doc,
		})
	}
	return frags
}
