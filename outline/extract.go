// Package outline rebuilds the book's navigation as PDF bookmarks: the
// native table of contents is flattened into depth-tagged entries, entry
// targets are resolved to the merged document's global ids and then to the
// physical pages those ids landed on after layout.
package outline

import (
	"epc/epub"
)

// Entry is one flattened table of contents row. Depth starts at zero for
// roots and grows by exactly one per nesting level.
type Entry struct {
	Depth  int
	Title  string
	Target string
}

// Flatten collapses the irregular native TOC tree into the ordered entry
// sequence, depth-first, preserving document order. Pure grouping nodes
// (no title, no target) are transparent: their children stay at the same
// depth. maxDepth limits nesting when positive, zero means unlimited. A nil
// or empty tree yields nil - bookmarking is then skipped entirely.
func Flatten(nodes []epub.TOCNode, maxDepth int) []Entry {
	var out []Entry
	flatten(nodes, 0, maxDepth, &out)
	return out
}

func flatten(nodes []epub.TOCNode, depth, maxDepth int, out *[]Entry) {
	if maxDepth > 0 && depth >= maxDepth {
		return
	}
	for _, n := range nodes {
		if n.Title == "" && n.Target == "" {
			flatten(n.Children, depth, maxDepth, out)
			continue
		}
		*out = append(*out, Entry{Depth: depth, Title: n.Title, Target: n.Target})
		flatten(n.Children, depth+1, maxDepth, out)
	}
}
