package merge

import (
	"strings"

	"golang.org/x/net/html"
)

// DeduplicateIDs renames every identified element by prepending the fragment
// prefix and fixes same-file links that referenced the old bare id. Runs
// after RewriteLinks so references already resolved to other fragments'
// global ids are never double-prefixed. After this pass over every fragment
// no two elements of the merged document share an id.
func DeduplicateIDs(frag *Fragment) int {
	idMap := make(map[string]string)

	walkElements(frag.Doc, func(n *html.Node) {
		old, ok := getAttr(n, "id")
		if !ok || old == "" {
			return
		}
		renamed := GlobalID(frag.Prefix, old)
		setAttr(n, "id", renamed)
		idMap[old] = renamed
	})

	walkElements(frag.Doc, func(n *html.Node) {
		if n.Data != "a" {
			return
		}
		href, ok := getAttr(n, "href")
		if !ok || !strings.HasPrefix(href, "#") {
			return
		}
		if renamed, ok := idMap[href[1:]]; ok {
			setAttr(n, "href", "#"+renamed)
		}
	})

	return len(idMap)
}
