package outline

import (
	"path"
	"strings"

	"go.uber.org/zap"

	"epc/merge"
)

// Node is one reconstructed bookmark. Page is the zero-based physical page
// the bookmark points at. Children are owned by their parent, the whole
// structure is a forest built strictly in entry order so cycles cannot
// occur.
type Node struct {
	Title    string
	Page     int
	Children []*Node
}

// Stats reports outline reconstruction completeness.
type Stats struct {
	Added   int
	Skipped int
}

// Build reconstructs the bookmark forest from the flat entry sequence. Each
// entry's target is resolved to a global id with the same fallback chain the
// link rewriter uses, then to a page through the anchor-to-page map trying
// the id as written, lowercased and with underscores turned into hyphens.
// An entry whose id never made it onto a page is still added pointing at
// page zero - a mis-pointed bookmark beats a missing one. Only entries with
// nothing to show (no title) are skipped.
func Build(entries []Entry, reg *merge.Registry, pages map[string]int, log *zap.Logger) ([]*Node, Stats) {
	var (
		roots []*Node
		stats Stats
	)

	type frame struct {
		depth int
		node  *Node
	}
	var stack []frame

	for _, e := range entries {
		if strings.TrimSpace(e.Title) == "" {
			stats.Skipped++
			log.Debug("Skipping untitled outline entry", zap.String("target", e.Target))
			continue
		}

		id := resolveTarget(e.Target, reg)
		page, ok := lookupPage(id, pages)
		if !ok {
			log.Debug("Outline target not found on any page, defaulting to start",
				zap.String("title", e.Title), zap.String("id", id))
		}
		node := &Node{Title: e.Title, Page: page}

		for len(stack) > 0 && stack[len(stack)-1].depth >= e.Depth {
			stack = stack[:len(stack)-1]
		}
		if len(stack) == 0 {
			roots = append(roots, node)
		} else {
			parent := stack[len(stack)-1].node
			parent.Children = append(parent.Children, node)
		}
		stack = append(stack, frame{depth: e.Depth, node: node})
		stats.Added++
	}

	log.Info("Outline reconstructed", zap.Int("added", stats.Added), zap.Int("skipped", stats.Skipped))
	return roots, stats
}

// resolveTarget maps a TOC target to a global id using the shared candidate
// fallback. When nothing resolves the raw anchor text is used as a last
// resort so the page scan still has something to match.
func resolveTarget(target string, reg *merge.Registry) string {
	file, anchor, hasAnchor := strings.Cut(target, "#")
	if hasAnchor && anchor != "" {
		candidates := []string{
			file + "#" + anchor,
			path.Base(file) + "#" + anchor,
			path.Clean(file) + "#" + anchor,
			anchor,
		}
		if global, ok := merge.Resolve(candidates, reg.LookupID); ok {
			return global
		}
		return anchor
	}

	candidates := []string{file, path.Base(file), path.Clean(file)}
	if prefix, ok := merge.Resolve(candidates, reg.LookupPrefix); ok {
		return prefix
	}
	return merge.MakePrefix(file)
}

// lookupPage tries the identifier variants a renderer is likely to have
// preserved in its text or destination records.
func lookupPage(id string, pages map[string]int) (int, bool) {
	for _, v := range []string{id, strings.ToLower(id), strings.ReplaceAll(id, "_", "-")} {
		if p, ok := pages[v]; ok {
			return p, true
		}
	}
	return 0, false
}
