package merge

import (
	"path"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// LinkStats accumulates per-fragment rewrite accounting. Failures are never
// fatal - a broken reference is reported and the link left as the author
// wrote it.
type LinkStats struct {
	Rewritten int
	Failed    int
	Stripped  int
}

func (s *LinkStats) Add(o LinkStats) {
	s.Rewritten += o.Rewritten
	s.Failed += o.Failed
	s.Stripped += o.Stripped
}

// RewriteLinks is pass two for one fragment: every internal reference is
// rewritten into the flattened document's namespace using the global
// registry. Cross-origin links are left alone. Links to page number anchors
// are unwrapped (text preserved) because physical page anchors from the
// source cannot survive flattening.
func RewriteLinks(frag *Fragment, reg *Registry, log *zap.Logger) LinkStats {
	var stats LinkStats
	var strip []*html.Node

	walkElements(frag.Doc, func(n *html.Node) {
		if n.Data != "a" {
			return
		}
		href, ok := getAttr(n, "href")
		if !ok || href == "" || hasScheme(href) {
			return
		}

		if file, anchor, hasAnchor := strings.Cut(href, "#"); hasAnchor && strings.HasPrefix(anchor, "page_") {
			// stale pagination link from the source, keep the text only
			strip = append(strip, n)
			stats.Stripped++
			return
		} else if hasAnchor && file != "" {
			rewriteCrossFileLink(n, frag, reg, file, anchor, href, &stats, log)
		} else if hasAnchor {
			rewriteSameFileLink(n, frag, reg, anchor)
			stats.Rewritten++
		} else if isMarkupPath(href) {
			rewriteFileLink(n, frag, reg, href, &stats, log)
		}
	})

	// unwrapping mutates the tree, do it outside the walk
	for _, n := range strip {
		unwrap(n)
	}
	return stats
}

// rewriteCrossFileLink resolves "path#anchor" against the registry trying
// progressively looser key shapes: the exact reference, the basename
// variant, then the reference resolved against the current fragment's
// directory with ../ segments collapsed. First hit wins.
func rewriteCrossFileLink(n *html.Node, frag *Fragment, reg *Registry, file, anchor, href string, stats *LinkStats, log *zap.Logger) {
	candidates := []string{
		file + "#" + anchor,
		path.Base(file) + "#" + anchor,
	}
	if !strings.HasPrefix(file, "/") {
		resolved := path.Clean(path.Join(path.Dir(frag.Path), file))
		candidates = append(candidates, resolved+"#"+anchor)
	}

	if global, ok := Resolve(candidates, reg.LookupID); ok {
		setAttr(n, "href", "#"+global)
		stats.Rewritten++
		return
	}
	stats.Failed++
	log.Warn("Broken cross-file link",
		zap.String("fragment", frag.Path), zap.String("href", href), zap.Strings("tried", candidates))
}

// rewriteSameFileLink handles bare "#anchor" references. The anchor is first
// looked up globally - it may be registered under a more specific cross-file
// key too - and only then falls back to the current fragment's prefix.
func rewriteSameFileLink(n *html.Node, frag *Fragment, reg *Registry, anchor string) {
	if global, ok := reg.LookupID(anchor); ok {
		setAttr(n, "href", "#"+global)
		return
	}
	setAttr(n, "href", "#"+GlobalID(frag.Prefix, anchor))
}

// rewriteFileLink points an anchor-less file reference at the target
// fragment's own section id.
func rewriteFileLink(n *html.Node, frag *Fragment, reg *Registry, href string, stats *LinkStats, log *zap.Logger) {
	candidates := []string{href, path.Base(href)}
	if !strings.HasPrefix(href, "/") {
		candidates = append(candidates, path.Clean(path.Join(path.Dir(frag.Path), href)))
	}

	if prefix, ok := Resolve(candidates, reg.LookupPrefix); ok {
		setAttr(n, "href", "#"+prefix)
		stats.Rewritten++
		return
	}
	stats.Failed++
	log.Warn("Broken file link", zap.String("fragment", frag.Path), zap.String("href", href))
}

func isMarkupPath(href string) bool {
	switch strings.ToLower(path.Ext(href)) {
	case ".html", ".xhtml", ".htm":
		return true
	}
	return false
}
