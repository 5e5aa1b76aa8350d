package merge

import (
	"path"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// Registry is the global id mapping built over all fragments before any of
// them is rewritten. Every local anchor is reachable under several key
// shapes: bare id, "path#id" and "basename#id". Once built the registry is
// never mutated, downstream passes only read it.
type Registry struct {
	ids      map[string]string // lookup key -> global id
	prefixes map[string]string // fragment path (and basename) -> prefix
}

// MakePrefix derives the deterministic fragment prefix from its full path:
// path separators become underscores, the extension is dropped. Distinct
// paths always produce distinct prefixes even when basenames collide.
func MakePrefix(fragPath string) string {
	p := strings.ReplaceAll(fragPath, "/", "_")
	p = strings.ReplaceAll(p, `\`, "_")
	return strings.TrimSuffix(p, path.Ext(p))
}

// GlobalID computes the collision free id assigned to a local anchor. Pure
// function of the fragment path and the local id, so re-running conversion
// on identical input yields identical ids.
func GlobalID(prefix, localID string) string {
	return prefix + "_" + localID
}

// BuildRegistry is pass one: it scans every fragment in reading order and
// records all anchor ids under their lookup keys.
func BuildRegistry(frags []*Fragment, log *zap.Logger) *Registry {
	reg := &Registry{
		ids:      make(map[string]string),
		prefixes: make(map[string]string),
	}

	for _, frag := range frags {
		reg.prefixes[frag.Path] = frag.Prefix
		reg.prefixes[path.Base(frag.Path)] = frag.Prefix

		count := 0
		walkElements(frag.Doc, func(n *html.Node) {
			id, ok := getAttr(n, "id")
			if !ok || id == "" {
				return
			}
			global := GlobalID(frag.Prefix, id)
			reg.ids[id] = global
			reg.ids[frag.Path+"#"+id] = global
			reg.ids[path.Base(frag.Path)+"#"+id] = global
			count++
		})
		log.Debug("Registered fragment anchors",
			zap.String("fragment", frag.Path), zap.String("prefix", frag.Prefix), zap.Int("anchors", count))
	}

	log.Info("Global id registry complete",
		zap.Int("mappings", len(reg.ids)), zap.Int("fragments", len(reg.prefixes)))
	return reg
}

// LookupID returns the global id registered under the given key.
func (r *Registry) LookupID(key string) (string, bool) {
	id, ok := r.ids[key]
	return id, ok
}

// LookupPrefix returns the section prefix for a fragment path.
func (r *Registry) LookupPrefix(fragPath string) (string, bool) {
	p, ok := r.prefixes[fragPath]
	return p, ok
}

// Size returns the number of id mappings.
func (r *Registry) Size() int {
	return len(r.ids)
}

// Candidates returns the deterministic, duplicate free set of identifier
// strings that may appear in rendered output: every global id, every lookup
// key anchor, every fragment prefix. Used to recover page locations from the
// paginated result.
func (r *Registry) Candidates() []string {
	seen := make(map[string]struct{})
	for k, v := range r.ids {
		seen[v] = struct{}{}
		if _, anchor, ok := strings.Cut(k, "#"); ok {
			seen[anchor] = struct{}{}
		} else {
			seen[k] = struct{}{}
		}
	}
	for _, p := range r.prefixes {
		seen[p] = struct{}{}
	}

	out := make([]string, 0, len(seen))
	for c := range seen {
		if c != "" {
			out = append(out, c)
		}
	}
	sort.Strings(out)
	return out
}

// Resolve returns the value for the first candidate key found in lookup.
// Both the link rewriter and the outline builder share this exact fallback
// policy so the two can never drift apart.
func Resolve(candidates []string, lookup func(string) (string, bool)) (string, bool) {
	for _, c := range candidates {
		if v, ok := lookup(c); ok {
			return v, true
		}
	}
	return "", false
}
