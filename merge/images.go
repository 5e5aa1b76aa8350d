package merge

import (
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// FixImagePaths rewrites relative image references into absolute file://
// URLs so the external layout engine can load them from the unpacked
// container. References the renderer already understands (network, data,
// file) are left alone. Missing files are retried case-insensitively -
// hand-made books frequently disagree with themselves about case.
func FixImagePaths(frag *Fragment, rootDir string, log *zap.Logger) {
	fragDir := filepath.Dir(filepath.Join(rootDir, filepath.FromSlash(frag.Path)))

	walkElements(frag.Doc, func(n *html.Node) {
		if n.Data != "img" {
			return
		}
		src, ok := getAttr(n, "src")
		if !ok || src == "" || hasScheme(src) {
			return
		}

		var p string
		if strings.HasPrefix(src, "/") {
			// absolute within the container
			p = filepath.Join(rootDir, filepath.FromSlash(strings.TrimPrefix(src, "/")))
		} else {
			p = filepath.Join(fragDir, filepath.FromSlash(src))
		}
		p = filepath.Clean(p)

		if _, err := os.Stat(p); err == nil {
			setAttr(n, "src", fileURL(p))
			return
		}
		if found, ok := findCaseInsensitive(p); ok {
			setAttr(n, "src", fileURL(found))
			log.Debug("Image matched case-insensitively", zap.String("src", src), zap.String("path", found))
			return
		}
		log.Warn("Image not found", zap.String("fragment", frag.Path), zap.String("src", src))
	})
}

func fileURL(p string) string {
	return "file://" + filepath.ToSlash(p)
}

// findCaseInsensitive looks for a directory entry matching the base name of
// p ignoring case.
func findCaseInsensitive(p string) (string, bool) {
	dir, base := filepath.Split(p)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}
	for _, e := range entries {
		if strings.EqualFold(e.Name(), base) {
			return filepath.Join(dir, e.Name()), true
		}
	}
	return "", false
}
