package pdf

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"go.uber.org/zap"

	"epc/outline"
)

// ApplyOutline embeds the reconstructed bookmark forest into the rendered
// file. The rewrite goes through a temporary file in the same directory that
// is renamed over the original only after it was written completely, so a
// failure never leaves a half written result behind.
func ApplyOutline(path string, roots []*outline.Node, log *zap.Logger) error {
	if len(roots) == 0 {
		log.Debug("No bookmarks to embed")
		return nil
	}

	bms := make([]pdfcpu.Bookmark, 0, len(roots))
	for _, n := range roots {
		bms = append(bms, toBookmark(n))
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".outline-*.pdf")
	if err != nil {
		return fmt.Errorf("unable to create temporary file: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := api.AddBookmarksFile(path, tmpPath, bms, true, nil); err != nil {
		return fmt.Errorf("unable to embed bookmarks: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("unable to replace rendered file: %w", err)
	}

	log.Info("Bookmarks embedded", zap.Int("roots", len(roots)))
	return nil
}

func toBookmark(n *outline.Node) pdfcpu.Bookmark {
	bm := pdfcpu.Bookmark{
		Title:    n.Title,
		PageFrom: n.Page + 1, // outline pages are zero-based
	}
	for _, c := range n.Children {
		bm.Kids = append(bm.Kids, toBookmark(c))
	}
	return bm
}
