// Package pdf recovers anchor locations from the rendered result and writes
// the reconstructed outline back into it.
package pdf

import (
	"strings"

	pdflib "github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"epc/config"
)

// BuildPageMap scans the paginated result for the given identifier
// candidates and returns a map from identifier to zero-based page index.
// Pages are visited in order and the first page containing a candidate wins,
// later occurrences are ignored. The scan is best effort twice over: page
// text is matched by literal substring and link annotations are inspected
// for embedded identifiers, because the layout engine makes no promise of
// preserving source anchor metadata. Candidates found nowhere are simply
// absent from the result.
func BuildPageMap(path string, candidates []string, cfg *config.OutlineConfig, log *zap.Logger) (map[string]int, error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	found := make(map[string]int)
	pending := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		pending[c] = struct{}{}
	}

	numPages := reader.NumPage()
	for i := 1; i <= numPages && len(pending) > 0; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		if cfg.ScanText {
			scanPageText(page, i-1, pending, found, log)
		}
		if cfg.ScanAnnotations {
			scanPageAnnotations(page, i-1, pending, found)
		}
	}

	log.Info("Anchor locations recovered",
		zap.Int("pages", numPages), zap.Int("found", len(found)), zap.Int("missing", len(pending)))
	return found, nil
}

func bind(id string, pageIdx int, pending map[string]struct{}, found map[string]int) {
	found[id] = pageIdx
	delete(pending, id)
}

// scanPageText matches still unmapped candidates against the page's plain
// text. Extraction may panic on malformed content streams, one bad page must
// not take down the whole scan.
func scanPageText(page pdflib.Page, pageIdx int, pending map[string]struct{}, found map[string]int, log *zap.Logger) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn("Page text extraction failed", zap.Int("page", pageIdx), zap.Any("cause", r))
		}
	}()

	text, err := page.GetPlainText(nil)
	if err != nil {
		log.Debug("Unable to read page text", zap.Int("page", pageIdx), zap.Error(err))
		return
	}
	for id := range pending {
		if strings.Contains(text, id) {
			bind(id, pageIdx, pending, found)
		}
	}
}

// scanPageAnnotations looks for candidates embedded in the page's link
// annotation records (action URIs and named destinations).
func scanPageAnnotations(page pdflib.Page, pageIdx int, pending map[string]struct{}, found map[string]int) {
	defer func() {
		recover() // malformed annotation dictionaries are not worth a warning
	}()

	annots := page.V.Key("Annots")
	if annots.Kind() != pdflib.Array {
		return
	}
	for j := 0; j < annots.Len(); j++ {
		for _, ref := range annotationTargets(annots.Index(j)) {
			for id := range pending {
				if strings.Contains(ref, id) {
					bind(id, pageIdx, pending, found)
				}
			}
		}
	}
}

func annotationTargets(annot pdflib.Value) []string {
	var refs []string
	if uri := annot.Key("A").Key("URI"); uri.Kind() == pdflib.String {
		refs = append(refs, uri.RawString())
	}
	switch dest := annot.Key("Dest"); dest.Kind() {
	case pdflib.String:
		refs = append(refs, dest.RawString())
	case pdflib.Name:
		refs = append(refs, dest.Name())
	}
	return refs
}
