package merge

import (
	"fmt"
	"html"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	xhtml "golang.org/x/net/html"

	"epc/config"
	"epc/epub"
)

// Result summarizes the assembly pass.
type Result struct {
	Master    string
	Processed int
	Total     int
	Links     LinkStats
	IDs       int
}

// BuildMaster runs the rewrite pass over every fragment and flattens them
// into a single self-contained HTML document in spine order. Every fragment
// body is wrapped in a section carrying the fragment prefix as its id so
// that whole-file links keep working after flattening.
func BuildMaster(book *epub.Book, frags []*Fragment, reg *Registry, cfg *config.DocumentConfig, extraStyle string, log *zap.Logger) (*Result, error) {
	res := &Result{Total: len(frags)}

	var body strings.Builder
	for _, frag := range frags {
		stats := RewriteLinks(frag, reg, log)
		res.Links.Add(stats)
		res.IDs += DeduplicateIDs(frag)
		FixImagePaths(frag, book.RootDir, log)

		b := findBody(frag.Doc)
		if b == nil {
			log.Warn("Fragment has no body, skipping", zap.String("fragment", frag.Path))
			continue
		}

		body.WriteString(fmt.Sprintf("<section id=%q class=\"chapter\">\n", frag.Prefix))
		for c := b.FirstChild; c != nil; c = c.NextSibling {
			if err := xhtml.Render(&body, c); err != nil {
				return nil, fmt.Errorf("unable to render fragment %s: %w", frag.Path, err)
			}
		}
		body.WriteString("\n</section>\n")
		res.Processed++
	}
	if res.Processed == 0 {
		return nil, fmt.Errorf("book has no renderable content")
	}

	title := book.Metadata.Title
	if len(title) == 0 {
		title = "Untitled"
	}
	ident := book.Metadata.Identifier
	if len(ident) == 0 {
		ident = uuid.New().String()
	}

	var doc strings.Builder
	doc.WriteString("<!DOCTYPE html>\n<html")
	if len(book.Metadata.Language) > 0 {
		fmt.Fprintf(&doc, " lang=%q", book.Metadata.Language)
	}
	doc.WriteString(">\n<head>\n<meta charset=\"utf-8\"/>\n")
	fmt.Fprintf(&doc, "<title>%s</title>\n", html.EscapeString(title))
	fmt.Fprintf(&doc, "<meta name=\"identifier\" content=%q/>\n", ident)
	for _, a := range book.Metadata.Authors {
		fmt.Fprintf(&doc, "<meta name=\"author\" content=%q/>\n", a)
	}
	doc.WriteString("<style>\n")
	doc.WriteString(CollectCSS(book, log))
	doc.WriteString(pageCSS(&cfg.Page))
	if len(extraStyle) > 0 {
		doc.WriteString(extraStyle)
		doc.WriteString("\n")
	}
	doc.WriteString("</style>\n</head>\n<body>\n")
	doc.WriteString(body.String())
	doc.WriteString("</body>\n</html>\n")

	res.Master = doc.String()
	log.Debug("Master document assembled",
		zap.Int("fragments", res.Processed),
		zap.Int("ids", res.IDs),
		zap.Int("links", res.Links.Rewritten),
		zap.Int("failed", res.Links.Failed),
		zap.Int("stripped", res.Links.Stripped))
	return res, nil
}

// pageCSS turns page geometry configuration into @page and chapter rules for
// the layout engine.
func pageCSS(page *config.PageConfig) string {
	var b strings.Builder
	fmt.Fprintf(&b, "@page { size: %s; margin: %s; }\n", page.Size, page.Margin)
	fmt.Fprintf(&b, "section.chapter { break-before: %s; }\n", page.BreakBefore)
	if len(page.LinkColor) > 0 {
		fmt.Fprintf(&b, "a { color: %s; }\n", page.LinkColor)
	}
	if page.KeepHeadings {
		b.WriteString("h1, h2, h3, h4, h5, h6 { break-after: avoid; }\n")
	}
	return b.String()
}
