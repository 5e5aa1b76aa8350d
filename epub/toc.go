package epub

import (
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/beevik/etree"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// TOCNode is one entry of the book's native table of contents. Target keeps
// the "path#anchor" or bare "path" convention, with path relative to the
// container root in slash form. The shape is irregular by nature: a node may
// carry children, be a pure grouping without target, or be a leaf.
type TOCNode struct {
	Title    string
	Target   string
	Children []TOCNode
}

// LoadTOC reads the book's table of contents, preferring the EPUB3 nav
// document and falling back to NCX. An absent or malformed TOC is not an
// error: conversion proceeds without bookmarks.
func (b *Book) LoadTOC(log *zap.Logger) []TOCNode {
	if b.NavID != "" {
		if it, ok := b.Item(b.NavID); ok {
			if toc, err := b.readNav(it); err != nil {
				log.Warn("Unable to read nav document, falling back to NCX", zap.String("href", it.Href), zap.Error(err))
			} else if len(toc) > 0 {
				return toc
			}
		}
	}
	if b.NCXID != "" {
		if it, ok := b.Item(b.NCXID); ok {
			toc, err := b.readNCX(it)
			if err != nil {
				log.Warn("Unable to read NCX document", zap.String("href", it.Href), zap.Error(err))
				return nil
			}
			return toc
		}
	}
	log.Debug("Book declares no table of contents")
	return nil
}

// readNCX parses the NCX navMap into TOC nodes.
func (b *Book) readNCX(it *Item) ([]TOCNode, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromFile(b.AbsPath(it)); err != nil {
		return nil, err
	}

	root := doc.Root()
	if root == nil || root.Tag != "ncx" {
		return nil, fmt.Errorf("unexpected root element")
	}
	navMap := root.SelectElement("navMap")
	if navMap == nil {
		return nil, fmt.Errorf("no navMap element")
	}

	baseDir := path.Dir(b.ItemPath(it))
	var parse func(e *etree.Element) []TOCNode
	parse = func(e *etree.Element) []TOCNode {
		var nodes []TOCNode
		for _, np := range e.SelectElements("navPoint") {
			node := TOCNode{}
			if lbl := np.FindElement("navLabel/text"); lbl != nil {
				node.Title = strings.TrimSpace(lbl.Text())
			}
			if content := np.SelectElement("content"); content != nil {
				node.Target = resolveTarget(baseDir, content.SelectAttrValue("src", ""))
			}
			node.Children = parse(np)
			if node.Title == "" && node.Target == "" && len(node.Children) == 0 {
				continue
			}
			nodes = append(nodes, node)
		}
		return nodes
	}
	return parse(navMap), nil
}

// readNav parses the EPUB3 navigation document. Only the toc nav is used.
func (b *Book) readNav(it *Item) ([]TOCNode, error) {
	f, err := os.Open(b.AbsPath(it))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc, err := html.Parse(f)
	if err != nil {
		return nil, err
	}

	nav := findTOCNav(doc)
	if nav == nil {
		return nil, fmt.Errorf("no toc nav element")
	}
	baseDir := path.Dir(b.ItemPath(it))
	if ol := findChildElement(nav, "ol"); ol != nil {
		return parseNavList(ol, baseDir), nil
	}
	return nil, nil
}

// findTOCNav locates <nav epub:type="toc">, or the first nav element when no
// explicitly typed one exists.
func findTOCNav(n *html.Node) *html.Node {
	var first *html.Node
	var walk func(*html.Node) *html.Node
	walk = func(n *html.Node) *html.Node {
		if n.Type == html.ElementNode && n.Data == "nav" {
			if first == nil {
				first = n
			}
			for _, a := range n.Attr {
				if strings.HasSuffix(a.Key, "type") && a.Val == "toc" {
					return n
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if found := walk(c); found != nil {
				return found
			}
		}
		return nil
	}
	if typed := walk(n); typed != nil {
		return typed
	}
	return first
}

func parseNavList(ol *html.Node, baseDir string) []TOCNode {
	var nodes []TOCNode
	for li := ol.FirstChild; li != nil; li = li.NextSibling {
		if li.Type != html.ElementNode || li.Data != "li" {
			continue
		}
		node := TOCNode{}
		if a := findChildElement(li, "a"); a != nil {
			node.Title = nodeText(a)
			for _, attr := range a.Attr {
				if attr.Key == "href" {
					node.Target = resolveTarget(baseDir, attr.Val)
				}
			}
		} else if span := findChildElement(li, "span"); span != nil {
			// grouping entry without a target
			node.Title = nodeText(span)
		}
		if sub := findChildElement(li, "ol"); sub != nil {
			node.Children = parseNavList(sub, baseDir)
		}
		if node.Title == "" && node.Target == "" && len(node.Children) == 0 {
			continue
		}
		nodes = append(nodes, node)
	}
	return nodes
}

func findChildElement(n *html.Node, name string) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == name {
			return c
		}
	}
	return nil
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

// resolveTarget rebases a TOC href against the TOC document directory so the
// path part matches fragment identifiers used by the registry.
func resolveTarget(baseDir, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	file, anchor, hasAnchor := strings.Cut(href, "#")
	if file == "" {
		if hasAnchor {
			return "#" + anchor
		}
		return ""
	}
	resolved := path.Clean(path.Join(baseDir, file))
	if hasAnchor {
		return resolved + "#" + anchor
	}
	return resolved
}
