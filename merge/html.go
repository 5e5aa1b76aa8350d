package merge

import (
	"strings"

	"golang.org/x/net/html"
)

// Small helpers over x/net/html trees. Kept local - nothing here is specific
// enough to warrant its own package.

func walkElements(n *html.Node, fn func(*html.Node)) {
	if n.Type == html.ElementNode {
		fn(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkElements(c, fn)
	}
}

func getAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// unwrap replaces the node with its own children, preserving document order.
// Used to strip link wrappers while keeping their text content.
func unwrap(n *html.Node) {
	parent := n.Parent
	if parent == nil {
		return
	}
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		parent.InsertBefore(c, n)
		c = next
	}
	parent.RemoveChild(n)
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}

// hasScheme reports whether the reference points outside the document set
// (network, mail, phone) and must be left untouched.
func hasScheme(href string) bool {
	for _, p := range []string{"http://", "https://", "mailto:", "tel:", "file://", "data:"} {
		if strings.HasPrefix(href, p) {
			return true
		}
	}
	return false
}
