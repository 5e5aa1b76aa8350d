package epub

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"
)

const testContainerXML = `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

const testOPF = `<?xml version="1.0" encoding="utf-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0" unique-identifier="uid">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>Test Book</dc:title>
    <dc:creator>First Author</dc:creator>
    <dc:creator>Second Author</dc:creator>
    <dc:identifier id="uid">urn:uuid:12345</dc:identifier>
    <dc:language>en</dc:language>
  </metadata>
  <manifest>
    <item id="cover" href="text/cover.xhtml" media-type="application/xhtml+xml"/>
    <item id="ch1" href="text/ch01.xhtml" media-type="application/xhtml+xml"/>
    <item id="ch2" href="text/ch02.xhtml" media-type="application/xhtml+xml"/>
    <item id="css" href="styles/book.css" media-type="text/css"/>
    <item id="nav" href="nav.xhtml" properties="nav" media-type="application/xhtml+xml"/>
    <item id="ncx" href="toc.ncx" media-type="application/x-dtbncx+xml"/>
    <item id="img" href="images/pic.png" media-type="image/png"/>
  </manifest>
  <spine toc="ncx">
    <itemref idref="cover"/>
    <itemref idref="ch1"/>
    <itemref idref="ch2"/>
    <itemref idref="missing"/>
  </spine>
</package>`

const testNCX = `<?xml version="1.0" encoding="utf-8"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">
  <navMap>
    <navPoint id="n1" playOrder="1">
      <navLabel><text>Chapter 1</text></navLabel>
      <content src="text/ch01.xhtml"/>
      <navPoint id="n1.1" playOrder="2">
        <navLabel><text>Section 1.1</text></navLabel>
        <content src="text/ch01.xhtml#sec11"/>
      </navPoint>
    </navPoint>
    <navPoint id="n2" playOrder="3">
      <navLabel><text>Chapter 2</text></navLabel>
      <content src="text/ch02.xhtml"/>
    </navPoint>
  </navMap>
</ncx>`

const testNav = `<?xml version="1.0" encoding="utf-8"?>
<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops">
<head><title>Contents</title></head>
<body>
  <nav epub:type="toc">
    <ol>
      <li><a href="text/ch01.xhtml">Chapter 1</a>
        <ol>
          <li><a href="text/ch01.xhtml#sec11">Section 1.1</a></li>
        </ol>
      </li>
      <li><span>Part Two</span>
        <ol>
          <li><a href="text/ch02.xhtml">Chapter 2</a></li>
        </ol>
      </li>
    </ol>
  </nav>
</body>
</html>`

// writeTestBook lays out a minimal extracted EPUB under a temp dir.
func writeTestBook(t *testing.T, withNav bool) string {
	t.Helper()
	root := t.TempDir()

	files := map[string]string{
		"META-INF/container.xml": testContainerXML,
		"OEBPS/content.opf":      testOPF,
		"OEBPS/toc.ncx":          testNCX,
		"OEBPS/text/cover.xhtml": `<html><body><p>cover</p></body></html>`,
		"OEBPS/text/ch01.xhtml":  `<html><body><h1 id="c1">One</h1><h2 id="sec11">1.1</h2></body></html>`,
		"OEBPS/text/ch02.xhtml":  `<html><body><h1 id="c2">Two</h1></body></html>`,
		"OEBPS/styles/book.css":  `body { margin: 0 }`,
	}
	if withNav {
		files["OEBPS/nav.xhtml"] = testNav
	}
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatalf("mkdir for %s: %v", name, err)
		}
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return root
}

func TestOpen(t *testing.T) {
	root := writeTestBook(t, true)
	log := zaptest.NewLogger(t)

	book, err := Open(root, log)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if book.OPFDir != "OEBPS" {
		t.Errorf("OPFDir = %q, want OEBPS", book.OPFDir)
	}
	if book.Metadata.Title != "Test Book" {
		t.Errorf("Title = %q, want Test Book", book.Metadata.Title)
	}
	if len(book.Metadata.Authors) != 2 {
		t.Errorf("Authors = %v, want 2 entries", book.Metadata.Authors)
	}
	if book.Metadata.Identifier != "urn:uuid:12345" {
		t.Errorf("Identifier = %q", book.Metadata.Identifier)
	}
	if book.NCXID != "ncx" {
		t.Errorf("NCXID = %q, want ncx", book.NCXID)
	}
	if book.NavID != "nav" {
		t.Errorf("NavID = %q, want nav", book.NavID)
	}

	spine := book.SpineItems()
	if len(spine) != 3 {
		t.Fatalf("SpineItems() = %d items, want 3 (missing idref skipped)", len(spine))
	}
	if got := book.ItemPath(spine[1]); got != "OEBPS/text/ch01.xhtml" {
		t.Errorf("ItemPath = %q, want OEBPS/text/ch01.xhtml", got)
	}
}

func TestOpenMissingContainer(t *testing.T) {
	if _, err := Open(t.TempDir(), zaptest.NewLogger(t)); err == nil {
		t.Error("Open() expected error for empty directory")
	}
}

func TestItemClassification(t *testing.T) {
	tests := []struct {
		name    string
		item    Item
		content bool
		css     bool
	}{
		{"xhtml by media type", Item{Href: "a.bin", MediaType: "application/xhtml+xml"}, true, false},
		{"html by extension", Item{Href: "ch.html", MediaType: "application/octet-stream"}, true, false},
		{"htm by extension", Item{Href: "ch.htm"}, true, false},
		{"css by media type", Item{Href: "s.data", MediaType: "text/css"}, false, true},
		{"css by extension", Item{Href: "s.css"}, false, true},
		{"image", Item{Href: "pic.png", MediaType: "image/png"}, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.item.IsContent(); got != tt.content {
				t.Errorf("IsContent() = %v, want %v", got, tt.content)
			}
			if got := tt.item.IsStylesheet(); got != tt.css {
				t.Errorf("IsStylesheet() = %v, want %v", got, tt.css)
			}
		})
	}
}

func TestLoadTOCFromNav(t *testing.T) {
	root := writeTestBook(t, true)
	log := zaptest.NewLogger(t)

	book, err := Open(root, log)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	toc := book.LoadTOC(log)
	if len(toc) != 2 {
		t.Fatalf("LoadTOC() = %d roots, want 2", len(toc))
	}
	if toc[0].Title != "Chapter 1" || toc[0].Target != "OEBPS/text/ch01.xhtml" {
		t.Errorf("first entry = %+v", toc[0])
	}
	if len(toc[0].Children) != 1 || toc[0].Children[0].Target != "OEBPS/text/ch01.xhtml#sec11" {
		t.Errorf("first entry children = %+v", toc[0].Children)
	}
	// grouping entry keeps its children but has no target
	if toc[1].Title != "Part Two" || toc[1].Target != "" {
		t.Errorf("second entry = %+v", toc[1])
	}
	if len(toc[1].Children) != 1 || toc[1].Children[0].Title != "Chapter 2" {
		t.Errorf("second entry children = %+v", toc[1].Children)
	}
}

func TestLoadTOCFromNCX(t *testing.T) {
	root := writeTestBook(t, false)
	log := zaptest.NewLogger(t)

	book, err := Open(root, log)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	toc := book.LoadTOC(log)
	if len(toc) != 2 {
		t.Fatalf("LoadTOC() = %d roots, want 2", len(toc))
	}
	if toc[0].Target != "OEBPS/text/ch01.xhtml" {
		t.Errorf("first target = %q", toc[0].Target)
	}
	if len(toc[0].Children) != 1 || toc[0].Children[0].Title != "Section 1.1" {
		t.Errorf("nested navPoint = %+v", toc[0].Children)
	}
}

func TestLoadTOCAbsent(t *testing.T) {
	root := writeTestBook(t, false)
	log := zaptest.NewLogger(t)

	book, err := Open(root, log)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	book.NCXID = ""
	book.NavID = ""

	if toc := book.LoadTOC(log); toc != nil {
		t.Errorf("LoadTOC() = %v, want nil for book without navigation", toc)
	}
}
