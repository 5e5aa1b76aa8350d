package epub

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/beevik/etree"
	"go.uber.org/zap"
)

const containerPath = "META-INF/container.xml"

// Open parses the structure of an EPUB container previously extracted into
// rootDir.
func Open(rootDir string, log *zap.Logger) (*Book, error) {
	opfPath, err := readContainer(rootDir)
	if err != nil {
		return nil, fmt.Errorf("unable to locate package document: %w", err)
	}

	book := &Book{
		RootDir:   rootDir,
		OPFDir:    path.Dir(opfPath),
		itemsByID: make(map[string]*Item),
	}
	if book.OPFDir == "." {
		book.OPFDir = ""
	}

	if err := book.readPackage(filepath.Join(rootDir, filepath.FromSlash(opfPath)), log); err != nil {
		return nil, fmt.Errorf("unable to parse package document (%s): %w", opfPath, err)
	}

	log.Debug("Package document parsed",
		zap.String("opf", opfPath),
		zap.Int("manifest", len(book.Manifest)),
		zap.Int("spine", len(book.Spine)),
		zap.String("title", book.Metadata.Title))
	return book, nil
}

// readContainer returns the package document location (relative to the
// container root, slash form) declared in META-INF/container.xml.
func readContainer(rootDir string) (string, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromFile(filepath.Join(rootDir, filepath.FromSlash(containerPath))); err != nil {
		return "", err
	}

	root := doc.Root()
	if root == nil || root.Tag != "container" {
		return "", fmt.Errorf("malformed container descriptor")
	}
	for _, rf := range root.FindElements("//rootfile") {
		full := rf.SelectAttrValue("full-path", "")
		mt := rf.SelectAttrValue("media-type", "")
		if full != "" && (mt == "" || strings.Contains(mt, "oebps-package")) {
			return path.Clean(full), nil
		}
	}
	return "", fmt.Errorf("container descriptor declares no rootfile")
}

func (b *Book) readPackage(opfFile string, log *zap.Logger) error {
	data, err := os.ReadFile(opfFile)
	if err != nil {
		return err
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return err
	}

	root := doc.Root()
	if root == nil || root.Tag != "package" {
		return fmt.Errorf("unexpected root element")
	}

	for _, child := range root.ChildElements() {
		switch child.Tag {
		case "metadata":
			b.parseMetadata(child)
		case "manifest":
			b.parseManifest(child, log)
		case "spine":
			b.parseSpine(child)
		}
	}

	if len(b.Manifest) == 0 {
		return fmt.Errorf("empty manifest")
	}
	if len(b.Spine) == 0 {
		return fmt.Errorf("empty spine")
	}
	return nil
}

func (b *Book) parseMetadata(e *etree.Element) {
	for _, child := range e.ChildElements() {
		switch child.Tag {
		case "title":
			if b.Metadata.Title == "" {
				b.Metadata.Title = strings.TrimSpace(child.Text())
			}
		case "creator":
			if name := strings.TrimSpace(child.Text()); name != "" {
				b.Metadata.Authors = append(b.Metadata.Authors, name)
			}
		case "identifier":
			if b.Metadata.Identifier == "" {
				b.Metadata.Identifier = strings.TrimSpace(child.Text())
			}
		case "language":
			if b.Metadata.Language == "" {
				b.Metadata.Language = strings.TrimSpace(child.Text())
			}
		}
	}
}

func (b *Book) parseManifest(e *etree.Element, log *zap.Logger) {
	for _, item := range e.ChildElements() {
		if item.Tag != "item" {
			continue
		}
		it := Item{
			ID:         item.SelectAttrValue("id", ""),
			Href:       item.SelectAttrValue("href", ""),
			MediaType:  item.SelectAttrValue("media-type", ""),
			Properties: item.SelectAttrValue("properties", ""),
		}
		if it.ID == "" || it.Href == "" {
			log.Warn("Skipping malformed manifest item", zap.String("id", it.ID), zap.String("href", it.Href))
			continue
		}
		b.Manifest = append(b.Manifest, it)
		if it.HasProperty("nav") {
			b.NavID = it.ID
		}
		if strings.Contains(it.MediaType, "dtbncx") {
			b.NCXID = it.ID
		}
	}
	// index only after the slice stopped growing
	for i := range b.Manifest {
		b.itemsByID[b.Manifest[i].ID] = &b.Manifest[i]
	}
}

func (b *Book) parseSpine(e *etree.Element) {
	if toc := e.SelectAttrValue("toc", ""); toc != "" {
		b.NCXID = toc
	}
	for _, ref := range e.ChildElements() {
		if ref.Tag != "itemref" {
			continue
		}
		if idref := ref.SelectAttrValue("idref", ""); idref != "" {
			b.Spine = append(b.Spine, idref)
		}
	}
}
