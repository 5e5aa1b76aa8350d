package convert

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"

	"epc/config"
	"epc/epub"
)

// Values is a struct that holds variables we make available for template expansion
type Values struct {
	Context    string
	Title      string
	Language   string
	Authors    []string
	SourceFile string
	BookID     string
}

func expandTemplate(book *epub.Book, src string, name config.TemplateFieldName, field string) (string, error) {
	funcMap := sprig.FuncMap()

	tmpl, err := template.New(string(name)).Funcs(funcMap).Parse(field)
	if err != nil {
		return "", fmt.Errorf("unable to parse template field %s: %w", name, err)
	}

	values := Values{
		Context:    string(name),
		Title:      book.Metadata.Title,
		Language:   book.Metadata.Language,
		Authors:    book.Metadata.Authors,
		SourceFile: strings.TrimSuffix(filepath.Base(src), filepath.Ext(src)),
		BookID:     book.Metadata.Identifier,
	}

	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, values); err != nil {
		return "", err
	}
	return buf.String(), nil
}
