package merge

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"

	"epc/epub"
)

// CollectCSS gathers every stylesheet declared in the manifest, rewrites
// url() references to absolute file:// URLs against the unpacked container
// and concatenates the results in manifest order.
func CollectCSS(book *epub.Book, log *zap.Logger) string {
	var sheets []string
	for i := range book.Manifest {
		it := &book.Manifest[i]
		if !it.IsStylesheet() {
			continue
		}
		data, err := os.ReadFile(book.AbsPath(it))
		if err != nil {
			log.Warn("Unable to read stylesheet", zap.String("href", it.Href), zap.Error(err))
			continue
		}
		cssDir := filepath.Dir(book.AbsPath(it))
		sheets = append(sheets, string(rewriteCSSURLs(data, cssDir)))
		log.Debug("Collected stylesheet", zap.String("href", it.Href), zap.Int("bytes", len(data)))
	}
	if len(sheets) == 0 {
		log.Debug("Book has no stylesheets")
	}
	return strings.Join(sheets, "\n\n")
}

// rewriteCSSURLs tokenizes the stylesheet and rewrites url() references that
// point at existing container files. Everything else passes through
// unchanged - this is a token level rewrite, not a reformat.
func rewriteCSSURLs(data []byte, cssDir string) []byte {
	var out bytes.Buffer
	lexer := css.NewLexer(parse.NewInput(bytes.NewReader(data)))

	inURLFunc := false
	for {
		tt, text := lexer.Next()
		switch tt {
		case css.ErrorToken:
			return out.Bytes()
		case css.URLToken:
			out.WriteString(rewriteURLToken(string(text), cssDir))
		case css.FunctionToken:
			inURLFunc = strings.EqualFold(string(text), "url(")
			out.Write(text)
		case css.StringToken:
			if inURLFunc {
				inner := strings.Trim(string(text), `"'`)
				out.WriteString(`'` + rewriteCSSRef(inner, cssDir) + `'`)
				inURLFunc = false
			} else {
				out.Write(text)
			}
		default:
			if tt != css.WhitespaceToken {
				inURLFunc = false
			}
			out.Write(text)
		}
	}
}

// rewriteURLToken handles the unquoted url(ref) token form.
func rewriteURLToken(tok, cssDir string) string {
	inner := strings.TrimSuffix(strings.TrimPrefix(tok, "url("), ")")
	inner = strings.Trim(strings.TrimSpace(inner), `"'`)
	return "url('" + rewriteCSSRef(inner, cssDir) + "')"
}

// rewriteCSSRef resolves one reference relative to the stylesheet location.
// References that do not exist on disk (or already carry a scheme) are kept
// as written.
func rewriteCSSRef(ref, cssDir string) string {
	if ref == "" || hasScheme(ref) {
		return ref
	}
	abs := filepath.Clean(filepath.Join(cssDir, filepath.FromSlash(ref)))
	if _, err := os.Stat(abs); err != nil {
		return ref
	}
	return fileURL(abs)
}
