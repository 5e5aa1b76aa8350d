package convert

import (
	"archive/zip"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
)

// isBookFile reports whether the file looks like an EPUB container. The
// cheap signature check goes first, when it is inconclusive (plain zip
// magic) the container's mimetype entry decides.
func isBookFile(path string) (bool, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".epub", ".zip":
	default:
		return false, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	head := make([]byte, 261)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return false, err
	}
	head = head[:n]

	if filetype.Is(head, "epub") {
		return true, nil
	}
	if !filetype.Is(head, "zip") {
		return false, nil
	}
	return hasEpubMimetype(path)
}

// hasEpubMimetype looks for the OCF "mimetype" entry. Some producers store
// it compressed or out of first place, which breaks the signature check but
// is still a perfectly readable book.
func hasEpubMimetype(path string) (bool, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		// zip magic with unreadable structure is not a book, not an error
		return false, nil
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name != "mimetype" {
			continue
		}
		r, err := f.Open()
		if err != nil {
			return false, nil
		}
		data, err := io.ReadAll(io.LimitReader(r, 64))
		r.Close()
		if err != nil {
			return false, nil
		}
		return strings.TrimSpace(string(data)) == "application/epub+zip", nil
	}
	return false, nil
}
