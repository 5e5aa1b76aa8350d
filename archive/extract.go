package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/text/encoding"
)

// Extract unpacks all files from the archive into dir preserving the archive
// layout. When cp is not nil it is used to convert non UTF-8 entry names,
// otherwise such names are used as is. Walk validates raw entry names, but
// code-page conversion can turn innocuous looking bytes into traversal
// components, so decoded names are validated again before building paths.
func Extract(archive, dir string, cp encoding.Encoding) error {
	return Walk(archive, "", func(_ string, f *zip.File) error {
		name := f.FileHeader.Name
		if cp != nil && f.FileHeader.NonUTF8 {
			if n, err := cp.NewDecoder().String(name); err == nil {
				name = n
			}
		}
		if !isSafePath(name) {
			return fmt.Errorf("zip entry %q: unsafe path (absolute or contains path traversal)", name)
		}

		dst := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
			return fmt.Errorf("unable to create directory for %q: %w", name, err)
		}

		r, err := f.Open()
		if err != nil {
			return fmt.Errorf("unable to open archive entry %q: %w", name, err)
		}
		defer r.Close()

		w, err := os.Create(dst)
		if err != nil {
			return fmt.Errorf("unable to create %q: %w", dst, err)
		}
		defer w.Close()

		if _, err := io.Copy(w, r); err != nil {
			return fmt.Errorf("unable to extract %q: %w", name, err)
		}
		return nil
	})
}
