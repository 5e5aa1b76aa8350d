package convert

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/ianaindex"

	"epc/archive"
	"epc/epub"
	"epc/merge"
	"epc/outline"
	"epc/pdf"
	"epc/render"
	"epc/state"
)

//go:embed default.css
var defaultStylesheet []byte

func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("convert")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no input source has been specified")
	}
	src, err = filepath.Abs(src)
	if err != nil {
		return err
	}

	dst := cmd.Args().Get(1)
	if len(dst) == 0 {
		if dst, err = os.Getwd(); err != nil {
			return fmt.Errorf("unable to get working directory: %w", err)
		}
	}
	if dst, err = filepath.Abs(dst); err != nil {
		return err
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Mailformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	env.ExtraStyle = defaultStylesheet
	if env.Cfg.Document.StylesheetPath != "" {
		data, err := os.ReadFile(env.Cfg.Document.StylesheetPath)
		if err != nil {
			return fmt.Errorf("unable to read style css from %q: %w", env.Cfg.Document.StylesheetPath, err)
		}
		env.ExtraStyle = data
	}

	env.NoDirs, env.Overwrite, env.KeepWorkDir = cmd.Bool("nodirs"), cmd.Bool("overwrite"), cmd.Bool("keep-work-dir")

	// Since zip "standard" does not define file name encoding we may need to
	// force archaic code page for old archives
	cp := cmd.String("force-zip-cp")
	if len(cp) > 0 {
		env.CodePage, err = ianaindex.IANA.Encoding(cp)
		if err != nil {
			log.Warn("Unknown character set specification. Ignoring...", zap.String("charset", cp), zap.Error(err))
			env.CodePage = nil
		} else {
			n, _ := ianaindex.IANA.Name(env.CodePage)
			log.Debug("Forcefully converting all non UTF-8 file names in archives", zap.String("charset", n))
		}
	}

	log.Info("Processing starting", zap.String("source", src), zap.String("destination", dst))
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	return process(ctx, src, dst, log)
}

// process handles the core conversion logic independently of CLI framework.
// It determines the input type (directory or single book) and processes
// accordingly.
func process(ctx context.Context, src, dst string, log *zap.Logger) error {
	fi, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("input source was not found (%s): %w", src, err)
	}

	if fi.Mode().IsDir() {
		if err := processDir(ctx, src, dst, log); err != nil {
			return errors.New("unable to process directory")
		}
		return nil
	}
	if !fi.Mode().IsRegular() {
		return fmt.Errorf("unexpected path mode for (%s)", src)
	}

	book, err := isBookFile(src)
	if err != nil {
		return fmt.Errorf("unable to check file type: %w", err)
	}
	if !book {
		return fmt.Errorf("input was not recognized as EPUB book (%s)", src)
	}
	if err := processBook(ctx, src, filepath.Base(src), dst, log); err != nil {
		log.Error("Unable to process file", zap.String("file", src), zap.Error(err))
	}
	return nil
}

// processDir walks directory tree finding epub files and processes them.
func processDir(ctx context.Context, dir, dst string, log *zap.Logger) (err error) {
	count := 0
	defer func() {
		if err == nil && count == 0 {
			log.Debug("Nothing to process", zap.String("dir", dir))
		}
	}()

	err = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err != nil {
			log.Warn("Skipping path", zap.String("path", path), zap.Error(err))
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		book, err := isBookFile(path)
		if err != nil {
			log.Warn("Skipping file", zap.String("file", path), zap.Error(err))
			return nil
		}
		if !book {
			log.Debug("Skipping file, not recognized as book", zap.String("file", path))
			return nil
		}

		count++

		src := strings.TrimPrefix(strings.TrimPrefix(path, dir), string(filepath.Separator))
		if err := processBook(ctx, path, src, dst, log); err != nil {
			log.Error("Unable to process file", zap.String("file", path), zap.Error(err))
		}
		return nil
	})
	return err
}

// processBook converts a single EPUB file. "src" is part of the source path
// (always including file name) relative to the original path, used to build
// the output location. "dst" is the destination directory.
func processBook(ctx context.Context, path, src, dst string, log *zap.Logger) (rerr error) {
	env := state.EnvFromContext(ctx)

	var outputName string

	log.Info("Conversion starting", zap.String("from", src))
	defer func(start time.Time) {
		// PDF processing libraries are not mature enough - if multiple books
		// are being processed we do not want to stop.
		if r := recover(); r != nil {
			log.Error("Conversion ended with panic",
				zap.Any("panic", r), zap.Duration("elapsed", time.Since(start)), zap.String("to", outputName), zap.ByteString("stack", debug.Stack()))
			rerr = fmt.Errorf("conversion panic: %v", r)
		} else {
			log.Info("Conversion completed", zap.Duration("elapsed", time.Since(start)), zap.String("to", outputName))
		}
	}(time.Now())

	workDir, err := os.MkdirTemp("", "epc-")
	if err != nil {
		return fmt.Errorf("unable to create working directory: %w", err)
	}
	defer func() {
		if env.KeepWorkDir {
			log.Info("Keeping working directory", zap.String("dir", workDir))
			return
		}
		if err := os.RemoveAll(workDir); err != nil {
			log.Warn("Unable to remove working directory", zap.String("dir", workDir), zap.Error(err))
		}
	}()

	unpackDir := filepath.Join(workDir, "book")
	if err := archive.Extract(path, unpackDir, env.CodePage); err != nil {
		return fmt.Errorf("unable to unpack book (%s): %w", src, err)
	}

	book, err := epub.Open(unpackDir, log)
	if err != nil {
		return fmt.Errorf("unable to open book (%s): %w", src, err)
	}
	toc := book.LoadTOC(log)

	frags := merge.LoadFragments(book, log)
	reg := merge.BuildRegistry(frags, log)
	res, err := merge.BuildMaster(book, frags, reg, &env.Cfg.Document, string(env.ExtraStyle), log)
	if err != nil {
		return fmt.Errorf("unable to flatten book (%s): %w", src, err)
	}

	masterPath := filepath.Join(workDir, "master.html")
	if err := os.WriteFile(masterPath, []byte(res.Master), 0644); err != nil {
		return fmt.Errorf("unable to write flattened document: %w", err)
	}
	if env.Rpt != nil {
		env.Rpt.Store("master.html", masterPath)
	}

	outputName = buildOutputPath(book, src, dst, env)

	// Check if output file already exists
	if _, err := os.Stat(outputName); err == nil {
		if !env.Overwrite {
			return fmt.Errorf("output file already exists: %s", outputName)
		}
		log.Warn("Overwriting existing file", zap.String("file", outputName))
		if err = os.Remove(outputName); err != nil {
			return err
		}
	} else if !os.IsNotExist(err) {
		return err
	} else if err := os.MkdirAll(filepath.Dir(outputName), 0755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}

	r, err := render.New(&env.Cfg.Document.Render, log)
	if err != nil {
		return err
	}
	if err := r.Render(ctx, masterPath, outputName); err != nil {
		return fmt.Errorf("unable to paginate book (%s): %w", src, err)
	}

	if err := addOutline(ctx, toc, reg, outputName, log); err != nil {
		// bookmarks are a nicety, the paginated result is already usable
		log.Warn("Unable to reconstruct outline", zap.String("file", outputName), zap.Error(err))
	}

	if env.Rpt != nil {
		env.Rpt.Store("result.pdf", outputName)
	}
	return nil
}

// addOutline rebuilds the book's navigation as PDF bookmarks over the
// paginated result.
func addOutline(ctx context.Context, toc []epub.TOCNode, reg *merge.Registry, pdfPath string, log *zap.Logger) error {
	env := state.EnvFromContext(ctx)
	cfg := &env.Cfg.Document.Outline
	if !cfg.Enable {
		return nil
	}

	entries := outline.Flatten(toc, cfg.MaxDepth)
	if len(entries) == 0 {
		log.Debug("Book has no usable table of contents, skipping bookmarks")
		return nil
	}

	pages, err := pdf.BuildPageMap(pdfPath, reg.Candidates(), cfg, log)
	if err != nil {
		return err
	}
	roots, stats := outline.Build(entries, reg, pages, log)
	if stats.Added == 0 {
		return nil
	}
	return pdf.ApplyOutline(pdfPath, roots, log)
}
