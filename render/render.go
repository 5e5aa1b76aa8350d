// Package render drives the external HTML layout engine that paginates the
// flattened document. All supported engines are command line tools, they
// differ only in argument conventions.
package render

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"go.uber.org/zap"

	"epc/config"
)

// Renderer paginates a flattened HTML document into a PDF file. A render
// failure is fatal for the conversion, there is nothing to bookmark without
// a paginated result.
type Renderer interface {
	Render(ctx context.Context, htmlPath, pdfPath string) error
	Name() string
}

type engine struct {
	id   config.RenderEngine
	path string
	args []string
	tout time.Duration
	log  *zap.Logger
}

// New builds a Renderer from configuration. The executable path defaults to
// the engine name resolved through PATH.
func New(cfg *config.RenderConfig, log *zap.Logger) (Renderer, error) {
	id, err := config.ParseRenderEngine(cfg.Engine)
	if err != nil {
		return nil, err
	}
	path := cfg.ExecutablePath
	if path == "" {
		path = id.String()
	}
	return &engine{
		id:   id,
		path: path,
		args: cfg.ExtraArgs,
		tout: time.Duration(cfg.TimeoutSec) * time.Second,
		log:  log.Named("render"),
	}, nil
}

func (e *engine) Name() string {
	return e.id.String()
}

func (e *engine) Render(ctx context.Context, htmlPath, pdfPath string) error {
	if e.tout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.tout)
		defer cancel()
	}

	args := e.arguments(htmlPath, pdfPath)
	e.log.Debug("Running layout engine", zap.String("exec", e.path), zap.Strings("args", args))

	start := time.Now()
	out, err := exec.CommandContext(ctx, e.path, args...).CombinedOutput()
	if len(out) > 0 {
		e.log.Debug("Layout engine output", zap.ByteString("output", out))
	}
	if err != nil {
		return fmt.Errorf("%s failed: %w", e.id, err)
	}
	e.log.Info("Document paginated", zap.String("engine", e.id.String()), zap.Duration("elapsed", time.Since(start)))
	return nil
}

// arguments assembles the engine specific command line. Extra arguments from
// configuration go before the positional ones so users can override engine
// defaults.
func (e *engine) arguments(htmlPath, pdfPath string) []string {
	var args []string
	switch e.id {
	case config.RenderEngineWkhtmltopdf:
		// local file:// image references require explicit opt-in
		args = append(args, "--enable-local-file-access")
		args = append(args, e.args...)
		args = append(args, htmlPath, pdfPath)
	case config.RenderEnginePrince:
		args = append(args, e.args...)
		args = append(args, htmlPath, "-o", pdfPath)
	default: // weasyprint
		args = append(args, e.args...)
		args = append(args, htmlPath, pdfPath)
	}
	return args
}
