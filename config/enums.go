package config

import (
	"fmt"
	"strings"
)

// RenderEngine specifies external HTML layout engine used to paginate the
// flattened document.
type RenderEngine int

const (
	RenderEngineWeasyprint RenderEngine = iota
	RenderEngineWkhtmltopdf
	RenderEnginePrince
)

var renderEngineNames = map[RenderEngine]string{
	RenderEngineWeasyprint:  "weasyprint",
	RenderEngineWkhtmltopdf: "wkhtmltopdf",
	RenderEnginePrince:      "prince",
}

func (e RenderEngine) String() string {
	if n, ok := renderEngineNames[e]; ok {
		return n
	}
	return fmt.Sprintf("RenderEngine(%d)", int(e))
}

// ParseRenderEngine converts engine name to RenderEngine value.
func ParseRenderEngine(name string) (RenderEngine, error) {
	for e, n := range renderEngineNames {
		if strings.EqualFold(name, n) {
			return e, nil
		}
	}
	return RenderEngineWeasyprint, fmt.Errorf("%q is not a valid render engine", name)
}

// RenderEngineNames returns names of all supported engines.
func RenderEngineNames() []string {
	return []string{
		renderEngineNames[RenderEngineWeasyprint],
		renderEngineNames[RenderEngineWkhtmltopdf],
		renderEngineNames[RenderEnginePrince],
	}
}
