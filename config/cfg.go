package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	TemplateFieldName string

	// PageConfig describes physical page geometry passed to the layout
	// engine through generated @page rules.
	PageConfig struct {
		Size         string `yaml:"size" validate:"required"`
		Margin       string `yaml:"margin" validate:"required"`
		BreakBefore  string `yaml:"chapter_break_before" validate:"oneof=auto always page"`
		LinkColor    string `yaml:"link_color"`
		KeepHeadings bool   `yaml:"keep_headings_with_text"`
	}

	// RenderConfig selects and tunes the external HTML to PDF renderer.
	RenderConfig struct {
		Engine         string   `yaml:"engine" validate:"required,oneof=weasyprint wkhtmltopdf prince"`
		ExecutablePath string   `yaml:"executable_path" sanitize:"assure_file_access"`
		ExtraArgs      []string `yaml:"extra_args"`
		TimeoutSec     int      `yaml:"timeout_sec" validate:"min=0"`
	}

	// OutlineConfig controls PDF bookmark reconstruction.
	OutlineConfig struct {
		Enable          bool `yaml:"enable"`
		ScanText        bool `yaml:"scan_text"`
		ScanAnnotations bool `yaml:"scan_annotations"`
		MaxDepth        int  `yaml:"max_depth" validate:"min=0"`
	}

	DocumentConfig struct {
		OutputNameTemplate    string        `yaml:"output_name_template"`
		FileNameTransliterate bool          `yaml:"file_name_transliterate"`
		StylesheetPath        string        `yaml:"stylesheet_path" sanitize:"assure_file_access"`
		Page                  PageConfig    `yaml:"page"`
		Render                RenderConfig  `yaml:"render"`
		Outline               OutlineConfig `yaml:"outline"`
	}

	Config struct {
		Version   int            `yaml:"version" validate:"eq=1"`
		Document  DocumentConfig `yaml:"document"`
		Logging   LoggingConfig  `yaml:"logging"`
		Reporting ReporterConfig `yaml:"reporting"`
	}
)

const (
	// NOTE: must match yaml field name above, alternative is to use struct
	// field name and reflection which I want to avoid for now
	OutputNameTemplateFieldName TemplateFieldName = "output_name_template"
)

var requiredOptions = append([]func(*gencfg.ProcessingOptions){},
	gencfg.WithDoNotExpandField(string(OutputNameTemplateFieldName)),
)

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// We want to use only fields we defined so we cannot use yaml.Unmarshal
	// directly here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		// sanitize and validate what has been loaded
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, err
		}
		if err := gencfg.Validate(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of expanded configuration template to provide
// sane defaults and performs validation.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, append(requiredOptions, options...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if !haveFile {
		return cfg, nil
	}

	// overwrite cfg values with values from the file
	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// Prepare generates configuration file from template and returns it as a byte
// slice.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl, requiredOptions...)
}

func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %v", err)
	}
	return data, nil
}
