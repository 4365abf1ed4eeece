package host

import (
	"fmt"
	"os"
	"path/filepath"

	apptemplate "github.com/reglet-dev/ledgerhost/application/template"
	"github.com/reglet-dev/ledgerhost/application/validation"
	"github.com/reglet-dev/ledgerhost/domain/entities"
	"github.com/reglet-dev/ledgerhost/domain/ports"
	"github.com/reglet-dev/ledgerhost/host/registry"
	"github.com/reglet-dev/ledgerhost/infrastructure/parser"
)

// loaderConfig holds configuration for the Loader.
type loaderConfig struct {
	schemas         ports.SchemaRegistry
	templateEngine  ports.TemplateEngine
	parser          ports.ManifestParser
	codec           ports.AddressCodec
	baseDir         string
	strictTemplates bool // Fail on missing template keys
}

func defaultLoaderConfig() loaderConfig {
	return loaderConfig{
		parser:          parser.NewYamlManifestParser(),
		strictTemplates: true,
		baseDir:         ".",
	}
}

// Loader orchestrates the genesis manifest pipeline: render, parse, validate
// and read code files.
type Loader struct {
	validator ports.ManifestValidator
	config    loaderConfig
}

// LoaderOption configures the Loader.
type LoaderOption func(*loaderConfig)

// WithSchemas sets the schema registry manifests are validated against.
func WithSchemas(r ports.SchemaRegistry) LoaderOption {
	return func(c *loaderConfig) {
		c.schemas = r
	}
}

// WithParser sets a custom manifest parser.
func WithParser(p ports.ManifestParser) LoaderOption {
	return func(c *loaderConfig) {
		c.parser = p
	}
}

// WithTemplateEngine sets a template engine.
func WithTemplateEngine(t ports.TemplateEngine) LoaderOption {
	return func(c *loaderConfig) {
		c.templateEngine = t
	}
}

// WithStrictTemplates enables/disables strict template mode.
// When enabled (default), rendering fails if a referenced key is missing.
func WithStrictTemplates(enabled bool) LoaderOption {
	return func(c *loaderConfig) {
		c.strictTemplates = enabled
	}
}

// WithManifestCodec makes validation decode every contract address.
func WithManifestCodec(codec ports.AddressCodec) LoaderOption {
	return func(c *loaderConfig) {
		c.codec = codec
	}
}

// WithBaseDir sets the directory relative code_file paths are read from.
func WithBaseDir(dir string) LoaderOption {
	return func(c *loaderConfig) {
		c.baseDir = dir
	}
}

// NewLoader creates a new Loader with defaults.
func NewLoader(opts ...LoaderOption) (*Loader, error) {
	cfg := defaultLoaderConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.templateEngine == nil {
		cfg.templateEngine = apptemplate.NewGoTemplateEngine(
			apptemplate.WithStrict(cfg.strictTemplates),
		)
	}
	if cfg.schemas == nil {
		schemas, err := registry.NewSchemas()
		if err != nil {
			return nil, fmt.Errorf("failed to create schema registry: %w", err)
		}
		cfg.schemas = schemas
	}

	var vopts []validation.Option
	if cfg.codec != nil {
		vopts = append(vopts, validation.WithAddressCodec(cfg.codec))
	}
	v, err := validation.NewManifestValidator(cfg.schemas, vopts...)
	if err != nil {
		return nil, err
	}
	return &Loader{validator: v, config: cfg}, nil
}

// LoadManifest renders raw with vars, parses and validates it, and replaces
// every code_file with the file's contents.
func (l *Loader) LoadManifest(raw []byte, vars map[string]interface{}) (*entities.Manifest, error) {
	data, err := l.config.templateEngine.Render(raw, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to render manifest: %w", err)
	}

	manifest, err := l.config.parser.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	res, err := l.validator.Validate(manifest)
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}
	if !res.Valid {
		msg := "manifest validation failed:"
		for _, e := range res.Errors {
			msg += fmt.Sprintf("\n- %s: %s", e.Field, e.Message)
		}
		return nil, fmt.Errorf("%s", msg)
	}

	for i := range manifest.Contracts {
		c := &manifest.Contracts[i]
		if c.CodeFile == "" {
			continue
		}
		code, err := readCodeFile(l.config.baseDir, c.CodeFile)
		if err != nil {
			return nil, fmt.Errorf("contract %s: %w", c.Name, err)
		}
		c.Code, c.CodeFile = string(code), ""
	}
	return manifest, nil
}

// LoadManifestFile reads path and loads it with LoadManifest. Relative
// code_file paths resolve against the manifest's directory unless a base
// directory was configured.
func (l *Loader) LoadManifestFile(path string, vars map[string]interface{}) (*entities.Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	if l.config.baseDir == "." {
		scoped := *l
		scoped.config.baseDir = filepath.Dir(path)
		return scoped.LoadManifest(raw, vars)
	}
	return l.LoadManifest(raw, vars)
}

func readCodeFile(baseDir, name string) ([]byte, error) {
	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}
	code, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read code file: %w", err)
	}
	return code, nil
}
