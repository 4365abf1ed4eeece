// Package registry keeps the ledger's catalogues: deployed contracts and the
// JSON schemas documents such as genesis manifests are validated against.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/reglet-dev/ledgerhost/application/schema"
	"github.com/reglet-dev/ledgerhost/domain/entities"
	"github.com/reglet-dev/ledgerhost/domain/ports"
)

// Document kinds registered by default.
const (
	KindManifest = "manifest"
)

// schemasConfig holds configuration for the Schemas registry.
type schemasConfig struct {
	strictMode bool // Fail on duplicate registrations
}

func defaultSchemasConfig() schemasConfig {
	return schemasConfig{
		strictMode: true,
	}
}

// SchemasOption configures a Schemas instance.
type SchemasOption func(*schemasConfig)

// WithStrictMode enables/disables strict mode for duplicate registrations.
// Default is true (fail on duplicates). Disable only for testing or hot-reloading.
func WithStrictMode(enabled bool) SchemasOption {
	return func(c *schemasConfig) {
		c.strictMode = enabled
	}
}

// Schemas implements ports.SchemaRegistry.
type Schemas struct {
	config  schemasConfig
	schemas sync.Map // map[string]string (json schema)
}

// NewSchemas creates a schema registry with the manifest schema registered.
func NewSchemas(opts ...SchemasOption) (ports.SchemaRegistry, error) {
	cfg := defaultSchemasConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	r := &Schemas{config: cfg}
	if err := r.Register(KindManifest, &entities.Manifest{}); err != nil {
		return nil, err
	}
	return r, nil
}

// Register adds a schema generated from a Go struct.
func (r *Schemas) Register(kind string, model interface{}) error {
	if r.config.strictMode {
		if _, exists := r.schemas.Load(kind); exists {
			return fmt.Errorf("document kind %q already registered", kind)
		}
	}

	data, err := schema.GenerateSchema(model)
	if err != nil {
		return fmt.Errorf("failed to generate schema for %s: %w", kind, err)
	}
	r.schemas.Store(kind, string(data))
	return nil
}

// GetSchema retrieves the JSON Schema for a document kind.
func (r *Schemas) GetSchema(kind string) (string, bool) {
	v, ok := r.schemas.Load(kind)
	if !ok {
		return "", false
	}
	return v.(string), true
}

// List returns all registered document kinds in sorted order.
func (r *Schemas) List() []string {
	var keys []string
	r.schemas.Range(func(k, _ interface{}) bool {
		keys = append(keys, k.(string))
		return true
	})
	sort.Strings(keys)
	return keys
}
