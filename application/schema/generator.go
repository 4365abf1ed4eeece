// Package schema generates JSON schemas for ledgerhost documents.
package schema

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

type generatorConfig struct {
	allowAdditional bool
	anonymous       bool
}

// Option configures GenerateSchema.
type Option func(*generatorConfig)

// WithAdditionalProperties lets documents carry fields the Go type does not
// declare. Unknown fields are rejected by default.
func WithAdditionalProperties(allow bool) Option {
	return func(c *generatorConfig) {
		c.allowAdditional = allow
	}
}

// WithAnonymous omits the $id derived from the type's package path.
func WithAnonymous() Option {
	return func(c *generatorConfig) {
		c.anonymous = true
	}
}

// GenerateSchema reflects v into a Draft 2020-12 JSON schema.
// Fields without omitempty are required.
func GenerateSchema(v interface{}, opts ...Option) ([]byte, error) {
	var cfg generatorConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	reflector := jsonschema.Reflector{
		ExpandedStruct:            true,
		AllowAdditionalProperties: cfg.allowAdditional,
		Anonymous:                 cfg.anonymous,
	}
	schema := reflector.Reflect(v)

	out, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return out, nil
}
