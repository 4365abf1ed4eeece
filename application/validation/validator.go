// Package validation checks genesis manifests against their JSON schema and
// the rules a schema cannot express.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/reglet-dev/ledgerhost/domain/entities"
	"github.com/reglet-dev/ledgerhost/domain/ports"
)

// SchemaKind is the registry kind manifests are validated against.
const SchemaKind = "manifest"

type validatorConfig struct {
	codec ports.AddressCodec
}

// Option configures a ManifestValidator.
type Option func(*validatorConfig)

// WithAddressCodec makes the validator decode every contract address.
func WithAddressCodec(codec ports.AddressCodec) Option {
	return func(c *validatorConfig) {
		c.codec = codec
	}
}

// ManifestValidator implements ports.ManifestValidator using JSON schemas.
type ManifestValidator struct {
	config validatorConfig
	schema *jsonschema.Schema
}

// NewManifestValidator compiles the manifest schema held by registry.
func NewManifestValidator(registry ports.SchemaRegistry, opts ...Option) (ports.ManifestValidator, error) {
	var cfg validatorConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	schemaStr, ok := registry.GetSchema(SchemaKind)
	if !ok {
		return nil, fmt.Errorf("no schema registered for %s", SchemaKind)
	}
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource(SchemaKind, strings.NewReader(schemaStr)); err != nil {
		return nil, fmt.Errorf("failed to add schema resource for %s: %w", SchemaKind, err)
	}
	sch, err := compiler.Compile(SchemaKind)
	if err != nil {
		return nil, fmt.Errorf("invalid schema for %s: %w", SchemaKind, err)
	}
	return &ManifestValidator{config: cfg, schema: sch}, nil
}

// Validate checks the manifest. Problems are reported in the result; the
// error is reserved for failures of the validator itself.
func (v *ManifestValidator) Validate(manifest *entities.Manifest) (*entities.ValidationResult, error) {
	result := &entities.ValidationResult{Valid: true}
	if manifest == nil {
		return nil, errors.New("manifest is nil")
	}

	b, err := json.Marshal(manifest)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare validation object: %w", err)
	}
	var obj interface{}
	if err := json.Unmarshal(b, &obj); err != nil {
		return nil, fmt.Errorf("failed to prepare validation object: %w", err)
	}

	if err := v.schema.Validate(obj); err != nil {
		var ve *jsonschema.ValidationError
		if !errors.As(err, &ve) {
			return nil, err
		}
		for _, leaf := range leaves(ve) {
			field := strings.TrimPrefix(leaf.InstanceLocation, "/")
			if field == "" {
				field = SchemaKind
			}
			result.Errors = append(result.Errors, entities.ValidationError{
				Field:   field,
				Message: leaf.Message,
			})
		}
	}

	result.Errors = append(result.Errors, v.checkContracts(manifest.Contracts)...)
	result.Valid = len(result.Errors) == 0
	return result, nil
}

func (v *ManifestValidator) checkContracts(contracts []entities.ManifestContract) []entities.ValidationError {
	var errs []entities.ValidationError
	add := func(i int, field, format string, args ...any) {
		errs = append(errs, entities.ValidationError{
			Field:   fmt.Sprintf("contracts/%d/%s", i, field),
			Message: fmt.Sprintf(format, args...),
		})
	}

	names := make(map[string]int, len(contracts))
	addrs := make(map[string]int, len(contracts))
	for i, c := range contracts {
		if prev, ok := names[c.Name]; ok && c.Name != "" {
			add(i, "name", "duplicate contract name %q (also contracts/%d)", c.Name, prev)
		} else {
			names[c.Name] = i
		}

		key := c.Address
		if v.config.codec != nil && c.Address != "" {
			addr, err := v.config.codec.Decode(c.Address)
			if err != nil {
				add(i, "address", "%v", err)
			} else {
				key = string(addr.Bytes())
			}
		}
		if prev, ok := addrs[key]; ok && key != "" {
			add(i, "address", "duplicate contract address %q (also contracts/%d)", c.Address, prev)
		} else {
			addrs[key] = i
		}

		switch {
		case c.Code == "" && c.CodeFile == "":
			add(i, "code", "one of code or code_file is required")
		case c.Code != "" && c.CodeFile != "":
			add(i, "code", "code and code_file are mutually exclusive")
		}
		if c.ABI != "" && c.Dialect == string(entities.DialectNative) {
			add(i, "abi", "an ABI requires the selector dialect")
		}
	}
	return errs
}

// leaves flattens a validation error tree to its most specific causes.
func leaves(ve *jsonschema.ValidationError) []*jsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return []*jsonschema.ValidationError{ve}
	}
	var out []*jsonschema.ValidationError
	for _, c := range ve.Causes {
		out = append(out, leaves(c)...)
	}
	return out
}
