package ports

import "github.com/reglet-dev/ledgerhost/domain/entities"

// ManifestValidator validates genesis manifests against their schema.
type ManifestValidator interface {
	// Validate checks the manifest against the registered schema.
	Validate(manifest *entities.Manifest) (*entities.ValidationResult, error)
}
