package ports

import "github.com/reglet-dev/ledgerhost/domain/entities"

// ManifestParser parses raw YAML bytes into a genesis Manifest.
type ManifestParser interface {
	// Parse unmarshals YAML bytes into a Manifest struct.
	Parse(data []byte) (*entities.Manifest, error)
}
