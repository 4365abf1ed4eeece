package ports

// SchemaRegistry manages JSON schemas for document types.
type SchemaRegistry interface {
	// Register adds a schema generated from a Go struct.
	Register(kind string, model interface{}) error

	// GetSchema retrieves the JSON Schema for a document type.
	GetSchema(kind string) (string, bool)

	// List returns all registered document type names.
	List() []string
}
