package ports

// TemplateEngine renders templates with configuration values.
type TemplateEngine interface {
	// Render processes the raw manifest bytes with the provided vars.
	// Returns resolved bytes with all template placeholders replaced.
	Render(raw []byte, vars map[string]interface{}) ([]byte, error)
}
