package entities

// Manifest is a genesis document listing contracts to deploy in order.
type Manifest struct {
	Chain     string             `json:"chain" yaml:"chain" jsonschema:"required,minLength=1"`
	Contracts []ManifestContract `json:"contracts" yaml:"contracts" jsonschema:"required,minItems=1"`
}

// ManifestContract describes one contract in a genesis manifest.
// Address is in text form; Code is the inline source (script), a native
// contract name (abi) or a path to a compiled module (wasm).
type ManifestContract struct {
	Name     string `json:"name" yaml:"name" jsonschema:"required,minLength=1"`
	Address  string `json:"address" yaml:"address" jsonschema:"required,minLength=1"`
	Kind     string `json:"kind" yaml:"kind" jsonschema:"required,enum=wasm,enum=abi,enum=script"`
	Dialect  string `json:"dialect,omitempty" yaml:"dialect,omitempty" jsonschema:"enum=native,enum=selector"`
	Code     string `json:"code,omitempty" yaml:"code,omitempty"`
	CodeFile string `json:"code_file,omitempty" yaml:"code_file,omitempty"`
	ABI      string `json:"abi,omitempty" yaml:"abi,omitempty"`
	Role     string `json:"role,omitempty" yaml:"role,omitempty"`
	Init     string `json:"init,omitempty" yaml:"init,omitempty"`
	GasLimit uint64 `json:"gas_limit,omitempty" yaml:"gas_limit,omitempty"`
}
