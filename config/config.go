// Package config holds the ledger host's tunable parameters: the gas schedule,
// call depth bound and address/wire settings.
package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/reglet-dev/ledgerhost/domain/errors"
	"github.com/reglet-dev/ledgerhost/domain/policy"
)

// validate is a package-level singleton; validators cache struct metadata.
var validate = validator.New()

// Gas is the gas schedule charged by the host.
type Gas struct {
	// CallBaseCost is charged inside every child budget before the guest runs.
	CallBaseCost uint64 `yaml:"call_base_cost" toml:"call_base_cost" validate:"gt=0"`

	// UnknownContractCost is charged to the caller when the callee has no record.
	UnknownContractCost uint64 `yaml:"unknown_contract_cost" toml:"unknown_contract_cost"`

	StorageStoreCost uint64 `yaml:"storage_store_cost" toml:"storage_store_cost"`
	StorageLoadCost  uint64 `yaml:"storage_load_cost" toml:"storage_load_cost"`
	StorageByteCost  uint64 `yaml:"storage_byte_cost" toml:"storage_byte_cost"`

	LogBaseCost  uint64 `yaml:"log_base_cost" toml:"log_base_cost"`
	LogTopicCost uint64 `yaml:"log_topic_cost" toml:"log_topic_cost"`
	LogByteCost  uint64 `yaml:"log_byte_cost" toml:"log_byte_cost"`

	// HostCallCost is charged for every host function invoked through the
	// byte-buffer surface.
	HostCallCost uint64 `yaml:"host_call_cost" toml:"host_call_cost"`

	// ScriptInvokeCost is charged once per script entry invocation.
	ScriptInvokeCost uint64 `yaml:"script_invoke_cost" toml:"script_invoke_cost"`

	// DeployByteCost is charged per byte of deployed code.
	DeployByteCost uint64 `yaml:"deploy_byte_cost" toml:"deploy_byte_cost"`

	// CreateCost is charged to a contract that creates another one.
	CreateCost uint64 `yaml:"create_cost" toml:"create_cost"`

	HashBaseCost uint64 `yaml:"hash_base_cost" toml:"hash_base_cost"`
	HashWordCost uint64 `yaml:"hash_word_cost" toml:"hash_word_cost"`

	// DefaultGasLimit is the root budget when a transaction specifies none.
	DefaultGasLimit uint64 `yaml:"default_gas_limit" toml:"default_gas_limit" validate:"gt=0"`
}

// Params is the full host configuration.
type Params struct {
	Gas Gas `yaml:"gas" toml:"gas"`

	// MaxCallDepth bounds the frame stack. The root frame is depth 0.
	MaxCallDepth int `yaml:"max_call_depth" toml:"max_call_depth" validate:"gt=0,lte=4096"`

	// AddressPrefix is the human-readable part of text addresses.
	AddressPrefix string `yaml:"address_prefix" toml:"address_prefix" validate:"required,lowercase,max=20"`

	// ModuleName is the WebAssembly host module guests import from.
	ModuleName string `yaml:"module_name" toml:"module_name" validate:"required"`

	// MaxRequestSize bounds a single host-function request from a guest.
	MaxRequestSize uint32 `yaml:"max_request_size" toml:"max_request_size" validate:"gt=0"`

	// MaxCodeSize bounds deployed code.
	MaxCodeSize int `yaml:"max_code_size" toml:"max_code_size" validate:"gt=0"`

	// CallRules restrict which roles may call which.
	CallRules []policy.Rule `yaml:"call_rules" toml:"call_rules"`
}

// Default returns the default parameters.
func Default() Params {
	return Params{
		Gas: Gas{
			CallBaseCost:        100,
			UnknownContractCost: 100,
			StorageStoreCost:    200,
			StorageLoadCost:     50,
			StorageByteCost:     1,
			LogBaseCost:         375,
			LogTopicCost:        375,
			LogByteCost:         8,
			HostCallCost:        10,
			ScriptInvokeCost:    100,
			DeployByteCost:      1,
			CreateCost:          500,
			HashBaseCost:        30,
			HashWordCost:        6,
			DefaultGasLimit:     10_000_000,
		},
		MaxCallDepth:   1024,
		AddressPrefix:  "lh",
		ModuleName:     "ledgerhost",
		MaxRequestSize: 1 << 20,
		MaxCodeSize:    4 << 20,
	}
}

// Validate checks the parameters with their struct tags.
func (p Params) Validate() error {
	if err := validate.Struct(p); err != nil {
		return &errors.ConfigError{Err: err, Field: fieldOf(err)}
	}
	return nil
}

func fieldOf(err error) string {
	if ve, ok := err.(validator.ValidationErrors); ok && len(ve) > 0 {
		return ve[0].Namespace()
	}
	return ""
}

// Load reads parameters from path. Files ending in .toml are decoded as TOML,
// everything else as YAML. Fields absent from the file keep their defaults.
func Load(path string) (Params, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Params{}, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data, strings.EqualFold(filepath.Ext(path), ".toml"))
}

// Parse decodes parameters from data over the defaults.
func Parse(data []byte, isTOML bool) (Params, error) {
	p := Default()
	if isTOML {
		meta, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&p)
		if err != nil {
			return Params{}, &errors.ConfigError{Err: err}
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return Params{}, &errors.ConfigError{Err: fmt.Errorf("unknown key %s", undecoded[0]), Field: undecoded[0].String()}
		}
	} else {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&p); err != nil && err != io.EOF {
			return Params{}, &errors.ConfigError{Err: err}
		}
	}
	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}
