package host

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"github.com/reglet-dev/ledgerhost/config"
	"github.com/reglet-dev/ledgerhost/domain/entities"
	"github.com/reglet-dev/ledgerhost/domain/ports"
	"github.com/reglet-dev/ledgerhost/infrastructure/native"
)

// executorConfig holds configuration for the Executor.
type executorConfig struct {
	params         config.Params
	ledger         ports.KVStore
	codec          ports.AddressCodec
	policy         ports.CallPolicy
	logger         *slog.Logger
	registerer     prometheus.Registerer
	tracerProvider trace.TracerProvider
	runtimes       map[entities.RuntimeKind]ports.Runtime
	natives        map[string]native.Contract
}

func defaultExecutorConfig() executorConfig {
	return executorConfig{
		params:   config.Default(),
		logger:   slog.Default(),
		runtimes: make(map[entities.RuntimeKind]ports.Runtime),
		natives: map[string]native.Contract{
			NativeSimpleStorage: native.SimpleStorage(),
			NativeCounter:       native.Counter(),
		},
	}
}

// Built-in native contract names.
const (
	NativeSimpleStorage = "simple-storage"
	NativeCounter       = "counter"
)

// Option defines a functional option for configuring the Executor.
type Option func(*executorConfig)

// WithParams sets the gas schedule and limits.
func WithParams(p config.Params) Option {
	return func(c *executorConfig) {
		c.params = p
	}
}

// WithLedger sets the committed store. The Executor closes it on Close.
// Defaults to an in-memory leveldb.
func WithLedger(ledger ports.KVStore) Option {
	return func(c *executorConfig) {
		c.ledger = ledger
	}
}

// WithRuntime executes contracts of kind with rt instead of the default.
func WithRuntime(kind entities.RuntimeKind, rt ports.Runtime) Option {
	return func(c *executorConfig) {
		c.runtimes[kind] = rt
	}
}

// WithAddressCodec sets the text address codec. Defaults to bech32 with the
// configured prefix.
func WithAddressCodec(codec ports.AddressCodec) Option {
	return func(c *executorConfig) {
		c.codec = codec
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *executorConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics registers the dispatcher metrics with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *executorConfig) {
		c.registerer = reg
	}
}

// WithTracerProvider sets where frame spans are sent. Defaults to the global
// provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *executorConfig) {
		c.tracerProvider = tp
	}
}

// WithPolicy sets the call policy. Defaults to the configured call rules, or
// policy.SystemRules when there are none.
func WithPolicy(p ports.CallPolicy) Option {
	return func(c *executorConfig) {
		c.policy = p
	}
}

// WithNativeContracts registers Go contracts with the default abi runtime,
// replacing built-ins of the same name.
func WithNativeContracts(contracts map[string]native.Contract) Option {
	return func(c *executorConfig) {
		for name, contract := range contracts {
			c.natives[name] = contract
		}
	}
}
