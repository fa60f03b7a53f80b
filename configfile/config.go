// Package configfile loads cmd/qrscan's configuration from a YAML file,
// environment variables, and command-line flags, in that ascending order of
// precedence, mirroring MeKo-Christian-pogo's internal/config package.
package configfile

import (
	"time"

	"github.com/qrscan/qrscan/binarizerbank"
	"github.com/qrscan/qrscan/strategy"
)

// Config is the on-disk/env/flag configuration for cmd/qrscan, structurally
// mirroring strategy.Config but using field types viper/mapstructure can
// populate directly (plain ints, floats, bools and durations). It has no
// binarizer-order field; StrategyConfig always uses binarizerbank.Order.
type Config struct {
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	Detect DetectConfig `mapstructure:"detect" yaml:"detect" json:"detect"`
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`
}

// DetectConfig mirrors strategy.Config's tunables.
type DetectConfig struct {
	MaxDimension               int           `mapstructure:"max_dimension" yaml:"max_dimension" json:"max_dimension"`
	TopKTriplets               int           `mapstructure:"top_k_triplets" yaml:"top_k_triplets" json:"top_k_triplets"`
	MaxAttempts                int           `mapstructure:"max_attempts" yaml:"max_attempts" json:"max_attempts"`
	MaxDuration                time.Duration `mapstructure:"max_duration" yaml:"max_duration" json:"max_duration"`
	ErasureConfidenceThreshold float64       `mapstructure:"erasure_confidence_threshold" yaml:"erasure_confidence_threshold" json:"erasure_confidence_threshold"`
	MaxErasures                int           `mapstructure:"max_erasures" yaml:"max_erasures" json:"max_erasures"`
	EnableContourFallback      bool          `mapstructure:"enable_contour_fallback" yaml:"enable_contour_fallback" json:"enable_contour_fallback"`
	EnableMeshWarp             bool          `mapstructure:"enable_mesh_warp" yaml:"enable_mesh_warp" json:"enable_mesh_warp"`
	EnableDeskew               bool          `mapstructure:"enable_deskew" yaml:"enable_deskew" json:"enable_deskew"`
}

// ServerConfig configures the "serve" subcommand's HTTP listener.
type ServerConfig struct {
	Host            string `mapstructure:"host" yaml:"host" json:"host"`
	Port            int    `mapstructure:"port" yaml:"port" json:"port"`
	MaxUploadMB     int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// DefaultConfig returns cmd/qrscan's documented defaults, seeded from
// strategy.DefaultConfig so the CLI and library layers never drift apart.
func DefaultConfig() Config {
	sc := strategy.DefaultConfig()
	return Config{
		LogLevel: "info",
		Verbose:  false,
		Detect: DetectConfig{
			MaxDimension:               sc.MaxDimension,
			TopKTriplets:               sc.TopKTriplets,
			MaxAttempts:                sc.Budget.MaxAttempts,
			MaxDuration:                sc.Budget.MaxDuration,
			ErasureConfidenceThreshold: sc.ErasureConfidenceThreshold,
			MaxErasures:                sc.MaxErasures,
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			MaxUploadMB:     20,
			TimeoutSec:      30,
			ShutdownTimeout: 10,
		},
	}
}

// StrategyConfig converts to the strategy package's runtime Config, using the
// fixed binarizer selection order (spec §4.1) unless overridden elsewhere.
func (c DetectConfig) StrategyConfig() strategy.Config {
	return strategy.Config{
		MaxDimension: c.MaxDimension,
		TopKTriplets: c.TopKTriplets,
		Budget: strategy.Budget{
			MaxAttempts: c.MaxAttempts,
			MaxDuration: c.MaxDuration,
		},
		EnableContourFallback:      c.EnableContourFallback,
		EnableMeshWarp:             c.EnableMeshWarp,
		EnableDeskew:               c.EnableDeskew,
		ErasureConfidenceThreshold: c.ErasureConfidenceThreshold,
		MaxErasures:                c.MaxErasures,
		BinarizerOrder:             binarizerbank.Order,
	}
}
