package configfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the base name for configuration files (without extension).
	ConfigFileName = "qrscan"

	// EnvPrefix is the prefix for environment variables (e.g. QRSCAN_DETECT_MAX_DIMENSION).
	EnvPrefix = "QRSCAN"
)

// Loader loads Config from a file, environment variables, and viper-bound
// command-line flags, in that ascending order of precedence.
type Loader struct {
	v *viper.Viper
}

// NewLoader returns a Loader over the global viper instance, so flags bound
// with viper.BindPFlag elsewhere are visible to it.
func NewLoader() *Loader {
	return &Loader{v: viper.GetViper()}
}

// Load searches the standard config locations for a "qrscan.yaml" file,
// falling back to defaults and environment variables if none is found.
func (l *Loader) Load() (*Config, error) {
	l.v.SetConfigName(ConfigFileName)
	l.v.SetConfigType("yaml")
	l.addConfigPaths()
	l.setupEnvironmentVariables()
	l.setDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &cfg, nil
}

// LoadWithFile loads configuration from an explicit path.
func (l *Loader) LoadWithFile(path string) (*Config, error) {
	if path == "" {
		return l.Load()
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", path)
	}

	l.v.SetConfigFile(path)
	l.setupEnvironmentVariables()
	l.setDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &cfg, nil
}

// GetViper returns the underlying viper instance for flag binding.
func (l *Loader) GetViper() *viper.Viper {
	return l.v
}

func (l *Loader) addConfigPaths() {
	l.v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		l.v.AddConfigPath(home)
	}
	l.v.AddConfigPath("/etc/qrscan")
	if configDir, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok {
		l.v.AddConfigPath(filepath.Join(configDir, "qrscan"))
	} else if home, err := os.UserHomeDir(); err == nil {
		l.v.AddConfigPath(filepath.Join(home, ".config", "qrscan"))
	}
}

func (l *Loader) setupEnvironmentVariables() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.AutomaticEnv()
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

func (l *Loader) setDefaults() {
	d := DefaultConfig()
	l.v.SetDefault("log_level", d.LogLevel)
	l.v.SetDefault("verbose", d.Verbose)
	l.v.SetDefault("detect.max_dimension", d.Detect.MaxDimension)
	l.v.SetDefault("detect.top_k_triplets", d.Detect.TopKTriplets)
	l.v.SetDefault("detect.max_attempts", d.Detect.MaxAttempts)
	l.v.SetDefault("detect.max_duration", d.Detect.MaxDuration)
	l.v.SetDefault("detect.erasure_confidence_threshold", d.Detect.ErasureConfidenceThreshold)
	l.v.SetDefault("detect.max_erasures", d.Detect.MaxErasures)
	l.v.SetDefault("detect.enable_contour_fallback", d.Detect.EnableContourFallback)
	l.v.SetDefault("detect.enable_mesh_warp", d.Detect.EnableMeshWarp)
	l.v.SetDefault("detect.enable_deskew", d.Detect.EnableDeskew)
	l.v.SetDefault("server.host", d.Server.Host)
	l.v.SetDefault("server.port", d.Server.Port)
	l.v.SetDefault("server.max_upload_mb", d.Server.MaxUploadMB)
	l.v.SetDefault("server.timeout_sec", d.Server.TimeoutSec)
	l.v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
}
