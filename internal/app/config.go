package app

import (
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime wiring options. Values come from VEILCHAT_*
// environment variables; flags override them.
type Config struct {
	// Home is the data directory, e.g. $HOME/.veilchat.
	Home string `envconfig:"HOME"`
	// RelayURL is the replica host base URL, e.g. http://127.0.0.1:8080.
	// Empty runs against an in-process replica (offline mode).
	RelayURL string `envconfig:"RELAY_URL"`
	// CacheQuotaBytes caps the durable cache. 0 disables eviction.
	CacheQuotaBytes int64 `envconfig:"CACHE_QUOTA_BYTES" default:"67108864"`
	// LogLevel is a logrus level name.
	LogLevel string `envconfig:"LOG_LEVEL" default:"warn"`
}

// LoadConfig reads Config from the environment and fills defaults.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process("veilchat", &cfg); err != nil {
		return Config{}, err
	}
	if cfg.Home == "" {
		dir, err := os.UserHomeDir()
		if err != nil {
			return Config{}, err
		}
		cfg.Home = filepath.Join(dir, ".veilchat")
	}
	return cfg, nil
}
