package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aretw0/convo/pkg/domain"
	"gopkg.in/yaml.v3"
)

// Environment overrides applied by ApplyEnv.
const (
	EnvVersionID = "CONVO_VERSION_ID"
	EnvAPIKey    = "CONVO_API_KEY"
	EnvEndpoint  = "CONVO_ENDPOINT"
)

// DefaultConfigPath is read when --config is not given. A missing file is not an error.
const DefaultConfigPath = "convo.yaml"

// RedisConfig enables the shared initial-state cache.
type RedisConfig struct {
	Addr     string        `yaml:"addr" json:"addr"`
	Password string        `yaml:"password" json:"password"`
	DB       int           `yaml:"db" json:"db"`
	TTL      time.Duration `yaml:"ttl" json:"ttl"`
	Prefix   string        `yaml:"prefix" json:"prefix"`

	// EncryptionKey is a base64 AES-256 key. When set, cached states are sealed.
	EncryptionKey string `yaml:"encryption_key" json:"encryption_key"`
}

// Config is the CLI configuration file (YAML or JSON).
type Config struct {
	VersionID string            `yaml:"version_id" json:"version_id"`
	APIKey    string            `yaml:"api_key" json:"api_key"`
	Endpoint  string            `yaml:"endpoint" json:"endpoint"`
	Data      domain.DataConfig `yaml:"data" json:"data"`
	Variables map[string]any    `yaml:"variables" json:"variables"`
	Redis     RedisConfig       `yaml:"redis" json:"redis"`
	Debug     bool              `yaml:"debug" json:"debug"`

	// MaskVariables lists key patterns whose values are masked wherever the CLI
	// prints or returns variables (MCP responses, the state command). Sessions
	// and the cache keep the real values.
	MaskVariables []string `yaml:"mask_variables" json:"mask_variables"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() Config {
	return Config{Data: domain.DefaultDataConfig()}
}

// LoadConfig reads path on top of DefaultConfig.
// A missing file yields the defaults; a broken one is an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}
	return cfg, nil
}

// ApplyEnv overrides connection settings from the environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvVersionID); v != "" {
		c.VersionID = v
	}
	if v := os.Getenv(EnvAPIKey); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv(EnvEndpoint); v != "" {
		c.Endpoint = v
	}
}
