package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix namespaces environment overrides, e.g. AGENTFORGE_SERVER_PORT.
const EnvPrefix = "AGENTFORGE"

// Generation providers.
const (
	ProviderNone         = ""
	ProviderOpenAI       = "openai"
	ProviderGitHubModels = "github_models"
	ProviderOllama       = "ollama"
	ProviderAzure        = "azure"
)

// Config represents the application configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Log        LogConfig        `yaml:"log"`
	Generation GenerationConfig `yaml:"generation"`
	Deployment DeploymentConfig `yaml:"deployment"`
	Catalog    CatalogConfig    `yaml:"catalog"`
	Database   DatabaseConfig   `yaml:"database"`
	Registry   RegistryConfig   `yaml:"registry"`
	Auth       AuthConfig       `yaml:"auth"`
	CORS       CORSConfig       `yaml:"cors"`
}

type ServerConfig struct {
	Port            int           `yaml:"port"`
	Mode            string        `yaml:"mode"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" split_words:"true"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"`
	Path    string `yaml:"path"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// GenerationConfig selects the optional text generation provider. An empty
// provider keeps composition on the template path only.
type GenerationConfig struct {
	Provider    string        `yaml:"provider"`
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"api_key" split_words:"true"`
	BaseURL     string        `yaml:"base_url" split_words:"true"`
	Timeout     time.Duration `yaml:"timeout"`
	Temperature float64       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens" split_words:"true"`
}

type DeploymentConfig struct {
	EndpointBase  string `yaml:"endpoint_base" split_words:"true"`
	DashboardBase string `yaml:"dashboard_base" split_words:"true"`
}

type CatalogConfig struct {
	Path string `yaml:"path"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type RegistryConfig struct {
	EnforceOrigin bool `yaml:"enforce_origin" split_words:"true"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" split_words:"true"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" split_words:"true"`
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			Mode:            "release",
			ShutdownTimeout: 10 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
			Path:    "/metrics",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "auto",
		},
		Generation: GenerationConfig{
			Timeout:     15 * time.Second,
			Temperature: 0.7,
			MaxTokens:   2000,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file, an
// optional .env file and AGENTFORGE_* environment variables, in that order.
func Load(path string) (*Config, error) {
	cfg := Default()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the server cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		errs = append(errs, fmt.Errorf("server.mode must be debug, release or test, got %q", c.Server.Mode))
	}
	if c.Metrics.Enabled {
		if c.Metrics.Port <= 0 || c.Metrics.Port > 65535 {
			errs = append(errs, fmt.Errorf("metrics.port out of range: %d", c.Metrics.Port))
		}
		if c.Metrics.Port == c.Server.Port {
			errs = append(errs, errors.New("metrics.port must differ from server.port"))
		}
		if !strings.HasPrefix(c.Metrics.Path, "/") {
			errs = append(errs, fmt.Errorf("metrics.path must start with '/', got %q", c.Metrics.Path))
		}
	}

	switch c.Generation.Provider {
	case ProviderNone, ProviderOpenAI, ProviderGitHubModels, ProviderOllama:
	case ProviderAzure:
		if c.Generation.BaseURL == "" || c.Generation.Model == "" {
			errs = append(errs, errors.New("generation provider azure requires base_url and model (deployment name)"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported generation provider %q", c.Generation.Provider))
	}
	if c.Generation.Timeout <= 0 {
		errs = append(errs, errors.New("generation.timeout must be positive"))
	}

	switch c.Database.Driver {
	case "":
		if c.Registry.EnforceOrigin {
			errs = append(errs, errors.New("registry.enforce_origin requires database.driver"))
		}
	case "sqlite3", "postgres":
		if c.Database.DSN == "" {
			errs = append(errs, fmt.Errorf("database.dsn is required for driver %s", c.Database.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported database driver %q", c.Database.Driver))
	}

	return errors.Join(errs...)
}
