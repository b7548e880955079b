package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// =============================================================================
// Config Types
// =============================================================================

// Config holds all application configuration.
type Config struct {
	Project  ProjectConfig  `mapstructure:"project"`
	Registry RegistryConfig `mapstructure:"registry"`
	Deploy   DeployConfig   `mapstructure:"deploy"`
	Proxy    ProxyConfig    `mapstructure:"proxy"`
	Local    LocalConfig    `mapstructure:"local"`
	Database DatabaseConfig `mapstructure:"database"`
	Docker   DockerConfig   `mapstructure:"docker"`
	Log      LogConfig      `mapstructure:"log"`
}

// ProjectConfig identifies the managed-platform project and region.
type ProjectConfig struct {
	// ID has no default: a run without a resolvable project identity
	// must fail before any build or deploy side effect.
	ID     string `mapstructure:"id"`
	Region string `mapstructure:"region"`
}

// RegistryConfig holds container registry configuration.
type RegistryConfig struct {
	Host string `mapstructure:"host"`

	// Auth is the base64 registry auth blob sent with pushes.
	// Empty means anonymous. Set via RAINCAST_REGISTRY_AUTH.
	Auth string `mapstructure:"auth"`
}

// DeployConfig holds deploy pipeline configuration.
type DeployConfig struct {
	// Manifest is the service-definition file the pipeline deploys.
	Manifest string `mapstructure:"manifest"`

	// ServicePort is the container port every deployed service,
	// including the proxy, serves HTTP on.
	ServicePort int `mapstructure:"service_port"`

	// Timeout bounds each blocking platform call. Zero disables the
	// client-side bound and relies on the platform's own timeouts.
	Timeout time.Duration `mapstructure:"timeout"`
}

// ProxyConfig holds reverse-proxy configuration.
type ProxyConfig struct {
	ServiceName string `mapstructure:"service_name"`
	ListenPort  int    `mapstructure:"listen_port"`
	BaseImage   string `mapstructure:"base_image"`
}

// LocalConfig holds the local execution path configuration.
type LocalConfig struct {
	StackFile string `mapstructure:"stack_file"`
	Project   string `mapstructure:"project"`
}

// DatabaseConfig holds run-history database configuration.
type DatabaseConfig struct {
	// DSN is the SQLite path; empty disables run history.
	DSN string `mapstructure:"dsn"`
}

// DockerConfig holds Docker client configuration.
type DockerConfig struct {
	Host string `mapstructure:"host"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// =============================================================================
// Config Loading
// =============================================================================

// LoadConfig loads configuration from file and environment.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("project.id", "")
	v.SetDefault("project.region", "us-central1")
	v.SetDefault("registry.host", "gcr.io")
	v.SetDefault("registry.auth", "")
	v.SetDefault("deploy.manifest", "raincast.yaml")
	v.SetDefault("deploy.service_port", 8080)
	v.SetDefault("deploy.timeout", "10m")
	v.SetDefault("proxy.service_name", "raincast-proxy")
	v.SetDefault("proxy.listen_port", 8080)
	v.SetDefault("proxy.base_image", "nginx:1.27-alpine")
	v.SetDefault("local.stack_file", "docker-compose.yml")
	v.SetDefault("local.project", "raincast")
	v.SetDefault("database.dsn", "./data/raincast.db")
	v.SetDefault("docker.host", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Load from file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			// Only return error if file was explicitly specified and is invalid
			if _, ok := err.(viper.ConfigParseError); ok {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
			// File not found is OK, we'll use defaults
		}
	}

	// Enable environment variable overrides
	v.SetEnvPrefix("RAINCAST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The project identity and region also resolve from the ambient
	// platform environment when no RAINCAST_ override is set.
	v.BindEnv("project.id", "RAINCAST_PROJECT_ID", "GOOGLE_CLOUD_PROJECT")
	v.BindEnv("project.region", "RAINCAST_REGION")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// =============================================================================
// Logger Setup
// =============================================================================

// SetupLogger creates a logger with the configured level and format.
func SetupLogger(cfg *Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Log.Format) == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
