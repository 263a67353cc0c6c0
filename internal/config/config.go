package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

const appName = "Laurelin Chat"

// Version is reported to the backend and in telemetry resources
var Version = "1.0.0"

// Environment holds the per-deployment endpoints
type Environment struct {
	APIURL             string `toml:"api_url"`
	GoogleClientID     string `toml:"google_client_id"`
	GoogleClientSecret string `toml:"google_client_secret"`
}

// Config holds application configuration
type Config struct {
	Env   string `toml:"env"`   // "development", "production" or empty for host detection
	Host  string `toml:"host"`  // Host name inspected when Env is empty
	Debug bool   `toml:"debug"`

	Development Environment `toml:"development"`
	Production  Environment `toml:"production"`

	DataDir           string  `toml:"data_dir"` // Credential database lives here
	LogDir            string  `toml:"log_dir"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	RequestTimeout    int     `toml:"request_timeout_seconds"`
	SkipSplash        bool    `toml:"skip_splash"`
}

// Default returns the built-in configuration
func Default() Config {
	dataDir := ".laurelin"
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".laurelin")
	}

	return Config{
		Development: Environment{
			APIURL:         "http://localhost:8080/api",
			GoogleClientID: "YOUR_GOOGLE_CLIENT_ID",
		},
		Production: Environment{
			APIURL:         "https://your-backend-url.com/api",
			GoogleClientID: "YOUR_PRODUCTION_GOOGLE_CLIENT_ID",
		},
		DataDir:           dataDir,
		LogDir:            filepath.Join(dataDir, "logs"),
		RequestsPerSecond: 10,
		RequestTimeout:    60,
	}
}

// DefaultPath returns the config file location used when none is given
func DefaultPath() string {
	return filepath.Join(Default().DataDir, "config.toml")
}

// Load builds the configuration from defaults, the TOML file at path (if it
// exists), a .env file in the working directory and LAURELIN_* variables.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	// Load .env file if it exists
	_ = godotenv.Load()

	cfg.Env = getEnvOrDefault("LAURELIN_ENV", cfg.Env)
	cfg.Host = getEnvOrDefault("LAURELIN_HOST", cfg.Host)
	cfg.DataDir = getEnvOrDefault("LAURELIN_DATA_DIR", cfg.DataDir)
	cfg.LogDir = getEnvOrDefault("LAURELIN_LOG_DIR", cfg.LogDir)
	cfg.RequestsPerSecond = getEnvAsFloatOrDefault("LAURELIN_REQUESTS_PER_SECOND", cfg.RequestsPerSecond)

	// Endpoint overrides apply to whichever environment is selected.
	active := cfg.activeEnvironment()
	active.APIURL = getEnvOrDefault("LAURELIN_API_URL", active.APIURL)
	active.GoogleClientID = getEnvOrDefault("LAURELIN_GOOGLE_CLIENT_ID", active.GoogleClientID)
	active.GoogleClientSecret = getEnvOrDefault("LAURELIN_GOOGLE_CLIENT_SECRET", active.GoogleClientSecret)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the fields that have no usable fallback
func (c Config) Validate() error {
	switch c.Env {
	case "", EnvDevelopment, EnvProduction:
	default:
		return fmt.Errorf("unknown environment %q (want %s or %s)", c.Env, EnvDevelopment, EnvProduction)
	}
	if strings.TrimSpace(c.Active().APIURL) == "" {
		return errors.New("api_url must not be empty")
	}
	if c.RequestsPerSecond < 0 {
		return errors.New("requests_per_second must not be negative")
	}
	return nil
}

// EnvironmentName returns the selected environment name
func (c Config) EnvironmentName() string {
	if c.Env != "" {
		return c.Env
	}
	return SelectEnvironment(c.inspectedHost())
}

// Active returns the endpoints of the selected environment
func (c Config) Active() Environment {
	if c.EnvironmentName() == EnvProduction {
		return c.Production
	}
	return c.Development
}

// AppName returns the display name of the client
func (c Config) AppName() string {
	return appName
}

// CredentialDBPath returns the location of the credential database
func (c Config) CredentialDBPath() string {
	return filepath.Join(c.DataDir, "credentials.db")
}

func (c *Config) activeEnvironment() *Environment {
	if c.EnvironmentName() == EnvProduction {
		return &c.Production
	}
	return &c.Development
}

func (c Config) inspectedHost() string {
	if c.Host != "" {
		return c.Host
	}
	host, err := os.Hostname()
	if err != nil {
		return "localhost"
	}
	return host
}

// SelectEnvironment maps a host name to an environment: local hosts run
// against the development backend, everything else against production.
func SelectEnvironment(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if host == "" || host == "localhost" {
		return EnvDevelopment
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
		return EnvDevelopment
	}
	return EnvProduction
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsFloatOrDefault(key string, defaultVal float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return defaultVal
	}
	return f
}
