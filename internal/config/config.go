package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
)

// Vision providers.
const (
	VisionGoogle = "google"
	VisionOpenAI = "openai"
	VisionNone   = "none"
)

// Config holds the lostfound API configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Store      StoreConfig      `yaml:"store"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Vision     VisionConfig     `yaml:"vision"`
	Generative GenerativeConfig `yaml:"generative"`
	Matching   MatchingConfig   `yaml:"matching"`
	Risk       RiskConfig       `yaml:"risk"`
	Auth       AuthConfig       `yaml:"auth"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds the desk keys that guard inventory edits.
type AuthConfig struct {
	DeskKeys []string `yaml:"desk_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int      `yaml:"port"`
	ReadTimeoutSec  int      `yaml:"read_timeout_sec"`
	WriteTimeoutSec int      `yaml:"write_timeout_sec"`
	ShutdownSec     int      `yaml:"shutdown_timeout_sec"`
	AllowedOrigins  []string `yaml:"allowed_origins"`
}

// StoreConfig holds candidate store settings.
type StoreConfig struct {
	Driver           string   `yaml:"driver"` // memory, redis (default: memory)
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	Seed             Flag     `yaml:"seed"` // start with the sample items (default: true)
}

// EmbeddingConfig holds image embedding settings.
type EmbeddingConfig struct {
	Provider    string `yaml:"provider"` // metrics label
	APIKey      string `yaml:"api_key"`
	BaseURL     string `yaml:"base_url"`
	Model       string `yaml:"model"`      // text embedding model applied to the image caption
	Dimensions  int    `yaml:"dimensions"` // 0 = provider default, no check
	Cache       Flag   `yaml:"cache"`      // default: true when the store is redis
	CacheTTLSec int    `yaml:"cache_ttl_sec"`
	// CaptionModel is the vision chat model that describes the image before embedding.
	CaptionModel string `yaml:"caption_model"`
}

// VisionConfig holds image annotation settings.
type VisionConfig struct {
	Provider     string `yaml:"provider"` // google, openai, none (default: google)
	APIKey       string `yaml:"api_key"`
	Endpoint     string `yaml:"endpoint"`
	Model        string `yaml:"model"` // openai only
	ImageBaseURL string `yaml:"image_base_url"`
	TimeoutSec   int    `yaml:"timeout_sec"`
}

// GenerativeConfig holds verification text generation settings.
type GenerativeConfig struct {
	Enabled Flag   `yaml:"enabled"` // default: true
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// MatchingConfig holds ranking settings.
type MatchingConfig struct {
	ForceDemoMatch    Flag    `yaml:"force_demo_match"` // default: true
	LookupRate        float64 `yaml:"lookup_rate"`      // annotations per second
	LookupConcurrency int     `yaml:"lookup_concurrency"`
	LookupTimeoutSec  int     `yaml:"lookup_timeout_sec"`
}

// RiskConfig holds risk classifier settings.
type RiskConfig struct {
	LookupTimeoutSec int `yaml:"lookup_timeout_sec"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes YAML config data, expanding ${VAR} references and applying defaults.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadDotEnv loads .env files into the process environment without overriding
// variables that are already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 30
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Store.Driver == "" {
		c.Store.Driver = DriverMemory
	}
	if c.Store.ReadinessTimeout <= 0 {
		c.Store.ReadinessTimeout = 10
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
	if c.Embedding.CaptionModel == "" {
		c.Embedding.CaptionModel = "gpt-4o-mini"
	}
	if c.Vision.Provider == "" {
		c.Vision.Provider = VisionGoogle
	}
	if c.Vision.Model == "" {
		c.Vision.Model = "gpt-4o-mini"
	}
	if c.Vision.TimeoutSec <= 0 {
		c.Vision.TimeoutSec = 15
	}
	if c.Generative.Model == "" {
		c.Generative.Model = "gpt-4o-mini"
	}
	if c.Matching.LookupRate <= 0 {
		c.Matching.LookupRate = 5
	}
	if c.Matching.LookupConcurrency <= 0 {
		c.Matching.LookupConcurrency = 4
	}
	if c.Matching.LookupTimeoutSec <= 0 {
		c.Matching.LookupTimeoutSec = 10
	}
	if c.Risk.LookupTimeoutSec <= 0 {
		c.Risk.LookupTimeoutSec = 5
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Store.Driver {
	case DriverMemory:
	case DriverRedis:
		if len(c.Store.Addrs) == 0 {
			return fmt.Errorf("store.addrs is required for the redis driver")
		}
	default:
		return fmt.Errorf("store.driver must be %q or %q, got %q", DriverMemory, DriverRedis, c.Store.Driver)
	}
	switch c.Vision.Provider {
	case VisionGoogle, VisionOpenAI, VisionNone:
	default:
		return fmt.Errorf("vision.provider must be %q, %q or %q, got %q",
			VisionGoogle, VisionOpenAI, VisionNone, c.Vision.Provider)
	}
	if c.Embedding.Dimensions < 0 {
		return fmt.Errorf("embedding.dimensions must not be negative, got %d", c.Embedding.Dimensions)
	}
	if c.Embedding.CacheTTLSec < 0 {
		return fmt.Errorf("embedding.cache_ttl_sec must not be negative, got %d", c.Embedding.CacheTTLSec)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
