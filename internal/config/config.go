package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment overrides (ROUTEEXPLORER_SERVER_PORT)
const EnvPrefix = "ROUTEEXPLORER"

// Config holds the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Registry  RegistryConfig  `yaml:"registry" mapstructure:"registry"`
	Storage   StorageConfig   `yaml:"storage" mapstructure:"storage"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Tester    TesterConfig    `yaml:"tester" mapstructure:"tester"`
	Retention RetentionConfig `yaml:"retention" mapstructure:"retention"`
	Logging   LoggingConfig   `yaml:"logging" mapstructure:"logging"`
	Settings  Settings        `yaml:"settings" mapstructure:"settings"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int    `yaml:"port" mapstructure:"port"`
	Host string `yaml:"host" mapstructure:"host"`
}

// RegistryConfig selects where routes come from
type RegistryConfig struct {
	Type            string `yaml:"type" mapstructure:"type"`     // "file", "index" or "openapi"
	Source          string `yaml:"source" mapstructure:"source"` // path or URL
	BaseURL         string `yaml:"baseUrl" mapstructure:"baseUrl"`
	SiteName        string `yaml:"siteName" mapstructure:"siteName"`
	SiteDescription string `yaml:"siteDescription" mapstructure:"siteDescription"`
}

// StorageConfig holds history storage configuration
type StorageConfig struct {
	Type string `yaml:"type" mapstructure:"type"` // "memory", "file", "mysql" or "postgres"
	Path string `yaml:"path" mapstructure:"path"` // directory for file storage
	DSN  string `yaml:"dsn" mapstructure:"dsn"`
}

// CacheConfig holds catalog cache configuration
type CacheConfig struct {
	Type     string `yaml:"type" mapstructure:"type"` // "memory", "redis" or "none"
	RedisURL string `yaml:"redisUrl" mapstructure:"redisUrl"`
}

// TesterConfig tunes outbound test requests
type TesterConfig struct {
	InsecureSkipVerify bool          `yaml:"insecureSkipVerify" mapstructure:"insecureSkipVerify"`
	MaxBodyBytes       int64         `yaml:"maxBodyBytes" mapstructure:"maxBodyBytes"`
	BulkPacing         time.Duration `yaml:"bulkPacing" mapstructure:"bulkPacing"`
	BulkConcurrency    int           `yaml:"bulkConcurrency" mapstructure:"bulkConcurrency"`
}

// RetentionConfig schedules the history cleanup
type RetentionConfig struct {
	Schedule string `yaml:"schedule" mapstructure:"schedule"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Settings are the operator-facing switches exposed by the admin API
type Settings struct {
	EnableAPITesting      bool `yaml:"enableApiTesting" mapstructure:"enableApiTesting" json:"enableApiTesting"`
	DefaultTimeoutSeconds int  `yaml:"defaultTimeoutSeconds" mapstructure:"defaultTimeoutSeconds" json:"defaultTimeoutSeconds"`
	ShowPrivateRoutes     bool `yaml:"showPrivateRoutes" mapstructure:"showPrivateRoutes" json:"showPrivateRoutes"`
	CacheDurationSeconds  int  `yaml:"cacheDurationSeconds" mapstructure:"cacheDurationSeconds" json:"cacheDurationSeconds"`
	EnableLogging         bool `yaml:"enableLogging" mapstructure:"enableLogging" json:"enableLogging"`
	LogRetentionDays      int  `yaml:"logRetentionDays" mapstructure:"logRetentionDays" json:"logRetentionDays"`
}

// CacheTTL is the catalog cache duration
func (s Settings) CacheTTL() time.Duration {
	return time.Duration(s.CacheDurationSeconds) * time.Second
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8080,
			Host: "0.0.0.0",
		},
		Registry: RegistryConfig{
			Type:   "file",
			Source: "./routes.yaml",
		},
		Storage: StorageConfig{
			Type: "file",
			Path: "./data",
		},
		Cache: CacheConfig{
			Type:     "memory",
			RedisURL: "redis://localhost:6379",
		},
		Tester: TesterConfig{
			MaxBodyBytes:    10 << 20,
			BulkPacing:      100 * time.Millisecond,
			BulkConcurrency: 1,
		},
		Retention: RetentionConfig{
			Schedule: "@daily",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Settings: Settings{
			EnableAPITesting:      true,
			DefaultTimeoutSeconds: 30,
			ShowPrivateRoutes:     false,
			CacheDurationSeconds:  3600,
			EnableLogging:         true,
			LogRetentionDays:      30,
		},
	}
}

// Load reads configuration from a YAML file over the defaults
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetDefaults registers every default value with v
func SetDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.host", d.Server.Host)

	v.SetDefault("registry.type", d.Registry.Type)
	v.SetDefault("registry.source", d.Registry.Source)
	v.SetDefault("registry.baseUrl", "")
	v.SetDefault("registry.siteName", "")
	v.SetDefault("registry.siteDescription", "")

	v.SetDefault("storage.type", d.Storage.Type)
	v.SetDefault("storage.path", d.Storage.Path)
	v.SetDefault("storage.dsn", "")

	v.SetDefault("cache.type", d.Cache.Type)
	v.SetDefault("cache.redisUrl", d.Cache.RedisURL)

	v.SetDefault("tester.insecureSkipVerify", d.Tester.InsecureSkipVerify)
	v.SetDefault("tester.maxBodyBytes", d.Tester.MaxBodyBytes)
	v.SetDefault("tester.bulkPacing", d.Tester.BulkPacing.String())
	v.SetDefault("tester.bulkConcurrency", d.Tester.BulkConcurrency)

	v.SetDefault("retention.schedule", d.Retention.Schedule)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)

	v.SetDefault("settings.enableApiTesting", d.Settings.EnableAPITesting)
	v.SetDefault("settings.defaultTimeoutSeconds", d.Settings.DefaultTimeoutSeconds)
	v.SetDefault("settings.showPrivateRoutes", d.Settings.ShowPrivateRoutes)
	v.SetDefault("settings.cacheDurationSeconds", d.Settings.CacheDurationSeconds)
	v.SetDefault("settings.enableLogging", d.Settings.EnableLogging)
	v.SetDefault("settings.logRetentionDays", d.Settings.LogRetentionDays)
}

// FromViper decodes and validates the configuration held by v
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects unknown component types and out-of-range settings
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if !oneOf(c.Registry.Type, "file", "index", "openapi") {
		return fmt.Errorf("unsupported registry.type: %s", c.Registry.Type)
	}
	if !oneOf(c.Storage.Type, "memory", "file", "mysql", "postgres") {
		return fmt.Errorf("unsupported storage.type: %s", c.Storage.Type)
	}
	if !oneOf(c.Cache.Type, "memory", "redis", "none") {
		return fmt.Errorf("unsupported cache.type: %s", c.Cache.Type)
	}
	if c.Settings.DefaultTimeoutSeconds < 1 || c.Settings.DefaultTimeoutSeconds > 300 {
		return fmt.Errorf("settings.defaultTimeoutSeconds must be between 1 and 300, got %d", c.Settings.DefaultTimeoutSeconds)
	}
	if c.Settings.CacheDurationSeconds < 0 {
		return fmt.Errorf("settings.cacheDurationSeconds must not be negative")
	}
	if c.Tester.BulkPacing < 0 {
		return fmt.Errorf("tester.bulkPacing must not be negative")
	}
	return nil
}

// Address is the host:port the admin API listens on
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Marshal renders the configuration as YAML
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
