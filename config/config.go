package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Set at build time with -ldflags "-X sonora/config.Version=..."
var (
	AppName = "sonora"
	Version = "0.1.0"
)

// Config holds the backend configuration
type Config struct {
	Server        ServerConfig  `mapstructure:"server"`
	Locale        string        `mapstructure:"locale"`
	LegacyCharset string        `mapstructure:"legacy_charset"`
	HTTP          HTTPConfig    `mapstructure:"http"`
	Updater       UpdaterConfig `mapstructure:"updater"`
	Library       LibraryConfig `mapstructure:"library"`
	Log           LogConfig     `mapstructure:"log"`
	Dev           bool          `mapstructure:"dev"`
	SettingsFile  string        `mapstructure:"settings_file"`
}

type ServerConfig struct {
	Host        string   `mapstructure:"host"`
	Port        int      `mapstructure:"port"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

type HTTPConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

type UpdaterConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type LibraryConfig struct {
	Extensions  []string `mapstructure:"extensions"`
	ScanWorkers int      `mapstructure:"scan_workers"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Addr returns the listen address of the command server
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 17327)
	v.SetDefault("server.cors_origins", []string{
		"http://localhost:1420",
		"http://localhost:5173",
		"tauri://localhost",
	})
	v.SetDefault("locale", "zh-CN")
	v.SetDefault("legacy_charset", "")
	v.SetDefault("http.timeout", 30*time.Second)
	v.SetDefault("updater.endpoint", "")
	v.SetDefault("updater.timeout", 15*time.Second)
	v.SetDefault("library.extensions", []string{"mp3", "wav", "flac", "aac", "m4a"})
	v.SetDefault("library.scan_workers", 4)
	v.SetDefault("log.level", "info")
	v.SetDefault("dev", false)
	v.SetDefault("settings_file", defaultSettingsFile())
}

func defaultSettingsFile() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".sonora-settings.json")
	}
	return filepath.Join(homeDir, ".sonora-settings.json")
}

// Load reads defaults, then the optional config file, then SONORA_* environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("SONORA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the config and fills zero values that have a safe default
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return &ValidationError{Field: "server.port", Message: "port must be between 0 and 65535"}
	}
	if c.Server.Host == "" {
		c.Server.Host = "127.0.0.1"
	}
	switch strings.ToLower(c.LegacyCharset) {
	case "", "gb18030":
		c.LegacyCharset = strings.ToLower(c.LegacyCharset)
	default:
		return &ValidationError{Field: "legacy_charset", Message: "only gb18030 is supported"}
	}
	if c.Locale == "" {
		c.Locale = "zh-CN"
	}
	if c.Library.ScanWorkers < 1 {
		c.Library.ScanWorkers = 1
	}
	for i, ext := range c.Library.Extensions {
		c.Library.Extensions[i] = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	}
	if c.HTTP.Timeout < 0 {
		return &ValidationError{Field: "http.timeout", Message: "timeout must not be negative"}
	}
	return nil
}

// ValidationError reports an invalid config field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
