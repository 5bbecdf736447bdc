package utils

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Server connection settings
type ServerConfig struct {
	BaseURL string `toml:"base_url" env:"INKDROP_SERVER_URL"`
}

// Cache and retry tuning, in seconds / milliseconds where noted
type CacheConfig struct {
	FreshSeconds   int `toml:"fresh_seconds" env:"INKDROP_CACHE_FRESH"`
	StaleSeconds   int `toml:"stale_seconds" env:"INKDROP_CACHE_STALE"`
	Retries        int `toml:"retries" env:"INKDROP_RETRIES"`
	BackoffMillis  int `toml:"backoff_millis" env:"INKDROP_RETRY_BACKOFF_MS"`
	TimeoutSeconds int `toml:"timeout_seconds" env:"INKDROP_HTTP_TIMEOUT"`
}

// UI defaults
type UIConfig struct {
	View string `toml:"view" env:"INKDROP_VIEW"`
	Sort string `toml:"sort" env:"INKDROP_SORT"`
}

// Direct send-to-kindle over SMTP; used when the server endpoint fails or
// is not configured.
type SMTPConfig struct {
	Host        string `toml:"host" env:"INKDROP_SMTP_HOST"`
	Port        int    `toml:"port" env:"INKDROP_SMTP_PORT"`
	From        string `toml:"from" env:"INKDROP_SMTP_FROM"`
	Password    string `toml:"password" env:"INKDROP_SMTP_PASSWORD"`
	KindleEmail string `toml:"kindle_email" env:"INKDROP_KINDLE_EMAIL"`
}

// External discovery source
type SourcesConfig struct {
	BaseURL    string `toml:"base_url" env:"INKDROP_SOURCE_URL"`
	SearchPath string `toml:"search_path" env:"INKDROP_SOURCE_SEARCH_PATH"`
}

// Root config
type Config struct {
	Server   ServerConfig  `toml:"server"`
	Cache    CacheConfig   `toml:"cache"`
	UI       UIConfig      `toml:"ui"`
	SMTP     SMTPConfig    `toml:"smtp"`
	Sources  SourcesConfig `toml:"sources"`
	LogLevel string        `toml:"log_level" env:"LOG_LEVEL"`
}

// Global variable to hold config
var AppConfig Config

func defaults() Config {
	return Config{
		Server: ServerConfig{BaseURL: "http://localhost:8084"},
		Cache: CacheConfig{
			FreshSeconds:   30,
			StaleSeconds:   300,
			Retries:        2,
			BackoffMillis:  500,
			TimeoutSeconds: 15,
		},
		UI: UIConfig{View: "grid", Sort: "new"},
		Sources: SourcesConfig{
			BaseURL:    "https://www.gutenberg.org",
			SearchPath: "/ebooks/search/",
		},
		LogLevel: "info",
	}
}

func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "inkdrop")
}

func configPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// expandPath replaces leading "~" with user home dir
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// LoadConfig fills AppConfig from defaults, then the TOML file if present,
// then environment variables (highest precedence). A missing config file
// is not an error; first run works out of the box.
func LoadConfig() error {
	AppConfig = defaults()

	if data, err := os.ReadFile(configPath()); err == nil {
		if err := toml.Unmarshal(data, &AppConfig); err != nil {
			return err
		}
	}

	_ = godotenv.Load(".env")
	return env.Parse(&AppConfig)
}

// SaveConfig writes AppConfig back to the config file.
func SaveConfig() error {
	if err := os.MkdirAll(ConfigDir(), 0755); err != nil {
		return err
	}
	data, err := toml.Marshal(&AppConfig)
	if err != nil {
		return err
	}
	return os.WriteFile(configPath(), data, 0644)
}
