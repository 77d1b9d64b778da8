package config

import (
	"fmt"
	"net"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfighcl"
)

const (
	appName   = "newsdesk"
	envPrefix = "NEWSDESK"

	minHTTPTimeout = 10 * time.Second
	maxHTTPTimeout = 15 * time.Second
)

// Config содержит все настройки приложения.
// Значения берутся из тегов default, затем из первого найденного HCL-файла,
// затем из переменных окружения NEWSDESK_*.
type Config struct {
	CacheDir      string        `hcl:"cache_dir" env:"CACHE_DIR"`
	FeedTTL       time.Duration `hcl:"feed_ttl" env:"FEED_TTL" default:"15m"`
	ArticleTTL    time.Duration `hcl:"article_ttl" env:"ARTICLE_TTL" default:"1h"`
	HTTPTimeout   time.Duration `hcl:"http_timeout" env:"HTTP_TIMEOUT" default:"10s"`
	UserAgent     string        `hcl:"user_agent" env:"USER_AGENT"`
	LogDir        string        `hcl:"log_dir" env:"LOG_DIR"`
	LogLevel      string        `hcl:"log_level" env:"LOG_LEVEL" default:"info"`
	DefaultFeed   string        `hcl:"default_feed" env:"DEFAULT_FEED" default:"Top Stories"`
	Offline       bool          `hcl:"offline" env:"OFFLINE" default:"false"`
	ServerAddress string        `hcl:"server_address" env:"SERVER_ADDRESS" default:":8080"`
	DatabaseDSN   string        `hcl:"database_dsn" env:"DATABASE_DSN"`
	ArchiveLimit  int           `hcl:"archive_limit" env:"ARCHIVE_LIMIT" default:"20"`
}

// LoggerConfig содержит настройки логгера: уровень и каталог файлов логов.
type LoggerConfig struct {
	Level string
	Dir   string
}

// Logger возвращает часть конфигурации, нужную пакету logger.
func (c *Config) Logger() LoggerConfig {
	return LoggerConfig{Level: c.LogLevel, Dir: c.LogDir}
}

// DefaultFiles возвращает пути, по которым ищется конфигурация, если путь не задан явно:
// ./newsdesk.hcl и $XDG_CONFIG_HOME/newsdesk/config.hcl.
func DefaultFiles() []string {
	return []string{
		"./" + appName + ".hcl",
		filepath.Join(xdg.ConfigHome, appName, "config.hcl"),
	}
}

// Load загружает конфигурацию через aconfig.
// Непустой path заменяет список файлов по умолчанию, и такой файл обязан существовать.
// Пустые пути к каталогам заполняются значениями из XDG.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	files := DefaultFiles()
	if path != "" {
		files = []string{path}
	}
	loader := aconfig.LoaderFor(cfg, aconfig.Config{
		SkipFlags:          true,
		EnvPrefix:          envPrefix,
		Files:              files,
		FailOnFileNotFound: path != "",
		FileDecoders: map[string]aconfig.FileDecoder{
			".hcl": aconfighcl.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.applyPathDefaults()
	return cfg, nil
}

// New создает конфигурацию со значениями по умолчанию без чтения файлов и окружения.
func New() *Config {
	cfg := &Config{
		FeedTTL:       15 * time.Minute,
		ArticleTTL:    time.Hour,
		HTTPTimeout:   10 * time.Second,
		LogLevel:      "info",
		DefaultFeed:   "Top Stories",
		ServerAddress: ":8080",
		ArchiveLimit:  20,
	}
	cfg.applyPathDefaults()
	return cfg
}

// applyPathDefaults подставляет каталоги XDG для кеша и логов, если они не заданы.
func (c *Config) applyPathDefaults() {
	if c.CacheDir == "" {
		c.CacheDir = filepath.Join(xdg.CacheHome, appName)
	}
	if c.LogDir == "" {
		c.LogDir = filepath.Join(xdg.StateHome, appName)
	}
}

// Validate проверяет корректность конфигурации и возвращает первую найденную ошибку.
// TTL должны быть положительными, таймаут HTTP - от 10 до 15 секунд,
// адрес сервера - в формате host:port, уровень логов - одним из известных,
// лимит архива - положительным.
func (c *Config) Validate() error {
	if c.FeedTTL <= 0 {
		return fmt.Errorf("feed_ttl must be positive, got %s", c.FeedTTL)
	}
	if c.ArticleTTL <= 0 {
		return fmt.Errorf("article_ttl must be positive, got %s", c.ArticleTTL)
	}
	if c.HTTPTimeout < minHTTPTimeout || c.HTTPTimeout > maxHTTPTimeout {
		return fmt.Errorf("http_timeout must be between %s and %s, got %s", minHTTPTimeout, maxHTTPTimeout, c.HTTPTimeout)
	}
	if _, _, err := net.SplitHostPort(c.ServerAddress); err != nil {
		return fmt.Errorf("invalid server_address %q: %w", c.ServerAddress, err)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	if c.ArchiveLimit <= 0 {
		return fmt.Errorf("archive_limit must be a positive number")
	}
	return nil
}
