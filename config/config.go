package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// SysConfig system configuration
type SysConfig struct {
	Appid    string `yaml:"appid"`
	Location string `yaml:"location"`
	Workdir  string `yaml:"workdir"`
	NodeID   int64  `yaml:"node_id"` // snowflake node, unique per instance
	Debug    bool   `yaml:"debug"`
}

// WebConfig web server configuration
type WebConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	Secret      string `yaml:"secret"`       // JWT signing key
	AuthEnable  bool   `yaml:"auth_enable"`  // require bearer tokens on the API
	TokenTTL    int    `yaml:"token_ttl"`    // token lifetime in hours
	CorsOrigins string `yaml:"cors_origins"` // comma separated, empty disables CORS
}

// DBConfig database configuration
type DBConfig struct {
	Type     string `yaml:"type"` // postgres, sqlite, bolt
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Passwd   string `yaml:"passwd"`
	Path     string `yaml:"path"` // file path for sqlite and bolt, relative to workdir
	MaxConn  int    `yaml:"max_conn"`
	IdleConn int    `yaml:"idle_conn"`
	Debug    bool   `yaml:"debug"`
}

// LogConfig logging configuration
type LogConfig struct {
	Mode       string `yaml:"mode"` // development, production
	FileEnable bool   `yaml:"file_enable"`
	Filename   string `yaml:"filename"`
}

// InventoryConfig inventory behaviour configuration
type InventoryConfig struct {
	LowStockThreshold int64  `yaml:"low_stock_threshold"` // warn when a product falls below this level
	SummaryCron       string `yaml:"summary_cron"`        // cron spec for stock summary snapshots, empty disables
	MetricsRetention  int    `yaml:"metrics_retention"`   // days of summary history to keep
}

// AppConfig application configuration
type AppConfig struct {
	System    SysConfig       `yaml:"system"`
	Web       WebConfig       `yaml:"web"`
	Database  DBConfig        `yaml:"database"`
	Logger    LogConfig       `yaml:"logger"`
	Inventory InventoryConfig `yaml:"inventory"`
}

// GetDataDir returns the data directory under the workdir
func (c *AppConfig) GetDataDir() string {
	return filepath.Join(c.System.Workdir, "data")
}

// DSN builds the postgres connection string
func (d DBConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Passwd, d.Name)
}

// Addr returns the web listen address
func (w WebConfig) Addr() string {
	return fmt.Sprintf("%s:%d", w.Host, w.Port)
}

// DefaultAppConfig returns the built-in configuration
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		System: SysConfig{
			Appid:    "Stockroom",
			Location: "UTC",
			Workdir:  "/var/stockroom",
			NodeID:   1,
			Debug:    false,
		},
		Web: WebConfig{
			Host:     "0.0.0.0",
			Port:     3001,
			Secret:   "9b6de5cc-0731-4bf1-stockroom-8b9f7d3a1c2e",
			TokenTTL: 24,
		},
		Database: DBConfig{
			Type:     "postgres",
			Host:     "127.0.0.1",
			Port:     5432,
			Name:     "stockroom",
			User:     "postgres",
			Passwd:   "postgres",
			Path:     "stockroom.db",
			MaxConn:  50,
			IdleConn: 10,
		},
		Logger: LogConfig{
			Mode:     "development",
			Filename: "/var/stockroom/logs/stockroom.log",
		},
		Inventory: InventoryConfig{
			LowStockThreshold: 10,
			SummaryCron:       "@every 5m",
			MetricsRetention:  30,
		},
	}
}

// LoadConfig reads the YAML file at path over the defaults and applies
// STOCKROOM_* environment overrides. An empty path loads defaults only.
func LoadConfig(path string) (*AppConfig, error) {
	cfg := DefaultAppConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	applyEnv(cfg, os.LookupEnv)
	return cfg, nil
}

// applyEnv overrides configuration from environment variables
func applyEnv(cfg *AppConfig, lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok {
			if n, err := cast.ToIntE(v); err == nil {
				*dst = n
			}
		}
	}
	num64 := func(key string, dst *int64) {
		if v, ok := lookup(key); ok {
			if n, err := cast.ToInt64E(v); err == nil {
				*dst = n
			}
		}
	}
	flag := func(key string, dst *bool) {
		if v, ok := lookup(key); ok {
			if b, err := cast.ToBoolE(v); err == nil {
				*dst = b
			}
		}
	}

	str("STOCKROOM_SYSTEM_WORKDIR", &cfg.System.Workdir)
	str("STOCKROOM_SYSTEM_LOCATION", &cfg.System.Location)
	num64("STOCKROOM_SYSTEM_NODE_ID", &cfg.System.NodeID)
	flag("STOCKROOM_SYSTEM_DEBUG", &cfg.System.Debug)

	str("STOCKROOM_WEB_HOST", &cfg.Web.Host)
	num("STOCKROOM_WEB_PORT", &cfg.Web.Port)
	str("STOCKROOM_WEB_SECRET", &cfg.Web.Secret)
	flag("STOCKROOM_WEB_AUTH_ENABLE", &cfg.Web.AuthEnable)
	num("STOCKROOM_WEB_TOKEN_TTL", &cfg.Web.TokenTTL)
	str("STOCKROOM_WEB_CORS_ORIGINS", &cfg.Web.CorsOrigins)

	str("STOCKROOM_DB_TYPE", &cfg.Database.Type)
	str("STOCKROOM_DB_HOST", &cfg.Database.Host)
	num("STOCKROOM_DB_PORT", &cfg.Database.Port)
	str("STOCKROOM_DB_NAME", &cfg.Database.Name)
	str("STOCKROOM_DB_USER", &cfg.Database.User)
	str("STOCKROOM_DB_PWD", &cfg.Database.Passwd)
	str("STOCKROOM_DB_PATH", &cfg.Database.Path)
	flag("STOCKROOM_DB_DEBUG", &cfg.Database.Debug)

	str("STOCKROOM_LOGGER_MODE", &cfg.Logger.Mode)
	flag("STOCKROOM_LOGGER_FILE_ENABLE", &cfg.Logger.FileEnable)
	str("STOCKROOM_LOGGER_FILENAME", &cfg.Logger.Filename)

	num64("STOCKROOM_LOW_STOCK_THRESHOLD", &cfg.Inventory.LowStockThreshold)
	str("STOCKROOM_SUMMARY_CRON", &cfg.Inventory.SummaryCron)
}
