package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Discovery DiscoveryConfig `mapstructure:"discovery"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Selection SelectionConfig `mapstructure:"selection"`
}

type ServerConfig struct {
	GRPCPort        int           `mapstructure:"grpc_port"`
	HTTPPort        int           `mapstructure:"http_port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LogConfig struct {
	Development bool `mapstructure:"development"`
}

type CatalogConfig struct {
	SearchPaths []string `mapstructure:"search_paths"`
}

type DiscoveryConfig struct {
	Interval    time.Duration      `mapstructure:"interval"`
	ScanTimeout time.Duration      `mapstructure:"scan_timeout"`
	MDNS        MDNSConfig         `mapstructure:"mdns"`
	USB         USBConfig          `mapstructure:"usb"`
	StaticPorts []StaticPortConfig `mapstructure:"static_ports"`
}

type MDNSConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Service string `mapstructure:"service"`
	Domain  string `mapstructure:"domain"`
}

type USBConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	AllDevices bool `mapstructure:"all_devices"`
}

// StaticPortConfig declares a port that is always reported as detected.
// BoardID and FQBN are optional hints resolved against the catalog.
type StaticPortConfig struct {
	Protocol      string            `mapstructure:"protocol"`
	Address       string            `mapstructure:"address"`
	Label         string            `mapstructure:"label"`
	ProtocolLabel string            `mapstructure:"protocol_label"`
	Properties    map[string]string `mapstructure:"properties"`
	BoardID       string            `mapstructure:"board_id"`
	FQBN          string            `mapstructure:"fqbn"`
}

type StorageConfig struct {
	Driver   string         `mapstructure:"driver"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
	Postgres DatabaseConfig `mapstructure:"postgres"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

type DatabaseConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
}

// SelectionConfig is the initial board/port selection. It is never written back.
type SelectionConfig struct {
	Board *SelectedBoardConfig `mapstructure:"board"`
	Port  *SelectedPortConfig  `mapstructure:"port"`
}

type SelectedBoardConfig struct {
	Name string `mapstructure:"name"`
	FQBN string `mapstructure:"fqbn"`
}

type SelectedPortConfig struct {
	Protocol string `mapstructure:"protocol"`
	Address  string `mapstructure:"address"`
}

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.grpc_port", 50051)
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.shutdown_timeout", "30s")

	v.SetDefault("log.development", false)

	v.SetDefault("discovery.interval", "2s")
	v.SetDefault("discovery.scan_timeout", "1s")
	v.SetDefault("discovery.mdns.enabled", true)
	v.SetDefault("discovery.mdns.service", "_arduino._tcp")
	v.SetDefault("discovery.mdns.domain", "local.")
	v.SetDefault("discovery.usb.enabled", false)
	v.SetDefault("discovery.usb.all_devices", false)

	v.SetDefault("storage.driver", DriverSQLite)
	v.SetDefault("storage.sqlite.path", "data/history.db")
	v.SetDefault("storage.postgres.host", "localhost")
	v.SetDefault("storage.postgres.port", 5432)
	v.SetDefault("storage.postgres.max_connections", 4)
}

// Load reads the YAML file at path. Environment variables prefixed with OBC_
// override file values (OBC_SERVER_HTTP_PORT, OBC_STORAGE_DRIVER, ...).
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	setDefaults(v)

	v.SetEnvPrefix("OBC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var config Config
	// defaults only, decoding cannot fail
	_ = v.Unmarshal(&config)
	return &config
}

func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("invalid storage driver %q", c.Storage.Driver)
	}

	if c.Discovery.Interval <= 0 {
		return fmt.Errorf("discovery interval must be positive")
	}

	for i, port := range c.Discovery.StaticPorts {
		if port.Protocol == "" || port.Address == "" {
			return fmt.Errorf("static port %d: protocol and address are required", i)
		}
	}

	if c.Selection.Board != nil && c.Selection.Board.Name == "" && c.Selection.Board.FQBN == "" {
		return fmt.Errorf("selection board needs a name or an fqbn")
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User, c.Password, c.Host, c.Port, c.Database)
}
