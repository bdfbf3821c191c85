package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rflorenc/deploy-ledger/internal/dbms"
	"github.com/rflorenc/deploy-ledger/internal/logger"
	"github.com/rflorenc/deploy-ledger/internal/models"
	"gopkg.in/yaml.v3"
)

// Environment variables that override file values.
const (
	EnvListen   = "DEPLOYCTL_LISTEN"
	EnvLogLevel = "DEPLOYCTL_LOG_LEVEL"
	EnvLogFile  = "DEPLOYCTL_LOG_FILE"
)

const DefaultListen = ":8080"

// LogConfig configures the leveled logger and its rotating file.
type LogConfig struct {
	Level      string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error DEBUG INFO WARN WARNING ERROR"`
	File       string `yaml:"file"`
	MaxSize    int    `yaml:"max_size" validate:"min=0"`
	MaxBackups int    `yaml:"max_backups" validate:"min=0"`
	MaxAge     int    `yaml:"max_age" validate:"min=0"`
	Compress   bool   `yaml:"compress"`
}

// ServerConfig is a pre-configured target server connection.
type ServerConfig struct {
	Server       string `yaml:"server" validate:"required"`
	Port         int    `yaml:"port" validate:"gt=0"`
	UserID       string `yaml:"userid" validate:"required"`
	Password     string `yaml:"password"`
	PwdEncrypted bool   `yaml:"pwd_encrypted"`
}

// MappingConfig is one datasource translation.
type MappingConfig struct {
	Source string `yaml:"source" validate:"required"`
	Target string `yaml:"target"`
}

// DbmsMapConfig is the datasource translation table for one source server.
type DbmsMapConfig struct {
	SourceServer string          `yaml:"source_server" validate:"required"`
	Mappings     []MappingConfig `yaml:"mappings" validate:"dive"`
}

// Config holds all configuration (CLI flags + config file + environment).
type Config struct {
	Listen   string          `yaml:"listen"`
	Log      LogConfig       `yaml:"log"`
	Servers  []ServerConfig  `yaml:"servers" validate:"dive"`
	DbmsMaps []DbmsMapConfig `yaml:"dbms_maps" validate:"dive"`
}

// Load reads the YAML file at path when path is non-empty, then applies the
// .env file and environment overrides, then defaults, and validates the
// result.
func Load(path string) (*Config, error) {
	c := &Config{}
	if path != "" {
		if err := c.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	c.applyEnv()
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvListen); v != "" {
		c.Listen = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(EnvLogFile); v != "" {
		c.Log.File = v
	}
}

var validate = validator.New()

// Validate checks the loaded values.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	seen := make(map[string]bool)
	for _, m := range c.DbmsMaps {
		if seen[m.SourceServer] {
			return fmt.Errorf("invalid config: dbms map for %q declared twice", m.SourceServer)
		}
		seen[m.SourceServer] = true
	}
	return nil
}

// LoggerConfig converts the log section for logger.NewWithConfig.
func (c *Config) LoggerConfig() logger.Config {
	return logger.Config{
		Level:      c.Log.Level,
		File:       c.Log.File,
		MaxSize:    c.Log.MaxSize,
		MaxBackups: c.Log.MaxBackups,
		MaxAge:     c.Log.MaxAge,
		Compress:   c.Log.Compress,
	}
}

// ServerConnections builds the configured connections.
func (c *Config) ServerConnections() ([]*models.ServerConnectionInfo, error) {
	out := make([]*models.ServerConnectionInfo, 0, len(c.Servers))
	for i, s := range c.Servers {
		info, err := models.NewServerConnectionInfo(models.ConnectionParams{
			Server:       s.Server,
			Port:         s.Port,
			UserID:       s.UserID,
			Password:     s.Password,
			PwdEncrypted: s.PwdEncrypted,
		})
		if err != nil {
			return nil, fmt.Errorf("servers[%d]: %w", i, err)
		}
		out = append(out, info)
	}
	return out, nil
}

// Registry builds a DBMS registry from the configured tables. Mapping order
// is kept, including repeated sources.
func (c *Config) Registry() (*dbms.Registry, error) {
	r := dbms.NewRegistry()
	for _, mc := range c.DbmsMaps {
		m, err := dbms.NewMap(mc.SourceServer)
		if err != nil {
			return nil, fmt.Errorf("dbms_maps[%s]: %w", mc.SourceServer, err)
		}
		for _, entry := range mc.Mappings {
			ds, err := dbms.NewDatasourceMap(entry.Source, entry.Target)
			if err != nil {
				return nil, fmt.Errorf("dbms_maps[%s]: %w", mc.SourceServer, err)
			}
			mapping, err := dbms.NewMapping(ds)
			if err != nil {
				return nil, fmt.Errorf("dbms_maps[%s]: %w", mc.SourceServer, err)
			}
			if err := m.AddMapping(mapping); err != nil {
				return nil, fmt.Errorf("dbms_maps[%s]: %w", mc.SourceServer, err)
			}
		}
		r.Put(m)
	}
	return r, nil
}
