package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

var (
	ErrConfigFileNotFound    = errors.New("could not find config file in any config path")
	ErrConfigVersionMissing  = errors.New("config file is missing version field")
	ErrConfigVersionMismatch = errors.New("config file version mismatch")
	ErrInvalidMultiplier     = errors.New("streak multiplier must be at least 2")
)

// CurrentConfigVersion is the expected version of the config file.
const CurrentConfigVersion = 1

// Config represents the entire application configuration.
type Config struct {
	// Version of the config file.
	Version    int        `koanf:"version"`
	Debug      Debug      `koanf:"debug"`
	PostgreSQL PostgreSQL `koanf:"postgresql"`
	Discord    Discord    `koanf:"discord"`
	Economy    Economy    `koanf:"economy"`
}

// Debug contains debug-related configuration.
type Debug struct {
	// Log level (debug, info, warn, error).
	LogLevel string `koanf:"log_level"`
	// Maximum number of log files to keep.
	MaxLogsToKeep int `koanf:"max_logs_to_keep"`
}

// PostgreSQL contains database connection configuration.
type PostgreSQL struct {
	Host         string `koanf:"host"`
	Port         int    `koanf:"port"`
	User         string `koanf:"user"`
	Password     string `koanf:"password"`
	DBName       string `koanf:"db_name"`
	MaxOpenConns int    `koanf:"max_open_conns"`
	MaxIdleConns int    `koanf:"max_idle_conns"`
	// Connection lifetime limits in minutes.
	MaxLifetime int `koanf:"max_lifetime"`
	MaxIdleTime int `koanf:"max_idle_time"`
}

// Discord contains gateway configuration for the bot binary.
type Discord struct {
	// Bot token used to open the gateway connection.
	Token string `koanf:"token"`
}

// Economy contains claim rule configuration.
type Economy struct {
	// Score multiplier applied on an unbroken claim streak.
	StreakMultiplier int64 `koanf:"streak_multiplier"`
}

// LoadConfig loads the config file from the search paths and returns the
// parsed configuration along with the directory it was loaded from.
func LoadConfig() (*Config, string, error) {
	k := koanf.New(".")

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, "", fmt.Errorf("failed to get home directory: %w", err)
	}

	configPaths := []string{
		".bytegrab",
		homeDir + "/.bytegrab/config",
		"/etc/bytegrab/config",
		"/app/config",
		"config",
		".",
	}

	var usedConfigPath string

	for _, path := range configPaths {
		configPath := path + "/config.toml"
		if err := k.Load(file.Provider(configPath), toml.Parser()); err == nil {
			usedConfigPath = path
			break
		}
	}

	if usedConfigPath == "" {
		return nil, "", fmt.Errorf("%w: config.toml", ErrConfigFileNotFound)
	}

	config, err := parse(k)
	if err != nil {
		return nil, "", err
	}

	return config, usedConfigPath, nil
}

// LoadConfigFile loads the configuration from an explicit file path.
func LoadConfigFile(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w (path=%s)", err, path)
	}

	return parse(k)
}

func parse(k *koanf.Koanf) (*Config, error) {
	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := checkConfigVersion(config.Version); err != nil {
		return nil, err
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// checkConfigVersion checks if the config file version is correct.
func checkConfigVersion(current int) error {
	if current == 0 {
		return fmt.Errorf("%w: config.toml", ErrConfigVersionMissing)
	}

	if current != CurrentConfigVersion {
		return fmt.Errorf("%w: config.toml (got: %d, expected: %d)",
			ErrConfigVersionMismatch, current, CurrentConfigVersion)
	}

	return nil
}

func (c *Config) validate() error {
	if c.Economy.StreakMultiplier == 0 {
		c.Economy.StreakMultiplier = 2
	}

	if c.Economy.StreakMultiplier < 2 {
		return fmt.Errorf("%w (got: %d)", ErrInvalidMultiplier, c.Economy.StreakMultiplier)
	}

	return nil
}
