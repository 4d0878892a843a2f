package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	apperrors "github.com/almoner/almoner/internal/errors"
)

// Config holds all configuration settings
type Config struct {
	// Graph store connection
	Graph GraphConfig `yaml:"graph"`

	// Logging settings
	Log LogConfig `yaml:"log"`
}

// GraphConfig describes how to reach the FalkorDB graph store. URL, when
// set, takes precedence over the discrete host/port/password fields.
type GraphConfig struct {
	URL      string `yaml:"url"`  // redis://[user:pass@]host:port
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"` // Graph name within the store
}

type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
	File  string `yaml:"file"`
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Graph: GraphConfig{
			Host: "localhost",
			Port: 6379,
			Name: "almoner",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from file, environment, and .env files.
// Precedence: env vars > config file > defaults.
func Load(path string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetConfigType("yaml")

	cfg := Default()
	v.SetDefault("graph", cfg.Graph)
	v.SetDefault("log", cfg.Log)

	v.SetEnvPrefix("ALMONER")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".almoner")
		v.AddConfigPath(".")
		homeDir, _ := os.UserHomeDir()
		v.AddConfigPath(filepath.Join(homeDir, ".almoner"))
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration can produce a usable connection.
func (c *Config) Validate() error {
	if c.Graph.Name == "" {
		return apperrors.ConfigError("graph name missing")
	}
	if c.Graph.URL == "" && c.Graph.Host == "" {
		return apperrors.ConfigError("graph connection missing: set graph.url or graph.host")
	}
	return nil
}

// loadEnvFiles loads .env files in order of precedence
func loadEnvFiles() {
	envFiles := []string{
		".env.local", // Local overrides (highest precedence)
		".env",       // Main environment file
	}
	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			godotenv.Load(file)
		}
	}

	homeDir, _ := os.UserHomeDir()
	homeEnvFile := filepath.Join(homeDir, ".almoner", ".env")
	if _, err := os.Stat(homeEnvFile); err == nil {
		godotenv.Load(homeEnvFile)
	}
}

// applyEnvOverrides applies environment variable overrides to config.
// The FALKORDB_* names are the store's conventional deployment
// variables, shared with the other services pointing at the same graph.
func applyEnvOverrides(cfg *Config) {
	if url := os.Getenv("FALKORDB_URL"); url != "" {
		cfg.Graph.URL = url
	}
	if host := os.Getenv("FALKORDB_HOST"); host != "" {
		cfg.Graph.Host = host
	}
	if port := os.Getenv("FALKORDB_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Graph.Port = p
		}
	}
	if password := os.Getenv("FALKORDB_PASSWORD"); password != "" {
		cfg.Graph.Password = password
	}
	if name := os.Getenv("FALKORDB_GRAPH"); name != "" {
		cfg.Graph.Name = name
	}

	if level := os.Getenv("ALMONER_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if jsonLog := os.Getenv("ALMONER_LOG_JSON"); jsonLog != "" {
		cfg.Log.JSON = jsonLog == "true"
	}
	if file := os.Getenv("ALMONER_LOG_FILE"); file != "" {
		cfg.Log.File = file
	}
}
