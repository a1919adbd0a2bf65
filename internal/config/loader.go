package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	configDir  = ".minaweb"
	configFile = "config"
	configType = "yaml"
	envPrefix  = "MINAWEB"
	dotEnvFile = ".env"
)

// defaults lists every key viper should know about. Keys absent from this
// table are not picked up from the environment.
var defaults = map[string]any{
	"database_url":                   "",
	"connection":                     "",
	"listen":                         "127.0.0.1:8080",
	"query_timeout":                  30 * time.Second,
	"log.level":                      "info",
	"log.format":                     "text",
	"pool.max_conns":                 5,
	"pool.min_conns":                 1,
	"pool.acquire_timeout":           5 * time.Second,
	"preferences.theme":              "default",
	"preferences.default_connection": "",
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"database-url":    "database_url",
	"connection":      "connection",
	"listen":          "listen",
	"query-timeout":   "query_timeout",
	"log-level":       "log.level",
	"log-format":      "log.format",
	"max-conns":       "pool.max_conns",
	"acquire-timeout": "pool.acquire_timeout",
}

// Load builds the configuration. Precedence, highest first: changed flags,
// environment (DATABASE_URL and MINAWEB_*), ./.env, the config file, defaults.
// The config file is the one named by the "config" flag, or
// ~/.minaweb/config.yaml when that exists.
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}

	if err := readConfigFile(v, flags); err != nil {
		return nil, err
	}
	if err := mergeDotEnv(v, dotEnvFile); err != nil {
		return nil, err
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("database_url", "DATABASE_URL", envPrefix+"_DATABASE_URL"); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

func readConfigFile(v *viper.Viper, flags *pflag.FlagSet) error {
	explicit := ""
	if flags != nil {
		if f := flags.Lookup("config"); f != nil {
			explicit = f.Value.String()
		}
	}

	if explicit != "" {
		v.SetConfigFile(explicit)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", explicit, err)
		}
		return nil
	}

	dir, err := configDirPath()
	if err != nil {
		// No home directory: run on flags and environment alone.
		return nil
	}
	v.SetConfigName(configFile)
	v.SetConfigType(configType)
	v.AddConfigPath(dir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// mergeDotEnv layers a dotenv file above the config file. Only variables
// that name a known key are used: DATABASE_URL and MINAWEB_<KEY>.
func mergeDotEnv(v *viper.Viper, path string) error {
	env := viper.New()
	env.SetConfigFile(path)
	env.SetConfigType("env")
	if err := env.ReadInConfig(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	settings := map[string]any{}
	for key := range defaults {
		for _, name := range envNames(key) {
			if env.IsSet(strings.ToLower(name)) {
				setNested(settings, key, env.GetString(strings.ToLower(name)))
				break
			}
		}
	}
	if len(settings) == 0 {
		return nil
	}
	return v.MergeConfigMap(settings)
}

func envNames(key string) []string {
	name := envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
	if key == "database_url" {
		return []string{"DATABASE_URL", name}
	}
	return []string{name}
}

func setNested(m map[string]any, key string, val any) {
	parts := strings.Split(key, ".")
	for _, p := range parts[:len(parts)-1] {
		next, ok := m[p].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[p] = next
		}
		m = next
	}
	m[parts[len(parts)-1]] = val
}

// Save writes saved connections and preferences to ~/.minaweb/config.yaml.
func Save(cfg *Config) error {
	dir, err := configDirPath()
	if err != nil {
		return fmt.Errorf("config dir: %w", err)
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	return SaveAs(cfg, filepath.Join(dir, configFile+"."+configType))
}

// SaveAs writes saved connections and preferences to path.
func SaveAs(cfg *Config, path string) error {
	v := viper.New()
	v.SetConfigType(configType)
	v.Set("connections", cfg.Connections)
	v.Set("preferences", cfg.Preferences)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return os.Chmod(path, 0o600)
}

// DefaultConnection returns the default connection from config, or the first one.
func DefaultConnection(cfg *Config) *Connection {
	if len(cfg.Connections) == 0 {
		return nil
	}

	if cfg.Preferences.DefaultConnection != "" {
		if conn := cfg.FindConnection(cfg.Preferences.DefaultConnection); conn != nil {
			return conn
		}
	}

	return &cfg.Connections[0]
}

func configDirPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configDir), nil
}
