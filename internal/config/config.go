package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrNoDatabaseURL is returned when no connection string could be found in
// flags, environment, .env, or saved profiles.
var ErrNoDatabaseURL = errors.New("missing DATABASE_URL: set it in the environment, a .env file, --database-url, or a saved connection")

// Config represents the application configuration.
type Config struct {
	DatabaseURL  string        `mapstructure:"database_url" yaml:"database_url,omitempty"`
	Connection   string        `mapstructure:"connection" yaml:"connection,omitempty"`
	Listen       string        `mapstructure:"listen" yaml:"listen"`
	QueryTimeout time.Duration `mapstructure:"query_timeout" yaml:"query_timeout"`
	Log          LogConfig     `mapstructure:"log" yaml:"log"`
	Pool         PoolConfig    `mapstructure:"pool" yaml:"pool"`
	Connections  []Connection  `mapstructure:"connections" yaml:"connections"`
	Preferences  Preferences   `mapstructure:"preferences" yaml:"preferences"`
}

// LogConfig selects the log level and output format.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// PoolConfig sizes the database connection pool.
type PoolConfig struct {
	MaxConns       int32         `mapstructure:"max_conns" yaml:"max_conns"`
	MinConns       int32         `mapstructure:"min_conns" yaml:"min_conns"`
	AcquireTimeout time.Duration `mapstructure:"acquire_timeout" yaml:"acquire_timeout"`
}

// Connection represents a saved database connection profile.
type Connection struct {
	Name     string `mapstructure:"name" yaml:"name"`
	Driver   string `mapstructure:"driver" yaml:"driver"`
	Host     string `mapstructure:"host" yaml:"host,omitempty"`
	Port     int    `mapstructure:"port" yaml:"port,omitempty"`
	Database string `mapstructure:"database" yaml:"database"`
	Username string `mapstructure:"username" yaml:"username,omitempty"`
	Password string `mapstructure:"password" yaml:"password,omitempty"`
	SSLMode  string `mapstructure:"sslmode" yaml:"sslmode,omitempty"`
	// Keyring means the password lives in the OS keyring under the profile name.
	Keyring bool `mapstructure:"keyring" yaml:"keyring,omitempty"`
}

// Preferences holds user preferences.
type Preferences struct {
	Theme             string `mapstructure:"theme" yaml:"theme"`
	DefaultConnection string `mapstructure:"default_connection" yaml:"default_connection"`
}

// DSN builds a connection string from the connection profile.
func (c Connection) DSN() string {
	if c.Driver == "sqlite" {
		return "sqlite://" + c.Database
	}

	u := url.URL{
		Scheme: "postgresql",
		Host:   c.Host,
		Path:   "/" + c.Database,
	}
	if c.Port > 0 {
		u.Host += ":" + strconv.Itoa(c.Port)
	}
	if c.Username != "" {
		if c.Password != "" {
			u.User = url.UserPassword(c.Username, c.Password)
		} else {
			u.User = url.User(c.Username)
		}
	}
	if c.SSLMode != "" {
		u.RawQuery = "sslmode=" + url.QueryEscape(c.SSLMode)
	}
	return u.String()
}

// DisplayString returns a human-readable summary of the connection.
func (c Connection) DisplayString() string {
	if c.Driver == "sqlite" {
		return c.Database
	}
	s := c.Host
	if c.Port > 0 {
		s += ":" + strconv.Itoa(c.Port)
	}
	s += "/" + c.Database
	if c.Username != "" {
		s = c.Username + "@" + s
	}
	return s
}

// ParseDSN parses a connection string into a Connection.
func ParseDSN(dsn string) (Connection, error) {
	if strings.HasPrefix(dsn, "sqlite:") {
		path := strings.TrimPrefix(strings.TrimPrefix(dsn, "sqlite:"), "//")
		if path == "" {
			return Connection{}, fmt.Errorf("invalid DSN: empty sqlite path")
		}
		return Connection{
			Name:     "sqlite-" + strings.TrimSuffix(lastPathElem(path), ".db"),
			Driver:   "sqlite",
			Database: path,
		}, nil
	}

	u, err := url.Parse(dsn)
	if err != nil {
		return Connection{}, fmt.Errorf("invalid DSN: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return Connection{}, fmt.Errorf("invalid DSN: unsupported scheme %q", u.Scheme)
	}

	conn := Connection{
		Driver:   "postgres",
		Host:     u.Hostname(),
		Database: strings.TrimPrefix(u.Path, "/"),
		SSLMode:  u.Query().Get("sslmode"),
	}

	if u.User != nil {
		conn.Username = u.User.Username()
		if p, ok := u.User.Password(); ok {
			conn.Password = p
		}
	}

	if portStr := u.Port(); portStr != "" {
		conn.Port, _ = strconv.Atoi(portStr)
	}
	if conn.Port == 0 {
		conn.Port = 5432
	}

	// Auto-generate a name
	conn.Name = fmt.Sprintf("postgres-%s-%d-%s", conn.Host, conn.Port, conn.Database)

	return conn, nil
}

func lastPathElem(p string) string {
	if i := strings.LastIndexAny(p, `/\`); i >= 0 {
		return p[i+1:]
	}
	return p
}

// HasConnection checks if a connection with the given name already exists.
func (cfg *Config) HasConnection(name string) bool {
	return cfg.FindConnection(name) != nil
}

// FindConnection returns the named profile, or nil.
func (cfg *Config) FindConnection(name string) *Connection {
	for i := range cfg.Connections {
		if cfg.Connections[i].Name == name {
			return &cfg.Connections[i]
		}
	}
	return nil
}

// AddConnection appends a connection, replacing one with the same name.
func (cfg *Config) AddConnection(conn Connection) {
	if existing := cfg.FindConnection(conn.Name); existing != nil {
		*existing = conn
		return
	}
	cfg.Connections = append(cfg.Connections, conn)
}

// RemoveConnection deletes the named profile. It reports whether one existed.
func (cfg *Config) RemoveConnection(name string) bool {
	for i := range cfg.Connections {
		if cfg.Connections[i].Name == name {
			cfg.Connections = append(cfg.Connections[:i], cfg.Connections[i+1:]...)
			if cfg.Preferences.DefaultConnection == name {
				cfg.Preferences.DefaultConnection = ""
			}
			return true
		}
	}
	return false
}

// ResolveDSN picks the connection string: an explicit URL wins, then the
// profile named by Connection, then the default profile.
func (cfg *Config) ResolveDSN() (string, error) {
	if cfg.DatabaseURL != "" {
		return cfg.DatabaseURL, nil
	}

	var conn *Connection
	if cfg.Connection != "" {
		conn = cfg.FindConnection(cfg.Connection)
		if conn == nil {
			return "", fmt.Errorf("unknown connection %q", cfg.Connection)
		}
	} else {
		conn = DefaultConnection(cfg)
	}
	if conn == nil {
		return "", ErrNoDatabaseURL
	}
	return conn.ResolveDSN()
}

// Validate checks value ranges after loading.
func (cfg *Config) Validate() error {
	var errs []error
	if cfg.Listen == "" {
		errs = append(errs, errors.New("listen address is required"))
	}
	if cfg.Pool.MaxConns <= 0 {
		errs = append(errs, fmt.Errorf("pool.max_conns must be positive, got %d", cfg.Pool.MaxConns))
	}
	if cfg.Pool.MinConns < 0 || cfg.Pool.MinConns > cfg.Pool.MaxConns {
		errs = append(errs, fmt.Errorf("pool.min_conns must be between 0 and pool.max_conns, got %d", cfg.Pool.MinConns))
	}
	if cfg.Pool.AcquireTimeout <= 0 {
		errs = append(errs, errors.New("pool.acquire_timeout must be positive"))
	}
	if cfg.QueryTimeout < 0 {
		errs = append(errs, errors.New("query_timeout must not be negative"))
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	switch cfg.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", cfg.Log.Format))
	}
	return errors.Join(errs...)
}
