package config

import (
	"cmp"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/go-sql-driver/mysql"
	"gopkg.in/yaml.v3"
)

// Dialect identifies one of the supported catalog styles.
type Dialect string

const (
	DialectSQLServer Dialect = "sqlserver"
	DialectMariaDB   Dialect = "mysql"
	DialectSQLite    Dialect = "sqlite"
)

const (
	defaultSQLServerPort = 1433
	defaultMariaDBPort   = 3306

	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"
	DefaultModel   = "gemini-2.0-flash"

	envPrefix = "DBMD_"
)

// DBConfig is the connection record for one database. Server dialects use
// Host/Port/Username/Password/DatabaseName, SQLite uses FilePath only.
type DBConfig struct {
	Type         string `yaml:"type" json:"type" env:"DB_TYPE"`
	Host         string `yaml:"host" json:"host,omitempty" env:"DB_HOST"`
	Port         int    `yaml:"port" json:"port,omitempty" env:"DB_PORT"`
	Username     string `yaml:"username" json:"username,omitempty" env:"DB_USERNAME"`
	Password     string `yaml:"password" json:"password,omitempty" env:"DB_PASSWORD"`
	DatabaseName string `yaml:"database_name" json:"database_name,omitempty" env:"DB_NAME"`
	FilePath     string `yaml:"file_path" json:"file_path,omitempty" env:"DB_FILE_PATH"`
}

// APIConfig holds the settings of the text-generation endpoint.
type APIConfig struct {
	BaseURL string `yaml:"base_url" json:"base_url" env:"API_BASE_URL"`
	Model   string `yaml:"model" json:"model" env:"API_MODEL"`
	APIKey  string `yaml:"api_key" json:"-" env:"API_KEY"`
}

type ServerConfig struct {
	Port int `yaml:"port" json:"port" env:"SERVER_PORT"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" json:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format" json:"format" env:"LOG_FORMAT"`
}

type AppConfig struct {
	Database DBConfig      `yaml:"database" json:"database"`
	API      APIConfig     `yaml:"api" json:"api"`
	Server   ServerConfig  `yaml:"server" json:"server"`
	Logging  LoggingConfig `yaml:"logging" json:"logging"`
}

// LoadFile loads YAML config from path.
func LoadFile(path string) (AppConfig, error) {
	var cfg AppConfig
	f, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(f, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Load reads the optional YAML file at path, applies DBMD_* environment
// overrides and fills in defaults. A missing file is not an error.
func Load(path string) (AppConfig, error) {
	var cfg AppConfig
	if path != "" {
		c, err := LoadFile(path)
		switch {
		case err == nil:
			cfg = c
		case errors.Is(err, os.ErrNotExist):
		default:
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: envPrefix}); err != nil {
		return cfg, fmt.Errorf("parse environment: %w", err)
	}
	cfg.API.BaseURL = cmp.Or(cfg.API.BaseURL, DefaultBaseURL)
	cfg.API.Model = cmp.Or(cfg.API.Model, DefaultModel)
	cfg.Logging.Level = cmp.Or(cfg.Logging.Level, "info")
	cfg.Logging.Format = cmp.Or(cfg.Logging.Format, "console")
	return cfg, nil
}

// ParseDialect maps common aliases to a Dialect.
func ParseDialect(d string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(d)) {
	case "mssql", "sqlserver":
		return DialectSQLServer, nil
	case "mysql", "mariadb":
		return DialectMariaDB, nil
	case "sqlite", "sqlite3":
		return DialectSQLite, nil
	default:
		return "", fmt.Errorf("unsupported database type: %q", d)
	}
}

// Validate checks that exactly the fields required by the dialect are set.
func (db DBConfig) Validate() error {
	d, err := ParseDialect(db.Type)
	if err != nil {
		return err
	}

	var missing, unexpected []string
	need := func(name, v string) {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	forbid := func(name string, set bool) {
		if set {
			unexpected = append(unexpected, name)
		}
	}

	switch d {
	case DialectSQLite:
		need("file_path", db.FilePath)
		forbid("host", db.Host != "")
		forbid("port", db.Port != 0)
		forbid("username", db.Username != "")
		forbid("password", db.Password != "")
		forbid("database_name", db.DatabaseName != "")
	default:
		need("host", db.Host)
		need("database_name", db.DatabaseName)
		need("username", db.Username)
		forbid("file_path", db.FilePath != "")
		if db.Port < 0 || db.Port > 65535 {
			unexpected = append(unexpected, "port")
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("%s connection is missing %s", d, strings.Join(missing, ", "))
	}
	if len(unexpected) > 0 {
		return fmt.Errorf("%s connection does not accept %s", d, strings.Join(unexpected, ", "))
	}
	return nil
}

// sqlitePathEscaper escapes the characters SQLite gives a meaning in a
// file: URI, so the path cannot end early or lose ?mode=ro.
var sqlitePathEscaper = strings.NewReplacer("%", "%25", "?", "%3F", "#", "%23")

// BuildDriverAndDSN produces the driver name and DSN for db. The result
// depends on nothing but db.
func BuildDriverAndDSN(db DBConfig) (driver string, dsn string, err error) {
	if err := db.Validate(); err != nil {
		return "", "", err
	}
	d, _ := ParseDialect(db.Type)

	switch d {
	case DialectSQLServer:
		driver = "sqlserver"
		q := url.Values{}
		q.Set("database", db.DatabaseName)
		q.Set("TrustServerCertificate", "true")
		u := url.URL{
			Scheme:   "sqlserver",
			User:     url.UserPassword(db.Username, db.Password),
			Host:     net.JoinHostPort(db.Host, strconv.Itoa(cmp.Or(db.Port, defaultSQLServerPort))),
			RawQuery: q.Encode(),
		}
		dsn = u.String()
	case DialectMariaDB:
		driver = "mysql"
		mc := mysql.NewConfig()
		mc.User = db.Username
		mc.Passwd = db.Password
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(db.Host, strconv.Itoa(cmp.Or(db.Port, defaultMariaDBPort)))
		mc.DBName = db.DatabaseName
		mc.ParseTime = true
		dsn = mc.FormatDSN()
	case DialectSQLite:
		driver = "sqlite"
		dsn = "file:" + sqlitePathEscaper.Replace(db.FilePath) + "?mode=ro"
	}
	return driver, dsn, nil
}

// Validate checks that the endpoint can be called.
func (a APIConfig) Validate() error {
	if strings.TrimSpace(a.APIKey) == "" {
		return errors.New("api key is required (set api.api_key or DBMD_API_KEY)")
	}
	if strings.TrimSpace(a.Model) == "" {
		return errors.New("model is required")
	}
	if _, err := url.Parse(a.BaseURL); err != nil || a.BaseURL == "" {
		return fmt.Errorf("invalid base url %q", a.BaseURL)
	}
	return nil
}
