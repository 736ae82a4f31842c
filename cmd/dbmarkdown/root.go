package main

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"dbmarkdown/internal/logger"
	"dbmarkdown/pkg/config"
)

// app carries the resolved configuration to the subcommands.
type app struct {
	cfgPath  string
	envFile  string
	logLevel string

	// connection overrides
	db config.DBConfig

	cfg config.AppConfig
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "dbmarkdown",
		Short: "Generate Markdown documentation for a database schema",
		Long: `dbmarkdown reads the catalog of a SQL Server, MariaDB/MySQL or SQLite
database and asks a text-generation model to describe the selected tables
as a single Markdown document.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load()
		},
	}

	f := root.PersistentFlags()
	f.StringVarP(&a.cfgPath, "config", "c", filepath.Join(".", "configs", "dbmarkdown.yaml"), "path to config YAML")
	f.StringVarP(&a.envFile, "env-file", "e", ".env", "path to .env file")
	f.StringVarP(&a.logLevel, "log-level", "l", "", "log level (debug, info, warn, error)")
	f.StringVar(&a.db.Type, "type", "", "database type (sqlserver, mysql, sqlite)")
	f.StringVarP(&a.db.Host, "host", "H", "", "database host")
	f.IntVarP(&a.db.Port, "port", "P", 0, "database port")
	f.StringVarP(&a.db.Username, "user", "u", "", "database user")
	f.StringVarP(&a.db.Password, "password", "p", "", "database password")
	f.StringVarP(&a.db.DatabaseName, "database", "d", "", "database name")
	f.StringVar(&a.db.FilePath, "file", "", "SQLite database file")

	root.AddCommand(newTablesCmd(a))
	root.AddCommand(newTestConnectionCmd(a))
	root.AddCommand(newGenerateCmd(a))
	root.AddCommand(newServeCmd(a))
	return root
}

// load reads the .env file, the config file and the environment, then
// applies the command line overrides and configures logging.
func (a *app) load() error {
	envLoaded := false
	if a.envFile != "" {
		if _, err := os.Stat(a.envFile); err == nil {
			if err := godotenv.Load(a.envFile); err != nil {
				return err
			}
			envLoaded = true
		}
	}

	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	logger.Setup(logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if envLoaded {
		logger.Debug("loaded environment variables from %s", a.envFile)
	}

	// a database given on the command line replaces the configured one
	if a.db.Type != "" {
		cfg.Database = a.db
	}
	a.cfg = cfg
	return nil
}

func (a *app) database() (config.DBConfig, error) {
	if a.cfg.Database.Type == "" {
		return config.DBConfig{}, errors.New("no database configured; set database.type in the config file or pass --type")
	}
	return a.cfg.Database, a.cfg.Database.Validate()
}
