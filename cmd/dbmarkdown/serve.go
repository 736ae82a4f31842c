package main

import (
	"cmp"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"dbmarkdown/internal/db"
	"dbmarkdown/internal/llm"
	"dbmarkdown/internal/logger"
	"dbmarkdown/internal/server"
	"dbmarkdown/pkg/config"
)

const defaultPort = 8080

func newServeCmd(a *app) *cobra.Command {
	var (
		port    int
		webdir  string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and web UI",
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := server.Options{Timeout: timeout, WebDir: webdir}
			if err := a.cfg.API.Validate(); err == nil {
				opts.Generator = llm.NewClient(a.cfg.API, llm.Options{})
			} else {
				logger.Warn("document generation disabled: %v", err)
			}
			if a.cfg.Database.Type != "" {
				if err := a.cfg.Database.Validate(); err != nil {
					logger.Error("error in configured database: %v", err)
				} else {
					active := a.cfg.Database
					opts.Active = &active
				}
			}

			port = cmp.Or(port, a.cfg.Server.Port, defaultPort)
			addr := fmt.Sprintf(":%d", port)
			// generation can wait out several rate limit windows
			srv := &http.Server{
				Addr:         addr,
				Handler:      server.New(opts),
				ReadTimeout:  5 * time.Second,
				WriteTimeout: 15 * time.Minute,
			}
			if webdir != "" {
				logger.Info("listening on %s, serving %s", addr, webdir)
			} else {
				logger.Info("listening on %s, API only", addr)
			}
			logger.Info("supported dialects: %s, %s, %s", config.DialectSQLServer, config.DialectMariaDB, config.DialectSQLite)
			return srv.ListenAndServe()
		},
	}
	cmd.Flags().IntVar(&port, "http-port", 0, fmt.Sprintf("http port (overrides config, default %d)", defaultPort))
	cmd.Flags().StringVar(&webdir, "web", "", "web ui directory to serve at / (API only when empty)")
	cmd.Flags().DurationVar(&timeout, "timeout", db.DefaultTimeout, "db connect timeout")
	return cmd
}
