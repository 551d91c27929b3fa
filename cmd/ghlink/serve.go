package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/drewdunne/ghlink/internal/server"
)

var (
	serveRepo repositoryFlags
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP linking server",
	Long: `Start an HTTP server that links markdown posted to /link.

The repository resolved at startup is the default for requests that do not
name one with ?repository= or ?owner=&project=. When none can be resolved the
server still starts and reports itself degraded on /health.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	addRepositoryFlags(serveCmd, &serveRepo)
	serveCmd.Flags().StringVar(&serveHost, "host", "", "listen host (overrides server.host)")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "listen port (overrides server.port)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}

	dir, err := os.Getwd()
	if err != nil {
		return err
	}
	if serveHost != "" {
		cfg.Server.Host = serveHost
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = servePort
	}
	cfg, err = effectiveConfig(cmd, cfg, &serveRepo, dir)
	if err != nil {
		return err
	}

	opts := []server.Option{server.WithLogger(logger)}
	if res, err := resolveRepository(cfg, logger, dir); err != nil {
		logger.Warn("no default repository", "err", err)
	} else {
		logger.Info("default repository", "repository", res.ID.String())
		opts = append(opts, server.WithRepository(res.ID))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.New(cfg, opts...).ListenAndServe(ctx)
}
