package main

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/drewdunne/ghlink/internal/config"
	"github.com/drewdunne/ghlink/internal/logging"
)

var version = "0.1.0"

var (
	configPath string
	envFile    string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "ghlink",
	Short: "Link GitHub commit and issue references in markdown",
	Long: `ghlink turns references such as a5c3785, user@a5c3785, #26, GH-26 and
user#26 in markdown documents into links to the GitHub repository the
documents belong to.

The repository is taken from --repository, from the config files, or
discovered from package.json, Cargo.toml, pyproject.toml, go.mod or
.git/config next to the documents.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (optional)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "path to .env file (optional)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level")
}

// setup loads the environment, the main config and the logger shared by all
// commands.
func setup(cmd *cobra.Command) (*config.Config, *log.Logger, error) {
	// Load .env file if specified or exists
	var envErr error
	if envFile != "" {
		envErr = godotenv.Load(envFile)
	} else {
		_ = godotenv.Load(".env")
	}

	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return nil, nil, err
	}

	logCfg := cfg.Logging
	if verbose {
		logCfg.Level = "debug"
	}
	logger, err := logging.New(logCfg, cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, fmt.Errorf("configuring logging: %w", err)
	}

	if envErr != nil {
		logger.Warn("could not load env file", "path", envFile, "err", envErr)
	}
	if configPath != "" {
		logger.Debug("loaded config", "path", configPath)
	}
	return cfg, logger, nil
}
