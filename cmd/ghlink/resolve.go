package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var resolveRepo repositoryFlags

var resolveCmd = &cobra.Command{
	Use:   "resolve [dir]",
	Short: "Print the repository references would link to",
	Long: `Print the repository a link run in dir (default: the working directory)
would use, and the metadata file it was discovered from.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)

	addRepositoryFlags(resolveCmd, &resolveRepo)
}

func runResolve(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}

	dir := "."
	if len(args) == 1 {
		dir = args[0]
	} else if wd, err := os.Getwd(); err == nil {
		dir = wd
	}

	cfg, err = effectiveConfig(cmd, cfg, &resolveRepo, dir)
	if err != nil {
		return err
	}
	res, err := resolveRepository(cfg, logger, dir)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, res.ID.String())
	if res.Record != nil {
		fmt.Fprintf(out, "source: %s (%s)\n", res.Record.Path, res.Record.Kind)
	}
	return nil
}
