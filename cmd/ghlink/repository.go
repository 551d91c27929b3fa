package main

import (
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/drewdunne/ghlink/internal/config"
	"github.com/drewdunne/ghlink/internal/metadata"
	"github.com/drewdunne/ghlink/internal/repository"
	"github.com/drewdunne/ghlink/internal/resolver"
)

// repositoryFlags are the flags that pick the repository and linking
// settings of a run. They override both config layers.
type repositoryFlags struct {
	repository string
	owner      string
	project    string
	baseURL    string
	skipCode   bool
	skipLinks  bool
}

func addRepositoryFlags(cmd *cobra.Command, f *repositoryFlags) {
	cmd.Flags().StringVarP(&f.repository, "repository", "r", "", "repository as owner/project, URL or git remote")
	cmd.Flags().StringVar(&f.owner, "owner", "", "repository owner (with --project)")
	cmd.Flags().StringVar(&f.project, "project", "", "repository name (with --owner)")
	cmd.Flags().StringVar(&f.baseURL, "base-url", "", "web root links point at (default https://github.com)")
	cmd.Flags().BoolVar(&f.skipCode, "skip-code", true, "leave inline code untouched")
	cmd.Flags().BoolVar(&f.skipLinks, "skip-links", true, "leave existing link text untouched")
}

// effectiveConfig layers the repo config found in dir and the flags over cfg.
func effectiveConfig(cmd *cobra.Command, cfg *config.Config, f *repositoryFlags, dir string) (*config.Config, error) {
	repoCfg, err := config.LoadRepoConfig(config.OSReader{}, dir)
	if err != nil {
		return nil, err
	}
	merged := config.MergeConfigs(cfg, repoCfg)

	switch {
	case f.owner != "" || f.project != "":
		merged.Repository = config.RepositoryID(repository.ID{Owner: f.owner, Project: f.project})
	case f.repository != "":
		merged.Repository = config.RepositoryString(f.repository)
	}
	if f.baseURL != "" {
		merged.Linking.BaseURL = f.baseURL
	}
	if cmd.Flags().Changed("skip-code") {
		merged.Linking.SkipCode = f.skipCode
	}
	if cmd.Flags().Changed("skip-links") {
		merged.Linking.SkipLinks = f.skipLinks
	}

	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return merged, nil
}

// resolveRepository resolves the repository of a run once, discovering it
// from project metadata above dir when nothing is configured.
func resolveRepository(cfg *config.Config, logger *log.Logger, dir string) (resolver.Result, error) {
	finder := metadata.NewFinder(metadata.WithLogger(logger))
	res, err := resolver.New(finder, logger).Resolve(cfg.Repository.Resolver(), dir)
	if err != nil {
		return resolver.Result{}, err
	}

	if res.Record != nil {
		logger.Debug("resolved repository", "repository", res.ID.String(), "source", res.Record.Path)
	} else {
		logger.Debug("resolved repository", "repository", res.ID.String())
	}
	return res, nil
}
