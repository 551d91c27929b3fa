package config

// MergeConfigs merges the main config with a repo config.
// Repo config values take precedence over the main config.
func MergeConfigs(main *Config, repo *RepoConfig) *Config {
	merged := *main

	if !repo.Repository.IsZero() {
		merged.Repository = repo.Repository
	}

	merged.Linking.BaseURL = coalesce(repo.Linking.BaseURL, main.Linking.BaseURL)

	// Booleans only override when the repo sets them explicitly
	if repo.Linking.SkipCode != nil {
		merged.Linking.SkipCode = *repo.Linking.SkipCode
	}
	if repo.Linking.SkipLinks != nil {
		merged.Linking.SkipLinks = *repo.Linking.SkipLinks
	}

	return &merged
}

func coalesce(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
