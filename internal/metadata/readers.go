package metadata

import (
	"bytes"
	"encoding/json"
	"strings"

	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/mod/modfile"

	"github.com/drewdunne/ghlink/internal/repository"
)

// repositoryField decodes the package.json repository value, which is
// either a string or an object carrying a url.
type repositoryField string

func (r *repositoryField) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*r = repositoryField(s)
		return nil
	}

	var obj struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*r = repositoryField(obj.URL)
	return nil
}

func readPackageJSON(data []byte) (string, error) {
	var manifest struct {
		Repository repositoryField `json:"repository"`
	}
	if err := json.Unmarshal(data, &manifest); err != nil {
		return "", err
	}
	return strings.TrimSpace(string(manifest.Repository)), nil
}

func readCargo(data []byte) (string, error) {
	var manifest struct {
		Package struct {
			// A string, or {workspace = true} which carries no value here.
			Repository any `toml:"repository"`
		} `toml:"package"`
	}
	if err := toml.Unmarshal(data, &manifest); err != nil {
		return "", err
	}
	s, _ := manifest.Package.Repository.(string)
	return strings.TrimSpace(s), nil
}

// pyProjectURLKeys are the project.urls labels that name the source
// repository, in order.
var pyProjectURLKeys = []string{"repository", "source", "source code", "code"}

// readPyProject prefers labels that name the repository, then
// tool.poetry.repository. A homepage is a fallback only when it is itself a
// GitHub repository URL; projects often point it at documentation.
func readPyProject(data []byte) (string, error) {
	var manifest struct {
		Project struct {
			URLs map[string]string `toml:"urls"`
		} `toml:"project"`
		Tool struct {
			Poetry struct {
				Repository string `toml:"repository"`
				Homepage   string `toml:"homepage"`
			} `toml:"poetry"`
		} `toml:"tool"`
	}
	if err := toml.Unmarshal(data, &manifest); err != nil {
		return "", err
	}

	for _, key := range pyProjectURLKeys {
		if url := urlLabel(manifest.Project.URLs, key); url != "" {
			return url, nil
		}
	}
	if url := strings.TrimSpace(manifest.Tool.Poetry.Repository); url != "" {
		return url, nil
	}

	for _, url := range []string{urlLabel(manifest.Project.URLs, "homepage"), strings.TrimSpace(manifest.Tool.Poetry.Homepage)} {
		if url == "" {
			continue
		}
		if _, err := repository.Parse(url); err == nil {
			return url, nil
		}
	}
	return "", nil
}

// urlLabel looks up a project.urls entry case-insensitively.
func urlLabel(urls map[string]string, key string) string {
	for label, url := range urls {
		if strings.EqualFold(label, key) && strings.TrimSpace(url) != "" {
			return strings.TrimSpace(url)
		}
	}
	return ""
}

// readGoMod maps a github.com module path to its repository URL; other
// module paths declare nothing.
func readGoMod(data []byte) (string, error) {
	path := modfile.ModulePath(data)
	parts := strings.Split(path, "/")
	if len(parts) < 3 || parts[0] != "github.com" {
		return "", nil
	}
	return "https://github.com/" + parts[1] + "/" + parts[2], nil
}

// readGitConfig returns the first URL of the origin remote, or of the only
// remote when there is no origin.
func readGitConfig(data []byte) (string, error) {
	cfg, err := gitconfig.ReadConfig(bytes.NewReader(data))
	if err != nil {
		return "", err
	}

	remote, ok := cfg.Remotes["origin"]
	if !ok {
		if len(cfg.Remotes) != 1 {
			return "", nil
		}
		for _, only := range cfg.Remotes {
			remote = only
		}
	}
	if len(remote.URLs) == 0 {
		return "", nil
	}
	return remote.URLs[0], nil
}
