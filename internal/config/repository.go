package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/drewdunne/ghlink/internal/repository"
	"github.com/drewdunne/ghlink/internal/resolver"
)

// RepositorySetting is the repository key: either a string in any form the
// parser accepts, or an {owner, project} mapping. Omitted means discover.
type RepositorySetting struct {
	Raw        string
	ID         repository.ID
	structured bool
}

// RepositoryString returns a setting holding a raw string.
func RepositoryString(raw string) RepositorySetting {
	return RepositorySetting{Raw: raw}
}

// RepositoryID returns a setting holding owner and project directly.
func RepositoryID(id repository.ID) RepositorySetting {
	return RepositorySetting{ID: id, structured: true}
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (r *RepositorySetting) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			*r = RepositorySetting{}
			return nil
		}
		*r = RepositoryString(node.Value)
		return nil
	case yaml.MappingNode:
		var id repository.ID
		if err := node.Decode(&id); err != nil {
			return fmt.Errorf("decoding repository: %w", err)
		}
		*r = RepositoryID(id)
		return nil
	}
	return fmt.Errorf("line %d: repository must be a string or an {owner, project} mapping", node.Line)
}

// MarshalYAML implements yaml.Marshaler.
func (r RepositorySetting) MarshalYAML() (any, error) {
	if r.structured {
		return r.ID, nil
	}
	if r.Raw == "" {
		return nil, nil
	}
	return r.Raw, nil
}

// IsZero reports whether nothing was configured.
func (r RepositorySetting) IsZero() bool {
	return !r.structured && strings.TrimSpace(r.Raw) == ""
}

// Resolver converts the setting into the resolver's input.
func (r RepositorySetting) Resolver() resolver.Config {
	if r.structured {
		return resolver.FromID(r.ID)
	}
	return resolver.FromString(r.Raw)
}
