// Package resolver decides which repository a linking run refers to:
// an explicit identifier, a raw string to parse, or a value discovered from
// project metadata.
package resolver

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/drewdunne/ghlink/internal/logging"
	"github.com/drewdunne/ghlink/internal/metadata"
	"github.com/drewdunne/ghlink/internal/metrics"
	"github.com/drewdunne/ghlink/internal/repository"
)

// ErrMissingRepository indicates that no repository could be determined.
var ErrMissingRepository = errors.New("Missing `repository`")

// source tags the variant held by a Config.
type source int

const (
	sourceDiscover source = iota
	sourceString
	sourceID
)

// Config is the repository setting of a run. The zero value discovers the
// repository from project metadata.
type Config struct {
	source source
	raw    string
	id     repository.ID
}

// Discover returns a Config that reads the repository from project metadata.
func Discover() Config {
	return Config{source: sourceDiscover}
}

// FromString returns a Config holding a raw repository string. An empty or
// blank string discovers instead.
func FromString(raw string) Config {
	if strings.TrimSpace(raw) == "" {
		return Discover()
	}
	return Config{source: sourceString, raw: raw}
}

// FromID returns a Config holding a pre-resolved identifier.
func FromID(id repository.ID) Config {
	return Config{source: sourceID, id: id}
}

// IsDiscover reports whether the Config defers to project metadata.
func (c Config) IsDiscover() bool {
	return c.source == sourceDiscover
}

// String describes the configured value.
func (c Config) String() string {
	switch c.source {
	case sourceString:
		return c.raw
	case sourceID:
		return c.id.String()
	default:
		return "(discover)"
	}
}

// Finder locates the nearest project-metadata record above a directory.
// It reports not found instead of failing.
type Finder interface {
	Find(dir string) (metadata.Record, bool)
}

// Result is a resolved repository and where it came from.
type Result struct {
	ID repository.ID
	// Record is set when the repository was discovered.
	Record *metadata.Record
}

// Resolver resolves a Config once per run.
type Resolver struct {
	finder Finder
	logger *log.Logger
}

// New creates a Resolver using finder for discovery.
func New(finder Finder, logger *log.Logger) *Resolver {
	return &Resolver{finder: finder, logger: logging.OrDiscard(logger)}
}

// Resolve returns the repository for cfg. Discovery starts at dir.
// Failures wrap repository.ErrInvalidRepository or ErrMissingRepository.
func (r *Resolver) Resolve(cfg Config, dir string) (Result, error) {
	res, err := r.resolve(cfg, dir)
	if err != nil {
		metrics.ResolutionFailed()
		return Result{}, err
	}
	metrics.RepositoryResolved()
	r.logger.Debug("resolved repository", "repository", res.ID.String(), "config", cfg.String())
	return res, nil
}

func (r *Resolver) resolve(cfg Config, dir string) (Result, error) {
	switch cfg.source {
	case sourceID:
		if err := cfg.id.Validate(); err != nil {
			return Result{}, err
		}
		return Result{ID: cfg.id}, nil

	case sourceString:
		id, err := repository.Parse(cfg.raw)
		if err != nil {
			return Result{}, err
		}
		return Result{ID: id}, nil
	}

	if r.finder == nil {
		return Result{}, ErrMissingRepository
	}
	rec, ok := r.finder.Find(dir)
	if !ok {
		return Result{}, ErrMissingRepository
	}

	id, err := repository.Parse(rec.Repository)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", rec.Path, err)
	}
	r.logger.Debug("discovered repository", "path", rec.Path, "kind", string(rec.Kind))
	return Result{ID: id, Record: &rec}, nil
}

// Resolve is a convenience wrapper resolving cfg with a default Finder.
func Resolve(cfg Config, dir string) (repository.ID, error) {
	res, err := New(metadata.NewFinder(), nil).Resolve(cfg, dir)
	return res.ID, err
}
