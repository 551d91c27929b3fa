// Package metadata locates the nearest project-metadata record (package.json,
// Cargo.toml, pyproject.toml, go.mod or .git/config) above a directory and
// extracts the repository value it declares.
package metadata

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/drewdunne/ghlink/internal/logging"
)

// Kind identifies a metadata file format.
type Kind string

const (
	KindPackageJSON Kind = "package.json"
	KindCargo       Kind = "Cargo.toml"
	KindPyProject   Kind = "pyproject.toml"
	KindGoMod       Kind = "go.mod"
	KindGitConfig   Kind = ".git/config"
)

// Record is a metadata file that declares a repository.
type Record struct {
	Path       string
	Kind       Kind
	Repository string
}

// reader extracts the repository value from one kind of metadata file.
// An empty value with a nil error means the file declares none.
type reader struct {
	kind Kind
	read func(data []byte) (string, error)
}

// defaultReaders are consulted in order within a directory.
var defaultReaders = []reader{
	{kind: KindPackageJSON, read: readPackageJSON},
	{kind: KindCargo, read: readCargo},
	{kind: KindPyProject, read: readPyProject},
	{kind: KindGoMod, read: readGoMod},
	{kind: KindGitConfig, read: readGitConfig},
}

// Finder searches upward from a directory for metadata records.
type Finder struct {
	readers []reader
	logger  *log.Logger
}

// Option configures a Finder.
type Option func(*Finder)

// WithLogger sets the logger used to report skipped records.
func WithLogger(l *log.Logger) Option {
	return func(f *Finder) {
		f.logger = l
	}
}

// WithKinds restricts the finder to the given record kinds, keeping the
// default consultation order.
func WithKinds(kinds ...Kind) Option {
	return func(f *Finder) {
		allowed := make(map[Kind]bool, len(kinds))
		for _, k := range kinds {
			allowed[k] = true
		}
		var readers []reader
		for _, r := range defaultReaders {
			if allowed[r.kind] {
				readers = append(readers, r)
			}
		}
		f.readers = readers
	}
}

// NewFinder creates a Finder consulting every known record kind.
func NewFinder(opts ...Option) *Finder {
	f := &Finder{readers: defaultReaders}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = logging.OrDiscard(f.logger)
	return f
}

// Find walks from dir towards the filesystem root. The nearest directory
// holding any known metadata file decides the outcome: its records are
// consulted in order and the first usable repository value wins. Missing,
// unreadable and malformed files all report not found.
func (f *Finder) Find(dir string) (Record, bool) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		f.logger.Debug("resolving start directory", "dir", dir, "err", err)
		return Record{}, false
	}

	for {
		rec, present, ok := f.findIn(abs)
		if ok {
			return rec, true
		}
		if present {
			return Record{}, false
		}

		parent := filepath.Dir(abs)
		if parent == abs {
			return Record{}, false
		}
		abs = parent
	}
}

// findIn inspects a single directory. present reports whether any metadata
// file exists there, usable or not.
func (f *Finder) findIn(dir string) (rec Record, present, ok bool) {
	for _, r := range f.readers {
		path := filepath.Join(dir, filepath.FromSlash(string(r.kind)))
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		present = true
		if err != nil {
			f.logger.Debug("skipping unreadable metadata", "path", path, "err", err)
			continue
		}

		value, err := r.read(data)
		if err != nil {
			f.logger.Debug("skipping malformed metadata", "path", path, "err", err)
			continue
		}
		if value == "" {
			f.logger.Debug("metadata declares no repository", "path", path)
			continue
		}

		return Record{Path: path, Kind: r.kind, Repository: value}, true, true
	}
	return Record{}, present, false
}
