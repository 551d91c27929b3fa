// Package repository parses the many textual forms of a GitHub repository
// reference into a canonical owner/project pair.
package repository

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// ErrInvalidRepository indicates a repository string of unrecognized shape.
var ErrInvalidRepository = errors.New("invalid repository")

// ID identifies a GitHub repository.
type ID struct {
	Owner   string `json:"owner" yaml:"owner"`
	Project string `json:"project" yaml:"project"`
}

// String returns the owner/project shorthand.
func (id ID) String() string {
	return id.Owner + "/" + id.Project
}

// IsZero reports whether neither field is set.
func (id ID) IsZero() bool {
	return id.Owner == "" && id.Project == ""
}

// Validate checks that both fields are single, non-empty path segments.
func (id ID) Validate() error {
	for _, part := range []string{id.Owner, id.Project} {
		if part == "" || part == "." || part == ".." || strings.ContainsAny(part, "/\\:\"' \t\r\n") {
			return fmt.Errorf("%w: %q", ErrInvalidRepository, id.String())
		}
	}
	return nil
}

var (
	// scpPattern matches git@github.com:owner/project.git.
	scpPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+@(?:www\.)?github\.com:(.+)$`)

	urlSchemes = map[string]bool{
		"http":      true,
		"https":     true,
		"git":       true,
		"ssh":       true,
		"git+https": true,
		"git+ssh":   true,
	}
)

// Parse normalizes raw into an ID. Accepted forms are the owner/project
// shorthand, github.com and codeload.github.com URLs (including tarball,
// zipball, legacy and archive download paths), git protocol URLs and
// scp-style remotes. A trailing ref (#ref, @ref, quoted or not) is
// accepted and discarded.
func Parse(raw string) (ID, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ID{}, invalid(raw)
	}

	var (
		id ID
		ok bool
	)
	switch {
	case strings.HasPrefix(s, "github:"):
		id, ok = parseShorthand(strings.TrimPrefix(s, "github:"))
	case strings.Contains(s, "://"):
		id, ok = parseURL(s)
	case scpPattern.MatchString(s):
		id, ok = parseShorthand(scpPattern.FindStringSubmatch(s)[1])
	default:
		id, ok = parseShorthand(s)
	}

	if !ok || id.Validate() != nil {
		return ID{}, invalid(raw)
	}
	return id, nil
}

func invalid(raw string) error {
	return fmt.Errorf("%w: %q", ErrInvalidRepository, raw)
}

func parseShorthand(s string) (ID, bool) {
	path, _ := cutRef(s)
	parts := strings.Split(path, "/")
	if len(parts) != 2 {
		return ID{}, false
	}
	return ID{Owner: parts[0], Project: trimGit(parts[1])}, true
}

func parseURL(s string) (ID, bool) {
	// Refs are cut from the path only; '@' before it may be userinfo.
	head, path := splitAuthority(s)
	path, _ = cutRef(path)

	u, err := url.Parse(head + path)
	if err != nil || !urlSchemes[strings.ToLower(u.Scheme)] {
		return ID{}, false
	}

	segs := splitPath(u.Path)
	switch strings.ToLower(u.Hostname()) {
	case "github.com", "www.github.com":
		return parseGitHubPath(segs)
	case "codeload.github.com":
		return parseCodeloadPath(segs)
	}
	return ID{}, false
}

// parseGitHubPath handles /owner/project[.git] with optional tree or
// archive tails, and /repos/owner/project/{tarball,zipball}[/ref].
func parseGitHubPath(segs []string) (ID, bool) {
	if len(segs) >= 4 && len(segs) <= 5 && segs[0] == "repos" &&
		(segs[3] == "tarball" || segs[3] == "zipball") {
		return ID{Owner: segs[1], Project: segs[2]}, true
	}
	if len(segs) < 2 {
		return ID{}, false
	}

	tail := segs[2:]
	switch {
	case len(tail) == 0:
	case len(tail) == 2 && tail[0] == "archive" && isArchive(tail[1]):
	case len(tail) >= 2 && tail[0] == "tree":
	default:
		return ID{}, false
	}
	return ID{Owner: segs[0], Project: trimGit(segs[1])}, true
}

// parseCodeloadPath handles /owner/project/legacy.{zip,tar.gz}[/ref] and
// /owner/project/{zip,tar.gz}/ref.
func parseCodeloadPath(segs []string) (ID, bool) {
	if len(segs) < 3 {
		return ID{}, false
	}
	switch segs[2] {
	case "legacy.zip", "legacy.tar.gz":
		if len(segs) > 4 {
			return ID{}, false
		}
	case "zip", "tar.gz":
		if len(segs) < 4 {
			return ID{}, false
		}
	default:
		return ID{}, false
	}
	return ID{Owner: segs[0], Project: segs[1]}, true
}

// splitAuthority splits scheme://authority from the path that follows it.
func splitAuthority(s string) (head, path string) {
	i := strings.Index(s, "://") + len("://")
	rest := s[i:]
	end := strings.IndexByte(rest, '/')
	if end < 0 {
		end = len(rest)
	}

	// npm writes scp-style remotes as URLs: git+ssh://git@github.com:owner/project.
	auth := rest[:end]
	host := auth[strings.LastIndexByte(auth, '@')+1:]
	if c := strings.IndexByte(host, ':'); c >= 0 && !isPort(host[c+1:]) {
		cut := len(auth) - len(host) + c
		return s[:i+cut], "/" + rest[cut+1:]
	}

	return s[:i+end], rest[end:]
}

func isPort(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// cutRef removes a #ref or @ref suffix, returning the unquoted ref.
func cutRef(s string) (path, ref string) {
	i := strings.IndexAny(s, "#@")
	if i < 0 {
		return s, ""
	}
	ref = s[i+1:]
	if len(ref) >= 2 && ref[0] == '"' && ref[len(ref)-1] == '"' {
		ref = ref[1 : len(ref)-1]
	}
	return s[:i], ref
}

func splitPath(p string) []string {
	var segs []string
	for _, seg := range strings.Split(p, "/") {
		if seg != "" {
			segs = append(segs, seg)
		}
	}
	return segs
}

func trimGit(project string) string {
	if trimmed := strings.TrimSuffix(project, ".git"); trimmed != "" {
		return trimmed
	}
	return project
}

func isArchive(name string) bool {
	return strings.HasSuffix(name, ".tar.gz") || strings.HasSuffix(name, ".zip")
}
