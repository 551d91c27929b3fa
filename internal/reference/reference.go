// Package reference finds GitHub commit and issue references in text and
// computes the link each one points at.
package reference

import (
	"strings"

	"github.com/drewdunne/ghlink/internal/repository"
)

// DefaultBaseURL is the web root links point at.
const DefaultBaseURL = "https://github.com"

// Kind is the type of a reference.
type Kind int

const (
	KindSHA Kind = iota
	KindUserSHA
	KindIssue
	KindUserIssue
)

func (k Kind) String() string {
	switch k {
	case KindSHA:
		return "sha"
	case KindUserSHA:
		return "user-sha"
	case KindIssue:
		return "issue"
	case KindUserIssue:
		return "user-issue"
	}
	return "unknown"
}

// IsCommit reports whether the reference points at a commit.
func (k Kind) IsCommit() bool {
	return k == KindSHA || k == KindUserSHA
}

// Match is one reference found in a text. Start and End are byte offsets of
// the half-open span in that text.
type Match struct {
	Kind  Kind
	Start int
	End   int
	// Owner is the repository owner the link targets: the user written in
	// the reference, or the owner of the context repository.
	Owner string
	// Ref is the full SHA or the issue number.
	Ref   string
	Label string
	URL   string
}

const (
	minSHA  = 7
	maxSHA  = 40
	maxUser = 39
)

// Matcher finds references relative to a context repository. It holds no
// mutable state and is safe for concurrent use.
type Matcher struct {
	repo    repository.ID
	baseURL string
	rules   []rule
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithBaseURL points links at a different web root, such as a GitHub
// Enterprise host.
func WithBaseURL(u string) Option {
	return func(m *Matcher) {
		if u != "" {
			m.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// NewMatcher creates a Matcher for repo.
func NewMatcher(repo repository.ID, opts ...Option) *Matcher {
	m := &Matcher{
		repo:    repo,
		baseURL: DefaultBaseURL,
		rules:   defaultRules,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Repository returns the context repository.
func (m *Matcher) Repository() repository.ID {
	return m.repo
}

// Match scans text left to right. At each offset the rules are tried in
// priority order and the first hit consumes its span, so the returned
// matches are sorted and never overlap.
func (m *Matcher) Match(text string) []Match {
	return m.MatchContext(text, 0, 0)
}

// MatchContext is Match for a text that is a slice of a larger document.
// before and after are the bytes adjacent to text in that document, or 0 at
// its edges; they take part in boundary checks but never in a match.
func (m *Matcher) MatchContext(text string, before, after byte) []Match {
	buf := make([]byte, 0, len(text)+2)
	off := 0
	if before != 0 {
		buf, off = append(buf, before), 1
	}
	buf = append(buf, text...)
	if after != 0 {
		buf = append(buf, after)
	}
	window, stop := string(buf), off+len(text)

	var matches []Match
	for i := off; i < stop; {
		if match, ok := m.matchAt(window, i); ok && match.End <= stop {
			match.Start -= off
			match.End -= off
			matches = append(matches, match)
			i = match.End + off
			continue
		}
		i++
	}
	return matches
}

func (m *Matcher) matchAt(text string, i int) (Match, bool) {
	for _, r := range m.rules {
		if match, ok := r.match(m, text, i); ok {
			return match, true
		}
	}
	return Match{}, false
}

func (m *Matcher) link(kind Kind, owner, ref string, start, end int, label string) Match {
	path := "/issues/"
	if kind.IsCommit() {
		path = "/commit/"
	}
	return Match{
		Kind:  kind,
		Start: start,
		End:   end,
		Owner: owner,
		Ref:   ref,
		Label: label,
		URL:   m.baseURL + "/" + owner + "/" + m.repo.Project + path + ref,
	}
}
