package reference

import "strings"

// rule recognizes one reference form starting exactly at offset i.
type rule struct {
	name  string
	match func(m *Matcher, text string, i int) (Match, bool)
}

// defaultRules in priority order: longer, more specific forms first.
var defaultRules = []rule{
	{name: "user-sha", match: matchUserSHA},
	{name: "sha", match: matchSHA},
	{name: "user-issue", match: matchUserIssue},
	{name: "gh-issue", match: matchGHIssue},
	{name: "issue", match: matchIssue},
}

// matchUserSHA matches user@sha.
func matchUserSHA(m *Matcher, text string, i int) (Match, bool) {
	if !boundaryBefore(text, i) {
		return Match{}, false
	}
	u, ok := scanUser(text, i)
	if !ok || u >= len(text) || text[u] != '@' {
		return Match{}, false
	}
	end, ok := scanSHA(text, u+1)
	if !ok {
		return Match{}, false
	}

	user, sha := text[i:u], text[u+1:end]
	return m.link(KindUserSHA, user, sha, i, end, user+"@"+sha[:minSHA]), true
}

// matchSHA matches a bare hex run not glued to a word or an '@'.
func matchSHA(m *Matcher, text string, i int) (Match, bool) {
	if !boundaryBefore(text, i) || (i > 0 && text[i-1] == '@') {
		return Match{}, false
	}
	end, ok := scanSHA(text, i)
	if !ok {
		return Match{}, false
	}

	sha := text[i:end]
	return m.link(KindSHA, m.repo.Owner, sha, i, end, sha[:minSHA]), true
}

// matchUserIssue matches user#123.
func matchUserIssue(m *Matcher, text string, i int) (Match, bool) {
	if !boundaryBefore(text, i) {
		return Match{}, false
	}
	u, ok := scanUser(text, i)
	if !ok || u >= len(text) || text[u] != '#' {
		return Match{}, false
	}
	end, ok := scanNumber(text, u+1)
	if !ok {
		return Match{}, false
	}

	return m.link(KindUserIssue, text[i:u], text[u+1:end], i, end, text[i:end]), true
}

// matchGHIssue matches GH-123.
func matchGHIssue(m *Matcher, text string, i int) (Match, bool) {
	const prefix = "GH-"
	if !boundaryBefore(text, i) || !strings.HasPrefix(text[i:], prefix) {
		return Match{}, false
	}
	end, ok := scanNumber(text, i+len(prefix))
	if !ok {
		return Match{}, false
	}

	return m.link(KindIssue, m.repo.Owner, text[i+len(prefix):end], i, end, text[i:end]), true
}

// matchIssue matches #123.
func matchIssue(m *Matcher, text string, i int) (Match, bool) {
	if text[i] != '#' {
		return Match{}, false
	}
	end, ok := scanNumber(text, i+1)
	if !ok {
		return Match{}, false
	}

	return m.link(KindIssue, m.repo.Owner, text[i+1:end], i, end, text[i:end]), true
}

// scanUser consumes a GitHub username at i: alphanumerics with single inner
// hyphens, at most maxUser characters. It returns the offset after it.
func scanUser(text string, i int) (int, bool) {
	if i >= len(text) || !isAlnum(text[i]) {
		return 0, false
	}
	j := i + 1
	for j < len(text) && j-i < maxUser {
		switch {
		case isAlnum(text[j]):
			j++
		case text[j] == '-' && j+1 < len(text) && isAlnum(text[j+1]):
			j++
		default:
			return j, true
		}
	}
	return j, true
}

// scanSHA consumes a hex run of minSHA to maxSHA characters ending on a word
// boundary.
func scanSHA(text string, i int) (int, bool) {
	j := i
	for j < len(text) && isHex(text[j]) {
		j++
	}
	if n := j - i; n < minSHA || n > maxSHA || !boundaryAfter(text, j) {
		return 0, false
	}
	return j, true
}

// scanNumber consumes one or more digits ending on a word boundary.
func scanNumber(text string, i int) (int, bool) {
	j := i
	for j < len(text) && isDigit(text[j]) {
		j++
	}
	if j == i || !boundaryAfter(text, j) {
		return 0, false
	}
	return j, true
}

func boundaryBefore(text string, i int) bool {
	return i == 0 || !isWord(text[i-1])
}

func boundaryAfter(text string, j int) bool {
	return j >= len(text) || !isWord(text[j])
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

func isAlnum(c byte) bool {
	return isDigit(c) || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isWord(c byte) bool {
	return isAlnum(c) || c == '_'
}

func isHex(c byte) bool {
	return isDigit(c) || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}
