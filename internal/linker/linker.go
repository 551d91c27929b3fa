// Package linker rewrites text nodes of a goldmark document, replacing
// GitHub commit and issue references with link nodes.
package linker

import (
	"slices"

	"github.com/charmbracelet/log"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"github.com/drewdunne/ghlink/internal/logging"
	"github.com/drewdunne/ghlink/internal/metrics"
	"github.com/drewdunne/ghlink/internal/reference"
)

// Policy selects which text is left alone.
type Policy struct {
	// SkipCode leaves inline code untouched. When false, a code span whose
	// whole content is a single reference is wrapped in a link.
	SkipCode bool `yaml:"skip_code"`
	// SkipLinks leaves the labels of existing links and images untouched.
	SkipLinks bool `yaml:"skip_links"`
}

// DefaultPolicy skips inline code and existing links.
func DefaultPolicy() Policy {
	return Policy{SkipCode: true, SkipLinks: true}
}

// Edit records a rewrite at a source position: the bytes in [Start, Stop)
// became a link. When Wrap is set the span is kept verbatim as the label.
type Edit struct {
	Start int
	Stop  int
	Match reference.Match
	Wrap  bool
}

// Linker is a goldmark extension and AST transformer. It is immutable once
// built and may be shared across goroutines.
type Linker struct {
	matcher *reference.Matcher
	policy  Policy
	logger  *log.Logger
}

// Option configures a Linker.
type Option func(*Linker)

// WithPolicy sets the skip policy.
func WithPolicy(p Policy) Option {
	return func(l *Linker) {
		l.policy = p
	}
}

// WithLogger sets the logger that reports created links at debug level.
func WithLogger(logger *log.Logger) Option {
	return func(l *Linker) {
		l.logger = logger
	}
}

// New creates a Linker using matcher.
func New(matcher *reference.Matcher, opts ...Option) *Linker {
	l := &Linker{matcher: matcher, policy: DefaultPolicy()}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = logging.OrDiscard(l.logger)
	return l
}

var editsKey = parser.NewContextKey()

// Extend implements goldmark.Extender.
func (l *Linker) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(parser.WithASTTransformers(util.Prioritized(l, 500)))
}

// Transform implements parser.ASTTransformer. The edits are stored in pc and
// can be read back with Edits.
func (l *Linker) Transform(doc *ast.Document, reader text.Reader, pc parser.Context) {
	pc.Set(editsKey, l.Rewrite(doc, reader.Source()))
}

// Edits returns the edits recorded by Transform during a parse using pc.
func Edits(pc parser.Context) []Edit {
	edits, _ := pc.Get(editsKey).([]Edit)
	return edits
}

// Document is the outcome of linking one markdown source.
type Document struct {
	Source   []byte
	Root     ast.Node
	Edits    []Edit
	Markdown goldmark.Markdown
}

// NewMarkdown returns a goldmark instance with GitHub-flavoured block
// extensions and this linker installed. Autolinking of bare URLs stays off so
// text nodes are not split.
func (l *Linker) NewMarkdown() goldmark.Markdown {
	return goldmark.New(goldmark.WithExtensions(
		extension.Table,
		extension.Strikethrough,
		extension.TaskList,
		l,
	))
}

// Process parses source and links every reference in it.
func (l *Linker) Process(source []byte) *Document {
	md := l.NewMarkdown()
	pc := parser.NewContext()
	root := md.Parser().Parse(text.NewReader(source), parser.WithContext(pc))
	metrics.DocumentProcessed()

	return &Document{
		Source:   source,
		Root:     root,
		Edits:    Edits(pc),
		Markdown: md,
	}
}

// Rewrite links references below root in place and returns the edits that
// have a source position, sorted by Start. Text nodes are collected before
// any replacement so the walk never sees nodes it created.
func (l *Linker) Rewrite(root ast.Node, source []byte) []Edit {
	targets := l.collect(root)

	// Neighbours are read before any sibling is replaced.
	around := make([][2]byte, len(targets))
	for i, n := range targets {
		if t, ok := n.(*ast.Text); ok {
			around[i][0], around[i][1] = adjacent(t, source)
		}
	}

	var edits []Edit
	for i, n := range targets {
		switch n := n.(type) {
		case *ast.Text:
			edits = append(edits, l.rewriteText(n, source, around[i][0], around[i][1])...)
		case *ast.String:
			l.rewriteString(n)
		case *ast.CodeSpan:
			if edit, ok := l.wrapCodeSpan(n, source); ok {
				edits = append(edits, edit)
			}
		}
	}

	slices.SortFunc(edits, func(a, b Edit) int { return a.Start - b.Start })
	return edits
}

func (l *Linker) collect(root ast.Node) []ast.Node {
	var targets []ast.Node
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n := n.(type) {
		case *ast.CodeSpan:
			if !l.policy.SkipCode {
				targets = append(targets, n)
			}
			return ast.WalkSkipChildren, nil
		case *ast.Link, *ast.Image, *ast.AutoLink:
			if l.policy.SkipLinks {
				return ast.WalkSkipChildren, nil
			}
		case *ast.Text:
			targets = append(targets, n)
		case *ast.String:
			if !n.IsCode() || !l.policy.SkipCode {
				targets = append(targets, n)
			}
		}
		return ast.WalkContinue, nil
	})
	return targets
}

func (l *Linker) rewriteText(n *ast.Text, source []byte, before, after byte) []Edit {
	seg := n.Segment
	parent := n.Parent()
	if parent == nil || seg.Padding != 0 {
		return nil
	}

	value := string(seg.Value(source))
	matches := unescaped(value, before, l.matcher.MatchContext(value, before, after))
	if len(matches) == 0 {
		return nil
	}

	var last ast.Node
	insert := func(c ast.Node) {
		parent.InsertBefore(parent, n, c)
		last = c
	}
	gap := func(from, to int) *ast.Text {
		t := ast.NewTextSegment(text.NewSegment(seg.Start+from, seg.Start+to))
		t.SetRaw(n.IsRaw())
		return t
	}

	edits := make([]Edit, 0, len(matches))
	pos := 0
	for _, m := range matches {
		if m.Start > pos {
			insert(gap(pos, m.Start))
		}

		var label ast.Node
		if end := m.Start + len(m.Label); end <= len(value) && value[m.Start:end] == m.Label {
			label = gap(m.Start, end)
		} else {
			label = ast.NewString([]byte(m.Label))
		}
		insert(l.newLink(m, label))

		edits = append(edits, Edit{Start: seg.Start + m.Start, Stop: seg.Start + m.End, Match: m})
		pos = m.End
	}
	if pos < len(value) {
		insert(gap(pos, len(value)))
	}

	// Line breaks belong to the end of the original node.
	if n.SoftLineBreak() || n.HardLineBreak() {
		t, ok := last.(*ast.Text)
		if !ok {
			t = gap(len(value), len(value))
			insert(t)
		}
		t.SetSoftLineBreak(n.SoftLineBreak())
		t.SetHardLineBreak(n.HardLineBreak())
	}

	parent.RemoveChild(parent, n)
	return edits
}

// rewriteString handles nodes built without a source position.
func (l *Linker) rewriteString(n *ast.String) {
	parent := n.Parent()
	if parent == nil {
		return
	}

	value := string(n.Value)
	matches := l.matcher.Match(value)
	if len(matches) == 0 {
		return
	}

	piece := func(s string) *ast.String {
		p := ast.NewString([]byte(s))
		p.SetCode(n.IsCode())
		p.SetRaw(n.IsRaw())
		return p
	}

	pos := 0
	for _, m := range matches {
		if m.Start > pos {
			parent.InsertBefore(parent, n, piece(value[pos:m.Start]))
		}
		parent.InsertBefore(parent, n, l.newLink(m, piece(m.Label)))
		pos = m.End
	}
	if pos < len(value) {
		parent.InsertBefore(parent, n, piece(value[pos:]))
	}
	parent.RemoveChild(parent, n)
}

// wrapCodeSpan links a code span whose entire content is one reference. The
// code span itself becomes the link label.
func (l *Linker) wrapCodeSpan(cs *ast.CodeSpan, source []byte) (Edit, bool) {
	child, ok := cs.FirstChild().(*ast.Text)
	parent := cs.Parent()
	if !ok || child.NextSibling() != nil || parent == nil {
		return Edit{}, false
	}

	value := string(child.Segment.Value(source))
	matches := l.matcher.Match(value)
	if len(matches) != 1 || matches[0].Start != 0 || matches[0].End != len(value) {
		return Edit{}, false
	}

	link := l.newLink(matches[0], nil)
	parent.ReplaceChild(parent, cs, link)
	link.AppendChild(link, cs)

	start, stop := codeSpanBounds(source, child.Segment)
	return Edit{Start: start, Stop: stop, Match: matches[0], Wrap: true}, true
}

func (l *Linker) newLink(m reference.Match, label ast.Node) *ast.Link {
	link := ast.NewLink()
	link.Destination = []byte(m.URL)
	if label != nil {
		link.AppendChild(link, label)
	}

	if m.Kind.IsCommit() {
		metrics.CommitLinked()
	} else {
		metrics.IssueLinked()
	}
	l.logger.Debug("linked reference", "kind", m.Kind.String(), "label", m.Label, "url", m.URL)
	return link
}

// unescaped drops matches the author escaped with a backslash or that sit
// inside a character reference such as &#26;.
func unescaped(value string, before byte, matches []reference.Match) []reference.Match {
	kept := matches[:0]
	for _, m := range matches {
		prev := before
		if m.Start > 0 {
			prev = value[m.Start-1]
		}
		if prev == '\\' || prev == '&' {
			continue
		}
		kept = append(kept, m)
	}
	return kept
}

// adjacent returns the source bytes just outside n when a sibling text node
// continues it there, and 0 otherwise. goldmark ends text nodes at
// delimiter runs such as '_' even when no emphasis forms, so a reference
// split off that way still sees the word it is glued to. Delimiters that
// did form emphasis are not text siblings and count as boundaries.
func adjacent(n *ast.Text, source []byte) (before, after byte) {
	seg := n.Segment
	if prev, ok := n.PreviousSibling().(*ast.Text); ok && prev.Segment.Stop == seg.Start && seg.Start > 0 {
		before = source[seg.Start-1]
	}
	if next, ok := n.NextSibling().(*ast.Text); ok && next.Segment.Start == seg.Stop && seg.Stop < len(source) {
		after = source[seg.Stop]
	}
	return before, after
}

// codeSpanBounds widens the content segment of a code span to include its
// backtick fences and the single padding space stripped from each side.
func codeSpanBounds(source []byte, inner text.Segment) (int, int) {
	start, stop := inner.Start, inner.Stop
	if start >= 2 && source[start-1] == ' ' && source[start-2] == '`' {
		start--
	}
	fence := 0
	for start > 0 && source[start-1] == '`' {
		start--
		fence++
	}

	if stop+1 < len(source) && source[stop] == ' ' && source[stop+1] == '`' {
		stop++
	}
	for i := 0; i < fence && stop < len(source) && source[stop] == '`'; i++ {
		stop++
	}
	return start, stop
}
