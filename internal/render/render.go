// Package render prints a linked document as markdown, HTML or styled
// terminal output.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/drewdunne/ghlink/internal/linker"
)

// Format is an output format.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
	FormatTerminal Format = "terminal"
)

// DefaultWidth is the word wrap width of terminal output.
const DefaultWidth = 80

// ErrUnknownFormat is returned for an unsupported output format.
var ErrUnknownFormat = errors.New("unknown output format")

// ParseFormat validates a format name. An empty name means markdown.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatMarkdown:
		return FormatMarkdown, nil
	case FormatHTML, FormatTerminal:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q (want markdown, html or terminal)", ErrUnknownFormat, s)
}

// Markdown splices every edit of doc into its source as an inline link.
// Bytes outside the edits are copied unchanged.
func Markdown(doc *linker.Document) []byte {
	var buf bytes.Buffer
	buf.Grow(len(doc.Source) + len(doc.Edits)*64)

	pos := 0
	for _, e := range doc.Edits {
		if e.Start < pos {
			continue
		}
		buf.Write(doc.Source[pos:e.Start])
		buf.WriteByte('[')
		if e.Wrap {
			buf.Write(doc.Source[e.Start:e.Stop])
		} else {
			buf.WriteString(e.Match.Label)
		}
		buf.WriteString("](")
		buf.WriteString(e.Match.URL)
		buf.WriteByte(')')
		pos = e.Stop
	}
	buf.Write(doc.Source[pos:])
	return buf.Bytes()
}

// HTML renders the rewritten tree with goldmark's HTML renderer.
func HTML(w io.Writer, doc *linker.Document) error {
	if err := doc.Markdown.Renderer().Render(w, doc.Source, doc.Root); err != nil {
		return fmt.Errorf("rendering html: %w", err)
	}
	return nil
}

// Terminal renders the linked markdown for a terminal with glamour.
func Terminal(doc *linker.Document, width int) (string, error) {
	opts := []glamour.TermRendererOption{glamour.WithAutoStyle()}
	if width > 0 {
		opts = append(opts, glamour.WithWordWrap(width))
	}

	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return "", fmt.Errorf("creating terminal renderer: %w", err)
	}
	out, err := r.Render(string(Markdown(doc)))
	if err != nil {
		return "", fmt.Errorf("rendering terminal output: %w", err)
	}
	return out, nil
}

// Write renders doc to w in format.
func Write(w io.Writer, doc *linker.Document, format Format) error {
	switch format {
	case FormatMarkdown, "":
		_, err := w.Write(Markdown(doc))
		return err
	case FormatHTML:
		return HTML(w, doc)
	case FormatTerminal:
		out, err := Terminal(doc, DefaultWidth)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, out)
		return err
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// ContentType returns the HTTP media type of format.
func ContentType(format Format) string {
	switch format {
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatTerminal:
		return "text/plain; charset=utf-8"
	}
	return "text/markdown; charset=utf-8"
}
