package render

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// IsTerminal reports whether w is a terminal that accepts color.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Diff writes a line diff between before and after, labelled with name.
// Unchanged lines are omitted; each changed run is preceded by the line number
// it starts at in before. Nothing is written when the texts are equal.
func Diff(w io.Writer, name string, before, after []byte, colored bool) error {
	if string(before) == string(after) {
		return nil
	}

	header := color.New(color.Bold)
	hunk := color.New(color.FgCyan)
	removed := color.New(color.FgRed)
	added := color.New(color.FgGreen)
	for _, c := range []*color.Color{header, hunk, removed, added} {
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(string(before), string(after))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	if _, err := header.Fprintf(w, "--- %s\n+++ %s (linked)\n", name, name); err != nil {
		return err
	}

	line := 1
	inHunk := false
	for _, d := range diffs {
		chunk := splitLines(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			line += len(chunk)
			inHunk = false
			continue
		}

		if !inHunk {
			if _, err := hunk.Fprintf(w, "@@ line %d @@\n", line); err != nil {
				return err
			}
			inHunk = true
		}

		c, prefix := added, "+"
		if d.Type == diffmatchpatch.DiffDelete {
			c, prefix = removed, "-"
			line += len(chunk)
		}
		for _, l := range chunk {
			if _, err := c.Fprintln(w, prefix+l); err != nil {
				return fmt.Errorf("writing diff: %w", err)
			}
		}
	}
	return nil
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}
