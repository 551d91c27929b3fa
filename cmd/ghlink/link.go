package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/drewdunne/ghlink/internal/linker"
	"github.com/drewdunne/ghlink/internal/metadata"
	"github.com/drewdunne/ghlink/internal/reference"
	"github.com/drewdunne/ghlink/internal/render"
)

// errWriteStdin is returned when --write is used without file arguments.
var errWriteStdin = errors.New("--write needs file arguments")

var (
	linkRepo   repositoryFlags
	linkFormat string
	linkWrite  bool
	linkDiff   bool
)

var linkCmd = &cobra.Command{
	Use:   "link [files...]",
	Short: "Link references in markdown documents",
	Long: `Link commit and issue references in markdown documents.

Documents are read from the given files, or from stdin when none are given.
The repository is resolved once for all documents; without --repository it
is discovered from project metadata above the directory the files share.

Examples:
  # Print a linked README
  ghlink link README.md

  # Link changelog entries in place
  ghlink link --write CHANGELOG.md

  # Preview what would change
  ghlink link --diff docs/*.md

  # Render as HTML
  echo "Fixes #26" | ghlink link -r wooorm/mdast -f html`,
	RunE: runLink,
}

func init() {
	rootCmd.AddCommand(linkCmd)

	addRepositoryFlags(linkCmd, &linkRepo)
	linkCmd.Flags().StringVarP(&linkFormat, "format", "f", "markdown", "output format (markdown, html, terminal)")
	linkCmd.Flags().BoolVarP(&linkWrite, "write", "w", false, "rewrite files in place")
	linkCmd.Flags().BoolVarP(&linkDiff, "diff", "d", false, "print a diff instead of the document")
}

// input is one document to link.
type input struct {
	name   string
	path   string // empty for stdin
	source []byte
	mode   os.FileMode
}

func runLink(cmd *cobra.Command, args []string) error {
	format, err := render.ParseFormat(linkFormat)
	if err != nil {
		return err
	}
	if linkWrite && len(args) == 0 {
		return errWriteStdin
	}

	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}

	dir, err := metadata.CommonDir(args)
	if err != nil {
		return err
	}
	cfg, err = effectiveConfig(cmd, cfg, &linkRepo, dir)
	if err != nil {
		return err
	}

	// Resolve once, before any document is read
	res, err := resolveRepository(cfg, logger, dir)
	if err != nil {
		return err
	}

	inputs, err := readInputs(cmd, args)
	if err != nil {
		return err
	}

	matcher := reference.NewMatcher(res.ID, reference.WithBaseURL(cfg.Linking.BaseURL))
	l := linker.New(matcher, linker.WithPolicy(cfg.Linking.Policy), linker.WithLogger(logger))

	out := cmd.OutOrStdout()
	for _, in := range inputs {
		doc := l.Process(in.source)
		logger.Info("linked", "file", in.name, "links", len(doc.Edits))

		if linkDiff {
			if err := render.Diff(out, in.name, in.source, render.Markdown(doc), render.IsTerminal(out)); err != nil {
				return err
			}
		}
		if linkWrite {
			if err := writeBack(in, doc); err != nil {
				return err
			}
			continue
		}
		if !linkDiff {
			if err := render.Write(out, doc, format); err != nil {
				return err
			}
		}
	}
	return nil
}

func readInputs(cmd *cobra.Command, args []string) ([]input, error) {
	if len(args) == 0 {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return []input{{name: "<stdin>", source: data}}, nil
	}

	inputs := make([]input, 0, len(args))
	for _, path := range args {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("reading %s: is a directory", path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		inputs = append(inputs, input{name: path, path: path, source: data, mode: info.Mode().Perm()})
	}
	return inputs, nil
}

// writeBack replaces the file with its linked markdown. Files without
// references are not touched.
func writeBack(in input, doc *linker.Document) error {
	if len(doc.Edits) == 0 {
		return nil
	}
	linked := render.Markdown(doc)
	if bytes.Equal(linked, in.source) {
		return nil
	}
	if err := os.WriteFile(in.path, linked, in.mode); err != nil {
		return fmt.Errorf("writing %s: %w", in.path, err)
	}
	return nil
}
