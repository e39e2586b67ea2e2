package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/codediff/pkg/gitlib"
	"github.com/Sumatoshi-tech/codediff/pkg/observability"
	"github.com/Sumatoshi-tech/codediff/pkg/syntax"
	"github.com/Sumatoshi-tech/codediff/pkg/syntax/treesitter"
	"github.com/Sumatoshi-tech/codediff/pkg/textutil"
)

const (
	diffArgCount    = 2
	gitDiffArgCount = 1
	defaultOldRev   = "HEAD"
)

// diffOptions holds the flags of the diff command.
type diffOptions struct {
	output          string
	format          string
	threshold       float64
	reorder         string
	rootMismatch    string
	metricsTextfile string
	language        string
	repo            string
	oldRev          string
	newRev          string
	text            bool
	noColor         bool
}

// source is one side of a comparison.
type source struct {
	// name is shown in headers, e.g. "a.go" or "a.go@HEAD".
	name string
	// path drives language detection.
	path    string
	content []byte
}

func diffCmd(root *rootOptions) *cobra.Command {
	opts := &diffOptions{}

	cmd := &cobra.Command{
		Use:   "diff OLD NEW",
		Short: "Compare two source files structurally",
		Long: `Compare two source files as syntax trees and print the edit script.

Examples:
  codediff diff old.go new.go                    # Unified edit script
  codediff diff -f summary old.go new.go         # Edit counts per kind
  codediff diff -f json old.json new.json        # Machine-readable script
  codediff diff --repo . --old-rev HEAD~1 main.go  # HEAD~1 against the working tree`,
		Args: func(cmd *cobra.Command, args []string) error {
			if opts.repo != "" {
				return cobra.ExactArgs(gitDiffArgCount)(cmd, args)
			}

			return cobra.ExactArgs(diffArgCount)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(cmd, root, opts, args)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.output, "output", "o", "", "output file (default: stdout)")
	flags.StringVarP(&opts.format, "format", "f", formatUnified, "output format (unified, summary, json, yaml)")
	flags.BoolVar(&opts.text, "text", false, "append a line-based unified diff of the sources")
	flags.BoolVar(&opts.noColor, "no-color", false, "disable colored output")
	flags.Float64Var(&opts.threshold, "threshold", 0, "maximum distance for two nodes to match (default from config)")
	flags.StringVar(&opts.reorder, "reorder", "", "reorder policy: omit or report (default from config)")
	flags.StringVar(&opts.rootMismatch, "root-mismatch", "", "root label mismatch policy: error or replace")
	flags.StringVar(&opts.metricsTextfile, "metrics-textfile", "", "write Prometheus metrics of this run to a file")
	flags.StringVarP(&opts.language, "language", "l", "", "force the grammar instead of detecting it")
	flags.StringVar(&opts.repo, "repo", "", "compare PATH between two revisions of this repository")
	flags.StringVar(&opts.oldRev, "old-rev", defaultOldRev, "old revision in --repo mode")
	flags.StringVar(&opts.newRev, "new-rev", "", "new revision in --repo mode (default: working tree)")

	return cmd
}

func runDiff(cmd *cobra.Command, root *rootOptions, opts *diffOptions, args []string) (err error) {
	format, err := parseFormat(opts.format)
	if err != nil {
		return err
	}

	mode := observability.ModeFiles
	if opts.repo != "" {
		mode = observability.ModeGit
	}

	application, err := newApp(cmd, root, mode, opts.metricsTextfile)
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	defer func() {
		err = errors.Join(err, application.close(context.WithoutCancel(ctx)))
	}()

	err = applyDiffFlags(cmd, application, opts)
	if err != nil {
		return err
	}

	ctx, span := application.providers.Tracer.Start(ctx, "codediff.diff",
		trace.WithAttributes(attribute.String("codediff.mode", string(mode))))
	defer span.End()

	oldSrc, newSrc, err := loadSources(ctx, opts, args)
	if err != nil {
		return err
	}

	oldTree, newTree, language, err := parseSources(ctx, opts.language, oldSrc, newSrc)
	if err != nil {
		return err
	}

	application.logger.DebugContext(ctx, "parsed sources",
		"language", language, "old_nodes", oldTree.Len(), "new_nodes", newTree.Len())

	script, err := application.compare(ctx, oldTree, newTree)
	if err != nil {
		return fmt.Errorf("compare %s and %s: %w", oldSrc.name, newSrc.name, err)
	}

	span.SetAttributes(attribute.Int("codediff.edits", script.Len()))

	return writeOutput(cmd.OutOrStdout(), opts, func(w io.Writer, colored bool) error {
		return render(w, format, newReport(language, oldSrc, newSrc, script, opts.text), colored)
	})
}

// applyDiffFlags lets explicitly set flags override the loaded configuration.
func applyDiffFlags(cmd *cobra.Command, application *app, opts *diffOptions) error {
	diffCfg := &application.cfg.Diff

	if cmd.Flags().Changed("threshold") {
		diffCfg.Threshold = opts.threshold
	}

	if cmd.Flags().Changed("reorder") {
		diffCfg.Reorder = opts.reorder
	}

	if cmd.Flags().Changed("root-mismatch") {
		diffCfg.RootMismatch = opts.rootMismatch
	}

	return application.cfg.Validate()
}

func loadSources(ctx context.Context, opts *diffOptions, args []string) (source, source, error) {
	if opts.repo != "" {
		return loadRevisions(ctx, opts, args[0])
	}

	oldSrc, err := loadFile(args[0])
	if err != nil {
		return source{}, source{}, err
	}

	newSrc, err := loadFile(args[1])
	if err != nil {
		return source{}, source{}, err
	}

	return oldSrc, newSrc, nil
}

func loadFile(path string) (source, error) {
	content, resolved, err := safeReadFile(path)
	if err != nil {
		return source{}, err
	}

	return newSource(path, resolved, content)
}

func newSource(name, path string, content []byte) (source, error) {
	err := textutil.CheckSource(content)
	if err != nil {
		return source{}, fmt.Errorf("%s: %w", name, err)
	}

	return source{name: name, path: path, content: content}, nil
}

// loadRevisions reads path at the old revision and at the new revision, or
// from the working tree when no new revision is given.
func loadRevisions(ctx context.Context, opts *diffOptions, path string) (source, source, error) {
	repo, err := gitlib.OpenRepository(opts.repo)
	if err != nil {
		return source{}, source{}, err
	}
	defer repo.Free()

	oldContent, err := repo.FileAtRevision(ctx, opts.oldRev, path)
	if err != nil {
		return source{}, source{}, err
	}

	oldSrc, err := newSource(path+"@"+opts.oldRev, path, oldContent)
	if err != nil {
		return source{}, source{}, err
	}

	if opts.newRev != "" {
		newContent, revErr := repo.FileAtRevision(ctx, opts.newRev, path)
		if revErr != nil {
			return source{}, source{}, revErr
		}

		newSrc, srcErr := newSource(path+"@"+opts.newRev, path, newContent)

		return oldSrc, newSrc, srcErr
	}

	workdir := repo.Workdir()
	if workdir == "" {
		return source{}, source{}, fmt.Errorf("%s: bare repository has no working tree, pass --new-rev", opts.repo)
	}

	newContent, _, err := safeReadFile(filepath.Join(workdir, filepath.FromSlash(path)))
	if err != nil {
		return source{}, source{}, err
	}

	newSrc, err := newSource(path, path, newContent)

	return oldSrc, newSrc, err
}

// parseSources parses both sides with the forced language, or each with the
// language detected for it. Inputs of different languages parse fine and are
// rejected by the comparer.
func parseSources(
	ctx context.Context, language string, oldSrc, newSrc source,
) (oldTree, newTree *syntax.Tree, lang string, err error) {
	oldTree, lang, err = parseSource(ctx, language, oldSrc)
	if err != nil {
		return nil, nil, "", err
	}

	newTree, _, err = parseSource(ctx, language, newSrc)
	if err != nil {
		return nil, nil, "", err
	}

	return oldTree, newTree, lang, nil
}

func parseSource(ctx context.Context, language string, src source) (*syntax.Tree, string, error) {
	if language == "" {
		detected, err := treesitter.Detect(src.path, src.content)
		if err != nil {
			return nil, "", err
		}

		language = detected
	}

	parser, err := treesitter.NewParser(language)
	if err != nil {
		return nil, "", err
	}

	tree, err := parser.Parse(ctx, src.content)
	if err != nil {
		return nil, "", fmt.Errorf("parse %s: %w", src.name, err)
	}

	return tree, parser.Language(), nil
}

// writeOutput sends rendered output to the --output file or to w. Colors are
// only used on the terminal.
func writeOutput(w io.Writer, opts *diffOptions, write func(w io.Writer, colored bool) error) error {
	if opts.output == "" {
		return write(w, !opts.noColor)
	}

	f, err := createOutputFile(opts.output)
	if err != nil {
		return err
	}

	err = write(f, false)

	closeErr := f.Close()
	if err != nil {
		return err
	}

	return closeErr
}
