package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/briefcase/internal/changeset"
	"github.com/roach88/briefcase/internal/repo"
)

// ExportResult reports an exported changeset.
type ExportResult struct {
	ID     string `json:"id"`
	Parent string `json:"parent"`
	Ops    int    `json:"ops"`
	File   string `json:"file"`
	Pushed bool   `json:"pushed"`
}

// NewChangesetCommand creates the changeset command group.
func NewChangesetCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "changeset",
		Short: "Exchange changesets through YAML files",
	}
	cmd.AddCommand(newChangesetExportCommand(rootOpts))
	cmd.AddCommand(newChangesetApplyCommand(rootOpts))
	return cmd
}

func newChangesetExportCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		output string
		mark   bool
	)
	cmd := &cobra.Command{
		Use:   "export <path>",
		Short: "Fold saved local transactions into a changeset file",
		Long: `Fold every saved local transaction into one changeset and write it to a
YAML batch file. With --mark-pushed the local transactions are dropped and
the changeset becomes the repository's last applied changeset.

Example:
  briefcase changeset export ./site.bim -o out.yaml --mark-pushed
  briefcase open ./other.bim --changesets out.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChangesetExport(rootOpts, args[0], output, mark, cmd)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output YAML file (required)")
	cmd.Flags().BoolVar(&mark, "mark-pushed", false, "record the changeset as pushed")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func runChangesetExport(opts *RootOptions, path, output string, mark bool, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	ctx := commandContext(cmd)

	ropts := opts.repoOptions(cmd)
	r, err := repo.Open(ctx, path, ropts)
	if err != nil {
		return fail(f, "open failed", err)
	}
	defer closeRepo(r, ropts.Logger)

	cs, err := r.CreateChangeset(ctx)
	if err != nil {
		return fail(f, "create changeset", err)
	}
	if err := changeset.WriteFile(output, []*changeset.Changeset{cs}); err != nil {
		return f.Fail(ExitCommandError, ErrCodeWriteFailed, "write changeset", err)
	}
	if mark {
		if err := r.MarkPushed(ctx, cs); err != nil {
			return fail(f, "mark pushed", err)
		}
	}

	result := ExportResult{ID: cs.ID, Parent: cs.Parent, Ops: len(cs.Ops), File: output, Pushed: mark}
	return f.Result(result, func(w io.Writer) {
		fmt.Fprintf(w, "✓ Changeset %s (%d ops) written to %s\n", changeset.Short(cs.ID), len(cs.Ops), output)
	})
}

func newChangesetApplyCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "apply <path> <file.yaml>",
		Short: "Apply a changeset file to an open repository",
		Long: `Apply the changesets of a YAML batch file in order. Each changeset is
atomic; a failure keeps the changesets applied before it.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChangesetApply(rootOpts, args[0], args[1], cmd)
		},
	}
}

func runChangesetApply(opts *RootOptions, path, file string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	ctx := commandContext(cmd)

	seq, err := changeset.LoadFile(file)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeNotFound, "load changesets", err)
	}

	ropts := opts.repoOptions(cmd)
	r, err := repo.Open(ctx, path, ropts)
	if err != nil {
		return fail(f, "open failed", err)
	}
	defer closeRepo(r, ropts.Logger)

	if err := r.ApplyChangesets(ctx, seq); err != nil {
		var aerr *changeset.ApplyError
		if errors.As(err, &aerr) {
			return f.Fail(ExitFailure, string(aerr.Code), "apply failed", err)
		}
		return fail(f, "apply failed", err)
	}
	return f.Result(map[string]int{"applied": len(seq)}, func(w io.Writer) {
		fmt.Fprintf(w, "✓ Applied %d changeset(s)\n", len(seq))
	})
}
