package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/briefcase/internal/ids"
	"github.com/roach88/briefcase/internal/merge"
	"github.com/roach88/briefcase/internal/repo"
)

// MergeOptions holds flags for the merge command.
type MergeOptions struct {
	*RootOptions
	Entities []string
	Model    string
	Message  string
}

// MergeResult reports a merge.
type MergeResult struct {
	Imported   map[string]string   `json:"imported"`
	Geo        merge.GeoAdjustment `json:"geo"`
	Compatible bool                `json:"compatible"`
	Dump       string              `json:"dump"`
}

// NewMergeCommand creates the merge command.
func NewMergeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MergeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "merge <source> <destination>",
		Short: "Copy entities from one repository into another",
		Long: `Copy entities from a source repository into a destination repository,
remapping class, parent, model and code spec references, and print the
remap tables.

Example:
  briefcase merge ./a.bim ./b.bim --entity 0x20000000001
  briefcase merge ./a.bim ./b.bim --model 0x1`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMerge(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Entities, "entity", nil, "source entity id to import (repeatable)")
	cmd.Flags().StringVar(&opts.Model, "model", "", "import every entity of this source model")
	cmd.Flags().StringVarP(&opts.Message, "message", "m", "", "description of the saved change")

	return cmd
}

func runMerge(opts *MergeOptions, srcPath, dstPath string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	ctx := commandContext(cmd)

	var wanted []ids.EntityID
	for _, s := range opts.Entities {
		id, err := ids.ParseEntityID(s)
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeInvalidArg, "invalid --entity", err)
		}
		wanted = append(wanted, id)
	}

	ropts := opts.repoOptions(cmd)
	src, err := repo.Open(ctx, srcPath, ropts)
	if err != nil {
		return fail(f, "open source", err)
	}
	defer closeRepo(src, ropts.Logger)
	dst, err := repo.Open(ctx, dstPath, ropts)
	if err != nil {
		return fail(f, "open destination", err)
	}
	defer closeRepo(dst, ropts.Logger)

	if opts.Model != "" {
		model, err := ids.ParseEntityID(opts.Model)
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeInvalidArg, "invalid --model", err)
		}
		entities, err := src.EntitiesInModel(ctx, model)
		if err != nil {
			return fail(f, "read source model", err)
		}
		for _, e := range entities {
			wanted = append(wanted, e.ID)
		}
	}

	mc, err := merge.New(ctx, src, dst, merge.WithLogger(ropts.Logger))
	if err != nil {
		return fail(f, "merge setup", err)
	}

	imported := make(map[string]string, len(wanted))
	for _, id := range wanted {
		got, err := mc.ImportEntity(ctx, dst.WriteToken(), id)
		if err != nil {
			_ = dst.AbandonChanges()
			return fail(f, "merge failed", err)
		}
		imported[id.String()] = got.String()
	}

	msg := opts.Message
	if msg == "" {
		msg = fmt.Sprintf("merge %d entities from %s", len(wanted), srcPath)
	}
	if err := dst.SaveChanges(ctx, msg); err != nil {
		return fail(f, "save failed", err)
	}

	adj := mc.GeoAdjustment()
	result := MergeResult{Imported: imported, Geo: adj, Compatible: adj.Compatible, Dump: mc.Dump(ctx)}
	return f.Result(result, func(w io.Writer) {
		fmt.Fprintf(w, "✓ Imported %d entities (offset %s)\n", len(imported), adj.Offset)
		if !adj.Compatible {
			fmt.Fprintln(w, "! spatial references are not equivalent projections")
		}
		fmt.Fprintln(w)
		fmt.Fprint(w, result.Dump)
	})
}
