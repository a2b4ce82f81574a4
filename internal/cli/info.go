package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/briefcase/internal/repo"
)

// NewInfoCommand creates the info command.
func NewInfoCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "info <path>",
		Short:         "Show repository identity and state",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(rootOpts, args[0], cmd)
		},
	}
}

func runInfo(opts *RootOptions, path string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	ctx := commandContext(cmd)

	ropts := opts.repoOptions(cmd)
	r, err := repo.Open(ctx, path, ropts)
	if err != nil {
		return fail(f, "open failed", err)
	}
	defer closeRepo(r, ropts.Logger)

	info, err := r.Info(ctx)
	if err != nil {
		return fail(f, "read repository", err)
	}
	return f.Result(info, func(w io.Writer) { writeInfo(w, info) })
}
