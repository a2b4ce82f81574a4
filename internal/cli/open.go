package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/briefcase/internal/changeset"
	"github.com/roach88/briefcase/internal/profile"
	"github.com/roach88/briefcase/internal/repo"
)

// OpenOptions holds flags for the open command.
type OpenOptions struct {
	*RootOptions
	Changesets   string
	AllowUpgrade bool
}

// OpenResult is the outcome of an open.
type OpenResult struct {
	Status     string          `json:"status"`
	Stored     profile.Version `json:"stored_version"`
	Version    profile.Version `json:"profile_version"`
	Applied    int             `json:"changesets_applied"`
	Upgraded   bool            `json:"upgraded"`
	Repository repo.Info       `json:"repository"`
}

// NewOpenCommand creates the open command.
func NewOpenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &OpenOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "open <path>",
		Short: "Open a repository, applying pending changesets and upgrades",
		Long: `Open a repository through the full open sequence.

The stored profile version is checked against the versions this build
supports. Changesets from --changesets are applied first, in file order;
the profile upgrade follows, and only runs with --allow-upgrade when the
file cannot be opened for writing otherwise.

Example:
  briefcase open ./site.bim
  briefcase open ./site.bim --changesets incoming.yaml --allow-upgrade`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOpen(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Changesets, "changesets", "", "YAML file of changesets to apply before upgrading")
	cmd.Flags().BoolVar(&opts.AllowUpgrade, "allow-upgrade", false, "allow a required profile upgrade")

	return cmd
}

func runOpen(opts *OpenOptions, path string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	ctx := commandContext(cmd)

	ropts := opts.repoOptions(cmd)
	ropts.AllowUpgrade = opts.AllowUpgrade
	if opts.Changesets != "" {
		seq, err := changeset.LoadFile(opts.Changesets)
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeNotFound, "load changesets", err)
		}
		ropts.PendingChangesets = seq
		f.VerboseLog("Loaded %d changeset(s) from %s", len(seq), opts.Changesets)
	}

	r, err := repo.Open(ctx, path, ropts)
	if err != nil {
		return fail(f, "open failed", err)
	}
	defer closeRepo(r, ropts.Logger)

	info, err := r.Info(ctx)
	if err != nil {
		return fail(f, "read repository", err)
	}
	report := r.Opened()
	result := OpenResult{
		Status:     report.Status.String(),
		Stored:     report.Stored,
		Version:    r.ProfileVersion(),
		Applied:    report.Applied,
		Upgraded:   report.Upgraded,
		Repository: info,
	}
	return f.Result(result, func(w io.Writer) {
		fmt.Fprintf(w, "✓ Opened %s (%s)\n", path, result.Status)
		if result.Applied > 0 {
			fmt.Fprintf(w, "  applied %d changeset(s)\n", result.Applied)
		}
		if result.Upgraded {
			fmt.Fprintf(w, "  upgraded profile %s -> %s\n", result.Stored, result.Version)
		}
	})
}
