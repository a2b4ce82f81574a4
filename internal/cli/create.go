package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/briefcase/internal/geo"
	"github.com/roach88/briefcase/internal/repo"
)

// CreateOptions holds flags for the create command.
type CreateOptions struct {
	*RootOptions
	Name             string
	GUID             string
	Replica          string
	Origin           string
	SpatialReference string
}

// NewCreateCommand creates the create command.
func NewCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CreateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create <path>",
		Short: "Create a new repository",
		Long: `Create a new repository file at the current profile version.

The file holds the core schema and the well-known entities (root subject,
reality data and dictionary partitions).

Example:
  briefcase create ./site.bim --name Site --replica 1
  briefcase create ./site.bim --origin '{"x":100,"y":200,"z":0}' --srs '{"datum":"WGS84","method":"TransverseMercator","units":"m"}'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "root subject name (default \"Root\")")
	cmd.Flags().StringVar(&opts.GUID, "guid", "", "repository GUID (default random)")
	cmd.Flags().StringVar(&opts.Replica, "replica", "0", "replica id of the new file")
	cmd.Flags().StringVar(&opts.Origin, "origin", "", "global origin as JSON {\"x\":..,\"y\":..,\"z\":..}")
	cmd.Flags().StringVar(&opts.SpatialReference, "srs", "", "spatial reference as JSON")

	return cmd
}

func runCreate(opts *CreateOptions, path string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	ctx := commandContext(cmd)

	replica, err := parseReplica(opts.Replica)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeInvalidArg, "invalid --replica", err)
	}
	copts := repo.CreateOptions{Name: opts.Name, GUID: opts.GUID, Replica: replica}
	if opts.Origin != "" {
		if copts.GlobalOrigin, err = geo.ParseVector(opts.Origin); err != nil {
			return f.Fail(ExitCommandError, ErrCodeInvalidArg, "invalid --origin", err)
		}
	}
	if opts.SpatialReference != "" {
		if copts.SpatialReference, err = geo.ParseSpatialReference(opts.SpatialReference); err != nil {
			return f.Fail(ExitCommandError, ErrCodeInvalidArg, "invalid --srs", err)
		}
	}

	ropts := opts.repoOptions(cmd)
	r, err := repo.Create(ctx, path, copts, ropts)
	if err != nil {
		return fail(f, "create failed", err)
	}
	defer closeRepo(r, ropts.Logger)

	info, err := r.Info(ctx)
	if err != nil {
		return fail(f, "read repository", err)
	}
	return f.Result(info, func(w io.Writer) {
		fmt.Fprintf(w, "✓ Created %s (replica %d, profile %s)\n", path, info.Replica, info.Version)
	})
}
