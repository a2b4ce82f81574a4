package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/briefcase/internal/ids"
	"github.com/roach88/briefcase/internal/repo"
)

// ReassignOptions holds flags for the reassign command.
type ReassignOptions struct {
	*RootOptions
	Hub string
}

// ReassignResult reports the identity change.
type ReassignResult struct {
	From ids.ReplicaID `json:"from"`
	To   ids.ReplicaID `json:"to"`
	Next ids.EntityID  `json:"next_id"`
}

// NewReassignCommand creates the reassign command.
func NewReassignCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReassignOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "reassign <path> [replica-id]",
		Short: "Give a repository a new replica identity",
		Long: `Give a repository a new replica identity.

Saved local transactions that were not pushed are dropped: they were made
under the old identity. With --hub the new id is issued by the hub.

Example:
  briefcase reassign ./copy.bim 7
  briefcase reassign ./copy.bim --hub ./hub`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReassign(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Hub, "hub", "", "hub directory to acquire the replica id from")

	return cmd
}

func runReassign(opts *ReassignOptions, args []string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	ctx := commandContext(cmd)

	var replica ids.ReplicaID
	switch {
	case len(args) == 2 && opts.Hub != "":
		return f.Fail(ExitCommandError, ErrCodeInvalidArg, "give a replica id or --hub, not both", nil)
	case len(args) == 2:
		var err error
		if replica, err = parseReplica(args[1]); err != nil {
			return f.Fail(ExitCommandError, ErrCodeInvalidArg, "invalid replica id", err)
		}
	case opts.Hub != "":
		h, err := opts.openHub(cmd, opts.Hub)
		if err != nil {
			return fail(f, "open hub", err)
		}
		replica, err = h.AcquireReplicaID(ctx)
		h.Close()
		if err != nil {
			return fail(f, "acquire replica id", err)
		}
	default:
		return f.Fail(ExitCommandError, ErrCodeInvalidArg, "replica id or --hub is required", nil)
	}

	ropts := opts.repoOptions(cmd)
	r, err := repo.Open(ctx, args[0], ropts)
	if err != nil {
		return fail(f, "open failed", err)
	}
	defer closeRepo(r, ropts.Logger)

	from := r.Replica()
	if err := r.ReassignReplica(ctx, replica); err != nil {
		return fail(f, "reassign failed", err)
	}
	info, err := r.Info(ctx)
	if err != nil {
		return fail(f, "read repository", err)
	}

	result := ReassignResult{From: from, To: replica, Next: info.NextID}
	return f.Result(result, func(w io.Writer) {
		fmt.Fprintf(w, "✓ Replica %d -> %d (next id %s)\n", from, replica, info.NextID)
	})
}
