package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/briefcase/internal/changeset"
	"github.com/roach88/briefcase/internal/hub"
	"github.com/roach88/briefcase/internal/repo"
)

// openWithHub opens path with the hub at dir as its coordinator.
func (o *RootOptions) openWithHub(cmd *cobra.Command, path, dir string) (*repo.Repository, *hub.Hub, error) {
	h, err := o.openHub(cmd, dir)
	if err != nil {
		return nil, nil, err
	}
	ropts := o.repoOptions(cmd)
	ropts.Coordinator = h
	r, err := repo.Open(commandContext(cmd), path, ropts)
	if err != nil {
		h.Close()
		return nil, nil, err
	}
	return r, h, nil
}

func addHubFlag(cmd *cobra.Command, dir *string) {
	cmd.Flags().StringVar(dir, "hub", "", "hub directory (required)")
	_ = cmd.MarkFlagRequired("hub")
}

// NewPushCommand creates the push command.
func NewPushCommand(rootOpts *RootOptions) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:           "push <path>",
		Short:         "Push saved local transactions to a hub",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			r, h, err := rootOpts.openWithHub(cmd, args[0], dir)
			if err != nil {
				return fail(f, "open failed", err)
			}
			defer h.Close()
			defer r.Close()

			cs, err := h.PushLocal(commandContext(cmd), r)
			if err != nil {
				return fail(f, "push failed", err)
			}
			if cs == nil {
				return f.Result(map[string]any{"pushed": false}, func(w io.Writer) {
					fmt.Fprintln(w, "Nothing to push")
				})
			}
			return f.Result(map[string]any{"pushed": true, "id": cs.ID, "ops": len(cs.Ops)}, func(w io.Writer) {
				fmt.Fprintf(w, "✓ Pushed %s (%d ops)\n", changeset.Short(cs.ID), len(cs.Ops))
			})
		},
	}
	addHubFlag(cmd, &dir)
	return cmd
}

// NewPullCommand creates the pull command.
func NewPullCommand(rootOpts *RootOptions) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:           "pull <path>",
		Short:         "Apply changesets pushed to a hub since the last pull",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			r, h, err := rootOpts.openWithHub(cmd, args[0], dir)
			if err != nil {
				return fail(f, "open failed", err)
			}
			defer h.Close()
			defer r.Close()

			n, err := h.Pull(commandContext(cmd), r)
			if err != nil {
				return fail(f, "pull failed", err)
			}
			return f.Result(map[string]int{"applied": n}, func(w io.Writer) {
				fmt.Fprintf(w, "✓ Applied %d changeset(s)\n", n)
			})
		},
	}
	addHubFlag(cmd, &dir)
	return cmd
}

// NewHubCommand creates the hub command group.
func NewHubCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hub",
		Short: "Inspect a local changeset hub",
	}

	var dir string
	head := &cobra.Command{
		Use:           "head",
		Short:         "Show the newest changeset id",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			h, err := rootOpts.openHub(cmd, dir)
			if err != nil {
				return fail(f, "open hub", err)
			}
			defer h.Close()

			id, err := h.Head(commandContext(cmd))
			if err != nil {
				return fail(f, "read head", err)
			}
			return f.Result(map[string]string{"head": id}, func(w io.Writer) {
				if id == "" {
					fmt.Fprintln(w, "(empty)")
					return
				}
				fmt.Fprintln(w, id)
			})
		},
	}
	addHubFlag(head, &dir)
	cmd.AddCommand(head)
	return cmd
}
