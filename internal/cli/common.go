package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/briefcase/internal/concurrency"
	"github.com/roach88/briefcase/internal/hub"
	"github.com/roach88/briefcase/internal/ids"
	"github.com/roach88/briefcase/internal/merge"
	"github.com/roach88/briefcase/internal/repo"
)

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}

// logger writes library logs to stderr: warnings by default, everything
// with --verbose.
func (o *RootOptions) logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

func (o *RootOptions) partition() ids.Partition {
	return ids.Partition{Bits: o.PartitionBits}
}

// repoOptions returns the library options the global flags select.
func (o *RootOptions) repoOptions(cmd *cobra.Command) repo.Options {
	opts := repo.DefaultOptions()
	opts.Partition = o.partition()
	opts.Logger = o.logger(cmd)
	return opts
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// openHub opens the hub directory given by --hub.
func (o *RootOptions) openHub(cmd *cobra.Command, dir string) (*hub.Hub, error) {
	cfg := hub.DefaultConfig(dir)
	if o.Verbose {
		cfg.Logger = o.logger(cmd)
	}
	return hub.Open(cfg)
}

func parseReplica(s string) (ids.ReplicaID, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid replica id %q", s)
	}
	return ids.ReplicaID(v), nil
}

// fail maps library errors onto CLI error codes and exit codes.
func fail(f *OutputFormatter, message string, err error) error {
	var openErr *repo.OpenError
	switch {
	case errors.As(err, &openErr):
		exit := ExitFailure
		if openErr.Code == repo.ErrCodeIO {
			exit = ExitCommandError
		}
		return f.Fail(exit, string(openErr.Code), message, err)
	case errors.Is(err, repo.ErrBusy):
		return f.Fail(ExitFailure, ErrCodeBusy, message, err)
	case errors.Is(err, repo.ErrNoLocalChanges):
		return f.Fail(ExitFailure, ErrCodeNoChanges, message, err)
	case errors.Is(err, concurrency.ErrLockConflict), errors.Is(err, concurrency.ErrCodeTaken):
		return f.Fail(ExitFailure, ErrCodeConflict, message, err)
	case errors.Is(err, hub.ErrNotHead):
		return f.Fail(ExitFailure, ErrCodeNotHead, message, err)
	case errors.Is(err, merge.ErrUnresolved):
		return f.Fail(ExitFailure, ErrCodeUnresolved, message, err)
	case errors.Is(err, ids.ErrReplicaOutOfRange), errors.Is(err, ids.ErrInvalidEntityID):
		return f.Fail(ExitCommandError, ErrCodeInvalidArg, message, err)
	default:
		return f.Fail(ExitFailure, ErrCodeGeneric, message, err)
	}
}

// closeRepo closes r and logs a failure.
func closeRepo(r *repo.Repository, logger *slog.Logger) {
	if err := r.Close(); err != nil {
		logger.Error("error closing repository", "path", r.Path(), "error", err)
	}
}

func writeInfo(w io.Writer, info repo.Info) {
	fmt.Fprintf(w, "Path:            %s\n", info.Path)
	fmt.Fprintf(w, "Name:            %s\n", info.Name)
	fmt.Fprintf(w, "GUID:            %s\n", info.GUID)
	fmt.Fprintf(w, "Replica:         %d\n", info.Replica)
	fmt.Fprintf(w, "Profile version: %s\n", info.Version)
	fmt.Fprintf(w, "Next id:         %s\n", info.NextID)
	last := info.LastApplied
	if last == "" {
		last = "(none)"
	}
	fmt.Fprintf(w, "Last applied:    %s\n", last)
	fmt.Fprintf(w, "Local txns:      %d\n", info.LocalTxns)
	fmt.Fprintf(w, "Schemas:         %d\n", info.Schemas)
	fmt.Fprintf(w, "Entities:        %d\n", info.Entities)
}
