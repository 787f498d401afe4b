package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"bslocal/internal/logtail"
	"bslocal/internal/tunnelstate"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the tunnel daemon log",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := tunnelLogPath(cmd, ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			tail, offset, err := logtail.Last(path, lines)
			if err != nil {
				return err
			}
			if len(tail) == 0 && !follow {
				if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
					fmt.Fprintf(out, "No log file at %s\n", path)
					return nil
				}
			}
			for _, line := range tail {
				fmt.Fprintln(out, line)
			}
			if !follow {
				return nil
			}
			followCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return logtail.Follow(followCtx, path, offset, func(line string) {
				fmt.Fprintln(out, line)
			})
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 20, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing lines as the daemon writes them")
	return cmd
}

// tunnelLogPath prefers the log file recorded by the last start over the
// configured one.
func tunnelLogPath(cmd *cobra.Command, ctx *commandContext) (string, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return "", err
	}
	store := tunnelstate.New(cfg.StatePath())
	rec, err := store.Load(cmd.Context())
	switch {
	case err == nil && rec.LogFile != "":
		return rec.LogFile, nil
	case err == nil, errors.Is(err, tunnelstate.ErrNoState):
		return cfg.Tunnel.LogFile, nil
	default:
		return "", err
	}
}
