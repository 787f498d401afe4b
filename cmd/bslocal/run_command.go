package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"

	"github.com/spf13/cobra"

	"bslocal/internal/logging"
	"bslocal/internal/tunnel"
	"bslocal/internal/tunnelstate"
)

// TunnelPIDEnv is exported to the child of `bslocal run`.
const TunnelPIDEnv = "BSLOCAL_TUNNEL_PID"

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run -- <command> [args...]",
		Short: "Run a command with the tunnel up, stopping it afterwards",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.stateStore()
			if err != nil {
				return err
			}
			if pid, running := recordedTunnel(cmd.Context(), store); running {
				return fmt.Errorf("tunnel already running (pid %d); run `bslocal stop` first", pid)
			}
			ctrl, err := ctx.controller()
			if err != nil {
				return err
			}
			logger := ctx.cliLogger()

			return ctrl.Use(cmd.Context(), func(c *tunnel.Controller) error {
				if err := store.Save(cmd.Context(), tunnelstate.FromState(c.Snapshot())); err != nil {
					logger.Warn("tunnel state was not saved", logging.Error(err))
				}
				defer func() {
					if err := store.Clear(cmd.Context()); err != nil {
						logger.Warn("clear tunnel state failed", logging.Error(err))
					}
				}()

				pid, _ := c.PID()
				child := exec.CommandContext(cmd.Context(), args[0], args[1:]...) //nolint:gosec
				child.Stdin = os.Stdin
				child.Stdout = cmd.OutOrStdout()
				child.Stderr = cmd.ErrOrStderr()
				child.Env = append(os.Environ(), TunnelPIDEnv+"="+strconv.Itoa(pid))

				logger.Info("running command under tunnel", logging.String("command", args[0]), logging.Int("pid", pid))
				err := child.Run()
				var exitErr *exec.ExitError
				if errors.As(err, &exitErr) {
					logger.Warn("command exited with failure", logging.Int("exit_code", exitErr.ExitCode()))
				}
				return err
			})
		},
	}
}
