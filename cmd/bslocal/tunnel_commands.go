package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"al.essio.dev/pkg/shellescape"
	"github.com/spf13/cobra"

	"bslocal/internal/deps"
	"bslocal/internal/logging"
	"bslocal/internal/tunnel"
	"bslocal/internal/tunnelstate"
)

type startFlags struct {
	options     []string
	accessKey   string
	binaryPath  string
	logFile     string
	onlyCommand bool
}

// overrides turns command-line flags into the option set passed to Start.
func (f startFlags) overrides(cmd *cobra.Command) (tunnel.Options, error) {
	var opts tunnel.Options
	for _, raw := range f.options {
		flag, err := tunnel.ParseOption(raw)
		if err != nil {
			return tunnel.Options{}, err
		}
		opts = opts.With(flag.Key, flag.Value)
	}
	if cmd.Flags().Changed("key") {
		opts = opts.With(tunnel.KeyAccessKey, f.accessKey)
	}
	if cmd.Flags().Changed("binary-path") {
		opts = opts.With(tunnel.KeyBinaryPath, f.binaryPath)
	}
	if cmd.Flags().Changed("log-file") {
		opts = opts.With(tunnel.KeyLogFile, f.logFile)
	}
	if f.onlyCommand {
		opts = opts.With(tunnel.KeyOnlyCommand, true)
	}
	return opts, nil
}

func newTunnelCommands(ctx *commandContext) []*cobra.Command {
	var flags startFlags
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the tunnel daemon and wait for it to connect",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			overrides, err := flags.overrides(cmd)
			if err != nil {
				return err
			}
			store, err := ctx.stateStore()
			if err != nil {
				return err
			}
			if !flags.onlyCommand {
				if pid, running := recordedTunnel(cmd.Context(), store); running {
					return fmt.Errorf("tunnel already running (pid %d); run `bslocal stop` first", pid)
				}
			}

			ctrl, err := ctx.controller()
			if err != nil {
				return err
			}
			if err := ctrl.Start(cmd.Context(), overrides); err != nil {
				return err
			}
			if flags.onlyCommand {
				fmt.Fprintln(stdout, shellescape.QuoteCommand(tunnel.Redact(ctrl.Command(tunnel.SubStart))))
				return nil
			}

			if err := store.Save(cmd.Context(), tunnelstate.FromState(ctrl.Snapshot())); err != nil {
				ctx.cliLogger().Warn("tunnel started but state was not saved", logging.Error(err))
			}
			pid, _ := ctrl.PID()
			fmt.Fprintf(stdout, "Tunnel connected (pid %d)\n", pid)
			fmt.Fprintf(stdout, "Log file: %s\n", ctrl.LogFile())
			return nil
		},
	}
	startCmd.Flags().StringArrayVarP(&flags.options, "opt", "o", nil, "Tunnel option as key=value; a bare key sets a boolean flag (repeatable)")
	startCmd.Flags().StringVar(&flags.accessKey, "key", "", "Access key (overrides config and BROWSERSTACK_ACCESS_KEY)")
	startCmd.Flags().StringVar(&flags.binaryPath, "binary-path", "", "Path to the BrowserStackLocal binary")
	startCmd.Flags().StringVar(&flags.logFile, "log-file", "", "Daemon log file")
	startCmd.Flags().BoolVar(&flags.onlyCommand, "only-command", false, "Print the start command without launching the daemon")

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the tunnel daemon recorded by the last start",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			store, err := ctx.stateStore()
			if err != nil {
				return err
			}
			rec, err := store.Load(cmd.Context())
			if errors.Is(err, tunnelstate.ErrNoState) {
				fmt.Fprintln(stdout, "Tunnel is not running")
				return nil
			}
			if err != nil {
				return err
			}

			ctrl, err := ctx.controller()
			if err != nil {
				return err
			}
			ctrl.Restore(rec.State())
			ctrl.Stop(context.WithoutCancel(cmd.Context()))
			if err := store.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(stdout, "Stop requested for tunnel (pid %d)\n", rec.PID)
			return nil
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show tunnel, binary and configuration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printStatus(cmd.Context(), cmd.OutOrStdout(), ctx)
		},
	}

	return []*cobra.Command{startCmd, stopCmd, statusCmd}
}

// recordedTunnel reports the PID in the state file and whether it is alive.
func recordedTunnel(ctx context.Context, store *tunnelstate.Store) (int, bool) {
	rec, err := store.Load(ctx)
	if err != nil || rec.PID <= 0 {
		return 0, false
	}
	probe := tunnel.New(tunnel.Settings{})
	probe.Restore(rec.State())
	return rec.PID, probe.IsRunning()
}

func printStatus(ctx context.Context, out io.Writer, cmdCtx *commandContext) error {
	cfg, err := cmdCtx.ensureConfig()
	if err != nil {
		return err
	}
	colorize := shouldColorize(out)

	var lines []string
	lines = append(lines, renderSectionHeader("configuration", colorize)...)
	configKind := statusOK
	if !cmdCtx.configSeen {
		configKind = statusInfo
	}
	lines = append(lines, renderStatusLine("Config file", configKind,
		fmt.Sprintf("%s (found: %s)", cmdCtx.configPath, yesNo(cmdCtx.configSeen)), colorize))
	if _, source := cmdCtx.accessKey(cfg); source != "" {
		lines = append(lines, renderStatusLine("Access key", statusOK, "configured ("+source+")", colorize))
	} else {
		lines = append(lines, renderStatusLine("Access key", statusWarn,
			"not set; export "+tunnel.AccessKeyEnv+" or run `bslocal config set-key`", colorize))
	}

	binary := deps.CheckBinaries([]deps.Requirement{cmdCtx.resolver().Requirement(ctx)})[0]
	if binary.Available {
		lines = append(lines, renderStatusLine("Tunnel binary", statusOK, binary.Path, colorize))
	} else {
		lines = append(lines, renderStatusLine("Tunnel binary", statusError, binary.Detail, colorize))
	}

	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("tunnel", colorize)...)

	store := tunnelstate.New(cfg.StatePath())
	rec, err := store.Load(ctx)
	switch {
	case errors.Is(err, tunnelstate.ErrNoState):
		lines = append(lines, renderStatusLine("State", statusInfo, "not started", colorize))
		fmt.Fprintln(out, strings.Join(lines, "\n"))
		return nil
	case err != nil:
		return err
	}

	ctrl, err := cmdCtx.controller()
	if err != nil {
		return err
	}
	ctrl.Restore(rec.State())
	if ctrl.IsRunning() {
		lines = append(lines, renderStatusLine("State", statusOK, fmt.Sprintf("running (pid %d)", rec.PID), colorize))
	} else {
		lines = append(lines, renderStatusLine("State", statusWarn, fmt.Sprintf("not running (stale pid %d)", rec.PID), colorize))
	}
	lines = append(lines, renderStatusLine("Binary", statusInfo, rec.BinaryPath, colorize))
	lines = append(lines, renderStatusLine("Log file", statusInfo, rec.LogFile, colorize))
	if !rec.StartedAt.IsZero() {
		started := rec.StartedAt.Local().Format(time.RFC3339)
		if rec.SessionID != "" {
			started = fmt.Sprintf("%s (session %s)", started, shortID(rec.SessionID))
		}
		lines = append(lines, renderStatusLine("Started", statusInfo, started, colorize))
	}
	fmt.Fprintln(out, strings.Join(lines, "\n"))

	if opts := ctrl.Options(); opts.Len() > 0 {
		rows := make([][]string, 0, opts.Len())
		for _, f := range opts.Flags() {
			rows = append(rows, []string{f.Key, fmt.Sprint(f.Value), strings.Join(tunnel.FlagTokens(f.Key, f.Value), " ")})
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out, renderTable([]string{"Option", "Value", "Passed as"}, rows, []columnAlignment{alignLeft, alignRight, alignLeft}))
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
