//go:build unix

package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"
	"github.com/zalando/go-keyring"

	"bslocal/internal/config"
	"bslocal/internal/testsupport"
	"bslocal/internal/tunnel"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
}

func connectedHandshake() string {
	return fmt.Sprintf(`{"state":"connected","pid":%d}`, os.Getpid())
}

func setupCLITestEnv(t *testing.T, handshake string) *cliTestEnv {
	t.Helper()

	t.Setenv("HOME", t.TempDir())
	t.Setenv(tunnel.AccessKeyEnv, "")
	t.Setenv("NO_COLOR", "1")
	keyring.MockInit()

	prev := newController
	newController = tunnel.New
	t.Cleanup(func() { newController = prev })

	cfg := testsupport.NewConfig(t, testsupport.WithStubbedTunnelBinary(handshake))
	configPath := filepath.Join(testsupport.BaseDir(cfg), "bslocal.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{cfg: cfg, configPath: configPath}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, configPath string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func subcommands(calls [][]string) []string {
	var out []string
	for _, call := range calls {
		if len(call) > 1 {
			out = append(out, call[1])
		}
	}
	return out
}

func TestCLIStartStatusStop(t *testing.T) {
	env := setupCLITestEnv(t, connectedHandshake())
	pid := os.Getpid()

	out, _, err := runCLI(t, env.configPath, "start", "--opt", "forcelocal", "--opt", "localIdentifier=ci-42")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !strings.Contains(out, fmt.Sprintf("Tunnel connected (pid %d)", pid)) {
		t.Fatalf("unexpected start output %q", out)
	}

	calls := testsupport.StubCalls(t, env.cfg)
	if len(calls) != 1 {
		t.Fatalf("expected one stub call, got %v", calls)
	}
	start := calls[0]
	if !reflect.DeepEqual(start[:6], []string{"-d", "start", "-logFile", env.cfg.Tunnel.LogFile, "-k", "test-key"}) {
		t.Fatalf("unexpected start prefix %q", start)
	}
	if start[6] != "--source" || !strings.HasPrefix(start[7], "go:") {
		t.Fatalf("unexpected source flag %q", start[6:8])
	}
	if !reflect.DeepEqual(start[8:], []string{"-forcelocal", "-localIdentifier", "ci-42"}) {
		t.Fatalf("unexpected option flags %q", start[8:])
	}
	if _, err := os.Stat(env.cfg.StatePath()); err != nil {
		t.Fatalf("expected state file after start: %v", err)
	}

	out, _, err = runCLI(t, env.configPath, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	for _, want := range []string{fmt.Sprintf("running (pid %d)", pid), "Access key:", "forcelocal", "ci-42"} {
		if !strings.Contains(out, want) {
			t.Fatalf("status output missing %q:\n%s", want, out)
		}
	}

	out, _, err = runCLI(t, env.configPath, "stop")
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if !strings.Contains(out, "Stop requested") {
		t.Fatalf("unexpected stop output %q", out)
	}
	calls = testsupport.StubCalls(t, env.cfg)
	if got := subcommands(calls); !reflect.DeepEqual(got, []string{"start", "stop"}) {
		t.Fatalf("unexpected stub calls %v", got)
	}
	stopArgs := append([]string(nil), calls[1]...)
	stopArgs[1] = "start"
	if !reflect.DeepEqual(stopArgs, calls[0]) {
		t.Fatalf("stop flags diverged from start:\n start %q\n stop  %q", calls[0], calls[1])
	}
	if _, err := os.Stat(env.cfg.StatePath()); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected state file to be cleared, stat err=%v", err)
	}

	out, _, err = runCLI(t, env.configPath, "stop")
	if err != nil {
		t.Fatalf("second stop: %v", err)
	}
	if !strings.Contains(out, "Tunnel is not running") {
		t.Fatalf("unexpected second stop output %q", out)
	}
}

func TestCLIStopReusesStartAccessKey(t *testing.T) {
	tests := []struct {
		name string
		args []string
		key  string
	}{
		{name: "key flag", args: []string{"--key", "flag-key"}, key: "flag-key"},
		{name: "key option", args: []string{"--opt", "key=opt-key"}, key: "opt-key"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := setupCLITestEnv(t, connectedHandshake())
			if _, _, err := runCLI(t, env.configPath, append([]string{"start"}, tc.args...)...); err != nil {
				t.Fatalf("start: %v", err)
			}
			if _, _, err := runCLI(t, env.configPath, "stop"); err != nil {
				t.Fatalf("stop: %v", err)
			}
			calls := testsupport.StubCalls(t, env.cfg)
			if got := subcommands(calls); !reflect.DeepEqual(got, []string{"start", "stop"}) {
				t.Fatalf("unexpected stub calls %v", got)
			}
			for i, call := range calls {
				if call[4] != "-k" || call[5] != tc.key {
					t.Fatalf("call %d should carry -k %s, got %q", i, tc.key, call)
				}
			}
			stopArgs := append([]string(nil), calls[1]...)
			stopArgs[1] = "start"
			if !reflect.DeepEqual(stopArgs, calls[0]) {
				t.Fatalf("stop flags diverged from start:\n start %q\n stop  %q", calls[0], calls[1])
			}
		})
	}
}

func TestCLIStartRefusesWhenAlreadyRunning(t *testing.T) {
	env := setupCLITestEnv(t, connectedHandshake())
	if _, _, err := runCLI(t, env.configPath, "start"); err != nil {
		t.Fatalf("start: %v", err)
	}
	_, _, err := runCLI(t, env.configPath, "start")
	if err == nil || !strings.Contains(err.Error(), "already running") {
		t.Fatalf("expected already running error, got %v", err)
	}
	if calls := testsupport.StubCalls(t, env.cfg); len(calls) != 1 {
		t.Fatalf("second start must not launch the binary, got %d calls", len(calls))
	}
}

func TestCLIStartOnlyCommand(t *testing.T) {
	env := setupCLITestEnv(t, connectedHandshake())
	out, _, err := runCLI(t, env.configPath, "start", "--only-command", "--key", "secret-key", "-o", "forcelocal=true")
	if err != nil {
		t.Fatalf("start --only-command: %v", err)
	}
	if !strings.Contains(out, "-k '********'") || strings.Contains(out, "secret-key") {
		t.Fatalf("expected redacted command, got %q", out)
	}
	if !strings.Contains(out, "-d start") || !strings.HasSuffix(strings.TrimSpace(out), "-forcelocal") {
		t.Fatalf("unexpected command %q", out)
	}
	if calls := testsupport.StubCalls(t, env.cfg); len(calls) != 0 {
		t.Fatalf("expected no launch, got %v", calls)
	}
	if _, err := os.Stat(env.cfg.StatePath()); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("dry run must not write state, stat err=%v", err)
	}
}

func TestCLIStartHandshakeFailure(t *testing.T) {
	env := setupCLITestEnv(t, `{"state":"error","message":{"message":"invalid access key"}}`)
	_, _, err := runCLI(t, env.configPath, "start")
	if err == nil || err.Error() != "invalid access key" {
		t.Fatalf("expected daemon message as error, got %v", err)
	}
	if !errors.Is(err, tunnel.ErrHandshakeRejected) {
		t.Fatalf("expected ErrHandshakeRejected, got %v", err)
	}
	if _, err := os.Stat(env.cfg.StatePath()); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("failed start must not write state, stat err=%v", err)
	}
}

func TestCLIRunStopsTunnelAfterCommand(t *testing.T) {
	env := setupCLITestEnv(t, connectedHandshake())
	want := fmt.Sprint(os.Getpid())

	out, _, err := runCLI(t, env.configPath, "run", "--", "sh", "-c", `printf '%s' "$`+TunnelPIDEnv+`"`)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out != want {
		t.Fatalf("child should see tunnel pid %s, got %q", want, out)
	}
	if got := subcommands(testsupport.StubCalls(t, env.cfg)); !reflect.DeepEqual(got, []string{"start", "stop"}) {
		t.Fatalf("unexpected stub calls %v", got)
	}
	if _, err := os.Stat(env.cfg.StatePath()); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected state to be cleared after run, stat err=%v", err)
	}
}

func TestCLIRunPropagatesChildFailure(t *testing.T) {
	env := setupCLITestEnv(t, connectedHandshake())

	_, _, err := runCLI(t, env.configPath, "run", "--", "sh", "-c", "exit 3")
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) || exitErr.ExitCode() != 3 {
		t.Fatalf("expected exit status 3, got %v", err)
	}
	if got := subcommands(testsupport.StubCalls(t, env.cfg)); !reflect.DeepEqual(got, []string{"start", "stop"}) {
		t.Fatalf("tunnel must be stopped after a failing command, got %v", got)
	}
}

func TestCLIStatusWithoutState(t *testing.T) {
	env := setupCLITestEnv(t, connectedHandshake())
	out, _, err := runCLI(t, env.configPath, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	binary := filepath.Join(env.cfg.Tunnel.BinaryDir, "BrowserStackLocal")
	for _, want := range []string{"[OK] " + binary, "not started", "found: yes"} {
		if !strings.Contains(out, want) {
			t.Fatalf("status output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("expected uncoloured output for a buffer:\n%s", out)
	}
}

func TestCLIConfigInitAndValidate(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	keyring.MockInit()
	target := filepath.Join(t.TempDir(), "config.toml")

	out, _, err := runCLI(t, "", "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, "Wrote sample configuration") {
		t.Fatalf("unexpected init output %q", out)
	}
	if _, _, err := runCLI(t, "", "config", "init", "--path", target); err == nil {
		t.Fatal("expected error when config already exists")
	}
	if _, _, err := runCLI(t, "", "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}

	out, _, err = runCLI(t, target, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	if !strings.Contains(out, "Configuration valid") {
		t.Fatalf("unexpected validate output %q", out)
	}
}

func TestCLIConfigValidateRejectsReservedOption(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	keyring.MockInit()
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("[tunnel.options]\nkey = \"secret\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, _, err := runCLI(t, path, "config", "validate")
	if err == nil || !strings.Contains(err.Error(), "reserved") {
		t.Fatalf("expected reserved option error, got %v", err)
	}
}

func TestCLIVersion(t *testing.T) {
	out, _, err := runCLI(t, "", "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "bslocal ") {
		t.Fatalf("unexpected version output %q", out)
	}
}

func TestRenderSectionHeaderTitleCases(t *testing.T) {
	got := renderSectionHeader("tunnel binary", false)
	if len(got) != 1 || got[0] != "== Tunnel Binary ==" {
		t.Fatalf("unexpected header %q", got)
	}
}

func TestCLIStartUsesKeyringAccessKey(t *testing.T) {
	env := setupCLITestEnv(t, connectedHandshake())
	env.cfg.Tunnel.AccessKey = ""
	writeTestConfig(t, env.configPath, env.cfg)

	out, _, err := runCLI(t, env.configPath, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, "config set-key") {
		t.Fatalf("expected hint to store a key, got:\n%s", out)
	}

	cmd := newRootCommand()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stdout)
	cmd.SetIn(strings.NewReader("keyring-key\n"))
	cmd.SetArgs([]string{"--config", env.configPath, "config", "set-key"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("config set-key: %v", err)
	}
	if !strings.Contains(stdout.String(), "stored in keyring") {
		t.Fatalf("unexpected set-key output %q", stdout.String())
	}

	out, _, err = runCLI(t, env.configPath, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, "configured (keyring)") {
		t.Fatalf("expected keyring as key source:\n%s", out)
	}

	if _, _, err := runCLI(t, env.configPath, "start"); err != nil {
		t.Fatalf("start: %v", err)
	}
	calls := testsupport.StubCalls(t, env.cfg)
	if len(calls) != 1 || calls[0][4] != "-k" || calls[0][5] != "keyring-key" {
		t.Fatalf("expected keyring key on the command line, got %v", calls)
	}
	if _, _, err := runCLI(t, env.configPath, "stop"); err != nil {
		t.Fatalf("stop: %v", err)
	}

	if _, _, err := runCLI(t, env.configPath, "config", "delete-key"); err != nil {
		t.Fatalf("config delete-key: %v", err)
	}
	if _, err := keyring.Get("bslocal", "access_key"); !errors.Is(err, keyring.ErrNotFound) {
		t.Fatalf("expected key to be deleted, got %v", err)
	}
}

func TestCLIConfigKeyBeatsKeyring(t *testing.T) {
	env := setupCLITestEnv(t, connectedHandshake())
	if err := keyring.Set("bslocal", "access_key", "keyring-key"); err != nil {
		t.Fatalf("seed keyring: %v", err)
	}
	out, _, err := runCLI(t, env.configPath, "start", "--only-command")
	if err != nil {
		t.Fatalf("start --only-command: %v", err)
	}
	if !strings.Contains(out, "-k '********'") {
		t.Fatalf("expected masked key, got %q", out)
	}
	out, _, err = runCLI(t, env.configPath, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, "configured (config)") {
		t.Fatalf("expected config as key source:\n%s", out)
	}
}

func TestCLILogsShowsTrailingLines(t *testing.T) {
	env := setupCLITestEnv(t, connectedHandshake())

	out, _, err := runCLI(t, env.configPath, "logs")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if !strings.Contains(out, "No log file at "+env.cfg.Tunnel.LogFile) {
		t.Fatalf("unexpected output for missing log %q", out)
	}

	if err := os.MkdirAll(filepath.Dir(env.cfg.Tunnel.LogFile), 0o755); err != nil {
		t.Fatalf("mkdir logs: %v", err)
	}
	if err := os.WriteFile(env.cfg.Tunnel.LogFile, []byte("one\ntwo\nthree\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	out, _, err = runCLI(t, env.configPath, "logs", "-n", "2")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if out != "two\nthree\n" {
		t.Fatalf("unexpected log output %q", out)
	}
}
