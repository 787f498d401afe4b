package tunnel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"bslocal/internal/logging"
)

// AccessKeyEnv names the environment variable consulted when no access key
// is supplied at construction.
const AccessKeyEnv = "BROWSERSTACK_ACCESS_KEY"

const defaultLogFileName = "local.log"

// ErrNoBinary is returned when no binary path was configured and no resolver
// was supplied.
var ErrNoBinary = errors.New("tunnel binary path not configured")

// Resolver locates the tunnel binary on disk.
type Resolver interface {
	Resolve(ctx context.Context) (string, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context) (string, error)

// Resolve calls f.
func (f ResolverFunc) Resolve(ctx context.Context) (string, error) {
	return f(ctx)
}

// Settings seeds a controller at construction.
type Settings struct {
	AccessKey    string
	BinaryPath   string
	LogFile      string
	SourceClient string
	Options      Options
}

// State is a point-in-time copy of the controller's lifecycle fields,
// including the access key the last start used.
type State struct {
	PID        int
	AccessKey  string
	BinaryPath string
	LogFile    string
	Options    Options
	SessionID  string
	StartedAt  time.Time
}

// Option configures the controller.
type Option func(*Controller)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Controller) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// WithResolver sets the collaborator used to locate the binary when no
// binarypath option is given.
func WithResolver(r Resolver) Option {
	return func(c *Controller) {
		if r != nil {
			c.resolver = r
		}
	}
}

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logging.NewComponentLogger(logger, "tunnel")
		}
	}
}

// WithVersion overrides the version lookup used for the --source flag.
func WithVersion(fn func() string) Option {
	return func(c *Controller) {
		if fn != nil {
			c.version = fn
		}
	}
}

// WithProcessChecker overrides the PID liveness probe.
func WithProcessChecker(fn func(pid int) bool) Option {
	return func(c *Controller) {
		if fn != nil {
			c.alive = fn
		}
	}
}

// Controller owns the lifecycle of one tunnel daemon.
//
// mu guards the fields below it and is never held while a child process
// runs. Start and Stop are not meant to be called concurrently on the same
// controller.
type Controller struct {
	exec     Executor
	resolver Resolver
	logger   *slog.Logger
	version  func() string
	alive    func(pid int) bool

	mu           sync.Mutex
	accessKey    string
	binaryPath   string
	logFile      string
	sourceClient string
	options      Options
	pid          int
	sessionID    string
	startedAt    time.Time
}

// New constructs a standalone controller. An empty access key falls back to
// the BROWSERSTACK_ACCESS_KEY environment variable; an empty log file
// defaults to local.log in the working directory.
func New(settings Settings, opts ...Option) *Controller {
	key := strings.TrimSpace(settings.AccessKey)
	if key == "" {
		key = os.Getenv(AccessKeyEnv)
	}
	logFile := strings.TrimSpace(settings.LogFile)
	if logFile == "" {
		logFile = defaultLogFile()
	}
	c := &Controller{
		exec:         commandExecutor{},
		logger:       logging.NewComponentLogger(logging.NewNop(), "tunnel"),
		version:      PackageVersion,
		alive:        processExists,
		accessKey:    key,
		binaryPath:   strings.TrimSpace(settings.BinaryPath),
		logFile:      logFile,
		sourceClient: settings.SourceClient,
		options:      settings.Options,
	}
	c.resolver = ResolverFunc(c.configuredBinary)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var (
	instanceMu sync.Mutex
	instance   *Controller
)

// Init returns the process-wide controller, creating it on first use. Later
// calls return the existing controller and ignore their arguments.
func Init(settings Settings, opts ...Option) *Controller {
	instanceMu.Lock()
	defer instanceMu.Unlock()
	if instance == nil {
		instance = New(settings, opts...)
	}
	return instance
}

// Instance returns the process-wide controller if Init has been called.
func Instance() (*Controller, bool) {
	instanceMu.Lock()
	defer instanceMu.Unlock()
	return instance, instance != nil
}

func defaultLogFile() string {
	cwd, err := os.Getwd()
	if err != nil {
		return defaultLogFileName
	}
	return filepath.Join(cwd, defaultLogFileName)
}

func (c *Controller) configuredBinary(context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.binaryPath == "" {
		return "", ErrNoBinary
	}
	return c.binaryPath, nil
}

// Start merges overrides into the configured options, launches the daemon
// and waits for its handshake. On success the reported PID is recorded.
//
// Reserved keys in the merged options are consumed: key sets the access key,
// binarypath the binary (otherwise the resolver is asked), logfile the log
// path, and a truthy onlyCommand returns before anything is launched. source
// is always discarded.
func (c *Controller) Start(ctx context.Context, overrides Options) error {
	c.mu.Lock()
	ctrl, rest := splitReserved(c.options.Merge(overrides))
	c.options = rest
	if ctrl.hasKey {
		c.accessKey = ctrl.accessKey
	}
	if ctrl.hasLogFile {
		c.logFile = ctrl.logFile
	}
	c.mu.Unlock()

	binary := ctrl.binaryPath
	if !ctrl.hasBinary {
		resolved, err := c.resolver.Resolve(ctx)
		if err != nil {
			return fmt.Errorf("resolve tunnel binary: %w", err)
		}
		binary = resolved
	}
	c.mu.Lock()
	c.binaryPath = binary
	c.mu.Unlock()

	if ctrl.onlyCommand {
		return nil
	}

	cmd := c.Command(SubStart)
	sessionID := uuid.NewString()
	logger := c.logger.With(logging.String(logging.FieldSessionID, sessionID))
	logger.Info("starting tunnel binary",
		logging.String("binary", cmd[0]),
		logging.String("log_file", c.LogFile()),
		logging.Int("options", c.Options().Len()),
	)

	result, err := c.exec.Run(ctx, cmd[0], cmd[1:])
	if err != nil {
		return fmt.Errorf("launch tunnel binary: %w", err)
	}
	c.truncateLogFile(logger)

	pid, err := ParseHandshake(result.Stdout, result.Stderr)
	if err != nil {
		var parseErr *OutputParseError
		if errors.As(err, &parseErr) {
			logger.Error("BinaryOutputParseError", logging.String("raw", parseErr.Raw))
		}
		return err
	}

	c.mu.Lock()
	c.pid = pid
	c.sessionID = sessionID
	c.startedAt = time.Now().UTC()
	c.mu.Unlock()
	logger.Info("tunnel connected", logging.Int("pid", pid))
	return nil
}

// truncateLogFile empties the log file once the handshake has been read.
// Failures are logged and otherwise ignored.
func (c *Controller) truncateLogFile(logger *slog.Logger) {
	path := c.LogFile()
	if path == "" {
		return
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		logger.Warn("truncate tunnel log file failed", logging.String("log_file", path), logging.Error(err))
		return
	}
	if err := file.Close(); err != nil {
		logger.Warn("close tunnel log file failed", logging.String("log_file", path), logging.Error(err))
	}
}

// Stop runs the stop invocation of the binary and waits for it to exit.
// Failures are logged and never returned. The recorded PID is left in place.
func (c *Controller) Stop(ctx context.Context) {
	cmd := c.Command(SubStop)
	result, err := c.exec.Run(ctx, cmd[0], cmd[1:])
	if err != nil {
		c.logger.Error("error stopping tunnel", logging.String("binary", cmd[0]), logging.Error(err))
		return
	}
	c.logger.Info("tunnel stop requested", logging.Int("exit_code", result.ExitCode))
}

// IsRunning reports whether a PID was recorded by a successful start and a
// process with that PID currently exists.
func (c *Controller) IsRunning() bool {
	pid, ok := c.PID()
	return ok && c.alive(pid)
}

// Use starts the tunnel with the configured options, runs fn, and always
// stops the tunnel afterwards. If Start fails fn is not called and Stop is
// skipped.
func (c *Controller) Use(ctx context.Context, fn func(*Controller) error) error {
	if err := c.Start(ctx, Options{}); err != nil {
		return err
	}
	defer c.Stop(context.WithoutCancel(ctx))
	return fn(c)
}

// Command renders the daemon command line for sub from current state.
func (c *Controller) Command(sub SubCommand) []string {
	c.mu.Lock()
	inv := Invocation{
		BinaryPath:   c.binaryPath,
		LogFile:      c.logFile,
		AccessKey:    c.accessKey,
		SourceClient: c.sourceClient,
		Options:      c.options,
	}
	c.mu.Unlock()
	inv.Version = c.version()
	return BuildCommand(sub, inv)
}

// PID returns the recorded daemon PID.
func (c *Controller) PID() (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pid, c.pid > 0
}

// LogFile returns the current log file path.
func (c *Controller) LogFile() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.logFile
}

// Options returns the options that will be passed to the binary.
func (c *Controller) Options() Options {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.options
}

// Snapshot returns a copy of the lifecycle state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		PID:        c.pid,
		AccessKey:  c.accessKey,
		BinaryPath: c.binaryPath,
		LogFile:    c.logFile,
		Options:    c.options,
		SessionID:  c.sessionID,
		StartedAt:  c.startedAt,
	}
}

// Restore seats previously saved state so a new process can query or stop a
// tunnel started elsewhere. Empty fields keep their current values; a key
// option inside the saved options is ignored in favour of AccessKey.
func (c *Controller) Restore(state State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if state.AccessKey != "" {
		c.accessKey = state.AccessKey
	}
	if state.BinaryPath != "" {
		c.binaryPath = state.BinaryPath
	}
	if state.LogFile != "" {
		c.logFile = state.LogFile
	}
	if state.Options.Len() > 0 {
		_, c.options = splitReserved(state.Options)
	}
	c.pid = state.PID
	c.sessionID = state.SessionID
	c.startedAt = state.StartedAt
}
