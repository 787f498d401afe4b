package testsupport

import (
	"path/filepath"
	"testing"

	"bslocal/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Tunnel.AccessKey = "test-key"
	cfgVal.Tunnel.BinaryDir = filepath.Join(base, "bin")
	cfgVal.Tunnel.LogFile = filepath.Join(base, "logs", "local.log")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithAccessKey sets the tunnel access key on the test config.
func WithAccessKey(key string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Tunnel.AccessKey = key
	}
}

// WithTunnelOption adds one entry to [tunnel.options].
func WithTunnelOption(key string, value any) ConfigOption {
	return func(b *configBuilder) {
		if b.cfg.Tunnel.Options == nil {
			b.cfg.Tunnel.Options = map[string]any{}
		}
		b.cfg.Tunnel.Options[key] = value
	}
}

// WithStubbedTunnelBinary writes a fake BrowserStackLocal into the config's
// binary_dir. The stub prints handshake for "-d start", exits 0 for
// "-d stop", and appends every argv to a calls file read by StubCalls.
func WithStubbedTunnelBinary(handshake string) ConfigOption {
	return func(b *configBuilder) {
		WriteTunnelStub(b.t, filepath.Join(b.cfg.Tunnel.BinaryDir, "BrowserStackLocal"), handshake, callsPath(b.baseDir))
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}

// StubCalls returns the argv lists recorded by the stub tunnel binary, oldest
// first. The binary path itself is not included.
func StubCalls(t testing.TB, cfg *config.Config) [][]string {
	t.Helper()
	return readCalls(t, callsPath(BaseDir(cfg)))
}

func callsPath(base string) string {
	return filepath.Join(base, "calls.log")
}
