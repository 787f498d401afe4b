package config

const (
	defaultBinaryDir    = "~/.browserstack"
	defaultStateDir     = "~/.local/share/bslocal"
	defaultSourceClient = "go"
	defaultLogFormat    = "console"
	defaultLogLevel     = "info"
	defaultLogFileName  = "local.log"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Tunnel: Tunnel{
			BinaryDir:    defaultBinaryDir,
			SourceClient: defaultSourceClient,
		},
		Paths: Paths{
			StateDir: defaultStateDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
