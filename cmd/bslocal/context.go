package main

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"bslocal/internal/config"
	"bslocal/internal/credentials"
	"bslocal/internal/deps"
	"bslocal/internal/logging"
	"bslocal/internal/tunnel"
	"bslocal/internal/tunnelstate"
)

// newController builds the tunnel controller. Tests swap it for tunnel.New so
// each command tree gets a fresh controller.
var newController = tunnel.Init

type commandContext struct {
	configFlag *string
	keyring    credentials.Store

	configOnce sync.Once
	config     *config.Config
	configPath string
	configSeen bool
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag, keyring: credentials.NewStore()}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
		c.configSeen = exists
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) resolver() deps.Resolver {
	cfg, _ := c.ensureConfig()
	if cfg == nil {
		return deps.Resolver{}
	}
	return deps.Resolver{BinaryPath: cfg.Tunnel.BinaryPath, BinaryDir: cfg.Tunnel.BinaryDir}
}

// controller returns a tunnel controller seeded from configuration. The
// binary is located by the deps resolver unless a binarypath option is given.
func (c *commandContext) controller() (*tunnel.Controller, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	key, _ := c.accessKey(cfg)
	settings := tunnel.Settings{
		AccessKey:    key,
		LogFile:      cfg.Tunnel.LogFile,
		SourceClient: cfg.Tunnel.SourceClient,
		Options:      tunnel.OptionsFromMap(cfg.Tunnel.Options),
	}
	return newController(settings,
		tunnel.WithResolver(c.resolver()),
		tunnel.WithLogger(logger),
	), nil
}

// accessKey returns the key from config or environment, falling back to the
// OS keyring, along with where it came from.
func (c *commandContext) accessKey(cfg *config.Config) (string, string) {
	if cfg.Tunnel.AccessKey != "" {
		return cfg.Tunnel.AccessKey, "config"
	}
	if key := c.keyring.Lookup(); key != "" {
		return key, "keyring"
	}
	return "", ""
}

func (c *commandContext) stateStore() (*tunnelstate.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return tunnelstate.New(cfg.StatePath()), nil
}

func (c *commandContext) cliLogger() *slog.Logger {
	logger, err := c.ensureLogger()
	if err != nil {
		logger = nil
	}
	return logging.NewComponentLogger(logger, "cli")
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
