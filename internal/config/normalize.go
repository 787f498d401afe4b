package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizeTunnel(); err != nil {
		return err
	}
	if err := c.normalizePaths(); err != nil {
		return err
	}
	return c.normalizeLogging()
}

func (c *Config) normalizeTunnel() error {
	c.Tunnel.AccessKey = strings.TrimSpace(c.Tunnel.AccessKey)
	if c.Tunnel.AccessKey == "" {
		c.Tunnel.AccessKey = strings.TrimSpace(os.Getenv(AccessKeyEnv))
	}

	var err error
	if c.Tunnel.BinaryPath, err = expandPath(strings.TrimSpace(c.Tunnel.BinaryPath)); err != nil {
		return fmt.Errorf("tunnel.binary_path: %w", err)
	}
	if strings.TrimSpace(c.Tunnel.BinaryDir) == "" {
		c.Tunnel.BinaryDir = defaultBinaryDir
	}
	if c.Tunnel.BinaryDir, err = expandPath(c.Tunnel.BinaryDir); err != nil {
		return fmt.Errorf("tunnel.binary_dir: %w", err)
	}

	logFile := strings.TrimSpace(c.Tunnel.LogFile)
	if logFile == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("tunnel.log_file: resolve working directory: %w", err)
		}
		logFile = filepath.Join(cwd, defaultLogFileName)
	}
	if c.Tunnel.LogFile, err = expandPath(logFile); err != nil {
		return fmt.Errorf("tunnel.log_file: %w", err)
	}

	c.Tunnel.SourceClient = strings.TrimSpace(c.Tunnel.SourceClient)
	if c.Tunnel.SourceClient == "" {
		c.Tunnel.SourceClient = defaultSourceClient
	}
	return nil
}

func (c *Config) normalizePaths() error {
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	var err error
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	var err error
	if c.Logging.File, err = expandPath(strings.TrimSpace(c.Logging.File)); err != nil {
		return fmt.Errorf("logging.file: %w", err)
	}
	return nil
}
