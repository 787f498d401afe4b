package config

import (
	"errors"
	"fmt"
	"strings"
)

// reservedOptionKeys have dedicated settings and must not appear in
// [tunnel.options].
var reservedOptionKeys = map[string]string{
	"key":         "tunnel.access_key",
	"binarypath":  "tunnel.binary_path",
	"logfile":     "tunnel.log_file",
	"onlyCommand": "the --only-command flag",
	"source":      "tunnel.source_client",
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTunnelOptions(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateTunnelOptions() error {
	for _, key := range c.OptionKeys() {
		if strings.TrimSpace(key) == "" {
			return errors.New("tunnel.options: empty option name")
		}
		if strings.HasPrefix(key, "-") || strings.ContainsAny(key, " \t=") {
			return fmt.Errorf("tunnel.options.%s: option names must not start with '-' or contain spaces or '='", key)
		}
		if replacement, ok := reservedOptionKeys[key]; ok {
			return fmt.Errorf("tunnel.options.%s is reserved; use %s instead", key, replacement)
		}
		switch c.Tunnel.Options[key].(type) {
		case string, bool, int, int64, float64:
		default:
			return fmt.Errorf("tunnel.options.%s: value must be a string, boolean or number", key)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q (use console or json)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
