// Package config loads switchmap settings with Viper and builds the
// process logger.
package config

import "github.com/spf13/viper"

// Config is a loaded configuration: defaults, the config file if one was
// found, and SWITCHMAP_* environment overrides.
type Config struct {
	v *viper.Viper
}

// ConfigFile returns the path of the file that was read, or "" when only
// defaults and environment variables are in effect.
func (c *Config) ConfigFile() string {
	return c.v.ConfigFileUsed()
}

// Settings unmarshals and validates the full typed configuration.
func (c *Config) Settings() (*Settings, error) {
	var s Settings
	if err := c.v.Unmarshal(&s); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}
