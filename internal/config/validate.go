package config

import (
	"errors"
	"fmt"
)

// Token roles recognized by the API surface.
const (
	RoleViewer = "viewer"
	RoleEditor = "editor"
	RoleAdmin  = "admin"
)

var validRoles = map[string]struct{}{
	RoleViewer: {},
	RoleEditor: {},
	RoleAdmin:  {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateAuth(); err != nil {
		return err
	}
	if err := c.validateModeration(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.MediaDir == "" {
		return errors.New("paths.media_dir must be set")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateAuth() error {
	seen := make(map[string]struct{}, len(c.Auth.Tokens))
	for _, token := range c.Auth.Tokens {
		if token.Token == "" {
			return errors.New("auth.token entries require a token value")
		}
		if token.Tenant == "" {
			return fmt.Errorf("auth token %q must name a tenant", token.Token)
		}
		if _, ok := validRoles[token.Role]; !ok {
			return fmt.Errorf("auth token for tenant %q has unknown role %q", token.Tenant, token.Role)
		}
		if _, dup := seen[token.Token]; dup {
			return errors.New("auth.token entries must be unique")
		}
		seen[token.Token] = struct{}{}
	}
	return nil
}

func (c *Config) validateModeration() error {
	switch c.Moderation.Mode {
	case "sim":
		if c.Moderation.FlagRatio > 1 {
			return errors.New("moderation.flag_ratio must be between 0 and 1")
		}
	case "http":
		if c.Moderation.Endpoint == "" {
			return errors.New("moderation.endpoint must be set when moderation.mode is \"http\"")
		}
	default:
		return fmt.Errorf("moderation.mode: unsupported value %q", c.Moderation.Mode)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}
