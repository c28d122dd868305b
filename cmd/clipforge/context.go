package main

import (
	"os"
	"strings"
	"sync"

	"clipforge/internal/api"
	"clipforge/internal/config"
)

const tokenEnvVar = "CLIPFORGE_TOKEN"

type commandContext struct {
	apiFlag    *string
	tokenFlag  *string
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(apiFlag, tokenFlag, configFlag *string) *commandContext {
	return &commandContext{
		apiFlag:    apiFlag,
		tokenFlag:  tokenFlag,
		configFlag: configFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// apiAddress resolves the daemon address, preferring the --api flag over the
// configuration file.
func (c *commandContext) apiAddress() (string, error) {
	if c.apiFlag != nil {
		if addr := strings.TrimSpace(*c.apiFlag); addr != "" {
			return addr, nil
		}
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return "", err
	}
	return cfg.Paths.APIBind, nil
}

// token resolves the bearer token from the --token flag or the environment.
func (c *commandContext) token() string {
	if c.tokenFlag != nil {
		if tok := strings.TrimSpace(*c.tokenFlag); tok != "" {
			return tok
		}
	}
	return strings.TrimSpace(os.Getenv(tokenEnvVar))
}

func (c *commandContext) client() (*api.Client, error) {
	addr, err := c.apiAddress()
	if err != nil {
		return nil, err
	}
	return api.NewClient(addr, c.token())
}
