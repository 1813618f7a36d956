package main

import (
	"errors"
	"os"
	"strings"
	"sync"

	"shortcast/internal/config"
	"shortcast/internal/intake"
	"shortcast/internal/jobs"
	"shortcast/internal/logging"
	"shortcast/internal/uploadqueue"
)

type commandContext struct {
	configFlag *string
	ownerFlag  *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	storeOnce sync.Once
	store     *jobs.Store
	storeErr  error
}

func newCommandContext(configFlag, ownerFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		ownerFlag:  ownerFlag,
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
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

// ownerKey resolves the owner credential: the --owner flag, falling back to
// the SHORTCAST_OWNER_KEY environment variable.
func (c *commandContext) ownerKey() (string, error) {
	if c.ownerFlag != nil {
		if key := strings.TrimSpace(*c.ownerFlag); key != "" {
			return key, nil
		}
	}
	if key := strings.TrimSpace(os.Getenv("SHORTCAST_OWNER_KEY")); key != "" {
		return key, nil
	}
	return "", errors.New("owner key required: pass --owner or set SHORTCAST_OWNER_KEY")
}

func (c *commandContext) jobStore() (*jobs.Store, error) {
	c.storeOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.storeErr = err
			return
		}
		c.store, c.storeErr = jobs.Open(cfg)
	})
	return c.store, c.storeErr
}

func (c *commandContext) queueStore() (*uploadqueue.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return uploadqueue.NewStore(cfg.QueueFilePath(), logging.NewNop()), nil
}

func (c *commandContext) intake() (*intake.Intake, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := c.jobStore()
	if err != nil {
		return nil, err
	}
	return intake.New(cfg, store, logging.NewNop()), nil
}
