package main

import (
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"pagemill/internal/config"
	"pagemill/internal/daemon"
	"pagemill/internal/pipeline"
	"pagemill/internal/render"
	"pagemill/internal/store"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
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

// withStore opens the store for a single command invocation.
func (c *commandContext) withStore(fn func(*config.Config, *store.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	st, err := store.Open(cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(cfg, st)
}

// withManager wires a full pipeline manager for one-shot processing commands.
func (c *commandContext) withManager(fn func(*config.Config, *store.Store, *pipeline.Manager) error) error {
	return c.withStore(func(cfg *config.Config, st *store.Store) error {
		engine, err := daemon.NewEngine(cfg)
		if err != nil {
			return err
		}
		defer engine.Close()

		logger, err := newCLILogger(cfg)
		if err != nil {
			return err
		}
		manager := pipeline.NewManager(cfg, st, engine, render.NewFileGenerator(cfg), logger)
		defer manager.Stop()
		return fn(cfg, st, manager)
	})
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
