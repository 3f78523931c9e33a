package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"audioserver/internal/clipset"
	"audioserver/internal/config"
	"audioserver/internal/logging"
	"audioserver/internal/store"
)

type commandContext struct {
	configFlag *string
	verbosity  *int

	configOnce sync.Once
	config     *config.Config
	configPath string
	configSeen bool
	configErr  error
}

func newCommandContext(configFlag *string, verbosity *int) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		verbosity:  verbosity,
	}
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

func (c *commandContext) verbosityLevel() int {
	if c.verbosity == nil {
		return 0
	}
	return *c.verbosity
}

// serverLogger logs at the configured level to stderr and a per-run log
// file, returning that file's path.
func (c *commandContext) serverLogger() (*slog.Logger, string, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, "", err
	}
	runID := time.Now().UTC().Format("20060102T150405.000Z")
	return logging.NewRunLogger(cfg, c.verbosityLevel(), runID)
}

// cliLogger keeps one-shot commands quiet unless -v is given.
func (c *commandContext) cliLogger() (*slog.Logger, error) {
	level := "warn"
	switch {
	case c.verbosityLevel() >= 2:
		level = "debug"
	case c.verbosityLevel() == 1:
		level = "info"
	}
	format := "console"
	if c.config != nil {
		format = c.config.Logging.Format
	}
	return logging.New(logging.Options{Level: level, Format: format, OutputPaths: []string{"stderr"}})
}

// withService opens the catalog for the duration of fn.
func (c *commandContext) withService(fn func(*clipset.Service) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := c.cliLogger()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	st, err := store.Open(cfg)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer st.Close()
	svc, err := clipset.New(cfg, st, logger)
	if err != nil {
		return err
	}
	return fn(svc)
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
