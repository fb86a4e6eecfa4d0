package main

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"aircheck/internal/config"
)

type commandContext struct {
	configFlag    *string
	areaFlag      *string
	outputDirFlag *string

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error
}

func newCommandContext(configFlag, areaFlag, outputDirFlag *string) *commandContext {
	return &commandContext{
		configFlag:    configFlag,
		areaFlag:      areaFlag,
		outputDirFlag: outputDirFlag,
	}
}

// ensureConfig loads the configuration once per invocation and applies the
// persistent flag overrides. Directories are not created here so `aircheck
// status` can report honestly on a machine that has never recorded.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolvedPath, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := c.applyOverrides(cfg); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolvedPath
		c.configExists = exists
	})
	return c.config, c.configErr
}

func (c *commandContext) applyOverrides(cfg *config.Config) error {
	if c.areaFlag != nil {
		if area := strings.TrimSpace(*c.areaFlag); area != "" {
			if !config.ValidAreaID(area) {
				return fmt.Errorf("invalid area id %q: expected JP1 through JP47", area)
			}
			cfg.Service.AreaID = area
		}
	}
	if c.outputDirFlag != nil {
		if dir := strings.TrimSpace(*c.outputDirFlag); dir != "" {
			expanded, err := config.ExpandPath(dir)
			if err != nil {
				return err
			}
			cfg.Paths.OutputDir = expanded
		}
	}
	return nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
