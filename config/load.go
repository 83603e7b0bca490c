package config

import (
	configUtil "github.com/fox-one/pkg/config"

	"termfi/core"
)

// Load load config file, env vars prefixed TERMFI_ override
func Load(configFile string, config *core.Config) error {
	configUtil.AutomaticLoadEnv("TERMFI")
	return configUtil.LoadYaml(configFile, config)
}
