// Package config wires Viper with config-file, environment, and flag
// sources for asciiplay's tunables.
package config

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix Viper strips from ASCIIPLAY_-prefixed
// environment variables.
const EnvPrefix = "ASCIIPLAY"

// Init wires Viper with config search paths, environment variables, and
// the root command's persistent flags. It is non-fatal: a missing config
// file is not an error.
func Init(root *cobra.Command) error {
	viper.SetConfigName("asciiplay")
	viper.AddConfigPath("$HOME/.config/asciiplay")
	viper.AddConfigPath(".")

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	for _, flagName := range []string{
		"mode", "grid", "halfblock", "fps", "no-audio", "volume",
		"export", "export-grid", "export-font", "export-crf", "export-fps",
		"dither", "gamma", "contrast", "maxwrite", "stats",
	} {
		if flag := root.PersistentFlags().Lookup(flagName); flag != nil {
			_ = viper.BindPFlag(strings.ReplaceAll(flagName, "-", "_"), flag)
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return err
		}
	}
	return nil
}
