package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/bentolab/nhsn-backfill/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config.yaml with the default settings",
	RunE: func(cmd *cobra.Command, _ []string) error {
		const path = "config.yaml"
		if _, err := os.Stat(path); err == nil {
			return eris.Errorf("%s already exists, refusing to overwrite", path)
		}

		v := viper.New()
		config.SetDefaults(v)

		var defaults config.Config
		if err := v.Unmarshal(&defaults); err != nil {
			return eris.Wrap(err, "config init: build defaults")
		}

		data, err := yaml.Marshal(&defaults)
		if err != nil {
			return eris.Wrap(err, "config init: marshal")
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return eris.Wrap(err, "config init: write")
		}

		zap.L().Info("default config written", zap.String("path", path))
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}
