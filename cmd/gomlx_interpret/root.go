// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/gomlx/gomlx/backends"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"k8s.io/klog/v2"
)

const (
	// envPrefix of the environment variables that override the configuration.
	envPrefix = "GOMLX_INTERPRET"

	// configName is the name (without extension) of the configuration file searched in the current
	// directory and in the user's configuration directory.
	configName = "gomlx_interpret"

	keyBackend = "backend"
)

// app holds the state shared by the subcommands.
type app struct {
	config     *viper.Viper
	configFile string
	backend    backends.Backend
}

func newRootCmd() *cobra.Command {
	a := &app{config: viper.New()}
	a.config.SetEnvPrefix(envPrefix)
	a.config.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	a.config.AutomaticEnv()

	rootCmd := &cobra.Command{
		Use:   "gomlx_interpret",
		Short: "Interpretation tools for GoMLX models",
		Long: "gomlx_interpret plots the metrics of a training session, renders Grad-CAM heatmaps of an image " +
			"classifier and composes images into grids.",
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return a.readConfig()
		},
	}
	rootCmd.PersistentFlags().StringVar(&a.configFile, "config", "",
		"Configuration file (TOML, YAML or JSON). "+
			"By default \"gomlx_interpret.*\" is searched in the current directory and in the user's configuration directory.")
	rootCmd.PersistentFlags().String("backend", "",
		"GoMLX backend configuration, e.g. \"go\" or \"xla:cpu\". Empty uses the default backend (see GOMLX_BACKEND).")
	a.bind(rootCmd.PersistentFlags(), keyBackend, "backend")

	rootCmd.AddCommand(
		newMetricsCmd(a),
		newInfoCmd(a),
		newTrainCmd(a),
		newGradCAMCmd(a),
		newGridCmd(a),
	)
	return rootCmd
}

// bind the flag to the configuration key, so the configuration file and environment variables
// can be used in place of the flag.
func (a *app) bind(flags *pflag.FlagSet, key, flagName string) {
	if err := a.config.BindPFlag(key, flags.Lookup(flagName)); err != nil {
		klog.Fatalf("failed to bind flag --%s to %q: %+v", flagName, key, err)
	}
}

func (a *app) readConfig() error {
	if a.configFile != "" {
		a.config.SetConfigFile(a.configFile)
		if err := a.config.ReadInConfig(); err != nil {
			return errors.Wrapf(err, "failed to read configuration file %q", a.configFile)
		}
		klog.V(1).Infof("Configuration read from %q", a.configFile)
		return nil
	}
	a.config.SetConfigName(configName)
	a.config.AddConfigPath(".")
	if userDir, err := os.UserConfigDir(); err == nil {
		a.config.AddConfigPath(filepath.Join(userDir, "gomlx"))
	}
	err := a.config.ReadInConfig()
	if err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return errors.Wrap(err, "failed to read configuration file")
		}
		return nil
	}
	klog.V(1).Infof("Configuration read from %q", a.config.ConfigFileUsed())
	return nil
}

// Backend returns the GoMLX backend, created on first use.
func (a *app) Backend() (backends.Backend, error) {
	if a.backend != nil {
		return a.backend, nil
	}
	var err error
	if config := a.config.GetString(keyBackend); config != "" {
		a.backend, err = backends.NewWithConfig(config)
	} else {
		a.backend, err = backends.New()
	}
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create GoMLX backend")
	}
	klog.V(1).Infof("Backend: %s", a.backend.Name())
	return a.backend, nil
}
