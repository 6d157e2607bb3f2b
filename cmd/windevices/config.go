package main

import (
	"fmt"
	"strings"

	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// initConfig defines config flags, config file, and envs.
func initConfig() error {
	cfgFile := flag.String("config", "", "Path to the config file.")
	flag.String("listen", ":8080", "The address at which to serve the snapshot API, health and metrics.")
	flag.Duration("scan-interval", defaultScanInterval, "How often to rescan the USB topology.")
	flag.String("log-level", logLevelInfo, fmt.Sprintf("Log level to use. Possible values: %s", availableLogLevels))
	flag.String("log-format", logFormatAuto, "Log format: auto, logfmt or json.")
	flag.String("class-guid", "", "Setup class GUID for a one-shot registry-only listing.")
	flag.Bool("mass-storage-only", false, "Restrict scans to mass storage devices.")
	flag.Bool("once", false, "Scan once, print the device table and exit.")

	flag.Parse()
	if err := viper.BindPFlags(flag.CommandLine); err != nil {
		return fmt.Errorf("failed to bind config: %w", err)
	}

	if *cfgFile != "" {
		viper.SetConfigFile(*cfgFile)
	} else {
		viper.SetConfigName("windevices")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix("windevices")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; ignore error
		} else {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return nil
}
