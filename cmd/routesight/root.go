package main

import (
	"fmt"
	"os"

	"github.com/Oculis-Navigate/go-routesight/pipeline"
	"github.com/spf13/cobra"
)

// Version is the application version
const Version = "0.1.0"

var (
	// cfgFile is the optional YAML config file path
	cfgFile string
	// params is the session configuration shared by subcommands
	params pipeline.Params
)

var rootCmd = &cobra.Command{
	Use:     "routesight",
	Short:   "Read and announce transit vehicle route identifiers",
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {

		if cfgFile == "" {
			params = pipeline.DefaultParams()
			return nil
		}

		var err error
		params, err = pipeline.LoadParams(cfgFile)

		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"YAML config file with session settings")
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
