package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	jsonOutput bool
)

// rootCmd is the base command for the LayerSentinel CLI
var rootCmd = &cobra.Command{
	Use:   "sentinel",
	Short: "LayerSentinel AI infrastructure layer scoring",
	Long: `LayerSentinel scores investment layers on momentum, relative strength
and a manual fundamental flag, pulls news for the leading layer and
reports a macro traffic light from breadth, VIX and the 10y yield.`,
	SilenceUsage: true,
}

func init() {
	defaultConfig := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultConfig = v
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfig, "Path to the YAML config file")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print JSON instead of a table")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
