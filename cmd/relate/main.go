package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Version information - will be set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var cfgFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "relate",
		Short: "Relationship declaration tooling for the relate engine",
		Long: `Relate is a lazy relationship/association engine for serialization layers.
This tool validates and describes relationship declaration files.`,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default .relate.yaml)")
	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(describeCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initConfig reads the optional .relate.yaml config: a default schema path
// and log level.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(".relate")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}
	viper.SetDefault("schema", "relate.schema.yaml")
	viper.SetDefault("log_level", "info")
	viper.SetEnvPrefix("RELATE")
	viper.AutomaticEnv()

	// A missing config file is fine; defaults apply.
	_ = viper.ReadInConfig()
}

// schemaPath resolves the declaration file from args or config.
func schemaPath(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return viper.GetString("schema")
}
