package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Version: version,
	Use:     "imagectl",
	Short:   "Manage the image catalog from the command line",
	Long: `imagectl saves images into the catalog and lists catalogs using the
same metadata store and blob store the server is configured with.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		readConfig(cmd)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./imagectl.yaml)")
	rootCmd.PersistentFlags().String("database-url", "", "metadata store URL (env: IMAGECTL_DATABASE_URL)")
	rootCmd.PersistentFlags().String("storage-url", "", "blob store URL (env: IMAGECTL_STORAGE_URL)")
	rootCmd.PersistentFlags().String("default-container", "", "container for application images")
	rootCmd.PersistentFlags().Int("fetch-concurrency", 0, "parallel blob downloads per query")
	rootCmd.PersistentFlags().String("env", "", "environment: development, production, testing")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")

	_ = viper.BindPFlag("database.url", rootCmd.PersistentFlags().Lookup("database-url"))
	_ = viper.BindPFlag("storage.url", rootCmd.PersistentFlags().Lookup("storage-url"))
	_ = viper.BindPFlag("catalog.default_container", rootCmd.PersistentFlags().Lookup("default-container"))
	_ = viper.BindPFlag("catalog.fetch_concurrency", rootCmd.PersistentFlags().Lookup("fetch-concurrency"))
	_ = viper.BindPFlag("environment", rootCmd.PersistentFlags().Lookup("env"))
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
