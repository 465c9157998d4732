package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/HillPhelmuth/WhiteBoard/internal/logging"
	"github.com/HillPhelmuth/WhiteBoard/pkg/imagecatalog"
	"github.com/HillPhelmuth/WhiteBoard/pkg/imagecatalog/config"
)

func readConfig(cmd *cobra.Command) {
	configFile, _ := cmd.Flags().GetString("config")
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("imagectl")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix("IMAGECTL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			slog.Warn("error reading config file", "err", err)
		}
	}
}

// loadConfig layers viper settings (flags, IMAGECTL_* env, config file) over
// the server environment variables.
func loadConfig(v *viper.Viper) (*config.ServerConfig, error) {
	opts := []config.Option{
		config.WithEnv(),
		config.WithDatabaseURL(v.GetString("database.url")),
		config.WithStorageURL(v.GetString("storage.url")),
	}
	if env := v.GetString("environment"); env != "" {
		opts = append(opts, config.WithEnvironment(env))
	}
	if level := v.GetString("log.level"); level != "" {
		opts = append(opts, config.WithLogLevel(level))
	}
	if name := v.GetString("catalog.default_container"); name != "" {
		opts = append(opts, config.WithDefaultContainer(name))
	}
	if n := v.GetInt("catalog.fetch_concurrency"); n != 0 {
		opts = append(opts, config.WithFetchConcurrency(n))
	}
	return config.Load(opts...)
}

// openService builds the catalog service. Logs go to stderr so that list
// output on stdout stays machine readable.
func openService(ctx context.Context) (imagecatalog.Service, func(), error) {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	level := cfg.LogLevel
	if level == "" {
		level = "warn"
	}
	logger := logging.New(os.Stderr, cfg.Environment, level)
	logging.Setup(logger)

	svc, cleanup, err := cfg.BuildService(ctx, imagecatalog.WithLogger(logger))
	if err != nil {
		return nil, nil, fmt.Errorf("build service: %w", err)
	}
	return svc, cleanup, nil
}
