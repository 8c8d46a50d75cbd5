package main

import (
	"os"

	"github.com/aleister1102/designdiff/internal/config"
	"github.com/aleister1102/designdiff/internal/logger"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type rootFlags struct {
	configPath string
	envFile    string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "designdiff",
		Short:         "Compare a rendered web page against its design reference",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Path to the YAML/JSON config file (default: designdiff.yaml in the working directory)")
	cmd.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", "Dotenv file with Figma credentials")
	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(newRunCmd(flags))
	cmd.AddCommand(newFetchBaselineCmd(flags))
	cmd.AddCommand(newVerifyConfigCmd(flags))
	cmd.AddCommand(newCompareCmd(flags))
	cmd.AddCommand(newHistoryCmd(flags))

	return cmd
}

// appContext is the loaded configuration shared by every subcommand
type appContext struct {
	cfg    *config.GlobalConfig
	env    map[string]string
	logger zerolog.Logger
}

// loadApp reads the env file and config, validates it and builds the logger.
// A non-empty runID keeps the log file under a per-run directory.
func loadApp(flags *rootFlags, runID string) (*appContext, error) {
	bootstrap := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger().Level(zerolog.WarnLevel)

	env, err := config.LoadEnv(flags.envFile)
	if err != nil {
		return nil, err
	}

	cfg, err := config.LoadGlobalConfig(flags.configPath, bootstrap)
	if err != nil {
		return nil, err
	}
	if flags.verbose {
		cfg.LogConfig.LogLevel = "debug"
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return nil, err
	}

	var log zerolog.Logger
	if runID != "" {
		log, err = logger.NewWithRunID(cfg.LogConfig, runID)
	} else {
		log, err = logger.New(cfg.LogConfig)
	}
	if err != nil {
		return nil, err
	}

	return &appContext{cfg: cfg, env: env, logger: log}, nil
}
