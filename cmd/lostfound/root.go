package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/lostfound/internal/config"
	logpkg "github.com/kailas-cloud/lostfound/internal/logger"
)

type rootOptions struct {
	envFile string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:          "lostfound",
		Short:        "Lost & found matching service",
		SilenceUsage: true, // don't print usage on operational errors
		Long: `lostfound ranks found items against a lost-item description or photo
and flags high-value matches for ownership verification.`,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return config.LoadDotEnv(opts.envFile)
		},
	}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before the config")

	cmd.AddCommand(newServeCmd(), newMatchCmd(), newVersionCmd())
	return cmd
}

// loadRuntime resolves the environment, config and logger. logEnv overrides the logger mode.
func loadRuntime(logEnv string) (config.Config, *zap.Logger, string, error) {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		return config.Config{}, nil, env, fmt.Errorf("failed to load config: %w", err)
	}

	if logEnv == "" {
		logEnv = env
	}
	level := cfg.Logging.Level
	if logEnv == "cli" {
		level = ""
	}
	logger, err := logpkg.NewLogger(logEnv, level)
	if err != nil {
		return config.Config{}, nil, env, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, logger, env, nil
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
