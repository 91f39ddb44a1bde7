package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/echo-agent/internal/config"
	"github.com/ziadkadry99/echo-agent/internal/logging"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "echo-agent",
	Short: "Teams echo agent",
	Long: `Echo Agent answers Microsoft Teams conversations: it greets new members,
replies to /help and echoes every other message back as "you said: <text>".

Configuration is read from the environment (TENANT_ID, CLIENT_ID,
CONNECTION_NAME, AGENT_TYPE, PORT, ...) and optionally from a YAML file.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return runAgent(ctx, cfg)
	},
}

func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "optional YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

// loadConfig reads the configuration and configures logging from it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	if err := logging.Setup(os.Stderr, level, cfg.LogFormat); err != nil {
		return nil, fmt.Errorf("configuring logging: %w", err)
	}
	return cfg, nil
}
