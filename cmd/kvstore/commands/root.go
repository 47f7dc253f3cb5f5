package commands

import (
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/ASHISH26940/kvstore/internal/config"
)

var (
	configPath string
	logLevel   string

	cfg    *config.Config
	logger hclog.Logger
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "kvstore",
		Short: "Insertion-ordered key-value store",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg = config.New()
			if configPath != "" {
				if err := cfg.Load(configPath); err != nil {
					return err
				}
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger = newLogger(cfg)
			return nil
		},
	}

	root.SilenceUsage = true

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a TOML config file")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log_level (trace, debug, info, warn, error)")

	root.AddCommand(serveCmd(), dumpCmd())
	return root
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}

func newLogger(c *config.Config) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:       "kvstore",
		Level:      hclog.LevelFromString(c.LogLevel),
		JSONFormat: c.LogJSON,
		Output:     os.Stderr,
	})
}
