// Package cli implements the song-bot commands.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ewilliams-labs/song-bot/internal/config"
	"github.com/ewilliams-labs/song-bot/internal/logging"
)

// rootOptions is shared by every subcommand. cfg and logger are populated in
// PersistentPreRunE.
type rootOptions struct {
	configPath string
	logLevel   string

	cfg    config.Config
	logger *zap.Logger
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{logger: zap.NewNop()}

	cmd := &cobra.Command{
		Use:   "song-bot",
		Short: "Conversational music recommendations",
		Long: `song-bot answers "recommend <song>", "similar artist <name>" and
"genre <name>" with suggestions from the music service, and forwards
anything else to a general-purpose responder.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if opts.logLevel != "" {
				cfg.Log.Level = opts.logLevel
			}
			logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			opts.cfg = cfg
			opts.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = opts.logger.Sync()
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "YAML config file (env vars override it)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn or error")

	cmd.AddCommand(
		newServeCmd(opts),
		newChatCmd(opts),
		newCatalogCmd(opts),
	)
	return cmd
}
