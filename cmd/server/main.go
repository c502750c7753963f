package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/m-sorano/ai-cafe/internal/config"
	"github.com/m-sorano/ai-cafe/internal/db"
)

var (
	configPath string
	debug      bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "ai-cafe",
	Short: "生成AI相談室 - AI consultation board server",
	Long: `ai-cafe serves the AI consultation board API: posts, comments,
reactions, profiles and knowledge cards summarized from posts.

Run without arguments to start the HTTP server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}

		zc := zap.NewProductionConfig()
		if debug || cfg.LogLevel == "debug" {
			zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		logger, err = zc.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML configuration file (overrides environment)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd, execSQLCmd, fixPermissionsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openRepo opens the database and applies migrations.
func openRepo() (*db.Repository, error) {
	repo, err := db.NewRepository(cfg)
	if err != nil {
		return nil, fmt.Errorf("database initialization error: %w", err)
	}
	if err := repo.RunMigrations(); err != nil {
		repo.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}
	return repo, nil
}
