package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/m-sorano/ai-cafe/internal/storage"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openRepo()
		if err != nil {
			return err
		}
		defer repo.Close()
		logger.Info("migrations applied", zap.String("driver", repo.Driver()))
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert the default categories into an empty category table",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openRepo()
		if err != nil {
			return err
		}
		defer repo.Close()

		categories, err := repo.SeedCategories(cmd.Context())
		if err != nil {
			return err
		}
		for _, c := range categories {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", c.ID, c.Name)
		}
		return nil
	},
}

var sqlFile string

var execSQLCmd = &cobra.Command{
	Use:   "exec-sql",
	Short: "Run a SQL script statement by statement",
	Long: `Runs every statement of a SQL file in order. Lines starting with "--"
are ignored. A failing statement is reported and the run continues.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if sqlFile == "" {
			return fmt.Errorf("--file is required")
		}
		script, err := os.ReadFile(sqlFile)
		if err != nil {
			return fmt.Errorf("read %s: %w", sqlFile, err)
		}

		repo, err := openRepo()
		if err != nil {
			return err
		}
		defer repo.Close()

		result := repo.ExecuteScript(cmd.Context(), string(script))
		for _, e := range result.Errors {
			logger.Warn("statement failed", zap.Error(e))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "succeeded: %d, failed: %d\n", result.Succeeded, result.Failed)
		return nil
	},
}

var fixPermissionsCmd = &cobra.Command{
	Use:   "fix-permissions",
	Short: "Create missing profiles and the avatar bucket",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openRepo()
		if err != nil {
			return err
		}
		defer repo.Close()

		created, err := repo.BackfillProfiles(cmd.Context())
		if err != nil {
			return err
		}
		avatars, err := storage.New(cfg)
		if err != nil {
			return err
		}
		if err := avatars.EnsureBucket(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "profiles created: %d\n", created)
		return nil
	},
}

func init() {
	execSQLCmd.Flags().StringVarP(&sqlFile, "file", "f", "", "SQL script to execute")
}
