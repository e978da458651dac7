package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var trackSQL bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Release()
		if err := a.MigrateDB(trackSQL); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "database migrated")
		return nil
	},
}

var initdbCmd = &cobra.Command{
	Use:   "initdb",
	Short: "Drop every collection and recreate an empty schema",
	Long: `Drop every collection and recreate an empty schema.

All products, categories, transactions and operators are lost.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Release()
		if err := a.InitDb(); err != nil {
			return fmt.Errorf("initdb: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "database initialized")
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), Version)
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&trackSQL, "track", false, "Log every SQL statement")
	rootCmd.AddCommand(migrateCmd, initdbCmd, versionCmd)
}
