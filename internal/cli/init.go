package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/propcheck/internal/config"
	"github.com/example/propcheck/internal/db"
	"github.com/example/propcheck/internal/wire"
)

// InitCmd returns the init command
func InitCmd() *cobra.Command {
	var seed bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the propcheck database and config file",
		Long: `Create ~/.propcheck/config.yaml if it does not exist and bring the
database schema up to date. --seed loads demo properties, staff and templates.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := wire.Config()
			path := wire.ConfigPath()

			if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
				if err := config.SaveConfig(path, cfg); err != nil {
					return err
				}
				fmt.Printf("✓ Config written to %s\n", path)
			}

			database := wire.Database()
			version, err := db.CurrentVersion(database)
			if err != nil {
				return fmt.Errorf("failed to read schema version: %w", err)
			}
			fmt.Printf("✓ Database ready at %s (schema v%d, driver %s)\n", cfg.Database.Path, version, cfg.Database.Driver)

			if seed {
				if err := db.SeedFixtures(database); err != nil {
					return fmt.Errorf("failed to seed fixtures: %w", err)
				}
				fmt.Println("✓ Demo properties, staff and templates loaded")
			}

			fmt.Println()
			fmt.Println("Next steps:")
			fmt.Println("  propcheck template import fire-safety.yaml")
			fmt.Println("  propcheck scheduler run")
			fmt.Println("  propcheck serve")
			return nil
		},
	}

	cmd.Flags().BoolVar(&seed, "seed", false, "Load demo fixtures")
	return cmd
}
