package cmd

import (
	"context"

	"github.com/Daskott/favdial/colors"
	"github.com/Daskott/favdial/gstorage"
	"github.com/Daskott/favdial/migration"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func createMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Upgrades favorites saved by older versions of favdial",
		Long: `Loads the favorites, upgrading data saved in an older format to the current one
(schema version ` + migration.CURRENT_VERSION.String() + `) and prints what was done. Data that is
already current is left untouched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withFavorites(cmd, func(ctx context.Context, svc *services) error {
				report := svc.manager.LastMigration()
				if report == nil {
					cmd.Println("Favorites are up to date, nothing to migrate")
					return nil
				}

				cmd.Printf("Migrated favorites: %v\n", report)
				return nil
			})
		},
	}
}

func createGCCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gc",
		Short: "Deletes avatars no favorite refers to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withFavorites(cmd, func(ctx context.Context, svc *services) error {
				result, err := svc.manager.CollectGarbage()
				if err != nil {
					return err
				}

				cmd.Printf("Scanned %v avatar(s), deleted %v\n", result.Scanned, len(result.Deleted))
				for key, err := range result.Failed {
					cmd.Printf("%s unable to delete %v: %v\n", warningLabel, key, err)
				}
				return nil
			})
		},
	}
}

func createBackupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Copies favorites and avatars to the configured bucket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withFavorites(cmd, func(ctx context.Context, svc *services) error {
				if svc.backup == nil {
					return formattedError("backups are disabled, set 'google.storage.enableBackup' to enable them")
				}

				result, err := svc.backup.Run(ctx)
				if err != nil {
					return err
				}

				cmd.Printf("Backed up %s and %v new avatar(s)\n", colors.Cyan(result.Snapshot), len(result.Avatars))
				return nil
			})
		},
	}
}

func createRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore",
		Short: "Replaces local favorites with the latest backup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Restore writes the record store directly, so nothing is loaded
			return withServices(cmd, false, func(ctx context.Context, svc *services) error {
				if svc.backup == nil {
					return formattedError("backups are disabled, set 'google.storage.enableBackup' to enable them")
				}

				count, err := svc.backup.Restore(ctx)
				if errors.Is(err, gstorage.ErrObjectNotExist) {
					return formattedError("no backup found in bucket %v", svc.config.Google.Storage.Bucket)
				}
				if err != nil {
					return err
				}

				cmd.Printf("Restored %v favorite(s)\n", count)
				return nil
			})
		},
	}
}
