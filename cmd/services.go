package cmd

import (
	"context"
	"io"
	"path/filepath"

	"github.com/Daskott/favdial/blobstore"
	"github.com/Daskott/favdial/database"
	"github.com/Daskott/favdial/directory"
	"github.com/Daskott/favdial/favorites"
	"github.com/Daskott/favdial/googleservice"
	"github.com/Daskott/favdial/gstorage"
	"github.com/Daskott/favdial/logger"
	"github.com/Daskott/favdial/recordstore"
	"github.com/Daskott/favdial/shared"
	"github.com/Daskott/favdial/utils"
	"github.com/Daskott/favdial/work"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	FAVORITES_FILE = "favorites.json"
	AVATARS_DIR    = "avatars"
)

// objectStore is the bucket client used for backups. When nil, a GStorage
// client is created from the config.
var objectStore gstorage.ObjectStore

// services holds everything a command needs, built from the config.
type services struct {
	config    *shared.Config
	logg      *zap.SugaredLogger
	adapter   *work.WorkerPoolAdapter
	records   *recordstore.Store
	blobs     *blobstore.Store
	directory directory.Directory
	manager   *favorites.Manager
	backup    *gstorage.Backup
	closers   []io.Closer
}

func newServices(ctx context.Context, cmd *cobra.Command, cfg *shared.Config) (*services, error) {
	level := cfg.Log.Level
	if level == "" {
		level = "info"
	}

	svc := &services{
		config: cfg,
		logg:   logger.NewLoggerWithLevel(level),
	}

	if err := utils.CreateDirIfNotExist(cfg.Store.DataDir); err != nil {
		return nil, err
	}

	slot, err := svc.openSlot()
	if err != nil {
		svc.Close()
		return nil, err
	}
	svc.records = recordstore.New(slot, cfg.Store.CeilingBytes, svc.logg)

	svc.blobs, err = blobstore.New(filepath.Join(cfg.Store.DataDir, AVATARS_DIR), svc.logg)
	if err != nil {
		svc.Close()
		return nil, err
	}

	svc.directory, err = svc.openDirectory(ctx, cmd)
	if err != nil {
		svc.Close()
		return nil, err
	}

	svc.adapter = work.NewWorkerAdapter(cfg.Workers.TimeZone, cfg.Workers.Concurrency, svc.logg)
	svc.adapter.Pool().Start()

	svc.manager, err = favorites.New(favorites.Options{
		Records:   svc.records,
		Blobs:     svc.blobs,
		Directory: svc.directory,
		Pool:      svc.adapter.Pool(),
		Logger:    svc.logg,
	})
	if err != nil {
		svc.Close()
		return nil, err
	}

	if cfg.Google.Storage.EnableBackup {
		store, err := svc.openObjectStore(ctx)
		if err != nil {
			svc.Close()
			return nil, err
		}

		storageCfg := cfg.Google.Storage
		svc.backup = gstorage.NewBackup(store, storageCfg.Bucket, storageCfg.Prefix, svc.records, svc.blobs, svc.logg)
	}

	return svc, nil
}

func (svc *services) openSlot() (recordstore.Slot, error) {
	if svc.config.Store.Backend == shared.BACKEND_SQLITE {
		slot, err := database.OpenSqliteSlot(svc.config.Sqlite.PassPhrase, svc.config.Store.DataDir, database.FAVORITES_SLOT)
		if err != nil {
			return nil, err
		}
		svc.closers = append(svc.closers, slot)
		return slot, nil
	}

	return recordstore.NewFileSlot(filepath.Join(svc.config.Store.DataDir, FAVORITES_FILE))
}

func (svc *services) openDirectory(ctx context.Context, cmd *cobra.Command) (directory.Directory, error) {
	switch svc.config.Directory.Source {
	case shared.DIRECTORY_VCARD:
		vcardFile, err := utils.ExpandHome(svc.config.Directory.VCardFile)
		if err != nil {
			return nil, err
		}
		return directory.NewVCardDirectory(vcardFile), nil

	case shared.DIRECTORY_GOOGLE:
		credentials, err := googleAppCredentials(svc.config.Google.OAuthClientFile)
		if err != nil {
			return nil, err
		}

		tokenFile, err := utils.ExpandHome(svc.config.Directory.TokenFile)
		if err != nil {
			return nil, err
		}

		prompt := googleservice.TokenPrompt{In: cmd.InOrStdin(), Out: cmd.OutOrStdout()}
		return googleservice.NewPeopleDirectoryFromCredentials(ctx, credentials, tokenFile, prompt)
	}

	// Without a directory, names come from what was captured at creation
	return nil, nil
}

func (svc *services) openObjectStore(ctx context.Context) (gstorage.ObjectStore, error) {
	if objectStore != nil {
		return objectStore, nil
	}

	gs, err := gstorage.NewGStorage(ctx, svc.config.Google.ApplicationCredentials)
	if err != nil {
		return nil, err
	}
	svc.closers = append(svc.closers, gs)
	return gs, nil
}

// Close stops the workers and releases the slot and bucket clients.
func (svc *services) Close() {
	if svc.manager != nil {
		svc.manager.Close()
	}

	if svc.adapter != nil {
		svc.adapter.Stop()
	}

	for i := len(svc.closers) - 1; i >= 0; i-- {
		if err := svc.closers[i].Close(); err != nil {
			svc.logg.Warnf("close: %v", err)
		}
	}

	svc.logg.Sync()
}

// withServices builds the services for cmd and hands them to fn. When load
// is set, the favorites are loaded (and migrated if needed) first.
func withServices(cmd *cobra.Command, load bool, fn func(ctx context.Context, svc *services) error) error {
	cfg, err := favdialConfig()
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	svc, err := newServices(ctx, cmd, cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	if load {
		if err := svc.manager.Load(ctx); err != nil {
			return formattedError("unable to load favorites: %v", err)
		}

		if report := svc.manager.LastMigration(); report != nil && report.Partial() {
			cmd.Printf("%s %v legacy favorite(s) could not be recovered\n", warningLabel, len(report.Skipped))
			for _, skipped := range report.Skipped {
				cmd.Printf("  entry %v: %v\n", skipped.Index, skipped.Reason)
			}
		}
	}

	return fn(ctx, svc)
}

// withFavorites is withServices with the favorites loaded.
func withFavorites(cmd *cobra.Command, fn func(ctx context.Context, svc *services) error) error {
	return withServices(cmd, true, fn)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
