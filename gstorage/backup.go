package gstorage

import (
	"bytes"
	"context"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/Daskott/favdial/blobstore"
	"github.com/Daskott/favdial/colors"
	"github.com/Daskott/favdial/logger"
	"github.com/Daskott/favdial/recordstore"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const (
	LATEST_SNAPSHOT = "latest.json"

	snapshotDir = "favorites"
	avatarDir   = "avatars"
)

// BackupResult lists the objects written by one backup run.
type BackupResult struct {
	Snapshot string
	Avatars  []string
}

// Backup copies the record slot and avatar blobs to a bucket. Snapshots are
// timestamped; avatars are immutable and uploaded once per process.
type Backup struct {
	store   ObjectStore
	bucket  string
	prefix  string
	records *recordstore.Store
	blobs   *blobstore.Store
	logg    *zap.SugaredLogger
	now     func() time.Time

	mu       sync.Mutex
	uploaded map[string]bool
}

func NewBackup(store ObjectStore, bucket, prefix string, records *recordstore.Store, blobs *blobstore.Store, logg *zap.SugaredLogger) *Backup {
	return &Backup{
		store:    store,
		bucket:   bucket,
		prefix:   prefix,
		records:  records,
		blobs:    blobs,
		logg:     logger.OrNop(logg),
		now:      time.Now,
		uploaded: map[string]bool{},
	}
}

// Run uploads the current slot contents and any avatar not uploaded yet.
func (b *Backup) Run(ctx context.Context) (*BackupResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	result := &BackupResult{}

	data, exists, err := b.records.LoadRaw()
	if err != nil {
		return nil, errors.Wrap(err, "backup")
	}

	if exists {
		result.Snapshot = b.object(snapshotDir, b.now().UTC().Format("20060102T150405Z")+".json")
		if err := UploadBytes(ctx, b.store, b.bucket, result.Snapshot, data); err != nil {
			return nil, errors.Wrap(err, "backup")
		}
		if err := UploadBytes(ctx, b.store, b.bucket, b.object(snapshotDir, LATEST_SNAPSHOT), data); err != nil {
			return nil, errors.Wrap(err, "backup")
		}
	}

	keys, err := b.blobs.ListKeys()
	if err != nil {
		return nil, errors.Wrap(err, "backup")
	}

	for _, key := range keys {
		if b.uploaded[key] {
			continue
		}

		object := b.object(avatarDir, key)
		if err := UploadFile(ctx, b.store, b.bucket, object, filepath.Join(b.blobs.Dir(), key)); err != nil {
			return result, errors.Wrap(err, "backup")
		}

		b.uploaded[key] = true
		result.Avatars = append(result.Avatars, object)
	}

	b.logg.Infof("%suploaded snapshot %q and %v avatar(s) to %v",
		colors.Prefix(colors.Blue, "backup"), result.Snapshot, len(result.Avatars), b.bucket)
	return result, nil
}

// Restore replaces the local favorites with the latest snapshot and downloads
// the avatars it references. Avatars already present locally are kept. It
// writes the record store directly, so no Manager may be using it. Snapshots
// in an older format are written as is and migrated by the next load.
func (b *Backup) Restore(ctx context.Context) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	snapshot := &bytes.Buffer{}
	if err := b.store.Download(ctx, b.bucket, b.object(snapshotDir, LATEST_SNAPSHOT), snapshot); err != nil {
		return 0, errors.Wrap(err, "restore")
	}
	data := snapshot.Bytes()

	collection, _, err := recordstore.DecodeCollection(data)
	if err != nil && !recordstore.IsDocument(data) {
		return 0, errors.Wrap(err, "restore: snapshot")
	}

	legacy := err != nil
	refs := snapshotAvatarRefs(data)
	if !legacy {
		refs = collection.AvatarRefs()
	}

	for ref := range refs {
		if b.blobs.Exists(ref) {
			continue
		}

		avatar := &bytes.Buffer{}
		err := b.store.Download(ctx, b.bucket, b.object(avatarDir, ref), avatar)
		if errors.Is(err, ErrObjectNotExist) {
			b.logg.Warnf("%savatar %v missing from backup", colors.Prefix(colors.Yellow, "backup"), ref)
			continue
		}
		if err != nil {
			return 0, errors.Wrap(err, "restore")
		}

		if err := b.blobs.PutKey(ref, avatar.Bytes()); err != nil {
			return 0, errors.Wrap(err, "restore")
		}
		b.uploaded[ref] = true
	}

	if legacy {
		b.logg.Warnf("%ssnapshot needs migrating, restoring it as is: %v", colors.Prefix(colors.Yellow, "backup"), err)
		if err := b.records.SaveRaw(data); err != nil {
			return 0, errors.Wrap(err, "restore")
		}
		return int(gjson.GetBytes(data, "#").Int()), nil
	}

	if err := b.records.Save(collection); err != nil {
		return 0, errors.Wrap(err, "restore")
	}

	return len(collection), nil
}

// snapshotAvatarRefs collects the avatar keys of an undecodable snapshot.
func snapshotAvatarRefs(data []byte) map[string]bool {
	refs := map[string]bool{}
	for _, ref := range gjson.GetBytes(data, "#."+recordstore.AVATAR_REF_KEY).Array() {
		if key := ref.String(); key != "" {
			refs[key] = true
		}
	}
	return refs
}

func (b *Backup) object(dir, name string) string {
	return path.Join(b.prefix, dir, name)
}
