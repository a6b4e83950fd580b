package gstorage

import (
	"bytes"
	"context"
	"io"
	"os"
	"time"

	"cloud.google.com/go/storage"
	"github.com/pkg/errors"
	"google.golang.org/api/option"
)

const UPLOAD_TIMEOUT = 50 * time.Second

var ErrObjectNotExist = storage.ErrObjectNotExist

// ObjectStore is the part of a bucket client backups need.
type ObjectStore interface {
	Upload(ctx context.Context, bucket, object string, r io.Reader) error
	Download(ctx context.Context, bucket, object string, w io.Writer) error
}

type GStorage struct {
	storageClient *storage.Client
}

// NewGStorage uses credentialsFilePath when set, otherwise the application
// default credentials (e.g. GOOGLE_APPLICATION_CREDENTIALS).
func NewGStorage(ctx context.Context, credentialsFilePath string) (*GStorage, error) {
	var client *storage.Client
	var err error

	if credentialsFilePath != "" {
		client, err = storage.NewClient(ctx, option.WithCredentialsFile(credentialsFilePath))
	} else {
		client, err = storage.NewClient(ctx)
	}

	if err != nil {
		return nil, errors.Wrap(err, "NewGStorage")
	}

	return &GStorage{storageClient: client}, nil
}

// Upload writes r to bucket/object, replacing any existing object.
func (gs *GStorage) Upload(ctx context.Context, bucket, object string, r io.Reader) error {
	ctx, cancel := context.WithTimeout(ctx, UPLOAD_TIMEOUT)
	defer cancel()

	wc := gs.storageClient.Bucket(bucket).Object(object).NewWriter(ctx)
	if _, err := io.Copy(wc, r); err != nil {
		wc.Close()
		return errors.Wrapf(err, "upload %v", object)
	}
	if err := wc.Close(); err != nil {
		return errors.Wrapf(err, "upload %v: Writer.Close", object)
	}

	return nil
}

// Download copies bucket/object into w. A missing object returns ErrObjectNotExist.
func (gs *GStorage) Download(ctx context.Context, bucket, object string, w io.Writer) error {
	ctx, cancel := context.WithTimeout(ctx, UPLOAD_TIMEOUT)
	defer cancel()

	rc, err := gs.storageClient.Bucket(bucket).Object(object).NewReader(ctx)
	if err == storage.ErrObjectNotExist {
		return err
	}
	if err != nil {
		return errors.Wrapf(err, "Object(%q).NewReader", object)
	}
	defer rc.Close()

	if _, err := io.Copy(w, rc); err != nil {
		return errors.Wrapf(err, "download %v", object)
	}
	return nil
}

func (gs *GStorage) Close() error {
	return gs.storageClient.Close()
}

// UploadBytes uploads data as bucket/object.
func UploadBytes(ctx context.Context, store ObjectStore, bucket, object string, data []byte) error {
	return store.Upload(ctx, bucket, object, bytes.NewReader(data))
}

// UploadFile uploads a local file as bucket/object.
func UploadFile(ctx context.Context, store ObjectStore, bucket, object, filePath string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return errors.Wrap(err, "UploadFile")
	}
	defer f.Close()

	return store.Upload(ctx, bucket, object, f)
}
