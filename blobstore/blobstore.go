package blobstore

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/Daskott/favdial/colors"
	"github.com/Daskott/favdial/logger"
	"github.com/Daskott/favdial/utils"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	BLOB_EXTENSION = ".jpg"

	// Callers recompress avatars before storing them; anything above this is logged.
	MAX_RECOMMENDED_SIZE = 300 * 1024
)

var (
	ErrInvalidKey = errors.New("invalid blob key")

	unsafeOwnerChars = regexp.MustCompile(`[^A-Za-z0-9-]+`)
)

// Store keeps avatar images as individual files in a single directory.
// It does no image processing.
type Store struct {
	dir  string
	logg *zap.SugaredLogger
}

// New creates the blob directory if needed.
func New(dir string, logg *zap.SugaredLogger) (*Store, error) {
	if err := utils.CreateDirIfNotExist(dir); err != nil {
		return nil, errors.Wrapf(err, "blobstore.New: %v", dir)
	}

	return &Store{dir: dir, logg: logger.OrNop(logg)}, nil
}

// Dir is the directory holding the blob files.
func (s *Store) Dir() string {
	return s.dir
}

// Put writes data under a fresh "{owner}_{token}.jpg" key and returns the key.
// An existing key is never overwritten.
func (s *Store) Put(data []byte, ownerHint string) (string, error) {
	key := NewKey(ownerHint)
	if err := s.PutKey(key, data); err != nil {
		return "", err
	}
	return key, nil
}

// PutKey writes data under a key obtained from NewKey. It fails if the key
// already exists.
func (s *Store) PutKey(key string, data []byte) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}

	if len(data) > MAX_RECOMMENDED_SIZE {
		s.logWarnf("storing %v byte image as %v, above the recommended %v bytes",
			len(data), key, MAX_RECOMMENDED_SIZE)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return errors.Wrapf(err, "blobstore.Put: %v", key)
	}

	if _, err = f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return errors.Wrapf(err, "blobstore.Put: %v", key)
	}

	if err = f.Close(); err != nil {
		os.Remove(path)
		return errors.Wrapf(err, "blobstore.Put: %v", key)
	}

	s.logg.Debugf("%sstored %v (%v bytes)", s.prefix(), key, len(data))
	return nil
}

// Get returns the blob for ref. A missing blob yields found=false and no error.
func (s *Store) Get(ref string) (data []byte, found bool, err error) {
	path, err := s.path(ref)
	if err != nil {
		return nil, false, err
	}

	data, err = ioutil.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "blobstore.Get: %v", ref)
	}

	return data, true, nil
}

// Exists reports whether ref is present.
func (s *Store) Exists(ref string) bool {
	path, err := s.path(ref)
	if err != nil {
		return false
	}
	return utils.FileExist(path)
}

// Delete removes ref. Deleting a missing blob is not an error.
func (s *Store) Delete(ref string) error {
	path, err := s.path(ref)
	if err != nil {
		return err
	}

	err = os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "blobstore.Delete: %v", ref)
	}

	return nil
}

// ListKeys returns every blob key in the store, sorted.
func (s *Store) ListKeys() ([]string, error) {
	entries, err := ioutil.ReadDir(s.dir)
	if err != nil {
		return nil, errors.Wrap(err, "blobstore.ListKeys")
	}

	keys := []string{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, BLOB_EXTENSION) {
			continue
		}
		keys = append(keys, name)
	}
	sort.Strings(keys)

	return keys, nil
}

func (s *Store) path(ref string) (string, error) {
	if ref == "" || ref != filepath.Base(ref) || strings.HasPrefix(ref, ".") {
		return "", errors.Wrapf(ErrInvalidKey, "%q", ref)
	}
	return filepath.Join(s.dir, ref), nil
}

func (s *Store) prefix() string {
	return colors.Prefix(colors.Cyan, "blobstore")
}

func (s *Store) logWarnf(template string, args ...interface{}) {
	s.logg.Warnf(colors.Prefix(colors.Yellow, "blobstore")+template, args...)
}

// NewKey builds "{owner}_{token}.jpg". The owner part only aids debugging and
// is never parsed.
func NewKey(ownerHint string) string {
	owner := strings.Trim(unsafeOwnerChars.ReplaceAllString(ownerHint, "-"), "-")
	if owner == "" {
		owner = "unknown"
	}
	return owner + "_" + strings.ReplaceAll(uuid.NewString(), "-", "") + BLOB_EXTENSION
}
