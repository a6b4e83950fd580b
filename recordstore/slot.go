package recordstore

import (
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/Daskott/favdial/utils"
	"github.com/pkg/errors"
)

// Slot is a single bounded storage entry holding the serialized collection.
type Slot interface {
	// Size returns the stored size in bytes; exists is false before the first write.
	Size() (size int64, exists bool, err error)
	Read() ([]byte, error)
	// Write replaces the stored bytes atomically.
	Write(data []byte) error
	Name() string
}

// FileSlot stores the collection in one file.
type FileSlot struct {
	path string
}

func NewFileSlot(path string) (*FileSlot, error) {
	if err := utils.CreateDirIfNotExist(filepath.Dir(path)); err != nil {
		return nil, errors.Wrapf(err, "NewFileSlot: %v", path)
	}
	return &FileSlot{path: path}, nil
}

func (s *FileSlot) Size() (int64, bool, error) {
	info, err := os.Stat(s.path)
	if os.IsNotExist(err) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.Wrap(err, "FileSlot.Size")
	}
	return info.Size(), true, nil
}

func (s *FileSlot) Read() ([]byte, error) {
	data, err := ioutil.ReadFile(s.path)
	if err != nil {
		return nil, errors.Wrap(err, "FileSlot.Read")
	}
	return data, nil
}

func (s *FileSlot) Write(data []byte) error {
	return errors.Wrap(utils.WriteFileAtomic(s.path, data, 0600), "FileSlot.Write")
}

func (s *FileSlot) Name() string {
	return s.path
}
