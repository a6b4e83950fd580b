package recordstore

import (
	"github.com/Daskott/favdial/colors"
	"github.com/Daskott/favdial/logger"
	"github.com/Daskott/favdial/models"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// DEFAULT_CEILING is the hard size limit of the backing slot.
const DEFAULT_CEILING int64 = 4 << 20

// Store encodes the favorites collection into a single bounded slot.
type Store struct {
	slot    Slot
	ceiling int64
	logg    *zap.SugaredLogger
}

// New returns a Store over slot. A ceiling <= 0 means DEFAULT_CEILING.
func New(slot Slot, ceiling int64, logg *zap.SugaredLogger) *Store {
	if ceiling <= 0 {
		ceiling = DEFAULT_CEILING
	}
	return &Store{slot: slot, ceiling: ceiling, logg: logger.OrNop(logg)}
}

func (s *Store) Ceiling() int64 {
	return s.ceiling
}

func (s *Store) SlotName() string {
	return s.slot.Name()
}

// Load reads the collection. An empty slot is an empty collection. A slot above
// the ceiling is not read at all and yields an *OversizeError; bytes that do not
// decode against the current schema yield a *DecodeError.
func (s *Store) Load() (models.Collection, error) {
	collection, _, err := s.LoadAssigningIDs()
	return collection, err
}

// LoadAssigningIDs is Load, also reporting whether any record was given a fresh
// id while decoding. Those ids only last once the collection is saved back.
func (s *Store) LoadAssigningIDs() (models.Collection, bool, error) {
	size, exists, err := s.slot.Size()
	if err != nil {
		return nil, false, errors.Wrap(err, "recordstore.Load")
	}

	if !exists {
		return models.Collection{}, false, nil
	}

	if size > s.ceiling {
		s.logWarnf("stored favorites are %v bytes, above the %v byte ceiling", size, s.ceiling)
		return nil, false, &OversizeError{Op: "load", Size: size, Ceiling: s.ceiling}
	}

	data, err := s.slot.Read()
	if err != nil {
		return nil, false, errors.Wrap(err, "recordstore.Load")
	}

	collection, assigned, err := DecodeCollection(data)
	if err != nil {
		return nil, false, &DecodeError{Document: IsDocument(data), Err: err}
	}

	if assigned {
		s.logWarnf("assigned ids to stored favorites that had none")
	}
	return collection, assigned, nil
}

// LoadRaw reads the slot without the ceiling guard. Only migration uses it.
func (s *Store) LoadRaw() (data []byte, exists bool, err error) {
	_, exists, err = s.slot.Size()
	if err != nil || !exists {
		return nil, exists, errors.Wrap(err, "recordstore.LoadRaw")
	}

	data, err = s.slot.Read()
	if err != nil {
		return nil, true, errors.Wrap(err, "recordstore.LoadRaw")
	}

	return data, true, nil
}

// Save writes c to the slot. A serialized size above the ceiling is refused
// with an *OversizeError and the slot is left untouched.
func (s *Store) Save(c models.Collection) error {
	data, err := EncodeCollection(c)
	if err != nil {
		return err
	}

	size := int64(len(data))
	if size > s.ceiling {
		s.logg.Errorf("%srefusing to save %v favorites: %v bytes exceeds the %v byte ceiling",
			colors.Prefix(colors.Red, "recordstore"), len(c), size, s.ceiling)
		return &OversizeError{Op: "save", Size: size, Ceiling: s.ceiling}
	}

	if err := s.slot.Write(data); err != nil {
		return errors.Wrap(err, "recordstore.Save")
	}

	s.logg.Debugf("%ssaved %v favorites (%v bytes) to %v",
		colors.Prefix(colors.Cyan, "recordstore"), len(c), size, s.slot.Name())
	return nil
}

// SaveRaw writes data to the slot as is, without the ceiling guard. Only restore
// uses it, for snapshots that still need migrating.
func (s *Store) SaveRaw(data []byte) error {
	if err := s.slot.Write(data); err != nil {
		return errors.Wrap(err, "recordstore.SaveRaw")
	}
	return nil
}

// IsDocument reports whether data parses as a generic JSON array.
func IsDocument(data []byte) bool {
	return gjson.ValidBytes(data) && gjson.ParseBytes(data).IsArray()
}

func (s *Store) logWarnf(template string, args ...interface{}) {
	s.logg.Warnf(colors.Prefix(colors.Yellow, "recordstore")+template, args...)
}
