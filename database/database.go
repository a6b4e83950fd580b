package database

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	sqliteEncrypt "github.com/Daskott/gorm-sqlite-cipher"
	"github.com/Daskott/favdial/utils"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormLogger "gorm.io/gorm/logger"
)

const (
	DB_NAME          = "favdial.db"
	FAVORITES_SLOT   = "favorites"
	MAX_PASS_PHRASE  = 256
	PAGE_SIZE_PRAGMA = 4096
)

// KeyValue is one bounded slot in the key/value table.
type KeyValue struct {
	Key   string `gorm:"primarykey"`
	Value []byte `gorm:"not null"`
	Size  int64  `gorm:"not null"`
}

// SqliteSlot stores a single slot in an encrypted sqlite database.
type SqliteSlot struct {
	db  *gorm.DB
	key string
}

// OpenSqliteSlot opens (and migrates) the database under dbRootDir/db.
func OpenSqliteSlot(passPhrase, dbRootDir, key string) (*SqliteSlot, error) {
	if len(passPhrase) > MAX_PASS_PHRASE {
		return nil, errors.New("sqlite pass phrase is too long")
	}

	dsn, err := dbDSN(passPhrase, dbRootDir)
	if err != nil {
		return nil, errors.Wrap(err, "failed to set sqlite DSN")
	}

	db, err := gorm.Open(sqliteEncrypt.Open(dsn), &gorm.Config{
		Logger: gormLogger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			gormLogger.Config{
				LogLevel:                  gormLogger.Silent,
				IgnoreRecordNotFoundError: true,
				Colorful:                  false,
			},
		),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect database")
	}

	if err = db.AutoMigrate(&KeyValue{}); err != nil {
		return nil, errors.Wrap(err, "failed to migrate database")
	}

	if key == "" {
		key = FAVORITES_SLOT
	}

	return &SqliteSlot{db: db, key: key}, nil
}

func (s *SqliteSlot) Size() (int64, bool, error) {
	row := KeyValue{}
	res := s.db.Select("key", "size").Where("key = ?", s.key).Limit(1).Find(&row)
	if res.Error != nil {
		return 0, false, errors.Wrap(res.Error, "SqliteSlot.Size")
	}

	if res.RowsAffected == 0 {
		return 0, false, nil
	}

	return row.Size, true, nil
}

func (s *SqliteSlot) Read() ([]byte, error) {
	row := KeyValue{}
	err := s.db.Where("key = ?", s.key).First(&row).Error
	if err != nil {
		return nil, errors.Wrap(err, "SqliteSlot.Read")
	}

	return row.Value, nil
}

// Write upserts the slot in a single statement.
func (s *SqliteSlot) Write(data []byte) error {
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "size"}),
	}).Create(&KeyValue{Key: s.key, Value: data, Size: int64(len(data))}).Error

	return errors.Wrap(err, "SqliteSlot.Write")
}

func (s *SqliteSlot) Name() string {
	return fmt.Sprintf("sqlite:%v", s.key)
}

// Close releases the underlying connection pool.
func (s *SqliteSlot) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ---------------------------------------------------------------------------------//
// Helper functions
// --------------------------------------------------------------------------------//

func dbDSN(passPhrase string, dbRootDir string) (string, error) {
	dbDir, err := DbDirectory(dbRootDir)
	if err != nil {
		return "", err
	}

	dbFilePath := filepath.Join(dbDir, DB_NAME)
	dbName := fmt.Sprintf("file:%v", dbFilePath)

	return fmt.Sprintf(
		"%v?_pragma_key=%s&_pragma_cipher_page_size=%d&_journal_mode=WAL",
		dbName,
		passPhrase,
		PAGE_SIZE_PRAGMA,
	), nil
}

func DbDirectory(dbRootDir string) (string, error) {
	dbDir := filepath.Join(dbRootDir, "db")

	err := utils.CreateDirIfNotExist(dbDir)
	if err != nil {
		return "", err
	}

	return dbDir, nil
}
