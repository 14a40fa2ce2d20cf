package storage

import (
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/sigvault/sigvault/storage/model"
)

// Storage is a GORM-based storage implementation
type Storage struct {
	db         *gorm.DB
	userParams Argon2idParams
	now        func() time.Time
}

// models must be migrated in this order; signature references contract
var models = []any{
	&model.Contract{},
	&model.Signature{},
	&model.MacroConfig{},
	&model.User{},
}

// NewStorage creates a new GORM-based storage
func NewStorage(config Config) (*Storage, error) {
	db, err := Connect(config)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}
	return newStorage(db, config.UsersHash)
}

func newStorage(db *gorm.DB, params Argon2idParams) (*Storage, error) {
	if err := db.AutoMigrate(models...); err != nil {
		return nil, errors.Wrap(err, "failed to migrate database")
	}
	if params.Time == 0 {
		params = defaultArgon2idParams()
	}
	return &Storage{
		db:         db,
		userParams: params,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}, nil
}

// SignatureStorage returns a SignatureStorage
func (s *Storage) SignatureStorage() *SignatureStorage {
	return &SignatureStorage{
		db:  s.db,
		now: s.now,
	}
}

// MacroConfigStorage returns a MacroConfigStorage
func (s *Storage) MacroConfigStorage() *MacroConfigStorage {
	return &MacroConfigStorage{db: s.db}
}

// UsersStorage returns a UsersStorage
func (s *Storage) UsersStorage() *UsersStorage {
	return &UsersStorage{
		db:     s.db,
		params: s.userParams,
	}
}

// Backends groups the storages of this Storage
func (s *Storage) Backends() model.Backends {
	return model.Backends{
		Signatures:   s.SignatureStorage(),
		MacroConfigs: s.MacroConfigStorage(),
		Users:        s.UsersStorage(),
	}
}

// Close closes the underlying database connection
func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
