package storage

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/argon2"
	"gorm.io/gorm"

	"github.com/sigvault/sigvault/storage/model"
)

// UsersStorage implements model.UsersStore using GORM
type UsersStorage struct {
	db     *gorm.DB
	params Argon2idParams
}

// Count returns the number of users
func (s *UsersStorage) Count() (int64, error) {
	var count int64
	err := s.db.Model(&model.User{}).Count(&count).Error
	return count, errors.Wrap(err, "users: count failed")
}

// List returns all users
func (s *UsersStorage) List() ([]model.User, error) {
	users := make([]model.User, 0)
	if err := s.db.Order("username ASC").Find(&users).Error; err != nil {
		return nil, errors.Wrap(err, "users: list failed")
	}
	return users, nil
}

func (s *UsersStorage) find(username string) (*model.User, error) {
	var u model.User
	if err := s.db.Where("username = ?", username).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.NotFoundErrorFmt("user not found: %s", username)
		}
		return nil, errors.Wrap(err, "users: get failed")
	}
	return &u, nil
}

// Get returns a user by username
func (s *UsersStorage) Get(username string) (*model.User, error) {
	return s.find(username)
}

// Create creates a user with an argon2id hashed password
func (s *UsersStorage) Create(username, password, displayName string) (*model.User, error) {
	if username == "" || password == "" {
		return nil, errors.New("username and password are required")
	}
	hash, err := hashPassword(password, s.params)
	if err != nil {
		return nil, err
	}
	u := model.User{
		Username:     username,
		PasswordHash: hash,
		DisplayName:  displayName,
	}
	if err = s.db.Create(&u).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, model.AlreadyExistsErrorFmt("user already exists: %s", username)
		}
		return nil, errors.Wrap(err, "users: create failed")
	}
	return &u, nil
}

// Update changes display name, password and / or disabled state of a user;
// nil values are left untouched
func (s *UsersStorage) Update(username string, displayName, newPassword *string, disabled *bool) (
	*model.User, error,
) {
	u, err := s.find(username)
	if err != nil {
		return nil, err
	}
	if displayName != nil {
		u.DisplayName = *displayName
	}
	if disabled != nil {
		u.Disabled = *disabled
	}
	if newPassword != nil {
		if *newPassword == "" {
			return nil, errors.New("password cannot be empty")
		}
		if u.PasswordHash, err = hashPassword(*newPassword, s.params); err != nil {
			return nil, err
		}
	}
	if err = s.db.Save(u).Error; err != nil {
		return nil, errors.Wrap(err, "users: update failed")
	}
	return u, nil
}

// Delete deletes a user
func (s *UsersStorage) Delete(username string) error {
	res := s.db.Where("username = ?", username).Delete(&model.User{})
	if res.Error != nil {
		return errors.Wrap(res.Error, "users: delete failed")
	}
	if res.RowsAffected == 0 {
		return model.NotFoundErrorFmt("user not found: %s", username)
	}
	return nil
}

// Authenticate checks the credentials of a user. Hashes created with other
// parameters than the configured ones are upgraded on success.
func (s *UsersStorage) Authenticate(username, password string) (*model.User, error) {
	u, err := s.find(username)
	if err != nil {
		return nil, err
	}
	if u.Disabled {
		return nil, errors.New("user disabled")
	}
	stored, ok := verifyPassword(u.PasswordHash, password)
	if !ok {
		return nil, errors.New("invalid credentials")
	}
	if stored != s.params {
		if hash, err := hashPassword(password, s.params); err == nil {
			if err = s.db.Model(u).Update("password_hash", hash).Error; err != nil {
				log.WithError(err).WithField("username", username).Warn("could not upgrade password hash")
			}
		}
	}
	return u, nil
}

const phcPrefix = "$argon2id$v=19$"

// hashPassword returns a PHC formatted argon2id hash:
// $argon2id$v=19$m=<mem>,t=<time>,p=<par>$<salt>$<hash>
func hashPassword(password string, p Argon2idParams) (string, error) {
	salt := make([]byte, p.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", errors.WithStack(err)
	}
	key := argon2.IDKey([]byte(password), salt, p.Time, p.MemoryKiB, p.Parallelism, p.KeyLen)
	return fmt.Sprintf(
		"%sm=%d,t=%d,p=%d$%s$%s", phcPrefix, p.MemoryKiB, p.Time, p.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt), base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// verifyPassword checks password against a PHC formatted hash and returns the
// parameters the hash was created with
func verifyPassword(encoded, password string) (Argon2idParams, bool) {
	var p Argon2idParams
	if !strings.HasPrefix(encoded, phcPrefix) {
		return p, false
	}
	parts := strings.Split(strings.TrimPrefix(encoded, phcPrefix), "$")
	if len(parts) != 3 {
		return p, false
	}
	if _, err := fmt.Sscanf(parts[0], "m=%d,t=%d,p=%d", &p.MemoryKiB, &p.Time, &p.Parallelism); err != nil {
		return p, false
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[1])
	if err != nil {
		return p, false
	}
	hash, err := base64.RawStdEncoding.DecodeString(parts[2])
	if err != nil {
		return p, false
	}
	p.SaltLen = uint32(len(salt))
	p.KeyLen = uint32(len(hash))
	key := argon2.IDKey([]byte(password), salt, p.Time, p.MemoryKiB, p.Parallelism, p.KeyLen)
	return p, subtle.ConstantTimeCompare(key, hash) == 1
}

func defaultArgon2idParams() Argon2idParams {
	return Argon2idParams{
		Time:        1,
		MemoryKiB:   64 * 1024,
		Parallelism: 4,
		KeyLen:      32,
		SaltLen:     16,
	}
}
