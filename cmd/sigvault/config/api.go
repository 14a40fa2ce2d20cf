package config

import (
	"github.com/pkg/errors"

	"github.com/sigvault/sigvault/storage"
)

// apiConf holds API-related configuration
type apiConf struct {
	Admin adminAPIConf `yaml:"admin"`
}

type adminAPIConf struct {
	Enabled        bool                   `yaml:"enabled"`
	UsersEnabled   bool                   `yaml:"users_enabled"`
	Port           int                    `yaml:"port"`
	ServerURL      string                 `yaml:"server_url"`
	SharedSecret   string                 `yaml:"shared_secret"`
	Argon2idParams storage.Argon2idParams `yaml:"password_hashing"`
}

func (c *apiConf) validate() error {
	if c.Admin.Port < 0 || c.Admin.Port > 65535 {
		return errors.Errorf("invalid admin port %d", c.Admin.Port)
	}
	if c.Admin.SharedSecret != "" && len(c.Admin.SharedSecret) < minSharedSecretLen {
		return errors.Errorf("admin shared_secret must be at least %d characters", minSharedSecretLen)
	}
	p := c.Admin.Argon2idParams
	if p.Time == 0 || p.MemoryKiB == 0 || p.Parallelism == 0 || p.KeyLen == 0 || p.SaltLen == 0 {
		return errors.New("password_hashing parameters must all be positive")
	}
	return nil
}

const (
	defaultAdminPort   = 7655
	minSharedSecretLen = 16
)

var defaultAPIConf = apiConf{
	Admin: adminAPIConf{
		Enabled:      true,
		UsersEnabled: true,
		Port:         defaultAdminPort, // 0 means use the main server
		Argon2idParams: storage.Argon2idParams{
			Time:        1,
			MemoryKiB:   64 * 1024,
			Parallelism: 4,
			KeyLen:      64,
			SaltLen:     32,
		},
	},
}
