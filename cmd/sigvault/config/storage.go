package config

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/sigvault/sigvault/storage"
)

type storageConf struct {
	Driver          storage.DriverType `yaml:"driver"`
	DataDir         string             `yaml:"data_dir"`
	DSN             string             `yaml:"dsn"`
	storage.DSNConf `yaml:",inline"`
	Debug           bool               `yaml:"debug"`
}

func (c *storageConf) validate() error {
	if c.Driver == storage.DriverSQLite {
		if c.DataDir == "" && c.DSN == "" {
			return errors.New("error in storage conf: data_dir must be specified")
		}
		return nil
	}
	var err error
	if c.DSN == "" {
		c.DSN, err = storage.DSN(c.Driver, c.DSNConf)
	}
	return err
}

var defaultStorageConf = storageConf{
	Driver: storage.DriverSQLite,
	DSNConf: storage.DSNConf{
		User: "sigvault",
		Host: "localhost",
		DB:   "sigvault",
	},
	Debug: false,
}

// OpenStorage connects to the database described by the passed Config
func OpenStorage(c Config) (*storage.Storage, error) {
	cfg := storage.Config{
		Driver:    c.Storage.Driver,
		DSN:       c.Storage.DSN,
		DataDir:   c.Storage.DataDir,
		Debug:     c.Storage.Debug,
		UsersHash: c.API.Admin.Argon2idParams,
	}
	s, err := storage.NewStorage(cfg)
	if err != nil {
		return nil, err
	}
	log.WithField("driver", c.Storage.Driver).Info("Loaded storage backend")
	return s, nil
}
