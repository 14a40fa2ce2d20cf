package config

import (
	"os"
	"path/filepath"
	"reflect"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/zachmann/go-utils/fileutils"
	"gopkg.in/yaml.v3"

	"github.com/sigvault/sigvault"
)

// Config holds the configuration of the sigvault server
type Config struct {
	Server    sigvault.ServerConf `yaml:"server"`
	Logging   loggingConf         `yaml:"logging"`
	Storage   storageConf         `yaml:"storage"`
	Identity  identityConf        `yaml:"identity"`
	HostAPI   hostAPIConf         `yaml:"host_api"`
	Retention retentionConf       `yaml:"retention"`
	Events    eventsConf          `yaml:"events"`
	API       apiConf             `yaml:"api"`
	Metrics   metricsConf         `yaml:"metrics"`
}

type configValidator interface {
	validate() error
}

var c Config

// possibleConfigLocations is searched if no config file is passed
var possibleConfigLocations = []string{
	".",
	"config",
	"/config",
	"/sigvault",
	"/sigvault/config",
	"/etc/sigvault",
}

const defaultConfigFileName = "config.yaml"

// Get returns the loaded Config
func Get() Config {
	return c
}

func defaultConfig() Config {
	return Config{
		Logging:   defaultLoggingConf,
		Storage:   defaultStorageConf,
		Identity:  defaultIdentityConf,
		HostAPI:   defaultHostAPIConf,
		Retention: defaultRetentionConf,
		Events:    defaultEventsConf,
		API:       defaultAPIConf,
		Metrics:   defaultMetricsConf,
	}
}

func findConfigFile(filename string) (string, error) {
	if filename != "" {
		if !fileutils.FileExists(filename) {
			return "", errors.Errorf("config file '%s' does not exist", filename)
		}
		return filename, nil
	}
	for _, dir := range possibleConfigLocations {
		p := filepath.Join(dir, defaultConfigFileName)
		if fileutils.FileExists(p) {
			return p, nil
		}
	}
	return "", errors.Errorf("could not find config file in any of %v", possibleConfigLocations)
}

// Load loads the config from filename or, if empty, from the first config
// file found in the default locations. It exits on error.
func Load(filename string) {
	if err := load(filename); err != nil {
		log.WithError(err).Fatal("could not load config")
	}
}

func load(filename string) error {
	path, err := findConfigFile(filename)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.WithStack(err)
	}
	conf, err := parse(data)
	if err != nil {
		return errors.Wrapf(err, "in config file '%s'", path)
	}
	c = *conf
	return nil
}

// parse decodes and validates a config
func parse(data []byte) (*Config, error) {
	conf := defaultConfig()
	if err := yaml.Unmarshal(data, &conf); err != nil {
		return nil, errors.WithStack(err)
	}
	if err := conf.validate(); err != nil {
		return nil, err
	}
	return &conf, nil
}

func (conf *Config) validate() error {
	if err := conf.Server.Validate(); err != nil {
		return errors.Wrap(err, "validation failed for field 'Server'")
	}
	v := reflect.ValueOf(conf).Elem()
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		fieldVal := v.Field(i)
		if !fieldVal.CanAddr() {
			continue
		}
		if validator, ok := fieldVal.Addr().Interface().(configValidator); ok {
			if err := validator.validate(); err != nil {
				return errors.Errorf("validation failed for field '%s': %s", t.Field(i).Name, err.Error())
			}
		}
	}
	if !conf.API.Admin.Enabled && conf.API.Admin.Port != defaultAdminPort {
		log.Warn("admin api is disabled; ignoring api.admin.port")
	}
	return nil
}
