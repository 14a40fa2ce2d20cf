package config

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/sigvault/sigvault"
)

type metricsConf struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

func (c *metricsConf) validate() error {
	if c.Path == "" {
		c.Path = sigvault.DefaultMetricsPath
	}
	if !strings.HasPrefix(c.Path, "/") {
		return errors.Errorf("metrics path '%s' must start with '/'", c.Path)
	}
	return nil
}

var defaultMetricsConf = metricsConf{
	Enabled: true,
	Path:    sigvault.DefaultMetricsPath,
}
