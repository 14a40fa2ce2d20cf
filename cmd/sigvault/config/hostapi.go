package config

import (
	"net/url"
	"time"

	"github.com/pkg/errors"
	"github.com/zachmann/go-utils/duration"

	"github.com/sigvault/sigvault/hostapi"
	"github.com/sigvault/sigvault/internal/version"
)

type hostAPIConf struct {
	BaseURL string                  `yaml:"base_url"`
	Token   string                  `yaml:"token"`
	Timeout duration.DurationOption `yaml:"timeout"`
}

func (c *hostAPIConf) validate() error {
	if c.BaseURL == "" {
		return errors.New("base_url must be set")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.Errorf("invalid base_url '%s'", c.BaseURL)
	}
	return nil
}

// ClientConfig returns the hostapi.Config for this configuration
func (c hostAPIConf) ClientConfig() hostapi.Config {
	return hostapi.Config{
		BaseURL:   c.BaseURL,
		Token:     c.Token,
		Timeout:   c.Timeout.Duration(),
		UserAgent: "sigvault/" + version.VERSION,
	}
}

var defaultHostAPIConf = hostAPIConf{
	Timeout: duration.DurationOption(5 * time.Second),
}
