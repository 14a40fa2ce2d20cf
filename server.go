package sigvault

import (
	"github.com/pkg/errors"
	"github.com/zachmann/go-utils/fileutils"
)

// ServerConf configures the http servers of a SigVault
type ServerConf struct {
	IPListen          string   `yaml:"ip_listen"`
	Port              int      `yaml:"port"`
	TLS               TLSConf  `yaml:"tls"`
	TrustedProxies    []string `yaml:"trusted_proxies"`
	ForwardedIPHeader string   `yaml:"forwarded_ip_header"`
}

// TLSConf configures tls
type TLSConf struct {
	Enabled      bool   `yaml:"enabled"`
	RedirectHTTP bool   `yaml:"redirect_http"`
	Cert         string `yaml:"cert"`
	Key          string `yaml:"key"`
}

// Validate checks the configuration and fills in defaults
func (c *ServerConf) Validate() error {
	if c.Port == 0 {
		c.Port = 7654
		if c.TLS.Enabled {
			c.Port = 443
		}
	}
	if !c.TLS.Enabled {
		return nil
	}
	if c.TLS.Cert == "" || c.TLS.Key == "" {
		return errors.New("tls is enabled, but cert or key is missing")
	}
	for _, f := range []string{c.TLS.Cert, c.TLS.Key} {
		if !fileutils.FileExists(f) {
			return errors.Errorf("tls file '%s' does not exist", f)
		}
	}
	return nil
}
