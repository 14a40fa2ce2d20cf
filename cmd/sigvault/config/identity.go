package config

import (
	"github.com/pkg/errors"
	"github.com/zachmann/go-utils/duration"
	"github.com/zachmann/go-utils/fileutils"

	"github.com/sigvault/sigvault/identity"
)

// identityConf configures how bearer tokens of the host platform are verified
type identityConf struct {
	HMACSecret string                  `yaml:"hmac_secret"`
	JWKSFile   string                  `yaml:"jwks_file"`
	Issuer     string                  `yaml:"issuer"`
	Audience   string                  `yaml:"audience"`
	Header     string                  `yaml:"header"`
	Leeway     duration.DurationOption `yaml:"leeway"`
}

func (c *identityConf) validate() error {
	if c.HMACSecret == "" && c.JWKSFile == "" {
		return errors.New("one of hmac_secret or jwks_file must be set")
	}
	if c.JWKSFile != "" && !fileutils.FileExists(c.JWKSFile) {
		return errors.Errorf("jwks file '%s' does not exist", c.JWKSFile)
	}
	return nil
}

// VerifierConfig returns the identity.Config for this configuration
func (c identityConf) VerifierConfig() identity.Config {
	return identity.Config{
		HMACSecret: c.HMACSecret,
		JWKSFile:   c.JWKSFile,
		Issuer:     c.Issuer,
		Audience:   c.Audience,
		Header:     c.Header,
		Leeway:     c.Leeway.Duration(),
	}
}

var defaultIdentityConf = identityConf{
	Header: identity.DefaultHeader,
}
