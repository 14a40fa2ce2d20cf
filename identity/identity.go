// Package identity establishes the account id of a request from a context
// token issued by the host platform. The account id is never taken from a
// request body.
package identity

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/sigvault/sigvault/internal/apierror"
)

// DefaultHeader is the header the context token is read from if no other
// header is configured
const DefaultHeader = fiber.HeaderAuthorization

const localsKey = "sigvault.accountID"

// Config configures a Verifier
type Config struct {
	// HMACSecret verifies HS256 signed tokens
	HMACSecret string
	// JWKSFile is the path to a jwks file with the host platform's public
	// keys; keys need a kid
	JWKSFile string
	Issuer   string
	Audience string
	// Header the token is read from; a "Bearer " prefix is stripped
	Header string
	// Leeway is the accepted clock skew
	Leeway time.Duration
}

// Verifier verifies context tokens
type Verifier struct {
	header  string
	options []jwt.ParseOption
}

// NewVerifier creates a Verifier from conf. At least one key source must be
// configured.
func NewVerifier(conf Config) (*Verifier, error) {
	v := &Verifier{header: conf.Header}
	if v.header == "" {
		v.header = DefaultHeader
	}
	if conf.HMACSecret != "" {
		v.options = append(v.options, jwt.WithKey(jwa.HS256(), []byte(conf.HMACSecret)))
	}
	if conf.JWKSFile != "" {
		set, err := jwk.ReadFile(conf.JWKSFile)
		if err != nil {
			return nil, errors.Wrapf(err, "identity: could not read jwks from '%s'", conf.JWKSFile)
		}
		v.options = append(v.options, jwt.WithKeySet(set))
	}
	if len(v.options) == 0 {
		return nil, errors.New("identity: neither hmac secret nor jwks file configured")
	}
	v.options = append(v.options, jwt.WithValidate(true))
	if conf.Issuer != "" {
		v.options = append(v.options, jwt.WithIssuer(conf.Issuer))
	}
	if conf.Audience != "" {
		v.options = append(v.options, jwt.WithAudience(conf.Audience))
	}
	if conf.Leeway > 0 {
		v.options = append(v.options, jwt.WithAcceptableSkew(conf.Leeway))
	}
	return v, nil
}

// Verify verifies a serialized context token and returns the account id in
// its subject
func (v *Verifier) Verify(token string) (string, error) {
	tok, err := jwt.Parse([]byte(token), v.options...)
	if err != nil {
		return "", errors.Wrap(err, "identity: invalid context token")
	}
	sub, ok := tok.Subject()
	if !ok || strings.TrimSpace(sub) == "" {
		return "", errors.New("identity: context token has no subject")
	}
	return sub, nil
}

func (v *Verifier) tokenFromRequest(c *fiber.Ctx) string {
	value := strings.TrimSpace(c.Get(v.header))
	if len(value) > 7 && strings.EqualFold(value[:7], "bearer ") {
		return strings.TrimSpace(value[7:])
	}
	return value
}

// Middleware rejects requests without a valid context token and stores the
// account id for AccountID
func (v *Verifier) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := v.tokenFromRequest(c)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(apierror.Unauthorized("missing context token"))
		}
		accountID, err := v.Verify(token)
		if err != nil {
			log.WithError(err).Debug("rejected context token")
			return c.Status(fiber.StatusUnauthorized).JSON(apierror.Unauthorized("invalid context token"))
		}
		c.Locals(localsKey, accountID)
		return c.Next()
	}
}

// AccountID returns the account id established by the Middleware, or "" if
// there is none
func AccountID(c *fiber.Ctx) string {
	accountID, _ := c.Locals(localsKey).(string)
	return accountID
}
