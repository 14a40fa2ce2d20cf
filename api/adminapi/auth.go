package adminapi

import (
	"crypto/subtle"
	"encoding/base64"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/sigvault/sigvault/internal/apierror"
	"github.com/sigvault/sigvault/storage/model"
)

// authMiddleware authenticates admin API requests. The host platform sends
// the shared secret as bearer token; administrators use HTTP Basic
// authentication against the UsersStore. Without a shared secret and without
// users every request is rejected.
func authMiddleware(users model.UsersStore, sharedSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if sharedSecret != "" {
			if token, ok := parseBearer(c); ok {
				if subtle.ConstantTimeCompare([]byte(token), []byte(sharedSecret)) == 1 {
					return c.Next()
				}
				return c.Status(fiber.StatusUnauthorized).JSON(apierror.Unauthorized("invalid credentials"))
			}
		}

		username, password, ok := parseBasicAuth(c)
		if !ok {
			c.Set(fiber.HeaderWWWAuthenticate, "Basic realm=admin")
			return c.Status(fiber.StatusUnauthorized).JSON(apierror.Unauthorized("missing credentials"))
		}
		if _, err := users.Authenticate(username, password); err != nil {
			c.Set(fiber.HeaderWWWAuthenticate, "Basic realm=admin")
			return c.Status(fiber.StatusUnauthorized).JSON(apierror.Unauthorized("invalid credentials"))
		}
		return c.Next()
	}
}

func parseBearer(c *fiber.Ctx) (string, bool) {
	auth := c.Get(fiber.HeaderAuthorization)
	const prefix = "Bearer "
	if len(auth) <= len(prefix) || !strings.EqualFold(auth[:len(prefix)], prefix) {
		return "", false
	}
	return auth[len(prefix):], true
}

// parseBasicAuth extracts Basic auth credentials from request headers
func parseBasicAuth(c *fiber.Ctx) (username, password string, ok bool) {
	auth := c.Get(fiber.HeaderAuthorization)
	const prefix = "Basic "
	if !strings.HasPrefix(auth, prefix) {
		return "", "", false
	}
	b, err := base64.StdEncoding.DecodeString(auth[len(prefix):])
	if err != nil {
		return "", "", false
	}
	username, password, ok = strings.Cut(string(b), ":")
	return
}
