package adminapi

import (
	"embed"
	"net"
	neturl "net/url"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/sigvault/sigvault/storage/model"
)

//go:embed openapi.yaml
var assets embed.FS

// DefaultRetentionDays is used by the cleanup endpoint if neither the request
// nor the Options specify a retention period
const DefaultRetentionDays = 30

// Options controls optional features of the admin API registration.
type Options struct {
	// UsersEnabled controls whether the user management API is mounted.
	UsersEnabled bool
	// Port, when > 0, serves the admin API on its own port.
	Port int
	// ServerURL is advertised in the openapi document
	ServerURL string
	// RetentionDays is the default retention period of the cleanup endpoint
	RetentionDays int
	// SharedSecret, if set, is accepted as bearer token from the host
	// platform
	SharedSecret string
}

func (o *Options) retentionDays() int {
	if o == nil || o.RetentionDays <= 0 {
		return DefaultRetentionDays
	}
	return o.RetentionDays
}

// Register mounts all admin API routes under the provided group.
func Register(r fiber.Router, storages model.Backends, opts *Options) error {
	serverURL := ""
	sharedSecret := ""
	if opts != nil {
		serverURL = opts.ServerURL
		sharedSecret = opts.SharedSecret
		// If an admin port is provided, adapt the serverURL to it
		if opts.Port > 0 {
			serverURL = adaptServerURLPort(serverURL, opts.Port)
		}
	}

	openapiRaw, err := assets.ReadFile("openapi.yaml")
	if err != nil {
		return errors.Wrap(err, "adminapi: failed to read openapi.yaml")
	}
	openapiData := updateOpenAPIServers(openapiRaw, serverURL)
	openapiData = ensureAuthSecurity(openapiData)

	r.Get(
		"/openapi.yaml", func(c *fiber.Ctx) error {
			c.Set(fiber.HeaderContentType, "application/yaml")
			return c.Send(openapiData)
		},
	)

	r.Use(authMiddleware(storages.Users, sharedSecret))

	registerPages(r, storages.Signatures, storages.MacroConfigs, opts.retentionDays())
	registerMacroConfigs(r, storages.MacroConfigs)
	if opts == nil || opts.UsersEnabled {
		registerUsers(r, storages.Users)
	}
	return nil
}

func updateOpenAPIServers(doc []byte, serverURL string) []byte {
	if len(serverURL) == 0 {
		return doc
	}
	var full map[string]any
	if err := yaml.Unmarshal(doc, &full); err != nil {
		return doc
	}
	full["servers"] = []map[string]any{
		{
			"url":         serverURL,
			"description": "This instance",
		},
	}
	res, err := yaml.Marshal(full)
	if err != nil {
		return doc
	}
	return res
}

// adaptServerURLPort updates or adds the port to the provided serverURL.
// If the input is invalid, it returns the original serverURL.
func adaptServerURLPort(serverURL string, port int) string {
	if len(serverURL) == 0 || port <= 0 {
		return serverURL
	}
	u, err := neturl.Parse(serverURL)
	if err != nil || u.Host == "" {
		return serverURL
	}
	name, _, err := net.SplitHostPort(u.Host)
	if err != nil {
		// no port present
		name = u.Host
	}
	u.Host = net.JoinHostPort(name, strconv.Itoa(port))
	return u.String()
}

// ensureAuthSecurity injects the HTTP Basic and bearer security schemes and a
// global security requirement into the OpenAPI document, if not already
// present.
func ensureAuthSecurity(doc []byte) []byte {
	var full map[string]any
	if err := yaml.Unmarshal(doc, &full); err != nil {
		return doc
	}
	components, _ := full["components"].(map[string]any)
	if components == nil {
		components = map[string]any{}
		full["components"] = components
	}
	securitySchemes, _ := components["securitySchemes"].(map[string]any)
	if securitySchemes == nil {
		securitySchemes = map[string]any{}
		components["securitySchemes"] = securitySchemes
	}
	if _, exists := securitySchemes["basicAuth"]; !exists {
		securitySchemes["basicAuth"] = map[string]any{
			"type":   "http",
			"scheme": "basic",
		}
	}
	if _, exists := securitySchemes["bearerAuth"]; !exists {
		securitySchemes["bearerAuth"] = map[string]any{
			"type":   "http",
			"scheme": "bearer",
		}
	}
	if _, exists := full["security"]; !exists {
		full["security"] = []map[string]any{
			{"basicAuth": []any{}},
			{"bearerAuth": []any{}},
		}
	}
	res, err := yaml.Marshal(full)
	if err != nil {
		return doc
	}
	return res
}
