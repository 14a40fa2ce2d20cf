package sigvault

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"github.com/sigvault/sigvault/api/adminapi"
	"github.com/sigvault/sigvault/identity"
	"github.com/sigvault/sigvault/signing"
	"github.com/sigvault/sigvault/storage/model"
)

// FiberServerConfig is the fiber.Config that is used to init the http fiber.App
var FiberServerConfig = fiber.Config{
	ReadTimeout:    3 * time.Second,
	WriteTimeout:   20 * time.Second,
	IdleTimeout:    150 * time.Second,
	ReadBufferSize: 8192,
	ErrorHandler:   handleError,
	Network:        "tcp",
}

// SigVault serves the signing api and, optionally, the admin api
type SigVault struct {
	server      *fiber.App
	adminServer *fiber.App
	serverConf  ServerConf
	adminPort   int
}

// Options holds the optional parts of a SigVault
type Options struct {
	// AccessLog is where the access log is written to; nil uses the fiber
	// default
	AccessLog io.Writer
	// Admin enables the admin api if not nil
	Admin *adminapi.Options
	// Metrics exposes the metrics of Gatherer at Path if not nil
	Metrics *MetricsOptions
}

// MetricsOptions configures the metrics endpoint
type MetricsOptions struct {
	Path     string
	Gatherer prometheus.Gatherer
}

func newFiberApp(serverConf ServerConf, accessLog io.Writer) *fiber.App {
	conf := FiberServerConfig
	if tps := serverConf.TrustedProxies; len(tps) > 0 {
		conf.TrustedProxies = serverConf.TrustedProxies
		conf.EnableTrustedProxyCheck = true
	}
	conf.ProxyHeader = serverConf.ForwardedIPHeader
	app := fiber.New(conf)
	app.Use(recover.New())
	app.Use(compress.New())
	if accessLog != nil {
		app.Use(logger.New(logger.Config{Output: accessLog}))
	} else {
		app.Use(logger.New())
	}
	app.Use(requestid.New())
	return app
}

// NewSigVault creates a new SigVault
func NewSigVault(
	serverConf ServerConf,
	service *signing.Service,
	verifier *identity.Verifier,
	storages model.Backends,
	opts Options,
) (*SigVault, error) {
	server := newFiberApp(serverConf, opts.AccessLog)
	sv := &SigVault{
		server:     server,
		serverConf: serverConf,
	}

	registerSigningEndpoints(server.Group("/api/v1"), service, verifier.Middleware())

	if opts.Metrics != nil {
		registerMetrics(server, opts.Metrics.Path, opts.Metrics.Gatherer)
	}

	if opts.Admin != nil {
		adminServer := server
		if opts.Admin.Port > 0 && opts.Admin.Port != serverConf.Port {
			adminServer = newFiberApp(serverConf, opts.AccessLog)
			sv.adminServer = adminServer
			sv.adminPort = opts.Admin.Port
		}
		if err := adminapi.Register(adminServer.Group("/api/v1/admin"), storages, opts.Admin); err != nil {
			return nil, err
		}
	}
	return sv, nil
}

// HttpHandlerFunc returns an http.HandlerFunc for serving all the necessary endpoints
func (sv SigVault) HttpHandlerFunc() http.HandlerFunc {
	return adaptor.FiberApp(sv.server)
}

// Listen starts an http server at the specific address for serving all the
// necessary endpoints
func (sv SigVault) Listen(addr string) error {
	return sv.server.Listen(addr)
}

// Shutdown gracefully stops all servers
func (sv SigVault) Shutdown() error {
	if sv.adminServer != nil {
		if err := sv.adminServer.Shutdown(); err != nil {
			return err
		}
	}
	return sv.server.Shutdown()
}

// Start starts the configured servers; it blocks until the main server
// stops
func (sv SigVault) Start() {
	conf := sv.serverConf
	if sv.adminServer != nil {
		go func() {
			addr := fmt.Sprintf("%s:%d", conf.IPListen, sv.adminPort)
			log.WithField("port", sv.adminPort).Info("starting admin api server")
			log.WithError(sv.adminServer.Listen(addr)).Fatal()
		}()
	}
	if !conf.TLS.Enabled {
		log.WithField("port", conf.Port).Info("TLS is disabled starting http server")
		log.WithError(sv.server.Listen(fmt.Sprintf("%s:%d", conf.IPListen, conf.Port))).Fatal()
	}
	// TLS enabled
	if conf.TLS.RedirectHTTP {
		httpServer := fiber.New(FiberServerConfig)
		httpServer.All(
			"*", func(ctx *fiber.Ctx) error {
				//goland:noinspection HttpUrlsUsage
				return ctx.Redirect(
					strings.Replace(ctx.Request().URI().String(), "http://", "https://", 1),
					fiber.StatusPermanentRedirect,
				)
			},
		)
		log.Info("TLS and http redirect enabled, starting redirect server on port 80")
		go func() {
			log.WithError(httpServer.Listen(":80")).Fatal()
		}()
	}
	time.Sleep(time.Millisecond) // This is just for a more pretty output with the tls header printed after the http one
	log.WithField("port", conf.Port).Info("TLS enabled, starting https server")
	log.WithError(
		sv.server.ListenTLS(fmt.Sprintf("%s:%d", conf.IPListen, conf.Port), conf.TLS.Cert, conf.TLS.Key),
	).Fatal()
}
