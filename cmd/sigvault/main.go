package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"

	"github.com/sigvault/sigvault"
	"github.com/sigvault/sigvault/api/adminapi"
	"github.com/sigvault/sigvault/cmd/sigvault/config"
	"github.com/sigvault/sigvault/events"
	"github.com/sigvault/sigvault/hostapi"
	"github.com/sigvault/sigvault/identity"
	"github.com/sigvault/sigvault/internal/janitor"
	"github.com/sigvault/sigvault/internal/logger"
	"github.com/sigvault/sigvault/internal/version"
	"github.com/sigvault/sigvault/macroconfig"
	"github.com/sigvault/sigvault/policy"
	"github.com/sigvault/sigvault/signing"
)

const shutdownTimeout = 10 * time.Second

func main() {
	var configFile string
	if len(os.Args) > 1 {
		configFile = os.Args[1]
	}
	config.Load(configFile)
	logger.Init()
	c := config.Get()
	if c.Logging.Banner.Version {
		log.Info(version.Banner())
	}
	log.Info("Loaded Config")

	store, err := config.OpenStorage(c)
	if err != nil {
		log.WithError(err).Fatal("could not open storage")
	}
	backs := store.Backends()

	publisher, flusher, err := initPublisher(c)
	if err != nil {
		log.WithError(err).Fatal("could not init event publishing")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	service := &signing.Service{
		Store:     backs.Signatures,
		Configs:   macroconfig.Loader{Store: backs.MacroConfigs},
		Engine:    policy.NewEngine(hostapi.NewClient(c.HostAPI.ClientConfig())),
		Publisher: publisher,
		Metrics:   signing.NewMetrics(registry),
	}
	verifier, err := identity.NewVerifier(c.Identity.VerifierConfig())
	if err != nil {
		log.WithError(err).Fatal("could not init identity verification")
	}

	opts := sigvault.Options{AccessLog: logger.AccessLogWriter()}
	if c.API.Admin.Enabled {
		opts.Admin = &adminapi.Options{
			UsersEnabled:  c.API.Admin.UsersEnabled,
			Port:          c.API.Admin.Port,
			ServerURL:     c.API.Admin.ServerURL,
			RetentionDays: c.Retention.Days,
			SharedSecret:  c.API.Admin.SharedSecret,
		}
		if c.API.Admin.SharedSecret == "" {
			if n, err := backs.Users.Count(); err == nil && n == 0 {
				log.Warn("admin api has neither a shared secret nor users; all admin requests will be rejected")
			}
		}
	}
	if c.Metrics.Enabled {
		opts.Metrics = &sigvault.MetricsOptions{
			Path:     c.Metrics.Path,
			Gatherer: registry,
		}
	}
	sv, err := sigvault.NewSigVault(c.Server, service, verifier, backs, opts)
	if err != nil {
		log.WithError(err).Fatal("could not init server")
	}

	jobs := janitor.Config{FlushSchedule: c.Retention.OutboxFlushSchedule}
	if c.Retention.Enabled {
		jobs.RetentionDays = c.Retention.Days
		jobs.CleanupSchedule = c.Retention.Schedule
	}
	j, err := janitor.New(jobs, backs.Signatures, flusher)
	if err != nil {
		log.WithError(err).Fatal("could not init janitor")
	}
	j.Start()

	go func() {
		signals := make(chan os.Signal, 1)
		signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
		sig := <-signals
		log.WithField("signal", sig.String()).Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		j.Stop(ctx)
		if err := sv.Shutdown(); err != nil {
			log.WithError(err).Error("could not shut down server")
		}
		if err := publisher.Close(); err != nil {
			log.WithError(err).Error("could not close event publisher")
		}
		if err := store.Close(); err != nil {
			log.WithError(err).Error("could not close storage")
		}
		os.Exit(0)
	}()

	log.Info("Initialized SigVault")
	sv.Start()
}

// initPublisher builds the event publisher chain. Events are always logged;
// with redis they are published, and with an outbox undeliverable events are
// buffered for the janitor to redeliver.
func initPublisher(conf config.Config) (events.Publisher, janitor.Flusher, error) {
	c := conf.Events
	publishers := events.Multi{events.LogPublisher{}}
	opts := c.RedisOptions()
	if opts == nil {
		return publishers, nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	redisPublisher, err := events.NewRedisPublisher(ctx, opts, c.Channel)
	if err != nil {
		return nil, nil, err
	}
	log.WithField("addr", opts.Addr).Info("Connected to redis event bus")
	if !c.Outbox.Enabled {
		return append(publishers, redisPublisher), nil, nil
	}
	outbox, err := events.OpenBadgerOutbox(c.Outbox.Dir)
	if err != nil {
		_ = redisPublisher.Close()
		return nil, nil, err
	}
	buffered := events.Buffered{
		Primary: redisPublisher,
		Outbox:  outbox,
	}
	return append(publishers, buffered), buffered, nil
}
