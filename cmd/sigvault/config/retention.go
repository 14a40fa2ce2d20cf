package config

import (
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/sigvault/sigvault/storage/model"
)

// retentionConf configures the scheduled purge of soft-deleted contracts and
// the delivery of buffered events
type retentionConf struct {
	Enabled bool `yaml:"enabled"`
	// Days soft-deleted contracts are kept before they are purged
	Days int `yaml:"days"`
	// Schedule is a cron spec, e.g. "@daily" or "30 3 * * *"
	Schedule string `yaml:"schedule"`
	// OutboxFlushSchedule is the cron spec for redelivering buffered events
	OutboxFlushSchedule string `yaml:"outbox_flush_schedule"`
}

func (c *retentionConf) validate() error {
	if c.Days < 0 || c.Days > model.MaxRetentionDays {
		return errors.Errorf("days must be between 0 and %d", model.MaxRetentionDays)
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	for _, spec := range []string{c.Schedule, c.OutboxFlushSchedule} {
		if spec == "" {
			continue
		}
		if _, err := parser.Parse(spec); err != nil {
			return errors.Wrapf(err, "invalid schedule '%s'", spec)
		}
	}
	if c.Enabled && c.Schedule == "" {
		return errors.New("schedule must be set if retention is enabled")
	}
	return nil
}

var defaultRetentionConf = retentionConf{
	Enabled:             true,
	Days:                30,
	Schedule:            "@daily",
	OutboxFlushSchedule: "@every 1m",
}
