package config

import (
	"github.com/redis/go-redis/v9"

	"github.com/sigvault/sigvault/events"
)

// eventsConf configures where signature events are published. Without a
// redis address events are only logged. With an outbox, events that could not
// be published are buffered there and redelivered later.
type eventsConf struct {
	RedisAddr string     `yaml:"redis_addr"`
	Username  string     `yaml:"username"`
	Password  string     `yaml:"password"`
	RedisDB   int        `yaml:"redis_db"`
	Channel   string     `yaml:"channel"`
	Outbox    outboxConf `yaml:"outbox"`
}

type outboxConf struct {
	Enabled bool `yaml:"enabled"`
	// Dir of the badger database; empty keeps the outbox in memory
	Dir string `yaml:"dir"`
}

// RedisOptions returns the redis options or nil if redis is not configured
func (c eventsConf) RedisOptions() *redis.Options {
	if c.RedisAddr == "" {
		return nil
	}
	return &redis.Options{
		Addr:     c.RedisAddr,
		Username: c.Username,
		Password: c.Password,
		DB:       c.RedisDB,
	}
}

var defaultEventsConf = eventsConf{
	Channel: events.DefaultRedisChannel,
}
