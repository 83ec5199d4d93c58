package config

import (
	"context"
	"time"

	"luma-live/stagepass/ticket-queue-server/pkg/infra"
	"luma-live/stagepass/ticket-queue-server/pkg/ticket"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// LiveConfig holds runtime settings that operators can flip without a
// restart. It refreshes itself from a redis hash and writes current
// availability back for external dashboards.
type LiveConfig struct {
	// If false, POST /api/register is answered with 503 while
	// processing and cancellation keep working.
	IsRegistrationOpen bool `redis:"isRegistrationOpen"`

	// Target of the outbound webhook notifier. Empty disables it.
	WebhookUrl string `redis:"webhookUrl"`

	redisClient *redis.Client
	logger      *zap.SugaredLogger
}

func ProvideLiveConfig(redisClient *redis.Client, loggerFactory *infra.LoggerFactory) *LiveConfig {
	return &LiveConfig{
		IsRegistrationOpen: true,
		redisClient:        redisClient,
		logger:             loggerFactory.Create("LiveConfig").Sugar(),
	}
}

const (
	// Update config with this interval.
	cfgUpdateInterval = 5 * time.Second

	// LiveConfig redis key.
	cfgRedisKey = "config"

	// Availability write-back redis key.
	availabilityRedisKey = "availability"
)

func (c *LiveConfig) Run() {
	ticker := time.NewTicker(cfgUpdateInterval)
	for ; true; <-ticker.C {
		if err := c.redisClient.HGetAll(context.TODO(), cfgRedisKey).Scan(c); err != nil {
			c.logger.Errorf("err reading config from redis %v", err)
			continue
		}
		c.logger.Debugf("updated config[%+v]", c)
	}
}

// PublishAvailability writes the current remaining counts to redis so
// dashboards outside this process can read them.
func (c *LiveConfig) PublishAvailability(availability map[ticket.Type]int) {
	fields := make([]interface{}, 0, len(availability)*2)
	for ticketType, remaining := range availability {
		fields = append(fields, string(ticketType), remaining)
	}

	if _, err := c.redisClient.HSet(context.TODO(), availabilityRedisKey, fields...).Result(); err != nil {
		c.logger.Errorf("err writing availability to redis %v", err)
	}
}
