package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"smpd/internal/servicegroup/models"
	"smpd/pkg/domain"
)

// keyPrefix namespaces cache entries in a shared redis instance.
const keyPrefix = "smp:sg:"

// redisEntry is the stored JSON shape. The identifier is reconstructed from
// the key, so only the mutable fields are serialized.
type redisEntry struct {
	OwnerID   string  `json:"owner_id"`
	Extension *string `json:"extension,omitempty"`
}

// Redis is a redis-backed identifier cache for deployments running several
// SMP instances against one store. Redis expiry provides the fixed
// insertion-TTL; GET does not touch the TTL.
//
// Cache errors are logged and treated as misses: the lookup path must keep
// working when redis is down.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedis creates a redis-backed cache; ttl <= 0 uses DefaultTTL.
func NewRedis(client *redis.Client, ttl time.Duration, logger *slog.Logger) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Redis{client: client, ttl: ttl, logger: logger}
}

func (c *Redis) Get(ctx context.Context, participantID domain.ParticipantIdentifier) (*models.ServiceGroup, bool) {
	payload, err := c.client.Get(ctx, keyPrefix+participantID.URIEncoded()).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.WarnContext(ctx, "identifier cache read failed",
				"participant", participantID.URIEncoded(), "error", err)
		}
		return nil, false
	}
	var e redisEntry
	if err := json.Unmarshal(payload, &e); err != nil {
		c.logger.WarnContext(ctx, "identifier cache entry corrupt",
			"participant", participantID.URIEncoded(), "error", err)
		return nil, false
	}
	return &models.ServiceGroup{
		ParticipantID: participantID,
		OwnerID:       e.OwnerID,
		Extension:     e.Extension,
	}, true
}

func (c *Redis) Put(ctx context.Context, sg *models.ServiceGroup) {
	if sg == nil {
		return
	}
	payload, err := json.Marshal(redisEntry{OwnerID: sg.OwnerID, Extension: sg.Extension})
	if err != nil {
		c.logger.WarnContext(ctx, "identifier cache marshal failed",
			"participant", sg.ParticipantID.URIEncoded(), "error", err)
		return
	}
	if err := c.client.Set(ctx, keyPrefix+sg.ParticipantID.URIEncoded(), payload, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "identifier cache write failed",
			"participant", sg.ParticipantID.URIEncoded(), "error", err)
	}
}

func (c *Redis) Invalidate(ctx context.Context, participantID domain.ParticipantIdentifier) {
	if err := c.client.Del(ctx, keyPrefix+participantID.URIEncoded()).Err(); err != nil {
		c.logger.WarnContext(ctx, "identifier cache invalidation failed",
			"participant", participantID.URIEncoded(), "error", err)
	}
}
