// Package cache provides the optional Redis-backed alert suppression
// store. When Redis is disabled or unreachable the pipeline runs
// identically with no suppression.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/stm-analytics/scout-go/internal/config"
)

// SuppressionCache remembers alert fingerprints for a TTL so unchanged
// repeat alerts are marked suppressed in the ranked feed rather than
// re-raised at full priority.
type SuppressionCache struct {
	client    *redis.Client
	logger    *logrus.Logger
	keyPrefix string
	ttl       time.Duration
}

// NewSuppressionCache connects to Redis and verifies the connection.
// Callers gate construction on cfg.Redis.Enabled.
func NewSuppressionCache(cfg *config.Config, logger *logrus.Logger) (*SuppressionCache, error) {
	if !cfg.Redis.Enabled {
		return nil, fmt.Errorf("redis is not enabled in configuration")
	}

	ttl, err := time.ParseDuration(cfg.Alerts.Suppression.TTL)
	if err != nil {
		ttl = 72 * time.Hour
		logger.WithError(err).Warn("Invalid alerts.suppression.ttl, using default 72h")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"host":       cfg.Redis.Host,
		"port":       cfg.Redis.Port,
		"db":         cfg.Redis.DB,
		"key_prefix": cfg.Redis.KeyPrefix,
		"ttl":        ttl,
	}).Info("Alert suppression cache initialized")

	return &SuppressionCache{
		client:    rdb,
		logger:    logger,
		keyPrefix: cfg.Redis.KeyPrefix + "suppress:",
		ttl:       ttl,
	}, nil
}

// Seen reports whether the fingerprint was raised within the TTL and
// records it either way. The fingerprint is hashed so landing pages
// and source/medium strings never appear as raw Redis keys.
func (s *SuppressionCache) Seen(ctx context.Context, fingerprint string) (bool, error) {
	sum := sha256.Sum256([]byte(fingerprint))
	key := s.keyPrefix + hex.EncodeToString(sum[:16])

	// SetNX returns false when the key already exists, which is
	// exactly the "seen recently" signal. A repeat also refreshes the
	// TTL so a persisting condition stays suppressed.
	created, err := s.client.SetNX(ctx, key, 1, s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("suppression lookup: %w", err)
	}
	if !created {
		if err := s.client.Expire(ctx, key, s.ttl).Err(); err != nil {
			s.logger.WithError(err).Debug("Failed to refresh suppression TTL")
		}
		return true, nil
	}
	return false, nil
}

// Close releases the Redis connection.
func (s *SuppressionCache) Close() error {
	return s.client.Close()
}
