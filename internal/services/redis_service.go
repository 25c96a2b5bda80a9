package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"linkinbio-service/internal/database"

	"github.com/redis/go-redis/v9"
)

const (
	sessionsKey        = "linkinbio:sessions"
	presenceTimeout    = time.Second
	defaultPresenceTTL = 90 * time.Second
)

type RedisService struct {
	client      *database.RedisClient
	presenceTTL time.Duration

	mu   sync.Mutex
	open map[string]struct{}
}

func NewRedisService(client *database.RedisClient, presenceTTL time.Duration) *RedisService {
	if presenceTTL <= 0 {
		presenceTTL = defaultPresenceTTL
	}
	return &RedisService{
		client:      client,
		presenceTTL: presenceTTL,
		open:        make(map[string]struct{}),
	}
}

// =============================================================================
// Session Presence
// =============================================================================

// SessionOpened mirrors a new update session into redis.
func (r *RedisService) SessionOpened(clientID string) {
	r.mu.Lock()
	r.open[clientID] = struct{}{}
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), presenceTimeout)
	defer cancel()

	pipe := r.client.GetClient().Pipeline()
	pipe.SAdd(ctx, sessionsKey, clientID)
	pipe.Expire(ctx, sessionsKey, r.presenceTTL)
	pipe.HSet(ctx, sessionKey(clientID), map[string]interface{}{
		"status":     "open",
		"created_at": time.Now().Unix(),
	})
	pipe.Expire(ctx, sessionKey(clientID), r.presenceTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		slog.Error("Failed to record session", "clientID", clientID, "error", err)
		return
	}
	slog.Debug("Session recorded", "clientID", clientID)
}

func (r *RedisService) SessionClosed(clientID string) {
	r.mu.Lock()
	delete(r.open, clientID)
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), presenceTimeout)
	defer cancel()

	pipe := r.client.GetClient().Pipeline()
	pipe.SRem(ctx, sessionsKey, clientID)
	pipe.Del(ctx, sessionKey(clientID))

	if _, err := pipe.Exec(ctx); err != nil {
		slog.Error("Failed to clear session", "clientID", clientID, "error", err)
		return
	}
	slog.Debug("Session cleared", "clientID", clientID)
}

// RunPresence extends the presence TTL of this process's open sessions until
// ctx ends. Sessions of a process that stops refreshing expire after the TTL.
func (r *RedisService) RunPresence(ctx context.Context) {
	ticker := time.NewTicker(r.presenceTTL / 3)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.refreshPresence(ctx); err != nil {
				slog.Warn("Failed to refresh session presence", "error", err)
			}
		}
	}
}

func (r *RedisService) refreshPresence(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, presenceTimeout)
	defer cancel()

	pipe := r.client.GetClient().Pipeline()
	for _, clientID := range r.trackedSessions() {
		pipe.Expire(ctx, sessionKey(clientID), r.presenceTTL)
	}
	pipe.Expire(ctx, sessionsKey, r.presenceTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}

	// drops members left behind by processes that stopped refreshing
	_, err := r.OpenSessions(ctx)
	return err
}

func (r *RedisService) trackedSessions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.open))
	for id := range r.open {
		ids = append(ids, id)
	}
	return ids
}

// OpenSessions lists sessions whose presence hash is still alive and removes
// expired ones from the session set.
func (r *RedisService) OpenSessions(ctx context.Context) ([]string, error) {
	client := r.client.GetClient()
	members, err := client.SMembers(ctx, sessionsKey).Result()
	if err != nil || len(members) == 0 {
		return nil, err
	}

	pipe := client.Pipeline()
	exists := make([]*redis.IntCmd, len(members))
	for i, clientID := range members {
		exists[i] = pipe.Exists(ctx, sessionKey(clientID))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}

	open := make([]string, 0, len(members))
	var stale []interface{}
	for i, clientID := range members {
		if exists[i].Val() > 0 {
			open = append(open, clientID)
		} else {
			stale = append(stale, clientID)
		}
	}
	if len(stale) > 0 {
		if err := client.SRem(ctx, sessionsKey, stale...).Err(); err != nil {
			return nil, err
		}
	}
	return open, nil
}

func (r *RedisService) IsSessionOpen(ctx context.Context, clientID string) (bool, error) {
	n, err := r.client.GetClient().Exists(ctx, sessionKey(clientID)).Result()
	return n > 0, err
}

func sessionKey(clientID string) string {
	return fmt.Sprintf("linkinbio:session:%s", clientID)
}

// =============================================================================
// Rate Limiting
// =============================================================================

func (r *RedisService) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	windowStart := now.Add(-window).UnixNano()

	pipe := r.client.GetClient().Pipeline()

	// Remove old entries
	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", windowStart))

	// Count current entries
	pipe.ZCard(ctx, key)

	// Add current request
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixNano()), Member: now.UnixNano()})

	// Set expiration
	pipe.Expire(ctx, key, window)

	results, err := pipe.Exec(ctx)
	if err != nil {
		return false, err
	}

	// Get count result
	count := results[1].(*redis.IntCmd).Val()

	return count < int64(limit), nil
}

func (r *RedisService) Ping(ctx context.Context) error {
	return r.client.Ping(ctx)
}
