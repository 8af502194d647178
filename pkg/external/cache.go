package external

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tfta-mcp-server/internal/domain"
)

const statementKeyPrefix = "tfta:statements:"

// redisClient is the subset of the Redis API the statement cache uses.
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

// StatementCache stores literature query results in Redis.
type StatementCache struct {
	redis      redisClient
	defaultTTL time.Duration
}

// CachedStatements represents cached statements with metadata
type CachedStatements struct {
	Statements []domain.Statement `json:"statements"`
	CachedAt   time.Time          `json:"cached_at"`
	ExpiresAt  time.Time          `json:"expires_at"`
}

// NewStatementCache connects to Redis at redisURL.
func NewStatementCache(redisURL string, ttl time.Duration) (*StatementCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return newStatementCache(client, ttl), nil
}

func newStatementCache(client redisClient, ttl time.Duration) *StatementCache {
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &StatementCache{redis: client, defaultTTL: ttl}
}

// Get returns the cached statements of a query.
func (c *StatementCache) Get(ctx context.Context, q domain.StatementQuery) ([]domain.Statement, bool, error) {
	val, err := c.redis.Get(ctx, statementKey(q)).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get statement cache: %w", err)
	}

	var cached CachedStatements
	if err := json.Unmarshal([]byte(val), &cached); err != nil {
		return nil, false, fmt.Errorf("failed to decode statement cache: %w", err)
	}
	if time.Now().After(cached.ExpiresAt) {
		c.redis.Del(ctx, statementKey(q))
		return nil, false, nil
	}
	return cached.Statements, true, nil
}

// Set caches the statements of a query.
func (c *StatementCache) Set(ctx context.Context, q domain.StatementQuery, statements []domain.Statement) error {
	now := time.Now()
	cached := CachedStatements{
		Statements: statements,
		CachedAt:   now,
		ExpiresAt:  now.Add(c.defaultTTL),
	}
	data, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("failed to marshal statement cache data: %w", err)
	}
	return c.redis.Set(ctx, statementKey(q), data, c.defaultTTL).Err()
}

// Invalidate removes every cached statement query.
func (c *StatementCache) Invalidate(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := c.redis.Scan(ctx, cursor, statementKeyPrefix+"*", 100).Result()
		if err != nil {
			return fmt.Errorf("failed to scan statement keys: %w", err)
		}
		if len(keys) > 0 {
			if err := c.redis.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("failed to delete statement keys: %w", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Ping checks if Redis connection is alive
func (c *StatementCache) Ping(ctx context.Context) error {
	return c.redis.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *StatementCache) Close() error {
	return c.redis.Close()
}

func statementKey(q domain.StatementQuery) string {
	types := append([]string(nil), q.Types...)
	sort.Strings(types)
	data := fmt.Sprintf("%s|%s|%s", q.Subject, q.Object, strings.Join(types, ","))
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%s%x", statementKeyPrefix, hash[:8])
}
