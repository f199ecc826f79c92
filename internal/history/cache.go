package history

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"careercoach/ai/internal/models"
)

const (
	cacheKeyPrefix = "history:"
	genKeyPrefix   = "history:gen:"
)

// fills the entry only if no write bumped the generation since the read began
var fillScript = redis.NewScript(`
local gen = redis.call("get", KEYS[2]) or "0"
if gen == ARGV[1] then
	redis.call("set", KEYS[1], ARGV[2], "PX", ARGV[3])
	return 1
end
return 0
`)

// bumps the generation and drops the entry in one step
var bumpScript = redis.NewScript(`
redis.call("incr", KEYS[2])
redis.call("pexpire", KEYS[2], ARGV[1])
return redis.call("del", KEYS[1])
`)

// CachedStore is a read-through redis cache in front of another Store.
// Every write bumps a per-record generation, and a read only fills the cache
// when the generation it saw before reading the store is still current.
// Redis failures degrade to the underlying store.
type CachedStore struct {
	next   Store
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewCachedStore(next Store, rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedStore {
	return &CachedStore{next: next, rdb: rdb, ttl: ttl, logger: logger}
}

// cached form of a record; HistoryRecord's own JSON hides the raw content column
type cacheEntry struct {
	ID          uint      `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	RecordID    string    `json:"record_id"`
	UserEmail   string    `json:"user_email"`
	AIAgentType string    `json:"ai_agent_type"`
	Content     string    `json:"content"`
	MetaData    string    `json:"meta_data"`
	RecordedAt  time.Time `json:"recorded_at"`
}

func cacheKey(recordID string) string {
	return cacheKeyPrefix + recordID
}

func genKey(recordID string) string {
	return genKeyPrefix + recordID
}

func (c *CachedStore) Get(ctx context.Context, recordID string) (*models.HistoryRecord, error) {
	data, err := c.rdb.Get(ctx, cacheKey(recordID)).Bytes()
	switch {
	case err == nil:
		var entry cacheEntry
		if jsonErr := json.Unmarshal(data, &entry); jsonErr == nil {
			return entry.record(), nil
		}
		c.logger.Warn("Discarding corrupt history cache entry", zap.String("record_id", recordID))
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("History cache read failed", zap.String("record_id", recordID), zap.Error(err))
	}

	gen, genErr := c.generation(ctx, recordID)
	record, err := c.next.Get(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if genErr == nil {
		c.fill(ctx, record, gen)
	}
	return record, nil
}

func (c *CachedStore) Create(ctx context.Context, record *models.HistoryRecord) error {
	if err := c.next.Create(ctx, record); err != nil {
		return err
	}
	c.invalidate(ctx, record.RecordID)
	return nil
}

func (c *CachedStore) Replace(ctx context.Context, recordID, content string) error {
	if err := c.next.Replace(ctx, recordID, content); err != nil {
		return err
	}
	c.invalidate(ctx, recordID)
	return nil
}

func (c *CachedStore) List(ctx context.Context, owner string) ([]models.HistoryRecord, error) {
	return c.next.List(ctx, owner)
}

func (c *CachedStore) generation(ctx context.Context, recordID string) (string, error) {
	gen, err := c.rdb.Get(ctx, genKey(recordID)).Result()
	if errors.Is(err, redis.Nil) {
		return "0", nil
	}
	if err != nil {
		c.logger.Warn("History cache generation read failed", zap.String("record_id", recordID), zap.Error(err))
		return "", err
	}
	return gen, nil
}

func (c *CachedStore) fill(ctx context.Context, record *models.HistoryRecord, gen string) {
	if c.ttl <= 0 {
		return
	}
	data, err := json.Marshal(newCacheEntry(record))
	if err != nil {
		return
	}
	keys := []string{cacheKey(record.RecordID), genKey(record.RecordID)}
	if err := fillScript.Run(ctx, c.rdb, keys, gen, data, c.ttl.Milliseconds()).Err(); err != nil {
		c.logger.Warn("History cache write failed", zap.String("record_id", record.RecordID), zap.Error(err))
	}
}

func (c *CachedStore) invalidate(ctx context.Context, recordID string) {
	keys := []string{cacheKey(recordID), genKey(recordID)}
	// outlives any read that could still be filling
	keep := 2 * c.ttl
	if keep < time.Minute {
		keep = time.Minute
	}
	if err := bumpScript.Run(ctx, c.rdb, keys, keep.Milliseconds()).Err(); err != nil {
		c.logger.Warn("History cache invalidation failed", zap.String("record_id", recordID), zap.Error(err))
	}
}

func newCacheEntry(r *models.HistoryRecord) cacheEntry {
	return cacheEntry{
		ID:          r.ID,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
		RecordID:    r.RecordID,
		UserEmail:   r.UserEmail,
		AIAgentType: r.AIAgentType,
		Content:     r.Content,
		MetaData:    r.MetaData,
		RecordedAt:  r.RecordedAt,
	}
}

func (e cacheEntry) record() *models.HistoryRecord {
	record := &models.HistoryRecord{
		RecordID:    e.RecordID,
		UserEmail:   e.UserEmail,
		AIAgentType: e.AIAgentType,
		Content:     e.Content,
		MetaData:    e.MetaData,
		RecordedAt:  e.RecordedAt,
	}
	record.ID = e.ID
	record.CreatedAt = e.CreatedAt
	record.UpdatedAt = e.UpdatedAt
	return record
}
