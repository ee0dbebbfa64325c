package repo

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// dedupKey is the Redis hash holding one field per consumed message id.
// Entries are never removed by this service.
const dedupKey = "notify:dedup"

// DedupStore records which message ids have already had their side effect
// executed. It must survive restarts and be visible across consumer
// instances, hence Redis rather than process memory.
type DedupStore struct {
	rdb *redis.Client
}

func NewDedupStore(rdb *redis.Client) *DedupStore {
	return &DedupStore{rdb: rdb}
}

// Seen reports whether msgID was already processed.
func (d *DedupStore) Seen(ctx context.Context, msgID string) (bool, error) {
	return d.rdb.HExists(ctx, dedupKey, msgID).Result()
}

// MarkProcessed records msgID after a successful side effect.
func (d *DedupStore) MarkProcessed(ctx context.Context, msgID string) error {
	return d.rdb.HSet(ctx, dedupKey, msgID, time.Now().Format(time.RFC3339)).Err()
}

// MarkIfFirst atomically records msgID and reports whether this caller was
// first. Closes the check-then-set window between concurrent duplicate
// deliveries: the loser gets false and must not execute the side effect.
func (d *DedupStore) MarkIfFirst(ctx context.Context, msgID string) (bool, error) {
	return d.rdb.HSetNX(ctx, dedupKey, msgID, time.Now().Format(time.RFC3339)).Result()
}

// Unmark releases a claim taken by MarkIfFirst when the side effect did not
// run, so a redelivery can try again.
func (d *DedupStore) Unmark(ctx context.Context, msgID string) error {
	return d.rdb.HDel(ctx, dedupKey, msgID).Err()
}
