package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/medpos/inventory/internal/core/domain"
)

const (
	recordKeyPrefix     = "ledger:"
	completionKeyPrefix = "transfer-complete:"
	completionGuardTTL  = time.Hour
)

type RedisAdapter struct {
	client    *redis.Client
	recordTTL time.Duration
}

func NewRedisAdapter(client *redis.Client, recordTTL time.Duration) *RedisAdapter {
	return &RedisAdapter{client: client, recordTTL: recordTTL}
}

func recordKey(productID, locationID string) string {
	return recordKeyPrefix + productID + ":" + locationID
}

func (r *RedisAdapter) GetRecord(ctx context.Context, productID, locationID string) (*domain.InventoryRecord, error) {
	data, err := r.client.Get(ctx, recordKey(productID, locationID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var rec domain.InventoryRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		// A corrupt entry behaves like a miss; the next read repopulates it.
		r.client.Del(ctx, recordKey(productID, locationID))
		return nil, nil
	}
	return &rec, nil
}

func (r *RedisAdapter) SetRecord(ctx context.Context, rec domain.InventoryRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, recordKey(rec.ProductID, rec.LocationID), data, r.recordTTL).Err()
}

func (r *RedisAdapter) DeleteRecord(ctx context.Context, productID, locationID string) error {
	return r.client.Del(ctx, recordKey(productID, locationID)).Err()
}

func (r *RedisAdapter) AcquireCompletionGuard(ctx context.Context, transferID string) (bool, error) {
	return r.client.SetNX(ctx, completionKeyPrefix+transferID, 1, completionGuardTTL).Result()
}

func (r *RedisAdapter) ReleaseCompletionGuard(ctx context.Context, transferID string) error {
	return r.client.Del(ctx, completionKeyPrefix+transferID).Err()
}
