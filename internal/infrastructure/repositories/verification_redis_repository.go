package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/kaupskip/email-service/internal/core/domain/verification"
	"github.com/kaupskip/email-service/internal/core/ports"
)

// VerificationRedisRepository stores pending verification records in Redis
// under `<namespace>:verification:<user_id>` with a TTL; expiry is passive,
// Redis simply stops returning the key.
type VerificationRedisRepository struct {
	redisClient *redis.Client
	namespace   string
	logger      *logrus.Logger
}

func NewVerificationRedisRepository(redisClient *redis.Client, namespace string, logger *logrus.Logger) *VerificationRedisRepository {
	return &VerificationRedisRepository{redisClient: redisClient, namespace: namespace, logger: logger}
}

var _ ports.VerificationStore = (*VerificationRedisRepository)(nil)

func (r *VerificationRedisRepository) key(userID string) string {
	return fmt.Sprintf("%s:verification:%s", r.namespace, userID)
}

func (r *VerificationRedisRepository) Put(ctx context.Context, userID string, rec *verification.Record, ttl time.Duration) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal verification record: %w", err)
	}

	// SET with expiry overwrites any previous record and resets its TTL,
	// keeping at most one live code per user.
	if err := r.redisClient.Set(ctx, r.key(userID), b, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ports.ErrStoreUnavailable, err)
	}
	return nil
}

func (r *VerificationRedisRepository) Get(ctx context.Context, userID string) (*verification.Record, error) {
	b, err := r.redisClient.Get(ctx, r.key(userID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ports.ErrRecordNotFound
		}
		return nil, fmt.Errorf("%w: %v", ports.ErrStoreUnavailable, err)
	}

	var rec verification.Record
	if err := json.Unmarshal(b, &rec); err != nil {
		// A corrupt record is unusable; treat it as absent after logging.
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"user_id": userID}).WithError(err).Error("corrupt verification record")
		}
		return nil, ports.ErrRecordNotFound
	}

	return &rec, nil
}

func (r *VerificationRedisRepository) Delete(ctx context.Context, userID string) error {
	if err := r.redisClient.Del(ctx, r.key(userID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ports.ErrStoreUnavailable, err)
	}
	return nil
}
