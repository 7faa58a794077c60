package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/sbilibin2017/gw-bank-ledger/internal/logger"
)

// ErrLockNotHeld is returned by Unlock when the token no longer owns the lock.
var ErrLockNotHeld = errors.New("customer lock not held")

var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// CustomerLockRepository is a Redis lease per customer ledger. The lease
// expires after ttl so a crashed writer cannot block the ledger forever.
type CustomerLockRepository struct {
	client     *redis.Client
	ttl        time.Duration
	retryDelay time.Duration
}

// NewCustomerLockRepository creates a lock repository with the given lease ttl.
func NewCustomerLockRepository(client *redis.Client, ttl time.Duration) *CustomerLockRepository {
	return &CustomerLockRepository{
		client:     client,
		ttl:        ttl,
		retryDelay: 10 * time.Millisecond,
	}
}

func lockKey(customerID uuid.UUID) string {
	return fmt.Sprintf("ledger_lock:%s", customerID)
}

// Lock blocks until the lease is acquired or ctx is done.
func (r *CustomerLockRepository) Lock(ctx context.Context, customerID uuid.UUID) (string, error) {
	key := lockKey(customerID)
	token := uuid.NewString()

	for {
		ok, err := r.client.SetNX(ctx, key, token, r.ttl).Result()
		if err != nil {
			logger.FromContext(ctx).Errorw("lock", "key", key, "error", err)
			return "", storeError("acquire customer lock", err)
		}
		if ok {
			logger.FromContext(ctx).Debugw("lock", "key", key, "result", "acquired")
			return token, nil
		}

		select {
		case <-ctx.Done():
			return "", storeError("acquire customer lock", ctx.Err())
		case <-time.After(r.retryDelay):
		}
	}
}

// Unlock releases the lease if token still owns it.
func (r *CustomerLockRepository) Unlock(ctx context.Context, customerID uuid.UUID, token string) error {
	key := lockKey(customerID)
	res, err := unlockScript.Run(ctx, r.client, []string{key}, token).Int()

	logger.FromContext(ctx).Debugw("unlock", "key", key, "result", res, "error", err)

	if err != nil {
		return storeError("release customer lock", err)
	}
	if res == 0 {
		return ErrLockNotHeld
	}
	return nil
}
