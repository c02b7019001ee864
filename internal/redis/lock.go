package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

type Redis struct {
	Client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{Client: client}
}

const (
	// callbackLockTTL bounds how long a crashed reconciler can hold the lock.
	callbackLockTTL = 2 * time.Minute
	cartLockTTL     = 30 * time.Second
)

// AcquireCallbackLock serializes reconciliation of a single checkout-request-id
// across concurrent callback deliveries. Returns false when another request
// holds the lock.
func (r *Redis) AcquireCallbackLock(checkoutRequestID string) (bool, error) {
	key := "callback_lock:" + checkoutRequestID
	return r.Client.SetNX(context.Background(), key, "1", callbackLockTTL).Result()
}

func (r *Redis) ReleaseCallbackLock(checkoutRequestID string) error {
	key := "callback_lock:" + checkoutRequestID
	_, err := r.Client.Del(context.Background(), key).Result()
	if err == redis.Nil {
		return nil
	}
	return err
}

// AcquireCartLock serializes cart mutation and checkout for one account so a
// line added concurrently with checkout is not lost.
func (r *Redis) AcquireCartLock(accountID int64) (bool, error) {
	key := fmt.Sprintf("cart_lock:%d", accountID)
	return r.Client.SetNX(context.Background(), key, "1", cartLockTTL).Result()
}

func (r *Redis) ReleaseCartLock(accountID int64) error {
	key := fmt.Sprintf("cart_lock:%d", accountID)
	_, err := r.Client.Del(context.Background(), key).Result()
	if err == redis.Nil {
		return nil
	}
	return err
}
