package store

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/judgegodwins/bubble-royale/util"
	"github.com/redis/go-redis/v9"
)

// optimistic transaction retries before ErrConflict
const maxTxRetries = 8

// KEYS: hash, channel. ARGV: guard field, guard value, ttl in ms, then field/value pairs.
// Returns 0 when the hash is missing, -1 when the guard matched, 1 after writing.
var updateUnlessScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return 0
end
if redis.call("HGET", KEYS[1], ARGV[1]) == ARGV[2] then
	return -1
end
redis.call("HSET", KEYS[1], unpack(ARGV, 4))
local ttl = tonumber(ARGV[3])
if ttl > 0 then
	redis.call("PEXPIRE", KEYS[1], ttl)
end
redis.call("PUBLISH", KEYS[2], "changed")
return 1
`)

// RedisStore keeps each document in the hash room:<key> and announces every
// write on room:<key>:changes.
type RedisStore struct {
	rdb     *redis.Client
	ttl     time.Duration
	timeout time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl, timeout time.Duration) *RedisStore {
	return &RedisStore{
		rdb:     rdb,
		ttl:     ttl,
		timeout: timeout,
	}
}

func hashValues(doc Document) map[string]interface{} {
	values := make(map[string]interface{}, len(doc))
	for k, v := range doc {
		values[k] = v
	}
	return values
}

func (s *RedisStore) write(ctx context.Context, pipe redis.Pipeliner, key string, fields Document) {
	roomKey := util.GetRoomKey(key)

	pipe.HSet(ctx, roomKey, hashValues(fields))
	if s.ttl > 0 {
		pipe.Expire(ctx, roomKey, s.ttl)
	}
	pipe.Publish(ctx, util.GetRoomChannel(key), "changed")
}

func (s *RedisStore) Create(ctx context.Context, key string, doc Document) error {
	roomKey := util.GetRoomKey(key)

	err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, roomKey).Result()
		if err != nil {
			return err
		}

		if n > 0 {
			return ErrAlreadyExists
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			s.write(ctx, pipe, key, doc)
			return nil
		})

		return err
	}, roomKey)

	// somebody touched the key between EXISTS and EXEC
	if errors.Is(err, redis.TxFailedErr) {
		return ErrAlreadyExists
	}

	return err
}

func (s *RedisStore) Read(ctx context.Context, key string) (Document, error) {
	doc, err := s.rdb.HGetAll(ctx, util.GetRoomKey(key)).Result()
	if err != nil {
		return nil, err
	}

	if len(doc) == 0 {
		return nil, ErrNotFound
	}

	return Document(doc), nil
}

func (s *RedisStore) Update(ctx context.Context, key string, fields Document) error {
	return s.UpdateIf(ctx, key, nil, fields)
}

func (s *RedisStore) UpdateIf(ctx context.Context, key string, check func(Document) error, fields Document) error {
	roomKey := util.GetRoomKey(key)

	txf := func(tx *redis.Tx) error {
		if check == nil {
			n, err := tx.Exists(ctx, roomKey).Result()
			if err != nil {
				return err
			}
			if n == 0 {
				return ErrNotFound
			}
		} else {
			doc, err := tx.HGetAll(ctx, roomKey).Result()
			if err != nil {
				return err
			}
			if len(doc) == 0 {
				return ErrNotFound
			}
			if err := check(Document(doc)); err != nil {
				return err
			}
		}

		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			s.write(ctx, pipe, key, fields)
			return nil
		})

		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.rdb.Watch(ctx, txf, roomKey)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}

	return ErrConflict
}

func (s *RedisStore) UpdateUnless(ctx context.Context, key, field, value string, fields Document) error {
	args := make([]interface{}, 0, 3+2*len(fields))
	args = append(args, field, value, s.ttl.Milliseconds())
	for k, v := range fields {
		args = append(args, k, v)
	}

	keys := []string{util.GetRoomKey(key), util.GetRoomChannel(key)}

	res, err := updateUnlessScript.Run(ctx, s.rdb, keys, args...).Int()
	if err != nil {
		return err
	}

	switch res {
	case 0:
		return ErrNotFound
	case -1:
		return ErrGuarded
	}

	return nil
}

type redisSubscription struct {
	once   sync.Once
	pubsub *redis.PubSub
	cancel context.CancelFunc
}

func (r *redisSubscription) Unsubscribe() error {
	var err error
	r.once.Do(func() {
		r.cancel()
		err = r.pubsub.Close()
	})
	return err
}

func (s *RedisStore) Subscribe(ctx context.Context, key string, onChange func(Document)) (Subscription, error) {
	pubsub := s.rdb.Subscribe(ctx, util.GetRoomChannel(key))

	// wait for the subscription to be confirmed so no write after this call is missed
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, err
	}

	subCtx, cancel := context.WithCancel(context.Background())
	sub := &redisSubscription{pubsub: pubsub, cancel: cancel}
	messages := pubsub.Channel()

	go func() {
		s.deliver(subCtx, key, onChange)

		for range messages {
			s.deliver(subCtx, key, onChange)
		}
	}()

	return sub, nil
}

func (s *RedisStore) deliver(ctx context.Context, key string, onChange func(Document)) {
	if ctx.Err() != nil {
		return
	}

	readCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	doc, err := s.Read(readCtx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) && ctx.Err() == nil {
			log.Printf("error reading snapshot of %v: %v", key, err)
		}
		return
	}

	onChange(doc)
}
