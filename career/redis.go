package career

import (
	"context"
	"errors"
	"strconv"

	"github.com/judgegodwins/bubble-royale/util"
	"github.com/redis/go-redis/v9"
)

const (
	coinsKey     = "coins"
	highScoreKey = "high_score"
)

var errCreditContended = errors.New("career record kept changing, credit abandoned")

// RedisLedger stores each player's record in the hash career:<id>.
type RedisLedger struct {
	rdb *redis.Client
}

func NewRedisLedger(rdb *redis.Client) *RedisLedger {
	return &RedisLedger{rdb: rdb}
}

func parseRecord(values map[string]string) (Record, error) {
	var rec Record
	var err error

	if v, ok := values[coinsKey]; ok {
		if rec.Coins, err = strconv.ParseInt(v, 10, 64); err != nil {
			return Record{}, err
		}
	}

	if v, ok := values[highScoreKey]; ok {
		if rec.HighScore, err = strconv.ParseInt(v, 10, 64); err != nil {
			return Record{}, err
		}
	}

	return rec, nil
}

func (l *RedisLedger) Get(ctx context.Context, playerID string) (Record, error) {
	values, err := l.rdb.HGetAll(ctx, util.GetCareerKey(playerID)).Result()
	if err != nil {
		return Record{}, err
	}

	return parseRecord(values)
}

func (l *RedisLedger) Credit(ctx context.Context, playerID string, score int) (Record, error) {
	key := util.GetCareerKey(playerID)

	var rec Record

	txf := func(tx *redis.Tx) error {
		values, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return err
		}

		if rec, err = parseRecord(values); err != nil {
			return err
		}

		rec.Coins += Earned(score)
		if int64(score) > rec.HighScore {
			rec.HighScore = int64(score)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, coinsKey, rec.Coins, highScoreKey, rec.HighScore)
			return nil
		})

		return err
	}

	for i := 0; i < 5; i++ {
		err := l.rdb.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return rec, err
	}

	return Record{}, errCreditContended
}
