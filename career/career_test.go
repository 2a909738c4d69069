package career

import (
	"context"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func forEachLedger(t *testing.T, fn func(t *testing.T, l Ledger)) {
	t.Run("memory", func(t *testing.T) {
		fn(t, NewMemoryLedger())
	})

	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { rdb.Close() })

		fn(t, NewRedisLedger(rdb))
	})
}

func TestEarned(t *testing.T) {
	require.Equal(t, int64(0), Earned(0))
	require.Equal(t, int64(0), Earned(9))
	require.Equal(t, int64(3), Earned(30))
	require.Equal(t, int64(3), Earned(39))
	require.Equal(t, int64(0), Earned(-10))
}

func TestCredit(t *testing.T) {
	forEachLedger(t, func(t *testing.T, l Ledger) {
		ctx := context.Background()

		rec, err := l.Get(ctx, "p1")
		require.NoError(t, err)
		require.Equal(t, Record{}, rec)

		rec, err = l.Credit(ctx, "p1", 30)
		require.NoError(t, err)
		require.Equal(t, Record{Coins: 3, HighScore: 30}, rec)

		// lower score adds coins, keeps the high score
		rec, err = l.Credit(ctx, "p1", 20)
		require.NoError(t, err)
		require.Equal(t, Record{Coins: 5, HighScore: 30}, rec)

		rec, err = l.Get(ctx, "p1")
		require.NoError(t, err)
		require.Equal(t, Record{Coins: 5, HighScore: 30}, rec)

		other, err := l.Get(ctx, "p2")
		require.NoError(t, err)
		require.Equal(t, Record{}, other)
	})
}

func TestConcurrentCredit(t *testing.T) {
	forEachLedger(t, func(t *testing.T, l Ledger) {
		ctx := context.Background()

		var wg sync.WaitGroup
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := l.Credit(ctx, "p1", 10)
				require.NoError(t, err)
			}()
		}
		wg.Wait()

		rec, err := l.Get(ctx, "p1")
		require.NoError(t, err)
		require.Equal(t, int64(4), rec.Coins)
		require.Equal(t, int64(10), rec.HighScore)
	})
}
