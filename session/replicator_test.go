package session

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/judgegodwins/bubble-royale/room"
	"github.com/judgegodwins/bubble-royale/store"
	"github.com/stretchr/testify/require"
)

func TestReplicatorLatestWins(t *testing.T) {
	st := store.NewMemoryStore()
	host := room.NewPlayer("p1", "")
	require.NoError(t, st.Create(context.Background(), "AB3K9", room.Room{Host: &host}.Fields()))

	r := NewReplicator(st, "AB3K9", room.RoleHost, time.Second)
	defer r.Close()

	for score := 0; score <= 100; score += 10 {
		r.Push(score, room.Cursor{X: float64(score), Y: 1})
	}

	require.Eventually(t, func() bool {
		rm := readRoom(t, st, "AB3K9")
		return rm.Host.Score == 100 && rm.Host.Cursor.X == 100
	}, waitFor, tick)
}

// countingStore counts sync attempts so a test can wait for the writer.
type countingStore struct {
	store.Store
	attempts atomic.Int32
}

func (c *countingStore) UpdateUnless(ctx context.Context, key, field, value string, fields store.Document) error {
	defer c.attempts.Add(1)
	return c.Store.UpdateUnless(ctx, key, field, value, fields)
}

func TestReplicatorSkipsEndedRoom(t *testing.T) {
	st := &countingStore{Store: store.NewMemoryStore()}
	host := room.NewPlayer("p1", "")
	guest := room.NewPlayer("p2", "")
	require.NoError(t, st.Create(context.Background(), "AB3K9", room.Room{Host: &host, Guest: &guest, Status: room.StatusEnded}.Fields()))

	r := NewReplicator(st, "AB3K9", room.RoleHost, time.Second)
	defer r.Close()

	r.Push(40, room.Cursor{X: 3, Y: 4})

	require.Eventually(t, func() bool { return st.attempts.Load() == 1 }, waitFor, tick)

	rm := readRoom(t, st, "AB3K9")
	require.Equal(t, room.StatusEnded, rm.Status)
	require.Zero(t, rm.Host.Score)
	require.Zero(t, rm.Host.Cursor.X)
}

func TestReplicatorMissingRoom(t *testing.T) {
	r := NewReplicator(store.NewMemoryStore(), "AB3K9", room.RoleGuest, time.Second)

	// failed writes are dropped, never block
	r.Push(10, room.Cursor{})
	r.Push(20, room.Cursor{})

	r.Close()
}

func TestReplicatorOpponent(t *testing.T) {
	host := room.NewPlayer("p1", "")
	guest := room.NewPlayer("p2", "gold")

	r := NewReplicator(store.NewMemoryStore(), "AB3K9", room.RoleHost, time.Second)
	defer r.Close()

	_, ok := r.Opponent(room.Room{Host: &host})
	require.False(t, ok)

	p, ok := r.Opponent(room.Room{Host: &host, Guest: &guest})
	require.True(t, ok)
	require.Equal(t, guest, p)
}
