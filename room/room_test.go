package room

import (
	"context"
	"testing"

	"github.com/judgegodwins/bubble-royale/store"
	"github.com/stretchr/testify/require"
)

func TestFieldsParse(t *testing.T) {
	host := PlayerState{ID: "p1", Score: 30, Skin: "neon", Cursor: Cursor{X: 12.5, Y: 400}}
	guest := NewPlayer("p2", "")

	r := Room{ID: "AB3K9", Host: &host, Guest: &guest, Status: StatusPlaying}

	got, err := Parse("AB3K9", r.Fields())
	require.NoError(t, err)
	require.Equal(t, r, got)
}

func TestParseAbsentGuest(t *testing.T) {
	host := NewPlayer("p1", "classic")
	doc := Room{ID: "AB3K9", Host: &host, Status: StatusWaiting}.Fields()

	r, err := Parse("AB3K9", doc)
	require.NoError(t, err)
	require.NotNil(t, r.Host)
	require.Nil(t, r.Guest)
	require.Equal(t, StatusWaiting, r.Status)

	t.Run("bad status", func(t *testing.T) {
		doc := doc.Clone()
		doc["status"] = "paused"

		_, err := Parse("AB3K9", doc)
		require.Error(t, err)
	})

	t.Run("bad score", func(t *testing.T) {
		doc := doc.Clone()
		doc["host.score"] = "ten"

		_, err := Parse("AB3K9", doc)
		require.Error(t, err)
	})
}

func TestSyncFieldsStayInSubtree(t *testing.T) {
	for _, role := range []Role{RoleHost, RoleGuest} {
		fields := SyncFields(role, 40, Cursor{X: 1, Y: 2})

		require.Len(t, fields, 3)
		require.True(t, OwnedBy(fields, role))
		require.False(t, OwnedBy(fields, role.Peer()))
	}

	require.True(t, OwnedBy(EndedFields(), RoleHost))
	require.True(t, OwnedBy(EndedFields(), RoleGuest))
}

func TestJoinFields(t *testing.T) {
	fields := JoinFields(NewPlayer("p2", "gold"))

	require.Equal(t, "playing", fields["status"])
	require.Equal(t, "p2", fields["guest.id"])
	require.Equal(t, "0", fields["guest.score"])
	require.True(t, OwnedBy(fields, RoleGuest))
}

func TestCheckJoinable(t *testing.T) {
	host := NewPlayer("p1", "")
	guest := NewPlayer("p2", "")

	testCases := []struct {
		name string
		doc  store.Document
		err  error
	}{
		{
			name: "waiting for guest",
			doc:  Room{Host: &host, Status: StatusWaiting}.Fields(),
		},
		{
			name: "guest seated",
			doc:  Room{Host: &host, Guest: &guest, Status: StatusPlaying}.Fields(),
			err:  ErrRoomFull,
		},
		{
			name: "ended",
			doc:  Room{Host: &host, Status: StatusEnded}.Fields(),
			err:  ErrRoomNotFound,
		},
		{
			name: "no host",
			doc:  store.Document{"status": "waiting"},
			err:  ErrRoomNotFound,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.ErrorIs(t, CheckJoinable(tc.doc), tc.err)
		})
	}
}

func TestWriteUnlessEnded(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()

	host := NewPlayer("p1", "")
	require.NoError(t, st.Create(ctx, "AB3K9", Room{Host: &host, Status: StatusPlaying}.Fields()))

	require.NoError(t, WriteUnlessEnded(ctx, st, "AB3K9", SyncFields(RoleHost, 10, Cursor{})))
	require.NoError(t, WriteUnlessEnded(ctx, st, "AB3K9", EndedFields()))

	// once ended, neither a second end nor a late sync lands
	require.ErrorIs(t, WriteUnlessEnded(ctx, st, "AB3K9", EndedFields()), ErrRoomEnded)
	require.ErrorIs(t, WriteUnlessEnded(ctx, st, "AB3K9", SyncFields(RoleHost, 20, Cursor{})), ErrRoomEnded)

	doc, err := st.Read(ctx, "AB3K9")
	require.NoError(t, err)
	require.Equal(t, "ended", doc["status"])
	require.Equal(t, "10", doc["host.score"])

	require.ErrorIs(t, WriteUnlessEnded(ctx, st, "ZZZZZ", EndedFields()), store.ErrNotFound)
}

func TestUnknownValuesFormat(t *testing.T) {
	require.Equal(t, "Status(7)", Status(7).String())
	require.Equal(t, "Role(-1)", Role(-1).String())
	require.Equal(t, "ended", StatusEnded.String())
	require.Equal(t, "guest", RoleGuest.String())
}

func TestRolePeer(t *testing.T) {
	require.Equal(t, RoleGuest, RoleHost.Peer())
	require.Equal(t, RoleHost, RoleGuest.Peer())
	require.Equal(t, RoleNone, RoleNone.Peer())
}
