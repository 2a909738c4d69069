package session

import (
	"context"
	"time"

	"github.com/judgegodwins/bubble-royale/room"
	"github.com/judgegodwins/bubble-royale/store"
	"github.com/judgegodwins/bubble-royale/util"
)

// Replicator writes the local role's score and cursor into the room document
// and picks the peer's subtree out of incoming snapshots.
//
// Push never blocks. A single writer goroutine sends the most recent pending
// state; anything superseded before it was written is discarded, and a failed
// write is dropped until the next frame pushes again. Nothing lands once the
// room has ended.
type Replicator struct {
	store   store.Store
	code    string
	role    room.Role
	timeout time.Duration

	outbox chan store.Document
	quit   chan struct{}
	done   chan struct{}
}

func NewReplicator(st store.Store, code string, role room.Role, timeout time.Duration) *Replicator {
	r := &Replicator{
		store:   st,
		code:    code,
		role:    role,
		timeout: timeout,
		outbox:  make(chan store.Document, 1),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}

	go r.run()

	return r
}

// Push queues the local state, replacing whatever is still pending.
// Must only be called from one goroutine.
func (r *Replicator) Push(score int, cursor room.Cursor) {
	fields := room.SyncFields(r.role, score, cursor)

	select {
	case r.outbox <- fields:
		return
	default:
	}

	select {
	case <-r.outbox:
	default:
	}

	select {
	case r.outbox <- fields:
	default:
	}
}

func (r *Replicator) run() {
	defer close(r.done)

	for {
		select {
		case <-r.quit:
			return
		case fields := <-r.outbox:
			ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
			err := room.WriteUnlessEnded(ctx, r.store, r.code, fields)
			cancel()

			if err != nil {
				util.Logf("sync of %v/%v dropped: %v", r.code, r.role, err)
			}
		}
	}
}

// Opponent returns the peer's subtree. ok is false while the peer has not joined.
func (r *Replicator) Opponent(rm room.Room) (room.PlayerState, bool) {
	p := rm.Player(r.role.Peer())
	if p == nil {
		return room.PlayerState{}, false
	}

	return *p, true
}

// Close stops the writer after any in-flight write finishes. Pending state is discarded.
func (r *Replicator) Close() {
	close(r.quit)
	<-r.done
}
