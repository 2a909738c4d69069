package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/judgegodwins/bubble-royale/career"
	"github.com/judgegodwins/bubble-royale/game"
	"github.com/judgegodwins/bubble-royale/pointer"
	"github.com/judgegodwins/bubble-royale/room"
	"github.com/judgegodwins/bubble-royale/store"
	"github.com/judgegodwins/bubble-royale/util"
)

// fresh codes tried when the generated one is already taken
const maxCodeAttempts = 5

var (
	ErrSessionClosed = errors.New("session is closed")
	ErrBusy          = errors.New("session already has a match")
	ErrInvalidMode   = errors.New("multiplayer matches start by hosting or joining a room")
)

// Listener receives everything the UI renders. Calls come from the session
// goroutine, one at a time, and must not block for long.
type Listener interface {
	GameStarted(mode Mode, role room.Role)
	ScoreChanged(score int)
	OpponentChanged(p room.PlayerState)
	Ended(r Result)
}

// Result is reported once when a match ends.
type Result struct {
	RoomID string        `json:"room_id,omitempty"`
	Score  int           `json:"score"`
	Earned int64         `json:"earned"`
	Record career.Record `json:"record"`
}

type Config struct {
	Width, Height float64
	FrameRate     int
	StoreTimeout  time.Duration
	// optional
	Tuning  *game.Tuning
	Rand    *rand.Rand
	NewCode func() string
}

type remoteSnapshot struct {
	code string
	room room.Room
}

type hostReply struct {
	code string
	err  error
}

type hostCmd struct {
	reply chan hostReply
}

type joinCmd struct {
	code  string
	reply chan error
}

type startCmd struct {
	mode  Mode
	reply chan error
}

type leaveCmd struct {
	notify bool
	reply  chan struct{}
}

// callCmd runs fn on the session goroutine.
type callCmd struct {
	fn    func()
	reply chan struct{}
}

// Session is one player's side of one match. All protocol state is owned by a
// single goroutine; public methods hand it commands and wait for the answer.
type Session struct {
	playerID string
	skin     string
	cfg      Config
	store    store.Store
	ledger   career.Ledger
	listener Listener

	inbox     chan any
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	// owned by run
	machine    Machine
	code       string
	sub        store.Subscription
	replicator *Replicator
	loop       *game.Loop
	ticker     *time.Ticker
	cursor     room.Cursor
}

func New(ctx context.Context, playerID, skin string, st store.Store, ledger career.Ledger, listener Listener, cfg Config) *Session {
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if cfg.NewCode == nil {
		cfg.NewCode = room.NewCode
	}
	if cfg.FrameRate <= 0 {
		cfg.FrameRate = 60
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 2 * time.Second
	}
	if listener == nil {
		listener = noopListener{}
	}

	loop := game.NewLoop(cfg.Width, cfg.Height, cfg.Rand)
	if cfg.Tuning != nil {
		loop.Tuning = *cfg.Tuning
	}

	s := &Session{
		playerID: playerID,
		skin:     skin,
		cfg:      cfg,
		store:    st,
		ledger:   ledger,
		listener: listener,
		inbox:    make(chan any, 256),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		loop:     loop,
	}

	go s.run(ctx)

	return s
}

// HostRoom creates a room and waits for a guest. Returns the room code to share.
func (s *Session) HostRoom() (string, error) {
	reply := make(chan hostReply, 1)
	if err := s.send(hostCmd{reply: reply}); err != nil {
		return "", err
	}

	select {
	case r := <-reply:
		return r.code, r.err
	case <-s.done:
		return "", ErrSessionClosed
	}
}

// JoinRoom takes the guest seat of the room with code. The code is case-insensitive.
func (s *Session) JoinRoom(code string) error {
	reply := make(chan error, 1)
	if err := s.send(joinCmd{code: code, reply: reply}); err != nil {
		return err
	}

	select {
	case err := <-reply:
		return err
	case <-s.done:
		return ErrSessionClosed
	}
}

// StartGame starts a local match with no room.
func (s *Session) StartGame(mode Mode) error {
	reply := make(chan error, 1)
	if err := s.send(startCmd{mode: mode, reply: reply}); err != nil {
		return err
	}

	select {
	case err := <-reply:
		return err
	case <-s.done:
		return ErrSessionClosed
	}
}

// Leave ends the match. With notifyPeer the room is marked ended for the other player.
// Calling it on an idle or ended session does nothing.
func (s *Session) Leave(notifyPeer bool) {
	reply := make(chan struct{})
	if err := s.send(leaveCmd{notify: notifyPeer, reply: reply}); err != nil {
		return
	}

	select {
	case <-reply:
	case <-s.done:
	}
}

// Pointer feeds one pointer sample. It never blocks: when the session is
// backed up the sample is dropped and the next one takes its place.
func (s *Session) Pointer(f pointer.Frame) {
	select {
	case s.inbox <- PointerMoved{Frame: f}:
	case <-s.done:
	default:
		util.Logf("pointer frame dropped for %v", s.playerID)
	}
}

// Machine returns the current protocol state.
func (s *Session) Machine() Machine {
	var m Machine
	if err := s.call(func() { m = s.machine }); err != nil {
		// run has returned; machine is no longer written
		return s.machine
	}
	return m
}

// Code returns the room code, empty when there is no room.
func (s *Session) Code() string {
	var code string
	s.call(func() { code = s.code })
	return code
}

// Close stops the session goroutine without settling the match. Use Leave first.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.quit)
	})
	<-s.done
}

// Done is closed once the session goroutine has exited.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) send(cmd any) error {
	select {
	case s.inbox <- cmd:
		return nil
	case <-s.done:
		return ErrSessionClosed
	}
}

// call runs fn on the session goroutine and waits for it.
func (s *Session) call(fn func()) error {
	reply := make(chan struct{})
	if err := s.send(callCmd{fn: fn, reply: reply}); err != nil {
		return err
	}

	select {
	case <-reply:
		return nil
	case <-s.done:
		return ErrSessionClosed
	}
}

func (s *Session) run(ctx context.Context) {
	defer s.shutdown()

	for {
		var tick <-chan time.Time
		if s.ticker != nil {
			tick = s.ticker.C
		}

		select {
		case <-ctx.Done():
			s.apply(Left{NotifyPeer: true})
			return
		case <-s.quit:
			return
		case msg := <-s.inbox:
			s.handle(msg)
		case <-tick:
			s.apply(FrameTick{})
		}

		if s.machine.State == StateEnded {
			return
		}
	}
}

func (s *Session) handle(msg any) {
	switch m := msg.(type) {
	case hostCmd:
		code, err := s.host()
		m.reply <- hostReply{code: code, err: err}
	case joinCmd:
		m.reply <- s.join(m.code)
	case startCmd:
		m.reply <- s.start(m.mode)
	case leaveCmd:
		s.apply(Left{NotifyPeer: m.notify})
		close(m.reply)
	case callCmd:
		m.fn()
		close(m.reply)
	case remoteSnapshot:
		// a delivery from a subscription we already dropped
		if m.code != s.code {
			return
		}
		s.apply(RemoteUpdate{Room: m.room})
	case PointerMoved:
		s.apply(m)
	default:
		log.Printf("session %v: unexpected message %T", s.playerID, msg)
	}
}

func (s *Session) apply(evt Event) {
	prev := s.machine
	next, effect := Transition(prev, evt)
	s.machine = next

	if prev.State != next.State {
		util.Logf("session %v: %v -> %v (%T)", s.playerID, prev.State, next.State, evt)
	}

	switch effect {
	case EffectStartGame:
		s.startGame()
		if e, ok := evt.(RemoteUpdate); ok {
			s.observe(e.Room)
		}
	case EffectStep:
		s.loop.Step()
	case EffectPointer:
		s.pointer(evt.(PointerMoved).Frame)
	case EffectObserve:
		s.observe(evt.(RemoteUpdate).Room)
	case EffectRelease:
		notify := false
		if e, ok := evt.(Left); ok {
			notify = e.NotifyPeer
		}
		s.release(prev, notify)
	}
}

func (s *Session) storeCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.cfg.StoreTimeout)
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %w", room.ErrStoreUnavailable, err)
}

func (s *Session) host() (string, error) {
	if s.machine.State != StateIdle {
		return "", ErrBusy
	}

	host := room.NewPlayer(s.playerID, s.skin)

	var code string
	var err error

	for i := 0; i < maxCodeAttempts; i++ {
		code = s.cfg.NewCode()
		doc := room.Room{ID: code, Host: &host, Status: room.StatusWaiting}.Fields()

		ctx, cancel := s.storeCtx()
		err = s.store.Create(ctx, code, doc)
		cancel()

		if !errors.Is(err, store.ErrAlreadyExists) {
			break
		}
		log.Printf("room code %v taken, retrying", code)
	}

	if err != nil {
		return "", unavailable(err)
	}

	if err := s.attach(code, room.RoleHost); err != nil {
		s.abandon(code)
		return "", unavailable(err)
	}

	s.apply(Hosted{})
	log.Printf("player %v hosting room %v", s.playerID, code)

	return code, nil
}

func (s *Session) join(input string) error {
	if s.machine.State != StateIdle {
		return ErrBusy
	}

	code, ok := room.NormalizeCode(input)
	if !ok {
		return room.ErrRoomNotFound
	}

	s.apply(JoinRequested{})

	guest := room.NewPlayer(s.playerID, s.skin)

	ctx, cancel := s.storeCtx()
	err := s.store.UpdateIf(ctx, code, room.CheckJoinable, room.JoinFields(guest))
	cancel()

	switch {
	case err == nil:
	case errors.Is(err, store.ErrNotFound):
		s.apply(JoinFailed{})
		return room.ErrRoomNotFound
	case errors.Is(err, room.ErrRoomNotFound), errors.Is(err, room.ErrRoomFull):
		s.apply(JoinFailed{})
		return err
	default:
		s.apply(JoinFailed{})
		return unavailable(err)
	}

	if err := s.attach(code, room.RoleGuest); err != nil {
		s.abandon(code)
		s.apply(JoinFailed{})
		return unavailable(err)
	}

	s.apply(Joined{})
	log.Printf("player %v joined room %v", s.playerID, code)

	return nil
}

func (s *Session) start(mode Mode) error {
	if mode == ModeMulti {
		return ErrInvalidMode
	}

	if s.machine.State != StateIdle {
		return ErrBusy
	}

	s.apply(Started{Mode: mode})

	return nil
}

// attach starts listening to the room and sets up replication for role.
func (s *Session) attach(code string, role room.Role) error {
	ctx, cancel := s.storeCtx()
	defer cancel()

	sub, err := s.store.Subscribe(ctx, code, func(doc store.Document) {
		r, err := room.Parse(code, doc)
		if err != nil {
			log.Printf("bad snapshot of room %v: %v", code, err)
			return
		}

		select {
		case s.inbox <- remoteSnapshot{code: code, room: r}:
		case <-s.done:
		}
	})
	if err != nil {
		s.code = ""
		return err
	}

	s.code = code
	s.sub = sub
	s.replicator = NewReplicator(s.store, code, role, s.cfg.StoreTimeout)

	return nil
}

// abandon marks a room we could not attach to as ended, best effort.
func (s *Session) abandon(code string) {
	ctx, cancel := s.storeCtx()
	defer cancel()

	if err := s.store.Update(ctx, code, room.EndedFields()); err != nil {
		log.Printf("could not close abandoned room %v: %v", code, err)
	}
}

func (s *Session) startGame() {
	s.loop.Reset()
	s.ticker = time.NewTicker(time.Second / time.Duration(s.cfg.FrameRate))

	s.listener.GameStarted(s.machine.Mode, s.machine.Role)
	s.listener.ScoreChanged(0)
}

func (s *Session) pointer(f pointer.Frame) {
	if !f.Active {
		return
	}

	s.cursor = room.Cursor{X: f.X, Y: f.Y}

	if f.Activated && s.loop.Pop(f.X, f.Y) > 0 {
		s.listener.ScoreChanged(s.loop.Score())
	}

	if s.replicator != nil {
		s.replicator.Push(s.loop.Score(), s.cursor)
	}
}

func (s *Session) observe(r room.Room) {
	if s.replicator == nil {
		return
	}

	// peer not seated yet
	p, ok := s.replicator.Opponent(r)
	if !ok {
		return
	}

	s.listener.OpponentChanged(p)
}

func (s *Session) release(prev Machine, notifyPeer bool) {
	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}

	if s.sub != nil {
		if err := s.sub.Unsubscribe(); err != nil {
			log.Printf("error unsubscribing from room %v: %v", s.code, err)
		}
		s.sub = nil
	}

	if s.replicator != nil {
		s.replicator.Close()
		s.replicator = nil
	}

	if notifyPeer && s.code != "" {
		ctx, cancel := s.storeCtx()
		err := room.WriteUnlessEnded(ctx, s.store, s.code, room.EndedFields())
		cancel()

		if err != nil && !errors.Is(err, room.ErrRoomEnded) {
			log.Printf("could not notify peer in room %v: %v", s.code, err)
		}
	}

	result := Result{RoomID: s.code, Score: s.loop.Score()}

	if prev.State == StatePlaying && s.ledger != nil {
		ctx, cancel := s.storeCtx()
		rec, err := s.ledger.Credit(ctx, s.playerID, result.Score)
		cancel()

		if err != nil {
			log.Printf("could not credit %v for score %v: %v", s.playerID, result.Score, err)
		} else {
			result.Earned = career.Earned(result.Score)
			result.Record = rec
		}
	}

	log.Printf("player %v left room %q with score %v", s.playerID, s.code, result.Score)

	s.code = ""
	s.listener.Ended(result)
}

func (s *Session) shutdown() {
	close(s.done)

	if s.ticker != nil {
		s.ticker.Stop()
	}
	if s.sub != nil {
		s.sub.Unsubscribe()
	}
	if s.replicator != nil {
		s.replicator.Close()
	}
}

type noopListener struct{}

func (noopListener) GameStarted(Mode, room.Role)      {}
func (noopListener) ScoreChanged(int)                 {}
func (noopListener) OpponentChanged(room.PlayerState) {}
func (noopListener) Ended(Result)                     {}
