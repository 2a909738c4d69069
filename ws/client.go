package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/judgegodwins/bubble-royale/pointer"
	"github.com/judgegodwins/bubble-royale/room"
	"github.com/judgegodwins/bubble-royale/session"
	"github.com/judgegodwins/bubble-royale/util"
)

var (
	pongWait     = 10 * time.Second
	pingInterval = (pongWait * 9) / 10
)

const egressBuffer = 64

// Client is one browser connection, and so one player. It owns at most one
// live session at a time.
type Client struct {
	ID         string
	PlayerID   string
	connection *websocket.Conn
	manager    *Manager
	egress     chan Event
	err        chan error
	done       chan struct{}
	closeOnce  sync.Once

	mu      sync.Mutex
	sess    *session.Session
	tracker *pointer.Tracker
}

func NewClient(conn *websocket.Conn, manager *Manager, playerID string) *Client {
	return &Client{
		ID:         uuid.NewString(),
		PlayerID:   playerID,
		connection: conn,
		manager:    manager,
		egress:     make(chan Event, egressBuffer),
		err:        make(chan error, 2),
		done:       make(chan struct{}),
		tracker:    pointer.NewTracker(manager.config.CanvasWidth, manager.config.CanvasHeight),
	}
}

// Reads incoming messages from the clients websocket connection
func (c *Client) readMessages(ctx context.Context) {
	c.connection.SetReadLimit(1024)

	if err := c.connection.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.handleError(err)
		return
	}

	c.connection.SetPongHandler(c.pongHandler)

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, payload, err := c.connection.ReadMessage()

			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("error reading message: %v", err)
				}
				c.handleError(err)
				return
			}

			var evt Event

			if err := json.Unmarshal(payload, &evt); err != nil {
				c.handleError(err)
				return
			}

			if evt.Type != EventPointerFrame {
				util.Logf("event %v with traceId %v from %v", evt.Type, evt.TraceID, c.PlayerID)
			}

			if err := c.manager.routeEvent(ctx, evt, c); err != nil {
				log.Printf("error handling event %v: %v", evt.Type, err)

				// handler errors go back to the sender under the trace id
				errEvent, err := NewErrorEvent(evt.TraceID, err.Error())

				if err != nil {
					c.handleError(err)
					return
				}

				c.PushToEgress(errEvent)
			}
		}
	}
}

// writes messages pushed to the client's egress channel
func (c *Client) writeMessages(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)

	defer func() {
		ticker.Stop()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case message := <-c.egress:
			data, err := json.Marshal(message)

			if err != nil {
				c.handleError(err)
				return
			}

			if err := c.connection.WriteMessage(websocket.TextMessage, data); err != nil {
				c.handleError(err)
				return
			}
		case <-ticker.C:
			if err := c.connection.WriteMessage(websocket.PingMessage, []byte("")); err != nil {
				c.handleError(err)
				return
			}
		}
	}
}

// Sets a new read deadline when a pong is received for a ping message.
func (c *Client) pongHandler(pongMsg string) error {
	return c.connection.SetReadDeadline(time.Now().Add(pongWait))
}

// Reports a failure of the read or write pump to ServeWS, which then tears the
// connection down. Only the first error is kept.
func (c *Client) handleError(e error) {
	select {
	case c.err <- e:
	default:
	}
}

// Returns the error channel
func (c *Client) Err() chan error {
	return c.err
}

// Creates an event and pushes to client's egress
func (c *Client) PushEventToEgress(evtType string, payload any) error {
	evt, err := NewEvent(evtType, payload)
	if err != nil {
		return err
	}
	c.PushToEgress(evt)
	return nil
}

// Pushes an event to the client's egress to be delivered via the websocket
// connection. Events pushed after the client closed are dropped.
func (c *Client) PushToEgress(evt Event) {
	select {
	case c.egress <- evt:
	case <-c.done:
	}
}

// Session returns the live session, or nil.
func (c *Client) Session() *session.Session {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sess == nil {
		return nil
	}

	select {
	case <-c.sess.Done():
		return nil
	default:
		return c.sess
	}
}

// newSession replaces an idle or finished session with a fresh one for skin.
func (c *Client) newSession(ctx context.Context, skin string) (*session.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sess != nil {
		select {
		case <-c.sess.Done():
		default:
			if c.sess.Machine().State != session.StateIdle {
				return nil, session.ErrBusy
			}
			c.sess.Close()
		}
	}

	c.sess = session.New(ctx, c.PlayerID, skin, c.manager.store, c.manager.ledger, c, c.manager.sessionConfig())

	return c.sess, nil
}

// Close leaves the current match, telling the peer, and stops the session.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		// nobody writes after this, so the final events are dropped instead of blocking
		close(c.done)

		c.mu.Lock()
		sess := c.sess
		c.sess = nil
		c.mu.Unlock()

		if sess != nil {
			sess.Leave(true)
			sess.Close()
		}
	})
}

// session.Listener

func (c *Client) GameStarted(mode session.Mode, role room.Role) {
	c.PushEventToEgress(EventGameStarted, PayloadGameStarted{Mode: mode, Role: role})
}

func (c *Client) ScoreChanged(score int) {
	c.PushEventToEgress(EventScore, PayloadScore{Score: score})
}

func (c *Client) OpponentChanged(p room.PlayerState) {
	c.PushEventToEgress(EventOpponentState, p)
}

func (c *Client) Ended(r session.Result) {
	c.PushEventToEgress(EventRoomEnded, PayloadRoomEnded{
		RoomID:    r.RoomID,
		Score:     r.Score,
		Earned:    r.Earned,
		Coins:     r.Record.Coins,
		HighScore: r.Record.HighScore,
	})
}
