package ws

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/judgegodwins/bubble-royale/career"
	"github.com/judgegodwins/bubble-royale/session"
	"github.com/judgegodwins/bubble-royale/store"
	"github.com/judgegodwins/bubble-royale/tokens"
	"github.com/judgegodwins/bubble-royale/util"
	"github.com/samber/lo"
)

type ClientList map[string]*Client

type wsQuery struct {
	Token string `form:"token" binding:"required"`
}

type Manager struct {
	clients ClientList
	sync.RWMutex
	handlers   map[string]EventHandler
	config     *util.Config
	store      store.Store
	ledger     career.Ledger
	tokenMaker tokens.Maker
	upgrader   websocket.Upgrader
}

func NewManager(config *util.Config, st store.Store, ledger career.Ledger, maker tokens.Maker) *Manager {
	m := &Manager{
		clients:    make(ClientList),
		handlers:   make(map[string]EventHandler),
		config:     config,
		store:      st,
		ledger:     ledger,
		tokenMaker: maker,
	}

	m.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     m.checkOrigin,
	}

	m.setupEventHandlers()

	return m
}

func (m *Manager) setupEventHandlers() {
	m.handlers[EventHostRoom] = HostRoom
	m.handlers[EventJoinRoom] = JoinRoom
	m.handlers[EventStartGame] = StartGame
	m.handlers[EventPointerFrame] = PointerFrame
	m.handlers[EventLeaveRoom] = LeaveRoom
}

func (m *Manager) routeEvent(ctx context.Context, evt Event, c *Client) error {
	if handler, ok := m.handlers[evt.Type]; ok {
		if err := handler(ctx, evt, c); err != nil {
			return err
		}

		return nil
	}

	return errors.New("there is no such event type")
}

func (m *Manager) sessionConfig() session.Config {
	return session.Config{
		Width:        m.config.CanvasWidth,
		Height:       m.config.CanvasHeight,
		FrameRate:    m.config.FrameRate,
		StoreTimeout: m.config.StoreTimeout,
	}
}

func (m *Manager) addClient(client *Client) {
	m.Lock()
	defer m.Unlock()

	m.clients[client.ID] = client
}

func (m *Manager) removeClient(client *Client) {
	m.Lock()
	_, ok := m.clients[client.ID]
	delete(m.clients, client.ID)
	m.Unlock()

	if ok {
		client.Close()
		client.connection.Close()
	}
}

// ClientCount is the number of open connections.
func (m *Manager) ClientCount() int {
	m.RLock()
	defer m.RUnlock()

	return len(m.clients)
}

// CloseAll ends every client's match and drops its connection.
func (m *Manager) CloseAll() {
	m.RLock()
	clients := lo.Values(m.clients)
	m.RUnlock()

	for _, client := range clients {
		m.removeClient(client)
	}
}

// Websocket connection handler
func (m *Manager) ServeWS(c *gin.Context) {
	// browsers cannot set headers on a websocket handshake, so the token rides in the query
	var query wsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.IndentedJSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"message": "token not sent",
		})
		return
	}

	payload, err := m.tokenMaker.VerifyToken(query.Token)

	if err != nil {
		c.IndentedJSON(http.StatusUnauthorized, "unauthorized")
		return
	}

	conn, err := m.upgrader.Upgrade(c.Writer, c.Request, nil)

	if err != nil {
		log.Printf("error upgrading to websocket connection: %v\n", err)
		return
	}

	client := NewClient(conn, m, payload.ID)

	m.addClient(client)

	ctx, cancel := context.WithCancel(c.Request.Context())

	defer func() {
		cancel()
		err := client.connection.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)

		if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
			util.Logf("error sending close message: %v", err)
		}
		m.removeClient(client)
	}()

	go client.readMessages(ctx)
	go client.writeMessages(ctx)

	select {
	case err = <-client.Err():
		util.Logf("client %v disconnected: %v", client.ID, err)
	case <-client.done:
	}
}

func (m *Manager) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	return lo.Contains(m.config.AllowedOrigins, "*") || lo.Contains(m.config.AllowedOrigins, origin)
}
