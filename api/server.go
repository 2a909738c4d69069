package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/judgegodwins/bubble-royale/career"
	"github.com/judgegodwins/bubble-royale/store"
	"github.com/judgegodwins/bubble-royale/tokens"
	"github.com/judgegodwins/bubble-royale/util"
	"github.com/judgegodwins/bubble-royale/ws"
	"github.com/rs/cors"
)

type Server struct {
	config     *util.Config
	wsManager  *ws.Manager
	router     *gin.Engine
	store      store.Store
	ledger     career.Ledger
	tokenMaker tokens.Maker
}

func NewServer(config *util.Config, st store.Store, ledger career.Ledger, maker tokens.Maker) *Server {
	router := gin.Default()

	server := &Server{
		config:     config,
		wsManager:  ws.NewManager(config, st, ledger, maker),
		router:     router,
		store:      st,
		ledger:     ledger,
		tokenMaker: maker,
	}

	router.GET("/ws", server.wsManager.ServeWS)
	router.GET("/healthz", server.HealthCheck)
	router.POST("/auth/anonymous", server.TokenGenerator)
	router.GET("/rooms/:id", server.CheckRoom)
	router.GET("/rooms/:id/qr", server.RoomQRCode)
	router.GET("/players/me/career", server.AuthMiddleware, server.GetCareer)

	return server
}

func (s *Server) Handler() http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   s.config.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler(s.router)
}

// Start serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%v", s.config.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       10 * time.Minute,
	}

	errs := make(chan error, 1)

	go func() {
		log.Printf("listening on %v", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
		close(errs)
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.wsManager.CloseAll()

	return srv.Shutdown(shutdownCtx)
}
