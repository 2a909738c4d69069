package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/judgegodwins/bubble-royale/tokens"
)

type contextkey string

const (
	authContextKey contextkey = "auth_payload"
	authScheme                = "bearer"
)

// AuthMiddleware requires "Authorization: Bearer <token>" and stores the
// verified payload on the request context.
func (s *Server) AuthMiddleware(c *gin.Context) {
	fields := strings.Fields(c.GetHeader("Authorization"))

	if len(fields) != 2 || strings.ToLower(fields[0]) != authScheme {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse("unauthorized"))
		return
	}

	payload, err := s.tokenMaker.VerifyToken(fields[1])

	if errors.Is(err, tokens.ErrExpiredToken) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse("token has expired"))
		return
	}

	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse("invalid bearer token"))
		return
	}

	c.Set(string(authContextKey), payload)

	c.Next()
}
