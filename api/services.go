package api

import (
	"errors"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/judgegodwins/bubble-royale/http_utils"
	"github.com/judgegodwins/bubble-royale/room"
	"github.com/judgegodwins/bubble-royale/store"
	"github.com/skip2/go-qrcode"
)

const (
	anonymousTokenTTL = 30 * 24 * time.Hour
	qrSize            = 256
)

// Issues an identity for a new player. There are no accounts; the token id
// is the player id everywhere else.
func (s *Server) TokenGenerator(c *gin.Context) {
	token, payload, err := s.tokenMaker.CreateToken(anonymousTokenTTL)

	if err != nil {
		log.Println(err)
		c.JSON(http.StatusInternalServerError, errorResponse(ErrorMessage500))
		return
	}

	c.JSON(http.StatusOK, successResponse("Auth data", gin.H{
		"id":         payload.ID,
		"token":      token,
		"expires_at": payload.ExpiredAt,
	}))
}

func (s *Server) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, successResponse("ok", gin.H{
		"clients": s.wsManager.ClientCount(),
	}))
}

func (s *Server) GetCareer(c *gin.Context) {
	payload, ok := GetPayload(c)

	if !ok {
		c.JSON(http.StatusInternalServerError, errorResponse(ErrorMessage500))
		log.Println(errors.New("value in auth_payload key of request context could not be casted to *tokens.Payload"))
		return
	}

	rec, err := s.ledger.Get(c.Request.Context(), payload.ID)

	if err != nil {
		log.Println("error reading career record:", err)
		c.JSON(http.StatusInternalServerError, errorResponse(ErrorMessage500))
		return
	}

	c.JSON(http.StatusOK, successResponse("career", rec))
}

type checkRoomRequest struct {
	RoomID string `uri:"id" binding:"required"`
}

func (s *Server) bindRoomCode(c *gin.Context) (string, bool) {
	var data checkRoomRequest

	if err := c.ShouldBindUri(&data); err != nil {
		c.JSON(http.StatusUnprocessableEntity, http_utils.ValidationFailure(err))
		return "", false
	}

	code, ok := room.NormalizeCode(data.RoomID)

	if !ok {
		c.JSON(http.StatusNotFound, errorResponse("room not found"))
		return "", false
	}

	return code, true
}

func (s *Server) CheckRoom(c *gin.Context) {
	code, ok := s.bindRoomCode(c)
	if !ok {
		return
	}

	doc, err := s.store.Read(c.Request.Context(), code)

	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, errorResponse("room not found"))
		return
	}

	if err != nil {
		log.Println("error getting room data from store:", err)
		c.JSON(http.StatusInternalServerError, errorResponse(ErrorMessage500))
		return
	}

	rm, err := room.Parse(code, doc)

	if err != nil {
		log.Println("error parsing room data:", err)
		c.JSON(http.StatusInternalServerError, errorResponse(ErrorMessage500))
		return
	}

	c.JSON(http.StatusOK, successResponse("room data", gin.H{
		"id":     rm.ID,
		"status": rm.Status,
		"full":   rm.Host != nil && rm.Guest != nil,
	}))
}

// Serves a QR code of the join link for a room, for a second device to scan.
func (s *Server) RoomQRCode(c *gin.Context) {
	code, ok := s.bindRoomCode(c)
	if !ok {
		return
	}

	link, err := joinLink(s.config.PublicURL, code)

	if err != nil {
		log.Println("bad public url:", err)
		c.JSON(http.StatusInternalServerError, errorResponse(ErrorMessage500))
		return
	}

	png, err := qrcode.Encode(link, qrcode.Medium, qrSize)

	if err != nil {
		log.Println("error encoding qr code:", err)
		c.JSON(http.StatusInternalServerError, errorResponse(ErrorMessage500))
		return
	}

	c.Data(http.StatusOK, "image/png", png)
}

func joinLink(publicURL, code string) (string, error) {
	u, err := url.Parse(publicURL)
	if err != nil {
		return "", err
	}

	q := u.Query()
	q.Set("room", code)
	u.RawQuery = q.Encode()

	return u.String(), nil
}
