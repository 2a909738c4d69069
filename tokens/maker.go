package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("token is invalid")
	ErrExpiredToken = errors.New("token has expired")
)

// Payload identifies an anonymous player for the lifetime of the token.
type Payload struct {
	ID        string    `json:"id"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiredAt time.Time `json:"expired_at"`
}

func NewPayload(duration time.Duration) *Payload {
	now := time.Now()

	return &Payload{
		ID:        uuid.NewString(),
		IssuedAt:  now,
		ExpiredAt: now.Add(duration),
	}
}

// Maker issues and checks player tokens.
type Maker interface {
	CreateToken(duration time.Duration) (string, *Payload, error)
	VerifyToken(token string) (*Payload, error)
}

const (
	KindJWT    = "jwt"
	KindPaseto = "paseto"
)

func NewMaker(kind, secret string) (Maker, error) {
	switch kind {
	case KindJWT:
		return NewJWTMaker(secret)
	case KindPaseto:
		return NewPasetoMaker(secret)
	}

	return nil, fmt.Errorf("unknown token kind %q", kind)
}
