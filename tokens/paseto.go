package tokens

import (
	"fmt"
	"time"

	"github.com/o1egl/paseto"
	"golang.org/x/crypto/chacha20poly1305"
)

type PasetoMaker struct {
	paseto       *paseto.V2
	symmetricKey []byte
}

func NewPasetoMaker(symmetricKey string) (*PasetoMaker, error) {
	if len(symmetricKey) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("invalid key size: must be exactly %d characters", chacha20poly1305.KeySize)
	}

	return &PasetoMaker{
		paseto:       paseto.NewV2(),
		symmetricKey: []byte(symmetricKey),
	}, nil
}

func (m *PasetoMaker) CreateToken(duration time.Duration) (string, *Payload, error) {
	payload := NewPayload(duration)

	token := paseto.JSONToken{
		Jti:        payload.ID,
		Subject:    payload.ID,
		IssuedAt:   payload.IssuedAt,
		Expiration: payload.ExpiredAt,
	}

	encrypted, err := m.paseto.Encrypt(m.symmetricKey, token, nil)
	if err != nil {
		return "", nil, err
	}

	return encrypted, payload, nil
}

func (m *PasetoMaker) VerifyToken(token string) (*Payload, error) {
	var decoded paseto.JSONToken

	if err := m.paseto.Decrypt(token, m.symmetricKey, &decoded, nil); err != nil {
		return nil, ErrInvalidToken
	}

	if decoded.Subject == "" {
		return nil, ErrInvalidToken
	}

	if err := decoded.Validate(paseto.ValidAt(time.Now())); err != nil {
		return nil, ErrExpiredToken
	}

	return &Payload{
		ID:        decoded.Subject,
		IssuedAt:  decoded.IssuedAt,
		ExpiredAt: decoded.Expiration,
	}, nil
}
