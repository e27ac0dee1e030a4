package qr

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"ms-booking/internal/models"

	"github.com/skip2/go-qrcode"
)

const DefaultSize = 256

var ErrInvalidToken = errors.New("invalid ticket token")

// TicketToken is the sealed payload printed on a ticket's QR code.
type TicketToken struct {
	TicketID  string    `json:"tid"`
	BookingID string    `json:"bid"`
	EventID   int64     `json:"eid"`
	SeatID    int64     `json:"sid"`
	IssuedAt  time.Time `json:"iat"`
}

type QRGenerator struct {
	aead cipher.AEAD
}

func NewQRGenerator(secret string) (*QRGenerator, error) {
	if secret == "" {
		return nil, errors.New("qr secret must not be empty")
	}
	hashed := sha256.Sum256([]byte(secret)) // normalize to 32 bytes
	block, err := aes.NewCipher(hashed[:])
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &QRGenerator{aead: aead}, nil
}

// Encode seals the ticket reference into an opaque URL-safe string.
// Tampered or foreign tokens fail Decode.
func (q *QRGenerator) Encode(ticket models.Ticket, issuedAt time.Time) (string, error) {
	data, err := json.Marshal(TicketToken{
		TicketID:  ticket.ID,
		BookingID: ticket.BookingID,
		EventID:   ticket.EventID,
		SeatID:    ticket.SeatID,
		IssuedAt:  issuedAt.UTC(),
	})
	if err != nil {
		return "", err
	}

	nonce := make([]byte, q.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	sealed := q.aead.Seal(nonce, nonce, data, nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

func (q *QRGenerator) Decode(token string) (*TicketToken, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	n := q.aead.NonceSize()
	if len(raw) < n {
		return nil, fmt.Errorf("%w: too short", ErrInvalidToken)
	}
	data, err := q.aead.Open(nil, raw[:n], raw[n:], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	var t TicketToken
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if t.TicketID == "" {
		return nil, fmt.Errorf("%w: no ticket id", ErrInvalidToken)
	}
	return &t, nil
}

// GenerateEncryptedQR renders the sealed token as a PNG QR code.
func (q *QRGenerator) GenerateEncryptedQR(ticket models.Ticket, issuedAt time.Time) ([]byte, error) {
	token, err := q.Encode(ticket, issuedAt)
	if err != nil {
		return nil, err
	}
	return qrcode.Encode(token, qrcode.Medium, DefaultSize)
}
