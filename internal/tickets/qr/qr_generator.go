package qr

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"

	"event-ticketing/internal/models"

	"github.com/skip2/go-qrcode"
)

var ErrInvalidToken = models.ErrInvalidTicketToken

// Payload is what a ticket QR code carries once opened.
type Payload struct {
	TicketID string `json:"ticket_id"`
	EventID  string `json:"event_id"`
	Code     string `json:"code"`
}

type QRGenerator struct {
	secret []byte
	random io.Reader
}

func NewQRGenerator(secret string) *QRGenerator {
	hashed := sha256.Sum256([]byte(secret)) // normalize to 32 bytes
	return &QRGenerator{secret: hashed[:], random: rand.Reader}
}

// GenerateEncryptedQR renders the sealed ticket payload as a 256px PNG.
func (q *QRGenerator) GenerateEncryptedQR(ticket *models.Ticket) ([]byte, error) {
	token, err := q.Seal(ticket)
	if err != nil {
		return nil, err
	}
	return qrcode.Encode(token, qrcode.Medium, 256)
}

// Seal encrypts the ticket payload with AES-GCM and returns it URL-safe encoded.
func (q *QRGenerator) Seal(ticket *models.Ticket) (string, error) {
	data, err := json.Marshal(Payload{TicketID: ticket.ID, EventID: ticket.EventID, Code: ticket.Code})
	if err != nil {
		return "", err
	}

	gcm, err := q.aead()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(q.random, nonce); err != nil {
		return "", fmt.Errorf("read nonce: %w", err)
	}

	sealed := gcm.Seal(nonce, nonce, data, nil)
	return base64.URLEncoding.EncodeToString(sealed), nil
}

// Open reverses Seal. Tampered or foreign tokens yield ErrInvalidToken.
func (q *QRGenerator) Open(token string) (*Payload, error) {
	raw, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return nil, ErrInvalidToken
	}

	gcm, err := q.aead()
	if err != nil {
		return nil, err
	}
	if len(raw) < gcm.NonceSize() {
		return nil, ErrInvalidToken
	}

	nonce, ciphertext := raw[:gcm.NonceSize()], raw[gcm.NonceSize():]
	data, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrInvalidToken
	}

	var payload Payload
	if err := json.Unmarshal(data, &payload); err != nil || payload.TicketID == "" {
		return nil, ErrInvalidToken
	}
	return &payload, nil
}

func (q *QRGenerator) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(q.secret)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
