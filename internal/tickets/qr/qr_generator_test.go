package qr

import (
	"bytes"
	"image/png"
	"testing"

	"event-ticketing/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ticket = &models.Ticket{ID: "t-1", EventID: "e-1", Code: "MANBD-654321"}

func TestSealAndOpen(t *testing.T) {
	q := NewQRGenerator("secret")

	token, err := q.Seal(ticket)
	require.NoError(t, err)

	payload, err := q.Open(token)
	require.NoError(t, err)
	assert.Equal(t, Payload{TicketID: "t-1", EventID: "e-1", Code: "MANBD-654321"}, *payload)

	// fresh nonce per seal
	again, err := q.Seal(ticket)
	require.NoError(t, err)
	assert.NotEqual(t, token, again)
}

func TestOpenRejectsForeignAndTamperedTokens(t *testing.T) {
	q := NewQRGenerator("secret")
	token, err := q.Seal(ticket)
	require.NoError(t, err)

	_, err = NewQRGenerator("other").Open(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	tampered := []byte(token)
	tampered[len(tampered)/2] ^= 1
	_, err = q.Open(string(tampered))
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = q.Open("not base64!")
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = q.Open("")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestGenerateEncryptedQR(t *testing.T) {
	q := NewQRGenerator("secret")

	pngBytes, err := q.GenerateEncryptedQR(ticket)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(pngBytes))
	require.NoError(t, err)
	assert.Equal(t, 256, img.Bounds().Dx())
}
