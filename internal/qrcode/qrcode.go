package qrcode

import (
	"errors"

	qr "github.com/skip2/go-qrcode"
)

// Size is the edge length of generated images, in pixels.
const Size = 256

var ErrEmptyLink = errors.New("empty join link")

// Generate renders a room join link as a PNG QR code.
func Generate(link string) ([]byte, error) {
	if link == "" {
		return nil, ErrEmptyLink
	}
	return qr.Encode(link, qr.Medium, Size)
}
