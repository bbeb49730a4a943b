package qrcode

import (
	"encoding/base64"
	"errors"
	"strings"

	skipqrcode "github.com/skip2/go-qrcode"
)

var (
	ErrEmptyContent   = errors.New("qr code content cannot be empty")
	ErrInvalidSize    = errors.New("qr code size out of range")
	ErrGenerateFailed = errors.New("failed to generate qr code")
)

const (
	DefaultSize = 256
	MaxSize     = 1024
)

// PNG encodes content as a PNG QR code of size×size pixels. A zero size
// selects DefaultSize. Medium error correction leaves room for print wear.
func PNG(content string, size int) ([]byte, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}
	if size == 0 {
		size = DefaultSize
	}
	if size < 64 || size > MaxSize {
		return nil, ErrInvalidSize
	}
	png, err := skipqrcode.Encode(content, skipqrcode.Medium, size)
	if err != nil {
		return nil, errors.Join(ErrGenerateFailed, err)
	}
	return png, nil
}

// DataURI returns the QR code as a base64 data URI for <img src>.
func DataURI(content string, size int) (string, error) {
	png, err := PNG(content, size)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
