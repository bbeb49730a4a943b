// Package qrcode renders certificate verification links as PNG QR codes
// using github.com/skip2/go-qrcode.
package qrcode
