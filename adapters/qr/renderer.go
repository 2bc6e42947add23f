// Package qr renders share links as PNG QR codes and reads them back.
package qr

import (
	"bytes"
	"fmt"
	"image/png"

	"github.com/makiuchi-d/gozxing"
	gzqrcode "github.com/makiuchi-d/gozxing/qrcode"
	"github.com/skip2/go-qrcode"
	"github.com/vincent-petithory/dataurl"

	"github.com/khoahotran/profile-card/internal/application/service"
)

const DefaultSize = 256

type pngRenderer struct {
	size  int
	level qrcode.RecoveryLevel
}

func NewPNGRenderer(size int) service.QRRenderer {
	if size <= 0 {
		size = DefaultSize
	}
	return &pngRenderer{size: size, level: qrcode.Medium}
}

// Render returns a base64 "data:image/png" URI.
func (r *pngRenderer) Render(text string) (string, error) {
	if text == "" {
		return "", fmt.Errorf("qr: empty content")
	}
	img, err := qrcode.Encode(text, r.level, r.size)
	if err != nil {
		return "", fmt.Errorf("qr: encode: %w", err)
	}
	return dataurl.New(img, "image/png").String(), nil
}

// Decode reads the text encoded in a PNG QR code.
func Decode(pngBytes []byte) (string, error) {
	img, err := png.Decode(bytes.NewReader(pngBytes))
	if err != nil {
		return "", fmt.Errorf("qr: decode png: %w", err)
	}
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", fmt.Errorf("qr: bitmap: %w", err)
	}
	res, err := gzqrcode.NewQRCodeReader().Decode(bmp, nil)
	if err != nil {
		return "", fmt.Errorf("qr: read: %w", err)
	}
	return res.GetText(), nil
}
