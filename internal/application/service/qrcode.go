package service

// QRRenderer encodes text as a QR code and returns it as an image data URI.
// It is a pure function of its input.
type QRRenderer interface {
	Render(text string) (string, error)
}
