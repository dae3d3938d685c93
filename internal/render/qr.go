package render

import (
	"fmt"
	"io"

	qrcode "github.com/skip2/go-qrcode"
)

// DefaultQRSize is the edge length of a QR image in pixels.
const DefaultQRSize = 512

// QRCode encodes content as a size x size PNG QR code with medium error
// correction, suitable for scanning a maps link with a phone.
func QRCode(content string, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultQRSize
	}
	q, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("render: encode qr: %w", err)
	}
	return q.PNG(size)
}

// WriteQR writes the QR code for content to w.
func WriteQR(w io.Writer, content string, size int) error {
	data, err := QRCode(content, size)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
