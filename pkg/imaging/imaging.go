// pkg/imaging/imaging.go
package imaging

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/skip2/go-qrcode"
)

const sniffLen = 512

var imageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

var attachmentTypes = map[string]bool{
	"application/pdf": true,
}

// DetectContentType sniffs the first bytes of r. The returned reader still
// yields the full content.
func DetectContentType(r io.Reader) (string, io.Reader, error) {
	buffer := make([]byte, sniffLen)
	n, err := io.ReadFull(r, buffer)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", nil, err
	}
	buffer = buffer[:n]
	return http.DetectContentType(buffer), io.MultiReader(bytes.NewReader(buffer), r), nil
}

// ValidateImage accepts only image content types.
func ValidateImage(contentType string) error {
	if !imageTypes[contentType] {
		return fmt.Errorf("invalid file type: %s, only JPEG, PNG, GIF and WebP allowed", contentType)
	}
	return nil
}

// ValidateAttachment accepts images and PDF documents.
func ValidateAttachment(contentType string) error {
	if !imageTypes[contentType] && !attachmentTypes[contentType] {
		return fmt.Errorf("invalid file type: %s, only images and PDF allowed", contentType)
	}
	return nil
}

// PartQRPayload is the text encoded into a part's QR code.
func PartQRPayload(id uint, name, partNumber string) (string, error) {
	payload, err := json.Marshal(struct {
		ID         uint   `json:"id"`
		Name       string `json:"name"`
		PartNumber string `json:"partNumber"`
	}{id, name, partNumber})
	if err != nil {
		return "", fmt.Errorf("encode QR payload: %w", err)
	}
	return string(payload), nil
}

// RenderQR renders content as a square PNG of the given pixel size.
func RenderQR(content string, size int) ([]byte, error) {
	png, err := qrcode.Encode(content, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("render QR code: %w", err)
	}
	return png, nil
}
