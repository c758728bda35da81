package imaging

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n")

func TestDetectContentType(t *testing.T) {
	content := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, 1024)...)

	contentType, r, err := DetectContentType(bytes.NewReader(content))
	require.NoError(t, err)
	assert.Equal(t, "image/png", contentType)

	all, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, content, all)

	contentType, _, err = DetectContentType(strings.NewReader("hi"))
	require.NoError(t, err)
	assert.Equal(t, "text/plain; charset=utf-8", contentType)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, ValidateImage("image/png"))
	assert.Error(t, ValidateImage("application/pdf"))
	assert.NoError(t, ValidateAttachment("application/pdf"))
	assert.Error(t, ValidateAttachment("text/html; charset=utf-8"))
}

func TestPartQR(t *testing.T) {
	payload, err := PartQRPayload(12, "Bolt M8", "PN-0012")
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(payload), &decoded))
	assert.EqualValues(t, 12, decoded["id"])
	assert.Equal(t, "Bolt M8", decoded["name"])
	assert.Equal(t, "PN-0012", decoded["partNumber"])

	png, err := RenderQR(payload, 256)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, pngHeader))
}
