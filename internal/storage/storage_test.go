package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateObjectName(t *testing.T) {
	a := GenerateObjectName(7, "Floor Plan.PNG")
	b := GenerateObjectName(7, "Floor Plan.PNG")

	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "users/7/"))
	assert.True(t, strings.HasSuffix(a, ".png"))

	owner, ok := ObjectOwner(a)
	require.True(t, ok)
	assert.Equal(t, uint(7), owner)

	_, ok = ObjectOwner("elsewhere/file.png")
	assert.False(t, ok)
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	name, err := store.UploadFromReader(ctx, "users/1/a.txt", strings.NewReader("hello"), 5, "text/plain")
	require.NoError(t, err)

	rc, info, err := store.GetObject(ctx, name)
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))
	assert.Equal(t, "text/plain", info.ContentType)
	assert.Equal(t, int64(5), info.Size)

	require.NoError(t, store.DeleteFile(ctx, name))
	_, _, err = store.GetObject(ctx, name)
	assert.ErrorIs(t, err, ErrObjectNotFound)

	_, err = store.UploadFromReader(ctx, "users/1/b.txt", strings.NewReader("hello"), 3, "text/plain")
	assert.Error(t, err)
}
