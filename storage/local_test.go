package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "photo.jpg", want: "photo.jpg"},
		{in: "  photo.png ", want: "photo.png"},
		{in: "../etc/passwd", wantErr: true},
		{in: "a/b.jpg", wantErr: true},
		{in: "..\\secret.jpg", wantErr: true},
		{in: "..", wantErr: true},
		{in: ".hidden", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := SanitizeFilename(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidFilename)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLocalStore_UploadOpenDelete(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(LocalStoreConfig{Dir: t.TempDir(), PublicBaseURL: "https://api.example.com/"})
	require.NoError(t, err)

	res, err := store.Upload(ctx, "abc.png", "image/png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/uploads/abc.png", res.Location)

	rc, info, err := store.Open(ctx, "abc.png")
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "png-bytes", string(body))
	assert.Equal(t, int64(len("png-bytes")), info.Size)
	assert.Equal(t, "image/png", info.ContentType)

	require.NoError(t, store.Delete(ctx, "abc.png"))
	assert.ErrorIs(t, store.Delete(ctx, "abc.png"), ErrFileNotFound)

	_, _, err = store.Open(ctx, "abc.png")
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestLocalStore_RelativeURLWithoutBase(t *testing.T) {
	store, err := NewLocalStore(LocalStoreConfig{Dir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, "/uploads/x.jpg", store.GetPublicURL("x.jpg"))
}

func TestLocalStore_RejectsTraversal(t *testing.T) {
	store, err := NewLocalStore(LocalStoreConfig{Dir: t.TempDir()})
	require.NoError(t, err)

	_, err = store.Upload(context.Background(), "../x.jpg", "image/jpeg", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrInvalidFilename)
}
