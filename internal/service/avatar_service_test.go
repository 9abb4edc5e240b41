package service

import (
	"bytes"
	"context"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"
	"testing"

	"poetportal/internal/models"
	"poetportal/internal/storage"

	"github.com/chai2010/webp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	buf := bytes.NewBuffer(nil)
	require.NoError(t, png.Encode(buf, img))
	return buf.Bytes()
}

// pngWithHeaderSize returns a tiny PNG whose IHDR claims w x h pixels.
func pngWithHeaderSize(t *testing.T, w, h uint32) []byte {
	t.Helper()
	data := pngBytes(t, 1, 1)
	// signature(8) length(4) "IHDR"(4) width(4) height(4) ... crc at 29
	binary.BigEndian.PutUint32(data[16:20], w)
	binary.BigEndian.PutUint32(data[20:24], h)
	binary.BigEndian.PutUint32(data[29:33], crc32.ChecksumIEEE(data[12:29]))
	return data
}

func TestAvatarService_UpdateAvatar(t *testing.T) {
	t.Parallel()

	store, err := storage.NewLocalStorage(storage.LocalConfig{BasePath: t.TempDir(), PublicBaseURL: "/media"})
	require.NoError(t, err)

	var savedURL string
	users := noopUserRepo()
	users.updateFn = func(_ context.Context, id uint, fields map[string]interface{}) (*models.User, error) {
		savedURL = fields["avatar_url"].(string)
		return &models.User{ID: id, AvatarURL: savedURL}, nil
	}

	svc := NewAvatarService(users, store)
	user, err := svc.UpdateAvatar(context.Background(), UpdateAvatarInput{UserID: 4, Content: pngBytes(t, 400, 300)})
	require.NoError(t, err)
	assert.Equal(t, savedURL, user.AvatarURL)
	require.True(t, strings.HasPrefix(savedURL, "/media/avatars/4/"), savedURL)
	require.True(t, strings.HasSuffix(savedURL, ".webp"), savedURL)

	key := strings.TrimPrefix(savedURL, "/media/")
	rc, err := store.Open(context.Background(), key)
	require.NoError(t, err)
	defer rc.Close()
	raw, err := io.ReadAll(rc)
	require.NoError(t, err)

	decoded, err := webp.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, AvatarSize, decoded.Bounds().Dx())
	assert.Equal(t, AvatarSize, decoded.Bounds().Dy())
}

func TestAvatarService_Rejects(t *testing.T) {
	t.Parallel()

	store, err := storage.NewLocalStorage(storage.LocalConfig{BasePath: t.TempDir()})
	require.NoError(t, err)
	svc := NewAvatarService(noopUserRepo(), store)
	ctx := context.Background()

	_, err = svc.UpdateAvatar(ctx, UpdateAvatarInput{UserID: 1})
	assertValidationError(t, err)

	_, err = svc.UpdateAvatar(ctx, UpdateAvatarInput{UserID: 1, Content: []byte("GIF89a not really")})
	assertValidationError(t, err)

	_, err = svc.UpdateAvatar(ctx, UpdateAvatarInput{UserID: 1, Content: []byte("plain text")})
	assertValidationError(t, err)

	big := make([]byte, MaxAvatarUploadBytes+1)
	_, err = svc.UpdateAvatar(ctx, UpdateAvatarInput{UserID: 1, Content: big})
	assertValidationError(t, err)

	for _, dims := range [][2]uint32{{40000, 40000}, {MaxAvatarDimension + 1, 10}, {7000, 7000}} {
		huge := pngWithHeaderSize(t, dims[0], dims[1])
		require.Less(t, len(huge), 1024)
		_, err = svc.UpdateAvatar(ctx, UpdateAvatarInput{UserID: 1, Content: huge})
		assertValidationError(t, err)
	}
}

func TestWithinAvatarBounds(t *testing.T) {
	t.Parallel()

	assert.True(t, withinAvatarBounds(1, 1))
	assert.True(t, withinAvatarBounds(MaxAvatarDimension, 4000))
	assert.False(t, withinAvatarBounds(MaxAvatarDimension+1, 1))
	assert.False(t, withinAvatarBounds(7000, 7000))
	assert.False(t, withinAvatarBounds(0, 10))
}

func TestAvatarService_RemovesObjectWhenUpdateFails(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := storage.NewLocalStorage(storage.LocalConfig{BasePath: dir})
	require.NoError(t, err)

	var key string
	users := noopUserRepo()
	users.updateFn = func(_ context.Context, id uint, fields map[string]interface{}) (*models.User, error) {
		key = strings.TrimPrefix(fields["avatar_url"].(string), "/media/")
		return nil, models.NewNotFoundError("User", id)
	}

	_, err = NewAvatarService(users, store).UpdateAvatar(context.Background(), UpdateAvatarInput{UserID: 9, Content: pngBytes(t, 64, 64)})
	assertCode(t, err, models.CodeNotFound)

	exists, err := store.Exists(context.Background(), key)
	require.NoError(t, err)
	assert.False(t, exists)
}
