package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"strings"

	"poetportal/internal/models"
	"poetportal/internal/observability"
	"poetportal/internal/repository"
	"poetportal/internal/storage"

	"github.com/chai2010/webp"
	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	AvatarSize           = 256
	AvatarQuality        = 85
	MaxAvatarUploadBytes = 5 << 20
	MaxAvatarDimension   = 8192
	MaxAvatarPixels      = 40_000_000
)

// AvatarService normalises uploaded avatars to a square WebP and stores them.
type AvatarService struct {
	userRepo repository.UserRepository
	store    storage.Storage
	maxBytes int64
}

type UpdateAvatarInput struct {
	UserID  uint
	Content []byte
}

func NewAvatarService(userRepo repository.UserRepository, store storage.Storage) *AvatarService {
	return &AvatarService{
		userRepo: userRepo,
		store:    store,
		maxBytes: MaxAvatarUploadBytes,
	}
}

func (s *AvatarService) UpdateAvatar(ctx context.Context, in UpdateAvatarInput) (*models.User, error) {
	if len(in.Content) == 0 {
		return nil, models.NewValidationError("No file uploaded")
	}
	if int64(len(in.Content)) > s.maxBytes {
		return nil, models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxBytes/(1024*1024)))
	}

	detected := http.DetectContentType(in.Content)
	if !isAllowedAvatarMIME(detected) {
		return nil, models.NewValidationError("Avatar must be a JPEG, PNG or WebP image")
	}
	// Header dimensions are checked before the decoder allocates pixel buffers.
	cfg, format, err := image.DecodeConfig(bytes.NewReader(in.Content))
	if err != nil {
		return nil, models.NewValidationError("Invalid image file")
	}
	switch format {
	case "jpeg", "png", "webp":
	default:
		return nil, models.NewValidationError("Unsupported image format")
	}
	if !withinAvatarBounds(cfg.Width, cfg.Height) {
		return nil, models.NewValidationError(fmt.Sprintf("Image dimensions too large (max %dx%d)", MaxAvatarDimension, MaxAvatarDimension))
	}

	decoded, _, err := image.Decode(bytes.NewReader(in.Content))
	if err != nil {
		return nil, models.NewValidationError("Invalid image file")
	}

	encoded, err := encodeAvatar(decoded)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	key := fmt.Sprintf("avatars/%d/%s.webp", in.UserID, uuid.NewString())
	if err := s.store.Put(ctx, key, bytes.NewReader(encoded), int64(len(encoded)), "image/webp"); err != nil {
		return nil, models.NewInternalError(err)
	}

	user, err := s.userRepo.Update(ctx, in.UserID, map[string]interface{}{"avatar_url": s.store.URL(key)})
	if err != nil {
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			observability.Ctx(ctx).Warn().Err(delErr).Str("key", key).Msg("failed to remove orphaned avatar")
		}
		return nil, err
	}
	return user, nil
}

// encodeAvatar centre-crops img to a square and scales it to AvatarSize.
func encodeAvatar(img image.Image) ([]byte, error) {
	square := cropSquare(img)
	dst := image.NewRGBA(image.Rect(0, 0, AvatarSize, AvatarSize))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), square, square.Bounds(), xdraw.Over, nil)

	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, dst, &webp.Options{Quality: AvatarQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func cropSquare(src image.Image) image.Image {
	b := src.Bounds()
	side := b.Dx()
	if b.Dy() < side {
		side = b.Dy()
	}
	if side <= 0 {
		return src
	}
	x := b.Min.X + (b.Dx()-side)/2
	y := b.Min.Y + (b.Dy()-side)/2

	dst := image.NewRGBA(image.Rect(0, 0, side, side))
	draw.Draw(dst, dst.Bounds(), src, image.Point{X: x, Y: y}, draw.Src)
	return dst
}

func withinAvatarBounds(w, h int) bool {
	if w <= 0 || h <= 0 || w > MaxAvatarDimension || h > MaxAvatarDimension {
		return false
	}
	return int64(w)*int64(h) <= MaxAvatarPixels
}

func isAllowedAvatarMIME(contentType string) bool {
	switch strings.ToLower(strings.TrimSpace(contentType)) {
	case "image/jpeg", "image/png", "image/webp":
		return true
	default:
		return false
	}
}
