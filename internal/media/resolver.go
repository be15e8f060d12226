package media

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"medibilling/portal/internal/content"
)

type Uploader interface {
	Upload(ctx context.Context, img content.PendingImage) (string, error)
}

// Resolver turns pending team images into durable strings. It prefers the
// bucket and falls back to an inline data URL when uploading fails.
type Resolver struct {
	uploader Uploader
	logger   *zap.Logger
}

// NewResolver accepts a nil uploader, in which case every image is inlined.
func NewResolver(uploader Uploader, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{uploader: uploader, logger: logger.Named("media")}
}

func (r *Resolver) Resolve(ctx context.Context, img content.Image) (content.Image, error) {
	pending, ok := img.Pending()
	if !ok {
		return img, nil
	}
	mimeType, err := ValidateImage(pending)
	if err != nil {
		return content.Image{}, err
	}
	pending.MIMEType = mimeType
	if r.uploader != nil {
		url, err := r.uploader.Upload(ctx, pending)
		if err == nil {
			return content.RemoteImage(url), nil
		}
		if errors.Is(err, ErrInvalidImage) {
			return content.Image{}, err
		}
		r.logger.Warn("image upload failed, inlining as data url", zap.Error(err))
	}
	return content.RemoteImage(pending.DataURL()), nil
}

func (r *Resolver) ResolveMember(ctx context.Context, member content.TeamMember) (content.TeamMember, error) {
	img, err := r.Resolve(ctx, member.Image)
	if err != nil {
		return content.TeamMember{}, err
	}
	member.Image = img
	return member, nil
}
