// Package media stores team images in an S3-compatible bucket.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"medibilling/portal/internal/content"
	"medibilling/portal/internal/util"
)

const (
	DefaultBucket = "team-images"
	// MaxImageBytes is the per-object ceiling, matching the bucket provisioning limit.
	MaxImageBytes = 5 << 20
)

var (
	ErrInvalidImage = errors.New("invalid image")
	ErrNoObjectName = errors.New("image url has no object name")
)

var allowedTypes = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/gif":  "gif",
	"image/webp": "webp",
}

// AllowedTypes lists the accepted MIME types.
func AllowedTypes() []string {
	return []string{"image/jpeg", "image/png", "image/gif", "image/webp"}
}

type objectClient interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	SetBucketPolicy(ctx context.Context, bucketName, policy string) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

type Options struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Region        string
	UseSSL        bool
	Bucket        string
	PublicBaseURL string
}

type ImageStore struct {
	client  objectClient
	bucket  string
	region  string
	baseURL string
	logger  *zap.Logger
	now     func() time.Time
}

func NewImageStore(opts Options, logger *zap.Logger) (*ImageStore, error) {
	endpoint := strings.TrimSpace(opts.Endpoint)
	if endpoint == "" {
		return nil, errors.New("object storage endpoint is required")
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create object storage client: %w", err)
	}

	baseURL := strings.TrimRight(strings.TrimSpace(opts.PublicBaseURL), "/")
	if baseURL == "" {
		scheme := "http"
		if opts.UseSSL {
			scheme = "https"
		}
		baseURL = scheme + "://" + endpoint + "/" + bucketOrDefault(opts.Bucket)
	}
	return newImageStore(client, opts.Bucket, opts.Region, baseURL, logger), nil
}

func newImageStore(client objectClient, bucket, region, baseURL string, logger *zap.Logger) *ImageStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImageStore{
		client:  client,
		bucket:  bucketOrDefault(bucket),
		region:  region,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger.Named("media"),
		now:     time.Now,
	}
}

func (s *ImageStore) Bucket() string { return s.bucket }

// EnsureBucket creates the bucket with a public-read policy if it does not
// exist yet. Calling it on an existing bucket is a no-op.
func (s *ImageStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
		return fmt.Errorf("create bucket %s: %w", s.bucket, err)
	}
	if err := s.client.SetBucketPolicy(ctx, s.bucket, publicReadPolicy(s.bucket)); err != nil {
		return fmt.Errorf("set bucket policy %s: %w", s.bucket, err)
	}
	s.logger.Info("bucket created", zap.String("bucket", s.bucket))
	return nil
}

// Upload validates img and stores it under a fresh object name, returning the
// public URL of the stored object.
func (s *ImageStore) Upload(ctx context.Context, img content.PendingImage) (string, error) {
	mimeType, err := ValidateImage(img)
	if err != nil {
		return "", err
	}
	if err := s.EnsureBucket(ctx); err != nil {
		return "", err
	}

	name := s.objectName(mimeType)
	_, err = s.client.PutObject(ctx, s.bucket, name, bytes.NewReader(img.Data), int64(len(img.Data)), minio.PutObjectOptions{
		ContentType:  mimeType,
		CacheControl: "max-age=3600",
	})
	if err != nil {
		return "", fmt.Errorf("upload image: %w", err)
	}
	s.logger.Info("image uploaded", zap.String("object", name), zap.Int("bytes", len(img.Data)))
	return s.baseURL + "/" + name, nil
}

// Delete removes the object named by the last path segment of imageURL.
func (s *ImageStore) Delete(ctx context.Context, imageURL string) error {
	name := ObjectName(imageURL)
	if name == "" {
		return ErrNoObjectName
	}
	if err := s.client.RemoveObject(ctx, s.bucket, name, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete image %s: %w", name, err)
	}
	return nil
}

// ObjectName extracts the trailing path segment of an image URL.
func ObjectName(imageURL string) string {
	imageURL = strings.TrimSpace(imageURL)
	if imageURL == "" || strings.HasPrefix(imageURL, "data:") {
		return ""
	}
	if parsed, err := url.Parse(imageURL); err == nil && parsed.Path != "" {
		imageURL = parsed.Path
	}
	name := path.Base(imageURL)
	if name == "." || name == "/" {
		return ""
	}
	return name
}

// ValidateImage checks the size ceiling and MIME allow-list and returns the
// effective MIME type. An empty declared type is sniffed from the data.
func ValidateImage(img content.PendingImage) (string, error) {
	if len(img.Data) == 0 {
		return "", fmt.Errorf("%w: empty file", ErrInvalidImage)
	}
	if len(img.Data) > MaxImageBytes {
		return "", fmt.Errorf("%w: %d bytes exceeds the %d byte limit", ErrInvalidImage, len(img.Data), MaxImageBytes)
	}
	mimeType := normalizeMIME(img.MIMEType)
	if mimeType == "" {
		mimeType = normalizeMIME(http.DetectContentType(img.Data))
	}
	if _, ok := allowedTypes[mimeType]; !ok {
		return "", fmt.Errorf("%w: type %q is not allowed", ErrInvalidImage, img.MIMEType)
	}
	return mimeType, nil
}

// objectName derives the extension from the validated type, never from the
// client's filename.
func (s *ImageStore) objectName(mimeType string) string {
	return strconv.FormatInt(s.now().UnixMilli(), 10) + "-" + util.NewID("") + "." + allowedTypes[mimeType]
}

func normalizeMIME(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if i := strings.Index(value, ";"); i >= 0 {
		value = strings.TrimSpace(value[:i])
	}
	if value == "image/jpg" {
		return "image/jpeg"
	}
	return value
}

func bucketOrDefault(bucket string) string {
	if strings.TrimSpace(bucket) == "" {
		return DefaultBucket
	}
	return strings.TrimSpace(bucket)
}

func publicReadPolicy(bucket string) string {
	return `{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"AWS":["*"]},"Action":["s3:GetObject"],"Resource":["arn:aws:s3:::` + bucket + `/*"]}]}`
}
