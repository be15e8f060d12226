package media

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"

	"medibilling/portal/internal/content"
)

type fakeObjects struct {
	buckets map[string]bool
	objects map[string][]byte
	policy  string

	putErr error
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{buckets: map[string]bool{}, objects: map[string][]byte{}}
}

func (f *fakeObjects) BucketExists(_ context.Context, bucket string) (bool, error) {
	return f.buckets[bucket], nil
}

func (f *fakeObjects) MakeBucket(_ context.Context, bucket string, _ minio.MakeBucketOptions) error {
	f.buckets[bucket] = true
	return nil
}

func (f *fakeObjects) SetBucketPolicy(_ context.Context, _ string, policy string) error {
	f.policy = policy
	return nil
}

func (f *fakeObjects) PutObject(_ context.Context, bucket, name string, r io.Reader, _ int64, _ minio.PutObjectOptions) (minio.UploadInfo, error) {
	if f.putErr != nil {
		return minio.UploadInfo{}, f.putErr
	}
	data, _ := io.ReadAll(r)
	f.objects[bucket+"/"+name] = data
	return minio.UploadInfo{Bucket: bucket, Key: name}, nil
}

func (f *fakeObjects) RemoveObject(_ context.Context, bucket, name string, _ minio.RemoveObjectOptions) error {
	delete(f.objects, bucket+"/"+name)
	return nil
}

func pngBytes(size int) []byte {
	data := make([]byte, size)
	copy(data, []byte("\x89PNG\r\n\x1a\n"))
	return data
}

func TestUploadValidation(t *testing.T) {
	objects := newFakeObjects()
	store := newImageStore(objects, "", "", "https://cdn.example.com/team-images", nil)

	tests := []struct {
		name    string
		img     content.PendingImage
		wantErr bool
	}{
		{name: "six megabytes", img: content.PendingImage{Data: pngBytes(6 << 20), MIMEType: "image/png"}, wantErr: true},
		{name: "text file", img: content.PendingImage{Data: []byte("hello"), MIMEType: "text/plain"}, wantErr: true},
		{name: "empty", img: content.PendingImage{MIMEType: "image/png"}, wantErr: true},
		{name: "one megabyte png", img: content.PendingImage{Data: pngBytes(1 << 20), MIMEType: "image/png", Filename: "a.png"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			url, err := store.Upload(context.Background(), tc.img)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidImage) {
					t.Fatalf("expected ErrInvalidImage, got %v", err)
				}
				if url != "" {
					t.Fatalf("expected no url, got %q", url)
				}
				return
			}
			if err != nil {
				t.Fatalf("upload: %v", err)
			}
			if !strings.HasPrefix(url, "https://cdn.example.com/team-images/") || !strings.HasSuffix(url, ".png") {
				t.Fatalf("unexpected url %q", url)
			}
		})
	}
}

func TestUploadProvisionsBucketOnce(t *testing.T) {
	objects := newFakeObjects()
	store := newImageStore(objects, "team-images", "", "https://cdn.example.com/team-images", nil)
	store.now = func() time.Time { return time.UnixMilli(1700000000000) }

	url, err := store.Upload(context.Background(), content.PendingImage{Data: pngBytes(64), MIMEType: "image/jpg", Filename: "me"})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if !objects.buckets["team-images"] {
		t.Fatal("expected bucket to be created")
	}
	if !strings.Contains(objects.policy, "arn:aws:s3:::team-images/*") {
		t.Fatalf("expected public read policy, got %q", objects.policy)
	}
	name := ObjectName(url)
	if !strings.HasPrefix(name, "1700000000000-") || !strings.HasSuffix(name, ".jpg") {
		t.Fatalf("unexpected object name %q", name)
	}

	objects.policy = ""
	if err := store.EnsureBucket(context.Background()); err != nil {
		t.Fatalf("ensure bucket: %v", err)
	}
	if objects.policy != "" {
		t.Fatal("existing bucket should not be reconfigured")
	}
}

func TestUploadNamesObjectByValidatedType(t *testing.T) {
	objects := newFakeObjects()
	store := newImageStore(objects, "team-images", "", "https://cdn.example.com/team-images", nil)

	url, err := store.Upload(context.Background(), content.PendingImage{Data: pngBytes(64), MIMEType: "image/png", Filename: "x.html"})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if name := ObjectName(url); !strings.HasSuffix(name, ".png") {
		t.Fatalf("expected a .png object name, got %q", name)
	}
	for key := range objects.objects {
		if strings.HasSuffix(key, ".html") {
			t.Fatalf("stored object kept the client extension: %q", key)
		}
	}
}

func TestDeleteUsesTrailingSegment(t *testing.T) {
	objects := newFakeObjects()
	store := newImageStore(objects, "", "", "https://cdn.example.com/team-images", nil)

	url, err := store.Upload(context.Background(), content.PendingImage{Data: pngBytes(32), MIMEType: "image/png"})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if len(objects.objects) != 1 {
		t.Fatalf("expected one object, got %d", len(objects.objects))
	}
	if err := store.Delete(context.Background(), url+"?v=2"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(objects.objects) != 0 {
		t.Fatalf("expected object removed, got %v", objects.objects)
	}
	if err := store.Delete(context.Background(), "data:image/png;base64,AAAA"); !errors.Is(err, ErrNoObjectName) {
		t.Fatalf("expected ErrNoObjectName, got %v", err)
	}
}

func TestValidateImageSniffsMissingType(t *testing.T) {
	mimeType, err := ValidateImage(content.PendingImage{Data: pngBytes(16)})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if mimeType != "image/png" {
		t.Fatalf("expected image/png, got %q", mimeType)
	}
}

type uploaderFunc func(context.Context, content.PendingImage) (string, error)

func (f uploaderFunc) Upload(ctx context.Context, img content.PendingImage) (string, error) {
	return f(ctx, img)
}

func TestResolverFallsBackToDataURL(t *testing.T) {
	failing := uploaderFunc(func(context.Context, content.PendingImage) (string, error) {
		return "", errors.New("bucket unavailable")
	})
	resolver := NewResolver(failing, nil)

	member := content.TeamMember{ID: "t1", Name: "A", Image: content.NewPendingImage(content.PendingImage{Data: pngBytes(8), MIMEType: "image/png"})}
	resolved, err := resolver.ResolveMember(context.Background(), member)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Image.IsPending() || !strings.HasPrefix(resolved.Image.URL(), "data:image/png;base64,") {
		t.Fatalf("expected data url, got %+v", resolved.Image)
	}
}

func TestResolverUsesUploadedURL(t *testing.T) {
	resolver := NewResolver(uploaderFunc(func(_ context.Context, img content.PendingImage) (string, error) {
		if !bytes.HasPrefix(img.Data, []byte("\x89PNG")) {
			t.Fatalf("unexpected payload")
		}
		return "https://cdn/x.png", nil
	}), nil)

	img, err := resolver.Resolve(context.Background(), content.NewPendingImage(content.PendingImage{Data: pngBytes(8), MIMEType: "image/png"}))
	if err != nil || img.URL() != "https://cdn/x.png" {
		t.Fatalf("unexpected result %+v err=%v", img, err)
	}

	kept, err := resolver.Resolve(context.Background(), content.RemoteImage("https://cdn/old.png"))
	if err != nil || kept.URL() != "https://cdn/old.png" {
		t.Fatalf("remote image should pass through, got %+v err=%v", kept, err)
	}
}

func TestResolverRejectsInvalidImage(t *testing.T) {
	resolver := NewResolver(nil, nil)
	_, err := resolver.Resolve(context.Background(), content.NewPendingImage(content.PendingImage{Data: []byte("x"), MIMEType: "text/plain"}))
	if !errors.Is(err, ErrInvalidImage) {
		t.Fatalf("expected ErrInvalidImage, got %v", err)
	}
}
