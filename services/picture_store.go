package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"recipebox/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
)

// PictureStore persists uploaded recipe pictures and resolves their URLs.
type PictureStore interface {
	Save(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
	URL(key string) string
}

// PictureKey builds a unique storage key under models.PictureDir from an
// uploaded file name: "Hummus SM.JPG" -> "photo_recipes/hummus_sm_1a2b3c4d.jpg".
func PictureKey(filename string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	ext := strings.ToLower(path.Ext(base))
	stem := strings.TrimSuffix(base, path.Ext(base))

	var b strings.Builder
	for _, r := range strings.ToLower(stem) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ' || r == '.':
			b.WriteRune('_')
		}
	}
	clean := strings.Trim(b.String(), "_")
	if clean == "" {
		clean = "picture"
	}
	if len(ext) > 8 || strings.ContainsAny(ext, " /") {
		ext = ""
	}

	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s/%s_%s%s", models.PictureDir, clean, suffix, ext)
}

// LocalPictureStore writes pictures below Root and serves them from BaseURL.
type LocalPictureStore struct {
	Root    string
	BaseURL string
}

func NewLocalPictureStore(root, baseURL string) *LocalPictureStore {
	return &LocalPictureStore{Root: root, BaseURL: strings.TrimSuffix(baseURL, "/")}
}

func (s *LocalPictureStore) Save(ctx context.Context, key string, body io.Reader, _ string) (string, error) {
	dst := filepath.Join(s.Root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", err
	}
	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		os.Remove(dst)
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return key, nil
}

func (s *LocalPictureStore) URL(key string) string {
	return s.BaseURL + "/" + key
}

type s3Putter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3PictureStore uploads pictures to a bucket. Objects are public-read and
// addressed through PublicURL (a CDN in front of the bucket) when set.
type S3PictureStore struct {
	client    s3Putter
	bucket    string
	region    string
	publicURL string
}

func NewS3PictureStore(client s3Putter, bucket, region, publicURL string) *S3PictureStore {
	return &S3PictureStore{
		client:    client,
		bucket:    bucket,
		region:    region,
		publicURL: strings.TrimSuffix(publicURL, "/"),
	}
}

func (s *S3PictureStore) Save(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
		ACL:         s3types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}
	return key, nil
}

func (s *S3PictureStore) URL(key string) string {
	if s.publicURL != "" {
		return s.publicURL + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}
