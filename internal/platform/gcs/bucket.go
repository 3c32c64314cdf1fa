package gcs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/orasync/orasync-backend/internal/platform/envutil"
	"github.com/orasync/orasync-backend/internal/platform/logger"
)

type BucketCategory string

const (
	BucketCategoryImage BucketCategory = "image"
	BucketCategoryAudio BucketCategory = "audio"
)

type bucketConfig struct {
	name      string
	cdnDomain string
}

// BucketService stores generated media and hands out client-fetchable URLs.
type BucketService interface {
	UploadBytes(ctx context.Context, category BucketCategory, key string, data []byte) error
	// SignedURL returns a V4 GET URL valid for the configured TTL. Falls back
	// to the public URL when signing is unavailable (e.g. emulator).
	SignedURL(category BucketCategory, key string) (string, error)
	GetPublicURL(category BucketCategory, key string) string
}

type bucketService struct {
	log           *logger.Logger
	storageClient *storage.Client
	imageBucket   bucketConfig
	audioBucket   bucketConfig
	signedTTL     time.Duration
}

func NewBucketService(log *logger.Logger) (BucketService, error) {
	serviceLog := log.With("service", "BucketService")

	imageBucketName := os.Getenv("IMAGE_GCS_BUCKET_NAME")
	audioBucketName := os.Getenv("AUDIO_GCS_BUCKET_NAME")
	if imageBucketName == "" {
		return nil, fmt.Errorf("missing env var IMAGE_GCS_BUCKET_NAME")
	}
	if audioBucketName == "" {
		audioBucketName = imageBucketName
	}

	ctx := context.Background()
	var opts []option.ClientOption
	if creds := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")); creds != "" {
		opts = append(opts, option.WithCredentialsFile(creds))
	}
	opts = append(opts, option.WithScopes(storage.ScopeReadWrite))
	stClient, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	ttl := envutil.Duration("SIGNED_URL_TTL", time.Hour)

	serviceLog.Info("Object storage initialized",
		"image_bucket", imageBucketName,
		"audio_bucket", audioBucketName,
		"signed_url_ttl", ttl.String(),
	)

	return &bucketService{
		log:           serviceLog,
		storageClient: stClient,
		imageBucket: bucketConfig{
			name:      imageBucketName,
			cdnDomain: os.Getenv("IMAGE_CDN_DOMAIN"),
		},
		audioBucket: bucketConfig{
			name:      audioBucketName,
			cdnDomain: os.Getenv("AUDIO_CDN_DOMAIN"),
		},
		signedTTL: ttl,
	}, nil
}

func (bs *bucketService) getBucketConfig(category BucketCategory) (bucketConfig, error) {
	switch category {
	case BucketCategoryImage:
		return bs.imageBucket, nil
	case BucketCategoryAudio:
		return bs.audioBucket, nil
	default:
		return bucketConfig{}, fmt.Errorf("unknown bucket category: %s", category)
	}
}

func (bs *bucketService) UploadBytes(ctx context.Context, category BucketCategory, key string, data []byte) error {
	cfg, err := bs.getBucketConfig(category)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := bs.storageClient.Bucket(cfg.name).Object(key).NewWriter(ctx)
	if ct := contentTypeForKey(key); ct != "" {
		w.ContentType = ct
	}
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write data to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close GCS writer: %w", err)
	}
	return nil
}

func contentTypeForKey(key string) string {
	s := strings.ToLower(strings.TrimSpace(key))
	switch {
	case strings.HasSuffix(s, ".png"):
		return "image/png"
	case strings.HasSuffix(s, ".jpg"), strings.HasSuffix(s, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(s, ".webp"):
		return "image/webp"
	case strings.HasSuffix(s, ".mp3"):
		return "audio/mpeg"
	case strings.HasSuffix(s, ".wav"):
		return "audio/wav"
	case strings.HasSuffix(s, ".json"):
		return "application/json"
	default:
		return ""
	}
}

func (bs *bucketService) SignedURL(category BucketCategory, key string) (string, error) {
	cfg, err := bs.getBucketConfig(category)
	if err != nil {
		return "", err
	}
	u, err := bs.storageClient.Bucket(cfg.name).SignedURL(key, &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  "GET",
		Expires: time.Now().Add(bs.signedTTL),
	})
	if err != nil {
		bs.log.Warn("Signed URL generation failed, using public URL", "key", key, "error", err.Error())
		return bs.GetPublicURL(category, key), nil
	}
	return u, nil
}

func (bs *bucketService) GetPublicURL(category BucketCategory, key string) string {
	cfg, err := bs.getBucketConfig(category)
	if err != nil {
		return key
	}
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if cfg.cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s", cfg.cdnDomain, key)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", cfg.name, key)
}
