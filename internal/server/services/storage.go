package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	sc "github.com/willnicht/willnicht/internal/server/config"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
	deleteObject = func(c *s3.Client, ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
		return c.DeleteObject(ctx, in, optFns...)
	}
)

// ErrUnsupportedContentType is returned for upload slots of anything but the
// image types the client produces.
var ErrUnsupportedContentType = errors.New("unsupported content type")

var uploadContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

const keyPrefix = "listings/"

// StorageKey returns a fresh object key under the user's prefix.
func StorageKey(userID string, now time.Time) string {
	return fmt.Sprintf("%s%s/%04d/%02d/%02d/%s", keyPrefix, userID, now.Year(), now.Month(), now.Day(), uuid.New())
}

// OwnsKey reports whether key was handed out to userID.
func OwnsKey(userID, key string) bool {
	return userID != "" && strings.HasPrefix(key, keyPrefix+userID+"/")
}

// S3Storage keeps listing images in an S3-compatible bucket. Clients upload
// and download through presigned URLs, the backend itself only deletes.
type S3Storage struct {
	config *sc.Config

	mu      sync.Mutex
	client  *s3.Client
	presign *s3.PresignClient
}

func NewS3Storage(config *sc.Config) *S3Storage {
	return &S3Storage{config: config}
}

// clients builds the S3 clients on first use and keeps them afterwards.
// A failed build is retried by the next call.
func (s *S3Storage) clients(ctx context.Context) (*s3.Client, *s3.PresignClient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		return s.client, s.presign, nil
	}

	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(s.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
		o.UsePathStyle = true
	})

	s.client = client
	s.presign = newS3PresignClient(client)
	return s.client, s.presign, nil
}

// PresignPut reserves a key for userID and returns a URL the client can PUT
// the image to until the presign validity runs out.
func (s *S3Storage) PresignPut(ctx context.Context, userID, contentType string) (string, string, error) {
	if !uploadContentTypes[contentType] {
		return "", "", ErrUnsupportedContentType
	}

	_, pc, err := s.clients(ctx)
	if err != nil {
		return "", "", err
	}

	bucket := s.config.S3Bucket
	key := StorageKey(userID, time.Now().UTC())

	req, err := presignPutObject(pc, ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		ContentType: &contentType,
	}, s3.WithPresignExpires(s.config.PresignValidityDuration))
	if err != nil {
		return "", "", err
	}

	return key, req.URL, nil
}

func (s *S3Storage) PresignGet(ctx context.Context, key string) (string, error) {
	_, pc, err := s.clients(ctx)
	if err != nil {
		return "", err
	}

	bucket := s.config.S3Bucket

	req, err := presignGetObject(pc, ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(s.config.PresignValidityDuration))
	if err != nil {
		return "", err
	}

	return req.URL, nil
}

// Delete removes every key and reports the failures joined together.
func (s *S3Storage) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	c, _, err := s.clients(ctx)
	if err != nil {
		return err
	}

	bucket := s.config.S3Bucket

	var errs []error
	for _, key := range keys {
		if _, err := deleteObject(c, ctx, &s3.DeleteObjectInput{
			Bucket: &bucket,
			Key:    aws.String(key),
		}); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}
