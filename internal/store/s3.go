package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog/log"
)

// S3Store keeps audio artifacts in an S3-compatible bucket under
// sessions/<sessionID>/segments/<index>/<speaker>_<index>.mp3.
type S3Store struct {
	s3Client  *s3.Client
	bucket    string
	publicURL string // optional base URL for a public bucket
}

// NewS3Store creates a new S3-backed audio store. A bare endpoint host gets
// its scheme from useSSL.
func NewS3Store(endpoint, region, bucket, accessKey, secretKey string, useSSL bool, publicURL string) (*S3Store, error) {
	configOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")),
	}

	// Custom endpoint for MinIO/LocalStack
	if endpoint != "" {
		if !strings.Contains(endpoint, "://") {
			scheme := "http"
			if useSSL {
				scheme = "https"
			}
			endpoint = scheme + "://" + endpoint
		}
		configOpts = append(configOpts, awsconfig.WithBaseEndpoint(endpoint))
	}

	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), configOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// Path-style addressing for MinIO compatibility. Request checksums are
	// relaxed so S3-compatible backends (e.g. Cloudflare R2) that don't fully
	// support CRC32 headers work correctly.
	s3Client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})

	log.Info().
		Str("endpoint", endpoint).
		Str("bucket", bucket).
		Msg("S3 audio store initialized")

	return &S3Store{
		s3Client:  s3Client,
		bucket:    bucket,
		publicURL: publicURL,
	}, nil
}

func (s *S3Store) keyFor(key Key) string {
	return fmt.Sprintf("sessions/%s/segments/%d/%s.mp3",
		key.SessionID, key.Index, key.Basename())
}

// Put uploads data and returns the object key as the locator.
func (s *S3Store) Put(ctx context.Context, key Key, data []byte) (string, error) {
	objectKey := s.keyFor(key)
	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(objectKey),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String("audio/mpeg"),
		ContentLength: aws.Int64(int64(len(data))),
	}
	if _, err := s.s3Client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	log.Info().
		Str("bucket", s.bucket).
		Str("key", objectKey).
		Int("size_bytes", len(data)).
		Msg("Audio uploaded to S3")

	return objectKey, nil
}

// Get downloads the object for a locator.
func (s *S3Store) Get(ctx context.Context, locator string) ([]byte, error) {
	result, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(locator),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("s3 key %q: %w", locator, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get object from S3: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read S3 object body: %w", err)
	}
	return data, nil
}

// Exists checks the bucket for an artifact with the canonical key layout.
func (s *S3Store) Exists(ctx context.Context, key Key) (string, bool, error) {
	objectKey := s.keyFor(key)
	_, err := s.s3Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to head S3 object: %w", err)
	}
	return objectKey, true, nil
}

// PublicURL returns the public URL for a locator. Empty if publicURL was not configured.
func (s *S3Store) PublicURL(locator string) string {
	if s.publicURL == "" {
		return ""
	}
	if s.publicURL[len(s.publicURL)-1] == '/' {
		return s.publicURL + locator
	}
	return s.publicURL + "/" + locator
}

// GeneratePresignedURL generates a presigned URL for downloading an artifact.
func (s *S3Store) GeneratePresignedURL(locator string, expiration time.Duration) (string, error) {
	presignClient := s3.NewPresignClient(s.s3Client)

	req, err := presignClient.PresignGetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(locator),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = expiration
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	return req.URL, nil
}

// AudioURL returns a direct download URL for a locator, preferring the
// configured public base URL and falling back to a presigned one.
func (s *S3Store) AudioURL(locator string, expiration time.Duration) (string, error) {
	if u := s.PublicURL(locator); u != "" {
		return u, nil
	}
	return s.GeneratePresignedURL(locator, expiration)
}
