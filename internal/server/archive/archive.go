// Package archive keeps a copy of analysed scans and their reports in an
// S3-compatible bucket.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/xrayportal/internal/cryptox"
	"github.com/google/uuid"
)

const sealedContentType = "application/octet-stream"

// sealSalt binds derived archive keys to this application.
var sealSalt = []byte("xrayportal/archive/v1")

// Archiver stores a scan together with its report.
type Archiver interface {
	Store(ctx context.Context, userID int64, image []byte, contentType, report string) (string, error)
}

// Nop discards everything. Used when no bucket is configured.
type Nop struct{}

func (Nop) Store(context.Context, int64, []byte, string, string) (string, error) { return "", nil }

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Config mirrors the S3 settings of the server config.
type Config struct {
	Bucket       string
	Region       string
	AccessKey    string
	SecretKey    string
	BaseEndpoint string
	// SealPassphrase, when set, encrypts both objects before upload.
	SealPassphrase string
}

type S3Archiver struct {
	client  objectPutter
	bucket  string
	sealKey []byte
	now     func() time.Time
}

func NewS3Archiver(ctx context.Context, c Config) (*S3Archiver, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(c.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(c.AccessKey, c.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if c.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(c.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	a := &S3Archiver{client: client, bucket: c.Bucket, now: time.Now}
	if c.SealPassphrase != "" {
		a.sealKey = cryptox.DeriveKey([]byte(c.SealPassphrase), sealSalt)
	}
	return a, nil
}

// StorageKey returns the object key prefix for a new scan of userID.
func StorageKey(userID int64, at time.Time) string {
	return fmt.Sprintf("scans/%d/%04d/%02d/%02d/%v", userID, at.Year(), int(at.Month()), at.Day(), uuid.New())
}

// Store uploads the image as <key>.bin and the report as <key>.txt and
// returns the key. With a seal key both bodies are AES-GCM sealed and
// stored as opaque octet streams.
func (a *S3Archiver) Store(ctx context.Context, userID int64, image []byte, contentType, report string) (string, error) {
	key := StorageKey(userID, a.now().UTC())

	if err := a.put(ctx, key+".bin", image, contentType); err != nil {
		return "", err
	}
	if err := a.put(ctx, key+".txt", []byte(report), "text/plain; charset=utf-8"); err != nil {
		return "", err
	}
	return key, nil
}

func (a *S3Archiver) put(ctx context.Context, key string, body []byte, contentType string) error {
	if a.sealKey != nil {
		sealed, err := cryptox.Seal(body, a.sealKey)
		if err != nil {
			return fmt.Errorf("seal %s: %w", key, err)
		}
		body, contentType = sealed, sealedContentType
	}

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(body))),
	})
	if err != nil {
		return fmt.Errorf("s3 put %s: %w", key, err)
	}
	return nil
}
