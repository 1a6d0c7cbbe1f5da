package resume

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	appconfig "mock-interview/internal/config"
)

const (
	maxFileBytes     = 10 << 20
	downloadAttempts = 3
)

// File - ссылка на загруженный в бакет файл резюме
type File struct {
	Key      string `json:"key"`
	MimeType string `json:"mimeType"`
}

// ObjectGetter - часть S3 API, нужная для скачивания
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Fetcher скачивает резюме из R2/S3 и извлекает текст
type Fetcher struct {
	client ObjectGetter
	bucket string
}

// NewFetcher создает Fetcher поверх готового клиента
func NewFetcher(client ObjectGetter, bucket string) *Fetcher {
	return &Fetcher{client: client, bucket: bucket}
}

// NewR2Fetcher собирает S3 клиент для Cloudflare R2
func NewR2Fetcher(ctx context.Context, cfg appconfig.R2Config) (*Fetcher, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("error creating aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID))
	})
	return NewFetcher(client, cfg.Bucket), nil
}

// Text скачивает файл и возвращает его текст
func (f *Fetcher) Text(ctx context.Context, file File) (string, error) {
	data, err := f.download(ctx, file.Key)
	if err != nil {
		return "", err
	}
	return ExtractText(file.MimeType, data)
}

func (f *Fetcher) download(ctx context.Context, key string) ([]byte, error) {
	var lastErr error
	for i := 0; i < downloadAttempts; i++ {
		data, err := f.get(ctx, key)
		if err == nil {
			return data, nil
		}
		lastErr = err
		log.Printf("⚠️ Failed to download %s (attempt %d): %v", key, i+1, err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(500*(i+1)) * time.Millisecond):
		}
	}
	return nil, fmt.Errorf("after %d attempts: %w", downloadAttempts, lastErr)
}

func (f *Fetcher) get(ctx context.Context, key string) ([]byte, error) {
	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	defer out.Body.Close()

	return readAll(out.Body, maxFileBytes)
}
