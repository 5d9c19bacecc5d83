package s3infra

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-bff-auth/internal/config"
	"github.com/go-bff-auth/internal/domain"
	"github.com/google/uuid"
)

// ObjectAPI is the subset of the S3 client the store uses.
type ObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// AvatarStore keeps profile pictures in an S3 bucket under a folder prefix.
type AvatarStore struct {
	client  ObjectAPI
	bucket  string
	folder  string
	baseURL string
}

// NewClient creates an S3 client. When cfg.AWSEndpointURL is set (LocalStack),
// it overrides the endpoint and enables path-style addressing.
func NewClient(awsCfg aws.Config, cfg *config.Config) *s3.Client {
	var clientOpts []func(*s3.Options)
	if cfg.AWSEndpointURL != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.AWSEndpointURL)
			o.UsePathStyle = true
		})
	}
	return s3.NewFromConfig(awsCfg, clientOpts...)
}

// NewAvatarStore builds the store. Object URLs are virtual-hosted style on AWS
// and path style against a custom endpoint.
func NewAvatarStore(client ObjectAPI, cfg *config.Config) *AvatarStore {
	baseURL := fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.S3BucketName, cfg.AWSRegion)
	if cfg.AWSEndpointURL != "" {
		baseURL = strings.TrimRight(cfg.AWSEndpointURL, "/") + "/" + cfg.S3BucketName
	}
	return &AvatarStore{client: client, bucket: cfg.S3BucketName, folder: cfg.S3Folder, baseURL: baseURL}
}

// Upload puts the local file under a fresh key and returns its id and URL.
// The local file is removed whether or not the upload succeeds.
func (s *AvatarStore) Upload(ctx context.Context, localPath, contentType string) (domain.Avatar, error) {
	defer removeLocal(localPath)

	f, err := os.Open(localPath)
	if err != nil {
		return domain.Avatar{}, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	key := path.Join(s.folder, uuid.NewString()+strings.ToLower(filepath.Ext(localPath)))
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return domain.Avatar{}, fmt.Errorf("s3 put object: %w", err)
	}
	return domain.Avatar{ID: key, URL: s.baseURL + "/" + key}, nil
}

// Delete removes the object with the given key.
func (s *AvatarStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(id),
	})
	if err != nil {
		return fmt.Errorf("s3 delete object: %w", err)
	}
	return nil
}

func removeLocal(p string) {
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		slog.Warn("could not remove local upload", "path", p, "err", err)
	}
}
