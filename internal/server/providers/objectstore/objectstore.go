// Package objectstore treats a bucket on any S3-compatible service (AWS,
// MinIO, R2) as a storage account.
//
// Account fields are reused as follows: AccountEmail is the bucket name,
// AccessToken the access key id and RefreshToken the secret access key.
package objectstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/dmitrijs2005/cloudpool/internal/common"
	"github.com/dmitrijs2005/cloudpool/internal/server/models"
	"github.com/dmitrijs2005/cloudpool/internal/server/providers"
)

// Prefix is prepended to every object key written by CloudPool.
const Prefix = "cloudpool/"

// API is the subset of *s3.Client used here.
type API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

var loadDefaultAWSConfig = config.LoadDefaultConfig

type Options struct {
	Region       string
	BaseEndpoint string
	// QuotaBytes is the capacity assigned to each bucket.
	QuotaBytes int64
}

type Store struct {
	opts Options

	mu      sync.Mutex
	clients map[string]API

	// newClient is replaced in tests.
	newClient func(ctx context.Context, account models.Account) (API, error)
}

func New(opts Options) *Store {
	s := &Store{opts: opts, clients: make(map[string]API)}
	s.newClient = s.buildClient
	return s
}

var _ providers.Transport = (*Store)(nil)

func (s *Store) buildClient(ctx context.Context, account models.Account) (API, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(s.opts.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			account.AccessToken,
			account.RefreshToken,
			"",
		)))
	if err != nil {
		return nil, err
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if s.opts.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(s.opts.BaseEndpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// client returns a cached client for the account's bucket and credentials.
func (s *Store) client(ctx context.Context, account models.Account) (API, error) {
	secret := sha256.Sum256([]byte(account.RefreshToken))
	key := account.AccountEmail + "\x00" + account.AccessToken + "\x00" + hex.EncodeToString(secret[:])

	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.clients[key]; ok {
		return c, nil
	}
	c, err := s.newClient(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("s3 client for %s: %w", account.AccountEmail, err)
	}
	s.clients[key] = c
	return c, nil
}

// Quota reports the configured bucket quota minus the bytes already stored
// under Prefix.
func (s *Store) Quota(ctx context.Context, account models.Account) (models.Quota, error) {
	c, err := s.client(ctx, account)
	if err != nil {
		return models.Quota{}, err
	}

	var used int64
	p := s3.NewListObjectsV2Paginator(c, &s3.ListObjectsV2Input{
		Bucket: aws.String(account.AccountEmail),
		Prefix: aws.String(Prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return models.Quota{}, fmt.Errorf("s3 list %s: %w", account.AccountEmail, err)
		}
		for _, obj := range page.Contents {
			used += aws.ToInt64(obj.Size)
		}
	}

	return models.Quota{
		Available: max(s.opts.QuotaBytes-used, 0),
		Used:      used,
		Total:     s.opts.QuotaBytes,
	}, nil
}

func (s *Store) UploadChunk(ctx context.Context, account models.Account, data []byte, name, mimeType string) (providers.UploadedChunk, error) {
	c, err := s.client(ctx, account)
	if err != nil {
		return providers.UploadedChunk{}, err
	}

	key := Prefix + name
	_, err = c.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(account.AccountEmail),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(mimeType),
	})
	if err != nil {
		return providers.UploadedChunk{}, fmt.Errorf("s3 put %s: %w", key, err)
	}
	return providers.UploadedChunk{RemoteID: key, Size: int64(len(data))}, nil
}

func (s *Store) DownloadChunk(ctx context.Context, account models.Account, remoteID string) ([]byte, error) {
	c, err := s.client(ctx, account)
	if err != nil {
		return nil, err
	}

	out, err := c.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(account.AccountEmail),
		Key:    aws.String(remoteID),
	})
	if err != nil {
		if isMissing(err) {
			return nil, fmt.Errorf("s3 get %s: %w: %w", remoteID, common.ErrorNotFound, err)
		}
		return nil, fmt.Errorf("s3 get %s: %w", remoteID, err)
	}
	defer out.Body.Close()

	return io.ReadAll(out.Body)
}

func (s *Store) DeleteChunk(ctx context.Context, account models.Account, remoteID string) error {
	c, err := s.client(ctx, account)
	if err != nil {
		return err
	}

	_, err = c.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(account.AccountEmail),
		Key:    aws.String(remoteID),
	})
	if err != nil && !isMissing(err) {
		return fmt.Errorf("s3 delete %s: %w", remoteID, err)
	}
	return nil
}

// isMissing reports whether err is the service saying the key is absent.
// Some S3-compatible stores only set the error code, not the typed error.
func isMissing(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.(type) {
	case *types.NoSuchKey, *types.NotFound:
		return true
	}
	switch apiErr.ErrorCode() {
	case "NoSuchKey", "NotFound":
		return true
	}
	return false
}
