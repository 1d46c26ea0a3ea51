package service

import (
	"context"
	"fmt"
	"io"
	"log"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// AttachmentStore 保养凭证对象存储
type AttachmentStore struct {
	client *minio.Client
	bucket string
	// 对外访问的基础地址，如 https://files.example.com/bucket
	publicBase string
}

// AttachmentStoreOptions 对象存储配置
type AttachmentStoreOptions struct {
	Endpoint   string
	AccessKey  string
	SecretKey  string
	Bucket     string
	UseSSL     bool
	PublicBase string
}

// NewAttachmentStore 创建对象存储客户端
func NewAttachmentStore(opts AttachmentStoreOptions) (*AttachmentStore, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("attachment store: create client: %w", err)
	}

	return &AttachmentStore{
		client:     client,
		bucket:     opts.Bucket,
		publicBase: strings.TrimRight(opts.PublicBase, "/"),
	}, nil
}

// EnsureBucket 检查并创建存储桶（开发环境便利性）
func (s *AttachmentStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("attachment store: check bucket: %w", err)
	}
	if !exists {
		log.Printf("[Storage] Bucket %s does not exist, creating...", s.bucket)
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("attachment store: create bucket: %w", err)
		}
	}
	return nil
}

// Upload 上传附件并返回稳定访问地址
// 对象名使用 uuid 前缀避免冲突
func (s *AttachmentStore) Upload(ctx context.Context, filename, contentType string, reader io.Reader, size int64) (string, error) {
	objectName := uuid.New().String() + path.Ext(filename)

	_, err := s.client.PutObject(ctx, s.bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("attachment store: put object %s: %w", objectName, err)
	}

	return s.publicBase + "/" + objectName, nil
}
