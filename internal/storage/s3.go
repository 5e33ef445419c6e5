package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"
	"sync"

	"sitebuilder-backend/internal/config"
	"sitebuilder-backend/internal/project"
	"sitebuilder-backend/internal/utils"
	"sitebuilder-backend/pkg/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Storage keeps project files as objects <bucket>/<projectId>/<path>.
type S3Storage struct {
	client     *minio.Client
	bucketName string
	region     string
	initOnce   sync.Once
	initErr    error
}

func NewS3Storage(cfg config.S3Config) (*S3Storage, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("%w: s3 endpoint is required", ErrStorageInit)
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("%w: s3 access key and secret key are required", ErrStorageInit)
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("%w: s3 bucket is required", ErrStorageInit)
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(access, secret, ""),
		Secure:    cfg.UseSSL,
		Region:    region,
		Transport: utils.NewTransport(),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageInit, err)
	}

	return &S3Storage{
		client:     client,
		bucketName: bucket,
		region:     region,
	}, nil
}

func (s *S3Storage) ensureBucket(ctx context.Context) error {
	s.initOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucketName)
		if err != nil {
			s.initErr = err
			return
		}
		if exists {
			return
		}
		s.initErr = s.client.MakeBucket(ctx, s.bucketName, minio.MakeBucketOptions{Region: s.region})
	})
	return s.initErr
}

func (s *S3Storage) Init(ctx context.Context) error {
	if err := s.ensureBucket(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageInit, err)
	}
	logger.Infof("S3 storage initialized, bucket %s", s.bucketName)
	return nil
}

func (s *S3Storage) Close() error {
	return nil
}

func (s *S3Storage) CreateProject(ctx context.Context, projectID string, files *project.Files) error {
	if err := validateProjectID(projectID); err != nil {
		return err
	}
	var firstErr error
	files.Each(func(f project.ProjectFile) {
		if firstErr == nil {
			firstErr = s.WriteFile(ctx, projectID, f.Path, f.Content)
		}
	})
	return firstErr
}

func (s *S3Storage) WriteFile(ctx context.Context, projectID, filePath, content string) error {
	cleaned, err := cleanFilePath(projectID, filePath)
	if err != nil {
		return err
	}
	if err := s.ensureBucket(ctx); err != nil {
		return fmt.Errorf("%w: ensure bucket: %v", ErrFileOperation, err)
	}

	data := []byte(content)
	_, err = s.client.PutObject(ctx, s.bucketName, objectKey(projectID, cleaned), bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType(cleaned),
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}
	return nil
}

func (s *S3Storage) ReadFile(ctx context.Context, projectID, filePath string) ([]byte, error) {
	cleaned, err := cleanFilePath(projectID, filePath)
	if err != nil {
		return nil, err
	}
	if err := s.ensureBucket(ctx); err != nil {
		return nil, fmt.Errorf("%w: ensure bucket: %v", ErrFileOperation, err)
	}

	obj, err := s.client.GetObject(ctx, s.bucketName, objectKey(projectID, cleaned), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileOperation, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" || errResp.Code == "NoSuchBucket" {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrFileOperation, err)
	}
	return data, nil
}

func (s *S3Storage) LoadProject(ctx context.Context, projectID string) (*project.Files, error) {
	if err := validateProjectID(projectID); err != nil {
		return nil, err
	}
	if err := s.ensureBucket(ctx); err != nil {
		return nil, fmt.Errorf("%w: ensure bucket: %v", ErrFileOperation, err)
	}

	prefix := projectID + "/"
	var keys []string
	for obj := range s.client.ListObjects(ctx, s.bucketName, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFileOperation, obj.Err)
		}
		if obj.Key == "" || strings.HasSuffix(obj.Key, "/") {
			continue
		}
		keys = append(keys, strings.TrimPrefix(obj.Key, prefix))
	}
	if len(keys) == 0 {
		return nil, ErrProjectNotFound
	}

	files := project.NewFiles()
	for _, key := range keys {
		data, err := s.ReadFile(ctx, projectID, key)
		if err != nil {
			return nil, err
		}
		files.Put(project.ProjectFile{Path: key, Content: string(data), Type: project.TypeForPath(key)})
	}
	return files, nil
}

func objectKey(projectID, filePath string) string {
	return projectID + "/" + strings.TrimLeft(filePath, "/")
}

func contentType(filePath string) string {
	if ct := mime.TypeByExtension(path.Ext(filePath)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
