// Package minio is an S3-compatible artifact store (MinIO, AWS S3, R2).
package minio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"highlight-ai/log"
)

// Config S3 兼容存储配置
type Config struct {
	Endpoint        string
	Region          string
	AccessKeyId     string
	AccessKeySecret string
	Bucket          string
	ForcePathStyle  bool
	ExpireDays      int
}

type Store struct {
	cfg      Config
	client   *s3.S3
	uploader *s3manager.Uploader
	now      func() time.Time
}

func NewStore(cfg Config) (*Store, error) {
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	awsCfg := &aws.Config{
		Credentials:      credentials.NewStaticCredentials(cfg.AccessKeyId, cfg.AccessKeySecret, ""),
		Region:           aws.String(cfg.Region),
		S3ForcePathStyle: aws.Bool(cfg.ForcePathStyle),
	}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
		if strings.HasPrefix(cfg.Endpoint, "http://") {
			awsCfg.DisableSSL = aws.Bool(true)
		}
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("创建S3会话失败: %w", err)
	}
	return &Store{
		cfg:      cfg,
		client:   s3.New(sess),
		uploader: s3manager.NewUploader(sess),
		now:      time.Now,
	}, nil
}

// objectKey groups objects by day: 20240102/<uuid><ext>.
func (s *Store) objectKey(ext string) string {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return path.Join(s.now().Format("20060102"), uuid.New().String()+ext)
}

func (s *Store) Put(ctx context.Context, r io.Reader, size int64, contentType, ext string) (string, error) {
	key := s.objectKey(ext)
	_, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		Body:        r,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("上传对象失败 put %s: %w", key, err)
	}
	log.GetLogger().Debug("S3 object uploaded", zap.String("bucket", s.cfg.Bucket), zap.String("key", key), zap.Int64("size", size))
	return key, nil
}

func (s *Store) PresignedURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	req, _ := s.client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	})
	url, err := req.Presign(ttl)
	if err != nil {
		return "", fmt.Errorf("生成预签名URL失败: %w", err)
	}
	return url, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("删除对象失败 delete %s: %w", key, err)
	}
	return nil
}

// EnsureBucket creates the bucket when missing and installs an expiry rule
// so published artifacts age out.
func (s *Store) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucketWithContext(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.cfg.Bucket)})
	if err != nil {
		var aerr awserr.RequestFailure
		if !errors.As(err, &aerr) || aerr.StatusCode() != 404 {
			return fmt.Errorf("检查存储桶失败 head bucket %s: %w", s.cfg.Bucket, err)
		}
		if _, err := s.client.CreateBucketWithContext(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.cfg.Bucket)}); err != nil {
			return fmt.Errorf("创建存储桶失败 create bucket %s: %w", s.cfg.Bucket, err)
		}
		log.GetLogger().Info("已创建存储桶 bucket created", zap.String("bucket", s.cfg.Bucket))
	}

	if s.cfg.ExpireDays <= 0 {
		return nil
	}
	_, err = s.client.PutBucketLifecycleConfigurationWithContext(ctx, &s3.PutBucketLifecycleConfigurationInput{
		Bucket: aws.String(s.cfg.Bucket),
		LifecycleConfiguration: &s3.BucketLifecycleConfiguration{
			Rules: []*s3.LifecycleRule{{
				ID:         aws.String("expire-artifacts"),
				Status:     aws.String(s3.ExpirationStatusEnabled),
				Filter:     &s3.LifecycleRuleFilter{Prefix: aws.String("")},
				Expiration: &s3.LifecycleExpiration{Days: aws.Int64(int64(s.cfg.ExpireDays))},
			}},
		},
	})
	if err != nil {
		return fmt.Errorf("设置生命周期失败 put lifecycle %s: %w", s.cfg.Bucket, err)
	}
	return nil
}
