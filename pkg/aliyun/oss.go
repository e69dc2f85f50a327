package aliyun

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aliyun/alibabacloud-oss-go-sdk-v2/oss"
	"github.com/aliyun/alibabacloud-oss-go-sdk-v2/oss/credentials"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"highlight-ai/log"
)

type OssClient struct {
	*oss.Client
	Bucket     string
	ExpireDays int
	now        func() time.Time
}

// NewOssClient builds an OSS v2 client. endpoint may be empty, in which case
// the SDK derives it from region.
func NewOssClient(accessKeyID, accessKeySecret, region, endpoint, bucket string, expireDays int) *OssClient {
	credProvider := credentials.NewStaticCredentialsProvider(accessKeyID, accessKeySecret)

	cfg := oss.LoadDefaultConfig().
		WithCredentialsProvider(credProvider).
		WithRegion(region)
	if endpoint != "" {
		cfg = cfg.WithEndpoint(endpoint)
	}

	return &OssClient{
		Client:     oss.NewClient(cfg),
		Bucket:     bucket,
		ExpireDays: expireDays,
		now:        time.Now,
	}
}

func (o *OssClient) objectKey(ext string) string {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return path.Join("highlights", o.now().Format("20060102"), uuid.New().String()+ext)
}

func (o *OssClient) Put(ctx context.Context, r io.Reader, size int64, contentType, ext string) (string, error) {
	key := o.objectKey(ext)
	req := &oss.PutObjectRequest{
		Bucket:      oss.Ptr(o.Bucket),
		Key:         oss.Ptr(key),
		Body:        r,
		ContentType: oss.Ptr(contentType),
	}
	if size > 0 {
		req.ContentLength = oss.Ptr(size)
	}
	if _, err := o.Client.PutObject(ctx, req); err != nil {
		return "", fmt.Errorf("OSS上传失败 put %s: %w", key, err)
	}
	log.GetLogger().Debug("OSS object uploaded", zap.String("bucket", o.Bucket), zap.String("key", key))
	return key, nil
}

func (o *OssClient) PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	result, err := o.Client.Presign(ctx, &oss.GetObjectRequest{
		Bucket: oss.Ptr(o.Bucket),
		Key:    oss.Ptr(key),
	}, oss.PresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("OSS预签名失败 presign %s: %w", key, err)
	}
	return result.URL, nil
}

func (o *OssClient) Delete(ctx context.Context, key string) error {
	_, err := o.Client.DeleteObject(ctx, &oss.DeleteObjectRequest{
		Bucket: oss.Ptr(o.Bucket),
		Key:    oss.Ptr(key),
	})
	if err != nil {
		return fmt.Errorf("OSS删除失败 delete %s: %w", key, err)
	}
	return nil
}

// EnsureBucket creates the bucket if needed and sets the expiry lifecycle.
func (o *OssClient) EnsureBucket(ctx context.Context) error {
	exists, err := o.Client.IsBucketExist(ctx, o.Bucket)
	if err != nil {
		return fmt.Errorf("检查OSS存储桶失败 %s: %w", o.Bucket, err)
	}
	if !exists {
		if _, err := o.Client.PutBucket(ctx, &oss.PutBucketRequest{Bucket: oss.Ptr(o.Bucket)}); err != nil {
			return fmt.Errorf("创建OSS存储桶失败 %s: %w", o.Bucket, err)
		}
		log.GetLogger().Info("已创建OSS存储桶 bucket created", zap.String("bucket", o.Bucket))
	}

	if o.ExpireDays <= 0 {
		return nil
	}
	_, err = o.Client.PutBucketLifecycle(ctx, &oss.PutBucketLifecycleRequest{
		Bucket: oss.Ptr(o.Bucket),
		LifecycleConfiguration: &oss.LifecycleConfiguration{
			Rules: []oss.LifecycleRule{{
				ID:     oss.Ptr("expire-artifacts"),
				Prefix: oss.Ptr("highlights/"),
				Status: oss.Ptr("Enabled"),
				Expiration: &oss.LifecycleRuleExpiration{
					Days: oss.Ptr(int32(o.ExpireDays)),
				},
			}},
		},
	})
	if err != nil {
		return fmt.Errorf("设置OSS生命周期失败 %s: %w", o.Bucket, err)
	}
	return nil
}
