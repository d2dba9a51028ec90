package service

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"path/filepath"
	"time"

	"StoryToVideo-gateway/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Uploader 把本地成片同步到 MinIO。对象存储是可选能力：
// 未配置 endpoint 时 NewUploader 返回 nil，调用方按本地文件服务兜底。
type Uploader struct {
	client *minio.Client
	bucket string
}

func NewUploader(cfg *config.Config) (*Uploader, error) {
	mc := cfg.MinIO
	if mc.Endpoint == "" {
		return nil, nil
	}
	client, err := minio.New(mc.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(mc.AccessKey, mc.SecretKey, ""),
		Secure: mc.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("MinIO 初始化失败: %w", err)
	}
	log.Println("MinIO 连接成功")
	return &Uploader{client: client, bucket: mc.Bucket}, nil
}

// UploadVideo 上传本地视频文件到 MinIO，返回 24 小时有效的签名 URL。
func (u *Uploader) UploadVideo(localPath string, taskID string) (string, error) {
	ctx := context.Background()

	// 自动创建 Bucket
	exists, err := u.client.BucketExists(ctx, u.bucket)
	if err == nil && !exists {
		u.client.MakeBucket(ctx, u.bucket, minio.MakeBucketOptions{})
	}

	// 云端文件名，例如: tasks/123-abc/final_123-abc.mp4
	objectName := fmt.Sprintf("tasks/%s/%s", taskID, filepath.Base(localPath))

	_, err = u.client.FPutObject(ctx, u.bucket, objectName, localPath, minio.PutObjectOptions{
		ContentType: "video/mp4",
	})
	if err != nil {
		return "", fmt.Errorf("上传 MinIO 失败: %w", err)
	}

	expiry := time.Hour * 24
	reqParams := make(url.Values)
	presignedURL, err := u.client.PresignedGetObject(ctx, u.bucket, objectName, expiry, reqParams)
	if err != nil {
		return "", fmt.Errorf("生成签名 URL 失败: %w", err)
	}
	return presignedURL.String(), nil
}
