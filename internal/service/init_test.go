package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"highlight-ai/config"
	"highlight-ai/internal/storage"
	"highlight-ai/pkg/aliyun"
	"highlight-ai/pkg/intentsvc"
	"highlight-ai/pkg/minio"
)

func TestNewArtifactStore_LocalDefaultsToServerAddress(t *testing.T) {
	conf := config.Config{
		Server:  config.Server{Host: "127.0.0.1", Port: 9000},
		Storage: config.Storage{Provider: "local"},
	}
	store, local, err := newArtifactStore(conf, t.TempDir())
	require.NoError(t, err)
	require.NotNil(t, local)
	assert.Same(t, local, store)

	key, err := store.Put(context.Background(), strings.NewReader("x"), 1, "video/mp4", ".mp4")
	require.NoError(t, err)
	url, err := store.PresignedURL(context.Background(), key, time.Minute)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "http://127.0.0.1:9000"+storage.PublishedRoute+key), url)
}

func TestNewArtifactStore_Providers(t *testing.T) {
	base := config.Storage{
		Endpoint:        "http://127.0.0.1:9000",
		Region:          "us-east-1",
		AccessKeyId:     "ak",
		AccessKeySecret: "sk",
		Bucket:          "highlights",
		ForcePathStyle:  true,
		ExpireDays:      1,
	}

	minioConf := config.Config{Storage: base}
	minioConf.Storage.Provider = "MinIO"
	store, local, err := newArtifactStore(minioConf, t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, local)
	assert.IsType(t, &minio.Store{}, store)

	ossConf := config.Config{Storage: base}
	ossConf.Storage.Provider = "oss"
	ossConf.Storage.Endpoint = ""
	ossConf.Storage.Region = "cn-hangzhou"
	store, _, err = newArtifactStore(ossConf, t.TempDir())
	require.NoError(t, err)
	assert.IsType(t, &aliyun.OssClient{}, store)

	badConf := config.Config{Storage: base}
	badConf.Storage.Provider = "ftp"
	_, _, err = newArtifactStore(badConf, t.TempDir())
	assert.ErrorContains(t, err, "unsupported storage provider")
}

func TestNewIntentClassifier(t *testing.T) {
	local := newIntentClassifier(config.Config{Intent: config.Intent{Provider: " Local ", Url: "http://127.0.0.1:8000/predict"}}, nil)
	assert.IsType(t, &intentsvc.Client{}, local)

	llm := newIntentClassifier(config.Config{Intent: config.Intent{Provider: "llm"}}, nil)
	assert.IsType(t, &LLMIntentClassifier{}, llm)
}
