package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"highlight-ai/config"
	"highlight-ai/internal/appdirs"
	"highlight-ai/internal/storage"
	"highlight-ai/internal/taskrunner"
	"highlight-ai/internal/types"
	"highlight-ai/log"
	"highlight-ai/pkg/aliyun"
	"highlight-ai/pkg/comfyui"
	apperrors "highlight-ai/pkg/errors"
	"highlight-ai/pkg/ffmpeg"
	"highlight-ai/pkg/intentsvc"
	"highlight-ai/pkg/minio"
	"highlight-ai/pkg/openai"
	"highlight-ai/pkg/volcengine"
)

const bucketProvisionTimeout = 30 * time.Second

type Service struct {
	Media         *ffmpeg.Engine
	Analyzer      *volcengine.Client
	Store         types.ArtifactStore
	LocalStore    *storage.LocalStore // set only for the local provider
	ChatCompleter types.ChatCompleter
	Intent        *IntentRouter
	Images        types.ImageGenerator
	Pool          *taskrunner.Runner
	Highlights    *HighlightPipeline
	Chat          *ChatStreamer
	Jobs          *JobService
}

type bucketProvisioner interface {
	EnsureBucket(ctx context.Context) error
}

// NewService wires every component from config.Conf.
func NewService() (*Service, error) {
	dirs, err := appdirs.Resolve()
	if err != nil {
		return nil, fmt.Errorf("resolve app dirs: %w", err)
	}
	clipsDir, mergedDir, tempDir := appdirs.ClipsDirFor(dirs), appdirs.MergedDirFor(dirs), appdirs.TempDirFor(dirs)
	for _, dir := range []string{clipsDir, mergedDir, tempDir} {
		if err = os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}

	store, local, err := newArtifactStore(config.Conf, appdirs.PublishedDirFor(dirs))
	if err != nil {
		return nil, err
	}
	if p, ok := store.(bucketProvisioner); ok {
		ctx, cancel := context.WithTimeout(context.Background(), bucketProvisionTimeout)
		err = p.EnsureBucket(ctx)
		cancel()
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeStoreUnavailable, "对象存储不可用 Artifact store unavailable", err)
		}
	}
	log.GetLogger().Info("当前对象存储 artifact store", zap.String("provider", config.Conf.Storage.Provider))

	media := ffmpeg.NewEngine(ffmpeg.Options{
		FfmpegPath:  storage.FfmpegPath,
		FfprobePath: storage.FfprobePath,
		FrameRate:   config.Conf.Ffmpeg.FrameRate,
		VideoCodec:  config.Conf.Ffmpeg.VideoCodec,
		AudioCodec:  config.Conf.Ffmpeg.AudioCodec,
		ManifestDir: tempDir,
	}, ffmpeg.NewCommandRunner())

	analyzer := volcengine.NewClient(volcengine.Config{
		ApiUrl:       config.Conf.Analysis.ApiUrl,
		ApiKey:       config.Conf.Analysis.ApiKey,
		Model:        config.Conf.Analysis.Model,
		Fps:          config.Conf.Analysis.Fps,
		Timeout:      time.Duration(config.Conf.Analysis.TimeoutSeconds) * time.Second,
		Proxy:        config.Conf.App.Proxy,
		TempDir:      tempDir,
		InlineWarnMB: config.Conf.Analysis.InlineWarnMB,
	})

	chat := openai.NewClient(config.Conf.Llm.BaseUrl, config.Conf.Llm.ApiKey, config.Conf.Llm.Model, config.Conf.App.Proxy)
	router := NewIntentRouter(newIntentClassifier(config.Conf, chat))

	var images types.ImageGenerator
	if strings.TrimSpace(config.Conf.ComfyUI.ServerAddress) != "" {
		comfy, err := comfyui.NewClient(comfyui.Config{
			ServerAddress: config.Conf.ComfyUI.ServerAddress,
			WorkflowFile:  config.Conf.ComfyUI.WorkflowFile,
			PromptNodeId:  config.Conf.ComfyUI.PromptNodeId,
			Timeout:       time.Duration(config.Conf.ComfyUI.TimeoutSeconds) * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("init comfyui client: %w", err)
		}
		images = comfy
	}

	presignTTL := time.Duration(config.Conf.Storage.PresignTTLMinutes) * time.Minute
	pipeline := NewHighlightPipeline(analyzer, media, store, PipelineOptions{
		ClipsDir:           clipsDir,
		MergedDir:          mergedDir,
		TargetDuration:     config.Conf.Pipeline.TargetDuration,
		PresignTTL:         presignTTL,
		ExtractConcurrency: config.Conf.Pipeline.ExtractConcurrency,
	})

	pool := taskrunner.New(taskrunner.Config{
		QueueSize:   config.Conf.App.QueueSize,
		Concurrency: config.Conf.App.WorkerConcurrency,
	})
	jobs := NewJobService(pipeline)
	jobs.SetDispatcher(NewPoolDispatcher(pool, jobs))

	return &Service{
		Media:         media,
		Analyzer:      analyzer,
		Store:         store,
		LocalStore:    local,
		ChatCompleter: chat,
		Intent:        router,
		Images:        images,
		Pool:          pool,
		Highlights:    pipeline,
		Chat:          NewChatStreamer(router, pipeline, images, chat, store, pool, presignTTL),
		Jobs:          jobs,
	}, nil
}

// Close stops the worker pool. Running tasks see their context canceled.
func (s *Service) Close() {
	if s.Pool != nil {
		s.Pool.Close()
	}
}

func newArtifactStore(conf config.Config, publishedDir string) (types.ArtifactStore, *storage.LocalStore, error) {
	st := conf.Storage
	switch strings.ToLower(strings.TrimSpace(st.Provider)) {
	case "", "local":
		baseURL := strings.TrimSpace(st.PublicBaseUrl)
		if baseURL == "" {
			baseURL = fmt.Sprintf("http://%s:%d", conf.Server.Host, conf.Server.Port)
		}
		local := storage.NewLocalStore(publishedDir, baseURL)
		return local, local, nil
	case "minio":
		store, err := minio.NewStore(minio.Config{
			Endpoint:        st.Endpoint,
			Region:          st.Region,
			AccessKeyId:     st.AccessKeyId,
			AccessKeySecret: st.AccessKeySecret,
			Bucket:          st.Bucket,
			ForcePathStyle:  st.ForcePathStyle,
			ExpireDays:      st.ExpireDays,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("init minio store: %w", err)
		}
		return store, nil, nil
	case "oss":
		return aliyun.NewOssClient(st.AccessKeyId, st.AccessKeySecret, st.Region, st.Endpoint, st.Bucket, st.ExpireDays), nil, nil
	default:
		return nil, nil, fmt.Errorf("unsupported storage provider: %s", st.Provider)
	}
}

func newIntentClassifier(conf config.Config, chat types.ChatCompleter) types.IntentClassifier {
	if strings.EqualFold(strings.TrimSpace(conf.Intent.Provider), "local") {
		return intentsvc.NewClient(conf.Intent.Url, time.Duration(conf.Intent.TimeoutSeconds)*time.Second)
	}
	return NewLLMIntentClassifier(chat)
}
