package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"

	"highlight-ai/internal/appdirs"
	"highlight-ai/log"
)

type App struct {
	Proxy             string   `toml:"proxy"`
	ParsedProxy       *url.URL `toml:"-"`
	LogLevel          string   `toml:"log_level"`
	WorkerConcurrency int      `toml:"worker_concurrency"`
	QueueSize         int      `toml:"queue_size"`
}

type Server struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

type Ffmpeg struct {
	FfmpegPath  string `toml:"ffmpeg_path"`
	FfprobePath string `toml:"ffprobe_path"`
	FrameRate   int    `toml:"frame_rate"`
	VideoCodec  string `toml:"video_codec"`
	AudioCodec  string `toml:"audio_codec"`
}

// Analysis configures the multimodal video model (Volcengine Ark responses API).
type Analysis struct {
	ApiUrl         string `toml:"api_url"`
	ApiKey         string `toml:"api_key"`
	Model          string `toml:"model"`
	Fps            int    `toml:"fps"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	InlineWarnMB   int    `toml:"inline_warn_mb"`
}

type Llm struct {
	BaseUrl string `toml:"base_url"`
	ApiKey  string `toml:"api_key"`
	Model   string `toml:"model"`
}

type Intent struct {
	Provider       string `toml:"provider"` // llm | local
	Url            string `toml:"url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type Storage struct {
	Provider          string `toml:"provider"` // minio | oss | local
	Endpoint          string `toml:"endpoint"`
	Region            string `toml:"region"`
	AccessKeyId       string `toml:"access_key_id"`
	AccessKeySecret   string `toml:"access_key_secret"`
	Bucket            string `toml:"bucket"`
	ForcePathStyle    bool   `toml:"force_path_style"`
	PresignTTLMinutes int    `toml:"presign_ttl_minutes"`
	ExpireDays        int    `toml:"expire_days"`
	PublicBaseUrl     string `toml:"public_base_url"`
}

type ComfyUI struct {
	ServerAddress  string `toml:"server_address"`
	WorkflowFile   string `toml:"workflow_file"`
	PromptNodeId   string `toml:"prompt_node_id"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type Queue struct {
	Enabled       bool   `toml:"enabled"`
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	Concurrency   int    `toml:"concurrency"`
}

type Pipeline struct {
	TargetDuration     float64 `toml:"target_duration"`
	ExtractConcurrency int     `toml:"extract_concurrency"`
}

type Config struct {
	App      App      `toml:"app"`
	Server   Server   `toml:"server"`
	Ffmpeg   Ffmpeg   `toml:"ffmpeg"`
	Analysis Analysis `toml:"analysis"`
	Llm      Llm      `toml:"llm"`
	Intent   Intent   `toml:"intent"`
	Storage  Storage  `toml:"storage"`
	ComfyUI  ComfyUI  `toml:"comfyui"`
	Queue    Queue    `toml:"queue"`
	Pipeline Pipeline `toml:"pipeline"`
}

var Conf = defaultConfig()

var resolveConfigPath = ResolveConfigPath

func defaultConfig() Config {
	return Config{
		App: App{
			LogLevel:          "info",
			WorkerConcurrency: 2,
			QueueSize:         128,
		},
		Server: Server{
			Host: "127.0.0.1",
			Port: 8888,
		},
		Ffmpeg: Ffmpeg{
			FrameRate:  30,
			VideoCodec: "libx264",
			AudioCodec: "aac",
		},
		Analysis: Analysis{
			ApiUrl:         "https://ark.cn-beijing.volces.com/api/v3/responses",
			Model:          "doubao-seed-1-6-vision-250815",
			Fps:            1,
			TimeoutSeconds: 600,
			InlineWarnMB:   50,
		},
		Llm: Llm{
			Model: "gpt-4o-mini",
		},
		Intent: Intent{
			Provider:       "llm",
			Url:            "http://localhost:8000/predict",
			TimeoutSeconds: 30,
		},
		Storage: Storage{
			Provider:          "local",
			Region:            "us-east-1",
			Bucket:            "highlights",
			ForcePathStyle:    true,
			PresignTTLMinutes: 24 * 60,
			ExpireDays:        1,
		},
		ComfyUI: ComfyUI{
			ServerAddress:  "127.0.0.1:8188",
			PromptNodeId:   "6",
			TimeoutSeconds: 300,
		},
		Queue: Queue{
			RedisAddr:   "localhost:6379",
			Concurrency: 3,
		},
		Pipeline: Pipeline{
			TargetDuration:     60,
			ExtractConcurrency: 2,
		},
	}
}

// ResolveConfigPath returns the config file location for the current layout.
func ResolveConfigPath() (string, error) {
	dirs, err := appdirs.Resolve()
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(dirs.ConfigFile) == "" {
		return filepath.Join("config", "config.toml"), nil
	}
	return dirs.ConfigFile, nil
}

// LoadOrCreateConfig loads the config file into Conf, writing the defaults
// first when the file does not exist yet. created reports the latter.
func LoadOrCreateConfig() (created bool, err error) {
	configPath, err := resolveConfigPath()
	if err != nil {
		return false, fmt.Errorf("resolve config path: %w", err)
	}

	if _, statErr := os.Stat(configPath); statErr != nil {
		if !errors.Is(statErr, os.ErrNotExist) {
			return false, fmt.Errorf("stat config file: %w", statErr)
		}
		Conf = defaultConfig()
		if err = SaveConfig(); err != nil {
			return false, err
		}
		log.GetLogger().Info("未找到配置文件，已生成默认配置 Config file created with defaults", zap.String("path", configPath))
		return true, nil
	}

	loaded := defaultConfig()
	if _, err = toml.DecodeFile(configPath, &loaded); err != nil {
		return false, fmt.Errorf("decode config %s: %w", configPath, err)
	}
	Conf = loaded
	log.GetLogger().Info("已加载配置文件 Config loaded", zap.String("path", configPath))
	return false, nil
}

// SaveConfig writes Conf to the resolved config path.
func SaveConfig() error {
	configPath, err := resolveConfigPath()
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}
	if err = os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	file, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("create config file: %w", err)
	}
	defer file.Close()

	if err = toml.NewEncoder(file).Encode(Conf); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}

// CheckConfig validates enum-like settings and fills derived fields. Missing
// credentials only produce warnings: each feature reports its own failure
// when used.
func CheckConfig() error {
	Conf.App.ParsedProxy = nil
	if proxy := strings.TrimSpace(Conf.App.Proxy); proxy != "" {
		parsed, err := url.Parse(proxy)
		if err != nil {
			return fmt.Errorf("invalid app.proxy %q: %w", proxy, err)
		}
		Conf.App.ParsedProxy = parsed
	}
	log.SetConsoleLevel(Conf.App.LogLevel)

	if Conf.Server.Port <= 0 || Conf.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", Conf.Server.Port)
	}

	Conf.Intent.Provider = strings.ToLower(strings.TrimSpace(Conf.Intent.Provider))
	switch Conf.Intent.Provider {
	case "", "llm":
		Conf.Intent.Provider = "llm"
	case "local":
		if strings.TrimSpace(Conf.Intent.Url) == "" {
			return errors.New("intent.url is required when intent.provider is local")
		}
	default:
		return fmt.Errorf("unsupported intent.provider %q", Conf.Intent.Provider)
	}

	Conf.Storage.Provider = strings.ToLower(strings.TrimSpace(Conf.Storage.Provider))
	switch Conf.Storage.Provider {
	case "", "local":
		Conf.Storage.Provider = "local"
	case "minio", "oss":
		if Conf.Storage.Bucket == "" || Conf.Storage.AccessKeyId == "" || Conf.Storage.AccessKeySecret == "" {
			return fmt.Errorf("storage.bucket and credentials are required for provider %q", Conf.Storage.Provider)
		}
	default:
		return fmt.Errorf("unsupported storage.provider %q", Conf.Storage.Provider)
	}
	if Conf.Storage.PresignTTLMinutes <= 0 {
		Conf.Storage.PresignTTLMinutes = 24 * 60
	}

	if Conf.Pipeline.TargetDuration <= 0 {
		return fmt.Errorf("pipeline.target_duration must be positive, got %v", Conf.Pipeline.TargetDuration)
	}
	if Conf.Ffmpeg.FrameRate <= 0 {
		Conf.Ffmpeg.FrameRate = 30
	}

	if Conf.Analysis.ApiKey == "" {
		log.GetLogger().Warn("analysis.api_key 未配置，视频分析将不可用 Video analysis is disabled until analysis.api_key is set")
	}
	if Conf.Llm.ApiKey == "" {
		log.GetLogger().Warn("llm.api_key 未配置，对话与意图识别将降级 Chat and intent routing run degraded until llm.api_key is set")
	}
	if Conf.Queue.Enabled && strings.TrimSpace(Conf.Queue.RedisAddr) == "" {
		return errors.New("queue.redis_addr is required when queue.enabled is true")
	}
	return nil
}
