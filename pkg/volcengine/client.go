// Package volcengine calls the Volcengine Ark responses API with a video
// reference and turns the reply into clip descriptors.
package volcengine

import (
	"context"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"highlight-ai/internal/types"
	"highlight-ai/log"
	apperrors "highlight-ai/pkg/errors"
)

type Config struct {
	ApiUrl       string
	ApiKey       string
	Model        string
	Fps          int
	Timeout      time.Duration
	Proxy        string
	TempDir      string
	InlineWarnMB int
}

type Client struct {
	apiUrl          string
	apiKey          string
	model           string
	fps             int
	tempDir         string
	inlineWarnBytes int64
	http            *resty.Client
	resolver        HostResolver
}

func NewClient(cfg Config) *Client {
	httpClient := resty.New()
	if cfg.Timeout > 0 {
		httpClient.SetTimeout(cfg.Timeout)
	}
	if cfg.Proxy != "" {
		httpClient.SetProxy(cfg.Proxy)
	}
	if cfg.Fps <= 0 {
		cfg.Fps = 1
	}
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	return &Client{
		apiUrl:          cfg.ApiUrl,
		apiKey:          cfg.ApiKey,
		model:           cfg.Model,
		fps:             cfg.Fps,
		tempDir:         cfg.TempDir,
		inlineWarnBytes: int64(cfg.InlineWarnMB) * 1024 * 1024,
		http:            httpClient,
		resolver:        net.DefaultResolver,
	}
}

// WithResolver replaces the DNS resolver used for private-host detection.
func (c *Client) WithResolver(r HostResolver) *Client {
	c.resolver = r
	return c
}

type inputContent struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	VideoURL string `json:"video_url,omitempty"`
	Fps      int    `json:"fps,omitempty"`
}

type inputMessage struct {
	Role    string         `json:"role"`
	Content []inputContent `json:"content"`
}

type responsesRequest struct {
	Model string         `json:"model"`
	Input []inputMessage `json:"input"`
}

// AnalyzeVideo asks the model for time ranges matching prompt. An empty,
// non-nil slice means the model found nothing; every failure is a
// CodeClipAnalysisFailed (or download/not-found) AppError scoped to this
// source.
func (c *Client) AnalyzeVideo(ctx context.Context, source types.VideoSource, prompt string) ([]types.ClipDescriptor, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return nil, apperrors.WrapWithDetail(apperrors.CodeClipAnalysisFailed, apperrors.ErrClipAnalysisFailed.Message, "analysis.api_key is not configured", nil)
	}

	videoRef, err := c.resolveReference(ctx, source)
	if err != nil {
		return nil, err
	}

	payload := responsesRequest{
		Model: c.model,
		Input: []inputMessage{{
			Role: "user",
			Content: []inputContent{
				{Type: "input_text", Text: types.HighlightAnalysisInstruction + prompt},
				{Type: "input_video", VideoURL: videoRef, Fps: c.fps},
			},
		}},
	}

	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(c.apiKey).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(c.apiUrl)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeClipAnalysisFailed, apperrors.ErrClipAnalysisFailed.Message, err)
	}
	if !resp.IsSuccess() {
		return nil, apperrors.WrapWithDetail(apperrors.CodeClipAnalysisFailed,
			fmt.Sprintf("视频分析接口返回错误 Analysis API returned %d", resp.StatusCode()),
			truncate(resp.String(), 500), nil)
	}

	content, shape, ok := extractContent(resp.Body())
	if !ok {
		log.GetLogger().Warn("volcengine: response carried no recognizable content",
			zap.String("source", source.Ref), zap.String("body", truncate(resp.String(), 300)))
		return []types.ClipDescriptor{}, nil
	}

	clips, err := ParseClipContent(content)
	if err != nil {
		return nil, err
	}
	log.GetLogger().Info("volcengine: analysis finished",
		zap.String("source", source.Ref),
		zap.String("shape", shape),
		zap.Int("clips", len(clips)),
		zap.Duration("elapsed", time.Since(start)))
	return clips, nil
}
