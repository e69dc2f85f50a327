// Package comfyui drives a ComfyUI server: queue a workflow, follow its
// execution over the websocket and collect the produced images.
package comfyui

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"path/filepath"
	"sort"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"highlight-ai/internal/types"
	"highlight-ai/log"
	apperrors "highlight-ai/pkg/errors"
)

// binary websocket frames carry an 8 byte event header before the image
const previewHeaderSize = 8

type Config struct {
	ServerAddress string
	WorkflowFile  string
	PromptNodeId  string
	Timeout       time.Duration
}

type Client struct {
	cfg      Config
	http     *resty.Client
	dialer   *websocket.Dialer
	workflow []byte
	seed     func() int64
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.PromptNodeId == "" {
		cfg.PromptNodeId = "6"
	}
	workflow, err := loadWorkflow(cfg.WorkflowFile)
	if err != nil {
		return nil, err
	}
	return &Client{
		cfg:      cfg,
		http:     resty.New().SetBaseURL("http://" + cfg.ServerAddress),
		dialer:   websocket.DefaultDialer,
		workflow: workflow,
		seed:     func() int64 { return rand.Int63() },
	}, nil
}

type queueResponse struct {
	PromptId string `json:"prompt_id"`
}

type wsMessage struct {
	Type string `json:"type"`
	Data struct {
		Node     *string `json:"node"`
		PromptId string  `json:"prompt_id"`
	} `json:"data"`
}

type outputFile struct {
	Filename  string `json:"filename"`
	Subfolder string `json:"subfolder"`
	Type      string `json:"type"`
}

type nodeOutput struct {
	Images []outputFile `json:"images"`
	Gifs   []outputFile `json:"gifs"`
	Videos []outputFile `json:"videos"`
}

type historyEntry struct {
	Outputs map[string]nodeOutput `json:"outputs"`
}

func generateErr(detail string, cause error) error {
	return apperrors.WrapWithDetail(apperrors.CodeImageGenerateFailed, apperrors.ErrImageGenerateFailed.Message, detail, cause)
}

func (c *Client) GenerateImages(ctx context.Context, prompt string) ([]types.GeneratedImage, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	graph, err := buildPrompt(c.workflow, c.cfg.PromptNodeId, prompt, c.seed())
	if err != nil {
		return nil, generateErr("invalid workflow", err)
	}

	c.freeMemory(ctx)

	clientId := uuid.New().String()
	wsURL := fmt.Sprintf("ws://%s/ws?clientId=%s", c.cfg.ServerAddress, clientId)
	conn, _, err := c.dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, generateErr("websocket connect failed", err)
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	promptId, err := c.queuePrompt(ctx, graph, clientId)
	if err != nil {
		return nil, err
	}
	log.GetLogger().Info("ComfyUI prompt queued", zap.String("prompt_id", promptId))

	streamed, err := c.waitForCompletion(ctx, conn, promptId)
	if err != nil {
		return nil, err
	}

	images := c.fetchHistory(ctx, promptId)
	if len(images) == 0 {
		images = streamed
	}
	if len(images) == 0 {
		return nil, generateErr("no images produced", nil)
	}
	log.GetLogger().Info("ComfyUI generation finished", zap.String("prompt_id", promptId), zap.Int("images", len(images)))
	return images, nil
}

// freeMemory asks ComfyUI to unload models before a run. Best effort.
func (c *Client) freeMemory(ctx context.Context) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]bool{"unload_models": true, "free_memory": true}).
		Post("/free")
	if err != nil {
		log.GetLogger().Warn("ComfyUI free memory failed", zap.Error(err))
		return
	}
	if resp.IsError() {
		log.GetLogger().Warn("ComfyUI free memory rejected", zap.Int("status", resp.StatusCode()))
	}
}

func (c *Client) queuePrompt(ctx context.Context, graph map[string]map[string]any, clientId string) (string, error) {
	var result queueResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]any{"prompt": graph, "client_id": clientId}).
		SetResult(&result).
		Post("/prompt")
	if err != nil {
		return "", generateErr("queue prompt failed", err)
	}
	if resp.IsError() || result.PromptId == "" {
		return "", generateErr(fmt.Sprintf("queue prompt returned %d: %s", resp.StatusCode(), resp.String()), nil)
	}
	return result.PromptId, nil
}

// waitForCompletion reads until ComfyUI reports node=null for promptId.
// Binary preview frames seen on the way are returned as a fallback.
func (c *Client) waitForCompletion(ctx context.Context, conn *websocket.Conn, promptId string) ([]types.GeneratedImage, error) {
	var (
		streamed    []types.GeneratedImage
		currentNode string
	)
	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, generateErr("generation timed out or was canceled", ctxErr)
			}
			return nil, generateErr("websocket closed before completion", err)
		}

		if kind == websocket.BinaryMessage {
			if len(data) > previewHeaderSize {
				streamed = append(streamed, types.GeneratedImage{
					Filename:    fmt.Sprintf("%s_%d.png", nodeLabel(currentNode), len(streamed)),
					ContentType: "image/png",
					Data:        data[previewHeaderSize:],
				})
			}
			continue
		}

		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.GetLogger().Debug("ComfyUI ignoring non-JSON frame", zap.Error(err))
			continue
		}
		if msg.Type != "executing" || msg.Data.PromptId != promptId {
			continue
		}
		if msg.Data.Node == nil {
			return streamed, nil
		}
		currentNode = *msg.Data.Node
		log.GetLogger().Debug("ComfyUI executing node", zap.String("node", currentNode))
	}
}

func nodeLabel(node string) string {
	if node == "" {
		return "unknown"
	}
	return node
}

// fetchHistory downloads every file the run saved. Failures are logged and
// yield fewer images rather than an error.
func (c *Client) fetchHistory(ctx context.Context, promptId string) []types.GeneratedImage {
	var history map[string]historyEntry
	resp, err := c.http.R().SetContext(ctx).SetResult(&history).Get("/history/" + promptId)
	if err != nil || resp.IsError() {
		log.GetLogger().Warn("ComfyUI history unavailable", zap.String("prompt_id", promptId), zap.Error(err))
		return nil
	}
	entry, ok := history[promptId]
	if !ok {
		return nil
	}

	nodeIds := make([]string, 0, len(entry.Outputs))
	for id := range entry.Outputs {
		nodeIds = append(nodeIds, id)
	}
	sort.Strings(nodeIds)

	var images []types.GeneratedImage
	for _, id := range nodeIds {
		out := entry.Outputs[id]
		files := append(append(append([]outputFile{}, out.Images...), out.Gifs...), out.Videos...)
		for _, f := range files {
			img, err := c.download(ctx, f)
			if err != nil {
				log.GetLogger().Error("ComfyUI download failed", zap.String("file", f.Filename), zap.Error(err))
				continue
			}
			img.Filename = id + "_" + img.Filename
			images = append(images, img)
		}
	}
	return images
}

func (c *Client) download(ctx context.Context, f outputFile) (types.GeneratedImage, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"filename":  f.Filename,
			"subfolder": f.Subfolder,
			"type":      f.Type,
		}).
		Get("/view")
	if err != nil {
		return types.GeneratedImage{}, err
	}
	if resp.IsError() {
		return types.GeneratedImage{}, fmt.Errorf("view returned %d", resp.StatusCode())
	}

	contentType := resp.Header().Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(resp.Body())
	}
	if filepath.Ext(f.Filename) == "" {
		f.Filename += ".png"
	}
	return types.GeneratedImage{Filename: f.Filename, ContentType: contentType, Data: resp.Body()}, nil
}
