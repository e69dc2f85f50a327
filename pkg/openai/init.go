package openai

import (
	"net/http"

	"github.com/sashabaranov/go-openai"

	"highlight-ai/config"
)

type Client struct {
	client *openai.Client
	model  string
}

func NewClient(baseUrl, apiKey, model, proxyAddr string) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseUrl != "" {
		cfg.BaseURL = baseUrl
	}

	// 总是配置自定义 HTTP Client 以便走代理
	transport := &http.Transport{}
	if proxyAddr != "" && config.Conf.App.ParsedProxy != nil {
		transport.Proxy = http.ProxyURL(config.Conf.App.ParsedProxy)
	}

	cfg.HTTPClient = &http.Client{
		Transport: transport,
		// 不设置整体超时，流式回复由调用方的 context 控制
	}

	if model == "" {
		model = openai.GPT4oMini
	}
	return &Client{client: openai.NewClientWithConfig(cfg), model: model}
}
