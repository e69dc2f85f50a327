// Package intentsvc is a client for a self-hosted intent classification
// service exposing POST {"text": ...} -> {"intent": ..., "confidence": ...}.
package intentsvc

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"highlight-ai/internal/types"
)

type Client struct {
	url    string
	client *resty.Client
}

type predictRequest struct {
	Text string `json:"text"`
}

type predictResponse struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
}

func NewClient(url string, timeout time.Duration) *Client {
	client := resty.New()
	if timeout > 0 {
		client.SetTimeout(timeout)
	}
	return &Client{url: url, client: client}
}

// Classify returns the label exactly as the service reports it; callers
// normalize it.
func (c *Client) Classify(ctx context.Context, text string) (types.Intent, error) {
	var result predictResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(predictRequest{Text: text}).
		SetResult(&result).
		Post(c.url)
	if err != nil {
		return types.Intent{}, fmt.Errorf("intent service request failed: %w", err)
	}
	if resp.IsError() {
		return types.Intent{}, fmt.Errorf("intent service returned %d: %s", resp.StatusCode(), resp.String())
	}
	if result.Intent == "" {
		return types.Intent{}, fmt.Errorf("intent service returned no intent: %s", resp.String())
	}
	return types.Intent{Category: types.IntentCategory(result.Intent), Confidence: result.Confidence}, nil
}
