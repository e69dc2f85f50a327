package openai

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"highlight-ai/log"
	apperrors "highlight-ai/pkg/errors"
)

func (c *Client) request(prompt string, stream bool) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Stream: stream,
	}
}

// ChatCompletion sends one prompt and returns the full reply.
func (c *Client) ChatCompletion(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, c.request(prompt, false))
	if err != nil {
		log.GetLogger().Error("openai create chat completion failed", zap.Error(err))
		return "", apperrors.Wrap(apperrors.CodeChatFailed, apperrors.ErrChatFailed.Message, err)
	}
	if len(resp.Choices) == 0 {
		return "", apperrors.WrapWithDetail(apperrors.CodeChatFailed, apperrors.ErrChatFailed.Message, "empty choices", nil)
	}
	return resp.Choices[0].Message.Content, nil
}

// ChatCompletionStream streams the reply, calling onDelta for every
// non-empty fragment. An onDelta error stops the stream and is returned.
func (c *Client) ChatCompletionStream(ctx context.Context, prompt string, onDelta func(string) error) (string, error) {
	stream, err := c.client.CreateChatCompletionStream(ctx, c.request(prompt, true))
	if err != nil {
		log.GetLogger().Error("openai create chat completion stream failed", zap.Error(err))
		return "", apperrors.Wrap(apperrors.CodeChatFailed, apperrors.ErrChatFailed.Message, err)
	}
	defer stream.Close()

	var full strings.Builder
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			log.GetLogger().Error("openai stream recv failed", zap.Error(err))
			return full.String(), apperrors.Wrap(apperrors.CodeChatFailed, apperrors.ErrChatFailed.Message, err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		delta := resp.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		full.WriteString(delta)
		if onDelta != nil {
			if err := onDelta(delta); err != nil {
				return full.String(), err
			}
		}
	}
	return full.String(), nil
}
