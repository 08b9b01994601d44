package relay

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"recipe-nutrition/internal/infrastructure/config"
	"recipe-nutrition/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const doneMarker = "[DONE]"

// OpenRouterGenerator 透過 OpenRouter 串流生成
type OpenRouterGenerator struct {
	config *config.OpenRouterConfig
	client *resty.Client
}

// streamEvent 上游 SSE data 內容
type streamEvent struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewOpenRouterGenerator 創建 OpenRouter 生成器
func NewOpenRouterGenerator(cfg *config.OpenRouterConfig) *OpenRouterGenerator {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Authorization", fmt.Sprintf("Bearer %s", cfg.APIKey)).
		SetHeader("HTTP-Referer", "https://recipe-nutrition.local").
		SetHeader("X-Title", "Recipe Nutrition")

	return &OpenRouterGenerator{
		config: cfg,
		client: client,
	}
}

func (g *OpenRouterGenerator) Name() string {
	return config.RelayProviderOpenRouter
}

// Stream 發送 stream 請求並逐行解析上游 SSE
func (g *OpenRouterGenerator) Stream(ctx context.Context, prompt string) (<-chan Chunk, error) {
	req := map[string]interface{}{
		"model": g.config.Model,
		"messages": []map[string]interface{}{
			{
				"role":    "user",
				"content": prompt,
			},
		},
		"max_tokens": g.config.MaxTokens,
		"stream":     true,
	}

	common.LogDebug("Sending stream request to OpenRouter",
		zap.String("model", g.config.Model),
		zap.Int("prompt_length", len(prompt)),
	)

	resp, err := g.client.R().
		SetContext(ctx).
		SetHeader("Accept", "text/event-stream").
		SetBody(req).
		SetDoNotParseResponse(true).
		Post("/chat/completions")
	if err != nil {
		return nil, fmt.Errorf("failed to send request to OpenRouter: %w", err)
	}

	body := resp.RawBody()
	if resp.StatusCode() != http.StatusOK {
		defer body.Close()
		msg, _ := io.ReadAll(io.LimitReader(body, 4096))
		return nil, fmt.Errorf("OpenRouter API returned error (status %d): %s", resp.StatusCode(), strings.TrimSpace(string(msg)))
	}

	out := make(chan Chunk)
	go func() {
		defer close(out)
		defer body.Close()

		if err := readEvents(ctx, body, out); err != nil && ctx.Err() == nil {
			send(ctx, out, Chunk{Err: err})
		}
	}()

	return out, nil
}

// readEvents 讀取 data: 行直到 [DONE] 或串流結束
func readEvents(ctx context.Context, r io.Reader, out chan<- Chunk) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		// 空行與 ": OPENROUTER PROCESSING" 之類的註解行
		if !strings.HasPrefix(line, "data:") {
			continue
		}

		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == doneMarker {
			return nil
		}

		var event streamEvent
		if err := common.ParseJSON(payload, &event); err != nil {
			return fmt.Errorf("failed to parse OpenRouter event: %w", err)
		}
		if event.Error != nil {
			return fmt.Errorf("OpenRouter stream error: %s", event.Error.Message)
		}

		for _, choice := range event.Choices {
			if choice.Delta.Content == "" {
				continue
			}
			if !send(ctx, out, Chunk{Text: choice.Delta.Content}) {
				return ctx.Err()
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read OpenRouter stream: %w", err)
	}
	return nil
}
