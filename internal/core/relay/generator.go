package relay

import (
	"context"
	"fmt"
	"time"

	"recipe-nutrition/internal/infrastructure/config"
)

// Chunk 串流片段；Err 非 nil 表示生成中斷，之後通道會關閉
type Chunk struct {
	Text string
	Err  error
}

// Generator 文字生成來源
type Generator interface {
	// Name 供日誌與快取命名空間使用
	Name() string
	// Stream 回傳依序輸出的片段，結束或 ctx 取消時關閉通道
	Stream(ctx context.Context, prompt string) (<-chan Chunk, error)
}

// NewGenerator 依設定選擇生成來源
func NewGenerator(cfg *config.RelayConfig) (Generator, error) {
	switch cfg.Provider {
	case config.RelayProviderEcho, "":
		return NewEchoGenerator(cfg.EchoDelay), nil
	case config.RelayProviderOpenRouter:
		return NewOpenRouterGenerator(&cfg.OpenRouter), nil
	default:
		return nil, fmt.Errorf("unknown relay provider: %s", cfg.Provider)
	}
}

// EchoGenerator 未設定模型時的示範來源：逐字回傳提示詞，最後補一個換行
type EchoGenerator struct {
	delay time.Duration
}

// NewEchoGenerator 創建逐字回傳的生成器
func NewEchoGenerator(delay time.Duration) *EchoGenerator {
	return &EchoGenerator{delay: delay}
}

func (g *EchoGenerator) Name() string {
	return config.RelayProviderEcho
}

// Stream 逐字輸出
func (g *EchoGenerator) Stream(ctx context.Context, prompt string) (<-chan Chunk, error) {
	out := make(chan Chunk)

	go func() {
		defer close(out)

		for _, r := range prompt {
			if !g.wait(ctx) || !send(ctx, out, Chunk{Text: string(r)}) {
				return
			}
		}
		send(ctx, out, Chunk{Text: "\n"})
	}()

	return out, nil
}

func (g *EchoGenerator) wait(ctx context.Context) bool {
	if g.delay <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(g.delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// send 送出片段；ctx 取消時放棄並回傳 false
func send(ctx context.Context, out chan<- Chunk, c Chunk) bool {
	select {
	case out <- c:
		return true
	case <-ctx.Done():
		return false
	}
}
