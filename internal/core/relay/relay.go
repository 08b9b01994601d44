package relay

import (
	"context"
	"errors"
	"strings"
	"time"

	"recipe-nutrition/internal/core/cache"
	"recipe-nutrition/internal/pkg/common"

	"go.uber.org/zap"
)

// ErrEmptyPrompt 未提供提示詞
var ErrEmptyPrompt = errors.New("no prompt")

// Relay 生成服務：限流、快取與串流轉發
type Relay struct {
	generator Generator
	limiter   *Limiter
	cache     cache.Store
}

// New 創建生成服務；store 可為 nil
func New(generator Generator, limiter *Limiter, store cache.Store) *Relay {
	return &Relay{
		generator: generator,
		limiter:   limiter,
		cache:     store,
	}
}

// Provider 目前使用的生成來源
func (r *Relay) Provider() string {
	return r.generator.Name()
}

// Status 隊列狀態
func (r *Relay) Status() Status {
	return r.limiter.Status()
}

// Stream 取得提示詞的生成串流。
// 快取命中時整段結果以單一片段回放；完整結束的生成才會寫入快取。
func (r *Relay) Stream(ctx context.Context, prompt string) (<-chan Chunk, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, ErrEmptyPrompt
	}

	if r.cache != nil {
		if val, err := r.cache.Get(ctx, r.generator.Name(), prompt); err == nil && val != "" {
			out := make(chan Chunk, 1)
			out <- Chunk{Text: val}
			close(out)
			return out, nil
		} else if err != nil && !errors.Is(err, common.ErrCacheMiss) {
			common.LogWarn("讀取快取失敗", zap.Error(err))
		}
	}

	release, err := r.limiter.Acquire(ctx)
	if err != nil {
		if errors.Is(err, ErrQueueFull) || errors.Is(err, ErrLimiterClosed) {
			return nil, common.ErrRelayBusy.Wrap(err)
		}
		return nil, err
	}

	start := time.Now()
	upstream, err := r.generator.Stream(ctx, prompt)
	if err != nil {
		release()
		common.LogRelayCall(r.generator.Name(), time.Since(start), 0, err)
		return nil, common.ErrRelayFailed.Wrap(err)
	}

	out := make(chan Chunk)
	go func() {
		defer close(out)
		defer release()

		var (
			text      strings.Builder
			fragments int
			streamErr error
		)

		for chunk := range upstream {
			if chunk.Err != nil {
				streamErr = chunk.Err
			} else {
				text.WriteString(chunk.Text)
				fragments++
			}
			if !send(ctx, out, chunk) {
				break
			}
		}

		if streamErr == nil && ctx.Err() != nil {
			streamErr = ctx.Err()
		}
		common.LogRelayCall(r.generator.Name(), time.Since(start), fragments, streamErr)

		if streamErr == nil && r.cache != nil && text.Len() > 0 {
			if err := r.cache.Set(context.Background(), r.generator.Name(), prompt, text.String()); err != nil {
				common.LogWarn("寫入快取失敗", zap.Error(err))
			}
		}
	}()

	return out, nil
}

// Close 關閉限流器
func (r *Relay) Close() {
	r.limiter.Close()
}
