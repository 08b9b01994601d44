package relay

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipe-nutrition/internal/core/cache"
	"recipe-nutrition/internal/infrastructure/config"
	"recipe-nutrition/internal/pkg/common"
)

func collect(t *testing.T, ch <-chan Chunk) ([]string, error) {
	t.Helper()
	var parts []string
	timeout := time.After(5 * time.Second)
	for {
		select {
		case c, ok := <-ch:
			if !ok {
				return parts, nil
			}
			if c.Err != nil {
				return parts, c.Err
			}
			parts = append(parts, c.Text)
		case <-timeout:
			t.Fatal("stream did not finish")
		}
	}
}

// countingGenerator 記錄呼叫次數的假生成器
type countingGenerator struct {
	calls int64
	parts []string
	err   error
}

func (g *countingGenerator) Name() string { return "fake" }

func (g *countingGenerator) Stream(ctx context.Context, prompt string) (<-chan Chunk, error) {
	atomic.AddInt64(&g.calls, 1)
	out := make(chan Chunk)
	go func() {
		defer close(out)
		for _, p := range g.parts {
			if !send(ctx, out, Chunk{Text: p}) {
				return
			}
		}
		if g.err != nil {
			send(ctx, out, Chunk{Err: g.err})
		}
	}()
	return out, nil
}

func newLimiter(workers, maxSize int) *Limiter {
	return NewLimiter(&config.QueueConfig{Workers: workers, MaxSize: maxSize})
}

func TestEchoGeneratorStreamsRunes(t *testing.T) {
	ch, err := NewEchoGenerator(0).Stream(context.Background(), "你好a")
	require.NoError(t, err)

	parts, err := collect(t, ch)
	require.NoError(t, err)
	assert.Equal(t, []string{"你", "好", "a", "\n"}, parts)
}

func TestEchoGeneratorStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ch, err := NewEchoGenerator(5*time.Millisecond).Stream(ctx, strings.Repeat("字", 1000))
	require.NoError(t, err)

	first := <-ch
	assert.Equal(t, "字", first.Text)
	cancel()

	parts, err := collect(t, ch)
	require.NoError(t, err)
	assert.Less(t, len(parts), 999)
}

func TestNewGenerator(t *testing.T) {
	g, err := NewGenerator(&config.RelayConfig{Provider: config.RelayProviderEcho})
	require.NoError(t, err)
	assert.Equal(t, config.RelayProviderEcho, g.Name())

	g, err = NewGenerator(&config.RelayConfig{Provider: config.RelayProviderOpenRouter})
	require.NoError(t, err)
	assert.Equal(t, config.RelayProviderOpenRouter, g.Name())

	_, err = NewGenerator(&config.RelayConfig{Provider: "llama"})
	assert.Error(t, err)
}

func TestRelayRejectsEmptyPrompt(t *testing.T) {
	r := New(NewEchoGenerator(0), newLimiter(1, 0), nil)
	_, err := r.Stream(context.Background(), "  ")
	assert.True(t, errors.Is(err, ErrEmptyPrompt))
}

func TestRelayReplaysCachedGeneration(t *testing.T) {
	store := cache.NewManager(&config.CacheConfig{MaxSize: 10, TTL: time.Minute})
	defer store.Close()

	gen := &countingGenerator{parts: []string{"多吃", "蔬菜"}}
	r := New(gen, newLimiter(1, 0), store)

	ch, err := r.Stream(context.Background(), "建議")
	require.NoError(t, err)
	parts, err := collect(t, ch)
	require.NoError(t, err)
	assert.Equal(t, []string{"多吃", "蔬菜"}, parts)

	// 快取寫入在串流結束後進行
	require.Eventually(t, func() bool {
		_, err := store.Get(context.Background(), "fake", "建議")
		return err == nil
	}, time.Second, 5*time.Millisecond)

	ch, err = r.Stream(context.Background(), "建議")
	require.NoError(t, err)
	parts, err = collect(t, ch)
	require.NoError(t, err)
	assert.Equal(t, []string{"多吃蔬菜"}, parts)
	assert.Equal(t, int64(1), atomic.LoadInt64(&gen.calls))
	assert.Equal(t, int64(1), r.Status().ProcessedCount)
}

func TestRelayDoesNotCacheFailedGeneration(t *testing.T) {
	store := cache.NewManager(&config.CacheConfig{MaxSize: 10, TTL: time.Minute})
	defer store.Close()

	gen := &countingGenerator{parts: []string{"半"}, err: errors.New("upstream reset")}
	r := New(gen, newLimiter(1, 0), store)

	ch, err := r.Stream(context.Background(), "建議")
	require.NoError(t, err)
	parts, err := collect(t, ch)
	assert.EqualError(t, err, "upstream reset")
	assert.Equal(t, []string{"半"}, parts)

	require.Eventually(t, func() bool { return r.Status().Active == 0 }, time.Second, 5*time.Millisecond)
	_, err = store.Get(context.Background(), "fake", "建議")
	assert.True(t, errors.Is(err, common.ErrCacheMiss))
}

func TestLimiterQueueFull(t *testing.T) {
	l := newLimiter(1, 1)
	release, err := l.Acquire(context.Background())
	require.NoError(t, err)

	waited := make(chan error, 1)
	go func() {
		rel, err := l.Acquire(context.Background())
		if err == nil {
			rel()
		}
		waited <- err
	}()
	require.Eventually(t, func() bool { return l.Status().QueueLength == 1 }, time.Second, time.Millisecond)

	_, err = l.Acquire(context.Background())
	assert.True(t, errors.Is(err, ErrQueueFull))

	release()
	release()
	assert.NoError(t, <-waited)

	status := l.Status()
	assert.Equal(t, int64(2), status.ProcessedCount)
	assert.Equal(t, 0, status.Active)
	assert.Equal(t, 1, status.Workers)
}

func TestLimiterWaitHonoursContext(t *testing.T) {
	l := newLimiter(1, 5)
	release, err := l.Acquire(context.Background())
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Acquire(ctx)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	l.Close()
	_, err = l.Acquire(context.Background())
	assert.True(t, errors.Is(err, ErrLimiterClosed))
}

func TestRelayBusy(t *testing.T) {
	l := newLimiter(1, 0)
	release, err := l.Acquire(context.Background())
	require.NoError(t, err)
	defer release()

	r := New(NewEchoGenerator(0), l, nil)
	_, err = r.Stream(context.Background(), "hi")
	require.Error(t, err)
	assert.Equal(t, common.ErrRelayBusy.Code, common.AsCustomError(err).Code)
	assert.True(t, errors.Is(err, ErrQueueFull))
}

func TestOpenRouterGeneratorParsesStream(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, "/chat/completions", r.URL.Path)

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, ": OPENROUTER PROCESSING\n\n")
		fmt.Fprint(w, `data: {"choices":[{"delta":{"content":"蛋白質"}}]}`+"\n\n")
		fmt.Fprint(w, `data: {"choices":[{"delta":{"role":"assistant"}}]}`+"\n\n")
		fmt.Fprint(w, `data: {"choices":[{"delta":{"content":"不足"}}]}`+"\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
		fmt.Fprint(w, `data: {"choices":[{"delta":{"content":"ignored"}}]}`+"\n\n")
	}))
	defer server.Close()

	g := NewOpenRouterGenerator(&config.OpenRouterConfig{
		APIKey:  "sk-test",
		BaseURL: server.URL,
		Model:   "test-model",
		Timeout: 5 * time.Second,
	})

	ch, err := g.Stream(context.Background(), "評估")
	require.NoError(t, err)
	parts, err := collect(t, ch)
	require.NoError(t, err)
	assert.Equal(t, []string{"蛋白質", "不足"}, parts)
	assert.Equal(t, "Bearer sk-test", gotAuth)
}

func TestOpenRouterGeneratorErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer bad" {
			http.Error(w, `{"error":{"message":"invalid key"}}`, http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `data: {"error":{"message":"rate limited"}}`+"\n\n")
	}))
	defer server.Close()

	bad := NewOpenRouterGenerator(&config.OpenRouterConfig{APIKey: "bad", BaseURL: server.URL})
	_, err := bad.Stream(context.Background(), "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")

	good := NewOpenRouterGenerator(&config.OpenRouterConfig{APIKey: "good", BaseURL: server.URL})
	ch, err := good.Stream(context.Background(), "hi")
	require.NoError(t, err)
	_, err = collect(t, ch)
	assert.EqualError(t, err, "OpenRouter stream error: rate limited")
}
