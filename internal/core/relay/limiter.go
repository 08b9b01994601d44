package relay

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"recipe-nutrition/internal/infrastructure/config"
	"recipe-nutrition/internal/pkg/common"

	"go.uber.org/zap"
)

var (
	// ErrQueueFull 等待中的請求已達上限
	ErrQueueFull = errors.New("queue is full")
	// ErrLimiterClosed 限流器已關閉
	ErrLimiterClosed = errors.New("queue manager is closed")
)

// Status 隊列狀態
type Status struct {
	Active         int   `json:"active"`
	QueueLength    int   `json:"queue_length"`
	ProcessedCount int64 `json:"processed_count"`
	MaxQueueSize   int   `json:"max_queue_size"`
	Workers        int   `json:"workers"`
}

// Limiter 限制同時進行的生成數量，超出的請求最多排隊 MaxSize 個
type Limiter struct {
	config    *config.QueueConfig
	slots     chan struct{}
	done      chan struct{}
	once      sync.Once
	waiting   int64
	processed int64
}

// NewLimiter 創建新的限流器
func NewLimiter(cfg *config.QueueConfig) *Limiter {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	return &Limiter{
		config: cfg,
		slots:  make(chan struct{}, workers),
		done:   make(chan struct{}),
	}
}

// Acquire 取得執行名額，回傳的 release 必須呼叫一次
func (l *Limiter) Acquire(ctx context.Context) (func(), error) {
	select {
	case <-l.done:
		return nil, ErrLimiterClosed
	default:
	}

	select {
	case l.slots <- struct{}{}:
		return l.releaser(), nil
	default:
	}

	if atomic.AddInt64(&l.waiting, 1) > int64(l.config.MaxSize) {
		atomic.AddInt64(&l.waiting, -1)
		common.LogWarn("Relay queue is full",
			zap.Int("max_queue_size", l.config.MaxSize),
			zap.Int("workers", cap(l.slots)),
		)
		return nil, ErrQueueFull
	}
	defer atomic.AddInt64(&l.waiting, -1)

	common.LogDebug("Request enqueued",
		zap.Int64("queue_length", atomic.LoadInt64(&l.waiting)),
		zap.Int("max_queue_size", l.config.MaxSize),
	)

	select {
	case l.slots <- struct{}{}:
		return l.releaser(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-l.done:
		return nil, ErrLimiterClosed
	}
}

func (l *Limiter) releaser() func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			<-l.slots
			atomic.AddInt64(&l.processed, 1)
		})
	}
}

// Status 獲取隊列狀態
func (l *Limiter) Status() Status {
	return Status{
		Active:         len(l.slots),
		QueueLength:    int(atomic.LoadInt64(&l.waiting)),
		ProcessedCount: atomic.LoadInt64(&l.processed),
		MaxQueueSize:   l.config.MaxSize,
		Workers:        cap(l.slots),
	}
}

// Close 關閉限流器，等待中的請求會收到 ErrLimiterClosed
func (l *Limiter) Close() {
	l.once.Do(func() { close(l.done) })
}
