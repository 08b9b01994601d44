package middleware

import (
	"math"
	"strconv"
	"sync"
	"time"

	"recipe-nutrition/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RateLimiter 令牌桶限流器
type RateLimiter struct {
	mu       sync.Mutex
	tokens   float64
	capacity float64
	rate     float64
	lastTime time.Time
	now      func() time.Time
}

// newRateLimiter 創建限流器，window 內最多 requests 次
func newRateLimiter(requests int, window time.Duration, now func() time.Time) *RateLimiter {
	return &RateLimiter{
		tokens:   float64(requests),
		capacity: float64(requests),
		rate:     float64(requests) / window.Seconds(),
		lastTime: now(),
		now:      now,
	}
}

// Allow 檢查是否允許請求
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	elapsed := now.Sub(rl.lastTime).Seconds()
	rl.lastTime = now

	// 依經過時間補充令牌
	rl.tokens = math.Min(rl.capacity, rl.tokens+elapsed*rl.rate)

	if rl.tokens >= 1 {
		rl.tokens--
		return true
	}
	return false
}

// idleSince 距離上次請求的時間
func (rl *RateLimiter) idleSince(now time.Time) time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return now.Sub(rl.lastTime)
}

// ClientRateLimiter 每個來源 IP 一個令牌桶，閒置的桶定期清除
type ClientRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*RateLimiter
	requests int
	window   time.Duration
	now      func() time.Time
	done     chan struct{}
	once     sync.Once
}

// NewClientRateLimiter 創建依 IP 限流器並啟動背景清理
func NewClientRateLimiter(requests int, window time.Duration) *ClientRateLimiter {
	cl := newClientRateLimiter(requests, window, time.Now)
	interval := window
	if interval <= 0 {
		interval = time.Minute
	}
	go cl.cleanupLoop(interval)
	return cl
}

func newClientRateLimiter(requests int, window time.Duration, now func() time.Time) *ClientRateLimiter {
	return &ClientRateLimiter{
		limiters: make(map[string]*RateLimiter),
		requests: requests,
		window:   window,
		now:      now,
		done:     make(chan struct{}),
	}
}

func (cl *ClientRateLimiter) get(ip string) *RateLimiter {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	rl, ok := cl.limiters[ip]
	if !ok {
		rl = newRateLimiter(cl.requests, cl.window, cl.now)
		cl.limiters[ip] = rl
	}
	return rl
}

func (cl *ClientRateLimiter) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cl.prune(cl.now())
		case <-cl.done:
			return
		}
	}
}

// prune 移除閒置超過 window 的桶；這些桶早已補滿，重建後行為相同
func (cl *ClientRateLimiter) prune(now time.Time) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	for ip, rl := range cl.limiters {
		if rl.idleSince(now) > cl.window {
			delete(cl.limiters, ip)
		}
	}
}

// size 目前追蹤的來源數
func (cl *ClientRateLimiter) size() int {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return len(cl.limiters)
}

// Close 停止背景清理
func (cl *ClientRateLimiter) Close() {
	cl.once.Do(func() { close(cl.done) })
}

// Middleware 限流中間件，依 c.ClientIP() 分別計算
func (cl *ClientRateLimiter) Middleware() gin.HandlerFunc {
	retryAfter := strconv.Itoa(int(math.Ceil(cl.window.Seconds())))

	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !cl.get(ip).Allow() {
			common.LogInfo("Rate limit exceeded",
				zap.String("ip", ip),
				zap.String("path", c.Request.URL.Path),
			)

			c.Header("Retry-After", retryAfter)
			c.AbortWithStatusJSON(common.ErrTooManyRequests.Status, common.ErrTooManyRequests.Response(false))
			return
		}

		c.Next()
	}
}
