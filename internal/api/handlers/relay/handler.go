package relay

import (
	"errors"
	"net/http"
	"strings"

	"recipe-nutrition/internal/core/relay"
	"recipe-nutrition/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler 文字生成串流處理器
type Handler struct {
	relay *relay.Relay
	debug bool
}

type generateRequest struct {
	Prompt string `json:"prompt"`
}

// NewHandler 創建串流處理器
func NewHandler(r *relay.Relay, debug bool) *Handler {
	return &Handler{relay: r, debug: debug}
}

// Generate 以 SSE 串流回傳生成內容，提示詞可放在 query、JSON 或表單
func (h *Handler) Generate(c *gin.Context) {
	prompt := promptFrom(c)
	if strings.TrimSpace(prompt) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": relay.ErrEmptyPrompt.Error()})
		return
	}

	chunks, err := h.relay.Stream(c.Request.Context(), prompt)
	if err != nil {
		if errors.Is(err, relay.ErrEmptyPrompt) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		e := common.AsCustomError(err)
		_ = c.Error(e)
		c.AbortWithStatusJSON(e.Status, e.Response(h.debug))
		return
	}

	streamID := common.GenerateUUID()
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Header("X-Stream-ID", streamID)
	c.Status(http.StatusOK)

	for chunk := range chunks {
		if chunk.Err != nil {
			common.LogWarn("生成串流中斷",
				zap.String("stream_id", streamID),
				zap.Error(chunk.Err),
			)
			c.SSEvent("error", gin.H{"error": common.ErrRelayFailed.Message})
			c.Writer.Flush()
			return
		}
		c.SSEvent("", chunk.Text)
		c.Writer.Flush()
	}

	if c.Request.Context().Err() != nil {
		return
	}
	c.SSEvent("done", gin.H{"done": true})
	c.Writer.Flush()
}

func promptFrom(c *gin.Context) string {
	if p := c.Query("prompt"); p != "" {
		return p
	}
	if c.Request.Method != http.MethodPost || c.Request.Body == nil {
		return ""
	}

	if strings.HasPrefix(c.ContentType(), "application/json") {
		var req generateRequest
		if err := common.DecodeJSON(c.Request.Body, &req); err != nil {
			return ""
		}
		return req.Prompt
	}
	return c.PostForm("prompt")
}
