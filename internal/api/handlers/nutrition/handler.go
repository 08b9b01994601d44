package nutrition

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"recipe-nutrition/internal/core/nutrition"
	"recipe-nutrition/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler 營養計算處理器
type Handler struct {
	engine *nutrition.Engine
	debug  bool
}

// CalculateRequest 計算請求
type CalculateRequest struct {
	Selected *[]int      `json:"selected"`
	Servings interface{} `json:"servings"`
}

// NewHandler 創建營養計算處理器
func NewHandler(engine *nutrition.Engine, debug bool) *Handler {
	return &Handler{engine: engine, debug: debug}
}

// ListRecipes 回傳食譜目錄，索引即陣列位置
func (h *Handler) ListRecipes(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.Recipes())
}

// Calculate 依選取的食譜與人數計算營養總量
func (h *Handler) Calculate(c *gin.Context) {
	var req CalculateRequest
	if err := common.DecodeJSON(c.Request.Body, &req); err != nil {
		h.fail(c, common.ErrInvalidRequest.Wrap(fmt.Errorf("invalid request body: %w", err)))
		return
	}
	if req.Selected == nil {
		h.fail(c, common.ErrInvalidRequest.Wrap(errors.New("selected is required")))
		return
	}

	servings, err := ParseServings(req.Servings)
	if err != nil {
		h.fail(c, common.ErrInvalidServings.Wrap(err))
		return
	}

	result, err := h.engine.Calculate(*req.Selected, servings)
	if err != nil {
		h.fail(c, mapError(err))
		return
	}

	common.LogDebug("營養計算完成",
		zap.Ints("selected", *req.Selected),
		zap.Float64("servings", servings),
		zap.String("request_id", requestid.Get(c)),
	)
	c.JSON(http.StatusOK, result)
}

// ParseServings 接受 JSON 數字或數字字串
func ParseServings(v interface{}) (float64, error) {
	var f float64
	var err error

	switch s := v.(type) {
	case nil:
		return 0, errors.New("servings is required")
	case json.Number:
		f, err = s.Float64()
	case float64:
		f = s
	case string:
		f, err = strconv.ParseFloat(strings.TrimSpace(s), 64)
	default:
		return 0, fmt.Errorf("servings must be a number, got %T", v)
	}
	if err != nil {
		return 0, fmt.Errorf("servings is not a number: %w", err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return 0, nutrition.ErrInvalidServings
	}
	return f, nil
}

func mapError(err error) *common.CustomError {
	switch {
	case errors.Is(err, nutrition.ErrIndexOutOfRange):
		return common.ErrIndexOutOfRange.Wrap(err)
	case errors.Is(err, nutrition.ErrInvalidServings):
		return common.ErrInvalidServings.Wrap(err)
	default:
		return common.AsCustomError(err)
	}
}

func (h *Handler) fail(c *gin.Context, e *common.CustomError) {
	_ = c.Error(e)
	c.AbortWithStatusJSON(e.Status, e.Response(h.debug))
}
