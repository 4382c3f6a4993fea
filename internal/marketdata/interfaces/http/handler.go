package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/pkg/logging"
	"github.com/wyfcoding/pkg/response"
	"github.com/wyfcoding/quantanalytics/internal/marketdata/application"
	"github.com/wyfcoding/quantanalytics/internal/marketdata/domain"
)

// HTTP 处理器
// 负责处理行情摄取与查询相关的 HTTP 请求
type MarketDataHandler struct {
	svc *application.MarketDataService
}

// 创建 HTTP 处理器实例
func NewMarketDataHandler(svc *application.MarketDataService) *MarketDataHandler {
	return &MarketDataHandler{svc: svc}
}

// 注册路由
// 期权链挂在 /api/v1/options 下，与定价侧消费的路径保持一致
func (h *MarketDataHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api/v1/marketdata")
	{
		api.POST("/ingest", h.IngestDaily)
		api.GET("/history/:ticker", h.GetHistory)
		api.GET("/snapshot/:ticker", h.GetSnapshot)
		api.POST("/snapshot/:ticker/refresh", h.RefreshSnapshot)
	}
	router.GET("/api/v1/options/chain", h.GetOptionChain)
}

// IngestDaily 摄取最近 N 个交易日的日线
func (h *MarketDataHandler) IngestDaily(c *gin.Context) {
	var cmd application.IngestCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	result, err := h.svc.Ingest.IngestDaily(c.Request.Context(), cmd)
	if err != nil {
		h.writeError(c, "failed to ingest daily bars", err)
		return
	}
	response.Success(c, result)
}

// GetHistory 查询已落库的历史日线
func (h *MarketDataHandler) GetHistory(c *gin.Context) {
	ticker := c.Param("ticker")
	days, _ := strconv.Atoi(c.DefaultQuery("days", "0"))

	history, err := h.svc.Query.History(c.Request.Context(), ticker, days)
	if err != nil {
		h.writeError(c, "failed to get price history", err)
		return
	}
	response.Success(c, history)
}

// GetSnapshot 查询最新行情快照
func (h *MarketDataHandler) GetSnapshot(c *gin.Context) {
	snapshot, err := h.svc.Query.Snapshot(c.Request.Context(), c.Param("ticker"))
	if err != nil {
		h.writeError(c, "failed to get ticker snapshot", err)
		return
	}
	response.Success(c, snapshot)
}

// RefreshSnapshot 强制回源刷新快照
func (h *MarketDataHandler) RefreshSnapshot(c *gin.Context) {
	snapshot, err := h.svc.Ingest.RefreshSnapshot(c.Request.Context(), c.Param("ticker"))
	if err != nil {
		h.writeError(c, "failed to refresh ticker snapshot", err)
		return
	}
	response.Success(c, snapshot)
}

// GetOptionChain 查询期权链快照
func (h *MarketDataHandler) GetOptionChain(c *gin.Context) {
	ticker := c.Query("ticker")
	if ticker == "" {
		response.ErrorWithStatus(c, http.StatusBadRequest, "ticker is required", "")
		return
	}

	chain, err := h.svc.Query.OptionChain(c.Request.Context(), ticker)
	if err != nil {
		h.writeError(c, "failed to get option chain", err)
		return
	}
	response.Success(c, chain)
}

// writeError 按错误类别映射 HTTP 状态码
// 输入类错误 400，标的不存在 404，无数据 422，其余 500
func (h *MarketDataHandler) writeError(c *gin.Context, msg string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidBar):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrTickerNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrNoBars):
		status = http.StatusUnprocessableEntity
	}

	if status == http.StatusInternalServerError {
		logging.Error(c.Request.Context(), msg, "error", err)
	}
	response.ErrorWithStatus(c, status, err.Error(), "")
}
