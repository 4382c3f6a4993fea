package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/pkg/logging"
	"github.com/wyfcoding/pkg/response"
	"github.com/wyfcoding/quantanalytics/internal/derivatives/application"
	"github.com/wyfcoding/quantanalytics/internal/derivatives/domain"
)

// HTTP 处理器
// 负责处理衍生品定价与波动率曲面相关的 HTTP 请求
type DerivativesHandler struct {
	svc *application.DerivativesService
}

// 创建 HTTP 处理器实例
func NewDerivativesHandler(svc *application.DerivativesService) *DerivativesHandler {
	return &DerivativesHandler{svc: svc}
}

// 注册路由
// 将处理器方法绑定到 Gin 路由引擎
func (h *DerivativesHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api/v1/derivatives")
	{
		api.POST("/option/price", h.PriceOption)
		api.POST("/option/compare", h.CompareModels)
		api.POST("/option/convergence", h.AnalyzeConvergence)
		api.POST("/iv/solve", h.SolveImpliedVol)
		api.POST("/surface/build", h.BuildSurface)
		api.GET("/surface/:ticker", h.GetSurface)
		api.GET("/surface/:ticker/term-structure", h.GetTermStructure)
		api.GET("/surface/:ticker/snapshots", h.ListSnapshots)
	}
}

// PriceOption 期权定价
func (h *DerivativesHandler) PriceOption(c *gin.Context) {
	var cmd application.PriceOptionCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	dto, err := h.svc.Pricing.PriceOption(c.Request.Context(), cmd)
	if err != nil {
		h.writeError(c, "failed to price option", err)
		return
	}
	response.Success(c, dto)
}

// CompareModels 模型对照
func (h *DerivativesHandler) CompareModels(c *gin.Context) {
	var cmd application.PriceOptionCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	cmp, err := h.svc.Pricing.CompareModels(c.Request.Context(), cmd)
	if err != nil {
		h.writeError(c, "failed to compare pricing models", err)
		return
	}
	response.Success(c, cmp)
}

// ConvergenceRequest 收敛性诊断请求
type ConvergenceRequest struct {
	application.PriceOptionCommand
	StepCounts []int `json:"step_counts"`
}

// AnalyzeConvergence 树模型收敛性诊断
func (h *DerivativesHandler) AnalyzeConvergence(c *gin.Context) {
	var req ConvergenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	points, err := h.svc.Pricing.AnalyzeConvergence(c.Request.Context(), req.PriceOptionCommand, req.StepCounts)
	if err != nil {
		h.writeError(c, "failed to analyze convergence", err)
		return
	}
	response.Success(c, gin.H{"convergence": points})
}

// SolveImpliedVol 隐含波动率求解
func (h *DerivativesHandler) SolveImpliedVol(c *gin.Context) {
	var cmd application.SolveIVCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	dto, err := h.svc.Pricing.SolveImpliedVol(c.Request.Context(), cmd)
	if err != nil {
		h.writeError(c, "failed to solve implied volatility", err)
		return
	}
	response.Success(c, dto)
}

// BuildSurface 构建波动率曲面
func (h *DerivativesHandler) BuildSurface(c *gin.Context) {
	var cmd application.BuildSurfaceCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	dto, err := h.svc.Surface.BuildSurface(c.Request.Context(), cmd)
	if err != nil {
		h.writeError(c, "failed to build volatility surface", err)
		return
	}
	response.Success(c, dto)
}

// GetSurface 查询最近一次构建的曲面
func (h *DerivativesHandler) GetSurface(c *gin.Context) {
	ticker := c.Param("ticker")
	optionType := c.DefaultQuery("option_type", string(domain.OptionTypeCall))
	includeGrid := strings.EqualFold(c.DefaultQuery("include_grid", "true"), "true")

	dto, err := h.svc.Surface.GetSurface(c.Request.Context(), ticker, optionType, includeGrid)
	if err != nil {
		h.writeError(c, "failed to get volatility surface", err)
		return
	}
	response.Success(c, dto)
}

// GetTermStructure 重建曲面并查询平值波动率期限结构
func (h *DerivativesHandler) GetTermStructure(c *gin.Context) {
	ticker := c.Param("ticker")
	optionType := c.DefaultQuery("option_type", string(domain.OptionTypeCall))
	riskFreeRate, err := strconv.ParseFloat(c.DefaultQuery("risk_free_rate", "0.05"), 64)
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid risk_free_rate", "")
		return
	}

	points, err := h.svc.Surface.GetTermStructure(c.Request.Context(), ticker, optionType, riskFreeRate)
	if err != nil {
		h.writeError(c, "failed to get term structure", err)
		return
	}
	response.Success(c, gin.H{"ticker": strings.ToUpper(ticker), "term_structure": points})
}

// ListSnapshots 查询历史快照摘要
func (h *DerivativesHandler) ListSnapshots(c *gin.Context) {
	ticker := c.Param("ticker")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	snapshots, err := h.svc.Surface.ListSnapshots(c.Request.Context(), ticker, limit)
	if err != nil {
		h.writeError(c, "failed to list surface snapshots", err)
		return
	}
	response.Success(c, gin.H{"ticker": strings.ToUpper(ticker), "snapshots": snapshots})
}

// writeError 按错误类别映射 HTTP 状态码
// 输入类错误 400，数据可用性错误 422，曲面未构建 404，其余 500
func (h *DerivativesHandler) writeError(c *gin.Context, msg string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrInvalidProbability),
		errors.Is(err, domain.ErrInvalidTreeParameter):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNoOptionsData),
		errors.Is(err, domain.ErrNoMarketData),
		errors.Is(err, domain.ErrNoQuotesRemaining),
		errors.Is(err, domain.ErrNoConvergedIV),
		errors.Is(err, domain.ErrVegaTooSmall):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, application.ErrSurfaceNotFound):
		status = http.StatusNotFound
	}

	if status == http.StatusInternalServerError {
		logging.Error(c.Request.Context(), msg, "error", err)
	}
	response.ErrorWithStatus(c, status, err.Error(), "")
}
