package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/pkg/logging"
	"github.com/wyfcoding/pkg/response"
	"github.com/wyfcoding/quantanalytics/internal/analytics/application"
	"github.com/wyfcoding/quantanalytics/internal/analytics/domain"
)

// HTTP 处理器
// 负责组合分析相关的 HTTP 请求
type AnalyticsHandler struct {
	svc *application.AnalyticsService
}

// 创建 HTTP 处理器实例
func NewAnalyticsHandler(svc *application.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{svc: svc}
}

// 注册路由
func (h *AnalyticsHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api/v1/analytics")
	{
		api.POST("/regression", h.Regression)
		api.POST("/correlation", h.Correlation)
		api.POST("/pca", h.PCA)
		api.POST("/var/asset", h.AssetVaR)
		api.POST("/var/portfolio", h.PortfolioVaR)
		api.POST("/comprehensive", h.Comprehensive)
	}
}

// Regression 单因子回归分析
func (h *AnalyticsHandler) Regression(c *gin.Context) {
	var cmd application.RegressionCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	report, err := h.svc.Regression(c.Request.Context(), cmd)
	if err != nil {
		h.writeError(c, "failed to run regression analysis", err)
		return
	}
	response.Success(c, report)
}

// Correlation 相关性分析
func (h *AnalyticsHandler) Correlation(c *gin.Context) {
	var cmd application.CorrelationCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	result, err := h.svc.Correlation(c.Request.Context(), cmd)
	if err != nil {
		h.writeError(c, "failed to run correlation analysis", err)
		return
	}
	response.Success(c, result)
}

// PCA 主成分分析
func (h *AnalyticsHandler) PCA(c *gin.Context) {
	var cmd application.CorrelationCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	result, err := h.svc.PCA(c.Request.Context(), cmd)
	if err != nil {
		h.writeError(c, "failed to run pca analysis", err)
		return
	}
	response.Success(c, result)
}

// AssetVaR 单资产蒙特卡洛 VaR
func (h *AnalyticsHandler) AssetVaR(c *gin.Context) {
	var cmd application.AssetVaRCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	report, err := h.svc.AssetVaR(c.Request.Context(), cmd)
	if err != nil {
		h.writeError(c, "failed to simulate asset var", err)
		return
	}
	response.Success(c, report)
}

// PortfolioVaR 组合蒙特卡洛 VaR
func (h *AnalyticsHandler) PortfolioVaR(c *gin.Context) {
	var cmd application.PortfolioVaRCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	report, err := h.svc.PortfolioVaR(c.Request.Context(), cmd)
	if err != nil {
		h.writeError(c, "failed to simulate portfolio var", err)
		return
	}
	response.Success(c, report)
}

// Comprehensive 综合分析报告
func (h *AnalyticsHandler) Comprehensive(c *gin.Context) {
	var cmd application.ComprehensiveCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	report, err := h.svc.Comprehensive(c.Request.Context(), cmd)
	if err != nil {
		h.writeError(c, "failed to build comprehensive report", err)
		return
	}
	response.Success(c, report)
}

// writeError 按错误类别映射状态码：
// 输入不合法 400，数据不足 422，其余 500
func (h *AnalyticsHandler) writeError(c *gin.Context, msg string, err error) {
	switch {
	case errors.Is(err, domain.ErrSeriesMismatch):
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
	case errors.Is(err, application.ErrNoPriceData),
		errors.Is(err, domain.ErrInsufficientData),
		errors.Is(err, domain.ErrNeedTwoAssets):
		response.ErrorWithStatus(c, http.StatusUnprocessableEntity, err.Error(), "")
	default:
		logging.Error(c.Request.Context(), msg, "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, msg, err.Error())
	}
}
