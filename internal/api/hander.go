package api

import (
	"errors"
	"net/http"
	"stock_market/internal/service"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler API 处理器
// 只做参数提取和结果序列化，查询编排全部委托给 MarketDataService；
// 编排层的类型化错误在这里映射为 HTTP 状态码
type Handler struct {
	marketData *service.MarketDataService
	logger     *zap.Logger
}

// NewHandler 创建处理器
func NewHandler(marketData *service.MarketDataService, logger *zap.Logger) *Handler {
	return &Handler{
		marketData: marketData,
		logger:     logger,
	}
}

// DailyBarResponse 日线数据响应，日期格式化为 YYYY-MM-DD
type DailyBarResponse struct {
	StockCode    string  `json:"stock_code"`
	Date         string  `json:"date"`
	Open         float64 `json:"open_price"`
	High         float64 `json:"high_price"`
	Low          float64 `json:"low_price"`
	Close        float64 `json:"close_price"`
	Volume       int64   `json:"volume"`
	Amount       float64 `json:"amount"`
	ChangeRate   float64 `json:"change_rate"`
	ChangeAmount float64 `json:"change_amount"`
}

// RegisterRoutes 注册路由
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api")
	{
		// 健康检查
		api.GET("/health", h.HealthCheck)

		api.GET("/market/", h.GetMarketOverview)
		api.GET("/list/", h.ListStocks)
		api.GET("/search/", h.SearchStocks)
		api.GET("/stocks/:code/", h.GetStockDetail)
		api.GET("/stocks/:code/realtime/", h.GetRealtime)
		api.GET("/stocks/:code/history/", h.GetHistory)
	}
}

// HealthCheck 健康检查
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// GetMarketOverview 获取市场概览
func (h *Handler) GetMarketOverview(c *gin.Context) {
	overview, err := h.marketData.GetMarketOverview()
	if err != nil {
		h.logger.Error("获取市场概览失败", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取市场概览失败"})
		return
	}

	c.JSON(http.StatusOK, overview)
}

// ListStocks 获取股票列表
func (h *Handler) ListStocks(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	market := c.Query("market")

	result, err := h.marketData.ListStocks(page, pageSize, market)
	if err != nil {
		h.logger.Error("获取股票列表失败", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取股票列表失败"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// SearchStocks 搜索股票
func (h *Handler) SearchStocks(c *gin.Context) {
	keyword := strings.TrimSpace(c.Query("q"))
	if keyword == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请提供搜索关键词"})
		return
	}

	results, err := h.marketData.Search(keyword)
	if err != nil {
		h.logger.Error("搜索股票失败", zap.String("keyword", keyword), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "搜索失败"})
		return
	}
	if results == nil {
		results = []service.SearchResult{}
	}

	c.JSON(http.StatusOK, results)
}

// GetStockDetail 获取股票详细信息
func (h *Handler) GetStockDetail(c *gin.Context) {
	code := c.Param("code")

	stock, err := h.marketData.GetStock(code)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "股票不存在"})
			return
		}
		h.logger.Error("获取股票详情失败", zap.String("code", code), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取股票详情失败"})
		return
	}

	c.JSON(http.StatusOK, stock)
}

// GetRealtime 获取股票实时行情
func (h *Handler) GetRealtime(c *gin.Context) {
	code := c.Param("code")

	quote, err := h.marketData.GetRealtime(code)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "无法获取实时数据"})
			return
		}
		h.logger.Error("获取实时行情失败", zap.String("code", code), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取实时数据失败"})
		return
	}

	c.JSON(http.StatusOK, quote)
}

// GetHistory 获取股票历史数据
// 非法日期参数按未指定处理
func (h *Handler) GetHistory(c *gin.Context) {
	code := c.Param("code")
	period := c.DefaultQuery("period", "daily")
	startDate := c.Query("start_date")
	endDate := c.Query("end_date")

	bars, err := h.marketData.GetHistory(code, period, startDate, endDate)
	if err != nil {
		h.logger.Error("获取历史数据失败", zap.String("code", code), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取历史数据失败"})
		return
	}

	resp := make([]DailyBarResponse, 0, len(bars))
	for i := range bars {
		resp = append(resp, DailyBarResponse{
			StockCode:    bars[i].StockCode,
			Date:         bars[i].Date.Format("2006-01-02"),
			Open:         bars[i].Open,
			High:         bars[i].High,
			Low:          bars[i].Low,
			Close:        bars[i].Close,
			Volume:       bars[i].Volume,
			Amount:       bars[i].Amount,
			ChangeRate:   bars[i].ChangeRate,
			ChangeAmount: bars[i].ChangeAmount(),
		})
	}

	c.JSON(http.StatusOK, resp)
}
