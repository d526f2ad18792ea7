package service

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound 任何数据源（含回退）都拿不到记录
var ErrNotFound = errors.New("记录不存在")

// ErrEmptyResult 查询成功但没有匹配数据
var ErrEmptyResult = errors.New("查询结果为空")

// UpstreamError 上游数据源调用失败（重试耗尽后）
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("上游数据源 %s 调用失败: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// StockInfo 股票基本信息
type StockInfo struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Market   string `json:"market"`
	Industry string `json:"industry,omitempty"`
}

// RealtimeData 实时行情
type RealtimeData struct {
	Code         string    `json:"code"`
	Name         string    `json:"name"`
	CurrentPrice float64   `json:"current_price"`
	ChangeRate   float64   `json:"change_rate"`
	ChangeAmount float64   `json:"change_amount"`
	Volume       int64     `json:"volume"`
	Amount       float64   `json:"amount"`
	High         float64   `json:"high_price"`
	Low          float64   `json:"low_price"`
	Open         float64   `json:"open_price"`
	PreClose     float64   `json:"pre_close"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// DailyBarData 单日行情
type DailyBarData struct {
	Date       time.Time `json:"date"`
	Open       float64   `json:"open_price"`
	High       float64   `json:"high_price"`
	Low        float64   `json:"low_price"`
	Close      float64   `json:"close_price"`
	Volume     int64     `json:"volume"`
	Amount     float64   `json:"amount"`
	ChangeRate float64   `json:"change_rate"`
}

// SearchResult 搜索结果条目
type SearchResult struct {
	Code         string  `json:"code"`
	Name         string  `json:"name"`
	CurrentPrice float64 `json:"current_price"`
	ChangeRate   float64 `json:"change_rate"`
	Market       string  `json:"market"`
}

// IndexSnapshot 指数快照
type IndexSnapshot struct {
	Name         string  `json:"name"`
	Current      float64 `json:"current"`
	ChangeRate   float64 `json:"change_rate"`
	ChangeAmount float64 `json:"change_amount"`
}

// MarketOverview 市场概览聚合，不落库
type MarketOverview struct {
	SHIndex     *IndexSnapshot `json:"sh_index"`
	SZIndex     *IndexSnapshot `json:"sz_index"`
	TotalStocks int            `json:"total_stocks"`
	UpCount     int            `json:"up_count"`
	DownCount   int            `json:"down_count"`
	FlatCount   int            `json:"flat_count"`
}

// DataSource 行情数据源能力接口
// TushareClient 为上游实现，MockDataSource 为回退实现，
// 编排层在进程启动时注入，不区分二者
type DataSource interface {
	// ListStocks 获取股票目录
	ListStocks() ([]StockInfo, error)
	// FetchRealtime 获取单只股票实时行情，未找到返回 (nil, nil)
	FetchRealtime(code string) (*RealtimeData, error)
	// FetchHistory 获取历史日线，日期格式 YYYYMMDD，区间为空时默认最近 30 天
	FetchHistory(code, period, startDate, endDate string) ([]DailyBarData, error)
	// Search 按代码或名称搜索
	Search(keyword string) ([]SearchResult, error)
	// GetMarketOverview 获取市场概览
	GetMarketOverview() (*MarketOverview, error)
}

// InferMarket 根据代码前缀推断市场：6 开头为沪市，其余为深市
func InferMarket(code string) string {
	if len(code) > 0 && code[0] == '6' {
		return "SH"
	}
	return "SZ"
}
