package service

import (
	"math"
	"math/rand"
	"sort"
	"strings"
	"time"
)

// MockDataSource 模拟数据源
// 上游不可用或未配置时的回退实现，输出结构与上游完全一致，
// 数值在合理区间内随机生成，任何操作都不会失败
type MockDataSource struct {
	stocks []StockInfo
}

// NewMockDataSource 创建模拟数据源，内置 10 只种子股票
func NewMockDataSource() *MockDataSource {
	return &MockDataSource{
		stocks: []StockInfo{
			{Code: "000001", Name: "平安银行", Market: "SZ"},
			{Code: "000002", Name: "万科A", Market: "SZ"},
			{Code: "600000", Name: "浦发银行", Market: "SH"},
			{Code: "600036", Name: "招商银行", Market: "SH"},
			{Code: "000858", Name: "五粮液", Market: "SZ"},
			{Code: "600519", Name: "贵州茅台", Market: "SH"},
			{Code: "000725", Name: "京东方A", Market: "SZ"},
			{Code: "600276", Name: "恒瑞医药", Market: "SH"},
			{Code: "300059", Name: "东方财富", Market: "SZ"},
			{Code: "002415", Name: "海康威视", Market: "SZ"},
		},
	}
}

// ListStocks 返回种子股票目录
func (m *MockDataSource) ListStocks() ([]StockInfo, error) {
	stocks := make([]StockInfo, len(m.stocks))
	copy(stocks, m.stocks)
	return stocks, nil
}

// FetchRealtime 生成模拟实时行情，不在种子目录内的代码返回 (nil, nil)
func (m *MockDataSource) FetchRealtime(code string) (*RealtimeData, error) {
	stock := m.findStock(code)
	if stock == nil {
		return nil, nil
	}

	basePrice := m.uniform(10, 100)
	changeRate := m.uniform(-10, 10)
	changeAmount := basePrice * changeRate / 100

	return &RealtimeData{
		Code:         stock.Code,
		Name:         stock.Name,
		CurrentPrice: round2(basePrice),
		ChangeRate:   round2(changeRate),
		ChangeAmount: round2(changeAmount),
		Volume:       m.randInt64(1_000_000, 100_000_000),
		Amount:       float64(m.randInt64(100_000_000, 10_000_000_000)),
		High:         round2(basePrice * 1.05),
		Low:          round2(basePrice * 0.95),
		Open:         round2(basePrice * 0.98),
		PreClose:     round2(basePrice - changeAmount),
		UpdatedAt:    time.Now(),
	}, nil
}

// FetchHistory 生成随机游走的历史日线
// 每天的收盘价作为下一天的基准价，输出按日期升序
func (m *MockDataSource) FetchHistory(code, period, startDate, endDate string) ([]DailyBarData, error) {
	startDate, endDate = defaultHistoryRange(startDate, endDate)

	start, err := time.Parse("20060102", startDate)
	if err != nil {
		start = time.Now().AddDate(0, 0, -(defaultHistoryDays - 1))
	}
	end, err := time.Parse("20060102", endDate)
	if err != nil {
		end = time.Now()
	}

	basePrice := m.uniform(10, 100)

	var bars []DailyBarData
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dailyChange := m.uniform(-0.05, 0.05)
		open := basePrice * (1 + dailyChange)
		high := open * m.uniform(1.0, 1.05)
		low := open * m.uniform(0.95, 1.0)
		closePrice := open * m.uniform(0.98, 1.02)
		changeRate := (closePrice - basePrice) / basePrice * 100

		bars = append(bars, DailyBarData{
			Date:       time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.Local),
			Open:       round2(open),
			High:       round2(high),
			Low:        round2(low),
			Close:      round2(closePrice),
			Volume:     m.randInt64(1_000_000, 50_000_000),
			Amount:     float64(m.randInt64(100_000_000, 5_000_000_000)),
			ChangeRate: round2(changeRate),
		})

		basePrice = closePrice // 下一天的基准价格
	}

	sort.Slice(bars, func(i, j int) bool {
		return bars[i].Date.Before(bars[j].Date)
	})

	return bars, nil
}

// Search 在种子目录内按代码或名称匹配
func (m *MockDataSource) Search(keyword string) ([]SearchResult, error) {
	keyword = strings.ToUpper(strings.TrimSpace(keyword))

	results := make([]SearchResult, 0)
	for _, stock := range m.stocks {
		if !strings.Contains(strings.ToUpper(stock.Code), keyword) &&
			!strings.Contains(strings.ToUpper(stock.Name), keyword) {
			continue
		}
		quote, _ := m.FetchRealtime(stock.Code)
		results = append(results, SearchResult{
			Code:         stock.Code,
			Name:         stock.Name,
			CurrentPrice: quote.CurrentPrice,
			ChangeRate:   quote.ChangeRate,
			Market:       stock.Market,
		})
	}

	return results, nil
}

// GetMarketOverview 生成模拟市场概览
func (m *MockDataSource) GetMarketOverview() (*MarketOverview, error) {
	return &MarketOverview{
		SHIndex: &IndexSnapshot{
			Name:         "上证指数",
			Current:      round2(m.uniform(3000, 3500)),
			ChangeRate:   round2(m.uniform(-2, 2)),
			ChangeAmount: round2(m.uniform(-50, 50)),
		},
		SZIndex: &IndexSnapshot{
			Name:         "深证成指",
			Current:      round2(m.uniform(10000, 12000)),
			ChangeRate:   round2(m.uniform(-2, 2)),
			ChangeAmount: round2(m.uniform(-200, 200)),
		},
		TotalStocks: len(m.stocks),
		UpCount:     int(m.randInt64(3, 7)),
		DownCount:   int(m.randInt64(2, 5)),
		FlatCount:   int(m.randInt64(0, 2)),
	}, nil
}

// findStock 在种子目录内查找股票
func (m *MockDataSource) findStock(code string) *StockInfo {
	for i := range m.stocks {
		if m.stocks[i].Code == code {
			return &m.stocks[i]
		}
	}
	return nil
}

// uniform 生成 [min, max) 区间的随机数
// 包级 rand 并发安全，多个请求可同时取数
func (m *MockDataSource) uniform(min, max float64) float64 {
	return min + rand.Float64()*(max-min)
}

// randInt64 生成 [min, max] 区间的随机整数
func (m *MockDataSource) randInt64(min, max int64) int64 {
	return min + rand.Int63n(max-min+1)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
