package service

import (
	"fmt"
	"stock_market/internal/config"
	"stock_market/internal/models"
	"strings"
	"time"

	"go.uber.org/zap"
)

// StockStore 编排层依赖的持久层能力
// repository.StockRepository 为生产实现
type StockStore interface {
	GetStock(code string) (*models.Stock, error)
	UpsertStock(stock *models.Stock) (bool, error)
	GetRealtime(code string) (*models.StockRealtime, error)
	UpsertRealtime(quote *models.StockRealtime) error
	GetBars(code string, start, end *time.Time, limit int) ([]models.StockDaily, error)
	CountBars(code string, start, end *time.Time) (int64, error)
	UpsertBar(bar *models.StockDaily) (bool, error)
	SearchStocks(keyword string, limit int) ([]models.Stock, error)
	CountStocks(market string) (int64, error)
	ListStocks(offset, limit int, market string) ([]models.Stock, error)
}

// StockListResult 分页的股票列表
type StockListResult struct {
	Results  []models.Stock `json:"results"`
	Count    int64          `json:"count"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
}

// MarketDataService 行情查询编排
// 每个查询先读库，按新鲜度策略决定是否向数据源刷新，
// 主数据源失败或无结果时改用回退数据源，结果写回库后返回
type MarketDataService struct {
	store    StockStore
	source   DataSource // 进程启动时选定的主数据源
	fallback DataSource // 回退数据源，构造上不会失败
	cfg      *config.MarketConfig
	logger   *zap.Logger
}

// NewMarketDataService 创建行情编排服务
func NewMarketDataService(store StockStore, source, fallback DataSource, cfg *config.MarketConfig, logger *zap.Logger) *MarketDataService {
	return &MarketDataService{
		store:    store,
		source:   source,
		fallback: fallback,
		cfg:      cfg,
		logger:   logger,
	}
}

// GetStock 查询股票基本信息
func (s *MarketDataService) GetStock(code string) (*models.Stock, error) {
	stock, err := s.store.GetStock(code)
	if err != nil {
		return nil, err
	}
	if stock == nil {
		return nil, ErrNotFound
	}
	return stock, nil
}

// GetRealtime 查询实时行情
// 库内数据在新鲜度阈值内直接返回，否则刷新后写回
func (s *MarketDataService) GetRealtime(code string) (*models.StockRealtime, error) {
	cached, err := s.store.GetRealtime(code)
	if err != nil {
		return nil, err
	}

	ttl := time.Duration(s.cfg.RealtimeTTL) * time.Second
	if cached != nil && IsFresh(cached.UpdatedAt, ttl, time.Now()) {
		return cached, nil
	}

	data := s.fetchRealtime(code)
	if data == nil {
		return nil, ErrNotFound
	}

	quote := &models.StockRealtime{
		StockCode:    data.Code,
		Name:         data.Name,
		CurrentPrice: data.CurrentPrice,
		ChangeRate:   data.ChangeRate,
		ChangeAmount: data.ChangeAmount,
		Volume:       data.Volume,
		Amount:       data.Amount,
		High:         data.High,
		Low:          data.Low,
		Open:         data.Open,
		PreClose:     data.PreClose,
		UpdatedAt:    data.UpdatedAt,
	}
	if err := s.store.UpsertRealtime(quote); err != nil {
		return nil, err
	}

	return quote, nil
}

// GetHistory 查询历史日线
// 库内条数达到阈值直接返回，否则向数据源补齐后单次回读
// 非法日期参数按未指定处理，不报错
func (s *MarketDataService) GetHistory(code, period, startDate, endDate string) ([]models.StockDaily, error) {
	start := parseDate(startDate)
	end := parseDate(endDate)

	count, err := s.store.CountBars(code, start, end)
	if err != nil {
		return nil, err
	}

	if count < int64(s.cfg.MinHistoryBars) {
		bars := s.fetchHistory(code, period, compactDate(start), compactDate(end))

		// 首次遇到的股票随历史刷新建档
		if len(bars) > 0 {
			if _, err := s.store.UpsertStock(&models.Stock{Code: code, Market: InferMarket(code)}); err != nil {
				return nil, err
			}
		}

		created := 0
		for i := range bars {
			inserted, err := s.store.UpsertBar(&models.StockDaily{
				StockCode:  code,
				Date:       bars[i].Date,
				Open:       bars[i].Open,
				High:       bars[i].High,
				Low:        bars[i].Low,
				Close:      bars[i].Close,
				Volume:     bars[i].Volume,
				Amount:     bars[i].Amount,
				ChangeRate: bars[i].ChangeRate,
			})
			if err != nil {
				return nil, err
			}
			if inserted {
				created++
			}
		}
		s.logger.Info("历史数据刷新完成",
			zap.String("code", code),
			zap.Int("fetched", len(bars)),
			zap.Int("created", created))
	}

	return s.store.GetBars(code, start, end, s.cfg.HistoryLimit)
}

// Search 搜索股票
// 库内命中时直接返回（附带已有实时行情），不访问数据源；
// 未命中时向数据源搜索并把结果建档
func (s *MarketDataService) Search(keyword string) ([]SearchResult, error) {
	stocks, err := s.store.SearchStocks(keyword, s.cfg.SearchLimit)
	if err != nil {
		return nil, err
	}

	if len(stocks) > 0 {
		results := make([]SearchResult, 0, len(stocks))
		for i := range stocks {
			result := SearchResult{
				Code:   stocks[i].Code,
				Name:   stocks[i].Name,
				Market: stocks[i].Market,
			}
			quote, err := s.store.GetRealtime(stocks[i].Code)
			if err != nil {
				return nil, err
			}
			if quote != nil {
				result.CurrentPrice = quote.CurrentPrice
				result.ChangeRate = quote.ChangeRate
			}
			results = append(results, result)
		}
		return results, nil
	}

	results := s.searchSource(keyword)
	for i := range results {
		market := results[i].Market
		if market == "" {
			market = InferMarket(results[i].Code)
			results[i].Market = market
		}
		if _, err := s.store.UpsertStock(&models.Stock{
			Code:   results[i].Code,
			Name:   results[i].Name,
			Market: market,
		}); err != nil {
			return nil, err
		}
	}

	return results, nil
}

// ListStocks 分页查询股票目录
// 目录数量低于阈值时视为冷启动，先从数据源拉取目录建档
func (s *MarketDataService) ListStocks(page, pageSize int, market string) (*StockListResult, error) {
	total, err := s.store.CountStocks("")
	if err != nil {
		return nil, err
	}

	if total < int64(s.cfg.CatalogMin) {
		infos := s.listSource()
		created := 0
		for i := range infos {
			isNew, err := s.store.UpsertStock(&models.Stock{
				Code:     infos[i].Code,
				Name:     infos[i].Name,
				Market:   infos[i].Market,
				Industry: infos[i].Industry,
			})
			if err != nil {
				return nil, err
			}
			if isNew {
				created++
			}
		}
		s.logger.Info("股票目录初始化完成",
			zap.Int("fetched", len(infos)),
			zap.Int("created", created))
	}

	count, err := s.store.CountStocks(market)
	if err != nil {
		return nil, err
	}

	stocks, err := s.store.ListStocks((page-1)*pageSize, pageSize, market)
	if err != nil {
		return nil, err
	}

	return &StockListResult{
		Results:  stocks,
		Count:    count,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

// GetMarketOverview 查询市场概览，不落库
func (s *MarketDataService) GetMarketOverview() (*MarketOverview, error) {
	overview, err := s.source.GetMarketOverview()
	if err == nil && overview != nil {
		return overview, nil
	}
	if err != nil {
		s.logger.Warn("上游市场概览获取失败，使用回退数据源", zap.Error(err))
	}

	overview, err = s.fallback.GetMarketOverview()
	if err != nil {
		return nil, fmt.Errorf("回退数据源市场概览失败: %w", err)
	}
	return overview, nil
}

// fetchRealtime 主数据源失败或无结果时改用回退数据源
func (s *MarketDataService) fetchRealtime(code string) *RealtimeData {
	data, err := s.source.FetchRealtime(code)
	if err == nil && data != nil {
		return data
	}
	if err != nil {
		s.logger.Warn("上游实时行情获取失败，使用回退数据源",
			zap.String("code", code), zap.Error(err))
	}

	data, err = s.fallback.FetchRealtime(code)
	if err != nil {
		s.logger.Error("回退数据源实时行情失败", zap.String("code", code), zap.Error(err))
		return nil
	}
	return data
}

// fetchHistory 主数据源失败或无结果时改用回退数据源
func (s *MarketDataService) fetchHistory(code, period, startDate, endDate string) []DailyBarData {
	bars, err := s.source.FetchHistory(code, period, startDate, endDate)
	if err == nil && len(bars) > 0 {
		return bars
	}
	if err != nil {
		s.logger.Warn("上游历史数据获取失败，使用回退数据源",
			zap.String("code", code), zap.Error(err))
	}

	bars, err = s.fallback.FetchHistory(code, period, startDate, endDate)
	if err != nil {
		s.logger.Error("回退数据源历史数据失败", zap.String("code", code), zap.Error(err))
		return nil
	}
	return bars
}

// searchSource 主数据源失败或无结果时改用回退数据源
func (s *MarketDataService) searchSource(keyword string) []SearchResult {
	results, err := s.source.Search(keyword)
	if err == nil && len(results) > 0 {
		return results
	}
	if err != nil {
		s.logger.Warn("上游搜索失败，使用回退数据源",
			zap.String("keyword", keyword), zap.Error(err))
	}

	results, err = s.fallback.Search(keyword)
	if err != nil {
		s.logger.Error("回退数据源搜索失败", zap.String("keyword", keyword), zap.Error(err))
		return nil
	}
	return results
}

// listSource 主数据源失败或无结果时改用回退数据源
func (s *MarketDataService) listSource() []StockInfo {
	infos, err := s.source.ListStocks()
	if err == nil && len(infos) > 0 {
		return infos
	}
	if err != nil {
		s.logger.Warn("上游股票目录获取失败，使用回退数据源", zap.Error(err))
	}

	infos, err = s.fallback.ListStocks()
	if err != nil {
		s.logger.Error("回退数据源股票目录失败", zap.Error(err))
		return nil
	}
	return infos
}

// parseDate 宽松解析 YYYY-MM-DD，无法解析时视为未指定
func parseDate(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil
	}
	return &t
}

// compactDate 转为数据源要求的 YYYYMMDD，nil 返回空串
func compactDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("20060102")
}
