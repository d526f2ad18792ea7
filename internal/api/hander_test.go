package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sort"
	"strings"
	"testing"
	"time"

	"stock_market/internal/config"
	"stock_market/internal/models"
	"stock_market/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memStore 内存版持久层，供路由测试使用
type memStore struct {
	stocks map[string]*models.Stock
	quotes map[string]*models.StockRealtime
	bars   map[string]map[string]models.StockDaily
}

func newMemStore() *memStore {
	return &memStore{
		stocks: make(map[string]*models.Stock),
		quotes: make(map[string]*models.StockRealtime),
		bars:   make(map[string]map[string]models.StockDaily),
	}
}

func (m *memStore) GetStock(code string) (*models.Stock, error) {
	return m.stocks[code], nil
}

func (m *memStore) UpsertStock(stock *models.Stock) (bool, error) {
	if existing, ok := m.stocks[stock.Code]; ok {
		if stock.Name != "" {
			existing.Name = stock.Name
		}
		if stock.Market != "" {
			existing.Market = stock.Market
		}
		if stock.Industry != "" {
			existing.Industry = stock.Industry
		}
		return false, nil
	}
	clone := *stock
	m.stocks[stock.Code] = &clone
	return true, nil
}

func (m *memStore) GetRealtime(code string) (*models.StockRealtime, error) {
	return m.quotes[code], nil
}

func (m *memStore) UpsertRealtime(quote *models.StockRealtime) error {
	clone := *quote
	m.quotes[quote.StockCode] = &clone
	return nil
}

func (m *memStore) GetBars(code string, start, end *time.Time, limit int) ([]models.StockDaily, error) {
	var result []models.StockDaily
	for _, bar := range m.bars[code] {
		if start != nil && bar.Date.Before(*start) {
			continue
		}
		if end != nil && bar.Date.After(*end) {
			continue
		}
		result = append(result, bar)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Date.After(result[j].Date)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *memStore) CountBars(code string, start, end *time.Time) (int64, error) {
	bars, err := m.GetBars(code, start, end, 0)
	return int64(len(bars)), err
}

func (m *memStore) UpsertBar(bar *models.StockDaily) (bool, error) {
	key := bar.Date.Format("20060102")
	if m.bars[bar.StockCode] == nil {
		m.bars[bar.StockCode] = make(map[string]models.StockDaily)
	}
	if _, ok := m.bars[bar.StockCode][key]; ok {
		return false, nil
	}
	m.bars[bar.StockCode][key] = *bar
	return true, nil
}

func (m *memStore) SearchStocks(keyword string, limit int) ([]models.Stock, error) {
	keyword = strings.ToLower(keyword)
	var result []models.Stock
	for _, stock := range m.stocks {
		if strings.Contains(strings.ToLower(stock.Code), keyword) ||
			strings.Contains(strings.ToLower(stock.Name), keyword) {
			result = append(result, *stock)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Code < result[j].Code
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *memStore) CountStocks(market string) (int64, error) {
	var count int64
	for _, stock := range m.stocks {
		if market != "" && stock.Market != market {
			continue
		}
		count++
	}
	return count, nil
}

func (m *memStore) ListStocks(offset, limit int, market string) ([]models.Stock, error) {
	var result []models.Stock
	for _, stock := range m.stocks {
		if market != "" && stock.Market != market {
			continue
		}
		result = append(result, *stock)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Code < result[j].Code
	})
	if offset >= len(result) {
		return nil, nil
	}
	result = result[offset:]
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// setupRouter 组装测试路由：内存库加模拟数据源
func setupRouter(store *memStore) *gin.Engine {
	gin.SetMode(gin.TestMode)

	mock := service.NewMockDataSource()
	cfg := &config.MarketConfig{
		RealtimeTTL:    300,
		MinHistoryBars: 10,
		HistoryLimit:   100,
		SearchLimit:    10,
		CatalogMin:     10,
	}
	marketData := service.NewMarketDataService(store, mock, mock, cfg, zap.NewNop())

	r := gin.New()
	NewHandler(marketData, zap.NewNop()).RegisterRoutes(r)
	return r
}

func doGet(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", path, nil)
	r.ServeHTTP(w, req)
	return w
}

// TestHealthCheck 测试健康检查
func TestHealthCheck(t *testing.T) {
	r := setupRouter(newMemStore())

	w := doGet(r, "/api/health")

	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

// TestSearchStocks_MissingKeyword 测试缺少关键词返回 400
func TestSearchStocks_MissingKeyword(t *testing.T) {
	r := setupRouter(newMemStore())

	w := doGet(r, "/api/search/")

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body["error"], "关键词")
}

// TestSearchStocks_Found 测试搜索返回结果数组
func TestSearchStocks_Found(t *testing.T) {
	r := setupRouter(newMemStore())

	w := doGet(r, "/api/search/?q=%E5%B9%B3%E5%AE%89") // q=平安

	assert.Equal(t, http.StatusOK, w.Code)

	var results []service.SearchResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "000001", results[0].Code)
	assert.Equal(t, "SZ", results[0].Market)
}

// TestSearchStocks_NoMatch 测试无匹配时返回空数组而不是 404
func TestSearchStocks_NoMatch(t *testing.T) {
	r := setupRouter(newMemStore())

	w := doGet(r, "/api/search/?q=zzz")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", strings.TrimSpace(w.Body.String()))
}

// TestGetStockDetail 测试股票详情
func TestGetStockDetail(t *testing.T) {
	store := newMemStore()
	store.stocks["000001"] = &models.Stock{Code: "000001", Name: "平安银行", Market: "SZ"}
	r := setupRouter(store)

	w := doGet(r, "/api/stocks/000001/")

	assert.Equal(t, http.StatusOK, w.Code)

	var stock models.Stock
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stock))
	assert.Equal(t, "平安银行", stock.Name)
}

// TestGetStockDetail_NotFound 测试不存在的股票返回 404
func TestGetStockDetail_NotFound(t *testing.T) {
	r := setupRouter(newMemStore())

	w := doGet(r, "/api/stocks/999999/")

	assert.Equal(t, http.StatusNotFound, w.Code)
}

// TestGetRealtime 测试实时行情经由回退数据源生成并写库
func TestGetRealtime(t *testing.T) {
	store := newMemStore()
	r := setupRouter(store)

	w := doGet(r, "/api/stocks/600519/realtime/")

	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "600519", body["stock_code"])
	assert.Equal(t, "贵州茅台", body["stock_name"])

	// 行情写回库
	assert.NotNil(t, store.quotes["600519"])
}

// TestGetRealtime_NotFound 测试数据源都没有的代码返回 404
func TestGetRealtime_NotFound(t *testing.T) {
	r := setupRouter(newMemStore())

	w := doGet(r, "/api/stocks/999999/realtime/")

	assert.Equal(t, http.StatusNotFound, w.Code)
}

// TestGetHistory_DateFormat 测试历史数据的日期格式
func TestGetHistory_DateFormat(t *testing.T) {
	r := setupRouter(newMemStore())

	w := doGet(r, "/api/stocks/000001/history/")

	assert.Equal(t, http.StatusOK, w.Code)

	var bars []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &bars))
	require.Len(t, bars, 30)

	datePattern := regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	for _, bar := range bars {
		date, ok := bar["date"].(string)
		require.True(t, ok)
		assert.Regexp(t, datePattern, date)
		assert.Equal(t, "000001", bar["stock_code"])
	}
}

// TestListStocks 测试股票列表冷启动后分页返回
func TestListStocks(t *testing.T) {
	r := setupRouter(newMemStore())

	w := doGet(r, "/api/list/?page=1&page_size=5")

	assert.Equal(t, http.StatusOK, w.Code)

	var result struct {
		Results  []models.Stock `json:"results"`
		Count    int64          `json:"count"`
		Page     int            `json:"page"`
		PageSize int            `json:"page_size"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, int64(10), result.Count)
	assert.Len(t, result.Results, 5)
	assert.Equal(t, 1, result.Page)
	assert.Equal(t, 5, result.PageSize)
}

// TestListStocks_MarketFilter 测试市场过滤参数
func TestListStocks_MarketFilter(t *testing.T) {
	r := setupRouter(newMemStore())

	w := doGet(r, "/api/list/?market=SH")

	assert.Equal(t, http.StatusOK, w.Code)

	var result struct {
		Results []models.Stock `json:"results"`
		Count   int64          `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, int64(4), result.Count)
	for _, stock := range result.Results {
		assert.Equal(t, "SH", stock.Market)
	}
}

// TestGetMarketOverview 测试市场概览
func TestGetMarketOverview(t *testing.T) {
	r := setupRouter(newMemStore())

	w := doGet(r, "/api/market/")

	assert.Equal(t, http.StatusOK, w.Code)

	var overview service.MarketOverview
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &overview))
	require.NotNil(t, overview.SHIndex)
	require.NotNil(t, overview.SZIndex)
	assert.Equal(t, "上证指数", overview.SHIndex.Name)
	assert.Equal(t, 10, overview.TotalStocks)
}
