package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"stock_market/internal/config"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// 上游目录一次拉取的上限，避免过多数据
const maxCatalogSize = 100

// 上游搜索返回条数上限
const maxUpstreamSearch = 20

// TushareClient 上游行情数据源客户端
// 每个操作最多尝试 retry 次，失败后固定间隔重试，
// 重试耗尽返回 *UpstreamError
type TushareClient struct {
	token         string
	baseURL       string
	timeout       time.Duration
	retry         int
	retryInterval time.Duration
	client        *http.Client
}

// TushareRequest 上游 API 请求结构
type TushareRequest struct {
	APIName string                 `json:"api_name"`
	Token   string                 `json:"token"`
	Params  map[string]interface{} `json:"params"`
	Fields  string                 `json:"fields,omitempty"`
}

// TushareResponse 上游 API 响应结构
type TushareResponse struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// TushareData 数据结构
type TushareData struct {
	Fields []string        `json:"fields"`
	Items  [][]interface{} `json:"items"`
}

// NewTushareClient 创建上游客户端
func NewTushareClient(cfg *config.TushareConfig) *TushareClient {
	return &TushareClient{
		token:         cfg.Token,
		baseURL:       cfg.BaseURL,
		timeout:       time.Duration(cfg.Timeout) * time.Second,
		retry:         cfg.Retry,
		retryInterval: time.Duration(cfg.RetryInterval) * time.Second,
		client: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
	}
}

// request 发送请求，带固定间隔重试
func (c *TushareClient) request(apiName string, params map[string]interface{}, fields string) (*TushareData, error) {
	reqData := TushareRequest{
		APIName: apiName,
		Token:   c.token,
		Params:  params,
		Fields:  fields,
	}

	jsonData, err := json.Marshal(reqData)
	if err != nil {
		return nil, fmt.Errorf("序列化请求失败: %w", err)
	}

	attempts := c.retry
	if attempts < 1 {
		attempts = 1
	}

	var resp *TushareResponse
	var lastErr error

	for i := 0; i < attempts; i++ {
		resp, lastErr = c.doRequest(jsonData)
		if lastErr == nil && resp.Code == 0 {
			break
		}
		if lastErr == nil {
			lastErr = fmt.Errorf("API 返回错误: %s", resp.Msg)
		}
		if i < attempts-1 {
			time.Sleep(c.retryInterval)
		}
	}

	if lastErr != nil {
		return nil, &UpstreamError{Op: apiName, Err: lastErr}
	}

	var data TushareData
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return nil, &UpstreamError{Op: apiName, Err: fmt.Errorf("解析响应数据失败: %w", err)}
	}

	return &data, nil
}

// doRequest 执行 HTTP 请求
func (c *TushareClient) doRequest(jsonData []byte) (*TushareResponse, error) {
	req, err := http.NewRequest("POST", c.baseURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	httpResp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("发送请求失败: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("上游返回状态码 %d", httpResp.StatusCode)
	}

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应失败: %w", err)
	}

	var resp TushareResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("解析响应失败: %w", err)
	}

	return &resp, nil
}

// ListStocks 获取股票目录
func (c *TushareClient) ListStocks() ([]StockInfo, error) {
	params := map[string]interface{}{
		"list_status": "L", // 只获取上市状态的股票
	}

	data, err := c.request("stock_basic", params, "")
	if err != nil {
		return nil, err
	}

	fieldMap := buildFieldMap(data.Fields)

	stocks := make([]StockInfo, 0, len(data.Items))
	for _, item := range data.Items {
		code := stripExchangeSuffix(getString(item, fieldMap["ts_code"]))
		if symbol := getString(item, fieldMap["symbol"]); symbol != "" {
			code = symbol
		}
		if code == "" {
			continue
		}
		stocks = append(stocks, StockInfo{
			Code:     code,
			Name:     getString(item, fieldMap["name"]),
			Market:   marketFromTSCode(getString(item, fieldMap["ts_code"]), code),
			Industry: getString(item, fieldMap["industry"]),
		})
		if len(stocks) >= maxCatalogSize {
			break
		}
	}

	return stocks, nil
}

// FetchRealtime 获取单只股票实时行情，上游无该股票时返回 (nil, nil)
func (c *TushareClient) FetchRealtime(code string) (*RealtimeData, error) {
	params := map[string]interface{}{
		"ts_code": code,
	}

	data, err := c.request("realtime_quote", params, "")
	if err != nil {
		return nil, err
	}

	if len(data.Items) == 0 {
		return nil, nil
	}

	fieldMap := buildFieldMap(data.Fields)
	quote := parseRealtimeRow(data.Items[0], fieldMap)
	return &quote, nil
}

// FetchHistory 获取历史日线数据
// period 支持 daily/weekly/monthly，日期格式 YYYYMMDD，区间为空时默认最近 30 天
func (c *TushareClient) FetchHistory(code, period, startDate, endDate string) ([]DailyBarData, error) {
	startDate, endDate = defaultHistoryRange(startDate, endDate)

	apiName := "daily"
	switch period {
	case "weekly":
		apiName = "weekly"
	case "monthly":
		apiName = "monthly"
	}

	params := map[string]interface{}{
		"ts_code":    code,
		"start_date": startDate,
		"end_date":   endDate,
	}

	data, err := c.request(apiName, params, "")
	if err != nil {
		return nil, err
	}

	fieldMap := buildFieldMap(data.Fields)

	bars := make([]DailyBarData, 0, len(data.Items))
	for _, item := range data.Items {
		date, err := time.Parse("20060102", getString(item, fieldMap["trade_date"]))
		if err != nil {
			continue
		}
		bars = append(bars, DailyBarData{
			Date:       date,
			Open:       getFloat(item, fieldMap["open"]),
			High:       getFloat(item, fieldMap["high"]),
			Low:        getFloat(item, fieldMap["low"]),
			Close:      getFloat(item, fieldMap["close"]),
			Volume:     int64(getFloat(item, fieldMap["vol"])),
			Amount:     getFloat(item, fieldMap["amount"]),
			ChangeRate: getFloat(item, fieldMap["pct_chg"]),
		})
	}

	return bars, nil
}

// Search 按代码或名称搜索
// 上游没有搜索接口，拉取实时快照后在本地过滤
func (c *TushareClient) Search(keyword string) ([]SearchResult, error) {
	data, err := c.request("realtime_quote", map[string]interface{}{}, "")
	if err != nil {
		return nil, err
	}

	fieldMap := buildFieldMap(data.Fields)
	keyword = strings.ToUpper(strings.TrimSpace(keyword))

	results := make([]SearchResult, 0)
	for _, item := range data.Items {
		quote := parseRealtimeRow(item, fieldMap)
		if !strings.Contains(strings.ToUpper(quote.Code), keyword) &&
			!strings.Contains(strings.ToUpper(quote.Name), keyword) {
			continue
		}
		results = append(results, SearchResult{
			Code:         quote.Code,
			Name:         quote.Name,
			CurrentPrice: quote.CurrentPrice,
			ChangeRate:   quote.ChangeRate,
			Market:       InferMarket(quote.Code),
		})
		if len(results) >= maxUpstreamSearch {
			break
		}
	}

	return results, nil
}

// GetMarketOverview 获取市场概览：两个指数快照加全市场涨跌统计
func (c *TushareClient) GetMarketOverview() (*MarketOverview, error) {
	overview := &MarketOverview{}

	var g errgroup.Group

	g.Go(func() error {
		snapshot, err := c.fetchIndex("000001.SH")
		if err != nil {
			return err
		}
		overview.SHIndex = snapshot
		return nil
	})

	g.Go(func() error {
		snapshot, err := c.fetchIndex("399001.SZ")
		if err != nil {
			return err
		}
		overview.SZIndex = snapshot
		return nil
	})

	g.Go(func() error {
		data, err := c.request("realtime_quote", map[string]interface{}{}, "")
		if err != nil {
			return err
		}
		fieldMap := buildFieldMap(data.Fields)
		overview.TotalStocks = len(data.Items)
		for _, item := range data.Items {
			rate := getFloat(item, fieldMap["pct_chg"])
			switch {
			case rate > 0:
				overview.UpCount++
			case rate < 0:
				overview.DownCount++
			default:
				overview.FlatCount++
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return overview, nil
}

// fetchIndex 获取单个指数快照
func (c *TushareClient) fetchIndex(tsCode string) (*IndexSnapshot, error) {
	params := map[string]interface{}{
		"ts_code": tsCode,
	}

	data, err := c.request("index_spot", params, "")
	if err != nil {
		return nil, err
	}
	if len(data.Items) == 0 {
		return nil, fmt.Errorf("指数 %s: %w", tsCode, ErrEmptyResult)
	}

	fieldMap := buildFieldMap(data.Fields)
	item := data.Items[0]
	return &IndexSnapshot{
		Name:         getString(item, fieldMap["name"]),
		Current:      getFloat(item, fieldMap["price"]),
		ChangeRate:   getFloat(item, fieldMap["pct_chg"]),
		ChangeAmount: getFloat(item, fieldMap["change"]),
	}, nil
}

// parseRealtimeRow 解析实时快照的单行数据
func parseRealtimeRow(item []interface{}, fieldMap map[string]int) RealtimeData {
	code := stripExchangeSuffix(getString(item, fieldMap["ts_code"]))
	return RealtimeData{
		Code:         code,
		Name:         getString(item, fieldMap["name"]),
		CurrentPrice: getFloat(item, fieldMap["price"]),
		ChangeRate:   getFloat(item, fieldMap["pct_chg"]),
		ChangeAmount: getFloat(item, fieldMap["change"]),
		Volume:       int64(getFloat(item, fieldMap["vol"])),
		Amount:       getFloat(item, fieldMap["amount"]),
		High:         getFloat(item, fieldMap["high"]),
		Low:          getFloat(item, fieldMap["low"]),
		Open:         getFloat(item, fieldMap["open"]),
		PreClose:     getFloat(item, fieldMap["pre_close"]),
		UpdatedAt:    time.Now(),
	}
}

// defaultHistoryRange 填充默认日期区间（最近 30 天）
func defaultHistoryRange(startDate, endDate string) (string, string) {
	if endDate == "" {
		endDate = time.Now().Format("20060102")
	}
	if startDate == "" {
		end, err := time.Parse("20060102", endDate)
		if err != nil {
			end = time.Now()
		}
		startDate = end.AddDate(0, 0, -(defaultHistoryDays - 1)).Format("20060102")
	}
	return startDate, endDate
}

// stripExchangeSuffix 去掉 ts_code 的交易所后缀，如 000001.SZ -> 000001
func stripExchangeSuffix(tsCode string) string {
	if i := strings.IndexByte(tsCode, '.'); i >= 0 {
		return tsCode[:i]
	}
	return tsCode
}

// marketFromTSCode 从 ts_code 后缀取市场，没有后缀时按代码前缀推断
func marketFromTSCode(tsCode, code string) string {
	if i := strings.IndexByte(tsCode, '.'); i >= 0 && i+1 < len(tsCode) {
		return strings.ToUpper(tsCode[i+1:])
	}
	return InferMarket(code)
}

// buildFieldMap 构造字段名到下标的映射
func buildFieldMap(fields []string) map[string]int {
	fieldMap := make(map[string]int, len(fields))
	for i, field := range fields {
		fieldMap[field] = i
	}
	return fieldMap
}

// 辅助函数
func getString(item []interface{}, index int) string {
	if index < 0 || index >= len(item) || item[index] == nil {
		return ""
	}
	if str, ok := item[index].(string); ok {
		return str
	}
	return ""
}

func getFloat(item []interface{}, index int) float64 {
	if index < 0 || index >= len(item) || item[index] == nil {
		return 0
	}
	switch v := item[index].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return 0
	}
}
