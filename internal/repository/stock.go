package repository

import (
	"errors"
	"fmt"
	"stock_market/internal/models"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StockRepository 股票数据持久层
// 三张表（stock_info / stock_price / stock_realtime）只经由这里读写，
// 并发安全完全依赖表上的唯一索引，不加应用层锁
type StockRepository struct {
	db *gorm.DB
}

// NewStockRepository 创建持久层
func NewStockRepository(db *gorm.DB) *StockRepository {
	return &StockRepository{db: db}
}

// GetStock 按代码查询股票，不存在时返回 (nil, nil)
func (r *StockRepository) GetStock(code string) (*models.Stock, error) {
	var stock models.Stock
	if err := r.db.Where("code = ?", code).First(&stock).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询股票失败: %w", err)
	}
	return &stock, nil
}

// UpsertStock 不存在时插入，已存在时只更新非空的元数据字段
// 返回是否新建了记录
func (r *StockRepository) UpsertStock(stock *models.Stock) (bool, error) {
	res := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoNothing: true,
	}).Create(stock)
	if res.Error != nil {
		return false, fmt.Errorf("保存股票失败: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		return true, nil
	}

	// 已存在，补充上游带来的元数据，空值不覆盖
	updates := make(map[string]interface{})
	if stock.Name != "" {
		updates["name"] = stock.Name
	}
	if stock.Market != "" {
		updates["market"] = stock.Market
	}
	if stock.Industry != "" {
		updates["industry"] = stock.Industry
	}
	if len(updates) > 0 {
		if err := r.db.Model(&models.Stock{}).Where("code = ?", stock.Code).Updates(updates).Error; err != nil {
			return false, fmt.Errorf("更新股票元数据失败: %w", err)
		}
	}
	return false, nil
}

// GetRealtime 查询实时行情，不存在时返回 (nil, nil)
func (r *StockRepository) GetRealtime(code string) (*models.StockRealtime, error) {
	var quote models.StockRealtime
	if err := r.db.Where("stock_code = ?", code).First(&quote).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询实时行情失败: %w", err)
	}
	return &quote, nil
}

// UpsertRealtime 原子覆盖单只股票的实时行情（last-writer-wins）
func (r *StockRepository) UpsertRealtime(quote *models.StockRealtime) error {
	err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "stock_code"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "current_price", "change_rate", "change_amount",
			"volume", "amount", "high", "low", "open", "pre_close", "updated_at",
		}),
	}).Create(quote).Error
	if err != nil {
		return fmt.Errorf("保存实时行情失败: %w", err)
	}
	return nil
}

// GetBars 查询区间内的日线数据，按日期降序
// start/end 为 nil 时不限制对应边界，limit <= 0 时不限制条数
func (r *StockRepository) GetBars(code string, start, end *time.Time, limit int) ([]models.StockDaily, error) {
	q := r.db.Where("stock_code = ?", code)
	if start != nil {
		q = q.Where("date >= ?", *start)
	}
	if end != nil {
		q = q.Where("date <= ?", *end)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var bars []models.StockDaily
	if err := q.Order("date desc").Find(&bars).Error; err != nil {
		return nil, fmt.Errorf("查询日线数据失败: %w", err)
	}
	return bars, nil
}

// CountBars 统计区间内的日线条数
func (r *StockRepository) CountBars(code string, start, end *time.Time) (int64, error) {
	q := r.db.Model(&models.StockDaily{}).Where("stock_code = ?", code)
	if start != nil {
		q = q.Where("date >= ?", *start)
	}
	if end != nil {
		q = q.Where("date <= ?", *end)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("统计日线条数失败: %w", err)
	}
	return count, nil
}

// UpsertBar 插入日线数据，(stock_code, date) 已存在时跳过（first-writer-wins）
// 唯一索引拒绝重复插入，并发重复刷新不会写坏数据
// 返回是否插入了新行
func (r *StockRepository) UpsertBar(bar *models.StockDaily) (bool, error) {
	res := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "stock_code"}, {Name: "date"}},
		DoNothing: true,
	}).Create(bar)
	if res.Error != nil {
		return false, fmt.Errorf("保存日线数据失败: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// SearchStocks 按代码或名称子串搜索（不区分大小写），最多 limit 条
func (r *StockRepository) SearchStocks(keyword string, limit int) ([]models.Stock, error) {
	pattern := "%" + strings.ToLower(strings.TrimSpace(keyword)) + "%"

	var stocks []models.Stock
	err := r.db.
		Where("LOWER(code) LIKE ? OR LOWER(name) LIKE ?", pattern, pattern).
		Order("code").
		Limit(limit).
		Find(&stocks).Error
	if err != nil {
		return nil, fmt.Errorf("搜索股票失败: %w", err)
	}
	return stocks, nil
}

// CountStocks 统计股票总数，market 非空时按市场过滤
func (r *StockRepository) CountStocks(market string) (int64, error) {
	q := r.db.Model(&models.Stock{})
	if market != "" {
		q = q.Where("market = ?", market)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("统计股票总数失败: %w", err)
	}
	return count, nil
}

// ListStocks 分页查询股票列表，market 非空时按市场过滤
func (r *StockRepository) ListStocks(offset, limit int, market string) ([]models.Stock, error) {
	q := r.db.Order("code")
	if market != "" {
		q = q.Where("market = ?", market)
	}

	var stocks []models.Stock
	if err := q.Offset(offset).Limit(limit).Find(&stocks).Error; err != nil {
		return nil, fmt.Errorf("查询股票列表失败: %w", err)
	}
	return stocks, nil
}
