package models

import (
	"time"
)

// Stock 股票基本信息
type Stock struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Code      string    `gorm:"type:varchar(10);uniqueIndex;not null" json:"code"` // 股票代码
	Name      string    `gorm:"type:varchar(100)" json:"name"`                     // 股票名称
	Market    string    `gorm:"type:varchar(10);default:SH" json:"market"`         // 市场 SH/SZ
	Industry  string    `gorm:"type:varchar(100)" json:"industry"`                 // 所属行业
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 指定表名
func (Stock) TableName() string {
	return "stock_info"
}

// StockDaily 股票日线数据
// (stock_code, date) 唯一，入库后价格字段不再更新
type StockDaily struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	StockCode  string    `gorm:"type:varchar(10);uniqueIndex:idx_code_date,priority:1;not null" json:"stock_code"` // 股票代码
	Date       time.Time `gorm:"type:date;uniqueIndex:idx_code_date,priority:2;index:idx_date;not null" json:"-"`  // 交易日期
	Open       float64   `gorm:"type:decimal(10,2)" json:"open_price"`                                             // 开盘价
	High       float64   `gorm:"type:decimal(10,2)" json:"high_price"`                                             // 最高价
	Low        float64   `gorm:"type:decimal(10,2)" json:"low_price"`                                              // 最低价
	Close      float64   `gorm:"type:decimal(10,2)" json:"close_price"`                                            // 收盘价
	Volume     int64     `gorm:"type:bigint" json:"volume"`                                                        // 成交量
	Amount     float64   `gorm:"type:decimal(20,2)" json:"amount"`                                                 // 成交额
	ChangeRate float64   `gorm:"type:decimal(10,2)" json:"change_rate"`                                            // 涨跌幅(%)
	CreatedAt  time.Time `json:"created_at"`
}

// TableName 指定表名
func (StockDaily) TableName() string {
	return "stock_price"
}

// ChangeAmount 根据涨跌幅折算涨跌金额
func (d *StockDaily) ChangeAmount() float64 {
	return d.Close * d.ChangeRate / 100
}

// StockRealtime 股票实时行情，每只股票至多一条，刷新时原地覆盖
type StockRealtime struct {
	ID           uint      `gorm:"primaryKey" json:"-"`
	StockCode    string    `gorm:"type:varchar(10);uniqueIndex;not null" json:"stock_code"` // 股票代码
	Name         string    `gorm:"type:varchar(100)" json:"stock_name"`                     // 股票名称
	CurrentPrice float64   `gorm:"type:decimal(10,2)" json:"current_price"`                 // 当前价格
	ChangeRate   float64   `gorm:"type:decimal(10,2)" json:"change_rate"`                   // 涨跌幅(%)
	ChangeAmount float64   `gorm:"type:decimal(10,2)" json:"change_amount"`                 // 涨跌金额
	Volume       int64     `gorm:"type:bigint" json:"volume"`                               // 成交量
	Amount       float64   `gorm:"type:decimal(20,2)" json:"amount"`                        // 成交额
	High         float64   `gorm:"type:decimal(10,2)" json:"high_price"`                    // 今日最高
	Low          float64   `gorm:"type:decimal(10,2)" json:"low_price"`                     // 今日最低
	Open         float64   `gorm:"type:decimal(10,2)" json:"open_price"`                    // 今日开盘
	PreClose     float64   `gorm:"type:decimal(10,2)" json:"pre_close"`                     // 昨日收盘
	UpdatedAt    time.Time `json:"updated_at"`                                              // 最后刷新时间
}

// TableName 指定表名
func (StockRealtime) TableName() string {
	return "stock_realtime"
}
