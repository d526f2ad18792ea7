package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config 全局配置结构
type Config struct {
	Tushare  TushareConfig  `mapstructure:"tushare"`
	Database DatabaseConfig `mapstructure:"database"`
	Server   ServerConfig   `mapstructure:"server"`
	Market   MarketConfig   `mapstructure:"market"`
	Log      LogConfig      `mapstructure:"log"`
}

// TushareConfig 上游行情数据源配置
// Token 为空时不访问上游，进程启动时改用模拟数据源
type TushareConfig struct {
	Token         string `mapstructure:"token"`
	BaseURL       string `mapstructure:"base_url"`
	Timeout       int    `mapstructure:"timeout"`        // 单次请求超时（秒）
	Retry         int    `mapstructure:"retry"`          // 最大尝试次数
	RetryInterval int    `mapstructure:"retry_interval"` // 重试固定间隔（秒）
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Type            string `mapstructure:"type"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

// ServerConfig 服务配置
type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// MarketConfig 行情查询编排配置
type MarketConfig struct {
	RealtimeTTL    int `mapstructure:"realtime_ttl"`     // 实时行情新鲜度阈值（秒）
	MinHistoryBars int `mapstructure:"min_history_bars"` // 低于该条数视为历史数据不完整
	HistoryLimit   int `mapstructure:"history_limit"`    // 历史数据单次返回上限
	SearchLimit    int `mapstructure:"search_limit"`     // 搜索结果上限
	CatalogMin     int `mapstructure:"catalog_min"`      // 低于该数量视为股票目录未初始化
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

var GlobalConfig *Config

// LoadConfig 加载配置文件
func LoadConfig(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	// 读取配置文件
	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	// 解析配置
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	// 验证配置
	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	GlobalConfig = &config
	return &config, nil
}

// validateConfig 验证配置并填充默认值
func validateConfig(config *Config) error {
	if config.Database.Type != "postgres" && config.Database.Type != "mysql" {
		return fmt.Errorf("数据库类型必须是 postgres 或 mysql")
	}

	if config.Tushare.Timeout <= 0 {
		config.Tushare.Timeout = 30
	}
	if config.Tushare.Retry <= 0 {
		config.Tushare.Retry = 3
	}
	if config.Tushare.RetryInterval <= 0 {
		config.Tushare.RetryInterval = 1
	}

	if config.Market.RealtimeTTL <= 0 {
		config.Market.RealtimeTTL = 300
	}
	if config.Market.MinHistoryBars <= 0 {
		config.Market.MinHistoryBars = 10
	}
	if config.Market.HistoryLimit <= 0 {
		config.Market.HistoryLimit = 100
	}
	if config.Market.SearchLimit <= 0 {
		config.Market.SearchLimit = 10
	}
	if config.Market.CatalogMin <= 0 {
		config.Market.CatalogMin = 10
	}

	return nil
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	switch c.Type {
	case "postgres":
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable TimeZone=Asia/Shanghai",
			c.Host, c.Port, c.User, c.Password, c.DBName)
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			c.User, c.Password, c.Host, c.Port, c.DBName)
	default:
		return ""
	}
}
