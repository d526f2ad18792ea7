package service

import "time"

// 未指定区间时历史数据默认回溯天数
const defaultHistoryDays = 30

// IsFresh 判断缓存时间戳在阈值内是否仍然可用
// 纯函数，zero 值时间戳（从未刷新）视为过期
func IsFresh(updatedAt time.Time, ttl time.Duration, now time.Time) bool {
	if updatedAt.IsZero() {
		return false
	}
	return now.Sub(updatedAt) <= ttl
}
