package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestIsFresh 测试缓存新鲜度判断
func TestIsFresh(t *testing.T) {
	now := time.Date(2023, 12, 1, 10, 0, 0, 0, time.Local)
	ttl := 5 * time.Minute

	tests := []struct {
		name      string
		updatedAt time.Time
		want      bool
	}{
		{
			name:      "零值时间视为过期",
			updatedAt: time.Time{},
			want:      false,
		},
		{
			name:      "刚更新的数据是新鲜的",
			updatedAt: now.Add(-1 * time.Minute),
			want:      true,
		},
		{
			name:      "恰好到达 TTL 边界仍然新鲜",
			updatedAt: now.Add(-5 * time.Minute),
			want:      true,
		},
		{
			name:      "超过 TTL 视为过期",
			updatedAt: now.Add(-5*time.Minute - time.Second),
			want:      false,
		},
		{
			name:      "未来时间视为新鲜",
			updatedAt: now.Add(1 * time.Minute),
			want:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsFresh(tt.updatedAt, ttl, now))
		})
	}
}

// TestInferMarket 测试市场推断
func TestInferMarket(t *testing.T) {
	assert.Equal(t, "SH", InferMarket("600000"))
	assert.Equal(t, "SH", InferMarket("601318"))
	assert.Equal(t, "SZ", InferMarket("000001"))
	assert.Equal(t, "SZ", InferMarket("300059"))
	assert.Equal(t, "SZ", InferMarket(""))
}
