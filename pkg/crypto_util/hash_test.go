package crypto_util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashLengths(t *testing.T) {
	data := []byte("ajently manifest payload")

	tests := []struct {
		name string
		fn   func([]byte) string
		want int // hex 字符数
	}{
		{"SHA256", CalculateSHA256, 64},
		{"Keccak256", CalculateKeccak256, 64},
		{"Blake3", CalculateBlake3, 64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.fn(data)
			assert.Len(t, got, tt.want)
			// 同一输入必须稳定
			assert.Equal(t, got, tt.fn(data))
		})
	}
}

func TestBlake3KnownVector(t *testing.T) {
	// 空输入的 Blake3 向量，防止依赖升级悄悄换了算法
	assert.Equal(t,
		"af1349b9f5f9a1a6a0404dea36dcc9499bcb25c9adc112b7cc9a93cae41f3262",
		CalculateBlake3(nil))
}
