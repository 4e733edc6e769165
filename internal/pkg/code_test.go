package pkg

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandMeetCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code, err := RandMeetCode(8)
		require.NoError(t, err)
		assert.Len(t, code, 8)
		// 易混淆的 I/O 不在字符集里
		assert.NotContains(t, code, "I")
		assert.NotContains(t, code, "O")
		seen[code] = true
	}
	assert.Greater(t, len(seen), 90)
}

func TestRandInviteToken(t *testing.T) {
	a, err := RandInviteToken()
	require.NoError(t, err)
	b, err := RandInviteToken()
	require.NoError(t, err)
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
	assert.Equal(t, strings.ToLower(a), a) // 十六进制小写
}

func TestTokenEqual(t *testing.T) {
	assert.True(t, TokenEqual("abc123", "abc123"))
	assert.False(t, TokenEqual("abc123", "abc124"))
	assert.False(t, TokenEqual("abc123", "abc1234"))
	assert.False(t, TokenEqual("", "x"))
}
