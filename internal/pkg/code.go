package pkg

import (
	cryptoRand "crypto/rand"
	"crypto/subtle"
	"encoding/hex"
)

const meetCodeLetters = "0123456789ABCDEFGHJKLMNPQRSTUVWXYZ" // 去掉易混的 I/O

// RandMeetCode 生成 n 位房间短码，调用方负责唯一性冲突重试
func RandMeetCode(n int) (string, error) {
	b := make([]byte, n)
	if _, err := cryptoRand.Read(b); err != nil {
		return "", err
	}
	for i := range b {
		b[i] = meetCodeLetters[int(b[i])%len(meetCodeLetters)]
	}
	return string(b), nil
}

// RandInviteToken 32 字节（256 bit）随机 hex，猜不动
func RandInviteToken() (string, error) {
	b := make([]byte, 32)
	if _, err := cryptoRand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// TokenEqual 常量时间比较，防 timing 侧信道
func TokenEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
