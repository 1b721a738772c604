package random

import (
	"crypto/rand"
	"math/big"
	"time"
)

const (
	upperAlnum = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	mixedAlnum = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

func pick(charset string, length int) string {
	result := make([]byte, length)
	charsetLen := big.NewInt(int64(len(charset)))
	for i := range result {
		n, err := rand.Int(rand.Reader, charsetLen)
		if err != nil {
			result[i] = charset[i%len(charset)]
			continue
		}
		result[i] = charset[n.Int64()]
	}
	return string(result)
}

// GetInviteCode 生成大写字母与数字组成的邀请码
// 示例: 7KQ2M9XA
func GetInviteCode(length int) string {
	return pick(upperAlnum, length)
}

// GetNowAndLenRandomString 生成带日期前缀的随机字符串（用于文件、举报等 UUID）
// 格式: YYMMDD + 字母数字混合，示例: 241230AbCdE12345
func GetNowAndLenRandomString(length int) string {
	return time.Now().Format("060102") + pick(mixedAlnum, length)
}
