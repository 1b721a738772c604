package middleware

import (
	"net/http"
	"strings"

	"raft_chat_server/pkg/errorx"
	"raft_chat_server/pkg/util/jwt"

	"github.com/gin-gonic/gin"
)

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"code": errorx.CodeUnauthorized,
		"msg":  msg,
	})
}

// bearerToken 优先取 Authorization 头，浏览器 WebSocket 无法设置头时退回 ?token=
func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		token := c.Query("token")
		return token, token != ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	return parts[1], true
}

// JWTAuth JWT 认证中间件
// 验证 Access Token 并将调用者身份存入上下文
func JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. 获取 Token
		token, ok := bearerToken(c)
		if !ok {
			abortUnauthorized(c, "请先登录，并使用 Bearer Token")
			return
		}

		// 2. 验证 Token
		claims, err := jwt.ParseToken(token)
		if err != nil {
			abortUnauthorized(c, "Token 已过期或无效，请重新登录")
			return
		}

		// 3. 验证是否为 Access Token
		if claims.Subject != jwt.SubjectAccess {
			abortUnauthorized(c, "请使用 Access Token 访问此接口")
			return
		}
		if claims.UserID == "" {
			abortUnauthorized(c, "Token 缺少用户信息")
			return
		}

		// 4. 将身份存入上下文，供后续 Handler 使用
		c.Set("user_id", claims.UserID)
		c.Set("user_name", claims.UserName)
		c.Set("role", claims.Role)
		c.Next()
	}
}
