// Package handler 提供 HTTP 请求处理器
// 本文件处理认证相关的 API 请求
package handler

import (
	"raft_chat_server/internal/dto/request"
	"raft_chat_server/pkg/errorx"
	"raft_chat_server/pkg/util/jwt"

	"github.com/gin-gonic/gin"
)

// AuthHandler Token 刷新
// 登录由外部身份服务负责，这里只用 Refresh Token 换取新的 Access Token
type AuthHandler struct{}

func NewAuthHandler() *AuthHandler {
	return &AuthHandler{}
}

// Refresh 刷新 Access Token
// POST /auth/refresh
// 请求体: request.RefreshTokenRequest
// 响应: { accessToken: string }
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req request.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}

	// 1. 解析 Refresh Token
	claims, err := jwt.ParseToken(req.RefreshToken)
	if err != nil {
		HandleError(c, errorx.New(errorx.CodeUnauthorized, "Refresh Token 已过期或无效，请重新登录"))
		return
	}

	// 2. 防止使用 Access Token 刷新
	if claims.Subject != jwt.SubjectRefresh {
		HandleError(c, errorx.New(errorx.CodeUnauthorized, "请使用 Refresh Token"))
		return
	}

	// 3. 沿用 Refresh Token 中的身份生成新的 Access Token
	accessToken, err := jwt.GenerateAccessToken(claims.Identity)
	if err != nil {
		HandleError(c, errorx.ErrServerBusy)
		return
	}
	HandleSuccess(c, gin.H{"accessToken": accessToken})
}
