package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/peter-abah/conecr/internal/auth"
	apperrors "github.com/peter-abah/conecr/internal/errors"
	"github.com/peter-abah/conecr/pkg/response"
)

// TokenHandler 开发模式下的令牌签发器。
// 生产环境中身份由外部认证提供方签发，该接口只在 debug 模式注册
type TokenHandler struct {
	tokens *auth.TokenService
}

// NewTokenHandler 创建令牌处理器
func NewTokenHandler(tokens *auth.TokenService) *TokenHandler {
	return &TokenHandler{tokens: tokens}
}

// IssueTokenRequest 签发令牌请求
type IssueTokenRequest struct {
	UID string `json:"uid" binding:"required"`
}

// IssueToken 为指定 uid 签发令牌
// POST /api/v1/auth/token
func (h *TokenHandler) IssueToken(c *gin.Context) {
	var req IssueTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithMsg(c, apperrors.CodeInvalidParams, err.Error())
		return
	}

	token, err := h.tokens.Issue(req.UID)
	if err != nil {
		response.Error(c, apperrors.CodeServerError)
		return
	}
	response.Success(c, gin.H{"token": token})
}
