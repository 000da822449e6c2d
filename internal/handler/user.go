package handler

import (
	"github.com/gin-gonic/gin"

	apperrors "github.com/peter-abah/conecr/internal/errors"
	"github.com/peter-abah/conecr/internal/user"
	"github.com/peter-abah/conecr/pkg/response"
)

// UserHandler 用户处理器
type UserHandler struct {
	userService *user.Service
}

// NewUserHandler 创建用户处理器
func NewUserHandler(userService *user.Service) *UserHandler {
	return &UserHandler{userService: userService}
}

// ListUsers 分页列出用户目录
// GET /api/v1/users?cursor=<last uid>
func (h *UserHandler) ListUsers(c *gin.Context) {
	page, err := h.userService.ListPage(c.Request.Context(), c.Query("cursor"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, page)
}

// GetUser 获取指定用户资料
// GET /api/v1/users/:uid
func (h *UserHandler) GetUser(c *gin.Context) {
	u, err := h.userService.GetUser(c.Request.Context(), c.Param("uid"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, u)
}

// ResolveRequest 批量解析请求
type ResolveRequest struct {
	UIDs []string `json:"uids" binding:"required"`
}

// ResolveUsers 把成员 uid 列表解析为完整资料
// POST /api/v1/users/resolve
func (h *UserHandler) ResolveUsers(c *gin.Context) {
	var req ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithMsg(c, apperrors.CodeInvalidParams, err.Error())
		return
	}

	users, err := h.userService.ResolveParticipants(c.Request.Context(), req.UIDs)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, users)
}

// UpdateProfile 更新当前用户资料
// PUT /api/v1/user/profile
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req user.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithMsg(c, apperrors.CodeInvalidParams, err.Error())
		return
	}

	u, err := h.userService.UpdateProfile(c.Request.Context(), &req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, u)
}
