package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/peter-abah/conecr/internal/chat"
	apperrors "github.com/peter-abah/conecr/internal/errors"
	"github.com/peter-abah/conecr/pkg/response"
)

// ChatHandler 会话处理器
type ChatHandler struct {
	chatService *chat.Service
}

// NewChatHandler 创建会话处理器
func NewChatHandler(chatService *chat.Service) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// CreatePrivateRequest 创建私聊请求
type CreatePrivateRequest struct {
	UID string `json:"uid" binding:"required"` // 对方用户 ID
}

// CreatePrivate 创建（或幂等返回）与指定用户的私聊
// POST /api/v1/chats/private
func (h *ChatHandler) CreatePrivate(c *gin.Context) {
	var req CreatePrivateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithMsg(c, apperrors.CodeInvalidParams, err.Error())
		return
	}

	id, err := h.chatService.CreatePrivate(c.Request.Context(), req.UID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, gin.H{"id": id})
}

// CreateGroup 创建群聊
// POST /api/v1/chats/group
func (h *ChatHandler) CreateGroup(c *gin.Context) {
	var req chat.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithMsg(c, apperrors.CodeInvalidParams, err.Error())
		return
	}

	id, err := h.chatService.CreateGroup(c.Request.Context(), &req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, gin.H{"id": id})
}

// GetChat 获取会话
// GET /api/v1/chats/:id
func (h *ChatHandler) GetChat(c *gin.Context) {
	chatModel, err := h.chatService.GetChat(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, chatModel)
}

// DeleteChat 删除会话，按变体分派授权规则
// DELETE /api/v1/chats/:id
func (h *ChatHandler) DeleteChat(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	chatModel, err := h.chatService.GetChat(ctx, id)
	if err != nil {
		response.FromError(c, err)
		return
	}

	if chatModel.IsGroup() {
		err = h.chatService.DeleteGroup(ctx, id)
	} else {
		err = h.chatService.DeletePrivate(ctx, id)
	}
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, nil)
}

// AddMembersRequest 添加成员请求
type AddMembersRequest struct {
	UIDs []string `json:"uids" binding:"required"`
}

// AddMembers 向群聊添加成员
// POST /api/v1/chats/:id/members
func (h *ChatHandler) AddMembers(c *gin.Context) {
	var req AddMembersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithMsg(c, apperrors.CodeInvalidParams, err.Error())
		return
	}

	if err := h.chatService.AddMembers(c.Request.Context(), c.Param("id"), req.UIDs); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, nil)
}

// RemoveMember 从群聊移除成员
// DELETE /api/v1/chats/:id/members/:uid
func (h *ChatHandler) RemoveMember(c *gin.Context) {
	err := h.chatService.RemoveMember(c.Request.Context(), c.Param("id"), c.Param("uid"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, nil)
}

// SendMessageRequest 发送消息请求
type SendMessageRequest struct {
	Body string `json:"body" binding:"required"`
}

// SendMessage 发送消息
// POST /api/v1/chats/:id/messages
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithMsg(c, apperrors.CodeInvalidParams, err.Error())
		return
	}

	msg, err := h.chatService.SendMessage(c.Request.Context(), c.Param("id"), req.Body)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, msg)
}

// ListMessages 列出会话消息
// GET /api/v1/chats/:id/messages
func (h *ChatHandler) ListMessages(c *gin.Context) {
	messages, err := h.chatService.ListMessages(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, messages)
}
