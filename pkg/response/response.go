package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/peter-abah/conecr/internal/errors"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// codeMessages 错误码对应的默认消息
var codeMessages = map[int]string{
	apperrors.CodeSuccess:         "success",
	apperrors.CodeUnauthenticated: "未登录或登录已过期",
	apperrors.CodeNotAuthorized:   "没有权限执行该操作",
	apperrors.CodeTokenInvalid:    "Token 无效",
	apperrors.CodeTokenExpired:    "Token 已过期",
	apperrors.CodeUserNotFound:    "用户不存在",
	apperrors.CodeInvalidParams:   "参数校验失败",
	apperrors.CodeChatNotFound:    "会话不存在",
	apperrors.CodeServerError:     "服务器内部错误",
	apperrors.CodeStoreError:      "存储后端错误",
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    apperrors.CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

// Error 按错误码返回错误响应
func Error(c *gin.Context, code int) {
	message := codeMessages[code]
	if message == "" {
		message = "unknown error"
	}
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: message,
		Data:    nil,
	})
}

// ErrorWithMsg 带自定义消息的错误响应
func ErrorWithMsg(c *gin.Context, code int, message string) {
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: message,
		Data:    nil,
	})
}

// FromError 从 error 构造错误响应
// AppError 保留原错误码与消息，其他错误统一映射为服务器内部错误
func FromError(c *gin.Context, err error) {
	c.JSON(http.StatusOK, Response{
		Code:    apperrors.GetCode(err),
		Message: apperrors.GetMessage(err),
		Data:    nil,
	})
}
