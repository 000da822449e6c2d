package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/peter-abah/conecr/internal/chat"
	"github.com/peter-abah/conecr/internal/model"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// 跨域已由 CORS 中间件处理
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSHandler 实时推送处理器
type WSHandler struct {
	chatService *chat.Service
	logger      *slog.Logger
}

// NewWSHandler 创建实时推送处理器
func NewWSHandler(chatService *chat.Service) *WSHandler {
	return &WSHandler{
		chatService: chatService,
		logger:      slog.Default(),
	}
}

// StreamChats 通过 websocket 推送会话列表快照。
// 每帧是完整的当前列表，客户端整体替换本地状态；
// 连接断开即取消订阅
// GET /api/v1/ws/chats
func (h *WSHandler) StreamChats(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("Failed to upgrade websocket", "error", err)
		return
	}
	defer conn.Close()

	send := make(chan []byte, 16)
	unsub, err := h.chatService.Subscribe(c.Request.Context(), func(chats []*model.Chat) {
		payload, err := json.Marshal(chats)
		if err != nil {
			h.logger.Error("Failed to encode chat snapshot", "error", err)
			return
		}
		// 每帧都是权威的全量快照，客户端太慢时丢弃最旧的一帧，
		// 订阅回调是唯一的生产者
		select {
		case send <- payload:
		default:
			select {
			case <-send:
			default:
			}
			send <- payload
		}
	})
	if err != nil {
		h.logger.Warn("Failed to subscribe chats", "error", err)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "subscribe failed"),
			time.Now().Add(writeWait))
		return
	}
	defer unsub()

	done := make(chan struct{})
	go h.writeLoop(conn, send, done)

	// 读循环只用于感知客户端断开
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			close(done)
			return
		}
	}
}

func (h *WSHandler) writeLoop(conn *websocket.Conn, send <-chan []byte, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case payload := <-send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
