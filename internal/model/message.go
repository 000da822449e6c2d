package model

import (
	"time"

	"github.com/peter-abah/conecr/internal/store"
)

// Message 会话内的一条消息，排序按服务端分配的时间戳
type Message struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chatId"`
	Sender    string    `json:"sender"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
}

// MessageFromDocument 从存储文档构建消息
func MessageFromDocument(doc store.Document) *Message {
	return &Message{
		ID:        doc.ID,
		ChatID:    docString(doc.Data, "chatId"),
		Sender:    docString(doc.Data, "sender"),
		Body:      docString(doc.Data, "body"),
		CreatedAt: docTime(doc.Data, "createdAt"),
	}
}
