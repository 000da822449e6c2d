package model

import (
	"fmt"
	"time"

	"github.com/peter-abah/conecr/internal/store"
)

// ChatType 会话类型判别字段
type ChatType string

const (
	ChatTypePrivate ChatType = "private" // 两人私聊
	ChatTypeGroup   ChatType = "group"   // 群聊
)

// Chat 会话，私聊与群聊的标签联合
// 私聊：恰好 2 个参与者，ID 由参与者对确定性推导，没有 owner；
// 群聊：owner 创建时设置且不可变，name 与 description 必填
type Chat struct {
	ID           string    `json:"id"`
	Type         ChatType  `json:"type"`
	Participants []string  `json:"participants"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`

	// 群聊专属字段
	Owner       string `json:"owner,omitempty"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	PhotoURL    string `json:"photoUrl,omitempty"`
}

// IsGroup 是否为群聊
func (c *Chat) IsGroup() bool {
	return c.Type == ChatTypeGroup
}

// HasParticipant 用户是否在参与者列表中
func (c *Chat) HasParticipant(uid string) bool {
	for _, p := range c.Participants {
		if p == uid {
			return true
		}
	}
	return false
}

// ChatFromDocument 从存储文档构建会话
func ChatFromDocument(doc store.Document) (*Chat, error) {
	chatType := ChatType(docString(doc.Data, "type"))
	switch chatType {
	case ChatTypePrivate, ChatTypeGroup:
	default:
		return nil, fmt.Errorf("chat %s has unknown type %q", doc.ID, chatType)
	}

	return &Chat{
		ID:           doc.ID,
		Type:         chatType,
		Participants: docStringSlice(doc.Data, "participants"),
		CreatedAt:    docTime(doc.Data, "createdAt"),
		UpdatedAt:    docTime(doc.Data, "updatedAt"),
		Owner:        docString(doc.Data, "owner"),
		Name:         docString(doc.Data, "name"),
		Description:  docString(doc.Data, "description"),
		PhotoURL:     docString(doc.Data, "photoUrl"),
	}, nil
}
