package chat

import (
	"context"

	"github.com/peter-abah/conecr/internal/auth"
	apperrors "github.com/peter-abah/conecr/internal/errors"
	"github.com/peter-abah/conecr/internal/model"
	"github.com/peter-abah/conecr/internal/store"
)

// SendMessage 向会话发送消息，发送者必须是参与者。
// 写入消息后刷新会话的 updatedAt（服务器时间戳），
// 这会让所有参与者的会话列表订阅重新推送并把该会话排到最前
func (s *Service) SendMessage(ctx context.Context, chatID, body string) (*model.Message, error) {
	uid, err := auth.Principal(ctx)
	if err != nil {
		return nil, err
	}
	if body == "" {
		return nil, apperrors.ErrInvalidParams
	}

	chat, err := s.GetChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasParticipant(uid) {
		return nil, apperrors.ErrNotAuthorized
	}

	id, err := s.store.Insert(ctx, CollectionMessages, map[string]any{
		"chatId":    chatID,
		"sender":    uid,
		"body":      body,
		"createdAt": store.ServerTime,
	})
	if err != nil {
		return nil, apperrors.ErrStoreError.Wrap(err)
	}

	err = s.store.UpdateFields(ctx, CollectionChats, chatID, store.ServerTimestamp("updatedAt"))
	if err != nil {
		return nil, apperrors.ErrStoreError.Wrap(err)
	}

	doc, err := s.store.Get(ctx, CollectionMessages, id)
	if err != nil {
		return nil, apperrors.ErrStoreError.Wrap(err)
	}
	return model.MessageFromDocument(doc), nil
}

// ListMessages 按时间升序列出会话内的消息，调用者必须是参与者
func (s *Service) ListMessages(ctx context.Context, chatID string) ([]*model.Message, error) {
	uid, err := auth.Principal(ctx)
	if err != nil {
		return nil, err
	}

	chat, err := s.GetChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasParticipant(uid) {
		return nil, apperrors.ErrNotAuthorized
	}

	docs, err := s.store.Query(ctx, store.Query{
		Collection: CollectionMessages,
		Filters:    []store.Filter{{Field: "chatId", Op: store.OpEqual, Value: chatID}},
		OrderBy:    "createdAt",
	})
	if err != nil {
		return nil, apperrors.ErrStoreError.Wrap(err)
	}

	messages := make([]*model.Message, 0, len(docs))
	for _, doc := range docs {
		messages = append(messages, model.MessageFromDocument(doc))
	}
	return messages, nil
}
