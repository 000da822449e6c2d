package chat

import (
	"context"

	"github.com/peter-abah/conecr/internal/auth"
	apperrors "github.com/peter-abah/conecr/internal/errors"
	"github.com/peter-abah/conecr/internal/model"
	"github.com/peter-abah/conecr/internal/store"
)

// Subscribe 订阅当前主体的会话列表，最近更新的排在最前。
// 每次底层变化都会把完整的当前列表推送给 fn（全量快照），
// 调用方应整体替换之前的状态而不是做增量合并。
// 返回的句柄用于取消订阅，可安全地重复调用；
// 未认证时在建立监听之前就返回 ErrUnauthenticated
func (s *Service) Subscribe(ctx context.Context, fn func([]*model.Chat)) (store.Unsubscribe, error) {
	uid, err := auth.Principal(ctx)
	if err != nil {
		return nil, err
	}

	q := store.Query{
		Collection: CollectionChats,
		Filters:    []store.Filter{{Field: "participants", Op: store.OpArrayContains, Value: uid}},
		OrderBy:    "updatedAt",
		Descending: true,
	}

	unsub, err := s.store.Subscribe(ctx, q, func(docs []store.Document) {
		chats := make([]*model.Chat, 0, len(docs))
		for _, doc := range docs {
			chat, err := model.ChatFromDocument(doc)
			if err != nil {
				s.logger.Warn("Skipping malformed chat document", "id", doc.ID, "error", err)
				continue
			}
			chats = append(chats, chat)
		}
		fn(chats)
	})
	if err != nil {
		return nil, apperrors.ErrStoreError.Wrap(err)
	}
	return unsub, nil
}

// SubscribeMessages 订阅会话内的消息流（按时间升序的全量快照），
// 调用者必须是该会话的参与者
func (s *Service) SubscribeMessages(ctx context.Context, chatID string, fn func([]*model.Message)) (store.Unsubscribe, error) {
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

	q := store.Query{
		Collection: CollectionMessages,
		Filters:    []store.Filter{{Field: "chatId", Op: store.OpEqual, Value: chatID}},
		OrderBy:    "createdAt",
	}

	unsub, err := s.store.Subscribe(ctx, q, func(docs []store.Document) {
		messages := make([]*model.Message, 0, len(docs))
		for _, doc := range docs {
			messages = append(messages, model.MessageFromDocument(doc))
		}
		fn(messages)
	})
	if err != nil {
		return nil, apperrors.ErrStoreError.Wrap(err)
	}
	return unsub, nil
}
