package chat

import (
	"context"
	"errors"
	"log/slog"

	"github.com/peter-abah/conecr/internal/auth"
	apperrors "github.com/peter-abah/conecr/internal/errors"
	"github.com/peter-abah/conecr/internal/model"
	"github.com/peter-abah/conecr/internal/store"
)

const (
	CollectionChats    = "chats"
	CollectionMessages = "messages"
)

// Service 会话服务
// 所有入口先要求已认证主体（否则返回 ErrUnauthenticated），
// 群聊变更再按操作逐一检查授权；授权失败返回 ErrNotAuthorized 且不触碰存储
type Service struct {
	store  store.Store
	logger *slog.Logger
}

// NewService 创建会话服务
func NewService(st store.Store) *Service {
	return &Service{
		store:  st,
		logger: slog.Default(),
	}
}

// CreateGroupRequest 创建群聊请求
type CreateGroupRequest struct {
	Name         string   `json:"name" binding:"required"`
	Description  string   `json:"description" binding:"required"`
	Participants []string `json:"participants"`
	PhotoURL     string   `json:"photoUrl"`
}

// CreatePrivate 创建与 otherUID 的私聊。
// 会话 ID 由参与者对确定性推导，写入是按字段合并的 upsert，重复调用幂等
func (s *Service) CreatePrivate(ctx context.Context, otherUID string) (string, error) {
	uid, err := auth.Principal(ctx)
	if err != nil {
		return "", err
	}
	if otherUID == "" || otherUID == uid {
		return "", apperrors.ErrInvalidParams
	}

	id := DeriveChatID(uid, otherUID)
	err = s.store.UpsertMerge(ctx, CollectionChats, id, map[string]any{
		"type":         string(model.ChatTypePrivate),
		"participants": []string{otherUID, uid},
		"createdAt":    store.ServerTime,
		"updatedAt":    store.ServerTime,
	})
	if err != nil {
		return "", apperrors.ErrStoreError.Wrap(err)
	}
	return id, nil
}

// CreateGroup 创建群聊，owner 为当前主体，参与者自动包含 owner
func (s *Service) CreateGroup(ctx context.Context, req *CreateGroupRequest) (string, error) {
	uid, err := auth.Principal(ctx)
	if err != nil {
		return "", err
	}
	if req.Name == "" || req.Description == "" {
		return "", apperrors.ErrInvalidParams
	}

	participants := make([]string, 0, len(req.Participants)+1)
	for _, p := range req.Participants {
		if p != "" && p != uid && !contains(participants, p) {
			participants = append(participants, p)
		}
	}
	participants = append(participants, uid)

	fields := map[string]any{
		"type":         string(model.ChatTypeGroup),
		"owner":        uid,
		"name":         req.Name,
		"description":  req.Description,
		"participants": participants,
		"createdAt":    store.ServerTime,
		"updatedAt":    store.ServerTime,
	}
	if req.PhotoURL != "" {
		fields["photoUrl"] = req.PhotoURL
	}

	id, err := s.store.Insert(ctx, CollectionChats, fields)
	if err != nil {
		return "", apperrors.ErrStoreError.Wrap(err)
	}
	return id, nil
}

// GetChat 按 ID 获取会话
func (s *Service) GetChat(ctx context.Context, id string) (*model.Chat, error) {
	doc, err := s.store.Get(ctx, CollectionChats, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.ErrChatNotFound
		}
		return nil, apperrors.ErrStoreError.Wrap(err)
	}
	return model.ChatFromDocument(doc)
}

// AddMembers 向群聊添加成员，仅 owner 可操作
func (s *Service) AddMembers(ctx context.Context, chatID string, uids []string) error {
	uid, err := auth.Principal(ctx)
	if err != nil {
		return err
	}
	if len(uids) == 0 {
		return apperrors.ErrInvalidParams
	}

	chat, err := s.GetChat(ctx, chatID)
	if err != nil {
		return err
	}
	if !chat.IsGroup() {
		return apperrors.ErrInvalidParams
	}
	if chat.Owner != uid {
		return apperrors.ErrNotAuthorized
	}

	err = s.store.UpdateFields(ctx, CollectionChats, chatID, store.ArrayUnion("participants", uids...))
	if err != nil {
		return apperrors.ErrStoreError.Wrap(err)
	}
	return nil
}

// RemoveMember 从群聊移除成员。
// owner 可移除任何人；非 owner 只能移除自己（退群）
func (s *Service) RemoveMember(ctx context.Context, chatID, target string) error {
	uid, err := auth.Principal(ctx)
	if err != nil {
		return err
	}

	chat, err := s.GetChat(ctx, chatID)
	if err != nil {
		return err
	}
	if !chat.IsGroup() {
		return apperrors.ErrInvalidParams
	}
	if chat.Owner != uid && target != uid {
		return apperrors.ErrNotAuthorized
	}

	err = s.store.UpdateFields(ctx, CollectionChats, chatID, store.ArrayRemove("participants", target))
	if err != nil {
		return apperrors.ErrStoreError.Wrap(err)
	}
	return nil
}

// DeleteGroup 删除群聊，仅 owner 可操作
func (s *Service) DeleteGroup(ctx context.Context, chatID string) error {
	uid, err := auth.Principal(ctx)
	if err != nil {
		return err
	}

	chat, err := s.GetChat(ctx, chatID)
	if err != nil {
		return err
	}
	if !chat.IsGroup() {
		return apperrors.ErrInvalidParams
	}
	if chat.Owner != uid {
		return apperrors.ErrNotAuthorized
	}

	if err := s.store.Delete(ctx, CollectionChats, chatID); err != nil {
		return apperrors.ErrStoreError.Wrap(err)
	}
	return nil
}

// DeletePrivate 删除私聊，任一参与者可操作
func (s *Service) DeletePrivate(ctx context.Context, chatID string) error {
	uid, err := auth.Principal(ctx)
	if err != nil {
		return err
	}

	chat, err := s.GetChat(ctx, chatID)
	if err != nil {
		return err
	}
	if chat.IsGroup() {
		return apperrors.ErrInvalidParams
	}
	if !chat.HasParticipant(uid) {
		return apperrors.ErrNotAuthorized
	}

	if err := s.store.Delete(ctx, CollectionChats, chatID); err != nil {
		return apperrors.ErrStoreError.Wrap(err)
	}
	return nil
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
