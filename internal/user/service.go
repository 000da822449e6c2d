package user

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/peter-abah/conecr/internal/auth"
	apperrors "github.com/peter-abah/conecr/internal/errors"
	"github.com/peter-abah/conecr/internal/model"
	"github.com/peter-abah/conecr/internal/store"
)

const CollectionUsers = "users"

// DirectoryPageSize 用户目录单页大小
const DirectoryPageSize = 25

// Service 用户服务
type Service struct {
	store  store.Store
	cache  Cache
	logger *slog.Logger
}

// NewService 创建用户服务
func NewService(st store.Store, cache Cache) *Service {
	return &Service{
		store:  st,
		cache:  cache,
		logger: slog.Default(),
	}
}

// GetUser 按 uid 获取用户，优先走缓存
func (s *Service) GetUser(ctx context.Context, uid string) (*model.User, error) {
	if user, ok := s.cache.Get(ctx, uid); ok {
		return user, nil
	}

	doc, err := s.store.Get(ctx, CollectionUsers, uid)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.ErrStoreError.Wrap(err)
	}

	user := model.UserFromDocument(doc)
	s.cache.Put(ctx, user)
	return user, nil
}

// ResolveParticipants 把成员 uid 列表解析为完整的用户资料。
// 存储的 In 过滤器单次最多接受 MaxInValues 个值，超长列表先按
// 输入顺序切片，每片一条并发查询，全部完成后按片顺序拼接。
// 片内结果顺序由存储决定，整体结果不保证与输入顺序一致；
// 任何一片失败整批失败，不做部分成功。
// 输入不做去重：名单里的重复 uid 会产生冗余查询
func (s *Service) ResolveParticipants(ctx context.Context, uids []string) ([]*model.User, error) {
	if len(uids) == 0 {
		return nil, nil
	}

	chunks := partition(uids, store.MaxInValues)
	results := make([][]*model.User, len(chunks))

	g, ctx := errgroup.WithContext(ctx)
	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			docs, err := s.store.Query(ctx, store.Query{
				Collection: CollectionUsers,
				Filters:    []store.Filter{{Field: "uid", Op: store.OpIn, Value: chunk}},
			})
			if err != nil {
				return err
			}

			users := make([]*model.User, 0, len(docs))
			for _, doc := range docs {
				users = append(users, model.UserFromDocument(doc))
			}
			results[i] = users
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, apperrors.ErrStoreError.Wrap(err)
	}

	merged := make([]*model.User, 0, len(uids))
	for _, users := range results {
		merged = append(merged, users...)
	}
	return merged, nil
}

// partition 按输入顺序切分为不超过 size 的连续片
func partition(uids []string, size int) [][]string {
	chunks := make([][]string, 0, (len(uids)+size-1)/size)
	for start := 0; start < len(uids); start += size {
		end := min(start+size, len(uids))
		chunks = append(chunks, uids[start:end])
	}
	return chunks
}

// Page 用户目录的一页
// HasMore 为 false 表示目录已走完，这是显式的终止状态
type Page struct {
	Users      []*model.User `json:"users"`
	NextCursor string        `json:"nextCursor"`
	HasMore    bool          `json:"hasMore"`
}

// ListPage 键集分页遍历用户目录。
// 排序键是 uid：唯一且全序，展示名可能重复，用它做键会破坏
// 不跳过、不重复的遍历保证。cursor 为空表示第一页，
// 否则取排序键严格大于 cursor 的下一页。
// 游标不跨排序键集合存活：目录排序变化后旧游标不保证稳定
func (s *Service) ListPage(ctx context.Context, cursor string) (*Page, error) {
	q := store.Query{
		Collection: CollectionUsers,
		OrderBy:    "uid",
		Limit:      DirectoryPageSize,
	}
	if cursor != "" {
		q.StartAfter = cursor
	}

	docs, err := s.store.Query(ctx, q)
	if err != nil {
		return nil, apperrors.ErrStoreError.Wrap(err)
	}

	page := &Page{
		Users:   make([]*model.User, 0, len(docs)),
		HasMore: len(docs) == DirectoryPageSize,
	}
	for _, doc := range docs {
		page.Users = append(page.Users, model.UserFromDocument(doc))
	}
	if len(page.Users) > 0 {
		page.NextCursor = page.Users[len(page.Users)-1].UID
	}
	return page, nil
}

// UpdateProfileRequest 更新资料请求
type UpdateProfileRequest struct {
	DisplayName string `json:"displayName" binding:"required"`
	About       string `json:"about"`
	PhotoURL    string `json:"photoUrl"`
}

// UpdateProfile 更新当前主体自己的资料，并重新灌入自己的缓存条目
func (s *Service) UpdateProfile(ctx context.Context, req *UpdateProfileRequest) (*model.User, error) {
	uid, err := auth.Principal(ctx)
	if err != nil {
		return nil, err
	}
	if req.DisplayName == "" {
		return nil, apperrors.ErrInvalidParams
	}

	fields := map[string]any{
		"uid":         uid,
		"displayName": req.DisplayName,
		"about":       req.About,
	}
	if req.PhotoURL != "" {
		fields["photoUrl"] = req.PhotoURL
	}

	if err := s.store.UpsertMerge(ctx, CollectionUsers, uid, fields); err != nil {
		return nil, apperrors.ErrStoreError.Wrap(err)
	}

	doc, err := s.store.Get(ctx, CollectionUsers, uid)
	if err != nil {
		return nil, apperrors.ErrStoreError.Wrap(err)
	}

	user := model.UserFromDocument(doc)
	s.cache.Put(ctx, user)
	return user, nil
}
