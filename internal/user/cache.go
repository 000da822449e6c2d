package user

import (
	"context"
	"sync"

	"github.com/peter-abah/conecr/internal/model"
)

// Cache 用户资料读穿缓存。
// 缓存的是不可变的资料快照，不具权威性；读路径不做失效，
// 资料变化后短暂读到旧值是接受的取舍
type Cache interface {
	Get(ctx context.Context, uid string) (*model.User, bool)
	Put(ctx context.Context, user *model.User)
}

// maxCacheEntries 进程内缓存条目上限
const maxCacheEntries = 10000

// MemoryCache 进程内缓存，有界、无失效。
// 容量满时随机淘汰一个条目，条目本身是不可变快照，淘汰哪个都只是多一次回源
type MemoryCache struct {
	mu    sync.RWMutex
	users map[string]*model.User
}

// NewMemoryCache 创建进程内缓存
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{users: make(map[string]*model.User)}
}

// Get 查找缓存
func (c *MemoryCache) Get(ctx context.Context, uid string) (*model.User, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	user, ok := c.users[uid]
	return user, ok
}

// Put 写入缓存，并发写入时后写者胜出
func (c *MemoryCache) Put(ctx context.Context, user *model.User) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.users[user.UID]; !ok && len(c.users) >= maxCacheEntries {
		for uid := range c.users {
			delete(c.users, uid)
			break
		}
	}
	c.users[user.UID] = user
}
