package postgres

import (
	"context"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/peter-abah/conecr/internal/store"
)

// 变更事件主题：conecr.changed.<collection>，载荷为文档 ID
const changeSubjectPrefix = "conecr.changed."

func changeSubject(collection string) string {
	return changeSubjectPrefix + collection
}

// publishChange 广播集合变更事件。
// 该调用发生在事务提交之后，发布失败只会让订阅端错过一次重算，
// 不影响已落库的写入，记录日志即可
func (s *Store) publishChange(collection, id string) {
	if s.nc == nil {
		return
	}
	if err := s.nc.Publish(changeSubject(collection), []byte(id)); err != nil {
		s.logger.Warn("Failed to publish change event", "collection", collection, "id", id, "error", err)
	}
}

// Subscribe 建立实时查询。
// 每收到一次集合变更事件就重新执行查询并推送全量快照；
// NATS 对单个订阅的回调是串行的，初始快照与事件回调之间
// 由互斥锁把查询和推送整体串行化，后送达的快照一定不早于先送达的
func (s *Store) Subscribe(ctx context.Context, q store.Query, fn func([]store.Document)) (store.Unsubscribe, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if s.nc == nil {
		return nil, nats.ErrConnectionClosed
	}

	var mu sync.Mutex
	deliver := func() {
		mu.Lock()
		defer mu.Unlock()

		docs, err := s.Query(ctx, q)
		if err != nil {
			s.logger.Error("Failed to refresh live query", "collection", q.Collection, "error", err)
			return
		}
		fn(docs)
	}

	sub, err := s.nc.Subscribe(changeSubject(q.Collection), func(_ *nats.Msg) {
		deliver()
	})
	if err != nil {
		return nil, err
	}

	// 初始快照
	deliver()

	var once sync.Once
	return func() {
		once.Do(func() {
			if err := sub.Unsubscribe(); err != nil {
				s.logger.Warn("Failed to unsubscribe live query", "collection", q.Collection, "error", err)
			}
		})
	}, nil
}
