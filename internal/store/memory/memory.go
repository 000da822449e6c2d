// Package memory 提供内存文档存储后端，用于本地开发与测试。
// 语义与 postgres 后端保持一致：全量快照推送、字段级原子操作、In 过滤上限。
package memory

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/peter-abah/conecr/internal/store"
)

// Store 内存文档存储
type Store struct {
	mu          sync.RWMutex
	collections map[string]map[string]map[string]any
	subs        map[int64]*subscription
	nextSubID   int64
	logger      *slog.Logger
}

// New 创建内存存储
func New() *Store {
	return &Store{
		collections: make(map[string]map[string]map[string]any),
		subs:        make(map[int64]*subscription),
		logger:      slog.Default(),
	}
}

// Query 按条件查询
func (s *Store) Query(ctx context.Context, q store.Query) ([]store.Document, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.runQuery(q), nil
}

// Get 按 ID 查找
func (s *Store) Get(ctx context.Context, collection, id string) (store.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.collections[collection][id]
	if !ok {
		return store.Document{}, store.ErrNotFound
	}
	return store.Document{ID: id, Data: copyData(data)}, nil
}

// UpsertMerge 不存在则创建，存在则按字段合并
func (s *Store) UpsertMerge(ctx context.Context, collection, id string, fields map[string]any) error {
	s.mu.Lock()
	docs := s.collection(collection)
	data, ok := docs[id]
	if !ok {
		data = make(map[string]any)
		docs[id] = data
	}
	now := time.Now().UTC()
	for k, v := range fields {
		data[k] = resolveValue(v, now)
	}
	s.notifyLocked(collection)
	s.mu.Unlock()
	return nil
}

// Insert 插入新文档，返回分配的 ID
func (s *Store) Insert(ctx context.Context, collection string, fields map[string]any) (string, error) {
	id := uuid.NewString()

	s.mu.Lock()
	docs := s.collection(collection)
	data := make(map[string]any, len(fields))
	now := time.Now().UTC()
	for k, v := range fields {
		data[k] = resolveValue(v, now)
	}
	docs[id] = data
	s.notifyLocked(collection)
	s.mu.Unlock()
	return id, nil
}

// UpdateFields 字段级原子操作
func (s *Store) UpdateFields(ctx context.Context, collection, id string, ops ...store.FieldOp) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.collections[collection][id]
	if !ok {
		return store.ErrNotFound
	}

	now := time.Now().UTC()
	for _, op := range ops {
		switch op.Kind {
		case store.FieldSet:
			data[op.Field] = resolveValue(op.Value, now)
		case store.FieldServerTimestamp:
			data[op.Field] = now
		case store.FieldArrayUnion:
			data[op.Field] = unionStrings(asStrings(data[op.Field]), op.Values)
		case store.FieldArrayRemove:
			data[op.Field] = removeStrings(asStrings(data[op.Field]), op.Values)
		case store.FieldDelete:
			delete(data, op.Field)
		}
	}
	s.notifyLocked(collection)
	return nil
}

// Delete 删除文档；不存在时静默成功
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs, ok := s.collections[collection]
	if !ok {
		return nil
	}
	if _, ok := docs[id]; !ok {
		return nil
	}
	delete(docs, id)
	s.notifyLocked(collection)
	return nil
}

// Subscribe 建立实时查询，订阅建立时立即推送一次当前快照
func (s *Store) Subscribe(ctx context.Context, q store.Query, fn func([]store.Document)) (store.Unsubscribe, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	sub := &subscription{
		query: q,
		fn:    fn,
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}

	s.mu.Lock()
	s.nextSubID++
	id := s.nextSubID
	sub.id = id
	s.subs[id] = sub
	go sub.run()
	sub.enqueue(s.runQuery(q))
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
		sub.stop()
	}, nil
}

// collection 获取或创建集合，调用方必须持有写锁
func (s *Store) collection(name string) map[string]map[string]any {
	docs, ok := s.collections[name]
	if !ok {
		docs = make(map[string]map[string]any)
		s.collections[name] = docs
	}
	return docs
}

// notifyLocked 向该集合上的所有订阅推送最新快照，调用方必须持有写锁
func (s *Store) notifyLocked(collection string) {
	for _, sub := range s.subs {
		if sub.query.Collection != collection {
			continue
		}
		sub.enqueue(s.runQuery(sub.query))
	}
}

// runQuery 执行查询，调用方必须至少持有读锁
func (s *Store) runQuery(q store.Query) []store.Document {
	result := make([]store.Document, 0)
	for id, data := range s.collections[q.Collection] {
		if !matches(data, q.Filters) {
			continue
		}
		result = append(result, store.Document{ID: id, Data: copyData(data)})
	}

	if q.OrderBy != "" {
		sort.Slice(result, func(i, j int) bool {
			cmp := compareValues(result[i].Data[q.OrderBy], result[j].Data[q.OrderBy])
			if q.Descending {
				return cmp > 0
			}
			return cmp < 0
		})
	}

	if q.StartAfter != nil {
		cut := 0
		for cut < len(result) {
			cmp := compareValues(result[cut].Data[q.OrderBy], q.StartAfter)
			if (!q.Descending && cmp > 0) || (q.Descending && cmp < 0) {
				break
			}
			cut++
		}
		result = result[cut:]
	}

	if q.Limit > 0 && len(result) > q.Limit {
		result = result[:q.Limit]
	}
	return result
}

// resolveValue 替换服务器时间占位符
func resolveValue(v any, now time.Time) any {
	if v == store.ServerTime {
		return now
	}
	return v
}

func copyData(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		if ss, ok := v.([]string); ok {
			cp := make([]string, len(ss))
			copy(cp, ss)
			out[k] = cp
			continue
		}
		out[k] = v
	}
	return out
}

func matches(data map[string]any, filters []store.Filter) bool {
	for _, f := range filters {
		switch f.Op {
		case store.OpEqual:
			if compareValues(data[f.Field], f.Value) != 0 {
				return false
			}
		case store.OpIn:
			values, _ := f.Value.([]string)
			field, ok := data[f.Field].(string)
			if !ok || !containsString(values, field) {
				return false
			}
		case store.OpArrayContains:
			want, ok := f.Value.(string)
			if !ok || !containsString(asStrings(data[f.Field]), want) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// compareValues 比较两个字段值，支持字符串与时间
func compareValues(a, b any) int {
	if at, ok := a.(time.Time); ok {
		if bt, ok := b.(time.Time); ok {
			return at.Compare(bt)
		}
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		switch {
		case as < bs:
			return -1
		case as > bs:
			return 1
		default:
			return 0
		}
	}
	if a == b {
		return 0
	}
	return -1
}

func asStrings(v any) []string {
	ss, _ := v.([]string)
	return ss
}

func containsString(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}

func unionStrings(existing, add []string) []string {
	out := make([]string, 0, len(existing)+len(add))
	out = append(out, existing...)
	for _, s := range add {
		if !containsString(out, s) {
			out = append(out, s)
		}
	}
	return out
}

func removeStrings(existing, remove []string) []string {
	out := make([]string, 0, len(existing))
	for _, s := range existing {
		if !containsString(remove, s) {
			out = append(out, s)
		}
	}
	return out
}
