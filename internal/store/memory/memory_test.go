package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peter-abah/conecr/internal/store"
)

// waitSnapshot 从通道读取一次快照，超时则让测试失败
func waitSnapshot(t *testing.T, ch <-chan []store.Document) []store.Document {
	t.Helper()
	select {
	case docs := <-ch:
		return docs
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return nil
	}
}

func TestUpsertMergeAndGet(t *testing.T) {
	s := New()
	ctx := context.Background()

	err := s.UpsertMerge(ctx, "users", "u1", map[string]any{
		"uid":         "u1",
		"displayName": "Alice",
	})
	require.NoError(t, err)

	// 合并写入不会覆盖未提及的字段
	err = s.UpsertMerge(ctx, "users", "u1", map[string]any{"about": "hello"})
	require.NoError(t, err)

	doc, err := s.Get(ctx, "users", "u1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", doc.Data["displayName"])
	assert.Equal(t, "hello", doc.Data["about"])
}

func TestGet_NotFound(t *testing.T) {
	s := New()

	_, err := s.Get(context.Background(), "users", "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestInsert_AssignsID(t *testing.T) {
	s := New()
	ctx := context.Background()

	id, err := s.Insert(ctx, "messages", map[string]any{"body": "hi"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	doc, err := s.Get(ctx, "messages", id)
	require.NoError(t, err)
	assert.Equal(t, "hi", doc.Data["body"])
}

func TestServerTime_Resolved(t *testing.T) {
	s := New()
	ctx := context.Background()

	before := time.Now().UTC()
	err := s.UpsertMerge(ctx, "chats", "c1", map[string]any{"createdAt": store.ServerTime})
	require.NoError(t, err)

	doc, err := s.Get(ctx, "chats", "c1")
	require.NoError(t, err)
	created, ok := doc.Data["createdAt"].(time.Time)
	require.True(t, ok, "createdAt should be a time.Time")
	assert.False(t, created.Before(before))
}

func TestQuery_Filters(t *testing.T) {
	s := New()
	ctx := context.Background()

	seed := map[string]map[string]any{
		"u1": {"uid": "u1", "displayName": "Alice"},
		"u2": {"uid": "u2", "displayName": "Bob"},
		"u3": {"uid": "u3", "displayName": "Carol"},
	}
	for id, data := range seed {
		require.NoError(t, s.UpsertMerge(ctx, "users", id, data))
	}

	tests := []struct {
		name    string
		filters []store.Filter
		wantIDs []string
	}{
		{
			name:    "equal",
			filters: []store.Filter{{Field: "displayName", Op: store.OpEqual, Value: "Bob"}},
			wantIDs: []string{"u2"},
		},
		{
			name:    "in",
			filters: []store.Filter{{Field: "uid", Op: store.OpIn, Value: []string{"u1", "u3"}}},
			wantIDs: []string{"u1", "u3"},
		},
		{
			name:    "no match is empty list, not error",
			filters: []store.Filter{{Field: "uid", Op: store.OpIn, Value: []string{"u9"}}},
			wantIDs: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs, err := s.Query(ctx, store.Query{
				Collection: "users",
				Filters:    tt.filters,
				OrderBy:    "uid",
			})
			require.NoError(t, err)

			ids := make([]string, 0, len(docs))
			for _, d := range docs {
				ids = append(ids, d.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestQuery_ArrayContains(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.UpsertMerge(ctx, "chats", "c1", map[string]any{"participants": []string{"u1", "u2"}}))
	require.NoError(t, s.UpsertMerge(ctx, "chats", "c2", map[string]any{"participants": []string{"u2", "u3"}}))

	docs, err := s.Query(ctx, store.Query{
		Collection: "chats",
		Filters:    []store.Filter{{Field: "participants", Op: store.OpArrayContains, Value: "u1"}},
	})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "c1", docs[0].ID)
}

func TestQuery_InArityLimit(t *testing.T) {
	s := New()

	values := make([]string, store.MaxInValues+1)
	for i := range values {
		values[i] = "u"
	}
	_, err := s.Query(context.Background(), store.Query{
		Collection: "users",
		Filters:    []store.Filter{{Field: "uid", Op: store.OpIn, Value: values}},
	})
	assert.Error(t, err)
}

func TestQuery_KeysetPagination(t *testing.T) {
	s := New()
	ctx := context.Background()

	for _, id := range []string{"u3", "u1", "u5", "u2", "u4"} {
		require.NoError(t, s.UpsertMerge(ctx, "users", id, map[string]any{"uid": id}))
	}

	page1, err := s.Query(ctx, store.Query{Collection: "users", OrderBy: "uid", Limit: 2})
	require.NoError(t, err)
	require.Len(t, page1, 2)
	assert.Equal(t, "u1", page1[0].ID)
	assert.Equal(t, "u2", page1[1].ID)

	// 键集分页：严格大于上一页最后一个键
	page2, err := s.Query(ctx, store.Query{Collection: "users", OrderBy: "uid", Limit: 2, StartAfter: "u2"})
	require.NoError(t, err)
	require.Len(t, page2, 2)
	assert.Equal(t, "u3", page2[0].ID)
	assert.Equal(t, "u4", page2[1].ID)
}

func TestUpdateFields_ArrayOps(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.UpsertMerge(ctx, "chats", "c1", map[string]any{"participants": []string{"u1", "u2"}}))

	// 并集自动去重
	err := s.UpdateFields(ctx, "chats", "c1", store.ArrayUnion("participants", "u2", "u3"))
	require.NoError(t, err)

	doc, err := s.Get(ctx, "chats", "c1")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2", "u3"}, doc.Data["participants"])

	err = s.UpdateFields(ctx, "chats", "c1", store.ArrayRemove("participants", "u1"))
	require.NoError(t, err)

	doc, err = s.Get(ctx, "chats", "c1")
	require.NoError(t, err)
	assert.Equal(t, []string{"u2", "u3"}, doc.Data["participants"])
}

func TestUpdateFields_NotFound(t *testing.T) {
	s := New()

	err := s.UpdateFields(context.Background(), "chats", "missing", store.Set("name", "x"))
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDelete_Idempotent(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.UpsertMerge(ctx, "chats", "c1", map[string]any{"type": "private"}))
	require.NoError(t, s.Delete(ctx, "chats", "c1"))
	require.NoError(t, s.Delete(ctx, "chats", "c1"))

	_, err := s.Get(ctx, "chats", "c1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSubscribe_SnapshotPush(t *testing.T) {
	s := New()
	ctx := context.Background()

	snapshots := make(chan []store.Document, 16)
	unsub, err := s.Subscribe(ctx, store.Query{
		Collection: "chats",
		Filters:    []store.Filter{{Field: "participants", Op: store.OpArrayContains, Value: "u1"}},
	}, func(docs []store.Document) {
		snapshots <- docs
	})
	require.NoError(t, err)

	// 订阅建立时立即推送当前快照
	initial := waitSnapshot(t, snapshots)
	assert.Empty(t, initial)

	require.NoError(t, s.UpsertMerge(ctx, "chats", "c1", map[string]any{"participants": []string{"u1", "u2"}}))
	next := waitSnapshot(t, snapshots)
	require.Len(t, next, 1)
	assert.Equal(t, "c1", next[0].ID)

	// 不匹配过滤器的变更也会触发推送，但结果集不含该文档
	require.NoError(t, s.UpsertMerge(ctx, "chats", "c2", map[string]any{"participants": []string{"u2", "u3"}}))
	next = waitSnapshot(t, snapshots)
	require.Len(t, next, 1)
	assert.Equal(t, "c1", next[0].ID)

	// 取消订阅后不再有回调；重复取消不报错
	unsub()
	unsub()
	require.NoError(t, s.UpsertMerge(ctx, "chats", "c3", map[string]any{"participants": []string{"u1"}}))

	select {
	case <-snapshots:
		t.Fatal("received snapshot after unsubscribe")
	case <-time.After(100 * time.Millisecond):
	}
}
