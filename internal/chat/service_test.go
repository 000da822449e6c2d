package chat

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peter-abah/conecr/internal/auth"
	apperrors "github.com/peter-abah/conecr/internal/errors"
	"github.com/peter-abah/conecr/internal/model"
	"github.com/peter-abah/conecr/internal/store"
	"github.com/peter-abah/conecr/internal/store/memory"
)

func asUser(uid string) context.Context {
	return auth.WithPrincipal(context.Background(), uid)
}

func newTestService() (*Service, *memory.Store) {
	st := memory.New()
	return NewService(st), st
}

// seedGroup 直接写入一个群聊文档
func seedGroup(t *testing.T, st *memory.Store, id, owner string, participants []string) {
	t.Helper()
	err := st.UpsertMerge(context.Background(), CollectionChats, id, map[string]any{
		"type":         string(model.ChatTypeGroup),
		"owner":        owner,
		"name":         "test group",
		"description":  "a group for tests",
		"participants": participants,
		"createdAt":    store.ServerTime,
		"updatedAt":    store.ServerTime,
	})
	require.NoError(t, err)
}

func TestCreatePrivate_Idempotent(t *testing.T) {
	svc, st := newTestService()

	// u1 发起
	id1, err := svc.CreatePrivate(asUser("u1"), "u2")
	require.NoError(t, err)
	assert.Equal(t, DeriveChatID("u1", "u2"), id1)

	// u2 从另一个方向发起，落在同一个文档上，不产生重复记录
	id2, err := svc.CreatePrivate(asUser("u2"), "u1")
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	docs, err := st.Query(context.Background(), store.Query{Collection: CollectionChats})
	require.NoError(t, err)
	require.Len(t, docs, 1)

	chat, err := svc.GetChat(asUser("u1"), id1)
	require.NoError(t, err)
	assert.Equal(t, model.ChatTypePrivate, chat.Type)
	assert.ElementsMatch(t, []string{"u1", "u2"}, chat.Participants)
}

func TestCreatePrivate_Invalid(t *testing.T) {
	svc, _ := newTestService()

	// 未认证
	_, err := svc.CreatePrivate(context.Background(), "u2")
	assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)

	// 不能和自己建私聊
	_, err = svc.CreatePrivate(asUser("u1"), "u1")
	assert.ErrorIs(t, err, apperrors.ErrInvalidParams)
}

func TestCreateGroup(t *testing.T) {
	svc, _ := newTestService()

	id, err := svc.CreateGroup(asUser("u1"), &CreateGroupRequest{
		Name:         "gophers",
		Description:  "a place to talk go",
		Participants: []string{"u2", "u3", "u2"},
	})
	require.NoError(t, err)

	chat, err := svc.GetChat(asUser("u1"), id)
	require.NoError(t, err)
	assert.Equal(t, model.ChatTypeGroup, chat.Type)
	assert.Equal(t, "u1", chat.Owner)
	// owner 自动加入，重复的参与者被去重
	assert.ElementsMatch(t, []string{"u1", "u2", "u3"}, chat.Participants)
}

func TestCreateGroup_Validation(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.CreateGroup(asUser("u1"), &CreateGroupRequest{Description: "no name"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidParams)

	_, err = svc.CreateGroup(asUser("u1"), &CreateGroupRequest{Name: "no description"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidParams)

	_, err = svc.CreateGroup(context.Background(), &CreateGroupRequest{Name: "g", Description: "d"})
	assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)
}

func TestGetChat_NotFound(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.GetChat(asUser("u1"), "missing")
	assert.ErrorIs(t, err, apperrors.ErrChatNotFound)
}

func participantsOf(t *testing.T, st *memory.Store, chatID string) []string {
	t.Helper()
	doc, err := st.Get(context.Background(), CollectionChats, chatID)
	require.NoError(t, err)
	ss, _ := doc.Data["participants"].([]string)
	return ss
}

func TestAddMembers_Authorization(t *testing.T) {
	svc, st := newTestService()
	seedGroup(t, st, "g1", "u1", []string{"u1", "u2"})

	// 非 owner 被拒绝，存储保持不变
	err := svc.AddMembers(asUser("u2"), "g1", []string{"u3"})
	assert.ErrorIs(t, err, apperrors.ErrNotAuthorized)
	assert.ElementsMatch(t, []string{"u1", "u2"}, participantsOf(t, st, "g1"))

	// owner 成功
	err = svc.AddMembers(asUser("u1"), "g1", []string{"u3", "u4"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"u1", "u2", "u3", "u4"}, participantsOf(t, st, "g1"))
}

func TestAddMembers_PrivateChatRejected(t *testing.T) {
	svc, _ := newTestService()

	id, err := svc.CreatePrivate(asUser("u1"), "u2")
	require.NoError(t, err)

	err = svc.AddMembers(asUser("u1"), id, []string{"u3"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidParams)
}

func TestRemoveMember_Authorization(t *testing.T) {
	svc, st := newTestService()
	seedGroup(t, st, "g1", "u1", []string{"u1", "u2", "u3"})

	// 旁观者移除别人被拒绝
	err := svc.RemoveMember(asUser("u3"), "g1", "u2")
	assert.ErrorIs(t, err, apperrors.ErrNotAuthorized)
	assert.ElementsMatch(t, []string{"u1", "u2", "u3"}, participantsOf(t, st, "g1"))

	// 非 owner 可以移除自己（退群）
	err = svc.RemoveMember(asUser("u3"), "g1", "u3")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"u1", "u2"}, participantsOf(t, st, "g1"))

	// owner 可以移除任何人
	err = svc.RemoveMember(asUser("u1"), "g1", "u2")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"u1"}, participantsOf(t, st, "g1"))
}

func TestDeleteGroup_Authorization(t *testing.T) {
	svc, st := newTestService()
	seedGroup(t, st, "g1", "u1", []string{"u1", "u2"})

	err := svc.DeleteGroup(asUser("u2"), "g1")
	assert.ErrorIs(t, err, apperrors.ErrNotAuthorized)

	_, err = st.Get(context.Background(), CollectionChats, "g1")
	require.NoError(t, err, "store must be unchanged after rejected delete")

	err = svc.DeleteGroup(asUser("u1"), "g1")
	require.NoError(t, err)

	_, err = st.Get(context.Background(), CollectionChats, "g1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeletePrivate_Authorization(t *testing.T) {
	svc, st := newTestService()

	id, err := svc.CreatePrivate(asUser("u1"), "u2")
	require.NoError(t, err)

	// 第三方不是参与者，被拒绝
	err = svc.DeletePrivate(asUser("u3"), id)
	assert.ErrorIs(t, err, apperrors.ErrNotAuthorized)

	// 任一参与者可以删除
	err = svc.DeletePrivate(asUser("u1"), id)
	require.NoError(t, err)

	_, err = st.Get(context.Background(), CollectionChats, id)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSendMessage(t *testing.T) {
	svc, _ := newTestService()

	id, err := svc.CreatePrivate(asUser("u1"), "u2")
	require.NoError(t, err)

	chatBefore, err := svc.GetChat(asUser("u1"), id)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	msg, err := svc.SendMessage(asUser("u1"), id, "hello")
	require.NoError(t, err)
	assert.Equal(t, "u1", msg.Sender)
	assert.Equal(t, "hello", msg.Body)
	assert.Equal(t, id, msg.ChatID)

	// 发消息会刷新会话的 updatedAt
	chatAfter, err := svc.GetChat(asUser("u1"), id)
	require.NoError(t, err)
	assert.True(t, chatAfter.UpdatedAt.After(chatBefore.UpdatedAt))

	// 非参与者不能发消息
	_, err = svc.SendMessage(asUser("u3"), id, "intruder")
	assert.ErrorIs(t, err, apperrors.ErrNotAuthorized)

	messages, err := svc.ListMessages(asUser("u2"), id)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "hello", messages[0].Body)
}

func waitChats(t *testing.T, ch <-chan []*model.Chat) []*model.Chat {
	t.Helper()
	select {
	case chats := <-ch:
		return chats
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for chat snapshot")
		return nil
	}
}

func TestSubscribe_Liveness(t *testing.T) {
	svc, _ := newTestService()

	snapshots := make(chan []*model.Chat, 16)
	unsub, err := svc.Subscribe(asUser("u1"), func(chats []*model.Chat) {
		snapshots <- chats
	})
	require.NoError(t, err)

	initial := waitChats(t, snapshots)
	assert.Empty(t, initial)

	// 创建包含当前主体的会话后，收到包含该会话的快照
	id, err := svc.CreatePrivate(asUser("u1"), "u2")
	require.NoError(t, err)

	next := waitChats(t, snapshots)
	require.Len(t, next, 1)
	assert.Equal(t, id, next[0].ID)

	// 取消订阅后不再推送；重复取消不报错
	unsub()
	unsub()

	_, err = svc.CreatePrivate(asUser("u1"), "u3")
	require.NoError(t, err)

	select {
	case <-snapshots:
		t.Fatal("received snapshot after unsubscribe")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSubscribe_Unauthenticated(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Subscribe(context.Background(), func([]*model.Chat) {})
	assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)
}

func TestSubscribe_OrderedByRecency(t *testing.T) {
	svc, _ := newTestService()

	id1, err := svc.CreatePrivate(asUser("u1"), "u2")
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	id2, err := svc.CreatePrivate(asUser("u1"), "u3")
	require.NoError(t, err)

	snapshots := make(chan []*model.Chat, 16)
	unsub, err := svc.Subscribe(asUser("u1"), func(chats []*model.Chat) {
		snapshots <- chats
	})
	require.NoError(t, err)
	defer unsub()

	initial := waitChats(t, snapshots)
	require.Len(t, initial, 2)
	assert.Equal(t, id2, initial[0].ID, "most recently updated chat comes first")

	// 在较早的会话里发消息，把它顶到最前
	time.Sleep(5 * time.Millisecond)
	_, err = svc.SendMessage(asUser("u1"), id1, "bump")
	require.NoError(t, err)

	latest := waitChats(t, snapshots)
	require.Len(t, latest, 2)
	assert.Equal(t, id1, latest[0].ID)
}
