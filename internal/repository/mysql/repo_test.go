package mysql

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"Circle_Community/internal/model"
)

func TestUsernameIsCaseInsensitive(t *testing.T) {
	_, st := newTestStores(t)
	ctx := context.Background()
	id := createUser(t, st, "Alice")

	assert.ErrorIs(t, st.Users.Create(ctx, &model.User{Username: "alice", Password: "x", Gender: model.GenderMale}), gorm.ErrDuplicatedKey)
	email := "alice@example.com"
	assert.ErrorIs(t, st.Users.Create(ctx, &model.User{Username: "other", Email: &email, Password: "x", Gender: model.GenderMale}), gorm.ErrDuplicatedKey)

	u, err := st.Users.FindByUsername(ctx, "ALICE")
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)
	assert.Equal(t, "Alice", u.Username)

	u, err = st.Users.FindByLogin(ctx, "Alice@Example.com")
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)
	u, err = st.Users.FindByLogin(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)

	u.Bio = "gopher"
	require.NoError(t, st.Users.Update(ctx, u))
	got, err := st.Users.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "gopher", got.Bio)

	assert.ErrorIs(t, st.Users.Update(ctx, &model.User{ID: 99, Username: "ghost"}), gorm.ErrRecordNotFound)
}

func TestPostListingAndCursor(t *testing.T) {
	db, st := newTestStores(t)
	ctx := context.Background()
	alice := createUser(t, st, "alice")
	id := createCommunity(t, st, alice, "golang")
	var ids []uint64
	for i := 0; i < 3; i++ {
		ids = append(ids, createPost(t, st, alice, &id))
	}
	createPost(t, st, alice, nil)

	first, err := st.Posts.ListByCommunityCursor(ctx, id, 0, 2)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, ids[2], first[0].ID)
	rest, err := st.Posts.ListByCommunityCursor(ctx, id, first[1].ID, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, ids[0], rest[0].ID)

	page, err := st.Posts.ListByCommunity(ctx, id, 0, 10)
	require.NoError(t, err)
	assert.Len(t, page, 3)
	mine, err := st.Posts.ListByAuthor(ctx, alice, 0, 10)
	require.NoError(t, err)
	assert.Len(t, mine, 4)

	assert.ErrorIs(t, st.Posts.DeleteFromCommunity(ctx, id+1, ids[0], alice), gorm.ErrRecordNotFound)
	require.NoError(t, st.Posts.DeleteFromCommunity(ctx, id, ids[0], alice))
	rows := outboxRows(t, db)
	require.Len(t, rows, 1)
	assert.Equal(t, model.EventDeletePost, rows[0].EventType)
	assert.Equal(t, ids[0], rows[0].TargetID)

	require.NoError(t, st.Posts.Delete(ctx, ids[1]))
	assert.ErrorIs(t, st.Posts.Delete(ctx, ids[1]), gorm.ErrRecordNotFound)
}

func TestCommentDeleteRemovesReplies(t *testing.T) {
	db, st := newTestStores(t)
	ctx := context.Background()
	alice, bob := createUser(t, st, "alice"), createUser(t, st, "bob")
	postID := createPost(t, st, alice, nil)

	root := &model.Comment{PostID: postID, AuthorID: alice, Content: "root"}
	require.NoError(t, st.Comments.Create(ctx, root))
	reply := &model.Comment{PostID: postID, AuthorID: bob, ParentID: &root.ID, Content: "reply"}
	require.NoError(t, st.Comments.Create(ctx, reply))
	nested := &model.Comment{PostID: postID, AuthorID: alice, ParentID: &reply.ID, Content: "nested"}
	require.NoError(t, st.Comments.Create(ctx, nested))
	sibling := &model.Comment{PostID: postID, AuthorID: bob, Content: "sibling"}
	require.NoError(t, st.Comments.Create(ctx, sibling))
	_, err := st.Votes.Toggle(ctx, model.VoteComment, nested.ID, bob, model.VoteUp)
	require.NoError(t, err)

	require.NoError(t, st.Comments.Delete(ctx, root.ID))

	list, err := st.Comments.ListByPost(ctx, postID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, sibling.ID, list[0].ID)
	var votes int64
	require.NoError(t, db.Model(&model.Vote{}).Count(&votes).Error)
	assert.Zero(t, votes)

	assert.ErrorIs(t, st.Comments.Delete(ctx, root.ID), gorm.ErrRecordNotFound)
}

func TestChatFindOrCreateIsIdempotent(t *testing.T) {
	_, st := newTestStores(t)
	ctx := context.Background()
	alice, bob := createUser(t, st, "alice"), createUser(t, st, "bob")

	chat, err := st.Chats.FindOrCreate(ctx, bob, alice)
	require.NoError(t, err)
	again, err := st.Chats.FindOrCreate(ctx, alice, bob)
	require.NoError(t, err)
	assert.Equal(t, chat.ID, again.ID)
	assert.Equal(t, alice, chat.UserLowID)

	require.NoError(t, st.Chats.AddMessage(ctx, &model.Message{ChatID: chat.ID, SenderID: alice, Content: "hi"}))
	require.NoError(t, st.Chats.AddMessage(ctx, &model.Message{ChatID: chat.ID, SenderID: bob, Content: "hey"}))
	assert.ErrorIs(t, st.Chats.AddMessage(ctx, &model.Message{ChatID: 99, SenderID: bob, Content: "lost"}), gorm.ErrRecordNotFound)

	list, err := st.Chats.ListByUser(ctx, bob)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "hey", list[0].LastMessage)

	n, err := st.Chats.MarkRead(ctx, chat.ID, bob)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	msgs, err := st.Chats.Messages(ctx, chat.ID, 0, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.True(t, msgs[0].Read)
	assert.False(t, msgs[1].Read)
}

func TestOutboxRetryAndSuccess(t *testing.T) {
	_, st := newTestStores(t)
	ctx := context.Background()
	alice, bob := createUser(t, st, "alice"), createUser(t, st, "bob")
	id := createCommunity(t, st, alice, "golang")
	require.NoError(t, st.Communities.Ban(ctx, id, bob, alice))
	require.NoError(t, st.Communities.Ban(ctx, id, alice, alice))

	list, err := st.Outbox.List(ctx, 10, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(list[0].Payload), &payload))
	assert.EqualValues(t, id, payload["community"])
	assert.EqualValues(t, bob, payload["target"])
	assert.NotEmpty(t, payload["event_time"])

	// 第一条失败两次后超过重试上限，第二条投递成功
	require.NoError(t, st.Outbox.RetryUpdate(ctx, list[0].ID))
	require.NoError(t, st.Outbox.RetryUpdate(ctx, list[0].ID))
	require.NoError(t, st.Outbox.SuccessUpdate(ctx, list[1].ID))

	list, err = st.Outbox.List(ctx, 10, 2)
	require.NoError(t, err)
	assert.Empty(t, list)
	list, err = st.Outbox.List(ctx, 10, 3)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int8(model.OutboxFailed), list[0].Status)
	assert.Equal(t, 2, list[0].Retry)
}
