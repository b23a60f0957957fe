package mysql

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"Circle_Community/internal/model"
	"Circle_Community/internal/pkg"
)

func TestCommunityNameKeyIsUnique(t *testing.T) {
	_, st := newTestStores(t)
	ctx := context.Background()
	alice := createUser(t, st, "alice")
	id := createCommunity(t, st, alice, "Golang")

	dup := &model.Community{Name: "GOLANG", NameKey: model.NameKey("GOLANG"), Type: model.CommunityPublic, CreatorID: alice}
	assert.ErrorIs(t, st.Communities.Create(ctx, dup), gorm.ErrDuplicatedKey)

	found, err := st.Communities.FindByNameKey(ctx, "golang")
	require.NoError(t, err)
	assert.Equal(t, id, found.ID)

	r, err := st.Communities.Roster(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, alice, r.CreatorID)
	assert.Equal(t, []uint64{alice}, r.Members)
	assert.Empty(t, r.Moderators)
	assert.Empty(t, r.Banned)
}

func TestMembershipAndBanAreIdempotent(t *testing.T) {
	db, st := newTestStores(t)
	ctx := context.Background()
	alice, bob := createUser(t, st, "alice"), createUser(t, st, "bob")
	id := createCommunity(t, st, alice, "golang")

	added, err := st.Communities.AddMember(ctx, id, bob)
	require.NoError(t, err)
	assert.True(t, added)
	added, err = st.Communities.AddMember(ctx, id, bob)
	require.NoError(t, err)
	assert.False(t, added)
	require.NoError(t, st.Communities.SetModerator(ctx, id, bob, alice, true))

	require.NoError(t, st.Communities.Ban(ctx, id, bob, alice))
	require.NoError(t, st.Communities.Ban(ctx, id, bob, alice))
	r, err := st.Communities.Roster(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []uint64{bob}, r.Banned)
	assert.False(t, r.IsMember(bob))
	assert.False(t, r.IsModerator(bob))

	_, err = st.Communities.AddMember(ctx, id, bob)
	assert.ErrorIs(t, err, pkg.ErrUserBanned)
	assert.ErrorIs(t, st.Communities.SetModerator(ctx, id, bob, alice, true), pkg.ErrUserBanned)

	removed, err := st.Communities.Unban(ctx, id, bob, alice)
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = st.Communities.Unban(ctx, id, bob, alice)
	require.NoError(t, err)
	assert.False(t, removed)

	var events []string
	for _, ob := range outboxRows(t, db) {
		events = append(events, ob.EventType)
	}
	assert.Equal(t, []string{model.EventAddModerator, model.EventBan, model.EventBan, model.EventUnban}, events)
}

func TestMembershipOnMissingCommunity(t *testing.T) {
	_, st := newTestStores(t)
	ctx := context.Background()
	bob := createUser(t, st, "bob")

	_, err := st.Communities.AddMember(ctx, 42, bob)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.ErrorIs(t, st.Communities.Ban(ctx, 42, bob, bob), gorm.ErrRecordNotFound)
	_, err = st.Communities.Roster(ctx, 42)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestKickAndDemote(t *testing.T) {
	db, st := newTestStores(t)
	ctx := context.Background()
	alice, bob := createUser(t, st, "alice"), createUser(t, st, "bob")
	id := createCommunity(t, st, alice, "golang")
	_, err := st.Communities.AddMember(ctx, id, bob)
	require.NoError(t, err)
	require.NoError(t, st.Communities.SetModerator(ctx, id, bob, alice, true))
	require.NoError(t, st.Communities.SetModerator(ctx, id, bob, alice, false))
	// 已经不是版主，不再记事件
	require.NoError(t, st.Communities.SetModerator(ctx, id, bob, alice, false))

	r, err := st.Communities.Roster(ctx, id)
	require.NoError(t, err)
	assert.True(t, r.IsMember(bob))
	assert.False(t, r.IsModerator(bob))

	kicked, err := st.Communities.KickMember(ctx, id, bob, alice)
	require.NoError(t, err)
	assert.True(t, kicked)
	kicked, err = st.Communities.KickMember(ctx, id, bob, alice)
	require.NoError(t, err)
	assert.False(t, kicked)

	rows := outboxRows(t, db)
	require.Len(t, rows, 3)
	assert.Equal(t, model.EventRemoveModerator, rows[1].EventType)
	assert.Equal(t, model.EventRemoveMember, rows[2].EventType)
	assert.Equal(t, bob, rows[2].TargetID)
	assert.Equal(t, alice, rows[2].ActorID)
}

func TestCommunityDeleteCascades(t *testing.T) {
	db, st := newTestStores(t)
	ctx := context.Background()
	alice, bob := createUser(t, st, "alice"), createUser(t, st, "bob")
	id := createCommunity(t, st, alice, "golang")
	other := createCommunity(t, st, alice, "rust")
	_, err := st.Communities.AddMember(ctx, id, bob)
	require.NoError(t, err)

	postID := createPost(t, st, bob, &id)
	keep := createPost(t, st, bob, &other)
	comment := &model.Comment{PostID: postID, AuthorID: alice, Content: "hi"}
	require.NoError(t, st.Comments.Create(ctx, comment))
	_, err = st.Votes.Toggle(ctx, model.VotePost, postID, alice, model.VoteUp)
	require.NoError(t, err)
	_, err = st.Votes.Toggle(ctx, model.VoteComment, comment.ID, bob, model.VoteUp)
	require.NoError(t, err)
	require.NoError(t, st.Notifications.Create(ctx, &model.Notification{
		RecipientID: alice, SenderID: bob, Type: model.NotifyModMessage, CommunityID: &id, Message: "hi",
	}))

	require.NoError(t, st.Communities.Delete(ctx, id, alice))

	_, err = st.Communities.FindByID(ctx, id)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	_, err = st.Posts.FindByID(ctx, postID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	_, err = st.Comments.FindByID(ctx, comment.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	_, err = st.Posts.FindByID(ctx, keep)
	assert.NoError(t, err)

	for _, table := range []any{&model.Vote{}, &model.CommunityMember{}, &model.Notification{}} {
		var n int64
		q := db.Model(table)
		if _, ok := table.(*model.CommunityMember); ok {
			q = q.Where("community_id = ?", id)
		}
		require.NoError(t, q.Count(&n).Error)
		assert.Zero(t, n, "%T", table)
	}
	rows := outboxRows(t, db)
	require.NotEmpty(t, rows)
	assert.Equal(t, model.EventDeleteCommunity, rows[len(rows)-1].EventType)

	assert.ErrorIs(t, st.Communities.Delete(ctx, id, alice), gorm.ErrRecordNotFound)
}

func TestCommunityUpdate(t *testing.T) {
	_, st := newTestStores(t)
	ctx := context.Background()
	alice := createUser(t, st, "alice")
	id := createCommunity(t, st, alice, "golang")
	createCommunity(t, st, alice, "rust")

	c, err := st.Communities.FindByID(ctx, id)
	require.NoError(t, err)
	c.Description = "gophers"
	c.Topics = []string{"go", "tooling"}
	c.Rules = []model.Rule{{Title: "be kind"}}
	require.NoError(t, st.Communities.Update(ctx, c))

	got, err := st.Communities.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "gophers", got.Description)
	assert.Equal(t, []string{"go", "tooling"}, got.Topics)
	assert.Equal(t, "be kind", got.Rules[0].Title)

	c.Name, c.NameKey = "Rust", "rust"
	assert.ErrorIs(t, st.Communities.Update(ctx, c), gorm.ErrDuplicatedKey)

	assert.ErrorIs(t, st.Communities.Update(ctx, &model.Community{ID: 99, Name: "x", NameKey: "x"}), gorm.ErrRecordNotFound)
}
