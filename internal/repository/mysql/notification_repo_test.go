package mysql

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Circle_Community/internal/model"
	"Circle_Community/internal/pkg"
)

func pendingInvite(t *testing.T, st *Stores, communityID, senderID, recipientID uint64) *model.Notification {
	t.Helper()
	n := &model.Notification{
		RecipientID: recipientID,
		SenderID:    senderID,
		Type:        model.NotifyModInvite,
		CommunityID: &communityID,
		Status:      model.InvitePending,
	}
	require.NoError(t, st.Notifications.Create(context.Background(), n))
	return n
}

func TestRespondAcceptGrantsModerator(t *testing.T) {
	db, st := newTestStores(t)
	ctx := context.Background()
	alice, bob := createUser(t, st, "alice"), createUser(t, st, "bob")
	id := createCommunity(t, st, alice, "golang")
	n := pendingInvite(t, st, id, alice, bob)

	pending, err := st.Notifications.HasPendingInvite(ctx, bob, id)
	require.NoError(t, err)
	assert.True(t, pending)

	changed, err := st.Notifications.Respond(ctx, n, model.InviteAccepted)
	require.NoError(t, err)
	assert.True(t, changed)

	stored, err := st.Notifications.FindByID(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, model.InviteAccepted, stored.Status)
	assert.True(t, stored.Read)

	r, err := st.Communities.Roster(ctx, id)
	require.NoError(t, err)
	assert.True(t, r.IsMember(bob))
	assert.True(t, r.IsModerator(bob))

	rows := outboxRows(t, db)
	require.Len(t, rows, 1)
	assert.Equal(t, model.EventAddModerator, rows[0].EventType)
	assert.Equal(t, alice, rows[0].ActorID)
	assert.Equal(t, bob, rows[0].TargetID)

	pending, err = st.Notifications.HasPendingInvite(ctx, bob, id)
	require.NoError(t, err)
	assert.False(t, pending)
}

func TestRespondOnlyMovesPendingInvites(t *testing.T) {
	_, st := newTestStores(t)
	ctx := context.Background()
	alice, bob := createUser(t, st, "alice"), createUser(t, st, "bob")
	id := createCommunity(t, st, alice, "golang")
	n := pendingInvite(t, st, id, alice, bob)

	changed, err := st.Notifications.Respond(ctx, n, model.InviteDeclined)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = st.Notifications.Respond(ctx, n, model.InviteAccepted)
	require.NoError(t, err)
	assert.False(t, changed)

	stored, err := st.Notifications.FindByID(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, model.InviteDeclined, stored.Status)
	r, err := st.Communities.Roster(ctx, id)
	require.NoError(t, err)
	assert.False(t, r.IsModerator(bob))
}

func TestRespondAcceptWhileBannedRollsBack(t *testing.T) {
	db, st := newTestStores(t)
	ctx := context.Background()
	alice, bob := createUser(t, st, "alice"), createUser(t, st, "bob")
	id := createCommunity(t, st, alice, "golang")
	n := pendingInvite(t, st, id, alice, bob)
	require.NoError(t, st.Communities.Ban(ctx, id, bob, alice))

	_, err := st.Notifications.Respond(ctx, n, model.InviteAccepted)
	assert.ErrorIs(t, err, pkg.ErrUserBanned)

	stored, err := st.Notifications.FindByID(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, model.InvitePending, stored.Status)
	assert.False(t, stored.Read)
	r, err := st.Communities.Roster(ctx, id)
	require.NoError(t, err)
	assert.False(t, r.IsModerator(bob))
	assert.False(t, r.IsMember(bob))

	rows := outboxRows(t, db)
	require.Len(t, rows, 1)
	assert.Equal(t, model.EventBan, rows[0].EventType)
}

func TestConcurrentRespondHasOneWinner(t *testing.T) {
	_, st := newTestStores(t)
	ctx := context.Background()
	alice, bob := createUser(t, st, "alice"), createUser(t, st, "bob")
	id := createCommunity(t, st, alice, "golang")
	n := pendingInvite(t, st, id, alice, bob)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			to := model.InviteAccepted
			if i%2 == 1 {
				to = model.InviteDeclined
			}
			if ok, err := st.Notifications.Respond(ctx, n, to); err == nil && ok {
				wins.Add(1)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestNotificationReadState(t *testing.T) {
	_, st := newTestStores(t)
	ctx := context.Background()
	alice, bob := createUser(t, st, "alice"), createUser(t, st, "bob")
	batch := []*model.Notification{
		{RecipientID: alice, SenderID: bob, Type: model.NotifyReply, Message: "one"},
		{RecipientID: alice, SenderID: bob, Type: model.NotifyReply, Message: "two"},
		{RecipientID: bob, SenderID: alice, Type: model.NotifyReply, Message: "three"},
	}
	require.NoError(t, st.Notifications.CreateBatch(ctx, batch))
	require.NoError(t, st.Notifications.CreateBatch(ctx, nil))

	n, err := st.Notifications.UnreadCount(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	list, err := st.Notifications.ListByRecipient(ctx, alice, 0, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "two", list[0].Message)

	require.NoError(t, st.Notifications.MarkRead(ctx, batch[0].ID))
	require.NoError(t, st.Notifications.MarkRead(ctx, batch[0].ID))
	changed, err := st.Notifications.MarkAllRead(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(1), changed)
	n, err = st.Notifications.UnreadCount(ctx, alice)
	require.NoError(t, err)
	assert.Zero(t, n)
	n, err = st.Notifications.UnreadCount(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, st.Notifications.Delete(ctx, batch[0].ID))
	assert.Error(t, st.Notifications.Delete(ctx, batch[0].ID))
	assert.Error(t, st.Notifications.MarkRead(ctx, batch[0].ID))
}
