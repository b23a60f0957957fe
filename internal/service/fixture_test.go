package service

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"Circle_Community/internal/model"
	"Circle_Community/internal/pkg"
	"Circle_Community/internal/repository/mysql"
	"Circle_Community/internal/repository/redis"
	"Circle_Community/internal/repository/sqlite"
)

type pushed struct {
	userID uint64
	event  string
}

type recordingPusher struct {
	mu     sync.Mutex
	events []pushed
}

func (p *recordingPusher) Push(userID uint64, event string, _ any) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, pushed{userID, event})
	return true
}

func (p *recordingPusher) count(userID uint64, event string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.userID == userID && e.event == event {
			n++
		}
	}
	return n
}

type fixture struct {
	t           *testing.T
	db          *gorm.DB
	st          *mysql.Stores
	lock        *redis.DistLock
	unread      *redis.UnreadCache
	communities *CommunityService
	notes       *NotificationService
	votes       *VoteService
	posts       *PostService
	comments    *CommentService
	users       *UserService
	chats       *ChatService
	pusher      *recordingPusher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	db, err := sqlite.Open(sqlite.MemoryDSN)
	require.NoError(t, err)
	require.NoError(t, mysql.Migrate(db))
	t.Cleanup(func() { _ = mysql.Close(db) })
	rdb := goredis.NewClient(&goredis.Options{Addr: miniredis.RunT(t).Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	st := mysql.NewStores(db)
	lock, unread := redis.NewDistLock(rdb), redis.NewUnreadCache(rdb)
	pusher := &recordingPusher{}

	notes := NewNotificationService(st.Notifications, st.Communities, st.Users, lock, unread, logger)
	notes.SetPusher(pusher)
	chats := NewChatService(st.Chats, st.Users, logger)
	chats.SetPusher(pusher)

	return &fixture{
		t:           t,
		db:          db,
		st:          st,
		lock:        lock,
		unread:      unread,
		communities: NewCommunityService(st.Communities, st.Posts, st.Users, logger),
		notes:       notes,
		votes:       NewVoteService(st.Votes, logger),
		posts:       NewPostService(st.Posts, st.Communities, logger),
		comments:    NewCommentService(st.Comments, st.Posts, notes, logger),
		users:       NewUserService(st.Users, redis.NewSessionRepository(rdb), pkg.NewTokenIssuer("test-secret", time.Hour), logger),
		chats:       chats,
		pusher:      pusher,
	}
}

func (f *fixture) user(t *testing.T, name string) uint64 {
	t.Helper()
	email := name + "@example.com"
	u := &model.User{Username: name, Email: &email, Password: "x", Gender: model.GenderPreferNotToSay}
	require.NoError(t, f.st.Users.Create(context.Background(), u))
	return u.ID
}

func (f *fixture) community(t *testing.T, creatorID uint64, name string) uint64 {
	t.Helper()
	c, err := f.communities.CreateCommunity(context.Background(), creatorID, CreateCommunityInput{Name: name})
	require.NoError(t, err)
	return c.ID
}

func (f *fixture) roster(t *testing.T, communityID uint64) *model.Roster {
	t.Helper()
	r, err := f.communities.Members(context.Background(), communityID)
	require.NoError(t, err)
	return r
}

func (f *fixture) join(t *testing.T, communityID, userID uint64) {
	t.Helper()
	require.NoError(t, f.communities.JoinCommunity(context.Background(), communityID, userID))
}

// moderator joins userID and makes them a moderator of communityID.
func (f *fixture) moderator(t *testing.T, communityID, creatorID, userID uint64) {
	t.Helper()
	f.join(t, communityID, userID)
	require.NoError(t, f.communities.AddModerator(context.Background(), communityID, creatorID, userID))
}

func (f *fixture) outbox() []model.ModerationOutbox {
	var rows []model.ModerationOutbox
	require.NoError(f.t, f.db.Order("id ASC").Find(&rows).Error)
	return rows
}

func (f *fixture) outboxEvents(communityID uint64) []string {
	var out []string
	for _, ob := range f.outbox() {
		if ob.CommunityID == communityID {
			out = append(out, ob.EventType)
		}
	}
	return out
}

// setCounters 直接改写冗余计数，模拟计数漂移
func (f *fixture) setCounters(postID uint64, up, down int64) {
	require.NoError(f.t, f.db.Model(&model.Post{}).Where("id = ?", postID).
		UpdateColumns(map[string]any{"upvotes": up, "downvotes": down}).Error)
}

func requireKind(t *testing.T, err error, kind pkg.Kind) {
	t.Helper()
	require.Error(t, err)
	require.Truef(t, pkg.IsKind(err, kind), "want %s, got %v (%s)", kind, err, pkg.KindOf(err))
}
