package mysql

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"Circle_Community/internal/model"
	"Circle_Community/internal/repository/sqlite"
)

// newTestStores 每个测试一个独立的内存 SQLite，建表后返回全部仓储
func newTestStores(t *testing.T) (*gorm.DB, *Stores) {
	t.Helper()
	db, err := sqlite.Open(sqlite.MemoryDSN)
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	t.Cleanup(func() { _ = Close(db) })
	return db, NewStores(db)
}

func createUser(t *testing.T, st *Stores, name string) uint64 {
	t.Helper()
	email := name + "@example.com"
	u := &model.User{Username: name, Email: &email, Password: "x", Gender: model.GenderPreferNotToSay}
	require.NoError(t, st.Users.Create(context.Background(), u))
	return u.ID
}

func createCommunity(t *testing.T, st *Stores, creatorID uint64, name string) uint64 {
	t.Helper()
	c := &model.Community{Name: name, NameKey: model.NameKey(name), Type: model.CommunityPublic, CreatorID: creatorID}
	require.NoError(t, st.Communities.Create(context.Background(), c))
	return c.ID
}

func createPost(t *testing.T, st *Stores, authorID uint64, communityID *uint64) uint64 {
	t.Helper()
	p := &model.Post{AuthorID: authorID, CommunityID: communityID, Title: "post", Status: model.PostPublished}
	require.NoError(t, st.Posts.Create(context.Background(), p))
	return p.ID
}

func outboxRows(t *testing.T, db *gorm.DB) []model.ModerationOutbox {
	t.Helper()
	var rows []model.ModerationOutbox
	require.NoError(t, db.Order("id ASC").Find(&rows).Error)
	return rows
}
