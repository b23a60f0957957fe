package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Circle_Community/internal/model"
	"Circle_Community/internal/pkg"
)

func TestRegisterLoginAuthenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.users.Register(ctx, RegisterInput{Username: "alice", Email: "Alice@Example.com", Password: "secret1"})
	require.NoError(t, err)
	require.NotEmpty(t, res.Token)
	assert.Equal(t, model.GenderPreferNotToSay, res.User.Gender)
	assert.NotEqual(t, "secret1", res.User.Password)

	id, err := f.users.Authenticate(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, id)

	login, err := f.users.Login(ctx, LoginInput{EmailOrUsername: "alice@example.com", Password: "secret1"})
	require.NoError(t, err)

	// a newer login replaces the active session
	_, err = f.users.Authenticate(ctx, res.Token)
	requireKind(t, err, pkg.KindUnauthorized)
	_, err = f.users.Authenticate(ctx, login.Token)
	require.NoError(t, err)

	require.NoError(t, f.users.Logout(ctx, id))
	_, err = f.users.Authenticate(ctx, login.Token)
	requireKind(t, err, pkg.KindUnauthorized)
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.users.Register(ctx, RegisterInput{Username: "alice", Password: "secret1"})
	require.NoError(t, err)

	tests := []struct {
		name string
		in   RegisterInput
		kind pkg.Kind
	}{
		{"short username", RegisterInput{Username: "al", Password: "secret1"}, pkg.KindBadRequest},
		{"bad username", RegisterInput{Username: "al ice", Password: "secret1"}, pkg.KindBadRequest},
		{"short password", RegisterInput{Username: "bob", Password: "123"}, pkg.KindBadRequest},
		{"bad gender", RegisterInput{Username: "bob", Password: "secret1", Gender: "robot"}, pkg.KindBadRequest},
		{"bad email", RegisterInput{Username: "bob", Password: "secret1", Email: "nope"}, pkg.KindBadRequest},
		{"duplicate username", RegisterInput{Username: "ALICE", Password: "secret1"}, pkg.KindConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.users.Register(ctx, tt.in)
			require.Error(t, err)
			assert.Equal(t, tt.kind, pkg.KindOf(err))
		})
	}
}

func TestLoginFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.users.Register(ctx, RegisterInput{Username: "alice", Password: "secret1"})
	require.NoError(t, err)

	_, err = f.users.Login(ctx, LoginInput{EmailOrUsername: "alice", Password: "wrong!"})
	requireKind(t, err, pkg.KindUnauthorized)
	_, err = f.users.Login(ctx, LoginInput{EmailOrUsername: "nobody", Password: "secret1"})
	requireKind(t, err, pkg.KindUnauthorized)
	_, err = f.users.Login(ctx, LoginInput{})
	requireKind(t, err, pkg.KindBadRequest)
	_, err = f.users.Authenticate(ctx, "garbage")
	requireKind(t, err, pkg.KindUnauthorized)
}

func TestProfileKarma(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob, carol := f.user(t, "alice"), f.user(t, "bob"), f.user(t, "carol")
	post, err := f.posts.CreatePost(ctx, alice, CreatePostInput{Title: "t"})
	require.NoError(t, err)
	comment, err := f.comments.CreateComment(ctx, alice, post.ID, CreateCommentInput{Content: "c"})
	require.NoError(t, err)

	_, err = f.votes.Upvote(ctx, model.VotePost, post.ID, bob)
	require.NoError(t, err)
	_, err = f.votes.Upvote(ctx, model.VotePost, post.ID, carol)
	require.NoError(t, err)
	_, err = f.votes.Downvote(ctx, model.VoteComment, comment.ID, bob)
	require.NoError(t, err)

	p, err := f.users.Profile(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.Karma)
	assert.Equal(t, "alice", p.Username)

	_, err = f.users.Profile(ctx, "nobody")
	requireKind(t, err, pkg.KindNotFound)
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")

	bio := "<i>gopher</i>"
	gender := model.GenderFemale
	u, err := f.users.UpdateProfile(ctx, alice, ProfilePatch{Bio: &bio, Gender: &gender})
	require.NoError(t, err)
	assert.Equal(t, "gopher", u.Bio)
	assert.Equal(t, model.GenderFemale, u.Gender)

	bad := model.Gender("robot")
	_, err = f.users.UpdateProfile(ctx, alice, ProfilePatch{Gender: &bad})
	requireKind(t, err, pkg.KindBadRequest)

	me, err := f.users.Me(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, "gopher", me.Bio)
}
