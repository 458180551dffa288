package data

import (
	"context"
	"errors"
	"testing"

	"socialposts/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

func TestCreateUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, err := f.users.CreateUser(ctx, "  Ada ", "Lovelace", " ada@example.com ", "  ada  ", 36, "secret")
	require.NoError(t, err)

	assert.False(t, user.ID.IsZero())
	assert.Equal(t, "Ada", user.FirstName)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, "ada", user.Username)
	assert.Equal(t, 36, user.Age)
	assert.Empty(t, user.Followers)
	assert.Empty(t, user.Following)
	assert.Empty(t, user.Posts)
	assert.Empty(t, user.Comments)

	assert.NotEqual(t, "secret", user.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("secret")))

	id, ok, _ := f.index.Lookup(ctx, "ada")
	assert.True(t, ok)
	assert.Equal(t, user.ID.Hex(), id)
	assert.Equal(t, []model.EventKind{model.EVENT_USER_CREATED}, f.events.kinds())
}

func TestCreateUserRoundTrip(t *testing.T) {
	f := newFixture(t)
	created := f.createUser(t, "grace")

	fetched, err := f.users.GetUserById(context.Background(), created.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, created, fetched)
}

func TestCreateUserUsernameConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createUser(t, "alice")

	_, err := f.users.CreateUser(ctx, "Other", "Alice", "other@example.com", "  alice ", 40, "password")
	assert.ErrorIs(t, err, model.ErrConflict)

	// the collection is checked when the index has no entry
	f.index.Forget(ctx, "alice")
	_, err = f.users.CreateUser(ctx, "Other", "Alice", "other@example.com", "alice", 40, "password")
	assert.ErrorIs(t, err, model.ErrConflict)

	all, err := f.users.GetAllUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCreateUserStaleIndex(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.index.Remember(ctx, "bob", primitive.NewObjectID().Hex()))
	user, err := f.users.CreateUser(ctx, "Bob", "Builder", "bob@example.com", "bob", 50, "password")
	require.NoError(t, err)

	id, ok, _ := f.index.Lookup(ctx, "bob")
	assert.True(t, ok)
	assert.Equal(t, user.ID.Hex(), id)
}

func TestCreateUserAgeBounds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		username string
		age      int
		valid    bool
	}{
		{"young", 17, false},
		{"adult", 18, true},
		{"elder", 100, true},
		{"ancient", 101, false},
	}
	for _, tt := range tests {
		t.Run(tt.username, func(t *testing.T) {
			_, err := f.users.CreateUser(ctx, "Test", "User", tt.username+"@example.com", tt.username, tt.age, "password")
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, model.ErrValidation)
			}
		})
	}
}

func TestCreateUserValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name                                           string
		firstName, lastName, email, username, password string
	}{
		{"digits in name", "R2D2", "Droid", "r2@example.com", "r2d2", "password"},
		{"blank last name", "Luke", "   ", "luke@example.com", "luke", "password"},
		{"bad email", "Leia", "Organa", "leia@alderaan", "leia", "password"},
		{"blank username", "Han", "Solo", "han@example.com", "  ", "password"},
		{"blank password", "Ben", "Kenobi", "ben@example.com", "ben", "   "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.users.CreateUser(ctx, tt.firstName, tt.lastName, tt.email, tt.username, 30, tt.password)
			assert.ErrorIs(t, err, model.ErrValidation)
		})
	}

	all, err := f.users.GetAllUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestGetUserById(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.users.GetUserById(ctx, "")
	assert.ErrorIs(t, err, model.ErrValidation)
	_, err = f.users.GetUserById(ctx, "not-an-id")
	assert.ErrorIs(t, err, model.ErrValidation)
	_, err = f.users.GetUserById(ctx, primitive.NewObjectID().Hex())
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestFollowAndUnfollow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.createUser(t, "alice")
	b := f.createUser(t, "bob")

	result, err := f.users.AddFollower(ctx, a.ID.Hex(), b.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID.Hex()}, result.UserFollowing.Following)
	assert.Equal(t, []string{a.ID.Hex()}, result.UserFollowed.Followers)
	assert.Equal(t, []string{b.ID.Hex()}, f.user(t, a.ID.Hex()).Following)
	assert.Equal(t, []string{a.ID.Hex()}, f.user(t, b.ID.Hex()).Followers)

	require.NoError(t, f.users.RemoveFollower(ctx, a.ID.Hex(), b.ID.Hex()))
	assert.Empty(t, f.user(t, a.ID.Hex()).Following)
	assert.Empty(t, f.user(t, b.ID.Hex()).Followers)

	// unfollowing again is a no-op
	require.NoError(t, f.users.RemoveFollower(ctx, a.ID.Hex(), b.ID.Hex()))
}

func TestAddFollowerKeepsDuplicates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.createUser(t, "alice")
	b := f.createUser(t, "bob")

	_, err := f.users.AddFollower(ctx, a.ID.Hex(), b.ID.Hex())
	require.NoError(t, err)
	result, err := f.users.AddFollower(ctx, a.ID.Hex(), b.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID.Hex(), b.ID.Hex()}, result.UserFollowing.Following)
}

func TestAddFollowerUnknownUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.createUser(t, "alice")

	_, err := f.users.AddFollower(ctx, a.ID.Hex(), primitive.NewObjectID().Hex())
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, err = f.users.AddFollower(ctx, a.ID.Hex(), "")
	assert.ErrorIs(t, err, model.ErrValidation)
	err = f.users.RemoveFollower(ctx, primitive.NewObjectID().Hex(), a.ID.Hex())
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.Empty(t, f.user(t, a.ID.Hex()).Following)
}

func TestRemoveUserCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.createUser(t, "alice")
	b := f.createUser(t, "bob")

	ownPost := f.createPost(t, a, "alice writes")
	otherPost := f.createPost(t, b, "bob writes")
	onOwnPost := f.createComment(t, ownPost, b, "bob replies")
	onOtherPost := f.createComment(t, otherPost, a, "alice replies")
	_, err := f.users.AddFollower(ctx, a.ID.Hex(), b.ID.Hex())
	require.NoError(t, err)
	_, err = f.users.AddFollower(ctx, b.ID.Hex(), a.ID.Hex())
	require.NoError(t, err)

	removed, err := f.users.RemoveUser(ctx, a.ID.Hex())
	require.NoError(t, err)
	assert.True(t, removed.Deleted)
	assert.Equal(t, a.ID, removed.ID)

	_, err = f.users.GetUserById(ctx, a.ID.Hex())
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, err = f.posts.GetPostById(ctx, ownPost)
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, err = f.comments.GetCommentById(ctx, onOwnPost.ID.Hex())
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, err = f.comments.GetCommentById(ctx, onOtherPost.ID.Hex())
	assert.ErrorIs(t, err, model.ErrNotFound)

	bob := f.user(t, b.ID.Hex())
	assert.Empty(t, bob.Comments)
	assert.Empty(t, bob.Followers)
	assert.Empty(t, bob.Following)
	assert.Equal(t, []string{otherPost}, bob.Posts)
	assert.Empty(t, f.post(t, otherPost).Comments)

	// the username is free again
	f.createUser(t, "alice")

	_, err = f.users.RemoveUser(ctx, a.ID.Hex())
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestRemoveUserAbortsOnFailedCascade(t *testing.T) {
	posts := newFaultyCollection[model.Post]()
	f := newFixtureWith(t, collections{posts: posts})
	ctx := context.Background()
	alice := f.createUser(t, "alice")
	postID := f.createPost(t, alice, "stuck")
	posts.failDelete(postID, errors.New("connection reset"))

	_, err := f.users.RemoveUser(ctx, alice.ID.Hex())
	assert.ErrorIs(t, err, model.ErrStore)

	user := f.user(t, alice.ID.Hex())
	assert.False(t, user.Deleted)
	assert.Equal(t, []string{postID}, user.Posts)
	id, ok, _ := f.index.Lookup(ctx, "alice")
	assert.True(t, ok)
	assert.Equal(t, alice.ID.Hex(), id)
	assert.NotContains(t, f.events.kinds(), model.EVENT_USER_DELETED)
}

func TestCreateUserUnacknowledged(t *testing.T) {
	users := newFaultyCollection[model.User]()
	f := newFixtureWith(t, collections{users: users})
	users.failInserts(mongo.ErrUnacknowledgedWrite)

	_, err := f.users.CreateUser(context.Background(), "Test", "User", "alice@example.com", "alice", 30, "password")
	assert.ErrorIs(t, err, model.ErrStore)
	assert.NotErrorIs(t, err, model.ErrConflict)
	_, ok, _ := f.index.Lookup(context.Background(), "alice")
	assert.False(t, ok)
}
