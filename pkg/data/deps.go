package data

import (
	"context"
	"io"
	"log/slog"

	"socialposts/pkg/model"
)

// Logger returns the logger to use for a request
type Logger func(ctx context.Context) *slog.Logger

// sibling capabilities, bound at composition time

type PostsByUser interface {
	RemovePostsByUserId(ctx context.Context, userID string) error
}

type CommentsByUser interface {
	RemoveCommentsByUserId(ctx context.Context, userID string) error
}

type CommentsByPost interface {
	RemoveCommentsByPostId(ctx context.Context, postID string) error
}

type PostOwners interface {
	GetUserById(ctx context.Context, id string) (model.User, error)
	AddPostToUser(ctx context.Context, userID string, postID string) (model.User, error)
	RemovePostFromUser(ctx context.Context, userID string, postID string) error
}

type CommentAuthors interface {
	GetUserById(ctx context.Context, id string) (model.User, error)
	AddCommentToUser(ctx context.Context, userID string, commentID string) (model.User, error)
	RemoveCommentFromUser(ctx context.Context, userID string, commentID string) error
}

type CommentParents interface {
	GetPostById(ctx context.Context, id string) (model.Post, error)
	AddCommentToPost(ctx context.Context, postID string, commentID string) (model.Post, error)
	RemoveCommentFromPost(ctx context.Context, postID string, commentID string) error
}

// optional infrastructure

// UsernameIndex caches username to user id lookups
type UsernameIndex interface {
	Lookup(ctx context.Context, username string) (string, bool, error)
	Remember(ctx context.Context, username string, userID string) error
	Forget(ctx context.Context, username string) error
}

// Cache stores serialized documents by key
type Cache interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Delete(key string) error
}

type Publisher interface {
	Publish(ctx context.Context, event model.Event) error
}

type nopIndex struct{}

func (nopIndex) Lookup(context.Context, string) (string, bool, error) { return "", false, nil }
func (nopIndex) Remember(context.Context, string, string) error       { return nil }
func (nopIndex) Forget(context.Context, string) error                 { return nil }

type nopCache struct{}

func (nopCache) Get(string) ([]byte, bool, error) { return nil, false, nil }
func (nopCache) Set(string, []byte) error         { return nil }
func (nopCache) Delete(string) error              { return nil }

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, model.Event) error { return nil }

func discardLogger(ctx context.Context) *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Bind wires the three stores to each other in process
func Bind(users *UserStore, posts *PostStore, comments *CommentStore) {
	users.Posts = posts
	users.Comments = comments
	posts.Owners = users
	posts.Comments = comments
	comments.Authors = users
	comments.Posts = posts
}
