package data

import (
	"context"
	"sync"
	"testing"

	"socialposts/pkg/model"
	"socialposts/pkg/storage"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

type recorder struct {
	mu     sync.Mutex
	events []model.Event
}

func (r *recorder) Publish(ctx context.Context, event model.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recorder) kinds() []model.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := []model.EventKind{}
	for _, e := range r.events {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

type mapCache struct {
	mu    sync.Mutex
	items map[string][]byte
}

func newMapCache() *mapCache {
	return &mapCache{items: map[string][]byte{}}
}

func (c *mapCache) Get(key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	value, ok := c.items[key]
	return value, ok, nil
}

func (c *mapCache) Set(key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = value
	return nil
}

func (c *mapCache) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
	return nil
}

type mapIndex struct {
	mu  sync.Mutex
	ids map[string]string
}

func newMapIndex() *mapIndex {
	return &mapIndex{ids: map[string]string{}}
}

func (i *mapIndex) Lookup(ctx context.Context, username string) (string, bool, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	id, ok := i.ids[username]
	return id, ok, nil
}

func (i *mapIndex) Remember(ctx context.Context, username string, userID string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.ids[username] = userID
	return nil
}

func (i *mapIndex) Forget(ctx context.Context, username string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.ids, username)
	return nil
}

type fixture struct {
	users    *UserStore
	posts    *PostStore
	comments *CommentStore
	index    *mapIndex
	cache    *mapCache
	events   *recorder
}

// collections overrides the in-memory collections of a fixture, nil fields keep the default
type collections struct {
	users    storage.Collection[model.User]
	posts    storage.Collection[model.Post]
	comments storage.Collection[model.Comment]
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWith(t, collections{})
}

func newFixtureWith(t *testing.T, colls collections) *fixture {
	t.Helper()
	if colls.users == nil {
		colls.users = storage.NewMemoryCollection[model.User]()
	}
	if colls.posts == nil {
		colls.posts = storage.NewMemoryCollection[model.Post]()
	}
	if colls.comments == nil {
		colls.comments = storage.NewMemoryCollection[model.Comment]()
	}
	f := &fixture{
		index:  newMapIndex(),
		cache:  newMapCache(),
		events: &recorder{},
	}
	f.users = NewUserStore(nil, colls.users, UserStoreOptions{
		Index:    f.index,
		Events:   f.events,
		HashCost: bcrypt.MinCost,
	})
	f.posts = NewPostStore(nil, colls.posts, f.events)
	f.comments = NewCommentStore(nil, colls.comments, CommentStoreOptions{
		Cache:  f.cache,
		Events: f.events,
	})
	Bind(f.users, f.posts, f.comments)
	return f
}

// faultyCollection wraps a collection and injects failures
type faultyCollection[T any] struct {
	storage.Collection[T]

	mu         sync.Mutex
	insertErr  error
	deleteErrs map[primitive.ObjectID]error
	afterFind  func()
}

func newFaultyCollection[T any]() *faultyCollection[T] {
	return &faultyCollection[T]{
		Collection: storage.NewMemoryCollection[T](),
		deleteErrs: map[primitive.ObjectID]error{},
	}
}

func (c *faultyCollection[T]) failInserts(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.insertErr = err
}

func (c *faultyCollection[T]) failDelete(id string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	oid, _ := primitive.ObjectIDFromHex(id)
	c.deleteErrs[oid] = err
}

// onNextFind runs fn once, after the next FindOne has read its document
func (c *faultyCollection[T]) onNextFind(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.afterFind = fn
}

func (c *faultyCollection[T]) InsertOne(ctx context.Context, doc T) (primitive.ObjectID, error) {
	c.mu.Lock()
	err := c.insertErr
	c.mu.Unlock()
	if err != nil {
		return primitive.NilObjectID, err
	}
	return c.Collection.InsertOne(ctx, doc)
}

func (c *faultyCollection[T]) FindOne(ctx context.Context, id primitive.ObjectID) (T, error) {
	doc, err := c.Collection.FindOne(ctx, id)
	c.mu.Lock()
	fn := c.afterFind
	c.afterFind = nil
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
	return doc, err
}

func (c *faultyCollection[T]) FindOneAndDelete(ctx context.Context, id primitive.ObjectID) (T, error) {
	c.mu.Lock()
	err := c.deleteErrs[id]
	c.mu.Unlock()
	if err != nil {
		var zero T
		return zero, err
	}
	return c.Collection.FindOneAndDelete(ctx, id)
}

func (f *fixture) createUser(t *testing.T, username string) model.User {
	t.Helper()
	user, err := f.users.CreateUser(context.Background(), "Test", "User", username+"@example.com", username, 30, "password")
	require.NoError(t, err)
	return user
}

// createPost returns the id of the new post
func (f *fixture) createPost(t *testing.T, user model.User, content string) string {
	t.Helper()
	owner, err := f.posts.CreatePost(context.Background(), user.ID.Hex(), content, "")
	require.NoError(t, err)
	require.NotEmpty(t, owner.Posts)
	return owner.Posts[len(owner.Posts)-1]
}

func (f *fixture) createComment(t *testing.T, postID string, user model.User, text string) model.Comment {
	t.Helper()
	comment, err := f.comments.CreateComment(context.Background(), postID, user.ID.Hex(), text)
	require.NoError(t, err)
	return comment
}

func (f *fixture) user(t *testing.T, id string) model.User {
	t.Helper()
	user, err := f.users.GetUserById(context.Background(), id)
	require.NoError(t, err)
	return user
}

func (f *fixture) post(t *testing.T, id string) model.Post {
	t.Helper()
	post, err := f.posts.GetPostById(context.Background(), id)
	require.NoError(t, err)
	return post
}
