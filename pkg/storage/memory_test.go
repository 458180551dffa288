package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type note struct {
	ID     primitive.ObjectID `bson:"_id,omitempty"`
	Owner  string             `bson:"owner"`
	Text   string             `bson:"text"`
	Labels []string           `bson:"labels"`
}

func TestMemoryInsertAndFind(t *testing.T) {
	ctx := context.Background()
	notes := NewMemoryCollection[note]()

	id, err := notes.InsertOne(ctx, note{Owner: "a", Text: "first", Labels: []string{}})
	require.NoError(t, err)
	assert.False(t, id.IsZero())

	_, err = notes.InsertOne(ctx, note{Owner: "b", Text: "second", Labels: []string{}})
	require.NoError(t, err)

	got, err := notes.FindOne(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "first", got.Text)
	assert.Empty(t, got.Labels)

	all, err := notes.Find(ctx, bson.D{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "first", all[0].Text)
	assert.Equal(t, "second", all[1].Text)

	owned, err := notes.Find(ctx, bson.D{{Key: "owner", Value: "b"}})
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.Equal(t, "second", owned[0].Text)

	_, err = notes.FindOne(ctx, primitive.NewObjectID())
	assert.ErrorIs(t, err, mongo.ErrNoDocuments)
}

func TestMemoryPushPull(t *testing.T) {
	ctx := context.Background()
	notes := NewMemoryCollection[note]()
	id, err := notes.InsertOne(ctx, note{Owner: "a"})
	require.NoError(t, err)

	// labels is stored as null until the first push
	require.NoError(t, notes.Push(ctx, id, "labels", "x"))
	require.NoError(t, notes.Push(ctx, id, "labels", "y"))
	require.NoError(t, notes.Push(ctx, id, "labels", "x"))

	got, err := notes.FindOne(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y", "x"}, got.Labels)

	require.NoError(t, notes.Pull(ctx, id, "labels", "x"))
	got, err = notes.FindOne(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"y"}, got.Labels)

	// pulling an absent value is a no-op
	require.NoError(t, notes.Pull(ctx, id, "labels", "z"))

	err = notes.Push(ctx, primitive.NewObjectID(), "labels", "x")
	assert.ErrorIs(t, err, mongo.ErrNoDocuments)
}

func TestMemorySetAndDelete(t *testing.T) {
	ctx := context.Background()
	notes := NewMemoryCollection[note]()
	id, err := notes.InsertOne(ctx, note{Owner: "a", Text: "before"})
	require.NoError(t, err)

	require.NoError(t, notes.Set(ctx, id, bson.D{{Key: "text", Value: "after"}}))
	got, err := notes.FindOne(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "after", got.Text)

	deleted, err := notes.FindOneAndDelete(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "after", deleted.Text)

	_, err = notes.FindOne(ctx, id)
	assert.ErrorIs(t, err, mongo.ErrNoDocuments)
	_, err = notes.FindOneAndDelete(ctx, id)
	assert.ErrorIs(t, err, mongo.ErrNoDocuments)

	all, err := notes.Find(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, all)
}
