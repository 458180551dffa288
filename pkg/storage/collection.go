package storage

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Collection is the set of document operations the data layer needs from a store.
// Lookups, updates and deletes that match nothing return mongo.ErrNoDocuments,
// and writes the store did not acknowledge return mongo.ErrUnacknowledgedWrite.
type Collection[T any] interface {
	// InsertOne stores doc and returns the id generated for it.
	InsertOne(ctx context.Context, doc T) (primitive.ObjectID, error)
	FindOne(ctx context.Context, id primitive.ObjectID) (T, error)
	// Find returns the documents matching every key/value of filter, in insertion order
	// for the memory store. An empty filter matches all documents.
	Find(ctx context.Context, filter bson.D) ([]T, error)
	// Push appends value to the array field of the document.
	Push(ctx context.Context, id primitive.ObjectID, field string, value any) error
	// Pull removes every occurrence of value from the array field of the document.
	Pull(ctx context.Context, id primitive.ObjectID, field string, value any) error
	Set(ctx context.Context, id primitive.ObjectID, fields bson.D) error
	FindOneAndDelete(ctx context.Context, id primitive.ObjectID) (T, error)
}
