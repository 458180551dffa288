package storage

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func MongoDBClient(ctx context.Context, address string, port int) (*mongo.Client, error) {
	uri := fmt.Sprintf("mongodb://%s:%d/?directConnection=true", address, port)
	clientOptions := options.Client().ApplyURI(uri)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("error connecting to mongodb: %w", err)
	}
	err = client.Ping(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("mongodb cannot be reached after connecting: %w", err)
	}
	return client, nil
}

// EnsureIndex creates an ascending index on field if it does not exist yet
func EnsureIndex(ctx context.Context, collection *mongo.Collection, field string, unique bool) error {
	model := mongo.IndexModel{
		Keys:    bson.D{{Key: field, Value: 1}},
		Options: options.Index().SetUnique(unique),
	}
	_, err := collection.Indexes().CreateOne(ctx, model)
	if err != nil {
		return fmt.Errorf("error creating index on %s.%s: %w", collection.Name(), field, err)
	}
	return nil
}

type mongoCollection[T any] struct {
	collection *mongo.Collection
}

func NewMongoCollection[T any](collection *mongo.Collection) Collection[T] {
	return &mongoCollection[T]{collection: collection}
}

func (m *mongoCollection[T]) InsertOne(ctx context.Context, doc T) (primitive.ObjectID, error) {
	result, err := m.collection.InsertOne(ctx, doc)
	if err != nil {
		return primitive.NilObjectID, err
	}
	id, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, fmt.Errorf("unexpected inserted id %v in %s", result.InsertedID, m.collection.Name())
	}
	return id, nil
}

func (m *mongoCollection[T]) FindOne(ctx context.Context, id primitive.ObjectID) (T, error) {
	var doc T
	filter := bson.D{{Key: "_id", Value: id}}
	err := m.collection.FindOne(ctx, filter).Decode(&doc)
	return doc, err
}

func (m *mongoCollection[T]) Find(ctx context.Context, filter bson.D) ([]T, error) {
	if filter == nil {
		filter = bson.D{}
	}
	cur, err := m.collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	docs := []T{}
	err = cur.All(ctx, &docs)
	if err != nil {
		return nil, err
	}
	return docs, nil
}

func (m *mongoCollection[T]) update(ctx context.Context, id primitive.ObjectID, update bson.D) error {
	filter := bson.D{{Key: "_id", Value: id}}
	result, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (m *mongoCollection[T]) Push(ctx context.Context, id primitive.ObjectID, field string, value any) error {
	return m.update(ctx, id, bson.D{{Key: "$push", Value: bson.D{{Key: field, Value: value}}}})
}

func (m *mongoCollection[T]) Pull(ctx context.Context, id primitive.ObjectID, field string, value any) error {
	return m.update(ctx, id, bson.D{{Key: "$pull", Value: bson.D{{Key: field, Value: value}}}})
}

func (m *mongoCollection[T]) Set(ctx context.Context, id primitive.ObjectID, fields bson.D) error {
	return m.update(ctx, id, bson.D{{Key: "$set", Value: fields}})
}

func (m *mongoCollection[T]) FindOneAndDelete(ctx context.Context, id primitive.ObjectID) (T, error) {
	var doc T
	filter := bson.D{{Key: "_id", Value: id}}
	err := m.collection.FindOneAndDelete(ctx, filter).Decode(&doc)
	return doc, err
}
