package services

import (
	"context"
	"fmt"

	"socialposts/pkg/data"
	"socialposts/pkg/events"
	"socialposts/pkg/storage"

	"go.mongodb.org/mongo-driver/mongo"
)

const DEFAULT_DATABASE = "socialposts"

type mongoOptions struct {
	addr     string
	port     int
	database string
}

// openCollection connects to mongodb and ensures the given indexes on the collection.
// Without an address the collection lives in memory.
func openCollection[T any](ctx context.Context, opts mongoOptions, name string, indexes map[string]bool) (storage.Collection[T], *mongo.Client, error) {
	if opts.addr == "" {
		return storage.NewMemoryCollection[T](), nil, nil
	}
	client, err := storage.MongoDBClient(ctx, opts.addr, opts.port)
	if err != nil {
		return nil, nil, err
	}
	database := opts.database
	if database == "" {
		database = DEFAULT_DATABASE
	}
	collection := client.Database(database).Collection(name)
	for field, unique := range indexes {
		if err := storage.EnsureIndex(ctx, collection, field, unique); err != nil {
			client.Disconnect(ctx)
			return nil, nil, err
		}
	}
	return storage.NewMongoCollection[T](collection), client, nil
}

type rabbitOptions struct {
	addr     string
	port     int
	username string
	password string
}

// openPublisher returns nil when rabbitmq is not configured
func openPublisher(ctx context.Context, opts rabbitOptions) (*events.Publisher, error) {
	if opts.addr == "" {
		return nil, nil
	}
	ch, conn, err := storage.RabbitMQClient(ctx, opts.username, opts.password, opts.addr, opts.port)
	if err != nil {
		return nil, err
	}
	publisher, err := events.NewPublisher(ch, conn)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("error creating event publisher: %w", err)
	}
	return publisher, nil
}

// asPublisher keeps a nil *events.Publisher from becoming a non-nil interface
func asPublisher(p *events.Publisher) data.Publisher {
	if p == nil {
		return nil
	}
	return p
}
