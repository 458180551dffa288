package storage

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// memoryCollection keeps bson-encoded documents in process. Documents go through the same
// bson codecs as with mongodb, so tags and empty lists behave identically.
// Filters only support top-level equality.
type memoryCollection[T any] struct {
	mu    sync.Mutex
	order []primitive.ObjectID
	docs  map[primitive.ObjectID]bson.Raw
}

func NewMemoryCollection[T any]() Collection[T] {
	return &memoryCollection[T]{
		docs: make(map[primitive.ObjectID]bson.Raw),
	}
}

func toDocument(v any) (bson.D, error) {
	data, err := bson.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc bson.D
	err = bson.Unmarshal(data, &doc)
	return doc, err
}

func fromRaw[T any](raw bson.Raw) (T, error) {
	var doc T
	err := bson.Unmarshal(raw, &doc)
	return doc, err
}

func (m *memoryCollection[T]) InsertOne(ctx context.Context, doc T) (primitive.ObjectID, error) {
	fields, err := toDocument(doc)
	if err != nil {
		return primitive.NilObjectID, err
	}

	id := primitive.NewObjectID()
	withID := bson.D{}
	for _, e := range fields {
		if e.Key == "_id" {
			if given, ok := e.Value.(primitive.ObjectID); ok && !given.IsZero() {
				id = given
			}
			continue
		}
		withID = append(withID, e)
	}
	withID = append(bson.D{{Key: "_id", Value: id}}, withID...)

	raw, err := bson.Marshal(withID)
	if err != nil {
		return primitive.NilObjectID, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.docs[id]; exists {
		return primitive.NilObjectID, fmt.Errorf("duplicate key _id %s", id.Hex())
	}
	m.docs[id] = raw
	m.order = append(m.order, id)
	return id, nil
}

func (m *memoryCollection[T]) FindOne(ctx context.Context, id primitive.ObjectID) (T, error) {
	m.mu.Lock()
	raw, ok := m.docs[id]
	m.mu.Unlock()
	if !ok {
		var zero T
		return zero, mongo.ErrNoDocuments
	}
	return fromRaw[T](raw)
}

func matches(doc bson.D, filter bson.D) bool {
	for _, f := range filter {
		found := false
		for _, e := range doc {
			if e.Key == f.Key {
				found = reflect.DeepEqual(e.Value, f.Value)
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (m *memoryCollection[T]) Find(ctx context.Context, filter bson.D) ([]T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	docs := []T{}
	for _, id := range m.order {
		raw := m.docs[id]
		if len(filter) > 0 {
			var fields bson.D
			if err := bson.Unmarshal(raw, &fields); err != nil {
				return nil, err
			}
			if !matches(fields, filter) {
				continue
			}
		}
		doc, err := fromRaw[T](raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// modify decodes the stored document, applies fn and stores the result
func (m *memoryCollection[T]) modify(id primitive.ObjectID, fn func(bson.D) (bson.D, error)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	raw, ok := m.docs[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	var fields bson.D
	if err := bson.Unmarshal(raw, &fields); err != nil {
		return err
	}
	fields, err := fn(fields)
	if err != nil {
		return err
	}
	raw, err = bson.Marshal(fields)
	if err != nil {
		return err
	}
	m.docs[id] = raw
	return nil
}

func arrayField(fields bson.D, field string) (int, primitive.A, error) {
	for i, e := range fields {
		if e.Key != field {
			continue
		}
		switch v := e.Value.(type) {
		case primitive.A:
			return i, v, nil
		case nil:
			return i, primitive.A{}, nil
		default:
			return i, nil, fmt.Errorf("field %s is not an array", field)
		}
	}
	return -1, primitive.A{}, nil
}

func (m *memoryCollection[T]) Push(ctx context.Context, id primitive.ObjectID, field string, value any) error {
	return m.modify(id, func(fields bson.D) (bson.D, error) {
		idx, values, err := arrayField(fields, field)
		if err != nil {
			return nil, err
		}
		values = append(values, value)
		if idx < 0 {
			return append(fields, bson.E{Key: field, Value: values}), nil
		}
		fields[idx].Value = values
		return fields, nil
	})
}

func (m *memoryCollection[T]) Pull(ctx context.Context, id primitive.ObjectID, field string, value any) error {
	return m.modify(id, func(fields bson.D) (bson.D, error) {
		idx, values, err := arrayField(fields, field)
		if err != nil || idx < 0 {
			return fields, err
		}
		kept := primitive.A{}
		for _, v := range values {
			if !reflect.DeepEqual(v, value) {
				kept = append(kept, v)
			}
		}
		fields[idx].Value = kept
		return fields, nil
	})
}

func (m *memoryCollection[T]) Set(ctx context.Context, id primitive.ObjectID, values bson.D) error {
	return m.modify(id, func(fields bson.D) (bson.D, error) {
		for _, v := range values {
			replaced := false
			for i := range fields {
				if fields[i].Key == v.Key {
					fields[i].Value = v.Value
					replaced = true
					break
				}
			}
			if !replaced {
				fields = append(fields, v)
			}
		}
		return fields, nil
	})
}

func (m *memoryCollection[T]) FindOneAndDelete(ctx context.Context, id primitive.ObjectID) (T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	raw, ok := m.docs[id]
	if !ok {
		var zero T
		return zero, mongo.ErrNoDocuments
	}
	delete(m.docs, id)
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return fromRaw[T](raw)
}
