package data

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"socialposts/pkg/metrics"
	"socialposts/pkg/model"
	"socialposts/pkg/storage"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

func findByID[T any](ctx context.Context, coll storage.Collection[T], what string, id primitive.ObjectID) (T, error) {
	doc, err := coll.FindOne(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return doc, model.NotFound("%s %s not found", what, id.Hex())
	}
	if err != nil {
		return doc, model.StoreFailure("find "+what, err)
	}
	return doc, nil
}

// storeErr maps a write that matched nothing to a not found error
func storeErr(what string, op string, id primitive.ObjectID, err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.NotFound("%s %s not found", what, id.Hex())
	}
	return model.StoreFailure(op+" "+what, err)
}

func insertErr(what string, err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return model.Conflict("%s already exists", what)
	}
	return model.StoreFailure("insert "+what, err)
}

func observe(op string, start time.Time) {
	metrics.OpDurationMs.Get(metrics.OpLabel{Op: op}).Put(float64(time.Since(start).Milliseconds()))
}

func countWrite(collection string, op string) {
	metrics.Writes.Get(metrics.WriteLabel{Collection: collection, Op: op}).Inc()
}

func traceWrite(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	attrs = append(attrs, attribute.Int64("write_end_ms", time.Now().UnixMilli()))
	trace.SpanFromContext(ctx).AddEvent(name, trace.WithAttributes(attrs...))
}

// publish sends event without failing the write that produced it
func publish(ctx context.Context, logger *slog.Logger, events Publisher, event model.Event) {
	err := events.Publish(ctx, event)
	if err != nil {
		logger.Warn("error publishing event", "kind", event.Kind, "msg", err.Error())
	}
}

func occurrences(ids []string, id string) int {
	n := 0
	for _, existing := range ids {
		if existing == id {
			n++
		}
	}
	return n
}

func cascadeCount(parent string, child string, n int) {
	metrics.CascadeDeletions.Get(metrics.CascadeLabel{Parent: parent, Child: child}).Add(float64(n))
}
