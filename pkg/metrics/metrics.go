package metrics

import "github.com/ServiceWeaver/weaver/metrics"

type WriteLabel struct {
	Collection string
	Op         string
}

type CascadeLabel struct {
	Parent string
	Child  string
}

type EventLabel struct {
	Kind string
}

type OpLabel struct {
	Op string
}

var (
	// data stores
	Writes = metrics.NewCounterMap[WriteLabel](
		"sp_writes",
		"The number of acknowledged writes per collection and operation",
	)
	CascadeDeletions = metrics.NewCounterMap[CascadeLabel](
		"sp_cascade_deletions",
		"The number of child documents removed while deleting a parent",
	)
	OpDurationMs = metrics.NewHistogramMap[OpLabel](
		"sp_op_duration_ms",
		"Duration of store operations in milliseconds",
		metrics.NonNegativeBuckets,
	)
	// events
	PublishedEvents = metrics.NewCounterMap[EventLabel](
		"sp_published_events",
		"The number of events published to rabbitmq",
	)
	PublishFailures = metrics.NewCounterMap[EventLabel](
		"sp_publish_failures",
		"The number of events that could not be published",
	)
	DecodeFailures = metrics.NewCounter(
		"sp_decode_failures",
		"The number of consumed messages that could not be decoded into an event",
	)
	// consistency service
	ReceivedEvents = metrics.NewCounterMap[EventLabel](
		"sp_received_events",
		"The number of events received by the consistency service",
	)
	QueueDurationMs = metrics.NewHistogramMap[EventLabel](
		"sp_queue_duration_ms",
		"Time between publishing and auditing an event in milliseconds",
		metrics.NonNegativeBuckets,
	)
	Inconsistencies = metrics.NewCounterMap[EventLabel](
		"sp_inconsistencies",
		"The number of times a cross-collection inconsistency has been observed",
	)
)
