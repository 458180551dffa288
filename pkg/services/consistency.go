package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"socialposts/pkg/data"
	"socialposts/pkg/events"
	"socialposts/pkg/metrics"
	"socialposts/pkg/model"
	"socialposts/pkg/storage"
	sn_trace "socialposts/pkg/trace"

	"github.com/ServiceWeaver/weaver"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type ConsistencyService interface {
	// ConsistencyService does not expose any rpc methods
}

type consistencyServiceOptions struct {
	RabbitMQAddr     string `toml:"rabbitmq_address"`
	RabbitMQPort     int    `toml:"rabbitmq_port"`
	RabbitMQUsername string `toml:"rabbitmq_username"`
	RabbitMQPassword string `toml:"rabbitmq_password"`
	Queue            string `toml:"queue"`
	NumWorkers       int    `toml:"num_workers"`
}

type consistencyService struct {
	weaver.Implements[ConsistencyService]
	weaver.WithConfig[consistencyServiceOptions]
	userService    weaver.Ref[UserService]
	postService    weaver.Ref[PostService]
	commentService weaver.Ref[CommentService]
	auditor        *data.Auditor
	cancel         context.CancelFunc
}

func (c *consistencyService) Init(ctx context.Context) error {
	logger := c.Logger(ctx)
	config := c.Config()

	c.auditor = data.NewAuditor(c.Logger, c.userService.Get(), c.postService.Get(), c.commentService.Get())
	if config.RabbitMQAddr == "" {
		logger.Info("consistency service running without rabbitmq, no events will be audited")
		return nil
	}

	queue := config.Queue
	if queue == "" {
		queue = "consistency-audit"
	}
	numWorkers := config.NumWorkers
	if numWorkers <= 0 {
		numWorkers = 1
	}

	// workers outlive Init and stop on Shutdown
	workerCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	for i := 1; i <= numWorkers; i++ {
		go func(worker int) {
			err := c.workerThread(workerCtx, queue)
			if err != nil && !errors.Is(err, context.Canceled) {
				c.Logger(workerCtx).Error("error in worker thread", "worker", worker, "msg", err.Error())
			}
		}(i)
	}

	logger.Info("consistency service running!", "nworkers", numWorkers, "queue", queue,
		"rabbitmq_addr", config.RabbitMQAddr, "rabbitmq_port", config.RabbitMQPort)
	return nil
}

func (c *consistencyService) Shutdown(ctx context.Context) error {
	if c.cancel != nil {
		c.cancel()
	}
	return nil
}

func (c *consistencyService) workerThread(ctx context.Context, queue string) error {
	config := c.Config()
	ch, conn, err := storage.RabbitMQClient(ctx, config.RabbitMQUsername, config.RabbitMQPassword, config.RabbitMQAddr, config.RabbitMQPort)
	if err != nil {
		return err
	}
	defer conn.Close()
	defer ch.Close()

	return events.Consume(ctx, ch, queue, events.AuditedKeys, c.onReceivedWorker)
}

func (c *consistencyService) onReceivedWorker(ctx context.Context, event model.Event) error {
	ctx = sn_trace.WithRemoteParent(ctx, event.SpanContext)
	logger := c.Logger(ctx)
	logger.Debug("received rabbitmq message", "event_id", event.EventID, "kind", event.Kind)

	label := metrics.EventLabel{Kind: string(event.Kind)}
	metrics.ReceivedEvents.Get(label).Inc()
	metrics.QueueDurationMs.Get(label).Put(float64(time.Now().UnixMilli() - event.Timestamp))

	trace.SpanFromContext(ctx).AddEvent("auditing event",
		trace.WithAttributes(
			attribute.String("event_id", event.EventID),
			attribute.Int64("queue_end_ms", time.Now().UnixMilli()),
		))

	violations, err := c.auditor.Audit(ctx, event)
	if err != nil {
		// keep consuming, the next event may succeed
		logger.Warn("error auditing event", "event_id", event.EventID, "msg", err.Error())
		return nil
	}
	for _, violation := range violations {
		logger.Warn("inconsistency!", "event_id", event.EventID, "kind", event.Kind, "violation", violation)
		metrics.Inconsistencies.Get(label).Inc()
	}
	if len(violations) == 0 {
		logger.Debug(fmt.Sprintf("event %s is consistent", event.EventID))
	}
	return nil
}
