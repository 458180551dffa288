package services

import (
	"context"
	"time"

	"socialposts/pkg/data"
	"socialposts/pkg/events"
	"socialposts/pkg/model"
	"socialposts/pkg/storage"

	"github.com/ServiceWeaver/weaver"
	"go.mongodb.org/mongo-driver/mongo"
)

type CommentService interface {
	CreateComment(ctx context.Context, postID string, userID string, text string) (model.Comment, error)
	GetCommentById(ctx context.Context, id string) (model.Comment, error)
	ReadComment(ctx context.Context, id string) (model.Comment, error)
	GetAllComments(ctx context.Context) ([]model.Comment, error)
	RemoveComment(ctx context.Context, id string) (model.Comment, error)
	RemoveCommentsByUserId(ctx context.Context, userID string) error
	RemoveCommentsByPostId(ctx context.Context, postID string) error
}

var _ weaver.NotRetriable = CommentService.CreateComment

type commentServiceOptions struct {
	MongoDBAddr      string `toml:"mongodb_address"`
	MongoDBPort      int    `toml:"mongodb_port"`
	Database         string `toml:"database"`
	MemCachedAddr    string `toml:"memcached_address"`
	MemCachedPort    int    `toml:"memcached_port"`
	MemCachedTTL     int    `toml:"memcached_ttl_seconds"`
	RabbitMQAddr     string `toml:"rabbitmq_address"`
	RabbitMQPort     int    `toml:"rabbitmq_port"`
	RabbitMQUsername string `toml:"rabbitmq_username"`
	RabbitMQPassword string `toml:"rabbitmq_password"`
}

type commentService struct {
	weaver.Implements[CommentService]
	weaver.WithConfig[commentServiceOptions]
	userService weaver.Ref[UserService]
	postService weaver.Ref[PostService]
	store       *data.CommentStore
	mongoClient *mongo.Client
	publisher   *events.Publisher
}

func (c *commentService) Init(ctx context.Context) error {
	logger := c.Logger(ctx)
	config := c.Config()

	indexes := map[string]bool{"userId": false, "postId": false}
	comments, client, err := openCollection[model.Comment](ctx, mongoOptions{config.MongoDBAddr, config.MongoDBPort, config.Database}, model.COMMENTS_COLLECTION, indexes)
	if err != nil {
		logger.Error(err.Error())
		return err
	}
	c.mongoClient = client

	c.publisher, err = openPublisher(ctx, rabbitOptions{config.RabbitMQAddr, config.RabbitMQPort, config.RabbitMQUsername, config.RabbitMQPassword})
	if err != nil {
		logger.Error(err.Error())
		return err
	}

	opts := data.CommentStoreOptions{
		Events: asPublisher(c.publisher),
	}
	if config.MemCachedAddr != "" {
		opts.Cache = storage.NewMemCache(storage.MemCachedClient(config.MemCachedAddr, config.MemCachedPort), time.Duration(config.MemCachedTTL)*time.Second)
	}
	c.store = data.NewCommentStore(c.Logger, comments, opts)
	c.store.Authors = c.userService.Get()
	c.store.Posts = c.postService.Get()

	logger.Info("comment service running!",
		"mongodb_addr", config.MongoDBAddr, "mongodb_port", config.MongoDBPort,
		"memcached_addr", config.MemCachedAddr, "memcached_port", config.MemCachedPort,
		"rabbitmq_addr", config.RabbitMQAddr, "rabbitmq_port", config.RabbitMQPort,
	)
	return nil
}

func (c *commentService) Shutdown(ctx context.Context) error {
	if c.publisher != nil {
		if err := c.publisher.Close(); err != nil {
			c.Logger(ctx).Warn("error closing rabbitmq publisher", "msg", err.Error())
		}
	}
	if c.mongoClient != nil {
		return c.mongoClient.Disconnect(ctx)
	}
	return nil
}

func (c *commentService) CreateComment(ctx context.Context, postID string, userID string, text string) (model.Comment, error) {
	return c.store.CreateComment(ctx, postID, userID, text)
}

func (c *commentService) GetCommentById(ctx context.Context, id string) (model.Comment, error) {
	return c.store.GetCommentById(ctx, id)
}

func (c *commentService) ReadComment(ctx context.Context, id string) (model.Comment, error) {
	return c.store.ReadComment(ctx, id)
}

func (c *commentService) GetAllComments(ctx context.Context) ([]model.Comment, error) {
	return c.store.GetAllComments(ctx)
}

func (c *commentService) RemoveComment(ctx context.Context, id string) (model.Comment, error) {
	return c.store.RemoveComment(ctx, id)
}

func (c *commentService) RemoveCommentsByUserId(ctx context.Context, userID string) error {
	return c.store.RemoveCommentsByUserId(ctx, userID)
}

func (c *commentService) RemoveCommentsByPostId(ctx context.Context, postID string) error {
	return c.store.RemoveCommentsByPostId(ctx, postID)
}
