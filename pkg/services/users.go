package services

import (
	"context"

	"socialposts/pkg/data"
	"socialposts/pkg/events"
	"socialposts/pkg/model"
	"socialposts/pkg/storage"

	"github.com/ServiceWeaver/weaver"
	"go.mongodb.org/mongo-driver/mongo"
)

type UserService interface {
	CreateUser(ctx context.Context, firstName string, lastName string, email string, username string, age int, password string) (model.User, error)
	GetUserById(ctx context.Context, id string) (model.User, error)
	GetAllUsers(ctx context.Context) ([]model.User, error)
	RemoveUser(ctx context.Context, id string) (model.User, error)
	AddFollower(ctx context.Context, userID string, followeeID string) (model.FollowResult, error)
	RemoveFollower(ctx context.Context, userID string, followeeID string) error
	AddPostToUser(ctx context.Context, userID string, postID string) (model.User, error)
	RemovePostFromUser(ctx context.Context, userID string, postID string) error
	AddCommentToUser(ctx context.Context, userID string, commentID string) (model.User, error)
	RemoveCommentFromUser(ctx context.Context, userID string, commentID string) error
}

// appending ids is not idempotent
var _ weaver.NotRetriable = UserService.CreateUser
var _ weaver.NotRetriable = UserService.AddFollower
var _ weaver.NotRetriable = UserService.AddPostToUser
var _ weaver.NotRetriable = UserService.AddCommentToUser

type userServiceOptions struct {
	MongoDBAddr      string `toml:"mongodb_address"`
	MongoDBPort      int    `toml:"mongodb_port"`
	Database         string `toml:"database"`
	RedisAddr        string `toml:"redis_address"`
	RedisPort        int    `toml:"redis_port"`
	RabbitMQAddr     string `toml:"rabbitmq_address"`
	RabbitMQPort     int    `toml:"rabbitmq_port"`
	RabbitMQUsername string `toml:"rabbitmq_username"`
	RabbitMQPassword string `toml:"rabbitmq_password"`
	BcryptCost       int    `toml:"bcrypt_cost"`
}

type userService struct {
	weaver.Implements[UserService]
	weaver.WithConfig[userServiceOptions]
	postService    weaver.Ref[PostService]
	commentService weaver.Ref[CommentService]
	store          *data.UserStore
	mongoClient    *mongo.Client
	publisher      *events.Publisher
}

func (u *userService) Init(ctx context.Context) error {
	logger := u.Logger(ctx)
	config := u.Config()

	indexes := map[string]bool{"username": true}
	users, client, err := openCollection[model.User](ctx, mongoOptions{config.MongoDBAddr, config.MongoDBPort, config.Database}, model.USERS_COLLECTION, indexes)
	if err != nil {
		logger.Error(err.Error())
		return err
	}
	u.mongoClient = client

	u.publisher, err = openPublisher(ctx, rabbitOptions{config.RabbitMQAddr, config.RabbitMQPort, config.RabbitMQUsername, config.RabbitMQPassword})
	if err != nil {
		logger.Error(err.Error())
		return err
	}

	opts := data.UserStoreOptions{
		Events:   asPublisher(u.publisher),
		HashCost: config.BcryptCost,
	}
	if config.RedisAddr != "" {
		opts.Index = storage.NewRedisUsernameIndex(storage.RedisClient(config.RedisAddr, config.RedisPort))
	}
	u.store = data.NewUserStore(u.Logger, users, opts)
	u.store.Posts = u.postService.Get()
	u.store.Comments = u.commentService.Get()

	logger.Info("user service running!",
		"mongodb_addr", config.MongoDBAddr, "mongodb_port", config.MongoDBPort,
		"redis_addr", config.RedisAddr, "redis_port", config.RedisPort,
		"rabbitmq_addr", config.RabbitMQAddr, "rabbitmq_port", config.RabbitMQPort,
	)
	return nil
}

func (u *userService) Shutdown(ctx context.Context) error {
	if u.publisher != nil {
		if err := u.publisher.Close(); err != nil {
			u.Logger(ctx).Warn("error closing rabbitmq publisher", "msg", err.Error())
		}
	}
	if u.mongoClient != nil {
		return u.mongoClient.Disconnect(ctx)
	}
	return nil
}

func (u *userService) CreateUser(ctx context.Context, firstName string, lastName string, email string, username string, age int, password string) (model.User, error) {
	return u.store.CreateUser(ctx, firstName, lastName, email, username, age, password)
}

func (u *userService) GetUserById(ctx context.Context, id string) (model.User, error) {
	return u.store.GetUserById(ctx, id)
}

func (u *userService) GetAllUsers(ctx context.Context) ([]model.User, error) {
	return u.store.GetAllUsers(ctx)
}

func (u *userService) RemoveUser(ctx context.Context, id string) (model.User, error) {
	return u.store.RemoveUser(ctx, id)
}

func (u *userService) AddFollower(ctx context.Context, userID string, followeeID string) (model.FollowResult, error) {
	return u.store.AddFollower(ctx, userID, followeeID)
}

func (u *userService) RemoveFollower(ctx context.Context, userID string, followeeID string) error {
	return u.store.RemoveFollower(ctx, userID, followeeID)
}

func (u *userService) AddPostToUser(ctx context.Context, userID string, postID string) (model.User, error) {
	return u.store.AddPostToUser(ctx, userID, postID)
}

func (u *userService) RemovePostFromUser(ctx context.Context, userID string, postID string) error {
	return u.store.RemovePostFromUser(ctx, userID, postID)
}

func (u *userService) AddCommentToUser(ctx context.Context, userID string, commentID string) (model.User, error) {
	return u.store.AddCommentToUser(ctx, userID, commentID)
}

func (u *userService) RemoveCommentFromUser(ctx context.Context, userID string, commentID string) error {
	return u.store.RemoveCommentFromUser(ctx, userID, commentID)
}
