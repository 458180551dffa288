package services

import (
	"context"

	"socialposts/pkg/data"
	"socialposts/pkg/events"
	"socialposts/pkg/model"

	"github.com/ServiceWeaver/weaver"
	"go.mongodb.org/mongo-driver/mongo"
)

type PostService interface {
	CreatePost(ctx context.Context, userID string, content string, imageURL string) (model.User, error)
	GetPostById(ctx context.Context, id string) (model.Post, error)
	GetAllPosts(ctx context.Context) ([]model.Post, error)
	GetPostsByUserId(ctx context.Context, userID string) ([]model.Post, error)
	UpdatePost(ctx context.Context, id string, content string, imageURL string) (model.Post, error)
	RemovePost(ctx context.Context, id string) (model.Post, error)
	RemovePostsByUserId(ctx context.Context, userID string) error
	AddCommentToPost(ctx context.Context, postID string, commentID string) (model.Post, error)
	RemoveCommentFromPost(ctx context.Context, postID string, commentID string) error
}

var _ weaver.NotRetriable = PostService.CreatePost
var _ weaver.NotRetriable = PostService.AddCommentToPost

type postServiceOptions struct {
	MongoDBAddr      string `toml:"mongodb_address"`
	MongoDBPort      int    `toml:"mongodb_port"`
	Database         string `toml:"database"`
	RabbitMQAddr     string `toml:"rabbitmq_address"`
	RabbitMQPort     int    `toml:"rabbitmq_port"`
	RabbitMQUsername string `toml:"rabbitmq_username"`
	RabbitMQPassword string `toml:"rabbitmq_password"`
}

type postService struct {
	weaver.Implements[PostService]
	weaver.WithConfig[postServiceOptions]
	userService    weaver.Ref[UserService]
	commentService weaver.Ref[CommentService]
	store          *data.PostStore
	mongoClient    *mongo.Client
	publisher      *events.Publisher
}

func (p *postService) Init(ctx context.Context) error {
	logger := p.Logger(ctx)
	config := p.Config()

	indexes := map[string]bool{"userId": false}
	posts, client, err := openCollection[model.Post](ctx, mongoOptions{config.MongoDBAddr, config.MongoDBPort, config.Database}, model.POSTS_COLLECTION, indexes)
	if err != nil {
		logger.Error(err.Error())
		return err
	}
	p.mongoClient = client

	p.publisher, err = openPublisher(ctx, rabbitOptions{config.RabbitMQAddr, config.RabbitMQPort, config.RabbitMQUsername, config.RabbitMQPassword})
	if err != nil {
		logger.Error(err.Error())
		return err
	}

	p.store = data.NewPostStore(p.Logger, posts, asPublisher(p.publisher))
	p.store.Owners = p.userService.Get()
	p.store.Comments = p.commentService.Get()

	logger.Info("post service running!",
		"mongodb_addr", config.MongoDBAddr, "mongodb_port", config.MongoDBPort,
		"rabbitmq_addr", config.RabbitMQAddr, "rabbitmq_port", config.RabbitMQPort,
	)
	return nil
}

func (p *postService) Shutdown(ctx context.Context) error {
	if p.publisher != nil {
		if err := p.publisher.Close(); err != nil {
			p.Logger(ctx).Warn("error closing rabbitmq publisher", "msg", err.Error())
		}
	}
	if p.mongoClient != nil {
		return p.mongoClient.Disconnect(ctx)
	}
	return nil
}

func (p *postService) CreatePost(ctx context.Context, userID string, content string, imageURL string) (model.User, error) {
	return p.store.CreatePost(ctx, userID, content, imageURL)
}

func (p *postService) GetPostById(ctx context.Context, id string) (model.Post, error) {
	return p.store.GetPostById(ctx, id)
}

func (p *postService) GetAllPosts(ctx context.Context) ([]model.Post, error) {
	return p.store.GetAllPosts(ctx)
}

func (p *postService) GetPostsByUserId(ctx context.Context, userID string) ([]model.Post, error) {
	return p.store.GetPostsByUserId(ctx, userID)
}

func (p *postService) UpdatePost(ctx context.Context, id string, content string, imageURL string) (model.Post, error) {
	return p.store.UpdatePost(ctx, id, content, imageURL)
}

func (p *postService) RemovePost(ctx context.Context, id string) (model.Post, error) {
	return p.store.RemovePost(ctx, id)
}

func (p *postService) RemovePostsByUserId(ctx context.Context, userID string) error {
	return p.store.RemovePostsByUserId(ctx, userID)
}

func (p *postService) AddCommentToPost(ctx context.Context, postID string, commentID string) (model.Post, error) {
	return p.store.AddCommentToPost(ctx, postID, commentID)
}

func (p *postService) RemoveCommentFromPost(ctx context.Context, postID string, commentID string) error {
	return p.store.RemoveCommentFromPost(ctx, postID, commentID)
}
