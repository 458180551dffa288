package data

import (
	"context"
	"errors"
	"strings"
	"time"

	"socialposts/pkg/events"
	"socialposts/pkg/model"
	"socialposts/pkg/storage"
	"socialposts/pkg/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.opentelemetry.io/otel/attribute"
)

type postInput struct {
	UserID  string `json:"userId" validate:"required"`
	Content string `json:"content" validate:"required"`
}

// PostStore owns the posts collection and the comment lists embedded in posts
type PostStore struct {
	logger Logger
	posts  storage.Collection[model.Post]
	events Publisher

	Owners   PostOwners
	Comments CommentsByPost
}

func NewPostStore(logger Logger, posts storage.Collection[model.Post], publisher Publisher) *PostStore {
	s := &PostStore{
		logger: logger,
		posts:  posts,
		events: publisher,
	}
	if s.logger == nil {
		s.logger = discardLogger
	}
	if s.events == nil {
		s.events = nopPublisher{}
	}
	return s
}

// imageURL keeps the empty string as "no image" and rejects blank urls
func imageURL(url string) (string, error) {
	if url == "" {
		return "", nil
	}
	url = strings.TrimSpace(url)
	if url == "" {
		return "", model.Validation("imageUrl must not be blank")
	}
	return url, nil
}

// CreatePost stores the post and appends it to the owner's posts.
// It returns the updated owner, not the post.
func (s *PostStore) CreatePost(ctx context.Context, userID string, content string, imageUrl string) (model.User, error) {
	defer observe("CreatePost", time.Now())
	logger := s.logger(ctx)
	logger.Debug("entering CreatePost", "user_id", userID, "content", content, "image_url", imageUrl)

	input := postInput{
		UserID:  strings.TrimSpace(userID),
		Content: strings.TrimSpace(content),
	}
	if err := utils.Validate(input); err != nil {
		return model.User{}, err
	}
	image, err := imageURL(imageUrl)
	if err != nil {
		return model.User{}, err
	}
	if _, err := utils.ParseId("userId", input.UserID); err != nil {
		return model.User{}, err
	}

	owner, err := s.Owners.GetUserById(ctx, input.UserID)
	if err != nil {
		logger.Debug("post owner not found", "user_id", input.UserID, "msg", err.Error())
		return model.User{}, err
	}

	post := model.Post{
		UserID:    owner.ID.Hex(),
		Content:   input.Content,
		ImageURL:  image,
		Timestamp: utils.TodayDate(),
		Comments:  []string{},
		Likes:     []string{},
		Dislikes:  []string{},
	}
	id, err := s.posts.InsertOne(ctx, post)
	if err != nil {
		logger.Error("error writing post", "msg", err.Error())
		return model.User{}, insertErr("post", err)
	}
	countWrite(model.POSTS_COLLECTION, "insert")
	traceWrite(ctx, "inserted post", attribute.String("post_id", id.Hex()), attribute.String("user_id", post.UserID))

	owner, err = s.Owners.AddPostToUser(ctx, post.UserID, id.Hex())
	if err != nil {
		logger.Error("error adding post to owner", "post_id", id.Hex(), "user_id", post.UserID, "msg", err.Error())
		return model.User{}, err
	}

	event := events.NewEvent(ctx, model.EVENT_POST_CREATED)
	event.PostID = id.Hex()
	event.UserID = post.UserID
	publish(ctx, logger, s.events, event)
	return owner, nil
}

func (s *PostStore) GetPostById(ctx context.Context, id string) (model.Post, error) {
	logger := s.logger(ctx)
	logger.Debug("entering GetPostById", "post_id", id)

	postID, err := utils.ParseId("id", id)
	if err != nil {
		return model.Post{}, err
	}
	return findByID(ctx, s.posts, "post", postID)
}

func (s *PostStore) GetAllPosts(ctx context.Context) ([]model.Post, error) {
	logger := s.logger(ctx)
	logger.Debug("entering GetAllPosts")

	posts, err := s.posts.Find(ctx, bson.D{})
	if err != nil {
		logger.Error("error reading posts from mongodb", "msg", err.Error())
		return nil, model.StoreFailure("find posts", err)
	}
	return posts, nil
}

// GetPostsByUserId follows the user's posts list and fails if any referenced post is missing
func (s *PostStore) GetPostsByUserId(ctx context.Context, userID string) ([]model.Post, error) {
	logger := s.logger(ctx)
	logger.Debug("entering GetPostsByUserId", "user_id", userID)

	user, err := s.Owners.GetUserById(ctx, userID)
	if err != nil {
		return nil, err
	}
	posts := make([]model.Post, 0, len(user.Posts))
	for _, postID := range user.Posts {
		post, err := s.GetPostById(ctx, postID)
		if err != nil {
			logger.Debug("post in user list could not be read", "user_id", userID, "post_id", postID, "msg", err.Error())
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, nil
}

func (s *PostStore) UpdatePost(ctx context.Context, id string, content string, imageUrl string) (model.Post, error) {
	defer observe("UpdatePost", time.Now())
	logger := s.logger(ctx)
	logger.Debug("entering UpdatePost", "post_id", id, "content", content, "image_url", imageUrl)

	postID, err := utils.ParseId("id", id)
	if err != nil {
		return model.Post{}, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return model.Post{}, model.Validation("content is required")
	}
	image, err := imageURL(imageUrl)
	if err != nil {
		return model.Post{}, err
	}

	fields := bson.D{
		{Key: "content", Value: content},
		{Key: "imageUrl", Value: image},
	}
	if err := s.posts.Set(ctx, postID, fields); err != nil {
		logger.Error("error updating post", "post_id", id, "msg", err.Error())
		return model.Post{}, storeErr("post", "update", postID, err)
	}
	countWrite(model.POSTS_COLLECTION, "set")
	traceWrite(ctx, "updated post", attribute.String("post_id", postID.Hex()))

	post, err := findByID(ctx, s.posts, "post", postID)
	if err != nil {
		return model.Post{}, err
	}

	event := events.NewEvent(ctx, model.EVENT_POST_UPDATED)
	event.PostID = post.ID.Hex()
	event.UserID = post.UserID
	publish(ctx, logger, s.events, event)
	return post, nil
}

// RemovePost deletes the post's comments, the post, and its id from the owner's posts
func (s *PostStore) RemovePost(ctx context.Context, id string) (model.Post, error) {
	defer observe("RemovePost", time.Now())
	logger := s.logger(ctx)
	logger.Debug("entering RemovePost", "post_id", id)

	post, err := s.GetPostById(ctx, id)
	if err != nil {
		return model.Post{}, err
	}
	postID := post.ID.Hex()

	if s.Comments != nil {
		if err := s.Comments.RemoveCommentsByPostId(ctx, postID); err != nil {
			logger.Error("error removing comments of post", "post_id", postID, "msg", err.Error())
			return model.Post{}, err
		}
	}

	_, err = s.posts.FindOneAndDelete(ctx, post.ID)
	if err != nil {
		logger.Error("error deleting post from mongodb", "post_id", postID, "msg", err.Error())
		return model.Post{}, storeErr("post", "delete", post.ID, err)
	}
	countWrite(model.POSTS_COLLECTION, "delete")
	traceWrite(ctx, "deleted post", attribute.String("post_id", postID))

	err = s.Owners.RemovePostFromUser(ctx, post.UserID, postID)
	if errors.Is(err, model.ErrNotFound) {
		logger.Warn("owner of deleted post no longer exists", "post_id", postID, "user_id", post.UserID)
	} else if err != nil {
		logger.Error("error removing post from owner", "post_id", postID, "user_id", post.UserID, "msg", err.Error())
		return model.Post{}, err
	}

	event := events.NewEvent(ctx, model.EVENT_POST_DELETED)
	event.PostID = postID
	event.UserID = post.UserID
	publish(ctx, logger, s.events, event)

	post.Deleted = true
	return post, nil
}

// RemovePostsByUserId removes every post owned by userID. It keeps going when a post fails
// and returns all failures joined.
func (s *PostStore) RemovePostsByUserId(ctx context.Context, userID string) error {
	defer observe("RemovePostsByUserId", time.Now())
	logger := s.logger(ctx)
	logger.Debug("entering RemovePostsByUserId", "user_id", userID)

	id, err := utils.ParseId("userId", userID)
	if err != nil {
		return err
	}
	posts, err := s.posts.Find(ctx, bson.D{{Key: "userId", Value: id.Hex()}})
	if err != nil {
		logger.Error("error reading posts of user", "user_id", userID, "msg", err.Error())
		return model.StoreFailure("find posts", err)
	}

	var errs []error
	removed := 0
	for _, post := range posts {
		_, err := s.RemovePost(ctx, post.ID.Hex())
		if err != nil {
			logger.Warn("error removing post of user", "user_id", userID, "post_id", post.ID.Hex(), "msg", err.Error())
			errs = append(errs, err)
			continue
		}
		removed++
	}
	cascadeCount(model.USERS_COLLECTION, model.POSTS_COLLECTION, removed)
	return errors.Join(errs...)
}

func (s *PostStore) AddCommentToPost(ctx context.Context, postID string, commentID string) (model.Post, error) {
	logger := s.logger(ctx)
	logger.Debug("entering AddCommentToPost", "post_id", postID, "comment_id", commentID)

	id, err := utils.ParseId("postId", postID)
	if err != nil {
		return model.Post{}, err
	}
	if err := s.posts.Push(ctx, id, "comments", commentID); err != nil {
		logger.Error("error adding comment to post", "post_id", postID, "msg", err.Error())
		return model.Post{}, storeErr("post", "push comments", id, err)
	}
	countWrite(model.POSTS_COLLECTION, "push")
	return findByID(ctx, s.posts, "post", id)
}

func (s *PostStore) RemoveCommentFromPost(ctx context.Context, postID string, commentID string) error {
	logger := s.logger(ctx)
	logger.Debug("entering RemoveCommentFromPost", "post_id", postID, "comment_id", commentID)

	id, err := utils.ParseId("postId", postID)
	if err != nil {
		return err
	}
	if err := s.posts.Pull(ctx, id, "comments", commentID); err != nil {
		return storeErr("post", "pull comments", id, err)
	}
	countWrite(model.POSTS_COLLECTION, "pull")
	return nil
}
