package data

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"socialposts/pkg/events"
	"socialposts/pkg/model"
	"socialposts/pkg/storage"
	"socialposts/pkg/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel/attribute"
)

type commentInput struct {
	PostID string `json:"postId" validate:"required"`
	UserID string `json:"userId" validate:"required"`
	Text   string `json:"text" validate:"required"`
}

type CommentStoreOptions struct {
	Cache  Cache
	Events Publisher
}

// CommentStore owns the comments collection and keeps the comment lists
// of posts and authors in sync with it
type CommentStore struct {
	logger   Logger
	comments storage.Collection[model.Comment]
	cache    Cache
	events   Publisher

	Authors CommentAuthors
	Posts   CommentParents
}

func NewCommentStore(logger Logger, comments storage.Collection[model.Comment], opts CommentStoreOptions) *CommentStore {
	s := &CommentStore{
		logger:   logger,
		comments: comments,
		cache:    opts.Cache,
		events:   opts.Events,
	}
	if s.logger == nil {
		s.logger = discardLogger
	}
	if s.cache == nil {
		s.cache = nopCache{}
	}
	if s.events == nil {
		s.events = nopPublisher{}
	}
	return s
}

func commentKey(id string) string {
	return "comment:" + id
}

func (s *CommentStore) cacheComment(ctx context.Context, comment model.Comment) {
	logger := s.logger(ctx)
	data, err := json.Marshal(comment)
	if err != nil {
		logger.Warn("error converting comment to json", "comment_id", comment.ID.Hex(), "msg", err.Error())
		return
	}
	if err := s.cache.Set(commentKey(comment.ID.Hex()), data); err != nil {
		logger.Warn("error writing comment to memcached", "comment_id", comment.ID.Hex(), "msg", err.Error())
	}
}

// CreateComment stores the comment and appends its id to the author's and then the post's comments
func (s *CommentStore) CreateComment(ctx context.Context, postID string, userID string, text string) (model.Comment, error) {
	defer observe("CreateComment", time.Now())
	logger := s.logger(ctx)
	logger.Debug("entering CreateComment", "post_id", postID, "user_id", userID, "text", text)

	input := commentInput{
		PostID: strings.TrimSpace(postID),
		UserID: strings.TrimSpace(userID),
		Text:   strings.TrimSpace(text),
	}
	if err := utils.Validate(input); err != nil {
		return model.Comment{}, err
	}
	if _, err := utils.ParseId("postId", input.PostID); err != nil {
		return model.Comment{}, err
	}
	if _, err := utils.ParseId("userId", input.UserID); err != nil {
		return model.Comment{}, err
	}

	post, err := s.Posts.GetPostById(ctx, input.PostID)
	if err != nil {
		logger.Debug("comment post not found", "post_id", input.PostID, "msg", err.Error())
		return model.Comment{}, err
	}
	author, err := s.Authors.GetUserById(ctx, input.UserID)
	if err != nil {
		logger.Debug("comment author not found", "user_id", input.UserID, "msg", err.Error())
		return model.Comment{}, err
	}

	comment := model.Comment{
		PostID:    post.ID.Hex(),
		UserID:    author.ID.Hex(),
		Text:      input.Text,
		Timestamp: utils.TodayDate(),
	}
	id, err := s.comments.InsertOne(ctx, comment)
	if err != nil {
		logger.Error("error writing comment", "msg", err.Error())
		return model.Comment{}, insertErr("comment", err)
	}
	countWrite(model.COMMENTS_COLLECTION, "insert")
	traceWrite(ctx, "inserted comment", attribute.String("comment_id", id.Hex()), attribute.String("post_id", comment.PostID))

	comment, err = findByID(ctx, s.comments, "comment", id)
	if err != nil {
		logger.Error("error reading inserted comment", "comment_id", id.Hex(), "msg", err.Error())
		return model.Comment{}, err
	}

	if _, err := s.Authors.AddCommentToUser(ctx, comment.UserID, id.Hex()); err != nil {
		logger.Error("error adding comment to author", "comment_id", id.Hex(), "user_id", comment.UserID, "msg", err.Error())
		return model.Comment{}, err
	}
	if _, err := s.Posts.AddCommentToPost(ctx, comment.PostID, id.Hex()); err != nil {
		logger.Error("error adding comment to post", "comment_id", id.Hex(), "post_id", comment.PostID, "msg", err.Error())
		return model.Comment{}, err
	}

	s.cacheComment(ctx, comment)

	event := events.NewEvent(ctx, model.EVENT_COMMENT_CREATED)
	event.CommentID = id.Hex()
	event.PostID = comment.PostID
	event.UserID = comment.UserID
	publish(ctx, logger, s.events, event)
	return comment, nil
}

// GetCommentById reads through memcached
func (s *CommentStore) GetCommentById(ctx context.Context, id string) (model.Comment, error) {
	logger := s.logger(ctx)
	logger.Debug("entering GetCommentById", "comment_id", id)

	commentID, err := utils.ParseId("id", id)
	if err != nil {
		return model.Comment{}, err
	}

	data, found, err := s.cache.Get(commentKey(commentID.Hex()))
	if err != nil {
		logger.Warn("error reading comment from memcached", "comment_id", id, "msg", err.Error())
	} else if found {
		var comment model.Comment
		err := json.Unmarshal(data, &comment)
		if err == nil {
			return comment, nil
		}
		logger.Warn("error parsing comment from memcached", "comment_id", id, "msg", err.Error())
	}

	comment, err := findByID(ctx, s.comments, "comment", commentID)
	if err != nil {
		return model.Comment{}, err
	}
	s.cacheComment(ctx, comment)

	// RemoveComment deletes the document before the cache entry, so a removal
	// that raced the fill is visible here and the entry is dropped again
	_, err = findByID(ctx, s.comments, "comment", commentID)
	if errors.Is(err, model.ErrNotFound) {
		if err := s.cache.Delete(commentKey(commentID.Hex())); err != nil {
			logger.Warn("error removing comment from memcached", "comment_id", id, "msg", err.Error())
		}
		return model.Comment{}, err
	}
	if err != nil {
		return model.Comment{}, err
	}
	return comment, nil
}

// ReadComment reads the comment from the collection without touching memcached
func (s *CommentStore) ReadComment(ctx context.Context, id string) (model.Comment, error) {
	commentID, err := utils.ParseId("id", id)
	if err != nil {
		return model.Comment{}, err
	}
	return findByID(ctx, s.comments, "comment", commentID)
}

func (s *CommentStore) GetAllComments(ctx context.Context) ([]model.Comment, error) {
	logger := s.logger(ctx)
	logger.Debug("entering GetAllComments")

	comments, err := s.comments.Find(ctx, bson.D{})
	if err != nil {
		logger.Error("error reading comments from mongodb", "msg", err.Error())
		return nil, model.StoreFailure("find comments", err)
	}
	return comments, nil
}

// RemoveComment deletes the comment and pulls its id from the author and the post.
// Parents that no longer exist are skipped.
func (s *CommentStore) RemoveComment(ctx context.Context, id string) (model.Comment, error) {
	defer observe("RemoveComment", time.Now())
	logger := s.logger(ctx)
	logger.Debug("entering RemoveComment", "comment_id", id)

	commentID, err := utils.ParseId("id", id)
	if err != nil {
		return model.Comment{}, err
	}
	comment, err := findByID(ctx, s.comments, "comment", commentID)
	if err != nil {
		return model.Comment{}, err
	}

	_, err = s.comments.FindOneAndDelete(ctx, commentID)
	if err != nil {
		logger.Error("error deleting comment from mongodb", "comment_id", id, "msg", err.Error())
		return model.Comment{}, storeErr("comment", "delete", commentID, err)
	}
	countWrite(model.COMMENTS_COLLECTION, "delete")
	traceWrite(ctx, "deleted comment", attribute.String("comment_id", commentID.Hex()))

	if err := s.cache.Delete(commentKey(commentID.Hex())); err != nil {
		logger.Warn("error removing comment from memcached", "comment_id", id, "msg", err.Error())
	}

	err = s.Posts.RemoveCommentFromPost(ctx, comment.PostID, commentID.Hex())
	if errors.Is(err, model.ErrNotFound) {
		logger.Warn("post of deleted comment no longer exists", "comment_id", id, "post_id", comment.PostID)
	} else if err != nil {
		logger.Error("error removing comment from post", "comment_id", id, "post_id", comment.PostID, "msg", err.Error())
		return model.Comment{}, err
	}
	err = s.Authors.RemoveCommentFromUser(ctx, comment.UserID, commentID.Hex())
	if errors.Is(err, model.ErrNotFound) {
		logger.Warn("author of deleted comment no longer exists", "comment_id", id, "user_id", comment.UserID)
	} else if err != nil {
		logger.Error("error removing comment from author", "comment_id", id, "user_id", comment.UserID, "msg", err.Error())
		return model.Comment{}, err
	}

	event := events.NewEvent(ctx, model.EVENT_COMMENT_DELETED)
	event.CommentID = commentID.Hex()
	event.PostID = comment.PostID
	event.UserID = comment.UserID
	publish(ctx, logger, s.events, event)

	comment.Deleted = true
	return comment, nil
}

// removeWhere removes every comment whose field equals value and stops at the first failure
func (s *CommentStore) removeWhere(ctx context.Context, parent string, field string, value primitive.ObjectID) error {
	logger := s.logger(ctx)
	comments, err := s.comments.Find(ctx, bson.D{{Key: field, Value: value.Hex()}})
	if err != nil {
		logger.Error("error reading comments", field, value.Hex(), "msg", err.Error())
		return model.StoreFailure("find comments", err)
	}
	for i, comment := range comments {
		if _, err := s.RemoveComment(ctx, comment.ID.Hex()); err != nil {
			cascadeCount(parent, model.COMMENTS_COLLECTION, i)
			return err
		}
	}
	cascadeCount(parent, model.COMMENTS_COLLECTION, len(comments))
	return nil
}

func (s *CommentStore) RemoveCommentsByUserId(ctx context.Context, userID string) error {
	defer observe("RemoveCommentsByUserId", time.Now())
	s.logger(ctx).Debug("entering RemoveCommentsByUserId", "user_id", userID)

	id, err := utils.ParseId("userId", userID)
	if err != nil {
		return err
	}
	return s.removeWhere(ctx, model.USERS_COLLECTION, "userId", id)
}

func (s *CommentStore) RemoveCommentsByPostId(ctx context.Context, postID string) error {
	defer observe("RemoveCommentsByPostId", time.Now())
	s.logger(ctx).Debug("entering RemoveCommentsByPostId", "post_id", postID)

	id, err := utils.ParseId("postId", postID)
	if err != nil {
		return err
	}
	return s.removeWhere(ctx, model.POSTS_COLLECTION, "postId", id)
}
