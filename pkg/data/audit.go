package data

import (
	"context"
	"errors"
	"fmt"

	"socialposts/pkg/model"
)

type UserReader interface {
	GetUserById(ctx context.Context, id string) (model.User, error)
}

type PostReader interface {
	GetPostById(ctx context.Context, id string) (model.Post, error)
}

// CommentReader must read the collection itself, a cached copy may outlive a deletion
type CommentReader interface {
	ReadComment(ctx context.Context, id string) (model.Comment, error)
}

// Auditor checks that the id lists agree with the documents named by an event.
// Documents removed after the event was published are not reported.
type Auditor struct {
	logger   Logger
	users    UserReader
	posts    PostReader
	comments CommentReader
}

func NewAuditor(logger Logger, users UserReader, posts PostReader, comments CommentReader) *Auditor {
	if logger == nil {
		logger = discardLogger
	}
	return &Auditor{logger: logger, users: users, posts: posts, comments: comments}
}

// exists reports whether err is nil, false for not found, and returns any other error
func exists(err error) (bool, error) {
	if err == nil {
		return true, nil
	}
	if errors.Is(err, model.ErrNotFound) {
		return false, nil
	}
	return false, err
}

// Audit returns one message per broken invariant
func (a *Auditor) Audit(ctx context.Context, event model.Event) ([]string, error) {
	logger := a.logger(ctx)
	logger.Debug("auditing event", "event_id", event.EventID, "kind", event.Kind)

	switch event.Kind {
	case model.EVENT_COMMENT_CREATED:
		return a.commentCreated(ctx, event)
	case model.EVENT_COMMENT_DELETED:
		return a.commentDeleted(ctx, event)
	case model.EVENT_POST_CREATED:
		return a.postCreated(ctx, event)
	case model.EVENT_POST_DELETED:
		return a.postDeleted(ctx, event)
	}
	return nil, nil
}

func (a *Auditor) commentCreated(ctx context.Context, event model.Event) ([]string, error) {
	_, err := a.comments.ReadComment(ctx, event.CommentID)
	found, err := exists(err)
	if err != nil || !found {
		return nil, err
	}

	var violations []string
	post, err := a.posts.GetPostById(ctx, event.PostID)
	if found, err := exists(err); err != nil {
		return nil, err
	} else if !found {
		violations = append(violations, fmt.Sprintf("post %s of comment %s does not exist", event.PostID, event.CommentID))
	} else if n := occurrences(post.Comments, event.CommentID); n != 1 {
		violations = append(violations, fmt.Sprintf("post %s lists comment %s %d times", event.PostID, event.CommentID, n))
	}

	user, err := a.users.GetUserById(ctx, event.UserID)
	if found, err := exists(err); err != nil {
		return nil, err
	} else if !found {
		violations = append(violations, fmt.Sprintf("author %s of comment %s does not exist", event.UserID, event.CommentID))
	} else if n := occurrences(user.Comments, event.CommentID); n != 1 {
		violations = append(violations, fmt.Sprintf("user %s lists comment %s %d times", event.UserID, event.CommentID, n))
	}
	return violations, nil
}

func (a *Auditor) commentDeleted(ctx context.Context, event model.Event) ([]string, error) {
	var violations []string
	_, err := a.comments.ReadComment(ctx, event.CommentID)
	found, err := exists(err)
	if err != nil {
		return nil, err
	}
	if found {
		violations = append(violations, fmt.Sprintf("deleted comment %s still exists", event.CommentID))
	}

	post, err := a.posts.GetPostById(ctx, event.PostID)
	if found, err := exists(err); err != nil {
		return nil, err
	} else if found && occurrences(post.Comments, event.CommentID) > 0 {
		violations = append(violations, fmt.Sprintf("post %s still lists deleted comment %s", event.PostID, event.CommentID))
	}

	user, err := a.users.GetUserById(ctx, event.UserID)
	if found, err := exists(err); err != nil {
		return nil, err
	} else if found && occurrences(user.Comments, event.CommentID) > 0 {
		violations = append(violations, fmt.Sprintf("user %s still lists deleted comment %s", event.UserID, event.CommentID))
	}
	return violations, nil
}

func (a *Auditor) postCreated(ctx context.Context, event model.Event) ([]string, error) {
	_, err := a.posts.GetPostById(ctx, event.PostID)
	found, err := exists(err)
	if err != nil || !found {
		return nil, err
	}

	user, err := a.users.GetUserById(ctx, event.UserID)
	if found, err := exists(err); err != nil {
		return nil, err
	} else if !found {
		return []string{fmt.Sprintf("owner %s of post %s does not exist", event.UserID, event.PostID)}, nil
	} else if n := occurrences(user.Posts, event.PostID); n != 1 {
		return []string{fmt.Sprintf("user %s lists post %s %d times", event.UserID, event.PostID, n)}, nil
	}
	return nil, nil
}

func (a *Auditor) postDeleted(ctx context.Context, event model.Event) ([]string, error) {
	var violations []string
	_, err := a.posts.GetPostById(ctx, event.PostID)
	found, err := exists(err)
	if err != nil {
		return nil, err
	}
	if found {
		violations = append(violations, fmt.Sprintf("deleted post %s still exists", event.PostID))
	}

	user, err := a.users.GetUserById(ctx, event.UserID)
	if found, err := exists(err); err != nil {
		return nil, err
	} else if found && occurrences(user.Posts, event.PostID) > 0 {
		violations = append(violations, fmt.Sprintf("user %s still lists deleted post %s", event.UserID, event.PostID))
	}
	return violations, nil
}
