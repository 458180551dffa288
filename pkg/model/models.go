package model

import (
	sn_trace "socialposts/pkg/trace"

	"github.com/ServiceWeaver/weaver"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// collection names
const (
	USERS_COLLECTION    = "users"
	POSTS_COLLECTION    = "posts"
	COMMENTS_COLLECTION = "comments"
)

type User struct {
	// make user serializable across components
	weaver.AutoMarshal `bson:"-" json:"-"`
	ID                 primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	FirstName          string             `json:"firstName" bson:"firstName"`
	LastName           string             `json:"lastName" bson:"lastName"`
	Email              string             `json:"email" bson:"email"`
	Username           string             `json:"username" bson:"username"`
	Age                int                `json:"age" bson:"age"`
	Password           string             `json:"password,omitempty" bson:"password"`
	Followers          []string           `json:"followers" bson:"followers"`
	Following          []string           `json:"following" bson:"following"`
	Posts              []string           `json:"posts" bson:"posts"`
	Comments           []string           `json:"comments" bson:"comments"`
	Deleted            bool               `json:"deleted,omitempty" bson:"-"`
}

type Post struct {
	weaver.AutoMarshal `bson:"-" json:"-"`
	ID                 primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	UserID             string             `json:"userId" bson:"userId"`
	Content            string             `json:"content" bson:"content"`
	ImageURL           string             `json:"imageUrl,omitempty" bson:"imageUrl,omitempty"`
	Timestamp          string             `json:"timestamp" bson:"timestamp"`
	Comments           []string           `json:"comments" bson:"comments"`
	Likes              []string           `json:"likes" bson:"likes"`
	Dislikes           []string           `json:"dislikes" bson:"dislikes"`
	Deleted            bool               `json:"deleted,omitempty" bson:"-"`
}

type Comment struct {
	weaver.AutoMarshal `bson:"-" json:"-"`
	ID                 primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	PostID             string             `json:"postId" bson:"postId"`
	UserID             string             `json:"userId" bson:"userId"`
	Text               string             `json:"text" bson:"text"`
	Timestamp          string             `json:"timestamp" bson:"timestamp"`
	Deleted            bool               `json:"deleted,omitempty" bson:"-"`
}

// FollowResult holds both sides of a follow edge after it was written
type FollowResult struct {
	weaver.AutoMarshal
	UserFollowing User `json:"userFollowing"`
	UserFollowed  User `json:"userFollowed"`
}

type EventKind string

const (
	EVENT_USER_CREATED    EventKind = "user.created"
	EVENT_USER_DELETED    EventKind = "user.deleted"
	EVENT_USER_FOLLOWED   EventKind = "user.followed"
	EVENT_USER_UNFOLLOWED EventKind = "user.unfollowed"
	EVENT_POST_CREATED    EventKind = "post.created"
	EVENT_POST_UPDATED    EventKind = "post.updated"
	EVENT_POST_DELETED    EventKind = "post.deleted"
	EVENT_COMMENT_CREATED EventKind = "comment.created"
	EVENT_COMMENT_DELETED EventKind = "comment.deleted"
)

// Event is published to rabbitmq after every write that touches an id list
type Event struct {
	EventID      string               `json:"event_id"`
	Kind         EventKind            `json:"kind"`
	UserID       string               `json:"user_id,omitempty"`
	TargetUserID string               `json:"target_user_id,omitempty"`
	PostID       string               `json:"post_id,omitempty"`
	CommentID    string               `json:"comment_id,omitempty"`
	Timestamp    int64                `json:"timestamp"`
	SpanContext  sn_trace.SpanContext `json:"span_context"`
}
