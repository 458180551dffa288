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
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.opentelemetry.io/otel/attribute"
)

type userInput struct {
	FirstName string `json:"firstName" validate:"required,alphaspace"`
	LastName  string `json:"lastName" validate:"required,alphaspace"`
	Email     string `json:"email" validate:"required,emailpattern"`
	Username  string `json:"username" validate:"required"`
	Age       int    `json:"age" validate:"gte=18,lte=100"`
	Password  string `json:"password" validate:"required"`
}

type UserStoreOptions struct {
	Index  UsernameIndex
	Events Publisher
	// bcrypt cost, 0 for the default
	HashCost int
}

// UserStore owns the users collection and the id lists embedded in user documents
type UserStore struct {
	logger   Logger
	users    storage.Collection[model.User]
	index    UsernameIndex
	events   Publisher
	hashCost int

	Posts    PostsByUser
	Comments CommentsByUser
}

func NewUserStore(logger Logger, users storage.Collection[model.User], opts UserStoreOptions) *UserStore {
	s := &UserStore{
		logger:   logger,
		users:    users,
		index:    opts.Index,
		events:   opts.Events,
		hashCost: opts.HashCost,
	}
	if s.logger == nil {
		s.logger = discardLogger
	}
	if s.index == nil {
		s.index = nopIndex{}
	}
	if s.events == nil {
		s.events = nopPublisher{}
	}
	return s
}

// usernameTaken checks the username index first and falls back to the collection
func (s *UserStore) usernameTaken(ctx context.Context, username string) (bool, error) {
	logger := s.logger(ctx)

	userID, found, err := s.index.Lookup(ctx, username)
	if err != nil {
		// the collection is authoritative, keep going without the index
		logger.Warn("error reading username index", "username", username, "msg", err.Error())
	} else if found {
		id, err := primitive.ObjectIDFromHex(userID)
		if err == nil {
			_, err = s.users.FindOne(ctx, id)
			if err == nil {
				return true, nil
			}
			if !errors.Is(err, mongo.ErrNoDocuments) {
				return false, model.StoreFailure("find user", err)
			}
		}
		logger.Debug("dropping stale username index entry", "username", username, "user_id", userID)
		s.index.Forget(ctx, username)
	}

	existing, err := s.users.Find(ctx, bson.D{{Key: "username", Value: username}})
	if err != nil {
		logger.Error("error finding user in mongodb", "msg", err.Error())
		return false, model.StoreFailure("find user", err)
	}
	if len(existing) == 0 {
		return false, nil
	}
	if err := s.index.Remember(ctx, username, existing[0].ID.Hex()); err != nil {
		logger.Warn("error writing username index", "username", username, "msg", err.Error())
	}
	return true, nil
}

func (s *UserStore) CreateUser(ctx context.Context, firstName string, lastName string, email string, username string, age int, password string) (model.User, error) {
	defer observe("CreateUser", time.Now())
	logger := s.logger(ctx)
	logger.Debug("entering CreateUser", "first_name", firstName, "last_name", lastName, "email", email, "username", username, "age", age)

	input := userInput{
		FirstName: strings.TrimSpace(firstName),
		LastName:  strings.TrimSpace(lastName),
		Email:     strings.TrimSpace(email),
		Username:  strings.TrimSpace(username),
		Age:       age,
		Password:  strings.TrimSpace(password),
	}
	if err := utils.Validate(input); err != nil {
		logger.Debug("invalid user", "msg", err.Error())
		return model.User{}, err
	}

	taken, err := s.usernameTaken(ctx, input.Username)
	if err != nil {
		return model.User{}, err
	}
	if taken {
		logger.Debug("username already registered", "username", input.Username)
		return model.User{}, model.Conflict("username %s already registered", input.Username)
	}

	hashed, err := utils.HashPassword(input.Password, s.hashCost)
	if err != nil {
		logger.Error("error hashing password", "msg", err.Error())
		return model.User{}, model.StoreFailure("hash password", err)
	}

	user := model.User{
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Email:     input.Email,
		Username:  input.Username,
		Age:       input.Age,
		Password:  hashed,
		Followers: []string{},
		Following: []string{},
		Posts:     []string{},
		Comments:  []string{},
	}
	id, err := s.users.InsertOne(ctx, user)
	if err != nil {
		logger.Error("error inserting new user in mongodb", "msg", err.Error())
		if mongo.IsDuplicateKeyError(err) {
			return model.User{}, model.Conflict("username %s already registered", input.Username)
		}
		return model.User{}, model.StoreFailure("insert user", err)
	}
	countWrite(model.USERS_COLLECTION, "insert")
	traceWrite(ctx, "inserted user", attribute.String("user_id", id.Hex()))

	if err := s.index.Remember(ctx, input.Username, id.Hex()); err != nil {
		logger.Warn("error writing username index", "username", input.Username, "msg", err.Error())
	}

	event := events.NewEvent(ctx, model.EVENT_USER_CREATED)
	event.UserID = id.Hex()
	publish(ctx, logger, s.events, event)

	return s.GetUserById(ctx, id.Hex())
}

func (s *UserStore) GetUserById(ctx context.Context, id string) (model.User, error) {
	logger := s.logger(ctx)
	logger.Debug("entering GetUserById", "user_id", id)

	userID, err := utils.ParseId("id", id)
	if err != nil {
		return model.User{}, err
	}
	return findByID(ctx, s.users, "user", userID)
}

func (s *UserStore) GetAllUsers(ctx context.Context) ([]model.User, error) {
	logger := s.logger(ctx)
	logger.Debug("entering GetAllUsers")

	users, err := s.users.Find(ctx, bson.D{})
	if err != nil {
		logger.Error("error reading users from mongodb", "msg", err.Error())
		return nil, model.StoreFailure("find users", err)
	}
	return users, nil
}

// unlink pulls userID from the follow lists of everyone connected to user
func (s *UserStore) unlink(ctx context.Context, user model.User) error {
	logger := s.logger(ctx)
	userID := user.ID.Hex()

	edges := []struct {
		ids   []string
		field string
	}{
		{user.Followers, "following"},
		{user.Following, "followers"},
	}
	for _, edge := range edges {
		for _, otherID := range edge.ids {
			other, err := primitive.ObjectIDFromHex(otherID)
			if err != nil {
				logger.Warn("skipping malformed user id in follow list", "user_id", userID, "other_id", otherID)
				continue
			}
			err = s.users.Pull(ctx, other, edge.field, userID)
			if errors.Is(err, mongo.ErrNoDocuments) {
				logger.Debug("user in follow list no longer exists", "other_id", otherID)
				continue
			}
			if err != nil {
				logger.Error("error unlinking user", "other_id", otherID, "field", edge.field, "msg", err.Error())
				return model.StoreFailure("unlink user", err)
			}
			countWrite(model.USERS_COLLECTION, "pull")
		}
	}
	return nil
}

// RemoveUser deletes the user's posts, comments and follow edges before the user itself.
// A failing cascade step aborts the removal and leaves the user in place.
func (s *UserStore) RemoveUser(ctx context.Context, id string) (model.User, error) {
	defer observe("RemoveUser", time.Now())
	logger := s.logger(ctx)
	logger.Debug("entering RemoveUser", "user_id", id)

	user, err := s.GetUserById(ctx, id)
	if err != nil {
		return model.User{}, err
	}
	userID := user.ID.Hex()

	if s.Posts != nil {
		if err := s.Posts.RemovePostsByUserId(ctx, userID); err != nil {
			logger.Error("error removing posts of user", "user_id", userID, "msg", err.Error())
			return model.User{}, err
		}
	} else {
		logger.Warn("posts are not wired, skipping post removal", "user_id", userID)
	}
	if s.Comments != nil {
		if err := s.Comments.RemoveCommentsByUserId(ctx, userID); err != nil {
			logger.Error("error removing comments of user", "user_id", userID, "msg", err.Error())
			return model.User{}, err
		}
	} else {
		logger.Warn("comments are not wired, skipping comment removal", "user_id", userID)
	}

	if err := s.unlink(ctx, user); err != nil {
		return model.User{}, err
	}

	_, err = s.users.FindOneAndDelete(ctx, user.ID)
	if err != nil {
		logger.Error("error deleting user from mongodb", "user_id", userID, "msg", err.Error())
		return model.User{}, storeErr("user", "delete", user.ID, err)
	}
	countWrite(model.USERS_COLLECTION, "delete")
	traceWrite(ctx, "deleted user", attribute.String("user_id", userID))

	if err := s.index.Forget(ctx, user.Username); err != nil {
		logger.Warn("error removing username from index", "username", user.Username, "msg", err.Error())
	}

	event := events.NewEvent(ctx, model.EVENT_USER_DELETED)
	event.UserID = userID
	publish(ctx, logger, s.events, event)

	user.Deleted = true
	return user, nil
}

func (s *UserStore) resolvePair(ctx context.Context, userID string, followeeID string) (model.User, model.User, error) {
	uid, err := utils.ParseId("userId", userID)
	if err != nil {
		return model.User{}, model.User{}, err
	}
	fid, err := utils.ParseId("followeeId", followeeID)
	if err != nil {
		return model.User{}, model.User{}, err
	}
	user, err := findByID(ctx, s.users, "user", uid)
	if err != nil {
		return model.User{}, model.User{}, err
	}
	followee, err := findByID(ctx, s.users, "user", fid)
	if err != nil {
		return model.User{}, model.User{}, err
	}
	return user, followee, nil
}

// AddFollower makes userID follow followeeID. Repeated calls append the ids again.
func (s *UserStore) AddFollower(ctx context.Context, userID string, followeeID string) (model.FollowResult, error) {
	defer observe("AddFollower", time.Now())
	logger := s.logger(ctx)
	logger.Debug("entering AddFollower", "user_id", userID, "followee_id", followeeID)

	user, followee, err := s.resolvePair(ctx, userID, followeeID)
	if err != nil {
		return model.FollowResult{}, err
	}

	if err := s.users.Push(ctx, user.ID, "following", followee.ID.Hex()); err != nil {
		logger.Error("error updating following list", "user_id", user.ID.Hex(), "msg", err.Error())
		return model.FollowResult{}, storeErr("user", "push following", user.ID, err)
	}
	countWrite(model.USERS_COLLECTION, "push")
	if err := s.users.Push(ctx, followee.ID, "followers", user.ID.Hex()); err != nil {
		logger.Error("error updating followers list", "user_id", followee.ID.Hex(), "msg", err.Error())
		return model.FollowResult{}, storeErr("user", "push followers", followee.ID, err)
	}
	countWrite(model.USERS_COLLECTION, "push")
	traceWrite(ctx, "followed user", attribute.String("user_id", user.ID.Hex()), attribute.String("followee_id", followee.ID.Hex()))

	event := events.NewEvent(ctx, model.EVENT_USER_FOLLOWED)
	event.UserID = user.ID.Hex()
	event.TargetUserID = followee.ID.Hex()
	publish(ctx, logger, s.events, event)

	var result model.FollowResult
	result.UserFollowing, err = findByID(ctx, s.users, "user", user.ID)
	if err != nil {
		return model.FollowResult{}, err
	}
	result.UserFollowed, err = findByID(ctx, s.users, "user", followee.ID)
	if err != nil {
		return model.FollowResult{}, err
	}
	return result, nil
}

func (s *UserStore) RemoveFollower(ctx context.Context, userID string, followeeID string) error {
	defer observe("RemoveFollower", time.Now())
	logger := s.logger(ctx)
	logger.Debug("entering RemoveFollower", "user_id", userID, "followee_id", followeeID)

	user, followee, err := s.resolvePair(ctx, userID, followeeID)
	if err != nil {
		return err
	}

	if err := s.users.Pull(ctx, user.ID, "following", followee.ID.Hex()); err != nil {
		logger.Error("error updating following list", "user_id", user.ID.Hex(), "msg", err.Error())
		return storeErr("user", "pull following", user.ID, err)
	}
	countWrite(model.USERS_COLLECTION, "pull")
	if err := s.users.Pull(ctx, followee.ID, "followers", user.ID.Hex()); err != nil {
		logger.Error("error updating followers list", "user_id", followee.ID.Hex(), "msg", err.Error())
		return storeErr("user", "pull followers", followee.ID, err)
	}
	countWrite(model.USERS_COLLECTION, "pull")

	event := events.NewEvent(ctx, model.EVENT_USER_UNFOLLOWED)
	event.UserID = user.ID.Hex()
	event.TargetUserID = followee.ID.Hex()
	publish(ctx, logger, s.events, event)
	return nil
}

func (s *UserStore) push(ctx context.Context, userID string, field string, value string) (model.User, error) {
	logger := s.logger(ctx)
	id, err := utils.ParseId("userId", userID)
	if err != nil {
		return model.User{}, err
	}
	if err := s.users.Push(ctx, id, field, value); err != nil {
		logger.Error("error updating user list", "user_id", userID, "field", field, "msg", err.Error())
		return model.User{}, storeErr("user", "push "+field, id, err)
	}
	countWrite(model.USERS_COLLECTION, "push")
	return findByID(ctx, s.users, "user", id)
}

func (s *UserStore) pull(ctx context.Context, userID string, field string, value string) error {
	logger := s.logger(ctx)
	id, err := utils.ParseId("userId", userID)
	if err != nil {
		return err
	}
	if err := s.users.Pull(ctx, id, field, value); err != nil {
		logger.Debug("error updating user list", "user_id", userID, "field", field, "msg", err.Error())
		return storeErr("user", "pull "+field, id, err)
	}
	countWrite(model.USERS_COLLECTION, "pull")
	return nil
}

func (s *UserStore) AddPostToUser(ctx context.Context, userID string, postID string) (model.User, error) {
	s.logger(ctx).Debug("entering AddPostToUser", "user_id", userID, "post_id", postID)
	return s.push(ctx, userID, "posts", postID)
}

func (s *UserStore) RemovePostFromUser(ctx context.Context, userID string, postID string) error {
	s.logger(ctx).Debug("entering RemovePostFromUser", "user_id", userID, "post_id", postID)
	return s.pull(ctx, userID, "posts", postID)
}

func (s *UserStore) AddCommentToUser(ctx context.Context, userID string, commentID string) (model.User, error) {
	s.logger(ctx).Debug("entering AddCommentToUser", "user_id", userID, "comment_id", commentID)
	return s.push(ctx, userID, "comments", commentID)
}

func (s *UserStore) RemoveCommentFromUser(ctx context.Context, userID string, commentID string) error {
	s.logger(ctx).Debug("entering RemoveCommentFromUser", "user_id", userID, "comment_id", commentID)
	return s.pull(ctx, userID, "comments", commentID)
}
