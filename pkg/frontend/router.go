package frontend

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"socialposts/pkg/model"
	"socialposts/pkg/services"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type handlers struct {
	logger   func(context.Context) *slog.Logger
	users    services.UserService
	posts    services.PostService
	comments services.CommentService
}

type createUserRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	Age       int    `json:"age"`
	Password  string `json:"password"`
}

type followRequest struct {
	FolloweeID string `json:"followeeId"`
}

type createPostRequest struct {
	UserID   string `json:"userId"`
	Content  string `json:"content"`
	ImageURL string `json:"imageUrl"`
}

type updatePostRequest struct {
	Content  string `json:"content"`
	ImageURL string `json:"imageUrl"`
}

type createCommentRequest struct {
	PostID string `json:"postId"`
	UserID string `json:"userId"`
	Text   string `json:"text"`
}

// NewRouter exposes the three services over http
func NewRouter(logger func(context.Context) *slog.Logger, users services.UserService, posts services.PostService, comments services.CommentService) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	h := &handlers{logger: logger, users: users, posts: posts, comments: comments}

	router.POST("/users", h.createUser)
	router.GET("/users", h.getAllUsers)
	router.GET("/users/:id", h.getUser)
	router.DELETE("/users/:id", h.removeUser)
	router.GET("/users/:id/posts", h.getPostsByUser)
	router.POST("/users/:id/following", h.follow)
	router.DELETE("/users/:id/following/:followeeId", h.unfollow)

	router.POST("/posts", h.createPost)
	router.GET("/posts", h.getAllPosts)
	router.GET("/posts/:id", h.getPost)
	router.PUT("/posts/:id", h.updatePost)
	router.DELETE("/posts/:id", h.removePost)

	router.POST("/comments", h.createComment)
	router.GET("/comments", h.getAllComments)
	router.GET("/comments/:id", h.getComment)
	router.DELETE("/comments/:id", h.removeComment)
	return router
}

func requestLogger(logger func(context.Context) *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		ctx := c.Request.Context()
		trace.SpanFromContext(ctx).AddEvent("handling http request",
			trace.WithAttributes(
				attribute.String("method", c.Request.Method),
				attribute.String("route", c.FullPath()),
			))
		c.Next()
		logger(ctx).Debug("handled request", "method", c.Request.Method, "route", c.FullPath(),
			"status", c.Writer.Status(), "duration_ms", time.Since(start).Milliseconds())
	}
}

func statusOf(err error) int {
	switch model.KindOf(err) {
	case model.KindValidation:
		return http.StatusBadRequest
	case model.KindNotFound:
		return http.StatusNotFound
	case model.KindConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func (h *handlers) fail(c *gin.Context, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		h.logger(c.Request.Context()).Error("request failed", "route", c.FullPath(), "msg", err.Error())
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func (h *handlers) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return false
	}
	return true
}

// the password hash never leaves the api
func public(user model.User) model.User {
	user.Password = ""
	return user
}

func publicAll(users []model.User) []model.User {
	out := make([]model.User, 0, len(users))
	for _, user := range users {
		out = append(out, public(user))
	}
	return out
}

func (h *handlers) createUser(c *gin.Context) {
	var req createUserRequest
	if !h.bind(c, &req) {
		return
	}
	user, err := h.users.CreateUser(c.Request.Context(), req.FirstName, req.LastName, req.Email, req.Username, req.Age, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, public(user))
}

func (h *handlers) getAllUsers(c *gin.Context) {
	users, err := h.users.GetAllUsers(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, publicAll(users))
}

func (h *handlers) getUser(c *gin.Context) {
	user, err := h.users.GetUserById(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, public(user))
}

func (h *handlers) removeUser(c *gin.Context) {
	user, err := h.users.RemoveUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, public(user))
}

func (h *handlers) getPostsByUser(c *gin.Context) {
	posts, err := h.posts.GetPostsByUserId(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, posts)
}

func (h *handlers) follow(c *gin.Context) {
	var req followRequest
	if !h.bind(c, &req) {
		return
	}
	result, err := h.users.AddFollower(c.Request.Context(), c.Param("id"), req.FolloweeID)
	if err != nil {
		h.fail(c, err)
		return
	}
	result.UserFollowing = public(result.UserFollowing)
	result.UserFollowed = public(result.UserFollowed)
	c.JSON(http.StatusOK, result)
}

func (h *handlers) unfollow(c *gin.Context) {
	err := h.users.RemoveFollower(c.Request.Context(), c.Param("id"), c.Param("followeeId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) createPost(c *gin.Context) {
	var req createPostRequest
	if !h.bind(c, &req) {
		return
	}
	owner, err := h.posts.CreatePost(c.Request.Context(), req.UserID, req.Content, req.ImageURL)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, public(owner))
}

func (h *handlers) getAllPosts(c *gin.Context) {
	posts, err := h.posts.GetAllPosts(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, posts)
}

func (h *handlers) getPost(c *gin.Context) {
	post, err := h.posts.GetPostById(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *handlers) updatePost(c *gin.Context) {
	var req updatePostRequest
	if !h.bind(c, &req) {
		return
	}
	post, err := h.posts.UpdatePost(c.Request.Context(), c.Param("id"), req.Content, req.ImageURL)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *handlers) removePost(c *gin.Context) {
	post, err := h.posts.RemovePost(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *handlers) createComment(c *gin.Context) {
	var req createCommentRequest
	if !h.bind(c, &req) {
		return
	}
	comment, err := h.comments.CreateComment(c.Request.Context(), req.PostID, req.UserID, req.Text)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

func (h *handlers) getAllComments(c *gin.Context) {
	comments, err := h.comments.GetAllComments(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, comments)
}

func (h *handlers) getComment(c *gin.Context) {
	comment, err := h.comments.GetCommentById(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, comment)
}

func (h *handlers) removeComment(c *gin.Context) {
	comment, err := h.comments.RemoveComment(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, comment)
}
