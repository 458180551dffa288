package frontend

import (
	"context"
	"net/http"

	"socialposts/pkg/services"

	"github.com/ServiceWeaver/weaver"
)

type server struct {
	weaver.Implements[weaver.Main]
	userService    weaver.Ref[services.UserService]
	postService    weaver.Ref[services.PostService]
	commentService weaver.Ref[services.CommentService]
	_              weaver.Ref[services.ConsistencyService]
	lis            weaver.Listener `weaver:"api"`
}

func Serve(ctx context.Context, s *server) error {
	router := NewRouter(s.Logger, s.userService.Get(), s.postService.Get(), s.commentService.Get())
	handler := weaver.InstrumentHandler("api", router)
	s.Logger(ctx).Info("socialposts api available", "addr", s.lis)
	return http.Serve(s.lis, handler)
}
