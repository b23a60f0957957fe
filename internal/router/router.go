package router

import (
	"log/slog"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"Circle_Community/internal/handler"
	"Circle_Community/internal/middleware"
	"Circle_Community/internal/realtime"
	"Circle_Community/internal/service"
)

// Deps 路由需要的全部依赖，由 main 组装
type Deps struct {
	Users         *service.UserService
	Communities   *service.CommunityService
	Posts         *service.PostService
	Comments      *service.CommentService
	Votes         *service.VoteService
	Notifications *service.NotificationService
	Chats         *service.ChatService
	Realtime      *realtime.Registry

	AllowedOrigins []string
	Registry       *prometheus.Registry
	Logger         *slog.Logger
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}

func New(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(d.Logger))
	if d.Registry != nil {
		r.Use(middleware.NewMetrics(d.Registry).Handler())
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{})))
	}
	r.Use(cors.New(corsConfig(d.AllowedOrigins)))

	user := handler.NewUserHandler(d.Users, d.Logger)
	community := handler.NewCommunityHandler(d.Communities, d.Logger)
	post := handler.NewPostHandler(d.Posts, d.Comments, d.Votes, d.Logger)
	notification := handler.NewNotificationHandler(d.Notifications, d.Logger)
	chat := handler.NewChatHandler(d.Chats, d.Logger)
	auth := middleware.AuthMiddleware(d.Users)

	r.GET("/health", handler.Health)
	if d.Realtime != nil {
		r.GET("/ws", realtime.NewHandler(d.Realtime, d.Users, d.AllowedOrigins, d.Logger).Serve)
	}

	// 用户相关接口
	authGroup := r.Group("/api/auth")
	{
		authGroup.POST("/register", user.Register)
		authGroup.POST("/login", user.Login)
		authGroup.POST("/logout", auth, user.Logout)
		authGroup.GET("/me", auth, user.Me)
	}

	userGroup := r.Group("/api/users")
	userGroup.Use(auth)
	{
		userGroup.PUT("/me", user.UpdateProfile)
		userGroup.GET("/:username", user.Profile)
	}

	// 社区相关接口
	communityGroup := r.Group("/api/communities")
	communityGroup.Use(auth)
	{
		communityGroup.POST("", community.Create)
		communityGroup.GET("", community.List)
		communityGroup.GET("/r/:name", community.GetByName)
		communityGroup.GET("/:id", community.Get)
		communityGroup.DELETE("/:id", community.Delete)
		communityGroup.POST("/:id/join", community.Join)
		communityGroup.POST("/:id/leave", community.Leave)
		communityGroup.PUT("/:id/settings", community.UpdateSettings)
		communityGroup.POST("/:id/ban", community.Ban())
		communityGroup.POST("/:id/unban", community.Unban())
		communityGroup.POST("/:id/moderators", community.AddModerator())
		communityGroup.DELETE("/:id/moderators", community.RemoveModerator())
		communityGroup.GET("/:id/members", community.Members)
		communityGroup.DELETE("/:id/members/:userId", community.RemoveMember)
		communityGroup.GET("/:id/posts", community.Posts)
		communityGroup.GET("/:id/feed", post.Feed)
		communityGroup.DELETE("/:id/posts/:postId", community.DeletePost)
	}

	// 帖子、评论和投票
	postGroup := r.Group("/api/posts")
	postGroup.Use(auth)
	{
		postGroup.POST("", post.CreatePost)
		postGroup.GET("", post.ListByAuthor)
		postGroup.GET("/:id", post.GetPost)
		postGroup.DELETE("/:id", post.DeletePost)
		postGroup.PUT("/:id/upvote", post.UpvotePost())
		postGroup.PUT("/:id/downvote", post.DownvotePost())
		postGroup.POST("/:id/comments", post.CreateComment)
		postGroup.GET("/:id/comments", post.ListComments)
	}

	commentGroup := r.Group("/api/comments")
	commentGroup.Use(auth)
	{
		commentGroup.DELETE("/:id", post.DeleteComment)
		commentGroup.PUT("/:id/upvote", post.UpvoteComment())
		commentGroup.PUT("/:id/downvote", post.DownvoteComment())
	}

	// 通知与版主邀请
	notificationGroup := r.Group("/api/notifications")
	notificationGroup.Use(auth)
	{
		notificationGroup.GET("", notification.List)
		notificationGroup.GET("/unread-count", notification.UnreadCount)
		notificationGroup.POST("/mod-invite", notification.SendModInvite)
		notificationGroup.POST("/mod-message", notification.SendModMessage)
		notificationGroup.PUT("/read-all", notification.MarkAllAsRead)
		notificationGroup.PUT("/:id/respond", notification.Respond)
		notificationGroup.PUT("/:id/read", notification.MarkAsRead)
		notificationGroup.DELETE("/:id", notification.Delete)
	}

	chatGroup := r.Group("/api/chats")
	chatGroup.Use(auth)
	{
		chatGroup.POST("", chat.Open)
		chatGroup.GET("", chat.List)
		chatGroup.GET("/:id/messages", chat.Messages)
		chatGroup.POST("/:id/messages", chat.Send)
		chatGroup.PUT("/:id/read", chat.MarkRead)
	}

	return r
}
