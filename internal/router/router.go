package router

import (
	"github.com/gin-gonic/gin"

	"github.com/peter-abah/conecr/internal/auth"
	"github.com/peter-abah/conecr/internal/config"
	"github.com/peter-abah/conecr/internal/handler"
	"github.com/peter-abah/conecr/internal/middleware"
)

// Setup 设置路由
func Setup(
	cfg *config.Config,
	tokens *auth.TokenService,
	userHandler *handler.UserHandler,
	chatHandler *handler.ChatHandler,
	wsHandler *handler.WSHandler,
) *gin.Engine {
	// 设置 Gin 模式
	gin.SetMode(cfg.App.Mode)

	r := gin.New()

	// 全局中间件
	r.Use(gin.Recovery())
	r.Use(middleware.CORS(
		cfg.CORS.AllowedOrigins,
		cfg.CORS.AllowedMethods,
		cfg.CORS.AllowCredentials,
	))

	r.GET("/health", func(c *gin.Context) {
		c.String(200, "OK")
	})

	// API v1
	v1 := r.Group("/api/v1")
	{
		// 开发模式下的令牌签发（生产由外部认证提供方负责）
		if cfg.App.Mode == gin.DebugMode {
			tokenHandler := handler.NewTokenHandler(tokens)
			v1.POST("/auth/token", tokenHandler.IssueToken)
		}

		// 需要认证的接口
		authenticated := v1.Group("")
		authenticated.Use(middleware.TokenAuth(tokens))
		{
			// 用户接口
			authenticated.GET("/users", userHandler.ListUsers)
			authenticated.GET("/users/:uid", userHandler.GetUser)
			authenticated.POST("/users/resolve", userHandler.ResolveUsers)
			authenticated.PUT("/user/profile", userHandler.UpdateProfile)

			// 会话接口
			chats := authenticated.Group("/chats")
			{
				chats.POST("/private", chatHandler.CreatePrivate)
				chats.POST("/group", chatHandler.CreateGroup)
				chats.GET("/:id", chatHandler.GetChat)
				chats.DELETE("/:id", chatHandler.DeleteChat)
				chats.POST("/:id/members", chatHandler.AddMembers)
				chats.DELETE("/:id/members/:uid", chatHandler.RemoveMember)
				chats.POST("/:id/messages", chatHandler.SendMessage)
				chats.GET("/:id/messages", chatHandler.ListMessages)
			}

			// 实时推送
			authenticated.GET("/ws/chats", wsHandler.StreamChats)
		}
	}

	return r
}
