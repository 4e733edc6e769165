package router

import (
	"Lee_Meet/internal/handler"
	"Lee_Meet/internal/middleware"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	User      *handler.UserHandler
	Community *handler.CommunityHandler
	Room      *handler.RoomHandler
	Request   *handler.RequestHandler
	Bootstrap *handler.BootstrapHandler
}

func InitRouter(h Handlers) *gin.Engine {
	r := gin.Default()

	// 用户相关接口
	userGroup := r.Group("/api/user")
	{
		userGroup.POST("/register", h.User.Register)
		userGroup.POST("/login", h.User.Login)
	}

	// token相关接口
	tokenGroup := r.Group("/api/token")
	{
		tokenGroup.POST("/refresh", h.User.TokenRefresh)
	}

	// 登录态接口
	authGroup := r.Group("/api/auth")
	authGroup.Use(middleware.AuthMiddleware())
	{
		authGroup.POST("/logout", h.User.Logout)
		authGroup.GET("/bootstrap", h.Bootstrap.Bootstrap)
	}

	// 社区相关接口
	communityGroup := r.Group("/api/community")
	communityGroup.Use(middleware.AuthMiddleware())
	{
		communityGroup.POST("/create", h.Community.Create)
		communityGroup.POST("/join", h.Community.Join)
		communityGroup.POST("/leave", h.Community.Leave)
		communityGroup.GET("/list", h.Community.List)
	}

	// 房间相关接口
	roomGroup := r.Group("/api/room")
	roomGroup.Use(middleware.AuthMiddleware())
	{
		roomGroup.POST("/create", h.Room.Create)
		roomGroup.GET("/list", h.Room.List)
		roomGroup.POST("/:id/start", h.Room.Start)
		roomGroup.POST("/:id/end", h.Room.End)
		roomGroup.POST("/:id/cancel", h.Room.Cancel)
		roomGroup.POST("/:id/join", h.Room.Join)
		roomGroup.POST("/:id/leave", h.Room.Leave)
		roomGroup.POST("/:id/rotate-invite", h.Room.RotateInvite)
	}

	// 开房申请相关接口
	requestGroup := r.Group("/api/request")
	requestGroup.Use(middleware.AuthMiddleware())
	{
		requestGroup.POST("/submit", h.Request.Submit)
		requestGroup.GET("/pending", h.Request.ListPending)
		requestGroup.POST("/:id/approve", h.Request.Approve)
		requestGroup.POST("/:id/reject", h.Request.Reject)
	}

	return r
}
