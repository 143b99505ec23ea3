package routes

import (
	"coachlink/api/handlers"
	"coachlink/api/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func PublicApi(router *gin.Engine) *gin.RouterGroup {
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	publicEndpoints := router.Group("/api/v1/")
	{
		publicEndpoints.POST("auth/register", handlers.Register)
		publicEndpoints.POST("auth/login", handlers.Login)
	}

	protected := router.Group("/api/v1/")
	protected.Use(middleware.AuthMiddleware())
	{
		protected.POST("auth/logout", handlers.Logout)
		protected.POST("coaches/register", handlers.RegisterCoach)
		protected.GET("coaches/list", handlers.ListCoaches)
		protected.GET("coaches/get/:id", handlers.GetCoach)

		// Заявки
		protected.POST("requests/send", handlers.SendRequest)
		protected.POST("requests/accept", handlers.AcceptRequest)
		protected.POST("requests/reject", handlers.RejectRequest)
		protected.GET("requests/incoming", handlers.IncomingRequests)
		protected.GET("requests/outgoing", handlers.OutgoingRequests)
		protected.GET("requests/pending-count", handlers.PendingCount)

		protected.GET("ws", handlers.WSRequestsHandler)
	}
	return publicEndpoints
}
