package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/kusinahub/kusina-api/controllers"
	"github.com/kusinahub/kusina-api/middlewares"
)

func OrderRoutes(server *gin.Engine) {
	server.GET("/order", middlewares.Authenticate(), middlewares.RequireStaff(), controllers.GetOrders)
	server.GET("/order/:orderId", controllers.GetOrderById)
	server.GET("/order/:orderId/status", controllers.GetOrderStatus)
	server.GET("/order/:orderId/events", controllers.StreamOrderStatus)
	server.GET("/order-events", controllers.StreamOrderStatus)
	server.PATCH("/order/:orderId/status", middlewares.Authenticate(), middlewares.RequireStaff(), controllers.UpdateOrderStatus)
	server.POST("/order/:orderId/rebuild", controllers.RebuildDeclinedOrder)
	server.GET("/orders/pending-count", middlewares.Authenticate(), middlewares.RequireStaff(), controllers.GetPendingOrderCount)
}
