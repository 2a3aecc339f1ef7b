package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/kusinahub/kusina-api/controllers"
)

func CartRoutes(server *gin.Engine) {
	server.POST("/cart", controllers.CreateCart)
	server.GET("/cart/:cartId", controllers.GetCartContents)
	server.POST("/cart/:cartId/items", controllers.AddCartItem)
	server.PATCH("/cart/:cartId/items/:signature", controllers.UpdateCartItemQuantity)
	server.DELETE("/cart/:cartId/items/:signature", controllers.RemoveCartItem)
	server.PATCH("/cart/:cartId/items/:signature/group", controllers.SetCartItemGroup)
	server.PUT("/cart/:cartId/items/:signature/options", controllers.UpdateCartItemOptions)
	server.POST("/cart/:cartId/checkout", controllers.Checkout)
}
