package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/kusinahub/kusina-api/controllers"
	"github.com/kusinahub/kusina-api/middlewares"
)

func ProductRoutes(server *gin.Engine) {
	server.POST("/product", middlewares.Authenticate(), middlewares.RequireStaff(), controllers.CreateProduct)
	server.POST("/product-options", middlewares.Authenticate(), middlewares.RequireStaff(), controllers.CreateProductOptions)
	server.POST("/product-image", middlewares.Authenticate(), middlewares.RequireStaff(), controllers.UploadProductImage)
	server.PATCH("/product/:id/availability", middlewares.Authenticate(), middlewares.RequireStaff(), controllers.UpdateProductAvailability)
	server.GET("/product", controllers.GetProducts)
	server.GET("/product/:id", controllers.GetProduct)
}
