package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/kusinahub/kusina-api/controllers"
)

func DefaultRoutes(server *gin.Engine) {
	server.GET("/", controllers.GetHome)
}
