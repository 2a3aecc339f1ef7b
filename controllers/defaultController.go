package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func GetHome(ctx *gin.Context) {
	message := `Welcome to Kusina API ❤️. Enjoy seamless interaction with this API.

The following are the endpoints for this API:

AUTH
- POST "/auth/signup" - Create staff account (signup code required)
- POST "/auth/login" - Access staff console

PRODUCT
- POST "/product" - Create new product (staff)
- POST "/product-options" - Add product options (staff)
- POST "/product-image" - Upload product image (staff)
- PATCH "/product/:id/availability" - Toggle availability (staff)
- GET "/product" - Get all products
- GET "/product/:id" - Get product by ID

CART
- POST "/cart" - Start a new cart
- GET "/cart/:cartId" - Get cart contents grouped by recipient
- POST "/cart/:cartId/items" - Add a product with option selections
- PATCH "/cart/:cartId/items/:signature" - Increase or decrease quantity
- DELETE "/cart/:cartId/items/:signature" - Remove a cart line
- PATCH "/cart/:cartId/items/:signature/group" - Tag a line with a recipient
- PUT "/cart/:cartId/items/:signature/options" - Replace a line's options
- POST "/cart/:cartId/checkout" - Submit the cart as an order

ORDER
- GET "/order" - Retrieve all orders (staff)
- GET "/order/:orderId" - Get order with items
- GET "/order/:orderId/status" - Get order status
- GET "/order/:orderId/events" - Stream status changes (SSE)
- GET "/order-events?ids=1,2,3" - Stream status for a set of orders (SSE)
- PATCH "/order/:orderId/status" - Update order status (staff)
- POST "/order/:orderId/rebuild" - Rebuild a cart from a declined order
- GET "/orders/pending-count" - Count orders still in flight (staff)`

	ctx.JSON(http.StatusOK, gin.H{
		"message": message,
	})
}
