package controllers

import (
	"context"
	"errors"
	"io"
	"log"
	"math"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/kusinahub/kusina-api/checkout"
	"github.com/kusinahub/kusina-api/initializers"
	"github.com/kusinahub/kusina-api/lifecycle"
	"github.com/kusinahub/kusina-api/models"
	"github.com/kusinahub/kusina-api/realtime"
	"github.com/kusinahub/kusina-api/recovery"
	"github.com/kusinahub/kusina-api/storage"
	"github.com/kusinahub/kusina-api/utils"
)

var (
	// OrderHub pushes status changes to live customer and console views.
	OrderHub = realtime.NewHub()

	// orderProjection folds every published status change into a local
	// cache, so repeated tracking polls do not each hit the database.
	orderProjection = realtime.NewProjector()
)

func init() {
	go orderProjection.Run(context.Background(), OrderHub.Subscribe())
}

// Checkout converts a session cart into an order. GCash submissions carry a
// payment-proof image in the multipart form; pay-at-store submissions do not.
func Checkout(ctx *gin.Context) {
	cartId := ctx.Param("cartId")
	c, ok := lookupCart(cartId)
	if !ok {
		sendErrorResponse(ctx, http.StatusNotFound, msgCartNotFound)
		return
	}

	req := checkout.Request{
		Cart:          c,
		CustomerName:  ctx.PostForm("customerName"),
		Phone:         ctx.PostForm("phone"),
		PaymentMethod: ctx.PostForm("paymentMethod"),
	}

	submitter := &checkout.Submitter{DB: initializers.DB}

	// Object storage is only touched when a proof has to be resolved, so a
	// misconfigured bucket cannot fail pay-at-store submissions.
	if req.PaymentMethod == models.PaymentGCash {
		store, err := storage.NewS3Store(ctx.Request.Context(), os.Getenv("PROOF_BUCKET"))
		if err != nil {
			log.Println("Object storage configuration error:", err)
			sendErrorResponse(ctx, http.StatusInternalServerError, "Failed to configure object storage")
			return
		}
		submitter.Proofs = store

		if file, err := ctx.FormFile("paymentProof"); err == nil {
			f, openErr := file.Open()
			if openErr != nil {
				sendErrorResponse(ctx, http.StatusBadRequest, "Failed to read payment proof")
				return
			}
			defer f.Close()
			req.Proof = f
			req.ProofType = file.Header.Get("Content-Type")
		}
	}

	order, err := submitter.Submit(ctx.Request.Context(), req)
	if err != nil {
		var validationErr *checkout.ValidationError
		switch {
		case errors.As(err, &validationErr),
			errors.Is(err, checkout.ErrEmptyCart),
			errors.Is(err, checkout.ErrNonPositiveTotal):
			sendErrorResponse(ctx, http.StatusBadRequest, err.Error())
		case errors.Is(err, checkout.ErrProofUnavailable):
			// The cart is untouched, so the customer can simply retry.
			sendErrorResponse(ctx, http.StatusBadGateway, "Payment proof could not be verified. Please try again.")
		default:
			log.Println("Checkout error:", err)
			sendErrorResponse(ctx, http.StatusInternalServerError, "Failed to submit order")
		}
		return
	}

	dropCart(cartId)
	utils.NotifyOrderAsync(utils.OrderNotification{
		Event:        utils.EventOrderCreated,
		OrderID:      order.ID,
		CustomerName: order.CustomerName,
		Total:        order.Total,
		Status:       order.Status,
	})

	sendJSONResponse(ctx, http.StatusCreated, gin.H{
		"message": "Order submitted successfully.",
		"orderId": order.ID,
		"status":  order.Status,
		"total":   order.Total,
	})
}

func GetOrders(ctx *gin.Context) {
	var orders []models.Order

	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "15"))
	offset := (page - 1) * limit

	sortOrder := ctx.DefaultQuery("sort", "desc")
	if sortOrder != "asc" && sortOrder != "desc" {
		sortOrder = "desc"
	}

	query := initializers.DB.Preload("OrderItems")

	if search := ctx.Query("search"); search != "" {
		query = query.Where("id LIKE ? OR customer_name LIKE ?", "%"+search+"%", "%"+search+"%")
	}
	if status := ctx.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	query = query.Order("created_at " + sortOrder)

	result := query.Limit(limit).Offset(offset).Find(&orders)
	if result.Error != nil {
		respondWithError(ctx, http.StatusInternalServerError, "Unable to fetch orders", result.Error)
		return
	}

	var count int64
	countQuery := initializers.DB.Model(&models.Order{})
	if search := ctx.Query("search"); search != "" {
		countQuery = countQuery.Where("id LIKE ? OR customer_name LIKE ?", "%"+search+"%", "%"+search+"%")
	}
	if status := ctx.Query("status"); status != "" {
		countQuery = countQuery.Where("status = ?", status)
	}
	countQuery.Count(&count)

	previousPage := page - 1
	nextPage := page + 1
	totalPages := math.Ceil(float64(count) / float64(limit))

	ctx.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"metadata": gin.H{
			"total":        count,
			"currentPage":  page,
			"limit":        limit,
			"hasPrevPage":  previousPage > 0,
			"hasNextPage":  int(totalPages) > page,
			"previousPage": previousPage,
			"nextPage":     nextPage,
		},
	})
}

func GetOrderById(ctx *gin.Context) {
	orderId, err := strconv.Atoi(ctx.Param("orderId"))
	if err != nil {
		sendErrorResponse(ctx, http.StatusBadRequest, "Failed to parse orderId")
		return
	}

	var order models.Order
	result := initializers.DB.Preload("OrderItems").Where("id = ?", orderId).First(&order)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			sendErrorResponse(ctx, http.StatusNotFound, "Order not found")
		} else {
			log.Println(result.Error)
			sendErrorResponse(ctx, http.StatusInternalServerError, "Failed to fetch order.")
		}
		return
	}

	sendJSONResponse(ctx, http.StatusOK, gin.H{
		"order": order,
	})
}

// GetOrderStatus serves the customer tracking view from the projected status
// cache, falling back to the store the first time an order is asked about.
// Statuses from outside the canonical set render as a pending treatment
// instead of failing.
func GetOrderStatus(ctx *gin.Context) {
	orderId, err := strconv.Atoi(ctx.Param("orderId"))
	if err != nil {
		sendErrorResponse(ctx, http.StatusBadRequest, "Failed to parse orderId")
		return
	}

	id := uint(orderId)
	projected, ok := orderProjection.Status(id)
	if !ok {
		// Track before reading, so a change landing during the read
		// still folds into the cache and wins over the snapshot.
		orderProjection.Track(id)

		var order models.Order
		if result := initializers.DB.First(&order, id); result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				sendErrorResponse(ctx, http.StatusNotFound, "Order not found")
			} else {
				sendErrorResponse(ctx, http.StatusInternalServerError, "Failed to fetch order.")
			}
			return
		}
		projected = orderProjection.SeedIfAbsent(id, realtime.Status{
			Status:        order.Status,
			DeclineReason: order.DeclineReason,
		})
	}

	status := projected.Status
	if !lifecycle.Known(status) {
		status = lifecycle.StatusPendingConfirmation
	}

	sendJSONResponse(ctx, http.StatusOK, gin.H{
		"orderId":       id,
		"status":        status,
		"declineReason": projected.DeclineReason,
		"terminal":      lifecycle.IsTerminal(status),
	})
}

// UpdateOrderStatus applies a staff-driven lifecycle transition. The state
// machine is the enforcement backstop for whatever buttons the console
// shows; illegal moves leave the order exactly as it was.
func UpdateOrderStatus(ctx *gin.Context) {
	var orderStatusData struct {
		Status        string `json:"status" binding:"required"`
		DeclineReason string `json:"declineReason"`
	}
	if err := ctx.ShouldBindJSON(&orderStatusData); err != nil {
		sendErrorResponse(ctx, http.StatusBadRequest, "Failed to parse request body")
		return
	}

	orderId, err := strconv.Atoi(ctx.Param("orderId"))
	if err != nil {
		sendErrorResponse(ctx, http.StatusBadRequest, "Failed to parse orderId")
		return
	}

	var order models.Order
	if result := initializers.DB.First(&order, orderId); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			sendErrorResponse(ctx, http.StatusNotFound, "Order not found")
		} else {
			sendErrorResponse(ctx, http.StatusInternalServerError, "Failed to fetch order.")
		}
		return
	}

	if err := lifecycle.Transition(order.Status, orderStatusData.Status, orderStatusData.DeclineReason); err != nil {
		switch {
		case errors.Is(err, lifecycle.ErrReasonRequired):
			sendErrorResponse(ctx, http.StatusBadRequest, err.Error())
		case errors.Is(err, lifecycle.ErrInvalidTransition):
			sendErrorResponse(ctx, http.StatusConflict, err.Error())
		default:
			sendErrorResponse(ctx, http.StatusBadRequest, err.Error())
		}
		return
	}

	updates := map[string]any{"status": orderStatusData.Status}
	if orderStatusData.Status == lifecycle.StatusDeclined {
		updates["decline_reason"] = orderStatusData.DeclineReason
	}
	if result := initializers.DB.Model(&order).Updates(updates); result.Error != nil {
		log.Println(result.Error)
		sendErrorResponse(ctx, http.StatusInternalServerError, "Failed to update order status")
		return
	}

	OrderHub.Publish(realtime.Event{
		OrderID:       order.ID,
		Status:        orderStatusData.Status,
		DeclineReason: orderStatusData.DeclineReason,
	})
	utils.NotifyOrderAsync(utils.OrderNotification{
		Event:         utils.EventStatusChanged,
		OrderID:       order.ID,
		CustomerName:  order.CustomerName,
		Total:         order.Total,
		Status:        orderStatusData.Status,
		DeclineReason: orderStatusData.DeclineReason,
	})

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Order status updated successfully.",
		"status":  orderStatusData.Status,
	})
}

// StreamOrderStatus streams status changes for one order (or an ids query
// listing several, for the history view) over server-sent events. The
// subscription is released as soon as the client disconnects.
func StreamOrderStatus(ctx *gin.Context) {
	var orderIDs []uint
	if param := ctx.Param("orderId"); param != "" {
		orderId, err := strconv.Atoi(param)
		if err != nil {
			sendErrorResponse(ctx, http.StatusBadRequest, "Failed to parse orderId")
			return
		}
		orderIDs = append(orderIDs, uint(orderId))
	} else {
		for _, raw := range strings.Split(ctx.Query("ids"), ",") {
			raw = strings.TrimSpace(raw)
			if raw == "" {
				continue
			}
			orderId, err := strconv.Atoi(raw)
			if err != nil {
				sendErrorResponse(ctx, http.StatusBadRequest, "Failed to parse ids")
				return
			}
			orderIDs = append(orderIDs, uint(orderId))
		}
		if len(orderIDs) == 0 {
			sendErrorResponse(ctx, http.StatusBadRequest, "No order ids provided")
			return
		}
	}

	sub := OrderHub.Subscribe(orderIDs...)
	defer OrderHub.Unsubscribe(sub)

	// Hub events are folded into a per-connection projection, so what goes
	// over the wire is always the latest known state per order, never a raw
	// event for an order this view does not track.
	projector := realtime.NewProjector(orderIDs...)

	// Current snapshot first, so the view renders before the next change.
	var orders []models.Order
	if result := initializers.DB.Where("id IN ?", orderIDs).Find(&orders); result.Error != nil {
		sendErrorResponse(ctx, http.StatusInternalServerError, "Failed to fetch orders")
		return
	}
	for _, order := range orders {
		projector.Seed(order.ID, realtime.Status{Status: order.Status, DeclineReason: order.DeclineReason})
		ctx.SSEvent("status", projectedEvent(projector, order.ID))
	}
	ctx.Writer.Flush()

	if allTerminal(projector, orderIDs) {
		return
	}

	ctx.Stream(func(w io.Writer) bool {
		select {
		case event, ok := <-sub.Events():
			if !ok {
				return false
			}
			if !projector.Apply(event) {
				return true
			}
			ctx.SSEvent("status", projectedEvent(projector, event.OrderID))
			// Nothing further can change once every tracked order has
			// reached a terminal status.
			return !allTerminal(projector, orderIDs)
		case <-ctx.Request.Context().Done():
			return false
		}
	})
}

func projectedEvent(projector *realtime.Projector, orderID uint) realtime.Event {
	status, _ := projector.Status(orderID)
	return realtime.Event{
		OrderID:       orderID,
		Status:        status.Status,
		DeclineReason: status.DeclineReason,
	}
}

func allTerminal(projector *realtime.Projector, orderIDs []uint) bool {
	for _, id := range orderIDs {
		status, ok := projector.Status(id)
		if !ok || !lifecycle.IsTerminal(status.Status) {
			return false
		}
	}
	return true
}

// RebuildDeclinedOrder rehydrates a fresh session cart from the items of a
// declined order so the customer can edit and resubmit. The declined order
// itself is left untouched.
func RebuildDeclinedOrder(ctx *gin.Context) {
	orderId, err := strconv.Atoi(ctx.Param("orderId"))
	if err != nil {
		sendErrorResponse(ctx, http.StatusBadRequest, "Failed to parse orderId")
		return
	}

	var order models.Order
	result := initializers.DB.Preload("OrderItems").Where("id = ?", orderId).First(&order)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			sendErrorResponse(ctx, http.StatusNotFound, "Order not found")
		} else {
			sendErrorResponse(ctx, http.StatusInternalServerError, "Failed to fetch order.")
		}
		return
	}

	if order.Status != lifecycle.StatusDeclined {
		sendErrorResponse(ctx, http.StatusConflict, "Only declined orders can be rebuilt")
		return
	}

	policy := recovery.Policy(ctx.DefaultQuery("pricing", string(recovery.RepriceFromCatalog)))
	rebuilt, err := recovery.Rebuild(order.OrderItems, recovery.DBCatalog{DB: initializers.DB}, policy)
	if err != nil {
		if errors.Is(err, recovery.ErrUnknownPolicy) {
			sendErrorResponse(ctx, http.StatusBadRequest, err.Error())
			return
		}
		log.Println("Cart rebuild error:", err)
		sendErrorResponse(ctx, http.StatusInternalServerError, "Failed to rebuild cart")
		return
	}

	cartId := registerCart(rebuilt)
	sendJSONResponse(ctx, http.StatusCreated, gin.H{
		"cartId": cartId,
		"items":  rebuilt.Items(),
		"groups": rebuilt.GroupedView(),
		"total":  rebuilt.Total(),
	})
}

// GetPendingOrderCount powers the console badge of orders still in flight.
func GetPendingOrderCount(ctx *gin.Context) {
	var count int64

	result := initializers.DB.
		Model(&models.Order{}).
		Where("status NOT IN ?", []string{lifecycle.StatusCompleted, lifecycle.StatusDeclined}).
		Count(&count)

	if result.Error != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count pending orders"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"pendingOrderCount": count})
}
