package controllers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kusinahub/kusina-api/cart"
	"github.com/kusinahub/kusina-api/initializers"
	"github.com/kusinahub/kusina-api/lifecycle"
	"github.com/kusinahub/kusina-api/models"
	"github.com/kusinahub/kusina-api/realtime"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "api.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Product{}, &models.Option{}, &models.Order{}, &models.OrderItem{}))
	initializers.DB = db
	return db
}

func price(v float64) *float64 { return &v }

// closeNotifyRecorder adds http.CloseNotifier, which gin's Context.Stream
// requires and httptest.ResponseRecorder does not implement.
type closeNotifyRecorder struct {
	*httptest.ResponseRecorder
	closed chan bool
}

func newCloseNotifyRecorder() *closeNotifyRecorder {
	return &closeNotifyRecorder{httptest.NewRecorder(), make(chan bool, 1)}
}

func (r *closeNotifyRecorder) CloseNotify() <-chan bool { return r.closed }

func TestCheckoutPayAtStoreWithoutObjectStorage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := setupTestDB(t)

	product := models.Product{Name: "Sisig", BasePrice: price(60), Available: true}
	require.NoError(t, db.Create(&product).Error)

	c := cart.New()
	_, err := c.AddItem(product, nil)
	require.NoError(t, err)
	cartId := registerCart(c)

	router := gin.New()
	router.POST("/cart/:cartId/checkout", Checkout)

	form := url.Values{
		"customerName":  {"Maria"},
		"phone":         {"09171234567"},
		"paymentMethod": {models.PaymentPayAtStore},
	}
	req := httptest.NewRequest(http.MethodPost, "/cart/"+cartId+"/checkout", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	// No proof bucket and no cloud credentials are configured here, so
	// this only passes when cash submissions skip object storage.
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var stored models.Order
	require.NoError(t, db.Preload("OrderItems").First(&stored).Error)
	assert.Equal(t, lifecycle.StatusPendingConfirmation, stored.Status)
	assert.Equal(t, 60.0, stored.Total)
	require.Len(t, stored.OrderItems, 1)

	_, ok := lookupCart(cartId)
	assert.False(t, ok)
}

func TestStreamOrderStatusEmitsProjectedState(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := setupTestDB(t)

	order := models.Order{
		CustomerName:  "Maria",
		Phone:         "09171234567",
		Total:         60,
		PaymentMethod: models.PaymentPayAtStore,
		Status:        lifecycle.StatusPendingConfirmation,
	}
	order.ID = 7001
	require.NoError(t, db.Create(&order).Error)

	router := gin.New()
	router.GET("/order/:orderId/events", StreamOrderStatus)

	reqCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/order/%d/events", order.ID), nil).WithContext(reqCtx)
	rec := newCloseNotifyRecorder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		router.ServeHTTP(rec, req)
	}()

	// The stream closes on its own once the order reaches a terminal
	// status. Publishing repeats until the handler has subscribed.
	declined := realtime.Event{OrderID: order.ID, Status: lifecycle.StatusDeclined, DeclineReason: "Out of stock"}
	require.Eventually(t, func() bool {
		select {
		case <-done:
			return true
		default:
			OrderHub.Publish(declined)
			return false
		}
	}, 2*time.Second, 5*time.Millisecond)

	body := rec.Body.String()
	assert.Contains(t, body, lifecycle.StatusPendingConfirmation)
	assert.Contains(t, body, lifecycle.StatusDeclined)
	assert.Contains(t, body, "Out of stock")
}

func TestGetOrderStatusServesProjectedCache(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := setupTestDB(t)

	order := models.Order{
		CustomerName:  "Maria",
		Phone:         "09171234567",
		Total:         60,
		PaymentMethod: models.PaymentPayAtStore,
		Status:        lifecycle.StatusPendingConfirmation,
	}
	order.ID = 7002
	require.NoError(t, db.Create(&order).Error)

	router := gin.New()
	router.GET("/order/:orderId/status", GetOrderStatus)

	poll := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/order/%d/status", order.ID), nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	first := poll()
	require.Equal(t, http.StatusOK, first.Code)
	assert.Contains(t, first.Body.String(), lifecycle.StatusPendingConfirmation)

	// A published change reaches later polls without another row update.
	OrderHub.Publish(realtime.Event{OrderID: order.ID, Status: lifecycle.StatusDeclined, DeclineReason: "Out of stock"})
	require.Eventually(t, func() bool {
		return strings.Contains(poll().Body.String(), lifecycle.StatusDeclined)
	}, 2*time.Second, 5*time.Millisecond)

	latest := poll()
	assert.Contains(t, latest.Body.String(), "Out of stock")
	assert.Contains(t, latest.Body.String(), `"terminal":true`)
}
