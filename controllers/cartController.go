package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kusinahub/kusina-api/cart"
	"github.com/kusinahub/kusina-api/initializers"
	"github.com/kusinahub/kusina-api/models"
)

const (
	msgCartNotFound     = "Cart not found"
	msgCartItemNotFound = "Cart item not found"
)

// Session carts live in memory for the duration of an order-in-progress.
// Each cart is driven by a single customer view, so one lock around the
// store is enough.
var (
	cartsMu sync.Mutex
	carts   = make(map[string]*cart.Cart)
)

func lookupCart(id string) (*cart.Cart, bool) {
	cartsMu.Lock()
	defer cartsMu.Unlock()
	c, ok := carts[id]
	return c, ok
}

func registerCart(c *cart.Cart) string {
	id := uuid.NewString()
	cartsMu.Lock()
	carts[id] = c
	cartsMu.Unlock()
	return id
}

func dropCart(id string) {
	cartsMu.Lock()
	delete(carts, id)
	cartsMu.Unlock()
}

type selectionInput struct {
	GroupName string `json:"groupName" binding:"required"`
	Name      string `json:"name" binding:"required"`
}

// resolveSelections maps requested (group, option) pairs onto the product's
// live options, snapshotting their prices. At most one option per group is
// allowed, and the option must exist and be available.
func resolveSelections(product models.Product, selections []selectionInput) ([]cart.SelectedOption, error) {
	seen := make(map[string]bool)
	var resolved []cart.SelectedOption

	for _, selection := range selections {
		if seen[selection.GroupName] {
			return nil, fmt.Errorf("more than one option selected for group %q", selection.GroupName)
		}
		seen[selection.GroupName] = true

		found := false
		for _, opt := range product.Options {
			if opt.GroupName == selection.GroupName && opt.Name == selection.Name {
				if !opt.Available {
					return nil, fmt.Errorf("option %q is currently unavailable", opt.Name)
				}
				resolved = append(resolved, cart.SelectedOption{
					GroupName:       opt.GroupName,
					Name:            opt.Name,
					AdditionalPrice: opt.AdditionalPrice,
					Available:       opt.Available,
				})
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("product has no option %q in group %q", selection.Name, selection.GroupName)
		}
	}
	return resolved, nil
}

func cartPayload(c *cart.Cart) gin.H {
	return gin.H{
		"items":  c.Items(),
		"groups": c.GroupedView(),
		"total":  c.Total(),
	}
}

func CreateCart(ctx *gin.Context) {
	id := registerCart(cart.New())
	sendJSONResponse(ctx, http.StatusCreated, gin.H{"cartId": id})
}

func GetCartContents(ctx *gin.Context) {
	c, ok := lookupCart(ctx.Param("cartId"))
	if !ok {
		sendErrorResponse(ctx, http.StatusNotFound, msgCartNotFound)
		return
	}
	sendJSONResponse(ctx, http.StatusOK, cartPayload(c))
}

func AddCartItem(ctx *gin.Context) {
	c, ok := lookupCart(ctx.Param("cartId"))
	if !ok {
		sendErrorResponse(ctx, http.StatusNotFound, msgCartNotFound)
		return
	}

	var payload struct {
		ProductID uint             `json:"productId" binding:"required"`
		Options   []selectionInput `json:"options" binding:"dive"`
	}
	if err := ctx.ShouldBindJSON(&payload); err != nil {
		sendErrorResponse(ctx, http.StatusBadRequest, msgInvalidInput)
		return
	}

	var product models.Product
	if err := initializers.DB.Preload("Options").First(&product, payload.ProductID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			sendErrorResponse(ctx, http.StatusNotFound, "Product not found")
		} else {
			sendErrorResponse(ctx, http.StatusInternalServerError, "Failed to fetch product")
		}
		return
	}

	selections, err := resolveSelections(product, payload.Options)
	if err != nil {
		sendErrorResponse(ctx, http.StatusBadRequest, err.Error())
		return
	}

	item, err := c.AddItem(product, selections)
	if err != nil {
		if errors.Is(err, cart.ErrProductUnavailable) {
			sendErrorResponse(ctx, http.StatusConflict, product.Name+" is currently unavailable")
			return
		}
		sendErrorResponse(ctx, http.StatusInternalServerError, msgInternalServerError)
		return
	}

	sendJSONResponse(ctx, http.StatusOK, gin.H{
		"message": product.Name + " added to cart",
		"item":    item,
		"total":   c.Total(),
	})
}

func UpdateCartItemQuantity(ctx *gin.Context) {
	c, ok := lookupCart(ctx.Param("cartId"))
	if !ok {
		sendErrorResponse(ctx, http.StatusNotFound, msgCartNotFound)
		return
	}

	var payload struct {
		Direction cart.Direction `json:"direction" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&payload); err != nil {
		sendErrorResponse(ctx, http.StatusBadRequest, msgInvalidInput)
		return
	}
	if payload.Direction != cart.Increase && payload.Direction != cart.Decrease {
		sendErrorResponse(ctx, http.StatusBadRequest, "direction must be increase or decrease")
		return
	}

	c.UpdateQuantity(ctx.Param("signature"), payload.Direction)
	sendJSONResponse(ctx, http.StatusOK, cartPayload(c))
}

func RemoveCartItem(ctx *gin.Context) {
	c, ok := lookupCart(ctx.Param("cartId"))
	if !ok {
		sendErrorResponse(ctx, http.StatusNotFound, msgCartNotFound)
		return
	}

	c.RemoveItem(ctx.Param("signature"))
	sendJSONResponse(ctx, http.StatusOK, cartPayload(c))
}

func SetCartItemGroup(ctx *gin.Context) {
	c, ok := lookupCart(ctx.Param("cartId"))
	if !ok {
		sendErrorResponse(ctx, http.StatusNotFound, msgCartNotFound)
		return
	}

	var payload struct {
		GroupTag string `json:"groupTag"`
	}
	if err := ctx.ShouldBindJSON(&payload); err != nil {
		sendErrorResponse(ctx, http.StatusBadRequest, msgInvalidInput)
		return
	}

	signature := ctx.Param("signature")
	if _, ok := c.Item(signature); !ok {
		sendErrorResponse(ctx, http.StatusNotFound, msgCartItemNotFound)
		return
	}

	c.SetGroupTag(signature, payload.GroupTag)
	sendJSONResponse(ctx, http.StatusOK, cartPayload(c))
}

func UpdateCartItemOptions(ctx *gin.Context) {
	c, ok := lookupCart(ctx.Param("cartId"))
	if !ok {
		sendErrorResponse(ctx, http.StatusNotFound, msgCartNotFound)
		return
	}

	signature := ctx.Param("signature")
	item, ok := c.Item(signature)
	if !ok {
		sendErrorResponse(ctx, http.StatusNotFound, msgCartItemNotFound)
		return
	}

	var payload struct {
		Options []selectionInput `json:"options" binding:"dive"`
	}
	if err := ctx.ShouldBindJSON(&payload); err != nil {
		sendErrorResponse(ctx, http.StatusBadRequest, msgInvalidInput)
		return
	}

	var product models.Product
	if err := initializers.DB.Preload("Options").First(&product, item.ProductID).Error; err != nil {
		sendErrorResponse(ctx, http.StatusInternalServerError, "Failed to fetch product")
		return
	}

	selections, err := resolveSelections(product, payload.Options)
	if err != nil {
		sendErrorResponse(ctx, http.StatusBadRequest, err.Error())
		return
	}

	c.UpdateItemOptions(signature, selections)
	sendJSONResponse(ctx, http.StatusOK, cartPayload(c))
}
