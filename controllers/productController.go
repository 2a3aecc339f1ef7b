package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/kusinahub/kusina-api/initializers"
	"github.com/kusinahub/kusina-api/models"
	"github.com/kusinahub/kusina-api/storage"
)

// Common error response helper
func respondWithError(ctx *gin.Context, statusCode int, message string, err error) {
	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}
	ctx.JSON(statusCode, gin.H{
		"message": message,
		"error":   errMsg,
	})
}

// Product handlers
func CreateProduct(ctx *gin.Context) {
	var product models.Product
	if err := ctx.ShouldBindJSON(&product); err != nil {
		respondWithError(ctx, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := initializers.DB.Create(&product).Error; err != nil {
		respondWithError(ctx, http.StatusInternalServerError, "Failed to create product", err)
		return
	}

	ctx.JSON(http.StatusCreated, product)
}

// CreateProductOptions appends option-group entries to an existing product.
func CreateProductOptions(ctx *gin.Context) {
	var payload struct {
		ProductID uint            `json:"productId" binding:"required"`
		Options   []models.Option `json:"options" binding:"required,dive"`
	}
	if err := ctx.ShouldBindJSON(&payload); err != nil {
		respondWithError(ctx, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	// Validate product exists
	var product models.Product
	if err := initializers.DB.First(&product, payload.ProductID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondWithError(ctx, http.StatusNotFound, "Product not found", nil)
		} else {
			respondWithError(ctx, http.StatusInternalServerError, "Failed to validate product", err)
		}
		return
	}

	for i := range payload.Options {
		payload.Options[i].ProductID = product.ID
		if err := initializers.DB.Create(&payload.Options[i]).Error; err != nil {
			respondWithError(ctx, http.StatusInternalServerError, "Failed to create product options", err)
			return
		}
	}

	ctx.JSON(http.StatusCreated, gin.H{"message": "Product options added successfully"})
}

func UploadProductImage(ctx *gin.Context) {
	file, err := ctx.FormFile("image")
	if err != nil {
		respondWithError(ctx, http.StatusBadRequest, "No file uploaded", err)
		return
	}

	productIdStr := ctx.PostForm("productId")
	if productIdStr == "" {
		respondWithError(ctx, http.StatusBadRequest, "Missing productId", nil)
		return
	}

	productId, err := strconv.Atoi(productIdStr)
	if err != nil {
		respondWithError(ctx, http.StatusBadRequest, "Invalid productId", err)
		return
	}

	// Validate product exists
	var product models.Product
	if err := initializers.DB.First(&product, productId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondWithError(ctx, http.StatusNotFound, "Product not found", nil)
		} else {
			respondWithError(ctx, http.StatusInternalServerError, "Failed to validate product", err)
		}
		return
	}

	store, err := storage.NewS3Store(ctx.Request.Context(), os.Getenv("MEDIA_BUCKET"))
	if err != nil {
		respondWithError(ctx, http.StatusInternalServerError, "Failed to configure object storage", err)
		return
	}

	f, err := file.Open()
	if err != nil {
		respondWithError(ctx, http.StatusBadRequest, "Failed to read uploaded file", err)
		return
	}
	defer f.Close()

	// Generate a unique key to prevent overwrites
	key := fmt.Sprintf("products/%d-%s-%s", productId, time.Now().Format("20060102150405"), file.Filename)

	url, err := store.UploadPublic(ctx.Request.Context(), key, f, file.Header.Get("Content-Type"))
	if err != nil {
		respondWithError(ctx, http.StatusInternalServerError, "Failed to upload product image", err)
		return
	}

	if err := initializers.DB.Model(&product).Update("image_url", url).Error; err != nil {
		respondWithError(ctx, http.StatusInternalServerError, "Failed to save image url", err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Image uploaded",
		"url":     url,
	})
}

func GetProducts(ctx *gin.Context) {
	var products []models.Product

	// Add pagination
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))
	offset := (page - 1) * limit

	query := initializers.DB.Preload("Options")

	// Add search by name if provided
	if search := ctx.Query("search"); search != "" {
		query = query.Where("name LIKE ?", "%"+search+"%")
	}

	if ctx.Query("available") == "true" {
		query = query.Where("available = ?", true)
	}

	result := query.Limit(limit).Offset(offset).Find(&products)
	if result.Error != nil {
		respondWithError(ctx, http.StatusInternalServerError, "Unable to fetch products", result.Error)
		return
	}

	// Get total count for pagination
	var count int64
	initializers.DB.Model(&models.Product{}).Count(&count)

	ctx.JSON(http.StatusOK, gin.H{
		"products": products,
		"metadata": gin.H{
			"total": count,
			"page":  page,
			"limit": limit,
		},
	})
}

func GetProduct(ctx *gin.Context) {
	productId, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		respondWithError(ctx, http.StatusBadRequest, "Invalid product ID", err)
		return
	}

	var product models.Product
	result := initializers.DB.Preload("Options").First(&product, productId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			respondWithError(ctx, http.StatusNotFound, "Product not found", nil)
		} else {
			respondWithError(ctx, http.StatusInternalServerError, "Unable to retrieve product", result.Error)
		}
		return
	}

	ctx.JSON(http.StatusOK, product)
}

// UpdateProductAvailability toggles whether a product can be ordered.
func UpdateProductAvailability(ctx *gin.Context) {
	productId, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		respondWithError(ctx, http.StatusBadRequest, "Invalid product ID", err)
		return
	}

	var payload struct {
		Available *bool `json:"available" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&payload); err != nil {
		respondWithError(ctx, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	result := initializers.DB.Model(&models.Product{}).Where("id = ?", productId).Update("available", *payload.Available)
	if result.Error != nil {
		respondWithError(ctx, http.StatusInternalServerError, "Failed to update availability", result.Error)
		return
	}
	if result.RowsAffected == 0 {
		respondWithError(ctx, http.StatusNotFound, "Product not found", nil)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Product availability updated"})
}
