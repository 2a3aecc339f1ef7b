package initializers

import (
	"log"

	"github.com/kusinahub/kusina-api/models"
)

func SyncDatabase() {
	DB.AutoMigrate(&models.Staff{}, &models.Product{}, &models.Option{}, &models.Order{}, &models.OrderItem{})
	log.Println("Database synced successfully.")
}
