package utils

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	EventOrderCreated  = "order.created"
	EventStatusChanged = "order.status_changed"
)

type OrderNotification struct {
	Event         string  `json:"event"`
	OrderID       uint    `json:"orderId"`
	CustomerName  string  `json:"customerName"`
	Total         float64 `json:"total"`
	Status        string  `json:"status"`
	DeclineReason string  `json:"declineReason,omitempty"`
}

// SendOrderWebhook posts an order event to the staff webhook configured via
// ORDER_WEBHOOK_URL. With no URL configured it is a no-op.
func SendOrderWebhook(notification OrderNotification) error {
	webhookURL := os.Getenv("ORDER_WEBHOOK_URL")
	if webhookURL == "" {
		return nil
	}

	client := resty.New().SetTimeout(10 * time.Second)
	resp, err := client.R().
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetBody(notification).
		Post(webhookURL)

	if err != nil {
		return err
	}
	if resp.StatusCode() >= 300 {
		return fmt.Errorf("webhook request failed with status %d: %s", resp.StatusCode(), string(resp.Body()))
	}
	return nil
}

// NotifyOrderAsync fires the webhook without blocking the request path.
func NotifyOrderAsync(notification OrderNotification) {
	go func() {
		if err := SendOrderWebhook(notification); err != nil {
			log.Printf("Order webhook failed for order %d: %v", notification.OrderID, err)
		}
	}()
}
