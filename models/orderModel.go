package models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	PaymentGCash      = "GCash"
	PaymentPayAtStore = "PayAtStore"
)

type Order struct {
	gorm.Model
	CustomerName  string      `json:"customerName"`
	Phone         string      `json:"phone"`
	Total         float64     `json:"total"`
	PaymentMethod string      `json:"paymentMethod"`
	ProofUrl      string      `json:"proofUrl"`
	Status        string      `json:"status"`
	DeclineReason string      `json:"declineReason"`
	OrderItems    []OrderItem `json:"orderItems" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

type OrderItem struct {
	gorm.Model
	OrderID     int               `json:"orderId"`
	ProductName string            `json:"productName"`
	Quantity    int               `json:"quantity"`
	Price       float64           `json:"price"`
	Options     datatypes.JSONMap `json:"options"`
	GroupTag    string            `json:"groupTag"`
}
