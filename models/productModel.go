package models

import "gorm.io/gorm"

type Option struct {
	gorm.Model
	ProductID       uint    `json:"productId"`
	GroupName       string  `json:"groupName" binding:"required"`
	Name            string  `json:"name" binding:"required"`
	AdditionalPrice float64 `json:"additionalPrice"`
	Available       bool    `json:"available"`
}

type Product struct {
	gorm.Model
	Name      string   `json:"name" binding:"required"`
	BasePrice *float64 `json:"basePrice"`
	Available bool     `json:"available"`
	Owner     string   `json:"owner"`
	ImageUrl  string   `json:"imageUrl"`
	Options   []Option `json:"options" gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
}
