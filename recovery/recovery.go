package recovery

import (
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/kusinahub/kusina-api/cart"
	"github.com/kusinahub/kusina-api/models"
)

// Policy decides where a rebuilt line gets its prices from.
type Policy string

const (
	// RepriceFromCatalog takes current catalog prices: the live catalog is
	// the source of truth, so a rebuilt cart can differ from the declined
	// order's quoted total.
	RepriceFromCatalog Policy = "reprice"

	// KeepQuotedPrice pins each rebuilt line to the price quoted on the
	// declined order.
	KeepQuotedPrice Policy = "keep-quoted"
)

var ErrUnknownPolicy = errors.New("unknown repricing policy")

// Catalog resolves live products during reconstruction. ProductByName returns
// (nil, nil) when the product no longer exists.
type Catalog interface {
	ProductByName(name string) (*models.Product, error)
}

// Rebuild reconstructs a cart from the persisted items of a declined order.
// Items whose product has been removed or made unavailable since are skipped
// rather than failing the whole reconstruction; quantity and group tags of
// the surviving items are preserved. The declined order itself is never
// touched.
func Rebuild(items []models.OrderItem, catalog Catalog, policy Policy) (*cart.Cart, error) {
	if policy != RepriceFromCatalog && policy != KeepQuotedPrice {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, policy)
	}

	rebuilt := cart.New()
	for _, item := range items {
		product, err := catalog.ProductByName(item.ProductName)
		if err != nil {
			return nil, err
		}
		if product == nil || !product.Available {
			continue
		}

		options := matchOptions(*product, item.Options)
		if policy == KeepQuotedPrice {
			// Derive the base price so base plus live option prices lands
			// exactly on the quoted line price.
			additional := 0.0
			for _, opt := range options {
				additional += opt.AdditionalPrice
			}
			base := item.Price - additional
			pinned := *product
			pinned.BasePrice = &base
			product = &pinned
		}

		var added *cart.Item
		for i := 0; i < item.Quantity; i++ {
			entry, err := rebuilt.AddItem(*product, options)
			if err != nil {
				return nil, err
			}
			added = entry
		}
		if added != nil && item.GroupTag != "" {
			rebuilt.SetGroupTag(added.Signature, item.GroupTag)
		}
	}
	return rebuilt, nil
}

// matchOptions maps the stored group-to-option pairs of an order item back
// onto the product's current options, taking additional prices from the live
// catalog. Selections whose option no longer exists are dropped.
func matchOptions(product models.Product, stored datatypes.JSONMap) []cart.SelectedOption {
	var selections []cart.SelectedOption
	for group, value := range stored {
		name, ok := value.(string)
		if !ok {
			continue
		}
		for _, opt := range product.Options {
			if opt.GroupName == group && opt.Name == name {
				selections = append(selections, cart.SelectedOption{
					GroupName:       opt.GroupName,
					Name:            opt.Name,
					AdditionalPrice: opt.AdditionalPrice,
					Available:       opt.Available,
				})
				break
			}
		}
	}
	return selections
}

// DBCatalog resolves products straight from the relational store.
type DBCatalog struct {
	DB *gorm.DB
}

func (c DBCatalog) ProductByName(name string) (*models.Product, error) {
	var product models.Product
	result := c.DB.Preload("Options").Where("name = ?", name).First(&product)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &product, nil
}
