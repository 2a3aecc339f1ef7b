package cart

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/kusinahub/kusina-api/models"
)

var ErrProductUnavailable = errors.New("product is unavailable")

// UnassignedGroup is the bucket for items that carry no group tag.
const UnassignedGroup = "Unassigned"

type Direction string

const (
	Increase Direction = "increase"
	Decrease Direction = "decrease"
)

// SelectedOption is a snapshot of a catalog option taken at add-to-cart time,
// so later catalog edits never change the math of an existing cart line.
type SelectedOption struct {
	GroupName       string  `json:"groupName"`
	Name            string  `json:"name"`
	AdditionalPrice float64 `json:"additionalPrice"`
	Available       bool    `json:"available"`
}

type Item struct {
	Signature   string           `json:"signature"`
	ProductID   uint             `json:"productId"`
	ProductName string           `json:"productName"`
	ImageUrl    string           `json:"imageUrl"`
	BasePrice   float64          `json:"basePrice"`
	Options     []SelectedOption `json:"options"`
	Quantity    int              `json:"quantity"`
	GroupTag    string           `json:"groupTag"`
}

// UnitPrice is the per-unit line price: base price plus every selected option.
func (it *Item) UnitPrice() float64 {
	price := it.BasePrice
	for _, opt := range it.Options {
		price += opt.AdditionalPrice
	}
	return price
}

// Delimiter characters inside group and option names are escaped so a
// crafted name cannot collide with a different selection set.
var signatureEscaper = strings.NewReplacer(`\`, `\\`, "|", `\|`, "=", `\=`)

// Signature derives the identity key of a cart line from the product id and
// the resolved option selections. Selection order does not matter: the
// (group, name) pairs are sorted before joining.
func Signature(productID uint, options []SelectedOption) string {
	pairs := make([]string, 0, len(options))
	for _, opt := range options {
		pairs = append(pairs, signatureEscaper.Replace(opt.GroupName)+"="+signatureEscaper.Replace(opt.Name))
	}
	sort.Strings(pairs)
	return fmt.Sprintf("%d|%s", productID, strings.Join(pairs, "|"))
}

// Cart holds the in-memory order-in-progress for one customer session.
// Items are kept in insertion order and indexed by signature, so re-adding
// the same product with the same options merges into one line.
type Cart struct {
	items []*Item
	index map[string]*Item
}

func New() *Cart {
	return &Cart{index: make(map[string]*Item)}
}

// AddItem appends a new line for the product and selections, or bumps the
// quantity of the existing line with the same signature. Unavailable
// products are rejected without touching the cart.
func (c *Cart) AddItem(product models.Product, options []SelectedOption) (*Item, error) {
	if !product.Available {
		return nil, ErrProductUnavailable
	}

	signature := Signature(product.ID, options)
	if existing, ok := c.index[signature]; ok {
		existing.Quantity++
		return existing, nil
	}

	basePrice := 0.0
	if product.BasePrice != nil {
		basePrice = *product.BasePrice
	}

	item := &Item{
		Signature:   signature,
		ProductID:   product.ID,
		ProductName: product.Name,
		ImageUrl:    product.ImageUrl,
		BasePrice:   basePrice,
		Options:     append([]SelectedOption(nil), options...),
		Quantity:    1,
	}
	c.items = append(c.items, item)
	c.index[signature] = item
	return item, nil
}

// UpdateQuantity steps the quantity of a line up or down. Decreasing a line
// at quantity 1 removes it entirely; an unknown signature is a no-op.
func (c *Cart) UpdateQuantity(signature string, direction Direction) {
	item, ok := c.index[signature]
	if !ok {
		return
	}

	switch direction {
	case Increase:
		item.Quantity++
	case Decrease:
		item.Quantity--
		if item.Quantity <= 0 {
			c.remove(signature)
		}
	}
}

func (c *Cart) RemoveItem(signature string) {
	c.remove(signature)
}

// SetGroupTag labels a single line with the person it is for. The tag is
// display-only: it never becomes part of the line's identity, so two lines
// with identical product and options stay one line regardless of tags.
func (c *Cart) SetGroupTag(signature, tag string) {
	if item, ok := c.index[signature]; ok {
		item.GroupTag = tag
	}
}

// UpdateItemOptions replaces the selections of a line. When the new
// selections resolve to a signature already present in the cart, the two
// lines merge with their quantities summed; otherwise the line moves to its
// new signature keeping its quantity and group tag.
func (c *Cart) UpdateItemOptions(signature string, options []SelectedOption) {
	item, ok := c.index[signature]
	if !ok {
		return
	}

	newSignature := Signature(item.ProductID, options)
	if newSignature == signature {
		item.Options = append([]SelectedOption(nil), options...)
		return
	}

	quantity := item.Quantity
	groupTag := item.GroupTag
	c.remove(signature)

	if existing, ok := c.index[newSignature]; ok {
		existing.Quantity += quantity
		return
	}

	replacement := &Item{
		Signature:   newSignature,
		ProductID:   item.ProductID,
		ProductName: item.ProductName,
		ImageUrl:    item.ImageUrl,
		BasePrice:   item.BasePrice,
		Options:     append([]SelectedOption(nil), options...),
		Quantity:    quantity,
		GroupTag:    groupTag,
	}
	c.items = append(c.items, replacement)
	c.index[newSignature] = replacement
}

// Total is derived, never stored: the sum over all lines of unit price times
// quantity.
func (c *Cart) Total() float64 {
	total := 0.0
	for _, item := range c.items {
		total += item.UnitPrice() * float64(item.Quantity)
	}
	return total
}

func (c *Cart) Items() []*Item {
	return c.items
}

func (c *Cart) Len() int {
	return len(c.items)
}

func (c *Cart) Item(signature string) (*Item, bool) {
	item, ok := c.index[signature]
	return item, ok
}

func (c *Cart) Clear() {
	c.items = nil
	c.index = make(map[string]*Item)
}

type Group struct {
	Tag      string  `json:"tag"`
	Items    []*Item `json:"items"`
	Subtotal float64 `json:"subtotal"`
}

// GroupedView projects the cart into per-recipient groups. Untagged lines
// land in the Unassigned bucket, and groups appear in first-occurrence order
// of their tag among the lines.
func (c *Cart) GroupedView() []Group {
	byTag := make(map[string]int)

	var groups []Group
	for _, item := range c.items {
		tag := item.GroupTag
		if tag == "" {
			tag = UnassignedGroup
		}

		position, ok := byTag[tag]
		if !ok {
			position = len(groups)
			byTag[tag] = position
			groups = append(groups, Group{Tag: tag})
		}

		groups[position].Items = append(groups[position].Items, item)
		groups[position].Subtotal += item.UnitPrice() * float64(item.Quantity)
	}

	return groups
}

func (c *Cart) remove(signature string) {
	if _, ok := c.index[signature]; !ok {
		return
	}
	delete(c.index, signature)
	for i, item := range c.items {
		if item.Signature == signature {
			c.items = append(c.items[:i], c.items[i+1:]...)
			break
		}
	}
}
