// Package cart keeps the shopper's selected lines and their derived subtotal.
// Prices and names are display copies; the server re-prices every line at
// checkout.
package cart

import (
	"sync"

	"github.com/shopspring/decimal"

	"storefront-api/internal/models"
)

type Item struct {
	ProductID string           `json:"product"`
	VariantID string           `json:"selectedVariant,omitempty"`
	Quantity  int              `json:"quantity"`
	Price     float64          `json:"price"`
	Name      models.Bilingual `json:"name"`
	Image     string           `json:"image,omitempty"`
}

type key struct {
	product, variant string
}

func (it Item) key() key { return key{it.ProductID, it.VariantID} }

// Cart is safe for concurrent use. Lines keep insertion order.
type Cart struct {
	mu    sync.RWMutex
	items []Item
}

func New() *Cart {
	return &Cart{}
}

// Add merges it into an existing line for the same product and variant,
// refreshing the cached price, name and image. Non-positive quantities are
// ignored.
func (c *Cart) Add(it Item) {
	if it.Quantity <= 0 || it.ProductID == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if i := c.indexOf(it.key()); i >= 0 {
		cur := &c.items[i]
		cur.Quantity += it.Quantity
		cur.Price = it.Price
		cur.Name = it.Name
		if it.Image != "" {
			cur.Image = it.Image
		}
		return
	}
	c.items = append(c.items, it)
}

// SetQuantity replaces a line's quantity; zero or less removes the line.
// It reports whether the line existed.
func (c *Cart) SetQuantity(productID, variantID string, qty int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(key{productID, variantID})
	if i < 0 {
		return false
	}
	if qty <= 0 {
		c.removeAt(i)
		return true
	}
	c.items[i].Quantity = qty
	return true
}

func (c *Cart) Remove(productID, variantID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(key{productID, variantID})
	if i < 0 {
		return false
	}
	c.removeAt(i)
	return true
}

// Items returns a copy of the lines.
func (c *Cart) Items() []Item {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

// Subtotal is the sum of price × quantity over all lines.
func (c *Cart) Subtotal() decimal.Decimal {
	c.mu.RLock()
	defer c.mu.RUnlock()
	sum := decimal.Zero
	for _, it := range c.items {
		sum = sum.Add(decimal.NewFromFloat(it.Price).Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return sum
}

// Count is the number of units across all lines.
func (c *Cart) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, it := range c.items {
		n += it.Quantity
	}
	return n
}

func (c *Cart) IsEmpty() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items) == 0
}

func (c *Cart) Clear() {
	c.mu.Lock()
	c.items = nil
	c.mu.Unlock()
}

// OrderItems maps the lines onto an order submission.
func (c *Cart) OrderItems() []models.OrderLine {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.OrderLine, 0, len(c.items))
	for _, it := range c.items {
		out = append(out, models.OrderLine{Product: it.ProductID, Variant: it.VariantID, Quantity: it.Quantity})
	}
	return out
}

func (c *Cart) indexOf(k key) int {
	for i := range c.items {
		if c.items[i].key() == k {
			return i
		}
	}
	return -1
}

func (c *Cart) removeAt(i int) {
	c.items = append(c.items[:i], c.items[i+1:]...)
}
