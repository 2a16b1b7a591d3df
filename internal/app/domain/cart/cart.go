// Package cart holds the shopping cart line items for a wizard session.
// The cart is a distinct concrete type composed next to the form state
// rather than nested inside it, but it carries the same contract: every
// mutation fires one synchronous change notification.
package cart

// LineItem is one product entry in the cart. Quantity stays a string end
// to end, as the front end supplied it; it is parsed at the moments the
// flow needs arithmetic (merge-on-add, totals).
type LineItem struct {
	ProductID string `json:"product_id"`
	Quantity  string `json:"quantity"`
}

// NotifyFunc is invoked exactly once after each mutating call.
type NotifyFunc func()

// Cart is an ordered list of line items with at most one entry per
// product id. Not safe for concurrent use; the owning controller
// serializes access.
type Cart struct {
	items  []LineItem
	notify NotifyFunc
}

// New constructs an empty cart. A nil notify is replaced with a no-op.
func New(notify NotifyFunc) *Cart {
	if notify == nil {
		notify = func() {}
	}
	return &Cart{notify: notify}
}

// Items returns a copy of the current line items in insertion order.
func (c *Cart) Items() []LineItem {
	return append([]LineItem(nil), c.items...)
}

// Len returns the number of line items.
func (c *Cart) Len() int {
	return len(c.items)
}

// Find returns the line item for the given product id.
func (c *Cart) Find(productID string) (LineItem, bool) {
	for _, item := range c.items {
		if item.ProductID == productID {
			return item, true
		}
	}
	return LineItem{}, false
}

// Push appends a line item, then notifies.
func (c *Cart) Push(item LineItem) {
	c.items = append(c.items, item)
	c.notify()
}

// SetQuantity replaces the quantity of an existing line item in place,
// then notifies. Unknown product ids are a no-op that still notifies,
// matching Remove.
func (c *Cart) SetQuantity(productID, quantity string) {
	for i := range c.items {
		if c.items[i].ProductID == productID {
			c.items[i].Quantity = quantity
			break
		}
	}
	c.notify()
}

// Remove deletes the line item whose product id matches, then notifies.
// When nothing matches it is a no-op that still notifies.
func (c *Cart) Remove(productID string) {
	kept := c.items[:0]
	for _, item := range c.items {
		if item.ProductID != productID {
			kept = append(kept, item)
		}
	}
	c.items = kept
	c.notify()
}

// Reset drops all line items, then notifies.
func (c *Cart) Reset() {
	c.items = nil
	c.notify()
}

// Restore replaces the line items from a snapshot, then notifies once.
func (c *Cart) Restore(items []LineItem) {
	c.items = append([]LineItem(nil), items...)
	c.notify()
}
