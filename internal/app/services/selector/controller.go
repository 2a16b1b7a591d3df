// Package selector implements the product selection wizard: a multi-step
// form whose derived UI state and cart are recomputed from scratch after
// every state mutation.
package selector

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/advantage-shop/shop-service/internal/app/domain/cart"
	"github.com/advantage-shop/shop-service/internal/app/domain/catalog"
	"github.com/advantage-shop/shop-service/internal/app/domain/form"
	"github.com/advantage-shop/shop-service/pkg/logger"
)

// DefaultDebounce is the quiescence window applied to quantity input
// before the value is committed to state.
const DefaultDebounce = time.Second

// Options tunes controller construction.
type Options struct {
	// Debounce overrides the quantity input debounce window.
	Debounce time.Duration
	// DefaultVersion is the version tab marked selected in the markup;
	// it is committed on first render when non-empty.
	DefaultVersion string
	// TypeNames maps a type value to the display name that relabels the
	// quantity step. Missing entries fall back to the raw type value.
	TypeNames map[string]string
	// OnChange, when set, receives every freshly computed view. It is
	// invoked synchronously with the controller lock held and must not
	// call back into the controller.
	OnChange func(View)
	// Log defaults to a "selector" component logger.
	Log *logger.Logger
}

// Controller drives one buyer's trip through the wizard. All exported
// methods are safe for concurrent use; every mutation runs to completion,
// including its render pass, before the next one starts.
type Controller struct {
	mu       sync.Mutex
	products catalog.Provider
	state    *form.State
	cart     *cart.Cart
	renderer *Renderer
	opts     Options
	log      *logger.Logger

	view View

	// Debounced quantity commit.
	pendingQty string
	hasPending bool
	qtyTimer   *time.Timer
	qtyGen     uint64

	closed bool
}

// New constructs a controller over the given catalog. The renderer is
// required; a missing renderer is a wiring error, fatal at startup.
func New(products catalog.Provider, renderer *Renderer, opts Options) (*Controller, error) {
	if products == nil {
		return nil, fmt.Errorf("selector: product catalog is required")
	}
	if renderer == nil {
		return nil, fmt.Errorf("selector: renderer is required")
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Log == nil {
		opts.Log = logger.NewDefault("selector")
	}

	c := &Controller{
		products: products,
		renderer: renderer,
		opts:     opts,
		log:      opts.Log,
	}

	st, err := form.New(WizardSteps, c.render)
	if err != nil {
		return nil, err
	}
	c.state = st
	c.cart = cart.New(c.render)

	if opts.DefaultVersion != "" {
		// First render picks up the tab marked selected in the markup.
		if err := c.state.Set(StepVersion, []string{opts.DefaultVersion}); err != nil {
			return nil, err
		}
	} else {
		c.render()
	}
	return c, nil
}

// View returns the last computed view.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

// SelectType commits a product type choice. Cloud types route to the
// public cloud info panel and take the rest of the wizard out of play, so
// any pending quantity commit is cancelled on that path.
func (c *Controller) SelectType(value string) View {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cloudTypes[value] {
		c.cancelQuantityLocked()
	}
	c.mustSet(StepType, value)
	return c.view
}

// InputQuantity records a quantity keystroke. The value is committed to
// state only after the debounce window passes without another input; a
// burst of inputs commits once, with the last value.
func (c *Controller) InputQuantity(raw string) View {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return c.view
	}

	c.qtyGen++
	gen := c.qtyGen
	if c.qtyTimer != nil {
		c.qtyTimer.Stop()
	}
	c.pendingQty = raw
	c.hasPending = true

	c.qtyTimer = time.AfterFunc(c.opts.Debounce, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.closed || gen != c.qtyGen {
			return
		}
		c.commitQuantityLocked(c.pendingQty)
	})
	return c.view
}

// FlushQuantity commits any pending quantity input immediately.
func (c *Controller) FlushQuantity() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hasPending {
		raw := c.pendingQty
		c.cancelQuantityLocked()
		c.commitQuantityLocked(raw)
	}
	return c.view
}

// SelectVersion commits a version tab choice immediately, no debounce.
func (c *Controller) SelectVersion(value string) View {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mustSet(StepVersion, value)
	return c.view
}

// SelectSupport commits a support level choice.
func (c *Controller) SelectSupport(value string) View {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mustSet(StepSupport, value)
	return c.view
}

// AddToCart merges the previewed line item into the cart and clears the
// wizard fields so the buyer can configure the next product. The caller
// scrolls the cart section into view on success.
func (c *Controller) AddToCart() (View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	preview := c.addPreviewLocked()
	if preview == nil {
		return c.view, fmt.Errorf("selector: add step is not available")
	}

	if existing, ok := c.cart.Find(preview.ProductID); ok {
		merged := parseQuantity(existing.Quantity) + parseQuantity(preview.Quantity)
		c.cart.SetQuantity(preview.ProductID, strconv.FormatInt(merged, 10))
	} else {
		c.cart.Push(cart.LineItem{ProductID: preview.ProductID, Quantity: preview.Quantity})
	}

	c.cancelQuantityLocked()
	c.mustReset(StepType)
	c.mustReset(StepQuantity)
	c.mustReset(StepVersion)
	c.mustReset(StepSupport)
	return c.view, nil
}

// RemoveFromCart removes the line item for the given product id.
func (c *Controller) RemoveFromCart(productID string) View {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cart.Remove(productID)
	return c.view
}

// Snapshot returns the step values and cart items for persistence.
func (c *Controller) Snapshot() (map[string][]string, []cart.LineItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Snapshot(), c.cart.Items()
}

// Restore replaces the wizard state from a persisted snapshot.
func (c *Controller) Restore(steps map[string][]string, items []cart.LineItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelQuantityLocked()
	c.state.Restore(steps)
	c.cart.Restore(items)
}

// Close cancels any scheduled work. The controller must not be used
// afterwards.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelQuantityLocked()
	c.closed = true
}

// --- internals --------------------------------------------------------------

func (c *Controller) mustSet(key, value string) {
	// The step keys are declared at construction, so an unknown key here
	// is a programming error.
	if err := c.state.Set(key, []string{value}); err != nil {
		panic(err)
	}
}

func (c *Controller) mustReset(key string) {
	if err := c.state.Reset(key); err != nil {
		panic(err)
	}
}

func (c *Controller) cancelQuantityLocked() {
	c.qtyGen++
	if c.qtyTimer != nil {
		c.qtyTimer.Stop()
		c.qtyTimer = nil
	}
	c.pendingQty = ""
	c.hasPending = false
}

func (c *Controller) commitQuantityLocked(raw string) {
	c.hasPending = false
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || n <= 0 {
		c.mustReset(StepQuantity)
		return
	}
	c.mustSet(StepQuantity, strconv.FormatInt(n, 10))
}

func parseQuantity(raw string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func (c *Controller) first(key string) string {
	v, err := c.state.First(key)
	if err != nil {
		panic(err)
	}
	return v
}

// render recomputes the entire view from current state. It runs as the
// notification callback of both the form state and the cart, with the
// controller lock already held by the mutating method.
func (c *Controller) render() {
	typeVal := c.first(StepType)
	quantity := c.first(StepQuantity)
	version := c.first(StepVersion)
	support := c.first(StepSupport)

	v := View{Version: version}

	cloud := cloudTypes[typeVal]
	if cloud {
		v.CloudPanel = typeVal
	} else if typeVal != "" {
		if name, ok := c.opts.TypeNames[typeVal]; ok {
			v.QuantityLabel = name
		} else {
			v.QuantityLabel = typeVal
		}
	}

	enabled := map[string]bool{StepType: true}
	if !cloud {
		enabled[StepQuantity] = typeVal != ""
		enabled[StepVersion] = enabled[StepQuantity] && quantity != ""
		enabled[StepSupport] = enabled[StepVersion] && version != "" && version != VersionOther
	}

	preview := c.addPreviewWith(typeVal, quantity, version, support, cloud, enabled)
	enabled[StepAdd] = preview != nil
	v.AddPreview = preview

	v.Cart = c.cartViewLocked()
	enabled[StepCart] = len(v.Cart.Rows) > 0

	for _, step := range WizardSteps {
		v.Steps = append(v.Steps, StepView{Name: step, Enabled: enabled[step]})
	}

	c.view = v
	if c.opts.OnChange != nil {
		c.opts.OnChange(v)
	}
}

// addPreviewLocked recomputes the add preview from current state.
func (c *Controller) addPreviewLocked() *AddPreview {
	typeVal := c.first(StepType)
	quantity := c.first(StepQuantity)
	version := c.first(StepVersion)
	support := c.first(StepSupport)
	cloud := cloudTypes[typeVal]

	enabled := map[string]bool{StepType: true}
	if !cloud {
		enabled[StepQuantity] = typeVal != ""
		enabled[StepVersion] = enabled[StepQuantity] && quantity != ""
		enabled[StepSupport] = enabled[StepVersion] && version != "" && version != VersionOther
	}
	return c.addPreviewWith(typeVal, quantity, version, support, cloud, enabled)
}

func (c *Controller) addPreviewWith(typeVal, quantity, version, support string, cloud bool, enabled map[string]bool) *AddPreview {
	if cloud || version == VersionOther {
		return nil
	}
	if typeVal == "" || quantity == "" || support == "" {
		return nil
	}
	if !enabled[StepSupport] {
		return nil
	}

	productID := fmt.Sprintf("uai-%s-%s", support, typeVal)
	product, ok := c.products.Product(productID)
	if !ok {
		return nil
	}

	qty := parseQuantity(quantity)
	cost := catalog.FormatMajor(catalog.LineMajor(product.Price, qty), product.Price.Currency)
	return &AddPreview{
		ProductID: productID,
		Name:      product.Name,
		Quantity:  quantity,
		Cost:      cost,
	}
}

func (c *Controller) cartViewLocked() CartView {
	items := c.cart.Items()
	view := CartView{}

	var (
		prices     []catalog.Price
		quantities []int64
	)
	currency := ""
	for _, item := range items {
		product, ok := c.products.Product(item.ProductID)
		if !ok {
			c.log.WithField("product_id", item.ProductID).Warn("cart references unknown product")
			continue
		}
		qty := parseQuantity(item.Quantity)
		view.Rows = append(view.Rows, CartRow{
			ProductID: item.ProductID,
			Name:      product.Name,
			Quantity:  item.Quantity,
			Cost:      catalog.FormatMajor(catalog.LineMajor(product.Price, qty), product.Price.Currency),
		})
		prices = append(prices, product.Price)
		quantities = append(quantities, qty)
		if currency == "" {
			currency = product.Price.Currency
		}
	}
	if currency == "" {
		currency = "USD"
	}
	view.Subtotal = catalog.FormatMajor(float64(catalog.SubtotalMajor(prices, quantities)), currency)

	html, err := c.renderer.RenderCart(view)
	if err != nil {
		c.log.WithError(err).Error("cart render failed")
	}
	view.HTML = html
	return view
}
