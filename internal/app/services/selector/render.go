package selector

import (
	"bytes"
	"fmt"
	"html/template"
)

// cartFragment mirrors the markup contract of the storefront's cart
// section: one row per line item carrying the data attributes the cart
// actions read back, plus a zero-decimal subtotal.
const cartFragment = `{{if .Rows}}<table class="p-shop-cart__items">
  <tbody>
{{range .Rows}}    <tr class="p-shop-cart__item" data-product-id="{{.ProductID}}">
      <td class="p-shop-cart__name">{{.Name}}</td>
      <td class="p-shop-cart__quantity">{{.Quantity}}</td>
      <td class="p-shop-cart__cost">{{.Cost}}</td>
      <td><button class="js-cart-action" data-action="remove" data-product-id="{{.ProductID}}" data-quantity="{{.Quantity}}">Remove</button></td>
    </tr>
{{end}}  </tbody>
</table>
<p class="p-shop-cart__subtotal">Subtotal: <strong>{{.Subtotal}}</strong></p>
{{else}}<p class="p-shop-cart__empty">Your cart is empty.</p>
{{end}}`

// Renderer produces the cart HTML fragment.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses the cart fragment template. A parse failure is fatal
// to the flow, the same way missing markup is fatal to the storefront.
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.New("cart").Parse(cartFragment)
	if err != nil {
		return nil, fmt.Errorf("parse cart template: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// RenderCart renders the cart rows and subtotal as HTML.
func (r *Renderer) RenderCart(view CartView) (string, error) {
	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("render cart: %w", err)
	}
	return buf.String(), nil
}
