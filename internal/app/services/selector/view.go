package selector

// Wizard step names, in flow order.
const (
	StepType     = "type"
	StepQuantity = "quantity"
	StepVersion  = "version"
	StepSupport  = "support"
	StepAdd      = "add"
	StepCart     = "cart"
)

// WizardSteps lists the steps in the order the flow gates them.
var WizardSteps = []string{StepType, StepQuantity, StepVersion, StepSupport, StepAdd, StepCart}

// VersionOther is the sentinel version tab that routes the buyer to a
// contact flow instead of support selection.
const VersionOther = "#other"

// cloudTypes are product types sold through the public cloud marketplaces
// rather than this flow.
var cloudTypes = map[string]bool{
	"aws":   true,
	"azure": true,
}

// StepView is the computed enablement of one wizard step.
type StepView struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

// AddPreview is the single line-item preview shown in the add step.
type AddPreview struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Quantity  string `json:"quantity"`
	Cost      string `json:"cost"`
}

// CartRow is one rendered cart line.
type CartRow struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Quantity  string `json:"quantity"`
	Cost      string `json:"cost"`
}

// CartView is the rendered cart: structured rows plus the HTML fragment
// the storefront injects into the cart section.
type CartView struct {
	Rows     []CartRow `json:"rows"`
	Subtotal string    `json:"subtotal"`
	HTML     string    `json:"html"`
}

// View is the full derived UI state, recomputed from scratch on every
// mutation. Rendering the same state twice yields an identical View.
type View struct {
	Steps         []StepView  `json:"steps"`
	CloudPanel    string      `json:"cloud_panel,omitempty"`
	QuantityLabel string      `json:"quantity_label,omitempty"`
	Version       string      `json:"version,omitempty"`
	AddPreview    *AddPreview `json:"add_preview,omitempty"`
	Cart          CartView    `json:"cart"`
}

// StepEnabled reports whether the named step is enabled in this view.
func (v View) StepEnabled(name string) bool {
	for _, s := range v.Steps {
		if s.Name == name {
			return s.Enabled
		}
	}
	return false
}
