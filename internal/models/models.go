package models

import "time"

// SelectedOption is one configured option on a line item, e.g. size or color.
type SelectedOption struct {
	OptionID int64  `json:"option_id"`
	Value    string `json:"value"`
}

type LineItem struct {
	ProductID int64            `json:"product_id"`
	Quantity  uint             `json:"quantity"`
	Options   []SelectedOption `json:"options,omitempty"`
}

// Cart is a backend-owned aggregate; the id is opaque to this service.
type Cart struct {
	ID    string     `json:"id"`
	Items []LineItem `json:"line_items"`
}

// CartBackup is a time-boxed snapshot of a cart's line items, taken before a
// risky mutation. A backup older than the store's TTL must not be restored.
type CartBackup struct {
	CartID    string     `json:"cart_id"`
	Items     []LineItem `json:"line_items"`
	CreatedAt time.Time  `json:"created_at"`
}

// Session is an authenticated shopper. B2BToken is empty when the secondary
// identity service was unreachable or unconfigured at login. CartID is empty
// while the shopper has no server-side cart pointer.
type Session struct {
	CustomerID  string `json:"customer_id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	AccessToken string `json:"-"`
	B2BToken    string `json:"-"`
	CartID      string `json:"cart_id"`
}
