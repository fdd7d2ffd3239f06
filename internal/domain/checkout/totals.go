package checkout

import "github.com/shopspring/decimal"

// Totals is the authoritative pricing breakdown for the current cart. It is
// derived data: always replaced wholesale by the pricing backend's response,
// never recomputed locally from line items, so client and server prices
// cannot drift.
type Totals struct {
	Subtotal    decimal.Decimal
	Taxes       decimal.Decimal
	ShippingFee decimal.Decimal
	Total       decimal.Decimal
	Items       []PricedItem
}

// PricedItem is a cart line as priced by the backend.
type PricedItem struct {
	ProductID   string
	ProductName string
	Price       decimal.Decimal
	Quantity    int
}
