package backend

import (
	"bytes"
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/checkout-flow/internal/domain/cart"
	"github.com/xenking/checkout-flow/internal/domain/checkout"
)

var _ checkout.PriceCalculator = (*PricingClient)(nil)

// PricingClient asks the backend for authoritative cart totals. The totals
// are display data: callers keep their last known values on failure.
type PricingClient struct {
	c *Client
}

// NewPricingClient returns a PricingClient on the shared Client.
func NewPricingClient(c *Client) *PricingClient {
	return &PricingClient{c: c}
}

// Calculate posts the cart lines and decodes the pricing breakdown.
func (p *PricingClient) Calculate(ctx context.Context, items []cart.LineItem) (*checkout.Totals, error) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("items")
	encodeLineItems(&e, items)
	e.ObjEnd()

	data, status, err := p.c.post(ctx, "/api/checkout/calculate", "application/json", bytes.NewReader(e.Bytes()))
	if err != nil {
		return nil, err
	}

	var (
		success bool
		message string
		totals  checkout.Totals
	)
	d := jx.DecodeBytes(data)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "success":
			v, err := d.Bool()
			success = v
			return err
		case "message":
			v, err := d.Str()
			message = v
			return err
		case "subtotal":
			return decodeDecimal(d, &totals.Subtotal)
		case "taxes":
			return decodeDecimal(d, &totals.Taxes)
		case "shippingFee":
			return decodeDecimal(d, &totals.ShippingFee)
		case "total":
			return decodeDecimal(d, &totals.Total)
		case "items":
			return d.Arr(func(d *jx.Decoder) error {
				item, err := decodePricedItem(d)
				if err != nil {
					return err
				}
				totals.Items = append(totals.Items, item)
				return nil
			})
		default:
			return d.Skip()
		}
	}); err != nil {
		return nil, errors.Wrapf(err, "decode pricing response (status %d)", status)
	}

	if !success {
		if message == "" {
			message = "price calculation rejected"
		}
		return nil, errors.Errorf("calculate totals: %s", message)
	}
	return &totals, nil
}

func decodePricedItem(d *jx.Decoder) (checkout.PricedItem, error) {
	var item checkout.PricedItem
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "productId":
			v, err := d.Str()
			item.ProductID = v
			return err
		case "productName":
			v, err := d.Str()
			item.ProductName = v
			return err
		case "price":
			return decodeDecimal(d, &item.Price)
		case "quantity":
			v, err := d.Int()
			item.Quantity = v
			return err
		default:
			return d.Skip()
		}
	})
	return item, err
}

// decodeDecimal reads a JSON number into a decimal. Money crosses the wire
// as a plain number, matching the backend contract.
func decodeDecimal(d *jx.Decoder, out *decimal.Decimal) error {
	f, err := d.Float64()
	if err != nil {
		return err
	}
	*out = decimal.NewFromFloat(f)
	return nil
}

func encodeLineItems(e *jx.Encoder, items []cart.LineItem) {
	e.ArrStart()
	for _, item := range items {
		e.ObjStart()
		e.FieldStart("productId")
		e.Str(item.ProductID)
		e.FieldStart("quantity")
		e.Int(item.Quantity)
		e.ObjEnd()
	}
	e.ArrEnd()
}
