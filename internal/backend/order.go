package backend

import (
	"bytes"
	"context"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/checkout-flow/internal/domain/checkout"
)

var _ checkout.OrderPlacer = (*OrderClient)(nil)

// OrderClient submits order-creation requests to the backend.
type OrderClient struct {
	c *Client
}

// NewOrderClient returns an OrderClient on the shared Client.
func NewOrderClient(c *Client) *OrderClient {
	return &OrderClient{c: c}
}

// PlaceOrder posts the normalized shipping form, the cart lines, and the
// last known tax/shipping figures. A delivered-but-refused request comes
// back as *checkout.RejectedError carrying the backend's reason; any other
// error is a transport failure.
func (o *OrderClient) PlaceOrder(ctx context.Context, req checkout.OrderRequest) (*checkout.OrderConfirmation, error) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("firstName")
	e.Str(req.Form.FirstName)
	e.FieldStart("lastName")
	e.Str(req.Form.LastName)
	e.FieldStart("email")
	e.Str(req.Form.Email)
	e.FieldStart("address")
	e.Str(req.Form.Address)
	e.FieldStart("city")
	e.Str(req.Form.City)
	if req.Form.PostCode != "" {
		// A blank postal code is absent, never an empty string.
		e.FieldStart("postCode")
		e.Str(req.Form.PostCode)
	}
	e.FieldStart("country")
	e.Str(req.Form.Country)
	e.FieldStart("mobileNumber")
	e.Str(req.Form.MobileNumber)
	e.FieldStart("paymentMethod")
	e.Str(string(req.Form.PaymentMethod))
	if req.Form.PaymentMethod == checkout.PaymentOnline {
		e.FieldStart("onlinePaymentOption")
		e.Str(string(req.Form.OnlinePaymentOption))
	}
	e.FieldStart("saveInfo")
	e.Bool(req.Form.SaveInfo)
	e.FieldStart("items")
	encodeLineItems(&e, req.Items)
	e.FieldStart("taxes")
	e.Float64(req.Taxes.InexactFloat64())
	e.FieldStart("shippingFee")
	e.Float64(req.ShippingFee.InexactFloat64())
	e.ObjEnd()

	data, status, err := o.c.post(ctx, "/api/checkout/process", "application/json", bytes.NewReader(e.Bytes()))
	if err != nil {
		return nil, err
	}

	var (
		success bool
		message string
		orderID string
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
		case "order":
			return d.Obj(func(d *jx.Decoder, key string) error {
				if key != "id" {
					return d.Skip()
				}
				v, err := d.Str()
				orderID = v
				return err
			})
		default:
			return d.Skip()
		}
	}); err != nil {
		return nil, errors.Wrapf(err, "decode order response (status %d)", status)
	}

	if !success {
		if message == "" {
			message = "Failed to place order"
		}
		return nil, &checkout.RejectedError{Message: message}
	}
	if orderID == "" || status >= http.StatusBadRequest {
		return nil, errors.Errorf("order response missing id (status %d)", status)
	}

	return &checkout.OrderConfirmation{OrderID: orderID}, nil
}
