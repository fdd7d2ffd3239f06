package backend

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/textproto"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/checkout-flow/internal/domain/checkout"
)

var _ checkout.ProofUploader = (*ProofClient)(nil)

// ProofClient uploads proof-of-payment images for already placed orders.
type ProofClient struct {
	c *Client
}

// NewProofClient returns a ProofClient on the shared Client.
func NewProofClient(c *Client) *ProofClient {
	return &ProofClient{c: c}
}

// UploadProof posts the proof image as multipart form data bound to the
// given order id. Store staff verify the transfer out-of-band.
func (p *ProofClient) UploadProof(ctx context.Context, orderID string, proof checkout.Proof) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if err := mw.WriteField("orderId", orderID); err != nil {
		return errors.Wrap(err, "write order id field")
	}

	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="proof"; filename="`+proof.Filename+`"`)
	hdr.Set("Content-Type", proof.ContentType)
	part, err := mw.CreatePart(hdr)
	if err != nil {
		return errors.Wrap(err, "create proof part")
	}
	if _, err := part.Write(proof.Data); err != nil {
		return errors.Wrap(err, "write proof data")
	}
	if err := mw.Close(); err != nil {
		return errors.Wrap(err, "finalize multipart body")
	}

	data, status, err := p.c.post(ctx, "/api/checkout/upload-proof", mw.FormDataContentType(), &buf)
	if err != nil {
		return err
	}

	var (
		success bool
		message string
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
		default:
			return d.Skip()
		}
	}); err != nil {
		return errors.Wrapf(err, "decode upload response (status %d)", status)
	}

	if !success {
		if message == "" {
			message = "Failed to upload payment proof"
		}
		return &checkout.RejectedError{Message: message}
	}
	return nil
}
