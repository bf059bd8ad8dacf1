package api

import (
	"context"
	"net/http"
)

// CreateIntentParams asks the backend to create a payment intent for a
// tokenized payment method and a shipment. The idempotency key guards a
// retried submission from charging twice.
type CreateIntentParams struct {
	ShipmentID      string `json:"shipment_id"`
	PaymentMethodID string `json:"payment_method_id"`
	IdempotencyKey  string `json:"-"`
}

// Invoices fetches the shipper's invoices.
func (c *Client) Invoices(ctx context.Context) (InvoiceList, error) {
	var list InvoiceList
	err := c.do(ctx, requestSpec{method: http.MethodGet, path: "/invoices/"}, &list)
	return list, err
}

// CreatePaymentIntent starts a charge attempt.
func (c *Client) CreatePaymentIntent(ctx context.Context, params CreateIntentParams) (PaymentIntent, error) {
	var intent PaymentIntent
	spec := requestSpec{method: http.MethodPost, path: "/payments/create-intent/", body: params}
	if params.IdempotencyKey != "" {
		spec.headers = map[string]string{"Idempotency-Key": params.IdempotencyKey}
	}
	err := c.do(ctx, spec, &intent)
	return intent, err
}

// ConfirmPayment completes an intent after additional authentication.
func (c *Client) ConfirmPayment(ctx context.Context, paymentIntentID string) (ConfirmResult, error) {
	var result ConfirmResult
	err := c.do(ctx, requestSpec{
		method: http.MethodPost,
		path:   "/payments/confirm/",
		body:   map[string]string{"payment_intent_id": paymentIntentID},
	}, &result)
	return result, err
}
