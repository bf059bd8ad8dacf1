package checkout

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/example/shiporbit-client/internal/api"
	"github.com/example/shiporbit-client/internal/logging"
)

// State is where the checkout stands.
type State string

const (
	// StateCheckout is the form: ready to accept a payment attempt.
	StateCheckout State = "checkout"
	// StateProcessing means an attempt is in flight; further submissions
	// are rejected until it resolves.
	StateProcessing State = "processing"
	// StateSucceeded is terminal: the shipment is paid.
	StateSucceeded State = "succeeded"
)

// retryMessage is shown when the charge resolves to anything other than
// success or a passable authentication challenge.
const retryMessage = "Payment was not completed. Please try again."

// PaymentsAPI is the slice of the backend client the flow depends on.
type PaymentsAPI interface {
	CreatePaymentIntent(ctx context.Context, params api.CreateIntentParams) (api.PaymentIntent, error)
	ConfirmPayment(ctx context.Context, paymentIntentID string) (api.ConfirmResult, error)
}

// Flow drives one shipment's payment. Tokenization talks only to the
// processor; the backend sees the resulting token, never card data. The
// idempotency key is minted once per flow so a retried create-intent within
// the same attempt cannot double-charge, while a fresh checkout gets a fresh
// key.
type Flow struct {
	backend    PaymentsAPI
	processor  Processor
	shipmentID string
	logger     *slog.Logger

	// newKey is swapped in tests for deterministic keys.
	newKey func() string

	mu             sync.Mutex
	state          State
	message        string
	idempotencyKey string
}

// NewFlow starts a checkout for one shipment.
func NewFlow(backend PaymentsAPI, processor Processor, shipmentID string, logger *slog.Logger) *Flow {
	return &Flow{
		backend:    backend,
		processor:  processor,
		shipmentID: shipmentID,
		logger:     logging.Default(logger),
		newKey:     uuid.NewString,
		state:      StateCheckout,
	}
}

// State returns the flow's position.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Message returns the banner text for the checkout form, empty when there is
// nothing to show.
func (f *Flow) Message() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.message
}

// Pay runs one payment attempt end to end. Every failure path lands back on
// StateCheckout with a message; only a confirmed successful charge reaches
// StateSucceeded.
func (f *Flow) Pay(ctx context.Context) error {
	f.mu.Lock()
	switch f.state {
	case StateProcessing:
		f.mu.Unlock()
		return errors.New("a payment attempt is already in flight")
	case StateSucceeded:
		f.mu.Unlock()
		return errors.New("the shipment is already paid")
	}
	f.state = StateProcessing
	f.message = ""
	if f.idempotencyKey == "" {
		f.idempotencyKey = f.newKey()
	}
	key := f.idempotencyKey
	f.mu.Unlock()

	logger := logging.ServiceLogger(ctx, f.logger, "CheckoutFlow", "Pay", "shipment_id", f.shipmentID)

	// Card details never transit the backend: tokenization failure means
	// the backend was not contacted at all.
	method, err := f.processor.Tokenize(ctx)
	if err != nil {
		logger.WarnContext(ctx, "tokenization failed", "error", err)
		f.fail(userFacing(err))
		return err
	}

	intent, err := f.backend.CreatePaymentIntent(ctx, api.CreateIntentParams{
		ShipmentID:      f.shipmentID,
		PaymentMethodID: method.ID,
		IdempotencyKey:  key,
	})
	if err != nil {
		logger.ErrorContext(ctx, "create intent failed", "error", err, "error_kind", api.ErrorKind(err))
		f.fail(userFacing(err))
		return err
	}

	switch {
	case intent.Status == "succeeded":
		logger.InfoContext(ctx, "payment succeeded")
		f.succeed()
		return nil

	case intent.RequiresAction:
		return f.completeWithAction(ctx, logger, intent)

	default:
		logger.WarnContext(ctx, "payment not completed", "intent_status", intent.Status)
		f.fail(retryMessage)
		return errors.New(retryMessage)
	}
}

// completeWithAction runs the authentication challenge and confirms the
// intent with the backend afterwards.
func (f *Flow) completeWithAction(ctx context.Context, logger *slog.Logger, intent api.PaymentIntent) error {
	if err := f.processor.HandleNextAction(ctx, intent.ClientSecret); err != nil {
		logger.WarnContext(ctx, "authentication challenge failed", "error", err)
		f.fail(retryMessage)
		return err
	}

	result, err := f.backend.ConfirmPayment(ctx, intent.Payment.ProcessorIntentID)
	if err != nil {
		logger.ErrorContext(ctx, "confirm payment failed", "error", err, "error_kind", api.ErrorKind(err))
		f.fail(userFacing(err))
		return err
	}
	if result.Payment.Status != "succeeded" {
		logger.WarnContext(ctx, "payment not completed after confirmation", "intent_status", result.Payment.Status)
		f.fail(retryMessage)
		return errors.New(retryMessage)
	}

	logger.InfoContext(ctx, "payment succeeded after authentication")
	f.succeed()
	return nil
}

func (f *Flow) succeed() {
	f.mu.Lock()
	f.state = StateSucceeded
	f.message = ""
	f.mu.Unlock()
}

func (f *Flow) fail(message string) {
	f.mu.Lock()
	f.state = StateCheckout
	f.message = message
	f.mu.Unlock()
}

func userFacing(err error) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return apiErr.UserMessage()
	}
	if errors.Is(err, ErrDeclined) {
		return "Your card was declined."
	}
	return api.FallbackMessage
}
