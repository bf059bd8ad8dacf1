package checkout

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/shiporbit-client/internal/api"
	"github.com/example/shiporbit-client/internal/testfixtures"
)

type stubProcessor struct {
	method      PaymentMethod
	tokenizeErr error
	actionErr   error

	tokenizeCalls int
	actionSecrets []string
}

func (p *stubProcessor) Tokenize(ctx context.Context) (PaymentMethod, error) {
	p.tokenizeCalls++
	if p.tokenizeErr != nil {
		return PaymentMethod{}, p.tokenizeErr
	}
	return p.method, nil
}

func (p *stubProcessor) HandleNextAction(ctx context.Context, clientSecret string) error {
	p.actionSecrets = append(p.actionSecrets, clientSecret)
	return p.actionErr
}

type stubPaymentsAPI struct {
	intent     api.PaymentIntent
	intentErr  error
	confirm    api.ConfirmResult
	confirmErr error

	createParams []api.CreateIntentParams
	confirmIDs   []string
}

func (b *stubPaymentsAPI) CreatePaymentIntent(ctx context.Context, params api.CreateIntentParams) (api.PaymentIntent, error) {
	b.createParams = append(b.createParams, params)
	return b.intent, b.intentErr
}

func (b *stubPaymentsAPI) ConfirmPayment(ctx context.Context, paymentIntentID string) (api.ConfirmResult, error) {
	b.confirmIDs = append(b.confirmIDs, paymentIntentID)
	return b.confirm, b.confirmErr
}

var testKeys = testfixtures.NewIDGenerator("key")

func newTestFlow(backend PaymentsAPI, processor Processor) *Flow {
	f := NewFlow(backend, processor, "shp-100", nil)
	f.newKey = testKeys.NextFunc()
	return f
}

func TestFlowPaySucceeded(t *testing.T) {
	processor := &stubProcessor{method: PaymentMethod{ID: "pm_123"}}
	backend := &stubPaymentsAPI{
		intent: api.PaymentIntent{Status: "succeeded"},
	}
	flow := newTestFlow(backend, processor)

	err := flow.Pay(context.Background())

	require.NoError(t, err)
	assert.Equal(t, StateSucceeded, flow.State())
	assert.Empty(t, flow.Message())

	require.Len(t, backend.createParams, 1)
	assert.Equal(t, "shp-100", backend.createParams[0].ShipmentID)
	assert.Equal(t, "pm_123", backend.createParams[0].PaymentMethodID)
	assert.Empty(t, backend.confirmIDs, "no confirmation needed for an immediate success")
}

func TestFlowPayTokenizationFailure(t *testing.T) {
	processor := &stubProcessor{tokenizeErr: ErrDeclined}
	backend := &stubPaymentsAPI{}
	flow := newTestFlow(backend, processor)

	err := flow.Pay(context.Background())

	require.Error(t, err)
	assert.Equal(t, StateCheckout, flow.State())
	assert.Equal(t, "Your card was declined.", flow.Message())
	assert.Empty(t, backend.createParams, "tokenization failure must not reach the backend")
}

func TestFlowPayRequiresAction(t *testing.T) {
	t.Run("challenge passes and confirmation succeeds", func(t *testing.T) {
		processor := &stubProcessor{method: PaymentMethod{ID: "pm_123"}}
		backend := &stubPaymentsAPI{
			intent: api.PaymentIntent{
				Payment:        api.IntentRef{ProcessorIntentID: "pi_42"},
				ClientSecret:   "pi_42_secret",
				Status:         "requires_action",
				RequiresAction: true,
			},
			confirm: api.ConfirmResult{Payment: api.IntentRef{ProcessorIntentID: "pi_42", Status: "succeeded"}},
		}
		flow := newTestFlow(backend, processor)

		err := flow.Pay(context.Background())

		require.NoError(t, err)
		assert.Equal(t, StateSucceeded, flow.State())
		require.Len(t, processor.actionSecrets, 1)
		assert.Equal(t, "pi_42_secret", processor.actionSecrets[0])
		require.Len(t, backend.confirmIDs, 1)
		assert.Equal(t, "pi_42", backend.confirmIDs[0])
	})

	t.Run("failed challenge returns to checkout", func(t *testing.T) {
		processor := &stubProcessor{
			method:    PaymentMethod{ID: "pm_123"},
			actionErr: errors.New("authentication failed"),
		}
		backend := &stubPaymentsAPI{
			intent: api.PaymentIntent{
				ClientSecret:   "pi_42_secret",
				Status:         "requires_action",
				RequiresAction: true,
			},
		}
		flow := newTestFlow(backend, processor)

		err := flow.Pay(context.Background())

		require.Error(t, err)
		assert.Equal(t, StateCheckout, flow.State())
		assert.Equal(t, "Payment was not completed. Please try again.", flow.Message())
		assert.Empty(t, backend.confirmIDs, "failed challenge must not be confirmed")
	})

	t.Run("confirmation that does not succeed returns to checkout", func(t *testing.T) {
		processor := &stubProcessor{method: PaymentMethod{ID: "pm_123"}}
		backend := &stubPaymentsAPI{
			intent: api.PaymentIntent{
				Payment:        api.IntentRef{ProcessorIntentID: "pi_42"},
				ClientSecret:   "pi_42_secret",
				Status:         "requires_action",
				RequiresAction: true,
			},
			confirm: api.ConfirmResult{Payment: api.IntentRef{Status: "requires_payment_method"}},
		}
		flow := newTestFlow(backend, processor)

		err := flow.Pay(context.Background())

		require.Error(t, err)
		assert.Equal(t, StateCheckout, flow.State())
		assert.Equal(t, "Payment was not completed. Please try again.", flow.Message())
	})
}

func TestFlowPayOtherOutcome(t *testing.T) {
	processor := &stubProcessor{method: PaymentMethod{ID: "pm_123"}}
	backend := &stubPaymentsAPI{
		intent: api.PaymentIntent{Status: "requires_payment_method"},
	}
	flow := newTestFlow(backend, processor)

	err := flow.Pay(context.Background())

	require.Error(t, err)
	assert.Equal(t, StateCheckout, flow.State())
	assert.Equal(t, "Payment was not completed. Please try again.", flow.Message())
}

func TestFlowPayBackendRejection(t *testing.T) {
	processor := &stubProcessor{method: PaymentMethod{ID: "pm_123"}}
	backend := &stubPaymentsAPI{
		intentErr: &api.Error{StatusCode: 400, Message: "Shipment is already paid."},
	}
	flow := newTestFlow(backend, processor)

	err := flow.Pay(context.Background())

	require.Error(t, err)
	assert.Equal(t, StateCheckout, flow.State())
	assert.Equal(t, "Shipment is already paid.", flow.Message())
}

func TestFlowIdempotencyKeyStableWithinFlow(t *testing.T) {
	processor := &stubProcessor{method: PaymentMethod{ID: "pm_123"}}
	backend := &stubPaymentsAPI{
		intent: api.PaymentIntent{Status: "requires_payment_method"},
	}
	flow := newTestFlow(backend, processor)

	_ = flow.Pay(context.Background())
	_ = flow.Pay(context.Background())

	require.Len(t, backend.createParams, 2)
	assert.Equal(t, backend.createParams[0].IdempotencyKey, backend.createParams[1].IdempotencyKey,
		"retries within one flow reuse the key")

	fresh := newTestFlow(backend, processor)
	_ = fresh.Pay(context.Background())

	require.Len(t, backend.createParams, 3)
	assert.NotEqual(t, backend.createParams[0].IdempotencyKey, backend.createParams[2].IdempotencyKey,
		"a fresh checkout mints a fresh key")
}

func TestFlowPayTerminalStates(t *testing.T) {
	processor := &stubProcessor{method: PaymentMethod{ID: "pm_123"}}
	backend := &stubPaymentsAPI{intent: api.PaymentIntent{Status: "succeeded"}}
	flow := newTestFlow(backend, processor)

	require.NoError(t, flow.Pay(context.Background()))
	err := flow.Pay(context.Background())

	require.Error(t, err)
	assert.Equal(t, StateSucceeded, flow.State())
	assert.Len(t, backend.createParams, 1, "a paid shipment must not be charged again")
}

func TestMockProcessor(t *testing.T) {
	t.Run("tokenizes deterministically", func(t *testing.T) {
		p := NewMockProcessor(1)
		first, err := p.Tokenize(context.Background())
		require.NoError(t, err)
		second, err := p.Tokenize(context.Background())
		require.NoError(t, err)
		assert.NotEqual(t, first.ID, second.ID)
	})

	t.Run("full failure rate always declines", func(t *testing.T) {
		p := NewMockProcessor(1)
		p.FailureRate = 1
		_, err := p.Tokenize(context.Background())
		assert.ErrorIs(t, err, ErrDeclined)
	})

	t.Run("challenge needs a secret", func(t *testing.T) {
		p := NewMockProcessor(1)
		assert.Error(t, p.HandleNextAction(context.Background(), ""))
		assert.NoError(t, p.HandleNextAction(context.Background(), "pi_42_secret"))
	})
}

func TestParseAmount(t *testing.T) {
	assert.Equal(t, 450.0, ParseAmount("450.00"))
	assert.Equal(t, 612.5, ParseAmount(" 612.50 "))
	assert.Equal(t, 0.0, ParseAmount("not-a-number"))
	assert.Equal(t, 0.0, ParseAmount(""))
}

func TestFormatUSD(t *testing.T) {
	assert.Equal(t, "$450.00", FormatUSD(450))
	assert.Equal(t, "$612.50", FormatUSD(612.5))
}
