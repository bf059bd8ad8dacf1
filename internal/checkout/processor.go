package checkout

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
)

// PaymentMethod is the processor-side token standing in for card details.
// Raw card data stays between the cardholder and the processor; only this
// token ever reaches the backend.
type PaymentMethod struct {
	ID string
}

// Processor is the card processor's client-side surface.
type Processor interface {
	// Tokenize exchanges the entered card details for a payment method
	// token.
	Tokenize(ctx context.Context) (PaymentMethod, error)
	// HandleNextAction runs the processor's additional authentication
	// challenge (3-D Secure and friends) for an intent that demands it.
	HandleNextAction(ctx context.Context, clientSecret string) error
}

// ErrDeclined is what a processor returns when the card is refused.
var ErrDeclined = errors.New("card declined")

// MockProcessor simulates the processor for development and tests. A
// FailureRate between 0 and 1 makes a matching fraction of tokenizations
// fail; AuthFails makes every authentication challenge fail.
type MockProcessor struct {
	FailureRate float64
	AuthFails   bool

	mu      sync.Mutex
	rand    *rand.Rand
	counter int
}

// NewMockProcessor seeds a deterministic mock.
func NewMockProcessor(seed int64) *MockProcessor {
	return &MockProcessor{rand: rand.New(rand.NewSource(seed))}
}

func (p *MockProcessor) Tokenize(ctx context.Context) (PaymentMethod, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.rand != nil && p.rand.Float64() < p.FailureRate {
		return PaymentMethod{}, ErrDeclined
	}
	p.counter++
	return PaymentMethod{ID: fmt.Sprintf("pm_mock_%06d", p.counter)}, nil
}

func (p *MockProcessor) HandleNextAction(ctx context.Context, clientSecret string) error {
	if clientSecret == "" {
		return errors.New("missing client secret")
	}
	if p.AuthFails {
		return errors.New("authentication failed")
	}
	return nil
}
