package pricing

import (
	"context"
	"log/slog"
	"sync"

	"github.com/example/shiporbit-client/internal/api"
	"github.com/example/shiporbit-client/internal/logging"
)

// QuoteFunc performs the backing distance-price lookup for a lane.
type QuoteFunc func(ctx context.Context, pickup, dropoff api.City, equipment api.Equipment) (api.PriceQuote, error)

// Resolver derives a price quote from the lane inputs. The quote is a pure
// function of (pickup, dropoff, equipment): whenever an input changes the
// previous quote is invalidated immediately, and a completed lookup is
// applied only if no newer input change superseded it.
type Resolver struct {
	fetch  QuoteFunc
	logger *slog.Logger

	mu      sync.Mutex
	quote   *api.PriceQuote
	loading bool
	seq     uint64

	// onSettled, when set, is called after a lookup completes or is
	// discarded. Tests use it to synchronise with the fetch goroutine.
	onSettled func()
}

// NewResolver builds a Resolver over the given quote lookup.
func NewResolver(fetch QuoteFunc, logger *slog.Logger) *Resolver {
	return &Resolver{fetch: fetch, logger: logging.Default(logger)}
}

// SetInputs reacts to the lane inputs changing. With either city missing the
// quote is nil and no request is made. Lookup failures also resolve to a nil
// quote; price display simply stays empty until inputs produce a good quote.
func (r *Resolver) SetInputs(ctx context.Context, pickup, dropoff *api.City, equipment api.Equipment) {
	r.mu.Lock()
	r.seq++
	r.quote = nil

	if pickup == nil || dropoff == nil {
		r.loading = false
		r.mu.Unlock()
		return
	}

	seq := r.seq
	r.loading = true
	from, to := *pickup, *dropoff
	r.mu.Unlock()

	go r.lookup(ctx, seq, from, to, equipment)
}

func (r *Resolver) lookup(ctx context.Context, seq uint64, pickup, dropoff api.City, equipment api.Equipment) {
	quote, err := r.fetch(ctx, pickup, dropoff, equipment)

	r.mu.Lock()
	defer func() {
		settled := r.onSettled
		r.mu.Unlock()
		if settled != nil {
			settled()
		}
	}()

	// An input change superseded this lookup; its result no longer
	// describes the current lane.
	if seq != r.seq {
		return
	}
	r.loading = false

	if err != nil {
		logging.ServiceLogger(ctx, r.logger, "PricingResolver", "lookup",
			"pickup", pickup.Name, "dropoff", dropoff.Name, "equipment", string(equipment)).
			WarnContext(ctx, "quote lookup failed", "error", err, "error_kind", api.ErrorKind(err))
		r.quote = nil
		return
	}
	r.quote = &quote
}

// Quote returns the current quote, or nil when the lane is incomplete or the
// last lookup failed.
func (r *Resolver) Quote() *api.PriceQuote {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.quote == nil {
		return nil
	}
	quote := *r.quote
	return &quote
}

// Loading reports whether a lookup is in flight.
func (r *Resolver) Loading() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loading
}
