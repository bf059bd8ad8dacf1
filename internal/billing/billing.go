package billing

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/example/shiporbit-client/internal/api"
	"github.com/example/shiporbit-client/internal/checkout"
	"github.com/example/shiporbit-client/internal/logging"
	"github.com/example/shiporbit-client/internal/persistence"
)

// Summary is the billing header: lifetime paid, currently overdue, and paid
// within the current calendar month.
type Summary struct {
	TotalPayments     float64
	OverdueAmount     float64
	ThisMonthPayments float64
}

// Summarize folds the invoice list into the header figures. Amounts arrive
// as strings; one that fails to parse contributes zero instead of failing
// the whole page. "This month" means the paid_at timestamp falls in now's
// calendar month.
func Summarize(invoices []api.Invoice, now time.Time) Summary {
	var summary Summary
	for _, invoice := range invoices {
		amount := checkout.ParseAmount(invoice.TotalAmount)
		switch invoice.Status {
		case api.InvoicePaid:
			summary.TotalPayments += amount
			if paidThisMonth(invoice.PaidAt, now) {
				summary.ThisMonthPayments += amount
			}
		case api.InvoiceOverdue:
			summary.OverdueAmount += amount
		}
	}
	return summary
}

func paidThisMonth(paidAt string, now time.Time) bool {
	t, err := time.Parse(time.RFC3339, paidAt)
	if err != nil {
		// Some records carry a bare date.
		t, err = time.Parse("2006-01-02", paidAt)
		if err != nil {
			return false
		}
	}
	return t.Year() == now.Year() && t.Month() == now.Month()
}

// InvoicesAPI is the slice of the backend client the service depends on.
type InvoicesAPI interface {
	Invoices(ctx context.Context) (api.InvoiceList, error)
}

// Service fetches invoices and keeps the last good list cached so the
// billing page still renders when the backend is unreachable.
type Service struct {
	api    InvoicesAPI
	cache  persistence.InvoiceCache
	now    func() time.Time
	logger *slog.Logger
}

// NewService constructs a Service.
func NewService(backend InvoicesAPI, cache persistence.InvoiceCache, now func() time.Time, logger *slog.Logger) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{api: backend, cache: cache, now: now, logger: logging.Default(logger)}
}

// Page is the rendered billing view: the invoices plus their summary and
// whether they came from the cache.
type Page struct {
	Invoices  []api.Invoice
	Summary   Summary
	FromCache bool
	FetchedAt time.Time
}

// Load fetches the invoice list, falling back to the cached copy when the
// fetch fails. A fetch failure with no cache propagates the error.
func (s *Service) Load(ctx context.Context) (Page, error) {
	logger := logging.ServiceLogger(ctx, s.logger, "BillingService", "Load")
	now := s.now()

	list, err := s.api.Invoices(ctx)
	if err == nil {
		if payload, merr := json.Marshal(list.Results); merr == nil {
			if cerr := s.cache.ReplaceInvoices(ctx, payload, now.UTC()); cerr != nil {
				logger.WarnContext(ctx, "failed to cache invoices", "error", cerr)
			}
		}
		return Page{Invoices: list.Results, Summary: Summarize(list.Results, now), FetchedAt: now}, nil
	}

	logger.WarnContext(ctx, "invoice fetch failed, trying cache", "error", err, "error_kind", api.ErrorKind(err))

	payload, fetchedAt, cerr := s.cache.LoadInvoices(ctx)
	if cerr != nil {
		return Page{}, err
	}
	var invoices []api.Invoice
	if uerr := json.Unmarshal(payload, &invoices); uerr != nil {
		return Page{}, err
	}
	return Page{Invoices: invoices, Summary: Summarize(invoices, now), FromCache: true, FetchedAt: fetchedAt}, nil
}
