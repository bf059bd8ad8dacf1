package billing

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/shiporbit-client/internal/api"
	"github.com/example/shiporbit-client/internal/testfixtures"
)

func sampleInvoices() []api.Invoice {
	return []api.Invoice{
		{ID: 1, InvoiceNumber: "INV-001", TotalAmount: "450.00", Status: api.InvoicePaid, PaidAt: "2025-03-02T14:00:00Z"},
		{ID: 2, InvoiceNumber: "INV-002", TotalAmount: "612.50", Status: api.InvoicePaid, PaidAt: "2025-02-20T09:30:00Z"},
		{ID: 3, InvoiceNumber: "INV-003", TotalAmount: "300.00", Status: api.InvoiceOverdue},
		{ID: 4, InvoiceNumber: "INV-004", TotalAmount: "125.00", Status: api.InvoicePending},
		{ID: 5, InvoiceNumber: "INV-005", TotalAmount: "80.00", Status: api.InvoicePaid, PaidAt: "2025-03-08"},
	}
}

func TestSummarize(t *testing.T) {
	now := testfixtures.ReferenceTime() // 2025-03-10

	t.Run("splits totals by status and month", func(t *testing.T) {
		summary := Summarize(sampleInvoices(), now)

		assert.InDelta(t, 1142.50, summary.TotalPayments, 0.001, "all paid invoices count")
		assert.InDelta(t, 300.00, summary.OverdueAmount, 0.001, "only overdue invoices count")
		assert.InDelta(t, 530.00, summary.ThisMonthPayments, 0.001, "only March payments count")
	})

	t.Run("empty list yields zeros", func(t *testing.T) {
		assert.Equal(t, Summary{}, Summarize(nil, now))
	})

	t.Run("unparseable amount contributes zero", func(t *testing.T) {
		invoices := []api.Invoice{
			{TotalAmount: "garbage", Status: api.InvoicePaid, PaidAt: "2025-03-02T14:00:00Z"},
			{TotalAmount: "100.00", Status: api.InvoicePaid, PaidAt: "2025-03-02T14:00:00Z"},
		}
		summary := Summarize(invoices, now)
		assert.InDelta(t, 100.00, summary.TotalPayments, 0.001)
	})

	t.Run("missing paid_at never counts toward the month", func(t *testing.T) {
		invoices := []api.Invoice{{TotalAmount: "100.00", Status: api.InvoicePaid}}
		summary := Summarize(invoices, now)
		assert.InDelta(t, 100.00, summary.TotalPayments, 0.001)
		assert.Zero(t, summary.ThisMonthPayments)
	})

	t.Run("previous year same month does not count", func(t *testing.T) {
		invoices := []api.Invoice{
			{TotalAmount: "100.00", Status: api.InvoicePaid, PaidAt: "2024-03-02T14:00:00Z"},
		}
		summary := Summarize(invoices, now)
		assert.Zero(t, summary.ThisMonthPayments)
	})
}

type stubInvoicesAPI struct {
	list api.InvoiceList
	err  error
}

func (s *stubInvoicesAPI) Invoices(ctx context.Context) (api.InvoiceList, error) {
	return s.list, s.err
}

type memoryInvoiceCache struct {
	payload   []byte
	fetchedAt time.Time
}

func (c *memoryInvoiceCache) ReplaceInvoices(ctx context.Context, payload []byte, fetchedAt time.Time) error {
	c.payload = append([]byte(nil), payload...)
	c.fetchedAt = fetchedAt
	return nil
}

func (c *memoryInvoiceCache) LoadInvoices(ctx context.Context) ([]byte, time.Time, error) {
	if c.payload == nil {
		return nil, time.Time{}, errors.New("no cached invoices")
	}
	return c.payload, c.fetchedAt, nil
}

func TestServiceLoad(t *testing.T) {
	ctx := context.Background()
	clock := testfixtures.NewClock(testfixtures.ReferenceTime())

	t.Run("fetch refreshes the cache", func(t *testing.T) {
		backend := &stubInvoicesAPI{list: api.InvoiceList{Results: sampleInvoices()}}
		cache := &memoryInvoiceCache{}
		service := NewService(backend, cache, clock.Now, nil)

		page, err := service.Load(ctx)

		require.NoError(t, err)
		assert.False(t, page.FromCache)
		assert.Len(t, page.Invoices, 5)
		assert.InDelta(t, 1142.50, page.Summary.TotalPayments, 0.001)

		var cached []api.Invoice
		require.NoError(t, json.Unmarshal(cache.payload, &cached))
		assert.Len(t, cached, 5)
	})

	t.Run("fetch failure falls back to the cache", func(t *testing.T) {
		cache := &memoryInvoiceCache{}
		warm := NewService(&stubInvoicesAPI{list: api.InvoiceList{Results: sampleInvoices()}}, cache, clock.Now, nil)
		_, err := warm.Load(ctx)
		require.NoError(t, err)

		service := NewService(&stubInvoicesAPI{err: errors.New("dial tcp: connection refused")}, cache, clock.Now, nil)
		page, err := service.Load(ctx)

		require.NoError(t, err)
		assert.True(t, page.FromCache)
		assert.Len(t, page.Invoices, 5)
	})

	t.Run("fetch failure with a cold cache propagates", func(t *testing.T) {
		fetchErr := errors.New("dial tcp: connection refused")
		service := NewService(&stubInvoicesAPI{err: fetchErr}, &memoryInvoiceCache{}, clock.Now, nil)

		_, err := service.Load(ctx)

		assert.ErrorIs(t, err, fetchErr)
	})
}
