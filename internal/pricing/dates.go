package pricing

import (
	"time"

	"github.com/example/shiporbit-client/internal/api"
)

// dateLayout is the calendar-date format used on the wire and in the UI.
const dateLayout = "2006-01-02"

// DeriveDropoff computes the earliest drop-off date: the pickup date plus the
// lane's minimum transit time in days. An empty or malformed pickup date, or
// a negative transit time, yields an empty result.
func DeriveDropoff(pickup string, transitDays int) string {
	if pickup == "" || transitDays < 0 {
		return ""
	}
	day, err := time.Parse(dateLayout, pickup)
	if err != nil {
		return ""
	}
	return day.AddDate(0, 0, transitDays).Format(dateLayout)
}

// FromQuote derives the drop-off date from a quote, tolerating the quote not
// being resolved yet.
func FromQuote(pickup string, quote *api.PriceQuote) string {
	if quote == nil {
		return ""
	}
	return DeriveDropoff(pickup, quote.MinTransitDays)
}
