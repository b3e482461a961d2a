package services

import (
	"fmt"
	"time"
)

// InvoiceNumberer formats invoice numbers as INV-YYYYMMDD-HHMMSS
type InvoiceNumberer struct {
	now func() time.Time
}

// NewInvoiceNumberer creates a numberer using the wall clock
func NewInvoiceNumberer() *InvoiceNumberer {
	return &InvoiceNumberer{now: time.Now}
}

// NewInvoiceNumbererWithClock creates a numberer with a fixed clock, for tests and imports
func NewInvoiceNumbererWithClock(now func() time.Time) *InvoiceNumberer {
	return &InvoiceNumberer{now: now}
}

// Next returns the invoice number for attempt; attempts after the first get a -N suffix
// so two sales in the same second stay unique.
func (n *InvoiceNumberer) Next(attempt int) string {
	base := "INV-" + n.now().Format("20060102-150405")
	if attempt <= 0 {
		return base
	}
	return fmt.Sprintf("%s-%d", base, attempt+1)
}
