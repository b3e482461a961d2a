package entities

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethods lists the accepted payment methods
var PaymentMethods = []string{"Cash", "Credit Card", "Debit Card", "Bank Transfer", "Check", "Other"}

// SaleItem is one finished product line on an invoice
type SaleItem struct {
	ID          int64           `json:"id"`
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	ProductSKU  SKU             `json:"product_sku"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

// Sale is a customer invoice
type Sale struct {
	ID            int64           `json:"id"`
	InvoiceNumber string          `json:"invoice_number"`
	CustomerName  string          `json:"customer_name"`
	CustomerEmail string          `json:"customer_email,omitempty"`
	CustomerPhone string          `json:"customer_phone,omitempty"`
	CustomerAddr  string          `json:"customer_address,omitempty"`
	PaymentMethod string          `json:"payment_method"`
	SaleDate      time.Time       `json:"sale_date"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Notes         string          `json:"notes,omitempty"`
	Items         []SaleItem      `json:"items"`
}

// NewSale creates a validated Sale and computes line and invoice totals
func NewSale(customerName, paymentMethod string, items []SaleItem, at time.Time) (*Sale, error) {
	customerName = strings.TrimSpace(customerName)
	if customerName == "" {
		return nil, Invalidf("customer name cannot be empty")
	}
	if len(items) == 0 {
		return nil, Invalidf("sale must have at least one item")
	}
	if paymentMethod == "" {
		paymentMethod = PaymentMethods[0]
	}
	if !validPaymentMethod(paymentMethod) {
		return nil, Invalidf("unknown payment method %q", paymentMethod)
	}
	for i, item := range items {
		if item.ProductID <= 0 {
			return nil, Invalidf("item %d: product must be selected", i+1)
		}
		if !item.Quantity.IsPositive() {
			return nil, Invalidf("item %d: quantity must be positive, got %s", i+1, item.Quantity)
		}
		if item.UnitPrice.IsNegative() {
			return nil, Invalidf("item %d: unit price cannot be negative, got %s", i+1, item.UnitPrice)
		}
	}

	s := &Sale{
		CustomerName:  customerName,
		PaymentMethod: paymentMethod,
		SaleDate:      at.UTC(),
		Items:         items,
	}
	s.Recalculate()
	return s, nil
}

// Recalculate refreshes item totals and the invoice total
func (s *Sale) Recalculate() {
	total := decimal.Zero
	for i := range s.Items {
		s.Items[i].TotalPrice = s.Items[i].Quantity.Mul(s.Items[i].UnitPrice).Round(2)
		total = total.Add(s.Items[i].TotalPrice)
	}
	s.TotalAmount = total
}

func validPaymentMethod(m string) bool {
	for _, pm := range PaymentMethods {
		if pm == m {
			return true
		}
	}
	return false
}
