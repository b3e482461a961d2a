package dto

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/vsinha/stockroom/pkg/domain/entities"
)

// ProductionResult is a finished run and the batches its materials were drawn from
type ProductionResult struct {
	Run         *entities.ProductionRun      `json:"run"`
	Consumption []entities.ConsumptionResult `json:"consumption"`
}

// SaleItemInput is one requested invoice line; UnitPrice defaults to the selling price
type SaleItemInput struct {
	ProductID int64            `json:"product_id"`
	Quantity  decimal.Decimal  `json:"quantity"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
}

// SaleInput is a new invoice request
type SaleInput struct {
	CustomerName    string          `json:"customer_name"`
	CustomerEmail   string          `json:"customer_email"`
	CustomerPhone   string          `json:"customer_phone"`
	CustomerAddress string          `json:"customer_address"`
	PaymentMethod   string          `json:"payment_method"`
	Notes           string          `json:"notes"`
	Items           []SaleItemInput `json:"items"`
}

// SalesSummary aggregates recorded sales
type SalesSummary struct {
	Count        int             `json:"count"`
	Revenue      decimal.Decimal `json:"revenue"`
	Average      decimal.Decimal `json:"average"`
	TodayRevenue decimal.Decimal `json:"today_revenue"`
	TodayCount   int             `json:"today_count"`
}

// ImportResult reports what a bulk upload created
type ImportResult struct {
	Kind    string `json:"kind"`
	Created int    `json:"created"`
	Updated int    `json:"updated"`
}

// SeedResult reports what a fixture load created
type SeedResult struct {
	Suppliers int `json:"suppliers"`
	Products  int `json:"products"`
	BOMLines  int `json:"bom_lines"`
	Users     int `json:"users"`
	Skipped   int `json:"skipped"`
}

// Session is a logged in user and their bearer token
type Session struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
	User      *entities.User `json:"user"`
}
