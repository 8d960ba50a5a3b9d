package model

import (
	"github.com/shopspring/decimal"
)

// Plan represents a subscription plan tier.
type Plan string

const (
	PlanFree    Plan = "free"
	PlanStarter Plan = "starter"
	PlanPro     Plan = "pro"
	PlanElite   Plan = "elite"
)

// Paid reports whether the plan requires an active payment.
func (p Plan) Paid() bool {
	return p == PlanStarter || p == PlanPro || p == PlanElite
}

// Valid reports whether the plan is part of the known configuration.
func (p Plan) Valid() bool {
	switch p {
	case PlanFree, PlanStarter, PlanPro, PlanElite:
		return true
	}
	return false
}

// PlanPricing binds a plan to its provider price and monthly amount.
type PlanPricing struct {
	PriceID string          `json:"priceId"`
	Monthly decimal.Decimal `json:"monthly"`
}

// DefaultPlanCatalog lists the purchasable plans with their provider price
// identifiers. Price IDs can be overridden through configuration.
func DefaultPlanCatalog() map[Plan]PlanPricing {
	return map[Plan]PlanPricing{
		PlanStarter: {PriceID: "price_1SXuv80LyafCNcpSqb2bzkuV", Monthly: decimal.NewFromFloat(5.00)},
		PlanPro:     {PriceID: "price_1RxTrF0LyafCNcpSe1VplNxT", Monthly: decimal.NewFromFloat(10.00)},
		PlanElite:   {PriceID: "price_1RxTrg0LyafCNcpSUz4TqZLV", Monthly: decimal.NewFromFloat(29.99)},
	}
}
