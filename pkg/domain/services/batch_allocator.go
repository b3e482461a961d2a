package services

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/vsinha/stockroom/pkg/domain/entities"
)

// PlanConsumption draws quantity from active batches oldest received first.
// Stock the batches cannot cover is reported as Uncovered rather than failing,
// since product stock is the authoritative balance.
func PlanConsumption(productID int64, batches []*entities.Batch, quantity decimal.Decimal) entities.ConsumptionResult {
	result := entities.ConsumptionResult{
		ProductID:    productID,
		Requested:    quantity,
		Consumed:     decimal.Zero,
		Uncovered:    quantity,
		ConsumedFrom: []entities.BatchConsumption{},
	}

	available := make([]*entities.Batch, 0, len(batches))
	for _, b := range batches {
		if b.ProductID == productID && b.Active() {
			available = append(available, b)
		}
	}
	sort.SliceStable(available, func(i, j int) bool {
		if available[i].DateReceived.Equal(available[j].DateReceived) {
			return available[i].ID < available[j].ID
		}
		return available[i].DateReceived.Before(available[j].DateReceived)
	})

	remaining := quantity
	for _, b := range available {
		if !remaining.IsPositive() {
			break
		}
		take := decimal.Min(remaining, b.QuantityRemaining)
		result.ConsumedFrom = append(result.ConsumedFrom, entities.BatchConsumption{
			BatchID:     b.ID,
			BatchNumber: b.BatchNumber,
			Quantity:    take,
		})
		result.Consumed = result.Consumed.Add(take)
		remaining = remaining.Sub(take)
	}

	result.Uncovered = remaining
	return result
}
