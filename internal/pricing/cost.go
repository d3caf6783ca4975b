// Package pricing computes per-unit repair cost and labor hours from a
// resolved category's base rates and the requested quantity.
package pricing

import (
	"math"

	"github.com/dtk-group/quote-engine/internal/model"
)

// Discount thresholds and factors are fixed business rules; the base
// rates themselves come from the category reference table.
const (
	archiveDiscountMinQty = 100
	bulkQty               = 20
	midQty                = 10

	archiveFactor = 0.75
	bulkFactor    = 0.5
	midFactor     = 0.2
)

// Compute derives the cost breakdown for one row. archivedQty is the
// aggregate quantity previously shipped from the archive, nil when the
// archive had nothing for this part.
//
// Bulk orders receive a blended discount that only activates above the
// quantity thresholds; the first-10-units cap keeps small-to-mid orders
// (≤20 units) from scaling past a ten-unit equivalent repair cost.
func Compute(quantity int, rule model.CategoryRule, archivedQty *float64) model.CostBreakdown {
	if quantity <= 0 {
		return model.CostBreakdown{}
	}

	lowFactorArchive := 1.0
	if archivedQty != nil && *archivedQty > archiveDiscountMinQty {
		lowFactorArchive = archiveFactor
	}

	lowFactorAmount := 1.0
	switch {
	case quantity > bulkQty:
		lowFactorAmount = bulkFactor
	case quantity > midQty:
		lowFactorAmount = midFactor
	}

	lowFactor := lowFactorArchive * lowFactorAmount

	repairUnits := float64(quantity)
	if quantity <= bulkQty {
		repairUnits = float64(min(quantity, midQty))
	}
	repairFactor := 1.0
	if quantity > bulkQty {
		repairFactor = lowFactor
	}
	repairTotal := repairUnits * rule.RepairBaseCost * repairFactor

	laborFactor := 1.0
	if quantity > midQty {
		laborFactor = lowFactor
	}
	laborTotal := float64(quantity) * rule.LaborBaseHours * laborFactor

	return model.CostBreakdown{
		UnitRepairCost: int(math.Ceil(repairTotal / float64(quantity))),
		UnitLaborHours: int(math.Ceil(laborTotal / float64(quantity))),
	}
}
