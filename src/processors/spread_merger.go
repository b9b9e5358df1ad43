package processors

import (
	"log"

	"github.com/username/optifolio/src/models"
	"github.com/username/optifolio/src/utils"
)

// spreadMergerImpl implements the SpreadMerger interface.
type spreadMergerImpl struct{}

// NewSpreadMerger creates a new instance of SpreadMerger.
func NewSpreadMerger() SpreadMerger {
	return &spreadMergerImpl{}
}

// Merge collapses duplicate orders produced by overlapping imports into one
// order per canonical key. Quantities sum; entry prices merge by
// quantity-weighted average; the later trade date wins. Output preserves
// first-seen key order, so cardinality equals the number of distinct keys.
func (m *spreadMergerImpl) Merge(orders []models.SpreadOrder) []models.SpreadOrder {
	byKey := make(map[string]*models.SpreadOrder)
	var keyOrder []string

	for i := range orders {
		order := &orders[i]
		key := models.CanonicalKeyForOrder(order)
		existing, ok := byKey[key]
		if !ok {
			byKey[key] = order.Clone()
			keyOrder = append(keyOrder, key)
			continue
		}
		mergeOrder(existing, order)
	}

	merged := make([]models.SpreadOrder, 0, len(keyOrder))
	for _, key := range keyOrder {
		merged = append(merged, *byKey[key])
	}
	return merged
}

func mergeOrder(dst, src *models.SpreadOrder) {
	dst.Date = utils.LaterOf(dst.Date, src.Date)

	switch dst.Kind {
	case models.KindCash:
		dst.LowerPrice = src.LowerPrice

	case models.KindStock:
		dst.LowerPrice = utils.WeightedAverage(dst.LowerPrice, dst.Quantity, src.LowerPrice, src.Quantity)
		dst.Quantity += src.Quantity

	case models.KindVertical:
		dst.LowerPrice = utils.WeightedAverage(dst.LowerPrice, dst.Quantity, src.LowerPrice, src.Quantity)
		dst.UpperPrice = utils.WeightedAverage(dst.UpperPrice, dst.Quantity, src.UpperPrice, src.Quantity)
		dst.Quantity += src.Quantity

	case models.KindNakedLong, models.KindNakedShort:
		dst.LowerPrice = utils.WeightedAverage(dst.LowerPrice, dst.Quantity, src.LowerPrice, src.Quantity)
		dst.Quantity += src.Quantity

	default:
		// Multi-leg kinds: equal canonical keys guarantee identical sorted
		// strikes, so legs line up by index.
		if len(dst.Legs) != len(src.Legs) {
			log.Printf("Warning: leg count mismatch merging duplicate orders for key %s (%d vs %d). Keeping first occurrence's legs.",
				models.CanonicalKeyForOrder(dst), len(dst.Legs), len(src.Legs))
			dst.Quantity += src.Quantity
			return
		}
		for i := range dst.Legs {
			dst.Legs[i].Price = utils.WeightedAverage(dst.Legs[i].Price, dst.Legs[i].Quantity, src.Legs[i].Price, src.Legs[i].Quantity)
			dst.Legs[i].Quantity += src.Legs[i].Quantity
		}
		dst.Quantity += src.Quantity
	}
}
