package processors

import (
	"fmt"
	"log"

	"github.com/username/optifolio/src/models"
	"github.com/username/optifolio/src/utils"
)

// positionMergerImpl implements the PositionMerger interface.
type positionMergerImpl struct{}

// NewPositionMerger creates a new instance of PositionMerger.
func NewPositionMerger() PositionMerger {
	return &positionMergerImpl{}
}

// Merge reconciles pre-merged spread orders against the existing position
// set. Unknown keys become new positions. Stock legs apply signed deltas,
// cash legs replace their price, and option positions pass a
// strictly-after-lastTxnDate dedup gate before a per-leg weighted-average
// cost-basis merge. Orders stopped by the gate are counted, never dropped
// silently; re-running a transaction set whose dates do not exceed the
// stored high-water marks therefore produces zero net change.
func (m *positionMergerImpl) Merge(existing map[string]*models.Position, orders []models.SpreadOrder) MergeOutcome {
	outcome := MergeOutcome{}
	touched := make(map[string]bool)

	for i := range orders {
		order := &orders[i]
		key := models.CanonicalKeyForOrder(order)

		pos, found := existing[key]
		if !found {
			created := NewPositionFromOrder(order, key)
			existing[key] = created
			outcome.Created = append(outcome.Created, created)
			continue
		}

		switch order.Kind {
		case models.KindStock:
			if order.Quantity == 0 && order.Date.IsZero() {
				outcome.Skipped++
				continue
			}
			leg := &pos.Legs[0]
			leg.Quantity += order.Quantity
			if !order.LowerPrice.IsZero() {
				leg.AvgPrice = order.LowerPrice
			}
			if !order.Date.IsZero() {
				pos.LastTxnDate = utils.LaterOf(pos.LastTxnDate, order.Date)
			}

		case models.KindCash:
			// Cash has no quantity or average-price semantics; the balance
			// simply replaces the previous one.
			pos.Legs[0].AvgPrice = order.LowerPrice
			if !order.Date.IsZero() {
				pos.LastTxnDate = utils.LaterOf(pos.LastTxnDate, order.Date)
			}

		default:
			// Dedup gate: anything not strictly newer than the high-water
			// mark was already applied by a prior run.
			if !order.Date.After(pos.LastTxnDate) {
				outcome.Skipped++
				continue
			}
			mergeOptionLegs(pos, order)
			pos.LastTxnDate = utils.LaterOf(pos.LastTxnDate, order.Date)
		}

		if !touched[key] {
			touched[key] = true
			outcome.Updated = append(outcome.Updated, pos)
		}
	}

	return outcome
}

// mergeOptionLegs applies the weighted-average cost-basis update to each leg
// of the position independently. The short side keeps its quantity negative
// throughout.
func mergeOptionLegs(pos *models.Position, order *models.SpreadOrder) {
	for _, addedLeg := range OrderLegs(order) {
		leg := findMatchingLeg(pos, &addedLeg)
		if leg == nil {
			log.Printf("Warning: no matching leg on position %s for %s %s; appending.",
				pos.CanonicalKey, addedLeg.LegType, models.FormatStrike(addedLeg.Strike))
			pos.Legs = append(pos.Legs, addedLeg)
			continue
		}
		newQty := leg.Quantity + addedLeg.Quantity
		if newQty != 0 {
			leg.AvgPrice = utils.WeightedAverage(leg.AvgPrice, leg.Quantity, addedLeg.AvgPrice, addedLeg.Quantity)
		}
		leg.Quantity = newQty
	}
}

// findMatchingLeg locates the position leg an order leg merges into: same
// contract on the same side of the market.
func findMatchingLeg(pos *models.Position, added *models.PositionLeg) *models.PositionLeg {
	for i := range pos.Legs {
		leg := &pos.Legs[i]
		if leg.LegType != added.LegType || !leg.Strike.Equal(added.Strike) {
			continue
		}
		if (leg.Quantity < 0) == (added.Quantity < 0) {
			return leg
		}
	}
	return nil
}

// NewPositionFromOrder builds a persisted position from a spread order,
// preserving the full leg structure.
func NewPositionFromOrder(order *models.SpreadOrder, key string) *models.Position {
	return &models.Position{
		CanonicalKey: key,
		Legs:         OrderLegs(order),
		LastTxnDate:  order.Date,
		GroupLabel:   groupLabel(order),
	}
}

// OrderLegs expands a spread order into position legs.
func OrderLegs(order *models.SpreadOrder) []models.PositionLeg {
	switch order.Kind {
	case models.KindStock:
		return []models.PositionLeg{{
			Symbol:   order.Ticker,
			LegType:  models.LegStock,
			Quantity: order.Quantity,
			AvgPrice: order.LowerPrice,
		}}

	case models.KindCash:
		return []models.PositionLeg{{
			Symbol:   models.CashKey,
			LegType:  models.LegCash,
			AvgPrice: order.LowerPrice,
		}}

	case models.KindVertical:
		return []models.PositionLeg{
			{
				Symbol:     order.Ticker,
				Expiration: order.Expiration,
				Strike:     order.LowerStrike,
				LegType:    models.LegType(order.OptionType),
				Quantity:   order.Quantity,
				AvgPrice:   order.LowerPrice,
				SourceRef:  order.LowerRef,
			},
			{
				Symbol:     order.Ticker,
				Expiration: order.Expiration,
				Strike:     order.UpperStrike,
				LegType:    models.LegType(order.OptionType),
				Quantity:   -order.Quantity,
				AvgPrice:   order.UpperPrice,
				SourceRef:  order.UpperRef,
			},
		}

	case models.KindNakedLong, models.KindNakedShort:
		return []models.PositionLeg{{
			Symbol:     order.Ticker,
			Expiration: order.Expiration,
			Strike:     order.LowerStrike,
			LegType:    models.LegType(order.OptionType),
			Quantity:   order.Quantity,
			AvgPrice:   order.LowerPrice,
			SourceRef:  order.LowerRef,
		}}

	default:
		legs := make([]models.PositionLeg, 0, len(order.Legs))
		for _, leg := range order.Legs {
			legs = append(legs, models.PositionLeg{
				Symbol:     order.Ticker,
				Expiration: order.Expiration,
				Strike:     leg.Strike,
				LegType:    models.LegType(leg.OptionType),
				Quantity:   leg.Quantity,
				AvgPrice:   leg.Price,
				SourceRef:  leg.RowRef,
			})
		}
		return legs
	}
}

func groupLabel(order *models.SpreadOrder) string {
	switch order.Kind {
	case models.KindCash:
		return "cash"
	case models.KindStock:
		return fmt.Sprintf("%s stock", order.Ticker)
	default:
		return fmt.Sprintf("%s %s %s", order.Ticker, order.Kind, order.Expiration.Format(models.DateKeyFormat))
	}
}
