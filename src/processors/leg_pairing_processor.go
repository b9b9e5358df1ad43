package processors

import (
	"sort"

	"github.com/username/optifolio/src/models"
	"github.com/username/optifolio/src/utils"
)

// legPairingImpl implements the LegPairingProcessor interface.
type legPairingImpl struct{}

// NewLegPairingProcessor creates a new instance of LegPairingProcessor.
func NewLegPairingProcessor() LegPairingProcessor {
	return &legPairingImpl{}
}

// pairingKey groups opening transactions placed on the same day for the same
// ticker and expiration. Dates are normalized to text so the struct stays
// hashable.
type pairingKey struct {
	date       string
	ticker     string
	expiration string
}

// legCursor tracks how much of an opening transaction is still unpaired. The
// source transaction itself is never mutated.
type legCursor struct {
	tx        models.Transaction
	remaining int // unsigned magnitude
}

// Pair groups option-opening transactions by (date, ticker, expiration) and
// pairs each group into spread orders: iron condors first, then straddles and
// strangles, then verticals, with unmatched quantity emitted as naked legs.
func (p *legPairingImpl) Pair(transactions []models.Transaction) []models.SpreadOrder {
	groups := make(map[pairingKey][]models.Transaction)
	var keys []pairingKey
	for _, tx := range transactions {
		if tx.Category != models.CategoryOpen || tx.Ticker == "" || tx.Quantity == 0 {
			continue
		}
		key := pairingKey{
			date:       tx.Date.Format(models.DateKeyFormat),
			ticker:     tx.Ticker,
			expiration: tx.Expiration.Format(models.DateKeyFormat),
		}
		if _, seen := groups[key]; !seen {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], tx)
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].date != keys[j].date {
			return keys[i].date < keys[j].date
		}
		if keys[i].ticker != keys[j].ticker {
			return keys[i].ticker < keys[j].ticker
		}
		return keys[i].expiration < keys[j].expiration
	})

	var orders []models.SpreadOrder
	for _, key := range keys {
		orders = append(orders, pairGroup(groups[key])...)
	}
	return orders
}

func pairGroup(txs []models.Transaction) []models.SpreadOrder {
	var longCalls, shortCalls, longPuts, shortPuts []*legCursor
	for _, tx := range txs {
		cursor := &legCursor{tx: tx, remaining: utils.AbsInt(tx.Quantity)}
		switch {
		case tx.OptionType == models.Call && tx.SideOf() == models.SideLong:
			longCalls = append(longCalls, cursor)
		case tx.OptionType == models.Call:
			shortCalls = append(shortCalls, cursor)
		case tx.SideOf() == models.SideLong:
			longPuts = append(longPuts, cursor)
		default:
			shortPuts = append(shortPuts, cursor)
		}
	}
	sortCursorsByStrike(longCalls)
	sortCursorsByStrike(shortCalls)
	sortCursorsByStrike(longPuts)
	sortCursorsByStrike(shortPuts)

	if condor := tryIronCondor(longCalls, shortCalls, longPuts, shortPuts); condor != nil {
		return []models.SpreadOrder{*condor}
	}

	var orders []models.SpreadOrder
	orders = append(orders, pairStraddles(longCalls, shortCalls, longPuts, shortPuts)...)
	orders = append(orders, pairVerticals(longCalls, shortCalls)...)
	orders = append(orders, pairVerticals(longPuts, shortPuts)...)
	orders = append(orders, nakedRemainders(longCalls, shortCalls, longPuts, shortPuts)...)
	return orders
}

func sortCursorsByStrike(cursors []*legCursor) {
	sort.SliceStable(cursors, func(i, j int) bool {
		return cursors[i].tx.Strike.LessThan(cursors[j].tx.Strike)
	})
}

// tryIronCondor emits a single four-leg order when the group holds exactly
// one long call, one short call, one long put and one short put, all with the
// same absolute quantity. A condor-shaped group with mismatched quantities
// falls back to vertical pairing instead.
func tryIronCondor(longCalls, shortCalls, longPuts, shortPuts []*legCursor) *models.SpreadOrder {
	if len(longCalls) != 1 || len(shortCalls) != 1 || len(longPuts) != 1 || len(shortPuts) != 1 {
		return nil
	}
	qty := longCalls[0].remaining
	if shortCalls[0].remaining != qty || longPuts[0].remaining != qty || shortPuts[0].remaining != qty {
		return nil
	}

	legs := []models.SpreadLeg{
		spreadLeg(longCalls[0].tx, qty),
		spreadLeg(shortCalls[0].tx, -qty),
		spreadLeg(longPuts[0].tx, qty),
		spreadLeg(shortPuts[0].tx, -qty),
	}
	sort.Slice(legs, func(i, j int) bool { return legs[i].Strike.LessThan(legs[j].Strike) })

	longCalls[0].remaining = 0
	shortCalls[0].remaining = 0
	longPuts[0].remaining = 0
	shortPuts[0].remaining = 0

	ref := longCalls[0].tx
	return &models.SpreadOrder{
		Kind:       models.KindIronCondor,
		Ticker:     ref.Ticker,
		Expiration: ref.Expiration,
		Date:       ref.Date,
		Quantity:   qty,
		Legs:       legs,
	}
}

// pairStraddles pairs calls against puts when the whole group sits on one
// side of the market: all-long groups yield long straddles/strangles,
// all-short groups the short variants. Remainders fall through to vertical
// pairing.
func pairStraddles(longCalls, shortCalls, longPuts, shortPuts []*legCursor) []models.SpreadOrder {
	allLong := len(shortCalls) == 0 && len(shortPuts) == 0
	allShort := len(longCalls) == 0 && len(longPuts) == 0
	switch {
	case allLong && len(longCalls) > 0 && len(longPuts) > 0:
		return pairAcrossTypes(longCalls, longPuts, models.SideLong)
	case allShort && len(shortCalls) > 0 && len(shortPuts) > 0:
		return pairAcrossTypes(shortCalls, shortPuts, models.SideShort)
	}
	return nil
}

func pairAcrossTypes(calls, puts []*legCursor, side models.Side) []models.SpreadOrder {
	var orders []models.SpreadOrder
	ci, pi := 0, 0
	for ci < len(calls) && pi < len(puts) {
		call, put := calls[ci], puts[pi]
		if call.remaining == 0 {
			ci++
			continue
		}
		if put.remaining == 0 {
			pi++
			continue
		}
		qty := utils.MinInt(call.remaining, put.remaining)
		sign := 1
		kind := models.KindLongStrangle
		straddle := call.tx.Strike.Equal(put.tx.Strike)
		if side == models.SideShort {
			sign = -1
			kind = models.KindShortStrangle
			if straddle {
				kind = models.KindShortStraddle
			}
		} else if straddle {
			kind = models.KindLongStraddle
		}

		orders = append(orders, models.SpreadOrder{
			Kind:       kind,
			Ticker:     call.tx.Ticker,
			Expiration: call.tx.Expiration,
			Date:       call.tx.Date,
			Quantity:   qty,
			Legs: []models.SpreadLeg{
				spreadLeg(call.tx, sign*qty),
				spreadLeg(put.tx, sign*qty),
			},
		})

		call.remaining -= qty
		put.remaining -= qty
		if call.remaining == 0 {
			ci++
		}
		if put.remaining == 0 {
			pi++
		}
	}
	return orders
}

// pairVerticals greedily pairs the current long against the current short at
// the minimum of their remaining quantities, walking both strike-sorted
// sides until one is exhausted.
func pairVerticals(longs, shorts []*legCursor) []models.SpreadOrder {
	var orders []models.SpreadOrder
	li, si := 0, 0
	for li < len(longs) && si < len(shorts) {
		long, short := longs[li], shorts[si]
		if long.remaining == 0 {
			li++
			continue
		}
		if short.remaining == 0 {
			si++
			continue
		}
		qty := utils.MinInt(long.remaining, short.remaining)

		orders = append(orders, models.SpreadOrder{
			Kind:        models.KindVertical,
			Ticker:      long.tx.Ticker,
			Expiration:  long.tx.Expiration,
			Date:        long.tx.Date,
			OptionType:  long.tx.OptionType,
			LowerStrike: long.tx.Strike,
			UpperStrike: short.tx.Strike,
			Quantity:    qty,
			LowerPrice:  long.tx.Price,
			UpperPrice:  short.tx.Price,
			LowerRef:    long.tx.RowRef,
			UpperRef:    short.tx.RowRef,
		})

		long.remaining -= qty
		short.remaining -= qty
		if long.remaining == 0 {
			li++
		}
		if short.remaining == 0 {
			si++
		}
	}
	return orders
}

// nakedRemainders turns any quantity left unpaired into single-leg orders.
func nakedRemainders(cursorSets ...[]*legCursor) []models.SpreadOrder {
	var orders []models.SpreadOrder
	for _, cursors := range cursorSets {
		for _, cursor := range cursors {
			if cursor.remaining == 0 {
				continue
			}
			kind := models.KindNakedLong
			qty := cursor.remaining
			if cursor.tx.SideOf() == models.SideShort {
				kind = models.KindNakedShort
				qty = -cursor.remaining
			}
			orders = append(orders, models.SpreadOrder{
				Kind:        kind,
				Ticker:      cursor.tx.Ticker,
				Expiration:  cursor.tx.Expiration,
				Date:        cursor.tx.Date,
				OptionType:  cursor.tx.OptionType,
				LowerStrike: cursor.tx.Strike,
				Quantity:    qty,
				LowerPrice:  cursor.tx.Price,
				LowerRef:    cursor.tx.RowRef,
			})
		}
	}
	return orders
}

func spreadLeg(tx models.Transaction, qty int) models.SpreadLeg {
	return models.SpreadLeg{
		Strike:     tx.Strike,
		OptionType: tx.OptionType,
		Quantity:   qty,
		Price:      tx.Price,
		RowRef:     tx.RowRef,
	}
}
