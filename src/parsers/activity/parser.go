package activity

import (
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/username/optifolio/src/models"
)

// Column layout of an activity export:
// Date, Action, Ticker, Expiration, Strike, Type, Quantity, Price, Amount
const expectedColumns = 9

// dateLayouts covers the formats brokers actually emit. Two-digit years are
// common in option expiration columns.
var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"01/02/06",
	"1/2/06",
}

type ActivityParser struct{}

func NewParser() *ActivityParser {
	return &ActivityParser{}
}

func (p *ActivityParser) Parse(file io.Reader) (*models.ActivityBatch, error) {
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	if _, err := reader.Read(); err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read all CSV records: %w", err)
	}

	batch := &models.ActivityBatch{}
	for i, record := range records {
		if len(record) < expectedColumns {
			log.Printf("Skipping row %d: expected %d columns, got %d", i+2, expectedColumns, len(record))
			continue
		}
		rowRef := fmt.Sprintf("row:%d", i+2)

		date, err := parseDate(record[0])
		if err != nil {
			log.Printf("Skipping row %d due to invalid date: %s", i+2, record[0])
			continue
		}

		action := strings.ToUpper(strings.TrimSpace(record[1]))
		ticker := strings.ToUpper(strings.TrimSpace(record[2]))
		if ticker == "" {
			log.Printf("Skipping row %d with empty ticker", i+2)
			continue
		}

		qty, err := strconv.Atoi(strings.TrimSpace(record[6]))
		if err != nil || qty == 0 {
			log.Printf("Skipping row %d with invalid quantity %q", i+2, record[6])
			continue
		}
		if qty < 0 {
			qty = -qty // the action column carries the direction
		}

		price, err := decimal.NewFromString(strings.TrimSpace(record[7]))
		if err != nil {
			log.Printf("Skipping row %d with invalid price %q", i+2, record[7])
			continue
		}
		amount := decimal.Zero
		if s := strings.TrimSpace(record[8]); s != "" {
			amount, err = decimal.NewFromString(s)
			if err != nil {
				log.Printf("Row %d has invalid amount %q, using 0", i+2, record[8])
				amount = decimal.Zero
			}
		}

		if action == "BUY" || action == "SELL" {
			signed := qty
			if action == "SELL" {
				signed = -qty
			}
			batch.StockTransactions = append(batch.StockTransactions, models.StockTransaction{
				Date:     date,
				Ticker:   ticker,
				Quantity: signed,
				Price:    price,
				RowRef:   rowRef,
				HashID:   rowHash(record),
			})
			continue
		}

		category, signed, ok := classifyOptionAction(action, qty)
		if !ok {
			log.Printf("Skipping row %d with unknown action %q", i+2, action)
			continue
		}

		expiration, err := parseDate(record[3])
		if err != nil {
			log.Printf("Skipping option row %d due to invalid expiration: %s", i+2, record[3])
			continue
		}
		strike, err := decimal.NewFromString(strings.TrimSpace(record[4]))
		if err != nil {
			log.Printf("Skipping option row %d with invalid strike %q", i+2, record[4])
			continue
		}
		optionType, ok := parseOptionType(record[5])
		if !ok {
			log.Printf("Skipping option row %d with invalid type %q", i+2, record[5])
			continue
		}

		batch.Transactions = append(batch.Transactions, models.Transaction{
			Date:       date,
			Ticker:     ticker,
			Expiration: expiration,
			Strike:     strike,
			OptionType: optionType,
			Quantity:   signed,
			Price:      price,
			Amount:     amount,
			Category:   category,
			RowRef:     rowRef,
			HashID:     rowHash(record),
		})
	}

	return batch, nil
}

// classifyOptionAction maps the action column to a transaction category and
// applies the direction to the quantity.
func classifyOptionAction(action string, qty int) (models.TxCategory, int, bool) {
	switch action {
	case "BUY_TO_OPEN", "BTO":
		return models.CategoryOpen, qty, true
	case "SELL_TO_OPEN", "STO", "SELL_SHORT":
		return models.CategoryOpen, -qty, true
	case "BUY_TO_CLOSE", "BTC":
		return models.CategoryClose, qty, true
	case "SELL_TO_CLOSE", "STC":
		return models.CategoryClose, -qty, true
	case "EXERCISE", "EXERCISED":
		return models.CategoryExercised, qty, true
	case "ASSIGNMENT", "ASSIGNED":
		return models.CategoryAssigned, -qty, true
	}
	return "", 0, false
}

func parseOptionType(s string) (models.OptionType, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CALL", "C":
		return models.Call, true
	case "PUT", "P":
		return models.Put, true
	}
	return "", false
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// rowHash fingerprints a source row so overlapping exports deduplicate on
// insert.
func rowHash(record []string) string {
	input := strings.Join(record, "|")
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:])
}
