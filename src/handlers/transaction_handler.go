package handlers

import (
	"encoding/csv"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/username/optifolio/src/logger"
	"github.com/username/optifolio/src/models"
	"github.com/username/optifolio/src/security/validation"
	"github.com/username/optifolio/src/services"
	"github.com/username/optifolio/src/utils"
)

type TransactionHandler struct {
	txStore  services.TransactionStore
	posStore services.PositionStore
}

func NewTransactionHandler(txStore services.TransactionStore, posStore services.PositionStore) *TransactionHandler {
	return &TransactionHandler{txStore: txStore, posStore: posStore}
}

// GetTransactions returns the user's full stored history, options and stock
// trades together.
func (h *TransactionHandler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	batch, err := h.txStore.LoadAll(r.Context(), userID)
	if err != nil {
		logger.L.Error("Failed to load transactions", "userID", userID, "error", err)
		utils.SendJSONError(w, "Failed to load transactions", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(batch)
}

// ExportTransactions streams the stored history back out as a CSV in the
// activity layout, so an export can be re-imported elsewhere. String cells
// pass the formula-injection guard before they reach a spreadsheet.
func (h *TransactionHandler) ExportTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	batch, err := h.txStore.LoadAll(r.Context(), userID)
	if err != nil {
		logger.L.Error("Failed to load transactions for export", "userID", userID, "error", err)
		utils.SendJSONError(w, "Failed to export transactions", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="transactions.csv"`)

	writer := csv.NewWriter(w)
	writer.Write([]string{"Date", "Action", "Ticker", "Expiration", "Strike", "Type", "Quantity", "Price", "Amount"})
	for _, tx := range batch.Transactions {
		writer.Write([]string{
			utils.FormatDate(tx.Date),
			exportAction(&tx),
			validation.SanitizeForFormulaInjection(tx.Ticker),
			utils.FormatDate(tx.Expiration),
			tx.Strike.String(),
			string(tx.OptionType),
			strconv.Itoa(utils.AbsInt(tx.Quantity)),
			tx.Price.String(),
			tx.Amount.String(),
		})
	}
	for _, tx := range batch.StockTransactions {
		action := "BUY"
		if tx.Quantity < 0 {
			action = "SELL"
		}
		writer.Write([]string{
			utils.FormatDate(tx.Date),
			action,
			validation.SanitizeForFormulaInjection(tx.Ticker),
			"", "", "",
			strconv.Itoa(utils.AbsInt(tx.Quantity)),
			tx.Price.String(),
			"",
		})
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		logger.L.Error("Failed to write CSV export", "userID", userID, "error", err)
	}
}

// exportAction renders the action word the activity parser round-trips: the
// direction lives in the action, the quantity column stays unsigned.
func exportAction(tx *models.Transaction) string {
	short := tx.Quantity < 0
	switch tx.Category {
	case models.CategoryClose:
		if short {
			return "SELL_TO_CLOSE"
		}
		return "BUY_TO_CLOSE"
	case models.CategoryExercised:
		return "EXERCISE"
	case models.CategoryAssigned:
		return "ASSIGNMENT"
	default:
		if short {
			return "SELL_TO_OPEN"
		}
		return "BUY_TO_OPEN"
	}
}

// DeleteTransactions wipes the user's history and the positions derived from
// it. Irreversible; the frontend confirms before calling.
func (h *TransactionHandler) DeleteTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := h.txStore.DeleteAll(r.Context(), userID); err != nil {
		logger.L.Error("Failed to delete transactions", "userID", userID, "error", err)
		utils.SendJSONError(w, "Failed to delete transactions", http.StatusInternalServerError)
		return
	}
	if err := h.posStore.Wipe(r.Context(), userID); err != nil {
		logger.L.Error("Failed to wipe positions after transaction delete", "userID", userID, "error", err)
		utils.SendJSONError(w, "Transactions deleted but positions could not be wiped", http.StatusInternalServerError)
		return
	}

	logger.L.Info("Transaction history deleted", "userID", userID)
	w.WriteHeader(http.StatusNoContent)
}
