package http

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/Ezzerof/expense-tracker/internal/core"
	"github.com/Ezzerof/expense-tracker/internal/services"
)

type transactionRequest struct {
	Name                string `json:"name"`
	Description         string `json:"description"`
	Amount              string `json:"amount"`
	Category            string `json:"category"`
	TransactionType     string `json:"transactionType"`
	StartDate           string `json:"startDate"`
	EndDate             string `json:"endDate"`
	RecurrenceFrequency string `json:"recurrenceFrequency"`
}

type transactionResponse struct {
	ID                  int64    `json:"id"`
	Name                string   `json:"name"`
	Description         string   `json:"description,omitempty"`
	Amount              string   `json:"amount"`
	Category            string   `json:"category"`
	TransactionType     string   `json:"transactionType"`
	StartDate           string   `json:"startDate"`
	EndDate             string   `json:"endDate,omitempty"`
	RecurrenceFrequency string   `json:"recurrenceFrequency"`
	ExcludedDates       []string `json:"excludedDates,omitempty"`
}

func (req transactionRequest) form() services.TransactionForm {
	return services.TransactionForm{
		Name:        sanitizeInput(req.Name),
		Description: sanitizeInput(req.Description),
		Amount:      sanitizeInput(req.Amount),
		Category:    sanitizeInput(req.Category),
		Type:        sanitizeInput(req.TransactionType),
		StartDate:   sanitizeInput(req.StartDate),
		EndDate:     sanitizeInput(req.EndDate),
		Frequency:   sanitizeInput(req.RecurrenceFrequency),
	}
}

func toTransactionResponse(t core.Transaction) transactionResponse {
	resp := transactionResponse{
		ID:                  t.ID,
		Name:                t.Name,
		Description:         t.Description,
		Amount:              t.Amount.String(),
		Category:            string(t.Category),
		TransactionType:     string(t.Type),
		StartDate:           t.StartDate.ISO(),
		RecurrenceFrequency: string(t.Frequency),
	}
	if !t.EndDate.IsEmpty() {
		resp.EndDate = t.EndDate.ISO()
	}
	for _, d := range t.Exclusions {
		resp.ExcludedDates = append(resp.ExcludedDates, d.ISO())
	}
	return resp
}

type transactionPageResponse struct {
	Content       []transactionResponse `json:"content"`
	Page          int                   `json:"page"`
	Size          int                   `json:"size"`
	TotalElements int                   `json:"totalElements"`
	TotalPages    int                   `json:"totalPages"`
}

// handleListTransactions returns one page of the user's transaction
// definitions, filtered by the required transactionType parameter. Defaults
// match what the list view requests: first page, ten rows, newest start date
// first.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	txType, err := core.ParseTransactionType(q.Get("transactionType"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "transactionType must be INCOME or EXPENSE"})
		return
	}
	page, ok := parsePageParam(q.Get("page"), 0)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "page must be a non-negative integer"})
		return
	}
	size, ok := parsePageParam(q.Get("size"), 10)
	if !ok || size == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "size must be a positive integer"})
		return
	}
	less, ok := transactionOrder(q.Get("sort"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "sort must name startDate, name, amount or id, optionally followed by ,asc or ,desc"})
		return
	}

	all, err := s.dayReader.Transactions(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}

	filtered := make([]core.Transaction, 0, len(all))
	for _, tx := range all {
		if tx.Type == txType {
			filtered = append(filtered, tx)
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool { return less(filtered[i], filtered[j]) })

	total := len(filtered)
	totalPages := (total + size - 1) / size
	resp := transactionPageResponse{
		Content:       []transactionResponse{},
		Page:          page,
		Size:          size,
		TotalElements: total,
		TotalPages:    totalPages,
	}
	start := page * size
	if start < total {
		end := min(start+size, total)
		for _, tx := range filtered[start:end] {
			resp.Content = append(resp.Content, toTransactionResponse(tx))
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func parsePageParam(raw string, def int) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// transactionOrder parses a "field,direction" sort parameter. An empty value
// means newest start date first.
func transactionOrder(raw string) (func(a, b core.Transaction) bool, bool) {
	field, direction := "startDate", "desc"
	if trimmed := strings.TrimSpace(raw); trimmed != "" {
		parts := strings.SplitN(trimmed, ",", 2)
		field = strings.TrimSpace(parts[0])
		direction = "asc"
		if len(parts) == 2 {
			direction = strings.ToLower(strings.TrimSpace(parts[1]))
		}
	}
	if direction != "asc" && direction != "desc" {
		return nil, false
	}

	var less func(a, b core.Transaction) bool
	switch field {
	case "startDate":
		less = func(a, b core.Transaction) bool {
			if !a.StartDate.SameDay(b.StartDate) {
				return a.StartDate.Before(b.StartDate.Time)
			}
			return a.ID < b.ID
		}
	case "name":
		less = func(a, b core.Transaction) bool {
			return strings.ToLower(a.Name) < strings.ToLower(b.Name)
		}
	case "amount":
		less = func(a, b core.Transaction) bool { return a.Amount.Cents < b.Amount.Cents }
	case "id":
		less = func(a, b core.Transaction) bool { return a.ID < b.ID }
	default:
		return nil, false
	}
	if direction == "desc" {
		asc := less
		less = func(a, b core.Transaction) bool { return asc(b, a) }
	}
	return less, true
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	userID := userIDFrom(r.Context())
	created, err := s.transactions.Create(r.Context(), userID, req.form())
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateUser(userID)
	writeJSON(w, http.StatusCreated, toTransactionResponse(created))
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid transaction id"})
		return
	}

	tx, err := s.transactions.Get(r.Context(), userIDFrom(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(tx))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid transaction id"})
		return
	}

	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	userID := userIDFrom(r.Context())
	updated, err := s.transactions.Update(r.Context(), userID, id, req.form())
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateUser(userID)
	writeJSON(w, http.StatusOK, toTransactionResponse(updated))
}

// handleTransactionsForMonth returns the flat list of transactions whose
// window overlaps the month, exclusions attached. The projected per-day view
// lives under /api/v1/month.
func (s *Server) handleTransactionsForMonth(w http.ResponseWriter, r *http.Request) {
	year, month, err := parseMonthKey(r.PathValue("month"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	txs, err := s.dayReader.TransactionsForMonth(r.Context(), userIDFrom(r.Context()), year, month)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := make([]transactionResponse, 0, len(txs))
	for _, tx := range txs {
		resp = append(resp, toTransactionResponse(tx))
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleDeleteTransaction deletes one occurrence or a whole series.
// The scope query parameter carries the user's choice: ONE removes only the
// occurrence named by the occurrence parameter, ALL removes the definition.
// One-off transactions need no scope.
func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid transaction id"})
		return
	}

	choice := services.ChoiceNone
	switch strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("scope"))) {
	case "":
	case "ONE":
		choice = services.ChoiceOne
	case "ALL":
		choice = services.ChoiceAll
	default:
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "scope must be ONE or ALL"})
		return
	}

	raw := strings.TrimSpace(r.URL.Query().Get("occurrence"))
	if raw == "" {
		raw = strings.TrimSpace(r.URL.Query().Get("date"))
	}
	var occurrence core.Date
	if raw != "" {
		occurrence, err = core.ParseDate(raw)
		if err != nil {
			writeError(w, r, err)
			return
		}
	}

	userID := userIDFrom(r.Context())
	if err := s.transactions.Delete(r.Context(), userID, id, choice, occurrence); err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateUser(userID)
	w.WriteHeader(http.StatusNoContent)
}
