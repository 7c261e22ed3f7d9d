package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Ezzerof/expense-tracker/internal/auth"
	"github.com/Ezzerof/expense-tracker/internal/services"
	"github.com/Ezzerof/expense-tracker/internal/store/memory"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	mem := memory.New()
	authSvc := auth.NewService(mem, "server-test-secret")
	txSvc := services.NewTransactionService(mem, mem, nil)
	calendar := services.NewCalendarController(mem, mem)
	s := NewServer(":0", authSvc, txSvc, calendar, mem)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s
}

func doJSON(t *testing.T, s *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func registerAndLogin(t *testing.T, s *Server) string {
	t.Helper()
	rec := doJSON(t, s, http.MethodPost, "/api/v1/register", "", registerRequest{
		FirstName: "Marcus",
		Username:  "marcus7",
		Email:     "m@example.com",
		Password:  "hunter22pass",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: status %d body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, s, http.MethodPost, "/api/v1/login", "", loginRequest{Username: "marcus7", Password: "hunter22pass"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: status %d body %s", rec.Code, rec.Body.String())
	}
	var resp loginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp.Token == "" {
		t.Fatalf("login response: %v / %s", err, rec.Body.String())
	}
	return resp.Token
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		rec := doJSON(t, s, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status %d", path, rec.Code)
		}
	}
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/api/v1/month/2024-03", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no token: status %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/v1/month/2024-03", "garbage-token", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad token: status %d", rec.Code)
	}
}

func TestRegisterValidationErrors(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/v1/register", "", registerRequest{
		Username: "ab",
		Password: "short",
		Email:    "nope",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}
	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Errors) < 4 {
		t.Errorf("expected all violations listed, got %v", resp.Errors)
	}
}

func TestTransactionLifecycle(t *testing.T) {
	s := newTestServer(t)
	token := registerAndLogin(t, s)

	rec := doJSON(t, s, http.MethodPost, "/api/v1/transaction", token, transactionRequest{
		Name:                "salary",
		Amount:              "2500.00",
		Category:            "WAGES",
		TransactionType:     "INCOME",
		StartDate:           "2024-03-25",
		RecurrenceFrequency: "MONTHLY",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status %d body %s", rec.Code, rec.Body.String())
	}
	var created transactionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.ID == 0 || created.Amount != "2500.00" {
		t.Fatalf("created: %+v", created)
	}

	// Duplicate name conflicts.
	rec = doJSON(t, s, http.MethodPost, "/api/v1/transaction", token, transactionRequest{
		Name:                "salary",
		Amount:              "1.00",
		Category:            "BONUSES",
		TransactionType:     "INCOME",
		StartDate:           "2024-04-01",
		RecurrenceFrequency: "SINGLE",
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate name: status %d", rec.Code)
	}

	// Partial update keeps other fields.
	rec = doJSON(t, s, http.MethodPut, "/api/v1/transaction/1", token, transactionRequest{Amount: "2600.00"})
	if rec.Code != http.StatusOK {
		t.Fatalf("update: status %d body %s", rec.Code, rec.Body.String())
	}
	var updated transactionResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &updated)
	if updated.Amount != "2600.00" || updated.Name != "salary" || updated.RecurrenceFrequency != "MONTHLY" {
		t.Errorf("merge result: %+v", updated)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/v1/transaction/1", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: status %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/v1/transaction/999", token, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing transaction: status %d", rec.Code)
	}

	// Validation errors come back together.
	rec = doJSON(t, s, http.MethodPost, "/api/v1/transaction", token, transactionRequest{
		Name:            "",
		Amount:          "-3",
		Category:        "FOOD",
		TransactionType: "INCOME",
		StartDate:       "not-a-date",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid create: status %d", rec.Code)
	}
	var errResp errorResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &errResp)
	if len(errResp.Errors) < 4 {
		t.Errorf("expected all field errors, got %v", errResp.Errors)
	}
}

func TestMonthProjectionEndpoint(t *testing.T) {
	s := newTestServer(t)
	token := registerAndLogin(t, s)

	rec := doJSON(t, s, http.MethodPost, "/api/v1/transaction/savings", token, savingsRequest{Amount: "1000.00"})
	if rec.Code != http.StatusOK {
		t.Fatalf("set savings: status %d body %s", rec.Code, rec.Body.String())
	}

	doJSON(t, s, http.MethodPost, "/api/v1/transaction", token, transactionRequest{
		Name:                "groceries",
		Amount:              "200.00",
		Category:            "FOOD",
		TransactionType:     "EXPENSE",
		StartDate:           "2024-04-05",
		RecurrenceFrequency: "SINGLE",
	})
	doJSON(t, s, http.MethodPost, "/api/v1/transaction", token, transactionRequest{
		Name:                "refund",
		Amount:              "50.00",
		Category:            "SELLINGS",
		TransactionType:     "INCOME",
		StartDate:           "2024-04-10",
		RecurrenceFrequency: "SINGLE",
	})

	rec = doJSON(t, s, http.MethodGet, "/api/v1/month/2024-04", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("month: status %d body %s", rec.Code, rec.Body.String())
	}
	var month monthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &month); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(month.Days) != 30 {
		t.Fatalf("expected 30 days, got %d", len(month.Days))
	}
	if month.Days[3].Savings != "1000.00" {
		t.Errorf("day 4 savings = %s", month.Days[3].Savings)
	}
	if month.Days[4].Expenses != "200.00" || month.Days[4].Savings != "800.00" {
		t.Errorf("day 5: %+v", month.Days[4])
	}
	if month.Days[9].Income != "50.00" || month.Days[9].Savings != "850.00" {
		t.Errorf("day 10: %+v", month.Days[9])
	}
	if month.Days[29].Savings != "850.00" {
		t.Errorf("month end savings = %s", month.Days[29].Savings)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/v1/summary/month/2024-04", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("summary: status %d", rec.Code)
	}
	var summary monthSummaryResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &summary)
	if summary.TotalIncome != "50.00" || summary.TotalExpenses != "200.00" || summary.Net != "-150.00" || summary.EndSavings != "850.00" {
		t.Errorf("summary: %+v", summary)
	}
	if len(summary.Days) != 30 {
		t.Errorf("summary days = %d, want 30", len(summary.Days))
	}

	rec = doJSON(t, s, http.MethodGet, "/api/v1/month/2024-13", token, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad month key: status %d", rec.Code)
	}

	// Flat list of the month's transactions, separate from the projection.
	rec = doJSON(t, s, http.MethodGet, "/api/v1/transaction/month/2024-04", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("transactions for month: status %d", rec.Code)
	}
	var list []transactionResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &list)
	if len(list) != 2 {
		t.Errorf("month transactions = %d, want 2", len(list))
	}

	rec = doJSON(t, s, http.MethodGet, "/api/v1/transaction/month/2024-05", token, nil)
	_ = json.Unmarshal(rec.Body.Bytes(), &list)
	if len(list) != 0 {
		t.Errorf("empty month transactions = %d, want 0", len(list))
	}
}

func TestTransactionListPagination(t *testing.T) {
	s := newTestServer(t)
	token := registerAndLogin(t, s)

	for i, name := range []string{"rent", "groceries", "gym"} {
		rec := doJSON(t, s, http.MethodPost, "/api/v1/transaction", token, transactionRequest{
			Name:                name,
			Amount:              "100.00",
			Category:            "OTHER",
			TransactionType:     "EXPENSE",
			StartDate:           fmt.Sprintf("2024-04-%02d", i+1),
			RecurrenceFrequency: "SINGLE",
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("create %s: status %d body %s", name, rec.Code, rec.Body.String())
		}
	}
	doJSON(t, s, http.MethodPost, "/api/v1/transaction", token, transactionRequest{
		Name:                "salary",
		Amount:              "2500.00",
		Category:            "WAGES",
		TransactionType:     "INCOME",
		StartDate:           "2024-04-25",
		RecurrenceFrequency: "MONTHLY",
	})

	// Defaults: first page of ten, newest start date first, expenses only.
	rec := doJSON(t, s, http.MethodGet, "/api/v1/transaction?transactionType=EXPENSE", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: status %d body %s", rec.Code, rec.Body.String())
	}
	var page transactionPageResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if page.TotalElements != 3 || page.TotalPages != 1 || page.Page != 0 || page.Size != 10 {
		t.Fatalf("page envelope: %+v", page)
	}
	if len(page.Content) != 3 || page.Content[0].Name != "gym" || page.Content[2].Name != "rent" {
		t.Errorf("default ordering: %+v", page.Content)
	}

	// Page size two splits the expenses across two pages.
	rec = doJSON(t, s, http.MethodGet, "/api/v1/transaction?transactionType=EXPENSE&page=1&size=2&sort=startDate,asc", token, nil)
	_ = json.Unmarshal(rec.Body.Bytes(), &page)
	if page.TotalPages != 2 || len(page.Content) != 1 || page.Content[0].Name != "gym" {
		t.Errorf("second page: %+v", page)
	}

	// Income filter excludes the expenses.
	rec = doJSON(t, s, http.MethodGet, "/api/v1/transaction?transactionType=INCOME", token, nil)
	_ = json.Unmarshal(rec.Body.Bytes(), &page)
	if page.TotalElements != 1 || page.Content[0].Name != "salary" {
		t.Errorf("income filter: %+v", page)
	}

	// Sorting by name ascending.
	rec = doJSON(t, s, http.MethodGet, "/api/v1/transaction?transactionType=EXPENSE&sort=name,asc", token, nil)
	_ = json.Unmarshal(rec.Body.Bytes(), &page)
	if len(page.Content) != 3 || page.Content[0].Name != "groceries" || page.Content[2].Name != "rent" {
		t.Errorf("name ordering: %+v", page.Content)
	}

	// A page past the end is empty but keeps the totals.
	rec = doJSON(t, s, http.MethodGet, "/api/v1/transaction?transactionType=EXPENSE&page=9", token, nil)
	_ = json.Unmarshal(rec.Body.Bytes(), &page)
	if len(page.Content) != 0 || page.TotalElements != 3 {
		t.Errorf("out-of-range page: %+v", page)
	}

	for _, path := range []string{
		"/api/v1/transaction",
		"/api/v1/transaction?transactionType=BOGUS",
		"/api/v1/transaction?transactionType=EXPENSE&page=-1",
		"/api/v1/transaction?transactionType=EXPENSE&size=0",
		"/api/v1/transaction?transactionType=EXPENSE&sort=lunar,asc",
		"/api/v1/transaction?transactionType=EXPENSE&sort=name,sideways",
	} {
		rec = doJSON(t, s, http.MethodGet, path, token, nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status %d, want 400", path, rec.Code)
		}
	}
}

func TestDaySummaryEndpoint(t *testing.T) {
	s := newTestServer(t)
	token := registerAndLogin(t, s)

	doJSON(t, s, http.MethodPost, "/api/v1/transaction/savings", token, savingsRequest{Amount: "1000.00"})
	doJSON(t, s, http.MethodPost, "/api/v1/transaction", token, transactionRequest{
		Name:                "groceries",
		Amount:              "200.00",
		Category:            "FOOD",
		TransactionType:     "EXPENSE",
		StartDate:           "2024-04-05",
		RecurrenceFrequency: "SINGLE",
	})

	rec := doJSON(t, s, http.MethodGet, "/api/v1/summary/day/2024-04-05", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("day summary: status %d body %s", rec.Code, rec.Body.String())
	}
	var day daySummaryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &day); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if day.Date != "2024-04-05" || day.Weekday != "Friday" {
		t.Errorf("day identity: %+v", day)
	}
	if day.Expenses != "200.00" || day.Savings != "800.00" {
		t.Errorf("day totals: %+v", day)
	}

	// The day before the expense still carries the full baseline.
	rec = doJSON(t, s, http.MethodGet, "/api/v1/summary/day/2024-04-04", token, nil)
	_ = json.Unmarshal(rec.Body.Bytes(), &day)
	if day.Expenses != "0.00" || day.Savings != "1000.00" {
		t.Errorf("quiet day totals: %+v", day)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/v1/summary/day/not-a-date", token, nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad date: status %d", rec.Code)
	}
}

func TestMonthCacheInvalidatedByMutation(t *testing.T) {
	s := newTestServer(t)
	token := registerAndLogin(t, s)

	// Prime the cache.
	rec := doJSON(t, s, http.MethodGet, "/api/v1/month/2024-04", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("month: status %d", rec.Code)
	}

	doJSON(t, s, http.MethodPost, "/api/v1/transaction", token, transactionRequest{
		Name:                "rent",
		Amount:              "900.00",
		Category:            "HOME",
		TransactionType:     "EXPENSE",
		StartDate:           "2024-04-01",
		RecurrenceFrequency: "SINGLE",
	})

	rec = doJSON(t, s, http.MethodGet, "/api/v1/month/2024-04", token, nil)
	var month monthResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &month)
	if month.Days[0].Expenses != "900.00" {
		t.Errorf("stale projection served after mutation: day 1 expenses = %s", month.Days[0].Expenses)
	}
}

func TestProjectionNotCachedAfterConcurrentInvalidation(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	key := monthCacheKey(7, 2024, 4)

	// A mutation landing between a completed load and the cache write must
	// keep the projection out of the cache.
	gen := s.calendar.Generation(7, 2024, 4)
	ledger, err := s.calendar.LoadMonth(ctx, 7, 2024, 4)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	s.calendar.InvalidateUser(7)
	s.cacheMonth(key, 7, 2024, 4, gen+1, ledger)
	if _, found := s.ledgerCache.Get(key); found {
		t.Error("stale projection cached despite invalidation")
	}

	// Without an interleaved mutation the projection is cached.
	gen = s.calendar.Generation(7, 2024, 4)
	ledger, err = s.calendar.LoadMonth(ctx, 7, 2024, 4)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	s.cacheMonth(key, 7, 2024, 4, gen+1, ledger)
	if _, found := s.ledgerCache.Get(key); !found {
		t.Error("fresh projection not cached")
	}
}

func TestDayEndpointFiltersCadence(t *testing.T) {
	s := newTestServer(t)
	token := registerAndLogin(t, s)

	doJSON(t, s, http.MethodPost, "/api/v1/transaction", token, transactionRequest{
		Name:                "gym",
		Amount:              "20.00",
		Category:            "ENTERTAINMENT",
		TransactionType:     "EXPENSE",
		StartDate:           "2024-03-01", // a Friday
		RecurrenceFrequency: "WEEKLY",
	})

	rec := doJSON(t, s, http.MethodGet, "/api/v1/transaction/day/2024-03-08", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("day: status %d", rec.Code)
	}
	var day dayResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &day)
	if len(day.Transactions) != 1 {
		t.Fatalf("friday occurrences = %d, want 1", len(day.Transactions))
	}

	rec = doJSON(t, s, http.MethodGet, "/api/v1/transaction/day/2024-03-07", token, nil)
	_ = json.Unmarshal(rec.Body.Bytes(), &day)
	if len(day.Transactions) != 0 {
		t.Errorf("thursday occurrences = %d, want 0", len(day.Transactions))
	}
}

func TestDeleteScopesOverHTTP(t *testing.T) {
	s := newTestServer(t)
	token := registerAndLogin(t, s)

	doJSON(t, s, http.MethodPost, "/api/v1/transaction", token, transactionRequest{
		Name:                "gym",
		Amount:              "20.00",
		Category:            "ENTERTAINMENT",
		TransactionType:     "EXPENSE",
		StartDate:           "2024-03-01",
		RecurrenceFrequency: "WEEKLY",
	})

	// A series delete without scope is rejected.
	rec := doJSON(t, s, http.MethodDelete, "/api/v1/transaction/1", token, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("series delete without scope: status %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodDelete, "/api/v1/transaction/1?scope=BOGUS", token, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bogus scope: status %d", rec.Code)
	}

	// ONE without occurrence date is rejected.
	rec = doJSON(t, s, http.MethodDelete, "/api/v1/transaction/1?scope=ONE", token, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("scope ONE without occurrence: status %d", rec.Code)
	}

	// ONE carves the occurrence out of the projection.
	rec = doJSON(t, s, http.MethodDelete, "/api/v1/transaction/1?scope=ONE&occurrence=2024-03-08", token, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("scope ONE: status %d body %s", rec.Code, rec.Body.String())
	}
	var day dayResponse
	rec = doJSON(t, s, http.MethodGet, "/api/v1/transaction/day/2024-03-08", token, nil)
	_ = json.Unmarshal(rec.Body.Bytes(), &day)
	if len(day.Transactions) != 0 {
		t.Errorf("excluded occurrence still served")
	}
	rec = doJSON(t, s, http.MethodGet, "/api/v1/transaction/day/2024-03-15", token, nil)
	_ = json.Unmarshal(rec.Body.Bytes(), &day)
	if len(day.Transactions) != 1 {
		t.Errorf("neighbouring occurrence lost")
	}

	// ALL removes the series.
	rec = doJSON(t, s, http.MethodDelete, "/api/v1/transaction/1?scope=ALL", token, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("scope ALL: status %d", rec.Code)
	}
	rec = doJSON(t, s, http.MethodGet, "/api/v1/transaction/1", token, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("series survived scope ALL: status %d", rec.Code)
	}
}

func TestSavingsEndpoint(t *testing.T) {
	s := newTestServer(t)
	token := registerAndLogin(t, s)

	rec := doJSON(t, s, http.MethodGet, "/api/v1/transaction/savings", token, nil)
	var savings savingsResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &savings)
	if savings.Set {
		t.Error("fresh user reports a set baseline")
	}

	rec = doJSON(t, s, http.MethodPost, "/api/v1/transaction/savings", token, savingsRequest{Amount: "-5"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("negative savings: status %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodPost, "/api/v1/transaction/savings", token, savingsRequest{Amount: "0"})
	if rec.Code != http.StatusOK {
		t.Fatalf("zero savings: status %d body %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, s, http.MethodGet, "/api/v1/transaction/savings", token, nil)
	_ = json.Unmarshal(rec.Body.Bytes(), &savings)
	if !savings.Set || savings.Amount != "0.00" {
		t.Errorf("explicit zero baseline: %+v", savings)
	}
}
