package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"stockgrid/internal/app"
	"stockgrid/internal/common"
	"stockgrid/internal/models"
)

// mockPriceService implements interfaces.PriceService for testing.
type mockPriceService struct {
	query  func(ctx context.Context, symbols []string, rng models.DateRange) (*models.PriceQueryResponse, error)
	matrix func(ctx context.Context, input models.MatrixQuery) (*models.MatrixResponse, error)
}

func (m *mockPriceService) Query(ctx context.Context, symbols []string, rng models.DateRange) (*models.PriceQueryResponse, error) {
	if m.query != nil {
		return m.query(ctx, symbols, rng)
	}
	return &models.PriceQueryResponse{Series: []models.SymbolSeries{}, Warnings: []string{}}, nil
}

func (m *mockPriceService) Matrix(ctx context.Context, input models.MatrixQuery) (*models.MatrixResponse, error) {
	if m.matrix != nil {
		return m.matrix(ctx, input)
	}
	return &models.MatrixResponse{Mode: input.Mode, Rows: []models.MatrixRow{}}, nil
}

// mockUpdateService implements interfaces.UpdateService for testing.
type mockUpdateService struct {
	run func(ctx context.Context, now time.Time) (*models.DailyUpdateResult, error)
}

func (m *mockUpdateService) RunDailyUpdate(ctx context.Context, now time.Time) (*models.DailyUpdateResult, error) {
	if m.run != nil {
		return m.run(ctx, now)
	}
	return &models.DailyUpdateResult{Status: models.UpdateStatusSuccess}, nil
}

// mockWatchlistService implements interfaces.WatchlistService for testing.
type mockWatchlistService struct {
	list    func(ctx context.Context) (*models.WatchlistResponse, error)
	add     func(ctx context.Context, symbol, displayName string) (*models.WatchSymbol, error)
	remove  func(ctx context.Context, symbol string) error
	reorder func(ctx context.Context, symbols []string) error
}

func (m *mockWatchlistService) EnsureDefaults(ctx context.Context) error { return nil }

func (m *mockWatchlistService) List(ctx context.Context) (*models.WatchlistResponse, error) {
	if m.list != nil {
		return m.list(ctx)
	}
	return &models.WatchlistResponse{Items: []models.WatchSymbol{}}, nil
}

func (m *mockWatchlistService) Add(ctx context.Context, symbol, displayName string) (*models.WatchSymbol, error) {
	if m.add != nil {
		return m.add(ctx, symbol, displayName)
	}
	return &models.WatchSymbol{Symbol: symbol, Enabled: true}, nil
}

func (m *mockWatchlistService) Remove(ctx context.Context, symbol string) error {
	if m.remove != nil {
		return m.remove(ctx, symbol)
	}
	return nil
}

func (m *mockWatchlistService) Reorder(ctx context.Context, symbols []string) error {
	if m.reorder != nil {
		return m.reorder(ctx, symbols)
	}
	return nil
}

func newTestServer(t *testing.T, configure func(*app.App)) *Server {
	t.Helper()

	a := &app.App{
		Config:           common.NewDefaultConfig(),
		Logger:           common.NewSilentLogger(),
		PriceService:     &mockPriceService{},
		UpdateService:    &mockUpdateService{},
		WatchlistService: &mockWatchlistService{},
		StartupTime:      time.Now(),
	}
	if configure != nil {
		configure(a)
	}
	return NewServer(a)
}

func doRequest(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t, nil)

	rec := doRequest(t, s, http.MethodGet, "/api/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if payload["status"] != "ok" {
		t.Errorf("status field = %v, want ok", payload["status"])
	}

	if rec := doRequest(t, s, http.MethodPost, "/api/health", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST status = %d, want 405", rec.Code)
	}
}

func TestHandlePriceQuery(t *testing.T) {
	var gotSymbols []string
	var gotRange models.DateRange

	s := newTestServer(t, func(a *app.App) {
		a.PriceService = &mockPriceService{
			query: func(ctx context.Context, symbols []string, rng models.DateRange) (*models.PriceQueryResponse, error) {
				gotSymbols = symbols
				gotRange = rng
				return &models.PriceQueryResponse{
					Range:    models.QueryRange{From: rng.From, To: rng.To},
					Series:   []models.SymbolSeries{{Symbol: "AAPL", Currency: "USD"}},
					Warnings: []string{},
				}, nil
			},
		}
	})

	rec := doRequest(t, s, http.MethodGet, "/api/prices?symbols=aapl,0700.hk&from=2025-03-01&to=2025-03-31", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	if len(gotSymbols) != 2 || gotSymbols[0] != "AAPL" || gotSymbols[1] != "0700.HK" {
		t.Errorf("symbols = %v, want normalized [AAPL 0700.HK]", gotSymbols)
	}
	if gotRange.From != "2025-03-01" || gotRange.To != "2025-03-31" {
		t.Errorf("range = %s..%s", gotRange.From, gotRange.To)
	}
}

func TestHandlePriceQuery_ValidationErrors(t *testing.T) {
	s := newTestServer(t, nil)

	cases := []string{
		"/api/prices",
		"/api/prices?symbols=%3Cbad%3E",
		"/api/prices?symbols=AAPL&from=bad-date",
		"/api/prices?symbols=AAPL&from=2025-03-31&to=2025-03-01",
	}
	for _, target := range cases {
		rec := doRequest(t, s, http.MethodGet, target, "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", target, rec.Code)
		}
	}
}

func TestHandlePriceQuery_ServiceErrorIs500(t *testing.T) {
	s := newTestServer(t, func(a *app.App) {
		a.PriceService = &mockPriceService{
			query: func(ctx context.Context, symbols []string, rng models.DateRange) (*models.PriceQueryResponse, error) {
				return nil, errors.New("storage failure")
			},
		}
	})

	rec := doRequest(t, s, http.MethodGet, "/api/prices?symbols=AAPL", "")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestHandleMatrix(t *testing.T) {
	var gotInput models.MatrixQuery
	s := newTestServer(t, func(a *app.App) {
		a.PriceService = &mockPriceService{
			matrix: func(ctx context.Context, input models.MatrixQuery) (*models.MatrixResponse, error) {
				gotInput = input
				return &models.MatrixResponse{Mode: input.Mode, Rows: []models.MatrixRow{}}, nil
			},
		}
	})

	rec := doRequest(t, s, http.MethodGet, "/api/prices/matrix?mode=adhoc&preset=7&symbols=AAPL", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if gotInput.Mode != models.MatrixModeAdhoc || gotInput.Preset != models.MatrixPreset7 {
		t.Errorf("input = %+v", gotInput)
	}

	// Defaults: watchlist mode, 30-day preset.
	rec = doRequest(t, s, http.MethodGet, "/api/prices/matrix", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("default status = %d", rec.Code)
	}
	if gotInput.Mode != models.MatrixModeWatchlist || gotInput.Preset != models.MatrixPreset30 {
		t.Errorf("default input = %+v", gotInput)
	}

	rec = doRequest(t, s, http.MethodGet, "/api/prices/matrix?mode=bogus", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bogus mode status = %d, want 400", rec.Code)
	}
}

func TestHandleDailyUpdate_TokenRequired(t *testing.T) {
	s := newTestServer(t, func(a *app.App) {
		a.Config.Update.Token = "secret"
	})

	rec := doRequest(t, s, http.MethodPost, "/api/internal/update-daily", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("missing token status = %d, want 401", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/internal/update-daily", nil)
	req.Header.Set("X-Update-Token", "wrong")
	wrongRec := httptest.NewRecorder()
	s.Handler().ServeHTTP(wrongRec, req)
	if wrongRec.Code != http.StatusUnauthorized {
		t.Errorf("wrong token status = %d, want 401", wrongRec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/internal/update-daily", nil)
	req.Header.Set("X-Update-Token", "secret")
	okRec := httptest.NewRecorder()
	s.Handler().ServeHTTP(okRec, req)
	if okRec.Code != http.StatusOK {
		t.Errorf("valid token status = %d, want 200", okRec.Code)
	}
}

func TestHandleDailyUpdate_NoTokenConfigured(t *testing.T) {
	s := newTestServer(t, func(a *app.App) {
		a.Config.Update.Token = ""
	})

	rec := doRequest(t, s, http.MethodPost, "/api/internal/update-daily", "")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 with no token check", rec.Code)
	}

	if rec := doRequest(t, s, http.MethodGet, "/api/internal/update-daily", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET status = %d, want 405", rec.Code)
	}
}

func TestHandleWatchlist_AddAndList(t *testing.T) {
	added := ""
	s := newTestServer(t, func(a *app.App) {
		a.WatchlistService = &mockWatchlistService{
			add: func(ctx context.Context, symbol, displayName string) (*models.WatchSymbol, error) {
				added = symbol
				return &models.WatchSymbol{Symbol: symbol, DisplayName: displayName, Enabled: true}, nil
			},
			list: func(ctx context.Context) (*models.WatchlistResponse, error) {
				return &models.WatchlistResponse{Items: []models.WatchSymbol{{Symbol: "AAPL", Enabled: true}}}, nil
			},
		}
	})

	rec := doRequest(t, s, http.MethodPost, "/api/admin/watchlist", `{"symbol":"0700.HK","displayName":"Tencent"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if added != "0700.HK" {
		t.Errorf("added = %q, want 0700.HK", added)
	}

	rec = doRequest(t, s, http.MethodGet, "/api/admin/watchlist", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var response models.WatchlistResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(response.Items) != 1 || response.Items[0].Symbol != "AAPL" {
		t.Errorf("items = %+v", response.Items)
	}
}

func TestHandleWatchlist_AddValidationError(t *testing.T) {
	s := newTestServer(t, func(a *app.App) {
		a.WatchlistService = &mockWatchlistService{
			add: func(ctx context.Context, symbol, displayName string) (*models.WatchSymbol, error) {
				return nil, models.NewInputError("invalid symbol format: BAD SYMBOL")
			},
		}
	})

	rec := doRequest(t, s, http.MethodPost, "/api/admin/watchlist", `{"symbol":"BAD SYMBOL"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}

	if rec := doRequest(t, s, http.MethodPost, "/api/admin/watchlist", `not json`); rec.Code != http.StatusBadRequest {
		t.Errorf("bad JSON status = %d, want 400", rec.Code)
	}
}

func TestHandleWatchlistReorder(t *testing.T) {
	var got []string
	s := newTestServer(t, func(a *app.App) {
		a.WatchlistService = &mockWatchlistService{
			reorder: func(ctx context.Context, symbols []string) error {
				got = symbols
				return nil
			},
		}
	})

	rec := doRequest(t, s, http.MethodPut, "/api/admin/watchlist/reorder", `{"symbols":["MSFT","AAPL"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if len(got) != 2 || got[0] != "MSFT" {
		t.Errorf("reordered = %v", got)
	}
}

func TestHandleWatchlistSymbol_Delete(t *testing.T) {
	removed := ""
	s := newTestServer(t, func(a *app.App) {
		a.WatchlistService = &mockWatchlistService{
			remove: func(ctx context.Context, symbol string) error {
				removed = symbol
				return nil
			},
		}
	})

	rec := doRequest(t, s, http.MethodDelete, "/api/admin/watchlist/0700.HK", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if removed != "0700.HK" {
		t.Errorf("removed = %q, want 0700.HK", removed)
	}

	s = newTestServer(t, func(a *app.App) {
		a.WatchlistService = &mockWatchlistService{
			remove: func(ctx context.Context, symbol string) error {
				return models.NewInputError("symbol not in watchlist: NOPE")
			},
		}
	})
	rec = doRequest(t, s, http.MethodDelete, "/api/admin/watchlist/NOPE", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing symbol status = %d, want 400", rec.Code)
	}
}

func TestCORSPreflights(t *testing.T) {
	s := newTestServer(t, nil)

	rec := doRequest(t, s, http.MethodOptions, "/api/prices", "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS origin header")
	}
}

func TestCorrelationIDHeader(t *testing.T) {
	s := newTestServer(t, nil)

	rec := doRequest(t, s, http.MethodGet, "/api/health", "")
	if rec.Header().Get("X-Correlation-ID") == "" {
		t.Error("missing correlation ID header")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "abc123")
	custom := httptest.NewRecorder()
	s.Handler().ServeHTTP(custom, req)
	if custom.Header().Get("X-Correlation-ID") != "abc123" {
		t.Errorf("correlation ID = %q, want abc123", custom.Header().Get("X-Correlation-ID"))
	}
}
