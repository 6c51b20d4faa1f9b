package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/chainbets/chainbet/internal/domain"
	"github.com/chainbets/chainbet/internal/service"
)

// stubMarketService serves canned markets keyed by identity.
type stubMarketService struct {
	markets   map[string]domain.Market
	createErr error
}

func (s *stubMarketService) CreateMarket(_ context.Context, in service.CreateMarketInput) (domain.Market, error) {
	if s.createErr != nil {
		return domain.Market{}, s.createErr
	}
	return domain.Market{Identity: "8", Title: in.Title}, nil
}

func (s *stubMarketService) GetMarket(_ context.Context, identity string) (domain.Market, error) {
	m, ok := s.markets[identity]
	if !ok {
		return domain.Market{}, domain.ErrNotFound
	}
	return m, nil
}

func (s *stubMarketService) ListMarkets(context.Context, domain.ListOpts) ([]domain.Market, error) {
	out := make([]domain.Market, 0, len(s.markets))
	for _, m := range s.markets {
		out = append(out, m)
	}
	return out, nil
}

func (s *stubMarketService) CountMarkets(context.Context) (int64, error) {
	return int64(len(s.markets)), nil
}

// newMarketMux registers the market routes the way the server does, so path
// parameters resolve in tests.
func newMarketMux(h *MarketHandler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/markets", h.ListMarkets)
	mux.HandleFunc("POST /api/markets", h.CreateMarket)
	mux.HandleFunc("GET /api/markets/{id}", h.GetMarket)
	return mux
}

func TestMarketHandler_GetMarket(t *testing.T) {
	svc := &stubMarketService{markets: map[string]domain.Market{
		"42": {Identity: "42", Title: "Will it rain tomorrow?", Verified: true},
	}}
	mux := newMarketMux(NewMarketHandler(svc, testLogger()))

	t.Run("found", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/markets/42", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		var m domain.Market
		if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
			t.Fatalf("decode market: %v", err)
		}
		if m.Identity != "42" || !m.Verified {
			t.Errorf("market = %+v, want identity 42 verified", m)
		}
	})

	t.Run("not found", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/markets/404", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})
}

func TestMarketHandler_CreateMarket(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		createErr  error
		wantStatus int
	}{
		{
			name:       "created",
			body:       `{"title":"Will it ship?"}`,
			wantStatus: http.StatusCreated,
		},
		{
			name:       "malformed body",
			body:       `{"title":`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "invalid input",
			body:       `{"title":""}`,
			createErr:  domain.ErrInvalidMarket,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "duplicate identity",
			body:       `{"id":"8","title":"Dup"}`,
			createErr:  domain.ErrAlreadyExists,
			wantStatus: http.StatusConflict,
		},
		{
			name:       "chain down",
			body:       `{"title":"Will it ship?"}`,
			createErr:  domain.ErrChainUnavailable,
			wantStatus: http.StatusBadGateway,
		},
		{
			name:       "reconcile lock held",
			body:       `{"title":"Will it ship?"}`,
			createErr:  domain.ErrLockHeld,
			wantStatus: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubMarketService{createErr: tt.createErr}
			mux := newMarketMux(NewMarketHandler(svc, testLogger()))

			req := httptest.NewRequest(http.MethodPost, "/api/markets", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestMarketHandler_ListMarkets(t *testing.T) {
	svc := &stubMarketService{markets: map[string]domain.Market{
		"1": {Identity: "1", Verified: true},
		"2": {Identity: "2"},
	}}
	mux := newMarketMux(NewMarketHandler(svc, testLogger()))

	req := httptest.NewRequest(http.MethodGet, "/api/markets?limit=10", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp struct {
		Markets []domain.Market `json:"markets"`
		Total   int64           `json:"total"`
		Limit   int             `json:"limit"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Total != 2 || len(resp.Markets) != 2 {
		t.Errorf("total = %d, markets = %d, want 2 each", resp.Total, len(resp.Markets))
	}
	if resp.Limit != 10 {
		t.Errorf("limit = %d, want 10", resp.Limit)
	}
}
