package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/bid-cli/internal/archive"
	"github.com/sells-group/bid-cli/internal/catalog"
	"github.com/sells-group/bid-cli/internal/config"
	"github.com/sells-group/bid-cli/internal/cost"
	"github.com/sells-group/bid-cli/internal/estimate"
	"github.com/sells-group/bid-cli/internal/model"
	"github.com/sells-group/bid-cli/internal/scorer"
	"github.com/sells-group/bid-cli/internal/store"
)

type memBids struct {
	mu     sync.Mutex
	bids   map[string]model.Bid
	recaps []model.Recap
}

func newMemBids() *memBids { return &memBids{bids: make(map[string]model.Bid)} }

func (m *memBids) SaveBid(_ context.Context, bid *model.Bid) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bids[bid.ID] = snapshot(bid)
	return nil
}

func (m *memBids) GetBid(_ context.Context, id string) (*model.Bid, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bids[id]
	if !ok {
		return nil, eris.Wrapf(store.ErrNotFound, "mem: bid %s", id)
	}
	return &b, nil
}

func (m *memBids) SaveRecap(_ context.Context, r model.Recap) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recaps = append(m.recaps, r)
	return nil
}

func newTestServer(t *testing.T, st BidStore) http.Handler {
	t.Helper()
	seq := 0
	var mu sync.Mutex
	engine := estimate.NewEngine(catalog.Default(), cost.NewCalculator(cost.DefaultRates()), nil,
		estimate.WithIDGenerator(func() string {
			mu.Lock()
			defer mu.Unlock()
			seq++
			return fmt.Sprintf("EST-%06d", seq)
		}))
	history := archive.NewPersisted(archive.New(nil, archive.DefaultHistory()...), nil)
	predictor, err := scorer.NewPredictor(history, scorer.DefaultScorerConfig())
	require.NoError(t, err)

	d := Deps{
		Engine:    engine,
		History:   history,
		Predictor: predictor,
		Markup:    config.MarkupConfig{OverheadPercent: 10, ProfitPercent: 15},
	}
	if st != nil {
		d.Store = st
	}
	return NewServer(d).Routes()
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func TestHealth(t *testing.T) {
	t.Parallel()
	w := do(t, newTestServer(t, nil), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestBidLifecycle(t *testing.T) {
	t.Parallel()
	h := newTestServer(t, nil)

	w := do(t, h, http.MethodPost, "/bids", createBidRequest{Name: "Warehouse Reno", Difficulty: "HIGH_CEILINGS"})
	require.Equal(t, http.StatusCreated, w.Code)
	bid := decodeBody[model.Bid](t, w)
	assert.Equal(t, "EST-000001", bid.ID)

	w = do(t, h, http.MethodPost, "/bids/EST-000001/items", addItemRequest{SKU: "ASM-LIGHT-2x4", Quantity: 100})
	require.Equal(t, http.StatusOK, w.Code)
	w = do(t, h, http.MethodPost, "/bids/EST-000001/items", addItemRequest{SKU: "ASM-SW-1P", Quantity: 10})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody[model.Bid](t, w).Items, 2)

	w = do(t, h, http.MethodGet, "/bids/EST-000001/recap", nil)
	require.Equal(t, http.StatusOK, w.Code)
	recap := decodeBody[model.Recap](t, w)
	assert.InDelta(t, 6592.50, recap.MaterialTotal, 0.005)
	assert.InDelta(t, 95.4, recap.LaborHoursAdjusted, 1e-9)
	assert.InDelta(t, 14464.08, recap.SellPrice, 0.01)

	// What-if pricing on a locked bid is still allowed.
	w = do(t, h, http.MethodGet, "/bids/EST-000001/recap?overhead=10&profit=20", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Greater(t, decodeBody[model.Recap](t, w).SellPrice, recap.SellPrice)

	w = do(t, h, http.MethodPost, "/bids/EST-000001/items", addItemRequest{SKU: "ASM-SW-1P", Quantity: 1})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, h, http.MethodGet, "/bids/EST-000001/proposal", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "PROPOSAL FOR: Warehouse Reno")
	assert.Contains(t, w.Body.String(), "TOTAL PRICE: $14,464.0")

	w = do(t, h, http.MethodPost, "/bids/EST-000001/revise", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	rev := decodeBody[model.Bid](t, w)
	assert.Equal(t, "EST-000002", rev.ID)
	assert.False(t, rev.Locked)
	assert.Len(t, rev.Items, 2)

	w = do(t, h, http.MethodPost, "/bids/EST-000002/items", addItemRequest{SKU: "ASM-SW-1P", Quantity: 1})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAddItem_Errors(t *testing.T) {
	t.Parallel()
	h := newTestServer(t, nil)
	require.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/bids", createBidRequest{Name: "Reno"}).Code)

	tests := []struct {
		name string
		path string
		body any
		want int
	}{
		{"unknown bid", "/bids/EST-999999/items", addItemRequest{SKU: "ASM-SW-1P", Quantity: 1}, http.StatusNotFound},
		{"unknown sku", "/bids/EST-000001/items", addItemRequest{SKU: "ASM-NOPE", Quantity: 1}, http.StatusNotFound},
		{"zero qty", "/bids/EST-000001/items", addItemRequest{SKU: "ASM-SW-1P", Quantity: 0}, http.StatusUnprocessableEntity},
		{"negative qty", "/bids/EST-000001/items", addItemRequest{SKU: "ASM-SW-1P", Quantity: -5}, http.StatusUnprocessableEntity},
		{"bad json", "/bids/EST-000001/items", "{", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.want, w.Code)
			assert.Contains(t, w.Body.String(), `"error"`)
		})
	}

	w := do(t, h, http.MethodGet, "/bids/EST-000001", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeBody[model.Bid](t, w).Items)
}

func TestCreateBid_NameRequired(t *testing.T) {
	t.Parallel()
	w := do(t, newTestServer(t, nil), http.MethodPost, "/bids", createBidRequest{Name: "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecap_BadMarkup(t *testing.T) {
	t.Parallel()
	h := newTestServer(t, nil)
	require.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/bids", createBidRequest{Name: "Reno"}).Code)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/bids/EST-000001/recap?overhead=abc", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/bids/EST-000001/recap?profit=-5", nil).Code)

	// A rejected recap does not lock the bid.
	w := do(t, h, http.MethodPost, "/bids/EST-000001/items", addItemRequest{SKU: "ASM-SW-1P", Quantity: 1})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestConcurrentAddItem(t *testing.T) {
	t.Parallel()
	h := newTestServer(t, nil)
	require.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/bids", createBidRequest{Name: "Dorm"}).Code)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodPost, "/bids/EST-000001/items",
				strings.NewReader(`{"sku":"ASM-REC-20A","qty":1}`))
			h.ServeHTTP(httptest.NewRecorder(), req)
		}()
	}
	wg.Wait()

	w := do(t, h, http.MethodGet, "/bids/EST-000001", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody[model.Bid](t, w).Items, 50)
}

func TestStore_PersistsAndReloads(t *testing.T) {
	t.Parallel()
	st := newMemBids()
	h := newTestServer(t, st)

	require.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/bids", createBidRequest{Name: "Reno"}).Code)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/bids/EST-000001/items", addItemRequest{SKU: "ASM-SW-1P", Quantity: 2}).Code)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/bids/EST-000001/recap", nil).Code)

	saved, err := st.GetBid(context.Background(), "EST-000001")
	require.NoError(t, err)
	assert.True(t, saved.Locked)
	assert.Len(t, saved.Items, 1)
	require.Len(t, st.recaps, 1)

	// A fresh server with the same store finds the bid.
	h2 := newTestServer(t, st)
	w := do(t, h2, http.MethodGet, "/bids/EST-000001", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeBody[model.Bid](t, w).Locked)

	assert.Equal(t, http.StatusNotFound, do(t, h2, http.MethodGet, "/bids/EST-404", nil).Code)
}

func TestScore(t *testing.T) {
	t.Parallel()
	h := newTestServer(t, nil)

	w := do(t, h, http.MethodPost, "/score", scoreRequest{Client: "Mercy Health", JobType: "hospital", Value: 200_000})
	require.Equal(t, http.StatusOK, w.Code)
	report := decodeBody[model.ProbabilityReport](t, w)
	assert.Equal(t, 95, report.Score)
	assert.Equal(t, model.TrafficGreen, report.Status)

	w = do(t, h, http.MethodPost, "/score", `{"client":"X","job_type":"Y","value":-1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStrategy(t *testing.T) {
	t.Parallel()
	h := newTestServer(t, nil)

	w := do(t, h, http.MethodPost, "/strategy", strategyRequest{
		scoreRequest: scoreRequest{Client: "MERCY HEALTH", JobType: "HOSPITAL", Value: 200_000},
		BaseCost:     100_000,
	})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody[strategyResponse](t, w)
	assert.Equal(t, 95, resp.Probability.Score)
	assert.InDelta(t, 20.0, resp.Recommendation.SuggestedMarginPercent, 1e-9)
	assert.InDelta(t, 125_000.0, resp.Recommendation.SellPrice, 0.01)

	w = do(t, h, http.MethodPost, "/strategy", `{"client":"A","job_type":"B","value":1,"base_cost":-10}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHistoryEndpoints(t *testing.T) {
	t.Parallel()
	h := newTestServer(t, nil)

	w := do(t, h, http.MethodGet, "/history/win-ratio", nil)
	require.Equal(t, http.StatusOK, w.Code)
	ratio := decodeBody[winRatioResponse](t, w)
	assert.Equal(t, "62.5% (5/8)", ratio.Display)

	w = do(t, h, http.MethodPost, "/history", historyRequest{Client: "city hall", JobType: "civic", Value: 300_000, MarginPercent: 12, Outcome: "lost", Competitor: strPtr("Zenith Electric")})
	require.Equal(t, http.StatusCreated, w.Code)
	rec := decodeBody[model.HistoricalBid](t, w)
	assert.Equal(t, "CITY HALL", rec.Client)
	assert.NotEmpty(t, rec.ID)

	w = do(t, h, http.MethodGet, "/history/win-ratio", nil)
	assert.Equal(t, "55.6% (5/9)", decodeBody[winRatioResponse](t, w).Display)

	w = do(t, h, http.MethodGet, "/competitors/zenith%20electric", nil)
	require.Equal(t, http.StatusOK, w.Code)
	report := decodeBody[archive.CompetitorReport](t, w)
	assert.Equal(t, 3, report.TimesLostTo)

	w = do(t, h, http.MethodPost, "/history", historyRequest{Client: "A", JobType: "B", Outcome: "WITHDRAWN"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCORS(t *testing.T) {
	t.Parallel()
	req := httptest.NewRequest(http.MethodOptions, "/score", nil)
	req.Header.Set("Origin", "https://estimating.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	newTestServer(t, nil).ServeHTTP(w, req)

	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func strPtr(s string) *string { return &s }
