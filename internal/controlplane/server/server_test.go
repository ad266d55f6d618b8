package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/betbot/wfmtrader/internal/apperr"
	"github.com/betbot/wfmtrader/internal/domain"
	"github.com/betbot/wfmtrader/internal/services"
	"github.com/betbot/wfmtrader/pkg/config"
	"github.com/betbot/wfmtrader/pkg/orderbook"
)

type fakeTrader struct {
	mu      sync.Mutex
	running bool
	starts  int
}

func (f *fakeTrader) Start(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running = true
	f.starts++
}

func (f *fakeTrader) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running = false
}

func (f *fakeTrader) Status() services.RunStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := services.RunStatus{State: "stopped"}
	if f.running {
		st.State = "running"
	}
	return st
}

type fakeWatcher struct {
	running bool
}

func (f *fakeWatcher) Start(ctx context.Context) { f.running = true }
func (f *fakeWatcher) Stop()                     { f.running = false }
func (f *fakeWatcher) IsRunning() bool           { return f.running }
func (f *fakeWatcher) Path() string              { return "/tmp/EE.log" }

type fakeLedger struct {
	limit int
	err   error
}

func (f *fakeLedger) Transactions(ctx context.Context, limit int) ([]domain.Transaction, error) {
	f.limit = limit
	if f.err != nil {
		return nil, f.err
	}
	return []domain.Transaction{{ID: 1, ItemURL: "a", Type: domain.TransactionSale, Quantity: 1, Price: 30, CreatedAt: time.Unix(0, 0).UTC()}}, nil
}

func newTestServer(t *testing.T, d Deps) (*Server, http.Handler) {
	t.Helper()
	if d.Trader == nil {
		d.Trader = &fakeTrader{}
	}
	if d.Settings == nil {
		d.Settings = config.NewSettingsState(config.DefaultSettings(), nil, 50*time.Millisecond)
	}
	s, err := New(context.Background(), Config{Listen: "127.0.0.1:0"}, d)
	require.NoError(t, err)
	return s, s.Router()
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestNewRequiresDeps(t *testing.T) {
	_, err := New(context.Background(), Config{}, Deps{})
	require.Error(t, err)
	_, err = New(context.Background(), Config{Listen: ":0"}, Deps{})
	require.Error(t, err)
}

func TestHealthz(t *testing.T) {
	_, h := newTestServer(t, Deps{})
	rec := do(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLiveTraderStartStop(t *testing.T) {
	tr := &fakeTrader{}
	_, h := newTestServer(t, Deps{Trader: tr})

	rec := do(t, h, http.MethodPost, "/api/live-trader/start", "")
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), `"state":"running"`)
	assert.Equal(t, 1, tr.starts)

	rec = do(t, h, http.MethodGet, "/api/live-trader", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"state":"running"`)

	rec = do(t, h, http.MethodPost, "/api/live-trader/stop", "")
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), `"state":"stopped"`)
}

func TestWatcherRoutes(t *testing.T) {
	rec := do(t, mustRouter(t, Deps{}), http.MethodPost, "/api/eelog/start", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	w := &fakeWatcher{}
	h := mustRouter(t, Deps{Watcher: w})
	rec = do(t, h, http.MethodPost, "/api/eelog/start", "")
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.True(t, w.running)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["running"])
	assert.Equal(t, "/tmp/EE.log", body["path"])

	rec = do(t, h, http.MethodPost, "/api/eelog/stop", "")
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.False(t, w.running)
}

func mustRouter(t *testing.T, d Deps) http.Handler {
	_, h := newTestServer(t, d)
	return h
}

func TestSettingsRoundTrip(t *testing.T) {
	h := mustRouter(t, Deps{})

	rec := do(t, h, http.MethodGet, "/api/settings", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got config.Settings
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, config.DefaultSettings().AvgPriceCap, got.AvgPriceCap)

	got.AvgPriceCap = 250
	got.Blacklist = []string{"ash_prime_set"}
	raw, _ := json.Marshal(got)
	rec = do(t, h, http.MethodPut, "/api/settings", string(raw))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/settings", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 250.0, got.AvgPriceCap)
	assert.Equal(t, []string{"ash_prime_set"}, got.Blacklist)
}

func TestSettingsRejectsInvalid(t *testing.T) {
	h := mustRouter(t, Deps{})

	rec := do(t, h, http.MethodPut, "/api/settings", `{"avg_price_cap":-1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPut, "/api/settings", `{"unknown_field":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPut, "/api/settings", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTransactions(t *testing.T) {
	led := &fakeLedger{}
	h := mustRouter(t, Deps{Ledger: led})

	rec := do(t, h, http.MethodGet, "/api/transactions?limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, led.limit)
	assert.Contains(t, rec.Body.String(), `"item_url":"a"`)

	rec = do(t, h, http.MethodGet, "/api/transactions?limit=abc", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 100, led.limit)

	led.err = apperr.IO("store.Transactions", assert.AnError)
	rec = do(t, h, http.MethodGet, "/api/transactions", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestTraderOrders(t *testing.T) {
	rec := do(t, mustRouter(t, Deps{}), http.MethodGet, "/api/live-trader/orders", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"buy_orders":[],"sell_orders":[]}`, rec.Body.String())

	book := orderbook.NewOwnBook()
	book.Put(domain.OwnOrder{ID: "o1", ItemURL: "mesa_prime_set", Side: domain.SideSell, Platinum: 90, Quantity: 1}, false)
	rec = do(t, mustRouter(t, Deps{Book: book}), http.MethodGet, "/api/live-trader/orders", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got domain.OwnOrders
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Empty(t, got.Buy)
	require.Len(t, got.Sell, 1)
	assert.Equal(t, "o1", got.Sell[0].ID)
	assert.Equal(t, int64(90), got.Sell[0].Platinum)
}

func TestLogsUnknownName(t *testing.T) {
	h := mustRouter(t, Deps{})
	rec := do(t, h, http.MethodGet, "/api/logs/..%2Fetc%2Fpasswd", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, h, http.MethodGet, "/api/logs/secrets", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWriteAppErrorStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{apperr.Dataf("op", "", "bad"), http.StatusBadRequest},
		{apperr.Lock("op", assert.AnError), http.StatusServiceUnavailable},
		{apperr.Network("op", "", 503, assert.AnError), http.StatusBadGateway},
		{apperr.IO("op", assert.AnError), http.StatusInternalServerError},
	}
	for _, c := range cases {
		rec := httptest.NewRecorder()
		writeAppError(rec, c.err)
		assert.Equal(t, c.want, rec.Code, c.err.Error())
	}
}

func TestStartAndShutdown(t *testing.T) {
	s, _ := newTestServer(t, Deps{})
	require.NoError(t, s.Start())
	addr := s.Addr()
	require.NotEmpty(t, addr)

	resp, err := http.Get("http://" + addr + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
}

type fakeScraper struct {
	mu      sync.Mutex
	running bool
	runs    int
}

func (f *fakeScraper) Run(ctx context.Context) (services.ScrapeResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs++
	return services.ScrapeResult{Items: 1}, nil
}

func (f *fakeScraper) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

func TestPriceScraperRoutes(t *testing.T) {
	rec := do(t, mustRouter(t, Deps{}), http.MethodPost, "/api/price-scraper/run", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	sc := &fakeScraper{}
	h := mustRouter(t, Deps{Scraper: sc})
	rec = do(t, h, http.MethodPost, "/api/price-scraper/run", "")
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Eventually(t, func() bool {
		sc.mu.Lock()
		defer sc.mu.Unlock()
		return sc.runs == 1
	}, time.Second, time.Millisecond)

	sc.mu.Lock()
	sc.running = true
	sc.mu.Unlock()
	rec = do(t, h, http.MethodPost, "/api/price-scraper/run", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/price-scraper", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"running":true`)
}

func TestDebugVars(t *testing.T) {
	rec := do(t, mustRouter(t, Deps{}), http.MethodGet, "/debug/vars", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "trader_passes")
}
