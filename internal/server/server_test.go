package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/beerstock/internal/auth"
	"github.com/vyrodovalexey/beerstock/internal/config"
	"github.com/vyrodovalexey/beerstock/internal/db"
	"github.com/vyrodovalexey/beerstock/internal/handler"
	"github.com/vyrodovalexey/beerstock/internal/model"
	"github.com/vyrodovalexey/beerstock/internal/service"
	"github.com/vyrodovalexey/beerstock/internal/store"
)

type testServer struct {
	srv  *Server
	feed *handler.StockFeed
}

func newTestServer(t *testing.T, cfg *config.Config, s store.Store, authenticator auth.Authenticator) *testServer {
	t.Helper()
	logger := zap.NewNop()
	feed := handler.NewStockFeed(logger)
	svc := service.NewBeerService(s, feed, logger)
	srv := New(cfg, logger, Dependencies{
		Service:       svc,
		Pinger:        s,
		Feed:          feed,
		Authenticator: authenticator,
	})
	return &testServer{srv: srv, feed: feed}
}

func (ts *testServer) do(t *testing.T, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rr, req)
	return rr
}

const brahma = `{"name":"Brahma","brand":"Ambev","max":100,"quantity":50,"type":"LAGER"}`

func TestServer_StockLifecycle(t *testing.T) {
	stores := map[string]func(t *testing.T) store.Store{
		"memory": func(*testing.T) store.Store { return store.NewMemoryStore() },
		"sqlite": func(t *testing.T) store.Store { return store.NewSQLStore(db.NewTestDB(t), db.DriverSQLite) },
	}

	for name, newStore := range stores {
		t.Run(name, func(t *testing.T) {
			ts := newTestServer(t, config.Default(), newStore(t), nil)

			rr := ts.do(t, http.MethodPost, handler.BeersPath, brahma, nil)
			require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
			var created model.APIResponse[model.Beer]
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&created))
			id := created.Data.ID
			base := handler.BeersPath + "/" + jsonNumber(id)

			rr = ts.do(t, http.MethodPost, handler.BeersPath, brahma, nil)
			assert.Equal(t, http.StatusBadRequest, rr.Code)

			rr = ts.do(t, http.MethodPatch, base+"/increment", `{"quantity":50}`, nil)
			assert.Equal(t, http.StatusOK, rr.Code)

			rr = ts.do(t, http.MethodPatch, base+"/increment", `{"quantity":1}`, nil)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Contains(t, rr.Body.String(), "cannot be above max 100")

			rr = ts.do(t, http.MethodPatch, base+"/decrement", `{"quantity":100}`, nil)
			assert.Equal(t, http.StatusOK, rr.Code)

			rr = ts.do(t, http.MethodPatch, base+"/decrement", `{"quantity":1}`, nil)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Contains(t, rr.Body.String(), "cannot be below 0")

			rr = ts.do(t, http.MethodGet, handler.BeersPath+"/Brahma", "", nil)
			require.Equal(t, http.StatusOK, rr.Code)
			var found model.APIResponse[model.Beer]
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&found))
			assert.Equal(t, 0, found.Data.Quantity)

			rr = ts.do(t, http.MethodDelete, base, "", nil)
			assert.Equal(t, http.StatusNoContent, rr.Code)

			rr = ts.do(t, http.MethodDelete, base, "", nil)
			assert.Equal(t, http.StatusNotFound, rr.Code)

			rr = ts.do(t, http.MethodGet, handler.BeersPath, "", nil)
			require.Equal(t, http.StatusOK, rr.Code)
			var list model.APIResponse[[]model.Beer]
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&list))
			assert.NotNil(t, list.Data)
			assert.Empty(t, list.Data)
		})
	}
}

func jsonNumber(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}

func TestServer_HealthAndMetrics(t *testing.T) {
	ts := newTestServer(t, config.Default(), store.NewMemoryStore(), nil)

	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/health", "", nil).Code)
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/ready", "", nil).Code)

	ts.do(t, http.MethodGet, handler.BeersPath, "", nil)
	rr := ts.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "beerstock_http_requests_total")
}

func TestServer_MetricsDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.MetricsEnabled = false
	ts := newTestServer(t, cfg, store.NewMemoryStore(), nil)

	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/metrics", "", nil).Code)
}

func TestServer_RequestIDAndCORS(t *testing.T) {
	ts := newTestServer(t, config.Default(), store.NewMemoryStore(), nil)

	rr := ts.do(t, http.MethodOptions, handler.BeersPath+"/1/increment", "", map[string]string{
		"Origin": "https://bar.example",
	})

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rr.Header().Get("Access-Control-Allow-Methods"), http.MethodPatch)
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
}

func TestServer_Auth(t *testing.T) {
	cfg := config.Default()
	cfg.AuthMode = "apikey"
	authenticator, err := auth.NewAPIKeyAuthenticator("k-1:warehouse")
	require.NoError(t, err)
	ts := newTestServer(t, cfg, store.NewMemoryStore(), authenticator)

	assert.Equal(t, http.StatusUnauthorized, ts.do(t, http.MethodGet, handler.BeersPath, "", nil).Code)
	assert.Equal(t, http.StatusOK,
		ts.do(t, http.MethodGet, handler.BeersPath, "", map[string]string{auth.APIKeyHeader: "k-1"}).Code)
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/health", "", nil).Code)
}

func TestServer_UpgradeHeaderDoesNotBypassAuth(t *testing.T) {
	cfg := config.Default()
	cfg.AuthMode = "apikey"
	authenticator, err := auth.NewAPIKeyAuthenticator("secret:clerk")
	require.NoError(t, err)
	ts := newTestServer(t, cfg, store.NewMemoryStore(), authenticator)
	upgrade := map[string]string{"Connection": "Upgrade", "Upgrade": "websocket"}

	rr := ts.do(t, http.MethodPost, handler.BeersPath, brahma, upgrade)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = ts.do(t, http.MethodDelete, handler.BeersPath+"/1", "", upgrade)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = ts.do(t, http.MethodPatch, handler.BeersPath+"/1/increment", `{"quantity":1}`, upgrade)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = ts.do(t, http.MethodGet, handler.BeersPath, "", map[string]string{auth.APIKeyHeader: "secret"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"success":true,"data":[]}`, rr.Body.String())
}

func TestServer_RateLimit(t *testing.T) {
	cfg := config.Default()
	cfg.RateLimit = 1.0 / 60
	cfg.RateBurst = 2
	ts := newTestServer(t, cfg, store.NewMemoryStore(), nil)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, ts.do(t, http.MethodGet, handler.BeersPath, "", nil).Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestServer_StockFeedAndShutdown(t *testing.T) {
	// Arrange
	ts := newTestServer(t, config.Default(), store.NewMemoryStore(), nil)
	httpServer := httptest.NewServer(ts.srv.Handler())
	defer httpServer.Close()

	wsURL := "ws" + strings.TrimPrefix(httpServer.URL, "http") + handler.StockFeedPath
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return ts.feed.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	// Act
	resp, err := http.Post(httpServer.URL+handler.BeersPath, "application/json", strings.NewReader(brahma))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// Assert
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var event model.StockEvent
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, model.StockEventCreated, event.Type)
	assert.Equal(t, "Brahma", event.Name)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, ts.srv.Shutdown(ctx))
	assert.Equal(t, 0, ts.feed.ClientCount())
}
