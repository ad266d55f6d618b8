package metrics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHandlerServesCounters(t *testing.T) {
	OrdersCreated.Add(2)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/vars", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var vars map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &vars); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got, ok := vars["orders_created"].(float64); !ok || got < 2 {
		t.Fatalf("orders_created = %v", vars["orders_created"])
	}
	if _, ok := vars["trader_passes"]; !ok {
		t.Fatal("trader_passes missing")
	}
}
