package e2e

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

// FakePesapal serves the subset of the Pesapal v3 API the gateway calls.
type FakePesapal struct {
	server *httptest.Server

	mu     sync.Mutex
	calls  map[string]int
	ipns   []map[string]string
	orders map[string]*fakeOrder
}

type fakeOrder struct {
	Reference  string
	Amount     float64
	Currency   string
	StatusCode int
}

func NewFakePesapal(t *testing.T) *FakePesapal {
	t.Helper()
	f := &FakePesapal{
		calls:  make(map[string]int),
		orders: make(map[string]*fakeOrder),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/Auth/RequestToken", f.requestToken)
	mux.HandleFunc("GET /api/URLSetup/GetIpnList", f.listIPNs)
	mux.HandleFunc("POST /api/URLSetup/RegisterIPN", f.registerIPN)
	mux.HandleFunc("POST /api/Transactions/SubmitOrderRequest", f.submitOrder)
	mux.HandleFunc("GET /api/Transactions/GetTransactionStatus", f.transactionStatus)

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *FakePesapal) URL() string {
	return f.server.URL
}

func (f *FakePesapal) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// SetStatus changes what the status endpoint reports for a tracking id.
func (f *FakePesapal) SetStatus(trackingID string, code int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if o, ok := f.orders[trackingID]; ok {
		o.StatusCode = code
	}
}

func (f *FakePesapal) record(op string) {
	f.mu.Lock()
	f.calls[op]++
	f.mu.Unlock()
}

func (f *FakePesapal) requestToken(w http.ResponseWriter, r *http.Request) {
	f.record("RequestToken")
	var body map[string]string
	_ = json.NewDecoder(r.Body).Decode(&body)
	if body["consumer_key"] != "key" || body["consumer_secret"] != "secret" {
		writeJSON(w, http.StatusOK, map[string]any{
			"error":  map[string]string{"code": "invalid_consumer_key_or_secret_provided", "error_type": "api_error"},
			"status": "500",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token":      "fake-token",
		"expiryDate": time.Now().Add(5 * time.Minute).UTC().Format(time.RFC3339Nano),
		"status":     "200",
	})
}

func (f *FakePesapal) authorized(w http.ResponseWriter, r *http.Request) bool {
	if r.Header.Get("Authorization") != "Bearer fake-token" {
		w.WriteHeader(http.StatusUnauthorized)
		return false
	}
	return true
}

func (f *FakePesapal) listIPNs(w http.ResponseWriter, r *http.Request) {
	f.record("GetIpnList")
	if !f.authorized(w, r) {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	writeJSON(w, http.StatusOK, f.ipns)
}

func (f *FakePesapal) registerIPN(w http.ResponseWriter, r *http.Request) {
	f.record("RegisterIPN")
	if !f.authorized(w, r) {
		return
	}
	var body map[string]string
	_ = json.NewDecoder(r.Body).Decode(&body)

	id := uuid.NewString()
	f.mu.Lock()
	f.ipns = append(f.ipns, map[string]string{
		"url":                               body["url"],
		"ipn_id":                            id,
		"ipn_notification_type_description": body["ipn_notification_type"],
	})
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"url":    body["url"],
		"ipn_id": id,
		"status": "200",
	})
}

func (f *FakePesapal) submitOrder(w http.ResponseWriter, r *http.Request) {
	f.record("SubmitOrderRequest")
	if !f.authorized(w, r) {
		return
	}
	var body struct {
		ID             string  `json:"id"`
		Currency       string  `json:"currency"`
		Amount         float64 `json:"amount"`
		NotificationID string  `json:"notification_id"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	if body.NotificationID == "" {
		writeJSON(w, http.StatusOK, map[string]any{
			"error":  map[string]string{"code": "invalid_notification_id", "message": "notification_id is required"},
			"status": "400",
		})
		return
	}

	trackingID := uuid.NewString()
	f.mu.Lock()
	f.orders[trackingID] = &fakeOrder{Reference: body.ID, Amount: body.Amount, Currency: body.Currency}
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"order_tracking_id":  trackingID,
		"merchant_reference": body.ID,
		"redirect_url":       "https://pay.pesapal.test/iframe?OrderTrackingId=" + trackingID,
		"status":             "200",
	})
}

func (f *FakePesapal) transactionStatus(w http.ResponseWriter, r *http.Request) {
	f.record("GetTransactionStatus")
	if !f.authorized(w, r) {
		return
	}
	trackingID := r.URL.Query().Get("orderTrackingId")

	f.mu.Lock()
	order, ok := f.orders[trackingID]
	var snapshot fakeOrder
	if ok {
		snapshot = *order
	}
	f.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{
			"error":  map[string]string{"code": "order_not_found", "message": "Unknown order tracking id"},
			"status": "404",
		})
		return
	}

	descriptions := map[int]string{0: "INVALID", 1: "COMPLETED", 2: "FAILED", 3: "REVERSED"}
	writeJSON(w, http.StatusOK, map[string]any{
		"payment_method":             "MpesaKE",
		"amount":                     snapshot.Amount,
		"confirmation_code":          "CONF-" + trackingID[:8],
		"payment_status_description": descriptions[snapshot.StatusCode],
		"status_code":                snapshot.StatusCode,
		"merchant_reference":         snapshot.Reference,
		"currency":                   snapshot.Currency,
		"status":                     "200",
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
