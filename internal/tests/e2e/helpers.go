package e2e

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestClient wraps HTTP calls to gateway
type TestClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewTestClient(baseURL string) *TestClient {
	return &TestClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Submit posts an order and decodes the response into out.
func (c *TestClient) Submit(t *testing.T, req any, out any) int {
	body, err := json.Marshal(req)
	require.NoError(t, err)

	httpReq, err := http.NewRequest(http.MethodPost, c.baseURL+"/api/pesapal/payment", bytes.NewReader(body))
	require.NoError(t, err)
	httpReq.Header.Set("Content-Type", "application/json")

	return c.do(t, httpReq, out)
}

// Notify delivers a GET IPN the way the gateway does.
func (c *TestClient) Notify(t *testing.T, trackingID, reference string, out any) int {
	query := url.Values{
		"OrderTrackingId":        {trackingID},
		"OrderMerchantReference": {reference},
		"OrderNotificationType":  {"IPNCHANGE"},
	}
	return c.get(t, "/api/pesapal/ipn?"+query.Encode(), out)
}

func (c *TestClient) Status(t *testing.T, trackingID, reference string, out any) int {
	query := url.Values{"OrderTrackingId": {trackingID}}
	if reference != "" {
		query.Set("OrderMerchantReference", reference)
	}
	return c.get(t, "/api/pesapal/status?"+query.Encode(), out)
}

func (c *TestClient) Payment(t *testing.T, reference string, out any) int {
	return c.get(t, "/api/pesapal/payments/"+url.PathEscape(reference), out)
}

func (c *TestClient) get(t *testing.T, path string, out any) int {
	httpReq, err := http.NewRequest(http.MethodGet, c.baseURL+path, nil)
	require.NoError(t, err)
	return c.do(t, httpReq, out)
}

func (c *TestClient) do(t *testing.T, httpReq *http.Request, out any) int {
	resp, err := c.httpClient.Do(httpReq)
	require.NoError(t, err)
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	if out != nil && len(bodyBytes) > 0 {
		require.NoError(t, json.Unmarshal(bodyBytes, out), string(bodyBytes))
	}
	return resp.StatusCode
}
