package pesapal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/DanielPopoola/pesapal-gateway/internal/application"
	"github.com/DanielPopoola/pesapal-gateway/internal/config"
)

const maxResponseBytes = 1 << 20

const (
	opRequestToken = "Auth/RequestToken"
	opRegisterIPN  = "URLSetup/RegisterIPN"
	opListIPNs     = "URLSetup/GetIpnList"
	opSubmitOrder  = "Transactions/SubmitOrderRequest"
	opStatus       = "Transactions/GetTransactionStatus"
)

// HTTPClient talks to the Pesapal v3 JSON API.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(cfg config.PesapalConfig, logger *slog.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

func (c *HTTPClient) RequestToken(ctx context.Context, req application.TokenRequest) (*application.TokenResponse, error) {
	body := tokenRequest{ConsumerKey: req.ConsumerKey, ConsumerSecret: req.ConsumerSecret}
	resp, err := sendRequest[tokenRequest, tokenResponse](c, ctx, opRequestToken, http.MethodPost, c.endpoint(opRequestToken), "", &body)
	if err != nil {
		return nil, err
	}
	return &application.TokenResponse{
		Token:     resp.Token,
		ExpiresAt: parseExpiry(resp.ExpiryDate),
	}, nil
}

func (c *HTTPClient) RegisterIPN(ctx context.Context, token string, req application.RegisterIPNRequest) (*application.RegisterIPNResponse, error) {
	body := registerIPNRequest{URL: req.URL, IPNNotificationType: req.NotificationType}
	resp, err := sendRequest[registerIPNRequest, registerIPNResponse](c, ctx, opRegisterIPN, http.MethodPost, c.endpoint(opRegisterIPN), token, &body)
	if err != nil {
		return nil, err
	}
	return &application.RegisterIPNResponse{IPNID: resp.IPNID, URL: resp.URL}, nil
}

func (c *HTTPClient) ListIPNs(ctx context.Context, token string) ([]application.IPNRegistration, error) {
	resp, err := sendRequest[any, []ipnListEntry](c, ctx, opListIPNs, http.MethodGet, c.endpoint(opListIPNs), token, nil)
	if err != nil {
		return nil, err
	}
	out := make([]application.IPNRegistration, 0, len(*resp))
	for _, entry := range *resp {
		out = append(out, application.IPNRegistration{
			IPNID:            entry.IPNID,
			URL:              entry.URL,
			NotificationType: entry.IPNNotificationType,
		})
	}
	return out, nil
}

func (c *HTTPClient) SubmitOrder(ctx context.Context, token string, req application.SubmitOrderRequest) (*application.SubmitOrderResponse, error) {
	body := submitOrderRequest{
		ID:             req.Reference,
		Currency:       req.Currency,
		Amount:         req.Amount,
		Description:    req.Description,
		CallbackURL:    req.CallbackURL,
		NotificationID: req.NotificationID,
		BillingAddress: billingAddress{
			EmailAddress: req.Billing.Email,
			PhoneNumber:  req.Billing.Phone,
			FirstName:    req.Billing.FirstName,
			LastName:     req.Billing.LastName,
		},
	}
	resp, err := sendRequest[submitOrderRequest, submitOrderResponse](c, ctx, opSubmitOrder, http.MethodPost, c.endpoint(opSubmitOrder), token, &body)
	if err != nil {
		return nil, err
	}
	return &application.SubmitOrderResponse{
		OrderTrackingID:   resp.OrderTrackingID,
		MerchantReference: resp.MerchantReference,
		RedirectURL:       resp.RedirectURL,
	}, nil
}

func (c *HTTPClient) GetTransactionStatus(ctx context.Context, token, orderTrackingID string) (*application.TransactionStatus, error) {
	endpoint := c.endpoint(opStatus) + "?" + url.Values{"orderTrackingId": {orderTrackingID}}.Encode()
	resp, err := sendRequest[any, transactionStatusResponse](c, ctx, opStatus, http.MethodGet, endpoint, token, nil)
	if err != nil {
		return nil, err
	}
	return &application.TransactionStatus{
		OrderTrackingID:   orderTrackingID,
		MerchantReference: resp.MerchantReference,
		Description:       resp.PaymentStatusDescription,
		StatusCode:        resp.StatusCode,
		Amount:            resp.Amount,
		Currency:          resp.Currency,
		ConfirmationCode:  resp.ConfirmationCode,
		PaymentMethod:     resp.PaymentMethod,
	}, nil
}

func (c *HTTPClient) endpoint(op string) string {
	return fmt.Sprintf("%s/api/%s", c.baseURL, op)
}

func sendRequest[Req any, Resp any](c *HTTPClient, ctx context.Context, op, method, endpoint, token string, reqBody *Req) (*Resp, error) {
	var bodyReader io.Reader
	if reqBody != nil {
		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("error marshalling json: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	if reqBody != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &application.NetworkError{Operation: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &application.NetworkError{Operation: op, Err: err}
	}

	c.logger.Debug("gateway call",
		"operation", op,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var env envelope
		if err := json.Unmarshal(body, &env); err != nil {
			return nil, toGatewayError(op, resp.StatusCode, nil, 0, truncate(string(body)))
		}
		return nil, toGatewayError(op, resp.StatusCode, env.failure(), env.statusCode(), env.Message)
	}

	var out Resp
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &application.GatewayError{
			Operation:  op,
			Code:       "invalid_response",
			Message:    fmt.Sprintf("error decoding json response: %v", err),
			StatusCode: resp.StatusCode,
		}
	}

	if env, ok := any(&out).(enveloped); ok {
		if apiErr := env.failure(); apiErr != nil {
			return nil, toGatewayError(op, resp.StatusCode, apiErr, env.statusCode(), "")
		}
	}

	return &out, nil
}

func truncate(s string) string {
	const limit = 512
	if len(s) > limit {
		return s[:limit]
	}
	return s
}
