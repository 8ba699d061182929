package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/oapi-codegen/runtime"
)

type PaymentStatus string

const (
	PENDING   PaymentStatus = "PENDING"
	COMPLETED PaymentStatus = "COMPLETED"
	FAILED    PaymentStatus = "FAILED"
	INVALID   PaymentStatus = "INVALID"
)

type SubmitPaymentRequest struct {
	Reference   string  `json:"reference,omitempty"`
	BookingRef  string  `json:"booking_ref,omitempty"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	Description string  `json:"description,omitempty"`
	CallbackURL string  `json:"callback_url,omitempty"`
	Email       string  `json:"email,omitempty"`
	Phone       string  `json:"phone,omitempty"`
	FirstName   string  `json:"first_name,omitempty"`
	LastName    string  `json:"last_name,omitempty"`
}

type SubmitPaymentData struct {
	Reference       string `json:"reference"`
	OrderTrackingID string `json:"order_tracking_id"`
	RedirectURL     string `json:"redirect_url"`
}

type SubmitPaymentResponse struct {
	Success bool              `json:"success"`
	Data    SubmitPaymentData `json:"data"`
}

// IPNNotification is the POST body of a gateway delivery.
type IPNNotification struct {
	OrderTrackingID        string `json:"OrderTrackingId"`
	OrderMerchantReference string `json:"OrderMerchantReference"`
	OrderNotificationType  string `json:"OrderNotificationType"`
}

// IPNAck is the acknowledgement body the gateway expects.
type IPNAck struct {
	OrderNotificationType  string `json:"orderNotificationType"`
	OrderTrackingID        string `json:"orderTrackingId"`
	OrderMerchantReference string `json:"orderMerchantReference"`
	Status                 int    `json:"status"`
}

type StatusData struct {
	Reference        string        `json:"reference,omitempty"`
	OrderTrackingID  string        `json:"order_tracking_id"`
	Status           PaymentStatus `json:"status"`
	StatusCode       *int          `json:"status_code"`
	Description      string        `json:"description,omitempty"`
	PaymentMethod    string        `json:"payment_method,omitempty"`
	ConfirmationCode string        `json:"confirmation_code,omitempty"`
	Amount           float64       `json:"amount,omitempty"`
	Currency         string        `json:"currency,omitempty"`
}

type StatusResponse struct {
	Success bool       `json:"success"`
	Data    StatusData `json:"data"`
}

type Payment struct {
	Reference       string        `json:"reference"`
	BookingRef      string        `json:"booking_ref,omitempty"`
	BookingStatus   *int16        `json:"booking_status"`
	Amount          float64       `json:"amount"`
	Currency        string        `json:"currency"`
	Description     string        `json:"description,omitempty"`
	Status          PaymentStatus `json:"status"`
	Action          string        `json:"action,omitempty"`
	OrderTrackingID string        `json:"order_tracking_id,omitempty"`
	RedirectURL     string        `json:"redirect_url,omitempty"`
	ErrorDetail     string        `json:"error_detail,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

type PaymentResponse struct {
	Success bool    `json:"success"`
	Data    Payment `json:"data"`
}

type ErrorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

type ErrorResponse struct {
	Success bool      `json:"success"`
	Error   ErrorBody `json:"error"`
}

// NotificationParams are the query parameters of an IPN delivery.
type NotificationParams struct {
	OrderTrackingId        *string `form:"OrderTrackingId,omitempty" json:"OrderTrackingId,omitempty"`
	OrderMerchantReference *string `form:"OrderMerchantReference,omitempty" json:"OrderMerchantReference,omitempty"`
	OrderNotificationType  *string `form:"OrderNotificationType,omitempty" json:"OrderNotificationType,omitempty"`
}

// StatusParams are the query parameters of a status read.
type StatusParams struct {
	OrderTrackingId        string  `form:"OrderTrackingId" json:"OrderTrackingId"`
	OrderMerchantReference *string `form:"OrderMerchantReference,omitempty" json:"OrderMerchantReference,omitempty"`
}

// ServerInterface represents all server handlers.
type ServerInterface interface {
	// (POST /api/pesapal/payment)
	SubmitPayment(w http.ResponseWriter, r *http.Request)
	// (GET /api/pesapal/ipn)
	ReceiveIPN(w http.ResponseWriter, r *http.Request, params NotificationParams)
	// (POST /api/pesapal/ipn)
	ReceiveIPNPost(w http.ResponseWriter, r *http.Request, params NotificationParams)
	// (GET /api/pesapal/callback)
	PaymentCallback(w http.ResponseWriter, r *http.Request, params StatusParams)
	// (GET /api/pesapal/status)
	GetTransactionStatus(w http.ResponseWriter, r *http.Request, params StatusParams)
	// (GET /api/pesapal/payments/{reference})
	GetPayment(w http.ResponseWriter, r *http.Request, reference string)
	// (GET /healthz)
	Healthz(w http.ResponseWriter, r *http.Request)
}

// ParamErrorHandler writes the response for a parameter that failed to bind.
type ParamErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// ServerInterfaceWrapper converts raw requests to typed handler calls.
type ServerInterfaceWrapper struct {
	Handler          ServerInterface
	ErrorHandlerFunc ParamErrorHandler
}

func (siw *ServerInterfaceWrapper) SubmitPayment(w http.ResponseWriter, r *http.Request) {
	siw.Handler.SubmitPayment(w, r)
}

// ReceiveIPN never rejects a delivery: unbindable parameters are left empty.
func (siw *ServerInterfaceWrapper) ReceiveIPN(w http.ResponseWriter, r *http.Request) {
	siw.Handler.ReceiveIPN(w, r, bindNotificationParams(r))
}

func (siw *ServerInterfaceWrapper) ReceiveIPNPost(w http.ResponseWriter, r *http.Request) {
	siw.Handler.ReceiveIPNPost(w, r, bindNotificationParams(r))
}

func (siw *ServerInterfaceWrapper) PaymentCallback(w http.ResponseWriter, r *http.Request) {
	params, err := bindStatusParams(r)
	if err != nil {
		siw.ErrorHandlerFunc(w, r, err)
		return
	}
	siw.Handler.PaymentCallback(w, r, params)
}

func (siw *ServerInterfaceWrapper) GetTransactionStatus(w http.ResponseWriter, r *http.Request) {
	params, err := bindStatusParams(r)
	if err != nil {
		siw.ErrorHandlerFunc(w, r, err)
		return
	}
	siw.Handler.GetTransactionStatus(w, r, params)
}

func (siw *ServerInterfaceWrapper) GetPayment(w http.ResponseWriter, r *http.Request) {
	var reference string
	err := runtime.BindStyledParameterWithOptions("simple", "reference", r.PathValue("reference"), &reference,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "reference", Err: err})
		return
	}
	siw.Handler.GetPayment(w, r, reference)
}

func (siw *ServerInterfaceWrapper) Healthz(w http.ResponseWriter, r *http.Request) {
	siw.Handler.Healthz(w, r)
}

func bindNotificationParams(r *http.Request) NotificationParams {
	var params NotificationParams
	query := r.URL.Query()
	_ = runtime.BindQueryParameter("form", true, false, "OrderTrackingId", query, &params.OrderTrackingId)
	_ = runtime.BindQueryParameter("form", true, false, "OrderMerchantReference", query, &params.OrderMerchantReference)
	_ = runtime.BindQueryParameter("form", true, false, "OrderNotificationType", query, &params.OrderNotificationType)
	return params
}

func bindStatusParams(r *http.Request) (StatusParams, error) {
	var params StatusParams
	query := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, true, "OrderTrackingId", query, &params.OrderTrackingId); err != nil {
		return params, &InvalidParamFormatError{ParamName: "OrderTrackingId", Err: err}
	}
	if err := runtime.BindQueryParameter("form", true, false, "OrderMerchantReference", query, &params.OrderMerchantReference); err != nil {
		return params, &InvalidParamFormatError{ParamName: "OrderMerchantReference", Err: err}
	}
	return params, nil
}

type InvalidParamFormatError struct {
	ParamName string
	Err       error
}

func (e *InvalidParamFormatError) Error() string {
	return fmt.Sprintf("Invalid format for parameter %s: %s", e.ParamName, e.Err.Error())
}

func (e *InvalidParamFormatError) Unwrap() error {
	return e.Err
}

// HandlerFromMux registers every operation on mux.
func HandlerFromMux(si ServerInterface, mux *http.ServeMux, errorHandler ParamErrorHandler) http.Handler {
	if errorHandler == nil {
		errorHandler = func(w http.ResponseWriter, _ *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
	}
	wrapper := ServerInterfaceWrapper{Handler: si, ErrorHandlerFunc: errorHandler}

	mux.HandleFunc("POST /api/pesapal/payment", wrapper.SubmitPayment)
	mux.HandleFunc("GET /api/pesapal/ipn", wrapper.ReceiveIPN)
	mux.HandleFunc("POST /api/pesapal/ipn", wrapper.ReceiveIPNPost)
	mux.HandleFunc("GET /api/pesapal/callback", wrapper.PaymentCallback)
	mux.HandleFunc("GET /api/pesapal/status", wrapper.GetTransactionStatus)
	mux.HandleFunc("GET /api/pesapal/payments/{reference}", wrapper.GetPayment)
	mux.HandleFunc("GET /healthz", wrapper.Healthz)
	return mux
}
