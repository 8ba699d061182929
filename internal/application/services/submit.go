package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator"

	"github.com/DanielPopoola/pesapal-gateway/internal/application"
	"github.com/DanielPopoola/pesapal-gateway/internal/config"
	"github.com/DanielPopoola/pesapal-gateway/internal/domain"
)

const maxReferenceAttempts = 3

type SubmitResult struct {
	Reference       string
	OrderTrackingID string
	RedirectURL     string
}

// SubmitService validates an order, reserves its ledger row and hands it to the
// gateway. Every call leaves exactly one ledger row behind.
type SubmitService struct {
	ledger      application.Ledger
	gateway     application.Gateway
	creds       application.CredentialSource
	webhooks    application.WebhookSource
	orders      config.OrdersConfig
	ipnURL      string
	callbackURL string
	validate    *validator.Validate
	logger      *slog.Logger
	now         func() time.Time
}

func NewSubmitService(
	ledger application.Ledger,
	gateway application.Gateway,
	creds application.CredentialSource,
	webhooks application.WebhookSource,
	orders config.OrdersConfig,
	pesapal config.PesapalConfig,
	logger *slog.Logger,
) *SubmitService {
	return &SubmitService{
		ledger:      ledger,
		gateway:     gateway,
		creds:       creds,
		webhooks:    webhooks,
		orders:      orders,
		ipnURL:      pesapal.IPNURL,
		callbackURL: pesapal.CallbackURL,
		validate:    newValidator(),
		logger:      logger,
		now:         time.Now,
	}
}

func (s *SubmitService) Submit(ctx context.Context, cmd SubmitOrderCommand) (*SubmitResult, error) {
	// Submission runs to completion even if the client disconnects. Only the
	// gateway leg is bounded so the ledger write after a timeout still lands.
	ctx = context.WithoutCancel(ctx)

	cmd.Currency = strings.ToUpper(strings.TrimSpace(cmd.Currency))
	cmd.Reference = strings.TrimSpace(cmd.Reference)
	details := s.orderDetails(cmd)

	if cmd.DecodeErr != nil {
		verr := application.NewValidationError("Malformed order request: "+cmd.DecodeErr.Error(), cmd.DecodeErr)
		return nil, s.reject(ctx, cmd, details, verr)
	}
	if err := s.validateCommand(cmd); err != nil {
		return nil, s.reject(ctx, cmd, details, err)
	}

	money, err := domain.NewMoney(domain.ToMinorUnits(cmd.Amount), cmd.Currency)
	if err != nil {
		return nil, s.reject(ctx, cmd, details, application.NewValidationError(err.Error(), err))
	}

	order, err := s.reserve(ctx, cmd, money, details)
	if err != nil {
		return nil, err
	}

	logger := s.logger.With("reference", order.Reference)

	gatewayCtx, cancel := context.WithTimeout(ctx, s.orders.SubmitDeadline)
	resp, notificationID, err := s.submitToGateway(gatewayCtx, order)
	cancel()
	if err != nil {
		s.markFailed(ctx, order.Reference, err)
		if _, ok := application.IsNetworkError(err); ok {
			logger.Error("ORPHANED_GATEWAY_ORDER_RISK",
				"error", err,
				"action", "RECONCILE_BY_REFERENCE_IF_CUSTOMER_PAID")
		} else {
			logger.Warn("order submission failed", "error", err)
		}
		return nil, withReference(err, order.Reference)
	}

	_, err = s.ledger.Update(ctx, order.Reference, func(_ context.Context, _ application.LedgerTx, o *domain.PaymentOrder) (bool, error) {
		if err := o.MarkSubmitted(resp.OrderTrackingID, resp.RedirectURL, notificationID); err != nil {
			return false, err
		}
		return true, nil
	})
	if err != nil {
		// The gateway holds the order. The row stays PENDING and picks up the
		// tracking id on the first IPN for this reference.
		logger.Error("could not record gateway acceptance",
			"order_tracking_id", resp.OrderTrackingID,
			"error", err)
	}

	logger.Info("order submitted", "order_tracking_id", resp.OrderTrackingID)
	return &SubmitResult{
		Reference:       order.Reference,
		OrderTrackingID: resp.OrderTrackingID,
		RedirectURL:     resp.RedirectURL,
	}, nil
}

func (s *SubmitService) submitToGateway(ctx context.Context, order *domain.PaymentOrder) (*application.SubmitOrderResponse, string, error) {
	notificationID, err := s.webhooks.EnsureRegistered(ctx, s.ipnURL)
	if err != nil {
		return nil, "", err
	}

	req := application.SubmitOrderRequest{
		Reference:      order.Reference,
		Currency:       order.Currency,
		Amount:         order.Money().Major(),
		Description:    order.Description,
		CallbackURL:    order.CallbackURL,
		NotificationID: notificationID,
		Billing:        order.Billing,
	}

	resp, err := withCredential(ctx, s.creds, func(token string) (*application.SubmitOrderResponse, error) {
		return s.gateway.SubmitOrder(ctx, token, req)
	})
	if err != nil {
		if _, ok := application.IsServiceError(err); ok {
			return nil, "", err
		}
		return nil, "", application.NewGatewayFailure("Payment gateway rejected the order", err)
	}
	if resp.OrderTrackingID == "" || resp.RedirectURL == "" {
		return nil, "", application.NewGatewayFailure("Payment gateway returned an incomplete order",
			&application.GatewayError{Operation: "Transactions/SubmitOrderRequest", Code: "incomplete_response", StatusCode: 200})
	}
	return resp, notificationID, nil
}

// reserve inserts the PENDING row before any network call.
func (s *SubmitService) reserve(ctx context.Context, cmd SubmitOrderCommand, money domain.Money, details domain.OrderDetails) (*domain.PaymentOrder, error) {
	for attempt := 0; attempt < maxReferenceAttempts; attempt++ {
		reference := cmd.Reference
		if reference == "" {
			reference = s.newReference()
		}

		order, err := domain.NewPaymentOrder(reference, money, details)
		if err != nil {
			return nil, s.reject(ctx, cmd, details, application.NewValidationError(err.Error(), err))
		}

		err = s.ledger.Create(ctx, order)
		if err == nil {
			return order, nil
		}
		if !errors.Is(err, domain.ErrDuplicateReference) {
			return nil, application.NewInternalError(err)
		}
		if cmd.Reference != "" {
			return nil, s.reject(ctx, cmd, details, application.NewValidationError(
				fmt.Sprintf("reference %s has already been used", cmd.Reference), err))
		}
	}
	return nil, application.NewInternalError(errors.New("could not allocate a unique reference"))
}

// reject records a submission that never reached the gateway as a FAILED row.
func (s *SubmitService) reject(ctx context.Context, cmd SubmitOrderCommand, details domain.OrderDetails, cause error) error {
	reference := cmd.Reference
	if reference == "" || !merchantRefPattern.MatchString(reference) {
		reference = s.newReference()
	}

	for attempt := 0; attempt < maxReferenceAttempts; attempt++ {
		order := domain.NewRejectedOrder(reference, cmd.Amount, cmd.Currency, details, cause.Error())
		err := s.ledger.Create(ctx, order)
		if err == nil {
			s.logger.Warn("order rejected", "reference", reference, "error", cause)
			return withReference(cause, reference)
		}
		if !errors.Is(err, domain.ErrDuplicateReference) {
			s.logger.Error("could not record rejected order", "reference", reference, "error", err)
			return cause
		}
		reference = s.newReference()
	}
	s.logger.Error("could not allocate a reference for rejected order", "error", cause)
	return cause
}

func (s *SubmitService) markFailed(ctx context.Context, reference string, cause error) {
	_, err := s.ledger.Update(ctx, reference, func(_ context.Context, _ application.LedgerTx, o *domain.PaymentOrder) (bool, error) {
		if err := o.MarkSubmissionFailed(cause.Error()); err != nil {
			return false, err
		}
		return true, nil
	})
	if err != nil {
		s.logger.Error("could not mark order failed", "reference", reference, "error", err)
	}
}

func (s *SubmitService) validateCommand(cmd SubmitOrderCommand) error {
	if err := s.validate.Struct(cmd); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			fields := make(map[string]any, len(fieldErrs))
			msgs := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				fields[fe.Field()] = fe.Tag()
				msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
			}
			verr := application.NewValidationError("Invalid order: "+strings.Join(msgs, "; "), err)
			verr.Details = map[string]any{"fields": fields}
			return verr
		}
		return application.NewValidationError("Invalid order", err)
	}

	if cmd.Amount > s.orders.MaxAmount {
		verr := application.NewValidationError(fmt.Sprintf("Amount exceeds the maximum of %g", s.orders.MaxAmount), nil)
		verr.Details = map[string]any{"max_amount": s.orders.MaxAmount}
		return verr
	}
	if !slices.Contains(s.orders.AllowedCurrencies, cmd.Currency) {
		verr := application.NewValidationError(fmt.Sprintf("Currency %s is not accepted", cmd.Currency), nil)
		verr.Details = map[string]any{"allowed_currencies": s.orders.AllowedCurrencies}
		return verr
	}
	return nil
}

// orderDetails fills absent caller fields from the configured defaults, field by field.
func (s *SubmitService) orderDetails(cmd SubmitOrderCommand) domain.OrderDetails {
	defaults := s.orders.DefaultBilling
	details := domain.OrderDetails{
		Description: firstNonEmpty(cmd.Description, s.orders.DefaultDescription),
		CallbackURL: firstNonEmpty(cmd.CallbackURL, s.callbackURL),
		IPAddress:   cmd.IPAddress,
		Billing: domain.Billing{
			Email:     firstNonEmpty(cmd.Email, defaults.Email),
			Phone:     firstNonEmpty(cmd.Phone, defaults.Phone),
			FirstName: firstNonEmpty(cmd.FirstName, defaults.FirstName),
			LastName:  firstNonEmpty(cmd.LastName, defaults.LastName),
		},
	}
	if cmd.BookingRef != "" {
		ref := cmd.BookingRef
		details.BookingRef = &ref
	}
	return details
}

func (s *SubmitService) newReference() string {
	return domain.NewReference(s.orders.ReferencePrefix, s.now())
}

func withReference(err error, reference string) error {
	svcErr, ok := application.IsServiceError(err)
	if !ok {
		return err
	}
	out := *svcErr
	out.Details = make(map[string]any, len(svcErr.Details)+1)
	for k, v := range svcErr.Details {
		out.Details[k] = v
	}
	out.Details["reference"] = reference
	return &out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
