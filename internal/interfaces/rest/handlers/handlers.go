package handlers

import (
	"context"
	"log/slog"

	"github.com/DanielPopoola/pesapal-gateway/internal/api"
	"github.com/DanielPopoola/pesapal-gateway/internal/application/services"
	"github.com/DanielPopoola/pesapal-gateway/internal/domain"
)

type Submitter interface {
	Submit(ctx context.Context, cmd services.SubmitOrderCommand) (*services.SubmitResult, error)
}

type StatusQuerier interface {
	Query(ctx context.Context, orderTrackingID, reference string) (*services.StatusResult, error)
	FindByReference(ctx context.Context, reference string) (*domain.PaymentOrder, error)
}

type NotificationReceiver interface {
	Receive(ctx context.Context, cmd services.IPNCommand) services.IPNAck
}

type BookingReader interface {
	FindByRef(ctx context.Context, bookingRef string) (*domain.BookingRecord, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers implements the OpenAPI ServerInterface
type Handlers struct {
	submitter     Submitter
	querier       StatusQuerier
	notifications NotificationReceiver
	bookings      BookingReader
	db            Pinger
	logger        *slog.Logger
}

func NewHandlers(
	submitter Submitter,
	querier StatusQuerier,
	notifications NotificationReceiver,
	bookings BookingReader,
	db Pinger,
	logger *slog.Logger,
) *Handlers {
	return &Handlers{
		submitter:     submitter,
		querier:       querier,
		notifications: notifications,
		bookings:      bookings,
		db:            db,
		logger:        logger,
	}
}

// Ensure Handlers implements ServerInterface
var _ api.ServerInterface = (*Handlers)(nil)
