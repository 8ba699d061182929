package e2e

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/DanielPopoola/pesapal-gateway/internal/api"
	"github.com/DanielPopoola/pesapal-gateway/internal/application"
	"github.com/DanielPopoola/pesapal-gateway/internal/application/services"
	"github.com/DanielPopoola/pesapal-gateway/internal/application/services/testhelpers"
	"github.com/DanielPopoola/pesapal-gateway/internal/config"
	"github.com/DanielPopoola/pesapal-gateway/internal/domain"
	"github.com/DanielPopoola/pesapal-gateway/internal/infrastructure/persistence/postgres"
	"github.com/DanielPopoola/pesapal-gateway/internal/infrastructure/pesapal"
	"github.com/DanielPopoola/pesapal-gateway/internal/interfaces/rest/handlers"
)

type E2ETestSuite struct {
	suite.Suite
	testDB       *testhelpers.TestDatabase
	fake         *FakePesapal
	queryService *services.QueryService
	server       *httptest.Server
	client       *TestClient
}

func TestE2ESuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping end-to-end tests")
	}
	suite.Run(t, new(E2ETestSuite))
}

func (suite *E2ETestSuite) SetupSuite() {
	suite.testDB = testhelpers.SetupTestDatabase(suite.T())
}

func (suite *E2ETestSuite) TearDownSuite() {
	suite.testDB.Cleanup(suite.T())
}

// SetupTest wires the whole service the way main does, against a clean
// database and a fresh fake gateway.
func (suite *E2ETestSuite) SetupTest() {
	t := suite.T()
	suite.testDB.CleanTables(t)
	suite.fake = NewFakePesapal(t)

	logger := testhelpers.DiscardLogger()
	pesapalCfg := testhelpers.PesapalConfig()
	pesapalCfg.BaseURL = suite.fake.URL()
	pesapalCfg.Timeout = 2 * time.Second
	retryCfg := config.RetryConfig{BaseDelay: 10 * time.Millisecond, MaxDelay: 50 * time.Millisecond, MaxRetries: 1}
	workerCfg := config.WorkerConfig{Schedule: "@every 1m", BatchSize: 10, MinAge: time.Minute, MaxAttempts: 5, InvalidRequeryWindow: time.Hour}

	db := suite.testDB.DB
	paymentRepo := postgres.NewPaymentRepository(db)
	notificationRepo := postgres.NewNotificationRepository(db)
	bookingRepo := postgres.NewBookingRepository(db)

	gateway := pesapal.NewRetryGateway(pesapal.NewClient(pesapalCfg, logger), retryCfg, logger)
	credentials := services.NewCredentialCache(gateway, pesapalCfg, logger)
	webhooks := services.NewWebhookRegistrar(gateway, credentials, pesapalCfg, logger)

	reconciler := services.NewReconcileService(paymentRepo, gateway, credentials, testhelpers.ConfirmedStatus, logger)
	suite.queryService = services.NewQueryService(paymentRepo, reconciler, logger)

	h := handlers.NewHandlers(
		services.NewSubmitService(paymentRepo, gateway, credentials, webhooks, testhelpers.OrdersConfig(), pesapalCfg, logger),
		suite.queryService,
		services.NewNotificationService(notificationRepo, reconciler, retryCfg, workerCfg, logger),
		bookingRepo,
		db,
		logger,
	)
	router, err := h.Routes(5 * time.Second)
	require.NoError(t, err)

	suite.server = httptest.NewServer(router)
	suite.client = NewTestClient(suite.server.URL)
}

func (suite *E2ETestSuite) TearDownTest() {
	suite.server.Close()
	suite.queryService.Wait()
}

func (suite *E2ETestSuite) submit(bookingRef string) api.SubmitPaymentData {
	t := suite.T()
	var resp api.SubmitPaymentResponse
	status := suite.client.Submit(t, api.SubmitPaymentRequest{
		BookingRef: bookingRef,
		Amount:     1500,
		Currency:   "KES",
		Email:      "guest@example.com",
	}, &resp)
	require.Equal(t, http.StatusCreated, status)
	require.True(t, resp.Success)
	return resp.Data
}

func (suite *E2ETestSuite) payment(reference string) api.Payment {
	var resp api.PaymentResponse
	require.Equal(suite.T(), http.StatusOK, suite.client.Payment(suite.T(), reference, &resp))
	return resp.Data
}

// ============================================================================
// HAPPY PATH: Submit → IPN → booking confirmed
// ============================================================================

func (suite *E2ETestSuite) TestHappyPath_SubmitNotifyConfirm() {
	t := suite.T()
	bookingRef := testhelpers.SeedBooking(t, suite.testDB, 1)

	order := suite.submit(bookingRef)
	assert.NotEmpty(t, order.Reference)
	assert.NotEmpty(t, order.OrderTrackingID)
	assert.Contains(t, order.RedirectURL, order.OrderTrackingID)

	saved := suite.payment(order.Reference)
	assert.Equal(t, api.PENDING, saved.Status)
	assert.Equal(t, 1500.0, saved.Amount)

	suite.fake.SetStatus(order.OrderTrackingID, domain.GatewayCodeCompleted)

	var ack api.IPNAck
	status := suite.client.Notify(t, order.OrderTrackingID, order.Reference, &ack)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, http.StatusOK, ack.Status)
	assert.Equal(t, order.OrderTrackingID, ack.OrderTrackingID)

	saved = suite.payment(order.Reference)
	assert.Equal(t, api.COMPLETED, saved.Status)
	require.NotNil(t, saved.BookingStatus)
	assert.Equal(t, testhelpers.ConfirmedStatus, *saved.BookingStatus)

	// A redelivery changes nothing.
	status = suite.client.Notify(t, order.OrderTrackingID, order.Reference, &ack)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, api.COMPLETED, suite.payment(order.Reference).Status)

	assert.Equal(t, 1, suite.fake.Calls("RequestToken"))
	assert.Equal(t, 1, suite.fake.Calls("RegisterIPN"))
}

func (suite *E2ETestSuite) TestStatusQuery_ReconcilesInBackground() {
	t := suite.T()
	order := suite.submit("")
	suite.fake.SetStatus(order.OrderTrackingID, domain.GatewayCodeFailed)

	var resp api.StatusResponse
	status := suite.client.Status(t, order.OrderTrackingID, order.Reference, &resp)

	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, api.FAILED, resp.Data.Status)
	assert.Equal(t, "MpesaKE", resp.Data.PaymentMethod)

	assert.Eventually(t, func() bool {
		var p api.PaymentResponse
		suite.client.Payment(t, order.Reference, &p)
		return p.Data.Status == api.FAILED
	}, 5*time.Second, 50*time.Millisecond)
}

// ============================================================================
// FAILURE PATHS
// ============================================================================

func (suite *E2ETestSuite) TestRejectedOrder_LeavesFailedRow() {
	t := suite.T()

	var errResp api.ErrorResponse
	status := suite.client.Submit(t, api.SubmitPaymentRequest{Amount: 10, Currency: "XYZ"}, &errResp)

	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, application.ErrCodeValidation, errResp.Error.Code)
	reference, ok := errResp.Error.Details["reference"].(string)
	require.True(t, ok)

	saved := suite.payment(reference)
	assert.Equal(t, api.FAILED, saved.Status)
	assert.NotEmpty(t, saved.ErrorDetail)
	assert.Equal(t, 0, suite.fake.Calls("SubmitOrderRequest"))
}

func (suite *E2ETestSuite) TestIPN_UnknownOrder_StillAcks() {
	t := suite.T()

	var ack api.IPNAck
	status := suite.client.Notify(t, "track-unknown", "TXN-UNKNOWN", &ack)

	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, http.StatusOK, ack.Status)
}

func (suite *E2ETestSuite) TestStatusQuery_MissingTrackingID() {
	t := suite.T()

	var errResp api.ErrorResponse
	status := suite.client.get(t, "/api/pesapal/status", &errResp)

	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, application.ErrCodeValidation, errResp.Error.Code)
}

func (suite *E2ETestSuite) TestPayment_NotFound() {
	var errResp api.ErrorResponse
	status := suite.client.Payment(suite.T(), "TXN-NOPE", &errResp)

	assert.Equal(suite.T(), http.StatusNotFound, status)
}

func (suite *E2ETestSuite) TestHealthz() {
	status := suite.client.get(suite.T(), "/healthz", nil)
	assert.Equal(suite.T(), http.StatusOK, status)
}
