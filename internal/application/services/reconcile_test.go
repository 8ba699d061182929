package services_test

import (
	"context"
	"sync"
	"testing"

	"github.com/DanielPopoola/pesapal-gateway/internal/application"
	"github.com/DanielPopoola/pesapal-gateway/internal/application/services"
	"github.com/DanielPopoola/pesapal-gateway/internal/application/services/testhelpers"
	"github.com/DanielPopoola/pesapal-gateway/internal/domain"
	"github.com/DanielPopoola/pesapal-gateway/internal/infrastructure/persistence/postgres"
	"github.com/DanielPopoola/pesapal-gateway/internal/infrastructure/pesapal/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type ReconcileServiceTestSuite struct {
	suite.Suite
	testDB      *testhelpers.TestDatabase
	paymentRepo *postgres.PaymentRepository
	mockGateway *mocks.MockGateway
	service     *services.ReconcileService
}

func TestReconcileServiceSuite(t *testing.T) {
	suite.Run(t, new(ReconcileServiceTestSuite))
}

func (suite *ReconcileServiceTestSuite) SetupSuite() {
	suite.testDB = testhelpers.SetupTestDatabase(suite.T())
	suite.paymentRepo = postgres.NewPaymentRepository(suite.testDB.DB)
}

func (suite *ReconcileServiceTestSuite) TearDownSuite() {
	suite.testDB.Cleanup(suite.T())
}

func (suite *ReconcileServiceTestSuite) SetupTest() {
	suite.testDB.CleanTables(suite.T())
	suite.mockGateway = mocks.NewMockGateway(suite.T())
	suite.service = services.NewReconcileService(
		suite.paymentRepo,
		suite.mockGateway,
		testhelpers.NewStaticCredentials(),
		testhelpers.ConfirmedStatus,
		testhelpers.DiscardLogger(),
	)
}

func (suite *ReconcileServiceTestSuite) expectStatus(order *domain.PaymentOrder, code int) {
	suite.mockGateway.EXPECT().
		GetTransactionStatus(mock.Anything, testhelpers.TestToken, *order.OrderTrackingID).
		Return(testhelpers.GatewayStatus(order, code), nil)
}

// ============================================================================
// STATUS TRANSITIONS
// ============================================================================

func (suite *ReconcileServiceTestSuite) Test_Reconcile_Completed_ConfirmsBooking() {
	ctx := context.Background()
	t := suite.T()
	bookingRef := testhelpers.SeedBooking(t, suite.testDB, 1)
	order := testhelpers.CreateSubmittedOrder(t, suite.paymentRepo, bookingRef)
	suite.expectStatus(order, domain.GatewayCodeCompleted)

	result, err := suite.service.Reconcile(ctx, *order.OrderTrackingID, order.Reference)

	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, result.Status)
	assert.True(t, result.Changed)
	assert.Equal(t, domain.CascadeApplied, result.Cascade)

	saved, err := suite.paymentRepo.FindByReference(ctx, order.Reference)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, saved.Status)
	require.NotNil(t, saved.Action)
	assert.Equal(t, "1:COMPLETED", *saved.Action)
	assert.Equal(t, testhelpers.ConfirmedStatus, testhelpers.BookingStatus(t, suite.testDB, bookingRef))
}

func (suite *ReconcileServiceTestSuite) Test_Reconcile_Failed_LeavesBookingAlone() {
	ctx := context.Background()
	t := suite.T()
	bookingRef := testhelpers.SeedBooking(t, suite.testDB, 1)
	order := testhelpers.CreateSubmittedOrder(t, suite.paymentRepo, bookingRef)
	suite.expectStatus(order, domain.GatewayCodeFailed)

	result, err := suite.service.Reconcile(ctx, *order.OrderTrackingID, "")

	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, result.Status)
	assert.Equal(t, domain.CascadeNotTriggered, result.Cascade)
	assert.Equal(t, int16(1), testhelpers.BookingStatus(t, suite.testDB, bookingRef))
}

func (suite *ReconcileServiceTestSuite) Test_Reconcile_Reversed_MapsToFailed() {
	ctx := context.Background()
	t := suite.T()
	order := testhelpers.CreateSubmittedOrder(t, suite.paymentRepo, "")
	suite.expectStatus(order, domain.GatewayCodeReversed)

	result, err := suite.service.Reconcile(ctx, *order.OrderTrackingID, order.Reference)

	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, result.Status)

	saved, err := suite.paymentRepo.FindByReference(ctx, order.Reference)
	require.NoError(t, err)
	assert.Equal(t, "3:REVERSED", *saved.Action)
}

func (suite *ReconcileServiceTestSuite) Test_Reconcile_InvalidThenCompleted() {
	ctx := context.Background()
	t := suite.T()
	bookingRef := testhelpers.SeedBooking(t, suite.testDB, 1)
	order := testhelpers.CreateSubmittedOrder(t, suite.paymentRepo, bookingRef)

	suite.mockGateway.EXPECT().
		GetTransactionStatus(mock.Anything, testhelpers.TestToken, *order.OrderTrackingID).
		Return(testhelpers.GatewayStatus(order, domain.GatewayCodeInvalid), nil).
		Once()
	suite.mockGateway.EXPECT().
		GetTransactionStatus(mock.Anything, testhelpers.TestToken, *order.OrderTrackingID).
		Return(testhelpers.GatewayStatus(order, domain.GatewayCodeCompleted), nil).
		Once()

	first, err := suite.service.Reconcile(ctx, *order.OrderTrackingID, order.Reference)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInvalid, first.Status)
	assert.Equal(t, int16(1), testhelpers.BookingStatus(t, suite.testDB, bookingRef))

	second, err := suite.service.Reconcile(ctx, *order.OrderTrackingID, order.Reference)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, second.Status)
	assert.Equal(t, domain.CascadeApplied, second.Cascade)
	assert.Equal(t, testhelpers.ConfirmedStatus, testhelpers.BookingStatus(t, suite.testDB, bookingRef))
}

func (suite *ReconcileServiceTestSuite) Test_Reconcile_StillPending_RecordsNothing() {
	ctx := context.Background()
	t := suite.T()
	order := testhelpers.CreateSubmittedOrder(t, suite.paymentRepo, "")
	suite.mockGateway.EXPECT().
		GetTransactionStatus(mock.Anything, testhelpers.TestToken, *order.OrderTrackingID).
		Return(&application.TransactionStatus{OrderTrackingID: *order.OrderTrackingID, MerchantReference: order.Reference}, nil)

	result, err := suite.service.Reconcile(ctx, *order.OrderTrackingID, order.Reference)

	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, result.Status)
	assert.False(t, result.Changed)
}

// ============================================================================
// IDEMPOTENCE
// ============================================================================

func (suite *ReconcileServiceTestSuite) Test_Reconcile_Twice_IsIdempotent() {
	ctx := context.Background()
	t := suite.T()
	bookingRef := testhelpers.SeedBooking(t, suite.testDB, 1)
	order := testhelpers.CreateSubmittedOrder(t, suite.paymentRepo, bookingRef)
	suite.expectStatus(order, domain.GatewayCodeCompleted)

	_, err := suite.service.Reconcile(ctx, *order.OrderTrackingID, order.Reference)
	require.NoError(t, err)
	afterFirst, err := suite.paymentRepo.FindByReference(ctx, order.Reference)
	require.NoError(t, err)

	second, err := suite.service.Reconcile(ctx, *order.OrderTrackingID, order.Reference)
	require.NoError(t, err)

	assert.False(t, second.Changed)
	assert.Equal(t, domain.CascadeNotTriggered, second.Cascade)

	afterSecond, err := suite.paymentRepo.FindByReference(ctx, order.Reference)
	require.NoError(t, err)
	assert.Equal(t, afterFirst.UpdatedAt, afterSecond.UpdatedAt)
	assert.Equal(t, testhelpers.ConfirmedStatus, testhelpers.BookingStatus(t, suite.testDB, bookingRef))
}

func (suite *ReconcileServiceTestSuite) Test_Reconcile_TerminalStatusNeverRegresses() {
	ctx := context.Background()
	t := suite.T()
	order := testhelpers.CreateSubmittedOrder(t, suite.paymentRepo, "")

	suite.mockGateway.EXPECT().
		GetTransactionStatus(mock.Anything, testhelpers.TestToken, *order.OrderTrackingID).
		Return(testhelpers.GatewayStatus(order, domain.GatewayCodeCompleted), nil).
		Once()
	suite.mockGateway.EXPECT().
		GetTransactionStatus(mock.Anything, testhelpers.TestToken, *order.OrderTrackingID).
		Return(testhelpers.GatewayStatus(order, domain.GatewayCodeFailed), nil).
		Once()

	_, err := suite.service.Reconcile(ctx, *order.OrderTrackingID, order.Reference)
	require.NoError(t, err)

	result, err := suite.service.Reconcile(ctx, *order.OrderTrackingID, order.Reference)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, result.Status)
	assert.Equal(t, domain.StatusFailed, result.GatewayStatus)
	assert.False(t, result.Changed)

	saved, err := suite.paymentRepo.FindByReference(ctx, order.Reference)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, saved.Status)
}

func (suite *ReconcileServiceTestSuite) Test_Reconcile_Concurrent_ConfirmsBookingOnce() {
	ctx := context.Background()
	t := suite.T()
	bookingRef := testhelpers.SeedBooking(t, suite.testDB, 1)
	order := testhelpers.CreateSubmittedOrder(t, suite.paymentRepo, bookingRef)
	suite.expectStatus(order, domain.GatewayCodeCompleted)

	const workers = 8
	results := make([]*services.ReconcileResult, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = suite.service.Reconcile(ctx, *order.OrderTrackingID, order.Reference)
		}(i)
	}
	wg.Wait()

	applied := 0
	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, domain.StatusCompleted, results[i].Status)
		if results[i].Cascade == domain.CascadeApplied {
			applied++
		}
	}
	assert.Equal(t, 1, applied)
	assert.Equal(t, testhelpers.ConfirmedStatus, testhelpers.BookingStatus(t, suite.testDB, bookingRef))
}

func (suite *ReconcileServiceTestSuite) Test_Reconcile_ConcurrentMixedReads_Converge() {
	ctx := context.Background()
	t := suite.T()

	for round := 0; round < 10; round++ {
		bookingRef := testhelpers.SeedBooking(t, suite.testDB, 1)
		order := testhelpers.CreateSubmittedOrder(t, suite.paymentRepo, bookingRef)
		reads := []*application.TransactionStatus{
			testhelpers.GatewayStatus(order, domain.GatewayCodeInvalid),
			testhelpers.GatewayStatus(order, domain.GatewayCodeCompleted),
		}

		const workers = 8
		results := make([]*services.ReconcileResult, workers)
		errs := make([]error, workers)
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i], errs[i] = suite.service.Apply(ctx, *order.OrderTrackingID, order.Reference, reads[i%len(reads)])
			}(i)
		}
		wg.Wait()

		applied := 0
		for i := 0; i < workers; i++ {
			require.NoError(t, errs[i])
			if results[i].Cascade == domain.CascadeApplied {
				applied++
			}
		}
		assert.Equal(t, 1, applied, "round %d", round)

		saved, err := suite.paymentRepo.FindByReference(ctx, order.Reference)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusCompleted, saved.Status, "round %d", round)
		assert.Equal(t, testhelpers.ConfirmedStatus, testhelpers.BookingStatus(t, suite.testDB, bookingRef))
	}
}

// ============================================================================
// CASCADE EDGE CASES
// ============================================================================

func (suite *ReconcileServiceTestSuite) Test_Reconcile_BookingAlreadyConfirmed() {
	ctx := context.Background()
	t := suite.T()
	bookingRef := testhelpers.SeedBooking(t, suite.testDB, testhelpers.ConfirmedStatus)
	order := testhelpers.CreateSubmittedOrder(t, suite.paymentRepo, bookingRef)
	suite.expectStatus(order, domain.GatewayCodeCompleted)

	result, err := suite.service.Reconcile(ctx, *order.OrderTrackingID, order.Reference)

	require.NoError(t, err)
	assert.Equal(t, domain.CascadeAlreadyConfirmed, result.Cascade)
}

func (suite *ReconcileServiceTestSuite) Test_Reconcile_BookingMissing_StillCompletesPayment() {
	ctx := context.Background()
	t := suite.T()
	order := testhelpers.CreateSubmittedOrder(t, suite.paymentRepo, "BK-GONE")
	suite.expectStatus(order, domain.GatewayCodeCompleted)

	result, err := suite.service.Reconcile(ctx, *order.OrderTrackingID, order.Reference)

	require.NoError(t, err)
	assert.Equal(t, domain.CascadeSkippedNotInStore, result.Cascade)

	saved, err := suite.paymentRepo.FindByReference(ctx, order.Reference)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, saved.Status)
}

func (suite *ReconcileServiceTestSuite) Test_Reconcile_NoBookingRef() {
	ctx := context.Background()
	t := suite.T()
	order := testhelpers.CreateSubmittedOrder(t, suite.paymentRepo, "")
	suite.expectStatus(order, domain.GatewayCodeCompleted)

	result, err := suite.service.Reconcile(ctx, *order.OrderTrackingID, order.Reference)

	require.NoError(t, err)
	assert.Equal(t, domain.CascadeSkippedNoBooking, result.Cascade)
	assert.Equal(t, domain.StatusCompleted, result.Status)
}

func (suite *ReconcileServiceTestSuite) Test_Reconcile_UnknownOrder_IsSkipped() {
	ctx := context.Background()
	t := suite.T()
	code := domain.GatewayCodeCompleted
	suite.mockGateway.EXPECT().
		GetTransactionStatus(mock.Anything, testhelpers.TestToken, "track-unknown").
		Return(&application.TransactionStatus{
			OrderTrackingID:   "track-unknown",
			MerchantReference: "TXN-NOT-OURS",
			Description:       "COMPLETED",
			StatusCode:        &code,
		}, nil)

	result, err := suite.service.Reconcile(ctx, "track-unknown", "")

	require.NoError(t, err)
	assert.Equal(t, domain.CascadeSkippedNoPayment, result.Cascade)
}

func (suite *ReconcileServiceTestSuite) Test_Reconcile_BackfillsLostTrackingID() {
	ctx := context.Background()
	t := suite.T()
	money, err := domain.NewMoney(5000, "KES")
	require.NoError(t, err)
	order, err := domain.NewPaymentOrder("TXN-LOST-1", money, domain.OrderDetails{})
	require.NoError(t, err)
	require.NoError(t, suite.paymentRepo.Create(ctx, order))

	code := domain.GatewayCodeCompleted
	suite.mockGateway.EXPECT().
		GetTransactionStatus(mock.Anything, testhelpers.TestToken, "track-lost").
		Return(&application.TransactionStatus{
			OrderTrackingID:   "track-lost",
			MerchantReference: "TXN-LOST-1",
			Description:       "COMPLETED",
			StatusCode:        &code,
		}, nil)

	result, err := suite.service.Reconcile(ctx, "track-lost", "TXN-LOST-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, result.Status)

	saved, err := suite.paymentRepo.FindByTrackingID(ctx, "track-lost")
	require.NoError(t, err)
	assert.Equal(t, "TXN-LOST-1", saved.Reference)
}

func (suite *ReconcileServiceTestSuite) Test_Reconcile_MissingTrackingID() {
	_, err := suite.service.Reconcile(context.Background(), "", "TXN-1")
	requireServiceError(suite.T(), err, application.ErrCodeValidation)
}
