package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"avatarbook/internal/domain"
	"avatarbook/internal/errors"
	"avatarbook/internal/testutil"
)

func paidOrder(t *testing.T, orders *MySQLOrderRepository, orderType domain.OrderType) *domain.Order {
	order := createOrder(t, orders, orderType)
	require.NoError(t, orders.MarkPaid(context.Background(), order.ID, "pi_"+order.ID, 2900, "usd"))
	return order
}

func TestVideoJobRepository_StartVideoFulfillment_Once(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	orders := NewMySQLOrderRepository(db)
	jobs := NewMySQLVideoJobRepository(db)
	ctx := context.Background()
	order := paidOrder(t, orders, domain.OrderTypeVideo)

	job := &domain.VideoJob{ID: uuid.NewString(), OrderID: order.ID, Status: domain.VideoJobQueued}
	require.NoError(t, jobs.StartVideoFulfillment(ctx, job))

	again := &domain.VideoJob{ID: uuid.NewString(), OrderID: order.ID, Status: domain.VideoJobQueued}
	err := jobs.StartVideoFulfillment(ctx, again)
	_, ok := errors.IsConflictError(err)
	assert.True(t, ok)

	found, err := orders.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusProcessing, found.Status)
}

func TestVideoJobRepository_StartVideoFulfillment_RequiresPaidOrder(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	orders := NewMySQLOrderRepository(db)
	jobs := NewMySQLVideoJobRepository(db)
	ctx := context.Background()
	order := createOrder(t, orders, domain.OrderTypeVideo)

	job := &domain.VideoJob{ID: uuid.NewString(), OrderID: order.ID, Status: domain.VideoJobQueued}
	err := jobs.StartVideoFulfillment(ctx, job)
	_, ok := errors.IsConflictError(err)
	assert.True(t, ok)

	_, err = jobs.FindByOrderID(ctx, order.ID)
	_, ok = errors.IsNotFoundError(err)
	assert.True(t, ok, "insert must roll back with the order transition")
}

func TestVideoJobRepository_CompleteThenLateFailure(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	orders := NewMySQLOrderRepository(db)
	jobs := NewMySQLVideoJobRepository(db)
	ctx := context.Background()
	order := paidOrder(t, orders, domain.OrderTypeVideo)

	job := &domain.VideoJob{ID: uuid.NewString(), OrderID: order.ID, Status: domain.VideoJobQueued}
	require.NoError(t, jobs.StartVideoFulfillment(ctx, job))
	require.NoError(t, jobs.MarkSubmitted(ctx, job.ID, "vid_"+job.ID))

	thumb := "https://cdn.example.com/t.jpg"
	require.NoError(t, jobs.CompleteVideoJob(ctx, job.ID, order.ID, "https://cdn.example.com/v.mp4", &thumb, time.Now()))

	err := jobs.FailVideoJob(ctx, job.ID, order.ID, "late failure")
	_, ok := errors.IsConflictError(err)
	assert.True(t, ok)

	found, err := jobs.FindByExternalID(ctx, "vid_"+job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.VideoJobCompleted, found.Status)
	assert.NotNil(t, found.CompletedAt)
	assert.Nil(t, found.ErrorMessage)

	readyOrder, err := orders.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusReady, readyOrder.Status)
	require.NotNil(t, readyOrder.DeliveryURL)
	assert.Equal(t, "https://cdn.example.com/v.mp4", *readyOrder.DeliveryURL)
}

func TestVideoJobRepository_FailAndRequeue(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	orders := NewMySQLOrderRepository(db)
	jobs := NewMySQLVideoJobRepository(db)
	ctx := context.Background()
	order := paidOrder(t, orders, domain.OrderTypeVideo)

	job := &domain.VideoJob{ID: uuid.NewString(), OrderID: order.ID, Status: domain.VideoJobQueued}
	require.NoError(t, jobs.StartVideoFulfillment(ctx, job))
	require.NoError(t, jobs.FailVideoJob(ctx, job.ID, order.ID, "provider rejected script"))

	failed, err := orders.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusFailed, failed.Status)
	require.NotNil(t, failed.ErrorMessage)
	assert.Equal(t, "provider rejected script", *failed.ErrorMessage)

	require.NoError(t, jobs.Requeue(ctx, job.ID, order.ID))

	requeued, err := jobs.FindByOrderID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.VideoJobQueued, requeued.Status)
	assert.Equal(t, 1, requeued.RetryCount)

	reopened, err := orders.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusProcessing, reopened.Status)
	assert.Nil(t, reopened.ErrorMessage)
}

func TestVideoJobRepository_UpdateStatus_RejectsTerminal(t *testing.T) {
	repo := NewMySQLVideoJobRepository(nil)

	err := repo.UpdateStatus(context.Background(), "job-1", domain.VideoJobCompleted)
	assert.Error(t, err)
}
