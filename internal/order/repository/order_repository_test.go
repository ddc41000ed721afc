package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"avatarbook/internal/domain"
	"avatarbook/internal/errors"
	"avatarbook/internal/testutil"
)

func newTestOrder(orderType domain.OrderType) *domain.Order {
	id := uuid.NewString()
	hint := "telescope"
	order := &domain.Order{
		ID:            id,
		OrderNumber:   "AV-" + id[:8],
		OrderType:     orderType,
		Status:        domain.OrderStatusPending,
		CustomerEmail: "parent@example.com",
		CustomerName:  "Sam",
		Child: domain.ChildProfile{
			Name:      "Mia",
			Age:       7,
			Interests: []string{"space", "music"},
			GiftHint:  &hint,
		},
		DeliveryToken: "tok-" + id,
	}
	if orderType == domain.OrderTypeCall {
		at := time.Now().Add(72 * time.Hour).UTC().Truncate(time.Second)
		tz := "Europe/Madrid"
		order.ScheduledAt = &at
		order.Timezone = &tz
	}
	return order
}

func createOrder(t *testing.T, repo *MySQLOrderRepository, orderType domain.OrderType) *domain.Order {
	order := newTestOrder(orderType)
	require.NoError(t, repo.Create(context.Background(), order))
	return order
}

// Unit Tests

func TestNewMySQLOrderRepository(t *testing.T) {
	db := &sql.DB{}
	repo := NewMySQLOrderRepository(db)

	assert.NotNil(t, repo)
	assert.Equal(t, db, repo.db)
}

func TestNonNilInterests(t *testing.T) {
	assert.Equal(t, []string{}, nonNilInterests(nil))
	assert.Equal(t, []string{"space"}, nonNilInterests([]string{"space"}))
}

func TestUTCPtr(t *testing.T) {
	assert.Nil(t, utcPtr(nil))

	madrid := time.FixedZone("CEST", 2*60*60)
	local := time.Date(2026, 10, 21, 17, 0, 0, 0, madrid)
	got := utcPtr(&local)

	require.NotNil(t, got)
	assert.Equal(t, time.UTC, got.Location())
	assert.Equal(t, 15, got.Hour())
}

// Integration Tests

func TestOrderRepository_CreateAndFind(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	repo := NewMySQLOrderRepository(db)
	order := createOrder(t, repo, domain.OrderTypeCall)

	found, err := repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.OrderNumber, found.OrderNumber)
	assert.Equal(t, domain.OrderTypeCall, found.OrderType)
	assert.Equal(t, domain.OrderStatusPending, found.Status)
	assert.Equal(t, []string{"space", "music"}, found.Child.Interests)
	require.NotNil(t, found.Child.GiftHint)
	assert.Equal(t, "telescope", *found.Child.GiftHint)
	assert.Nil(t, found.Child.Message)
	require.NotNil(t, found.ScheduledAt)
	assert.True(t, order.ScheduledAt.Equal(*found.ScheduledAt))
	assert.Nil(t, found.DeliveryURL)

	byNumber, err := repo.FindByOrderNumber(context.Background(), order.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, order.ID, byNumber.ID)
}

func TestOrderRepository_Create_DuplicateOrderNumber(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	repo := NewMySQLOrderRepository(db)
	order := createOrder(t, repo, domain.OrderTypeVideo)

	dup := newTestOrder(domain.OrderTypeVideo)
	dup.OrderNumber = order.OrderNumber

	err := repo.Create(context.Background(), dup)
	_, ok := errors.IsConflictError(err)
	assert.True(t, ok)
}

func TestOrderRepository_FindByID_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	repo := NewMySQLOrderRepository(db)

	order, err := repo.FindByID(context.Background(), uuid.NewString())
	assert.Error(t, err)
	assert.Nil(t, order)

	nfe, ok := errors.IsNotFoundError(err)
	assert.True(t, ok)
	assert.NotNil(t, nfe)
}

func TestOrderRepository_FindByNumberAndToken(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	repo := NewMySQLOrderRepository(db)
	order := createOrder(t, repo, domain.OrderTypeVideo)
	other := createOrder(t, repo, domain.OrderTypeVideo)

	found, err := repo.FindByNumberAndToken(context.Background(), order.OrderNumber, order.DeliveryToken)
	require.NoError(t, err)
	assert.Equal(t, order.ID, found.ID)

	_, err = repo.FindByNumberAndToken(context.Background(), order.OrderNumber, other.DeliveryToken)
	_, ok := errors.IsNotFoundError(err)
	assert.True(t, ok)
}

func TestOrderRepository_MarkPaid_OnlyOnce(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	repo := NewMySQLOrderRepository(db)
	order := createOrder(t, repo, domain.OrderTypeVideo)
	ctx := context.Background()

	require.NoError(t, repo.SetCheckoutSession(ctx, order.ID, "cs_"+order.ID, 2900, "usd"))
	require.NoError(t, repo.MarkPaid(ctx, order.ID, "pi_"+order.ID, 2900, "usd"))

	err := repo.MarkPaid(ctx, order.ID, "pi_"+order.ID, 2900, "usd")
	_, ok := errors.IsConflictError(err)
	assert.True(t, ok)

	paid, err := repo.FindByPaymentIntentID(ctx, "pi_"+order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPaid, paid.Status)
	assert.Equal(t, int64(2900), paid.AmountTotal)

	bySession, err := repo.FindByCheckoutSessionID(ctx, "cs_"+order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, bySession.ID)

	err = repo.SetCheckoutSession(ctx, order.ID, "cs_other", 2900, "usd")
	_, ok = errors.IsConflictError(err)
	assert.True(t, ok)
}

func TestOrderRepository_RotateDeliveryToken(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	repo := NewMySQLOrderRepository(db)
	order := createOrder(t, repo, domain.OrderTypeVideo)
	ctx := context.Background()

	err := repo.RotateDeliveryToken(ctx, order.ID, order.DeliveryToken, "fresh-"+order.ID)
	_, ok := errors.IsConflictError(err)
	assert.True(t, ok, "pending order must not rotate")

	_, err = db.Exec(`UPDATE Orders SET status = 'ready', deliveryUrl = 'https://cdn.example.com/v.mp4' WHERE id = ?`, order.ID)
	require.NoError(t, err)

	require.NoError(t, repo.RotateDeliveryToken(ctx, order.ID, order.DeliveryToken, "fresh-"+order.ID))

	_, err = repo.FindByNumberAndToken(ctx, order.OrderNumber, order.DeliveryToken)
	_, ok = errors.IsNotFoundError(err)
	assert.True(t, ok)

	found, err := repo.FindByNumberAndToken(ctx, order.OrderNumber, "fresh-"+order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, found.ID)

	err = repo.RotateDeliveryToken(ctx, order.ID, order.DeliveryToken, "again-"+order.ID)
	_, ok = errors.IsConflictError(err)
	assert.True(t, ok, "stale token must not rotate")
}
