package payments

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/storelinehq/storeline-backend/internal/orders"
	dbpkg "github.com/storelinehq/storeline-backend/pkg/db"
	"github.com/storelinehq/storeline-backend/pkg/db/models"
	"github.com/storelinehq/storeline-backend/pkg/enums"
	pkgerrors "github.com/storelinehq/storeline-backend/pkg/errors"
	"github.com/storelinehq/storeline-backend/pkg/gateway"
	"github.com/storelinehq/storeline-backend/pkg/outbox"
	"github.com/storelinehq/storeline-backend/pkg/tenant"
)

func setupPaymentsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	ddl := []string{`
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  number TEXT NOT NULL UNIQUE,
  shop_id TEXT NOT NULL,
  customer_id TEXT NOT NULL,
  status TEXT NOT NULL,
  payment_status TEXT NOT NULL,
  payment_method TEXT NOT NULL,
  currency TEXT NOT NULL,
  subtotal_cents INTEGER NOT NULL,
  discount_cents INTEGER NOT NULL,
  tax_cents INTEGER NOT NULL,
  delivery_fee_cents INTEGER NOT NULL,
  total_cents INTEGER NOT NULL,
  coupon_code TEXT,
  shipping_address TEXT,
  status_history TEXT,
  notes TEXT,
  invoice_url TEXT,
  courier_order_ref TEXT,
  courier_rider_name TEXT,
  courier_rider_phone TEXT,
  placed_at DATETIME,
  delivered_at DATETIME,
  cancelled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS order_line_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  variant_id TEXT,
  snapshot TEXT,
  qty INTEGER NOT NULL,
  unit_price_cents INTEGER NOT NULL,
  discount_cents INTEGER NOT NULL DEFAULT 0,
  tax_cents INTEGER NOT NULL,
  total_cents INTEGER NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS payment_transactions (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  gateway_order_id TEXT NOT NULL UNIQUE,
  gateway_payment_id TEXT,
  status TEXT NOT NULL DEFAULT 'created',
  amount_cents INTEGER NOT NULL,
  currency TEXT NOT NULL,
  failure_reason TEXT,
  verified_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  dedup_key TEXT UNIQUE,
  payload TEXT NOT NULL,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT,
  created_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS notifications (
  id TEXT PRIMARY KEY,
  recipient_kind TEXT NOT NULL,
  recipient_id TEXT NOT NULL,
  kind TEXT NOT NULL,
  title TEXT NOT NULL,
  body TEXT NOT NULL,
  link TEXT,
  read_at DATETIME,
  created_at DATETIME
);`}
	for _, stmt := range ddl {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

type stubGateway struct {
	calls  int
	lastID string
	err    error
}

func (g *stubGateway) CreateOrder(_ context.Context, _ gateway.Credentials, req gateway.CreateOrderRequest) (*gateway.GatewayOrder, error) {
	if g.err != nil {
		return nil, g.err
	}
	g.calls++
	g.lastID = "gw_" + uuid.NewString()
	return &gateway.GatewayOrder{
		ID:          g.lastID,
		AmountCents: req.AmountCents,
		Currency:    req.Currency,
		Receipt:     req.Receipt,
		Status:      "created",
	}, nil
}

const testKeySecret = "test-key-secret"

type paymentsFixture struct {
	db      *gorm.DB
	tenant  *tenant.Tenant
	service Service
	gateway *stubGateway
}

func setupPaymentsFixture(t *testing.T) *paymentsFixture {
	t.Helper()
	gdb := setupPaymentsTestDB(t)

	gw := &stubGateway{}
	outboxSvc := outbox.NewService(outbox.NewRepository(gdb), nil)
	svc, err := NewService(NewRepository(gdb), orders.NewRepository(gdb), gw, outboxSvc, nil, nil)
	require.NoError(t, err)

	return &paymentsFixture{
		db: gdb,
		tenant: &tenant.Tenant{
			ID:               "acme",
			Currency:         "INR",
			DB:               dbpkg.FromGorm(gdb),
			PaymentKeyID:     "rzp_test_key",
			PaymentKeySecret: testKeySecret,
		},
		service: svc,
		gateway: gw,
	}
}

func (f *paymentsFixture) seedOrder(t *testing.T, method enums.PaymentMethod, totalCents int64) *models.Order {
	t.Helper()
	order := &models.Order{
		ID:            uuid.New(),
		Number:        "SL-TEST-" + uuid.NewString()[:8],
		ShopID:        uuid.New(),
		CustomerID:    uuid.New(),
		Status:        enums.OrderPlaced,
		PaymentStatus: enums.PaymentUnpaid,
		PaymentMethod: method,
		Currency:      "INR",
		SubtotalCents: totalCents,
		TotalCents:    totalCents,
		CreatedAt:     time.Now().UTC(),
	}
	require.NoError(t, f.db.Create(order).Error)
	return order
}

func TestCreateIntentOpensGatewayOrder(t *testing.T) {
	f := setupPaymentsFixture(t)
	ctx := context.Background()
	order := f.seedOrder(t, enums.PaymentMethodGateway, 10500)

	intent, err := f.service.CreateIntent(ctx, f.tenant, CreateIntentInput{OrderID: order.ID, CustomerID: order.CustomerID})
	require.NoError(t, err)
	assert.Equal(t, int64(10500), intent.AmountCents)
	assert.Equal(t, "INR", intent.Currency)
	assert.Equal(t, "rzp_test_key", intent.KeyID)
	assert.Equal(t, f.gateway.lastID, intent.GatewayOrderID)
	assert.Equal(t, 1, f.gateway.calls)

	// A second intent reuses the open transaction instead of opening
	// another gateway order.
	again, err := f.service.CreateIntent(ctx, f.tenant, CreateIntentInput{OrderID: order.ID, CustomerID: order.CustomerID})
	require.NoError(t, err)
	assert.Equal(t, intent.GatewayOrderID, again.GatewayOrderID)
	assert.Equal(t, 1, f.gateway.calls)
}

func TestCreateIntentRejectsCOD(t *testing.T) {
	f := setupPaymentsFixture(t)
	order := f.seedOrder(t, enums.PaymentMethodCOD, 10500)

	_, err := f.service.CreateIntent(context.Background(), f.tenant, CreateIntentInput{OrderID: order.ID, CustomerID: order.CustomerID})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestCreateIntentRejectsPaidOrder(t *testing.T) {
	f := setupPaymentsFixture(t)
	order := f.seedOrder(t, enums.PaymentMethodGateway, 10500)
	require.NoError(t, f.db.Model(&models.Order{}).Where("id = ?", order.ID).
		Update("payment_status", enums.PaymentPaid).Error)

	_, err := f.service.CreateIntent(context.Background(), f.tenant, CreateIntentInput{OrderID: order.ID, CustomerID: order.CustomerID})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestVerifyAndCaptureHappyPathAndReplay(t *testing.T) {
	f := setupPaymentsFixture(t)
	ctx := context.Background()
	order := f.seedOrder(t, enums.PaymentMethodGateway, 10500)

	intent, err := f.service.CreateIntent(ctx, f.tenant, CreateIntentInput{OrderID: order.ID, CustomerID: order.CustomerID})
	require.NoError(t, err)

	paymentID := "pay_" + uuid.NewString()[:8]
	signature := gateway.SignPayload(testKeySecret, intent.GatewayOrderID+"|"+paymentID)

	txn, err := f.service.VerifyAndCapture(ctx, f.tenant, VerifyInput{
		GatewayOrderID:   intent.GatewayOrderID,
		GatewayPaymentID: paymentID,
		Signature:        signature,
		ActorUserID:      order.CustomerID,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.TransactionPaid, txn.Status)
	require.NotNil(t, txn.GatewayPaymentID)
	assert.Equal(t, paymentID, *txn.GatewayPaymentID)

	var current models.Order
	require.NoError(t, f.db.First(&current, "id = ?", order.ID).Error)
	assert.Equal(t, enums.PaymentPaid, current.PaymentStatus)

	// Gateways redeliver callbacks; the replay must settle to the same
	// state without a second paid event.
	replayed, err := f.service.VerifyAndCapture(ctx, f.tenant, VerifyInput{
		GatewayOrderID:   intent.GatewayOrderID,
		GatewayPaymentID: paymentID,
		Signature:        signature,
		ActorUserID:      order.CustomerID,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.TransactionPaid, replayed.Status)

	var eventCount int64
	require.NoError(t, f.db.Model(&models.OutboxEvent{}).
		Where("aggregate_id = ? AND event_type = ?", order.ID, enums.EventOrderPaid).
		Count(&eventCount).Error)
	assert.Equal(t, int64(1), eventCount)
}

func TestVerifyAndCaptureBadSignature(t *testing.T) {
	f := setupPaymentsFixture(t)
	ctx := context.Background()
	order := f.seedOrder(t, enums.PaymentMethodGateway, 10500)

	intent, err := f.service.CreateIntent(ctx, f.tenant, CreateIntentInput{OrderID: order.ID, CustomerID: order.CustomerID})
	require.NoError(t, err)

	_, err = f.service.VerifyAndCapture(ctx, f.tenant, VerifyInput{
		GatewayOrderID:   intent.GatewayOrderID,
		GatewayPaymentID: "pay_x",
		Signature:        "forged",
		ActorUserID:      order.CustomerID,
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeUnauthorized, typed.Code())

	var txn models.PaymentTransaction
	require.NoError(t, f.db.First(&txn, "gateway_order_id = ?", intent.GatewayOrderID).Error)
	assert.Equal(t, enums.TransactionFailed, txn.Status)

	var current models.Order
	require.NoError(t, f.db.First(&current, "id = ?", order.ID).Error)
	assert.Equal(t, enums.PaymentUnpaid, current.PaymentStatus)
}

func TestVerifyAndCaptureAmountMismatch(t *testing.T) {
	f := setupPaymentsFixture(t)
	ctx := context.Background()
	order := f.seedOrder(t, enums.PaymentMethodGateway, 10500)

	intent, err := f.service.CreateIntent(ctx, f.tenant, CreateIntentInput{OrderID: order.ID, CustomerID: order.CustomerID})
	require.NoError(t, err)

	// The order total drifting after intent creation must block capture.
	require.NoError(t, f.db.Model(&models.Order{}).Where("id = ?", order.ID).
		Update("total_cents", 99999).Error)

	paymentID := "pay_" + uuid.NewString()[:8]
	signature := gateway.SignPayload(testKeySecret, intent.GatewayOrderID+"|"+paymentID)
	_, err = f.service.VerifyAndCapture(ctx, f.tenant, VerifyInput{
		GatewayOrderID:   intent.GatewayOrderID,
		GatewayPaymentID: paymentID,
		Signature:        signature,
		ActorUserID:      order.CustomerID,
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeIntegrity, typed.Code())
}

func TestVerifyAndCaptureUnknownGatewayOrder(t *testing.T) {
	f := setupPaymentsFixture(t)

	paymentID := "pay_x"
	gatewayOrderID := "gw_missing"
	signature := gateway.SignPayload(testKeySecret, gatewayOrderID+"|"+paymentID)
	_, err := f.service.VerifyAndCapture(context.Background(), f.tenant, VerifyInput{
		GatewayOrderID:   gatewayOrderID,
		GatewayPaymentID: paymentID,
		Signature:        signature,
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}
