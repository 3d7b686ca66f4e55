package webhooks

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/storelinehq/storeline-backend/internal/cart"
	"github.com/storelinehq/storeline-backend/internal/inventory"
	"github.com/storelinehq/storeline-backend/internal/orders"
	dbpkg "github.com/storelinehq/storeline-backend/pkg/db"
	"github.com/storelinehq/storeline-backend/pkg/db/models"
	"github.com/storelinehq/storeline-backend/pkg/enums"
	pkgerrors "github.com/storelinehq/storeline-backend/pkg/errors"
	"github.com/storelinehq/storeline-backend/pkg/outbox"
	"github.com/storelinehq/storeline-backend/pkg/tenant"
	"github.com/storelinehq/storeline-backend/pkg/types"
)

func setupWebhooksTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	ddl := []string{`
CREATE TABLE IF NOT EXISTS shops (
  id TEXT PRIMARY KEY,
  owner_user_id TEXT NOT NULL,
  name TEXT NOT NULL,
  address TEXT,
  active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  shop_id TEXT NOT NULL,
  title TEXT NOT NULL,
  description TEXT,
  category TEXT NOT NULL,
  image_url TEXT,
  price_cents INTEGER NOT NULL DEFAULT 0,
  tax_rate_bps INTEGER NOT NULL DEFAULT 0,
  stock_qty INTEGER NOT NULL DEFAULT 0,
  active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS product_variants (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  name TEXT NOT NULL,
  sku TEXT NOT NULL UNIQUE,
  price_cents INTEGER NOT NULL,
  available_qty INTEGER NOT NULL DEFAULT 0,
  reserved_qty INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS cart_items (
  id TEXT PRIMARY KEY,
  customer_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  variant_id TEXT,
  qty INTEGER NOT NULL,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (customer_id, product_id, variant_id)
);`, `
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
CREATE TABLE IF NOT EXISTS delivery_assignments (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL UNIQUE,
  agent_id TEXT,
  offered_at DATETIME,
  accepted_at DATETIME,
  completed_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS courier_events (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  courier_event_id TEXT NOT NULL,
  status TEXT NOT NULL,
  payload TEXT NOT NULL,
  occurred_at DATETIME NOT NULL,
  created_at DATETIME,
  UNIQUE (order_id, courier_event_id)
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

type fakeDedup struct {
	keys map[string]bool
}

func newFakeDedup() *fakeDedup {
	return &fakeDedup{keys: map[string]bool{}}
}

func (f *fakeDedup) Get(_ context.Context, key string) (string, error) {
	if f.keys[key] {
		return "1", nil
	}
	return "", nil
}

func (f *fakeDedup) SetNX(_ context.Context, key string, _ any, _ time.Duration) (bool, error) {
	if f.keys[key] {
		return false, nil
	}
	f.keys[key] = true
	return true, nil
}

func (f *fakeDedup) IdempotencyKey(scope, id string) string {
	return "sl:idempotency:" + scope + ":" + id
}

func (f *fakeDedup) WebhookKey(scope, id string) string {
	return "sl:webhook:" + scope + ":" + id
}

func (f *fakeDedup) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.keys, key)
	}
	return nil
}

type webhooksFixture struct {
	db      *gorm.DB
	tenant  *tenant.Tenant
	orders  orders.Service
	service *CourierService
	dedup   *fakeDedup
}

func setupWebhooksFixture(t *testing.T) *webhooksFixture {
	t.Helper()
	gdb := setupWebhooksTestDB(t)

	outboxSvc := outbox.NewService(outbox.NewRepository(gdb), nil)
	orderRepo := orders.NewRepository(gdb)
	orderSvc, err := orders.NewService(orderRepo, cart.NewRepository(gdb), inventory.NewRepository(gdb), outboxSvc, orders.Options{})
	require.NoError(t, err)

	dedup := newFakeDedup()
	svc, err := NewCourierService(orderRepo, orderSvc, dedup, nil)
	require.NoError(t, err)

	return &webhooksFixture{
		db:      gdb,
		tenant:  &tenant.Tenant{ID: "acme", Currency: "INR", DB: dbpkg.FromGorm(gdb)},
		orders:  orderSvc,
		service: svc,
		dedup:   dedup,
	}
}

func (f *webhooksFixture) seedPlacedOrder(t *testing.T) *models.Order {
	t.Helper()
	ctx := context.Background()

	shop := models.Shop{ID: uuid.New(), Name: "Corner Grocer", OwnerUserID: uuid.New(), Active: true}
	require.NoError(t, f.db.Create(&shop).Error)
	product := models.Product{ID: uuid.New(), ShopID: shop.ID, Title: "Assam Tea", Category: "beverages", StockQty: 10, Active: true}
	require.NoError(t, f.db.Create(&product).Error)
	variant := models.ProductVariant{ID: uuid.New(), ProductID: product.ID, Name: "500g", SKU: "SKU-" + uuid.NewString(), PriceCents: 5000, AvailableQty: 10}
	require.NoError(t, f.db.Create(&variant).Error)

	customerID := uuid.New()
	variantID := variant.ID

	placed, err := f.orders.PlaceOrder(ctx, f.tenant, orders.PlaceOrderInput{
		CustomerID: customerID,
		ShopID:     shop.ID,
		Items: []orders.LineItemInput{
			{ProductID: product.ID, VariantID: &variantID, Qty: 1},
		},
		PaymentMethod: enums.PaymentMethodCOD,
		ShippingAddress: types.Address{
			Line1: "12 Hill Road", City: "Mumbai", PostalCode: "400050", Country: "IN",
		},
		ActorUserID: customerID,
	})
	require.NoError(t, err)
	return placed.Order
}

func courierBody(t *testing.T, eventID, orderNumber, status string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"event_id":     eventID,
		"order_number": orderNumber,
		"status":       status,
		"occurred_at":  time.Now().UTC().Format(time.RFC3339),
	})
	require.NoError(t, err)
	return body
}

func TestCourierEventAdvancesOrder(t *testing.T) {
	f := setupWebhooksFixture(t)
	ctx := context.Background()
	order := f.seedPlacedOrder(t)

	outcome, err := f.service.Handle(ctx, f.tenant, courierBody(t, "evt-1", order.Number, "picked_up"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, outcome)

	var current models.Order
	require.NoError(t, f.db.First(&current, "id = ?", order.ID).Error)
	assert.Equal(t, enums.OrderShipped, current.Status)

	var events int64
	require.NoError(t, f.db.Model(&models.CourierEvent{}).Where("order_id = ?", order.ID).Count(&events).Error)
	assert.Equal(t, int64(1), events)
}

func TestCourierEventDuplicateDelivery(t *testing.T) {
	f := setupWebhooksFixture(t)
	ctx := context.Background()
	order := f.seedPlacedOrder(t)
	body := courierBody(t, "evt-dup", order.Number, "picked_up")

	outcome, err := f.service.Handle(ctx, f.tenant, body)
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, outcome)

	// The redis guard absorbs the hot replay.
	outcome, err = f.service.Handle(ctx, f.tenant, body)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, outcome)

	// Even with the guard gone the unique index holds the line.
	require.NoError(t, f.dedup.Del(ctx, f.dedup.WebhookKey("courier", f.tenant.ID+":evt-dup")))
	outcome, err = f.service.Handle(ctx, f.tenant, body)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, outcome)

	var events int64
	require.NoError(t, f.db.Model(&models.CourierEvent{}).Where("order_id = ?", order.ID).Count(&events).Error)
	assert.Equal(t, int64(1), events)
}

func TestCourierDeliveredConsumesInventory(t *testing.T) {
	f := setupWebhooksFixture(t)
	ctx := context.Background()
	order := f.seedPlacedOrder(t)

	_, err := f.service.Handle(ctx, f.tenant, courierBody(t, "evt-ship", order.Number, "in_transit"))
	require.NoError(t, err)

	outcome, err := f.service.Handle(ctx, f.tenant, courierBody(t, "evt-done", order.Number, "delivered"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, outcome)

	var current models.Order
	require.NoError(t, f.db.First(&current, "id = ?", order.ID).Error)
	assert.Equal(t, enums.OrderDelivered, current.Status)
	require.NotNil(t, current.DeliveredAt)

	var variant models.ProductVariant
	require.NoError(t, f.db.First(&variant, "id = ?", order.Items[0].VariantID).Error)
	assert.Zero(t, variant.ReservedQty)
}

func TestCourierStaleEventIgnored(t *testing.T) {
	f := setupWebhooksFixture(t)
	ctx := context.Background()
	order := f.seedPlacedOrder(t)

	_, err := f.service.Handle(ctx, f.tenant, courierBody(t, "evt-a", order.Number, "delivered"))
	require.NoError(t, err)

	// A late pickup event after delivery must not move the order back.
	outcome, err := f.service.Handle(ctx, f.tenant, courierBody(t, "evt-b", order.Number, "picked_up"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, outcome)

	var current models.Order
	require.NoError(t, f.db.First(&current, "id = ?", order.ID).Error)
	assert.Equal(t, enums.OrderDelivered, current.Status)
}

func TestCourierUnknownStatusStoredNotApplied(t *testing.T) {
	f := setupWebhooksFixture(t)
	ctx := context.Background()
	order := f.seedPlacedOrder(t)

	outcome, err := f.service.Handle(ctx, f.tenant, courierBody(t, "evt-odd", order.Number, "label_printed"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, outcome)

	var current models.Order
	require.NoError(t, f.db.First(&current, "id = ?", order.ID).Error)
	assert.Equal(t, enums.OrderPending, current.Status)

	var events int64
	require.NoError(t, f.db.Model(&models.CourierEvent{}).Where("order_id = ?", order.ID).Count(&events).Error)
	assert.Equal(t, int64(1), events)
}

func TestCourierUnknownOrderAcknowledgedAndDropped(t *testing.T) {
	f := setupWebhooksFixture(t)
	ctx := context.Background()

	// No retry can make an order this system never issued appear, so
	// the event is acknowledged rather than bounced back.
	body := courierBody(t, "evt-miss", "SL-NOPE-XXXX", "picked_up")
	outcome, err := f.service.Handle(ctx, f.tenant, body)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDropped, outcome)

	// The guard stays set so a resend is absorbed cheaply.
	assert.True(t, f.dedup.keys[f.dedup.WebhookKey("courier", f.tenant.ID+":evt-miss")])

	outcome, err = f.service.Handle(ctx, f.tenant, body)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, outcome)
}

func TestCourierEventRecordsRiderDetails(t *testing.T) {
	f := setupWebhooksFixture(t)
	ctx := context.Background()
	order := f.seedPlacedOrder(t)

	body, err := json.Marshal(map[string]any{
		"event_id":     "evt-rider",
		"order_number": order.Number,
		"status":       "picked_up",
		"rider_name":   "Sanjay K",
		"rider_phone":  "+91-98200-11111",
		"occurred_at":  time.Now().UTC().Format(time.RFC3339),
	})
	require.NoError(t, err)

	outcome, err := f.service.Handle(ctx, f.tenant, body)
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, outcome)

	var current models.Order
	require.NoError(t, f.db.First(&current, "id = ?", order.ID).Error)
	require.NotNil(t, current.CourierRiderName)
	assert.Equal(t, "Sanjay K", *current.CourierRiderName)
	require.NotNil(t, current.CourierRiderPhone)
	assert.Equal(t, "+91-98200-11111", *current.CourierRiderPhone)
}

func TestCourierMalformedBody(t *testing.T) {
	f := setupWebhooksFixture(t)

	_, err := f.service.Handle(context.Background(), f.tenant, []byte(`{"status":"picked_up"}`))
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}
