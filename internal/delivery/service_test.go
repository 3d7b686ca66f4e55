package delivery

import (
	"context"
	"testing"

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

func setupDeliveryTestDB(t *testing.T) *gorm.DB {
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
CREATE TABLE IF NOT EXISTS delivery_agents (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  phone TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'offline',
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

type deliveryFixture struct {
	db       *gorm.DB
	tenant   *tenant.Tenant
	orders   orders.Service
	delivery Service
}

func setupDeliveryFixture(t *testing.T) *deliveryFixture {
	t.Helper()
	gdb := setupDeliveryTestDB(t)

	outboxSvc := outbox.NewService(outbox.NewRepository(gdb), nil)
	orderRepo := orders.NewRepository(gdb)
	orderSvc, err := orders.NewService(
		orderRepo,
		cart.NewRepository(gdb),
		inventory.NewRepository(gdb),
		outboxSvc,
		orders.Options{},
	)
	require.NoError(t, err)

	deliverySvc, err := NewService(NewRepository(gdb), orderRepo, orderSvc, outboxSvc)
	require.NoError(t, err)

	return &deliveryFixture{
		db:       gdb,
		tenant:   &tenant.Tenant{ID: "acme", Currency: "INR", DB: dbpkg.FromGorm(gdb)},
		orders:   orderSvc,
		delivery: deliverySvc,
	}
}

type shippedOrder struct {
	order   *models.Order
	shop    models.Shop
	variant models.ProductVariant
}

func (f *deliveryFixture) seedShippedOrder(t *testing.T) shippedOrder {
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
		CustomerID:    customerID,
		ShopID:        shop.ID,
		Items:         []orders.LineItemInput{{ProductID: product.ID, VariantID: &variantID, Qty: 2}},
		PaymentMethod: enums.PaymentMethodCOD,
		ShippingAddress: types.Address{
			Line1: "12 Hill Road", City: "Mumbai", PostalCode: "400050", Country: "IN",
		},
		ActorUserID: customerID,
	})
	require.NoError(t, err)

	order, _, err := f.orders.UpdateStatus(ctx, f.tenant, orders.UpdateStatusInput{
		OrderID:     placed.Order.ID,
		ShopID:      shop.ID,
		NextStatus:  enums.OrderShipped,
		ActorUserID: shop.OwnerUserID,
		ActorRole:   enums.RoleVendor,
	})
	require.NoError(t, err)
	return shippedOrder{order: order, shop: shop, variant: variant}
}

func (f *deliveryFixture) seedAgent(t *testing.T) models.DeliveryAgent {
	t.Helper()
	agent := models.DeliveryAgent{
		ID:     uuid.New(),
		UserID: uuid.New(),
		Name:   "Ravi Kumar",
		Phone:  "+911234567890",
		Status: enums.AgentAvailable,
	}
	require.NoError(t, f.db.Create(&agent).Error)
	return agent
}

func TestAcceptFirstWriterWins(t *testing.T) {
	f := setupDeliveryFixture(t)
	ctx := context.Background()
	so := f.seedShippedOrder(t)
	winner := f.seedAgent(t)
	loser := f.seedAgent(t)

	claimed, err := f.delivery.Accept(ctx, f.tenant, AcceptInput{OrderID: so.order.ID, AgentUserID: winner.UserID})
	require.NoError(t, err)
	require.NotNil(t, claimed.AgentID)
	assert.Equal(t, winner.ID, *claimed.AgentID)
	require.NotNil(t, claimed.AcceptedAt)

	_, err = f.delivery.Accept(ctx, f.tenant, AcceptInput{OrderID: so.order.ID, AgentUserID: loser.UserID})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeConflict, typed.Code())

	// Replays from the winner stay idempotent.
	again, err := f.delivery.Accept(ctx, f.tenant, AcceptInput{OrderID: so.order.ID, AgentUserID: winner.UserID})
	require.NoError(t, err)
	assert.Equal(t, winner.ID, *again.AgentID)

	var current models.DeliveryAgent
	require.NoError(t, f.db.First(&current, "id = ?", winner.ID).Error)
	assert.Equal(t, enums.AgentBusy, current.Status)
}

func TestAcceptRequiresAgentProfile(t *testing.T) {
	f := setupDeliveryFixture(t)
	so := f.seedShippedOrder(t)

	_, err := f.delivery.Accept(context.Background(), f.tenant, AcceptInput{OrderID: so.order.ID, AgentUserID: uuid.New()})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeForbidden, typed.Code())
}

func TestAcceptMissingOffer(t *testing.T) {
	f := setupDeliveryFixture(t)
	agent := f.seedAgent(t)

	_, err := f.delivery.Accept(context.Background(), f.tenant, AcceptInput{OrderID: uuid.New(), AgentUserID: agent.UserID})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestCompleteDeliversOrder(t *testing.T) {
	f := setupDeliveryFixture(t)
	ctx := context.Background()
	so := f.seedShippedOrder(t)
	agent := f.seedAgent(t)

	_, err := f.delivery.Accept(ctx, f.tenant, AcceptInput{OrderID: so.order.ID, AgentUserID: agent.UserID})
	require.NoError(t, err)

	order, err := f.delivery.Complete(ctx, f.tenant, CompleteInput{OrderID: so.order.ID, AgentUserID: agent.UserID})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderDelivered, order.Status)
	require.NotNil(t, order.DeliveredAt)

	// A cash order settles when the agent hands the goods over.
	assert.Equal(t, enums.PaymentPaid, order.PaymentStatus)
	var storedOrder models.Order
	require.NoError(t, f.db.First(&storedOrder, "id = ?", so.order.ID).Error)
	assert.Equal(t, enums.PaymentPaid, storedOrder.PaymentStatus)

	var assignment models.DeliveryAssignment
	require.NoError(t, f.db.First(&assignment, "order_id = ?", so.order.ID).Error)
	require.NotNil(t, assignment.CompletedAt)

	var variant models.ProductVariant
	require.NoError(t, f.db.First(&variant, "id = ?", so.variant.ID).Error)
	assert.Equal(t, 8, variant.AvailableQty)
	assert.Zero(t, variant.ReservedQty)

	var current models.DeliveryAgent
	require.NoError(t, f.db.First(&current, "id = ?", agent.ID).Error)
	assert.Equal(t, enums.AgentAvailable, current.Status)

	// Completing twice must not deliver twice.
	_, err = f.delivery.Complete(ctx, f.tenant, CompleteInput{OrderID: so.order.ID, AgentUserID: agent.UserID})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestCompleteByOtherAgentForbidden(t *testing.T) {
	f := setupDeliveryFixture(t)
	ctx := context.Background()
	so := f.seedShippedOrder(t)
	winner := f.seedAgent(t)
	other := f.seedAgent(t)

	_, err := f.delivery.Accept(ctx, f.tenant, AcceptInput{OrderID: so.order.ID, AgentUserID: winner.UserID})
	require.NoError(t, err)

	_, err = f.delivery.Complete(ctx, f.tenant, CompleteInput{OrderID: so.order.ID, AgentUserID: other.UserID})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeForbidden, typed.Code())
}

func TestListOpenOffers(t *testing.T) {
	f := setupDeliveryFixture(t)
	ctx := context.Background()
	so := f.seedShippedOrder(t)

	offers, err := f.delivery.ListOpenOffers(ctx, f.tenant, 10)
	require.NoError(t, err)

	var found bool
	for _, offer := range offers {
		if offer.OrderID == so.order.ID {
			found = true
			assert.Equal(t, so.order.Number, offer.OrderNumber)
			assert.Equal(t, "Mumbai", offer.DropAddress.City)
		}
	}
	assert.True(t, found, "shipped order should be offered")
}
