package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/storelinehq/storeline-backend/api/controllers"
	"github.com/storelinehq/storeline-backend/api/middleware"
	"github.com/storelinehq/storeline-backend/internal/cart"
	"github.com/storelinehq/storeline-backend/internal/delivery"
	"github.com/storelinehq/storeline-backend/internal/notifications"
	"github.com/storelinehq/storeline-backend/internal/orders"
	"github.com/storelinehq/storeline-backend/internal/payments"
	"github.com/storelinehq/storeline-backend/internal/webhooks"
	"github.com/storelinehq/storeline-backend/pkg/config"
	"github.com/storelinehq/storeline-backend/pkg/enums"
	"github.com/storelinehq/storeline-backend/pkg/logger"
	pkgredis "github.com/storelinehq/storeline-backend/pkg/redis"
	"github.com/storelinehq/storeline-backend/pkg/tenant"
)

// Deps bundles everything the router mounts.
type Deps struct {
	Config        *config.Config
	Logger        *logger.Logger
	Registry      *tenant.Registry
	Redis         *pkgredis.Client
	Metrics       *prometheus.Registry
	Cart          cart.Service
	Orders        orders.Service
	Payments      payments.Service
	Delivery      delivery.Service
	Notifications notifications.Service
	Courier       *webhooks.CourierService
}

func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	logg := d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, d.Registry, d.Redis, logg))
	})

	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Metrics, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Use(middleware.Tenant(d.Registry, logg))
		r.Post("/courier", controllers.CourierWebhook(d.Courier, logg))
	})

	var idemStore pkgredis.IdempotencyStore
	if d.Redis != nil {
		idemStore = d.Redis
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Tenant(d.Registry, logg))
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(enums.RoleCustomer, logg))
			r.Get("/cart", controllers.ListCart(d.Cart, logg))
			r.Put("/cart/items", controllers.PutCartItem(d.Cart, logg))
			r.Delete("/cart/items/{productId}", controllers.RemoveCartItem(d.Cart, logg))
			r.Post("/orders", controllers.PlaceOrder(d.Orders, logg))
			r.Get("/orders", controllers.ListOrders(d.Orders, logg))
			r.Get("/orders/{orderId}", controllers.GetOrder(d.Orders, logg))
			r.Post("/orders/{orderId}/cancel", controllers.CancelOrder(d.Orders, logg))
			r.Post("/payments/intent", controllers.CreatePaymentIntent(d.Payments, logg))
			r.Post("/payments/verify", controllers.VerifyPayment(d.Payments, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(enums.RoleVendor, logg))
			r.Get("/vendor/orders", controllers.ListVendorOrders(d.Orders, logg))
			r.Get("/vendor/orders/{orderId}", controllers.GetVendorOrder(d.Orders, logg))
			r.Post("/vendor/orders/{orderId}/status", controllers.UpdateVendorOrderStatus(d.Orders, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(enums.RoleAgent, logg))
			r.Get("/agent/deliveries/offers", controllers.ListDeliveryOffers(d.Delivery, logg))
			r.Get("/agent/deliveries/mine", controllers.ListMyDeliveries(d.Delivery, logg))
			r.Post("/agent/deliveries/{orderId}/accept", controllers.AcceptDelivery(d.Delivery, logg))
			r.Post("/agent/deliveries/{orderId}/complete", controllers.CompleteDelivery(d.Delivery, logg))
		})

		r.Get("/notifications", controllers.ListNotifications(d.Notifications, logg))
		r.Get("/notifications/unread-count", controllers.UnreadNotificationCount(d.Notifications, logg))
		r.Post("/notifications/{notificationId}/read", controllers.MarkNotificationRead(d.Notifications, logg))
	})

	return r
}
