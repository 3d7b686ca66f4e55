package tenant

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"go.uber.org/multierr"

	"github.com/storelinehq/storeline-backend/pkg/db"
	pkgerrors "github.com/storelinehq/storeline-backend/pkg/errors"
)

// Spec is the static per-tenant configuration parsed from the roster.
type Spec struct {
	DBDSN            string `json:"db_dsn"`
	Currency         string `json:"currency"`
	PaymentKeyID     string `json:"payment_key_id"`
	PaymentKeySecret string `json:"payment_key_secret"`
	WebhookSecret    string `json:"webhook_secret"`
	CourierToken     string `json:"courier_token"`
}

// Tenant is a resolved tenant with its open database handle. Handlers
// receive it through the request context and services take it as an
// explicit parameter.
type Tenant struct {
	ID               string
	Currency         string
	DB               *db.Client
	PaymentKeyID     string
	PaymentKeySecret string
	WebhookSecret    string
	CourierToken     string
}

// Registry holds every configured tenant. It is built once at startup
// and read-only afterwards.
type Registry struct {
	tenants map[string]*Tenant
}

// NewRegistry parses the JSON roster and opens one database client per
// tenant.
func NewRegistry(specJSON string, pool db.PoolOptions) (*Registry, error) {
	specs := map[string]Spec{}
	if err := json.Unmarshal([]byte(specJSON), &specs); err != nil {
		return nil, fmt.Errorf("parse tenant roster: %w", err)
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("tenant roster is empty")
	}

	reg := &Registry{tenants: make(map[string]*Tenant, len(specs))}
	for id, spec := range specs {
		if spec.DBDSN == "" {
			reg.closeAll()
			return nil, fmt.Errorf("tenant %q has no db_dsn", id)
		}
		client, err := db.New(spec.DBDSN, pool)
		if err != nil {
			reg.closeAll()
			return nil, fmt.Errorf("open db for tenant %q: %w", id, err)
		}
		currency := spec.Currency
		if currency == "" {
			currency = "INR"
		}
		reg.tenants[id] = &Tenant{
			ID:               id,
			Currency:         currency,
			DB:               client,
			PaymentKeyID:     spec.PaymentKeyID,
			PaymentKeySecret: spec.PaymentKeySecret,
			WebhookSecret:    spec.WebhookSecret,
			CourierToken:     spec.CourierToken,
		}
	}
	return reg, nil
}

// NewRegistryFromTenants wires prebuilt tenants. Used by tests.
func NewRegistryFromTenants(tenants ...*Tenant) *Registry {
	reg := &Registry{tenants: make(map[string]*Tenant, len(tenants))}
	for _, t := range tenants {
		reg.tenants[t.ID] = t
	}
	return reg
}

// Resolve returns the tenant for id or a NOT_FOUND error.
func (r *Registry) Resolve(id string) (*Tenant, error) {
	t, ok := r.tenants[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "unknown tenant")
	}
	return t, nil
}

// IDs returns the configured tenant identifiers in stable order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.tenants))
	for id := range r.tenants {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Close releases every tenant's database pool.
func (r *Registry) Close() error {
	return r.closeAll()
}

func (r *Registry) closeAll() error {
	var err error
	for id, t := range r.tenants {
		if t.DB == nil {
			continue
		}
		if closeErr := t.DB.Close(); closeErr != nil {
			err = multierr.Append(err, fmt.Errorf("close tenant %q: %w", id, closeErr))
		}
	}
	return err
}

type ctxKey struct{}

// WithTenant stores the resolved tenant on the context.
func WithTenant(ctx context.Context, t *Tenant) context.Context {
	return context.WithValue(ctx, ctxKey{}, t)
}

// FromContext returns the tenant attached by the middleware.
func FromContext(ctx context.Context) (*Tenant, error) {
	t, ok := ctx.Value(ctxKey{}).(*Tenant)
	if !ok || t == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "tenant missing from context")
	}
	return t, nil
}
