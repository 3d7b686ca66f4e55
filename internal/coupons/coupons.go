package coupons

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/storelinehq/storeline-backend/internal/pricing"
	pkgerrors "github.com/storelinehq/storeline-backend/pkg/errors"
	"github.com/storelinehq/storeline-backend/pkg/tenant"
)

// spec is one coupon entry in the configured roster. Codes are scoped
// per tenant; an entry under the "*" tenant applies everywhere.
type spec struct {
	PercentOffBps int64 `json:"percent_off_bps"`
	FlatOffCents  int64 `json:"flat_off_cents"`
}

// StaticResolver resolves coupon codes from a JSON roster loaded at
// startup. The roster maps tenant id to code to discount.
type StaticResolver struct {
	byTenant map[string]map[string]spec
}

// NewStaticResolver parses the roster. An empty roster is valid and
// resolves nothing.
func NewStaticResolver(rosterJSON string) (*StaticResolver, error) {
	r := &StaticResolver{byTenant: map[string]map[string]spec{}}
	if strings.TrimSpace(rosterJSON) == "" {
		return r, nil
	}
	if err := json.Unmarshal([]byte(rosterJSON), &r.byTenant); err != nil {
		return nil, fmt.Errorf("parse coupon roster: %w", err)
	}
	for tenantID, codes := range r.byTenant {
		normalized := make(map[string]spec, len(codes))
		for code, s := range codes {
			if s.PercentOffBps != 0 && s.FlatOffCents != 0 {
				return nil, fmt.Errorf("coupon %q for tenant %q mixes percent and flat discounts", code, tenantID)
			}
			normalized[strings.ToUpper(strings.TrimSpace(code))] = s
		}
		r.byTenant[tenantID] = normalized
	}
	return r, nil
}

// Resolve looks the code up for the tenant, falling back to the global
// roster. Unknown codes are a validation error.
func (r *StaticResolver) Resolve(ctx context.Context, t *tenant.Tenant, code string) (*pricing.Coupon, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code required")
	}

	if codes, ok := r.byTenant[t.ID]; ok {
		if s, ok := codes[normalized]; ok {
			return &pricing.Coupon{Code: normalized, PercentOffBps: s.PercentOffBps, FlatOffCents: s.FlatOffCents}, nil
		}
	}
	if codes, ok := r.byTenant["*"]; ok {
		if s, ok := codes[normalized]; ok {
			return &pricing.Coupon{Code: normalized, PercentOffBps: s.PercentOffBps, FlatOffCents: s.FlatOffCents}, nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown coupon code").
		WithDetails(map[string]any{"code": normalized})
}
