package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/storelinehq/storeline-backend/api/middleware"
	"github.com/storelinehq/storeline-backend/api/responses"
	"github.com/storelinehq/storeline-backend/api/validators"
	"github.com/storelinehq/storeline-backend/internal/delivery"
	"github.com/storelinehq/storeline-backend/pkg/db/models"
	pkgerrors "github.com/storelinehq/storeline-backend/pkg/errors"
	"github.com/storelinehq/storeline-backend/pkg/logger"
)

type assignmentResponse struct {
	ID          uuid.UUID  `json:"id"`
	OrderID     uuid.UUID  `json:"order_id"`
	AgentID     *uuid.UUID `json:"agent_id,omitempty"`
	OfferedAt   time.Time  `json:"offered_at"`
	AcceptedAt  *time.Time `json:"accepted_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func toAssignmentResponse(a models.DeliveryAssignment) assignmentResponse {
	return assignmentResponse{
		ID:          a.ID,
		OrderID:     a.OrderID,
		AgentID:     a.AgentID,
		OfferedAt:   a.OfferedAt,
		AcceptedAt:  a.AcceptedAt,
		CompletedAt: a.CompletedAt,
	}
}

func activeAgentID(r *http.Request) (uuid.UUID, error) {
	agentID := middleware.AgentIDFromContext(r.Context())
	if agentID == uuid.Nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "agent context missing")
	}
	return agentID, nil
}

// ListDeliveryOffers returns unclaimed assignments for agents to pick up.
func ListDeliveryOffers(svc delivery.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "delivery service unavailable"))
			return
		}
		t, ok := activeTenant(r, logg, w)
		if !ok {
			return
		}
		if _, err := activeAgentID(r); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		offers, err := svc.ListOpenOffers(r.Context(), t, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"offers": offers})
	}
}

// ListMyDeliveries returns the calling agent's claimed assignments.
func ListMyDeliveries(svc delivery.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "delivery service unavailable"))
			return
		}
		t, ok := activeTenant(r, logg, w)
		if !ok {
			return
		}
		agentID, err := activeAgentID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		assignments, err := svc.ListMine(r.Context(), t, agentID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]assignmentResponse, 0, len(assignments))
		for _, a := range assignments {
			out = append(out, toAssignmentResponse(a))
		}
		responses.WriteSuccess(w, map[string]any{"assignments": out})
	}
}

// AcceptDelivery claims an open assignment for the calling agent.
func AcceptDelivery(svc delivery.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "delivery service unavailable"))
			return
		}
		t, ok := activeTenant(r, logg, w)
		if !ok {
			return
		}
		agentID, err := activeAgentID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParsePathUUID(chi.URLParam(r, "orderId"), "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		assignment, err := svc.Accept(r.Context(), t, delivery.AcceptInput{
			OrderID:     orderID,
			AgentUserID: agentID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toAssignmentResponse(*assignment))
	}
}

// CompleteDelivery marks a claimed assignment delivered.
func CompleteDelivery(svc delivery.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "delivery service unavailable"))
			return
		}
		t, ok := activeTenant(r, logg, w)
		if !ok {
			return
		}
		agentID, err := activeAgentID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParsePathUUID(chi.URLParam(r, "orderId"), "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Complete(r.Context(), t, delivery.CompleteInput{
			OrderID:     orderID,
			AgentUserID: agentID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toOrderResponse(order, nil))
	}
}
