package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/storelinehq/storeline-backend/api/middleware"
	"github.com/storelinehq/storeline-backend/api/responses"
	"github.com/storelinehq/storeline-backend/api/validators"
	"github.com/storelinehq/storeline-backend/internal/notifications"
	"github.com/storelinehq/storeline-backend/pkg/enums"
	pkgerrors "github.com/storelinehq/storeline-backend/pkg/errors"
	"github.com/storelinehq/storeline-backend/pkg/logger"
)

type notificationResponse struct {
	ID        uuid.UUID              `json:"id"`
	Kind      enums.NotificationKind `json:"kind"`
	Title     string                 `json:"title"`
	Body      string                 `json:"body"`
	Link      *string                `json:"link,omitempty"`
	ReadAt    *time.Time             `json:"read_at,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

type notificationListResponse struct {
	Notifications []notificationResponse `json:"notifications"`
	NextCursor    string                 `json:"next_cursor,omitempty"`
}

// recipientFromContext maps the caller's role onto the notification
// audience it reads.
func recipientFromContext(r *http.Request) (enums.RecipientKind, uuid.UUID, error) {
	switch middleware.RoleFromContext(r.Context()) {
	case enums.RoleCustomer:
		return enums.RecipientCustomer, middleware.UserIDFromContext(r.Context()), nil
	case enums.RoleVendor:
		shopID := middleware.ShopIDFromContext(r.Context())
		if shopID == uuid.Nil {
			return "", uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "shop context missing")
		}
		return enums.RecipientShop, shopID, nil
	case enums.RoleAgent:
		agentID := middleware.AgentIDFromContext(r.Context())
		if agentID == uuid.Nil {
			return "", uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "agent context missing")
		}
		return enums.RecipientAgent, agentID, nil
	}
	return "", uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "role has no notification feed")
}

// ListNotifications pages through the caller's notification feed.
func ListNotifications(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable"))
			return
		}
		t, ok := activeTenant(r, logg, w)
		if !ok {
			return
		}
		kind, recipientID, err := recipientFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, err := listParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.List(r.Context(), t, kind, recipientID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := notificationListResponse{
			Notifications: make([]notificationResponse, 0, len(list.Notifications)),
			NextCursor:    list.NextCursor,
		}
		for _, n := range list.Notifications {
			out.Notifications = append(out.Notifications, notificationResponse{
				ID:        n.ID,
				Kind:      n.Kind,
				Title:     n.Title,
				Body:      n.Body,
				Link:      n.Link,
				ReadAt:    n.ReadAt,
				CreatedAt: n.CreatedAt,
			})
		}
		responses.WriteSuccess(w, out)
	}
}

// MarkNotificationRead marks one of the caller's notifications read.
func MarkNotificationRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable"))
			return
		}
		t, ok := activeTenant(r, logg, w)
		if !ok {
			return
		}
		kind, recipientID, err := recipientFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParsePathUUID(chi.URLParam(r, "notificationId"), "notificationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.MarkRead(r.Context(), t, id, kind, recipientID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"read": true})
	}
}

// UnreadNotificationCount returns the caller's unread badge count.
func UnreadNotificationCount(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable"))
			return
		}
		t, ok := activeTenant(r, logg, w)
		if !ok {
			return
		}
		kind, recipientID, err := recipientFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		count, err := svc.UnreadCount(r.Context(), t, kind, recipientID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"unread": count})
	}
}
