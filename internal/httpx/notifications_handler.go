package httpx

import (
	"context"
	"github.com/go-chi/chi/v5"
	"log/slog"
	"net/http"
)

// Notifications: redisx.Store, diisi oleh notifier dari topic order.created.
type Notifications interface {
	Unread(ctx context.Context, sellerID string) (int64, error)
	ClearUnread(ctx context.Context, sellerID string) error
}

type NotificationsHandler struct {
	Store Notifications
	Log   *slog.Logger
}

func (h *NotificationsHandler) Register(r chi.Router) {
	r.Get("/", h.unread)
	r.Delete("/", h.clear)
}

func (h *NotificationsHandler) unread(w http.ResponseWriter, r *http.Request) {
	n, err := h.Store.Unread(r.Context(), identity(r).UserID)
	if err != nil {
		writeError(w, logger(h.Log), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"unread_orders": n})
}

func (h *NotificationsHandler) clear(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.ClearUnread(r.Context(), identity(r).UserID); err != nil {
		writeError(w, logger(h.Log), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
