package httpx

import (
	"context"
	"github.com/ariefcatur/go-marketplace-orders.git/internal/auth"
	"github.com/ariefcatur/go-marketplace-orders.git/internal/cart"
	"github.com/ariefcatur/go-marketplace-orders.git/internal/orders"
	"github.com/go-chi/chi/v5"
	"log/slog"
	"net/http"
)

type CartService interface {
	Items(ctx context.Context, buyerID string) ([]cart.Item, error)
	All(ctx context.Context, page, limit int) (orders.QueryResult[orders.CartItem], error)
	Add(ctx context.Context, buyerID, productID string, qty int) (orders.CartItem, error)
	UpdateQuantity(ctx context.Context, buyerID, itemID string, qty int) error
	Remove(ctx context.Context, buyerID, itemID string) error
}

type CartHandler struct {
	Cart CartService
	Log  *slog.Logger
}

type addCartReq struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type updateCartReq struct {
	Quantity int `json:"quantity"`
}

// Register dipasang di bawah /cart. GET juga terbuka untuk admin (semua cart),
// perubahan hanya oleh buyer.
func (h *CartHandler) Register(r chi.Router) {
	r.Get("/", h.items)
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireRole(orders.RoleBuyer))
		r.Post("/", h.add)
		r.Put("/{itemId}", h.update)
		r.Delete("/{itemId}", h.remove)
	})
}

func (h *CartHandler) items(w http.ResponseWriter, r *http.Request) {
	id := identity(r)
	if id.Role == orders.RoleAdmin {
		page, limit := pageParams(r)
		res, err := h.Cart.All(r.Context(), page, limit)
		if err != nil {
			writeError(w, logger(h.Log), err)
			return
		}
		writeJSON(w, http.StatusOK, res)
		return
	}
	items, err := h.Cart.Items(r.Context(), id.UserID)
	if err != nil {
		writeError(w, logger(h.Log), err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *CartHandler) add(w http.ResponseWriter, r *http.Request) {
	var req addCartReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, logger(h.Log), err)
		return
	}
	it, err := h.Cart.Add(r.Context(), identity(r).UserID, req.ProductID, req.Quantity)
	if err != nil {
		writeError(w, logger(h.Log), err)
		return
	}
	writeJSON(w, http.StatusCreated, it)
}

func (h *CartHandler) update(w http.ResponseWriter, r *http.Request) {
	var req updateCartReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, logger(h.Log), err)
		return
	}
	if err := h.Cart.UpdateQuantity(r.Context(), identity(r).UserID, chi.URLParam(r, "itemId"), req.Quantity); err != nil {
		writeError(w, logger(h.Log), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *CartHandler) remove(w http.ResponseWriter, r *http.Request) {
	if err := h.Cart.Remove(r.Context(), identity(r).UserID, chi.URLParam(r, "itemId")); err != nil {
		writeError(w, logger(h.Log), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
