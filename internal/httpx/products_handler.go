package httpx

import (
	"context"
	"github.com/ariefcatur/go-marketplace-orders.git/internal/catalog"
	"github.com/ariefcatur/go-marketplace-orders.git/internal/orders"
	"github.com/go-chi/chi/v5"
	"log/slog"
	"net/http"
)

type CatalogService interface {
	Get(ctx context.Context, id string) (orders.Product, error)
	Search(ctx context.Context, query string, limit int) ([]orders.Product, error)
	List(ctx context.Context, f catalog.Filter, page, limit int) (orders.QueryResult[orders.Product], error)
	Create(ctx context.Context, sellerID string, in catalog.CreateInput) (orders.Product, error)
	Update(ctx context.Context, sellerID, id string, patch catalog.Patch) (orders.Product, error)
	Delete(ctx context.Context, sellerID, id string) error
}

type ProductsHandler struct {
	Catalog CatalogService
	Log     *slog.Logger
}

// Register: route khusus seller. GET publik dipasang langsung di NewRouter.
func (h *ProductsHandler) Register(r chi.Router) {
	r.Get("/products/my", h.mine)
	r.Post("/products", h.create)
	r.Put("/products/{id}", h.update)
	r.Delete("/products/{id}", h.remove)
}

func (h *ProductsHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := catalog.Filter{
		CategoryID: q.Get("category_id"),
		RegionID:   q.Get("region_id"),
		SellerID:   q.Get("seller_id"),
		Status:     orders.ProductAvailable,
	}
	if s := orders.ProductStatus(q.Get("status")); s.Valid() {
		f.Status = s
	}
	page, limit := pageParams(r)
	res, err := h.Catalog.List(r.Context(), f, page, limit)
	if err != nil {
		writeError(w, logger(h.Log), err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// search: GET /products/search?query=kop&limit=15
func (h *ProductsHandler) search(w http.ResponseWriter, r *http.Request) {
	_, limit := pageParams(r)
	list, err := h.Catalog.Search(r.Context(), r.URL.Query().Get("query"), limit)
	if err != nil {
		writeError(w, logger(h.Log), err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *ProductsHandler) mine(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)
	res, err := h.Catalog.List(r.Context(), catalog.Filter{SellerID: identity(r).UserID}, page, limit)
	if err != nil {
		writeError(w, logger(h.Log), err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *ProductsHandler) get(w http.ResponseWriter, r *http.Request) {
	p, err := h.Catalog.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, logger(h.Log), err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *ProductsHandler) create(w http.ResponseWriter, r *http.Request) {
	var in catalog.CreateInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, logger(h.Log), err)
		return
	}
	p, err := h.Catalog.Create(r.Context(), identity(r).UserID, in)
	if err != nil {
		writeError(w, logger(h.Log), err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *ProductsHandler) update(w http.ResponseWriter, r *http.Request) {
	var patch catalog.Patch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, logger(h.Log), err)
		return
	}
	p, err := h.Catalog.Update(r.Context(), identity(r).UserID, chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, logger(h.Log), err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *ProductsHandler) remove(w http.ResponseWriter, r *http.Request) {
	if err := h.Catalog.Delete(r.Context(), identity(r).UserID, chi.URLParam(r, "id")); err != nil {
		writeError(w, logger(h.Log), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
