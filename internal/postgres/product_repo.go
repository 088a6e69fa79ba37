package postgres

import (
	"context"
	"errors"
	"fmt"
	"github.com/ariefcatur/go-marketplace-orders.git/internal/catalog"
	"github.com/ariefcatur/go-marketplace-orders.git/internal/orders"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"strings"
	"time"
)

type ProductRepo struct{ DB *pgxpool.Pool }

func (r *ProductRepo) Get(ctx context.Context, id string) (orders.Product, error) {
	p, err := scanProduct(r.DB.QueryRow(ctx, `SELECT `+productCols+` FROM products WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return orders.Product{}, catalog.ErrNotFound
	}
	return p, err
}

func (r *ProductRepo) ByIDs(ctx context.Context, ids []string) (map[string]orders.Product, error) {
	return productsByIDs(ctx, r.DB, ids)
}

func productsByIDs(ctx context.Context, db *pgxpool.Pool, ids []string) (map[string]orders.Product, error) {
	out := make(map[string]orders.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := db.Query(ctx, `SELECT `+productCols+` FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	list, err := collect(rows, scanProduct)
	if err != nil {
		return nil, err
	}
	for _, p := range list {
		out[p.ID] = p
	}
	return out, nil
}

func (r *ProductRepo) List(ctx context.Context, f catalog.Filter) ([]orders.Product, int, error) {
	var (
		conds []string
		args  []any
	)
	add := func(col string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf("%s=$%d", col, len(args)))
	}
	if f.SellerID != "" {
		add("seller_id", f.SellerID)
	}
	if f.CategoryID != "" {
		add("category_id", f.CategoryID)
	}
	if f.RegionID != "" {
		add("region_id", f.RegionID)
	}
	if f.Status != "" {
		add("status", string(f.Status))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM products`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, f.Limit, f.Offset)
	rows, err := r.DB.Query(ctx, `SELECT `+productCols+` FROM products`+where+
		fmt.Sprintf(` ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	list, err := collect(rows, scanProduct)
	return list, total, err
}

func (r *ProductRepo) Create(ctx context.Context, p orders.Product) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO products(id, seller_id, name, description, price, stock, status, category_id, region_id, images, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		p.ID, p.SellerID, p.Name, p.Description, p.Price, p.Stock, string(p.Status),
		p.CategoryID, p.RegionID, p.Images, p.CreatedAt, p.UpdatedAt)
	return err
}

// Update: SET hanya untuk field yang dikirim seller. Kolom stock tidak
// disentuh kalau patch.Stock nil, jadi decrement dari checkout yang commit
// di antara Get dan Update tetap utuh.
func (r *ProductRepo) Update(ctx context.Context, id, sellerID string, patch catalog.Patch, at time.Time) (orders.Product, error) {
	var (
		sets []string
		args = []any{id, sellerID}
	)
	set := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s=$%d", col, len(args)))
	}
	if patch.Name != nil {
		set("name", *patch.Name)
	}
	if patch.Description != nil {
		set("description", *patch.Description)
	}
	if patch.Price != nil {
		set("price", *patch.Price)
	}
	if patch.Stock != nil {
		set("stock", *patch.Stock)
	}
	if patch.Status != nil {
		set("status", string(*patch.Status))
	}
	if patch.CategoryID != nil {
		set("category_id", *patch.CategoryID)
	}
	if patch.RegionID != nil {
		set("region_id", *patch.RegionID)
	}
	if patch.Images != nil {
		set("images", patch.Images)
	}
	set("updated_at", at)

	p, err := scanProduct(r.DB.QueryRow(ctx, `UPDATE products SET `+strings.Join(sets, ", ")+
		` WHERE id=$1 AND seller_id=$2 RETURNING `+productCols, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return orders.Product{}, catalog.ErrNotFound
	}
	return p, err
}

// Search: prefix nama (case-insensitive) atas produk available, urut nama.
func (r *ProductRepo) Search(ctx context.Context, prefix string, limit int) ([]orders.Product, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+productCols+` FROM products
		WHERE name ILIKE $1 || '%' AND status='available'
		ORDER BY name, id LIMIT $2`, likeEscaper.Replace(prefix), limit)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanProduct)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (r *ProductRepo) Delete(ctx context.Context, id string) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return catalog.ErrNotFound
	}
	return nil
}
