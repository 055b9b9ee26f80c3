package db

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/open4good/open4goods-sub001/internal/globaltime"
	"github.com/open4good/open4goods-sub001/internal/model"
)

// ExportFilter narrows a product export. Zero values mean "no constraint".
type ExportFilter struct {
	Vertical string
	Brand    string
	Limit    int
}

// SaveProduct upserts the resolved record for one product. The executor
// may be the pool or an open transaction when several products must land
// atomically.
func SaveProduct(ctx context.Context, exec Executor, vertical string, product *model.Product) error {
	if product == nil {
		return fmt.Errorf("product is nil")
	}
	if product.GTIN <= 0 {
		return fmt.Errorf("product has no gtin")
	}

	payload, err := json.Marshal(product)
	if err != nil {
		return fmt.Errorf("marshal product gtin=%d: %w", product.GTIN, err)
	}

	const q = `
INSERT INTO catalog.products (gtin, vertical, brand, model, cover_path, payload, last_change, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
ON CONFLICT (gtin) DO UPDATE SET
	vertical = EXCLUDED.vertical,
	brand = EXCLUDED.brand,
	model = EXCLUDED.model,
	cover_path = EXCLUDED.cover_path,
	payload = EXCLUDED.payload,
	last_change = EXCLUDED.last_change,
	updated_at = EXCLUDED.updated_at
`

	_, err = exec.Exec(ctx, q,
		product.GTIN,
		strings.ToLower(strings.TrimSpace(vertical)),
		product.ReferentielValue(model.ReferentielBrand),
		product.ReferentielValue(model.ReferentielModel),
		product.CoverPath,
		string(payload),
		product.LastChange,
		globaltime.UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert product gtin=%d: %w", product.GTIN, err)
	}
	return nil
}

// GetProduct loads one resolved record by GTIN. Returns ErrNoRows when the
// GTIN is unknown.
func GetProduct(ctx context.Context, pool *Pool, gtin int64) (*model.Product, error) {
	const q = `
SELECT payload
FROM catalog.products
WHERE gtin = $1
`

	var payload []byte
	if err := pool.QueryRow(ctx, q, gtin).Scan(&payload); err != nil {
		return nil, err
	}

	var product model.Product
	if err := json.Unmarshal(payload, &product); err != nil {
		return nil, fmt.Errorf("unmarshal product gtin=%d: %w", gtin, err)
	}
	return &product, nil
}

// ExportProducts streams the stored collection matching a filter, most
// recently changed first. Batch re-processing feeds from this.
func ExportProducts(ctx context.Context, pool *Pool, filter ExportFilter) ([]*model.Product, error) {
	var (
		conditions []string
		args       []any
	)
	arg := func(value any) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	if v := strings.ToLower(strings.TrimSpace(filter.Vertical)); v != "" {
		conditions = append(conditions, "vertical = "+arg(v))
	}
	if b := strings.TrimSpace(filter.Brand); b != "" {
		conditions = append(conditions, "brand = "+arg(b))
	}

	q := "SELECT payload FROM catalog.products"
	if len(conditions) > 0 {
		q += " WHERE " + strings.Join(conditions, " AND ")
	}
	q += " ORDER BY last_change DESC"
	if filter.Limit > 0 {
		q += " LIMIT " + arg(filter.Limit)
	}

	rows, err := pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("export products: %w", err)
	}
	defer rows.Close()

	var products []*model.Product
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan product payload: %w", err)
		}
		var product model.Product
		if err := json.Unmarshal(payload, &product); err != nil {
			return nil, fmt.Errorf("unmarshal exported product: %w", err)
		}
		products = append(products, &product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate exported products: %w", err)
	}
	return products, nil
}

// DeleteProduct removes one record by GTIN. Reports whether a row existed.
func DeleteProduct(ctx context.Context, exec Executor, gtin int64) (bool, error) {
	const q = `
DELETE FROM catalog.products
WHERE gtin = $1
`

	tag, err := exec.Exec(ctx, q, gtin)
	if err != nil {
		return false, fmt.Errorf("delete product gtin=%d: %w", gtin, err)
	}
	return tag.RowsAffected() == 1, nil
}
