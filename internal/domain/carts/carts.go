package carts

import (
	"context"
	"fmt"

	"medimart/internal/infra/dbx"

	"github.com/georgysavva/scany/v2/pgxscan"
)

type Repository struct {
	db dbx.Querier
}

func NewRepository(q dbx.Querier) Store {
	return &Repository{db: q}
}

// ensureCart returns the account's cart id, creating the cart on first use.
func (r *Repository) ensureCart(ctx context.Context, userID int64) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
INSERT INTO carts (user_id)
VALUES ($1)
ON CONFLICT (user_id) DO UPDATE SET updated_at = now()
RETURNING id
`, userID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("ensure cart: %w", err)
	}
	return id, nil
}

// AddItem adds qty of a published product, increasing the quantity when the
// product is already in the cart.
func (r *Repository) AddItem(ctx context.Context, userID, productID int64, qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	cartID, err := r.ensureCart(ctx, userID)
	if err != nil {
		return err
	}

	const q = `
WITH p AS (
  SELECT id
  FROM products
  WHERE id = $1 AND status = true
)
INSERT INTO cart_items (cart_id, product_id, quantity)
SELECT $2, p.id, $3
FROM p
ON CONFLICT (cart_id, product_id)
DO UPDATE SET
  quantity   = cart_items.quantity + EXCLUDED.quantity,
  updated_at = now()
`

	tag, err := r.db.Exec(ctx, q, productID, cartID, qty)
	if err != nil {
		return fmt.Errorf("add item: %w", err)
	}

	// the CTE is empty for missing or unpublished products
	if tag.RowsAffected() == 0 {
		return ErrProductUnavailable
	}
	return nil
}

// SetQuantity overwrites a line's quantity. Zero or less removes the line.
func (r *Repository) SetQuantity(ctx context.Context, userID, productID int64, qty int) error {
	if qty <= 0 {
		return r.RemoveItem(ctx, userID, productID)
	}

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
UPDATE cart_items
SET quantity = $3,
    updated_at = now()
WHERE product_id = $2
  AND cart_id = (SELECT id FROM carts WHERE user_id = $1)
`, userID, productID, qty)
	if err != nil {
		return fmt.Errorf("update quantity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (r *Repository) RemoveItem(ctx context.Context, userID, productID int64) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
DELETE FROM cart_items
WHERE product_id = $2
  AND cart_id = (SELECT id FROM carts WHERE user_id = $1)
`, userID, productID)
	if err != nil {
		return fmt.Errorf("remove item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (r *Repository) Clear(ctx context.Context, userID int64) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	_, err := r.db.Exec(ctx, `
DELETE FROM cart_items
WHERE cart_id = (SELECT id FROM carts WHERE user_id = $1)
`, userID)
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

// View returns the account's cart priced at current sell prices. An account
// without a cart gets an empty view.
func (r *Repository) View(ctx context.Context, userID int64) (*View, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	lines := []Line{}
	err := pgxscan.Select(ctx, r.db, &lines, `
SELECT ci.product_id, p.name, p.sku, p.image, p.sell_price AS unit_price,
       ci.quantity, p.availability
FROM cart_items ci
JOIN carts c ON c.id = ci.cart_id
JOIN products p ON p.id = ci.product_id
WHERE c.user_id = $1
ORDER BY ci.created_at, ci.product_id
`, userID)
	if err != nil {
		return nil, fmt.Errorf("cart view: %w", err)
	}

	return Summarize(lines), nil
}
