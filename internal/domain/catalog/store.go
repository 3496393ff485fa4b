package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"medimart/internal/infra/dbx"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/sethvargo/go-retry"
)

const (
	skuConstraint = "products_sku_key"
	skuMaxRetries = 5
)

// skuRetryBase is the first backoff between SKU allocation attempts.
var skuRetryBase = 10 * time.Millisecond

type Store interface {
	CreateProduct(ctx context.Context, in NewProduct) (*Product, error)
	GetProduct(ctx context.Context, id int64, publishedOnly bool) (*Product, error)
	ListProducts(ctx context.Context, filters ListFilters, limit, offset int) ([]*Product, int, error)
	UpdateProduct(ctx context.Context, id int64, patch ProductPatch) (*Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	ListSKUs(ctx context.Context) ([]string, error)
	ListBrandNames(ctx context.Context) ([]string, error)
	ListGenericNames(ctx context.Context) ([]string, error)
}

type Repository struct {
	db dbx.TxBeginner
}

func NewRepository(db dbx.TxBeginner) Store {
	return &Repository{db: db}
}

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

var productColumns = []string{
	"p.id", "p.name", "p.category", "p.sku", "p.mrp", "p.sell_price", "p.cost_price",
	"p.generic_id", "g.name", "p.brand_id", "b.name", "p.image", "p.description",
	"p.stock", "p.status", "p.availability", "p.created_at", "p.updated_at",
}

func productSelect() squirrel.SelectBuilder {
	return psql.Select(productColumns...).
		From("products p").
		LeftJoin("generics g ON g.id = p.generic_id").
		LeftJoin("brands b ON b.id = p.brand_id")
}

func scanProduct(row pgx.Row, p *Product) error {
	return row.Scan(
		&p.ID,
		&p.Name,
		&p.Category,
		&p.SKU,
		&p.MRP,
		&p.SellPrice,
		&p.CostPrice,
		&p.GenericID,
		&p.GenericName,
		&p.BrandID,
		&p.BrandName,
		&p.Image,
		&p.Description,
		&p.Stock,
		&p.Status,
		&p.Availability,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
}

// CreateProduct assigns the next free SKU and inserts the product. Two
// concurrent creations can compute the same SKU; the loser hits the unique
// constraint and retries with a freshly computed one.
func (r *Repository) CreateProduct(ctx context.Context, in NewProduct) (*Product, error) {
	if !in.Category.Valid() {
		return nil, ErrInvalidCategory
	}

	var product *Product
	backoff := retry.WithMaxRetries(skuMaxRetries, retry.NewExponential(skuRetryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		p, err := r.insertProduct(ctx, in)
		if err != nil {
			if dbx.IsUniqueViolation(err, skuConstraint) {
				return retry.RetryableError(err)
			}
			return err
		}
		product = p
		return nil
	})
	if err != nil {
		if dbx.IsUniqueViolation(err, skuConstraint) {
			return nil, fmt.Errorf("%w: %v", ErrSKUConflict, err)
		}
		return nil, err
	}
	return product, nil
}

func (r *Repository) insertProduct(ctx context.Context, in NewProduct) (*Product, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	p := &Product{
		Name:         strings.TrimSpace(in.Name),
		Category:     in.Category,
		MRP:          in.MRP,
		SellPrice:    in.SellPrice,
		CostPrice:    in.CostPrice,
		Image:        in.Image,
		Description:  in.Description,
		Stock:        in.Stock,
		Status:       in.Status,
		Availability: in.Availability,
	}

	err := dbx.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		var err error
		if p.GenericID, p.GenericName, err = findOrCreateName(ctx, tx, "generics", in.GenericName); err != nil {
			return err
		}
		if p.BrandID, p.BrandName, err = findOrCreateName(ctx, tx, "brands", in.BrandName); err != nil {
			return err
		}

		skus, err := listSKUs(ctx, tx)
		if err != nil {
			return err
		}
		p.SKU = NextSKU(skus)

		query := `
			INSERT INTO products (name, category, sku, mrp, sell_price, cost_price, generic_id, brand_id,
			                      image, description, stock, status, availability)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			RETURNING id, created_at, updated_at
		`
		err = tx.QueryRow(ctx, query,
			p.Name, p.Category, p.SKU, p.MRP, p.SellPrice, p.CostPrice, p.GenericID, p.BrandID,
			p.Image, p.Description, p.Stock, p.Status, p.Availability,
		).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert product: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// findOrCreateName returns the id of the row called name in table (brands or
// generics), creating it when missing. A blank name yields no link.
func findOrCreateName(ctx context.Context, q dbx.Querier, table, name string) (*int64, *string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil, nil
	}

	query := `INSERT INTO ` + table + ` (name) VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`

	var id int64
	if err := q.QueryRow(ctx, query, name).Scan(&id); err != nil {
		return nil, nil, fmt.Errorf("find or create %s: %w", table, err)
	}
	return &id, &name, nil
}

func listSKUs(ctx context.Context, q dbx.Querier) ([]string, error) {
	skus := []string{}
	if err := pgxscan.Select(ctx, q, &skus, `SELECT sku FROM products WHERE sku LIKE 'SKU-%'`); err != nil {
		return nil, fmt.Errorf("list skus: %w", err)
	}
	return skus, nil
}

func (r *Repository) ListSKUs(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()
	return listSKUs(ctx, r.db)
}

// GetProduct loads one product. With publishedOnly unpublished products are
// reported as missing.
func (r *Repository) GetProduct(ctx context.Context, id int64, publishedOnly bool) (*Product, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	conds := squirrel.And{squirrel.Eq{"p.id": id}}
	if publishedOnly {
		conds = append(conds, squirrel.Eq{"p.status": true})
	}

	query, args, err := productSelect().Where(conds).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build product query: %w", err)
	}

	p := &Product{}
	if err := scanProduct(r.db.QueryRow(ctx, query, args...), p); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

func listConditions(f ListFilters) squirrel.And {
	conds := squirrel.And{}
	if f.PublishedOnly {
		conds = append(conds, squirrel.Eq{"p.status": true})
	}
	if f.Category != "" {
		conds = append(conds, squirrel.Eq{"p.category": f.Category})
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := dbx.ContainsPattern(s)
		conds = append(conds, squirrel.Or{
			squirrel.ILike{"p.name": like},
			squirrel.ILike{"p.sku": like},
		})
	}
	return conds
}

// ListProducts returns a page of products, newest first, with the total count.
func (r *Repository) ListProducts(ctx context.Context, filters ListFilters, limit, offset int) ([]*Product, int, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	conds := listConditions(filters)

	countSQL, countArgs, err := psql.Select("COUNT(*)").From("products p").Where(conds).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count query: %w", err)
	}

	var total int
	if err := r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	query, args, err := productSelect().
		Where(conds).
		OrderBy("p.created_at DESC", "p.id DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := make([]*Product, 0, limit)
	for rows.Next() {
		p := &Product{}
		if err := scanProduct(rows, p); err != nil {
			return nil, 0, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows iteration: %w", err)
	}

	return products, total, nil
}

// UpdateProduct applies a partial update. The SKU is never touched.
func (r *Repository) UpdateProduct(ctx context.Context, id int64, patch ProductPatch) (*Product, error) {
	if patch.Category != nil && !patch.Category.Valid() {
		return nil, ErrInvalidCategory
	}
	if patch.Empty() {
		return r.GetProduct(ctx, id, false)
	}

	err := dbx.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		set := map[string]any{"updated_at": squirrel.Expr("NOW()")}

		if patch.Name != nil {
			set["name"] = strings.TrimSpace(*patch.Name)
		}
		if patch.Category != nil {
			set["category"] = *patch.Category
		}
		if patch.MRP != nil {
			set["mrp"] = *patch.MRP
		}
		if patch.SellPrice != nil {
			set["sell_price"] = *patch.SellPrice
		}
		if patch.CostPrice != nil {
			set["cost_price"] = *patch.CostPrice
		}
		if patch.GenericName != nil {
			genericID, _, err := findOrCreateName(ctx, tx, "generics", *patch.GenericName)
			if err != nil {
				return err
			}
			set["generic_id"] = genericID
		}
		if patch.BrandName != nil {
			brandID, _, err := findOrCreateName(ctx, tx, "brands", *patch.BrandName)
			if err != nil {
				return err
			}
			set["brand_id"] = brandID
		}
		if patch.Image != nil {
			set["image"] = *patch.Image
		}
		if patch.Description != nil {
			set["description"] = *patch.Description
		}
		if patch.Stock != nil {
			set["stock"] = *patch.Stock
		}
		if patch.Status != nil {
			set["status"] = *patch.Status
		}
		if patch.Availability != nil {
			set["availability"] = *patch.Availability
		}

		query, args, err := psql.Update("products").
			SetMap(set).
			Where(squirrel.Eq{"id": id}).
			Suffix("RETURNING id").
			ToSql()
		if err != nil {
			return fmt.Errorf("build update query: %w", err)
		}

		var updated int64
		if err := tx.QueryRow(ctx, query, args...).Scan(&updated); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrProductNotFound
			}
			return fmt.Errorf("update product: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return r.GetProduct(ctx, id, false)
}

func (r *Repository) DeleteProduct(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tag, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

// ListBrandNames returns every brand name in ascending order.
func (r *Repository) ListBrandNames(ctx context.Context) ([]string, error) {
	return r.listNames(ctx, "brands")
}

// ListGenericNames returns every generic name in ascending order.
func (r *Repository) ListGenericNames(ctx context.Context) ([]string, error) {
	return r.listNames(ctx, "generics")
}

func (r *Repository) listNames(ctx context.Context, table string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	names := []string{}
	if err := pgxscan.Select(ctx, r.db, &names, `SELECT name FROM `+table+` ORDER BY name ASC`); err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	return names, nil
}
