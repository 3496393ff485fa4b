package banners

import (
	"context"
	"fmt"
	"strings"

	"medimart/internal/infra/dbx"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
)

// visibleIndex is the partial unique index that allows one visible row per kind.
const visibleIndex = "banners_one_visible_per_kind"

// noOtherVisible holds for a row when no other row of its kind is visible.
const noOtherVisible = `NOT EXISTS (
	SELECT 1 FROM banners o
	WHERE o.kind = banners.kind AND o.is_visible AND o.id <> banners.id
)`

type Store interface {
	Create(ctx context.Context, in NewBanner) (*Banner, error)
	Get(ctx context.Context, kind Kind, id int64) (*Banner, error)
	Update(ctx context.Context, kind Kind, id int64, patch Patch) (*Banner, error)
	SetVisibility(ctx context.Context, kind Kind, id int64, visible bool) (*Banner, error)
	Delete(ctx context.Context, kind Kind, id int64) error
	List(ctx context.Context, kind Kind) ([]Banner, error)
	ListVisible(ctx context.Context, kind Kind) ([]Banner, error)
	CurrentVisible(ctx context.Context, kind Kind) (*Banner, error)
}

type Repository struct {
	db dbx.Querier
}

func NewRepository(db dbx.Querier) Store {
	return &Repository{db: db}
}

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

const bannerColumns = "id, kind, title, image_url, hyperlink, category, is_visible, created_at, updated_at"

func normalizeLink(link *string) *string {
	if link == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*link)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// Create inserts a banner. Promotion modals always start hidden. A visible
// advertisement is only written when no other advertisement is visible.
func (r *Repository) Create(ctx context.Context, in NewBanner) (*Banner, error) {
	if !in.Kind.Valid() {
		return nil, ErrInvalidKind
	}

	switch in.Kind {
	case KindPromotionModal:
		in.IsVisible = false
		in.Category = nil
	case KindAdvertisement:
		if in.Category == nil || !in.Category.Valid() {
			return nil, ErrInvalidCategory
		}
	}

	query := `
		INSERT INTO banners (kind, title, image_url, hyperlink, category, is_visible)
		SELECT $1::text, $2::text, $3::text, $4::text, $5::text, $6::boolean
		WHERE NOT ($6::boolean AND EXISTS (
			SELECT 1 FROM banners WHERE kind = $1::text AND is_visible
		))
		RETURNING ` + bannerColumns

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	var b Banner
	err := pgxscan.Get(ctx, r.db, &b, query,
		in.Kind, strings.TrimSpace(in.Title), strings.TrimSpace(in.ImageURL),
		normalizeLink(in.Hyperlink), in.Category, in.IsVisible,
	)
	if err != nil {
		switch {
		case pgxscan.NotFound(err), dbx.IsUniqueViolation(err, visibleIndex):
			return nil, ErrAnotherVisible
		default:
			return nil, fmt.Errorf("create banner: %w", err)
		}
	}
	return &b, nil
}

func (r *Repository) Get(ctx context.Context, kind Kind, id int64) (*Banner, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	var b Banner
	query := `SELECT ` + bannerColumns + ` FROM banners WHERE id = $1 AND kind = $2`
	if err := pgxscan.Get(ctx, r.db, &b, query, id, kind); err != nil {
		if pgxscan.NotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get banner: %w", err)
	}
	return &b, nil
}

// Update applies patch in one statement. When the patch makes the banner
// visible the statement only matches while no other banner of the same kind
// is visible; a miss is then reported as ErrAnotherVisible.
func (r *Repository) Update(ctx context.Context, kind Kind, id int64, patch Patch) (*Banner, error) {
	if patch.Category != nil && (kind != KindAdvertisement || !patch.Category.Valid()) {
		return nil, ErrInvalidCategory
	}

	set := map[string]any{}
	if patch.Title != nil {
		set["title"] = strings.TrimSpace(*patch.Title)
	}
	if patch.ImageURL != nil {
		set["image_url"] = strings.TrimSpace(*patch.ImageURL)
	}
	if patch.Hyperlink != nil {
		set["hyperlink"] = normalizeLink(patch.Hyperlink)
	}
	if patch.Category != nil {
		set["category"] = *patch.Category
	}
	if patch.IsVisible != nil {
		set["is_visible"] = *patch.IsVisible
	}
	if len(set) == 0 {
		return r.Get(ctx, kind, id)
	}
	set["updated_at"] = squirrel.Expr("NOW()")

	makesVisible := patch.IsVisible != nil && *patch.IsVisible
	builder := psql.Update("banners").
		SetMap(set).
		Where(squirrel.Eq{"id": id, "kind": kind})
	if makesVisible {
		builder = builder.Where(noOtherVisible)
	}
	query, args, err := builder.Suffix("RETURNING " + bannerColumns).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build update query: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	var b Banner
	if err := pgxscan.Get(ctx, r.db, &b, query, args...); err != nil {
		switch {
		case dbx.IsUniqueViolation(err, visibleIndex):
			return nil, ErrAnotherVisible
		case pgxscan.NotFound(err):
			if !makesVisible {
				return nil, ErrNotFound
			}
			// The row either does not exist or lost the visibility check.
			if _, gerr := r.Get(ctx, kind, id); gerr != nil {
				return nil, gerr
			}
			return nil, ErrAnotherVisible
		default:
			return nil, fmt.Errorf("update banner: %w", err)
		}
	}
	return &b, nil
}

// SetVisibility shows or hides a banner. Hiding always succeeds.
func (r *Repository) SetVisibility(ctx context.Context, kind Kind, id int64, visible bool) (*Banner, error) {
	return r.Update(ctx, kind, id, Patch{IsVisible: &visible})
}

func (r *Repository) Delete(ctx context.Context, kind Kind, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tag, err := r.db.Exec(ctx, `DELETE FROM banners WHERE id = $1 AND kind = $2`, id, kind)
	if err != nil {
		return fmt.Errorf("delete banner: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns every banner of kind, newest first.
func (r *Repository) List(ctx context.Context, kind Kind) ([]Banner, error) {
	return r.list(ctx, squirrel.Eq{"kind": kind})
}

func (r *Repository) ListVisible(ctx context.Context, kind Kind) ([]Banner, error) {
	return r.list(ctx, squirrel.Eq{"kind": kind, "is_visible": true})
}

func (r *Repository) list(ctx context.Context, where squirrel.Eq) ([]Banner, error) {
	query, args, err := psql.Select(bannerColumns).
		From("banners").
		Where(where).
		OrderBy("created_at DESC", "id DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	banners := []Banner{}
	if err := pgxscan.Select(ctx, r.db, &banners, query, args...); err != nil {
		return nil, fmt.Errorf("list banners: %w", err)
	}
	return banners, nil
}

// CurrentVisible returns the most recent visible banner of kind, or nil.
func (r *Repository) CurrentVisible(ctx context.Context, kind Kind) (*Banner, error) {
	visible, err := r.ListVisible(ctx, kind)
	if err != nil {
		return nil, err
	}
	if len(visible) == 0 {
		return nil, nil
	}
	return &visible[0], nil
}
