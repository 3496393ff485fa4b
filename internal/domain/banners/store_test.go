package banners_test

import (
	"context"
	"testing"
	"time"

	"medimart/internal/domain/banners"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var bannerCols = []string{
	"id", "kind", "title", "image_url", "hyperlink", "category", "is_visible", "created_at", "updated_at",
}

func bannerRows(mock pgxmock.PgxPoolIface, id int64, kind banners.Kind, visible bool) *pgxmock.Rows {
	now := time.Now()
	var category *banners.AdCategory
	if kind == banners.KindAdvertisement {
		c := banners.AdCategoryProduct
		category = &c
	}
	return mock.NewRows(bannerCols).AddRow(id, kind, "Winter sale", "https://img.example.com/a.png", nil, category, visible, now, now)
}

func TestRepository_Create(t *testing.T) {
	t.Run("Should always create promotion modals hidden", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()
		repo := banners.NewRepository(mock)

		category := banners.AdCategoryAnnouncement
		mock.ExpectQuery("INSERT INTO banners").
			WithArgs(banners.KindPromotionModal, "Flu season", "https://img.example.com/m.png",
				(*string)(nil), (*banners.AdCategory)(nil), false).
			WillReturnRows(bannerRows(mock, 1, banners.KindPromotionModal, false))

		b, err := repo.Create(context.Background(), banners.NewBanner{
			Kind:      banners.KindPromotionModal,
			Title:     "Flu season",
			ImageURL:  "https://img.example.com/m.png",
			Category:  &category,
			IsVisible: true,
		})
		require.NoError(t, err)
		assert.False(t, b.IsVisible)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Should reject a visible advertisement while another is visible", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()
		repo := banners.NewRepository(mock)

		category := banners.AdCategoryProduct
		mock.ExpectQuery("INSERT INTO banners (.+) WHERE NOT").
			WithArgs(banners.KindAdvertisement, "Winter sale", "https://img.example.com/a.png",
				pgxmock.AnyArg(), &category, true).
			WillReturnRows(mock.NewRows(bannerCols))

		b, err := repo.Create(context.Background(), banners.NewBanner{
			Kind:      banners.KindAdvertisement,
			Title:     "Winter sale",
			ImageURL:  "https://img.example.com/a.png",
			Category:  &category,
			IsVisible: true,
		})
		assert.Nil(t, b)
		assert.ErrorIs(t, err, banners.ErrAnotherVisible)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Should map the visibility index violation", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()
		repo := banners.NewRepository(mock)

		category := banners.AdCategoryProduct
		mock.ExpectQuery("INSERT INTO banners").
			WithArgs(banners.KindAdvertisement, "Winter sale", "https://img.example.com/a.png",
				pgxmock.AnyArg(), &category, true).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "banners_one_visible_per_kind"})

		_, err = repo.Create(context.Background(), banners.NewBanner{
			Kind:      banners.KindAdvertisement,
			Title:     "Winter sale",
			ImageURL:  "https://img.example.com/a.png",
			Category:  &category,
			IsVisible: true,
		})
		assert.ErrorIs(t, err, banners.ErrAnotherVisible)
	})

	t.Run("Should require a category for advertisements", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()
		repo := banners.NewRepository(mock)

		_, err = repo.Create(context.Background(), banners.NewBanner{Kind: banners.KindAdvertisement, Title: "x"})
		assert.ErrorIs(t, err, banners.ErrInvalidCategory)

		_, err = repo.Create(context.Background(), banners.NewBanner{Kind: "POPUP"})
		assert.ErrorIs(t, err, banners.ErrInvalidKind)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepository_SetVisibility(t *testing.T) {
	t.Run("Should show a banner when no other is visible", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()
		repo := banners.NewRepository(mock)

		mock.ExpectQuery("UPDATE banners SET is_visible = \\$1, updated_at = NOW\\(\\) WHERE id = \\$2 AND kind = \\$3 AND NOT EXISTS").
			WithArgs(true, int64(4), banners.KindPromotionModal).
			WillReturnRows(bannerRows(mock, 4, banners.KindPromotionModal, true))

		b, err := repo.SetVisibility(context.Background(), banners.KindPromotionModal, 4, true)
		require.NoError(t, err)
		assert.True(t, b.IsVisible)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Should report a conflict when another banner is visible", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()
		repo := banners.NewRepository(mock)

		mock.ExpectQuery("UPDATE banners SET is_visible = \\$1").
			WithArgs(true, int64(4), banners.KindPromotionModal).
			WillReturnRows(mock.NewRows(bannerCols))
		mock.ExpectQuery("SELECT (.+) FROM banners WHERE id = \\$1 AND kind = \\$2").
			WithArgs(int64(4), banners.KindPromotionModal).
			WillReturnRows(bannerRows(mock, 4, banners.KindPromotionModal, false))

		b, err := repo.SetVisibility(context.Background(), banners.KindPromotionModal, 4, true)
		assert.Nil(t, b)
		assert.ErrorIs(t, err, banners.ErrAnotherVisible)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Should report a missing banner instead of a conflict", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()
		repo := banners.NewRepository(mock)

		mock.ExpectQuery("UPDATE banners SET is_visible = \\$1").
			WithArgs(true, int64(404), banners.KindAdvertisement).
			WillReturnRows(mock.NewRows(bannerCols))
		mock.ExpectQuery("SELECT (.+) FROM banners WHERE id = \\$1 AND kind = \\$2").
			WithArgs(int64(404), banners.KindAdvertisement).
			WillReturnRows(mock.NewRows(bannerCols))

		_, err = repo.SetVisibility(context.Background(), banners.KindAdvertisement, 404, true)
		assert.ErrorIs(t, err, banners.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Should always allow hiding", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()
		repo := banners.NewRepository(mock)

		mock.ExpectQuery("UPDATE banners SET is_visible = \\$1, updated_at = NOW\\(\\) WHERE id = \\$2 AND kind = \\$3 RETURNING").
			WithArgs(false, int64(4), banners.KindAdvertisement).
			WillReturnRows(bannerRows(mock, 4, banners.KindAdvertisement, false))

		b, err := repo.SetVisibility(context.Background(), banners.KindAdvertisement, 4, false)
		require.NoError(t, err)
		assert.False(t, b.IsVisible)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepository_Update(t *testing.T) {
	t.Run("Should reject a category on promotion modals", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()
		repo := banners.NewRepository(mock)

		category := banners.AdCategoryProduct
		_, err = repo.Update(context.Background(), banners.KindPromotionModal, 1, banners.Patch{Category: &category})
		assert.ErrorIs(t, err, banners.ErrInvalidCategory)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Should clear a blank hyperlink", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()
		repo := banners.NewRepository(mock)

		blank := "  "
		title := "Spring sale"
		mock.ExpectQuery("UPDATE banners SET hyperlink = \\$1, title = \\$2, updated_at = NOW\\(\\) WHERE id = \\$3 AND kind = \\$4 RETURNING").
			WithArgs((*string)(nil), "Spring sale", int64(2), banners.KindAdvertisement).
			WillReturnRows(bannerRows(mock, 2, banners.KindAdvertisement, true))

		_, err = repo.Update(context.Background(), banners.KindAdvertisement, 2, banners.Patch{Title: &title, Hyperlink: &blank})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepository_CurrentVisible(t *testing.T) {
	t.Run("Should return the newest visible modal", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()
		repo := banners.NewRepository(mock)

		mock.ExpectQuery("SELECT (.+) FROM banners WHERE is_visible = \\$1 AND kind = \\$2 ORDER BY created_at DESC, id DESC").
			WithArgs(true, banners.KindPromotionModal).
			WillReturnRows(bannerRows(mock, 8, banners.KindPromotionModal, true))

		b, err := repo.CurrentVisible(context.Background(), banners.KindPromotionModal)
		require.NoError(t, err)
		require.NotNil(t, b)
		assert.Equal(t, int64(8), b.ID)
	})

	t.Run("Should return nil when nothing is visible", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()
		repo := banners.NewRepository(mock)

		mock.ExpectQuery("SELECT (.+) FROM banners WHERE is_visible = \\$1 AND kind = \\$2").
			WithArgs(true, banners.KindPromotionModal).
			WillReturnRows(mock.NewRows(bannerCols))

		b, err := repo.CurrentVisible(context.Background(), banners.KindPromotionModal)
		require.NoError(t, err)
		assert.Nil(t, b)
	})
}

func TestRepository_Delete(t *testing.T) {
	t.Run("Should only delete banners of the requested kind", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()
		repo := banners.NewRepository(mock)

		mock.ExpectExec("DELETE FROM banners WHERE id = \\$1 AND kind = \\$2").
			WithArgs(int64(3), banners.KindAdvertisement).
			WillReturnResult(pgxmock.NewResult("DELETE", 0))

		err = repo.Delete(context.Background(), banners.KindAdvertisement, 3)
		assert.ErrorIs(t, err, banners.ErrNotFound)
	})
}
