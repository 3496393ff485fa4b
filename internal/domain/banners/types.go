package banners

import (
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("banner not found")
	ErrAnotherVisible    = errors.New("another item is already visible")
	ErrInvalidKind       = errors.New("invalid banner kind")
	ErrInvalidCategory   = errors.New("invalid advertisement category")
	QueryTimeoutDuration = time.Second * 5
)

// Kind separates the banner families. Visibility is exclusive per kind.
type Kind string

const (
	KindAdvertisement  Kind = "ADVERTISEMENT"
	KindPromotionModal Kind = "PROMOTION_MODAL"
)

func (k Kind) Valid() bool {
	return k == KindAdvertisement || k == KindPromotionModal
}

type AdCategory string

const (
	AdCategoryAnnouncement AdCategory = "ANNOUNCEMENT"
	AdCategoryProduct      AdCategory = "PRODUCT"
)

var AdCategories = []AdCategory{AdCategoryAnnouncement, AdCategoryProduct}

func (c AdCategory) Valid() bool {
	return c == AdCategoryAnnouncement || c == AdCategoryProduct
}

type Banner struct {
	ID        int64       `json:"id" db:"id"`
	Kind      Kind        `json:"kind" db:"kind"`
	Title     string      `json:"title" db:"title"`
	ImageURL  string      `json:"image_url" db:"image_url"`
	Hyperlink *string     `json:"hyperlink,omitempty" db:"hyperlink"`
	Category  *AdCategory `json:"category,omitempty" db:"category"`
	IsVisible bool        `json:"is_visible" db:"is_visible"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt time.Time   `json:"updated_at" db:"updated_at"`
}

type NewBanner struct {
	Kind      Kind
	Title     string
	ImageURL  string
	Hyperlink *string
	Category  *AdCategory
	IsVisible bool
}

// Patch is a partial update; nil fields are left untouched.
type Patch struct {
	Title     *string
	ImageURL  *string
	Hyperlink *string
	Category  *AdCategory
	IsVisible *bool
}
